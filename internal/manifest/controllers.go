package manifest

import (
	"fmt"
	"strings"

	"github.com/yourorg/restdoc/internal/typeexpr"
	"github.com/yourorg/restdoc/pkg/types"
)

// Controller is a controller spec with every type expression parsed.
type Controller struct {
	Name        string
	URI         string
	Description string
	Type        *types.TypeRef
	Operations  []Operation
}

type Operation struct {
	Name        string
	URI         string
	Method      string
	Description string
	Bindings    map[string]types.TypeRef
	Params      []Param
	Return      *Return
	Statuses    []types.ResponseStatus
	Examples    ExampleSpec
}

type Param struct {
	Name        string
	Type        types.TypeRef
	Annotations []string
	Description string
	Required    *bool
	Default     string
}

type Return struct {
	Type        types.TypeRef
	Description string
}

// ParseControllers parses the controller section.
func (m *Manifest) ParseControllers() ([]Controller, error) {
	out := make([]Controller, 0, len(m.Controllers))
	for _, cs := range m.Controllers {
		c := Controller{Name: cs.Name, URI: cs.URI, Description: cs.Description}
		if t := strings.TrimSpace(cs.Type); t != "" {
			ref, err := typeexpr.Parse(t)
			if err != nil {
				return nil, fmt.Errorf("controller %s type: %w", cs.Name, err)
			}
			c.Type = &ref
		}
		for _, spec := range cs.Operations {
			op, err := parseOperation(spec)
			if err != nil {
				return nil, fmt.Errorf("controller %s: %w", cs.Name, err)
			}
			c.Operations = append(c.Operations, op)
		}
		out = append(out, c)
	}
	return out, nil
}

func parseOperation(spec OperationSpec) (Operation, error) {
	op := Operation{
		Name:        spec.Name,
		URI:         spec.URI,
		Method:      strings.ToUpper(strings.TrimSpace(spec.Method)),
		Description: spec.Description,
		Examples:    spec.Examples,
	}
	if len(spec.Bindings) > 0 {
		op.Bindings = make(map[string]types.TypeRef, len(spec.Bindings))
		for name, expr := range spec.Bindings {
			ref, err := typeexpr.Parse(expr)
			if err != nil {
				return op, fmt.Errorf("operation %s binding %s: %w", spec.Name, name, err)
			}
			op.Bindings[name] = ref
		}
	}
	for _, ps := range spec.Params {
		ref, err := typeexpr.Parse(ps.Type)
		if err != nil {
			return op, fmt.Errorf("operation %s param %s: %w", spec.Name, ps.Name, err)
		}
		op.Params = append(op.Params, Param{
			Name:        ps.Name,
			Type:        ref,
			Annotations: ps.Annotations,
			Description: ps.Description,
			Required:    ps.Required,
			Default:     ps.Default,
		})
	}
	if spec.Returns != nil {
		ref, err := typeexpr.Parse(spec.Returns.Type)
		if err != nil {
			return op, fmt.Errorf("operation %s returns: %w", spec.Name, err)
		}
		op.Return = &Return{Type: ref, Description: spec.Returns.Description}
	}
	for _, s := range spec.Statuses {
		op.Statuses = append(op.Statuses, types.ResponseStatus{Code: s.Code, Description: s.Description})
	}
	return op, nil
}
