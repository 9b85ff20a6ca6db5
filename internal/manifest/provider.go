package manifest

import (
	"fmt"
	"strings"

	"github.com/yourorg/restdoc/internal/registry"
	"github.com/yourorg/restdoc/internal/typeexpr"
	"github.com/yourorg/restdoc/pkg/types"
)

// Provider serves the classes declared in a manifest.
type Provider struct {
	classes map[string]*types.ClassMetadata
	order   []string
}

// NewProvider converts the class specs, parsing every type expression.
func NewProvider(specs []ClassSpec) (*Provider, error) {
	p := &Provider{classes: make(map[string]*types.ClassMetadata, len(specs))}
	for _, spec := range specs {
		cm, err := convertClass(spec)
		if err != nil {
			return nil, err
		}
		if _, dup := p.classes[cm.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate class %s", ErrInvalid, cm.Name)
		}
		p.classes[cm.Name] = cm
		p.order = append(p.order, cm.Name)
	}
	return p, nil
}

// Lookup implements registry.Provider.
func (p *Provider) Lookup(name string) (*types.ClassMetadata, error) {
	if cm, ok := p.classes[name]; ok {
		return cm, nil
	}
	return nil, fmt.Errorf("%s: %w", name, registry.ErrNotFound)
}

// Names returns the declared class names in manifest order.
func (p *Provider) Names() []string {
	return append([]string(nil), p.order...)
}

func convertClass(spec ClassSpec) (*types.ClassMetadata, error) {
	cm := &types.ClassMetadata{
		Name:       strings.TrimSpace(spec.Name),
		Doc:        spec.Doc,
		TypeParams: spec.TypeParams,
		Enum:       spec.Enum || len(spec.Values) > 0,
		EnumValues: spec.Values,
	}
	if s := strings.TrimSpace(spec.Super); s != "" {
		super, err := typeexpr.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("class %s super: %w", cm.Name, err)
		}
		cm.Super = &super
	}
	for _, f := range spec.Fields {
		ref, err := typeexpr.Parse(f.Type)
		if err != nil {
			return nil, fmt.Errorf("class %s field %s: %w", cm.Name, f.Name, err)
		}
		cm.Fields = append(cm.Fields, types.FieldMetadata{
			Name:     f.Name,
			Type:     ref,
			Doc:      f.Doc,
			Required: f.Required,
			Constant: f.Constant,
		})
	}
	return cm, nil
}
