// Package manifest loads a YAML (or JSON) snapshot of declared classes and
// documented controllers.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned when a manifest breaks a structural rule.
var ErrInvalid = errors.New("invalid manifest")

type Manifest struct {
	Title       string           `yaml:"title" json:"title"`
	Version     string           `yaml:"version" json:"version"`
	Classes     []ClassSpec      `yaml:"classes" json:"classes" validate:"dive"`
	Controllers []ControllerSpec `yaml:"controllers" json:"controllers" validate:"dive"`
}

type ClassSpec struct {
	Name       string      `yaml:"name" json:"name" validate:"required"`
	Doc        string      `yaml:"doc,omitempty" json:"doc,omitempty"`
	TypeParams []string    `yaml:"type_params,omitempty" json:"type_params,omitempty" validate:"dive,required"`
	Super      string      `yaml:"super,omitempty" json:"super,omitempty"`
	Enum       bool        `yaml:"enum,omitempty" json:"enum,omitempty"`
	Values     []string    `yaml:"values,omitempty" json:"values,omitempty"`
	Fields     []FieldSpec `yaml:"fields,omitempty" json:"fields,omitempty" validate:"dive"`
}

type FieldSpec struct {
	Name     string `yaml:"name" json:"name" validate:"required"`
	Type     string `yaml:"type" json:"type" validate:"required"`
	Doc      string `yaml:"doc,omitempty" json:"doc,omitempty"`
	Required bool   `yaml:"required,omitempty" json:"required,omitempty"`
	Constant bool   `yaml:"constant,omitempty" json:"constant,omitempty"`
}

type ControllerSpec struct {
	Name        string          `yaml:"name" json:"name" validate:"required"`
	URI         string          `yaml:"uri" json:"uri" validate:"required"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	Type        string          `yaml:"type,omitempty" json:"type,omitempty"`
	Operations  []OperationSpec `yaml:"operations" json:"operations" validate:"required,min=1,dive"`
}

type OperationSpec struct {
	Name        string            `yaml:"name" json:"name" validate:"required"`
	URI         string            `yaml:"uri" json:"uri" validate:"required"`
	Method      string            `yaml:"method" json:"method" validate:"required,httpmethod"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Bindings    map[string]string `yaml:"bindings,omitempty" json:"bindings,omitempty"`
	Params      []ParamSpec       `yaml:"params,omitempty" json:"params,omitempty" validate:"dive"`
	Returns     *ReturnSpec       `yaml:"returns,omitempty" json:"returns,omitempty"`
	Statuses    []StatusSpec      `yaml:"statuses,omitempty" json:"statuses,omitempty" validate:"dive"`
	Examples    ExampleSpec       `yaml:"examples,omitempty" json:"examples,omitempty"`
}

type ParamSpec struct {
	Name        string   `yaml:"name" json:"name" validate:"required"`
	Type        string   `yaml:"type" json:"type" validate:"required"`
	Annotations []string `yaml:"annotations,omitempty" json:"annotations,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Required    *bool    `yaml:"required,omitempty" json:"required,omitempty"`
	Default     string   `yaml:"default,omitempty" json:"default,omitempty"`
}

type ReturnSpec struct {
	Type        string `yaml:"type" json:"type" validate:"required"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

type StatusSpec struct {
	Code        int    `yaml:"code" json:"code" validate:"required,min=100,max=599"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// ExampleSpec holds user-written JSON examples that replace synthesized ones.
type ExampleSpec struct {
	Request  string `yaml:"request,omitempty" json:"request,omitempty"`
	Response string `yaml:"response,omitempty" json:"response,omitempty"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a manifest. JSON input is accepted as YAML.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

var httpMethods = map[string]struct{}{
	"GET": {}, "POST": {}, "PUT": {}, "PATCH": {}, "DELETE": {}, "HEAD": {}, "OPTIONS": {},
}

func newValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	err := v.RegisterValidation("httpmethod", func(fl validator.FieldLevel) bool {
		_, ok := httpMethods[strings.ToUpper(strings.TrimSpace(fl.Field().String()))]
		return ok
	})
	if err != nil {
		return nil, fmt.Errorf("register httpmethod validation: %w", err)
	}
	return v, nil
}

// Validate checks the structural rules: controllers need a URI and at least
// one operation, operations need a URI and an HTTP method, every class and
// field is named and typed.
func (m *Manifest) Validate() error {
	v, err := newValidator()
	if err != nil {
		return err
	}
	err = v.Struct(m)
	if err == nil {
		return m.checkDuplicates()
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func (m *Manifest) checkDuplicates() error {
	seen := make(map[string]struct{}, len(m.Classes))
	for _, c := range m.Classes {
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: duplicate class %s", ErrInvalid, c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return ns + " is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s needs at least %s entries", ns, fe.Param())
		}
		return fmt.Sprintf("%s must be >= %s", ns, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be <= %s", ns, fe.Param())
	case "httpmethod":
		return fmt.Sprintf("%s: unknown HTTP method %q", ns, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", ns, fe.Tag())
	}
}
