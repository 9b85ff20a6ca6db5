package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/yourorg/restdoc/internal/classify"
	"github.com/yourorg/restdoc/internal/example"
	"github.com/yourorg/restdoc/pkg/types"
)

const jsonContentType = "application/json"

// BuildOpenAPI converts doc into an OpenAPI 3 document.
func BuildOpenAPI(doc *types.Documentation) *openapi3.T {
	title, version := doc.Title, doc.Version
	if title == "" {
		title = "API"
	}
	if version == "" {
		version = "1.0.0"
	}
	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info:    &openapi3.Info{Title: title, Version: version},
		Paths:   openapi3.NewPaths(),
	}
	ids := make(map[string]int)
	enums := make(map[string][]string, len(doc.Enums))
	for _, e := range doc.Enums {
		enums[e.Name] = e.Values
	}
	for _, c := range doc.Controllers {
		tag := types.SimpleName(c.Name)
		spec.Tags = append(spec.Tags, &openapi3.Tag{Name: tag, Description: c.Description})
		for _, m := range c.Methods {
			item := spec.Paths.Value(m.URI)
			if item == nil {
				item = &openapi3.PathItem{}
				spec.Paths.Set(m.URI, item)
			}
			for _, hm := range m.HTTPMethods {
				op := buildOperation(tag, hm, enums)
				op.OperationID = uniqueID(ids, hm.Name)
				item.SetOperation(hm.Method, op)
			}
		}
	}
	return spec
}

// uniqueID suffixes repeated operation names so every operationId is distinct.
func uniqueID(seen map[string]int, name string) string {
	seen[name]++
	if n := seen[name]; n > 1 {
		return name + "_" + strconv.Itoa(n)
	}
	return name
}

func buildOperation(tag string, hm types.HTTPMethod, enums map[string][]string) *openapi3.Operation {
	op := &openapi3.Operation{
		Tags:        []string{tag},
		Summary:     hm.Name,
		Description: hm.Description,
	}
	for _, p := range hm.Params {
		param := &openapi3.Parameter{
			Name:        p.Name,
			In:          p.Location,
			Description: p.Description,
			Required:    p.Required,
			Schema:      openapi3.NewSchemaRef("", nodeSchema(types.BuildTree(p.Fields), enums)),
		}
		if p.Default != "" {
			param.Schema.Value.Default = p.Default
		}
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: param})
	}
	if hm.RequestBody != nil {
		media := &openapi3.MediaType{Schema: openapi3.NewSchemaRef("", nodeSchema(types.BuildTree(hm.RequestBody.Fields), enums))}
		media.Example = exampleValue(hm.Example.Request, hm.Example.Format)
		op.RequestBody = &openapi3.RequestBodyRef{Value: &openapi3.RequestBody{
			Description: hm.RequestBody.Description,
			Required:    true,
			Content:     openapi3.Content{jsonContentType: media},
		}}
	}

	op.Responses = openapi3.NewResponses()
	op.Responses.Delete("default")
	var content openapi3.Content
	if hm.Return != nil {
		media := &openapi3.MediaType{Schema: openapi3.NewSchemaRef("", nodeSchema(types.BuildTree(hm.Return.Fields), enums))}
		media.Example = exampleValue(hm.Example.Response, hm.Example.Format)
		content = openapi3.Content{jsonContentType: media}
	}
	statuses := hm.ResponseStatuses
	if len(statuses) == 0 {
		statuses = []types.ResponseStatus{{Code: 200, Description: "OK"}}
	}
	attached := false
	for _, s := range statuses {
		desc := s.Description
		if desc == "" {
			desc = strconv.Itoa(s.Code)
		}
		resp := &openapi3.Response{Description: &desc}
		if !attached && s.Code >= 200 && s.Code < 300 && content != nil {
			resp.Content = content
			attached = true
		}
		op.Responses.Set(strconv.Itoa(s.Code), &openapi3.ResponseRef{Value: resp})
	}
	return op
}

// nodeSchema maps a parameter tree to a schema. Nested containers collapse
// onto the same children in the tree, so their shape is recovered from the
// declared type arguments.
func nodeSchema(n *types.ParameterNode, enums map[string][]string) *openapi3.Schema {
	if n == nil {
		return openapi3.NewStringSchema()
	}
	s := refSchema(n.Type, n.Kind, n.Children, enums)
	s.Description = n.Description
	return s
}

func refSchema(ref types.TypeRef, kind types.Kind, children []*types.ParameterNode, enums map[string][]string) *openapi3.Schema {
	switch kind {
	case types.KindCollection:
		elem := classify.Element(ref)
		return openapi3.NewArraySchema().WithItems(refSchema(elem, guessKind(elem, children, enums), children, enums))
	case types.KindMap:
		val := classify.MapValue(ref)
		return openapi3.NewObjectSchema().WithAdditionalProperties(refSchema(val, guessKind(val, children, enums), children, enums))
	case types.KindObject:
		s := openapi3.NewObjectSchema()
		for _, c := range children {
			name := c.LeafName()
			s.WithPropertyRef(name, openapi3.NewSchemaRef("", nodeSchema(c, enums)))
			if c.Required {
				s.Required = append(s.Required, name)
			}
		}
		return s
	case types.KindEnumeration:
		s := openapi3.NewStringSchema()
		for _, v := range enums[ref.Name] {
			s.Enum = append(s.Enum, v)
		}
		return s
	default:
		return primitiveSchema(ref)
	}
}

func guessKind(ref types.TypeRef, children []*types.ParameterNode, enums map[string][]string) types.Kind {
	if ref.IsArray() {
		return types.KindCollection
	}
	for _, name := range classify.DefaultCollectionTypes {
		if ref.Name == name && len(ref.Args) == 1 {
			return types.KindCollection
		}
	}
	for _, name := range classify.DefaultMapTypes {
		if ref.Name == name && len(ref.Args) == 2 {
			return types.KindMap
		}
	}
	if len(children) > 0 {
		return types.KindObject
	}
	if _, ok := enums[ref.Name]; ok {
		return types.KindEnumeration
	}
	return types.KindPrimitive
}

func primitiveSchema(ref types.TypeRef) *openapi3.Schema {
	switch strings.ToLower(ref.SimpleName()) {
	case "int", "integer", "short", "byte", "int8", "int16", "int32", "uint8", "uint16", "uint32":
		return openapi3.NewInt32Schema()
	case "long", "int64", "uint", "uint64", "biginteger", "atomiclong":
		return openapi3.NewInt64Schema()
	case "float", "double", "float32", "float64", "bigdecimal", "number":
		return openapi3.NewFloat64Schema()
	case "boolean", "bool":
		return openapi3.NewBoolSchema()
	case "date", "localdate":
		return openapi3.NewStringSchema().WithFormat("date")
	case "time", "instant", "localdatetime", "offsetdatetime", "zoneddatetime", "timestamp":
		return openapi3.NewDateTimeSchema()
	case "uuid":
		return openapi3.NewUUIDSchema()
	case "object", "any", "interface":
		return openapi3.NewSchema()
	default:
		return openapi3.NewStringSchema()
	}
}

// exampleValue decodes a serialized example so it embeds as structured data.
func exampleValue(text, format string) any {
	if text == "" {
		return nil
	}
	if format == string(example.FormatYAML) {
		var v any
		if err := yaml.Unmarshal([]byte(text), &v); err == nil {
			return v
		}
		return text
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v
	}
	return text
}

// ValidateOpenAPI checks spec structurally. Examples are placeholders and
// defaults are declared as text, so neither is checked against its schema.
func ValidateOpenAPI(ctx context.Context, spec *openapi3.T) error {
	return spec.Validate(ctx, openapi3.DisableExamplesValidation(), openapi3.DisableSchemaDefaultsValidation())
}

// RenderOpenAPI writes outputDir/openapi.yaml after validating the document.
func RenderOpenAPI(doc *types.Documentation, outputDir string) ([]string, error) {
	if doc == nil {
		return nil, fmt.Errorf("doc is nil")
	}
	spec := BuildOpenAPI(doc)
	if err := ValidateOpenAPI(context.Background(), spec); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	data, err := MarshalOpenAPIYAML(spec)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(outputDir, "openapi.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

// blockStyle drops the quoting and flow styles carried over from JSON.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// MarshalOpenAPIYAML encodes spec as YAML by way of its JSON form, which
// carries the document's own field names.
func MarshalOpenAPIYAML(spec *openapi3.T) ([]byte, error) {
	raw, err := spec.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, err
	}
	blockStyle(&node)
	buf := &strings.Builder{}
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}
