package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/yourorg/restdoc/internal/classify"
	"github.com/yourorg/restdoc/internal/example"
	"github.com/yourorg/restdoc/internal/filter"
	"github.com/yourorg/restdoc/internal/manifest"
	"github.com/yourorg/restdoc/internal/registry"
	"github.com/yourorg/restdoc/internal/typeenv"
	"github.com/yourorg/restdoc/internal/walker"
	"github.com/yourorg/restdoc/pkg/types"
)

var (
	// ErrInvalidManifest marks documentation-authoring mistakes: a controller
	// without URI or operations, an operation without URI or HTTP method.
	ErrInvalidManifest = manifest.ErrInvalid
	// ErrEmptyRequestBody is returned when a request body type expands to an
	// object without fields.
	ErrEmptyRequestBody = errors.New("request body has no fields")
)

// Parameter locations.
const (
	LocationBody   = "body"
	LocationPath   = "path"
	LocationQuery  = "query"
	LocationHeader = "header"
)

// Options configure an Assembler. Oracle is required; the body filter
// defaults to the annotation filter and examples to the structural generator.
type Options struct {
	Oracle     *classify.Oracle
	BodyFilter filter.RequestBodyFilter
	Examples   example.Generator
	Format     example.Format
	Logger     *slog.Logger
}

// Assembler turns parsed controllers into Documentation.
type Assembler struct {
	oracle   *classify.Oracle
	reg      *registry.Registry
	walker   *walker.Walker
	body     filter.RequestBodyFilter
	examples example.Generator
	format   example.Format
	logger   *slog.Logger
}

func NewAssembler(opts Options) (*Assembler, error) {
	if opts.Oracle == nil {
		return nil, errors.New("assembler needs a classifier")
	}
	a := &Assembler{
		oracle:   opts.Oracle,
		reg:      opts.Oracle.Registry(),
		walker:   walker.New(opts.Oracle),
		body:     opts.BodyFilter,
		examples: opts.Examples,
		format:   opts.Format,
		logger:   opts.Logger,
	}
	if a.logger == nil {
		a.logger = a.reg.Logger()
	}
	if a.format == "" {
		a.format = example.FormatJSON
	}
	if a.body == nil {
		a.body, _ = filter.NewRequestBodyFilter(filter.BodyFilterAnnotation, nil)
	}
	if a.examples == nil {
		gen, err := example.NewGenerator(example.GeneratorStructural, example.Deps{
			Synth:  example.NewSynthesizer(opts.Oracle, example.WithLogger(a.logger)),
			Format: a.format,
			Logger: a.logger,
		})
		if err != nil {
			return nil, err
		}
		a.examples = gen
	}
	return a, nil
}

// Assemble documents every operation of ctrls. Methods are grouped by URI
// and sorted; HTTP methods sharing a URI keep declaration order.
func (a *Assembler) Assemble(ctx context.Context, title, version string, ctrls []manifest.Controller) (*types.Documentation, error) {
	doc := &types.Documentation{Title: title, Version: version}
	enums := walker.NewEnumSet()
	for _, c := range ctrls {
		ctrl, names, err := a.controller(ctx, c)
		if err != nil {
			return nil, err
		}
		enums.AddAll(names)
		doc.Controllers = append(doc.Controllers, ctrl)
	}
	for _, name := range enums.List() {
		doc.Enums = append(doc.Enums, a.enumDoc(name))
	}
	return doc, nil
}

func (a *Assembler) controller(ctx context.Context, c manifest.Controller) (types.Controller, []string, error) {
	out := types.Controller{Name: c.Name, URI: c.URI, Description: c.Description}
	if strings.TrimSpace(c.URI) == "" {
		return out, nil, fmt.Errorf("%w: controller %s has no uri", ErrInvalidManifest, c.Name)
	}
	if len(c.Operations) == 0 {
		return out, nil, fmt.Errorf("%w: controller %s has no operations", ErrInvalidManifest, c.Name)
	}
	classEnv := typeenv.New()
	if c.Type != nil {
		env, err := a.reg.Bindings(*c.Type, nil)
		if err != nil {
			return out, nil, fmt.Errorf("controller %s bindings: %w", c.Name, err)
		}
		classEnv = env
	}

	enums := walker.NewEnumSet()
	byURI := make(map[string][]types.HTTPMethod)
	for _, op := range c.Operations {
		m, err := a.operation(ctx, c, op, classEnv)
		if err != nil {
			return out, nil, fmt.Errorf("controller %s: %w", c.Name, err)
		}
		enums.AddAll(m.Enums)
		uri := JoinURI(c.URI, op.URI)
		byURI[uri] = append(byURI[uri], m)
	}
	uris := make([]string, 0, len(byURI))
	for uri := range byURI {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	for _, uri := range uris {
		out.Methods = append(out.Methods, types.Method{URI: uri, HTTPMethods: byURI[uri]})
	}
	return out, enums.List(), nil
}

func (a *Assembler) operation(ctx context.Context, c manifest.Controller, op manifest.Operation, classEnv *typeenv.Env) (types.HTTPMethod, error) {
	m := types.HTTPMethod{
		Name:             op.Name,
		Method:           op.Method,
		Description:      op.Description,
		ResponseStatuses: op.Statuses,
		Example:          types.Example{Format: string(a.format)},
	}
	if strings.TrimSpace(op.URI) == "" {
		return m, fmt.Errorf("%w: operation %s has no uri", ErrInvalidManifest, op.Name)
	}
	if strings.TrimSpace(op.Method) == "" {
		return m, fmt.Errorf("%w: operation %s has no http method", ErrInvalidManifest, op.Name)
	}
	env := bindOperation(classEnv, op.Bindings)
	enums := walker.NewEnumSet()

	candidates := make([]filter.Candidate, len(op.Params))
	for i, p := range op.Params {
		candidates[i] = filter.Candidate{Name: p.Name, Type: env.Resolve(p.Type), Annotations: p.Annotations}
	}
	bodyIdx, err := a.body.Select(candidates)
	if err != nil {
		return m, fmt.Errorf("operation %s: select request body: %w", op.Name, err)
	}

	var bodyRes *walker.Result
	for i, p := range op.Params {
		param, res := a.parameter(p, candidates[i], i == bodyIdx, env)
		enums.AddAll(res.Enums)
		degrade(&m, res.Problems...)
		if i == bodyIdx {
			m.RequestBody = &param
			bodyRes = res
			continue
		}
		m.Params = append(m.Params, param)
	}
	if bodyRes != nil && bodyRes.Root.Kind == types.KindObject && len(bodyRes.Root.Children) == 0 {
		return m, fmt.Errorf("operation %s parameter %s: %w", op.Name, m.RequestBody.Name, ErrEmptyRequestBody)
	}

	if op.Return != nil && !isVoid(op.Return.Type) {
		res := a.walker.WalkParam(op.Return.Type, env, false, op.Return.Description)
		enums.AddAll(res.Enums)
		degrade(&m, res.Problems...)
		m.Return = &types.ReturnDetails{Type: env.Substitute(op.Return.Type), Description: op.Return.Description, Fields: res.Root.Detached()}
	}
	m.Enums = enums.List()

	if m.RequestBody != nil {
		text, err := a.example(ctx, &m, op.Name, "request", op.Examples.Request, m.RequestBody.Type, env, m.RequestBody.Fields)
		if err != nil {
			return m, err
		}
		m.Example.Request = text
	}
	if m.Return != nil {
		text, err := a.example(ctx, &m, op.Name, "response", op.Examples.Response, m.Return.Type, env, m.Return.Fields)
		if err != nil {
			return m, err
		}
		m.Example.Response = text
	}
	if m.Degraded {
		a.logger.Warn("operation documented as degraded", "controller", c.Name, "operation", op.Name, "problems", len(m.Problems))
	}
	return m, nil
}

func (a *Assembler) parameter(p manifest.Param, cand filter.Candidate, body bool, env *typeenv.Env) (types.Parameter, *walker.Result) {
	location, required := paramLocation(p, cand, body)
	res := a.walker.WalkParam(p.Type, env, required, p.Description)
	return types.Parameter{
		Name:        p.Name,
		Type:        env.Substitute(p.Type),
		Location:    location,
		Required:    required,
		Default:     p.Default,
		Description: p.Description,
		Fields:      res.Root.Detached(),
	}, res
}

// example returns the user-supplied example normalized to the output format,
// or a generated one. Problems are recorded on m.
func (a *Assembler) example(ctx context.Context, m *types.HTTPMethod, opName, role, userText string, ref types.TypeRef, env *typeenv.Env, fields []*types.ParameterNode) (string, error) {
	if strings.TrimSpace(userText) != "" {
		v, err := example.ParseJSON(userText)
		if err == nil {
			var text string
			if text, err = example.Marshal(v, a.format); err == nil {
				return text, nil
			}
		}
		degrade(m, fmt.Sprintf("%s example: %v", role, err))
		return userText, nil
	}
	gen, err := a.examples.Generate(ctx, example.Request{Operation: opName, Role: role, Type: ref, Env: env, Fields: fields})
	if err != nil {
		return "", fmt.Errorf("operation %s %s example: %w", opName, role, err)
	}
	if gen.Degraded {
		degrade(m, gen.Problems...)
	}
	return gen.Text, nil
}

// degrade flags m and records each problem once. Walking and synthesis
// report the same unavailable type with the same text.
func degrade(m *types.HTTPMethod, problems ...string) {
	for _, p := range problems {
		m.Degraded = true
		if !slices.Contains(m.Problems, p) {
			m.Problems = append(m.Problems, p)
		}
	}
}

func (a *Assembler) enumDoc(name string) types.EnumDoc {
	out := types.EnumDoc{Name: name}
	cm, ok, err := a.reg.Lookup(name)
	if err != nil || !ok {
		return out
	}
	out.Doc = cm.Doc
	out.Values = cm.EnumValues
	return out
}

// bindOperation layers operation-level bindings over the class-level
// environment, in name order.
func bindOperation(classEnv *typeenv.Env, bindings map[string]types.TypeRef) *typeenv.Env {
	if len(bindings) == 0 {
		return classEnv
	}
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	env := classEnv
	for _, name := range names {
		env = env.Bind(name, classEnv.Substitute(bindings[name]))
	}
	return env
}

// paramLocation maps annotations to a location. Path variables and bodies
// are always required; request params and headers default to required.
func paramLocation(p manifest.Param, cand filter.Candidate, body bool) (string, bool) {
	explicit := func(def bool) bool {
		if p.Required != nil {
			return *p.Required
		}
		return def
	}
	switch {
	case body:
		return LocationBody, true
	case cand.HasAnnotation(filter.AnnotationPathVariable):
		return LocationPath, true
	case cand.HasAnnotation(filter.AnnotationRequestHeader):
		return LocationHeader, explicit(true)
	case cand.HasAnnotation(filter.AnnotationRequestParam):
		return LocationQuery, explicit(true)
	default:
		return LocationQuery, explicit(false)
	}
}

func isVoid(ref types.TypeRef) bool {
	return ref.Dims == 0 && (ref.Name == "void" || ref.Name == "java.lang.Void")
}

// JoinURI prefixes uri with the controller base unless it already starts
// with it.
func JoinURI(base, uri string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	uri = strings.TrimSpace(uri)
	if base == "" || uri == base || strings.HasPrefix(uri, base+"/") {
		return uri
	}
	return base + "/" + strings.TrimLeft(uri, "/")
}
