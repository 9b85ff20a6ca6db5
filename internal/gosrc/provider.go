// Package gosrc serves class metadata read from Go source packages.
//
// Structs become classes keyed by "importpath.Name". The first embedded
// struct is the superclass, type parameters are the generic parameters, and
// a "required" option in a validate or binding tag marks a field required.
// Named basic types with declared constants become enumerations.
package gosrc

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/constant"
	"go/token"
	gotypes "go/types"
	"log/slog"
	"reflect"
	"slices"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/tools/go/packages"

	"github.com/yourorg/restdoc/internal/registry"
	"github.com/yourorg/restdoc/internal/typeexpr"
	"github.com/yourorg/restdoc/pkg/types"
)

// DefaultCacheSize bounds the converted-class memo.
const DefaultCacheSize = 512

// ErrLoad is returned when the requested packages fail to load or type-check.
var ErrLoad = errors.New("load go packages")

const loadMode = packages.NeedName | packages.NeedTypes | packages.NeedSyntax |
	packages.NeedTypesInfo | packages.NeedImports

// Options configure Load.
type Options struct {
	Dir       string
	Patterns  []string
	Tests     bool
	CacheSize int
	Logger    *slog.Logger
}

// Provider implements registry.Provider over type-checked Go packages.
type Provider struct {
	objects   map[string]*gotypes.TypeName
	docs      map[string]string
	fieldDocs map[string]map[string]string
	enums     map[string][]string
	cache     *lru.Cache[string, *types.ClassMetadata]
	logger    *slog.Logger
}

var _ registry.Provider = (*Provider)(nil)

// Load type-checks the packages matched by opts.Patterns and indexes their
// declared types.
func Load(ctx context.Context, opts Options) (*Provider, error) {
	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	cfg := &packages.Config{
		Context: ctx,
		Mode:    loadMode,
		Dir:     opts.Dir,
		Tests:   opts.Tests,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoad, err)
	}
	var msgs []string
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, e := range p.Errors {
			msgs = append(msgs, e.Error())
		}
	})
	if len(msgs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrLoad, strings.Join(msgs, "; "))
	}
	return FromPackages(pkgs, opts.CacheSize, opts.Logger)
}

// FromPackages indexes already loaded packages. Packages must carry types
// and syntax.
func FromPackages(pkgs []*packages.Package, cacheSize int, logger *slog.Logger) (*Provider, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *types.ClassMetadata](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("class cache: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Provider{
		objects:   make(map[string]*gotypes.TypeName),
		docs:      make(map[string]string),
		fieldDocs: make(map[string]map[string]string),
		enums:     make(map[string][]string),
		cache:     cache,
		logger:    logger,
	}
	for _, pkg := range pkgs {
		if pkg.Types == nil {
			continue
		}
		p.index(pkg)
	}
	logger.Debug("go packages indexed", "packages", len(pkgs), "types", len(p.objects))
	return p, nil
}

// Names returns the qualified names of every struct and enumeration found,
// sorted.
func (p *Provider) Names() []string {
	out := make([]string, 0, len(p.objects))
	for name, obj := range p.objects {
		if p.servable(name, obj) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Lookup implements registry.Provider.
func (p *Provider) Lookup(name string) (*types.ClassMetadata, error) {
	if cm, ok := p.cache.Get(name); ok {
		return cm, nil
	}
	obj, ok := p.objects[name]
	if !ok || !p.servable(name, obj) {
		return nil, fmt.Errorf("%s: %w", name, registry.ErrNotFound)
	}
	cm := p.convert(name, obj)
	p.cache.Add(name, cm)
	return cm, nil
}

func (p *Provider) servable(name string, obj *gotypes.TypeName) bool {
	if len(p.enums[name]) > 0 {
		return true
	}
	_, ok := gotypes.Unalias(obj.Type()).Underlying().(*gotypes.Struct)
	return ok
}

func (p *Provider) index(pkg *packages.Package) {
	scope := pkg.Types.Scope()
	type enumConst struct {
		pos   token.Pos
		value string
	}
	consts := make(map[string][]enumConst)
	for _, n := range scope.Names() {
		switch obj := scope.Lookup(n).(type) {
		case *gotypes.TypeName:
			if obj.Exported() {
				p.objects[qualified(obj)] = obj
			}
		case *gotypes.Const:
			named, ok := gotypes.Unalias(obj.Type()).(*gotypes.Named)
			if !ok || named.Obj().Pkg() != pkg.Types || !obj.Exported() {
				continue
			}
			key := qualified(named.Obj())
			consts[key] = append(consts[key], enumConst{pos: obj.Pos(), value: constName(obj)})
		}
	}
	for key, list := range consts {
		sort.Slice(list, func(i, j int) bool { return list[i].pos < list[j].pos })
		values := make([]string, len(list))
		for i, c := range list {
			values[i] = c.value
		}
		p.enums[key] = values
	}

	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			gd, ok := decl.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, spec := range gd.Specs {
				ts := spec.(*ast.TypeSpec)
				key := pkg.PkgPath + "." + ts.Name.Name
				doc := ts.Doc
				if doc == nil && len(gd.Specs) == 1 {
					doc = gd.Doc
				}
				if text := commentText(doc); text != "" {
					p.docs[key] = text
				}
				if st, ok := ts.Type.(*ast.StructType); ok {
					p.indexFieldDocs(key, st)
				}
			}
		}
	}
}

func (p *Provider) indexFieldDocs(key string, st *ast.StructType) {
	docs := make(map[string]string)
	for _, f := range st.Fields.List {
		text := commentText(f.Doc)
		if text == "" {
			text = commentText(f.Comment)
		}
		if text == "" {
			continue
		}
		for _, n := range f.Names {
			docs[n.Name] = text
		}
		if len(f.Names) == 0 {
			docs[embeddedName(f.Type)] = text
		}
	}
	if len(docs) > 0 {
		p.fieldDocs[key] = docs
	}
}

func (p *Provider) convert(name string, obj *gotypes.TypeName) *types.ClassMetadata {
	cm := &types.ClassMetadata{Name: name, Doc: p.docs[name]}
	if values := p.enums[name]; len(values) > 0 {
		cm.Enum = true
		cm.EnumValues = values
		return cm
	}
	t := gotypes.Unalias(obj.Type())
	if named, ok := t.(*gotypes.Named); ok {
		if tps := named.TypeParams(); tps != nil {
			for i := 0; i < tps.Len(); i++ {
				cm.TypeParams = append(cm.TypeParams, tps.At(i).Obj().Name())
			}
		}
	}
	st := t.Underlying().(*gotypes.Struct)
	docs := p.fieldDocs[name]
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		tag := reflect.StructTag(st.Tag(i))
		jsonName, skip := jsonFieldName(tag)
		if skip || !f.Exported() {
			continue
		}
		if f.Embedded() && jsonName == "" {
			if _, isStruct := f.Type().Underlying().(*gotypes.Struct); isStruct && cm.Super == nil {
				super := p.refOf(f.Type())
				cm.Super = &super
				continue
			}
			p.logger.Debug("embedded field kept as member", "class", name, "field", f.Name())
		}
		if jsonName == "" {
			jsonName = f.Name()
		}
		cm.Fields = append(cm.Fields, types.FieldMetadata{
			Name:     jsonName,
			Type:     p.refOf(f.Type()),
			Doc:      docs[f.Name()],
			Required: hasOption(tag.Get("validate"), "required") || hasOption(tag.Get("binding"), "required"),
		})
	}
	return cm
}

// refOf maps a Go type to a type reference. Pointers are unwrapped, slices
// and arrays add a dimension, and named non-struct types other than
// enumerations collapse to their underlying type.
func (p *Provider) refOf(t gotypes.Type) types.TypeRef {
	return p.ref(t, nil)
}

// ref is refOf with the named types being collapsed on the current path. A
// named type met again while collapsing (type Tree []Tree) stays a plain
// reference, which the registry treats as opaque.
func (p *Provider) ref(t gotypes.Type, collapsing []*gotypes.TypeName) types.TypeRef {
	switch t := gotypes.Unalias(t).(type) {
	case *gotypes.Pointer:
		return p.ref(t.Elem(), collapsing)
	case *gotypes.Slice:
		if isByte(t.Elem()) {
			return basicRef("string")
		}
		return p.ref(t.Elem(), collapsing).WithDims(1)
	case *gotypes.Array:
		return p.ref(t.Elem(), collapsing).WithDims(1)
	case *gotypes.Map:
		return types.Ref("map", p.ref(t.Key(), collapsing), p.ref(t.Elem(), collapsing))
	case *gotypes.Basic:
		return basicRef(t.Name())
	case *gotypes.TypeParam:
		return types.TypeRef{Name: t.Obj().Name()}
	case *gotypes.Interface:
		if t.Empty() {
			return types.TypeRef{Name: "any"}
		}
		return types.TypeRef{Name: "interface"}
	case *gotypes.Named:
		obj := t.Obj()
		if obj.Pkg() == nil {
			return types.TypeRef{Name: obj.Name()}
		}
		name := qualified(obj)
		if slices.Contains(collapsing, obj) {
			p.logger.Debug("recursive named type kept opaque", "type", name)
			return types.TypeRef{Name: name}
		}
		if len(p.enums[name]) == 0 {
			switch t.Underlying().(type) {
			case *gotypes.Basic, *gotypes.Slice, *gotypes.Array, *gotypes.Map, *gotypes.Pointer:
				return p.ref(t.Underlying(), append(collapsing, obj))
			}
		}
		ref := types.TypeRef{Name: name}
		if args := t.TypeArgs(); args != nil {
			for i := 0; i < args.Len(); i++ {
				ref.Args = append(ref.Args, p.ref(args.At(i), collapsing))
			}
		}
		return ref
	case *gotypes.Struct:
		return types.TypeRef{Name: "struct"}
	default:
		return types.TypeRef{Name: t.String()}
	}
}

func basicRef(name string) types.TypeRef {
	switch name {
	case "byte":
		name = "uint8"
	case "rune":
		name = "int32"
	}
	return types.TypeRef{Name: name, Primitive: typeexpr.IsPrimitive(name)}
}

func isByte(t gotypes.Type) bool {
	b, ok := gotypes.Unalias(t).(*gotypes.Basic)
	return ok && b.Kind() == gotypes.Byte
}

func qualified(obj *gotypes.TypeName) string {
	if obj.Pkg() == nil {
		return obj.Name()
	}
	return obj.Pkg().Path() + "." + obj.Name()
}

// constName is the JSON-visible value of an enumeration constant: the string
// itself for string kinds, the identifier otherwise.
func constName(c *gotypes.Const) string {
	if c.Val().Kind() == constant.String {
		return constant.StringVal(c.Val())
	}
	return c.Name()
}

func jsonFieldName(tag reflect.StructTag) (name string, skip bool) {
	v, ok := tag.Lookup("json")
	if !ok {
		return "", false
	}
	if v == "-" {
		return "", true
	}
	name, _, _ = strings.Cut(v, ",")
	return name, false
}

func hasOption(tag, option string) bool {
	for _, part := range strings.Split(tag, ",") {
		if strings.TrimSpace(part) == option {
			return true
		}
	}
	return false
}

func commentText(cg *ast.CommentGroup) string {
	if cg == nil {
		return ""
	}
	return strings.TrimSpace(cg.Text())
}

func embeddedName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.StarExpr:
		return embeddedName(e.X)
	case *ast.SelectorExpr:
		return e.Sel.Name
	case *ast.IndexExpr:
		return embeddedName(e.X)
	case *ast.IndexListExpr:
		return embeddedName(e.X)
	}
	return ""
}
