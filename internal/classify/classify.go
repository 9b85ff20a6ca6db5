// Package classify decides the structural kind of a resolved type.
package classify

import (
	"github.com/yourorg/restdoc/internal/registry"
	"github.com/yourorg/restdoc/internal/typeexpr"
	"github.com/yourorg/restdoc/pkg/types"
)

// DefaultMapTypes are the qualified names treated as key/value containers.
var DefaultMapTypes = []string{
	"map",
	"java.util.Map",
	"java.util.HashMap",
	"java.util.LinkedHashMap",
	"java.util.TreeMap",
	"java.util.SortedMap",
	"java.util.concurrent.ConcurrentHashMap",
}

// DefaultCollectionTypes are the qualified names treated as element containers.
var DefaultCollectionTypes = []string{
	"slice",
	"java.util.List",
	"java.util.ArrayList",
	"java.util.LinkedList",
	"java.util.Set",
	"java.util.HashSet",
	"java.util.LinkedHashSet",
	"java.util.TreeSet",
	"java.util.SortedSet",
	"java.util.Collection",
	"java.lang.Iterable",
}

// Oracle classifies types against a registry.
type Oracle struct {
	reg         *registry.Registry
	maps        map[string]struct{}
	collections map[string]struct{}
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithMapTypes replaces the map container names. Empty keeps the defaults.
func WithMapTypes(names []string) Option {
	return func(o *Oracle) {
		if len(names) > 0 {
			o.maps = toSet(names)
		}
	}
}

// WithCollectionTypes replaces the collection container names. Empty keeps the defaults.
func WithCollectionTypes(names []string) Option {
	return func(o *Oracle) {
		if len(names) > 0 {
			o.collections = toSet(names)
		}
	}
}

// New returns an Oracle over reg.
func New(reg *registry.Registry, opts ...Option) *Oracle {
	o := &Oracle{
		reg:         reg,
		maps:        toSet(DefaultMapTypes),
		collections: toSet(DefaultCollectionTypes),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Registry returns the underlying registry.
func (o *Oracle) Registry() *registry.Registry {
	return o.reg
}

// Classify returns the kind of ref and, for enumerations and objects, the
// class metadata it was classified from.
func (o *Oracle) Classify(ref types.TypeRef) (types.Kind, *types.ClassMetadata, error) {
	if ref.IsArray() {
		return types.KindCollection, nil, nil
	}
	if ref.Primitive || (len(ref.Args) == 0 && typeexpr.IsPrimitive(ref.Name)) {
		return types.KindPrimitive, nil, nil
	}
	if o.reg.IsExcluded(ref.Name) {
		return types.KindOpaque, nil, nil
	}
	if _, ok := o.maps[ref.Name]; ok {
		if len(ref.Args) == 2 {
			return types.KindMap, nil, nil
		}
		return types.KindOpaque, nil, nil
	}
	if _, ok := o.collections[ref.Name]; ok {
		if len(ref.Args) == 1 {
			return types.KindCollection, nil, nil
		}
		return types.KindOpaque, nil, nil
	}
	cm, ok, err := o.reg.Lookup(ref.Name)
	if err != nil {
		return types.KindOpaque, nil, err
	}
	if !ok {
		return types.KindOpaque, nil, nil
	}
	if cm.Enum {
		return types.KindEnumeration, cm, nil
	}
	return types.KindObject, cm, nil
}

// Element returns the element type of a collection: the array component for
// arrays, otherwise the single type argument.
func Element(ref types.TypeRef) types.TypeRef {
	if ref.IsArray() {
		return ref.Component()
	}
	if len(ref.Args) > 0 {
		return ref.Args[len(ref.Args)-1]
	}
	return types.TypeRef{Name: "Object"}
}

// MapKey returns the key argument of a map type.
func MapKey(ref types.TypeRef) types.TypeRef {
	if len(ref.Args) == 2 {
		return ref.Args[0]
	}
	return types.TypeRef{Name: "Object"}
}

// MapValue returns the value argument of a map type.
func MapValue(ref types.TypeRef) types.TypeRef {
	if len(ref.Args) == 2 {
		return ref.Args[1]
	}
	return types.TypeRef{Name: "Object"}
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}
