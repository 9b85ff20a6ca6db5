// Package registry looks up declared classes by qualified name and walks
// their inheritance chains.
package registry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/restdoc/internal/typeenv"
	"github.com/yourorg/restdoc/pkg/types"
)

// ErrNotFound is returned by providers for types they do not declare.
var ErrNotFound = errors.New("type not found")

// Provider supplies class metadata. Lookup returns ErrNotFound (possibly
// wrapped) for unknown types; any other error is a provider failure.
type Provider interface {
	Lookup(name string) (*types.ClassMetadata, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(name string) (*types.ClassMetadata, error)

func (f ProviderFunc) Lookup(name string) (*types.ClassMetadata, error) { return f(name) }

// Chain queries providers in order and returns the first hit.
func Chain(providers ...Provider) Provider {
	return ProviderFunc(func(name string) (*types.ClassMetadata, error) {
		for _, p := range providers {
			if p == nil {
				continue
			}
			cm, err := p.Lookup(name)
			if err == nil {
				return cm, nil
			}
			if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
		}
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	})
}

// Registry is a read-only view over a provider plus the exclusion list.
type Registry struct {
	provider Provider
	excluded Matcher
	logger   *slog.Logger
}

// Matcher decides whether a qualified type name is excluded from expansion.
type Matcher interface {
	Match(name string) bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithExclusions sets the exclusion matcher.
func WithExclusions(m Matcher) Option {
	return func(r *Registry) { r.excluded = m }
}

// WithLogger sets the logger used for degraded generic chains.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// New builds a Registry over provider.
func New(provider Provider, opts ...Option) *Registry {
	r := &Registry{provider: provider}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// Logger returns the registry logger.
func (r *Registry) Logger() *slog.Logger {
	return r.logger
}

// IsExcluded reports whether name is forced opaque.
func (r *Registry) IsExcluded(name string) bool {
	return r.excluded != nil && r.excluded.Match(name)
}

// Lookup returns the class declared under name. Unknown types yield
// (nil, false, nil); only provider failures are errors.
func (r *Registry) Lookup(name string) (*types.ClassMetadata, bool, error) {
	if r.provider == nil || name == "" {
		return nil, false, nil
	}
	cm, err := r.provider.Lookup(name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("lookup %s: %w", name, err)
	}
	if cm == nil {
		return nil, false, nil
	}
	return cm, true, nil
}

// Level is one class of an inheritance chain together with the type
// arguments supplied for its generic parameters by the level below it.
type Level struct {
	Class *types.ClassMetadata
	Args  []types.TypeRef
}

// Hierarchy returns ref's class followed by its non-opaque ancestors. The
// walk stops at the first excluded or unknown superclass, or when a class
// repeats.
func (r *Registry) Hierarchy(ref types.TypeRef) ([]Level, error) {
	if r.IsExcluded(ref.Name) {
		return nil, nil
	}
	cm, ok, err := r.Lookup(ref.Name)
	if err != nil || !ok {
		return nil, err
	}
	levels := []Level{{Class: cm, Args: ref.Args}}
	seen := map[string]struct{}{cm.Name: {}}
	for cm.Super != nil {
		super := *cm.Super
		if r.IsExcluded(super.Name) {
			break
		}
		if _, dup := seen[super.Name]; dup {
			break
		}
		next, ok, err := r.Lookup(super.Name)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		seen[next.Name] = struct{}{}
		levels = append(levels, Level{Class: next, Args: super.Args})
		cm = next
	}
	return levels, nil
}

// Fields returns own fields followed by inherited fields, ancestors in
// chain order.
func (r *Registry) Fields(name string) ([]types.FieldMetadata, error) {
	levels, err := r.Hierarchy(types.TypeRef{Name: name})
	if err != nil {
		return nil, err
	}
	var out []types.FieldMetadata
	for _, lv := range levels {
		out = append(out, lv.Class.Fields...)
	}
	return out, nil
}

// Member is a traversable field with the environment its type resolves in.
type Member struct {
	Field types.FieldMetadata
	Owner string
	Env   *typeenv.Env
}

// Members returns the non-constant fields of ref's hierarchy, own fields
// first. Each level's declared type parameters are bound to the arguments
// supplied by the level below, layered over env.
func (r *Registry) Members(ref types.TypeRef, env *typeenv.Env) ([]Member, error) {
	levels, err := r.Hierarchy(ref)
	if err != nil {
		return nil, err
	}
	var out []Member
	cur := env
	for _, lv := range levels {
		cur = r.bindLevel(cur, lv)
		for _, f := range lv.Class.Fields {
			if f.Constant {
				continue
			}
			out = append(out, Member{Field: f, Owner: lv.Class.Name, Env: cur})
		}
	}
	return out, nil
}

// Bindings builds the class-level environment of ref: every level's
// declared params bound to the arguments supplied from below.
func (r *Registry) Bindings(ref types.TypeRef, env *typeenv.Env) (*typeenv.Env, error) {
	levels, err := r.Hierarchy(ref)
	if err != nil {
		return nil, err
	}
	cur := env
	for _, lv := range levels {
		cur = r.bindLevel(cur, lv)
	}
	if cur == nil {
		cur = typeenv.New()
	}
	return cur, nil
}

func (r *Registry) bindLevel(env *typeenv.Env, lv Level) *typeenv.Env {
	next, mm := env.BindAll(lv.Class.TypeParams, lv.Args)
	if mm != nil {
		r.logger.Warn("generic argument count mismatch",
			"class", lv.Class.Name, "params", mm.Params, "args", mm.Args)
	}
	return next
}
