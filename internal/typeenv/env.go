// Package typeenv maps generic type-variable names to the concrete types they
// are bound to while one root type is being resolved.
package typeenv

import (
	"github.com/yourorg/restdoc/pkg/types"
)

// Env is an immutable, layered set of type-variable bindings. The zero value
// and nil are both valid empty environments.
type Env struct {
	bindings map[string]types.TypeRef
}

// New returns an empty environment.
func New() *Env {
	return &Env{}
}

// Len returns the number of distinct bound names.
func (e *Env) Len() int {
	if e == nil {
		return 0
	}
	return len(e.bindings)
}

// Lookup returns the direct binding for name.
func (e *Env) Lookup(name string) (types.TypeRef, bool) {
	if e == nil {
		return types.TypeRef{}, false
	}
	ref, ok := e.bindings[name]
	return ref, ok
}

// Names returns the bound variable names in no particular order.
func (e *Env) Names() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.bindings))
	for k := range e.bindings {
		out = append(out, k)
	}
	return out
}

// Bind returns a new environment with name bound to ref. An existing binding
// for name is overridden.
func (e *Env) Bind(name string, ref types.TypeRef) *Env {
	next := &Env{bindings: make(map[string]types.TypeRef, e.Len()+1)}
	if e != nil {
		for k, v := range e.bindings {
			next.bindings[k] = v
		}
	}
	next.bindings[name] = ref
	return next
}

// Merge layers other on top of e; other wins on conflicts.
func (e *Env) Merge(other *Env) *Env {
	if other.Len() == 0 {
		if e == nil {
			return New()
		}
		return e
	}
	next := &Env{bindings: make(map[string]types.TypeRef, e.Len()+other.Len())}
	if e != nil {
		for k, v := range e.bindings {
			next.bindings[k] = v
		}
	}
	for k, v := range other.bindings {
		next.bindings[k] = v
	}
	return next
}

// Mismatch describes a declared-parameter/argument count mismatch.
type Mismatch struct {
	Params int
	Args   int
}

// BindAll binds params positionally to args. Each arg is first substituted
// through e so that bindings never point back into the layer being built.
// When the counts differ only the common prefix is bound and a non-nil
// Mismatch is returned; unbound params later resolve to themselves.
func (e *Env) BindAll(params []string, args []types.TypeRef) (*Env, *Mismatch) {
	var mm *Mismatch
	if len(params) != len(args) && len(args) > 0 {
		mm = &Mismatch{Params: len(params), Args: len(args)}
	}
	n := len(params)
	if len(args) < n {
		n = len(args)
	}
	if n == 0 {
		if e == nil {
			return New(), mm
		}
		return e, mm
	}
	next := &Env{bindings: make(map[string]types.TypeRef, e.Len()+n)}
	if e != nil {
		for k, v := range e.bindings {
			next.bindings[k] = v
		}
	}
	for i := 0; i < n; i++ {
		next.bindings[params[i]] = e.Substitute(args[i])
	}
	return next, mm
}

// IsVariable reports whether ref names a variable bound in e.
func (e *Env) IsVariable(ref types.TypeRef) bool {
	if len(ref.Args) > 0 || ref.Primitive {
		return false
	}
	_, ok := e.Lookup(ref.Name)
	return ok
}

// Resolve follows variable bindings until a non-variable ref is reached.
// A chain that loops back on itself leaves the original variable unresolved.
// Array dimensions of ref are added to the resolved type. Resolving a
// concrete ref returns it unchanged.
func (e *Env) Resolve(ref types.TypeRef) types.TypeRef {
	if !e.IsVariable(ref) {
		return ref
	}
	seen := map[string]struct{}{ref.Name: {}}
	dims := ref.Dims
	cur := ref
	for {
		next, _ := e.Lookup(cur.Name)
		if !e.IsVariable(next) {
			return next.WithDims(dims)
		}
		if _, loop := seen[next.Name]; loop {
			return ref
		}
		seen[next.Name] = struct{}{}
		dims += next.Dims
		cur = next
	}
}

// Substitute resolves ref and, recursively, all of its type arguments.
func (e *Env) Substitute(ref types.TypeRef) types.TypeRef {
	return e.substitute(ref, 0)
}

const maxSubstituteDepth = 32

func (e *Env) substitute(ref types.TypeRef, depth int) types.TypeRef {
	out := e.Resolve(ref)
	if len(out.Args) == 0 || depth >= maxSubstituteDepth {
		return out
	}
	args := make([]types.TypeRef, len(out.Args))
	for i, a := range out.Args {
		args[i] = e.substitute(a, depth+1)
	}
	out.Args = args
	return out
}
