// Package walker flattens a type graph into a dotted-path parameter tree.
package walker

import (
	"fmt"

	"github.com/yourorg/restdoc/internal/classify"
	"github.com/yourorg/restdoc/internal/registry"
	"github.com/yourorg/restdoc/internal/typeenv"
	"github.com/yourorg/restdoc/pkg/types"
)

// Walker expands types into ParameterNode trees. It holds no traversal
// state; every Walk call starts from an empty visited stack.
type Walker struct {
	oracle *classify.Oracle
	reg    *registry.Registry
}

// New returns a Walker classifying through oracle.
func New(oracle *classify.Oracle) *Walker {
	return &Walker{oracle: oracle, reg: oracle.Registry()}
}

// Result is the outcome of one top-level walk. Problems lists the types
// that could not be expanded; they appear in the tree as opaque leaves.
type Result struct {
	Root     *types.ParameterNode
	Enums    []string
	Problems []string
}

// Nodes returns the pre-order flattened tree; the root comes first.
func (r *Result) Nodes() []*types.ParameterNode {
	if r == nil {
		return nil
	}
	return r.Root.Flatten()
}

// Degraded reports whether part of the graph could not be expanded.
func (r *Result) Degraded() bool {
	return r != nil && len(r.Problems) > 0
}

// Walk expands ref in env. The root node has an empty name.
func (w *Walker) Walk(ref types.TypeRef, env *typeenv.Env) *Result {
	return w.WalkParam(ref, env, false, "")
}

// WalkParam is Walk with the root's required flag and description set.
func (w *Walker) WalkParam(ref types.TypeRef, env *typeenv.Env, required bool, description string) *Result {
	st := newState()
	root := w.walk(st, ref, "", env, required, description)
	return &Result{Root: root, Enums: st.enums.List(), Problems: st.problems}
}

type state struct {
	visited  Visited
	enums    *EnumSet
	problems []string
}

func newState() *state {
	return &state{enums: NewEnumSet()}
}

func (w *Walker) walk(st *state, ref types.TypeRef, path string, env *typeenv.Env, required bool, description string) *types.ParameterNode {
	resolved := env.Resolve(ref)
	node := &types.ParameterNode{
		Name:        path,
		Type:        resolved,
		Required:    required,
		Description: description,
	}
	kind, cm, err := w.oracle.Classify(resolved)
	if err != nil {
		return w.unavailable(st, node, err)
	}
	node.Kind = kind

	switch kind {
	case types.KindEnumeration:
		st.enums.Add(cm.Name)
	case types.KindMap:
		node.Children = w.walk(st, classify.MapValue(resolved), path, env, false, "").Children
	case types.KindCollection:
		node.Children = w.walk(st, classify.Element(resolved), path, env, false, "").Children
	case types.KindObject:
		if st.visited.Contains(resolved.Name) {
			return node
		}
		st.visited.Push(resolved.Name)
		defer st.visited.Pop()

		members, err := w.reg.Members(resolved, env)
		if err != nil {
			return w.unavailable(st, node, err)
		}
		for _, m := range members {
			child := w.walk(st, m.Field.Type, JoinPath(path, m.Field.Name), m.Env, m.Field.Required, m.Field.Doc)
			node.Children = append(node.Children, child)
		}
	}
	return node
}

// unavailable turns node into an opaque leaf and records cause.
func (w *Walker) unavailable(st *state, node *types.ParameterNode, cause error) *types.ParameterNode {
	node.Kind = types.KindOpaque
	node.Children = nil
	st.problems = append(st.problems, Unavailable(node.Type, cause))
	w.reg.Logger().Warn("type expansion failed", "type", node.Type.String(), "path", node.Name, "error", cause)
	return node
}

// Unavailable formats the placeholder recorded for a type whose metadata
// could not be read.
func Unavailable(ref types.TypeRef, cause error) string {
	return fmt.Sprintf("<unavailable: %s: %v>", ref, cause)
}

// JoinPath appends a field name to a dotted path.
func JoinPath(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}
