// Package example synthesizes placeholder payloads that mirror the
// structural shape of a type, and turns them into serialized examples.
package example

import (
	"fmt"
	"log/slog"

	"github.com/yourorg/restdoc/internal/classify"
	"github.com/yourorg/restdoc/internal/registry"
	"github.com/yourorg/restdoc/internal/typeenv"
	"github.com/yourorg/restdoc/internal/walker"
	"github.com/yourorg/restdoc/pkg/types"
)

// EmptyObject is the placeholder for an object with no expandable fields.
const EmptyObject = "Object"

// Result is a synthesized example value.
type Result struct {
	Value    any
	Degraded bool
	Problems []string
}

// Synthesizer builds example values. It keeps no state between calls.
type Synthesizer struct {
	oracle *classify.Oracle
	reg    *registry.Registry
	logger *slog.Logger
}

type Option func(*Synthesizer)

func WithLogger(l *slog.Logger) Option {
	return func(s *Synthesizer) { s.logger = l }
}

func NewSynthesizer(oracle *classify.Oracle, opts ...Option) *Synthesizer {
	s := &Synthesizer{oracle: oracle, reg: oracle.Registry()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = s.reg.Logger()
	}
	return s
}

// Synthesize builds the example value of ref resolved in env. Failures
// inside the graph become inline placeholders and mark the result degraded.
func (s *Synthesizer) Synthesize(ref types.TypeRef, env *typeenv.Env) Result {
	st := &synthState{}
	v := s.value(st, ref, env)
	return Result{Value: v, Degraded: len(st.problems) > 0, Problems: st.problems}
}

type synthState struct {
	visited  walker.Visited
	problems []string
}

func (s *Synthesizer) value(st *synthState, ref types.TypeRef, env *typeenv.Env) (out any) {
	resolved := env.Resolve(ref)
	defer func() {
		if r := recover(); r != nil {
			out = s.unavailable(st, resolved, fmt.Errorf("panic: %v", r))
		}
	}()

	kind, _, err := s.oracle.Classify(resolved)
	if err != nil {
		return s.unavailable(st, resolved, err)
	}
	switch kind {
	case types.KindMap:
		key := env.Resolve(classify.MapKey(resolved))
		return Object{{Key: key.SimpleName(), Value: s.value(st, classify.MapValue(resolved), env), AnyKey: true}}
	case types.KindCollection:
		return []any{s.value(st, classify.Element(resolved), env)}
	case types.KindObject:
		if st.visited.Contains(resolved.Name) {
			return resolved.SimpleName()
		}
		st.visited.Push(resolved.Name)
		defer st.visited.Pop()

		members, err := s.reg.Members(resolved, env)
		if err != nil {
			return s.unavailable(st, resolved, err)
		}
		if len(members) == 0 {
			return EmptyObject
		}
		obj := make(Object, 0, len(members))
		for _, m := range members {
			obj = append(obj, Field{Key: m.Field.Name, Value: s.value(st, m.Field.Type, m.Env)})
		}
		return obj
	default:
		return resolved.SimpleName()
	}
}

func (s *Synthesizer) unavailable(st *synthState, ref types.TypeRef, cause error) string {
	msg := walker.Unavailable(ref, cause)
	st.problems = append(st.problems, msg)
	s.logger.Warn("example synthesis failed", "type", ref.String(), "error", cause)
	return msg
}
