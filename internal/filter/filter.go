package filter

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/yourorg/restdoc/pkg/types"
)

// Exclusions decides which qualified type names are never expanded.
// A pattern is an exact qualified name, a simple name (no dots), or a
// doublestar glob over the dotted name where '.' acts as the separator.
// A leading "*." matches any package.
type Exclusions struct {
	exact  map[string]struct{}
	simple map[string]struct{}
	globs  []string
}

// NewExclusions compiles patterns. Invalid globs are an error.
func NewExclusions(patterns []string) (*Exclusions, error) {
	e := &Exclusions{exact: map[string]struct{}{}, simple: map[string]struct{}{}}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.ContainsAny(p, "*?[{") {
			if strings.ContainsAny(p, "./$") {
				e.exact[p] = struct{}{}
			} else {
				e.simple[p] = struct{}{}
			}
			continue
		}
		g := toPath(p)
		if strings.HasPrefix(g, "*/") {
			g = "**/" + strings.TrimPrefix(g, "*/")
		}
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
		e.globs = append(e.globs, g)
	}
	return e, nil
}

// Match reports whether name is excluded.
func (e *Exclusions) Match(name string) bool {
	if e == nil || name == "" {
		return false
	}
	if _, ok := e.exact[name]; ok {
		return true
	}
	if _, ok := e.simple[types.SimpleName(name)]; ok {
		return true
	}
	if len(e.globs) == 0 {
		return false
	}
	p := toPath(name)
	for _, g := range e.globs {
		if ok, _ := doublestar.Match(g, p); ok {
			return true
		}
	}
	return false
}

// Len returns the number of compiled patterns.
func (e *Exclusions) Len() int {
	if e == nil {
		return 0
	}
	return len(e.exact) + len(e.simple) + len(e.globs)
}

func toPath(name string) string {
	return strings.NewReplacer(".", "/", "$", "/").Replace(name)
}
