// Package typeexpr parses textual type references such as
// "com.acme.Page<com.acme.User>", "map[string][]Item" or "Result[T]".
package typeexpr

import (
	"fmt"
	"strings"

	"github.com/yourorg/restdoc/pkg/types"
)

var primitives = map[string]struct{}{
	// java
	"int": {}, "long": {}, "short": {}, "byte": {}, "char": {}, "float": {}, "double": {}, "boolean": {}, "void": {},
	// go
	"string": {}, "bool": {}, "int8": {}, "int16": {}, "int32": {}, "int64": {},
	"uint": {}, "uint8": {}, "uint16": {}, "uint32": {}, "uint64": {}, "uintptr": {},
	"float32": {}, "float64": {}, "complex64": {}, "complex128": {}, "rune": {},
}

// IsPrimitive reports whether name is a built-in primitive type name.
func IsPrimitive(name string) bool {
	_, ok := primitives[name]
	return ok
}

// Parse parses a type expression.
func Parse(expr string) (types.TypeRef, error) {
	p := &parser{src: strings.TrimSpace(expr)}
	if p.src == "" {
		return types.TypeRef{}, fmt.Errorf("empty type expression")
	}
	ref, err := p.parseType()
	if err != nil {
		return types.TypeRef{}, fmt.Errorf("parse type %q: %w", expr, err)
	}
	p.skipSpace()
	if !p.eof() {
		return types.TypeRef{}, fmt.Errorf("parse type %q: unexpected %q at %d", expr, p.src[p.pos:], p.pos)
	}
	return ref, nil
}

// MustParse is Parse that panics on error.
func MustParse(expr string) types.TypeRef {
	ref, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return ref
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) skipSpace() {
	for !p.eof() && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) consume(s string) bool {
	if strings.HasPrefix(p.src[p.pos:], s) {
		p.pos += len(s)
		return true
	}
	return false
}

func (p *parser) parseType() (types.TypeRef, error) {
	p.skipSpace()
	dims := 0
	for {
		switch {
		case p.consume("[]"):
			dims++
			continue
		case p.consume("*"):
			continue
		case p.fixedArray():
			dims++
			continue
		}
		break
	}

	var ref types.TypeRef
	switch {
	case p.consume("map["):
		key, err := p.parseType()
		if err != nil {
			return ref, err
		}
		p.skipSpace()
		if !p.consume("]") {
			return ref, fmt.Errorf("missing ']' after map key")
		}
		val, err := p.parseType()
		if err != nil {
			return ref, err
		}
		ref = types.TypeRef{Name: "map", Args: []types.TypeRef{key, val}}
	case p.consume("?"):
		p.skipSpace()
		if p.consume("extends ") {
			bound, err := p.parseType()
			if err != nil {
				return ref, err
			}
			ref = bound
		} else {
			if p.consume("super ") {
				if _, err := p.parseType(); err != nil {
					return ref, err
				}
			}
			ref = types.TypeRef{Name: "?"}
		}
	default:
		name := p.ident()
		if name == "" {
			if p.eof() {
				return ref, fmt.Errorf("unexpected end of expression")
			}
			return ref, fmt.Errorf("expected type name at %d", p.pos)
		}
		ref.Name = name
		args, err := p.typeArgs()
		if err != nil {
			return ref, err
		}
		ref.Args = args
		ref.Primitive = len(args) == 0 && IsPrimitive(name)
	}

	for {
		p.skipSpace()
		if p.consume("[]") || p.consume("...") {
			dims++
			continue
		}
		break
	}
	ref.Dims += dims
	return ref, nil
}

// fixedArray consumes a Go array prefix such as [4].
func (p *parser) fixedArray() bool {
	rest := p.src[p.pos:]
	if len(rest) < 3 || rest[0] != '[' {
		return false
	}
	i := 1
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i == 1 || i >= len(rest) || rest[i] != ']' {
		return false
	}
	p.pos += i + 1
	return true
}

func (p *parser) ident() string {
	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if c == '.' && strings.HasPrefix(p.src[p.pos:], "...") {
			break
		}
		if c == '_' || c == '.' || c == '$' || c == '/' || c == '-' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			p.pos++
			continue
		}
		break
	}
	return p.src[start:p.pos]
}

func (p *parser) typeArgs() ([]types.TypeRef, error) {
	p.skipSpace()
	var closer string
	switch {
	case p.consume("<"):
		closer = ">"
	case strings.HasPrefix(p.src[p.pos:], "[") && !strings.HasPrefix(p.src[p.pos:], "[]"):
		p.pos++
		closer = "]"
	default:
		return nil, nil
	}
	var args []types.TypeRef
	for {
		arg, err := p.parseType()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		p.skipSpace()
		if p.consume(",") {
			continue
		}
		if p.consume(closer) {
			return args, nil
		}
		return nil, fmt.Errorf("missing %q in type arguments", closer)
	}
}
