package filter

import (
	"fmt"
	"strings"

	"github.com/yourorg/restdoc/internal/classify"
	"github.com/yourorg/restdoc/pkg/types"
)

// Parameter annotations understood by the body filters.
const (
	AnnotationRequestBody   = "RequestBody"
	AnnotationPathVariable  = "PathVariable"
	AnnotationRequestParam  = "RequestParam"
	AnnotationRequestHeader = "RequestHeader"
)

const (
	BodyFilterAnnotation   = "annotation"
	BodyFilterNonPrimitive = "non-primitive"
)

// Candidate is a declared operation parameter offered to a body filter.
type Candidate struct {
	Name        string
	Type        types.TypeRef
	Annotations []string
}

// HasAnnotation reports whether c carries annotation a (case-insensitive).
func (c Candidate) HasAnnotation(a string) bool {
	for _, x := range c.Annotations {
		if strings.EqualFold(strings.TrimPrefix(x, "@"), a) {
			return true
		}
	}
	return false
}

// RequestBodyFilter picks the parameter that carries the request body.
type RequestBodyFilter interface {
	Name() string
	// Select returns the index of the body parameter, or -1.
	Select(params []Candidate) (int, error)
}

// NewRequestBodyFilter returns the filter registered under name. The oracle
// is only used by the non-primitive filter.
func NewRequestBodyFilter(name string, oracle *classify.Oracle) (RequestBodyFilter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BodyFilterAnnotation:
		return annotationFilter{}, nil
	case BodyFilterNonPrimitive:
		if oracle == nil {
			return nil, fmt.Errorf("request body filter %q needs a classifier", name)
		}
		return nonPrimitiveFilter{oracle: oracle}, nil
	default:
		return nil, fmt.Errorf("unknown request body filter %q", name)
	}
}

type annotationFilter struct{}

func (annotationFilter) Name() string { return BodyFilterAnnotation }

func (annotationFilter) Select(params []Candidate) (int, error) {
	for i, p := range params {
		if p.HasAnnotation(AnnotationRequestBody) {
			return i, nil
		}
	}
	return -1, nil
}

type nonPrimitiveFilter struct {
	oracle *classify.Oracle
}

func (nonPrimitiveFilter) Name() string { return BodyFilterNonPrimitive }

func (f nonPrimitiveFilter) Select(params []Candidate) (int, error) {
	for i, p := range params {
		if p.HasAnnotation(AnnotationRequestBody) {
			return i, nil
		}
	}
	for i, p := range params {
		if p.HasAnnotation(AnnotationPathVariable) || p.HasAnnotation(AnnotationRequestParam) || p.HasAnnotation(AnnotationRequestHeader) {
			continue
		}
		kind, _, err := f.oracle.Classify(p.Type)
		if err != nil {
			return -1, fmt.Errorf("classify parameter %s: %w", p.Name, err)
		}
		switch kind {
		case types.KindObject, types.KindMap, types.KindCollection:
			return i, nil
		}
	}
	return -1, nil
}
