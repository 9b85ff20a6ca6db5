package example

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/yourorg/restdoc/pkg/types"
)

var errShapeMismatch = errors.New("refined example does not match the skeleton shape")

// LLMGenerator asks a model to replace skeleton placeholders with realistic
// values. Sensitive fields of the refined value are masked before it is
// serialized or cached. Any failure falls back to the skeleton.
type LLMGenerator struct {
	skeleton *StructuralGenerator
	refiner  Refiner
	model    string
	cache    Cache
	redactor Redactor
	logger   *slog.Logger
}

func (g *LLMGenerator) Name() string { return GeneratorLLM }

func (g *LLMGenerator) Generate(ctx context.Context, req Request) (Generated, error) {
	res, skel, err := g.skeleton.skeleton(req)
	if err != nil {
		return Generated{}, err
	}
	format := g.skeleton.format
	key := SkeletonKey(skel, format)

	if g.cache != nil {
		cached, err := g.cache.GetExampleCache(key)
		if err != nil {
			g.logger.Warn("example cache lookup failed", "key", key, "error", err)
		} else if cached != nil && cached.Status == "ok" {
			g.logger.Debug("example cache hit", "operation", req.Operation, "role", req.Role)
			return Generated{Text: cached.Output, Degraded: res.Degraded, Problems: res.Problems, Source: GeneratorLLM}, nil
		}
	}

	refined, err := g.refiner.Refine(ctx, req, skel)
	if err != nil {
		g.save(key, "failed", "", refined.Tokens, err)
		return g.fallback(res, err)
	}
	if !sameShape(res.Value, refined.Value) {
		g.save(key, "failed", "", refined.Tokens, errShapeMismatch)
		return g.fallback(res, errShapeMismatch)
	}
	value := refined.Value
	if g.redactor != nil {
		value = g.redactor.Redact(value)
	}
	text, err := Marshal(value, format)
	if err != nil {
		return g.fallback(res, err)
	}
	g.save(key, "ok", text, refined.Tokens, nil)
	return Generated{Text: text, Degraded: res.Degraded, Problems: res.Problems, Source: GeneratorLLM}, nil
}

func (g *LLMGenerator) fallback(res Result, cause error) (Generated, error) {
	g.logger.Warn("llm example refinement failed, using skeleton", "error", cause)
	text, err := Marshal(res.Value, g.skeleton.format)
	if err != nil {
		return Generated{}, err
	}
	problems := append(append([]string(nil), res.Problems...), "llm refinement: "+cause.Error())
	return Generated{Text: text, Degraded: true, Problems: problems, Source: GeneratorStructural}, nil
}

func (g *LLMGenerator) save(key, status, output string, tokens int, cause error) {
	if g.cache == nil {
		return
	}
	entry := &types.ExampleCache{
		Key:        key,
		Generator:  GeneratorLLM,
		Status:     status,
		Output:     output,
		Model:      g.model,
		TokensUsed: tokens,
		CreatedAt:  time.Now().UTC(),
	}
	if cause != nil {
		entry.ErrorMsg = cause.Error()
	}
	if err := g.cache.SaveExampleCache(entry); err != nil {
		g.logger.Warn("example cache save failed", "key", key, "error", err)
	}
}

// sameShape reports whether refined keeps the containers and keys of skeleton.
func sameShape(skeleton, refined any) bool {
	switch s := skeleton.(type) {
	case Object:
		r, ok := refined.(Object)
		if !ok {
			return false
		}
		if len(s) == 1 && s[0].AnyKey {
			// A map placeholder accepts any keys as long as every value
			// keeps the entry's shape.
			for _, f := range r {
				if !sameShape(s[0].Value, f.Value) {
					return false
				}
			}
			return true
		}
		for _, f := range s {
			v, ok := r.Get(f.Key)
			if !ok || !sameShape(f.Value, v) {
				return false
			}
		}
		return true
	case []any:
		r, ok := refined.([]any)
		if !ok {
			return false
		}
		if len(s) == 0 || len(r) == 0 {
			return true
		}
		return sameShape(s[0], r[0])
	default:
		switch refined.(type) {
		case Object, []any:
			return false
		}
		return true
	}
}
