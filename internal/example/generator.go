package example

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yourorg/restdoc/internal/typeenv"
	"github.com/yourorg/restdoc/pkg/types"
)

const (
	GeneratorStructural = "structural"
	GeneratorLLM        = "llm"
)

// Request describes one example to produce.
type Request struct {
	Operation string
	Role      string
	Type      types.TypeRef
	Env       *typeenv.Env
	Fields    []*types.ParameterNode
}

// Generated is a serialized example.
type Generated struct {
	Text     string
	Degraded bool
	Problems []string
	Source   string
}

// Generator produces examples for a request. Implementations must not
// fail on graph problems; those are reported through Degraded.
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (Generated, error)
}

// Cache persists refined examples keyed by skeleton hash. Get returns
// (nil, nil) on a miss.
type Cache interface {
	GetExampleCache(key string) (*types.ExampleCache, error)
	SaveExampleCache(c *types.ExampleCache) error
}

// Redactor masks sensitive values in an example value.
type Redactor interface {
	Redact(v any) any
}

// Deps are the collaborators generators may use. Only Synth is required.
type Deps struct {
	Synth    *Synthesizer
	Format   Format
	Refiner  Refiner
	Model    string
	Cache    Cache
	Redactor Redactor
	Logger   *slog.Logger
}

// NewGenerator returns the generator registered under name. Empty selects
// the structural generator.
func NewGenerator(name string, deps Deps) (Generator, error) {
	if deps.Synth == nil {
		return nil, errors.New("example generator needs a synthesizer")
	}
	if deps.Format == "" {
		deps.Format = FormatJSON
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	structural := &StructuralGenerator{synth: deps.Synth, format: deps.Format}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", GeneratorStructural:
		return structural, nil
	case GeneratorLLM:
		if deps.Refiner == nil {
			return nil, errors.New("llm example generator needs a refiner")
		}
		return &LLMGenerator{
			skeleton: structural,
			refiner:  deps.Refiner,
			model:    deps.Model,
			cache:    deps.Cache,
			redactor: deps.Redactor,
			logger:   deps.Logger,
		}, nil
	default:
		return nil, fmt.Errorf("unknown example generator %q", name)
	}
}

// StructuralGenerator serializes the synthesized placeholder value.
type StructuralGenerator struct {
	synth  *Synthesizer
	format Format
}

func (g *StructuralGenerator) Name() string { return GeneratorStructural }

func (g *StructuralGenerator) Generate(_ context.Context, req Request) (Generated, error) {
	res := g.synth.Synthesize(req.Type, req.Env)
	text, err := Marshal(res.Value, g.format)
	if err != nil {
		return Generated{}, err
	}
	return Generated{Text: text, Degraded: res.Degraded, Problems: res.Problems, Source: GeneratorStructural}, nil
}

func (g *StructuralGenerator) skeleton(req Request) (Result, string, error) {
	res := g.synth.Synthesize(req.Type, req.Env)
	text, err := Marshal(res.Value, FormatJSON)
	return res, text, err
}

// SkeletonKey hashes a skeleton together with the output format.
func SkeletonKey(skeleton string, format Format) string {
	sum := sha256.Sum256([]byte(string(format) + "\n" + skeleton))
	return hex.EncodeToString(sum[:])
}
