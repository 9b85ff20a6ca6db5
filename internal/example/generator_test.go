package example

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/yourorg/restdoc/pkg/types"
)

type fakeRefiner struct {
	value    any
	err      error
	calls    int
	skeleton string
}

func (f *fakeRefiner) Refine(_ context.Context, _ Request, skeleton string) (Refinement, error) {
	f.calls++
	f.skeleton = skeleton
	if f.err != nil {
		return Refinement{}, f.err
	}
	return Refinement{Value: f.value, Tokens: 42}, nil
}

type memCache map[string]*types.ExampleCache

func (m memCache) GetExampleCache(key string) (*types.ExampleCache, error) {
	return m[key], nil
}

func (m memCache) SaveExampleCache(c *types.ExampleCache) error {
	m[c.Key] = c
	return nil
}

type upperRedactor struct{}

func (upperRedactor) Redact(v any) any {
	if obj, ok := v.(Object); ok {
		out := append(Object(nil), obj...)
		for i := range out {
			if out[i].Key == "sku" {
				out[i].Value = "***"
			}
		}
		return out
	}
	return v
}

func itemRequest() Request {
	return Request{
		Operation: "createItem",
		Role:      "request",
		Type:      tv("com.acme.Item"),
		Fields: []*types.ParameterNode{
			{Name: ""},
			{Name: "sku", Type: stringT, Required: true, Description: "stock keeping unit"},
		},
	}
}

func TestNewGeneratorSelection(t *testing.T) {
	synth := NewSynthesizer(newOracle())

	g, err := NewGenerator("", Deps{Synth: synth})
	require.NoError(t, err)
	assert.Equal(t, GeneratorStructural, g.Name())

	_, err = NewGenerator("llm", Deps{Synth: synth})
	assert.Error(t, err, "llm needs a refiner")

	g, err = NewGenerator("LLM", Deps{Synth: synth, Refiner: &fakeRefiner{}})
	require.NoError(t, err)
	assert.Equal(t, GeneratorLLM, g.Name())

	_, err = NewGenerator("random", Deps{Synth: synth})
	assert.Error(t, err)

	_, err = NewGenerator("structural", Deps{})
	assert.Error(t, err)
}

func TestStructuralGenerator(t *testing.T) {
	g, err := NewGenerator(GeneratorStructural, Deps{Synth: NewSynthesizer(newOracle()), Format: FormatYAML})
	require.NoError(t, err)
	out, err := g.Generate(context.Background(), itemRequest())
	require.NoError(t, err)
	assert.Equal(t, "sku: String\nqty: int", out.Text)
	assert.False(t, out.Degraded)
	assert.Equal(t, GeneratorStructural, out.Source)
}

func TestLLMGeneratorRefinesAndCaches(t *testing.T) {
	refiner := &fakeRefiner{value: Object{{Key: "sku", Value: "AB-123"}, {Key: "qty", Value: Number("4")}}}
	cache := memCache{}
	g, err := NewGenerator(GeneratorLLM, Deps{Synth: NewSynthesizer(newOracle()), Refiner: refiner, Cache: cache, Model: "gpt-4o"})
	require.NoError(t, err)

	out, err := g.Generate(context.Background(), itemRequest())
	require.NoError(t, err)
	assert.False(t, out.Degraded)
	assert.Equal(t, GeneratorLLM, out.Source)
	assert.Equal(t, "AB-123", gjson.Get(out.Text, "sku").String())
	assert.Equal(t, int64(4), gjson.Get(out.Text, "qty").Int())
	assert.Equal(t, "String", gjson.Get(refiner.skeleton, "sku").String())

	require.Len(t, cache, 1)
	for _, entry := range cache {
		assert.Equal(t, "ok", entry.Status)
		assert.Equal(t, "gpt-4o", entry.Model)
		assert.Equal(t, 42, entry.TokensUsed)
	}

	again, err := g.Generate(context.Background(), itemRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, refiner.calls, "second call served from cache")
	assert.Equal(t, out.Text, again.Text)
}

func TestLLMGeneratorRedactsRefinedValue(t *testing.T) {
	refiner := &fakeRefiner{value: Object{{Key: "sku", Value: "AB-123"}, {Key: "qty", Value: Number("4")}}}
	cache := memCache{}
	g, err := NewGenerator(GeneratorLLM, Deps{Synth: NewSynthesizer(newOracle()), Refiner: refiner, Cache: cache, Redactor: upperRedactor{}})
	require.NoError(t, err)
	out, err := g.Generate(context.Background(), itemRequest())
	require.NoError(t, err)
	assert.Equal(t, "***", gjson.Get(out.Text, "sku").String())
	for _, entry := range cache {
		assert.NotContains(t, entry.Output, "AB-123", "cache never holds the unmasked value")
	}
}

func TestLLMGeneratorFallsBack(t *testing.T) {
	cases := map[string]*fakeRefiner{
		"refine error":   {err: errors.New("llm error status 500")},
		"shape mismatch": {value: Object{{Key: "sku", Value: "AB-123"}}},
		"wrong kind":     {value: []any{"AB-123"}},
	}
	for name, refiner := range cases {
		t.Run(name, func(t *testing.T) {
			cache := memCache{}
			g, err := NewGenerator(GeneratorLLM, Deps{Synth: NewSynthesizer(newOracle()), Refiner: refiner, Cache: cache})
			require.NoError(t, err)
			out, err := g.Generate(context.Background(), itemRequest())
			require.NoError(t, err)
			assert.True(t, out.Degraded)
			assert.Equal(t, GeneratorStructural, out.Source)
			assert.Equal(t, "String", gjson.Get(out.Text, "sku").String())
			require.NotEmpty(t, out.Problems)
			assert.True(t, strings.HasPrefix(out.Problems[len(out.Problems)-1], "llm refinement: "))
			for _, entry := range cache {
				assert.Equal(t, "failed", entry.Status)
				assert.NotEmpty(t, entry.ErrorMsg)
			}
		})
	}
}

func TestSkeletonKeyDependsOnFormat(t *testing.T) {
	assert.NotEqual(t, SkeletonKey("{}", FormatJSON), SkeletonKey("{}", FormatYAML))
	assert.Equal(t, SkeletonKey("{}", FormatJSON), SkeletonKey("{}", FormatJSON))
}

func TestSameShape(t *testing.T) {
	skel := Object{{Key: "a", Value: []any{Object{{Key: "b", Value: "int"}}}}}
	assert.True(t, sameShape(skel, Object{{Key: "a", Value: []any{Object{{Key: "b", Value: Number("1")}}}}, {Key: "extra", Value: "x"}}))
	assert.True(t, sameShape(skel, Object{{Key: "a", Value: []any{}}}))
	assert.False(t, sameShape(skel, Object{{Key: "a", Value: "flat"}}))
	assert.False(t, sameShape("String", Object{}))

	mapSkel := Object{{Key: "String", Value: Object{{Key: "name", Value: "String"}}, AnyKey: true}}
	assert.True(t, sameShape(mapSkel, Object{
		{Key: "eu-west", Value: Object{{Key: "name", Value: "Dublin"}}},
		{Key: "us-east", Value: Object{{Key: "name", Value: "Virginia"}}},
	}), "map keys are free")
	assert.True(t, sameShape(mapSkel, Object{}))
	assert.False(t, sameShape(mapSkel, Object{{Key: "eu-west", Value: "Dublin"}}))
	assert.False(t, sameShape(Object{{Key: "String", Value: "String"}}, Object{{Key: "eu-west", Value: "x"}}),
		"a plain field named like a type keeps its key")
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 1, EstimateTokens("订单"))
}

func TestStripMarkdownCodeBlock(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripMarkdownCodeBlock("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripMarkdownCodeBlock(`  {"a":1} `))
}
