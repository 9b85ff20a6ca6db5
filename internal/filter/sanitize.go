package filter

import (
	"strings"

	"github.com/yourorg/restdoc/internal/config"
	"github.com/yourorg/restdoc/internal/example"
)

// SanitizeConfig is an alias of config.SanitizeConfig.
type SanitizeConfig = config.SanitizeConfig

// Redactor replaces values of sensitive fields in example payloads.
// Field names match case-insensitively ignoring '_' and '-', so
// "accessToken" matches "access_token".
type Redactor struct {
	fields      map[string]struct{}
	replacement string
}

func NewRedactor(cfg SanitizeConfig) *Redactor {
	return &Redactor{fields: toFieldSet(cfg.Fields), replacement: cfg.Replacement}
}

// Redact returns v with sensitive fields replaced. Objects and slices are copied.
func (r *Redactor) Redact(v any) any {
	if r == nil || len(r.fields) == 0 {
		return v
	}
	return r.redact(v)
}

func (r *Redactor) redact(v any) any {
	switch val := v.(type) {
	case example.Object:
		out := make(example.Object, len(val))
		for i, f := range val {
			out[i] = f
			if r.sensitive(f.Key) {
				out[i].Value = r.replacement
				continue
			}
			out[i].Value = r.redact(f.Value)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, v2 := range val {
			if r.sensitive(k) {
				out[k] = r.replacement
				continue
			}
			out[k] = r.redact(v2)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i := range val {
			out[i] = r.redact(val[i])
		}
		return out
	default:
		return val
	}
}

func (r *Redactor) sensitive(key string) bool {
	_, ok := r.fields[normalizeField(key)]
	return ok
}

func toFieldSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, v := range items {
		v = normalizeField(v)
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

func normalizeField(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "").Replace(s)
}
