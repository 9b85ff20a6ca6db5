package example

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("unknown example format")

// ParseFormat accepts json, yaml and yml; empty means json.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Marshal serializes v keeping Object field order.
func Marshal(v any, format Format) (string, error) {
	switch format {
	case FormatJSON, "":
		raw, err := encodeJSON(v)
		if err != nil {
			return "", fmt.Errorf("marshal json: %w", err)
		}
		return strings.TrimRight(string(pretty.Pretty(raw)), "\n"), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return "", fmt.Errorf("marshal yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return "", err
		}
		return strings.TrimRight(buf.String(), "\n"), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ParseJSON decodes a JSON document into ordered values: Object for objects,
// []any for arrays, Number for numbers.
func ParseJSON(data string) (any, error) {
	if !gjson.Valid(data) {
		return nil, errors.New("invalid json")
	}
	return fromResult(gjson.Parse(data)), nil
}

func fromResult(r gjson.Result) any {
	switch {
	case r.IsObject():
		obj := Object{}
		r.ForEach(func(k, v gjson.Result) bool {
			obj = append(obj, Field{Key: k.String(), Value: fromResult(v)})
			return true
		})
		return obj
	case r.IsArray():
		arr := []any{}
		r.ForEach(func(_, v gjson.Result) bool {
			arr = append(arr, fromResult(v))
			return true
		})
		return arr
	}
	switch r.Type {
	case gjson.Number:
		return Number(r.Raw)
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.Null:
		return nil
	default:
		return r.String()
	}
}
