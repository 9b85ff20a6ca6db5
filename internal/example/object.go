package example

import (
	"bytes"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Field is one key/value entry of an Object. AnyKey marks the single entry
// of a map example, whose key only names the key type.
type Field struct {
	Key    string
	Value  any
	AnyKey bool
}

// Object is a JSON/YAML mapping that keeps insertion order.
type Object []Field

// Get returns the value stored under key.
func (o Object) Get(key string) (any, bool) {
	for _, f := range o {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the keys in order.
func (o Object) Keys() []string {
	out := make([]string, len(o))
	for i, f := range o {
		out[i] = f.Key
	}
	return out
}

func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := encodeJSON(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := encodeJSON(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o Object) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, f := range o {
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Key}
		val := &yaml.Node{}
		if err := val.Encode(f.Value); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, key, val)
	}
	return node, nil
}

// encodeJSON marshals v without escaping <, > and &, which appear in
// placeholders such as "<unavailable: ...>".
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Number is a JSON number kept in its source spelling.
type Number string

func (n Number) MarshalJSON() ([]byte, error) {
	return []byte(n), nil
}

func (n Number) MarshalYAML() (any, error) {
	tag := "!!int"
	if bytes.ContainsAny([]byte(n), ".eE") {
		tag = "!!float"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: string(n)}, nil
}
