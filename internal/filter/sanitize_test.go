package filter

import (
	"testing"

	"github.com/yourorg/restdoc/internal/example"
)

func TestRedactOrderedObject(t *testing.T) {
	r := NewRedactor(SanitizeConfig{
		Fields:      []string{"password", "access_token"},
		Replacement: "***REDACTED***",
	})
	in := example.Object{
		{Key: "name", Value: "alice"},
		{Key: "Password", Value: "hunter2"},
		{Key: "session", Value: example.Object{
			{Key: "accessToken", Value: "abc"},
			{Key: "expires", Value: example.Number("3600")},
		}},
		{Key: "history", Value: []any{example.Object{{Key: "password", Value: "old"}}}},
	}

	out, ok := r.Redact(in).(example.Object)
	if !ok {
		t.Fatalf("expected object, got %T", r.Redact(in))
	}
	if got, _ := out.Get("name"); got != "alice" {
		t.Fatalf("name changed: %v", got)
	}
	if got, _ := out.Get("Password"); got != "***REDACTED***" {
		t.Fatalf("password not redacted: %v", got)
	}
	sess, _ := out.Get("session")
	if got, _ := sess.(example.Object).Get("accessToken"); got != "***REDACTED***" {
		t.Fatalf("camel case token not redacted: %v", got)
	}
	if got, _ := sess.(example.Object).Get("expires"); got != example.Number("3600") {
		t.Fatalf("expires changed: %v", got)
	}
	hist, _ := out.Get("history")
	if got, _ := hist.([]any)[0].(example.Object).Get("password"); got != "***REDACTED***" {
		t.Fatalf("nested password not redacted: %v", got)
	}
	if got, _ := in.Get("Password"); got != "hunter2" {
		t.Fatalf("input must not be modified")
	}
	if keys := out.Keys(); keys[0] != "name" || keys[3] != "history" {
		t.Fatalf("order not preserved: %v", keys)
	}
}

func TestRedactPlainMap(t *testing.T) {
	r := NewRedactor(SanitizeConfig{Fields: []string{"secret"}, Replacement: "x"})
	out := r.Redact(map[string]interface{}{"secret": "s", "id": 1}).(map[string]interface{})
	if out["secret"] != "x" || out["id"] != 1 {
		t.Fatalf("unexpected output %v", out)
	}
}

func TestRedactNoFields(t *testing.T) {
	r := NewRedactor(SanitizeConfig{})
	in := example.Object{{Key: "password", Value: "p"}}
	out := r.Redact(in).(example.Object)
	if got, _ := out.Get("password"); got != "p" {
		t.Fatalf("nothing should be redacted without fields")
	}
}
