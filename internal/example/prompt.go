package example

import (
	"fmt"
	"strings"
	"unicode"
)

const systemPrompt = `You write example payloads for REST API documentation.
You receive a JSON skeleton in which every leaf is the name of its type
(String, Long, Boolean, an enumeration name, ...) and a list of field
descriptions.

Rules:
1. Keep every field key and every nesting level of the skeleton exactly as given.
2. Replace each leaf with one realistic value of the named type.
3. Arrays keep exactly one element.
4. Enumeration leaves become one plausible constant name in upper case.
5. A key that is a type name (String, Long, ...) stands for a map key; replace
   it with one realistic key of that type.
6. Never invent field keys and never drop keys.
7. Output only JSON, no markdown code block, no commentary.`

// BuildSystemPrompt returns the static system prompt.
func BuildSystemPrompt() string {
	return systemPrompt
}

// BuildUserPrompt describes the skeleton and its documented fields.
func BuildUserPrompt(req Request, skeleton string) string {
	var b strings.Builder
	if req.Operation != "" {
		fmt.Fprintf(&b, "Operation: %s\n", req.Operation)
	}
	if req.Role != "" {
		fmt.Fprintf(&b, "Payload: %s body of type %s\n", req.Role, req.Type.ShortString())
	}
	var fields []string
	for _, n := range req.Fields {
		if n.Name == "" {
			continue
		}
		line := fmt.Sprintf("- %s (%s)", n.Name, n.Type.ShortString())
		if n.Required {
			line += " required"
		}
		if n.Description != "" {
			line += ": " + n.Description
		}
		fields = append(fields, line)
	}
	if len(fields) > 0 {
		b.WriteString("\nFields:\n")
		b.WriteString(strings.Join(fields, "\n"))
		b.WriteString("\n")
	}
	b.WriteString("\nSkeleton:\n")
	b.WriteString(skeleton)
	b.WriteString("\n")
	return b.String()
}

// EstimateTokens provides a rough token estimate.
// CJK text is ~2 chars/token, others ~4 chars/token.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	var wide, other int
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			wide++
			continue
		}
		other++
	}
	return (wide+1)/2 + (other+3)/4
}
