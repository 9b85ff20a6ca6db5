package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/pretty"

	"github.com/yourorg/restdoc/pkg/types"
)

// Output formats.
const (
	FormatMarkdown = "markdown"
	FormatOpenAPI  = "openapi"
	FormatHTML     = "html"
	FormatJSON     = "json"
)

// RenderOptions control where and how documentation is written.
type RenderOptions struct {
	OutputDir    string
	CSSPath      string
	TemplatePath string
}

// Render writes doc in every requested format and returns the written paths.
func Render(doc *types.Documentation, formats []string, opts RenderOptions) ([]string, error) {
	var written []string
	for _, format := range formats {
		var (
			paths []string
			err   error
		)
		switch format {
		case FormatMarkdown:
			paths, err = RenderMarkdown(doc, opts.OutputDir)
		case FormatOpenAPI:
			paths, err = RenderOpenAPI(doc, opts.OutputDir)
		case FormatHTML:
			paths, err = RenderHTMLFile(doc, opts)
		case FormatJSON:
			paths, err = RenderJSON(doc, opts.OutputDir)
		default:
			err = fmt.Errorf("unknown output format %q", format)
		}
		if err != nil {
			return written, fmt.Errorf("render %s: %w", format, err)
		}
		written = append(written, paths...)
	}
	return written, nil
}

// RenderMarkdown renders README.md (endpoint index) and api-docs.md.
func RenderMarkdown(doc *types.Documentation, outputDir string) ([]string, error) {
	if doc == nil {
		return nil, fmt.Errorf("doc is nil")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}

	readme := &strings.Builder{}
	fmt.Fprintf(readme, "# %s\n\n", doc.Title)
	if doc.Version != "" {
		fmt.Fprintf(readme, "Version: %s\n\n", doc.Version)
	}
	fmt.Fprintln(readme, "## Endpoints")
	for _, c := range doc.Controllers {
		for _, m := range c.Methods {
			for _, hm := range m.HTTPMethods {
				fmt.Fprintf(readme, "- %s %s: %s (%s)\n", hm.Method, m.URI, hm.Name, c.Name)
			}
		}
	}

	apiDocs := &strings.Builder{}
	fmt.Fprintf(apiDocs, "# %s\n", doc.Title)
	if doc.Version != "" {
		fmt.Fprintf(apiDocs, "\nVersion: %s\n", doc.Version)
	}
	for _, c := range doc.Controllers {
		fmt.Fprintf(apiDocs, "\n## %s (`%s`)\n", c.Name, c.URI)
		if c.Description != "" {
			fmt.Fprintf(apiDocs, "\n%s\n", c.Description)
		}
		for _, m := range c.Methods {
			for _, hm := range m.HTTPMethods {
				writeMarkdownMethod(apiDocs, m.URI, hm)
			}
		}
	}
	if len(doc.Enums) > 0 {
		fmt.Fprintln(apiDocs, "\n## Enumerations")
		for _, e := range doc.Enums {
			fmt.Fprintf(apiDocs, "\n### %s\n", types.SimpleName(e.Name))
			if e.Doc != "" {
				fmt.Fprintf(apiDocs, "\n%s\n", e.Doc)
			}
			if len(e.Values) > 0 {
				apiDocs.WriteString("\n")
				for _, v := range e.Values {
					fmt.Fprintf(apiDocs, "- `%s`\n", v)
				}
			}
		}
	}

	readmePath := filepath.Join(outputDir, "README.md")
	apiPath := filepath.Join(outputDir, "api-docs.md")
	if err := os.WriteFile(readmePath, []byte(readme.String()), 0o644); err != nil {
		return nil, err
	}
	if err := os.WriteFile(apiPath, []byte(apiDocs.String()), 0o644); err != nil {
		return nil, err
	}
	return []string{readmePath, apiPath}, nil
}

func writeMarkdownMethod(b *strings.Builder, uri string, hm types.HTTPMethod) {
	fmt.Fprintf(b, "\n### %s %s\n", hm.Method, uri)
	fmt.Fprintf(b, "\n**%s**", hm.Name)
	if hm.Description != "" {
		fmt.Fprintf(b, ": %s", hm.Description)
	}
	b.WriteString("\n")
	if hm.Degraded {
		fmt.Fprintf(b, "\n> Degraded: %s\n", strings.Join(hm.Problems, "; "))
	}
	if len(hm.Params) > 0 {
		b.WriteString("\n#### Parameters\n\n")
		b.WriteString("| Name | Type | In | Required | Default | Description |\n")
		b.WriteString("|------|------|----|----------|---------|-------------|\n")
		for _, p := range hm.Params {
			fmt.Fprintf(b, "| %s | `%s` | %s | %s | %s | %s |\n", p.Name, p.Type.ShortString(), p.Location, yesNo(p.Required), p.Default, cell(p.Description))
			for _, f := range fieldRows(p.Fields) {
				fmt.Fprintf(b, "| %s.%s | `%s` | %s | %s |  | %s |\n", p.Name, f.Name, f.Type.ShortString(), p.Location, yesNo(f.Required), cell(f.Description))
			}
		}
	}
	if hm.RequestBody != nil {
		fmt.Fprintf(b, "\n#### Request Body `%s`\n", hm.RequestBody.Type.ShortString())
		if hm.RequestBody.Description != "" {
			fmt.Fprintf(b, "\n%s\n", hm.RequestBody.Description)
		}
		writeFieldTable(b, hm.RequestBody.Fields)
	}
	if hm.Return != nil {
		fmt.Fprintf(b, "\n#### Response `%s`\n", hm.Return.Type.ShortString())
		if hm.Return.Description != "" {
			fmt.Fprintf(b, "\n%s\n", hm.Return.Description)
		}
		writeFieldTable(b, hm.Return.Fields)
	}
	if len(hm.ResponseStatuses) > 0 {
		b.WriteString("\n#### Response Statuses\n\n")
		for _, s := range hm.ResponseStatuses {
			fmt.Fprintf(b, "- %d: %s\n", s.Code, s.Description)
		}
	}
	lang := hm.Example.Format
	if hm.Example.Request != "" {
		fmt.Fprintf(b, "\n#### Example Request\n\n```%s\n%s\n```\n", lang, hm.Example.Request)
	}
	if hm.Example.Response != "" {
		fmt.Fprintf(b, "\n#### Example Response\n\n```%s\n%s\n```\n", lang, hm.Example.Response)
	}
	if len(hm.Enums) > 0 {
		names := make([]string, len(hm.Enums))
		for i, e := range hm.Enums {
			names[i] = types.SimpleName(e)
		}
		fmt.Fprintf(b, "\nEnumerations: %s\n", strings.Join(names, ", "))
	}
}

func writeFieldTable(b *strings.Builder, fields []*types.ParameterNode) {
	rows := fieldRows(fields)
	if len(rows) == 0 {
		return
	}
	b.WriteString("\n| Field | Type | Required | Description |\n")
	b.WriteString("|-------|------|----------|-------------|\n")
	for _, f := range rows {
		fmt.Fprintf(b, "| %s | `%s` | %s | %s |\n", f.Name, f.Type.ShortString(), yesNo(f.Required), cell(f.Description))
	}
}

// fieldRows drops the root entry of a flattened parameter sequence.
func fieldRows(fields []*types.ParameterNode) []*types.ParameterNode {
	if len(fields) <= 1 {
		return nil
	}
	return fields[1:]
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

// RenderJSON writes the documentation model to doc.json.
func RenderJSON(doc *types.Documentation, outputDir string) ([]string, error) {
	if doc == nil {
		return nil, fmt.Errorf("doc is nil")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	data, err := MarshalJSON(doc)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(outputDir, "doc.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

// MarshalJSON encodes v pretty printed without HTML escaping.
func MarshalJSON(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return pretty.Pretty(buf.Bytes()), nil
}
