package generator

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/sprig/v3"

	"github.com/yourorg/restdoc/pkg/types"
)

//go:embed templates/doc.html.tmpl
var templateFS embed.FS

const defaultTemplate = "templates/doc.html.tmpl"

type htmlData struct {
	Doc     *types.Documentation
	CSSPath string
}

func htmlFuncs() template.FuncMap {
	funcs := sprig.FuncMap()
	funcs["simple"] = types.SimpleName
	funcs["rows"] = fieldRows
	funcs["yesno"] = yesNo
	funcs["anchor"] = anchor
	return funcs
}

// loadTemplate parses the template at path, or the embedded default when
// path is empty.
func loadTemplate(path string) (*template.Template, error) {
	var (
		text []byte
		err  error
	)
	if path == "" {
		text, err = templateFS.ReadFile(defaultTemplate)
	} else {
		text, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	tmpl, err := template.New("doc").Funcs(htmlFuncs()).Parse(string(text))
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return tmpl, nil
}

// RenderHTML executes the documentation template into w.
func RenderHTML(w io.Writer, doc *types.Documentation, opts RenderOptions) error {
	if doc == nil {
		return fmt.Errorf("doc is nil")
	}
	tmpl, err := loadTemplate(opts.TemplatePath)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, htmlData{Doc: doc, CSSPath: opts.CSSPath})
}

// RenderHTMLFile writes OutputDir/index.html.
func RenderHTMLFile(doc *types.Documentation, opts RenderOptions) ([]string, error) {
	buf := &bytes.Buffer{}
	if err := RenderHTML(buf, doc, opts); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(opts.OutputDir, "index.html")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func anchor(name string) string {
	return strings.NewReplacer(".", "-", "/", "-", "$", "-").Replace(strings.ToLower(name))
}
