package analysis

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"text/template"
)

//go:embed prompts/*.tmpl
var embeddedPrompts embed.FS

const (
	analyzeTemplate   = "analyze.tmpl"
	aggregateTemplate = "aggregate.tmpl"
)

// Prompts holds the instruction templates sent to the inference backend.
type Prompts struct {
	analyze   *template.Template
	aggregate *template.Template
}

// LoadPrompts reads analyze.tmpl and aggregate.tmpl from dir, or the built-in
// copies when dir is empty.
func LoadPrompts(dir string) (*Prompts, error) {
	const op = "internal.analysis.LoadPrompts"

	var fsys fs.FS

	if dir == "" {
		sub, err := fs.Sub(embeddedPrompts, "prompts")
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		fsys = sub
	} else {
		fsys = os.DirFS(dir)
	}

	analyze, err := template.ParseFS(fsys, analyzeTemplate)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse %s: %w", op, analyzeTemplate, err)
	}

	aggregate, err := template.ParseFS(fsys, aggregateTemplate)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse %s: %w", op, aggregateTemplate, err)
	}

	return &Prompts{analyze: analyze, aggregate: aggregate}, nil
}

// MustLoadPrompts is LoadPrompts for startup code.
func MustLoadPrompts(dir string) *Prompts {
	p, err := LoadPrompts(dir)
	if err != nil {
		panic(err)
	}

	return p
}

func (p *Prompts) renderAnalyze(code string) (string, error) {
	return render(p.analyze, struct{ Code string }{Code: code})
}

func (p *Prompts) renderAggregate(data string) (string, error) {
	return render(p.aggregate, struct{ Data string }{Data: data})
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
