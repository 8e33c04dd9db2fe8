// Package templates renders the text the engine sends to the language model
// and the Markdown view of a specification.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/HendryAvila/specwright/internal/model"
)

//go:embed files/*.tmpl
var files embed.FS

// Template names.
const (
	IntakeSystem  = "intake_system.md.tmpl"
	Specification = "specification.md.tmpl"
)

// IntakeData feeds the system prompt of one conversation turn.
type IntakeData struct {
	Stage   string
	Focus   string
	Missing []string
	Summary model.PlainSummary
	Locked  []model.LockedSection
	Topics  []string
}

// SpecificationData feeds the Markdown view of a specification.
type SpecificationData struct {
	SessionID  string
	Stage      string
	Percentage int
	Missing    []string
	Spec       model.Specification
}

// Renderer holds the parsed templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"join":  strings.Join,
		"lines": bullets,
		"inc":   func(i int) int { return i + 1 },
	}
	tmpl, err := template.New("").Funcs(funcs).ParseFS(files, "files/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render executes the named template.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}

// bullets renders a list as Markdown bullets, or a placeholder when empty.
func bullets(items []string) string {
	if len(items) == 0 {
		return "_Not yet discussed._"
	}
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(it)
	}
	return b.String()
}
