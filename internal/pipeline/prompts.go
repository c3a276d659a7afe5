package pipeline

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/Iron-Ham/conclave/internal/store"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
}

// builtin holds the parsed embedded templates, keyed by file name.
var builtin = template.Must(template.New("builtin").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.tmpl"))

// promptData is the value every prompt template is executed against.
type promptData struct {
	RunID      string
	Input      string
	Task       Task
	Ideas      []Idea
	Executions []Execution
}

// prompts renders the system and user prompt for one task. A task with a
// Prompt path loads its system template from the store; when that fails the
// built-in template is used and the returned warning is non-nil.
func (o *Orchestrator) prompts(stage Stage, data promptData) (system, user string, warning error, err error) {
	var custom string
	if data.Task.Prompt != "" {
		custom, warning = o.loadTemplate(data.Task.Prompt)
	}

	if custom != "" {
		system, err = renderText(data.Task.Prompt, custom, data)
	} else {
		system, err = renderBuiltin(string(stage)+"_system.tmpl", data)
	}
	if err != nil {
		return "", "", warning, err
	}

	user, err = renderBuiltin(string(stage)+"_user.tmpl", data)
	if err != nil {
		return "", "", warning, err
	}
	return strings.TrimSpace(system), strings.TrimSpace(user), warning, nil
}

func (o *Orchestrator) loadTemplate(path string) (string, error) {
	if o.store == nil {
		return "", fmt.Errorf("prompt template %s: no content store configured", path)
	}
	text, err := o.store.ReadBlob(store.Handle{Path: path})
	if err != nil {
		return "", fmt.Errorf("prompt template %s: %w", path, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("prompt template %s is empty", path)
	}
	return text, nil
}

func renderBuiltin(name string, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := builtin.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func renderText(name, text string, data promptData) (string, error) {
	tmpl, err := template.New(name).Funcs(templateFuncs).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
