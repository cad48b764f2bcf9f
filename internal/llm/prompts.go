package llm

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/adrg/frontmatter"
)

const systemPrompt = `You are a meticulous librarian who organizes browser bookmarks. You answer with a single JSON object and nothing else.`

// Prompt is a system message plus a user message template.
type Prompt struct {
	Name        string
	System      string
	Temperature float64

	tmpl *template.Template
}

// promptHeader is the YAML header accepted in prompt override files.
type promptHeader struct {
	System      string   `yaml:"system"`
	Temperature *float64 `yaml:"temperature"`
}

func newPrompt(name, system string, temperature float64, body string) (*Prompt, error) {
	tmpl, err := template.New(name).Funcs(template.FuncMap{"join": strings.Join}).Parse(body)
	if err != nil {
		return nil, fmt.Errorf("invalid %s prompt: %w", name, err)
	}
	return &Prompt{Name: name, System: system, Temperature: temperature, tmpl: tmpl}, nil
}

// Render executes the user template with data.
func (p *Prompt) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", p.Name, err)
	}
	return buf.String(), nil
}

// Prompts holds every prompt the client uses.
type Prompts struct {
	Classify *Prompt
	Liveness *Prompt
	Reduce   *Prompt
}

// DefaultPrompts returns the built in prompts.
func DefaultPrompts() *Prompts {
	return &Prompts{
		Classify: mustPrompt("classify", systemPrompt, 0.1, classifyTemplate),
		Liveness: mustPrompt("liveness", systemPrompt, 0.0, livenessTemplate),
		Reduce:   mustPrompt("reduce", systemPrompt, 0.3, reduceTemplate),
	}
}

func mustPrompt(name, system string, temperature float64, body string) *Prompt {
	p, err := newPrompt(name, system, temperature, body)
	if err != nil {
		panic(err)
	}
	return p
}

// LoadPrompts starts from the defaults and replaces any prompt that has a
// <name>.md file in dir. Files may carry a YAML header setting system and
// temperature.
func LoadPrompts(dir string) (*Prompts, error) {
	prompts := DefaultPrompts()
	if dir == "" {
		return prompts, nil
	}

	for name, slot := range map[string]**Prompt{
		"classify": &prompts.Classify,
		"liveness": &prompts.Liveness,
		"reduce":   &prompts.Reduce,
	} {
		path := filepath.Join(dir, name+".md")
		content, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt %s: %w", path, err)
		}

		var header promptHeader
		body, err := frontmatter.Parse(strings.NewReader(string(content)), &header)
		if err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter in %s: %w", path, err)
		}

		current := *slot
		system, temperature := current.System, current.Temperature
		if header.System != "" {
			system = header.System
		}
		if header.Temperature != nil {
			temperature = *header.Temperature
		}

		p, err := newPrompt(name, system, temperature, string(body))
		if err != nil {
			return nil, err
		}
		*slot = p
		slog.Info("loaded prompt override", "prompt", name, "path", path)
	}

	return prompts, nil
}

const classifyTemplate = `Choose a bookmark folder for the web page below.

Rules:
- Answer with JSON: {"folder": "Top/Sub"}
- Use 1 to {{.MaxDepth}} folder names separated by "/". Start broad, then narrow down.
- Reuse an existing folder whenever one fits; only invent a new one when nothing fits.
- Folder names are short (1-2 words), use proper Capitalization, and use "&" instead of "and".
- Good top-level folders look like: {{join .Suggested ", "}}.
{{- if .Existing}}

Existing folders:
{{- range .Existing}}
- {{.}}
{{- end}}
{{- end}}

Page:
URL: {{.URL}}
Title: {{.Title}}
{{- if .Description}}
Description: {{.Description}}
{{- end}}
{{- if .Keywords}}
Keywords: {{join .Keywords ", "}}
{{- end}}
{{- if .NavText}}
Navigation: {{.NavText}}
{{- end}}
Content:
{{.Text}}
`

const livenessTemplate = `Analyse the text of this web page carefully.
Is the website operating normally, or is it dead? A website is dead when any of the following is shown:
- 404 error or "Page Not Found"
- a domain parking page
- the domain is for sale
- the domain or its DNS records still need to be configured
- a message for the domain owner
- the account was not paid

URL: {{.URL}}
Text:
{{.Text}}

Answer with JSON: {"status": "alive"} or {"status": "dead"}
`

const reduceTemplate = `Group similar or overlapping bookmark folders together.
Fewer folders are better; do not produce more than {{.Max}} groups.

Folders:
{{- range .Folders}}
- {{.}}
{{- end}}

Rules:
- Every input folder must appear in exactly one group.
- Name each group with the most concise name (1-2 words), proper Capitalization, "&" instead of "and".

Answer with a JSON object mapping each group name to the list of input folders it contains:
{"Group": ["Input A", "Input B"]}
`
