package prompts

import (
	"bytes"
	"embed"
	"text/template"
)

//go:embed templates/*
var templatesFS embed.FS

type ToolDescription struct {
	Name        string
	Description string
}

type SystemPromptData struct {
	Tools         []ToolDescription
	MaxToolRounds int
	// History is the formatted previous conversation, empty for a new session.
	History string
}

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// RenderSystemPrompt renders the answering system prompt using embedded Go templates
func RenderSystemPrompt(data SystemPromptData) (string, error) {
	if data.MaxToolRounds <= 0 {
		data.MaxToolRounds = 1
	}
	return render("templates/system_prompt.md", data)
}

func render(path string, data any) (string, error) {
	content, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(path).Funcs(funcs).Parse(string(content))
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
