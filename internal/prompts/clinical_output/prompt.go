package clinical_output

import (
	"bytes"
	_ "embed"
	"text/template"
)

//go:embed system.tmpl
var systemPromptTmpl string

//go:embed user.tmpl
var userPromptTmpl string

var (
	systemTemplate = template.Must(template.New("system").Parse(systemPromptTmpl))
	userTemplate   = template.Must(template.New("user").Parse(userPromptTmpl))
)

// SystemData holds the variables for the system prompt template.
type SystemData struct {
	Schema            string
	LocaleInstruction string
}

// UserData holds the variables for the user prompt template.
type UserData struct {
	Text     string
	Guidance string
}

// SystemPrompt builds the system prompt for clinical output suggestions.
func SystemPrompt(data SystemData) string {
	var buf bytes.Buffer
	if err := systemTemplate.Execute(&buf, data); err != nil {
		return systemPromptTmpl
	}
	return buf.String()
}

// UserPrompt builds the user prompt for clinical output suggestions.
func UserPrompt(data UserData) string {
	var buf bytes.Buffer
	if err := userTemplate.Execute(&buf, data); err != nil {
		return userPromptTmpl
	}
	return buf.String()
}
