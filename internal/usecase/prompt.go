package usecase

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"pdfrag/internal/domain"
)

//go:embed templates/answer_prompt.txt
var defaultPromptTemplate string

// PromptData is what prompt templates can reference.
type PromptData struct {
	Context  string
	Question string
}

// PromptBuilder renders the answer prompt.
type PromptBuilder struct {
	tmpl *template.Template
}

// NewPromptBuilder parses the template at path, or the built-in one when
// path is empty.
func NewPromptBuilder(path string) (*PromptBuilder, error) {
	text := defaultPromptTemplate
	name := "answer_prompt"
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read prompt template: %v", domain.ErrInvalidConfig, err)
		}
		text = string(data)
		name = path
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template %s: %v", domain.ErrInvalidConfig, name, err)
	}
	return &PromptBuilder{tmpl: tmpl}, nil
}

func (b *PromptBuilder) Build(context, question string) (string, error) {
	var sb strings.Builder
	if err := b.tmpl.Execute(&sb, PromptData{Context: context, Question: question}); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return sb.String(), nil
}
