package graph

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"go.uber.org/zap"
)

//go:embed prompts/analyze.tmpl
var promptFS embed.FS

var defaultPrompt = template.Must(template.ParseFS(promptFS, "prompts/analyze.tmpl"))

// PromptData is what the analyze template is rendered with.
type PromptData struct {
	Query     string
	Context   []string
	LastError string
	Attempt   int
}

// RenderPrompt renders t for the current state. Attempt is the 1-based
// number of the attempt about to be made.
func RenderPrompt(t *template.Template, s *State) (string, error) {
	var b strings.Builder
	err := t.Execute(&b, PromptData{
		Query:     s.Query,
		Context:   s.Context,
		LastError: s.LastError,
		Attempt:   s.Iterations + 1,
	})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return b.String(), nil
}

func (e *Engine) analyze(ctx context.Context, s *State) error {
	prompt, err := RenderPrompt(e.prompt, s)
	if err != nil {
		return err
	}
	e.logger.Info("generating fix", zap.Int("attempt", s.Iterations+1), zap.Bool("corrective", s.LastError != NoError))

	answer, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		return err
	}
	s.Answer = answer
	s.Iterations++
	return nil
}
