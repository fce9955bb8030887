package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const (
	DefaultOllamaModel = "qwen2.5-coder:7b"
	DefaultOllamaURL   = "http://localhost:11434"
)

// Ollama generates completions from a local Ollama server.
type Ollama struct {
	llm         *ollama.LLM
	model       string
	temperature float64
}

func NewOllama(model, serverURL string, temperature float64, client *http.Client) (*Ollama, error) {
	if model == "" {
		model = DefaultOllamaModel
	}
	if serverURL == "" {
		serverURL = DefaultOllamaURL
	}
	opts := []ollama.Option{ollama.WithModel(model), ollama.WithServerURL(serverURL)}
	if client != nil {
		opts = append(opts, ollama.WithHTTPClient(client))
	}
	l, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating ollama client: %w", err)
	}
	return &Ollama{llm: l, model: model, temperature: temperature}, nil
}

func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, o.llm, prompt, llms.WithTemperature(o.temperature))
	if err != nil {
		return "", fmt.Errorf("ollama %s: %w", o.model, err)
	}
	return nonEmpty("ollama", out)
}
