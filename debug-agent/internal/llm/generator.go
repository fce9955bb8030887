// Package llm provides the model backends that produce candidate fixes.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrUnknownProvider = errors.New("unknown llm provider")
	ErrEmptyResponse   = errors.New("model returned an empty response")
)

// Generator turns a prompt into a completion.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config selects and configures a generation backend.
type Config struct {
	Provider    string // ollama, openai or gemini
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float64
	Timeout     time.Duration

	// Project and Location select Vertex AI for gemini when APIKey is empty.
	Project  string
	Location string
}

// NewGenerator builds the backend named by cfg.Provider.
func NewGenerator(ctx context.Context, cfg Config) (Generator, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	switch strings.ToLower(cfg.Provider) {
	case "", "ollama":
		return NewOllama(cfg.Model, cfg.BaseURL, cfg.Temperature, client)
	case "openai":
		return NewOpenAI(cfg.Model, cfg.APIKey, cfg.BaseURL, cfg.Temperature, client), nil
	case "gemini":
		return NewGemini(ctx, GeminiConfig{
			Model:       cfg.Model,
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Project:     cfg.Project,
			Location:    cfg.Location,
			Temperature: cfg.Temperature,
			HTTPClient:  client,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

func nonEmpty(provider, out string) (string, error) {
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%s: %w", provider, ErrEmptyResponse)
	}
	return out, nil
}
