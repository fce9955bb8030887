package processing

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	DefaultEmbeddingModel = "nomic-embed-text"
	DefaultOllamaURL      = "http://localhost:11434"
)

var ErrUnknownEmbedder = errors.New("unknown embedding provider")

// EmbedderConfig selects the embedding backend.
type EmbedderConfig struct {
	Provider string // ollama or openai
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

// NewEmbedder builds a langchaingo embedder for cfg.Provider.
func NewEmbedder(cfg EmbedderConfig) (*embeddings.EmbedderImpl, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	var ec embeddings.EmbedderClient
	switch strings.ToLower(cfg.Provider) {
	case "", "ollama":
		url := cfg.BaseURL
		if url == "" {
			url = DefaultOllamaURL
		}
		c, err := ollama.New(ollama.WithModel(model), ollama.WithServerURL(url), ollama.WithHTTPClient(client))
		if err != nil {
			return nil, fmt.Errorf("creating ollama embedder: %w", err)
		}
		ec = c
	case "openai":
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithEmbeddingModel(model),
			openai.WithHTTPClient(client),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		c, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("creating openai embedder: %w", err)
		}
		ec = c
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEmbedder, cfg.Provider)
	}

	// Keep newlines, indentation is significant in python.
	return embeddings.NewEmbedder(ec, embeddings.WithStripNewLines(false))
}
