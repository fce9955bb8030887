// Package config loads the agent configuration from defaults, an optional
// YAML file and DEBUGGER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/checker"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/llm"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/processing"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/storage"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Workflow   WorkflowConfig   `koanf:"workflow"`
	Retrieval  RetrievalConfig  `koanf:"retrieval"`
	Postgres   PostgresConfig   `koanf:"postgres"`
	Qdrant     QdrantConfig     `koanf:"qdrant"`
	Chromem    ChromemConfig    `koanf:"chromem"`
	Embedding  EmbeddingConfig  `koanf:"embedding"`
	Generation GenerationConfig `koanf:"generation"`
	Checker    CheckerConfig    `koanf:"checker"`
	Redis      RedisConfig      `koanf:"redis"`
	History    HistoryConfig    `koanf:"history"`
	Ingest     IngestConfig     `koanf:"ingest"`
	Server     ServerConfig     `koanf:"server"`
	Log        LogConfig        `koanf:"log"`
}

type WorkflowConfig struct {
	MaxRetries     int      `koanf:"max_retries"`
	RetrievalK     int      `koanf:"retrieval_k"`
	SeverityFilter []string `koanf:"severity_filter"`
}

type RetrievalConfig struct {
	Backend    string `koanf:"backend"`
	Collection string `koanf:"collection"`
}

type PostgresConfig struct {
	URL string `koanf:"url"`
}

type QdrantConfig struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	APIKey string `koanf:"api_key"`
	UseTLS bool   `koanf:"use_tls"`
}

type ChromemConfig struct {
	Path string `koanf:"path"`
}

type EmbeddingConfig struct {
	Provider string        `koanf:"provider"`
	Model    string        `koanf:"model"`
	BaseURL  string        `koanf:"base_url"`
	APIKey   string        `koanf:"api_key"`
	Timeout  time.Duration `koanf:"timeout"`
}

type GenerationConfig struct {
	Provider    string        `koanf:"provider"`
	Model       string        `koanf:"model"`
	Temperature float64       `koanf:"temperature"`
	BaseURL     string        `koanf:"base_url"`
	APIKey      string        `koanf:"api_key"`
	Timeout     time.Duration `koanf:"timeout"`
	Project     string        `koanf:"project"`
	Location    string        `koanf:"location"`
}

type CheckerConfig struct {
	Command string        `koanf:"command"`
	Timeout time.Duration `koanf:"timeout"`
}

// RedisConfig enables the query embedding cache when Addr is set.
type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TTL      time.Duration `koanf:"ttl"`
}

type HistoryConfig struct {
	Enabled bool `koanf:"enabled"`
}

type IngestConfig struct {
	TargetDir    string   `koanf:"target_dir"`
	Suffixes     []string `koanf:"suffixes"`
	ChunkSize    int      `koanf:"chunk_size"`
	ChunkOverlap int      `koanf:"chunk_overlap"`
}

type ServerConfig struct {
	Port           int      `koanf:"port"`
	RateLimit      float64  `koanf:"rate_limit"`
	Burst          int      `koanf:"burst"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

var (
	backends            = map[string]bool{"chromem": true, "pgvector": true, "qdrant": true}
	embeddingProviders  = map[string]bool{"ollama": true, "openai": true}
	generationProviders = map[string]bool{"ollama": true, "openai": true, "gemini": true}
)

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Workflow.MaxRetries < 1 {
		bad("workflow.max_retries must be at least 1, got %d", c.Workflow.MaxRetries)
	}
	if c.Workflow.RetrievalK < 1 {
		bad("workflow.retrieval_k must be at least 1, got %d", c.Workflow.RetrievalK)
	}
	if len(c.Workflow.SeverityFilter) == 0 {
		bad("workflow.severity_filter must not be empty")
	} else if _, err := checker.ParseCategories(c.Workflow.SeverityFilter); err != nil {
		bad("workflow.severity_filter: %v", err)
	}
	if !backends[strings.ToLower(c.Retrieval.Backend)] {
		bad("retrieval.backend %q is not one of chromem, pgvector, qdrant", c.Retrieval.Backend)
	}
	if !embeddingProviders[strings.ToLower(c.Embedding.Provider)] {
		bad("embedding.provider %q is not one of ollama, openai", c.Embedding.Provider)
	}
	if !generationProviders[strings.ToLower(c.Generation.Provider)] {
		bad("generation.provider %q is not one of ollama, openai, gemini", c.Generation.Provider)
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		bad("generation.temperature must be within [0, 2], got %g", c.Generation.Temperature)
	}
	if c.Checker.Timeout <= 0 {
		bad("checker.timeout must be positive")
	}
	if c.Ingest.ChunkSize <= 0 || c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		bad("ingest.chunk_overlap must be in [0, chunk_size), got size=%d overlap=%d", c.Ingest.ChunkSize, c.Ingest.ChunkOverlap)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		bad("server.port %d out of range", c.Server.Port)
	}
	// rate_limit 0 turns the limiter off.
	if c.Server.RateLimit < 0 {
		bad("server.rate_limit must not be negative, got %g", c.Server.RateLimit)
	}
	if c.Server.Burst < 1 {
		bad("server.burst must be at least 1, got %d", c.Server.Burst)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		bad("log.level: %v", err)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		bad("log.format %q is not one of json, console", c.Log.Format)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// Categories returns the parsed severity filter.
func (w WorkflowConfig) Categories() ([]checker.Category, error) {
	return checker.ParseCategories(w.SeverityFilter)
}

func (g GenerationConfig) LLM() llm.Config {
	return llm.Config{
		Provider:    g.Provider,
		Model:       g.Model,
		BaseURL:     g.BaseURL,
		APIKey:      g.APIKey,
		Temperature: g.Temperature,
		Timeout:     g.Timeout,
		Project:     g.Project,
		Location:    g.Location,
	}
}

func (e EmbeddingConfig) Embedder() processing.EmbedderConfig {
	return processing.EmbedderConfig{
		Provider: e.Provider,
		Model:    e.Model,
		BaseURL:  e.BaseURL,
		APIKey:   e.APIKey,
		Timeout:  e.Timeout,
	}
}

// Backend assembles the vector store settings.
func (c *Config) Backend() storage.BackendConfig {
	return storage.BackendConfig{
		Backend:     c.Retrieval.Backend,
		Collection:  c.Retrieval.Collection,
		ChromemPath: c.Chromem.Path,
		PostgresURL: c.Postgres.URL,
		Qdrant: storage.QdrantConfig{
			Host:       c.Qdrant.Host,
			Port:       c.Qdrant.Port,
			APIKey:     c.Qdrant.APIKey,
			UseTLS:     c.Qdrant.UseTLS,
			Collection: c.Retrieval.Collection,
		},
	}
}
