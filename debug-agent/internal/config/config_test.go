package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/checker"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Workflow.MaxRetries)
	assert.Equal(t, 3, cfg.Workflow.RetrievalK)
	assert.Equal(t, []string{"syntax-error", "undefined-name", "fatal-parse-error"}, cfg.Workflow.SeverityFilter)
	assert.Equal(t, "chromem", cfg.Retrieval.Backend)
	assert.Equal(t, "codebase_index", cfg.Retrieval.Collection)
	assert.Equal(t, "ollama", cfg.Generation.Provider)
	assert.Equal(t, "qwen2.5-coder:7b", cfg.Generation.Model)
	assert.Equal(t, 0.3, cfg.Generation.Temperature)
	assert.Equal(t, 5*time.Minute, cfg.Generation.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Checker.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
	assert.Empty(t, cfg.Redis.Addr)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, []string{".py"}, cfg.Ingest.Suffixes)
	assert.Equal(t, 500, cfg.Ingest.ChunkSize)
	assert.Equal(t, 50, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DEBUGGER_WORKFLOW_MAX_RETRIES", "5")
	t.Setenv("DEBUGGER_WORKFLOW_SEVERITY_FILTER", "syntax-error, undefined-name")
	t.Setenv("DEBUGGER_GENERATION_PROVIDER", "gemini")
	t.Setenv("DEBUGGER_GENERATION_TEMPERATURE", "0.1")
	t.Setenv("DEBUGGER_CHECKER_TIMEOUT", "5s")
	t.Setenv("DEBUGGER_SERVER_ALLOWED_ORIGINS", "http://localhost:3000,https://app.example.com")
	t.Setenv("DEBUGGER_HISTORY_ENABLED", "true")
	t.Setenv("DEBUGGER_CONFIG", "/ignored.yaml")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Workflow.MaxRetries)
	assert.Equal(t, []string{"syntax-error", "undefined-name"}, cfg.Workflow.SeverityFilter)
	assert.Equal(t, "gemini", cfg.Generation.Provider)
	assert.Equal(t, 0.1, cfg.Generation.Temperature)
	assert.Equal(t, 5*time.Second, cfg.Checker.Timeout)
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.History.Enabled)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
workflow:
  max_retries: 2
  severity_filter: [undefined-name]
retrieval:
  backend: qdrant
qdrant:
  host: qdrant.internal
server:
  port: 9090
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workflow.MaxRetries)
	assert.Equal(t, []string{"undefined-name"}, cfg.Workflow.SeverityFilter)
	assert.Equal(t, "qdrant", cfg.Retrieval.Backend)
	assert.Equal(t, "qdrant.internal", cfg.Qdrant.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Workflow.RetrievalK, "unset keys keep defaults")

	t.Setenv("DEBUGGER_SERVER_PORT", "7070")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port, "env beats file")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"DEBUGGER_WORKFLOW_MAX_RETRIES":     "0",
		"DEBUGGER_WORKFLOW_RETRIEVAL_K":     "-1",
		"DEBUGGER_WORKFLOW_SEVERITY_FILTER": "style",
		"DEBUGGER_RETRIEVAL_BACKEND":        "faiss",
		"DEBUGGER_GENERATION_PROVIDER":      "watsonx",
		"DEBUGGER_EMBEDDING_PROVIDER":       "cohere",
		"DEBUGGER_INGEST_CHUNK_OVERLAP":     "500",
		"DEBUGGER_SERVER_PORT":              "70000",
		"DEBUGGER_LOG_LEVEL":                "verbose",
		"DEBUGGER_LOG_FORMAT":               "xml",
		"DEBUGGER_SERVER_RATE_LIMIT":        "-1",
		"DEBUGGER_SERVER_BURST":             "0",
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, value)
			_, err := Load("")
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad_ZeroRateLimitDisablesLimiter(t *testing.T) {
	t.Setenv("DEBUGGER_SERVER_RATE_LIMIT", "0")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Zero(t, cfg.Server.RateLimit)
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Workflow.MaxRetries = 0
	cfg.Server.Port = 0

	err = cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "workflow.max_retries")
	assert.Contains(t, err.Error(), "server.port")
}

func TestConversions(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cats, err := cfg.Workflow.Categories()
	require.NoError(t, err)
	assert.ElementsMatch(t, checker.DefaultFilter, cats)

	l := cfg.Generation.LLM()
	assert.Equal(t, "ollama", l.Provider)
	assert.Equal(t, 0.3, l.Temperature)
	assert.Empty(t, l.BaseURL)

	e := cfg.Embedding.Embedder()
	assert.Equal(t, "nomic-embed-text", e.Model)

	b := cfg.Backend()
	assert.Equal(t, "chromem", b.Backend)
	assert.Equal(t, "./chromem_db", b.ChromemPath)
	assert.Equal(t, "codebase_index", b.Qdrant.Collection)
}

func TestEnvKey(t *testing.T) {
	k, v := envKey("DEBUGGER_INGEST_TARGET_DIR", "/code")
	assert.Equal(t, "ingest.target_dir", k)
	assert.Equal(t, "/code", v)

	k, v = envKey("DEBUGGER_INGEST_SUFFIXES", ".py,,.pyi")
	assert.Equal(t, "ingest.suffixes", k)
	assert.Equal(t, []string{".py", ".pyi"}, v)

	k, _ = envKey("DEBUGGER_CONFIG", "x.yaml")
	assert.Empty(t, k)
	k, _ = envKey("DEBUGGER_DEBUG", "1")
	assert.Empty(t, k)
}
