package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/config"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/graph"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/llm"
	"github.com/Divas-Gupta30/agentic-debugger/debug-agent/internal/processing"
)

// testConfig is the default configuration with an in-memory index.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Chromem.Path = ""
	cfg.Ingest.TargetDir = t.TempDir()
	cfg.Log.Level = "error"
	return cfg
}

func TestNewApp_Wiring(t *testing.T) {
	a, err := newApp(t.Context(), testConfig(t))
	require.NoError(t, err)

	assert.NotNil(t, a.index)
	assert.NotNil(t, a.engine)
	assert.NotNil(t, a.ingester)
	assert.Nil(t, a.history, "history is off by default")
	assert.Nil(t, a.redis, "no redis address configured")
	assert.Contains(t, a.checks, "checker")
	assert.NotContains(t, a.checks, "redis")
	assert.Equal(t, []string{".py"}, a.ingester.Suffixes)

	assert.NoError(t, a.Close())
}

func TestNewApp_EmptyTreeLeavesIndexUnchanged(t *testing.T) {
	a, err := newApp(t.Context(), testConfig(t))
	require.NoError(t, err)
	defer a.Close()

	rep, err := a.ingester.Run(t.Context())
	require.NoError(t, err)
	assert.False(t, rep.Indexed)
}

func TestNewApp_EmbedderError(t *testing.T) {
	cfg := testConfig(t)
	cfg.Embedding.Provider = "word2vec"

	var err error
	assert.NotPanics(t, func() {
		var a *app
		a, err = newApp(t.Context(), cfg)
		assert.Nil(t, a)
	})
	assert.ErrorIs(t, err, processing.ErrUnknownEmbedder)
}

func TestNewApp_GeneratorErrorClosesWhatWasOpened(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Addr = mr.Addr()
	cfg.Generation.Provider = "bard"

	var err error
	assert.NotPanics(t, func() {
		_, err = newApp(t.Context(), cfg)
	})
	assert.ErrorIs(t, err, llm.ErrUnknownProvider)

	assert.Positive(t, mr.TotalConnectionCount(), "redis was dialled before the generator failed")
	assert.Eventually(t, func() bool { return mr.CurrentConnectionCount() == 0 },
		time.Second, 10*time.Millisecond, "redis client left open")
}

func TestNewApp_GeminiWithoutCredentials(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generation.Provider = "gemini"
	cfg.Generation.APIKey = ""
	cfg.Generation.Project = ""

	_, err := newApp(t.Context(), cfg)
	assert.ErrorIs(t, err, llm.ErrGeminiAuth)
}

func TestApp_CloseIsSafeOnPartialApp(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.NoError(t, (&app{}).Close())
	})
}

// useConfigFlag sets --config for one test.
func useConfigFlag(t *testing.T, path string) {
	t.Helper()
	prev := configPath
	configPath = path
	t.Cleanup(func() { configPath = prev })
}

// unsetEnv removes key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	useConfigFlag(t, "")
	unsetEnv(t, config.EnvConfig)
	unsetEnv(t, "DEBUGGER_WORKFLOW_MAX_RETRIES")
	writeFile(t, filepath.Join(dir, ".env"), "DEBUGGER_WORKFLOW_MAX_RETRIES=5\n")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Workflow.MaxRetries)
}

func TestLoadConfig_NoDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	useConfigFlag(t, "")
	unsetEnv(t, config.EnvConfig)
	unsetEnv(t, "DEBUGGER_WORKFLOW_MAX_RETRIES")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workflow.MaxRetries)
}

func TestLoadConfig_EnvFallbackAndFlag(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	unsetEnv(t, "DEBUGGER_WORKFLOW_MAX_RETRIES")
	fromEnv := writeFile(t, filepath.Join(dir, "env.yaml"), "workflow:\n  max_retries: 7\n")
	fromFlag := writeFile(t, filepath.Join(dir, "flag.yaml"), "workflow:\n  max_retries: 9\n")
	t.Setenv(config.EnvConfig, fromEnv)

	useConfigFlag(t, "")
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Workflow.MaxRetries, "DEBUGGER_CONFIG is used without --config")

	useConfigFlag(t, fromFlag)
	cfg, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Workflow.MaxRetries, "--config wins over DEBUGGER_CONFIG")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	useConfigFlag(t, filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := loadConfig()
	assert.Error(t, err)
}

func TestPrintResult(t *testing.T) {
	tests := []struct {
		name string
		res  graph.Result
		want string
	}{
		{
			name: "validated",
			res:  graph.Result{Answer: "x = 1", Iterations: 1, Validated: true, LastError: graph.NoError},
			want: "\n=== FIX ===\nx = 1\n\niterations: 1\nvalidated: yes\n",
		},
		{
			name: "best effort",
			res:  graph.Result{Answer: "print('oops)", Iterations: 3, LastError: "E999 SyntaxError"},
			want: "\n=== FIX ===\nprint('oops)\n\niterations: 3\nvalidated: no (max retries reached)\nlast error: E999 SyntaxError\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printResult(&buf, &tt.res)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}
