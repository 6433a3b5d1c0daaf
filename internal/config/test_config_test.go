package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaultsValidate(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  model: gpt-4o
  rps: 2
architect:
  concurrency: 3
implement:
  max_attempts: 2
  agent_timeout: 90s
  verify_command: ["pytest", "-q", "{file}"]
log:
  level: debug
`), 0o644))

	cfg, err := LoadWith(path, envMap(map[string]string{
		"SPARC_MODEL":        "gemini-2.0-flash",
		"GEMINI_API_KEY":     "g-key",
		"SPARC_MAX_ATTEMPTS": "4",
	}))
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Model, "env beats file")
	assert.Equal(t, 2.0, cfg.LLM.RPS)
	assert.Equal(t, "g-key", cfg.LLM.GeminiAPIKey)
	assert.Equal(t, 3, cfg.Architect.Concurrency)
	assert.Equal(t, 4, cfg.Implement.MaxAttempts)
	assert.Equal(t, 90*time.Second, cfg.Implement.AgentTimeout)
	assert.Equal(t, 60*time.Second, cfg.Implement.VerifyTimeout, "default kept")
	assert.Equal(t, []string{"pytest", "-q", "{file}"}, cfg.Implement.VerifyCommand)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Artifacts.Enabled)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := LoadWith(filepath.Join(t.TempDir(), "missing.yaml"), envMap(nil))
	assert.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := LoadWith("", envMap(map[string]string{"SPARC_PROVIDER": "bogus"}))
	assert.ErrorContains(t, err, "invalid config")

	_, err = LoadWith("", envMap(map[string]string{"SPARC_MAX_ATTEMPTS": "zero"}))
	assert.ErrorContains(t, err, "SPARC_MAX_ATTEMPTS")

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("architect:\n  concurrency: 0\n"), 0o644))
	_, err = LoadWith(path, envMap(nil))
	assert.Error(t, err)
}

func TestArtifactMirrorFromEnv(t *testing.T) {
	cfg, err := LoadWith("", envMap(map[string]string{
		"ARTIFACT_S3_ENDPOINT":   "localhost:9000",
		"ARTIFACT_S3_ACCESS_KEY": "minio",
		"ARTIFACT_S3_SECRET_KEY": "minio123",
		"ARTIFACT_S3_USE_SSL":    "true",
	}))
	require.NoError(t, err)
	assert.True(t, cfg.Artifacts.Enabled)
	assert.Equal(t, "localhost:9000", cfg.Artifacts.Endpoint)
	assert.Equal(t, "minio", cfg.Artifacts.AccessKey)
	assert.True(t, cfg.Artifacts.UseSSL)
	assert.Equal(t, "sparcflow-artifacts", cfg.Artifacts.Bucket)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LogConfig{Level: "warn", Format: "json"}, &buf)
	log.Info("hidden")
	log.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
