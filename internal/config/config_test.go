package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENROUTER_API_KEY", "CANDLECHAT_API_KEY", "CANDLECHAT_GEMINI_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gemini", c.DefaultProvider)
	assert.Equal(t, "gemini-2.0-flash", c.DefaultModel)
	assert.Equal(t, 500, c.ChartLimit)
	assert.Equal(t, 60*time.Second, c.GenerationTimeout())
	assert.Equal(t, 500*time.Millisecond, c.RetryBaseDelay())
	assert.False(t, c.DemoMode)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Set("demo_mode", "true"))
	require.NoError(t, c.Set("chart_limit", "120"))
	require.NoError(t, c.Set("gemini_api_key", "g-secret"))
	require.NoError(t, Save(c, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := Load(path)
	require.NoError(t, err)
	assert.True(t, got.DemoMode)
	assert.Equal(t, 120, got.ChartLimit)
	assert.Equal(t, "g-secret", got.GeminiAPIKey)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("CANDLECHAT_DEMO_MODE", "true")
	t.Setenv("CANDLECHAT_DEFAULT_MODEL", "gemini-1.5-pro")
	t.Setenv("GOOGLE_API_KEY", "from-google")
	t.Setenv("OPENROUTER_API_KEY", "from-openrouter")
	c, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.True(t, c.DemoMode)
	assert.Equal(t, "gemini-1.5-pro", c.DefaultModel)
	assert.Equal(t, "from-google", c.GeminiAPIKey)
	assert.Equal(t, "from-openrouter", c.APIKey)
}

func TestPrefixedKeyWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("CANDLECHAT_GEMINI_API_KEY", "prefixed")
	t.Setenv("GEMINI_API_KEY", "plain")
	c, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "prefixed", c.GeminiAPIKey)
}

func TestSetValidation(t *testing.T) {
	var c Global
	tests := []struct {
		key, value string
		ok         bool
	}{
		{"default_provider", "Ollama", true},
		{"default_provider", "acme", false},
		{"temperature", "0.5", true},
		{"temperature", "3", false},
		{"demo_mode", "maybe", false},
		{"sample_rows", "10", true},
		{"sample_rows", "-1", false},
		{"ollama_host", "localhost:11434", false},
		{"listen_addr", ":9090", true},
		{"nope", "1", false},
	}
	for _, tt := range tests {
		err := c.Set(tt.key, tt.value)
		if tt.ok {
			assert.NoError(t, err, "%s=%s", tt.key, tt.value)
		} else {
			assert.Error(t, err, "%s=%s", tt.key, tt.value)
		}
	}
	assert.Equal(t, "ollama", c.DefaultProvider)
	assert.Equal(t, 10, c.SampleRows)
}

func TestMasked(t *testing.T) {
	c := Global{APIKey: "sk-or-123456", GeminiAPIKey: "abc"}
	m := c.Masked()
	assert.Equal(t, "****3456", m.APIKey)
	assert.Equal(t, "****", m.GeminiAPIKey)
	assert.Equal(t, "sk-or-123456", c.APIKey, "original untouched")
	assert.Empty(t, Mask(""))
}
