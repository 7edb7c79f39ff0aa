package config_test

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fyrsmithlabs/kortex/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecret_Redaction(t *testing.T) {
	s := config.Secret("ghp_supersecret")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "Secret([REDACTED])", s.GoString())
	assert.Equal(t, "ghp_supersecret", s.Value())
	assert.True(t, s.IsSet())

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `"[REDACTED]"`, string(out))

	formatted := fmt.Sprintf("token=%s %v %#v", s, s, s)
	assert.NotContains(t, formatted, "supersecret")
}

func TestSecret_Empty(t *testing.T) {
	var s config.Secret
	assert.Equal(t, "", s.String())
	assert.False(t, s.IsSet())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 10*time.Second, cfg.GitHub.Timeout)
	assert.Equal(t, time.Minute, cfg.GitHub.SearchWindow)
	assert.Equal(t, 30, cfg.GitHub.SearchLimit)
	assert.Equal(t, 5*time.Minute, cfg.GitHub.PlaceholderTTL)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9999
logging:
  level: debug
  format: console
github:
  search_limit: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, 5, cfg.GitHub.SearchLimit)
	// Unset fields still get defaults.
	assert.Equal(t, "localhost", cfg.Server.Host)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9999\n"), 0o600))

	t.Setenv("KORTEX_SERVER_PORT", "7777")
	t.Setenv("KORTEX_GITHUB_TOKEN", "ghp_abc")
	t.Setenv("KORTEX_AI_BASE_URL", "http://localhost:11434/v1")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "ghp_abc", cfg.GitHub.Token.Value())
	assert.Equal(t, "http://localhost:11434/v1", cfg.AI.BaseURL)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad port", "server:\n  port: -1\n"},
		{"bad format", "logging:\n  format: xml\n"},
		{"bad search limit", "github:\n  search_limit: -3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := config.Load(path)
			assert.Error(t, err)
		})
	}
}
