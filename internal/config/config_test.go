package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	return home
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	home := isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "raw", cfg.Render.Format)
	require.Equal(t, ",", cfg.Render.ListDelimiter)
	require.True(t, cfg.Templates.Builtins)
	require.False(t, cfg.History.Enabled)
	require.Equal(t, filepath.Join(home, ".local", "share", "prompt", "history.db"), cfg.History.Path)
}

func TestLoadExplicitMissingFails(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadFileAndEnv(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
templates:
  paths: ["~/prompts", /shared/prompts]
render:
  format: markdown
history:
  enabled: true
  path: ~/h.db
log:
  level: debug
`), 0o644))
	t.Setenv("PROMPT_RENDER_FORMAT", "json")
	t.Setenv("PROMPT_SERVER_ADDR", ":9000")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(home, "prompts"), "/shared/prompts"}, cfg.Templates.Paths)
	require.Equal(t, "json", cfg.Render.Format)
	require.Equal(t, ":9000", cfg.Server.Addr)
	require.True(t, cfg.History.Enabled)
	require.Equal(t, filepath.Join(home, "h.db"), cfg.History.Path)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "console", cfg.Log.Format)
}

func TestLoadTemplatesPathsEnv(t *testing.T) {
	isolate(t)
	t.Setenv("PROMPT_TEMPLATES_PATHS", "/a"+string(os.PathListSeparator)+"/b")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, []string{"/a", "/b"}, cfg.Templates.Paths)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Log.Format = "xml"
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Render.ListDelimiter = ""
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Server.RateLimits = map[string]RateLimit{"render": {Rate: 5, Burst: 0}}
	require.Error(t, cfg.Validate())
	cfg.Server.RateLimits = map[string]RateLimit{"render": {Rate: -1, Burst: 1}}
	require.Error(t, cfg.Validate())
	cfg.Server.RateLimits = map[string]RateLimit{"render": {}}
	require.NoError(t, cfg.Validate())
}

func TestLoadRateLimits(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  rate_limits:
    render: {rate: 5, burst: 10}
    validate_inline: {rate: 0.5, burst: 1}
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, map[string]RateLimit{
		"render":          {Rate: 5, Burst: 10},
		"validate_inline": {Rate: 0.5, Burst: 1},
	}, cfg.Server.RateLimits)
	require.Equal(t, "127.0.0.1:8484", cfg.Server.Addr)
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Render.Format = "env"

	require.NoError(t, cfg.Save(path))
	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "env", loaded.Render.Format)
}
