package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GROKTEAM_CONFIG", dir)

	l := NewLoader()
	assert.Equal(t, dir, l.Dir())
	assert.Equal(t, filepath.Join(dir, "config.yaml"), l.ConfigPath())
	assert.Equal(t, filepath.Join(dir, "grokteam.log"), l.LogPath())
	assert.Equal(t, filepath.Join(dir, "chat_history"), l.HistoryPath())
}

func TestLoader_LoadMissingFileUsesDefaults(t *testing.T) {
	l := NewLoaderAt(t.TempDir())

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.False(t, l.Exists())
}

func TestLoader_SaveAndLoad(t *testing.T) {
	l := NewLoaderAt(filepath.Join(t.TempDir(), "nested"))

	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://team.example.com/api"
	cfg.Temperatures["Lucas"] = 1.9
	cfg.UI.WordWrap = 100

	require.NoError(t, l.Save(cfg))
	assert.True(t, l.Exists())

	info, err := os.Stat(l.ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoader_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	l := NewLoaderAt(dir)
	require.NoError(t, os.WriteFile(l.ConfigPath(), []byte(`
api:
  base_url: http://10.0.0.2:8000/api
temperatures:
  Harper: 0.2
health:
  interval: 30s
`), 0600))

	cfg, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.2:8000/api", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, 30*time.Second, cfg.Health.Interval)
	assert.Equal(t, 0.2, cfg.Temperatures["Harper"])
	assert.Equal(t, 0.7, cfg.Temperatures["Grok"])
}

func TestLoader_InvalidYAML(t *testing.T) {
	l := NewLoaderAt(t.TempDir())
	require.NoError(t, os.WriteFile(l.ConfigPath(), []byte("api: [unclosed"), 0600))

	_, err := l.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoader_EnvBeatsFile(t *testing.T) {
	l := NewLoaderAt(t.TempDir())
	cfg := DefaultConfig()
	cfg.API.BaseURL = "http://from-file/api"
	require.NoError(t, l.Save(cfg))

	t.Setenv("GROKTEAM_API_URL", "http://from-env/api")
	loaded, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://from-env/api", loaded.API.BaseURL)
}

func TestRetryConfig_Policy(t *testing.T) {
	p := RetryConfig{MaxRetries: 7, InitialBackoff: time.Second}.Policy()
	assert.Equal(t, 7, p.MaxRetries)
	assert.Equal(t, time.Second, p.InitialBackoff)
	assert.Equal(t, 2*time.Second, p.MaxBackoff)

	p = RetryConfig{}.Policy()
	assert.Equal(t, 3, p.MaxRetries)
}

func TestLoader_ReadFileIgnoresEnv(t *testing.T) {
	dir := t.TempDir()
	l := NewLoaderAt(dir)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0600))
	t.Setenv("GROKTEAM_LOG_LEVEL", "debug")

	cfg, err := l.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)

	cfg.Log.Level = "error"
	require.NoError(t, l.SaveTo(cfg, path))
	assert.False(t, l.Exists(), "SaveTo leaves the default path alone")

	again, err := l.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "error", again.Log.Level)

	missing, err := l.ReadFile(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), missing)
}
