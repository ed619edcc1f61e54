package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_DefaultsOnly(t *testing.T) {
	l := NewLoaderAt(t.TempDir())

	res, err := l.Resolve(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, []Layer{LayerDefaults, LayerEnv}, res.Layers)
	assert.Equal(t, l.ConfigPath(), res.Path)
	assert.Equal(t, "defaults < env", res.LayerNames())
}

func TestResolve_Precedence(t *testing.T) {
	l := NewLoaderAt(t.TempDir())
	require.NoError(t, os.WriteFile(l.ConfigPath(), []byte(`
api:
  base_url: http://file/api
log:
  level: warn
ui:
  word_wrap: 120
`), 0600))

	t.Setenv("GROKTEAM_API_URL", "http://env/api")
	t.Setenv("GROKTEAM_LOG_LEVEL", "error")

	res, err := l.Resolve(Overrides{LogLevel: "debug"})
	require.NoError(t, err)

	assert.Equal(t, []Layer{LayerDefaults, LayerFile, LayerEnv, LayerFlags}, res.Layers)
	assert.Equal(t, 120, res.UI.WordWrap, "file beats defaults")
	assert.Equal(t, "http://env/api", res.API.BaseURL, "env beats file")
	assert.Equal(t, "debug", res.Log.Level, "flags beat env")
}

func TestResolve_ExplicitConfigMustExist(t *testing.T) {
	l := NewLoaderAt(t.TempDir())

	_, err := l.Resolve(Overrides{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	assert.True(t, isNotExist(err))
}

func TestResolve_ExplicitConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "team.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: http://explicit/api\n"), 0600))

	res, err := NewLoaderAt(t.TempDir()).Resolve(Overrides{ConfigPath: path, APIURL: " "})
	require.NoError(t, err)
	assert.Equal(t, path, res.Path)
	assert.Equal(t, "http://explicit/api", res.API.BaseURL)
	assert.NotContains(t, res.Layers, LayerFlags)
}
