package serve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/grokteam/grokteam/internal/cli/helpers"
	"github.com/grokteam/grokteam/internal/config"
)

func TestServerConfig_Defaults(t *testing.T) {
	cfg := config.DefaultConfig()
	none := func(string) bool { return false }

	got, db := ServerConfig(cfg, Options{Listen: "ignored:1"}, none)
	assert.Equal(t, cfg.Server.Listen, got.Listen)
	assert.Equal(t, cfg.Server.TokenDelay, got.TokenDelay)
	assert.False(t, got.SSE)
	assert.Equal(t, cfg.Agents, got.Agents)
	assert.Equal(t, cfg.Server.Database, db)
}

func TestServerConfig_FlagsWin(t *testing.T) {
	cfg := config.DefaultConfig()
	set := map[string]bool{"listen": true, "database": true, "token-delay": true, "sse": true}

	got, db := ServerConfig(cfg, Options{
		Listen:     "0.0.0.0:9000",
		Database:   "/tmp/dev.db",
		TokenDelay: 0,
		SSE:        true,
	}, func(name string) bool { return set[name] })

	assert.Equal(t, "0.0.0.0:9000", got.Listen)
	assert.Equal(t, time.Duration(0), got.TokenDelay)
	assert.True(t, got.SSE)
	assert.Equal(t, "/tmp/dev.db", db)
	assert.Equal(t, ":memory:", cfg.Server.Database, "config is not modified")
}

func TestNewServeCmd_Flags(t *testing.T) {
	cmd := NewServeCmd(&helpers.GlobalOptions{})
	for _, name := range []string{"listen", "database", "token-delay", "sse"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}
