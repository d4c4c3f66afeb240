package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Mode)
	assert.Equal(t, 816, cfg.Game.ScreenWidth)
	assert.Equal(t, 624, cfg.Game.ScreenHeight)
	assert.Equal(t, 1, cfg.Game.SelectionSwitchID)
	assert.Equal(t, 1, cfg.Game.CharacterIDVarID)
	assert.Equal(t, 2, cfg.Game.CharacterNameVar)
	assert.Equal(t, 24, cfg.Game.RepeatWait)
	assert.Equal(t, 6, cfg.Game.RepeatInterval)
	assert.Equal(t, 72*time.Hour, cfg.Security.JWTTTLH)
	assert.False(t, cfg.Game.NonDefaultSlots())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
game:
  selection_switch_id: 12
  fade_speed: 30
  default_party: [3, 4]
database:
  mode: mysql
  mysql_max_life: 30m
`))
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Game.SelectionSwitchID)
	assert.Equal(t, 30, cfg.Game.FadeSpeed)
	assert.Equal(t, []int{3, 4}, cfg.Game.DefaultParty)
	assert.Equal(t, "mysql", cfg.Database.Mode)
	assert.Equal(t, 30*time.Minute, cfg.Database.MySQLMaxLife)
	assert.True(t, cfg.Game.NonDefaultSlots())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CHARSELECT_SERVER_PORT", "7777")
	cfg, err := Load(writeConfig(t, "server:\n  debug: true\n"))
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.True(t, cfg.Server.Debug)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg, err := Defaults()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "fog", cfg.Game.BackgroundImage)
}
