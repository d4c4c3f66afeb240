package resource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePluginsJS(t *testing.T, dataDir, body string) {
	t.Helper()
	jsDir := filepath.Join(filepath.Dir(dataDir), "js")
	require.NoError(t, os.MkdirAll(jsDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(jsDir, "plugins.js"), []byte(body), 0644))
}

func TestCharacterSelectAdapter_Params(t *testing.T) {
	rl := NewLoader("", "")
	err := (&characterSelectAdapter{}).Apply(rl, map[string]string{
		"SelectionSwitch":       "5",
		"CharacterIdVariable":   " 7 ",
		"CharacterNameVariable": "",
	})
	require.NoError(t, err)
	require.NotNil(t, rl.CharacterSelect)
	assert.Equal(t, 5, rl.CharacterSelect.SelectionSwitchID)
	assert.Equal(t, 7, rl.CharacterSelect.CharacterIDVarID)
	assert.Equal(t, 0, rl.CharacterSelect.CharacterNameVar)
}

func TestCharacterSelectAdapter_Invalid(t *testing.T) {
	rl := NewLoader("", "")
	err := (&characterSelectAdapter{}).Apply(rl, map[string]string{"SelectionSwitch": "abc"})
	assert.Error(t, err)
	err = (&characterSelectAdapter{}).Apply(rl, map[string]string{"SelectionSwitch": "0"})
	assert.Error(t, err)
}

func TestLoader_Load_DetectsPlugins(t *testing.T) {
	dir := setupMinimalDataDir(t)
	writePluginsJS(t, dir, `// Generated by RPG Maker.
var $plugins =
[
{"name":"CharacterSelect","status":true,"description":"","parameters":{"SelectionSwitch":"3"}},
{"name":"Disabled","status":false,"description":"","parameters":{}}
];
`)
	rl := NewLoader(dir, "")
	require.NoError(t, rl.Load())

	assert.Contains(t, rl.Plugins, "CharacterSelect")
	assert.NotContains(t, rl.Plugins, "Disabled")
	require.NotNil(t, rl.CharacterSelect)
	assert.Equal(t, 3, rl.CharacterSelect.SelectionSwitchID)
}

func TestLoader_Load_DisabledCharacterSelect(t *testing.T) {
	dir := setupMinimalDataDir(t)
	writePluginsJS(t, dir, `var $plugins = [{"name":"CharacterSelect","status":false,"parameters":{}}];`)
	rl := NewLoader(dir, "")
	require.NoError(t, rl.Load())
	assert.Nil(t, rl.CharacterSelect)
}

func TestLoader_Load_BrokenPluginsJS(t *testing.T) {
	dir := setupMinimalDataDir(t)
	writePluginsJS(t, dir, `var $plugins = [{"name": ];`)
	assert.Error(t, NewLoader(dir, "").Load())
}
