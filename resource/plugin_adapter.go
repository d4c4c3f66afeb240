package resource

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ---- Plugin Detection ----

// PluginEntry represents one entry from RMMZ's plugins.js.
type PluginEntry struct {
	Name       string            `json:"name"`
	Status     bool              `json:"status"`
	Parameters map[string]string `json:"parameters"`
}

// loadPlugins reads the game's js/plugins.js and returns its entries.
// The file format is: var $plugins = [ {...}, {...}, ... ];
func loadPlugins(dataPath string) ([]*PluginEntry, error) {
	// plugins.js lives in the sibling js/ directory (dataPath is <project>/data/).
	jsPath := filepath.Join(filepath.Dir(dataPath), "js", "plugins.js")
	data, err := os.ReadFile(jsPath)
	if err != nil {
		return nil, nil // no plugins.js → no plugins
	}

	// Strip "var $plugins =" prefix and trailing semicolons to get pure JSON.
	content := strings.TrimSpace(string(data))
	idx := strings.Index(content, "[")
	if idx < 0 {
		return nil, nil
	}
	content = content[idx:]
	content = strings.TrimRight(content, "; \t\r\n")

	var entries []*PluginEntry
	if err := json.Unmarshal([]byte(content), &entries); err != nil {
		return nil, fmt.Errorf("resource: parse plugins.js: %w", err)
	}
	return entries, nil
}

// ---- Plugin Adapter Interface ----

// PluginAdapter reads a plugin's parameters into the loader.
type PluginAdapter interface {
	// Name returns the RMMZ plugin name this adapter handles.
	Name() string
	// Apply records the plugin's effect on the loaded data.
	Apply(rl *ResourceLoader, params map[string]string) error
}

var knownAdapters = []PluginAdapter{
	&characterSelectAdapter{},
}

// applyPluginAdapters detects active plugins and runs matching adapters.
func (rl *ResourceLoader) applyPluginAdapters() error {
	plugins, err := loadPlugins(rl.DataPath)
	if err != nil {
		return err
	}

	for _, p := range plugins {
		if p != nil && p.Status {
			rl.Plugins[p.Name] = p.Parameters
		}
	}

	for _, adapter := range knownAdapters {
		params, ok := rl.Plugins[adapter.Name()]
		if !ok {
			continue
		}
		if err := adapter.Apply(rl, params); err != nil {
			return fmt.Errorf("plugin adapter %s: %w", adapter.Name(), err)
		}
	}
	return nil
}

// ---- CharacterSelect Adapter ----

// CharacterSelectParams are the optional slot parameters of the
// CharacterSelect plugin entry. Zero means "not set".
type CharacterSelectParams struct {
	SelectionSwitchID int
	CharacterIDVarID  int
	CharacterNameVar  int
}

type characterSelectAdapter struct{}

func (a *characterSelectAdapter) Name() string { return "CharacterSelect" }

func (a *characterSelectAdapter) Apply(rl *ResourceLoader, params map[string]string) error {
	p := &CharacterSelectParams{}
	fields := []struct {
		key string
		dst *int
	}{
		{"SelectionSwitch", &p.SelectionSwitchID},
		{"CharacterIdVariable", &p.CharacterIDVarID},
		{"CharacterNameVariable", &p.CharacterNameVar},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(params[f.key])
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid %s %q", f.key, raw)
		}
		*f.dst = n
	}
	rl.CharacterSelect = p
	return nil
}
