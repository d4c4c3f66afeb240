package catalog

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/viper"
)

// Load reads a YAML catalog file:
//
//	characters:
//	  - id: char_id_1
//	    name: Character One
//	    ...
func Load(path string) (*Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return fromViper(v)
}

// Parse reads a YAML catalog from r.
func Parse(r io.Reader) (*Catalog, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	return fromViper(v)
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(b []byte) (*Catalog, error) {
	return Parse(bytes.NewReader(b))
}

func fromViper(v *viper.Viper) (*Catalog, error) {
	var doc struct {
		Characters []CharacterRecord `mapstructure:"characters"`
	}
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return New(doc.Characters)
}

// LoadOrDefault loads path, or returns the bundled catalog when path is empty.
func LoadOrDefault(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
