// Package config loads layout declarations and display settings from YAML or JSON files.
//
//	logging:
//	  level: debug
//	display:
//	  base: 16
//	layouts:
//	  - name: Header
//	    size: 16
//	    fields:
//	      lo: [0, 4]
//	      flag: 4
//	      ctrl: {_index_: [8, 16], mode: [0, 4], on: 4}
package config

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/bearlytools/binfield"
	"github.com/bearlytools/binfield/errors"
	"github.com/bearlytools/binfield/mapping"
)

var log = logrus.WithField("prefix", "config")

// Config is the file format.
type Config struct {
	Logging LoggingConfig  `json:"logging" yaml:"logging"`
	Display DisplayConfig  `json:"display" yaml:"display"`
	Layouts []LayoutConfig `json:"layouts,omitempty" yaml:"layouts,omitempty"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

// DisplayConfig controls how values are read and shown by tools.
type DisplayConfig struct {
	// Base is the default base for parsing values, 0 honors prefixes.
	Base int `json:"base" yaml:"base"`
}

// LayoutConfig declares one Type. Size and Mask are left untyped so that a string where an
// integer belongs is reported as an errors.ErrType instead of a decode failure. Mask may also
// be a string such as "0xff00" for masks too large for the decoder's integers.
type LayoutConfig struct {
	Name   string         `json:"name" yaml:"name"`
	Size   any            `json:"size,omitempty" yaml:"size,omitempty"`
	Mask   any            `json:"mask,omitempty" yaml:"mask,omitempty"`
	Fields map[string]any `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Display: DisplayConfig{Base: 0},
	}
}

// Load loads configuration from path on top of Default(). An empty path or a missing file
// returns the defaults. The format is chosen by extension, YAML unless it is ".json".
func Load(path string) (*Config, error) {
	config := Default()
	if path == "" {
		return config, nil
	}
	path = expandHome(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.WithField("path", path).Debug("config file not found, using defaults")
			return config, nil
		}
		return nil, errors.Wrap(errors.KindUnknown, err, "failed to read config file")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, errors.Wrap(errors.KindLayout, err, "failed to parse JSON config %s", path)
		}
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, errors.Wrap(errors.KindLayout, err, "failed to parse YAML config %s", path)
		}
	}
	return config, nil
}

// Save writes c to path, in JSON if the extension is ".json" and YAML otherwise.
func Save(c *Config, path string) error {
	path = expandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.KindUnknown, err, "failed to create config directory")
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.Marshal(c, jsontext.WithIndent("  "))
	default:
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return errors.Wrap(errors.KindSerialization, err, "failed to marshal config")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(errors.KindUnknown, err, "failed to write config file")
	}
	return nil
}

// LogLevel returns the configured logrus level.
func (c *Config) LogLevel() (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		return logrus.InfoLevel, errors.Wrap(errors.KindValue, err, "logging.level")
	}
	return lvl, nil
}

// Types builds every declared layout, in file order.
func (c *Config) Types() ([]*binfield.Type, error) {
	types := make([]*binfield.Type, 0, len(c.Layouts))
	for _, l := range c.Layouts {
		t, err := l.Type()
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// Type builds the layout called name.
func (c *Config) Type(name string) (*binfield.Type, error) {
	for _, l := range c.Layouts {
		if l.Name == name {
			return l.Type()
		}
	}
	return nil, errors.E(errors.KindIndex, "config has no layout %q", name)
}

// Type builds the *binfield.Type the layout declares.
func (l LayoutConfig) Type() (*binfield.Type, error) {
	var options []binfield.TypeOption
	size := 0

	if l.Size != nil {
		n, ok := asInt(l.Size)
		if !ok {
			return nil, errors.E(errors.KindType, "layout %s: size must be an integer, got %T(%v)", l.Name, l.Size, l.Size)
		}
		options = append(options, binfield.WithSize(n))
		size = n
	}
	if l.Mask != nil {
		m, err := asMask(l.Mask)
		if err != nil {
			return nil, errors.Wrap(errors.KindOf(err), err, "layout %s", l.Name)
		}
		options = append(options, binfield.WithMask(m))
		if size == 0 {
			size = m.BitLen()
		}
	}
	if len(l.Fields) > 0 {
		m, err := mapping.Prepare(mapping.Decl(l.Fields))
		if err == nil {
			err = m.Within(size)
		}
		if err != nil {
			return nil, errors.Wrap(errors.KindOf(err), err, "layout %s", l.Name)
		}
		options = append(options, binfield.WithMap(m))
	}

	t, err := binfield.NewType(l.Name, options...)
	if err != nil {
		return nil, errors.Wrap(errors.KindOf(err), err, "layout %s", l.Name)
	}
	return t, nil
}

// asInt accepts the integers YAML decodes and the float64 JSON decodes, if it is whole.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

func asMask(v any) (*big.Int, error) {
	if s, ok := v.(string); ok {
		m, ok := new(big.Int).SetString(strings.TrimSpace(s), 0)
		if !ok {
			return nil, errors.E(errors.KindValue, "mask %q is not an integer", s)
		}
		return m, nil
	}
	n, ok := asInt(v)
	if !ok {
		return nil, errors.E(errors.KindType, "mask must be an integer, got %T(%v)", v, v)
	}
	return big.NewInt(int64(n)), nil
}

// expandHome expands ~ to the user's home directory.
func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
