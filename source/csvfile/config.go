package csvfile

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "CRASHGRAPH_SOURCE__"

type Config struct {
	Path      string `koanf:"path"`
	Delimiter string `koanf:"delimiter"`  // single character, default ","
	TrimSpace bool   `koanf:"trim_space"` // trim surrounding whitespace from every value
}

// LoadConfig merges YAML (if present) with env-vars
// (prefix `CRASHGRAPH_SOURCE__`, delimiter `__`).
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
		// a relative path in the file is relative to the file itself
		if p := k.String("path"); p != "" && !filepath.IsAbs(p) {
			if err := k.Set("path", filepath.Join(filepath.Dir(path), p)); err != nil {
				return Config{}, err
			}
		}
	}
	sv := k.String("schema_version")
	if sv != "" && sv != "v1" {
		return Config{}, fmt.Errorf("source schema_version %q not supported (want v1)", sv)
	}

	_ = k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(c *Config) {
	if c.Delimiter == "" {
		c.Delimiter = ","
	}
}

func (c Config) validate() (rune, error) {
	if c.Path == "" {
		return 0, errors.New("csv source: path is required")
	}
	r, size := utf8.DecodeRuneInString(c.Delimiter)
	if size != len(c.Delimiter) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("csv source: invalid delimiter %q", c.Delimiter)
	}
	return r, nil
}
