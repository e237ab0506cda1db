package csvdir

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

const EnvPrefix = "CRASHGRAPH_CSV__"

type Config struct {
	Dir       string `koanf:"dir"`
	Delimiter string `koanf:"delimiter"` // default ","
}

// LoadConfig merges YAML (if present) with env-vars
// (prefix `CRASHGRAPH_CSV__`, delimiter `__`).
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
		// a relative dir in the file is relative to the file itself
		if p := k.String("dir"); p != "" && !filepath.IsAbs(p) {
			if err := k.Set("dir", filepath.Join(filepath.Dir(path), p)); err != nil {
				return Config{}, err
			}
		}
	}
	_ = k.Load(env.Provider(EnvPrefix, "__", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	if cfg.Delimiter == "" {
		cfg.Delimiter = ","
	}
	return cfg, nil
}

func (c Config) delimiter() (rune, error) {
	if c.Delimiter == "" {
		return ',', nil
	}
	r, size := utf8.DecodeRuneInString(c.Delimiter)
	if size != len(c.Delimiter) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
		return 0, fmt.Errorf("csv sink: invalid delimiter %q", c.Delimiter)
	}
	return r, nil
}
