package neo4j

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "CRASHGRAPH_NEO4J__"

type Config struct {
	URI             string `koanf:"uri"`
	Username        string `koanf:"username"`
	Password        string `koanf:"password"`
	Database        string `koanf:"database"`         // empty = server default
	BatchSize       int    `koanf:"batch_size"`       // rows per UNWIND transaction
	SkipConstraints bool   `koanf:"skip_constraints"` // do not create key uniqueness constraints
}

// LoadConfig merges YAML (if present) with env-vars
// (prefix `CRASHGRAPH_NEO4J__`, delimiter `__`).
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil &&
			!errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	sv := k.String("schema_version")
	if sv != "" && sv != "v1" {
		return Config{}, fmt.Errorf("neo4j schema_version %q not supported (want v1)", sv)
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
	if c.URI == "" {
		c.URI = "neo4j://localhost:7687"
	}
	if c.Username == "" {
		c.Username = "neo4j"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 1000
	}
}
