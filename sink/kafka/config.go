package kafka

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

const EnvPrefix = "CRASHGRAPH_KAFKA__"

type Config struct {
	Brokers     []string `koanf:"brokers"`
	TopicPrefix string   `koanf:"topic_prefix"`  // topic = prefix + table name
	Acks        int16    `koanf:"required_acks"` // 0,1,-1
	Version     string   `koanf:"version"`
	ClientID    string   `koanf:"client_id"`
}

// LoadConfig merges YAML (if present) with env-vars (prefix
// `CRASHGRAPH_KAFKA__`, delimiter `__`). BROKERS may be comma separated.
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
		return Config{}, fmt.Errorf("kafka schema_version %q not supported (want v1)", sv)
	}

	_ = k.Load(env.ProviderWithValue(EnvPrefix, "__", func(key, value string) (string, any) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if key == "brokers" {
			return key, strings.Split(value, ",")
		}
		return key, value
	}), nil)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(c *Config) {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "crashgraph."
	}
	if c.ClientID == "" {
		c.ClientID = "crashgraph"
	}
	if c.Acks == 0 {
		c.Acks = -1
	}
}
