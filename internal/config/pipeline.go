package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"crashgraph/internal/spec"
)

const SupportedSchema = "v1"

// LoadPipelineSpec parses a pipeline YAML and validates schema_version.
// Driver-config paths in the returned spec are absolute.
func LoadPipelineSpec(path string) (spec.File, error) {
	var cfg spec.File
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.SchemaVersion == "" {
		cfg.SchemaVersion = SupportedSchema
	}
	if cfg.SchemaVersion != SupportedSchema {
		return cfg, fmt.Errorf("pipeline schema_version %q not supported (want %q)", cfg.SchemaVersion, SupportedSchema)
	}

	base := filepath.Dir(path)
	if !filepath.IsAbs(base) {
		if base, err = filepath.Abs(base); err != nil {
			return cfg, err
		}
	}
	for _, p := range []*string{
		&cfg.Source.Config,
		&cfg.SinkConfigs.CSV,
		&cfg.SinkConfigs.Neo4j,
		&cfg.SinkConfigs.Kafka,
	} {
		*p = resolve(base, *p)
	}
	return cfg, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
