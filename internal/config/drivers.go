package config

import (
	"crashgraph/sink/csvdir"
	"crashgraph/sink/kafka"
	"crashgraph/sink/neo4j"
	"crashgraph/source/csvfile"
)

// The loaders below delegate to each driver package while centralizing
// loader entrypoints under internal/config. An empty path loads env-vars
// and defaults only.

func LoadSourceConfig(path string) (csvfile.Config, error) {
	return csvfile.LoadConfig(path)
}

func LoadCSVSinkConfig(path string) (csvdir.Config, error) {
	return csvdir.LoadConfig(path)
}

func LoadNeo4jConfig(path string) (neo4j.Config, error) {
	return neo4j.LoadConfig(path)
}

func LoadKafkaConfig(path string) (kafka.Config, error) {
	return kafka.LoadConfig(path)
}
