package spec

// sinkConfigs holds the driver-config file for each sink that needs one.
// Paths are relative to the pipeline file unless absolute.
type sinkConfigs struct {
	CSV   string `yaml:"csv"`
	Neo4j string `yaml:"neo4j"`
	Kafka string `yaml:"kafka"`
}

type debugSection struct {
	Preview      int  `yaml:"preview"`
	PrintCounter bool `yaml:"print_counter"`
}

type TransformSpec struct {
	Mode            string `yaml:"mode"`             // MODE_A | MODE_B
	Dedup           string `yaml:"dedup"`            // single | two-pass
	DuplicatePerson string `yaml:"duplicate_person"` // warn | fail
}

type File struct {
	SchemaVersion string `yaml:"schema_version"`

	Source struct {
		Kind   string `yaml:"kind"`
		Config string `yaml:"config"`
	} `yaml:"source"`

	Transform TransformSpec `yaml:"transform"`

	Sinks       []string     `yaml:"sinks"`
	SinkConfigs sinkConfigs  `yaml:"sink_configs"`
	Debug       debugSection `yaml:"debug"`
}
