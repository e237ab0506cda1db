package engine

import "crashgraph/internal/pipeline"

type Config struct {
	PipelineYml string // optional; empty compiles the default csv -> csv pipeline
	Overrides   pipeline.Overrides

	PushGateway string // Pushgateway URL; empty disables the push
	Job         string // push job name, default "crashgraph"
}
