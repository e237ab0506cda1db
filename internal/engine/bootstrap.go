package engine

import (
	"context"
	"fmt"

	"crashgraph/internal/pipeline"
	"crashgraph/internal/telemetry"
)

func Bootstrap(ctx context.Context, cfg Config) (*Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1. pipeline runner
	runner := pipeline.NewRunner()
	var err error
	if cfg.PipelineYml != "" {
		err = pipeline.LoadYAML(cfg.PipelineYml, cfg.Overrides, runner)
	} else {
		err = pipeline.Build(pipeline.Default(), cfg.Overrides, runner)
	}
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	// 2. metrics
	metrics := telemetry.New()
	runner.SetMetrics(metrics)

	return &Engine{
		cfg:     cfg,
		runner:  runner,
		metrics: metrics,
	}, nil
}
