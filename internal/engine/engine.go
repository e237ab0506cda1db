package engine

import (
	"context"
	"errors"
	"time"

	"crashgraph/internal/logging"
	"crashgraph/internal/pipeline"
	"crashgraph/internal/telemetry"
	"crashgraph/internal/transform"
)

type Engine struct {
	cfg     Config
	runner  *pipeline.Runner
	metrics *telemetry.Metrics
}

func (e *Engine) Metrics() *telemetry.Metrics { return e.metrics }

// Run executes the pipeline once and releases every adapter. Metrics are
// pushed whether or not the run succeeded; a failed push is logged and
// does not fail the run.
func (e *Engine) Run(ctx context.Context) (*transform.Result, error) {
	log := logging.L()
	start := time.Now()

	res, err := e.runner.Run(ctx)
	err = errors.Join(err, e.runner.Close())

	if e.cfg.PushGateway != "" {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if perr := e.metrics.Push(pctx, e.cfg.PushGateway, e.cfg.Job); perr != nil {
			log.Warn("metrics push failed", "err", perr)
		}
		cancel()
	}

	if err != nil {
		return res, err
	}
	log.Info("run complete",
		"input_rows", res.Stats.InputRows,
		"tables", len(res.Tables()),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return res, nil
}
