package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crashgraph/internal/logging"
	"crashgraph/internal/telemetry"
	"crashgraph/internal/transform"
	"crashgraph/sink"
	"crashgraph/source"
)

type namedSink struct {
	name string
	sink.Adapter
}

// Runner drives one batch: read the source, transform, then hand every
// table to every sink.
type Runner struct {
	source      source.Adapter
	transformer *transform.Transformer
	sinks       []namedSink
	metrics     *telemetry.Metrics
}

func NewRunner() *Runner { return &Runner{} }

func (r *Runner) SetSource(s source.Adapter)              { r.source = s }
func (r *Runner) SetTransformer(t *transform.Transformer) { r.transformer = t }
func (r *Runner) SetMetrics(m *telemetry.Metrics)         { r.metrics = m }
func (r *Runner) AddSink(name string, s sink.Adapter)     { r.sinks = append(r.sinks, namedSink{name, s}) }

// Sinks lists the configured sink names in push order.
func (r *Runner) Sinks() []string {
	names := make([]string, len(r.sinks))
	for i, s := range r.sinks {
		names[i] = s.name
	}
	return names
}

// Run executes the batch once. Input and schema errors abort before any
// sink is touched. A sink failure stops the run; tables already written
// stay written.
func (r *Runner) Run(ctx context.Context) (*transform.Result, error) {
	if r.source == nil {
		return nil, errors.New("runner: no source configured")
	}
	if len(r.sinks) == 0 {
		return nil, errors.New("runner: no sinks configured")
	}
	if r.transformer == nil {
		r.transformer = transform.New(transform.Options{})
	}
	log := logging.L()

	records, err := r.source.Read(ctx)
	if err != nil {
		return nil, err
	}
	log.Info("read input", "rows", len(records))

	res, err := r.transformer.Transform(ctx, records)
	if err != nil {
		return nil, err
	}
	if r.metrics != nil {
		r.metrics.ObserveTransform(res.Stats.InputRows, res.Stats.Rows, res.Stats.Dropped)
	}

	tables := res.Tables()
	for _, s := range r.sinks {
		for _, t := range tables {
			start := time.Now()
			if err := s.Push(ctx, t); err != nil {
				return res, fmt.Errorf("sink %s: table %s: %w", s.name, t.Name, err)
			}
			if r.metrics != nil {
				r.metrics.ObserveSink(s.name, time.Since(start))
			}
		}
		log.Info("sink done", "sink", s.name, "tables", len(tables))
	}
	if r.metrics != nil {
		r.metrics.MarkSuccess(time.Now())
	}
	return res, nil
}

// Close releases the source and every sink, joining their errors.
func (r *Runner) Close() error {
	var errs []error
	if r.source != nil {
		errs = append(errs, r.source.Close())
	}
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
