// Package telemetry keeps the run metrics of a crashgraph job. A run is a
// short-lived batch job, so metrics are pushed to a Pushgateway at the end
// instead of being scraped.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const Job = "crashgraph"

type Metrics struct {
	Registry *prometheus.Registry

	InputRows   prometheus.Counter
	TableRows   *prometheus.GaugeVec
	Dropped     *prometheus.CounterVec
	SinkWrite   *prometheus.HistogramVec
	LastSuccess prometheus.Gauge
}

// New returns metrics registered on a fresh registry, so repeated runs in
// one process (tests) do not collide on the default registerer.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		InputRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crashgraph_input_rows_total",
			Help: "Crash records read from the source.",
		}),
		TableRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "crashgraph_table_rows",
			Help: "Rows in each output table after deduplication.",
		}, []string{"table"}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crashgraph_duplicates_dropped_total",
			Help: "Rows removed by deduplication, per table.",
		}, []string{"table"}),
		SinkWrite: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crashgraph_sink_write_duration_seconds",
			Help:    "Time spent writing one table to a sink.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"sink"}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crashgraph_last_success_timestamp_seconds",
			Help: "Unix time of the last run that wrote every table.",
		}),
	}
	m.Registry.MustRegister(m.InputRows, m.TableRows, m.Dropped, m.SinkWrite, m.LastSuccess)
	return m
}

// ObserveTransform records the row counts of one transformation.
func (m *Metrics) ObserveTransform(input int, rows, dropped map[string]int) {
	m.InputRows.Add(float64(input))
	for name, n := range rows {
		m.TableRows.WithLabelValues(name).Set(float64(n))
	}
	for name, n := range dropped {
		m.Dropped.WithLabelValues(name).Add(float64(n))
	}
}

func (m *Metrics) ObserveSink(sink string, d time.Duration) {
	m.SinkWrite.WithLabelValues(sink).Observe(d.Seconds())
}

func (m *Metrics) MarkSuccess(at time.Time) {
	m.LastSuccess.Set(float64(at.Unix()))
}

// Push sends the registry to the Pushgateway at url, replacing the
// metrics previously pushed under the same job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if job == "" {
		job = Job
	}
	if err := push.New(url, job).Gatherer(m.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("telemetry: push to %s: %w", url, err)
	}
	return nil
}
