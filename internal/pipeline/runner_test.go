package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crashgraph/internal/crash"
	"crashgraph/internal/telemetry"
	"crashgraph/internal/transform"
)

type fakeSource struct {
	recs   []crash.Record
	err    error
	closed int
}

func (f *fakeSource) Configure(any) error { return nil }
func (f *fakeSource) Read(ctx context.Context) ([]crash.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.recs, ctx.Err()
}
func (f *fakeSource) Close() error { f.closed++; return nil }

type captureSink struct {
	pushed   []string
	kinds    []transform.Kind
	failOn   string
	closeErr error
	closed   int
}

func (c *captureSink) Configure(any) error { return nil }
func (c *captureSink) Push(_ context.Context, t *transform.Table) error {
	if t.Name == c.failOn {
		return &crash.OutputWriteError{Target: t.Name, Err: errors.New("disk full")}
	}
	c.pushed = append(c.pushed, t.Name)
	c.kinds = append(c.kinds, t.Kind)
	return nil
}
func (c *captureSink) Close() error { c.closed++; return c.closeErr }

func records() []crash.Record {
	return []crash.Record{
		{ID: "1", CrashID: "100", State: "NSW", Month: "1", Year: "2020", Time: "10:00"},
		{ID: "2", CrashID: "100", State: "NSW", Month: "1", Year: "2020", Time: "10:00"},
		{ID: "3", CrashID: "200", State: "VIC", Month: "2", Year: "2021", Time: "11:00"},
	}
}

func TestRunner_PushesNodesBeforeRelationshipsToEverySink(t *testing.T) {
	r := NewRunner()
	r.SetSource(&fakeSource{recs: records()})
	a, b := &captureSink{}, &captureSink{}
	r.AddSink("a", a)
	r.AddSink("b", b)
	m := telemetry.New()
	r.SetMetrics(m)

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Crashes.Len())

	want := []string{
		transform.TablePersonNodes, transform.TableCrashNodes,
		transform.TableLocationNodes, transform.TableDateTimeNodes,
		transform.TablePersonCrashRel, transform.TableCrashLocationRel,
		transform.TableCrashDateTimeRel,
	}
	assert.Equal(t, want, a.pushed)
	assert.Equal(t, want, b.pushed)
	seenRel := false
	for _, k := range a.kinds {
		if k == transform.KindRelationship {
			seenRel = true
		} else {
			assert.False(t, seenRel, "node table pushed after a relationship table")
		}
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.InputRows))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TableRows.WithLabelValues(transform.TableCrashNodes)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dropped.WithLabelValues(transform.TableCrashNodes)))
	assert.Positive(t, testutil.ToFloat64(m.LastSuccess))
	assert.Equal(t, []string{"a", "b"}, r.Sinks())
}

func TestRunner_InputErrorTouchesNoSink(t *testing.T) {
	r := NewRunner()
	r.SetSource(&fakeSource{err: &crash.InputSchemaError{Missing: []string{"Crash ID"}}})
	s := &captureSink{}
	r.AddSink("s", s)

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, crash.ErrInputSchema)
	assert.Empty(t, s.pushed)
}

func TestRunner_DuplicatePersonFailTouchesNoSink(t *testing.T) {
	recs := records()
	recs[1].ID = "1"
	r := NewRunner()
	r.SetSource(&fakeSource{recs: recs})
	r.SetTransformer(transform.New(transform.Options{DuplicatePerson: transform.DuplicatePersonFail}))
	s := &captureSink{}
	r.AddSink("s", s)

	_, err := r.Run(context.Background())
	var de *crash.DuplicatePersonError
	require.ErrorAs(t, err, &de)
	assert.Empty(t, s.pushed)
}

func TestRunner_SinkErrorStopsRunAndKeepsEarlierTables(t *testing.T) {
	r := NewRunner()
	r.SetSource(&fakeSource{recs: records()})
	s := &captureSink{failOn: transform.TableLocationNodes}
	r.AddSink("csv", s)
	m := telemetry.New()
	r.SetMetrics(m)

	_, err := r.Run(context.Background())
	require.ErrorIs(t, err, crash.ErrOutputWrite)
	assert.Contains(t, err.Error(), "sink csv")
	assert.Equal(t, []string{transform.TablePersonNodes, transform.TableCrashNodes}, s.pushed)
	assert.Zero(t, testutil.ToFloat64(m.LastSuccess))
}

func TestRunner_RequiresSourceAndSinks(t *testing.T) {
	_, err := NewRunner().Run(context.Background())
	assert.Error(t, err)

	r := NewRunner()
	r.SetSource(&fakeSource{})
	_, err = r.Run(context.Background())
	assert.Error(t, err)
}

func TestRunner_CloseJoinsErrors(t *testing.T) {
	src := &fakeSource{}
	good := &captureSink{}
	bad := &captureSink{closeErr: errors.New("flush failed")}
	r := NewRunner()
	r.SetSource(src)
	r.AddSink("good", good)
	r.AddSink("bad", bad)

	err := r.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink bad: flush failed")
	assert.Equal(t, 1, src.closed)
	assert.Equal(t, 1, good.closed)
	assert.Equal(t, 1, bad.closed)
}
