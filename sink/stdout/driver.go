// crashgraph/sink/stdout/driver.go
package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"crashgraph/internal/transform"
	"crashgraph/sink"
)

/* ────────── public YAML config ────────── */
type Config struct {
	Preview      int  `yaml:"preview"`       // rows printed per table, 0 = counts only
	PrintCounter bool `yaml:"print_counter"` // prepend table seq#

	Out io.Writer `yaml:"-"` // nil → os.Stdout
}

/* ────────── driver ────────── */
type driver struct {
	cfg Config
	seq int
}

/* ────────── sink.Adapter ────────── */
func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("stdout-sink: expected Config, got %T", raw)
	}
	if c.Preview < 0 {
		return fmt.Errorf("stdout-sink: preview must be >= 0, got %d", c.Preview)
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	d.cfg = c
	return nil
}

func (d *driver) Push(ctx context.Context, t *transform.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w := d.cfg.Out
	if w == nil {
		w = os.Stdout
	}
	d.seq++

	if d.cfg.PrintCounter {
		fmt.Fprintf(w, "[sink %03d] %s rows=%d\n", d.seq, t.Name, t.Len())
	} else {
		fmt.Fprintf(w, "[sink] %s rows=%d\n", t.Name, t.Len())
	}
	n := min(d.cfg.Preview, t.Len())
	if n == 0 {
		return nil
	}
	fmt.Fprintf(w, "  %s\n", strings.Join(t.Columns, " | "))
	for _, row := range t.Rows[:n] {
		fmt.Fprintf(w, "  %s\n", strings.Join(row, " | "))
	}
	if rest := t.Len() - n; rest > 0 {
		fmt.Fprintf(w, "  … %d more\n", rest)
	}
	return nil
}

func (d *driver) Close() error { return nil }

/* ────────── auto-register ────────── */
func init() {
	sink.Register("stdout", func() sink.Adapter { return &driver{} })
}
