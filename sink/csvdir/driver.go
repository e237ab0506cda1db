// Package csvdir writes each table to <dir>/<table>.csv with a header row
// and no index column, the layout graph bulk importers expect.
package csvdir

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"crashgraph/internal/crash"
	"crashgraph/internal/logging"
	"crashgraph/internal/transform"
	"crashgraph/sink"
)

const Ext = ".csv"

type driver struct {
	cfg   Config
	comma rune
	ready bool // dir created
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("csv-sink: expected Config, got %T", raw)
	}
	if c.Dir == "" {
		return errors.New("csv-sink: dir is required")
	}
	comma, err := c.delimiter()
	if err != nil {
		return err
	}
	d.cfg, d.comma = c, comma
	return nil
}

// Path returns the file a table is written to.
func Path(dir, table string) string {
	return filepath.Join(dir, table+Ext)
}

func (d *driver) Push(ctx context.Context, t *transform.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !d.ready {
		if err := os.MkdirAll(d.cfg.Dir, 0o755); err != nil {
			return &crash.OutputWriteError{Target: d.cfg.Dir, Err: err}
		}
		d.ready = true
	}
	dst := Path(d.cfg.Dir, t.Name)
	if err := d.write(dst, t); err != nil {
		return &crash.OutputWriteError{Target: dst, Err: err}
	}
	logging.L().Info("wrote table", "table", t.Name, "rows", t.Len(), "path", dst)
	return nil
}

// write goes through a temp file in the same dir so dst is either the old
// content or the complete new content.
func (d *driver) write(dst string, t *transform.Table) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	w.Comma = d.comma
	if err = w.Write(t.Columns); err != nil {
		return err
	}
	if err = w.WriteAll(t.Rows); err != nil {
		return err
	}
	if err = tmp.Chmod(0o644); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func (d *driver) Close() error { return nil }

func init() {
	sink.Register("csv", func() sink.Adapter { return &driver{} })
}
