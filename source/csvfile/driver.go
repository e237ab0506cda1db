package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"crashgraph/internal/crash"
	"crashgraph/internal/logging"
	"crashgraph/source"
)

const ctxCheckEvery = 4096

type driver struct {
	cfg   Config
	delim rune
}

func (d *driver) Configure(raw any) error {
	c, ok := raw.(Config)
	if !ok {
		return fmt.Errorf("csv-source: expected Config, got %T", raw)
	}
	delim, err := c.validate()
	if err != nil {
		return err
	}
	d.cfg, d.delim = c, delim
	return nil
}

func (d *driver) Read(ctx context.Context) ([]crash.Record, error) {
	logging.L().Info("reading records", "path", d.cfg.Path)
	f, err := os.Open(d.cfg.Path)
	if err != nil {
		return nil, &crash.InputReadError{Path: d.cfg.Path, Err: err}
	}
	defer f.Close()

	recs, err := d.decode(ctx, f)
	if err != nil {
		return nil, err
	}
	logging.L().Info("read records", "path", d.cfg.Path, "rows", len(recs))
	return recs, nil
}

func (d *driver) decode(ctx context.Context, r io.Reader) ([]crash.Record, error) {
	cr := csv.NewReader(r)
	cr.Comma = d.delim

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &crash.InputReadError{Path: d.cfg.Path, Err: errors.New("empty input: no header row")}
	}
	if err != nil {
		return nil, d.readErr(err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	b, err := crash.NewBinder(header)
	if err != nil {
		var se *crash.InputSchemaError
		if errors.As(err, &se) {
			se.Path = d.cfg.Path
		}
		return nil, err
	}

	var recs []crash.Record
	for n := 0; ; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, d.readErr(err)
		}
		if d.cfg.TrimSpace {
			for i := range row {
				row[i] = strings.TrimSpace(row[i])
			}
		}
		recs = append(recs, b.Decode(row))
	}
	return recs, nil
}

func (d *driver) readErr(err error) error {
	e := &crash.InputReadError{Path: d.cfg.Path, Err: err}
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		e.Line = pe.Line
	}
	return e
}

func (d *driver) Close() error { return nil }

func init() {
	source.Register("csv", func() source.Adapter { return &driver{} })
}
