package sink

import (
	"context"
	"fmt"

	"crashgraph/internal/transform"
)

// Adapter is the common behaviour every sink exposes. The runner pushes
// node tables before relationship tables.
type Adapter interface {
	Configure(any) error                                // driver-specific config struct
	Push(ctx context.Context, t *transform.Table) error // consume one table
	Close() error                                       // idempotent
}

/*──────── registry ───────*/

type factory = func() Adapter

var reg = map[string]factory{}

func Register(name string, f factory) { reg[name] = f }

func NewAdapter(name string) (Adapter, error) {
	if f, ok := reg[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}
