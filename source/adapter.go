package source

import (
	"context"
	"fmt"

	"crashgraph/internal/crash"
)

// Adapter loads the full input snapshot in one call.
type Adapter interface {
	Configure(any) error // driver-specific config struct
	Read(context.Context) ([]crash.Record, error)
	Close() error
}

// Factory builds an Adapter.
type Factory func() Adapter

var registry = map[string]Factory{}

// Register is called from each driver's init().
func Register(name string, f Factory) {
	registry[name] = f
}

// NewAdapter returns a driver by name ("csv", ...).
func NewAdapter(name string) (Adapter, error) {
	if f, ok := registry[name]; ok {
		return f(), nil
	}
	return nil, fmt.Errorf("source: unsupported kind %q", name)
}
