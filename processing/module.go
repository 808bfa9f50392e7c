// Package processing implements the perception pipeline: an ordered list of modules threaded
// over a fresh FusedState each cycle, whose result is published to the hub.
package processing

import (
	"context"

	"github.com/e2e-ad/rover/sensordata"
)

// Module is one perception step. Process may read any field of the state and returns a state
// carrying the same or additional information. It must not block past ctx.
type Module interface {
	Name() string
	Process(ctx context.Context, state *sensordata.FusedState) (*sensordata.FusedState, error)
}

// ModuleFunc adapts a function into a Module.
type ModuleFunc func(ctx context.Context, state *sensordata.FusedState) (*sensordata.FusedState, error)

type namedModuleFunc struct {
	name string
	fn   ModuleFunc
}

// NewModuleFunc returns a Module with the given name that calls fn.
func NewModuleFunc(name string, fn ModuleFunc) Module {
	return &namedModuleFunc{name: name, fn: fn}
}

func (m *namedModuleFunc) Name() string {
	return m.name
}

func (m *namedModuleFunc) Process(ctx context.Context, state *sensordata.FusedState) (*sensordata.FusedState, error) {
	return m.fn(ctx, state)
}
