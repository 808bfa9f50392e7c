package inject

import (
	"context"

	"github.com/e2e-ad/rover/sensordata"
)

// Module is an injected processing module. A nil ProcessFunc passes the state through.
type Module struct {
	ModuleName  string
	ProcessFunc func(ctx context.Context, state *sensordata.FusedState) (*sensordata.FusedState, error)
}

// Name returns ModuleName.
func (m *Module) Name() string {
	return m.ModuleName
}

// Process calls the injected Process.
func (m *Module) Process(ctx context.Context, state *sensordata.FusedState) (*sensordata.FusedState, error) {
	if m.ProcessFunc == nil {
		return state, nil
	}
	return m.ProcessFunc(ctx, state)
}

// Strategy is an injected navigation strategy. A nil DecideFunc always stops.
type Strategy struct {
	DecideFunc func(state *sensordata.FusedState) sensordata.Command
}

// Decide calls the injected Decide.
func (s *Strategy) Decide(state *sensordata.FusedState) sensordata.Command {
	if s.DecideFunc == nil {
		return sensordata.StopCommand
	}
	return s.DecideFunc(state)
}
