// Package inject provides collaborators whose methods can be replaced per test.
package inject

import (
	"context"
	"image"

	"github.com/e2e-ad/rover/perception"
	"github.com/e2e-ad/rover/sensordata"
)

// Model is an injected perception model.
type Model struct {
	perception.Model
	DirectionFunc func(ctx context.Context, img image.Image) (sensordata.Direction, error)
	CloseFunc     func() error
}

// Direction calls the injected Direction or the real version.
func (m *Model) Direction(ctx context.Context, img image.Image) (sensordata.Direction, error) {
	if m.DirectionFunc == nil {
		return m.Model.Direction(ctx, img)
	}
	return m.DirectionFunc(ctx, img)
}

// Close calls the injected Close or the real version.
func (m *Model) Close() error {
	if m.CloseFunc == nil {
		if m.Model == nil {
			return nil
		}
		return m.Model.Close()
	}
	return m.CloseFunc()
}
