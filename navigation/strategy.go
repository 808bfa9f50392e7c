// Package navigation turns published perception state into motor commands on a fixed cadence.
package navigation

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/e2e-ad/rover/config"
	"github.com/e2e-ad/rover/sensordata"
)

// ErrUnknownStrategy is returned when a config names a strategy type nobody registered.
var ErrUnknownStrategy = errors.New("unknown navigation strategy")

// A Strategy maps a state to a motor command. Decide must be quick, must not block and must return
// a stop command for a nil state or one it cannot act on.
type Strategy interface {
	Decide(state *sensordata.FusedState) sensordata.Command
}

// StrategyFunc adapts a function into a Strategy.
type StrategyFunc func(state *sensordata.FusedState) sensordata.Command

// Decide calls f.
func (f StrategyFunc) Decide(state *sensordata.FusedState) sensordata.Command {
	return f(state)
}

// A StrategyConstructor creates a strategy from its config attributes.
type StrategyConstructor func(attrs config.AttributeMap) (Strategy, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]StrategyConstructor{}
)

// RegisterStrategy registers a strategy type. It panics on a duplicate or empty registration.
func RegisterStrategy(name string, ctor StrategyConstructor) {
	if name == "" || ctor == nil {
		panic(errors.New("cannot register a strategy without a name and constructor"))
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		panic(errors.Errorf("strategy %q already registered", name))
	}
	registry[name] = ctor
}

// RegisteredStrategies lists the registered strategy types, sorted.
func RegisteredStrategies() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewStrategy constructs a registered strategy by type.
func NewStrategy(name string, attrs config.AttributeMap) (Strategy, error) {
	registryMu.RLock()
	ctor, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownStrategy, "%q", name)
	}
	strategy, err := ctor(attrs)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create strategy %q", name)
	}
	return strategy, nil
}
