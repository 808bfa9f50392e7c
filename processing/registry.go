package processing

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/e2e-ad/rover/config"
	"github.com/e2e-ad/rover/logging"
	"github.com/e2e-ad/rover/perception"
)

// ErrUnknownModule is returned when a config names a module type nobody registered.
var ErrUnknownModule = errors.New("unknown processing module")

// Dependencies are the shared collaborators a module constructor may use.
type Dependencies struct {
	Model perception.Model
}

// A Constructor creates a module from its config attributes.
type Constructor func(
	ctx context.Context,
	deps Dependencies,
	attrs config.AttributeMap,
	logger logging.Logger,
) (Module, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// RegisterModule registers a module type. It is meant to be called from init functions and
// panics on a duplicate or empty registration.
func RegisterModule(name string, ctor Constructor) {
	if name == "" || ctor == nil {
		panic(errors.New("cannot register a module without a name and constructor"))
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		panic(errors.Errorf("module %q already registered", name))
	}
	registry[name] = ctor
}

// RegisteredModules lists the registered module types, sorted.
func RegisteredModules() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewModule constructs a registered module by type.
func NewModule(
	ctx context.Context,
	deps Dependencies,
	name string,
	attrs config.AttributeMap,
	logger logging.Logger,
) (Module, error) {
	registryMu.RLock()
	ctor, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownModule, "%q", name)
	}
	module, err := ctor(ctx, deps, attrs, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create module %q", name)
	}
	return module, nil
}
