package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Factory creates an Executor for one database type.
type Factory func(ctx context.Context, cfg *Config) (Executor, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes an adapter available under the given type name.
// Driver packages call this from init.
func Register(dbType string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[dbType]; dup {
		panic(fmt.Sprintf("datasource: Register called twice for type %q", dbType))
	}
	registry[dbType] = factory
}

// New creates an Executor for the given database type.
func New(ctx context.Context, dbType string, cfg *Config) (Executor, error) {
	registryMu.RLock()
	factory, ok := registry[dbType]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown datasource type %q (registered: %v)", dbType, registeredTypes())
	}

	return factory(ctx, cfg)
}

func registeredTypes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
