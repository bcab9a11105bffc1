package kvstore

import (
	"fmt"
	"sync"

	"github.com/rzpsarthak13/redimap/internal/core"
)

// StoreFactory is the Strategy interface for creating store implementations.
// Each backend (Redis, in-memory, etc.) implements this interface to provide
// its own factory method.
type StoreFactory interface {
	// Create creates a new store instance based on the provided configuration.
	Create(config StoreConfig) (core.Store, error)

	// Type returns the type identifier for this factory (e.g., "redis", "memory").
	Type() string

	// Validate validates the configuration specific to this store type.
	Validate(config StoreConfig) error
}

// StoreConfig represents the configuration needed to create a store.
type StoreConfig struct {
	Type         string
	Endpoints    []string
	Password     string
	DB           int
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
	DialTimeout  int64 // nanoseconds
	ReadTimeout  int64 // nanoseconds
	WriteTimeout int64 // nanoseconds
}

var (
	// factoryRegistry stores all registered store factories.
	factoryRegistry = make(map[string]StoreFactory)

	// registryMutex protects the registry from concurrent access.
	registryMutex sync.RWMutex
)

// RegisterFactory registers a store factory.
// This is called automatically by each implementation's init() function.
func RegisterFactory(factory StoreFactory) {
	if factory == nil {
		panic("factory cannot be nil")
	}
	if factory.Type() == "" {
		panic("factory type cannot be empty")
	}

	registryMutex.Lock()
	defer registryMutex.Unlock()

	if _, exists := factoryRegistry[factory.Type()]; exists {
		panic(fmt.Sprintf("factory for type %q is already registered", factory.Type()))
	}

	factoryRegistry[factory.Type()] = factory
}

// Create creates a store instance using the appropriate factory based on
// config.Type.
func Create(config StoreConfig) (core.Store, error) {
	if config.Type == "" {
		return nil, fmt.Errorf("store type is required")
	}

	registryMutex.RLock()
	factory, exists := factoryRegistry[config.Type]
	registryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}

	if err := factory.Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", config.Type, err)
	}

	return factory.Create(config)
}

// RegisteredTypes returns a list of all registered store types.
func RegisteredTypes() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	types := make([]string, 0, len(factoryRegistry))
	for t := range factoryRegistry {
		types = append(types, t)
	}
	return types
}

// IsTypeRegistered checks if a store type is registered.
func IsTypeRegistered(storeType string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	_, exists := factoryRegistry[storeType]
	return exists
}
