package redimap

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the root configuration for a redimap client.
type Config struct {
	// Store contains configuration for the key-value store.
	Store StoreConfig `yaml:"store" json:"store"`

	// Namespace is an optional prefix applied to every key the client
	// derives, letting several deployments share one store.
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`

	// TempKeyTTL bounds the lifetime of temporary keys created while
	// resolving multi-clause filters, so a killed process cannot leak
	// unbounded state into the shared store.
	TempKeyTTL time.Duration `yaml:"temp_key_ttl,omitempty" json:"temp_key_ttl,omitempty"`
}

// StoreConfig contains configuration for the key-value store.
type StoreConfig struct {
	// Type specifies the store type. Supports "redis" or "memory".
	Type string `yaml:"type" json:"type"`

	// Endpoints is a list of store endpoints. For single-node Redis, use a
	// single endpoint.
	Endpoints []string `yaml:"endpoints" json:"endpoints"`

	// Password is the authentication password for Redis.
	Password string `yaml:"password,omitempty" json:"password,omitempty"`

	// DB is the Redis database number (0-15).
	DB int `yaml:"db,omitempty" json:"db,omitempty"`

	// MaxRetries is the maximum number of retries for failed operations.
	MaxRetries int `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`

	// PoolSize is the connection pool size.
	PoolSize int `yaml:"pool_size,omitempty" json:"pool_size,omitempty"`

	// MinIdleConns is the minimum number of idle connections in the pool.
	MinIdleConns int `yaml:"min_idle_conns,omitempty" json:"min_idle_conns,omitempty"`

	// DialTimeout is the timeout for establishing connections.
	DialTimeout time.Duration `yaml:"dial_timeout,omitempty" json:"dial_timeout,omitempty"`

	// ReadTimeout is the timeout for read operations.
	ReadTimeout time.Duration `yaml:"read_timeout,omitempty" json:"read_timeout,omitempty"`

	// WriteTimeout is the timeout for write operations.
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty" json:"write_timeout,omitempty"`
}

// DefaultConfig returns a configuration with sensible defaults for a local
// single-node Redis.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Type:         "redis",
			Endpoints:    []string{"localhost:6379"},
			DB:           0,
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		TempKeyTTL: 60 * time.Second,
	}
}

// LoadConfig reads a YAML configuration file, applying defaults for any
// setting the file omits.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration for obvious mistakes before any
// connection is attempted.
func (c *Config) Validate() error {
	if c.Store.Type == "" {
		return fmt.Errorf("store type is required")
	}
	if c.Store.Type == "redis" && len(c.Store.Endpoints) == 0 {
		return fmt.Errorf("at least one endpoint is required for Redis")
	}
	if c.TempKeyTTL < 0 {
		return fmt.Errorf("temp_key_ttl must be non-negative, got: %v", c.TempKeyTTL)
	}
	return nil
}
