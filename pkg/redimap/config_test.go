package redimap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())
	assert.Equal(t, "redis", config.Store.Type)
	assert.Equal(t, []string{"localhost:6379"}, config.Store.Endpoints)
	assert.Equal(t, time.Minute, config.TempKeyTTL)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  type: memory
namespace: staging
`), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", config.Store.Type)
	assert.Equal(t, "staging", config.Namespace)

	// Unset fields keep their defaults.
	assert.Equal(t, 10, config.Store.PoolSize)
	assert.Equal(t, time.Minute, config.TempKeyTTL)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: [not a map"), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	config := DefaultConfig()
	config.Store.Type = ""
	assert.Error(t, config.Validate())

	config = DefaultConfig()
	config.Store.Endpoints = nil
	assert.Error(t, config.Validate())

	config = DefaultConfig()
	config.TempKeyTTL = -time.Second
	assert.Error(t, config.Validate())
}
