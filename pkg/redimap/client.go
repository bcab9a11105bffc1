// Package redimap is a typed object-mapping and query layer over Redis.
// Models declare named, typed, optionally indexed fields; instances persist
// as a deterministic set of store keys; collections filter instances by
// field value using only store-native set operations, resolved lazily.
//
// Typical usage:
//
//	client, _ := redimap.NewClient(redimap.DefaultConfig())
//	defer client.Close()
//
//	users, _ := client.Define(redimap.ModelSpec{
//		Name:   "user",
//		AutoPK: true,
//		Fields: []redimap.FieldSpec{
//			{Name: "name", Type: redimap.FieldString, Unique: true},
//			{Name: "age", Type: redimap.FieldString, Indexed: true, Index: redimap.IndexRange},
//		},
//	})
//	client.Freeze()
//
//	alice, _ := users.New(ctx)
//	name, _ := alice.Scalar("name")
//	_ = name.Set(ctx, "alice")
//
//	adults, _ := users.Collection().Filter("age__gte", 18)
//	ids, _ := adults.MemberIDs(ctx)
package redimap

import (
	"context"
	"fmt"
	"sync"

	"github.com/rzpsarthak13/redimap/internal/core"
	"github.com/rzpsarthak13/redimap/internal/keys"
	"github.com/rzpsarthak13/redimap/internal/kvstore"
	"github.com/rzpsarthak13/redimap/internal/model"
	"github.com/rzpsarthak13/redimap/internal/object"
)

// Re-exported schema types. Models are declared with these and registered
// through Client.Define.
type (
	// ModelSpec declares a model: a named, ordered set of fields.
	ModelSpec = model.Spec

	// FieldSpec declares one field of a model.
	FieldSpec = model.FieldSpec

	// FieldType identifies the store-native structure a field is stored in.
	FieldType = core.FieldType

	// IndexKind identifies the indexing strategy a field uses.
	IndexKind = core.IndexKind
)

// Field type tags.
const (
	FieldString    = core.FieldString
	FieldSet       = core.FieldSet
	FieldList      = core.FieldList
	FieldHash      = core.FieldHash
	FieldSortedSet = core.FieldSortedSet
)

// Index kinds.
const (
	IndexNone     = core.IndexNone
	IndexEquality = core.IndexEquality
	IndexRange    = core.IndexRange
)

// Error kinds, matchable with errors.Is.
var (
	ErrValidation       = core.ErrValidation
	ErrUnindexedField   = core.ErrUnindexedField
	ErrUniqueness       = core.ErrUniqueness
	ErrStoreUnavailable = core.ErrStoreUnavailable
	ErrNotFound         = core.ErrNotFound
)

// Typed field accessors, obtained from an Instance.
type (
	// ScalarField reads and writes a scalar field.
	ScalarField = object.ScalarProxy

	// SetField operates on a set field.
	SetField = object.SetProxy

	// ListField operates on a list field.
	ListField = object.ListProxy

	// HashField operates on a hash field.
	HashField = object.HashProxy

	// SortedSetField operates on a sorted-set field.
	SortedSetField = object.SortedSetProxy
)

// Client is the entry point: it owns the store connection, the key namer and
// the model registry. Define every model at startup, then Freeze.
type Client struct {
	mu       sync.Mutex
	store    core.Store
	namer    *keys.Namer
	registry *model.Registry
	config   *Config
	closed   bool
}

// NewClient connects to the configured store and returns a ready client.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrValidation, err)
	}

	store, err := kvstore.Create(kvstore.StoreConfig{
		Type:         config.Store.Type,
		Endpoints:    config.Store.Endpoints,
		Password:     config.Store.Password,
		DB:           config.Store.DB,
		MaxRetries:   config.Store.MaxRetries,
		PoolSize:     config.Store.PoolSize,
		MinIdleConns: config.Store.MinIdleConns,
		DialTimeout:  int64(config.Store.DialTimeout),
		ReadTimeout:  int64(config.Store.ReadTimeout),
		WriteTimeout: int64(config.Store.WriteTimeout),
	})
	if err != nil {
		return nil, err
	}

	return newClient(store, config), nil
}

// NewClientWithStore builds a client around an already constructed store.
// Mostly useful for tests and embedding.
func NewClientWithStore(store core.Store, config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	return newClient(store, config)
}

func newClient(store core.Store, config *Config) *Client {
	namer := keys.NewNamer(config.Namespace)
	return &Client{
		store:    store,
		namer:    namer,
		registry: model.NewRegistry(store, namer, config.TempKeyTTL),
		config:   config,
	}
}

// Define validates and registers a model, returning its handle. Models are
// defined once at process start and immutable afterward.
func (c *Client) Define(spec ModelSpec) (*Model, error) {
	def, err := c.registry.Register(spec)
	if err != nil {
		return nil, err
	}
	return &Model{def: def, client: c}, nil
}

// Freeze makes the registry read-only. Call it once every model is defined.
func (c *Client) Freeze() {
	c.registry.Freeze()
}

// Model returns the handle of an already defined model.
func (c *Client) Model(name string) (*Model, error) {
	def, ok := c.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: model %q is not defined", core.ErrValidation, name)
	}
	return &Model{def: def, client: c}, nil
}

// Ping verifies the store is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// Close closes the store connection. The client is unusable afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.store.Close()
}
