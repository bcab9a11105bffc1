package model

import (
	"fmt"
	"sync"
	"time"

	"github.com/rzpsarthak13/redimap/internal/core"
	"github.com/rzpsarthak13/redimap/internal/index"
	"github.com/rzpsarthak13/redimap/internal/keys"
)

// Registry maps model names to their registered definitions. It is an
// explicit process-scoped object, not ambient global state: construct one at
// startup, register every model, then Freeze it. After freezing the registry
// is read-only until process exit.
type Registry struct {
	mu     sync.RWMutex
	store  core.Store
	namer  *keys.Namer
	ttl    time.Duration
	models map[string]*Definition
	frozen bool
}

// NewRegistry creates an empty registry. tempTTL bounds the lifetime of
// temporary keys created during filter resolution.
func NewRegistry(store core.Store, namer *keys.Namer, tempTTL time.Duration) *Registry {
	return &Registry{
		store:  store,
		namer:  namer,
		ttl:    tempTTL,
		models: make(map[string]*Definition),
	}
}

// Register validates a spec, builds the index strategy of every indexed
// field, and stores the resulting definition. Registering after Freeze or
// reusing a model name is an error.
func (r *Registry) Register(spec Spec) (*Definition, error) {
	spec.normalize()
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrValidation, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return nil, fmt.Errorf("%w: cannot register model %q", core.ErrReadOnly, spec.Name)
	}
	if _, exists := r.models[spec.Name]; exists {
		return nil, fmt.Errorf("%w: model %q is already registered", core.ErrValidation, spec.Name)
	}

	def := &Definition{
		Spec:   spec,
		fields: make(map[string]*Field, len(spec.Fields)),
		order:  make([]string, 0, len(spec.Fields)),
	}
	for _, fs := range spec.Fields {
		field := &Field{FieldSpec: fs}
		if fs.Indexed {
			strategy, err := index.New(fs.Index, r.store, r.namer, spec.Name, fs.Name, fs.Unique, r.ttl)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", core.ErrValidation, err)
			}
			field.Strategy = strategy
		}
		def.fields[fs.Name] = field
		def.order = append(def.order, fs.Name)
	}

	r.models[spec.Name] = def
	return def, nil
}

// Freeze makes the registry read-only. Models are defined once at process
// start; a frozen registry needs no locking discipline from readers.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Get looks a model up by name.
func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.models[name]
	return def, ok
}

// Models returns the names of all registered models.
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	return names
}
