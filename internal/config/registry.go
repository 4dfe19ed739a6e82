package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/adrpadua/battlereport-hud/pkg/provider/llm"
)

// ErrProviderNotRegistered is returned by [Registry.CreateInference] when no
// factory has been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// InferenceFactory builds an [llm.Provider] from its configuration entry.
type InferenceFactory func(ProviderEntry) (llm.Provider, error)

// Registry maps provider names to their constructor functions. It is safe
// for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	inference map[string]InferenceFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		inference: make(map[string]InferenceFactory),
	}
}

// RegisterInference registers factory under name, replacing any previous
// registration.
func (r *Registry) RegisterInference(name string, factory InferenceFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inference[name] = factory
}

// CreateInference builds the provider configured by entry.
func (r *Registry) CreateInference(entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	factory, ok := r.inference[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotRegistered, entry.Name)
	}
	p, err := factory(entry)
	if err != nil {
		return nil, fmt.Errorf("config: create provider %q: %w", entry.Name, err)
	}
	return p, nil
}
