package provider

import (
	"fmt"
	"sync"

	"github.com/agentplane/agentplane/faults"
)

// Registry resolves providers by name for the hosting layer.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: map[string]*Provider{}}
}

func (r *Registry) Register(p *Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.providers[p.Name()]; taken {
		return faults.Conflict(fmt.Sprintf("a provider named %s is already registered", p.Name()))
	}
	r.providers[p.Name()] = p
	return nil
}

func (r *Registry) Resolve(name string) (*Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, faults.NotFound(fmt.Sprintf("no provider named %s is registered", name))
	}
	return p, nil
}

// Names returns the registered provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
