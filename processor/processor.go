// Package processor defines the pluggable component that turns an ordered
// product identifier into delivered files. Implementations are registered
// under a name at startup; configuration binds collections to processors by
// that name, keeping reflection out of the hot path.
package processor

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/earthsight/oseo-server/metadata/models"
)

// Request carries everything a processor needs to fulfil one order item.
// Processors must be idempotent with respect to (OrderID, ItemID): work
// items are redelivered at least once on failure.
type Request struct {
	Identifier      string
	ItemID          string
	OrderID         int64
	Username        string
	Packaging       string
	Options         map[string]string
	DeliveryOptions []models.SelectedDeliveryOption
}

// ItemProcessor fulfils order items and assists option validation.
type ItemProcessor interface {
	// ParseOption canonicalises an option value that did not literally match
	// any configured choice. The returned value is matched again.
	ParseOption(name, value string) (string, error)
	// ProcessItemOnlineAccess produces the item's files under the online
	// access root. It returns server-relative file URLs and operator detail
	// text.
	ProcessItemOnlineAccess(ctx context.Context, req Request) (fileURLs []string, details string, err error)
	// PackageFiles combines produced files according to the requested
	// packaging, returning the resulting file URLs.
	PackageFiles(ctx context.Context, req Request, fileURLs []string) ([]string, error)
	// CleanFiles removes produced files, typically on expiry.
	CleanFiles(fileURLs []string) error
}

// Constructor builds a processor from its configuration settings.
type Constructor func(settings map[string]string) (ItemProcessor, error)

// Registry maps processor names to constructed instances.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	instances    map[string]ItemProcessor
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
		instances:    make(map[string]ItemProcessor),
	}
}

// Register makes a processor constructor available under a name.
func (r *Registry) Register(name string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[name] = c
}

// Configure instantiates the named processor with its settings. Called once
// per configured processor at startup.
func (r *Registry) Configure(name string, settings map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.constructors[name]
	if !ok {
		return fmt.Errorf("processor: no constructor registered for %q", name)
	}
	p, err := c(settings)
	if err != nil {
		return fmt.Errorf("processor: configuring %q: %v", name, err)
	}
	r.instances[name] = p
	return nil
}

// Get returns the configured processor instance for a name.
func (r *Registry) Get(name string) (ItemProcessor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.instances[name]
	if !ok {
		return nil, fmt.Errorf("processor: %q is not configured", name)
	}
	return p, nil
}

// Names returns the configured processor names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.instances))
	for name := range r.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
