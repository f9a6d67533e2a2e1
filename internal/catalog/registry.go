package catalog

import (
	"sync"

	"github.com/kailas-cloud/querydsl/internal/metrics"
)

// Registry holds the active catalog. Swaps are atomic for readers.
type Registry struct {
	mu       sync.RWMutex
	current  *Catalog
	revision uint64
}

// NewRegistry returns a registry serving c as revision 1.
func NewRegistry(c *Catalog) *Registry {
	r := &Registry{}
	r.Swap(c)
	return r
}

// Swap activates c and bumps the revision.
func (r *Registry) Swap(c *Catalog) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = c
	r.revision++
	metrics.CatalogRevision.Set(float64(r.revision))
	return r.revision
}

// Snapshot returns the active catalog and its revision.
func (r *Registry) Snapshot() (*Catalog, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current, r.revision
}

// Engine looks up name in the active catalog. The returned revision
// identifies the catalog the engine came from.
func (r *Registry) Engine(name string) (*Engine, uint64, error) {
	c, rev := r.Snapshot()
	e, err := c.Engine(name)
	if err != nil {
		return nil, 0, err
	}
	return e, rev, nil
}

// Engines lists the engines of the active catalog.
func (r *Registry) Engines() []*Engine {
	c, _ := r.Snapshot()
	return c.Engines()
}

// EngineCount is the number of engines in the active catalog.
func (r *Registry) EngineCount() int {
	c, _ := r.Snapshot()
	return len(c.names)
}
