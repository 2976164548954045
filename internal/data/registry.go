package data

import (
	"fmt"
	"sync/atomic"
)

// Registry holds the active catalog and swaps it atomically on reload.
// Readers that grabbed a catalog keep a consistent snapshot.
type Registry struct {
	path    string
	current atomic.Pointer[Catalog]
}

// NewRegistry loads the catalog from path, or the built-in catalog when path is empty.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewStaticRegistry wraps an already built catalog. Reload keeps it.
func NewStaticRegistry(c *Catalog) *Registry {
	r := &Registry{}
	r.current.Store(c)
	return r
}

// Current returns the active catalog.
func (r *Registry) Current() *Catalog {
	return r.current.Load()
}

// Reload re-reads the catalog source. On error the previous catalog stays active.
func (r *Registry) Reload() error {
	if r.path == "" {
		if r.current.Load() == nil {
			r.current.Store(DefaultCatalog())
		}
		return nil
	}
	c, err := LoadCatalogFile(r.path)
	if err != nil {
		return fmt.Errorf("reloading catalog: %w", err)
	}
	r.current.Store(c)
	return nil
}
