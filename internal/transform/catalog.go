package transform

import (
	"sync"

	"github.com/Versifine/packetgate/internal/wrapper"
)

// Catalog maps wrapper names to the correction applied before they are
// encoded. It is safe for concurrent use.
type Catalog struct {
	mu          sync.RWMutex
	corrections map[string]wrapper.Correction
}

func NewCatalog() *Catalog {
	return &Catalog{corrections: make(map[string]wrapper.Correction)}
}

// Register sets the correction for name, replacing any previous one.
// A nil correction removes it.
func (c *Catalog) Register(name string, fn wrapper.Correction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fn == nil {
		delete(c.corrections, name)
		return
	}
	c.corrections[name] = fn
}

func (c *Catalog) RegisterAll(corrections map[string]wrapper.Correction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name, fn := range corrections {
		c.corrections[name] = fn
	}
}

func (c *Catalog) Lookup(name string) (wrapper.Correction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fn, ok := c.corrections[name]
	return fn, ok
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.corrections)
}
