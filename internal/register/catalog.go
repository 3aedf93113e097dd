package register

import (
	"sync"

	"github.com/demcon/embeddeddebugger/internal/protocol"
)

// Catalog is the set of registers known for every CPU on a medium,
// keyed by (cpu_id, offset, direction) and iterable in load order.
type Catalog struct {
	mu    sync.Mutex
	byKey map[Key]*Register
	order []*Register
}

func NewCatalog() *Catalog {
	return &Catalog{byKey: make(map[Key]*Register)}
}

// Add inserts r if its key is not already present. Returns false if a
// register with the same key already exists.
func (c *Catalog) Add(r *Register) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := r.Key()
	if _, exists := c.byKey[key]; exists {
		return false
	}
	c.byKey[key] = r
	c.order = append(c.order, r)
	return true
}

func (c *Catalog) Get(cpuID uint8, offset uint32, dir protocol.Direction) (*Register, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.byKey[Key{CPUID: cpuID, Offset: offset, Direction: dir}]
	return r, ok
}

// All returns every register in load order.
func (c *Catalog) All() []*Register {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Register, len(c.order))
	copy(out, c.order)
	return out
}

// RemoveCPU drops every register belonging to cpuID, e.g. when that CPU
// is unregistered or the medium disconnects.
func (c *Catalog) RemoveCPU(cpuID uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.order[:0]
	for _, r := range c.order {
		if r.CPUID == cpuID {
			delete(c.byKey, r.Key())
			continue
		}
		kept = append(kept, r)
	}
	c.order = kept
}

// Clear empties the catalog entirely.
func (c *Catalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey = make(map[Key]*Register)
	c.order = nil
}
