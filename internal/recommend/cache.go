package recommend

import "sync"

// RationaleCache maps course codes to the explanation from the most recent
// recommendation call. The owning Service clears it at the start of each call.
type RationaleCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewRationaleCache() *RationaleCache {
	return &RationaleCache{entries: make(map[string]string)}
}

func (c *RationaleCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]string)
	c.mu.Unlock()
}

func (c *RationaleCache) Put(code, rationale string) {
	c.mu.Lock()
	c.entries[code] = rationale
	c.mu.Unlock()
}

// Lookup returns the rationale for code and whether it was present.
func (c *RationaleCache) Lookup(code string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[code]
	return v, ok
}

func (c *RationaleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
