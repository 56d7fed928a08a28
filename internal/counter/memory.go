package counter

import (
	"context"
	"sync"
)

// MemoryCounter is an in-process counter. Counts reset on restart, so
// it is only suitable for development and tests.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

// NewMemoryCounter creates a new in-memory counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]int64)}
}

// Incr increments the counter and returns the new total.
func (c *MemoryCounter) Incr(_ context.Context, templateID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[templateID]++
	return c.counts[templateID], nil
}

// Get returns the current total.
func (c *MemoryCounter) Get(_ context.Context, templateID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[templateID], nil
}

// Close is a no-op for the in-memory counter.
func (c *MemoryCounter) Close() error { return nil }
