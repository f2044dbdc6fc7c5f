// Package taskview holds the in-memory source of truth for the tasks
// currently shown. It reconciles optimistic writes, refetch results, and
// push-driven deltas; the query result always supersedes it.
package taskview

import (
	"sync"

	"taskdeck/internal/domain"
)

// Cache is an ordered collection of task snapshots plus a loading flag.
// Every transition is atomic from the perspective of any reader.
type Cache struct {
	mu      sync.Mutex
	tasks   []domain.Task
	loading bool
	seq     uint64
	applied uint64
}

func New() *Cache {
	return &Cache{}
}

// NextSeq reserves a sequence number for an outgoing list query. A response
// is applied only if its sequence is the highest resolved so far, so a late
// out-of-order response cannot revert the cache.
func (c *Cache) NextSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Replace swaps the whole collection for the query result carrying seq.
// Stale responses are discarded; it reports whether the result was applied.
func (c *Cache) Replace(seq uint64, tasks []domain.Task) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq <= c.applied {
		return false
	}
	c.applied = seq
	c.tasks = append([]domain.Task(nil), tasks...)
	return true
}

// Append adds an optimistic entry ahead of authoritative reconciliation.
func (c *Cache) Append(t domain.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = append(c.tasks, t)
}

// RemoveByID drops the entry with the given id and reports whether it existed.
func (c *Cache) RemoveByID(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.tasks {
		if t.ID == id {
			c.tasks = append(c.tasks[:i], c.tasks[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the current collection in display order.
func (c *Cache) Snapshot() []domain.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Task(nil), c.tasks...)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}

func (c *Cache) SetLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}

func (c *Cache) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Clear empties the cache and invalidates every in-flight query so a late
// response arriving after logout is ignored rather than applied.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = nil
	c.applied = c.seq
}
