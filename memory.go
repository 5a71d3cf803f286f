package mlprep

import (
	"sync"
)

// Releasable is anything holding Arrow buffers: tables, columns and
// pipeline results.
type Releasable interface {
	Release()
}

// MemoryManager releases many intermediate tables at once. It is safe for
// concurrent use.
//
//	err := mlprep.WithMemoryManager(func(m *mlprep.MemoryManager) error {
//		clean, err := cleaner.Clean(ctx, raw, "remove", req)
//		if err != nil {
//			return err
//		}
//		m.Track(clean)
//		...
//	})
type MemoryManager struct {
	mu        sync.Mutex
	resources []Releasable
}

// NewMemoryManager creates an empty manager.
func NewMemoryManager() *MemoryManager {
	return &MemoryManager{}
}

// Track registers resource for release; nil is ignored.
func (m *MemoryManager) Track(resource Releasable) {
	if resource == nil {
		return
	}
	m.mu.Lock()
	m.resources = append(m.resources, resource)
	m.mu.Unlock()
}

// Count returns the number of tracked resources.
func (m *MemoryManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.resources)
}

// ReleaseAll releases tracked resources in reverse order and forgets them.
func (m *MemoryManager) ReleaseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.resources) - 1; i >= 0; i-- {
		m.resources[i].Release()
	}
	m.resources = m.resources[:0]
}

// WithMemoryManager runs fn and releases everything it tracked.
func WithMemoryManager(fn func(*MemoryManager) error) error {
	m := NewMemoryManager()
	defer m.ReleaseAll()
	return fn(m)
}

// WithDataFrame reads path, runs fn on the table and releases it.
func WithDataFrame(path string, fn func(*DataFrame) error) error {
	df, err := ReadFile(path)
	if err != nil {
		return err
	}
	defer df.Release()
	return fn(df)
}
