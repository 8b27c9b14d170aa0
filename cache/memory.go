package cache

import (
	"strings"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryBackend keeps entries in process memory. Expired entries miss on read
// and are removed by go-cache's janitor every cleanupInterval.
type MemoryBackend struct {
	c      *gocache.Cache
	closed atomic.Bool
}

// NewMemoryBackend creates an in-memory backend
func NewMemoryBackend(cleanupInterval time.Duration) *MemoryBackend {
	return &MemoryBackend{c: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (m *MemoryBackend) Get(key string) ([]byte, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	v, ok := m.c.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	stored := v.([]byte)
	out := make([]byte, len(stored))
	copy(out, stored)
	return out, nil
}

func (m *MemoryBackend) Set(key string, value []byte, ttl time.Duration) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.c.Set(key, stored, ttl)
	return nil
}

func (m *MemoryBackend) Delete(key string) error {
	if m.closed.Load() {
		return ErrClosed
	}
	m.c.Delete(key)
	return nil
}

func (m *MemoryBackend) DeleteByPrefix(prefix string) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	n := 0
	for key := range m.c.Items() {
		if strings.HasPrefix(key, prefix) {
			m.c.Delete(key)
			n++
		}
	}
	return n, nil
}

// Len counts unexpired entries
func (m *MemoryBackend) Len() int {
	return len(m.c.Items())
}

func (m *MemoryBackend) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	m.c.Flush()
	return nil
}
