// Package cache stores serialized payloads under namespaced keys with a
// per-entry TTL.
//
// A Backend is a raw store that reports every failure. A Store wraps a
// Backend and never does: when the backend is missing, failing or panicking,
// reads miss and writes report false, so callers simply run uncached.
package cache

import (
	"errors"
	"time"
)

// ErrNotFound is returned by a Backend for missing and expired keys
var ErrNotFound = errors.New("cache: key not found")

// ErrClosed is returned by a Backend used after Close
var ErrClosed = errors.New("cache: backend closed")

// Backend is a key/value store with per-entry expiry
type Backend interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	DeleteByPrefix(prefix string) (int, error)
	Close() error
}

// Sweeper is implemented by backends that need expired entries removed actively
type Sweeper interface {
	PurgeExpired() (int, error)
}

// Counter is implemented by backends that can report their size
type Counter interface {
	Len() int
}
