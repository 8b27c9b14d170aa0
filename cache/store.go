package cache

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"music-search-api-go/logcolors"
	"music-search-api-go/metrics"
)

// Store is the degradation-safe cache used by the rest of the service.
// A nil backend behaves like an unreachable store.
type Store struct {
	backend  Backend
	failures atomic.Int64
}

// NewStore wraps backend. backend may be nil.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Backend returns the wrapped backend, or nil
func (s *Store) Backend() Backend {
	return s.backend
}

// Available reports whether a backend is configured
func (s *Store) Available() bool {
	return s.backend != nil
}

// Failures returns how many operations failed since start
func (s *Store) Failures() int64 {
	return s.failures.Load()
}

// Len returns the number of entries when the backend can count them, else -1
func (s *Store) Len() int {
	if c, ok := s.backend.(Counter); ok {
		return c.Len()
	}
	return -1
}

// Get returns the value stored under key
func (s *Store) Get(key string) ([]byte, bool) {
	var value []byte
	err := s.guard("get", key, func(b Backend) error {
		v, err := b.Get(key)
		value = v
		return err
	})

	switch {
	case err == nil:
		metrics.RecordCacheOp("get", "hit")
		return value, true
	case errors.Is(err, ErrNotFound):
		metrics.RecordCacheOp("get", "miss")
	default:
		s.result("get", err)
	}
	return nil, false
}

// Set stores value under key for ttl. It reports whether the write succeeded.
func (s *Store) Set(key string, value []byte, ttl time.Duration) bool {
	err := s.guard("set", key, func(b Backend) error {
		return b.Set(key, value, ttl)
	})
	return s.result("set", err)
}

// Delete removes key. Deleting a missing key succeeds.
func (s *Store) Delete(key string) bool {
	err := s.guard("delete", key, func(b Backend) error {
		if err := b.Delete(key); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		return nil
	})
	return s.result("delete", err)
}

// DeleteByPrefix removes every key starting with prefix and returns how many
// were removed. On failure only the entries removed before it are counted.
func (s *Store) DeleteByPrefix(prefix string) int {
	var n int
	err := s.guard("delete_prefix", prefix, func(b Backend) error {
		count, err := b.DeleteByPrefix(prefix)
		n = count
		return err
	})
	if !s.result("delete_prefix", err) {
		return n
	}
	log.Infof("%s Removed %d entries with prefix %q", logcolors.LogCacheClear, n, prefix)
	return n
}

// GetJSON decodes the value under key into v. A value that no longer decodes
// is treated as a miss.
func (s *Store) GetJSON(key string, v any) bool {
	data, ok := s.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Warnf("%s Discarding undecodable entry %s: %v", logcolors.LogCache, key, err)
		s.Delete(key)
		return false
	}
	return true
}

// SetJSON encodes v and stores it under key
func (s *Store) SetJSON(key string, v any, ttl time.Duration) bool {
	data, err := json.Marshal(v)
	if err != nil {
		log.Errorf("%s Failed to encode entry %s: %v", logcolors.LogCache, key, err)
		s.failures.Add(1)
		return false
	}
	return s.Set(key, data, ttl)
}

// Sweep removes expired entries when the backend supports it
func (s *Store) Sweep() int {
	sw, ok := s.backend.(Sweeper)
	if !ok {
		return 0
	}
	var n int
	err := s.guard("sweep", "", func(Backend) error {
		count, err := sw.PurgeExpired()
		n = count
		return err
	})
	if s.result("sweep", err) && n > 0 {
		metrics.CacheEntriesSwept.Add(float64(n))
		log.Infof("%s Removed %d expired entries", logcolors.LogCacheSweep, n)
	}
	return n
}

// Close closes the backend
func (s *Store) Close() error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}

// guard runs fn against the backend, turning a missing backend or a panic into an error
func (s *Store) guard(op, key string, fn func(Backend) error) (err error) {
	if s.backend == nil {
		return errUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cache backend panicked during %s %q: %v", op, key, r)
		}
	}()
	return fn(s.backend)
}

var errUnavailable = errors.New("cache: no backend configured")

func (s *Store) result(op string, err error) bool {
	if err == nil {
		metrics.RecordCacheOp(op, "ok")
		return true
	}
	s.failures.Add(1)
	metrics.RecordCacheOp(op, "fail")
	if !errors.Is(err, errUnavailable) {
		log.Warnf("%s %s failed, continuing without cache: %v", logcolors.LogCache, op, err)
	}
	return false
}
