package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingBackend fails every operation, optionally by panicking
type failingBackend struct {
	panics bool
}

var errBackendDown = errors.New("connection refused")

func (f failingBackend) fail() error {
	if f.panics {
		panic("backend exploded")
	}
	return errBackendDown
}

func (f failingBackend) Get(string) ([]byte, error) { return nil, f.fail() }
func (f failingBackend) Set(string, []byte, time.Duration) error { return f.fail() }
func (f failingBackend) Delete(string) error { return f.fail() }
func (f failingBackend) DeleteByPrefix(string) (int, error) { return 0, f.fail() }
func (f failingBackend) Close() error { return nil }

type result struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
}

func TestStore_JSONRoundTripPreservesOrder(t *testing.T) {
	store := NewStore(NewMemoryBackend(time.Minute))
	defer store.Close()

	in := []result{{"c", 3}, {"a", 1}, {"b", 2}}
	require.True(t, store.SetJSON("search:x:y", in, time.Hour))

	var out []result
	require.True(t, store.GetJSON("search:x:y", &out))
	assert.Equal(t, in, out)
}

func TestStore_DegradesWhenBackendFails(t *testing.T) {
	for _, panics := range []bool{false, true} {
		store := NewStore(failingBackend{panics: panics})

		assert.NotPanics(t, func() {
			_, ok := store.Get("k")
			assert.False(t, ok)
			assert.False(t, store.Set("k", []byte("v"), time.Minute))
			assert.False(t, store.Delete("k"))
			assert.Equal(t, 0, store.DeleteByPrefix("search:"))

			var v []result
			assert.False(t, store.GetJSON("k", &v))
			assert.False(t, store.SetJSON("k", []result{{"a", 1}}, time.Minute))
		})
		assert.Equal(t, int64(6), store.Failures(), "panics=%v", panics)
	}
}

func TestStore_NilBackendIsUnreachable(t *testing.T) {
	store := NewStore(nil)

	assert.False(t, store.Available())
	_, ok := store.Get("k")
	assert.False(t, ok)
	assert.False(t, store.Set("k", []byte("v"), time.Minute))
	assert.False(t, store.Delete("k"))
	assert.Equal(t, 0, store.DeleteByPrefix(""))
	assert.Equal(t, -1, store.Len())
	assert.Equal(t, 0, store.Sweep())
	assert.NoError(t, store.Close())
}

func TestStore_MissIsNotAFailure(t *testing.T) {
	store := NewStore(NewMemoryBackend(time.Minute))

	_, ok := store.Get("absent")
	assert.False(t, ok)
	assert.True(t, store.Delete("absent"))
	assert.Equal(t, int64(0), store.Failures())
}

func TestStore_UndecodableEntryIsDropped(t *testing.T) {
	store := NewStore(NewMemoryBackend(time.Minute))
	require.True(t, store.Set("k", []byte("{not json"), time.Minute))

	var out []result
	assert.False(t, store.GetJSON("k", &out))

	_, ok := store.Get("k")
	assert.False(t, ok)
}

func TestStore_SetJSONUnencodable(t *testing.T) {
	store := NewStore(NewMemoryBackend(time.Minute))
	assert.False(t, store.SetJSON("k", make(chan int), time.Minute))
	assert.Equal(t, int64(1), store.Failures())
}

func TestStore_DeleteByPrefix(t *testing.T) {
	store := NewStore(NewMemoryBackend(time.Minute))
	store.Set("search:a:b", []byte("1"), time.Minute)
	store.Set("search:c:d", []byte("2"), time.Minute)
	store.Set("credits:x", []byte("3"), time.Minute)

	assert.Equal(t, 2, store.DeleteByPrefix("search:"))
	assert.Equal(t, 1, store.Len())

	_, ok := store.Get("credits:x")
	assert.True(t, ok)
}
