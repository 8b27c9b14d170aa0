package cache

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBadger(t *testing.T) *BadgerBackend {
	t.Helper()
	bb, err := NewInMemoryBadgerBackend()
	require.NoError(t, err)
	t.Cleanup(func() { bb.Close() })
	return bb
}

func TestBadgerBackend_SetGetDelete(t *testing.T) {
	bb := newTestBadger(t)

	require.NoError(t, bb.Set("credits:abc", []byte(`{"songwriters":[]}`), time.Hour))

	got, err := bb.Get("credits:abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"songwriters":[]}`, string(got))

	require.NoError(t, bb.Delete("credits:abc"))
	_, err = bb.Get("credits:abc")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestBadgerBackend_TTL(t *testing.T) {
	bb := newTestBadger(t)

	// badger expiry has one-second resolution
	require.NoError(t, bb.Set("k", []byte("v"), time.Second))
	time.Sleep(2100 * time.Millisecond)

	_, err := bb.Get("k")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestBadgerBackend_DeleteByPrefix(t *testing.T) {
	bb := newTestBadger(t)

	require.NoError(t, bb.Set("search:a:b", []byte("1"), time.Hour))
	require.NoError(t, bb.Set("search:c:d", []byte("2"), time.Hour))
	require.NoError(t, bb.Set("credits:x", []byte("3"), time.Hour))

	n, err := bb.DeleteByPrefix("search:")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, bb.Len())

	n, err = bb.DeleteByPrefix("search:")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestBadgerBackend_PurgeExpiredInMemory(t *testing.T) {
	bb := newTestBadger(t)

	n, err := bb.PurgeExpired()
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestBadgerBackend_OnDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badger")

	bb, err := NewBadgerBackend(dir)
	require.NoError(t, err)
	require.NoError(t, bb.Set("k", []byte("v"), time.Hour))
	require.NoError(t, bb.Close())
	require.NoError(t, bb.Close())

	reopened, err := NewBadgerBackend(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestBadgerBackend_BehindStore(t *testing.T) {
	store := NewStore(newTestBadger(t))

	in := []result{{"z", 9}, {"y", 8}}
	require.True(t, store.SetJSON("search:a:b", in, time.Hour))

	var out []result
	require.True(t, store.GetJSON("search:a:b", &out))
	assert.Equal(t, in, out)
}
