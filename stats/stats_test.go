package stats

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRequestRoutes(t *testing.T) {
	s := New()
	for _, route := range []string{"/search", "/search", "/search/unranked", "/credits/{recordingId}", "/stats", "/cache/clear", "/health", "/metrics"} {
		s.RecordRequest(route)
	}

	assert.Equal(t, int64(8), s.TotalRequests.Load())
	assert.Equal(t, int64(2), s.SearchRequests.Load())
	assert.Equal(t, int64(1), s.UnrankedRequests.Load())
	assert.Equal(t, int64(1), s.CreditsRequests.Load())
	assert.Equal(t, int64(2), s.AdminRequests.Load())
	assert.Equal(t, int64(1), s.HealthRequests.Load())
	assert.Equal(t, int64(1), s.OtherRequests.Load())
}

func TestCacheHitRate(t *testing.T) {
	s := New()
	assert.Zero(t, s.CacheHitRate())

	s.RecordCacheHit()
	s.RecordCacheHit()
	s.RecordCacheHit()
	s.RecordCacheMiss()
	assert.InDelta(t, 75.0, s.CacheHitRate(), 0.001)
}

func TestRecordUpstream(t *testing.T) {
	s := New()
	s.RecordUpstream(nil, false)
	s.RecordUpstream(errors.New("down"), false)
	s.RecordUpstream(errors.New("slow down"), true)

	assert.Equal(t, int64(3), s.UpstreamCalls.Load())
	assert.Equal(t, int64(1), s.UpstreamFailures.Load())
	assert.Equal(t, int64(1), s.UpstreamRateLimited.Load())
}

func TestResponseTimes(t *testing.T) {
	s := New()
	assert.Zero(t, s.MinResponseTime())
	assert.Zero(t, s.AvgResponseTime())

	s.RecordResponseTime(10*time.Millisecond, "/search")
	s.RecordResponseTime(30*time.Millisecond, "/health")

	assert.Equal(t, 10*time.Millisecond, s.MinResponseTime())
	assert.Equal(t, 30*time.Millisecond, s.MaxResponseTime())
	assert.Equal(t, 20*time.Millisecond, s.AvgResponseTime())
	assert.Equal(t, 10*time.Millisecond, s.AvgSearchResponseTime())
}

func TestConcurrentRecording(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.RecordRequest("/search")
			s.RecordStatusCode(200 + (i%2)*300)
			s.RecordResponseTime(time.Duration(i+1)*time.Millisecond, "/search")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(100), s.SearchRequests.Load())
	assert.Equal(t, int64(50), s.Status2xx.Load())
	assert.Equal(t, int64(50), s.Status5xx.Load())
	assert.Equal(t, time.Millisecond, s.MinResponseTime())
	assert.Equal(t, 100*time.Millisecond, s.MaxResponseTime())
}

func TestSnapshotSections(t *testing.T) {
	snap := New().Snapshot()
	for _, section := range []string{"server", "requests", "cache", "upstream", "rate_limiting", "responses", "response_times"} {
		assert.Contains(t, snap, section)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "stats.db")

	store, err := NewStore(path)
	require.NoError(t, err)

	before := New()
	before.StartTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	before.RecordRequest("/search")
	before.RecordCacheHit()
	before.RecordFallback()
	before.RecordResponseTime(5*time.Millisecond, "/search")
	require.NoError(t, store.Close(before))

	store, err = NewStore(path)
	require.NoError(t, err)
	defer store.Close(New())

	after := New()
	require.NoError(t, store.Load(after))
	assert.Equal(t, int64(1), after.SearchRequests.Load())
	assert.Equal(t, int64(1), after.CacheHits.Load())
	assert.Equal(t, int64(1), after.Fallbacks.Load())
	assert.Equal(t, 5*time.Millisecond, after.MinResponseTime())
	assert.True(t, before.StartTime.Equal(after.StartTime))
}

func TestStoreLoadEmpty(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "stats.db"))
	require.NoError(t, err)
	defer store.Close(New())

	s := New()
	require.NoError(t, store.Load(s))
	assert.Zero(t, s.TotalRequests.Load())
	assert.Zero(t, s.MinResponseTime())
}
