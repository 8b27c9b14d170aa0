package stats

import (
	"sync/atomic"
	"time"
)

// Stats holds all server statistics with atomic counters
type Stats struct {
	// Server info
	StartTime time.Time

	// Request counters
	TotalRequests    atomic.Int64
	SearchRequests   atomic.Int64
	UnrankedRequests atomic.Int64
	CreditsRequests  atomic.Int64
	AdminRequests    atomic.Int64
	HealthRequests   atomic.Int64
	OtherRequests    atomic.Int64

	// Cache performance
	CacheHits          atomic.Int64
	CacheMisses        atomic.Int64
	CreditsCacheHits   atomic.Int64
	CreditsCacheMisses atomic.Int64

	// Upstream catalog
	UpstreamCalls       atomic.Int64
	UpstreamFailures    atomic.Int64
	UpstreamRateLimited atomic.Int64
	Fallbacks           atomic.Int64
	SharedSearches      atomic.Int64 // callers that joined an in-flight search

	// Rate limiting
	RateLimitNormal   atomic.Int64 // Requests served under normal rate limit
	RateLimitCached   atomic.Int64 // Requests served under cached-only tier
	RateLimitExceeded atomic.Int64 // Requests rejected (429)

	// Response status codes
	Status2xx atomic.Int64
	Status4xx atomic.Int64
	Status5xx atomic.Int64

	// Response time tracking (in microseconds for precision)
	totalResponseTime atomic.Int64
	responseCount     atomic.Int64
	minResponseTime   atomic.Int64
	maxResponseTime   atomic.Int64

	// Search response times (microseconds)
	searchResponseTime  atomic.Int64
	searchResponseCount atomic.Int64
}

const noResponseYet = int64(^uint64(0) >> 1) // Max int64

// Global stats instance
var global = New()

// New creates an empty stats set
func New() *Stats {
	s := &Stats{StartTime: time.Now()}
	s.minResponseTime.Store(noResponseYet)
	return s
}

// Get returns the global stats instance
func Get() *Stats {
	return global
}

// RecordRequest records a request to a specific route
func (s *Stats) RecordRequest(route string) {
	s.TotalRequests.Add(1)
	switch route {
	case "/search":
		s.SearchRequests.Add(1)
	case "/search/unranked":
		s.UnrankedRequests.Add(1)
	case "/credits/{recordingId}":
		s.CreditsRequests.Add(1)
	case "/stats", "/cache/clear", "/cache/backup", "/cache/backups", "/circuit-breaker", "/circuit-breaker/reset":
		s.AdminRequests.Add(1)
	case "/health":
		s.HealthRequests.Add(1)
	default:
		s.OtherRequests.Add(1)
	}
}

// RecordCacheHit records a search cache hit
func (s *Stats) RecordCacheHit() {
	s.CacheHits.Add(1)
}

// RecordCacheMiss records a search cache miss
func (s *Stats) RecordCacheMiss() {
	s.CacheMisses.Add(1)
}

// RecordCreditsCache records a credits lookup served from (or missing in) the cache
func (s *Stats) RecordCreditsCache(hit bool) {
	if hit {
		s.CreditsCacheHits.Add(1)
	} else {
		s.CreditsCacheMisses.Add(1)
	}
}

// RecordUpstream records one catalog call and how it ended
func (s *Stats) RecordUpstream(err error, rateLimited bool) {
	s.UpstreamCalls.Add(1)
	switch {
	case rateLimited:
		s.UpstreamRateLimited.Add(1)
	case err != nil:
		s.UpstreamFailures.Add(1)
	}
}

// RecordFallback records a search answered by the unranked path
func (s *Stats) RecordFallback() {
	s.Fallbacks.Add(1)
}

// RecordShared records a caller served by another caller's in-flight search
func (s *Stats) RecordShared() {
	s.SharedSearches.Add(1)
}

// RecordRateLimit records rate limit tier usage
func (s *Stats) RecordRateLimit(tier string) {
	switch tier {
	case "normal":
		s.RateLimitNormal.Add(1)
	case "cached":
		s.RateLimitCached.Add(1)
	case "exceeded":
		s.RateLimitExceeded.Add(1)
	}
}

// RecordStatusCode records a response status code
func (s *Stats) RecordStatusCode(code int) {
	switch {
	case code >= 200 && code < 300:
		s.Status2xx.Add(1)
	case code >= 400 && code < 500:
		s.Status4xx.Add(1)
	case code >= 500:
		s.Status5xx.Add(1)
	}
}

// RecordResponseTime records a response time
func (s *Stats) RecordResponseTime(duration time.Duration, route string) {
	us := duration.Microseconds()

	s.totalResponseTime.Add(us)
	s.responseCount.Add(1)

	// Update min/max atomically
	for {
		current := s.minResponseTime.Load()
		if us >= current || s.minResponseTime.CompareAndSwap(current, us) {
			break
		}
	}
	for {
		current := s.maxResponseTime.Load()
		if us <= current || s.maxResponseTime.CompareAndSwap(current, us) {
			break
		}
	}

	if route == "/search" {
		s.searchResponseTime.Add(us)
		s.searchResponseCount.Add(1)
	}
}

// Uptime returns the server uptime
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// CacheHitRate returns the search cache hit rate as a percentage
func (s *Stats) CacheHitRate() float64 {
	hits := s.CacheHits.Load()
	total := hits + s.CacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// AvgResponseTime returns the average response time
func (s *Stats) AvgResponseTime() time.Duration {
	count := s.responseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.totalResponseTime.Load()/count) * time.Microsecond
}

// MinResponseTime returns the minimum response time
func (s *Stats) MinResponseTime() time.Duration {
	min := s.minResponseTime.Load()
	if min == noResponseYet {
		return 0
	}
	return time.Duration(min) * time.Microsecond
}

// MaxResponseTime returns the maximum response time
func (s *Stats) MaxResponseTime() time.Duration {
	return time.Duration(s.maxResponseTime.Load()) * time.Microsecond
}

// AvgSearchResponseTime returns the average response time for /search
func (s *Stats) AvgSearchResponseTime() time.Duration {
	count := s.searchResponseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.searchResponseTime.Load()/count) * time.Microsecond
}

// Snapshot returns a point-in-time snapshot of all stats
func (s *Stats) Snapshot() map[string]interface{} {
	uptime := s.Uptime()

	return map[string]interface{}{
		"server": map[string]interface{}{
			"start_time":     s.StartTime.Format(time.RFC3339),
			"uptime":         uptime.String(),
			"uptime_seconds": int64(uptime.Seconds()),
		},
		"requests": map[string]interface{}{
			"total":    s.TotalRequests.Load(),
			"search":   s.SearchRequests.Load(),
			"unranked": s.UnrankedRequests.Load(),
			"credits":  s.CreditsRequests.Load(),
			"admin":    s.AdminRequests.Load(),
			"health":   s.HealthRequests.Load(),
			"other":    s.OtherRequests.Load(),
		},
		"cache": map[string]interface{}{
			"hits":           s.CacheHits.Load(),
			"misses":         s.CacheMisses.Load(),
			"hit_rate":       s.CacheHitRate(),
			"credits_hits":   s.CreditsCacheHits.Load(),
			"credits_misses": s.CreditsCacheMisses.Load(),
		},
		"upstream": map[string]interface{}{
			"calls":        s.UpstreamCalls.Load(),
			"failures":     s.UpstreamFailures.Load(),
			"rate_limited": s.UpstreamRateLimited.Load(),
			"fallbacks":    s.Fallbacks.Load(),
			"shared":       s.SharedSearches.Load(),
		},
		"rate_limiting": map[string]interface{}{
			"normal_tier": s.RateLimitNormal.Load(),
			"cached_tier": s.RateLimitCached.Load(),
			"exceeded":    s.RateLimitExceeded.Load(),
		},
		"responses": map[string]interface{}{
			"2xx": s.Status2xx.Load(),
			"4xx": s.Status4xx.Load(),
			"5xx": s.Status5xx.Load(),
		},
		"response_times": map[string]interface{}{
			"avg":        s.AvgResponseTime().String(),
			"min":        s.MinResponseTime().String(),
			"max":        s.MaxResponseTime().String(),
			"avg_search": s.AvgSearchResponseTime().String(),
		},
	}
}
