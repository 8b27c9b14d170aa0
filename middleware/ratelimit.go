package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"music-search-api-go/logcolors"
	"music-search-api-go/search"
	"music-search-api-go/stats"
)

// Rate limit tiers reported in X-RateLimit-Type
const (
	TierNormal   = "normal"
	TierCached   = "cached"
	TierExceeded = "exceeded"
)

type contextKey string

const rateLimitTypeKey contextKey = "rateLimitType"

// RateLimitType returns the tier the request was admitted under, if any
func RateLimitType(ctx context.Context) string {
	tier, _ := ctx.Value(rateLimitTypeKey).(string)
	return tier
}

// LimiterPair holds both normal and cached tier limiters for an IP
type LimiterPair struct {
	Normal *rate.Limiter
	Cached *rate.Limiter

	lastSeen time.Time
}

// GetNormalTokens returns the number of tokens available in the normal tier
func (lp *LimiterPair) GetNormalTokens() int {
	return int(math.Floor(lp.Normal.Tokens()))
}

// GetCachedTokens returns the number of tokens available in the cached tier
func (lp *LimiterPair) GetCachedTokens() int {
	return int(math.Floor(lp.Cached.Tokens()))
}

// IPRateLimiter manages two-tier rate limiting per IP
type IPRateLimiter struct {
	ips         map[string]*LimiterPair
	mu          *sync.RWMutex
	normalRate  rate.Limit
	normalBurst int
	cachedRate  rate.Limit
	cachedBurst int
}

// GetNormalLimit returns the normal tier burst limit
func (i *IPRateLimiter) GetNormalLimit() int {
	return i.normalBurst
}

// GetCachedLimit returns the cached tier burst limit
func (i *IPRateLimiter) GetCachedLimit() int {
	return i.cachedBurst
}

// NewIPRateLimiter creates a new two-tier rate limiter
func NewIPRateLimiter(normalRate rate.Limit, normalBurst int, cachedRate rate.Limit, cachedBurst int) *IPRateLimiter {
	return &IPRateLimiter{
		ips:         make(map[string]*LimiterPair),
		mu:          &sync.RWMutex{},
		normalRate:  normalRate,
		normalBurst: normalBurst,
		cachedRate:  cachedRate,
		cachedBurst: cachedBurst,
	}
}

// AddIP returns the pair tracked for ip, creating it on first sight
func (i *IPRateLimiter) AddIP(ip string) *LimiterPair {
	i.mu.Lock()
	defer i.mu.Unlock()

	if pair, ok := i.ips[ip]; ok {
		pair.lastSeen = time.Now()
		return pair
	}

	pair := &LimiterPair{
		Normal:   rate.NewLimiter(i.normalRate, i.normalBurst),
		Cached:   rate.NewLimiter(i.cachedRate, i.cachedBurst),
		lastSeen: time.Now(),
	}
	i.ips[ip] = pair
	return pair
}

func (i *IPRateLimiter) GetLimiter(ip string) *LimiterPair {
	return i.AddIP(ip)
}

// Len returns the number of tracked IPs
func (i *IPRateLimiter) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.ips)
}

// Prune forgets IPs not seen for maxIdle and returns how many were dropped
func (i *IPRateLimiter) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	i.mu.Lock()
	defer i.mu.Unlock()

	pruned := 0
	for ip, pair := range i.ips {
		if pair.lastSeen.Before(cutoff) {
			delete(i.ips, ip)
			pruned++
		}
	}
	return pruned
}

// Middleware admits requests on the normal tier, then on the cached tier in
// cache-only mode, and rejects the rest with 429.
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		limiters := i.GetLimiter(ip)

		if limiters.Normal.Allow() {
			stats.Get().RecordRateLimit(TierNormal)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(i.GetNormalLimit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limiters.GetNormalTokens()))
			w.Header().Set("X-RateLimit-Type", TierNormal)
			ctx := context.WithValue(r.Context(), rateLimitTypeKey, TierNormal)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		// Normal tier exceeded, try cached tier
		if limiters.Cached.Allow() {
			stats.Get().RecordRateLimit(TierCached)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(i.GetCachedLimit()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limiters.GetCachedTokens()))
			w.Header().Set("X-RateLimit-Type", TierCached)
			log.Debugf("%s IP %s exceeded normal tier, using cached tier", logcolors.LogRateLimit, ip)
			ctx := search.WithCacheOnly(r.Context())
			ctx = context.WithValue(ctx, rateLimitTypeKey, TierCached)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		// Both tiers exceeded
		stats.Get().RecordRateLimit(TierExceeded)
		log.Warnf("%s IP %s exceeded both rate limit tiers", logcolors.LogRateLimit, ip)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(i.GetCachedLimit()))
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Type", TierExceeded)
		w.Header().Set("Retry-After", "1")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"Too many requests","kind":"RateLimitExceeded","retryAfter":1}`))
	})
}

// clientIP strips the port from RemoteAddr so one client maps to one limiter
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
