// Package search answers song searches: cache lookup, rate-limited catalog
// queries, ranking, transformation and the cache write, plus the credits
// lookup and the unranked fallback path.
package search

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"music-search-api-go/apperrors"
	"music-search-api-go/cache"
	"music-search-api-go/catalog"
	"music-search-api-go/keys"
	"music-search-api-go/logcolors"
	"music-search-api-go/metrics"
	"music-search-api-go/ranking"
	"music-search-api-go/services/musicbrainz"
	"music-search-api-go/stats"
	"music-search-api-go/ttlpolicy"
)

const (
	DefaultUpstreamLimit = 25
	DefaultCreditsTTL    = 30 * 24 * time.Hour

	// DefaultCacheOnlyRetryAfter is the hint given to callers limited to cached results
	DefaultCacheOnlyRetryAfter = time.Second
)

// Catalog is the upstream the orchestrator queries. Implementations gate their own calls.
type Catalog interface {
	SearchRecordings(ctx context.Context, query string, limit int) ([]catalog.Recording, error)
	LookupRecording(ctx context.Context, id string) (*catalog.Recording, error)
}

// Options tune an Orchestrator. Zero values get defaults.
type Options struct {
	TTL                 ttlpolicy.Policy
	CreditsTTL          time.Duration
	UpstreamLimit       int  // page size requested per query
	Fallback            bool // answer UpstreamUnavailable with the unranked path
	CacheOnlyRetryAfter time.Duration
	Stats               *stats.Stats

	Strategies func(artist, song string) []musicbrainz.Query
	Unranked   func(artist, song string) musicbrainz.Query
	Now        func() time.Time
}

// Orchestrator runs searches against an injected store and catalog
type Orchestrator struct {
	store   *cache.Store
	catalog Catalog
	opts    Options
	group   singleflight.Group
}

// New creates an orchestrator. store may wrap a nil backend.
func New(store *cache.Store, cat Catalog, opts Options) *Orchestrator {
	if store == nil {
		store = cache.NewStore(nil)
	}
	if opts.TTL.Popular <= 0 || opts.TTL.Standard <= 0 {
		opts.TTL = ttlpolicy.Default
	}
	if opts.CreditsTTL <= 0 {
		opts.CreditsTTL = DefaultCreditsTTL
	}
	if opts.UpstreamLimit <= 0 {
		opts.UpstreamLimit = DefaultUpstreamLimit
	}
	if opts.CacheOnlyRetryAfter <= 0 {
		opts.CacheOnlyRetryAfter = DefaultCacheOnlyRetryAfter
	}
	if opts.Stats == nil {
		opts.Stats = stats.Get()
	}
	if opts.Strategies == nil {
		opts.Strategies = musicbrainz.Strategies
	}
	if opts.Unranked == nil {
		opts.Unranked = musicbrainz.LooseQuery
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Orchestrator{store: store, catalog: cat, opts: opts}
}

// Store returns the cache the orchestrator reads and writes
func (o *Orchestrator) Store() *cache.Store {
	return o.store
}

type cacheOnlyKey struct{}

// WithCacheOnly marks ctx so that cache misses fail with RateLimitExceeded
// instead of reaching the upstream.
func WithCacheOnly(ctx context.Context) context.Context {
	return context.WithValue(ctx, cacheOnlyKey{}, true)
}

// IsCacheOnly reports whether ctx was marked by WithCacheOnly
func IsCacheOnly(ctx context.Context) bool {
	v, _ := ctx.Value(cacheOnlyKey{}).(bool)
	return v
}

// =============================================================================
// SEARCH
// =============================================================================

// Search returns ranked results for song, optionally by artist
func (o *Orchestrator) Search(ctx context.Context, artist, song string, limit int) (*Response, error) {
	start := time.Now()

	if err := validateSearch(artist, song, limit); err != nil {
		return nil, err
	}
	key, err := keys.SearchKey(artist, song)
	if err != nil {
		return nil, err
	}

	if resp, ok := o.fromCache(key, limit, start); ok {
		return resp, nil
	}
	o.opts.Stats.RecordCacheMiss()

	if IsCacheOnly(ctx) {
		metrics.RecordSearch("cache_only_miss", false, time.Since(start))
		return nil, o.cacheOnlyError()
	}

	v, err := o.share(ctx, key, func(ctx context.Context) (any, error) {
		return o.fetchAndStore(ctx, key, artist, song)
	})
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindUpstreamUnavailable && o.opts.Fallback {
			return o.fallback(ctx, artist, song, limit, start, err)
		}
		metrics.RecordSearch("error", false, time.Since(start))
		return nil, err
	}

	entry := v.(*CachedSearch)
	metrics.RecordSearch("miss", false, time.Since(start))
	resp := &Response{
		Results:      truncate(entry.Results, limit),
		TotalCount:   len(entry.Results),
		Ranked:       true,
		SearchTimeMs: time.Since(start).Milliseconds(),
	}
	if len(entry.Results) > 0 {
		resp.CacheTTLSeconds = int64(entry.ExpiresAt.Sub(entry.CachedAt).Seconds())
	}
	return resp, nil
}

func (o *Orchestrator) fromCache(key string, limit int, start time.Time) (*Response, bool) {
	var entry CachedSearch
	if !o.store.GetJSON(key, &entry) {
		return nil, false
	}

	// the backend may keep an entry slightly past its window
	remaining := entry.ExpiresAt.Sub(o.opts.Now())
	if remaining <= 0 {
		return nil, false
	}

	o.opts.Stats.RecordCacheHit()
	metrics.RecordSearch("hit", true, time.Since(start))
	log.Debugf("%s Hit for %s (%d results, expires in %v)", logcolors.LogCacheSearch, key, len(entry.Results), remaining.Round(time.Second))

	return &Response{
		Results:         truncate(entry.Results, limit),
		TotalCount:      len(entry.Results),
		Cached:          true,
		CacheTTLSeconds: int64(remaining.Seconds()),
		Ranked:          true,
		SearchTimeMs:    time.Since(start).Milliseconds(),
	}, true
}

// fetchAndStore runs the strategies, ranks, and writes the full list to the cache
func (o *Orchestrator) fetchAndStore(ctx context.Context, key, artist, song string) (*CachedSearch, error) {
	candidates, err := o.fetchCandidates(ctx, artist, song)
	if err != nil {
		return nil, err
	}

	scored := ranking.Rank(candidates, artist)
	results := make([]Result, 0, len(scored))
	for _, s := range scored {
		results = append(results, toResult(s))
	}
	if len(scored) > 0 {
		log.Debugf("%s %s: top %q scored %d (%s)", logcolors.LogRank, key, scored[0].Recording.Title, scored[0].Score, scored[0].Rationale())
	}

	now := o.opts.Now()
	ttl := o.opts.TTL.TTLFor(artist)
	entry := &CachedSearch{
		Results:   results,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
		Artist:    artist,
		Song:      song,
	}

	// an empty answer is not worth a slot; the next caller asks again
	if len(results) > 0 && !o.store.SetJSON(key, entry, ttl) {
		log.Warnf("%s Could not cache %s, continuing without", logcolors.LogCacheSearch, key)
	}
	return entry, nil
}

// fetchCandidates tries each query strategy in order until one returns results
func (o *Orchestrator) fetchCandidates(ctx context.Context, artist, song string) ([]catalog.Recording, error) {
	var lastErr error
	failures := 0

	for _, q := range o.opts.Strategies(artist, song) {
		recs, err := o.catalog.SearchRecordings(ctx, q.Lucene, o.opts.UpstreamLimit)
		rateLimited := apperrors.KindOf(err) == apperrors.KindRateLimitExceeded
		o.opts.Stats.RecordUpstream(err, rateLimited)

		if rateLimited {
			log.Warnf("%s Rate limited during %s query, giving up", logcolors.LogSearch, q.Name)
			return nil, err
		}
		if err != nil {
			failures++
			lastErr = err
			log.Warnf("%s %s query failed: %v", logcolors.LogSearch, q.Name, err)
			continue
		}

		if merged := dedupe(recs); len(merged) > 0 {
			log.Infof("%s %s query matched %d recordings", logcolors.LogSearch, q.Name, len(merged))
			return merged, nil
		}
	}

	if failures > 0 {
		return nil, asUnavailable(lastErr)
	}
	return nil, nil
}

// asUnavailable keeps the retry hint of an UpstreamUnavailable error and reclassifies anything else
func asUnavailable(err error) error {
	if apperrors.KindOf(err) == apperrors.KindUpstreamUnavailable {
		return err
	}
	return apperrors.Unavailable("every catalog query failed", err)
}

func dedupe(recs []catalog.Recording) []catalog.Recording {
	seen := make(map[string]bool, len(recs))
	out := make([]catalog.Recording, 0, len(recs))
	for _, r := range recs {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, r)
	}
	return out
}

// =============================================================================
// UNRANKED PATH
// =============================================================================

// SearchUnranked runs one loose query and returns candidates in upstream order.
// Nothing is cached.
func (o *Orchestrator) SearchUnranked(ctx context.Context, artist, song string, limit int) (*Response, error) {
	start := time.Now()

	if err := validateSearch(artist, song, limit); err != nil {
		return nil, err
	}
	if _, err := keys.SearchKey(artist, song); err != nil {
		return nil, err
	}
	if IsCacheOnly(ctx) {
		return nil, o.cacheOnlyError()
	}

	resp, err := o.unranked(ctx, artist, song, limit, start)
	if err != nil {
		metrics.RecordSearch("error", false, time.Since(start))
		return nil, err
	}
	metrics.RecordSearch("unranked", false, time.Since(start))
	return resp, nil
}

func (o *Orchestrator) unranked(ctx context.Context, artist, song string, limit int, start time.Time) (*Response, error) {
	q := o.opts.Unranked(artist, song)
	recs, err := o.catalog.SearchRecordings(ctx, q.Lucene, limit)
	o.opts.Stats.RecordUpstream(err, apperrors.KindOf(err) == apperrors.KindRateLimitExceeded)
	if err != nil {
		return nil, err
	}

	recs = dedupe(recs)
	results := make([]Result, 0, len(recs))
	for _, rec := range recs {
		results = append(results, toUnrankedResult(rec))
	}

	return &Response{
		Results:      truncate(results, limit),
		TotalCount:   len(results),
		Ranked:       false,
		SearchTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

// fallback answers with the unranked path after the ranked path failed.
// If that fails too the original error is returned.
func (o *Orchestrator) fallback(ctx context.Context, artist, song string, limit int, start time.Time, cause error) (*Response, error) {
	log.Warnf("%s Ranked search failed (%v), trying unranked", logcolors.LogFallback, cause)

	resp, err := o.unranked(ctx, artist, song, limit, start)
	if err != nil {
		log.Warnf("%s Unranked search failed too: %v", logcolors.LogFallback, err)
		metrics.RecordSearch("error", false, time.Since(start))
		return nil, cause
	}

	o.opts.Stats.RecordFallback()
	metrics.RecordSearch("fallback", false, time.Since(start))
	resp.Fallback = true
	return resp, nil
}

// =============================================================================
// SHARED WORK
// =============================================================================

// share runs fn once per key across concurrent callers. fn gets a context
// detached from the caller, so an abandoned caller does not stop it.
func (o *Orchestrator) share(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := o.group.DoChan(key, func() (any, error) {
		return fn(detached)
	})

	select {
	case <-ctx.Done():
		log.Debugf("%s Caller left before %s finished, work continues", logcolors.LogSearch, key)
		return nil, fmt.Errorf("search abandoned: %w", ctx.Err())
	case res := <-ch:
		if res.Shared {
			o.opts.Stats.RecordShared()
		}
		return res.Val, res.Err
	}
}

func (o *Orchestrator) cacheOnlyError() error {
	return apperrors.RateLimited("request rate too high for uncached searches", o.opts.CacheOnlyRetryAfter, nil)
}

func truncate(results []Result, limit int) []Result {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}
