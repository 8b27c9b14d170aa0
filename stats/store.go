package stats

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"

	"music-search-api-go/logcolors"
)

const (
	statsBucketName = "stats"
	statsKey        = "server_stats"
)

// Store persists counters to a dedicated bbolt file so they survive restarts
type Store struct {
	db     *bolt.DB
	dbPath string
	mu     sync.Mutex
}

// PersistedStats represents the stats data that gets persisted to disk
type PersistedStats struct {
	// Cumulative counters (these accumulate across restarts)
	TotalRequests       int64 `json:"total_requests"`
	SearchRequests      int64 `json:"search_requests"`
	UnrankedRequests    int64 `json:"unranked_requests"`
	CreditsRequests     int64 `json:"credits_requests"`
	AdminRequests       int64 `json:"admin_requests"`
	HealthRequests      int64 `json:"health_requests"`
	OtherRequests       int64 `json:"other_requests"`
	CacheHits           int64 `json:"cache_hits"`
	CacheMisses         int64 `json:"cache_misses"`
	CreditsCacheHits    int64 `json:"credits_cache_hits"`
	CreditsCacheMisses  int64 `json:"credits_cache_misses"`
	UpstreamCalls       int64 `json:"upstream_calls"`
	UpstreamFailures    int64 `json:"upstream_failures"`
	UpstreamRateLimited int64 `json:"upstream_rate_limited"`
	Fallbacks           int64 `json:"fallbacks"`
	SharedSearches      int64 `json:"shared_searches"`
	RateLimitNormal     int64 `json:"rate_limit_normal"`
	RateLimitCached     int64 `json:"rate_limit_cached"`
	RateLimitExceeded   int64 `json:"rate_limit_exceeded"`
	Status2xx           int64 `json:"status_2xx"`
	Status4xx           int64 `json:"status_4xx"`
	Status5xx           int64 `json:"status_5xx"`

	// Response time tracking
	TotalResponseTime   int64 `json:"total_response_time"`
	ResponseCount       int64 `json:"response_count"`
	MinResponseTime     int64 `json:"min_response_time"`
	MaxResponseTime     int64 `json:"max_response_time"`
	SearchResponseTime  int64 `json:"search_response_time"`
	SearchResponseCount int64 `json:"search_response_count"`

	// Metadata
	LastSaved    time.Time `json:"last_saved"`
	FirstStarted time.Time `json:"first_started"`
}

// NewStore opens (or creates) the stats database at dbPath
func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create stats directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open stats database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(statsBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create stats bucket: %w", err)
	}

	log.Infof("%s Stats store initialized at %s", logcolors.LogStats, dbPath)
	return &Store{db: db, dbPath: dbPath}, nil
}

// Load reads persisted stats from disk into s
func (st *Store) Load(s *Stats) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	var p PersistedStats
	found := false
	err := st.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(statsBucketName)).Get([]byte(statsKey))
		if data == nil {
			return nil // No persisted stats yet
		}
		found = true
		return json.Unmarshal(data, &p)
	})
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	if !found {
		return nil
	}

	s.TotalRequests.Store(p.TotalRequests)
	s.SearchRequests.Store(p.SearchRequests)
	s.UnrankedRequests.Store(p.UnrankedRequests)
	s.CreditsRequests.Store(p.CreditsRequests)
	s.AdminRequests.Store(p.AdminRequests)
	s.HealthRequests.Store(p.HealthRequests)
	s.OtherRequests.Store(p.OtherRequests)
	s.CacheHits.Store(p.CacheHits)
	s.CacheMisses.Store(p.CacheMisses)
	s.CreditsCacheHits.Store(p.CreditsCacheHits)
	s.CreditsCacheMisses.Store(p.CreditsCacheMisses)
	s.UpstreamCalls.Store(p.UpstreamCalls)
	s.UpstreamFailures.Store(p.UpstreamFailures)
	s.UpstreamRateLimited.Store(p.UpstreamRateLimited)
	s.Fallbacks.Store(p.Fallbacks)
	s.SharedSearches.Store(p.SharedSearches)
	s.RateLimitNormal.Store(p.RateLimitNormal)
	s.RateLimitCached.Store(p.RateLimitCached)
	s.RateLimitExceeded.Store(p.RateLimitExceeded)
	s.Status2xx.Store(p.Status2xx)
	s.Status4xx.Store(p.Status4xx)
	s.Status5xx.Store(p.Status5xx)
	s.totalResponseTime.Store(p.TotalResponseTime)
	s.responseCount.Store(p.ResponseCount)
	s.searchResponseTime.Store(p.SearchResponseTime)
	s.searchResponseCount.Store(p.SearchResponseCount)

	// Only update min/max if we have valid persisted values
	if p.MinResponseTime > 0 && p.MinResponseTime < noResponseYet {
		s.minResponseTime.Store(p.MinResponseTime)
	}
	if p.MaxResponseTime > 0 {
		s.maxResponseTime.Store(p.MaxResponseTime)
	}

	if !p.FirstStarted.IsZero() {
		s.StartTime = p.FirstStarted
	}

	log.Infof("%s Loaded persisted stats (total requests: %d, first started: %s)",
		logcolors.LogStats, p.TotalRequests, p.FirstStarted.Format(time.RFC3339))
	return nil
}

// Save persists the current values of s
func (st *Store) Save(s *Stats) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	p := PersistedStats{
		TotalRequests:       s.TotalRequests.Load(),
		SearchRequests:      s.SearchRequests.Load(),
		UnrankedRequests:    s.UnrankedRequests.Load(),
		CreditsRequests:     s.CreditsRequests.Load(),
		AdminRequests:       s.AdminRequests.Load(),
		HealthRequests:      s.HealthRequests.Load(),
		OtherRequests:       s.OtherRequests.Load(),
		CacheHits:           s.CacheHits.Load(),
		CacheMisses:         s.CacheMisses.Load(),
		CreditsCacheHits:    s.CreditsCacheHits.Load(),
		CreditsCacheMisses:  s.CreditsCacheMisses.Load(),
		UpstreamCalls:       s.UpstreamCalls.Load(),
		UpstreamFailures:    s.UpstreamFailures.Load(),
		UpstreamRateLimited: s.UpstreamRateLimited.Load(),
		Fallbacks:           s.Fallbacks.Load(),
		SharedSearches:      s.SharedSearches.Load(),
		RateLimitNormal:     s.RateLimitNormal.Load(),
		RateLimitCached:     s.RateLimitCached.Load(),
		RateLimitExceeded:   s.RateLimitExceeded.Load(),
		Status2xx:           s.Status2xx.Load(),
		Status4xx:           s.Status4xx.Load(),
		Status5xx:           s.Status5xx.Load(),
		TotalResponseTime:   s.totalResponseTime.Load(),
		ResponseCount:       s.responseCount.Load(),
		MinResponseTime:     s.minResponseTime.Load(),
		MaxResponseTime:     s.maxResponseTime.Load(),
		SearchResponseTime:  s.searchResponseTime.Load(),
		SearchResponseCount: s.searchResponseCount.Load(),
		LastSaved:           time.Now(),
		FirstStarted:        s.StartTime,
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	err = st.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(statsBucketName)).Put([]byte(statsKey), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}
	return nil
}

// Close saves s one last time and closes the database
func (st *Store) Close(s *Stats) error {
	if err := st.Save(s); err != nil {
		log.Warnf("%s Failed to save stats on close: %v", logcolors.LogStats, err)
	} else {
		log.Infof("%s Stats saved on shutdown", logcolors.LogStats)
	}
	return st.db.Close()
}
