package main

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"music-search-api-go/apperrors"
	"music-search-api-go/cache"
	"music-search-api-go/circuitbreaker"
	"music-search-api-go/keys"
	"music-search-api-go/logcolors"
	"music-search-api-go/search"
	"music-search-api-go/services/notifier"
	"music-search-api-go/stats"
)

const defaultResultLimit = 10

// server holds what the handlers need. Everything is injected so tests can
// run against an httptest catalog.
type server struct {
	orch        *search.Orchestrator
	store       *cache.Store
	breaker     *circuitbreaker.CircuitBreaker
	stats       *stats.Stats
	backendName string
	breakerCfg  CircuitBreakerConfig
	ipTracked   func() int
}

// queryParam returns the first non-empty value among names
func queryParam(r *http.Request, names ...string) string {
	q := r.URL.Query()
	for _, name := range names {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

func parseLimit(r *http.Request) (int, error) {
	raw := queryParam(r, "limit", "l")
	if raw == "" {
		return defaultResultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindInvalidLimit, "limit must be a whole number between 1 and 100", err)
	}
	return limit, nil
}

func cacheStatusOf(resp *search.Response) string {
	switch {
	case resp.Fallback:
		return cacheFallback
	case resp.Cached:
		return cacheHit
	default:
		return cacheMiss
	}
}

// ===== SEARCH =====

func (s *server) searchHandler(w http.ResponseWriter, r *http.Request) {
	s.runSearch(w, r, s.orch.Search)
}

func (s *server) unrankedHandler(w http.ResponseWriter, r *http.Request) {
	s.runSearch(w, r, s.orch.SearchUnranked)
}

type searchFunc func(ctx context.Context, artist, song string, limit int) (*search.Response, error)

func (s *server) runSearch(w http.ResponseWriter, r *http.Request, fn searchFunc) {
	artist := queryParam(r, "artist", "a")
	song := queryParam(r, "song", "s")

	limit, err := parseLimit(r)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}

	log.Infof("%s artist=%q song=%q limit=%d", logcolors.LogSearch, artist, song, limit)

	resp, err := fn(r.Context(), artist, song, limit)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}
	Respond(w, r).SetCacheStatus(cacheStatusOf(resp)).JSON(resp)
}

// ===== CREDITS =====

func (s *server) creditsHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["recordingId"]

	resp, err := s.orch.LoadCredits(r.Context(), id)
	if err != nil {
		Respond(w, r).Fail(err)
		return
	}

	status := cacheMiss
	if resp.Cached {
		status = cacheHit
	}
	Respond(w, r).SetCacheStatus(status).JSON(resp)
}

// ===== HEALTH & STATS =====

func (s *server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:         "ok",
		CacheBackend:   s.backendName,
		CacheAvailable: s.store.Available(),
		CircuitBreaker: s.breaker.State().String(),
	}

	if s.breaker.IsOpen() {
		health.Status = "degraded"
		health.RetryIn = s.breaker.TimeUntilRetry().Round(time.Second).String()
	}
	if !health.CacheAvailable {
		health.Status = "degraded"
	}

	Respond(w, r).JSON(health)
}

func (s *server) statsHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := s.stats.Snapshot()

	state, failures, _ := s.breaker.Stats()
	snapshot["circuit_breaker"] = map[string]interface{}{
		"state":    state.String(),
		"failures": failures,
	}
	snapshot["cache_store"] = map[string]interface{}{
		"backend":   s.backendName,
		"available": s.store.Available(),
		"entries":   s.store.Len(),
		"failures":  s.store.Failures(),
	}
	if s.ipTracked != nil {
		snapshot["rate_limiting"].(map[string]interface{})["tracked_clients"] = s.ipTracked()
	}

	Respond(w, r).JSON(snapshot)
}

// ===== CACHE ADMIN =====

func (s *server) clearCacheHandler(w http.ResponseWriter, r *http.Request) {
	target := queryParam(r, "prefix")
	if target == "" {
		target = "all"
	}

	var namespaces []string
	switch target {
	case "search":
		namespaces = []string{keys.SearchNamespace}
	case "credits":
		namespaces = []string{keys.CreditsNamespace}
	case "all":
		namespaces = []string{keys.SearchNamespace, keys.CreditsNamespace}
	default:
		Respond(w, r).Error(http.StatusBadRequest, ErrorResponse{
			Error: "prefix must be one of search, credits, all",
			Kind:  "InvalidPrefix",
		})
		return
	}

	if !s.store.Available() {
		Respond(w, r).Fail(apperrors.New(apperrors.KindCacheUnavailable, "no cache backend configured"))
		return
	}

	deleted := 0
	for _, ns := range namespaces {
		deleted += s.store.DeleteByPrefix(keys.Prefix(ns))
	}
	log.Infof("%s Cleared %d entries (%s)", logcolors.LogCacheClear, deleted, target)

	Respond(w, r).JSON(ClearCacheResponse{
		Message: "Cache cleared",
		Prefix:  target,
		Deleted: deleted,
	})
}

func (s *server) backupTarget(w http.ResponseWriter, r *http.Request) (backupper, bool) {
	b, ok := s.store.Backend().(backupper)
	if !ok {
		Respond(w, r).Error(http.StatusNotImplemented, ErrorResponse{
			Error: "backups require the bolt cache backend",
			Kind:  "Unsupported",
		})
	}
	return b, ok
}

func (s *server) backupCacheHandler(w http.ResponseWriter, r *http.Request) {
	b, ok := s.backupTarget(w, r)
	if !ok {
		return
	}

	path, err := b.Backup()
	if err != nil {
		notifier.PublishBackupFailed(s.backendName, err)
		Respond(w, r).Fail(apperrors.Wrap(apperrors.KindCacheUnavailable, "backup failed", err))
		return
	}
	Respond(w, r).JSON(BackupResponse{Message: "Backup created", Path: path})
}

func (s *server) listBackupsHandler(w http.ResponseWriter, r *http.Request) {
	b, ok := s.backupTarget(w, r)
	if !ok {
		return
	}

	backups, err := b.ListBackups()
	if err != nil {
		Respond(w, r).Fail(apperrors.Wrap(apperrors.KindCacheUnavailable, "cannot list backups", err))
		return
	}
	if backups == nil {
		backups = []cache.BackupInfo{}
	}
	Respond(w, r).JSON(BackupListResponse{Count: len(backups), Backups: backups})
}

// ===== CIRCUIT BREAKER =====

func (s *server) circuitBreakerHandler(w http.ResponseWriter, r *http.Request) {
	state, failures, openedAt := s.breaker.Stats()

	status := CircuitBreakerStatus{
		State:          state.String(),
		Failures:       failures,
		TimeUntilRetry: s.breaker.TimeUntilRetry().String(),
		Config:         s.breakerCfg,
	}
	if !openedAt.IsZero() {
		status.OpenedAt = openedAt.Format(time.RFC3339)
	}
	Respond(w, r).JSON(status)
}

func (s *server) resetCircuitBreakerHandler(w http.ResponseWriter, r *http.Request) {
	s.breaker.Reset()
	Respond(w, r).JSON(MessageResponse{Message: "Circuit breaker reset to CLOSED state"})
}

// ===== HELP =====

func helpHandler(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"help": "Use /search to find recordings. Provide song (s) and optionally artist (a) and limit. Example: /search?song=Come%20Together&artist=The%20Beatles&limit=5",
		"endpoints": map[string]string{
			"/search":                "Ranked search, cached",
			"/search/unranked":       "Catalog order, never cached",
			"/credits/{recordingId}": "Songwriters, producers, musicians and engineers of a recording",
			"/health":                "Service health",
			"/metrics":               "Prometheus metrics",
			"/stats":                 "Counters (requires Authorization)",
			"/cache/clear":           "POST ?prefix=search|credits|all (requires Authorization)",
			"/cache/backup":          "POST, bolt backend only (requires Authorization)",
			"/cache/backups":         "List backups (requires Authorization)",
			"/circuit-breaker":       "Breaker state (requires Authorization)",
			"/circuit-breaker/reset": "POST (requires Authorization)",
		},
	})
}
