// Package musicbrainz is the catalog client. It issues recording searches and
// lookups against the MusicBrainz WS/2 API, maps the JSON into catalog
// records and classifies failures into apperrors kinds.
package musicbrainz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"music-search-api-go/apperrors"
	"music-search-api-go/catalog"
	"music-search-api-go/circuitbreaker"
	"music-search-api-go/keys"
	"music-search-api-go/logcolors"
	"music-search-api-go/metrics"
	"music-search-api-go/ratelimit"
)

const (
	DefaultBaseURL = "https://musicbrainz.org/ws/2"
	DefaultTimeout = 12 * time.Second

	// MaxSearchLimit is the largest page the search endpoint serves
	MaxSearchLimit = 100

	// lookupIncludes pulls release groups for ranking and artist/work relations for credits
	lookupIncludes = "artist-credits+releases+release-groups+artist-rels+work-rels+work-level-rels"

	defaultRetryAfter = time.Second
	maxBodyBytes      = 8 << 20

	endpointSearch = "search"
	endpointLookup = "lookup"
)

// Config configures a Client. Zero values get defaults.
type Config struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	HTTPClient *http.Client
	Gate       ratelimit.Gate
	Breaker    *circuitbreaker.CircuitBreaker
}

// Client talks to the catalog. Every request waits on the shared gate first.
type Client struct {
	baseURL    string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	gate       ratelimit.Gate
	breaker    *circuitbreaker.CircuitBreaker
}

// New creates a catalog client
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "music-search-api-go/1.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Gate == nil {
		cfg.Gate = ratelimit.NewIntervalGate(time.Second)
	}
	if cfg.Breaker == nil {
		cfg.Breaker = circuitbreaker.New(circuitbreaker.Config{
			Name:      "MusicBrainz",
			IsFailure: IsUpstreamFailure,
		})
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		timeout:    cfg.Timeout,
		httpClient: cfg.HTTPClient,
		gate:       cfg.Gate,
		breaker:    cfg.Breaker,
	}
}

// IsUpstreamFailure reports whether err should count against the circuit breaker.
// Rate limiting, missing records and cancelled callers do not.
func IsUpstreamFailure(err error) bool {
	return err != nil && apperrors.KindOf(err) == apperrors.KindUpstreamUnavailable
}

// Breaker exposes the client's circuit breaker for health and admin endpoints
func (c *Client) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// =============================================================================
// OPERATIONS
// =============================================================================

// SearchRecordings runs one search query and returns the recordings in upstream order
func (c *Client) SearchRecordings(ctx context.Context, query string, limit int) ([]catalog.Recording, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fmt", "json")

	var resp searchResponse
	if err := c.get(ctx, endpointSearch, "/recording", params, &resp); err != nil {
		return nil, err
	}

	recordings := toRecordings(resp.Recordings)
	log.Debugf("%s %q returned %d of %d recordings", logcolors.LogUpstream, query, len(recordings), resp.Count)
	return recordings, nil
}

// LookupRecording fetches one recording with its releases and credit relations
func (c *Client) LookupRecording(ctx context.Context, id string) (*catalog.Recording, error) {
	if err := keys.ValidateRecordingID(id); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("inc", lookupIncludes)
	params.Set("fmt", "json")

	var resp recording
	if err := c.get(ctx, endpointLookup, "/recording/"+url.PathEscape(id), params, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, apperrors.Unavailable("catalog returned a recording without an id", nil)
	}

	rec := toRecording(resp)
	return &rec, nil
}

// =============================================================================
// HTTP REQUEST HANDLING
// =============================================================================

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	err := c.breaker.Execute(func() error {
		if err := c.gate.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for upstream slot: %w", err)
		}
		return c.fetch(ctx, endpoint, path, params, out)
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		e := apperrors.Unavailable("catalog temporarily disabled after repeated failures", err)
		e.RetryAfter = c.breaker.TimeUntilRetry()
		return e
	}
	return err
}

func (c *Client) fetch(ctx context.Context, endpoint, path string, params url.Values, out any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building catalog request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstream(endpoint, 0, time.Since(start))
		return c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	metrics.RecordUpstream(endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		return c.transportError(ctx, err)
	}

	if err := classifyStatus(resp, body); err != nil {
		log.Warnf("%s %s %s: %v", logcolors.LogUpstream, endpoint, path, err)
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.Unavailable("decoding catalog response", err)
	}
	return nil
}

// transportError separates an abandoned caller from a slow or unreachable upstream
func (c *Client) transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("catalog request abandoned: %w", ctx.Err())
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.Unavailable(fmt.Sprintf("catalog request timed out after %v", c.timeout), err)
	}
	return apperrors.Unavailable("catalog request failed", err)
}

func classifyStatus(resp *http.Response, body []byte) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return apperrors.New(apperrors.KindNotFound, "recording not found")
	case code == http.StatusTooManyRequests:
		return apperrors.RateLimited("catalog rate limit exceeded", retryAfter(resp.Header), nil)
	case code == http.StatusServiceUnavailable && strings.Contains(strings.ToLower(string(body)), "rate limit"):
		return apperrors.RateLimited("catalog rate limit exceeded", retryAfter(resp.Header), nil)
	case code >= 500:
		return apperrors.Unavailable(fmt.Sprintf("catalog returned status %d", code), upstreamMessage(body))
	default:
		return apperrors.Wrap(apperrors.KindInternal, fmt.Sprintf("catalog rejected request with status %d", code), upstreamMessage(body))
	}
}

// retryAfter reads a Retry-After header given in seconds or as an HTTP date
func retryAfter(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return defaultRetryAfter
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d.Round(time.Second)
		}
	}
	return defaultRetryAfter
}

func upstreamMessage(body []byte) error {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return errors.New(e.Error)
	}
	return nil
}
