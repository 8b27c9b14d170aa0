package main

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"music-search-api-go/apperrors"
	"music-search-api-go/logcolors"
	"music-search-api-go/middleware"
)

// Cache status header values
const (
	cacheHit      = "HIT"
	cacheMiss     = "MISS"
	cacheFallback = "FALLBACK"
)

// APIResponse handles consistent header setting and JSON responses.
// It centralizes X-Cache-Status and X-RateLimit-Type based on request context.
type APIResponse struct {
	w           http.ResponseWriter
	r           *http.Request
	cacheStatus string
}

// Respond creates a response helper from request context
func Respond(w http.ResponseWriter, r *http.Request) *APIResponse {
	return &APIResponse{w: w, r: r}
}

// SetCacheStatus sets the X-Cache-Status header value
func (a *APIResponse) SetCacheStatus(status string) *APIResponse {
	a.cacheStatus = status
	return a
}

// writeHeaders sets all standard headers based on context
func (a *APIResponse) writeHeaders() {
	a.w.Header().Set("Content-Type", "application/json")

	if a.cacheStatus != "" {
		a.w.Header().Set("X-Cache-Status", a.cacheStatus)
	}

	if tier := middleware.RateLimitType(a.r.Context()); tier != "" {
		a.w.Header().Set("X-RateLimit-Type", tier)
	}
}

// JSON writes headers and encodes data as JSON (200 OK)
func (a *APIResponse) JSON(data interface{}) error {
	a.writeHeaders()
	return json.NewEncoder(a.w).Encode(data)
}

// Error writes headers, sets status code, and encodes error response
func (a *APIResponse) Error(statusCode int, data interface{}) error {
	a.writeHeaders()
	a.w.WriteHeader(statusCode)
	return json.NewEncoder(a.w).Encode(data)
}

// Fail maps err onto its status and error body. Errors without a kind are 500s
// and their detail stays in the log.
func (a *APIResponse) Fail(err error) error {
	appErr, ok := apperrors.As(err)
	if !ok {
		if ctxErr := a.r.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			log.Debugf("%s Client went away: %v", logcolors.LogHTTP, err)
		} else {
			log.Errorf("%s Unclassified error on %s: %v", logcolors.LogHTTP, a.r.URL.Path, err)
		}
		return a.Error(http.StatusInternalServerError, ErrorResponse{
			Error: "Internal server error",
			Kind:  string(apperrors.KindInternal),
		})
	}

	status := appErr.HTTPStatus()
	body := ErrorResponse{Error: appErr.Message, Kind: string(appErr.Kind)}

	if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
		secs := retrySeconds(appErr.RetryAfter)
		body.RetryAfter = secs
		a.w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	if status >= http.StatusInternalServerError {
		log.Warnf("%s %s failed: %v", logcolors.LogHTTP, a.r.URL.Path, err)
	}

	return a.Error(status, body)
}

// retrySeconds rounds a retry hint up to whole seconds, at least one
func retrySeconds(d time.Duration) int64 {
	secs := int64(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
