package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"music-search-api-go/logcolors"
	"music-search-api-go/metrics"
	"music-search-api-go/stats"
)

// ResponseRecorder captures the status code and body size written by a handler
type ResponseRecorder struct {
	http.ResponseWriter
	StatusCode int
	BodySize   int
}

// NewResponseRecorder wraps w. The status defaults to 200 for handlers that never call WriteHeader.
func NewResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{ResponseWriter: w, StatusCode: http.StatusOK}
}

func (r *ResponseRecorder) WriteHeader(statusCode int) {
	r.StatusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *ResponseRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.BodySize += n
	return n, err
}

func getStatusColor(status int) string {
	switch {
	case status >= 200 && status < 300:
		return logcolors.Green
	case status >= 300 && status < 400:
		return logcolors.Cyan
	case status >= 400 && status < 500:
		return logcolors.Yellow
	case status >= 500:
		return logcolors.Red
	default:
		return logcolors.Reset
	}
}

// LoggingMiddleware logs one line per request
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := NewResponseRecorder(w)

		next.ServeHTTP(rec, r)

		color := getStatusColor(rec.StatusCode)
		log.Infof("%s %s %s %s%d%s %dB %v", logcolors.LogHTTP, r.Method, r.URL.Path,
			color, rec.StatusCode, logcolors.Reset, rec.BodySize, time.Since(start).Round(time.Microsecond))
	})
}

// MetricsMiddleware records request counters per route template. Register it with
// mux.Router.Use so the matched route is known.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := NewResponseRecorder(w)

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}

		elapsed := time.Since(start)
		s := stats.Get()
		s.RecordRequest(route)
		s.RecordStatusCode(rec.StatusCode)
		s.RecordResponseTime(elapsed, route)
		metrics.RecordHTTPRequest(route, r.Method, rec.StatusCode, elapsed)
	})
}
