package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"music-search-api-go/logcolors"
	"music-search-api-go/stats"
)

func TestResponseRecorder_CountsBodyAcrossWrites(t *testing.T) {
	w := httptest.NewRecorder()
	rec := NewResponseRecorder(w)

	if rec.StatusCode != http.StatusOK {
		t.Errorf("Expected default status %d, got %d", http.StatusOK, rec.StatusCode)
	}

	body := `{"results":[],"totalCount":0}`
	for _, part := range []string{body[:10], body[10:], ""} {
		if _, err := rec.Write([]byte(part)); err != nil {
			t.Fatalf("Unexpected write error: %v", err)
		}
	}

	if rec.BodySize != len(body) {
		t.Errorf("Expected body size %d, got %d", len(body), rec.BodySize)
	}
	if w.Body.String() != body {
		t.Errorf("Expected body to reach the client, got %q", w.Body.String())
	}
}

func TestResponseRecorder_ForwardsStatus(t *testing.T) {
	w := httptest.NewRecorder()
	rec := NewResponseRecorder(w)

	rec.WriteHeader(http.StatusTooManyRequests)

	if rec.StatusCode != http.StatusTooManyRequests || w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 recorded and forwarded, got %d / %d", rec.StatusCode, w.Code)
	}
}

func TestLoggingMiddleware_LogsStatusLine(t *testing.T) {
	hook := logtest.NewGlobal()
	t.Cleanup(func() { log.StandardLogger().ReplaceHooks(make(log.LevelHooks)) })

	tests := []struct {
		name   string
		status int
		body   string
		color  string
	}{
		{"success", http.StatusOK, `{"results":[]}`, logcolors.Green},
		{"rate limited", http.StatusTooManyRequests, `{"error":"Too many requests"}`, logcolors.Yellow},
		{"upstream down", http.StatusServiceUnavailable, "", logcolors.Red},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook.Reset()
			handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			req := httptest.NewRequest(http.MethodGet, "/search?artist=queen&song=bohemian", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rec.Code)
			}

			entry := hook.LastEntry()
			if entry == nil {
				t.Fatal("Expected a log line")
			}
			if entry.Level != log.InfoLevel {
				t.Errorf("Expected info level, got %s", entry.Level)
			}
			for _, want := range []string{
				logcolors.LogHTTP,
				"GET /search ",
				tt.color + strconv.Itoa(tt.status) + logcolors.Reset,
				" " + strconv.Itoa(len(tt.body)) + "B ",
			} {
				if !strings.Contains(entry.Message, want) {
					t.Errorf("Expected %q in log line %q", want, entry.Message)
				}
			}
		})
	}
}

func TestMetricsMiddleware_RecordsRouteTemplate(t *testing.T) {
	s := stats.Get()
	creditsBefore := s.CreditsRequests.Load()
	otherBefore := s.OtherRequests.Load()
	notFoundBefore := s.Status4xx.Load()

	router := mux.NewRouter()
	router.Use(MetricsMiddleware)
	router.HandleFunc("/credits/{recordingId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"recording not found"}`))
	}).Methods(http.MethodGet)

	for _, id := range []string{
		"b9ad642e-b012-41c7-b72a-42cf4911f9ff",
		"5f2a8c8e-2d37-4ef0-9d56-1c4b3f3f1e01",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/credits/"+id, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected handler status to pass through, got %d", rec.Code)
		}
	}

	if got := s.CreditsRequests.Load() - creditsBefore; got != 2 {
		t.Errorf("Expected 2 requests under /credits/{recordingId}, got %d", got)
	}
	if got := s.OtherRequests.Load() - otherBefore; got != 0 {
		t.Errorf("Expected raw paths not to be counted as other routes, got %d", got)
	}
	if got := s.Status4xx.Load() - notFoundBefore; got != 2 {
		t.Errorf("Expected 2 client errors recorded, got %d", got)
	}
}
