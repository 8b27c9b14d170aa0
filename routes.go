package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"music-search-api-go/middleware"
)

// setupRoutes configures all HTTP routes for the API
func setupRoutes(router *mux.Router, s *server, adminToken string) {
	router.Use(middleware.MetricsMiddleware)

	// Search endpoints
	router.HandleFunc("/search", s.searchHandler).Methods(http.MethodGet)
	router.HandleFunc("/search/unranked", s.unrankedHandler).Methods(http.MethodGet)
	router.HandleFunc("/credits/{recordingId}", s.creditsHandler).Methods(http.MethodGet)

	// Health and metrics endpoints
	router.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Admin endpoints
	admin := router.NewRoute().Subrouter()
	admin.Use(middleware.AdminTokenMiddleware(adminToken))
	admin.HandleFunc("/stats", s.statsHandler).Methods(http.MethodGet)
	admin.HandleFunc("/cache/clear", s.clearCacheHandler).Methods(http.MethodPost)
	admin.HandleFunc("/cache/backup", s.backupCacheHandler).Methods(http.MethodPost)
	admin.HandleFunc("/cache/backups", s.listBackupsHandler).Methods(http.MethodGet)
	admin.HandleFunc("/circuit-breaker", s.circuitBreakerHandler).Methods(http.MethodGet)
	admin.HandleFunc("/circuit-breaker/reset", s.resetCircuitBreakerHandler).Methods(http.MethodPost)

	// Help endpoint
	router.HandleFunc("/", helpHandler)
}
