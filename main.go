package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"

	"music-search-api-go/cache"
	"music-search-api-go/config"
	"music-search-api-go/logcolors"
	"music-search-api-go/middleware"
	"music-search-api-go/services/notifier"
	"music-search-api-go/stats"
)

const shutdownTimeout = 15 * time.Second

func main() {
	conf := config.Get()
	if rotator := setupLogging(conf); rotator != nil {
		defer rotator.Close()
	}
	if err := conf.Validate(); err != nil {
		log.Fatalf("%s Invalid configuration: %v", logcolors.LogConfig, err)
	}

	startAlerting(conf)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := cache.NewStore(openCacheBackend(conf))
	statsStore := openStatsStore(conf)
	client := newCatalogClient(conf)
	limiter := newIPRateLimiter(conf)

	srv := &server{
		orch:        newOrchestrator(conf, store, client),
		store:       store,
		breaker:     client.Breaker(),
		stats:       stats.Get(),
		backendName: conf.Configuration.CacheBackend,
		breakerCfg: CircuitBreakerConfig{
			Threshold:   client.Breaker().Threshold(),
			CooldownSec: conf.Configuration.CircuitBreakerCooldownSecs,
		},
		ipTracked: limiter.Len,
	}

	scheduler, err := startScheduler(conf, store, statsStore, limiter)
	if err != nil {
		log.Fatalf("%s %v", logcolors.LogScheduler, err)
	}

	router := mux.NewRouter()
	setupRoutes(router, srv, conf.Configuration.CacheAccessToken)
	if conf.Configuration.CacheAccessToken == "" {
		log.Warnf("%s CACHE_ACCESS_TOKEN not set, admin endpoints are disabled", logcolors.LogConfig)
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(conf.Server.AllowedOrigins, ","),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Cache-Status", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Type", "Retry-After"},
		AllowCredentials: true,
	})

	// logging -> cors -> rate limiter -> router
	handler := middleware.LoggingMiddleware(c.Handler(limiter.Middleware(router)))

	httpServer := &http.Server{
		Addr:              ":" + conf.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      conf.UpstreamTimeout() * 4,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		notifier.PublishServerStarted(conf.Server.Port, conf.Configuration.CacheBackend)
		log.Infof("%s Listening on port %s (cache backend: %s)", logcolors.LogServer, conf.Server.Port, conf.Configuration.CacheBackend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("%s %v", logcolors.LogServer, err)
		}
	}()

	<-ctx.Done()
	log.Infof("%s Shutting down", logcolors.LogServer)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("%s Graceful shutdown failed: %v", logcolors.LogServer, err)
	}

	if err := scheduler.Shutdown(); err != nil {
		log.Warnf("%s Scheduler shutdown: %v", logcolors.LogScheduler, err)
	}
	if statsStore != nil {
		if err := statsStore.Close(stats.Get()); err != nil {
			log.Warnf("%s Failed to persist stats on shutdown: %v", logcolors.LogStats, err)
		}
	}
	if err := store.Close(); err != nil {
		log.Warnf("%s Failed to close cache: %v", logcolors.LogCache, err)
	}
}
