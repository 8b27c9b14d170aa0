package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"music-search-api-go/cache"
	"music-search-api-go/circuitbreaker"
	"music-search-api-go/config"
	"music-search-api-go/logcolors"
	"music-search-api-go/middleware"
	"music-search-api-go/ratelimit"
	"music-search-api-go/search"
	"music-search-api-go/services/musicbrainz"
	"music-search-api-go/services/notifier"
	"music-search-api-go/stats"
	"music-search-api-go/ttlpolicy"
)

// setupLogging configures logrus from config. The returned closer is non-nil
// when a rotated log file is in use.
func setupLogging(cfg config.Config) io.Closer {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)

	level, err := log.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Server.LogFile == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Server.LogFile), 0755); err != nil {
		log.Warnf("%s Cannot create log directory, logging to stdout only: %v", logcolors.LogConfig, err)
		return nil
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.Server.LogFile,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
		LocalTime:  true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	return rotator
}

// ===== ALERTING =====

func setupNotifiers(cfg config.Config) []notifier.Notifier {
	n := cfg.Notifier
	var notifiers []notifier.Notifier

	if n.SMTPHost != "" {
		notifiers = append(notifiers, &notifier.EmailNotifier{
			Host:     n.SMTPHost,
			Port:     n.SMTPPort,
			Username: n.SMTPUsername,
			Password: n.SMTPPassword,
			From:     n.FromEmail,
			To:       n.ToEmail,
		})
	}
	if n.TelegramBotToken != "" {
		notifiers = append(notifiers, &notifier.TelegramNotifier{
			BotToken: n.TelegramBotToken,
			ChatID:   n.TelegramChatID,
		})
	}
	if n.NtfyTopic != "" {
		notifiers = append(notifiers, &notifier.NtfyNotifier{
			Topic:  n.NtfyTopic,
			Server: n.NtfyServer,
		})
	}

	return notifiers
}

// startAlerting renders bus events for operators. Without notifiers they are only logged.
func startAlerting(cfg config.Config) {
	notifier.NewAlerter(cfg.AlertCooldown(), setupNotifiers(cfg)...).Listen(notifier.Default())
}

// ===== CACHE BACKEND =====

// openCacheBackend opens the configured backend. A backend that fails to open
// leaves the service running without a cache.
func openCacheBackend(cfg config.Config) cache.Backend {
	c := cfg.Configuration
	switch c.CacheBackend {
	case "memory":
		log.Infof("%s Using in-memory cache", logcolors.LogCacheInit)
		return cache.NewMemoryBackend(cfg.SweepInterval())
	case "badger":
		dir := filepath.Join(filepath.Dir(c.CacheDBPath), "badger")
		backend, err := cache.NewBadgerBackend(dir)
		if err != nil {
			log.Errorf("%s Failed to open badger cache at %s, continuing without cache: %v", logcolors.LogCacheInit, dir, err)
			notifier.PublishCacheUnavailable(c.CacheBackend, err)
			return nil
		}
		return backend
	case "none":
		log.Warnf("%s Cache disabled, every search reaches the catalog", logcolors.LogCacheInit)
		return nil
	default:
		backend, err := cache.NewPersistentBackend(c.CacheDBPath, c.CacheBackupPath, cfg.FeatureFlags.CacheCompression)
		if err != nil {
			log.Errorf("%s Failed to open persistent cache at %s, continuing without cache: %v", logcolors.LogCacheInit, c.CacheDBPath, err)
			notifier.PublishCacheUnavailable(c.CacheBackend, err)
			return nil
		}
		return backend
	}
}

// ===== SEARCH PIPELINE =====

func newCatalogClient(cfg config.Config) *musicbrainz.Client {
	c := cfg.Configuration
	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:      "MusicBrainz",
		Threshold: c.CircuitBreakerThreshold,
		Cooldown:  time.Duration(c.CircuitBreakerCooldownSecs) * time.Second,
		IsFailure: musicbrainz.IsUpstreamFailure,
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			switch {
			case to == circuitbreaker.StateOpen:
				notifier.PublishBreakerOpened(name, c.CircuitBreakerThreshold, time.Duration(c.CircuitBreakerCooldownSecs)*time.Second)
			case to == circuitbreaker.StateClosed && from == circuitbreaker.StateHalfOpen:
				notifier.PublishBreakerRecovered(name)
			}
		},
	})

	gate := ratelimit.NewIntervalGate(cfg.UpstreamInterval())
	log.Infof("%s Upstream calls spaced at least %v apart", logcolors.LogRateGate, gate.Interval())

	return musicbrainz.New(musicbrainz.Config{
		BaseURL:   c.MusicBrainzBaseURL,
		UserAgent: c.MusicBrainzUserAgent,
		Timeout:   cfg.UpstreamTimeout(),
		Gate:      gate,
		Breaker:   breaker,
	})
}

func newOrchestrator(cfg config.Config, store *cache.Store, client search.Catalog) *search.Orchestrator {
	return search.New(store, client, search.Options{
		TTL:           ttlpolicy.Policy{Popular: cfg.PopularTTL(), Standard: cfg.StandardTTL()},
		CreditsTTL:    cfg.CreditsTTL(),
		UpstreamLimit: cfg.Configuration.UpstreamSearchLimit,
		Fallback:      cfg.FeatureFlags.UnrankedFallback,
	})
}

func newIPRateLimiter(cfg config.Config) *middleware.IPRateLimiter {
	c := cfg.Configuration
	return middleware.NewIPRateLimiter(
		rate.Limit(c.RateLimitPerSecond), c.RateLimitBurstLimit,
		rate.Limit(c.CachedRateLimitPerSecond), c.CachedRateLimitBurstLimit,
	)
}

// ===== STATS PERSISTENCE =====

// openStatsStore restores persisted counters into the global stats. Returns nil when disabled.
func openStatsStore(cfg config.Config) *stats.Store {
	path := strings.TrimSpace(cfg.Configuration.StatsDBPath)
	if path == "" {
		log.Infof("%s Stats persistence disabled", logcolors.LogStats)
		return nil
	}

	store, err := stats.NewStore(path)
	if err != nil {
		log.Warnf("%s Stats will not survive restarts: %v", logcolors.LogStats, err)
		return nil
	}
	if err := store.Load(stats.Get()); err != nil {
		log.Warnf("%s Failed to load persisted stats: %v", logcolors.LogStats, err)
	}
	return store
}

// ===== SCHEDULER =====

type scheduledJob struct {
	name     string
	interval time.Duration
	task     func()
}

// startScheduler runs the periodic maintenance jobs. statsStore may be nil.
func startScheduler(cfg config.Config, store *cache.Store, statsStore *stats.Store, limiter *middleware.IPRateLimiter) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	jobs := []scheduledJob{
		{"cache-sweep", cfg.SweepInterval(), func() { store.Sweep() }},
		{"limiter-prune", cfg.RateLimiterIdle(), func() {
			if n := limiter.Prune(cfg.RateLimiterIdle()); n > 0 {
				log.Debugf("%s Forgot %d idle clients", logcolors.LogRateLimit, n)
			}
		}},
	}
	if statsStore != nil {
		jobs = append(jobs, scheduledJob{"stats-save", cfg.StatsSaveInterval(), func() {
			if err := statsStore.Save(stats.Get()); err != nil {
				log.Warnf("%s Failed to save stats: %v", logcolors.LogStats, err)
			}
		}})
	}

	for _, job := range jobs {
		_, err := s.NewJob(
			gocron.DurationJob(job.interval),
			gocron.NewTask(job.task),
			gocron.WithName(job.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			s.Shutdown()
			return nil, fmt.Errorf("failed to schedule %s: %w", job.name, err)
		}
		log.Infof("%s Scheduled %s every %v", logcolors.LogScheduler, job.name, job.interval)
	}

	s.Start()
	return s, nil
}
