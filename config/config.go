package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

var conf = mustLoad()

type Config struct {
	Server struct {
		Port           string `envconfig:"PORT" default:"8080"`
		LogLevel       string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn warning error fatal panic"`
		LogFile        string `envconfig:"LOG_FILE" default:""` // rotated with lumberjack when set
		AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"*"`
	}

	Configuration struct {
		RateLimitPerSecond        int    `envconfig:"RATE_LIMIT_PER_SECOND" default:"2" validate:"min=1"`
		RateLimitBurstLimit       int    `envconfig:"RATE_LIMIT_BURST_LIMIT" default:"5" validate:"min=1"`
		CachedRateLimitPerSecond  int    `envconfig:"CACHED_RATE_LIMIT_PER_SECOND" default:"10" validate:"min=0"`
		CachedRateLimitBurstLimit int    `envconfig:"CACHED_RATE_LIMIT_BURST_LIMIT" default:"20" validate:"min=0"`
		CacheAccessToken          string `envconfig:"CACHE_ACCESS_TOKEN" default:""`

		// Cache storage
		CacheBackend                string `envconfig:"CACHE_BACKEND" default:"bolt" validate:"oneof=memory bolt badger none"`
		CacheDBPath                 string `envconfig:"CACHE_DB_PATH" default:"./data/cache.db"`
		CacheBackupPath             string `envconfig:"CACHE_BACKUP_PATH" default:"./data/backups"`
		CacheSweepIntervalInSeconds int    `envconfig:"CACHE_SWEEP_INTERVAL_IN_SECONDS" default:"3600" validate:"min=1"`

		// Expiration windows
		PopularTTLInSeconds      int `envconfig:"POPULAR_TTL_IN_SECONDS" default:"86400" validate:"min=1"`
		StandardTTLInSeconds     int `envconfig:"STANDARD_TTL_IN_SECONDS" default:"21600" validate:"min=1"`
		CreditsCacheTTLInSeconds int `envconfig:"CREDITS_CACHE_TTL_IN_SECONDS" default:"2592000" validate:"min=1"`

		// Upstream catalog
		MusicBrainzBaseURL    string `envconfig:"MUSICBRAINZ_BASE_URL" default:"https://musicbrainz.org/ws/2" validate:"url"`
		MusicBrainzUserAgent  string `envconfig:"MUSICBRAINZ_USER_AGENT" default:"music-search-api-go/1.0 ( ops@example.com )" validate:"required"`
		UpstreamMinIntervalMs int    `envconfig:"UPSTREAM_MIN_INTERVAL_MS" default:"1000" validate:"min=1"`
		UpstreamTimeoutSecs   int    `envconfig:"UPSTREAM_TIMEOUT_SECS" default:"12" validate:"min=1"`
		UpstreamSearchLimit   int    `envconfig:"UPSTREAM_SEARCH_LIMIT" default:"25" validate:"min=1,max=100"`

		CircuitBreakerThreshold    int `envconfig:"CIRCUIT_BREAKER_THRESHOLD" default:"5"`       // Consecutive failures before circuit opens
		CircuitBreakerCooldownSecs int `envconfig:"CIRCUIT_BREAKER_COOLDOWN_SECS" default:"60"` // Seconds to wait before retrying

		// Stats persistence, empty path disables it
		StatsDBPath           string `envconfig:"STATS_DB_PATH" default:"./data/stats.db"`
		StatsSaveIntervalSecs int    `envconfig:"STATS_SAVE_INTERVAL_SECS" default:"300" validate:"min=1"`

		// Idle per-IP limiters are forgotten after this long
		RateLimiterIdleSecs int `envconfig:"RATE_LIMITER_IDLE_SECS" default:"600" validate:"min=1"`
	}

	// Alerting, each notifier is enabled when its first field is set
	Notifier struct {
		SMTPHost         string `envconfig:"NOTIFIER_SMTP_HOST" default:""`
		SMTPPort         string `envconfig:"NOTIFIER_SMTP_PORT" default:"587"`
		SMTPUsername     string `envconfig:"NOTIFIER_SMTP_USERNAME" default:""`
		SMTPPassword     string `envconfig:"NOTIFIER_SMTP_PASSWORD" default:""`
		FromEmail        string `envconfig:"NOTIFIER_FROM_EMAIL" default:""`
		ToEmail          string `envconfig:"NOTIFIER_TO_EMAIL" default:""`
		TelegramBotToken string `envconfig:"NOTIFIER_TELEGRAM_BOT_TOKEN" default:""`
		TelegramChatID   string `envconfig:"NOTIFIER_TELEGRAM_CHAT_ID" default:""`
		NtfyTopic        string `envconfig:"NOTIFIER_NTFY_TOPIC" default:""`
		NtfyServer       string `envconfig:"NOTIFIER_NTFY_SERVER" default:"https://ntfy.sh"`
		AlertCooldownMin int    `envconfig:"NOTIFIER_ALERT_COOLDOWN_MINUTES" default:"15" validate:"min=1"`
	}

	FeatureFlags struct {
		CacheCompression bool `envconfig:"FF_CACHE_COMPRESSION" default:"true"`
		UnrankedFallback bool `envconfig:"FF_UNRANKED_FALLBACK" default:"true"`
	}
}

// PopularTTL is the expiration window for popular artists
func (c Config) PopularTTL() time.Duration {
	return time.Duration(c.Configuration.PopularTTLInSeconds) * time.Second
}

// StandardTTL is the expiration window for everyone else
func (c Config) StandardTTL() time.Duration {
	return time.Duration(c.Configuration.StandardTTLInSeconds) * time.Second
}

// CreditsTTL is the expiration window for credit lookups
func (c Config) CreditsTTL() time.Duration {
	return time.Duration(c.Configuration.CreditsCacheTTLInSeconds) * time.Second
}

// UpstreamInterval is the minimum spacing between upstream calls
func (c Config) UpstreamInterval() time.Duration {
	return time.Duration(c.Configuration.UpstreamMinIntervalMs) * time.Millisecond
}

// UpstreamTimeout bounds each upstream call
func (c Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Configuration.UpstreamTimeoutSecs) * time.Second
}

// SweepInterval is how often expired cache entries are purged
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.Configuration.CacheSweepIntervalInSeconds) * time.Second
}

// StatsSaveInterval is how often counters are written to disk
func (c Config) StatsSaveInterval() time.Duration {
	return time.Duration(c.Configuration.StatsSaveIntervalSecs) * time.Second
}

// RateLimiterIdle is how long an IP's limiters survive without traffic
func (c Config) RateLimiterIdle() time.Duration {
	return time.Duration(c.Configuration.RateLimiterIdleSecs) * time.Second
}

// AlertCooldown is the minimum spacing between two alerts of the same kind
func (c Config) AlertCooldown() time.Duration {
	return time.Duration(c.Notifier.AlertCooldownMin) * time.Minute
}

// Validate checks the loaded values against their constraints
func (c Config) Validate() error {
	return validator.New().Struct(c)
}

// load loads the configuration from the environment.
func load() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Debugf("No .env file loaded: %v", err)
	}

	cfg := Config{}
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func mustLoad() Config {
	c, err := load()
	if err != nil {
		log.WithError(err).Warnf("Unable to load configuration")
	}

	return c
}

// Load reads the configuration again, for tests and tools
func Load() (Config, error) {
	return load()
}

func Get() Config {
	return conf
}
