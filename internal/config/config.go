// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"3001"`
	// APIKey authenticates against the generative model API. It never leaves the server.
	APIKey            string        `env:"API_KEY,required,notEmpty"`
	GeminiBaseURL     string        `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	TextModel         string        `env:"TEXT_MODEL" envDefault:"gemini-2.5-flash"`
	ChatModel         string        `env:"CHAT_MODEL" envDefault:"gemini-3-pro-preview"`
	ImageModel        string        `env:"IMAGE_MODEL" envDefault:"imagen-4.0-generate-001"`
	VideoModel        string        `env:"VIDEO_MODEL" envDefault:"veo-3.1-fast-generate-preview"`
	VideoPollInterval time.Duration `env:"VIDEO_POLL_INTERVAL" envDefault:"5s"`
	AIRequestTimeout  time.Duration `env:"AI_REQUEST_TIMEOUT" envDefault:"120s"`
	// Quota retry schedule: BaseDelay * 2^attempt plus up to MaxJitter.
	AIRetryMax          int           `env:"AI_RETRY_MAX" envDefault:"5"`
	AIRetryBaseDelay    time.Duration `env:"AI_RETRY_BASE_DELAY" envDefault:"12s"`
	AIRetryMaxJitter    time.Duration `env:"AI_RETRY_MAX_JITTER" envDefault:"2s"`
	ThumbnailRetryMax   int           `env:"THUMBNAIL_RETRY_MAX" envDefault:"2"`
	ChatHistoryMaxToken int           `env:"CHAT_HISTORY_MAX_TOKENS" envDefault:"8000"`
	// UpstreamRPM caps outbound calls per model per minute when Redis is configured. Zero disables.
	UpstreamRPM int `env:"UPSTREAM_RPM" envDefault:"0"`

	DBURL        string   `env:"DB_URL"`
	RedisURL     string   `env:"REDIS_URL"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	ScanTopic    string   `env:"SCAN_TOPIC" envDefault:"trend-scans"`

	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"trendpulse-api"`

	ProxyUsername         string        `env:"PROXY_USERNAME"`
	ProxyPasswordHash     string        `env:"PROXY_PASSWORD_HASH"`
	MaxBodyMB             int64         `env:"MAX_BODY_MB" envDefault:"50"`
	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"30"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	// Video rendering holds the connection open while the job is polled.
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"10m"`
	HTTPIdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
	// RequestTimeout bounds a single /api call including retries and video polling.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"9m"`

	TrendCacheTTL     time.Duration `env:"TREND_CACHE_TTL" envDefault:"30m"`
	DataRetentionDays int           `env:"DATA_RETENTION_DAYS" envDefault:"90"`
	CleanupInterval   time.Duration `env:"CLEANUP_INTERVAL" envDefault:"24h"`
	ScanInterval      time.Duration `env:"SCAN_INTERVAL" envDefault:"6h"`
	ScanCategoryPause time.Duration `env:"SCAN_CATEGORY_PAUSE" envDefault:"2s"`
	ScanConfigPath    string        `env:"SCAN_CONFIG_PATH"`
	WorkerMetricsAddr string        `env:"WORKER_METRICS_ADDR" envDefault:":9090"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.AIRetryMax < 0 || c.ThumbnailRetryMax < 0 {
		return fmt.Errorf("retry budgets must not be negative")
	}
	if c.VideoPollInterval <= 0 {
		return fmt.Errorf("VIDEO_POLL_INTERVAL must be positive")
	}
	if (c.ProxyUsername == "") != (c.ProxyPasswordHash == "") {
		return fmt.Errorf("PROXY_USERNAME and PROXY_PASSWORD_HASH must be set together")
	}
	return nil
}

// AuthEnabled reports whether the /api routes require Basic auth.
func (c Config) AuthEnabled() bool {
	return c.ProxyUsername != "" && c.ProxyPasswordHash != ""
}

// ArchiveEnabled reports whether a Postgres trend archive is configured.
func (c Config) ArchiveEnabled() bool { return c.DBURL != "" }

// CacheEnabled reports whether a Redis instance is configured.
func (c Config) CacheEnabled() bool { return c.RedisURL != "" }

// PublishEnabled reports whether scan events should be produced to Kafka.
func (c Config) PublishEnabled() bool { return len(c.KafkaBrokers) > 0 }

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// RetryDelays returns the base delay and jitter for quota retries.
// In test environments the schedule is shortened for fast execution.
func (c Config) RetryDelays() (base, jitter time.Duration) {
	if c.IsTest() {
		return 10 * time.Millisecond, 5 * time.Millisecond
	}
	return c.AIRetryBaseDelay, c.AIRetryMaxJitter
}
