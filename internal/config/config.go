// Package config loads the process-wide Settings struct once at startup,
// the way the teacher addon's cmd/server/main.go does it: env.Parse over a
// flat struct, with .env autoloading for local development.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Settings is the single process-wide configuration object. It is
// immutable after startup (spec.md §9 "Global mutable state").
type Settings struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":7000"`
	AppVersion string `env:"APP_VERSION" envDefault:"1.0.0"`

	// Process-wide secret used to key the secret_str envelope (§6).
	SecretKey string `env:"SECRET_KEY,required"`

	PostgresDSN string `env:"POSTGRES_DSN"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisDB     int    `env:"REDIS_DB" envDefault:"0"`

	ProwlarrURL    string `env:"PROWLARR_URL"`
	ProwlarrAPIKey string `env:"PROWLARR_API_KEY"`

	TorznabName string `env:"TORZNAB_NAME"`
	TorznabURL  string `env:"TORZNAB_URL"`
	TorznabKey  string `env:"TORZNAB_API_KEY"`

	// Scrape TTLs and per-scraper timeouts (§6 "Environment knobs").
	ScrapeTTL         time.Duration `env:"SCRAPE_TTL" envDefault:"24h"`
	ScraperHTTPTimeout time.Duration `env:"SCRAPER_HTTP_TIMEOUT" envDefault:"10s"`

	// Immediate-path fan-out caps, per scraper family.
	MaxProcess     int           `env:"MAX_PROCESS" envDefault:"50"`
	MaxProcessTime time.Duration `env:"MAX_PROCESS_TIME" envDefault:"15s"`

	// Per-scraper outbound rate limit (calls, period).
	ScraperRateCalls  int           `env:"SCRAPER_RATE_CALLS" envDefault:"5"`
	ScraperRatePeriod time.Duration `env:"SCRAPER_RATE_PERIOD" envDefault:"1s"`

	// Per-indexer circuit breaker.
	BreakerFailureThreshold uint32        `env:"BREAKER_FAILURE_THRESHOLD" envDefault:"5"`
	BreakerRecoveryTimeout  time.Duration `env:"BREAKER_RECOVERY_TIMEOUT" envDefault:"30s"`
	BreakerHalfOpenAttempts uint32        `env:"BREAKER_HALF_OPEN_ATTEMPTS" envDefault:"1"`

	// Route-scoped rate limiting (per-scope, per-IP).
	StreamRateLimit  int           `env:"STREAM_RATE_LIMIT" envDefault:"20"`
	StreamRateWindow time.Duration `env:"STREAM_RATE_WINDOW" envDefault:"1h"`

	// Playback coordinator contracts (§4.3).
	URLCacheTTL  time.Duration `env:"URL_CACHE_TTL" envDefault:"3600s"`
	LockTTL      time.Duration `env:"LOCK_TTL" envDefault:"60s"`
	LockWaitCeil time.Duration `env:"LOCK_WAIT_CEILING" envDefault:"60s"`

	// MediaFlow proxy.
	MediaFlowURL      string        `env:"MEDIAFLOW_URL"`
	MediaFlowPassword string        `env:"MEDIAFLOW_PASSWORD"`
	EgressIPCacheTTL  time.Duration `env:"EGRESS_IP_CACHE_TTL" envDefault:"5m"`

	DisabledProviders []string `env:"DISABLED_PROVIDERS" envSeparator:","`

	// Prefix under which static error clips are served, e.g.
	// https://host/static/exceptions/{video_file_name}.
	StaticAssetPrefix string `env:"STATIC_ASSET_PREFIX" envDefault:"/static/exceptions"`

	SSLEnabled bool   `env:"SSL_ENABLED" envDefault:"false"`
	SSLDomain  string `env:"SSL_DOMAIN"`
}

// Load parses Settings from the process environment. Callers are expected
// to import github.com/joho/godotenv/autoload for blank-import .env loading
// before calling Load, matching the teacher's main.go.
func Load() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
