package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Browser      BrowserConfig
	Orchestrator OrchestratorConfig
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	Cache        CacheConfig
	Log          LogConfig
	GeoIP        GeoIPConfig
	AI           AIConfig
	Webhook      WebhookConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 3001, per PORT env var
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	Headless   bool   // default: true
	NoSandbox  bool   // default: false
	BrowserBin string // overrides the Chromium binary path
}

// OrchestratorConfig holds the per-phase soft deadlines of spec §4.1.
type OrchestratorConfig struct {
	NavigationTimeout     time.Duration // default: 15s
	BannerWaitTimeout     time.Duration // default: 5s
	BannerWaitAttempt     time.Duration // default: 2s
	NetworkIdleWindow     time.Duration // default: 2s, no new requests
	NetworkIdleMinWait    time.Duration // default: 1s
	NetworkIdleMaxWait    time.Duration // default: 15s
	DataLayerReprobeDelay time.Duration // default: 3s, jittered
	InPagePollInterval    time.Duration // default: 500ms
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 5
	Burst             int     // default: 10
}

// CacheConfig controls the scan-result and AI-fallback caches.
type CacheConfig struct {
	ResultTTL   time.Duration // default: 24h
	AITTL       time.Duration // default: 7 * 24h
	MaxEntries  int           // default: 1000
	SweepPeriod time.Duration // default: 1h
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// GeoIPConfig controls the data-residency lookup.
type GeoIPConfig struct {
	BaseURL string // default: "http://ip-api.com/json/"
	Timeout time.Duration // default: 3s
}

// AIConfig controls the generative-model client used by the detection AI
// fallback and the vision-based GPC audit. APIKey resolves, in order,
// VITE_API_KEY, API_KEY, GEMINI_API_KEY.
type AIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// WebhookConfig controls optional delivery of the finished scan result
// (certificate included) to an operator endpoint.
type WebhookConfig struct {
	URL    string // CONSENTCORE_WEBHOOK_URL; empty disables delivery
	Secret string // CONSENTCORE_WEBHOOK_SECRET; empty sends unsigned
}

// Load reads configuration from environment variables with sane defaults,
// matching the variable names the spec fixes for the orchestrator.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("HOST", "0.0.0.0"),
			Port: envIntOr("PORT", 3001),
			Mode: envOr("NODE_ENV", "release"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("CONSENTCORE_HEADLESS", true),
			NoSandbox:  envBoolOr("CONSENTCORE_NO_SANDBOX", false),
			BrowserBin: os.Getenv("CONSENTCORE_BROWSER_BIN"),
		},
		Orchestrator: OrchestratorConfig{
			NavigationTimeout:     envDurationOr("CONSENTCORE_NAV_TIMEOUT", 15*time.Second),
			BannerWaitTimeout:     envDurationOr("CONSENTCORE_BANNER_WAIT", 5*time.Second),
			BannerWaitAttempt:     envDurationOr("CONSENTCORE_BANNER_ATTEMPT", 2*time.Second),
			NetworkIdleWindow:     envDurationOr("CONSENTCORE_IDLE_WINDOW", 2*time.Second),
			NetworkIdleMinWait:    envDurationOr("CONSENTCORE_IDLE_MIN", 1*time.Second),
			NetworkIdleMaxWait:    envDurationOr("CONSENTCORE_IDLE_MAX", 15*time.Second),
			DataLayerReprobeDelay: envDurationOr("CONSENTCORE_REPROBE_DELAY", 3*time.Second),
			InPagePollInterval:    envDurationOr("CONSENTCORE_POLL_INTERVAL", 500*time.Millisecond),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("CONSENTCORE_AUTH_ENABLED", false),
			APIKeys: envSliceOr("CONSENTCORE_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("CONSENTCORE_RATE_RPS", 5.0),
			Burst:             envIntOr("CONSENTCORE_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			ResultTTL:   envDurationOr("CONSENTCORE_CACHE_TTL", 24*time.Hour),
			AITTL:       envDurationOr("CONSENTCORE_AI_CACHE_TTL", 7*24*time.Hour),
			MaxEntries:  envIntOr("CONSENTCORE_CACHE_MAX_ENTRIES", 1000),
			SweepPeriod: envDurationOr("CONSENTCORE_CACHE_SWEEP", 1*time.Hour),
		},
		Log: LogConfig{
			Level:  envOr("CONSENTCORE_LOG_LEVEL", "info"),
			Format: envOr("CONSENTCORE_LOG_FORMAT", "json"),
		},
		GeoIP: GeoIPConfig{
			BaseURL: envOr("CONSENTCORE_GEOIP_BASE_URL", "http://ip-api.com/json/"),
			Timeout: envDurationOr("CONSENTCORE_GEOIP_TIMEOUT", 3*time.Second),
		},
		AI: AIConfig{
			APIKey:  firstNonEmptyEnv("VITE_API_KEY", "API_KEY", "GEMINI_API_KEY"),
			BaseURL: envOr("CONSENTCORE_AI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai"),
			Model:   envOr("CONSENTCORE_AI_MODEL", "gemini-2.0-flash"),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("CONSENTCORE_WEBHOOK_URL"),
			Secret: os.Getenv("CONSENTCORE_WEBHOOK_SECRET"),
		},
	}
}

func firstNonEmptyEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
