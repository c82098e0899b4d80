package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// PlacesConfig configures the Places text search client.
type PlacesConfig struct {
	APIKey    string
	BaseURL   string
	PageDelay time.Duration
	MaxPages  int
	Timeout   time.Duration
}

// GeminiConfig configures the classification model.
type GeminiConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	Timeout         time.Duration
	MaxOutputTokens int32
	// Temperature is nil when GEMINI_TEMPERATURE is unset or invalid.
	Temperature *float32
}

// Config aggregates application-wide configuration values.
type Config struct {
	Port                 string
	Places               PlacesConfig
	Gemini               GeminiConfig
	ClassifyMaxRetries   int
	ClassifyRetryBackoff time.Duration
	RateLimitDiscover    RateLimitConfig
	RedisURL             string
	CacheTTL             time.Duration
	LogLevel             string
	LogFormat            string
}

// Load reads configuration from environment variables and applies sane defaults.
// Both provider API keys are required.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Places: PlacesConfig{
			APIKey:    strings.TrimSpace(os.Getenv("GOOGLE_PLACES_API_KEY")),
			BaseURL:   os.Getenv("PLACES_BASE_URL"),
			PageDelay: parseDuration(getEnv("PLACES_PAGE_DELAY", "2s"), 2*time.Second),
			MaxPages:  parseInt(getEnv("PLACES_MAX_PAGES", "2"), 2),
			Timeout:   parseDuration(getEnv("PLACES_TIMEOUT", "10s"), 10*time.Second),
		},
		Gemini: GeminiConfig{
			APIKey:          strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			BaseURL:         os.Getenv("GEMINI_BASE_URL"),
			Model:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Timeout:         parseDuration(getEnv("GEMINI_TIMEOUT", "30s"), 30*time.Second),
			MaxOutputTokens: int32(parseInt(getEnv("GEMINI_MAX_OUTPUT_TOKENS", "1024"), 1024)),
			Temperature:     parseOptionalFloat32(os.Getenv("GEMINI_TEMPERATURE")),
		},
		ClassifyMaxRetries:   parseInt(getEnv("CLASSIFY_MAX_RETRIES", "1"), 1),
		ClassifyRetryBackoff: parseDuration(getEnv("CLASSIFY_RETRY_BACKOFF", "500ms"), 500*time.Millisecond),
		RedisURL:             os.Getenv("REDIS_URL"),
		CacheTTL:             parseDuration(getEnv("CACHE_TTL", "6h"), 6*time.Hour),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "json"),
	}

	var missing []string
	if cfg.Places.APIKey == "" {
		missing = append(missing, "GOOGLE_PLACES_API_KEY")
	}
	if cfg.Gemini.APIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if len(missing) > 0 {
		return nil, errors.New("missing required environment variables: " + strings.Join(missing, ", "))
	}

	rl, err := parseRateLimit(getEnv("RATE_LIMIT_DISCOVER", "30/min"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_DISCOVER value: %w", err)
	}
	cfg.RateLimitDiscover = rl

	return cfg, nil
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func parseDuration(input string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(input)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func parseInt(input string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func parseOptionalFloat32(input string) *float32 {
	f, err := strconv.ParseFloat(strings.TrimSpace(input), 32)
	if err != nil || f < 0 {
		return nil
	}
	v := float32(f)
	return &v
}
