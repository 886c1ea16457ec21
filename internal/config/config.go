// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port               string
	FrontendURL        string
	CORSOrigins        []string
	DBPath             string
	VocabularyPath     string
	MaxRequestBodySize int64
	GRPCHealthAddr     string

	Session         SessionConfig
	LLM             LLMConfig
	Catalog         CatalogConfig
	Redis           RedisConfig
	RateLimit       RateLimitConfig
	ConversationLog ConversationLogConfig
}

// SessionConfig controls the in-memory session store.
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
	HistoryLimit  int
}

// LLMConfig configures the optional model-backed intent resolver.
type LLMConfig struct {
	Enabled bool
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// CatalogConfig configures the remote product API and its cache.
type CatalogConfig struct {
	URL        string
	Timeout    time.Duration
	CacheTTL   time.Duration
	// RetryAfter is how long the local listing is served after the remote fails.
	RetryAfter time.Duration
}

// RedisConfig selects the shared cache. An empty Addr keeps the cache in memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateLimitConfig bounds chat requests per client address.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
	MaxOpenFiles  int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	frontendURL := getEnv("FRONTEND_URL", "")

	cfg := &Config{
		Port:               getEnv("PORT", "5000"),
		FrontendURL:        frontendURL,
		CORSOrigins:        corsOrigins(getEnv("CORS_ORIGINS", ""), frontendURL),
		DBPath:             getEnv("DB_PATH", "./data/catalog.db"),
		VocabularyPath:     getEnv("VOCABULARY_PATH", ""),
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
		GRPCHealthAddr:     getEnv("GRPC_HEALTH_ADDR", ""),
		Session: SessionConfig{
			TTL:           getEnvDuration("SESSION_TTL", time.Hour),
			SweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
			HistoryLimit:  getEnvInt("SESSION_HISTORY_LIMIT", 50),
		},
		LLM: LLMConfig{
			Enabled: getEnvBool("LLM_ENABLED", true),
			APIKey:  getEnv("ARK_API_KEY", ""),
			Model:   getEnv("ARK_MODEL", ""),
			BaseURL: getEnv("ARK_BASE_URL", ""),
			Timeout: getEnvDuration("LLM_TIMEOUT", 8*time.Second),
		},
		Catalog: CatalogConfig{
			URL:        getEnv("CATALOG_URL", "https://fakestoreapi.com/products"),
			Timeout:    getEnvDuration("CATALOG_TIMEOUT", 5*time.Second),
			CacheTTL:   getEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute),
			RetryAfter: getEnvDuration("CATALOG_RETRY_AFTER", 30*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 30),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     queueSize,
			MaxOpenFiles:  getEnvInt("CONVERSATION_LOG_MAX_OPEN_FILES", 256),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be > 0")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be > 0")
	}
	if c.Session.HistoryLimit <= 0 {
		return fmt.Errorf("SESSION_HISTORY_LIMIT must be > 0")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be > 0")
	}
	if c.Catalog.Timeout <= 0 {
		return fmt.Errorf("CATALOG_TIMEOUT must be > 0")
	}
	if c.Catalog.CacheTTL <= 0 {
		return fmt.Errorf("CATALOG_CACHE_TTL must be > 0")
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	if c.ConversationLog.MaxOpenFiles <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_MAX_OPEN_FILES must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// LLMReady reports whether the model resolver can be configured.
func (c *Config) LLMReady() bool {
	return c.LLM.Enabled && c.LLM.APIKey != "" && c.LLM.Model != ""
}

// corsOrigins splits a comma-separated list. Without one, only the frontend
// is allowed, or any origin when no frontend is configured.
func corsOrigins(raw, frontendURL string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) > 0 {
		return origins
	}
	if frontendURL != "" {
		return []string{strings.TrimRight(frontendURL, "/")}
	}
	return []string{"*"}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("90s") or bare seconds ("90").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
