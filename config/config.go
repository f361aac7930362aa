package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string

	// Session storage
	RedisURL   string
	SessionTTL time.Duration

	// Credential encryption
	EncryptionKey string

	// Session JWT issued to the browser after OAuth
	JWTSecret  string
	JWTExpiry  time.Duration
	CookieName string

	// OAuth - Google
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GooglePubSubTopic  string

	// Sync
	PollInterval  time.Duration
	PageSize      int
	FetchTimeout  time.Duration
	BatchFetchMax int

	// Push channel (Redis pub/sub)
	PushChannel          string
	PushReconnectMin     time.Duration
	PushReconnectMax     time.Duration
	PushReconnectRetries int // 0 means retry forever

	// Agent
	OpenAIAPIKey string
	LLMModel     string

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		RedisURL:   getEnv("REDIS_URL", "redis://localhost:6379"),
		SessionTTL: time.Duration(getEnvInt("SESSION_TTL_HOUR", 24)) * time.Hour,

		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		JWTExpiry:  time.Duration(getEnvInt("JWT_EXPIRY_HOUR", 24)) * time.Hour,
		CookieName: getEnv("SESSION_COOKIE", "webmail_session"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		GooglePubSubTopic:  getEnv("GOOGLE_PUBSUB_TOPIC", ""),

		PollInterval:  time.Duration(getEnvInt("POLL_INTERVAL_SEC", 30)) * time.Second,
		PageSize:      getEnvInt("PAGE_SIZE", 25),
		FetchTimeout:  time.Duration(getEnvInt("FETCH_TIMEOUT_SEC", 30)) * time.Second,
		BatchFetchMax: getEnvInt("BATCH_FETCH_MAX", 5),

		PushChannel:          getEnv("PUSH_CHANNEL", "mail:push"),
		PushReconnectMin:     time.Duration(getEnvInt("PUSH_RECONNECT_MIN_SEC", 1)) * time.Second,
		PushReconnectMax:     time.Duration(getEnvInt("PUSH_RECONNECT_MAX_SEC", 60)) * time.Second,
		PushReconnectRetries: getEnvInt("PUSH_RECONNECT_RETRIES", 0),

		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		LLMModel:     getEnv("LLM_MODEL", "gpt-4o-mini"),

		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
