package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AuthMode represents the authentication mode for Data API
type AuthMode string

const (
	AuthModeNone   AuthMode = "none"
	AuthModeBearer AuthMode = "bearer"
	AuthModeAPIKey AuthMode = "api_key"
)

// Feed modes
const (
	FeedModePoll   = "poll"
	FeedModeStream = "stream"
	FeedModeNone   = "none"
)

// Cursor store backends
const (
	CursorStoreMemory = "memory"
	CursorStoreMySQL  = "mysql"
	CursorStoreRedis  = "redis"
)

// Alert channel names accepted in ALERT_MODE
var knownAlertModes = map[string]bool{
	"log":      true,
	"pushover": true,
	"telegram": true,
	"discord":  true,
	"smtp":     true,
	"kafka":    true,
}

// Config holds all application configuration
type Config struct {
	// Environment
	Environment string
	LogLevel    string

	// Detection thresholds and points
	Detection Detection

	// Data API
	DataAPIBaseURL      string
	DataAPIAuthMode     AuthMode
	DataAPIBearerToken  string
	DataAPIAPIKey       string
	DataAPIExtraHeaders map[string]string
	DataAPITradesRPS    float64
	DataAPIActivityRPS  float64

	// Gamma API
	GammaAPIBaseURL        string
	GammaAPIMarketsRPS     float64
	EnableMarketEnrichment bool

	// Wallet history lookup (fills FRESH_WALLET / NEW_WALLET signals)
	EnableWalletLookup bool

	// Feed
	FeedMode        string
	PollIntervalSec int
	PollLookbackSec int
	PollLimit       int

	// Streaming feed
	StreamURL          string
	StreamBufferSize   int
	StreamReconnectSec int
	StreamPingSec      int
	StreamOrigin       string

	// Dashboard
	DashboardWindowHours int
	DashboardLimit       int
	DashboardTopN        int

	// Cursor persistence
	CursorStore         string
	DatabaseDSN         string
	DatabaseMaxConns    int
	DatabaseMaxIdleTime time.Duration
	RedisAddr           string
	RedisPassword       string
	RedisDB             int
	RedisPrefix         string

	// Scheduled trigger
	CronSecret string

	// Alerts
	AlertMode         string // comma separated: log, pushover, telegram, discord, smtp, kafka
	NotifyMinLevel    string
	NotifyTimeout     time.Duration
	PushoverUserKey   string
	PushoverAPIToken  string
	TelegramBotToken  string
	TelegramChatID    string
	DiscordWebhookURL string
	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPassword      string
	SMTPFrom          string
	SMTPTo            []string
	KafkaBrokers      []string
	KafkaTopic        string

	// HTTP server (dashboard, cron, health, metrics)
	HTTPPort int
}

// Load reads configuration from .env files and environment variables
func Load() (*Config, error) {
	// Missing env files are fine; real environment variables win over file values.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	detection, err := LoadDetection(getEnv("DETECTION_CONFIG_FILE", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment:            getEnv("ENVIRONMENT", "development"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		Detection:              *detection,
		DataAPIBaseURL:         getEnv("DATA_API_BASE_URL", "https://data-api.polymarket.com"),
		DataAPIAuthMode:        AuthMode(getEnv("DATA_API_AUTH_MODE", "none")),
		DataAPIBearerToken:     GetOptionalSecret("DATA_API_BEARER_TOKEN", ""),
		DataAPIAPIKey:          GetOptionalSecret("DATA_API_API_KEY", ""),
		DataAPITradesRPS:       getEnvFloat("DATA_API_TRADES_RPS", 2.0),
		DataAPIActivityRPS:     getEnvFloat("DATA_API_ACTIVITY_RPS", 1.0),
		GammaAPIBaseURL:        getEnv("GAMMA_API_BASE_URL", "https://gamma-api.polymarket.com"),
		GammaAPIMarketsRPS:     getEnvFloat("GAMMA_API_MARKETS_RPS", 5.0),
		EnableMarketEnrichment: getEnvBool("ENABLE_MARKET_ENRICHMENT", true),
		EnableWalletLookup:     getEnvBool("ENABLE_WALLET_LOOKUP", false),
		FeedMode:               strings.ToLower(getEnv("FEED_MODE", FeedModePoll)),
		PollIntervalSec:        getEnvInt("POLL_INTERVAL_SEC", 300),
		PollLookbackSec:        getEnvInt("POLL_LOOKBACK_SEC", 600),
		PollLimit:              getEnvInt("POLL_LIMIT", 200),
		StreamURL:              getEnv("STREAM_URL", "wss://ws-live-data.polymarket.com"),
		StreamBufferSize:       getEnvInt("STREAM_BUFFER_SIZE", 5),
		StreamReconnectSec:     getEnvInt("STREAM_RECONNECT_SEC", 5),
		StreamPingSec:          getEnvInt("STREAM_PING_SEC", 20),
		StreamOrigin:           getEnv("STREAM_ORIGIN", ""),
		DashboardWindowHours:   getEnvInt("DASHBOARD_WINDOW_HOURS", 24),
		DashboardLimit:         getEnvInt("DASHBOARD_LIMIT", 500),
		DashboardTopN:          getEnvInt("DASHBOARD_TOP_N", 50),
		CursorStore:            strings.ToLower(getEnv("CURSOR_STORE", CursorStoreMemory)),
		DatabaseDSN:            GetOptionalSecret("DATABASE_DSN", "insiderdetector:insiderdetector@tcp(mysql:3306)/insiderdetector?parseTime=true"),
		DatabaseMaxConns:       getEnvInt("DATABASE_MAX_CONNS", 10),
		DatabaseMaxIdleTime:    time.Duration(getEnvInt("DATABASE_MAX_IDLE_TIME_MINS", 5)) * time.Minute,
		RedisAddr:              getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:          GetOptionalSecret("REDIS_PASSWORD", ""),
		RedisDB:                getEnvInt("REDIS_DB", 0),
		RedisPrefix:            getEnv("REDIS_PREFIX", "insiderdetector"),
		CronSecret:             GetOptionalSecret("CRON_SECRET", ""),
		AlertMode:              getEnv("ALERT_MODE", "pushover,telegram,discord"),
		NotifyMinLevel:         strings.ToUpper(getEnv("NOTIFY_MIN_LEVEL", "HIGH")),
		NotifyTimeout:          time.Duration(getEnvInt("NOTIFY_TIMEOUT_SEC", 10)) * time.Second,
		PushoverUserKey:        GetOptionalSecret("PUSHOVER_USER_KEY", ""),
		PushoverAPIToken:       GetOptionalSecret("PUSHOVER_API_TOKEN", ""),
		TelegramBotToken:       GetOptionalSecret("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:         getEnv("TELEGRAM_CHAT_ID", ""),
		DiscordWebhookURL:      GetOptionalSecret("DISCORD_WEBHOOK_URL", ""),
		SMTPHost:               getEnv("SMTP_HOST", ""),
		SMTPPort:               getEnvInt("SMTP_PORT", 587),
		SMTPUser:               getEnv("SMTP_USER", ""),
		SMTPPassword:           GetOptionalSecret("SMTP_PASSWORD", ""),
		SMTPFrom:               getEnv("SMTP_FROM", "insiderdetector@example.com"),
		SMTPTo:                 parseCSV(getEnv("SMTP_TO", "")),
		KafkaBrokers:           parseCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:             getEnv("KAFKA_TOPIC", "insider-alerts"),
		HTTPPort:               getEnvInt("HTTP_PORT", 3000),
	}

	// Parse extra headers JSON
	extraHeadersJSON := getEnv("DATA_API_EXTRA_HEADERS", "{}")
	if err := json.Unmarshal([]byte(extraHeadersJSON), &cfg.DataAPIExtraHeaders); err != nil {
		return nil, fmt.Errorf("invalid DATA_API_EXTRA_HEADERS JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	switch c.DataAPIAuthMode {
	case AuthModeNone:
	case AuthModeBearer:
		if c.DataAPIBearerToken == "" {
			return fmt.Errorf("DATA_API_BEARER_TOKEN is required when AUTH_MODE is bearer")
		}
	case AuthModeAPIKey:
		if c.DataAPIAPIKey == "" {
			return fmt.Errorf("DATA_API_API_KEY is required when AUTH_MODE is api_key")
		}
	default:
		return fmt.Errorf("invalid DATA_API_AUTH_MODE: %s (must be none, bearer, or api_key)", c.DataAPIAuthMode)
	}

	switch c.FeedMode {
	case FeedModePoll, FeedModeStream, FeedModeNone:
	default:
		return fmt.Errorf("invalid FEED_MODE: %s (must be poll, stream, or none)", c.FeedMode)
	}

	switch c.CursorStore {
	case CursorStoreMemory:
	case CursorStoreMySQL:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required when CURSOR_STORE is mysql")
		}
	case CursorStoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when CURSOR_STORE is redis")
		}
	default:
		return fmt.Errorf("invalid CURSOR_STORE: %s (must be memory, mysql, or redis)", c.CursorStore)
	}

	for _, mode := range c.AlertModes() {
		if !knownAlertModes[mode] {
			return fmt.Errorf("invalid ALERT_MODE value: %s (valid values: log, pushover, telegram, discord, smtp, kafka)", mode)
		}
	}

	switch c.NotifyMinLevel {
	case "LOW", "MEDIUM", "HIGH", "CRITICAL":
	default:
		return fmt.Errorf("invalid NOTIFY_MIN_LEVEL: %s", c.NotifyMinLevel)
	}

	if c.PollIntervalSec < 1 {
		return fmt.Errorf("POLL_INTERVAL_SEC must be at least 1")
	}
	if c.StreamBufferSize < 1 {
		return fmt.Errorf("STREAM_BUFFER_SIZE must be at least 1")
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}

	return c.Detection.Validate()
}

// AlertModes returns the trimmed, non-empty entries of ALERT_MODE
func (c *Config) AlertModes() []string {
	return parseCSV(strings.ToLower(c.AlertMode))
}

// IsProduction reports whether the process runs in a production-like environment
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// PollInterval returns the polling interval as a duration
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func parseCSV(s string) []string {
	var result []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
