package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Backends accepted by DATA_BACKEND.
const (
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

var validBackends = []string{BackendJSON, BackendSQLite, BackendPostgres, BackendMemory}

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Record store
	DataBackend   string
	JSONStorePath string
	SQLiteDBPath  string
	PostgresURL   string

	// AMQP (calendar sync); empty URL disables publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Calendar
	GoogleCalendarID         string
	CalendarResyncDays       int
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	// OAuth user credentials, used when no service account is set
	GoogleOAuthClientJSON    string
	GoogleOAuthClientFile    string
	GoogleOAuthTokenFile     string
	OAuthRedirectPort        string

	// Category suggestion; empty key falls back to keyword matching
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	SuggestTimeout   time.Duration
	SuggestCacheSize int
	SuggestCacheTTL  time.Duration

	// Views
	ChartWindowDays  int
	ExportWindowDays int
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend:   getEnv("DATA_BACKEND", BackendSQLite),
		JSONStorePath: getEnv("JSON_STORE_PATH", "./data/db.json"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/bizledger.db"),
		PostgresURL:   getEnv("POSTGRES_URL", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "bizledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "calendar_sync"),

		GoogleCalendarID:         getEnv("GOOGLE_CALENDAR_ID", ""),
		CalendarResyncDays:       getEnvInt("CALENDAR_RESYNC_DAYS", 30),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", "token.json"),
		OAuthRedirectPort:        getEnv("OAUTH_REDIRECT_PORT", "8085"),

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		SuggestTimeout:   getEnvDuration("SUGGEST_TIMEOUT", 10*time.Second),
		SuggestCacheSize: getEnvInt("SUGGEST_CACHE_SIZE", 256),
		SuggestCacheTTL:  getEnvDuration("SUGGEST_CACHE_TTL", time.Hour),

		ChartWindowDays:  getEnvInt("CHART_WINDOW_DAYS", 30),
		ExportWindowDays: getEnvInt("EXPORT_WINDOW_DAYS", 365),
	}
}

// HasServiceAccount reports whether service account credentials are configured.
func (c *Config) HasServiceAccount() bool {
	return strings.TrimSpace(c.GoogleServiceAccountJSON) != "" || c.GoogleServiceAccountFile != ""
}

// HasOAuthClient reports whether an OAuth client is configured.
func (c *Config) HasOAuthClient() bool {
	return strings.TrimSpace(c.GoogleOAuthClientJSON) != "" || c.GoogleOAuthClientFile != ""
}

// CalendarSyncEnabled reports whether events flagged for sync can be published.
func (c *Config) CalendarSyncEnabled() bool {
	return c.AMQPURL != ""
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendJSON:
		if c.JSONStorePath == "" {
			errors = append(errors, "JSON store path cannot be empty when using json backend")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if msg := ensureDir(c.SQLiteDBPath); msg != "" {
			errors = append(errors, msg)
		}
	case BackendPostgres:
		if c.PostgresURL == "" {
			errors = append(errors, "POSTGRES_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.PostgresURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid Postgres URL: %v", err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid Postgres URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if c.GoogleOAuthClientFile != "" {
		if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
		}
	}
	if port, err := strconv.Atoi(c.OAuthRedirectPort); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid OAuth redirect port '%s'", c.OAuthRedirectPort))
	}

	if c.OpenAIBaseURL != "" {
		if u, err := url.Parse(c.OpenAIBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid OpenAI base URL '%s': must be an http(s) URL", c.OpenAIBaseURL))
		}
	}
	if c.SuggestTimeout <= 0 || c.SuggestTimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid suggest timeout %v: must be between 0 and 2 minutes", c.SuggestTimeout))
	}
	if c.SuggestCacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid suggest cache size %d: must not be negative", c.SuggestCacheSize))
	}
	if c.SuggestCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid suggest cache TTL %v: must not be negative", c.SuggestCacheTTL))
	}

	if c.ChartWindowDays < 1 || c.ChartWindowDays > 366 {
		errors = append(errors, fmt.Sprintf("invalid chart window %d: must be between 1 and 366 days", c.ChartWindowDays))
	}
	if c.ExportWindowDays < 1 || c.ExportWindowDays > 3660 {
		errors = append(errors, fmt.Sprintf("invalid export window %d: must be between 1 and 3660 days", c.ExportWindowDays))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateCalendarWorker checks the settings the calendar worker needs on
// top of Validate.
func (c *Config) ValidateCalendarWorker() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the calendar worker")
	}
	if c.GoogleCalendarID == "" {
		errors = append(errors, "GOOGLE_CALENDAR_ID is required for the calendar worker")
	}
	switch {
	case c.HasServiceAccount():
	case c.HasOAuthClient():
		if _, err := os.Stat(c.GoogleOAuthTokenFile); err != nil {
			errors = append(errors, fmt.Sprintf("OAuth token file '%s' is not readable, run calendar-auth first", c.GoogleOAuthTokenFile))
		}
	default:
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or an OAuth client (GOOGLE_OAUTH_CLIENT_JSON, GOOGLE_OAUTH_CLIENT_FILE) must be provided")
	}
	if c.CalendarResyncDays < 0 || c.CalendarResyncDays > 3660 {
		errors = append(errors, fmt.Sprintf("invalid calendar resync window %d: must be between 0 and 3660 days", c.CalendarResyncDays))
	}
	if c.DataBackend == BackendMemory {
		errors = append(errors, "memory backend cannot be shared with the calendar worker")
	}
	if len(errors) > 0 {
		return fmt.Errorf("calendar worker configuration invalid:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func ensureDir(path string) string {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Sprintf("cannot create database directory '%s': %v", dir, err)
		}
	}
	return ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
