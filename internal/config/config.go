package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Storage backend names.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Storage         string
	Database        DatabaseConfig
	Redis           RedisConfig
	Session         SessionConfig
	OAuth           OAuthConfig
	Server          ServerConfig
	AnonymousWrites bool
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds optional Redis settings; when Addr is set, sessions
// are stored in Redis instead of the primary store.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// SessionConfig holds session-cookie settings.
type SessionConfig struct {
	Secret       string //nolint:gosec // G117: cookie signing secret config
	TTL          time.Duration
	CookieSecure bool
}

// OAuthConfig holds the Google OAuth client settings. Both ClientID and
// ClientSecret must be set for identity to be configured.
type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string //nolint:gosec // G117: OAuth client config
	RedirectURL        string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("PV_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("PV_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("PV_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	sessionTTL, err := getEnvDuration("PV_SESSION_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cookieSecure, err := getEnvBool("PV_SESSION_COOKIE_SECURE", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	anonymousWrites, err := getEnvBool("PV_ANONYMOUS_WRITES", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("PV_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("PV_SERVER_WRITE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	corsOrigins := getEnvList("PV_CORS_ORIGINS", []string{"http://localhost:5173"})

	cfg := &Config{
		Storage: getEnv("PV_STORAGE", StoragePostgres),
		Database: DatabaseConfig{
			Host:     getEnv("PV_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("PV_DB_USER", "promptvault"),
			Password: getEnv("PV_DB_PASSWORD", ""),
			DBName:   getEnv("PV_DB_NAME", "promptvault_dev"),
			SSLMode:  getEnv("PV_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("PV_REDIS_ADDR", ""),
			Password: getEnv("PV_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Session: SessionConfig{
			Secret:       getEnv("PV_SESSION_SECRET", ""),
			TTL:          sessionTTL,
			CookieSecure: cookieSecure,
		},
		OAuth: OAuthConfig{
			GoogleClientID:     getEnv("PV_GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: getEnv("PV_GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:        getEnv("PV_OAUTH_REDIRECT_URL", "http://localhost:8080/api/auth/google/callback"),
		},
		Server: ServerConfig{
			Addr:         getEnv("PV_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  corsOrigins,
		},
		AnonymousWrites: anonymousWrites,
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// IdentityConfigured reports whether Google OAuth credentials are present.
func (c *Config) IdentityConfigured() bool {
	return c.OAuth.GoogleClientID != "" && c.OAuth.GoogleClientSecret != ""
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if c.Storage != StoragePostgres && c.Storage != StorageMemory {
		return fmt.Errorf("PV_STORAGE must be %q or %q, got %q", StoragePostgres, StorageMemory, c.Storage)
	}

	// Half-configured OAuth is almost certainly a deployment mistake.
	if (c.OAuth.GoogleClientID == "") != (c.OAuth.GoogleClientSecret == "") {
		return errors.New("PV_GOOGLE_CLIENT_ID and PV_GOOGLE_CLIENT_SECRET must be set together")
	}

	if c.IdentityConfigured() {
		if c.Session.Secret == "" {
			return errors.New("PV_SESSION_SECRET is required when OAuth is configured")
		}
		if len(c.Session.Secret) < 32 {
			return errors.New("PV_SESSION_SECRET must be at least 32 characters")
		}
	} else {
		log.Info().Msg("Google OAuth credentials not found; running without authentication")
		if c.AnonymousWrites {
			log.Warn().Msg("PV_ANONYMOUS_WRITES=true: write access is open to everyone")
		}
	}

	if c.Storage == StoragePostgres {
		if c.Database.Port < 1 || c.Database.Port > 65535 {
			return fmt.Errorf("PV_DB_PORT must be 1-65535, got %d", c.Database.Port)
		}
		if c.Database.MaxConns < 1 {
			return fmt.Errorf("PV_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
		}
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("PV_SESSION_TTL must be positive, got %s", c.Session.TTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("PV_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("PV_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
