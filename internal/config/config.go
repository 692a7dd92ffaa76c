// Package config provides configuration for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppName   string
	Debug     bool
	Database  DatabaseConfig
	Server    ServerConfig
	Logging   LoggingConfig
	CORS      CORSConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Sweeper   SweeperConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port int
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// JWTConfig holds access token settings.
//
// Timeout is both the token lifetime and the session lifetime.
type JWTConfig struct {
	Secret    string
	Algorithm string
	Timeout   time.Duration
}

// RateLimitConfig holds per-IP request limits per minute
type RateLimitConfig struct {
	RequestsPerMinute int
	LoginsPerMinute   int
}

// SweeperConfig holds expired session cleanup settings.
// An empty Schedule disables the sweeper.
type SweeperConfig struct {
	Schedule string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.AppName = getEnvDefault("APP_NAME", "Vending Machine")

	debug, err := parseBool("DEBUG", false)
	if err != nil {
		return nil, err
	}
	cfg.Debug = debug

	// Database configuration
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		return nil, fmt.Errorf("DB_HOST is required")
	}
	cfg.Database.Host = dbHost

	dbPortStr := os.Getenv("DB_PORT")
	if dbPortStr == "" {
		return nil, fmt.Errorf("DB_PORT is required")
	}
	dbPort, err := strconv.Atoi(dbPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	cfg.Database.Port = dbPort

	dbUser := os.Getenv("DB_USER")
	if dbUser == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	cfg.Database.User = dbUser

	// Empty password is allowed for local databases
	cfg.Database.Password = os.Getenv("DB_PASSWORD")

	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}
	cfg.Database.DBName = dbName

	// Server configuration
	serverPort, err := strconv.Atoi(getEnvDefault("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}
	cfg.Server.Port = serverPort

	// Logging configuration
	cfg.Logging.Level = getEnvDefault("LOG_LEVEL", "info")

	// CORS configuration
	cfg.CORS.AllowedOrigins = parseOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"))

	// JWT configuration
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	cfg.JWT.Secret = jwtSecret

	cfg.JWT.Algorithm = getEnvDefault("JWT_ALGORITHM", "HS256")
	switch cfg.JWT.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return nil, fmt.Errorf("unsupported JWT_ALGORITHM: %s", cfg.JWT.Algorithm)
	}

	timeout, err := parseTimeout(getEnvDefault("JWT_TIMEOUT", "3600"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TIMEOUT: %w", err)
	}
	cfg.JWT.Timeout = timeout

	// Rate limiting
	requestsPerMinute, err := parsePositiveInt("RATE_LIMIT_PER_MINUTE", 100)
	if err != nil {
		return nil, err
	}
	cfg.RateLimit.RequestsPerMinute = requestsPerMinute

	loginsPerMinute, err := parsePositiveInt("LOGIN_RATE_LIMIT_PER_MINUTE", 20)
	if err != nil {
		return nil, err
	}
	cfg.RateLimit.LoginsPerMinute = loginsPerMinute

	// Expired session sweeper (default: every 10 minutes)
	cfg.Sweeper.Schedule = getEnvDefault("SESSION_SWEEP_SCHEDULE", "@every 10m")
	if strings.EqualFold(cfg.Sweeper.Schedule, "off") {
		cfg.Sweeper.Schedule = ""
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC&multiStatements=true",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
	)
}

func getEnvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func parseBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return value, nil
}

// parseTimeout accepts plain seconds ("3600") or a Go duration ("1h")
func parseTimeout(raw string) (time.Duration, error) {
	var timeout time.Duration
	if seconds, err := strconv.Atoi(raw); err == nil {
		timeout = time.Duration(seconds) * time.Second
	} else {
		timeout, err = time.ParseDuration(raw)
		if err != nil {
			return 0, err
		}
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return timeout, nil
}

// parseOrigins splits a comma-separated origin list, defaulting to all origins
func parseOrigins(raw string) []string {
	origins := make([]string, 0)
	for _, origin := range strings.Split(raw, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
