package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadTestConfig loads the database configuration for integration tests.
// If the TEST_DB_* variables are not all set, it returns a Config with an empty database host,
// which integration tests treat as a reason to skip.
func LoadTestConfig() (*Config, error) {
	// Try both possible .env locations, both are optional
	_ = godotenv.Load("./../../.env")
	_ = godotenv.Load()

	cfg := &Config{}

	keys := []string{"TEST_DB_HOST", "TEST_DB_PORT", "TEST_DB_USER", "TEST_DB_NAME"}
	for _, key := range keys {
		if os.Getenv(key) == "" {
			return cfg, nil
		}
	}

	dbPort, err := strconv.Atoi(os.Getenv("TEST_DB_PORT"))
	if err != nil {
		return nil, fmt.Errorf("invalid TEST_DB_PORT: %w", err)
	}

	cfg.Database = DatabaseConfig{
		Host:     os.Getenv("TEST_DB_HOST"),
		Port:     dbPort,
		User:     os.Getenv("TEST_DB_USER"),
		Password: os.Getenv("TEST_DB_PASSWORD"),
		DBName:   os.Getenv("TEST_DB_NAME"),
	}

	return cfg, nil
}

// Configured reports whether a database was configured
func (c *Config) Configured() bool {
	return c.Database.Host != ""
}
