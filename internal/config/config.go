package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	// HTTP Server
	Port         string
	StaticDir    string
	CORSOrigins  []string
	SecureCookie bool

	// Database
	DBPath string

	// Sessions
	SessionBackend string
	SessionTTL     time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	// Passwords
	BcryptCost int

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		StaticDir:    getEnv("STATIC_DIR", ""),
		CORSOrigins:  getEnvList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		SecureCookie: getEnvBool("SECURE_COOKIE", false),

		DBPath: getEnv("DB_PATH", "expenses.db"),

		SessionBackend: getEnv("SESSION_BACKEND", "sqlite"),
		SessionTTL:     getEnvDuration("SESSION_TTL", 30*24*time.Hour),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),

		BcryptCost: getEnvInt("BCRYPT_COST", bcrypt.DefaultCost),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DBPath == "" {
		errors = append(errors, "database path cannot be empty")
	} else if c.DBPath != ":memory:" {
		dir := filepath.Dir(c.DBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create database directory '%s': %v", dir, err))
				}
			}
		}
	}

	validBackends := []string{"sqlite", "redis"}
	if !slices.Contains(validBackends, c.SessionBackend) {
		errors = append(errors, fmt.Sprintf("invalid session backend '%s': must be one of %v", c.SessionBackend, validBackends))
	}
	if c.SessionBackend == "redis" && c.RedisAddr == "" {
		errors = append(errors, "Redis address is required when using redis session backend")
	}
	if c.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("invalid redis db %d: must not be negative", c.RedisDB))
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session ttl %v: must be at least 1 minute", c.SessionTTL))
	}

	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errors = append(errors, fmt.Sprintf("invalid bcrypt cost %d: must be between %d and %d", c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost))
	}

	if c.StaticDir != "" {
		if info, err := os.Stat(c.StaticDir); err != nil || !info.IsDir() {
			errors = append(errors, fmt.Sprintf("static directory '%s' does not exist", c.StaticDir))
		}
	}

	validFormats := []string{"text", "json"}
	if !slices.Contains(validFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
