package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/arborhq/arbor/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Media         MediaConfig
	Permissions   PermissionsConfig
	Invitations   InvitationsConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds SQL database configuration. Driver is "postgres" for
// production and "sqlite3" for local development; URL is the DSN for either.
type DatabaseConfig struct {
	Driver       string
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

// RedisConfig holds Redis configuration. Redis backs distributed rate
// limiting; the service degrades rather than fails when it is absent.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

// MediaConfig holds media storage configuration
type MediaConfig struct {
	Root          string
	MaxUploadSize int64
}

// PermissionsConfig holds permission resolution settings
type PermissionsConfig struct {
	CacheSize int
}

// InvitationsConfig holds collaborator invitation settings
type InvitationsConfig struct {
	TTL           time.Duration
	SweepSchedule string
}

// ObservabilityConfig holds logging and metrics settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("ARBOR_HOST", "0.0.0.0"),
			Port:            getEnv("ARBOR_PORT", "8080"),
			ReadTimeout:     getEnvDuration("ARBOR_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("ARBOR_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("ARBOR_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("ARBOR_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("ARBOR_HEALTH_PORT", "9090"),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("ARBOR_DB_DRIVER", "postgres"),
			URL:          getEnv("ARBOR_DATABASE_URL", ""),
			MaxOpenConns: getEnvInt("ARBOR_DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("ARBOR_DB_MAX_IDLE_CONNS", 5),
			ConnLifetime: getEnvDuration("ARBOR_DB_CONN_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:      getEnv("ARBOR_REDIS_URL", ""),
			Password: getEnv("ARBOR_REDIS_PASSWORD", ""),
			DB:       getEnvInt("ARBOR_REDIS_DB", 0),
			PoolSize: getEnvInt("ARBOR_REDIS_POOL_SIZE", 10),
		},
		Media: MediaConfig{
			Root:          getEnv("ARBOR_MEDIA_ROOT", "/var/lib/arbor/media"),
			MaxUploadSize: getEnvInt64("ARBOR_MEDIA_MAX_UPLOAD_SIZE", 25<<20),
		},
		Permissions: PermissionsConfig{
			CacheSize: getEnvInt("ARBOR_PERMISSION_CACHE_SIZE", 4096),
		},
		Invitations: InvitationsConfig{
			TTL:           getEnvDuration("ARBOR_INVITATION_TTL", 7*24*time.Hour),
			SweepSchedule: getEnv("ARBOR_INVITATION_SWEEP_SCHEDULE", "@hourly"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLevel(getEnv("ARBOR_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("ARBOR_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Database.Driver)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}

	if c.Media.Root == "" {
		return fmt.Errorf("media root is required")
	}
	if c.Media.MaxUploadSize <= 0 {
		return fmt.Errorf("media max upload size must be positive")
	}

	if c.Permissions.CacheSize <= 0 {
		return fmt.Errorf("permission cache size must be positive")
	}

	if c.Invitations.TTL <= 0 {
		return fmt.Errorf("invitation TTL must be positive")
	}
	if c.Invitations.SweepSchedule == "" {
		return fmt.Errorf("invitation sweep schedule is required")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
