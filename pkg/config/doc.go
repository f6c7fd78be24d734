// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	ARBOR_HOST="0.0.0.0"
//	ARBOR_PORT="8080"
//	ARBOR_HEALTH_PORT="9090"
//	ARBOR_READ_TIMEOUT="15s"
//	ARBOR_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	ARBOR_DB_DRIVER="postgres"  # postgres, sqlite3
//	ARBOR_DATABASE_URL="postgres://localhost/arbor"
//	ARBOR_DB_MAX_OPEN_CONNS="25"
//
// Redis settings (distributed rate limiting):
//
//	ARBOR_REDIS_URL="redis://localhost:6379"
//	ARBOR_REDIS_POOL_SIZE="10"
//
// Domain settings:
//
//	ARBOR_MEDIA_ROOT="/var/lib/arbor/media"
//	ARBOR_MEDIA_MAX_UPLOAD_SIZE="26214400"
//	ARBOR_PERMISSION_CACHE_SIZE="4096"
//	ARBOR_INVITATION_TTL="168h"
//	ARBOR_INVITATION_SWEEP_SCHEDULE="@hourly"
//
// Observability settings:
//
//	ARBOR_LOG_LEVEL="info"  # debug, info, warn, error
//	ARBOR_METRICS_ENABLED="true"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Database: %s\n", cfg.Database.Driver)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/observability: Uses observability configuration
//   - cmd/arbor: Wires configuration into the running service
package config
