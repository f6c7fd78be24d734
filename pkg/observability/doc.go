// Package observability provides structured logging, Prometheus metrics,
// health checks and graceful shutdown for the Arbor service.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("port", 8080).Info("server started")
//
// Context-aware logging:
//
//	observability.FromContext(ctx).WithError(err).Error("request failed")
//
// # Prometheus Metrics
//
// Initialize metrics against a registry:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.PermissionChecksTotal.WithLabelValues("view-tree", "allow").Inc()
//
// Business metrics:
//
//	metrics.TreesTotal.Set(float64(count))
//	metrics.PersonsTotal.Set(float64(persons))
//
// # Health Checks
//
// Configure health checker:
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	observability.RegisterHealthRoutes(mux, checker)
//
// The readiness probe reports degraded when Redis is down and unhealthy when
// the database is unreachable.
//
// # Related Packages
//
//   - pkg/config: observability configuration
//   - pkg/httputil: request logging middleware
package observability
