// Package middleware provides HTTP middleware for authentication and rate limiting.
//
// # Overview
//
// This package implements request processing middleware: bearer token
// authentication against the auth store, in-memory token-bucket rate
// limiting, and Redis-backed rate limiting for multi-instance deployments.
//
// # Middleware Components
//
// AuthMiddleware: token-based authentication
//
//	m := middleware.NewAuthMiddleware(tokenManager, userStore, false)
//	router.Use(m.Handler)
//	// Extracts Bearer token, validates it, loads the user, and adds
//	// *auth.AuthContext to the request context.
//
// RateLimitMiddleware: in-memory rate limiting
//
//	router.Use(middleware.NewRateLimitMiddleware().Handler)
//
// DistributedRateLimitMiddleware: Redis-backed rate limiting
//
//	router.Use(middleware.NewDistributedRateLimitMiddleware(redisClient).Handler)
//	// Shares counters across instances; fails open on Redis errors.
//
// Authenticated requests are keyed by user ID, anonymous requests by client
// IP. 429 responses carry Retry-After and X-RateLimit-* headers.
//
// # Related Packages
//
//   - pkg/auth: token validation and user lookup
//   - pkg/perm: per-tree permission checks layered on top of authentication
package middleware
