// Package httputil provides HTTP utilities for standardized request and
// response handling.
//
// All error responses share the shape {"error": "..."}. Handlers typically
// combine the parse helpers with the write helpers:
//
//	var req CreatePersonRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // error response already written
//	}
//	if !httputil.RequireNonEmpty(w, req.GivenName, "given_name") {
//		return
//	}
//	httputil.WriteCreated(w, person)
//
// The package also carries the generic middleware the API server is wrapped
// in:
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//	)
//
// Authentication and rate limiting middleware live in pkg/middleware, and
// permission enforcement in pkg/perm.
package httputil
