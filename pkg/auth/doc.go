// Package auth provides user accounts and API token management for Arbor.
//
// # Overview
//
// This package implements the authentication layer: user records, API token
// generation with cryptographic security, and the SQL store backing both.
// Authorization decisions live in pkg/perm; this package only answers "who
// is calling".
//
// # API Tokens
//
// Tokens are generated as arbor_[base64url(32 random bytes)] and stored as a
// SHA256 hash. The plaintext is returned exactly once at creation:
//
//	tm := auth.NewTokenManager(auth.NewStore(db))
//	record, plaintext, err := tm.CreateToken(ctx, userID, "ci", "pipeline token", nil)
//
// Validation hashes the presented token, looks up the record, and rejects
// revoked or expired tokens:
//
//	record, err := tm.ValidateToken(ctx, bearerToken)
//
// # Users
//
//	user := &auth.User{Username: "alice", Email: "alice@example.com", IsActive: true}
//	err := store.CreateUser(ctx, user)
//
// # Related Packages
//
//   - pkg/middleware: bearer token extraction and AuthContext injection
//   - pkg/perm: permission resolution for authenticated users
package auth
