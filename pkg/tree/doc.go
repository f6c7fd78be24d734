// Package tree holds the genealogy domain: trees, persons, relationships
// and collaborator records, plus their SQL persistence.
//
// # Relationships
//
// Relationships are stored as canonical edges. Input words are gendered and
// directional ("father", "step-daughter", "wife"); Normalize maps them onto
// one of ten canonical types and fixes the edge direction, so "A is the
// father of B" and "B is the son of A" produce the identical record.
// Symmetric types (spouse, partner, the sibling family) are stored with the
// lexicographically smaller person ID first for the same reason.
//
// Parent-like edges form the ancestry graph. CreatesAncestryCycle walks it
// before an insert so nobody can become their own ancestor.
//
// # Persistence
//
// Store runs against database/sql with $1 placeholders and a portable SQL
// subset, so the same code serves postgres in production and in-memory
// sqlite in tests. Schema changes ship as versioned migrations applied by
// RunMigrations; each migration runs in its own transaction and is recorded
// in the tree_migrations table.
package tree
