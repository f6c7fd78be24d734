package tree

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns all tree-domain migrations. The SQL sticks to the
// portable subset accepted by both sqlite3 and postgres.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create trees and collaborators tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS trees (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					owner_id TEXT NOT NULL,
					public BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_trees_owner_id ON trees(owner_id);

				CREATE TABLE IF NOT EXISTS collaborators (
					tree_id TEXT NOT NULL REFERENCES trees(id) ON DELETE CASCADE,
					user_id TEXT NOT NULL,
					level VARCHAR(20) NOT NULL,
					added_by TEXT NOT NULL DEFAULT '',
					added_at TIMESTAMP NOT NULL,
					PRIMARY KEY (tree_id, user_id)
				);

				CREATE INDEX IF NOT EXISTS idx_collaborators_user_id ON collaborators(user_id);
			`,
		},
		{
			Version:     2,
			Description: "Create persons table",
			SQL: `
				CREATE TABLE IF NOT EXISTS persons (
					id TEXT PRIMARY KEY,
					tree_id TEXT NOT NULL REFERENCES trees(id) ON DELETE CASCADE,
					given_name TEXT NOT NULL,
					family_name TEXT NOT NULL DEFAULT '',
					gender VARCHAR(20) NOT NULL DEFAULT '',
					birth_date TIMESTAMP,
					death_date TIMESTAMP,
					birth_place TEXT NOT NULL DEFAULT '',
					notes TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL,
					updated_at TIMESTAMP NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_persons_tree_id ON persons(tree_id);
			`,
		},
		{
			Version:     3,
			Description: "Create relationships table",
			SQL: `
				CREATE TABLE IF NOT EXISTS relationships (
					id TEXT PRIMARY KEY,
					tree_id TEXT NOT NULL REFERENCES trees(id) ON DELETE CASCADE,
					from_id TEXT NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
					to_id TEXT NOT NULL REFERENCES persons(id) ON DELETE CASCADE,
					type VARCHAR(30) NOT NULL,
					notes TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMP NOT NULL,
					UNIQUE (tree_id, from_id, to_id, type)
				);

				CREATE INDEX IF NOT EXISTS idx_relationships_tree_id ON relationships(tree_id);
				CREATE INDEX IF NOT EXISTS idx_relationships_from_id ON relationships(from_id);
				CREATE INDEX IF NOT EXISTS idx_relationships_to_id ON relationships(to_id);
			`,
		},
	}
}

// RunMigrations applies all pending tree-domain migrations
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tree_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	appliedVersions := make(map[int]bool)
	rows, err := db.QueryContext(ctx, "SELECT version FROM tree_migrations")
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	for _, migration := range GetMigrations() {
		if appliedVersions[migration.Version] {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to start transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tree_migrations (version, description) VALUES ($1, $2)",
			migration.Version, migration.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}
	}

	return nil
}
