package media

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store handles media metadata persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new media metadata store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a media metadata row. The ID and timestamp are assigned
// here when empty.
func (s *Store) Create(ctx context.Context, m *Media) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO media (id, tree_id, person_id, file_name, content_type, size, hash, uploaded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.TreeID, m.PersonID, m.FileName, m.ContentType, m.Size, m.Hash, m.UploadedBy, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create media record: %w", err)
	}
	return nil
}

// Get retrieves a media record scoped to a tree
func (s *Store) Get(ctx context.Context, treeID, mediaID string) (*Media, error) {
	var m Media
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tree_id, person_id, file_name, content_type, size, hash, uploaded_by, created_at
		FROM media WHERE tree_id = $1 AND id = $2`,
		treeID, mediaID,
	).Scan(&m.ID, &m.TreeID, &m.PersonID, &m.FileName, &m.ContentType, &m.Size, &m.Hash, &m.UploadedBy, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("media %s: %w", mediaID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get media record: %w", err)
	}
	return &m, nil
}

// ListByTree lists a tree's media records, newest first
func (s *Store) ListByTree(ctx context.Context, treeID string) ([]Media, error) {
	return s.list(ctx, `
		SELECT id, tree_id, person_id, file_name, content_type, size, hash, uploaded_by, created_at
		FROM media WHERE tree_id = $1 ORDER BY created_at DESC`, treeID)
}

// ListByPerson lists media attached to one person, newest first
func (s *Store) ListByPerson(ctx context.Context, treeID, personID string) ([]Media, error) {
	return s.list(ctx, `
		SELECT id, tree_id, person_id, file_name, content_type, size, hash, uploaded_by, created_at
		FROM media WHERE tree_id = $1 AND person_id = $2 ORDER BY created_at DESC`, treeID, personID)
}

func (s *Store) list(ctx context.Context, query string, args ...interface{}) ([]Media, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	defer rows.Close()

	var records []Media
	for rows.Next() {
		var m Media
		if err := rows.Scan(&m.ID, &m.TreeID, &m.PersonID, &m.FileName, &m.ContentType, &m.Size, &m.Hash, &m.UploadedBy, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan media record: %w", err)
		}
		records = append(records, m)
	}
	return records, rows.Err()
}

// Delete removes a media record scoped to a tree
func (s *Store) Delete(ctx context.Context, treeID, mediaID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM media WHERE tree_id = $1 AND id = $2", treeID, mediaID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete media record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted media record: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("media %s: %w", mediaID, ErrNotFound)
	}
	return nil
}
