package invite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store handles invitation persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new invitation store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a pending invitation. The ID, token and timestamps are
// assigned here.
func (s *Store) Create(ctx context.Context, inv *Invitation, ttl time.Duration) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	if inv.Token == "" {
		inv.Token = uuid.NewString()
	}
	inv.Status = StatusPending
	inv.CreatedAt = time.Now().UTC()
	inv.ExpiresAt = inv.CreatedAt.Add(ttl)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invitations (
			id, tree_id, email, level, token, status,
			invited_by, created_at, expires_at, accepted_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		inv.ID, inv.TreeID, inv.Email, inv.Level, inv.Token, inv.Status,
		inv.InvitedBy, inv.CreatedAt, inv.ExpiresAt, inv.AcceptedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

const invitationColumns = `
	id, tree_id, email, level, token, status,
	invited_by, created_at, expires_at, accepted_by, accepted_at`

func scanInvitation(row interface{ Scan(...interface{}) error }) (*Invitation, error) {
	var inv Invitation
	err := row.Scan(
		&inv.ID, &inv.TreeID, &inv.Email, &inv.Level, &inv.Token, &inv.Status,
		&inv.InvitedBy, &inv.CreatedAt, &inv.ExpiresAt, &inv.AcceptedBy, &inv.AcceptedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Get retrieves an invitation by ID
func (s *Store) Get(ctx context.Context, id string) (*Invitation, error) {
	inv, err := scanInvitation(s.db.QueryRowContext(ctx,
		"SELECT"+invitationColumns+" FROM invitations WHERE id = $1", id,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invitation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return inv, nil
}

// GetByToken retrieves an invitation by its secret token
func (s *Store) GetByToken(ctx context.Context, token string) (*Invitation, error) {
	inv, err := scanInvitation(s.db.QueryRowContext(ctx,
		"SELECT"+invitationColumns+" FROM invitations WHERE token = $1", token,
	))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation by token: %w", err)
	}
	return inv, nil
}

// ListByTree lists a tree's invitations, newest first
func (s *Store) ListByTree(ctx context.Context, treeID string) ([]Invitation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT"+invitationColumns+" FROM invitations WHERE tree_id = $1 ORDER BY created_at DESC",
		treeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var invitations []Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, *inv)
	}
	return invitations, rows.Err()
}

// UpdateStatus transitions an invitation from one status to another. It
// returns ErrNotPending when the row is not in the expected status.
func (s *Store) UpdateStatus(ctx context.Context, id string, from, to Status) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE invitations SET status = $1 WHERE id = $2 AND status = $3",
		to, id, from,
	)
	if err != nil {
		return fmt.Errorf("failed to update invitation status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated invitation: %w", err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("invitation %s: %w", id, ErrNotPending)
	}
	return nil
}

// MarkAccepted records who accepted a pending invitation and when
func (s *Store) MarkAccepted(ctx context.Context, id, userID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE invitations SET status = $1, accepted_by = $2, accepted_at = $3
		WHERE id = $4 AND status = $5`,
		StatusAccepted, userID, at, id, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to accept invitation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check accepted invitation: %w", err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("invitation %s: %w", id, ErrNotPending)
	}
	return nil
}

// ExpirePending flips pending invitations whose expiry has passed to expired,
// returning how many changed.
func (s *Store) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE invitations SET status = $1 WHERE status = $2 AND expires_at < $3",
		StatusExpired, StatusPending, now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire invitations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check expired invitations: %w", err)
	}
	return n, nil
}
