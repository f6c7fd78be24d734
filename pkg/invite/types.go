package invite

import (
	"errors"
	"time"

	"github.com/arborhq/arbor/pkg/tree"
)

var (
	// ErrNotFound is returned when no invitation matches the lookup.
	ErrNotFound = errors.New("invitation not found")

	// ErrExpired is returned when an invitation's expiry has passed.
	ErrExpired = errors.New("invitation expired")

	// ErrNotPending is returned when accepting or revoking an invitation
	// that has already been resolved.
	ErrNotPending = errors.New("invitation is not pending")
)

// Status is the lifecycle state of an invitation
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRevoked  Status = "revoked"
	StatusExpired  Status = "expired"
)

// Invitation invites an email address to collaborate on a tree. The token is
// the secret the invitee presents to accept; it is never listed back to
// anyone but the inviter.
type Invitation struct {
	ID         string               `json:"id"`
	TreeID     string               `json:"tree_id"`
	Email      string               `json:"email"`
	Level      tree.PermissionLevel `json:"level"`
	Token      string               `json:"token,omitempty"`
	Status     Status               `json:"status"`
	InvitedBy  string               `json:"invited_by"`
	CreatedAt  time.Time            `json:"created_at"`
	ExpiresAt  time.Time            `json:"expires_at"`
	AcceptedBy string               `json:"accepted_by,omitempty"`
	AcceptedAt *time.Time           `json:"accepted_at,omitempty"`
}

// Expired reports whether the invitation's expiry has passed at the given
// instant, regardless of its stored status.
func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
