package invite

import (
	"context"
	"fmt"
	"time"

	"github.com/arborhq/arbor/pkg/audit"
	"github.com/arborhq/arbor/pkg/observability"
	"github.com/arborhq/arbor/pkg/tree"
)

// CollaboratorAdder grants a user access to a tree. *tree.Store satisfies it.
type CollaboratorAdder interface {
	AddCollaborator(ctx context.Context, c *tree.Collaborator) error
}

// CacheInvalidator drops cached permission decisions for a user.
// *perm.Service satisfies it.
type CacheInvalidator interface {
	InvalidateUser(userID string)
}

// Service manages the invitation lifecycle. Accepting an invitation adds the
// accepting user as a collaborator and invalidates their cached permissions
// so the new role takes effect immediately.
type Service struct {
	store   *Store
	trees   CollaboratorAdder
	perms   CacheInvalidator
	ttl     time.Duration
	metrics *observability.Metrics
	log     *observability.Logger
	auditor audit.Logger
}

// Option configures optional service collaborators
type Option func(*Service)

// WithMetrics attaches invitation lifecycle counters
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger attaches a structured logger
func WithLogger(l *observability.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithAuditLogger attaches an audit trail for sweep events
func WithAuditLogger(a audit.Logger) Option {
	return func(s *Service) { s.auditor = a }
}

// NewService creates an invitation service. New invitations expire ttl after
// creation.
func NewService(store *Store, trees CollaboratorAdder, perms CacheInvalidator, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		store:   store,
		trees:   trees,
		perms:   perms,
		ttl:     ttl,
		auditor: audit.NopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create issues a pending invitation for the given tree, email and level
func (s *Service) Create(ctx context.Context, inv *Invitation) error {
	if inv.TreeID == "" {
		return fmt.Errorf("tree id is required")
	}
	if inv.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !inv.Level.Valid() {
		return fmt.Errorf("invalid permission level %q", inv.Level)
	}

	if err := s.store.Create(ctx, inv, s.ttl); err != nil {
		return err
	}
	s.count("created")
	return nil
}

// Get retrieves an invitation by ID
func (s *Service) Get(ctx context.Context, id string) (*Invitation, error) {
	return s.store.Get(ctx, id)
}

// ListByTree lists a tree's invitations
func (s *Service) ListByTree(ctx context.Context, treeID string) ([]Invitation, error) {
	return s.store.ListByTree(ctx, treeID)
}

// Accept redeems an invitation token for the given user. On success the user
// is a collaborator at the invited level and their cached permission
// decisions are gone.
func (s *Service) Accept(ctx context.Context, token, userID string) (*Invitation, error) {
	inv, err := s.store.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv.Status != StatusPending {
		return nil, fmt.Errorf("invitation %s: %w", inv.ID, ErrNotPending)
	}

	now := time.Now().UTC()
	if inv.Expired(now) {
		// Lazy expiry: the sweep may not have run yet.
		if err := s.store.UpdateStatus(ctx, inv.ID, StatusPending, StatusExpired); err == nil {
			s.count("expired")
		}
		return nil, fmt.Errorf("invitation %s: %w", inv.ID, ErrExpired)
	}

	err = s.trees.AddCollaborator(ctx, &tree.Collaborator{
		TreeID:  inv.TreeID,
		UserID:  userID,
		Level:   inv.Level,
		AddedBy: inv.InvitedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add collaborator for invitation %s: %w", inv.ID, err)
	}

	if err := s.store.MarkAccepted(ctx, inv.ID, userID, now); err != nil {
		return nil, err
	}
	inv.Status = StatusAccepted
	inv.AcceptedBy = userID
	inv.AcceptedAt = &now

	s.perms.InvalidateUser(userID)
	s.count("accepted")
	return inv, nil
}

// Revoke cancels a pending invitation
func (s *Service) Revoke(ctx context.Context, id string) error {
	if err := s.store.UpdateStatus(ctx, id, StatusPending, StatusRevoked); err != nil {
		return err
	}
	s.count("revoked")
	return nil
}

// SweepExpired marks overdue pending invitations as expired, returning how
// many were swept. The server runs this on a cron schedule.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.store.ExpirePending(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	if s.metrics != nil {
		s.metrics.InvitationsTotal.WithLabelValues("expired").Add(float64(n))
	}
	if s.log != nil {
		s.log.WithField("count", n).Info("expired overdue invitations")
	}
	if err := s.auditor.Log(ctx, &audit.Event{
		EventType: audit.EventInvitationExpire,
		Status:    audit.EventStatusSuccess,
		Message:   "invitation sweep",
		Metadata:  map[string]interface{}{"count": n},
	}); err != nil && s.log != nil {
		s.log.WithError(err).Warn("failed to record invitation sweep audit event")
	}
	return n, nil
}

func (s *Service) count(event string) {
	if s.metrics != nil {
		s.metrics.InvitationsTotal.WithLabelValues(event).Inc()
	}
}
