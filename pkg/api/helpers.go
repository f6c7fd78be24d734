package api

import (
	"errors"
	"net/http"

	"github.com/arborhq/arbor/pkg/audit"
	"github.com/arborhq/arbor/pkg/auth"
	"github.com/arborhq/arbor/pkg/contextkeys"
	"github.com/arborhq/arbor/pkg/httputil"
	"github.com/arborhq/arbor/pkg/invite"
	"github.com/arborhq/arbor/pkg/media"
	"github.com/arborhq/arbor/pkg/middleware"
	"github.com/arborhq/arbor/pkg/perm"
	"github.com/arborhq/arbor/pkg/tree"
)

// currentUser resolves the authenticated user from the request context,
// writing a 401 when there is none.
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil || authCtx.User == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return nil, false
	}
	return authCtx.User, true
}

// writeStoreError maps store errors onto HTTP responses
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tree.ErrNotFound),
		errors.Is(err, invite.ErrNotFound),
		errors.Is(err, media.ErrNotFound):
		httputil.WriteNotFoundError(w, err.Error())
	case errors.Is(err, invite.ErrExpired),
		errors.Is(err, invite.ErrNotPending):
		httputil.WriteConflict(w, err.Error())
	default:
		httputil.WriteInternalError(w, err)
	}
}

// record writes an audit event, logging rather than propagating failures so
// a broken audit sink never fails the request that triggered it.
func (s *Server) record(r *http.Request, event *audit.Event) {
	event.RequestID = contextkeys.GetRequestID(r.Context())
	if err := s.auditor.Log(r.Context(), event); err != nil && s.log != nil {
		s.log.WithError(err).Warn("failed to record audit event")
	}
}

// personAccess runs the person-scoped permission check behind the route
// guard. The guard establishes tree-level access; this layers on the
// attribute restrictions that depend on the specific person (deceased,
// recorded relationships, living on a public tree). Writes the denial and
// returns false when the caller may not proceed.
func (s *Server) personAccess(w http.ResponseWriter, r *http.Request, userID string, p perm.Permission, treeID, personID string) bool {
	allowed, err := s.perms.CanAccessResource(r.Context(), userID, treeID, p, perm.ResourcePerson, personID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return false
	}
	if !allowed {
		httputil.WriteForbidden(w, "insufficient permissions")
		return false
	}
	return true
}

func (s *Server) countRelationshipRejection(reason string) {
	if s.metrics != nil {
		s.metrics.RelationshipRejectionsTotal.WithLabelValues(reason).Inc()
	}
}
