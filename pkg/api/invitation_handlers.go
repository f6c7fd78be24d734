package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/arborhq/arbor/pkg/audit"
	"github.com/arborhq/arbor/pkg/httputil"
	"github.com/arborhq/arbor/pkg/invite"
	"github.com/arborhq/arbor/pkg/tree"
)

// CreateInvitationRequest is the body of POST /trees/{treeID}/invitations
type CreateInvitationRequest struct {
	Email string               `json:"email"`
	Level tree.PermissionLevel `json:"level"`
}

// AcceptInvitationRequest is the body of POST /invitations/accept
type AcceptInvitationRequest struct {
	Token string `json:"token"`
}

// createInvitation handles POST /trees/{treeID}/invitations
func (s *Server) createInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req CreateInvitationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Email, "email") {
		return
	}
	if !req.Level.Valid() {
		httputil.WriteValidationError(w, "level must be admin, editor or viewer")
		return
	}

	treeID := mux.Vars(r)["treeID"]
	inv := &invite.Invitation{
		TreeID:    treeID,
		Email:     req.Email,
		Level:     req.Level,
		InvitedBy: user.ID,
	}
	if err := s.invites.Create(r.Context(), inv); err != nil {
		writeStoreError(w, err)
		return
	}

	s.record(r, &audit.Event{
		EventType:    audit.EventInvitationCreate,
		Status:       audit.EventStatusSuccess,
		UserID:       user.ID,
		TreeID:       treeID,
		ResourceType: "invitation",
		ResourceID:   inv.ID,
		Metadata:     map[string]interface{}{"level": string(req.Level)},
	})
	// The token is in the response exactly once, for the inviter to deliver.
	httputil.WriteCreated(w, inv)
}

// listInvitations handles GET /trees/{treeID}/invitations. Tokens are
// omitted from listings.
func (s *Server) listInvitations(w http.ResponseWriter, r *http.Request) {
	invitations, err := s.invites.ListByTree(r.Context(), mux.Vars(r)["treeID"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if invitations == nil {
		invitations = []invite.Invitation{}
	}
	for i := range invitations {
		invitations[i].Token = ""
	}
	httputil.WriteSuccess(w, invitations)
}

// revokeInvitation handles DELETE /trees/{treeID}/invitations/{invitationID}
func (s *Server) revokeInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	treeID, invitationID := vars["treeID"], vars["invitationID"]
	if err := s.invites.Revoke(r.Context(), invitationID); err != nil {
		writeStoreError(w, err)
		return
	}

	s.record(r, &audit.Event{
		EventType:    audit.EventInvitationRevoke,
		Status:       audit.EventStatusSuccess,
		UserID:       user.ID,
		TreeID:       treeID,
		ResourceType: "invitation",
		ResourceID:   invitationID,
	})
	httputil.WriteNoContent(w)
}

// acceptInvitation handles POST /invitations/accept. Any authenticated user
// holding a valid token may redeem it.
func (s *Server) acceptInvitation(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req AcceptInvitationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Token, "token") {
		return
	}

	inv, err := s.invites.Accept(r.Context(), req.Token, user.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	s.record(r, &audit.Event{
		EventType:    audit.EventInvitationAccept,
		Status:       audit.EventStatusSuccess,
		UserID:       user.ID,
		TreeID:       inv.TreeID,
		ResourceType: "invitation",
		ResourceID:   inv.ID,
		Metadata:     map[string]interface{}{"level": string(inv.Level)},
	})
	inv.Token = ""
	httputil.WriteSuccess(w, inv)
}
