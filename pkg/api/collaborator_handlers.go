package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/arborhq/arbor/pkg/audit"
	"github.com/arborhq/arbor/pkg/httputil"
	"github.com/arborhq/arbor/pkg/tree"
)

// AddCollaboratorRequest is the body of POST /trees/{treeID}/collaborators
type AddCollaboratorRequest struct {
	UserID string               `json:"user_id"`
	Level  tree.PermissionLevel `json:"level"`
}

// UpdateCollaboratorRequest is the body of PATCH /trees/{treeID}/collaborators/{userID}
type UpdateCollaboratorRequest struct {
	Level tree.PermissionLevel `json:"level"`
}

// listCollaborators handles GET /trees/{treeID}/collaborators
func (s *Server) listCollaborators(w http.ResponseWriter, r *http.Request) {
	collaborators, err := s.trees.ListCollaborators(r.Context(), mux.Vars(r)["treeID"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if collaborators == nil {
		collaborators = []tree.Collaborator{}
	}
	httputil.WriteSuccess(w, collaborators)
}

// addCollaborator handles POST /trees/{treeID}/collaborators
func (s *Server) addCollaborator(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req AddCollaboratorRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.UserID, "user_id") {
		return
	}
	if !req.Level.Valid() {
		httputil.WriteValidationError(w, "level must be admin, editor or viewer")
		return
	}

	treeID := mux.Vars(r)["treeID"]
	c := &tree.Collaborator{
		TreeID:  treeID,
		UserID:  req.UserID,
		Level:   req.Level,
		AddedBy: user.ID,
	}
	if err := s.trees.AddCollaborator(r.Context(), c); err != nil {
		writeStoreError(w, err)
		return
	}
	s.perms.InvalidateUser(req.UserID)

	s.record(r, &audit.Event{
		EventType:    audit.EventCollaboratorAdd,
		Status:       audit.EventStatusSuccess,
		UserID:       user.ID,
		TreeID:       treeID,
		ResourceType: "collaborator",
		ResourceID:   req.UserID,
		Metadata:     map[string]interface{}{"level": string(req.Level)},
	})
	httputil.WriteCreated(w, c)
}

// updateCollaborator handles PATCH /trees/{treeID}/collaborators/{userID}
func (s *Server) updateCollaborator(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req UpdateCollaboratorRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !req.Level.Valid() {
		httputil.WriteValidationError(w, "level must be admin, editor or viewer")
		return
	}

	vars := mux.Vars(r)
	treeID, targetID := vars["treeID"], vars["userID"]
	if err := s.trees.UpdateCollaborator(r.Context(), treeID, targetID, req.Level); err != nil {
		writeStoreError(w, err)
		return
	}
	s.perms.InvalidateUser(targetID)

	s.record(r, &audit.Event{
		EventType:    audit.EventCollaboratorUpdate,
		Status:       audit.EventStatusSuccess,
		UserID:       user.ID,
		TreeID:       treeID,
		ResourceType: "collaborator",
		ResourceID:   targetID,
		Metadata:     map[string]interface{}{"level": string(req.Level)},
	})
	httputil.WriteNoContent(w)
}

// removeCollaborator handles DELETE /trees/{treeID}/collaborators/{userID}
func (s *Server) removeCollaborator(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	treeID, targetID := vars["treeID"], vars["userID"]
	if err := s.trees.RemoveCollaborator(r.Context(), treeID, targetID); err != nil {
		writeStoreError(w, err)
		return
	}
	s.perms.InvalidateUser(targetID)

	s.record(r, &audit.Event{
		EventType:    audit.EventCollaboratorRemove,
		Status:       audit.EventStatusSuccess,
		UserID:       user.ID,
		TreeID:       treeID,
		ResourceType: "collaborator",
		ResourceID:   targetID,
	})
	httputil.WriteNoContent(w)
}
