package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/arborhq/arbor/pkg/audit"
	"github.com/arborhq/arbor/pkg/httputil"
	"github.com/arborhq/arbor/pkg/perm"
	"github.com/arborhq/arbor/pkg/tree"
)

// CreateTreeRequest is the body of POST /trees
type CreateTreeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Public      bool   `json:"public,omitempty"`
}

// UpdateTreeRequest is the body of PATCH /trees/{treeID}. Nil fields are
// left unchanged.
type UpdateTreeRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Public      *bool   `json:"public,omitempty"`
}

// createTree handles POST /trees
func (s *Server) createTree(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req CreateTreeRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Name, "name") {
		return
	}

	t := &tree.Tree{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     user.ID,
		Public:      req.Public,
	}
	if err := s.trees.CreateTree(r.Context(), t); err != nil {
		writeStoreError(w, err)
		return
	}

	s.record(r, &audit.Event{
		EventType: audit.EventTreeCreate,
		Status:    audit.EventStatusSuccess,
		UserID:    user.ID,
		TreeID:    t.ID,
		Message:   t.Name,
	})
	httputil.WriteCreated(w, t)
}

// listTrees handles GET /trees
func (s *Server) listTrees(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	trees, err := s.trees.ListTrees(r.Context(), user.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if trees == nil {
		trees = []tree.Tree{}
	}
	httputil.WriteSuccess(w, trees)
}

// getTree handles GET /trees/{treeID}
func (s *Server) getTree(w http.ResponseWriter, r *http.Request) {
	t, err := s.trees.GetTree(r.Context(), mux.Vars(r)["treeID"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, t)
}

// updateTree handles PATCH /trees/{treeID}
func (s *Server) updateTree(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req UpdateTreeRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	treeID := mux.Vars(r)["treeID"]
	t, err := s.trees.GetTree(r.Context(), treeID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	visibilityChanged := false
	if req.Name != nil {
		if !httputil.RequireNonEmpty(w, *req.Name, "name") {
			return
		}
		t.Name = *req.Name
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Public != nil && *req.Public != t.Public {
		t.Public = *req.Public
		visibilityChanged = true
	}

	if err := s.trees.UpdateTree(r.Context(), t); err != nil {
		writeStoreError(w, err)
		return
	}

	// Visibility feeds the public-tree grant, so cached decisions for this
	// tree are stale across all users.
	if visibilityChanged {
		s.perms.InvalidateTree(treeID)
	}

	s.record(r, &audit.Event{
		EventType: audit.EventTreeUpdate,
		Status:    audit.EventStatusSuccess,
		UserID:    user.ID,
		TreeID:    treeID,
	})
	httputil.WriteSuccess(w, t)
}

// deleteTree handles DELETE /trees/{treeID}. The owner-only check happens
// here rather than in route middleware so the denial can be audited with
// the caller attached.
func (s *Server) deleteTree(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	treeID := mux.Vars(r)["treeID"]

	allowed, err := s.perms.CanDeleteTree(r.Context(), user.ID, treeID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !allowed {
		s.record(r, &audit.Event{
			EventType: audit.EventTreeDelete,
			Status:    audit.EventStatusDenied,
			UserID:    user.ID,
			TreeID:    treeID,
		})
		httputil.WriteForbidden(w, "only the owner may delete a tree")
		return
	}

	if err := s.trees.DeleteTree(r.Context(), treeID); err != nil {
		writeStoreError(w, err)
		return
	}
	s.perms.InvalidateTree(treeID)

	s.record(r, &audit.Event{
		EventType: audit.EventTreeDelete,
		Status:    audit.EventStatusSuccess,
		UserID:    user.ID,
		TreeID:    treeID,
	})
	httputil.WriteNoContent(w)
}

// PermissionsResponse is the body of GET /trees/{treeID}/permissions
type PermissionsResponse struct {
	Role        perm.Role         `json:"role"`
	Permissions []perm.Permission `json:"permissions"`
}

// listPermissions handles GET /trees/{treeID}/permissions, reporting the
// caller's effective capabilities for the tree.
func (s *Server) listPermissions(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}
	treeID := mux.Vars(r)["treeID"]

	role, err := s.perms.UserRole(r.Context(), user.ID, treeID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	perms, err := s.perms.GetPermissions(r.Context(), user.ID, treeID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if perms == nil {
		perms = []perm.Permission{}
	}
	httputil.WriteSuccess(w, PermissionsResponse{Role: role, Permissions: perms})
}

// TreeExport is the body of GET /trees/{treeID}/export
type TreeExport struct {
	Tree          *tree.Tree          `json:"tree"`
	Persons       []tree.Person       `json:"persons"`
	Relationships []tree.Relationship `json:"relationships"`
}

// exportTree handles GET /trees/{treeID}/export
func (s *Server) exportTree(w http.ResponseWriter, r *http.Request) {
	treeID := mux.Vars(r)["treeID"]

	t, err := s.trees.GetTree(r.Context(), treeID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	persons, err := s.trees.ListPersons(r.Context(), treeID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	relationships, err := s.trees.ListRelationships(r.Context(), treeID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if persons == nil {
		persons = []tree.Person{}
	}
	if relationships == nil {
		relationships = []tree.Relationship{}
	}

	w.Header().Set("Content-Disposition", `attachment; filename="tree-export.json"`)
	httputil.WriteSuccess(w, TreeExport{Tree: t, Persons: persons, Relationships: relationships})
}
