package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/arborhq/arbor/pkg/audit"
	"github.com/arborhq/arbor/pkg/httputil"
	"github.com/arborhq/arbor/pkg/perm"
	"github.com/arborhq/arbor/pkg/tree"
)

// CreateRelationshipRequest is the body of POST /trees/{treeID}/relationships.
// Type accepts any of the directional or gendered aliases; the stored edge is
// always canonical.
type CreateRelationshipRequest struct {
	FromID string `json:"from_id"`
	ToID   string `json:"to_id"`
	Type   string `json:"type"`
	Notes  string `json:"notes,omitempty"`
}

// createRelationship handles POST /trees/{treeID}/relationships
func (s *Server) createRelationship(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req CreateRelationshipRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	treeID := mux.Vars(r)["treeID"]
	ctx := r.Context()

	from, to, relType, err := tree.Normalize(req.Type, req.FromID, req.ToID)
	if err != nil {
		reason := "invalid-type"
		if strings.Contains(err.Error(), "themselves") {
			reason = "self-relation"
		} else if strings.Contains(err.Error(), "required") {
			reason = "missing-person"
		}
		s.countRelationshipRejection(reason)
		httputil.WriteValidationError(w, err.Error())
		return
	}

	// Both endpoints must exist in this tree.
	for _, personID := range []string{from, to} {
		if _, err := s.trees.GetPerson(ctx, treeID, personID); err != nil {
			if errors.Is(err, tree.ErrNotFound) {
				s.countRelationshipRejection("missing-person")
				httputil.WriteValidationError(w, "person "+personID+" is not in this tree")
				return
			}
			writeStoreError(w, err)
			return
		}
	}

	exists, err := s.trees.RelationshipExists(ctx, treeID, from, to, relType)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if exists {
		s.countRelationshipRejection("duplicate")
		httputil.WriteConflict(w, "relationship already recorded")
		return
	}

	if relType.ParentLike() {
		existing, err := s.trees.ListRelationships(ctx, treeID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if tree.CreatesAncestryCycle(existing, from, to) {
			s.countRelationshipRejection("ancestry-cycle")
			httputil.WriteConflict(w, "relationship would make a person their own ancestor")
			return
		}
	}

	rel := &tree.Relationship{
		TreeID: treeID,
		FromID: from,
		ToID:   to,
		Type:   relType,
		Notes:  req.Notes,
	}
	if err := s.trees.CreateRelationship(ctx, rel); err != nil {
		writeStoreError(w, err)
		return
	}
	// Relationship counts feed the attribute restrictions.
	s.perms.InvalidateTree(treeID)

	s.record(r, &audit.Event{
		EventType:    audit.EventRelationshipCreate,
		Status:       audit.EventStatusSuccess,
		UserID:       user.ID,
		TreeID:       treeID,
		ResourceType: "relationship",
		ResourceID:   rel.ID,
		Metadata:     map[string]interface{}{"type": string(relType)},
	})
	httputil.WriteCreated(w, rel)
}

// listRelationships handles GET /trees/{treeID}/relationships
func (s *Server) listRelationships(w http.ResponseWriter, r *http.Request) {
	relationships, err := s.trees.ListRelationships(r.Context(), mux.Vars(r)["treeID"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if relationships == nil {
		relationships = []tree.Relationship{}
	}
	httputil.WriteSuccess(w, relationships)
}

// listPersonRelationships handles GET /trees/{treeID}/persons/{personID}/relationships
func (s *Server) listPersonRelationships(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	if !s.personAccess(w, r, user.ID, perm.PermViewPerson, vars["treeID"], vars["personID"]) {
		return
	}
	relationships, err := s.trees.ListRelationshipsForPerson(r.Context(), vars["treeID"], vars["personID"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if relationships == nil {
		relationships = []tree.Relationship{}
	}
	httputil.WriteSuccess(w, relationships)
}

// UpdateRelationshipRequest is the body of
// PATCH /trees/{treeID}/relationships/{relationshipID}. Only notes are
// mutable; changing the endpoints or type is a delete plus a create so the
// duplicate and cycle checks run again.
type UpdateRelationshipRequest struct {
	Notes *string `json:"notes,omitempty"`
}

// updateRelationship handles PATCH /trees/{treeID}/relationships/{relationshipID}
func (s *Server) updateRelationship(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req UpdateRelationshipRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	vars := mux.Vars(r)
	treeID, relID := vars["treeID"], vars["relationshipID"]
	rel, err := s.trees.GetRelationship(r.Context(), treeID, relID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if req.Notes != nil {
		rel.Notes = *req.Notes
	}
	if err := s.trees.UpdateRelationship(r.Context(), rel); err != nil {
		writeStoreError(w, err)
		return
	}

	s.record(r, &audit.Event{
		EventType:    audit.EventRelationshipUpdate,
		Status:       audit.EventStatusSuccess,
		UserID:       user.ID,
		TreeID:       treeID,
		ResourceType: "relationship",
		ResourceID:   relID,
	})
	httputil.WriteSuccess(w, rel)
}

// deleteRelationship handles DELETE /trees/{treeID}/relationships/{relationshipID}
func (s *Server) deleteRelationship(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	treeID, relID := vars["treeID"], vars["relationshipID"]
	if err := s.trees.DeleteRelationship(r.Context(), treeID, relID); err != nil {
		writeStoreError(w, err)
		return
	}
	s.perms.InvalidateTree(treeID)

	s.record(r, &audit.Event{
		EventType:    audit.EventRelationshipDelete,
		Status:       audit.EventStatusSuccess,
		UserID:       user.ID,
		TreeID:       treeID,
		ResourceType: "relationship",
		ResourceID:   relID,
	})
	httputil.WriteNoContent(w)
}
