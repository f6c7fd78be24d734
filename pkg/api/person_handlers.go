package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/arborhq/arbor/pkg/audit"
	"github.com/arborhq/arbor/pkg/httputil"
	"github.com/arborhq/arbor/pkg/perm"
	"github.com/arborhq/arbor/pkg/tree"
)

// CreatePersonRequest is the body of POST /trees/{treeID}/persons
type CreatePersonRequest struct {
	GivenName  string     `json:"given_name"`
	FamilyName string     `json:"family_name,omitempty"`
	Gender     string     `json:"gender,omitempty"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	DeathDate  *time.Time `json:"death_date,omitempty"`
	BirthPlace string     `json:"birth_place,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// UpdatePersonRequest is the body of PATCH /trees/{treeID}/persons/{personID}.
// Nil fields are left unchanged.
type UpdatePersonRequest struct {
	GivenName  *string    `json:"given_name,omitempty"`
	FamilyName *string    `json:"family_name,omitempty"`
	Gender     *string    `json:"gender,omitempty"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	DeathDate  *time.Time `json:"death_date,omitempty"`
	BirthPlace *string    `json:"birth_place,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
}

// createPerson handles POST /trees/{treeID}/persons
func (s *Server) createPerson(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req CreatePersonRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.GivenName, "given_name") {
		return
	}
	if req.BirthDate != nil && req.DeathDate != nil && req.DeathDate.Before(*req.BirthDate) {
		httputil.WriteValidationError(w, "death_date cannot precede birth_date")
		return
	}

	treeID := mux.Vars(r)["treeID"]
	p := &tree.Person{
		TreeID:     treeID,
		GivenName:  req.GivenName,
		FamilyName: req.FamilyName,
		Gender:     tree.Gender(req.Gender),
		BirthDate:  req.BirthDate,
		DeathDate:  req.DeathDate,
		BirthPlace: req.BirthPlace,
		Notes:      req.Notes,
	}
	if err := s.trees.CreatePerson(r.Context(), p); err != nil {
		writeStoreError(w, err)
		return
	}

	s.record(r, &audit.Event{
		EventType:    audit.EventPersonCreate,
		Status:       audit.EventStatusSuccess,
		UserID:       user.ID,
		TreeID:       treeID,
		ResourceType: "person",
		ResourceID:   p.ID,
	})
	httputil.WriteCreated(w, p)
}

// listPersons handles GET /trees/{treeID}/persons. Persons the caller may
// not view individually (living persons on a public tree, for
// non-collaborators) are omitted from the listing.
func (s *Server) listPersons(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	treeID := mux.Vars(r)["treeID"]
	persons, err := s.trees.ListPersons(r.Context(), treeID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	visible := make([]tree.Person, 0, len(persons))
	for _, p := range persons {
		allowed, err := s.perms.CanAccessResource(r.Context(), user.ID, treeID, perm.PermViewPerson, perm.ResourcePerson, p.ID)
		if err != nil {
			httputil.WriteInternalError(w, err)
			return
		}
		if allowed {
			visible = append(visible, p)
		}
	}
	httputil.WriteSuccess(w, visible)
}

// getPerson handles GET /trees/{treeID}/persons/{personID}
func (s *Server) getPerson(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	treeID, personID := vars["treeID"], vars["personID"]
	if !s.personAccess(w, r, user.ID, perm.PermViewPerson, treeID, personID) {
		return
	}

	p, err := s.trees.GetPerson(r.Context(), treeID, personID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, p)
}

// updatePerson handles PATCH /trees/{treeID}/persons/{personID}
func (s *Server) updatePerson(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	var req UpdatePersonRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	vars := mux.Vars(r)
	treeID, personID := vars["treeID"], vars["personID"]
	p, err := s.trees.GetPerson(r.Context(), treeID, personID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !s.personAccess(w, r, user.ID, perm.PermEditPerson, treeID, personID) {
		return
	}

	if req.GivenName != nil {
		if !httputil.RequireNonEmpty(w, *req.GivenName, "given_name") {
			return
		}
		p.GivenName = *req.GivenName
	}
	if req.FamilyName != nil {
		p.FamilyName = *req.FamilyName
	}
	if req.Gender != nil {
		p.Gender = tree.Gender(*req.Gender)
	}
	if req.BirthDate != nil {
		p.BirthDate = req.BirthDate
	}
	if req.DeathDate != nil {
		p.DeathDate = req.DeathDate
	}
	if req.BirthPlace != nil {
		p.BirthPlace = *req.BirthPlace
	}
	if req.Notes != nil {
		p.Notes = *req.Notes
	}
	if p.BirthDate != nil && p.DeathDate != nil && p.DeathDate.Before(*p.BirthDate) {
		httputil.WriteValidationError(w, "death_date cannot precede birth_date")
		return
	}

	if err := s.trees.UpdatePerson(r.Context(), p); err != nil {
		writeStoreError(w, err)
		return
	}
	if req.DeathDate != nil {
		// The death date feeds the attribute restrictions, so cached
		// decisions for this tree are stale.
		s.perms.InvalidateTree(treeID)
	}

	s.record(r, &audit.Event{
		EventType:    audit.EventPersonUpdate,
		Status:       audit.EventStatusSuccess,
		UserID:       user.ID,
		TreeID:       treeID,
		ResourceType: "person",
		ResourceID:   personID,
	})
	httputil.WriteSuccess(w, p)
}

// deletePerson handles DELETE /trees/{treeID}/persons/{personID}. A person
// with recorded relationships cannot be deleted; the schema cascade on the
// edges is only a backstop.
func (s *Server) deletePerson(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	treeID, personID := vars["treeID"], vars["personID"]
	if !s.personAccess(w, r, user.ID, perm.PermDeletePerson, treeID, personID) {
		return
	}
	if err := s.trees.DeletePerson(r.Context(), treeID, personID); err != nil {
		writeStoreError(w, err)
		return
	}
	s.perms.InvalidateTree(treeID)

	s.record(r, &audit.Event{
		EventType:    audit.EventPersonDelete,
		Status:       audit.EventStatusSuccess,
		UserID:       user.ID,
		TreeID:       treeID,
		ResourceType: "person",
		ResourceID:   personID,
	})
	httputil.WriteNoContent(w)
}
