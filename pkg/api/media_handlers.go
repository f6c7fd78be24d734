package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/arborhq/arbor/pkg/audit"
	"github.com/arborhq/arbor/pkg/httputil"
	"github.com/arborhq/arbor/pkg/media"
	"github.com/arborhq/arbor/pkg/perm"
)

// uploadMedia handles POST /trees/{treeID}/media as a multipart upload with
// a "file" part and an optional "person_id" field.
func (s *Server) uploadMedia(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	if s.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "multipart upload with a file part is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	treeID := mux.Vars(r)["treeID"]
	m := &media.Media{
		TreeID:      treeID,
		PersonID:    r.FormValue("person_id"),
		FileName:    header.Filename,
		ContentType: contentType,
		UploadedBy:  user.ID,
	}
	if err := s.media.Upload(r.Context(), m, file); err != nil {
		writeStoreError(w, err)
		return
	}

	s.record(r, &audit.Event{
		EventType:    audit.EventMediaUpload,
		Status:       audit.EventStatusSuccess,
		UserID:       user.ID,
		TreeID:       treeID,
		ResourceType: "media",
		ResourceID:   m.ID,
		Message:      m.FileName,
	})
	httputil.WriteCreated(w, m)
}

// listMedia handles GET /trees/{treeID}/media
func (s *Server) listMedia(w http.ResponseWriter, r *http.Request) {
	records, err := s.media.ListByTree(r.Context(), mux.Vars(r)["treeID"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if records == nil {
		records = []media.Media{}
	}
	httputil.WriteSuccess(w, records)
}

// listPersonMedia handles GET /trees/{treeID}/persons/{personID}/media
func (s *Server) listPersonMedia(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	if !s.personAccess(w, r, user.ID, perm.PermViewPerson, vars["treeID"], vars["personID"]) {
		return
	}
	records, err := s.media.ListByPerson(r.Context(), vars["treeID"], vars["personID"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if records == nil {
		records = []media.Media{}
	}
	httputil.WriteSuccess(w, records)
}

// getMedia handles GET /trees/{treeID}/media/{mediaID}
func (s *Server) getMedia(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	m, err := s.media.Get(r.Context(), vars["treeID"], vars["mediaID"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, m)
}

// downloadMedia handles GET /trees/{treeID}/media/{mediaID}/content
func (s *Server) downloadMedia(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	m, rc, err := s.media.Open(r.Context(), vars["treeID"], vars["mediaID"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", m.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(m.Size, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+m.FileName+`"`)
	io.Copy(w, rc)
}

// deleteMedia handles DELETE /trees/{treeID}/media/{mediaID}
func (s *Server) deleteMedia(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	treeID, mediaID := vars["treeID"], vars["mediaID"]
	if err := s.media.Delete(r.Context(), treeID, mediaID); err != nil {
		writeStoreError(w, err)
		return
	}

	s.record(r, &audit.Event{
		EventType:    audit.EventMediaDelete,
		Status:       audit.EventStatusSuccess,
		UserID:       user.ID,
		TreeID:       treeID,
		ResourceType: "media",
		ResourceID:   mediaID,
	})
	httputil.WriteNoContent(w)
}
