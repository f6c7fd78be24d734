package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/arborhq/arbor/pkg/audit"
	"github.com/arborhq/arbor/pkg/httputil"
)

// searchAuditLog handles GET /trees/{treeID}/audit. Results are always
// scoped to the tree in the route; admins cannot read other trees' trails.
func (s *Server) searchAuditLog(w http.ResponseWriter, r *http.Request) {
	filter := audit.SearchFilter{
		TreeID: mux.Vars(r)["treeID"],
	}

	q := r.URL.Query()
	if v := q.Get("start"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.WriteValidationError(w, "start must be RFC 3339")
			return
		}
		filter.StartTime = &ts
	}
	if v := q.Get("end"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httputil.WriteValidationError(w, "end must be RFC 3339")
			return
		}
		filter.EndTime = &ts
	}
	for _, et := range q["event_type"] {
		filter.EventTypes = append(filter.EventTypes, audit.EventType(et))
	}
	if v := q.Get("status"); v != "" {
		status := audit.EventStatus(v)
		filter.Status = &status
	}
	filter.UserID = q.Get("user_id")

	limit, err := httputil.ParseQueryInt(r, "limit", 100)
	if err != nil || limit < 1 || limit > 1000 {
		httputil.WriteValidationError(w, "limit must be between 1 and 1000")
		return
	}
	offset, err := httputil.ParseQueryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		httputil.WriteValidationError(w, "offset must be non-negative")
		return
	}
	filter.Limit = limit
	filter.Offset = offset

	events, err := s.auditSearch.Search(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	httputil.WriteSuccess(w, events)
}
