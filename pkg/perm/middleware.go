package perm

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/arborhq/arbor/pkg/middleware"
	"github.com/arborhq/arbor/pkg/tree"
)

// Middleware provides permission checking middleware for tree-scoped routes
type Middleware struct {
	service *Service
}

// NewMiddleware creates a new permission middleware
func NewMiddleware(service *Service) *Middleware {
	return &Middleware{service: service}
}

// RequirePermission creates middleware that requires a tree-scoped
// permission. The tree ID is read from the {treeID} route variable.
// Resource-scoped checks (a specific person, a specific media item) happen
// in the handlers, which know the resource ID.
func (pm *Middleware) RequirePermission(p Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := middleware.GetAuthContext(r)
			if authCtx == nil || authCtx.User == nil {
				writeDenied(w, http.StatusUnauthorized, "authentication required")
				return
			}

			treeID := mux.Vars(r)["treeID"]
			if treeID == "" {
				writeDenied(w, http.StatusBadRequest, "tree ID required")
				return
			}

			allowed, err := pm.service.CanAccess(r.Context(), authCtx.User.ID, treeID, p)
			if err != nil {
				writeDenied(w, http.StatusInternalServerError, "permission check failed")
				return
			}
			if !allowed {
				writeDenied(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireMinimumRole creates middleware that requires the caller's resolved
// role to rank at least min for the tree in the route.
func (pm *Middleware) RequireMinimumRole(min Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := middleware.GetAuthContext(r)
			if authCtx == nil || authCtx.User == nil {
				writeDenied(w, http.StatusUnauthorized, "authentication required")
				return
			}

			treeID := mux.Vars(r)["treeID"]
			if treeID == "" {
				writeDenied(w, http.StatusBadRequest, "tree ID required")
				return
			}

			ok, err := pm.service.HasMinimumRole(r.Context(), authCtx.User.ID, treeID, min)
			if errors.Is(err, tree.ErrNotFound) {
				writeDenied(w, http.StatusNotFound, "tree not found")
				return
			}
			if err != nil {
				writeDenied(w, http.StatusInternalServerError, "role check failed")
				return
			}
			if !ok {
				writeDenied(w, http.StatusForbidden, "insufficient role")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeDenied(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}`))
}
