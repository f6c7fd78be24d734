package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/arborhq/arbor/pkg/audit"
	"github.com/arborhq/arbor/pkg/invite"
	"github.com/arborhq/arbor/pkg/media"
	"github.com/arborhq/arbor/pkg/observability"
	"github.com/arborhq/arbor/pkg/perm"
	"github.com/arborhq/arbor/pkg/tree"
)

// Server is the HTTP API over the tree, permission, invitation and media
// services. Authentication happens in middleware wrapped around the server;
// handlers read the resolved user from the request context.
type Server struct {
	router *mux.Router

	trees   *tree.Store
	perms   *perm.Service
	permMW  *perm.Middleware
	invites *invite.Service
	media   *media.Service

	auditor     audit.Logger
	auditSearch *audit.DBLogger
	log         *observability.Logger
	metrics     *observability.Metrics

	maxUploadSize int64
}

// Config collects the server's collaborators. Trees and Perms are required;
// the rest may be nil, which disables the corresponding routes or side
// effects.
type Config struct {
	Trees   *tree.Store
	Perms   *perm.Service
	Invites *invite.Service
	Media   *media.Service

	Auditor     audit.Logger
	AuditSearch *audit.DBLogger
	Logger      *observability.Logger
	Metrics     *observability.Metrics

	MaxUploadSize int64
}

// NewServer creates the API server and wires its routes
func NewServer(cfg Config) *Server {
	s := &Server{
		router:        mux.NewRouter(),
		trees:         cfg.Trees,
		perms:         cfg.Perms,
		permMW:        perm.NewMiddleware(cfg.Perms),
		invites:       cfg.Invites,
		media:         cfg.Media,
		auditor:       cfg.Auditor,
		auditSearch:   cfg.AuditSearch,
		log:           cfg.Logger,
		metrics:       cfg.Metrics,
		maxUploadSize: cfg.MaxUploadSize,
	}
	if s.auditor == nil {
		s.auditor = audit.NopLogger{}
	}

	s.setupRoutes()
	return s
}

// guard wraps a handler in a tree-scoped permission check
func (s *Server) guard(p perm.Permission, h http.HandlerFunc) http.Handler {
	return s.permMW.RequirePermission(p)(h)
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Tree routes
	api.HandleFunc("/trees", s.createTree).Methods("POST")
	api.HandleFunc("/trees", s.listTrees).Methods("GET")

	t := api.PathPrefix("/trees/{treeID}").Subrouter()
	t.Handle("", s.guard(perm.PermViewTree, s.getTree)).Methods("GET")
	t.Handle("", s.guard(perm.PermEditTree, s.updateTree)).Methods("PATCH")
	t.HandleFunc("", s.deleteTree).Methods("DELETE")
	t.Handle("/permissions", s.guard(perm.PermViewTree, s.listPermissions)).Methods("GET")
	t.Handle("/export", s.guard(perm.PermExportTree, s.exportTree)).Methods("GET")

	// Collaborator routes
	t.Handle("/collaborators", s.guard(perm.PermViewTree, s.listCollaborators)).Methods("GET")
	t.Handle("/collaborators", s.guard(perm.PermManageCollaborators, s.addCollaborator)).Methods("POST")
	t.Handle("/collaborators/{userID}", s.guard(perm.PermManageCollaborators, s.updateCollaborator)).Methods("PATCH")
	t.Handle("/collaborators/{userID}", s.guard(perm.PermManageCollaborators, s.removeCollaborator)).Methods("DELETE")

	// Person routes
	t.Handle("/persons", s.guard(perm.PermAddPerson, s.createPerson)).Methods("POST")
	t.Handle("/persons", s.guard(perm.PermViewPerson, s.listPersons)).Methods("GET")
	t.Handle("/persons/{personID}", s.guard(perm.PermViewPerson, s.getPerson)).Methods("GET")
	t.Handle("/persons/{personID}", s.guard(perm.PermEditPerson, s.updatePerson)).Methods("PATCH")
	t.Handle("/persons/{personID}", s.guard(perm.PermDeletePerson, s.deletePerson)).Methods("DELETE")
	t.Handle("/persons/{personID}/relationships", s.guard(perm.PermViewPerson, s.listPersonRelationships)).Methods("GET")

	// Relationship routes
	t.Handle("/relationships", s.guard(perm.PermAddRelationship, s.createRelationship)).Methods("POST")
	t.Handle("/relationships", s.guard(perm.PermViewPerson, s.listRelationships)).Methods("GET")
	t.Handle("/relationships/{relationshipID}", s.guard(perm.PermEditRelationship, s.updateRelationship)).Methods("PATCH")
	t.Handle("/relationships/{relationshipID}", s.guard(perm.PermDeleteRelationship, s.deleteRelationship)).Methods("DELETE")

	// Invitation routes
	if s.invites != nil {
		t.Handle("/invitations", s.guard(perm.PermManageCollaborators, s.createInvitation)).Methods("POST")
		t.Handle("/invitations", s.guard(perm.PermManageCollaborators, s.listInvitations)).Methods("GET")
		t.Handle("/invitations/{invitationID}", s.guard(perm.PermManageCollaborators, s.revokeInvitation)).Methods("DELETE")
		api.HandleFunc("/invitations/accept", s.acceptInvitation).Methods("POST")
	}

	// Media routes
	if s.media != nil {
		t.Handle("/media", s.guard(perm.PermUploadMedia, s.uploadMedia)).Methods("POST")
		t.Handle("/media", s.guard(perm.PermViewPerson, s.listMedia)).Methods("GET")
		t.Handle("/media/{mediaID}", s.guard(perm.PermViewPerson, s.getMedia)).Methods("GET")
		t.Handle("/media/{mediaID}/content", s.guard(perm.PermViewPerson, s.downloadMedia)).Methods("GET")
		t.Handle("/media/{mediaID}", s.guard(perm.PermDeleteMedia, s.deleteMedia)).Methods("DELETE")
		t.Handle("/persons/{personID}/media", s.guard(perm.PermViewPerson, s.listPersonMedia)).Methods("GET")
	}

	// Audit routes, admin and up
	if s.auditSearch != nil {
		t.Handle("/audit", s.permMW.RequireMinimumRole(perm.RoleAdmin)(
			http.HandlerFunc(s.searchAuditLog))).Methods("GET")
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
