// Package api is the HTTP surface of the service: tree, person and
// relationship CRUD, collaborator and invitation management, media upload
// and download, the caller's capability listing and a tree export.
//
// Routes live under /api/v1. Tree-scoped routes are guarded by permission
// middleware that resolves the caller's access through the permission
// service; resource-scoped rules (a specific person, a specific media item)
// are enforced inside the handlers. Mutations that change what the
// permission strategies consult, collaborator records and tree visibility,
// invalidate the decision cache on their way out.
//
// Authentication is not wired here. The server binary wraps the Server in
// the auth middleware chain and handlers read the resolved user from the
// request context.
package api
