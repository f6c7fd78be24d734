// Package perm resolves what a user may do inside a family tree.
//
// # Overview
//
// Authorization runs through a chain of strategies ordered by priority:
//
//	owner-only      (priority 100) - grants the owner-only set to the tree
//	                                 owner and vetoes everyone else for it
//	attribute-based (priority 20)  - restriction rules over record state,
//	                                 never grants anything
//	role-based      (priority 10)  - the static role table, the base grant
//	                                 layer
//
// Aggregation is veto-wins: any explicit deny ends the check immediately.
// A strategy that does not govern a permission answers with a neutral
// result, which neither grants nor blocks. If the whole chain is neutral
// the check resolves to deny - absence of a grant is never access.
//
// After a grant the chain keeps running, but only through strategies that
// implement Restrictor for the permission. This is what lets an owner-only
// grant finish without attribute lookups while an ordinary role grant can
// still be vetoed by a later restriction rule.
//
// # Roles
//
// Roles are resolved per check from tree ownership and collaborator
// records, never stored:
//
//	owner  - tree owner, every permission
//	admin  - everything except delete-tree and manage-collaborators
//	editor - builds the tree, cannot delete records
//	viewer - read-only plus export
//	guest  - read-only on public trees
//
// # Caching
//
// Decisions are memoized in a bounded LRU keyed by user, tree, permission
// and resource. Mutations that change what a check would answer must
// invalidate: InvalidateTree after collaborator or visibility changes,
// InvalidateUser after membership changes, InvalidateAll as the blunt
// instrument.
//
// # Usage
//
//	svc, err := perm.NewService(treeStore,
//		perm.WithMetrics(metrics),
//		perm.WithLogger(logger),
//	)
//	allowed, err := svc.CanAccess(ctx, userID, treeID, perm.PermEditTree)
//
// Route-level enforcement:
//
//	pm := perm.NewMiddleware(svc)
//	r.Handle("/api/v1/trees/{treeID}", handler).Methods("PUT")
//	r.Use(pm.RequirePermission(perm.PermEditTree))
//
// # Related Packages
//
//   - pkg/tree: the Directory implementation strategies read from
//   - pkg/middleware: authentication that supplies the caller identity
package perm
