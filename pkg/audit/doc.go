// Package audit records security-relevant events: authentication, permission
// decisions, tree and collaborator changes, invitations, and media activity.
//
// # Loggers
//
// Three Logger implementations cover the usual deployments:
//
//   - DBLogger writes to an audit_logs table and supports Search, CountDenials
//     and Prune. The schema is portable between postgres and sqlite3.
//   - FileLogger appends newline-delimited JSON with size-based rotation.
//   - MultiLogger fans out to several loggers, typically DB plus file.
//
// NopLogger discards everything and is used when auditing is disabled.
//
// # Usage
//
// Record an event:
//
//	auditLog.Log(ctx, &audit.Event{
//		EventType: audit.EventCollaboratorAdd,
//		Status:    audit.EventStatusSuccess,
//		UserID:    ownerID,
//		TreeID:    treeID,
//		Metadata:  map[string]interface{}{"collaborator": userID, "role": "editor"},
//	})
//
// Search the trail:
//
//	events, err := dbLogger.Search(ctx, audit.SearchFilter{
//		TreeID:     treeID,
//		EventTypes: []audit.EventType{audit.EventAccessDenied},
//		Limit:      50,
//	})
//
// # Permission decisions
//
// PermissionHook adapts a Logger into a perm.DecisionHook so every freshly
// resolved permission decision lands in the trail. Cache hits are not
// re-recorded.
package audit
