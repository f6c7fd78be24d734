package audit

import (
	"context"

	"github.com/arborhq/arbor/pkg/contextkeys"
	"github.com/arborhq/arbor/pkg/observability"
	"github.com/arborhq/arbor/pkg/perm"
)

// PermissionHook adapts an audit logger into a permission decision hook.
// Every freshly resolved decision becomes an audit event; denials are
// recorded as access_denied. Logging failures never block the permission
// check, they go to the service log instead.
func PermissionHook(logger Logger, log *observability.Logger) perm.DecisionHook {
	return func(ctx context.Context, pc perm.Context, p perm.Permission, res perm.Result) {
		eventType := EventPermissionCheck
		status := EventStatusSuccess
		if res.Denied || !res.Allowed {
			eventType = EventAccessDenied
			status = EventStatusDenied
		}

		event := &Event{
			EventType:    eventType,
			Status:       status,
			UserID:       pc.UserID,
			TreeID:       pc.TreeID,
			ResourceType: string(pc.ResourceType),
			ResourceID:   pc.ResourceID,
			RequestID:    contextkeys.GetRequestID(ctx),
			Message:      res.Reason,
			Metadata: map[string]interface{}{
				"permission": string(p),
			},
		}
		if res.GrantedBy != "" {
			event.Metadata["granted_by"] = res.GrantedBy
		}

		if err := logger.Log(ctx, event); err != nil && log != nil {
			log.WithError(err).Warn("failed to record permission audit event")
		}
	}
}
