package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventTokenCreate EventType = "auth.token_create"
	EventTokenRevoke EventType = "auth.token_revoke"
	EventLogin       EventType = "auth.login"

	// Authorization events
	EventPermissionCheck EventType = "authz.permission_check"
	EventAccessDenied    EventType = "authz.access_denied"

	// Tree events
	EventTreeCreate EventType = "tree.create"
	EventTreeUpdate EventType = "tree.update"
	EventTreeDelete EventType = "tree.delete"

	// Collaborator events
	EventCollaboratorAdd    EventType = "collaborator.add"
	EventCollaboratorUpdate EventType = "collaborator.update"
	EventCollaboratorRemove EventType = "collaborator.remove"

	// Invitation events
	EventInvitationCreate EventType = "invitation.create"
	EventInvitationAccept EventType = "invitation.accept"
	EventInvitationRevoke EventType = "invitation.revoke"
	EventInvitationExpire EventType = "invitation.expire"

	// Record events
	EventPersonCreate       EventType = "person.create"
	EventPersonUpdate       EventType = "person.update"
	EventPersonDelete       EventType = "person.delete"
	EventRelationshipCreate EventType = "relationship.create"
	EventRelationshipUpdate EventType = "relationship.update"
	EventRelationshipDelete EventType = "relationship.delete"

	// Media events
	EventMediaUpload EventType = "media.upload"
	EventMediaDelete EventType = "media.delete"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event represents a single audit log entry
type Event struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor and scope
	UserID string `json:"user_id,omitempty"`
	TreeID string `json:"tree_id,omitempty"`

	// Resource information
	ResourceType string `json:"resource_type,omitempty"`
	ResourceID   string `json:"resource_id,omitempty"`

	// Request context
	RequestID string `json:"request_id,omitempty"`

	// Additional details
	Message  string                 `json:"message,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON converts the audit event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an audit event from JSON
func FromJSON(data []byte) (*Event, error) {
	var event Event
	err := json.Unmarshal(data, &event)
	return &event, err
}

// SearchFilter represents filters for searching audit logs
type SearchFilter struct {
	// Time range
	StartTime *time.Time
	EndTime   *time.Time

	// Actor and scope filters
	UserID string
	TreeID string

	// Event filters
	EventTypes []EventType
	Status     *EventStatus

	// Resource filters
	ResourceType string
	ResourceID   string

	// Pagination
	Limit  int
	Offset int
}
