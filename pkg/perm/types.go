package perm

// Permission is an enumerated action tag. The set is closed; handlers and
// strategies only ever deal in these values.
type Permission string

const (
	PermViewTree            Permission = "view-tree"
	PermEditTree            Permission = "edit-tree"
	PermDeleteTree          Permission = "delete-tree"
	PermExportTree          Permission = "export-tree"
	PermManageCollaborators Permission = "manage-collaborators"

	PermAddPerson    Permission = "add-person"
	PermViewPerson   Permission = "view-person"
	PermEditPerson   Permission = "edit-person"
	PermDeletePerson Permission = "delete-person"

	PermAddRelationship    Permission = "add-relationship"
	PermEditRelationship   Permission = "edit-relationship"
	PermDeleteRelationship Permission = "delete-relationship"

	PermUploadMedia Permission = "upload-media"
	PermDeleteMedia Permission = "delete-media"
)

// AllPermissions returns every permission in a stable order
func AllPermissions() []Permission {
	return []Permission{
		PermViewTree, PermEditTree, PermDeleteTree, PermExportTree,
		PermManageCollaborators,
		PermAddPerson, PermViewPerson, PermEditPerson, PermDeletePerson,
		PermAddRelationship, PermEditRelationship, PermDeleteRelationship,
		PermUploadMedia, PermDeleteMedia,
	}
}

// Valid reports whether p is a known permission
func (p Permission) Valid() bool {
	for _, known := range AllPermissions() {
		if p == known {
			return true
		}
	}
	return false
}

// Role is an access level derived from tree ownership or collaborator
// records. Roles are never stored; they are resolved per check.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
	RoleGuest  Role = "guest"

	// RoleNone means the user has no relation to the tree at all.
	RoleNone Role = ""
)

// rolePermissions is the static role table. OWNER holds every permission;
// ADMIN everything except the owner-only pair; EDITOR can build the tree but
// not delete from it; VIEWER and GUEST are read-only, with export reserved
// for viewers and up.
var rolePermissions = map[Role][]Permission{
	RoleOwner: AllPermissions(),
	RoleAdmin: {
		PermViewTree, PermEditTree, PermExportTree,
		PermAddPerson, PermViewPerson, PermEditPerson, PermDeletePerson,
		PermAddRelationship, PermEditRelationship, PermDeleteRelationship,
		PermUploadMedia, PermDeleteMedia,
	},
	RoleEditor: {
		PermViewTree, PermEditTree, PermExportTree,
		PermAddPerson, PermViewPerson, PermEditPerson,
		PermAddRelationship, PermEditRelationship,
		PermUploadMedia,
	},
	RoleViewer: {
		PermViewTree, PermViewPerson, PermExportTree,
	},
	RoleGuest: {
		PermViewTree, PermViewPerson,
	},
}

// Permissions returns the permission set granted by the role alone
func (r Role) Permissions() []Permission {
	perms := rolePermissions[r]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// Grants reports whether the role's static table includes p
func (r Role) Grants(p Permission) bool {
	for _, perm := range rolePermissions[r] {
		if perm == p {
			return true
		}
	}
	return false
}

// ResourceType identifies the optional resource a check is scoped to
type ResourceType string

const (
	ResourceTree         ResourceType = "tree"
	ResourcePerson       ResourceType = "person"
	ResourceRelationship ResourceType = "relationship"
	ResourceMedia        ResourceType = "media"
)

// Context carries the inputs of one permission check. It is constructed per
// request and never persisted.
type Context struct {
	UserID       string
	TreeID       string
	ResourceType ResourceType
	ResourceID   string
}

// Result is a single strategy's opinion on a check. Allowed without a
// GrantedBy attribution is a neutral pass-through, not a grant; Denied is an
// explicit veto that stops the chain.
type Result struct {
	Allowed   bool   `json:"allowed"`
	Denied    bool   `json:"denied,omitempty"`
	Reason    string `json:"reason"`
	GrantedBy string `json:"granted_by,omitempty"`
}

// Grant builds an affirmative result attributed to the named strategy
func Grant(strategy, reason string) Result {
	return Result{Allowed: true, Reason: reason, GrantedBy: strategy}
}

// Deny builds an explicit veto
func Deny(reason string) Result {
	return Result{Denied: true, Reason: reason}
}

// Neutral builds a non-opinion: the strategy does not govern this permission
// and must not block other strategies.
func Neutral(reason string) Result {
	return Result{Allowed: true, Reason: reason}
}
