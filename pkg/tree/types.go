package tree

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when the requested record does not exist.
var ErrNotFound = errors.New("not found")

// PermissionLevel is the access level stored on a collaborator record.
// Roles are derived from it at permission-check time, never stored directly.
type PermissionLevel string

const (
	LevelAdmin  PermissionLevel = "admin"
	LevelEditor PermissionLevel = "editor"
	LevelViewer PermissionLevel = "viewer"
)

// Valid reports whether l is a known permission level.
func (l PermissionLevel) Valid() bool {
	switch l {
	case LevelAdmin, LevelEditor, LevelViewer:
		return true
	}
	return false
}

// Tree represents a family tree owned by a single user
type Tree struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	OwnerID       string         `json:"owner_id"`
	Public        bool           `json:"public"`
	Collaborators []Collaborator `json:"collaborators,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// CollaboratorLevel returns the permission level of userID on the tree, if
// that user is a collaborator.
func (t *Tree) CollaboratorLevel(userID string) (PermissionLevel, bool) {
	for _, c := range t.Collaborators {
		if c.UserID == userID {
			return c.Level, true
		}
	}
	return "", false
}

// Collaborator represents a user granted access to a tree
type Collaborator struct {
	TreeID  string          `json:"tree_id"`
	UserID  string          `json:"user_id"`
	Level   PermissionLevel `json:"level"`
	AddedBy string          `json:"added_by,omitempty"`
	AddedAt time.Time       `json:"added_at"`
}

// Gender is a free-form but conventionally short tag ("male", "female",
// "other", or empty when unknown).
type Gender string

// Person represents an individual recorded in a tree
type Person struct {
	ID         string     `json:"id"`
	TreeID     string     `json:"tree_id"`
	GivenName  string     `json:"given_name"`
	FamilyName string     `json:"family_name,omitempty"`
	Gender     Gender     `json:"gender,omitempty"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	DeathDate  *time.Time `json:"death_date,omitempty"`
	BirthPlace string     `json:"birth_place,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Living reports whether the person has no recorded date of death.
func (p *Person) Living() bool {
	return p.DeathDate == nil
}

// Relationship is a canonical directed edge between two persons in the same
// tree. Directional or gendered inputs ("father", "step-child", "wife") are
// normalized into one of the canonical types before storage; see Normalize.
type Relationship struct {
	ID        string           `json:"id"`
	TreeID    string           `json:"tree_id"`
	FromID    string           `json:"from_id"`
	ToID      string           `json:"to_id"`
	Type      RelationshipType `json:"type"`
	Notes     string           `json:"notes,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
