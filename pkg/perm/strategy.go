package perm

import (
	"context"

	"github.com/arborhq/arbor/pkg/tree"
)

// Directory is the read-only view of the tree domain the strategies consult.
// *tree.Store satisfies it; tests substitute fakes.
type Directory interface {
	GetTree(ctx context.Context, treeID string) (*tree.Tree, error)
	GetPerson(ctx context.Context, treeID, personID string) (*tree.Person, error)
	CountRelationships(ctx context.Context, treeID, personID string) (int, error)
}

// Strategy is one pluggable rule evaluator in the permission chain.
//
// Evaluate must be total over valid inputs: a permission the strategy does
// not govern yields a Neutral result, never an error. Errors are reserved for
// repository failures and propagate to the caller untouched.
//
// Grants enumerates the permissions the strategy alone would grant for the
// context. It feeds capability listings, never authorization decisions.
type Strategy interface {
	Name() string
	Priority() int
	Evaluate(ctx context.Context, p Permission, pc Context) (Result, error)
	Grants(ctx context.Context, pc Context) ([]Permission, error)
}

// Restrictor is implemented by strategies that can veto a permission even
// after a higher-priority strategy granted it. The service keeps evaluating
// past a grant only through strategies whose Restricts reports true, which is
// what lets an owner-only grant bypass attribute restrictions.
type Restrictor interface {
	Restricts(p Permission) bool
}

// resolveRole derives the caller's role from a tree's ownership and
// collaborator records. Roles are computed here and nowhere else.
func resolveRole(t *tree.Tree, userID string) Role {
	if t.OwnerID == userID {
		return RoleOwner
	}
	if level, ok := t.CollaboratorLevel(userID); ok {
		switch level {
		case tree.LevelAdmin:
			return RoleAdmin
		case tree.LevelEditor:
			return RoleEditor
		case tree.LevelViewer:
			return RoleViewer
		}
	}
	if t.Public {
		return RoleGuest
	}
	return RoleNone
}
