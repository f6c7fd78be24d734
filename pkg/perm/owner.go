package perm

import (
	"context"
	"errors"

	"github.com/arborhq/arbor/pkg/tree"
)

// OwnerOnlyName is the stable name used for grant attribution and logging
const OwnerOnlyName = "owner-only"

// ownerOnlyPermissions are never delegable via collaborator roles
var ownerOnlyPermissions = map[Permission]bool{
	PermDeleteTree:          true,
	PermManageCollaborators: true,
}

// OwnerOnlyPermissions returns the owner-only set in stable order
func OwnerOnlyPermissions() []Permission {
	return []Permission{PermDeleteTree, PermManageCollaborators}
}

// OwnerOnlyStrategy grants the tree owner a fixed set of permissions and
// explicitly vetoes everyone else for those same permissions. It has the
// highest priority in the chain so a non-owner is stopped before any other
// strategy runs a lookup.
type OwnerOnlyStrategy struct {
	dir Directory
}

// NewOwnerOnlyStrategy creates the owner-only strategy
func NewOwnerOnlyStrategy(dir Directory) *OwnerOnlyStrategy {
	return &OwnerOnlyStrategy{dir: dir}
}

func (s *OwnerOnlyStrategy) Name() string { return OwnerOnlyName }

func (s *OwnerOnlyStrategy) Priority() int { return 100 }

// Restricts reports true for the owner-only set: the strategy vetoes
// non-owners for those permissions regardless of role.
func (s *OwnerOnlyStrategy) Restricts(p Permission) bool {
	return ownerOnlyPermissions[p]
}

// Evaluate grants or vetoes owner-only permissions and defers on the rest
func (s *OwnerOnlyStrategy) Evaluate(ctx context.Context, p Permission, pc Context) (Result, error) {
	t, err := s.dir.GetTree(ctx, pc.TreeID)
	if errors.Is(err, tree.ErrNotFound) {
		return Deny("tree not found"), nil
	}
	if err != nil {
		return Result{}, err
	}

	if !ownerOnlyPermissions[p] {
		return Neutral("not an owner-only permission"), nil
	}
	if t.OwnerID == pc.UserID {
		return Grant(OwnerOnlyName, "tree owner"), nil
	}
	return Deny("only the tree owner can perform this action"), nil
}

// Grants returns the owner-only set when the caller owns the tree
func (s *OwnerOnlyStrategy) Grants(ctx context.Context, pc Context) ([]Permission, error) {
	t, err := s.dir.GetTree(ctx, pc.TreeID)
	if errors.Is(err, tree.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if t.OwnerID != pc.UserID {
		return nil, nil
	}
	return OwnerOnlyPermissions(), nil
}
