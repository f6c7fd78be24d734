package perm

import (
	"context"
	"errors"
	"fmt"

	"github.com/arborhq/arbor/pkg/tree"
)

// RoleBasedName is the stable name used for grant attribution and logging
const RoleBasedName = "role-based"

// RoleBasedStrategy resolves the caller's role from ownership and
// collaborator records and checks the static role table. It is the base
// grant layer of the chain and runs last, after any attribute restrictions
// have had their chance to veto.
type RoleBasedStrategy struct {
	dir Directory
}

// NewRoleBasedStrategy creates the role-based strategy
func NewRoleBasedStrategy(dir Directory) *RoleBasedStrategy {
	return &RoleBasedStrategy{dir: dir}
}

func (s *RoleBasedStrategy) Name() string { return RoleBasedName }

func (s *RoleBasedStrategy) Priority() int { return 10 }

// Evaluate resolves the caller's role and checks the static role table
func (s *RoleBasedStrategy) Evaluate(ctx context.Context, p Permission, pc Context) (Result, error) {
	t, err := s.dir.GetTree(ctx, pc.TreeID)
	if errors.Is(err, tree.ErrNotFound) {
		return Deny("tree not found"), nil
	}
	if err != nil {
		return Result{}, err
	}

	role := resolveRole(t, pc.UserID)
	if role == RoleNone {
		return Deny("no role in this tree"), nil
	}
	if role.Grants(p) {
		return Grant(RoleBasedName, fmt.Sprintf("role %q grants %s", role, p)), nil
	}
	return Deny(fmt.Sprintf("role %q does not include %s", role, p)), nil
}

// Grants returns the resolved role's full permission set
func (s *RoleBasedStrategy) Grants(ctx context.Context, pc Context) ([]Permission, error) {
	t, err := s.dir.GetTree(ctx, pc.TreeID)
	if errors.Is(err, tree.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return resolveRole(t, pc.UserID).Permissions(), nil
}
