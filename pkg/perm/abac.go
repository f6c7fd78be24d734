package perm

import (
	"context"
	"errors"

	"github.com/arborhq/arbor/pkg/tree"
)

// AttributeBasedName is the stable name used for logging and attribution
const AttributeBasedName = "attribute-based"

// Attributes are the contextual facts a restriction rule may consult. They
// are resolved once per Evaluate call and discarded.
type Attributes struct {
	Tree *tree.Tree
	Role Role

	// Person is populated only when the check is scoped to a person
	// resource and that person exists.
	Person            *tree.Person
	RelationshipCount int
}

// RestrictionRule vetoes a single permission when its predicate reports
// false. Rules never grant anything.
type RestrictionRule struct {
	Permission  Permission
	Description string
	Predicate   func(pc Context, a *Attributes) bool
}

// defaultRestrictions are the built-in attribute rules:
// deceased persons stay frozen for everyone below admin, persons with
// recorded relationships cannot be deleted, and living persons on a public
// tree are hidden from non-collaborators.
func defaultRestrictions() []RestrictionRule {
	return []RestrictionRule{
		{
			Permission:  PermEditPerson,
			Description: "deceased persons can only be edited by the tree owner or an admin",
			Predicate: func(pc Context, a *Attributes) bool {
				if a.Person == nil || a.Person.Living() {
					return true
				}
				return a.Role == RoleOwner || a.Role == RoleAdmin
			},
		},
		{
			Permission:  PermDeletePerson,
			Description: "persons with recorded relationships cannot be deleted",
			Predicate: func(pc Context, a *Attributes) bool {
				if a.Person == nil {
					return true
				}
				return a.RelationshipCount == 0
			},
		},
		{
			Permission:  PermViewPerson,
			Description: "living persons on a public tree are only visible to collaborators",
			Predicate: func(pc Context, a *Attributes) bool {
				if a.Person == nil || !a.Tree.Public || !a.Person.Living() {
					return true
				}
				switch a.Role {
				case RoleOwner, RoleAdmin, RoleEditor, RoleViewer:
					return true
				}
				return false
			},
		},
	}
}

// AttributeBasedStrategy applies restriction rules that can only reduce,
// never expand, what the other strategies grant.
type AttributeBasedStrategy struct {
	dir   Directory
	rules []RestrictionRule
}

// NewAttributeBasedStrategy creates the attribute strategy with the built-in
// restriction rules.
func NewAttributeBasedStrategy(dir Directory) *AttributeBasedStrategy {
	return &AttributeBasedStrategy{dir: dir, rules: defaultRestrictions()}
}

func (s *AttributeBasedStrategy) Name() string { return AttributeBasedName }

func (s *AttributeBasedStrategy) Priority() int { return 20 }

// Restricts reports whether any rule governs the permission
func (s *AttributeBasedStrategy) Restricts(p Permission) bool {
	for _, rule := range s.rules {
		if rule.Permission == p {
			return true
		}
	}
	return false
}

// Evaluate runs the rules matching the requested permission. The first
// failing predicate vetoes immediately; a permission with no matching rules
// is a neutral pass-through.
func (s *AttributeBasedStrategy) Evaluate(ctx context.Context, p Permission, pc Context) (Result, error) {
	if !s.Restricts(p) {
		return Neutral("no attribute-based restrictions apply"), nil
	}

	attrs, err := s.loadAttributes(ctx, pc)
	if errors.Is(err, tree.ErrNotFound) {
		return Deny("tree not found"), nil
	}
	if err != nil {
		return Result{}, err
	}

	for _, rule := range s.rules {
		if rule.Permission != p {
			continue
		}
		if !rule.Predicate(pc, attrs) {
			return Deny(rule.Description), nil
		}
	}
	return Neutral("no attribute-based restrictions apply"), nil
}

// Grants always returns nothing: restriction rules contribute no capabilities
func (s *AttributeBasedStrategy) Grants(ctx context.Context, pc Context) ([]Permission, error) {
	return nil, nil
}

func (s *AttributeBasedStrategy) loadAttributes(ctx context.Context, pc Context) (*Attributes, error) {
	t, err := s.dir.GetTree(ctx, pc.TreeID)
	if err != nil {
		return nil, err
	}
	attrs := &Attributes{
		Tree: t,
		Role: resolveRole(t, pc.UserID),
	}

	if pc.ResourceType == ResourcePerson && pc.ResourceID != "" {
		person, err := s.dir.GetPerson(ctx, pc.TreeID, pc.ResourceID)
		if errors.Is(err, tree.ErrNotFound) {
			// A missing target person is the handler's 404 to give; no
			// attribute restriction applies to a record that is not there.
			return attrs, nil
		}
		if err != nil {
			return nil, err
		}
		attrs.Person = person

		count, err := s.dir.CountRelationships(ctx, pc.TreeID, pc.ResourceID)
		if err != nil {
			return nil, err
		}
		attrs.RelationshipCount = count
	}
	return attrs, nil
}
