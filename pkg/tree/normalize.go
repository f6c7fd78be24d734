package tree

import (
	"fmt"
	"strings"
)

// RelationshipType is a canonical relationship kind. For directed types the
// edge always points from the senior party to the junior one (parent to
// child, guardian to ward); symmetric types are stored with the
// lexicographically smaller person ID first.
type RelationshipType string

const (
	RelParent         RelationshipType = "parent"
	RelStepParent     RelationshipType = "step-parent"
	RelAdoptiveParent RelationshipType = "adoptive-parent"
	RelFosterParent   RelationshipType = "foster-parent"
	RelGuardian       RelationshipType = "guardian"
	RelSpouse         RelationshipType = "spouse"
	RelPartner        RelationshipType = "partner"
	RelSibling        RelationshipType = "sibling"
	RelHalfSibling    RelationshipType = "half-sibling"
	RelStepSibling    RelationshipType = "step-sibling"
)

// Valid reports whether t is one of the canonical relationship types.
func (t RelationshipType) Valid() bool {
	switch t {
	case RelParent, RelStepParent, RelAdoptiveParent, RelFosterParent,
		RelGuardian, RelSpouse, RelPartner, RelSibling, RelHalfSibling,
		RelStepSibling:
		return true
	}
	return false
}

// Symmetric reports whether the type carries no direction.
func (t RelationshipType) Symmetric() bool {
	switch t {
	case RelSpouse, RelPartner, RelSibling, RelHalfSibling, RelStepSibling:
		return true
	}
	return false
}

// ParentLike reports whether the type contributes to the ancestry graph and
// therefore participates in cycle detection.
func (t RelationshipType) ParentLike() bool {
	switch t {
	case RelParent, RelStepParent, RelAdoptiveParent, RelFosterParent, RelGuardian:
		return true
	}
	return false
}

// alias maps an input relationship word onto a canonical type. Inverted
// aliases describe the junior party ("son", "step-child"), so the edge
// direction flips during normalization.
type alias struct {
	kind     RelationshipType
	inverted bool
}

var relationshipAliases = map[string]alias{
	"parent": {RelParent, false},
	"father": {RelParent, false},
	"mother": {RelParent, false},

	"child":    {RelParent, true},
	"son":      {RelParent, true},
	"daughter": {RelParent, true},

	"step-parent": {RelStepParent, false},
	"step-father": {RelStepParent, false},
	"step-mother": {RelStepParent, false},

	"step-child":    {RelStepParent, true},
	"step-son":      {RelStepParent, true},
	"step-daughter": {RelStepParent, true},

	"adoptive-parent": {RelAdoptiveParent, false},
	"adoptive-father": {RelAdoptiveParent, false},
	"adoptive-mother": {RelAdoptiveParent, false},
	"adopted-child":   {RelAdoptiveParent, true},

	"foster-parent": {RelFosterParent, false},
	"foster-child":  {RelFosterParent, true},

	"guardian": {RelGuardian, false},
	"ward":     {RelGuardian, true},

	"spouse":  {RelSpouse, false},
	"husband": {RelSpouse, false},
	"wife":    {RelSpouse, false},

	"partner": {RelPartner, false},

	"sibling": {RelSibling, false},
	"brother": {RelSibling, false},
	"sister":  {RelSibling, false},

	"half-sibling": {RelHalfSibling, false},
	"half-brother": {RelHalfSibling, false},
	"half-sister":  {RelHalfSibling, false},

	"step-sibling": {RelStepSibling, false},
	"step-brother": {RelStepSibling, false},
	"step-sister":  {RelStepSibling, false},
}

// canonicalKind lowercases and hyphenates an input relationship word so
// "Step Child", "step_child" and "stepchild" all resolve the same way.
func canonicalKind(kind string) string {
	k := strings.ToLower(strings.TrimSpace(kind))
	k = strings.ReplaceAll(k, " ", "-")
	k = strings.ReplaceAll(k, "_", "-")
	if _, ok := relationshipAliases[k]; ok {
		return k
	}
	// Accept fused spellings like "stepchild" or "halfbrother".
	for _, prefix := range []string{"step", "half", "adoptive", "adopted", "foster"} {
		if strings.HasPrefix(k, prefix) && len(k) > len(prefix) && k[len(prefix)] != '-' {
			candidate := prefix + "-" + k[len(prefix):]
			if _, ok := relationshipAliases[candidate]; ok {
				return candidate
			}
		}
	}
	return k
}

// Normalize maps a directional or gendered relationship word onto a
// canonical {from, to, type} triple. The input is read as "fromID is the
// <kind> of toID"; inverted aliases flip the edge, and symmetric types are
// ordered by person ID so duplicates compare equal regardless of input
// direction.
func Normalize(kind, fromID, toID string) (string, string, RelationshipType, error) {
	if fromID == "" || toID == "" {
		return "", "", "", fmt.Errorf("both persons are required for a relationship")
	}
	if fromID == toID {
		return "", "", "", fmt.Errorf("cannot relate a person to themselves")
	}

	a, ok := relationshipAliases[canonicalKind(kind)]
	if !ok {
		return "", "", "", fmt.Errorf("unknown relationship type %q", kind)
	}

	from, to := fromID, toID
	if a.inverted {
		from, to = to, from
	}
	if a.kind.Symmetric() && from > to {
		from, to = to, from
	}
	return from, to, a.kind, nil
}

// CreatesAncestryCycle reports whether adding a parent-like edge from
// parentID to childID would make someone their own ancestor, given the
// existing relationships of the tree.
func CreatesAncestryCycle(existing []Relationship, parentID, childID string) bool {
	if parentID == childID {
		return true
	}

	parents := make(map[string][]string)
	for _, r := range existing {
		if r.Type.ParentLike() {
			parents[r.ToID] = append(parents[r.ToID], r.FromID)
		}
	}

	// Walk the ancestors of the prospective parent; if the child is already
	// among them the new edge closes a loop.
	seen := make(map[string]bool)
	stack := []string{parentID}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == childID {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, parents[cur]...)
	}
	return false
}
