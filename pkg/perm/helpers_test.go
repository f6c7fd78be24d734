package perm

import (
	"context"
	"fmt"
	"time"

	"github.com/arborhq/arbor/pkg/tree"
)

// fakeDirectory is an in-memory Directory for strategy and service tests.
// It counts lookups so cache behavior can be asserted.
type fakeDirectory struct {
	trees     map[string]*tree.Tree
	persons   map[string]*tree.Person
	relCounts map[string]int

	treeLookups int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		trees:     make(map[string]*tree.Tree),
		persons:   make(map[string]*tree.Person),
		relCounts: make(map[string]int),
	}
}

func (f *fakeDirectory) GetTree(ctx context.Context, treeID string) (*tree.Tree, error) {
	f.treeLookups++
	t, ok := f.trees[treeID]
	if !ok {
		return nil, fmt.Errorf("tree %s: %w", treeID, tree.ErrNotFound)
	}
	return t, nil
}

func (f *fakeDirectory) GetPerson(ctx context.Context, treeID, personID string) (*tree.Person, error) {
	p, ok := f.persons[personID]
	if !ok || p.TreeID != treeID {
		return nil, fmt.Errorf("person %s: %w", personID, tree.ErrNotFound)
	}
	return p, nil
}

func (f *fakeDirectory) CountRelationships(ctx context.Context, treeID, personID string) (int, error) {
	return f.relCounts[personID], nil
}

// addTree installs a tree owned by ownerID with the given collaborator levels
func (f *fakeDirectory) addTree(treeID, ownerID string, public bool, collaborators map[string]tree.PermissionLevel) *tree.Tree {
	t := &tree.Tree{
		ID:      treeID,
		Name:    "test tree",
		OwnerID: ownerID,
		Public:  public,
	}
	for userID, level := range collaborators {
		t.Collaborators = append(t.Collaborators, tree.Collaborator{
			TreeID: treeID,
			UserID: userID,
			Level:  level,
		})
	}
	f.trees[treeID] = t
	return t
}

// addPerson installs a person; deceased controls whether a death date is set
func (f *fakeDirectory) addPerson(treeID, personID string, deceased bool) *tree.Person {
	p := &tree.Person{
		ID:        personID,
		TreeID:    treeID,
		GivenName: "test",
	}
	if deceased {
		d := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
		p.DeathDate = &d
	}
	f.persons[personID] = p
	return p
}
