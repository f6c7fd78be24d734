package tree

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store handles tree-domain persistence
type Store struct {
	db *sql.DB
}

// NewStore creates a new tree store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateTree creates a new tree. The ID and timestamps are assigned here.
func (s *Store) CreateTree(ctx context.Context, t *Tree) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trees (id, name, description, owner_id, public, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.Name, t.Description, t.OwnerID, t.Public, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tree: %w", err)
	}
	return nil
}

// GetTree retrieves a tree by ID, including its collaborator records.
func (s *Store) GetTree(ctx context.Context, treeID string) (*Tree, error) {
	var t Tree
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, owner_id, public, created_at, updated_at
		FROM trees WHERE id = $1`,
		treeID,
	).Scan(&t.ID, &t.Name, &t.Description, &t.OwnerID, &t.Public, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tree %s: %w", treeID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	collaborators, err := s.ListCollaborators(ctx, treeID)
	if err != nil {
		return nil, err
	}
	t.Collaborators = collaborators
	return &t, nil
}

// ListTrees lists trees the user owns or collaborates on
func (s *Store) ListTrees(ctx context.Context, userID string) ([]Tree, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT t.id, t.name, t.description, t.owner_id, t.public, t.created_at, t.updated_at
		FROM trees t
		LEFT JOIN collaborators c ON c.tree_id = t.id
		WHERE t.owner_id = $1 OR c.user_id = $1
		ORDER BY t.created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list trees: %w", err)
	}
	defer rows.Close()

	var trees []Tree
	for rows.Next() {
		var t Tree
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.OwnerID, &t.Public, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tree: %w", err)
		}
		trees = append(trees, t)
	}
	return trees, rows.Err()
}

// UpdateTree updates a tree's mutable fields
func (s *Store) UpdateTree(ctx context.Context, t *Tree) error {
	t.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE trees SET name = $1, description = $2, public = $3, updated_at = $4
		WHERE id = $5`,
		t.Name, t.Description, t.Public, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tree: %w", err)
	}
	return requireRowAffected(res, "tree", t.ID)
}

// DeleteTree deletes a tree and, via cascades, everything it contains
func (s *Store) DeleteTree(ctx context.Context, treeID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM trees WHERE id = $1", treeID)
	if err != nil {
		return fmt.Errorf("failed to delete tree: %w", err)
	}
	return requireRowAffected(res, "tree", treeID)
}

// AddCollaborator adds a collaborator record to a tree
func (s *Store) AddCollaborator(ctx context.Context, c *Collaborator) error {
	if !c.Level.Valid() {
		return fmt.Errorf("invalid permission level %q", c.Level)
	}
	c.AddedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collaborators (tree_id, user_id, level, added_by, added_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.TreeID, c.UserID, c.Level, c.AddedBy, c.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add collaborator: %w", err)
	}
	return nil
}

// UpdateCollaborator changes a collaborator's permission level
func (s *Store) UpdateCollaborator(ctx context.Context, treeID, userID string, level PermissionLevel) error {
	if !level.Valid() {
		return fmt.Errorf("invalid permission level %q", level)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE collaborators SET level = $1 WHERE tree_id = $2 AND user_id = $3`,
		level, treeID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update collaborator: %w", err)
	}
	return requireRowAffected(res, "collaborator", userID)
}

// RemoveCollaborator removes a collaborator from a tree
func (s *Store) RemoveCollaborator(ctx context.Context, treeID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM collaborators WHERE tree_id = $1 AND user_id = $2",
		treeID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove collaborator: %w", err)
	}
	return requireRowAffected(res, "collaborator", userID)
}

// ListCollaborators lists the collaborators of a tree
func (s *Store) ListCollaborators(ctx context.Context, treeID string) ([]Collaborator, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tree_id, user_id, level, added_by, added_at
		FROM collaborators WHERE tree_id = $1
		ORDER BY added_at ASC`,
		treeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list collaborators: %w", err)
	}
	defer rows.Close()

	var collaborators []Collaborator
	for rows.Next() {
		var c Collaborator
		if err := rows.Scan(&c.TreeID, &c.UserID, &c.Level, &c.AddedBy, &c.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan collaborator: %w", err)
		}
		collaborators = append(collaborators, c)
	}
	return collaborators, rows.Err()
}

// CreatePerson adds a person to a tree
func (s *Store) CreatePerson(ctx context.Context, p *Person) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO persons (id, tree_id, given_name, family_name, gender, birth_date, death_date, birth_place, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.TreeID, p.GivenName, p.FamilyName, p.Gender,
		p.BirthDate, p.DeathDate, p.BirthPlace, p.Notes, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create person: %w", err)
	}
	return nil
}

// GetPerson retrieves a person by ID within a tree
func (s *Store) GetPerson(ctx context.Context, treeID, personID string) (*Person, error) {
	var p Person
	var birthDate, deathDate sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tree_id, given_name, family_name, gender, birth_date, death_date, birth_place, notes, created_at, updated_at
		FROM persons WHERE tree_id = $1 AND id = $2`,
		treeID, personID,
	).Scan(&p.ID, &p.TreeID, &p.GivenName, &p.FamilyName, &p.Gender,
		&birthDate, &deathDate, &p.BirthPlace, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("person %s: %w", personID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}

	if birthDate.Valid {
		d := birthDate.Time
		p.BirthDate = &d
	}
	if deathDate.Valid {
		d := deathDate.Time
		p.DeathDate = &d
	}
	return &p, nil
}

// ListPersons lists all persons in a tree
func (s *Store) ListPersons(ctx context.Context, treeID string) ([]Person, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tree_id, given_name, family_name, gender, birth_date, death_date, birth_place, notes, created_at, updated_at
		FROM persons WHERE tree_id = $1
		ORDER BY created_at ASC`,
		treeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}
	defer rows.Close()

	var persons []Person
	for rows.Next() {
		var p Person
		var birthDate, deathDate sql.NullTime
		if err := rows.Scan(&p.ID, &p.TreeID, &p.GivenName, &p.FamilyName, &p.Gender,
			&birthDate, &deathDate, &p.BirthPlace, &p.Notes, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		if birthDate.Valid {
			d := birthDate.Time
			p.BirthDate = &d
		}
		if deathDate.Valid {
			d := deathDate.Time
			p.DeathDate = &d
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

// UpdatePerson updates a person's mutable fields
func (s *Store) UpdatePerson(ctx context.Context, p *Person) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE persons
		SET given_name = $1, family_name = $2, gender = $3, birth_date = $4,
		    death_date = $5, birth_place = $6, notes = $7, updated_at = $8
		WHERE tree_id = $9 AND id = $10`,
		p.GivenName, p.FamilyName, p.Gender, p.BirthDate,
		p.DeathDate, p.BirthPlace, p.Notes, p.UpdatedAt, p.TreeID, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update person: %w", err)
	}
	return requireRowAffected(res, "person", p.ID)
}

// DeletePerson removes a person from a tree
func (s *Store) DeletePerson(ctx context.Context, treeID, personID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM persons WHERE tree_id = $1 AND id = $2",
		treeID, personID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete person: %w", err)
	}
	return requireRowAffected(res, "person", personID)
}

// CreateRelationship stores a canonical relationship edge. Callers are
// expected to have run Normalize and the duplicate/cycle checks first.
func (s *Store) CreateRelationship(ctx context.Context, r *Relationship) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO relationships (id, tree_id, from_id, to_id, type, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.TreeID, r.FromID, r.ToID, r.Type, r.Notes, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create relationship: %w", err)
	}
	return nil
}

// GetRelationship retrieves a relationship by ID within a tree
func (s *Store) GetRelationship(ctx context.Context, treeID, relationshipID string) (*Relationship, error) {
	var r Relationship
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tree_id, from_id, to_id, type, notes, created_at
		FROM relationships WHERE tree_id = $1 AND id = $2`,
		treeID, relationshipID,
	).Scan(&r.ID, &r.TreeID, &r.FromID, &r.ToID, &r.Type, &r.Notes, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("relationship %s: %w", relationshipID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relationship: %w", err)
	}
	return &r, nil
}

// ListRelationships lists all relationships in a tree
func (s *Store) ListRelationships(ctx context.Context, treeID string) ([]Relationship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tree_id, from_id, to_id, type, notes, created_at
		FROM relationships WHERE tree_id = $1
		ORDER BY created_at ASC`,
		treeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	defer rows.Close()
	return scanRelationships(rows)
}

// ListRelationshipsForPerson lists relationships touching a person
func (s *Store) ListRelationshipsForPerson(ctx context.Context, treeID, personID string) ([]Relationship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tree_id, from_id, to_id, type, notes, created_at
		FROM relationships
		WHERE tree_id = $1 AND (from_id = $2 OR to_id = $2)
		ORDER BY created_at ASC`,
		treeID, personID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships for person: %w", err)
	}
	defer rows.Close()
	return scanRelationships(rows)
}

// CountRelationships returns the number of relationships touching a person
func (s *Store) CountRelationships(ctx context.Context, treeID, personID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM relationships
		WHERE tree_id = $1 AND (from_id = $2 OR to_id = $2)`,
		treeID, personID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count relationships: %w", err)
	}
	return count, nil
}

// RelationshipExists reports whether the exact canonical edge is already recorded
func (s *Store) RelationshipExists(ctx context.Context, treeID, fromID, toID string, t RelationshipType) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM relationships
		WHERE tree_id = $1 AND from_id = $2 AND to_id = $3 AND type = $4`,
		treeID, fromID, toID, t,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check relationship: %w", err)
	}
	return count > 0, nil
}

// UpdateRelationship rewrites a relationship's notes. Endpoints and type are
// immutable; structural changes go through delete and create so normalization
// and the duplicate and cycle checks rerun.
func (s *Store) UpdateRelationship(ctx context.Context, r *Relationship) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE relationships SET notes = $1 WHERE tree_id = $2 AND id = $3",
		r.Notes, r.TreeID, r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update relationship: %w", err)
	}
	return requireRowAffected(res, "relationship", r.ID)
}

// DeleteRelationship removes a relationship from a tree
func (s *Store) DeleteRelationship(ctx context.Context, treeID, relationshipID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM relationships WHERE tree_id = $1 AND id = $2",
		treeID, relationshipID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete relationship: %w", err)
	}
	return requireRowAffected(res, "relationship", relationshipID)
}

func scanRelationships(rows *sql.Rows) ([]Relationship, error) {
	var relationships []Relationship
	for rows.Next() {
		var r Relationship
		if err := rows.Scan(&r.ID, &r.TreeID, &r.FromID, &r.ToID, &r.Type, &r.Notes, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		relationships = append(relationships, r)
	}
	return relationships, rows.Err()
}

func requireRowAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
