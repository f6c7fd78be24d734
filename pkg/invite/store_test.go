package invite

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/arborhq/arbor/pkg/tree"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return NewStore(db)
}

func createTestInvitation(t *testing.T, store *Store, treeID, email string, ttl time.Duration) *Invitation {
	t.Helper()
	inv := &Invitation{
		TreeID:    treeID,
		Email:     email,
		Level:     tree.LevelEditor,
		InvitedBy: "owner1",
	}
	if err := store.Create(context.Background(), inv, ttl); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return inv
}

func TestStore_CreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	inv := createTestInvitation(t, store, "t1", "cousin@example.com", 7*24*time.Hour)
	if inv.ID == "" || inv.Token == "" {
		t.Fatalf("Create did not assign ID and token: %+v", inv)
	}
	if inv.Status != StatusPending {
		t.Errorf("Status = %q, want pending", inv.Status)
	}
	if !inv.ExpiresAt.After(inv.CreatedAt) {
		t.Errorf("ExpiresAt %v not after CreatedAt %v", inv.ExpiresAt, inv.CreatedAt)
	}

	got, err := store.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Email != "cousin@example.com" || got.Level != tree.LevelEditor || got.InvitedBy != "owner1" {
		t.Errorf("Get() = %+v", got)
	}
	if got.AcceptedAt != nil {
		t.Errorf("AcceptedAt = %v, want nil", got.AcceptedAt)
	}

	byToken, err := store.GetByToken(ctx, inv.Token)
	if err != nil {
		t.Fatalf("GetByToken() error = %v", err)
	}
	if byToken.ID != inv.ID {
		t.Errorf("GetByToken() ID = %q, want %q", byToken.ID, inv.ID)
	}

	if _, err := store.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := store.GetByToken(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByToken(missing) error = %v, want ErrNotFound", err)
	}
}

func TestStore_ListByTree(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	createTestInvitation(t, store, "t1", "a@example.com", time.Hour)
	createTestInvitation(t, store, "t1", "b@example.com", time.Hour)
	createTestInvitation(t, store, "t2", "c@example.com", time.Hour)

	invitations, err := store.ListByTree(ctx, "t1")
	if err != nil {
		t.Fatalf("ListByTree() error = %v", err)
	}
	if len(invitations) != 2 {
		t.Fatalf("ListByTree() returned %d invitations, want 2", len(invitations))
	}

	empty, err := store.ListByTree(ctx, "t3")
	if err != nil {
		t.Fatalf("ListByTree(empty) error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("ListByTree(empty) returned %d invitations", len(empty))
	}
}

func TestStore_StatusTransitions(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	inv := createTestInvitation(t, store, "t1", "a@example.com", time.Hour)

	if err := store.UpdateStatus(ctx, inv.ID, StatusPending, StatusRevoked); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	got, err := store.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusRevoked {
		t.Errorf("Status = %q, want revoked", got.Status)
	}

	// Already revoked, no longer pending.
	if err := store.UpdateStatus(ctx, inv.ID, StatusPending, StatusExpired); !errors.Is(err, ErrNotPending) {
		t.Errorf("UpdateStatus(revoked) error = %v, want ErrNotPending", err)
	}
	if err := store.UpdateStatus(ctx, "nope", StatusPending, StatusRevoked); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateStatus(missing) error = %v, want ErrNotFound", err)
	}
}

func TestStore_MarkAccepted(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	inv := createTestInvitation(t, store, "t1", "a@example.com", time.Hour)
	at := time.Now().UTC()

	if err := store.MarkAccepted(ctx, inv.ID, "user9", at); err != nil {
		t.Fatalf("MarkAccepted() error = %v", err)
	}
	got, err := store.Get(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusAccepted || got.AcceptedBy != "user9" {
		t.Errorf("after accept: %+v", got)
	}
	if got.AcceptedAt == nil {
		t.Error("AcceptedAt not recorded")
	}

	if err := store.MarkAccepted(ctx, inv.ID, "user10", at); !errors.Is(err, ErrNotPending) {
		t.Errorf("second MarkAccepted error = %v, want ErrNotPending", err)
	}
}

func TestStore_ExpirePending(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	overdue1 := createTestInvitation(t, store, "t1", "a@example.com", time.Hour)
	overdue2 := createTestInvitation(t, store, "t1", "b@example.com", time.Hour)
	fresh := createTestInvitation(t, store, "t1", "c@example.com", 48*time.Hour)
	revoked := createTestInvitation(t, store, "t1", "d@example.com", time.Hour)
	if err := store.UpdateStatus(ctx, revoked.ID, StatusPending, StatusRevoked); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	n, err := store.ExpirePending(ctx, time.Now().UTC().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ExpirePending() error = %v", err)
	}
	if n != 2 {
		t.Errorf("ExpirePending() = %d, want 2", n)
	}

	for _, id := range []string{overdue1.ID, overdue2.ID} {
		got, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Status != StatusExpired {
			t.Errorf("invitation %s status = %q, want expired", id, got.Status)
		}
	}
	got, err := store.Get(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusPending {
		t.Errorf("fresh invitation status = %q, want pending", got.Status)
	}
	got, err = store.Get(ctx, revoked.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusRevoked {
		t.Errorf("revoked invitation status = %q, want revoked", got.Status)
	}
}
