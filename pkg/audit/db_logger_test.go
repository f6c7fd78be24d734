package audit

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDBLogger(t *testing.T) *DBLogger {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger, err := NewDBLogger(db)
	require.NoError(t, err)
	return logger
}

func TestNewDBLogger_NilDB(t *testing.T) {
	logger, err := NewDBLogger(nil)
	assert.Error(t, err)
	assert.Nil(t, logger)
}

func TestDBLogger_LogAssignsIDAndTimestamp(t *testing.T) {
	logger := setupDBLogger(t)
	ctx := context.Background()

	event := &Event{
		EventType: EventTreeCreate,
		Status:    EventStatusSuccess,
		UserID:    "user-1",
		TreeID:    "tree-1",
	}
	require.NoError(t, logger.Log(ctx, event))
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())

	events, err := logger.Search(ctx, SearchFilter{TreeID: "tree-1"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.ID, events[0].ID)
	assert.Equal(t, EventTreeCreate, events[0].EventType)
}

func TestDBLogger_SearchFilters(t *testing.T) {
	logger := setupDBLogger(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	seed := []*Event{
		{Timestamp: base, EventType: EventPermissionCheck, Status: EventStatusSuccess, UserID: "alice", TreeID: "t1"},
		{Timestamp: base.Add(time.Minute), EventType: EventAccessDenied, Status: EventStatusDenied, UserID: "bob", TreeID: "t1",
			Metadata: map[string]interface{}{"permission": "delete-tree"}},
		{Timestamp: base.Add(2 * time.Minute), EventType: EventCollaboratorAdd, Status: EventStatusSuccess, UserID: "alice", TreeID: "t2",
			ResourceType: "collaborator", ResourceID: "bob"},
		{Timestamp: base.Add(3 * time.Minute), EventType: EventAccessDenied, Status: EventStatusDenied, UserID: "bob", TreeID: "t2"},
	}
	for _, e := range seed {
		require.NoError(t, logger.Log(ctx, e))
	}

	t.Run("by user", func(t *testing.T) {
		events, err := logger.Search(ctx, SearchFilter{UserID: "alice"})
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("by tree and event type", func(t *testing.T) {
		events, err := logger.Search(ctx, SearchFilter{
			TreeID:     "t1",
			EventTypes: []EventType{EventAccessDenied},
		})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "bob", events[0].UserID)
		assert.Equal(t, "delete-tree", events[0].Metadata["permission"])
	})

	t.Run("by status", func(t *testing.T) {
		denied := EventStatusDenied
		events, err := logger.Search(ctx, SearchFilter{Status: &denied})
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("by resource", func(t *testing.T) {
		events, err := logger.Search(ctx, SearchFilter{ResourceType: "collaborator", ResourceID: "bob"})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, EventCollaboratorAdd, events[0].EventType)
	})

	t.Run("time window", func(t *testing.T) {
		start := base.Add(30 * time.Second)
		end := base.Add(150 * time.Second)
		events, err := logger.Search(ctx, SearchFilter{StartTime: &start, EndTime: &end})
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})

	t.Run("newest first with limit and offset", func(t *testing.T) {
		events, err := logger.Search(ctx, SearchFilter{Limit: 2})
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, EventAccessDenied, events[0].EventType)
		assert.True(t, events[0].Timestamp.After(events[1].Timestamp))

		paged, err := logger.Search(ctx, SearchFilter{Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, paged, 2)
		assert.True(t, events[1].Timestamp.After(paged[0].Timestamp))
	})

	t.Run("no matches", func(t *testing.T) {
		events, err := logger.Search(ctx, SearchFilter{UserID: "nobody"})
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestDBLogger_CountDenials(t *testing.T) {
	logger := setupDBLogger(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, logger.Log(ctx, &Event{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			EventType: EventAccessDenied,
			Status:    EventStatusDenied,
			UserID:    "bob",
		}))
	}
	require.NoError(t, logger.Log(ctx, &Event{
		Timestamp: base,
		EventType: EventPermissionCheck,
		Status:    EventStatusSuccess,
		UserID:    "alice",
	}))

	count, err := logger.CountDenials(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = logger.CountDenials(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDBLogger_Prune(t *testing.T) {
	logger := setupDBLogger(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, logger.Log(ctx, &Event{
			Timestamp: base.AddDate(0, 0, i),
			EventType: EventTreeUpdate,
			Status:    EventStatusSuccess,
		}))
	}

	removed, err := logger.Prune(ctx, base.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	remaining, err := logger.Search(ctx, SearchFilter{})
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestDBLogger_InsertErrorPropagates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS audit_logs").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnError(fmt.Errorf("connection reset"))

	logger, err := NewDBLogger(db)
	require.NoError(t, err)

	logErr := logger.Log(context.Background(), &Event{
		EventType: EventTreeCreate,
		Status:    EventStatusSuccess,
	})
	assert.Error(t, logErr)
	assert.Contains(t, logErr.Error(), "failed to insert audit log")
	assert.NoError(t, mock.ExpectationsWereMet())
}
