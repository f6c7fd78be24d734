package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/arborhq/arbor/pkg/audit"
	"github.com/arborhq/arbor/pkg/auth"
	"github.com/arborhq/arbor/pkg/contextkeys"
	"github.com/arborhq/arbor/pkg/invite"
	"github.com/arborhq/arbor/pkg/media"
	"github.com/arborhq/arbor/pkg/perm"
	"github.com/arborhq/arbor/pkg/tree"
)

// testEnv bundles the server with direct store access for seeding
type testEnv struct {
	server *Server
	trees  *tree.Store
	perms  *perm.Service
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, tree.RunMigrations(ctx, db))
	require.NoError(t, invite.RunMigrations(ctx, db))
	require.NoError(t, media.RunMigrations(ctx, db))

	trees := tree.NewStore(db)
	perms, err := perm.NewService(trees)
	require.NoError(t, err)

	invites := invite.NewService(invite.NewStore(db), trees, perms, time.Hour)

	blobs, err := media.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	mediaSvc := media.NewService(media.NewStore(db), blobs, nil)

	auditDB, err := audit.NewDBLogger(db)
	require.NoError(t, err)

	server := NewServer(Config{
		Trees:         trees,
		Perms:         perms,
		Invites:       invites,
		Media:         mediaSvc,
		Auditor:       auditDB,
		AuditSearch:   auditDB,
		MaxUploadSize: 1 << 20,
	})
	return &testEnv{server: server, trees: trees, perms: perms}
}

// do performs a request as the given user; an empty userID sends the request
// unauthenticated.
func (e *testEnv) do(t *testing.T, method, target, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req = req.WithContext(contextkeys.WithAuth(req.Context(), &auth.AuthContext{
			User: &auth.User{ID: userID, Username: userID},
		}))
	}

	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

// doUpload performs a multipart media upload as the given user
func (e *testEnv) doUpload(t *testing.T, target, userID, fileName, personID string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	if personID != "" {
		require.NoError(t, mw.WriteField("person_id", personID))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = req.WithContext(contextkeys.WithAuth(req.Context(), &auth.AuthContext{
		User: &auth.User{ID: userID, Username: userID},
	}))

	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}

// seedTree creates a tree with collaborators directly through the store
func (e *testEnv) seedTree(t *testing.T, ownerID string, public bool, collaborators map[string]tree.PermissionLevel) *tree.Tree {
	t.Helper()
	ctx := context.Background()

	tr := &tree.Tree{Name: "Smith Family", OwnerID: ownerID, Public: public}
	require.NoError(t, e.trees.CreateTree(ctx, tr))
	for userID, level := range collaborators {
		require.NoError(t, e.trees.AddCollaborator(ctx, &tree.Collaborator{
			TreeID: tr.ID, UserID: userID, Level: level, AddedBy: ownerID,
		}))
	}
	return tr
}

func (e *testEnv) seedPerson(t *testing.T, treeID, givenName string) *tree.Person {
	t.Helper()
	p := &tree.Person{TreeID: treeID, GivenName: givenName}
	require.NoError(t, e.trees.CreatePerson(context.Background(), p))
	return p
}
