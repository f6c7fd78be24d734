package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborhq/arbor/pkg/invite"
	"github.com/arborhq/arbor/pkg/tree"
)

func TestInvitationFlow(t *testing.T) {
	env := setupTestServer(t)
	tr := env.seedTree(t, "owner1", false, map[string]tree.PermissionLevel{"editor1": tree.LevelEditor})

	t.Run("editor cannot invite", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/trees/"+tr.ID+"/invitations", "editor1",
			CreateInvitationRequest{Email: "x@example.com", Level: tree.LevelViewer})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	rec := env.do(t, http.MethodPost, "/api/v1/trees/"+tr.ID+"/invitations", "owner1",
		CreateInvitationRequest{Email: "cousin@example.com", Level: tree.LevelEditor})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created invite.Invitation
	decode(t, rec, &created)
	require.NotEmpty(t, created.Token, "the inviter gets the token exactly once")

	t.Run("listing hides tokens", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/trees/"+tr.ID+"/invitations", "owner1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var listed []invite.Invitation
		decode(t, rec, &listed)
		require.Len(t, listed, 1)
		assert.Empty(t, listed[0].Token)
	})

	t.Run("accept grants access", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/trees/"+tr.ID, "cousin1", nil)
		require.Equal(t, http.StatusForbidden, rec.Code)

		rec = env.do(t, http.MethodPost, "/api/v1/invitations/accept", "cousin1",
			AcceptInvitationRequest{Token: created.Token})
		require.Equal(t, http.StatusOK, rec.Code)
		var accepted invite.Invitation
		decode(t, rec, &accepted)
		assert.Equal(t, invite.StatusAccepted, accepted.Status)

		rec = env.do(t, http.MethodGet, "/api/v1/trees/"+tr.ID, "cousin1", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("token is single use", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/invitations/accept", "other1",
			AcceptInvitationRequest{Token: created.Token})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/invitations/accept", "other1",
			AcceptInvitationRequest{Token: "bogus"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("accept requires authentication", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/invitations/accept", "",
			AcceptInvitationRequest{Token: "whatever"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestInvitationRevoke(t *testing.T) {
	env := setupTestServer(t)
	tr := env.seedTree(t, "owner1", false, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/trees/"+tr.ID+"/invitations", "owner1",
		CreateInvitationRequest{Email: "a@example.com", Level: tree.LevelViewer})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created invite.Invitation
	decode(t, rec, &created)

	rec = env.do(t, http.MethodDelete, "/api/v1/trees/"+tr.ID+"/invitations/"+created.ID, "owner1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/invitations/accept", "someone",
		AcceptInvitationRequest{Token: created.Token})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestInvitationValidation(t *testing.T) {
	env := setupTestServer(t)
	tr := env.seedTree(t, "owner1", false, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/trees/"+tr.ID+"/invitations", "owner1",
		CreateInvitationRequest{Level: tree.LevelViewer})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/trees/"+tr.ID+"/invitations", "owner1",
		CreateInvitationRequest{Email: "a@example.com", Level: "root"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
