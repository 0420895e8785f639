package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workroomapp/workroom-server/internal/domain"
)

func TestWorkroomLifecycle(t *testing.T) {
	ts := setupTestServer(t)
	account := ts.register(t, "alice@example.com", "alice")
	token := account.Session.AccessToken

	rec := ts.do(t, http.MethodPost, "/api/v1/workrooms", token, map[string]string{
		"name":        "Q3 planning",
		"description": "Everything for the quarter",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeEnvelope[domain.Workroom](t, rec)
	assert.Equal(t, account.User.ID, created.Data.CreatedByID)

	// The creator is enrolled as first member.
	rec = ts.do(t, http.MethodGet, "/api/v1/workrooms/"+created.Data.ID+"/members", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	members := decodeEnvelope[[]domain.User](t, rec)
	require.Len(t, members.Data, 1)
	assert.Empty(t, members.Data[0].PasswordHash)

	rec = ts.do(t, http.MethodGet, "/api/v1/workrooms", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeEnvelope[[]domain.Workroom](t, rec)
	require.Len(t, list.Data, 1)

	rec = ts.do(t, http.MethodPatch, "/api/v1/workrooms/"+created.Data.ID, token, map[string]string{
		"name": "Q4 planning",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeEnvelope[domain.Workroom](t, rec)
	assert.Equal(t, "Q4 planning", updated.Data.Name)

	rec = ts.do(t, http.MethodDelete, "/api/v1/workrooms/"+created.Data.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/workrooms/"+created.Data.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkroomAccess_MembersOnly(t *testing.T) {
	ts := setupTestServer(t)
	alice := ts.register(t, "alice@example.com", "alice")
	mallory := ts.register(t, "mallory@example.com", "mallory")

	rec := ts.do(t, http.MethodPost, "/api/v1/workrooms", alice.Session.AccessToken, map[string]string{
		"name": "Private room",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	room := decodeEnvelope[domain.Workroom](t, rec)

	for _, path := range []string{
		"/api/v1/workrooms/" + room.Data.ID,
		"/api/v1/workrooms/" + room.Data.ID + "/members",
		"/api/v1/workrooms/" + room.Data.ID + "/leaderboard",
	} {
		rec = ts.do(t, http.MethodGet, path, mallory.Session.AccessToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}

	// Non-members cannot invite either.
	rec = ts.do(t, http.MethodPost, "/api/v1/workrooms/"+room.Data.ID+"/members", mallory.Session.AccessToken, map[string]string{
		"user_id": mallory.User.ID,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWorkroomLeaderboard(t *testing.T) {
	ts := setupTestServer(t)
	alice := ts.register(t, "alice@example.com", "alice")
	bob := ts.register(t, "bob@example.com", "bob")

	rec := ts.do(t, http.MethodPost, "/api/v1/workrooms", alice.Session.AccessToken, map[string]string{
		"name": "Sprint room",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	room := decodeEnvelope[domain.Workroom](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/v1/workrooms/"+room.Data.ID+"/members", alice.Session.AccessToken, map[string]string{
		"user_id": bob.User.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Alice completes one task in the room.
	rec = ts.do(t, http.MethodPost, "/api/v1/tasks", alice.Session.AccessToken, map[string]string{
		"title":       "Ship the feature",
		"workroom_id": room.Data.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	task := decodeEnvelope[domain.Task](t, rec)

	rec = ts.do(t, http.MethodPatch, "/api/v1/tasks/"+task.Data.ID, alice.Session.AccessToken, map[string]string{
		"status": "COMPLETED",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/workrooms/"+room.Data.ID+"/leaderboard", bob.Session.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	board := decodeEnvelope[[]domain.LeaderboardEntry](t, rec)
	require.Len(t, board.Data, 2)

	assert.Equal(t, "alice", board.Data[0].Username)
	assert.Equal(t, 10, board.Data[0].Score)
	assert.Equal(t, 1, board.Data[0].Rank)
	assert.Equal(t, "bob", board.Data[1].Username)
	assert.Equal(t, 2, board.Data[1].Rank)
}

func TestWorkroomAddMember_Duplicate(t *testing.T) {
	ts := setupTestServer(t)
	alice := ts.register(t, "alice@example.com", "alice")
	bob := ts.register(t, "bob@example.com", "bob")

	rec := ts.do(t, http.MethodPost, "/api/v1/workrooms", alice.Session.AccessToken, map[string]string{
		"name": "Team room",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	room := decodeEnvelope[domain.Workroom](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/v1/workrooms/"+room.Data.ID+"/members", alice.Session.AccessToken, map[string]string{
		"user_id": bob.User.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/workrooms/"+room.Data.ID+"/members", alice.Session.AccessToken, map[string]string{
		"user_id": bob.User.ID,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}
