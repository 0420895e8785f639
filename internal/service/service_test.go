package service

import (
	"context"
	"encoding/hex"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/workroomapp/workroom-server/internal/auth"
	"github.com/workroomapp/workroom-server/internal/blocklist"
	"github.com/workroomapp/workroom-server/internal/domain"
	"github.com/workroomapp/workroom-server/internal/id"
	"github.com/workroomapp/workroom-server/internal/store"
	"github.com/workroomapp/workroom-server/internal/store/sqlite"
)

// testEnv wires every service against real temp-dir storage.
type testEnv struct {
	store        store.Store
	tokens       *auth.TokenService
	blocklist    *blocklist.Blocklist
	sessions     *SessionService
	auth         *AuthService
	gamification *GamificationService
	tasks        *TaskService
	workrooms    *WorkroomService
	leaderboard  *LeaderboardService
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()

	tmpDir := t.TempDir()

	s, err := sqlite.Open(filepath.Join(tmpDir, "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	key, err := auth.LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(hex.EncodeToString(key), 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)

	bl, err := blocklist.Open(filepath.Join(tmpDir, "blocklist"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bl.Close() })

	sessions := NewSessionService(s, tokens, nil)
	gamification := NewGamificationService(s, nil)

	env := &testEnv{
		store:        s,
		tokens:       tokens,
		blocklist:    bl,
		sessions:     sessions,
		auth:         NewAuthService(s, tokens, sessions, bl, nil),
		gamification: gamification,
		tasks:        NewTaskService(s, gamification, nil),
		workrooms:    NewWorkroomService(s, nil),
		leaderboard:  NewLeaderboardService(s, nil),
	}

	require.NoError(t, env.gamification.EnsureBadges(context.Background()))

	return env
}

// createUser inserts a user directly, bypassing registration.
func (e *testEnv) createUser(t *testing.T, email, username string) *domain.User {
	t.Helper()

	user := &domain.User{
		Entity:       domain.Entity{ID: id.MustGenerate(id.PrefixUser)},
		Email:        email,
		Username:     username,
		PasswordHash: "x",
		Role:         domain.RoleMember,
	}
	user.InitTimestamps()
	require.NoError(t, e.store.CreateUser(context.Background(), user))
	return user
}

// createWorkroom creates a workroom through the service so the creator is
// enrolled as a member.
func (e *testEnv) createWorkroom(t *testing.T, userID, name string) *domain.Workroom {
	t.Helper()

	room, err := e.workrooms.CreateWorkroom(context.Background(), userID, CreateWorkroomRequest{Name: name})
	require.NoError(t, err)
	return room
}

// createTask creates a plain task owned by userID.
func (e *testEnv) createTask(t *testing.T, userID string, req CreateTaskRequest) *domain.Task {
	t.Helper()

	task, err := e.tasks.CreateTask(context.Background(), userID, req)
	require.NoError(t, err)
	return task
}
