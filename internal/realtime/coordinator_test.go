package realtime

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workroomapp/workroom-server/internal/domain"
	"github.com/workroomapp/workroom-server/internal/id"
	"github.com/workroomapp/workroom-server/internal/store"
	"github.com/workroomapp/workroom-server/internal/store/sqlite"
)

type coordinatorEnv struct {
	store       store.Store
	registry    *Registry
	coordinator *Coordinator
}

func setupCoordinator(t *testing.T) *coordinatorEnv {
	t.Helper()

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	registry := NewRegistry(64, nil)
	cache := NewProfileCache(s, 5*time.Minute)

	return &coordinatorEnv{
		store:       s,
		registry:    registry,
		coordinator: NewCoordinator(s, registry, registry, cache, nil),
	}
}

func (e *coordinatorEnv) createUser(t *testing.T, email, username string) *domain.User {
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

func (e *coordinatorEnv) createWorkroom(t *testing.T, creatorID string, memberIDs ...string) *domain.Workroom {
	t.Helper()
	ctx := context.Background()

	room := &domain.Workroom{
		Entity:      domain.Entity{ID: id.MustGenerate(id.PrefixWorkroom)},
		Name:        "Sprint",
		CreatedByID: creatorID,
	}
	room.InitTimestamps()
	require.NoError(t, e.store.CreateWorkroom(ctx, room))
	require.NoError(t, e.store.AddMember(ctx, room.ID, creatorID))
	for _, memberID := range memberIDs {
		require.NoError(t, e.store.AddMember(ctx, room.ID, memberID))
	}
	return room
}

func TestCoordinator_JoinStartsSessionAndSendsSnapshot(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice@example.com", "alice")
	room := env.createWorkroom(t, alice.ID)

	client, err := env.coordinator.Join(ctx, room.ID, alice.ID)
	require.NoError(t, err)

	// A session is now active in the store.
	session, err := env.store.GetActiveLiveSession(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, session.IsActive)

	// The joiner's first frame is the room snapshot, not their own join.
	state := drainOne[SessionStateEvent](t, client)
	assert.Equal(t, EventSessionState, state.Type)
	assert.True(t, state.IsActive)
	assert.Nil(t, state.ScreenSharer)
	require.Len(t, state.Participants, 1)
	assert.Equal(t, alice.ID, state.Participants[0].ID)
	assert.Empty(t, client.Send)
}

func TestCoordinator_SecondJoinerSeesFirst(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice@example.com", "alice")
	bob := env.createUser(t, "bob@example.com", "bob")
	room := env.createWorkroom(t, alice.ID, bob.ID)

	aliceClient, err := env.coordinator.Join(ctx, room.ID, alice.ID)
	require.NoError(t, err)
	drainOne[SessionStateEvent](t, aliceClient)

	bobClient, err := env.coordinator.Join(ctx, room.ID, bob.ID)
	require.NoError(t, err)

	// Alice hears about Bob; Bob gets a two-participant snapshot.
	join := drainOne[PresenceEvent](t, aliceClient)
	assert.Equal(t, PresenceJoin, join.Action)
	assert.Equal(t, bob.ID, join.User.ID)

	state := drainOne[SessionStateEvent](t, bobClient)
	assert.Len(t, state.Participants, 2)
}

func TestCoordinator_LeaveEndsEmptyRoom(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice@example.com", "alice")
	room := env.createWorkroom(t, alice.ID)

	client, err := env.coordinator.Join(ctx, room.ID, alice.ID)
	require.NoError(t, err)

	env.coordinator.Leave(ctx, room.ID, client)

	assert.Equal(t, 0, env.registry.ParticipantCount(room.ID))
	_, err = env.store.GetActiveLiveSession(ctx, room.ID)
	assert.True(t, errors.Is(err, store.ErrLiveSessionNotFound))

	// Leaving twice is harmless.
	env.coordinator.Leave(ctx, room.ID, client)
}

func TestCoordinator_SessionSurvivesWhileOccupied(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice@example.com", "alice")
	bob := env.createUser(t, "bob@example.com", "bob")
	room := env.createWorkroom(t, alice.ID, bob.ID)

	_, err := env.coordinator.Join(ctx, room.ID, alice.ID)
	require.NoError(t, err)
	bobClient, err := env.coordinator.Join(ctx, room.ID, bob.ID)
	require.NoError(t, err)

	env.coordinator.Leave(ctx, room.ID, bobClient)

	// Alice is still there, so the session stays active.
	_, err = env.store.GetActiveLiveSession(ctx, room.ID)
	require.NoError(t, err)
}

func TestCoordinator_StaleLeaveKeepsReplacement(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice@example.com", "alice")
	room := env.createWorkroom(t, alice.ID)

	first, err := env.coordinator.Join(ctx, room.ID, alice.ID)
	require.NoError(t, err)

	// Reconnect replaces the first connection.
	second, err := env.coordinator.Join(ctx, room.ID, alice.ID)
	require.NoError(t, err)

	// The stale connection's cleanup runs after the replacement. It must
	// leave the new connection and the session untouched.
	env.coordinator.Leave(ctx, room.ID, first)

	assert.Equal(t, 1, env.registry.ParticipantCount(room.ID))
	assert.True(t, env.registry.IsCurrent(room.ID, second))

	select {
	case <-second.Done:
		t.Fatal("replacement client must stay open")
	default:
	}

	session, err := env.store.GetActiveLiveSession(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, session.IsActive)
}

func TestCoordinator_ScreenShareLifecycle(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice@example.com", "alice")
	bob := env.createUser(t, "bob@example.com", "bob")
	room := env.createWorkroom(t, alice.ID, bob.ID)

	aliceClient, err := env.coordinator.Join(ctx, room.ID, alice.ID)
	require.NoError(t, err)
	drainOne[SessionStateEvent](t, aliceClient)
	bobClient, err := env.coordinator.Join(ctx, room.ID, bob.ID)
	require.NoError(t, err)
	drainOne[PresenceEvent](t, aliceClient)
	drainOne[SessionStateEvent](t, bobClient)

	// Alice starts sharing.
	env.coordinator.HandleMessage(ctx, room.ID, alice.ID, []byte(`{"type":"screen_share","action":"start"}`))

	update := drainOne[ScreenShareUpdateEvent](t, bobClient)
	require.NotNil(t, update.ScreenSharerID)
	assert.Equal(t, alice.ID, *update.ScreenSharerID)

	session, err := env.store.GetActiveLiveSession(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, session.ScreenSharerID)

	// Alice disconnects: Bob sees the share clear before the leave.
	drainOne[ScreenShareUpdateEvent](t, aliceClient)
	env.coordinator.Leave(ctx, room.ID, aliceClient)

	cleared := drainOne[ScreenShareUpdateEvent](t, bobClient)
	assert.Nil(t, cleared.ScreenSharerID)

	leave := drainOne[PresenceEvent](t, bobClient)
	assert.Equal(t, PresenceLeave, leave.Action)
	assert.Equal(t, alice.ID, leave.User.ID)

	session, err = env.store.GetActiveLiveSession(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, session.ScreenSharerID)
}

func TestCoordinator_SetScreenSharer_RequiresConnection(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice@example.com", "alice")
	bob := env.createUser(t, "bob@example.com", "bob")
	room := env.createWorkroom(t, alice.ID, bob.ID)

	_, err := env.coordinator.Join(ctx, room.ID, alice.ID)
	require.NoError(t, err)

	// Bob never connected, so he can't be granted the share.
	err = env.coordinator.SetScreenSharer(ctx, room.ID, bob.ID, nil)
	assert.Error(t, err)
}

func TestCoordinator_ChatFanOut(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice@example.com", "alice")
	bob := env.createUser(t, "bob@example.com", "bob")
	room := env.createWorkroom(t, alice.ID, bob.ID)

	aliceClient, err := env.coordinator.Join(ctx, room.ID, alice.ID)
	require.NoError(t, err)
	drainOne[SessionStateEvent](t, aliceClient)
	bobClient, err := env.coordinator.Join(ctx, room.ID, bob.ID)
	require.NoError(t, err)
	drainOne[PresenceEvent](t, aliceClient)
	drainOne[SessionStateEvent](t, bobClient)

	env.coordinator.HandleMessage(ctx, room.ID, alice.ID, []byte(`{"type":"chat","content":"hello"}`))

	// Chat goes to everyone, sender included.
	for _, client := range []*Client{aliceClient, bobClient} {
		chat := drainOne[ChatEvent](t, client)
		assert.Equal(t, "hello", chat.Content)
		assert.Equal(t, alice.ID, chat.Sender.ID)
	}
}

func TestCoordinator_TypingExcludesSender(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice@example.com", "alice")
	bob := env.createUser(t, "bob@example.com", "bob")
	room := env.createWorkroom(t, alice.ID, bob.ID)

	aliceClient, err := env.coordinator.Join(ctx, room.ID, alice.ID)
	require.NoError(t, err)
	drainOne[SessionStateEvent](t, aliceClient)
	bobClient, err := env.coordinator.Join(ctx, room.ID, bob.ID)
	require.NoError(t, err)
	drainOne[PresenceEvent](t, aliceClient)
	drainOne[SessionStateEvent](t, bobClient)

	env.coordinator.HandleMessage(ctx, room.ID, alice.ID, []byte(`{"type":"typing","is_typing":true}`))

	typing := drainOne[TypingEvent](t, bobClient)
	assert.True(t, typing.IsTyping)
	assert.Equal(t, alice.ID, typing.User.ID)
	assert.Empty(t, aliceClient.Send)
}

func TestCoordinator_WebRTCSignalUnicast(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice@example.com", "alice")
	bob := env.createUser(t, "bob@example.com", "bob")
	room := env.createWorkroom(t, alice.ID, bob.ID)

	aliceClient, err := env.coordinator.Join(ctx, room.ID, alice.ID)
	require.NoError(t, err)
	drainOne[SessionStateEvent](t, aliceClient)
	bobClient, err := env.coordinator.Join(ctx, room.ID, bob.ID)
	require.NoError(t, err)
	drainOne[PresenceEvent](t, aliceClient)
	drainOne[SessionStateEvent](t, bobClient)

	env.coordinator.HandleMessage(ctx, room.ID, alice.ID,
		[]byte(`{"type":"screen_share","action":"signal","target_user":"`+bob.ID+`","signal":{"sdp":"offer"}}`))

	signal := drainOne[WebRTCSignalEvent](t, bobClient)
	assert.Equal(t, alice.ID, signal.Sender)
	assert.NotNil(t, signal.Signal)
	assert.Empty(t, aliceClient.Send)
}

func TestCoordinator_UnknownMessageType(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice@example.com", "alice")
	room := env.createWorkroom(t, alice.ID)

	client, err := env.coordinator.Join(ctx, room.ID, alice.ID)
	require.NoError(t, err)
	drainOne[SessionStateEvent](t, client)

	env.coordinator.HandleMessage(ctx, room.ID, alice.ID, []byte(`{"type":"dance"}`))

	errEvent := drainOne[ErrorEvent](t, client)
	assert.Equal(t, EventError, errEvent.Type)
	assert.Contains(t, errEvent.Message, "dance")

	env.coordinator.HandleMessage(ctx, room.ID, alice.ID, []byte(`not json`))
	errEvent = drainOne[ErrorEvent](t, client)
	assert.Contains(t, errEvent.Message, "malformed")
}

func TestCoordinator_GetOrCreateSession_ReusesActive(t *testing.T) {
	env := setupCoordinator(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice@example.com", "alice")
	room := env.createWorkroom(t, alice.ID)

	first, err := env.coordinator.GetOrCreateSession(ctx, room.ID)
	require.NoError(t, err)
	second, err := env.coordinator.GetOrCreateSession(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}
