package realtime

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/workroomapp/workroom-server/internal/domain"
	"github.com/workroomapp/workroom-server/internal/id"
	"github.com/workroomapp/workroom-server/internal/store"
)

// Coordinator owns the live session lifecycle of every workroom: who is
// in the room, who is sharing their screen, and when the session starts
// and ends. Broadcasts go through the Broadcaster seam; persistence goes
// through the store.
type Coordinator struct {
	store       store.Store
	registry    *Registry
	broadcaster Broadcaster
	profiles    *ProfileCache
	logger      *slog.Logger
}

// NewCoordinator creates a live session coordinator.
func NewCoordinator(st store.Store, registry *Registry, broadcaster Broadcaster, profiles *ProfileCache, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:       st,
		registry:    registry,
		broadcaster: broadcaster,
		profiles:    profiles,
		logger:      logger,
	}
}

// GetOrCreateSession returns the workroom's active live session, creating
// one if none is running. A concurrent create loses the race against the
// partial unique index and falls back to reading the winner's row.
func (c *Coordinator) GetOrCreateSession(ctx context.Context, workroomID string) (*domain.LiveSession, error) {
	session, err := c.store.GetActiveLiveSession(ctx, workroomID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, store.ErrLiveSessionNotFound) {
		return nil, fmt.Errorf("get live session: %w", err)
	}

	sessionID, err := id.Generate(id.PrefixLiveSession)
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	session = &domain.LiveSession{
		ID:         sessionID,
		WorkroomID: workroomID,
		IsActive:   true,
		CreatedAt:  time.Now(),
	}

	err = c.store.CreateLiveSession(ctx, session)
	if errors.Is(err, store.ErrAlreadyExists) {
		return c.store.GetActiveLiveSession(ctx, workroomID)
	}
	if err != nil {
		return nil, fmt.Errorf("create live session: %w", err)
	}

	if c.logger != nil {
		c.logger.Info("live session started",
			slog.String("workroom_id", workroomID),
			slog.String("session_id", sessionID))
	}

	return session, nil
}

// Join admits a user into a workroom's live session: ensures a session is
// running, registers the connection, announces the join to the others,
// and sends the room snapshot to the joiner.
func (c *Coordinator) Join(ctx context.Context, workroomID, userID string) (*Client, error) {
	session, err := c.GetOrCreateSession(ctx, workroomID)
	if err != nil {
		return nil, err
	}

	profile, err := c.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	client := c.registry.Connect(workroomID, profile)

	state, err := c.sessionState(ctx, workroomID, session)
	if err != nil {
		return nil, err
	}
	c.broadcaster.SendToUser(workroomID, userID, state)

	return client, nil
}

// Leave runs the full disconnect cleanup: release the leaver's screen
// share, unregister and announce the leave, and end the session when the
// room empties. The share is cleared first so the others see the
// screen_share_update before the presence leave. Every step runs even if
// an earlier one fails. A client that was already replaced by a
// reconnect is a no-op, so a stale connection's cleanup never tears
// down its replacement.
func (c *Coordinator) Leave(ctx context.Context, workroomID string, client *Client) {
	if !c.registry.IsCurrent(workroomID, client) {
		return
	}
	userID := client.Profile.ID

	session, err := c.store.GetActiveLiveSession(ctx, workroomID)
	if err == nil && session.ScreenSharerID == userID {
		if err := c.SetScreenSharer(ctx, workroomID, "", nil); err != nil && c.logger != nil {
			c.logger.Error("clear screen sharer on leave", slog.Any("error", err))
		}
	} else if err != nil && !errors.Is(err, store.ErrLiveSessionNotFound) && c.logger != nil {
		c.logger.Error("get live session on leave", slog.Any("error", err))
	}

	remaining, ok := c.registry.Disconnect(workroomID, client)
	if !ok {
		return
	}

	if remaining == 0 {
		if err := c.End(ctx, workroomID); err != nil && c.logger != nil {
			c.logger.Error("end live session on leave", slog.Any("error", err))
		}
	}
}

// SetScreenSharer records who is sharing in the active session and
// broadcasts the change. An empty userID releases the share. A non-empty
// userID must be a currently connected participant.
func (c *Coordinator) SetScreenSharer(ctx context.Context, workroomID, userID string, signal any) error {
	if userID != "" && !c.registry.IsConnected(workroomID, userID) {
		return fmt.Errorf("user %s is not connected to workroom %s", userID, workroomID)
	}

	session, err := c.GetOrCreateSession(ctx, workroomID)
	if err != nil {
		return err
	}

	if err := c.store.SetScreenSharer(ctx, session.ID, userID); err != nil {
		return fmt.Errorf("set screen sharer: %w", err)
	}

	update := ScreenShareUpdateEvent{Type: EventScreenShareUpdate, Signal: signal}
	if userID != "" {
		update.ScreenSharerID = &userID
	}
	c.broadcaster.Broadcast(workroomID, update)

	return nil
}

// End stamps the active session as ended and tells the room. Ending a
// workroom with no active session is a no-op.
func (c *Coordinator) End(ctx context.Context, workroomID string) error {
	session, err := c.store.GetActiveLiveSession(ctx, workroomID)
	if errors.Is(err, store.ErrLiveSessionNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get live session: %w", err)
	}

	if err := c.store.EndLiveSession(ctx, session.ID, time.Now()); err != nil {
		return fmt.Errorf("end live session: %w", err)
	}

	c.broadcaster.Broadcast(workroomID, SessionEndEvent{
		Type:    EventSessionEnd,
		Message: "Live session has ended",
	})

	if c.logger != nil {
		c.logger.Info("live session ended",
			slog.String("workroom_id", workroomID),
			slog.String("session_id", session.ID))
	}

	return nil
}

// HandleMessage decodes and dispatches one inbound frame from a
// participant. Unknown or malformed messages earn the sender an error
// event instead of a dropped connection.
func (c *Coordinator) HandleMessage(ctx context.Context, workroomID, senderID string, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError(workroomID, senderID, "malformed message")
		return
	}

	switch msg.Type {
	case MessageChat:
		c.handleChat(ctx, workroomID, senderID, msg)
	case MessageScreenShare:
		c.handleScreenShare(ctx, workroomID, senderID, msg)
	case MessageTyping:
		c.handleTyping(ctx, workroomID, senderID, msg)
	default:
		c.sendError(workroomID, senderID, fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func (c *Coordinator) handleChat(ctx context.Context, workroomID, senderID string, msg ClientMessage) {
	if msg.Content == "" {
		c.sendError(workroomID, senderID, "chat message requires content")
		return
	}

	sender, err := c.profiles.Get(ctx, senderID)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("load sender profile", slog.Any("error", err))
		}
		return
	}

	c.broadcaster.Broadcast(workroomID, ChatEvent{
		Type:      EventChat,
		Sender:    sender,
		Content:   msg.Content,
		Timestamp: time.Now().UTC(),
	})
}

func (c *Coordinator) handleScreenShare(ctx context.Context, workroomID, senderID string, msg ClientMessage) {
	switch msg.Action {
	case ShareStart:
		if err := c.SetScreenSharer(ctx, workroomID, senderID, msg.Signal); err != nil {
			c.sendError(workroomID, senderID, "could not start screen share")
			if c.logger != nil {
				c.logger.Error("start screen share", slog.Any("error", err))
			}
		}

	case ShareStop:
		if err := c.SetScreenSharer(ctx, workroomID, "", nil); err != nil {
			c.sendError(workroomID, senderID, "could not stop screen share")
			if c.logger != nil {
				c.logger.Error("stop screen share", slog.Any("error", err))
			}
		}

	case ShareSignal:
		if msg.TargetUser == "" {
			c.sendError(workroomID, senderID, "signal requires target_user")
			return
		}
		c.broadcaster.SendToUser(workroomID, msg.TargetUser, WebRTCSignalEvent{
			Type:   EventWebRTCSignal,
			Signal: msg.Signal,
			Sender: senderID,
		})

	default:
		c.sendError(workroomID, senderID, fmt.Sprintf("unknown screen_share action %q", msg.Action))
	}
}

func (c *Coordinator) handleTyping(ctx context.Context, workroomID, senderID string, msg ClientMessage) {
	sender, err := c.profiles.Get(ctx, senderID)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("load sender profile", slog.Any("error", err))
		}
		return
	}

	c.broadcaster.Broadcast(workroomID, TypingEvent{
		Type:     EventTyping,
		User:     sender,
		IsTyping: msg.IsTyping,
	}, senderID)
}

// sessionState assembles the snapshot a joiner receives.
func (c *Coordinator) sessionState(ctx context.Context, workroomID string, session *domain.LiveSession) (SessionStateEvent, error) {
	state := SessionStateEvent{
		Type:         EventSessionState,
		IsActive:     session.IsActive,
		Participants: c.registry.Participants(workroomID),
	}

	if session.ScreenSharerID != "" {
		sharer, err := c.profiles.Get(ctx, session.ScreenSharerID)
		if err != nil {
			return state, err
		}
		state.ScreenSharer = &sharer
	}

	return state, nil
}

func (c *Coordinator) sendError(workroomID, userID, message string) {
	c.broadcaster.SendToUser(workroomID, userID, ErrorEvent{
		Type:    EventError,
		Message: message,
	})
}
