// Package realtime implements workroom live sessions over WebSockets:
// the connection registry, presence and chat fan-out, screen share
// coordination, and WebRTC signal relay.
package realtime

import (
	"time"

	"github.com/workroomapp/workroom-server/internal/domain"
)

// EventType tags every message sent to clients.
type EventType string

const (
	// EventPresence announces a participant joining or leaving.
	EventPresence EventType = "presence"
	// EventSessionState is the snapshot sent to a participant on join.
	EventSessionState EventType = "session_state"
	// EventChat carries a chat message to every participant.
	EventChat EventType = "chat"
	// EventScreenShareUpdate announces a change of screen sharer.
	EventScreenShareUpdate EventType = "screen_share_update"
	// EventWebRTCSignal relays a signaling payload to one participant.
	EventWebRTCSignal EventType = "webrtc_signal"
	// EventTyping announces a typing indicator, excluding the typist.
	EventTyping EventType = "typing"
	// EventAccessDenied is sent when admission to a workroom fails.
	EventAccessDenied EventType = "access_denied"
	// EventSessionEnd announces that the live session has ended.
	EventSessionEnd EventType = "session_end"
	// EventError reports a malformed or unknown inbound message.
	EventError EventType = "error"
)

// PresenceAction is the action field of a presence event.
type PresenceAction string

const (
	// PresenceJoin marks a participant arriving.
	PresenceJoin PresenceAction = "join"
	// PresenceLeave marks a participant leaving.
	PresenceLeave PresenceAction = "leave"
)

// PresenceEvent announces a join or leave to the rest of the workroom.
type PresenceEvent struct {
	Type      EventType      `json:"type"`
	Action    PresenceAction `json:"action"`
	User      domain.Profile `json:"user"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewPresenceEvent builds a presence event for a user.
func NewPresenceEvent(action PresenceAction, user domain.Profile) PresenceEvent {
	return PresenceEvent{
		Type:      EventPresence,
		Action:    action,
		User:      user,
		Timestamp: time.Now().UTC(),
	}
}

// SessionStateEvent is the full room snapshot a joiner receives.
type SessionStateEvent struct {
	Type         EventType        `json:"type"`
	IsActive     bool             `json:"is_active"`
	ScreenSharer *domain.Profile  `json:"screen_sharer"`
	Participants []domain.Profile `json:"participants"`
}

// ChatEvent carries one chat message.
type ChatEvent struct {
	Type      EventType      `json:"type"`
	Sender    domain.Profile `json:"sender"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
}

// ScreenShareUpdateEvent announces the current sharer. ScreenSharerID is
// null when sharing stopped; Signal carries the opaque WebRTC offer when
// sharing starts.
type ScreenShareUpdateEvent struct {
	Type           EventType `json:"type"`
	ScreenSharerID *string   `json:"screen_sharer_id"`
	Signal         any       `json:"signal,omitempty"`
}

// WebRTCSignalEvent relays an opaque signaling payload to one target.
type WebRTCSignalEvent struct {
	Type   EventType `json:"type"`
	Signal any       `json:"signal"`
	Sender string    `json:"sender"`
}

// TypingEvent announces a typing indicator.
type TypingEvent struct {
	Type     EventType      `json:"type"`
	User     domain.Profile `json:"user"`
	IsTyping bool           `json:"is_typing"`
}

// AccessDeniedEvent is sent instead of closing the socket abruptly, so
// clients can show a useful message.
type AccessDeniedEvent struct {
	Type       EventType `json:"type"`
	Message    string    `json:"message"`
	WorkroomID string    `json:"workroom_id"`
	Suggestion string    `json:"suggestion,omitempty"`
}

// SessionEndEvent announces that the room's live session ended.
type SessionEndEvent struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}

// ErrorEvent reports a rejected inbound message back to its sender.
type ErrorEvent struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
}

// MessageType tags inbound client messages. The set is closed; anything
// else gets an ErrorEvent back.
type MessageType string

const (
	// MessageChat sends a chat line to the room.
	MessageChat MessageType = "chat"
	// MessageScreenShare starts, stops, or signals a screen share.
	MessageScreenShare MessageType = "screen_share"
	// MessageTyping toggles the sender's typing indicator.
	MessageTyping MessageType = "typing"
)

// ScreenShareAction is the action field of a screen_share message.
type ScreenShareAction string

const (
	// ShareStart claims the screen share for the sender.
	ShareStart ScreenShareAction = "start"
	// ShareStop releases the sender's screen share.
	ShareStop ScreenShareAction = "stop"
	// ShareSignal relays WebRTC signaling to one participant.
	ShareSignal ScreenShareAction = "signal"
)

// ClientMessage is the decoded form of every inbound message.
type ClientMessage struct {
	Type       MessageType       `json:"type"`
	Content    string            `json:"content,omitempty"`
	Action     ScreenShareAction `json:"action,omitempty"`
	Signal     any               `json:"signal,omitempty"`
	TargetUser string            `json:"target_user,omitempty"`
	IsTyping   bool              `json:"is_typing,omitempty"`
}
