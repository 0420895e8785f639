package realtime

import (
	"encoding/json/v2"
	"log/slog"
	"sync"
	"time"

	"github.com/workroomapp/workroom-server/internal/domain"
)

// Broadcaster fans events out to a workroom's connected participants.
// The in-process Registry implements it; a multi-instance deployment can
// substitute an implementation backed by a shared broker.
type Broadcaster interface {
	// Broadcast sends an event to every participant except those listed.
	Broadcast(workroomID string, event any, exclude ...string)
	// SendToUser sends an event to one participant. Reports whether the
	// user was connected.
	SendToUser(workroomID, userID string, event any) bool
}

// Client is one user's connection to a workroom.
// Send carries pre-marshaled frames for the socket writer; Done closes
// when the registry drops the client.
type Client struct {
	WorkroomID  string
	Profile     domain.Profile
	Send        chan []byte
	Done        chan struct{}
	ConnectedAt time.Time
}

// Registry tracks which users are connected to which workrooms and fans
// events out to them. One connection per (workroom, user): a second
// connect replaces the first.
type Registry struct {
	logger     *slog.Logger
	sendBuffer int

	// mu is held exclusively for the whole of every fan-out so events
	// keep their issue order per workroom.
	mu    sync.Mutex
	rooms map[string]map[string]*Client
}

// NewRegistry creates a connection registry. sendBuffer sizes each
// client's outbound channel; a client that falls that far behind is
// dropped rather than allowed to stall the room.
func NewRegistry(sendBuffer int, logger *slog.Logger) *Registry {
	return &Registry{
		logger:     logger,
		sendBuffer: sendBuffer,
		rooms:      make(map[string]map[string]*Client),
	}
}

// Connect registers a user in a workroom and announces the join to the
// other participants. The joiner does not receive their own presence
// event.
func (r *Registry) Connect(workroomID string, profile domain.Profile) *Client {
	client := &Client{
		WorkroomID:  workroomID,
		Profile:     profile,
		Send:        make(chan []byte, r.sendBuffer),
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	r.mu.Lock()
	room, ok := r.rooms[workroomID]
	if !ok {
		room = make(map[string]*Client)
		r.rooms[workroomID] = room
	}
	replaced := room[profile.ID]
	room[profile.ID] = client
	participants := len(room)
	r.mu.Unlock()

	if replaced != nil {
		close(replaced.Done)
	}

	r.Broadcast(workroomID, NewPresenceEvent(PresenceJoin, profile), profile.ID)

	if r.logger != nil {
		r.logger.Info("participant connected",
			slog.String("workroom_id", workroomID),
			slog.String("user_id", profile.ID),
			slog.Int("participants", participants))
	}

	return client
}

// Disconnect removes a client from a workroom, closes it, and announces
// the leave. Returns the number of participants left. A client that has
// already been replaced by a reconnect is a no-op: the entry belongs to
// the replacement, not the leaver.
func (r *Registry) Disconnect(workroomID string, client *Client) (remaining int, ok bool) {
	userID := client.Profile.ID

	r.mu.Lock()
	room, exists := r.rooms[workroomID]
	if !exists {
		r.mu.Unlock()
		return 0, false
	}
	if room[userID] != client {
		r.mu.Unlock()
		return len(room), false
	}
	delete(room, userID)
	remaining = len(room)
	if remaining == 0 {
		delete(r.rooms, workroomID)
	}
	r.mu.Unlock()

	close(client.Done)

	r.Broadcast(workroomID, NewPresenceEvent(PresenceLeave, client.Profile))

	if r.logger != nil {
		r.logger.Info("participant disconnected",
			slog.String("workroom_id", workroomID),
			slog.String("user_id", userID),
			slog.Duration("duration", time.Since(client.ConnectedAt)),
			slog.Int("participants", remaining))
	}

	return remaining, true
}

// Broadcast marshals the event once and sends it to every participant in
// the workroom except those excluded. Slow clients are dropped from the
// room rather than blocking fan-out.
func (r *Registry) Broadcast(workroomID string, event any, exclude ...string) {
	payload, err := json.Marshal(event)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("marshal broadcast event", slog.Any("error", err))
		}
		return
	}

	excluded := make(map[string]bool, len(exclude))
	for _, userID := range exclude {
		excluded[userID] = true
	}

	r.mu.Lock()
	room := r.rooms[workroomID]
	var slow []*Client
	for userID, client := range room {
		if excluded[userID] {
			continue
		}
		select {
		case client.Send <- payload:
		default:
			slow = append(slow, client)
			if r.logger != nil {
				r.logger.Warn("dropping slow participant",
					slog.String("workroom_id", workroomID),
					slog.String("user_id", userID))
			}
		}
	}
	r.mu.Unlock()

	for _, client := range slow {
		r.Disconnect(workroomID, client)
	}
}

// SendToUser sends an event to one participant. Reports whether the user
// was connected; a full send buffer counts as not delivered.
func (r *Registry) SendToUser(workroomID, userID string, event any) bool {
	payload, err := json.Marshal(event)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("marshal unicast event", slog.Any("error", err))
		}
		return false
	}

	r.mu.Lock()
	client, ok := r.rooms[workroomID][userID]
	r.mu.Unlock()
	if !ok {
		return false
	}

	select {
	case client.Send <- payload:
		return true
	default:
		return false
	}
}

// IsConnected reports whether a user currently has a connection to the
// workroom.
func (r *Registry) IsConnected(workroomID, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rooms[workroomID][userID]
	return ok
}

// IsCurrent reports whether client is still the registered connection
// for its user in the workroom.
func (r *Registry) IsCurrent(workroomID string, client *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[workroomID][client.Profile.ID] == client
}

// Participants returns the profiles connected to a workroom.
func (r *Registry) Participants(workroomID string) []domain.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := r.rooms[workroomID]
	profiles := make([]domain.Profile, 0, len(room))
	for _, client := range room {
		profiles = append(profiles, client.Profile)
	}
	return profiles
}

// ParticipantCount returns how many users are connected to a workroom.
func (r *Registry) ParticipantCount(workroomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[workroomID])
}
