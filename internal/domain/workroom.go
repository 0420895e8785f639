package domain

import "time"

// Workroom is a shared collaborative space containing tasks and members.
type Workroom struct {
	Entity
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedByID string `json:"created_by_id"`
}

// WorkroomMember links a user to a workroom.
type WorkroomMember struct {
	WorkroomID string    `json:"workroom_id"`
	UserID     string    `json:"user_id"`
	JoinedAt   time.Time `json:"joined_at"`
}

// LiveSession is the persisted record of a workroom's realtime session.
// At most one session per workroom is active at a time.
type LiveSession struct {
	ID             string     `json:"id"`
	WorkroomID     string     `json:"workroom_id"`
	ScreenSharerID string     `json:"screen_sharer_id,omitempty"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
}

// End marks the session inactive and stamps the end time.
// Ending an already ended session leaves it unchanged.
func (s *LiveSession) End(at time.Time) {
	if !s.IsActive {
		return
	}
	s.IsActive = false
	s.EndedAt = &at
}
