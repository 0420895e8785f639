package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/workroomapp/workroom-server/internal/domain"
	"github.com/workroomapp/workroom-server/internal/store"
)

// GetActiveLiveSession returns the workroom's active session, or
// store.ErrLiveSessionNotFound when none is running.
func (s *Store) GetActiveLiveSession(ctx context.Context, workroomID string) (*domain.LiveSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workroom_id, screen_sharer_id, is_active, created_at, ended_at
		FROM live_sessions WHERE workroom_id = ? AND is_active = 1`, workroomID)

	var session domain.LiveSession
	var sharerID sql.NullString
	var endedAt sql.NullString
	var createdAt string

	err := row.Scan(&session.ID, &session.WorkroomID, &sharerID, &session.IsActive, &createdAt, &endedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrLiveSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	session.ScreenSharerID = sharerID.String

	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if session.EndedAt, err = parseNullableTime(endedAt); err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateLiveSession inserts a new active session for a workroom.
// The partial unique index enforces one active session per workroom;
// a second insert returns store.ErrAlreadyExists.
func (s *Store) CreateLiveSession(ctx context.Context, session *domain.LiveSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO live_sessions (id, workroom_id, screen_sharer_id, is_active, created_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.WorkroomID,
		nullString(session.ScreenSharerID),
		session.IsActive,
		formatTime(session.CreatedAt),
		nullTimeString(session.EndedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// SetScreenSharer records who is sharing their screen in a session.
// An empty userID clears the sharer.
func (s *Store) SetScreenSharer(ctx context.Context, sessionID, userID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE live_sessions SET screen_sharer_id = ? WHERE id = ? AND is_active = 1`,
		nullString(userID), sessionID)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrLiveSessionNotFound
	}
	return nil
}

// EndLiveSession deactivates a session and stamps its end time.
// Ending an already-ended session is a no-op.
func (s *Store) EndLiveSession(ctx context.Context, sessionID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE live_sessions SET is_active = 0, screen_sharer_id = NULL, ended_at = ?
		WHERE id = ? AND is_active = 1`,
		formatTime(at), sessionID)
	return err
}
