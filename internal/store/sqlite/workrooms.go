package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/workroomapp/workroom-server/internal/domain"
	"github.com/workroomapp/workroom-server/internal/store"
)

const workroomColumns = `id, name, description, created_by_id, created_at, updated_at`

func scanWorkroom(scanner interface{ Scan(dest ...any) error }) (*domain.Workroom, error) {
	var w domain.Workroom

	var (
		description sql.NullString
		createdAt   string
		updatedAt   string
	)

	err := scanner.Scan(&w.ID, &w.Name, &description, &w.CreatedByID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	w.Description = description.String

	if w.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if w.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &w, nil
}

// CreateWorkroom inserts a new workroom.
func (s *Store) CreateWorkroom(ctx context.Context, room *domain.Workroom) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workrooms (id, name, description, created_by_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		room.ID,
		room.Name,
		nullString(room.Description),
		room.CreatedByID,
		formatTime(room.CreatedAt),
		formatTime(room.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// GetWorkroom retrieves a workroom by ID.
func (s *Store) GetWorkroom(ctx context.Context, id string) (*domain.Workroom, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+workroomColumns+` FROM workrooms WHERE id = ?`, id)

	room, err := scanWorkroom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrWorkroomNotFound
	}
	if err != nil {
		return nil, err
	}
	return room, nil
}

// UpdateWorkroom performs a full row update on an existing workroom.
func (s *Store) UpdateWorkroom(ctx context.Context, room *domain.Workroom) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE workrooms SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		room.Name,
		nullString(room.Description),
		formatTime(room.UpdatedAt),
		room.ID,
	)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrWorkroomNotFound
	}
	return nil
}

// DeleteWorkroom removes a workroom. Members, leaderboards, and live
// sessions cascade.
func (s *Store) DeleteWorkroom(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM workrooms WHERE id = ?`, id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrWorkroomNotFound
	}
	return nil
}

// ListWorkroomsForUser returns every workroom the user is a member of.
func (s *Store) ListWorkroomsForUser(ctx context.Context, userID string) ([]*domain.Workroom, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixColumns("w", workroomColumns)+`
		FROM workrooms w
		JOIN workroom_members wm ON wm.workroom_id = w.id
		WHERE wm.user_id = ?
		ORDER BY w.created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []*domain.Workroom
	for rows.Next() {
		room, err := scanWorkroom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// AddMember links a user to a workroom.
// Returns store.ErrAlreadyExists if the user is already a member.
func (s *Store) AddMember(ctx context.Context, workroomID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workroom_members (workroom_id, user_id, joined_at)
		VALUES (?, ?, ?)`,
		workroomID, userID, formatTime(nowUTC()))
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// IsMember reports whether the user belongs to the workroom.
func (s *Store) IsMember(ctx context.Context, userID, workroomID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM workroom_members WHERE workroom_id = ? AND user_id = ?`,
		workroomID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListMembers returns the users belonging to a workroom in join order.
func (s *Store) ListMembers(ctx context.Context, workroomID string) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixColumns("u", userColumns)+`
		FROM users u
		JOIN workroom_members wm ON wm.user_id = u.id
		WHERE wm.workroom_id = ?
		ORDER BY wm.joined_at ASC`, workroomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
