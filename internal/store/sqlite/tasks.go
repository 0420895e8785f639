package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/workroomapp/workroom-server/internal/domain"
	"github.com/workroomapp/workroom-server/internal/scoring"
	"github.com/workroomapp/workroom-server/internal/store"
)

// taskColumns is the ordered list of columns selected in task queries.
// Must match the scan order in scanTask.
const taskColumns = `id, title, description, category, status, created_by_id, workroom_id, due_date, completed_at, created_at, updated_at`

// scanTask scans a sql.Row (or sql.Rows via its Scan method) into a domain.Task.
func scanTask(scanner interface{ Scan(dest ...any) error }) (*domain.Task, error) {
	var t domain.Task

	var (
		description sql.NullString
		category    sql.NullString
		workroomID  sql.NullString
		dueDate     sql.NullString
		completedAt sql.NullString
		createdAt   string
		updatedAt   string
	)

	err := scanner.Scan(
		&t.ID,
		&t.Title,
		&description,
		&category,
		&t.Status,
		&t.CreatedByID,
		&workroomID,
		&dueDate,
		&completedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Description = description.String
	t.Category = category.String
	t.WorkroomID = workroomID.String

	if t.DueDate, err = parseNullableTime(dueDate); err != nil {
		return nil, err
	}
	if t.CompletedAt, err = parseNullableTime(completedAt); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &t, nil
}

// CreateTask inserts a new task.
func (s *Store) CreateTask(ctx context.Context, task *domain.Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, category, status, created_by_id, workroom_id, due_date, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID,
		task.Title,
		nullString(task.Description),
		nullString(task.Category),
		task.Status,
		task.CreatedByID,
		nullString(task.WorkroomID),
		nullTimeString(task.DueDate),
		nullTimeString(task.CompletedAt),
		formatTime(task.CreatedAt),
		formatTime(task.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask performs a full row update on an existing task.
func (s *Store) UpdateTask(ctx context.Context, task *domain.Task) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?,
			description = ?,
			category = ?,
			status = ?,
			workroom_id = ?,
			due_date = ?,
			completed_at = ?,
			updated_at = ?
		WHERE id = ?`,
		task.Title,
		nullString(task.Description),
		nullString(task.Category),
		task.Status,
		nullString(task.WorkroomID),
		nullTimeString(task.DueDate),
		nullTimeString(task.CompletedAt),
		formatTime(task.UpdatedAt),
		task.ID,
	)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrTaskNotFound
	}
	return nil
}

// DeleteTask performs a hard delete of a task by ID.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrTaskNotFound
	}
	return nil
}

// ListTasksByCreator returns all tasks created by the given user.
func (s *Store) ListTasksByCreator(ctx context.Context, userID string) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE created_by_id = ? ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTasks(rows)
}

// ListCompletedWorkroomTasks returns the user's completed tasks scoped to a workroom.
func (s *Store) ListCompletedWorkroomTasks(ctx context.Context, workroomID, userID string) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE workroom_id = ? AND created_by_id = ? AND status = ?
		 ORDER BY created_at ASC`,
		workroomID, userID, domain.TaskStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTasks(rows)
}

func collectTasks(rows *sql.Rows) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CountCompletedTasks returns how many tasks the user has completed.
func (s *Store) CountCompletedTasks(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE created_by_id = ? AND status = ?`,
		userID, domain.TaskStatusCompleted).Scan(&count)
	return count, err
}

// CountTasksCreatedOn aggregates the user's tasks created on the UTC day of `day`.
func (s *Store) CountTasksCreatedOn(ctx context.Context, userID string, day time.Time) (store.DailyTaskCounts, error) {
	start := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	var counts store.DailyTaskCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status != ? THEN 1 ELSE 0 END), 0)
		FROM tasks
		WHERE created_by_id = ? AND created_at >= ? AND created_at < ?`,
		domain.TaskStatusCompleted,
		domain.TaskStatusCompleted,
		userID,
		formatTime(start),
		formatTime(end),
	).Scan(&counts.Completed, &counts.Pending)
	return counts, err
}

// ActivityCounts aggregates the per-user numbers the scoring engine consumes.
func (s *Store) ActivityCounts(ctx context.Context, userID string) (scoring.ActivityCounts, error) {
	var c scoring.ActivityCounts

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? AND completed_at IS NOT NULL AND due_date IS NOT NULL AND completed_at <= due_date THEN 1 ELSE 0 END), 0)
		FROM tasks WHERE created_by_id = ?`,
		domain.TaskStatusCompleted,
		domain.TaskStatusCompleted,
		userID,
	).Scan(&c.TasksCreated, &c.TasksCompleted, &c.OnTimeCompletions)
	if err != nil {
		return c, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN invited_by_id IS NOT NULL AND invited_by_id != user_id THEN 1 ELSE 0 END), 0)
		FROM task_collaborators WHERE user_id = ?`,
		userID,
	).Scan(&c.Collaborations, &c.InvitedByOthers)
	return c, err
}

// AddCollaborator links an invited user to a task.
// Returns store.ErrAlreadyExists if the user already collaborates on the task.
func (s *Store) AddCollaborator(ctx context.Context, collab *domain.TaskCollaborator) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_collaborators (task_id, user_id, invited_by_id, created_at)
		VALUES (?, ?, ?, ?)`,
		collab.TaskID,
		collab.UserID,
		nullString(collab.InvitedByID),
		formatTime(collab.CreatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// ListCollaboratorIDs returns the user IDs collaborating on a task.
func (s *Store) ListCollaboratorIDs(ctx context.Context, taskID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM task_collaborators WHERE task_id = ? ORDER BY created_at ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountCompletedCollaborations counts the user's collaborations on completed
// tasks scoped to a workroom. Feeds the leaderboard teamwork score.
func (s *Store) CountCompletedCollaborations(ctx context.Context, workroomID, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM task_collaborators tc
		JOIN tasks t ON t.id = tc.task_id
		WHERE tc.user_id = ? AND t.workroom_id = ? AND t.status = ?`,
		userID, workroomID, domain.TaskStatusCompleted).Scan(&count)
	return count, err
}

// ApplyTaskCompletion applies every consequence of completing one task in a
// single transaction: the task row, XP deltas, the streak row, and badge
// awards. A failure anywhere rolls the whole operation back.
func (s *Store) ApplyTaskCompletion(ctx context.Context, completion *store.TaskCompletion) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin completion tx: %w", err)
	}
	defer tx.Rollback()

	task := completion.Task
	result, err := tx.ExecContext(ctx, `
		UPDATE tasks SET status = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
		task.Status,
		nullTimeString(task.CompletedAt),
		formatTime(task.UpdatedAt),
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return store.ErrTaskNotFound
	}

	for userID, delta := range completion.XPAwards {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET xp = xp + ?, updated_at = ? WHERE id = ?`,
			delta, formatTime(task.UpdatedAt), userID); err != nil {
			return fmt.Errorf("award xp to %s: %w", userID, err)
		}
	}

	if streak := completion.Streak; streak != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_streaks (user_id, current_streak, highest_streak, last_active_date, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				current_streak = excluded.current_streak,
				highest_streak = excluded.highest_streak,
				last_active_date = excluded.last_active_date,
				updated_at = excluded.updated_at`,
			streak.UserID,
			streak.CurrentStreak,
			streak.HighestStreak,
			nullDateString(streak.LastActiveDate),
			formatTime(streak.UpdatedAt),
		); err != nil {
			return fmt.Errorf("upsert streak: %w", err)
		}
	}

	for _, award := range completion.BadgeAwards {
		// OR IGNORE keeps the at-most-once award invariant even if the same
		// badge was granted by a concurrent completion.
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO user_badges (user_id, badge_id, awarded_at)
			VALUES (?, ?, ?)`,
			award.UserID, award.BadgeID, formatTime(award.AwardedAt)); err != nil {
			return fmt.Errorf("award badge: %w", err)
		}
	}

	return tx.Commit()
}
