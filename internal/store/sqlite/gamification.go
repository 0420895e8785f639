package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/workroomapp/workroom-server/internal/domain"
	"github.com/workroomapp/workroom-server/internal/store"
)

// GetUserLevels returns the user's level rows, one per category that has
// been scored so far.
func (s *Store) GetUserLevels(ctx context.Context, userID string) ([]*domain.UserLevel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, category, tier, points, updated_at
		FROM user_levels WHERE user_id = ? ORDER BY category ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var levels []*domain.UserLevel
	for rows.Next() {
		var lvl domain.UserLevel
		var updatedAt string
		if err := rows.Scan(&lvl.ID, &lvl.UserID, &lvl.Category, &lvl.Tier, &lvl.Points, &updatedAt); err != nil {
			return nil, err
		}
		if lvl.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		levels = append(levels, &lvl)
	}
	return levels, rows.Err()
}

// UpsertUserLevel inserts or updates the level row for (user, category).
func (s *Store) UpsertUserLevel(ctx context.Context, level *domain.UserLevel) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_levels (id, user_id, category, tier, points, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, category) DO UPDATE SET
			tier = excluded.tier,
			points = excluded.points,
			updated_at = excluded.updated_at`,
		level.ID,
		level.UserID,
		level.Category,
		level.Tier,
		level.Points,
		formatTime(level.UpdatedAt),
	)
	return err
}

// GetStreak returns the user's streak row, or store.ErrNotFound if the user
// has no recorded activity yet.
func (s *Store) GetStreak(ctx context.Context, userID string) (*domain.UserStreak, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, current_streak, highest_streak, last_active_date, updated_at
		FROM user_streaks WHERE user_id = ?`, userID)

	var streak domain.UserStreak
	var lastActive sql.NullString
	var updatedAt string

	err := row.Scan(&streak.UserID, &streak.CurrentStreak, &streak.HighestStreak, &lastActive, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if streak.LastActiveDate, err = parseNullableDate(lastActive); err != nil {
		return nil, err
	}
	if streak.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &streak, nil
}

// UpsertStreak inserts or updates the user's streak row.
func (s *Store) UpsertStreak(ctx context.Context, streak *domain.UserStreak) error {
	_, err := s.db.ExecContext(ctx, `
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
	)
	return err
}

const badgeColumns = `id, name, description, icon_url, created_at, updated_at`

func scanBadge(scanner interface{ Scan(dest ...any) error }) (*domain.Badge, error) {
	var b domain.Badge

	var (
		description sql.NullString
		iconURL     sql.NullString
		createdAt   string
		updatedAt   string
	)

	err := scanner.Scan(&b.ID, &b.Name, &description, &iconURL, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	b.Description = description.String
	b.IconURL = iconURL.String

	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &b, nil
}

// CreateBadge inserts a badge definition.
// Returns store.ErrAlreadyExists if a badge with the same name exists.
func (s *Store) CreateBadge(ctx context.Context, badge *domain.Badge) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO badges (id, name, description, icon_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		badge.ID,
		badge.Name,
		nullString(badge.Description),
		nullString(badge.IconURL),
		formatTime(badge.CreatedAt),
		formatTime(badge.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// GetBadgeByName retrieves a badge definition by its unique name.
func (s *Store) GetBadgeByName(ctx context.Context, name string) (*domain.Badge, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+badgeColumns+` FROM badges WHERE name = ?`, name)

	badge, err := scanBadge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrBadgeNotFound
	}
	if err != nil {
		return nil, err
	}
	return badge, nil
}

// HasBadge reports whether the badge has already been awarded to the user.
func (s *Store) HasBadge(ctx context.Context, userID, badgeID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM user_badges WHERE user_id = ? AND badge_id = ?`,
		userID, badgeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AwardBadge records a badge award. Awarding an already-held badge is a no-op.
func (s *Store) AwardBadge(ctx context.Context, award *domain.UserBadge) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_badges (user_id, badge_id, awarded_at)
		VALUES (?, ?, ?)`,
		award.UserID, award.BadgeID, formatTime(award.AwardedAt))
	return err
}

// ListUserBadges returns the badge definitions the user has earned, in
// award order.
func (s *Store) ListUserBadges(ctx context.Context, userID string) ([]*domain.Badge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixColumns("b", badgeColumns)+`
		FROM badges b
		JOIN user_badges ub ON ub.badge_id = b.id
		WHERE ub.user_id = ?
		ORDER BY ub.awarded_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var badges []*domain.Badge
	for rows.Next() {
		badge, err := scanBadge(rows)
		if err != nil {
			return nil, err
		}
		badges = append(badges, badge)
	}
	return badges, rows.Err()
}

// ReplaceLeaderboard swaps the workroom's standings for a freshly ranked
// set of entries in one transaction.
func (s *Store) ReplaceLeaderboard(ctx context.Context, workroomID string, entries []*domain.LeaderboardEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin leaderboard tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM leaderboards WHERE workroom_id = ?`, workroomID); err != nil {
		return fmt.Errorf("clear leaderboard: %w", err)
	}

	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO leaderboards (id, workroom_id, user_id, score, teamwork_score, rank, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			entry.ID,
			workroomID,
			entry.UserID,
			entry.Score,
			entry.TeamworkScore,
			entry.Rank,
			formatTime(entry.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert leaderboard entry: %w", err)
		}
	}

	return tx.Commit()
}

// GetLeaderboard returns the workroom's standings ordered by rank.
func (s *Store) GetLeaderboard(ctx context.Context, workroomID string) ([]*domain.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.workroom_id, l.user_id, u.username, l.score, l.teamwork_score, l.rank, l.updated_at
		FROM leaderboards l
		JOIN users u ON u.id = l.user_id
		WHERE l.workroom_id = ?
		ORDER BY l.rank ASC, u.username ASC`, workroomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		var updatedAt string
		if err := rows.Scan(&e.ID, &e.WorkroomID, &e.UserID, &e.Username, &e.Score, &e.TeamworkScore, &e.Rank, &updatedAt); err != nil {
			return nil, err
		}
		if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
