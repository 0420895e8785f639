package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/workroomapp/workroom-server/internal/domain"
	"github.com/workroomapp/workroom-server/internal/id"
	"github.com/workroomapp/workroom-server/internal/scoring"
	"github.com/workroomapp/workroom-server/internal/store"
)

// BadgeRule decides whether a user has earned a named badge.
// Predicates run before the triggering completion is persisted, so counts
// they read do not yet include the task being completed.
type BadgeRule struct {
	Name      string
	Predicate func(ctx context.Context, st store.Store, userID string) (bool, error)
}

// GamificationService serves levels, streaks, and badges.
// Level points are derived state: they are recomputed from activity counts
// on every read rather than patched incrementally, so they can never drift.
type GamificationService struct {
	store  store.Store
	logger *slog.Logger
	rules  []BadgeRule
}

// NewGamificationService creates a new gamification service with the
// built-in badge rules registered.
func NewGamificationService(st store.Store, logger *slog.Logger) *GamificationService {
	s := &GamificationService{store: st, logger: logger}
	s.RegisterBadgeRule(BadgeRule{
		Name: "Task Master",
		Predicate: func(ctx context.Context, st store.Store, userID string) (bool, error) {
			count, err := st.CountCompletedTasks(ctx, userID)
			if err != nil {
				return false, err
			}
			return count+1 >= taskMasterThreshold, nil
		},
	})
	return s
}

// RegisterBadgeRule adds a badge rule. Not safe for concurrent use;
// register rules during startup.
func (s *GamificationService) RegisterBadgeRule(rule BadgeRule) {
	s.rules = append(s.rules, rule)
}

// PlanBadgeAwards evaluates every rule for a user and returns the awards
// to persist. Badges the user already holds, and badges missing from the
// catalog, are skipped.
func (s *GamificationService) PlanBadgeAwards(ctx context.Context, userID string, now time.Time) ([]domain.UserBadge, error) {
	var awards []domain.UserBadge
	for _, rule := range s.rules {
		earned, err := rule.Predicate(ctx, s.store, userID)
		if err != nil {
			return nil, fmt.Errorf("evaluate badge %q: %w", rule.Name, err)
		}
		if !earned {
			continue
		}

		badge, err := s.store.GetBadgeByName(ctx, rule.Name)
		if errors.Is(err, store.ErrBadgeNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get badge %q: %w", rule.Name, err)
		}

		held, err := s.store.HasBadge(ctx, userID, badge.ID)
		if err != nil {
			return nil, fmt.Errorf("check badge %q: %w", rule.Name, err)
		}
		if held {
			continue
		}

		awards = append(awards, domain.UserBadge{
			UserID:    userID,
			BadgeID:   badge.ID,
			AwardedAt: now,
		})
	}
	return awards, nil
}

// seedBadges are created at startup if missing. Award rules live in the
// task completion flow.
var seedBadges = []domain.Badge{
	{
		Name:        "Task Master",
		Description: "Completed 10 tasks",
	},
}

// taskMasterThreshold is the completed-task count that earns Task Master.
const taskMasterThreshold = 10

// EnsureBadges creates the built-in badge catalog if it doesn't exist yet.
// Safe to call on every startup.
func (s *GamificationService) EnsureBadges(ctx context.Context) error {
	for _, seed := range seedBadges {
		_, err := s.store.GetBadgeByName(ctx, seed.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrBadgeNotFound) {
			return fmt.Errorf("get badge %q: %w", seed.Name, err)
		}

		badge := seed
		badgeID, err := id.Generate(id.PrefixBadge)
		if err != nil {
			return fmt.Errorf("generate badge ID: %w", err)
		}
		badge.ID = badgeID
		badge.InitTimestamps()

		if err := s.store.CreateBadge(ctx, &badge); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
			return fmt.Errorf("create badge %q: %w", seed.Name, err)
		}

		if s.logger != nil {
			s.logger.Info("Seeded badge", "name", seed.Name)
		}
	}
	return nil
}

// GetLevels recomputes and returns a user's level in every category.
func (s *GamificationService) GetLevels(ctx context.Context, userID string) ([]*domain.UserLevel, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, mapUserErr(err)
	}

	counts, err := s.store.ActivityCounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("activity counts: %w", err)
	}

	existing, err := s.store.GetUserLevels(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user levels: %w", err)
	}
	byCategory := make(map[domain.LevelCategory]*domain.UserLevel, len(existing))
	for _, lvl := range existing {
		byCategory[lvl.Category] = lvl
	}

	now := time.Now()
	levels := make([]*domain.UserLevel, 0, len(domain.LevelCategories()))
	for _, category := range domain.LevelCategories() {
		points := scoring.CategoryPoints(category, counts)

		level := byCategory[category]
		if level == nil {
			levelID, err := id.Generate(id.PrefixLevel)
			if err != nil {
				return nil, fmt.Errorf("generate level ID: %w", err)
			}
			level = &domain.UserLevel{
				ID:       levelID,
				UserID:   userID,
				Category: category,
			}
		}

		if level.Points != points || level.Tier == "" {
			level.Points = points
			level.Tier = scoring.TierForPoints(points)
			level.UpdatedAt = now
			if err := s.store.UpsertUserLevel(ctx, level); err != nil {
				return nil, fmt.Errorf("upsert level %s: %w", category, err)
			}
		}

		levels = append(levels, level)
	}

	return levels, nil
}

// GetStreak returns a user's streak. Users who never completed a task get
// a zero streak rather than a not-found error.
func (s *GamificationService) GetStreak(ctx context.Context, userID string) (*domain.UserStreak, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, mapUserErr(err)
	}

	streak, err := s.store.GetStreak(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return &domain.UserStreak{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get streak: %w", err)
	}
	return streak, nil
}

// GetBadges returns the badges a user has earned.
func (s *GamificationService) GetBadges(ctx context.Context, userID string) ([]*domain.Badge, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, mapUserErr(err)
	}

	badges, err := s.store.ListUserBadges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user badges: %w", err)
	}
	return badges, nil
}

// nextStreak computes the streak row to persist after activity at `now`.
// Returns nil when the streak is already counted for today.
func nextStreak(prev *domain.UserStreak, userID string, now time.Time) *domain.UserStreak {
	today := now.UTC().Truncate(24 * time.Hour)

	if prev == nil || prev.LastActiveDate == nil {
		return &domain.UserStreak{
			UserID:         userID,
			CurrentStreak:  1,
			HighestStreak:  1,
			LastActiveDate: &today,
			UpdatedAt:      now,
		}
	}

	last := prev.LastActiveDate.UTC().Truncate(24 * time.Hour)
	switch today.Sub(last) {
	case 0:
		return nil
	case 24 * time.Hour:
		next := *prev
		next.CurrentStreak++
		next.HighestStreak = max(next.HighestStreak, next.CurrentStreak)
		next.LastActiveDate = &today
		next.UpdatedAt = now
		return &next
	default:
		next := *prev
		next.CurrentStreak = 1
		next.HighestStreak = max(next.HighestStreak, 1)
		next.LastActiveDate = &today
		next.UpdatedAt = now
		return &next
	}
}
