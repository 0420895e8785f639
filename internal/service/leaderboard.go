package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/workroomapp/workroom-server/internal/domain"
	"github.com/workroomapp/workroom-server/internal/id"
	"github.com/workroomapp/workroom-server/internal/scoring"
	"github.com/workroomapp/workroom-server/internal/store"
)

// teamworkPointsPerCollaboration weights completed collaborations in the
// leaderboard's teamwork score.
const teamworkPointsPerCollaboration = 5

// LeaderboardService derives workroom leaderboards from completed tasks.
// The board is recomputed wholesale on read; rows are never patched.
type LeaderboardService struct {
	store  store.Store
	logger *slog.Logger
}

// NewLeaderboardService creates a new leaderboard service.
func NewLeaderboardService(store store.Store, logger *slog.Logger) *LeaderboardService {
	return &LeaderboardService{store: store, logger: logger}
}

// GetLeaderboard recomputes and returns the leaderboard for a workroom.
// The caller is responsible for the membership check.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, workroomID string) ([]*domain.LeaderboardEntry, error) {
	if err := s.Recompute(ctx, workroomID); err != nil {
		return nil, err
	}

	entries, err := s.store.GetLeaderboard(ctx, workroomID)
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}
	return entries, nil
}

// Recompute rebuilds a workroom's leaderboard from scratch: per-member
// score from completed workroom tasks, teamwork from completed
// collaborations, contiguous ranks from 1. Idempotent for unchanged
// inputs.
func (s *LeaderboardService) Recompute(ctx context.Context, workroomID string) error {
	if _, err := s.store.GetWorkroom(ctx, workroomID); err != nil {
		return mapWorkroomErr(err)
	}

	members, err := s.store.ListMembers(ctx, workroomID)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}

	now := time.Now()
	entries := make([]*domain.LeaderboardEntry, 0, len(members))
	for _, member := range members {
		tasks, err := s.store.ListCompletedWorkroomTasks(ctx, workroomID, member.ID)
		if err != nil {
			return fmt.Errorf("list completed tasks for %s: %w", member.ID, err)
		}

		score := 0
		for _, task := range tasks {
			score += scoring.TaskPoints(task.DueDate, task.CompletedAt)
		}

		collaborations, err := s.store.CountCompletedCollaborations(ctx, workroomID, member.ID)
		if err != nil {
			return fmt.Errorf("count collaborations for %s: %w", member.ID, err)
		}

		entryID, err := id.Generate(id.PrefixLeaderboard)
		if err != nil {
			return fmt.Errorf("generate leaderboard ID: %w", err)
		}

		entries = append(entries, &domain.LeaderboardEntry{
			ID:            entryID,
			WorkroomID:    workroomID,
			UserID:        member.ID,
			Username:      member.Username,
			Score:         score,
			TeamworkScore: teamworkPointsPerCollaboration * collaborations,
			UpdatedAt:     now,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].TeamworkScore != entries[j].TeamworkScore {
			return entries[i].TeamworkScore > entries[j].TeamworkScore
		}
		return entries[i].Username < entries[j].Username
	})

	// Ranks are 1..N in sort order with no gaps or duplicates; the
	// username tiebreak above makes the assignment deterministic.
	for i, entry := range entries {
		entry.Rank = i + 1
	}

	if err := s.store.ReplaceLeaderboard(ctx, workroomID, entries); err != nil {
		return fmt.Errorf("replace leaderboard: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("Leaderboard recomputed", "workroom_id", workroomID, "entries", len(entries))
	}

	return nil
}
