package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/workroomapp/workroom-server/internal/domain"
	"github.com/workroomapp/workroom-server/internal/store"
)

func TestUpsertUserLevel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, s, "usr-1", "a@example.com", "alice")

	level := &domain.UserLevel{
		ID:        "lvl-1",
		UserID:    "usr-1",
		Category:  domain.CategoryLeader,
		Tier:      domain.TierBeginner,
		Points:    25,
		UpdatedAt: time.Now(),
	}
	if err := s.UpsertUserLevel(ctx, level); err != nil {
		t.Fatalf("UpsertUserLevel: %v", err)
	}

	// Upserting the same (user, category) replaces the row.
	level.Points = 160
	level.Tier = domain.TierAdvanced
	if err := s.UpsertUserLevel(ctx, level); err != nil {
		t.Fatalf("second UpsertUserLevel: %v", err)
	}

	levels, err := s.GetUserLevels(ctx, "usr-1")
	if err != nil {
		t.Fatalf("GetUserLevels: %v", err)
	}
	if len(levels) != 1 {
		t.Fatalf("expected 1 level row, got %d", len(levels))
	}
	if levels[0].Points != 160 || levels[0].Tier != domain.TierAdvanced {
		t.Errorf("level: got %d points tier %q", levels[0].Points, levels[0].Tier)
	}
}

func TestStreakRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, s, "usr-1", "a@example.com", "alice")

	if _, err := s.GetStreak(ctx, "usr-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for fresh user, got %v", err)
	}

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	streak := &domain.UserStreak{
		UserID:         "usr-1",
		CurrentStreak:  2,
		HighestStreak:  4,
		LastActiveDate: &day,
		UpdatedAt:      time.Now(),
	}
	if err := s.UpsertStreak(ctx, streak); err != nil {
		t.Fatalf("UpsertStreak: %v", err)
	}

	got, err := s.GetStreak(ctx, "usr-1")
	if err != nil {
		t.Fatalf("GetStreak: %v", err)
	}
	if got.CurrentStreak != 2 || got.HighestStreak != 4 {
		t.Errorf("streak: got %d/%d", got.CurrentStreak, got.HighestStreak)
	}
	if got.LastActiveDate == nil || !got.LastActiveDate.Equal(day) {
		t.Errorf("LastActiveDate: got %v, want %v", got.LastActiveDate, day)
	}
}

func TestBadges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, s, "usr-1", "a@example.com", "alice")

	now := time.Now()
	badge := &domain.Badge{
		Entity:      domain.Entity{ID: "badge-1", CreatedAt: now, UpdatedAt: now},
		Name:        "Task Master",
		Description: "Completed 10 tasks",
	}
	if err := s.CreateBadge(ctx, badge); err != nil {
		t.Fatalf("CreateBadge: %v", err)
	}

	dup := &domain.Badge{
		Entity: domain.Entity{ID: "badge-2", CreatedAt: now, UpdatedAt: now},
		Name:   "Task Master",
	}
	if err := s.CreateBadge(ctx, dup); !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := s.GetBadgeByName(ctx, "Task Master")
	if err != nil {
		t.Fatalf("GetBadgeByName: %v", err)
	}
	if got.ID != "badge-1" {
		t.Errorf("ID: got %q", got.ID)
	}

	if _, err := s.GetBadgeByName(ctx, "Unknown"); !errors.Is(err, store.ErrBadgeNotFound) {
		t.Fatalf("expected ErrBadgeNotFound, got %v", err)
	}

	has, err := s.HasBadge(ctx, "usr-1", "badge-1")
	if err != nil {
		t.Fatalf("HasBadge: %v", err)
	}
	if has {
		t.Error("badge must not be awarded yet")
	}

	award := &domain.UserBadge{UserID: "usr-1", BadgeID: "badge-1", AwardedAt: now}
	if err := s.AwardBadge(ctx, award); err != nil {
		t.Fatalf("AwardBadge: %v", err)
	}
	// Second award is a no-op.
	if err := s.AwardBadge(ctx, award); err != nil {
		t.Fatalf("second AwardBadge: %v", err)
	}

	badges, err := s.ListUserBadges(ctx, "usr-1")
	if err != nil {
		t.Fatalf("ListUserBadges: %v", err)
	}
	if len(badges) != 1 || badges[0].Name != "Task Master" {
		t.Fatalf("badges: got %v", badges)
	}
}

func TestReplaceLeaderboard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, s, "usr-1", "a@example.com", "alice")
	mustCreateUser(t, s, "usr-2", "b@example.com", "bob")
	mustCreateWorkroom(t, s, "room-1", "Sprint", "usr-1")

	now := time.Now()
	first := []*domain.LeaderboardEntry{
		{ID: "lb-1", WorkroomID: "room-1", UserID: "usr-1", Score: 30, TeamworkScore: 5, Rank: 1, UpdatedAt: now},
		{ID: "lb-2", WorkroomID: "room-1", UserID: "usr-2", Score: 10, TeamworkScore: 0, Rank: 2, UpdatedAt: now},
	}
	if err := s.ReplaceLeaderboard(ctx, "room-1", first); err != nil {
		t.Fatalf("ReplaceLeaderboard: %v", err)
	}

	// A second replacement swaps the standings wholesale.
	second := []*domain.LeaderboardEntry{
		{ID: "lb-3", WorkroomID: "room-1", UserID: "usr-2", Score: 50, TeamworkScore: 3, Rank: 1, UpdatedAt: now},
		{ID: "lb-4", WorkroomID: "room-1", UserID: "usr-1", Score: 30, TeamworkScore: 5, Rank: 2, UpdatedAt: now},
	}
	if err := s.ReplaceLeaderboard(ctx, "room-1", second); err != nil {
		t.Fatalf("second ReplaceLeaderboard: %v", err)
	}

	entries, err := s.GetLeaderboard(ctx, "room-1")
	if err != nil {
		t.Fatalf("GetLeaderboard: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].UserID != "usr-2" || entries[0].Rank != 1 {
		t.Errorf("first entry: got %q rank %d", entries[0].UserID, entries[0].Rank)
	}
	if entries[0].Username != "bob" {
		t.Errorf("Username: got %q, want bob", entries[0].Username)
	}
	if entries[1].UserID != "usr-1" || entries[1].Rank != 2 {
		t.Errorf("second entry: got %q rank %d", entries[1].UserID, entries[1].Rank)
	}
}
