// Package store defines the persistence surface of the workroom server and
// the sentinel errors implementations return.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/workroomapp/workroom-server/internal/domain"
	"github.com/workroomapp/workroom-server/internal/scoring"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when an insert violates a uniqueness constraint.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUserNotFound is returned when a user cannot be found by ID, email, or username.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists is returned when registering with an email already in use.
	ErrEmailExists = errors.New("email already in use")
	// ErrTaskNotFound is returned when a task cannot be found by ID.
	ErrTaskNotFound = errors.New("task not found")
	// ErrWorkroomNotFound is returned when a workroom cannot be found by ID.
	ErrWorkroomNotFound = errors.New("workroom not found")
	// ErrBadgeNotFound is returned when a badge cannot be found by ID or name.
	ErrBadgeNotFound = errors.New("badge not found")
	// ErrSessionNotFound is returned when a refresh session cannot be found.
	ErrSessionNotFound = errors.New("session not found")
	// ErrLiveSessionNotFound is returned when a workroom has no active live session.
	ErrLiveSessionNotFound = errors.New("live session not found")
)

// DailyTaskCounts aggregates one creator's tasks created on a given UTC day.
type DailyTaskCounts struct {
	Completed int
	Pending   int
}

// TaskCompletion carries every persisted consequence of completing one task.
// The store applies it in a single transaction so partial XP/streak/badge
// state is never observable.
type TaskCompletion struct {
	Task        *domain.Task       // already transitioned to COMPLETED
	XPAwards    map[string]int     // user ID -> XP delta
	Streak      *domain.UserStreak // nil to leave the streak untouched
	BadgeAwards []domain.UserBadge
}

// UserStore persists user accounts and the XP counter.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
}

// TaskStore persists tasks and their collaborators.
type TaskStore interface {
	CreateTask(ctx context.Context, task *domain.Task) error
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	UpdateTask(ctx context.Context, task *domain.Task) error
	DeleteTask(ctx context.Context, id string) error
	ListTasksByCreator(ctx context.Context, userID string) ([]*domain.Task, error)
	ListCompletedWorkroomTasks(ctx context.Context, workroomID, userID string) ([]*domain.Task, error)
	CountCompletedTasks(ctx context.Context, userID string) (int, error)
	CountTasksCreatedOn(ctx context.Context, userID string, day time.Time) (DailyTaskCounts, error)
	ActivityCounts(ctx context.Context, userID string) (scoring.ActivityCounts, error)

	AddCollaborator(ctx context.Context, collab *domain.TaskCollaborator) error
	ListCollaboratorIDs(ctx context.Context, taskID string) ([]string, error)
	CountCompletedCollaborations(ctx context.Context, workroomID, userID string) (int, error)

	ApplyTaskCompletion(ctx context.Context, completion *TaskCompletion) error
}

// SessionStore persists refresh token sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSessionByTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, userID string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}

// WorkroomStore persists workrooms and membership links.
type WorkroomStore interface {
	CreateWorkroom(ctx context.Context, room *domain.Workroom) error
	GetWorkroom(ctx context.Context, id string) (*domain.Workroom, error)
	UpdateWorkroom(ctx context.Context, room *domain.Workroom) error
	DeleteWorkroom(ctx context.Context, id string) error
	ListWorkroomsForUser(ctx context.Context, userID string) ([]*domain.Workroom, error)
	AddMember(ctx context.Context, workroomID, userID string) error
	IsMember(ctx context.Context, userID, workroomID string) (bool, error)
	ListMembers(ctx context.Context, workroomID string) ([]*domain.User, error)
}

// GamificationStore persists levels, streaks, badges, and leaderboards.
type GamificationStore interface {
	GetUserLevels(ctx context.Context, userID string) ([]*domain.UserLevel, error)
	UpsertUserLevel(ctx context.Context, level *domain.UserLevel) error

	GetStreak(ctx context.Context, userID string) (*domain.UserStreak, error)
	UpsertStreak(ctx context.Context, streak *domain.UserStreak) error

	CreateBadge(ctx context.Context, badge *domain.Badge) error
	GetBadgeByName(ctx context.Context, name string) (*domain.Badge, error)
	HasBadge(ctx context.Context, userID, badgeID string) (bool, error)
	AwardBadge(ctx context.Context, award *domain.UserBadge) error
	ListUserBadges(ctx context.Context, userID string) ([]*domain.Badge, error)

	ReplaceLeaderboard(ctx context.Context, workroomID string, entries []*domain.LeaderboardEntry) error
	GetLeaderboard(ctx context.Context, workroomID string) ([]*domain.LeaderboardEntry, error)
}

// LiveSessionStore persists workroom live session records.
// At most one active session exists per workroom.
type LiveSessionStore interface {
	GetActiveLiveSession(ctx context.Context, workroomID string) (*domain.LiveSession, error)
	CreateLiveSession(ctx context.Context, session *domain.LiveSession) error
	SetScreenSharer(ctx context.Context, sessionID, userID string) error
	EndLiveSession(ctx context.Context, sessionID string, at time.Time) error
}

// Store is the full persistence surface.
type Store interface {
	UserStore
	SessionStore
	TaskStore
	WorkroomStore
	GamificationStore
	LiveSessionStore

	Close() error
}
