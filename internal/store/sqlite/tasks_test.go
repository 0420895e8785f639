package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/workroomapp/workroom-server/internal/domain"
	"github.com/workroomapp/workroom-server/internal/store"
)

func makeTestTask(id, creatorID string) *domain.Task {
	now := time.Now()
	return &domain.Task{
		Entity: domain.Entity{
			ID:        id,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Title:       "Write report",
		Status:      domain.TaskStatusPending,
		CreatedByID: creatorID,
	}
}

func mustCreateTask(t *testing.T, s *Store, task *domain.Task) *domain.Task {
	t.Helper()
	if err := s.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("CreateTask(%s): %v", task.ID, err)
	}
	return task
}

func TestCreateAndGetTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, s, "usr-1", "a@example.com", "alice")

	due := time.Now().Add(24 * time.Hour)
	task := makeTestTask("task-1", "usr-1")
	task.Description = "quarterly numbers"
	task.Category = "work"
	task.DueDate = &due
	mustCreateTask(t, s, task)

	got, err := s.GetTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Title != "Write report" {
		t.Errorf("Title: got %q", got.Title)
	}
	if got.Status != domain.TaskStatusPending {
		t.Errorf("Status: got %q", got.Status)
	}
	if got.DueDate == nil || got.DueDate.Unix() != due.Unix() {
		t.Errorf("DueDate: got %v, want %v", got.DueDate, due)
	}
	if got.CompletedAt != nil {
		t.Error("CompletedAt: expected nil")
	}
}

func TestGetTask_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetTask(context.Background(), "nope")
	if !errors.Is(err, store.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestDeleteTask(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, s, "usr-1", "a@example.com", "alice")
	mustCreateTask(t, s, makeTestTask("task-1", "usr-1"))

	if err := s.DeleteTask(ctx, "task-1"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := s.GetTask(ctx, "task-1"); !errors.Is(err, store.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound after delete, got %v", err)
	}
	if err := s.DeleteTask(ctx, "task-1"); !errors.Is(err, store.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound on second delete, got %v", err)
	}
}

func TestListTasksByCreator(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, s, "usr-1", "a@example.com", "alice")
	mustCreateUser(t, s, "usr-2", "b@example.com", "bob")
	mustCreateTask(t, s, makeTestTask("task-1", "usr-1"))
	mustCreateTask(t, s, makeTestTask("task-2", "usr-1"))
	mustCreateTask(t, s, makeTestTask("task-3", "usr-2"))

	tasks, err := s.ListTasksByCreator(ctx, "usr-1")
	if err != nil {
		t.Fatalf("ListTasksByCreator: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(tasks))
	}
}

func TestCountTasksCreatedOn(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, s, "usr-1", "a@example.com", "alice")

	now := time.Now().UTC()
	done := makeTestTask("task-1", "usr-1")
	done.Status = domain.TaskStatusCompleted
	mustCreateTask(t, s, done)
	mustCreateTask(t, s, makeTestTask("task-2", "usr-1"))

	// A task created yesterday must not count toward today.
	old := makeTestTask("task-3", "usr-1")
	old.CreatedAt = now.Add(-30 * time.Hour)
	mustCreateTask(t, s, old)

	counts, err := s.CountTasksCreatedOn(ctx, "usr-1", now)
	if err != nil {
		t.Fatalf("CountTasksCreatedOn: %v", err)
	}
	if counts.Completed != 1 {
		t.Errorf("Completed: got %d, want 1", counts.Completed)
	}
	if counts.Pending != 1 {
		t.Errorf("Pending: got %d, want 1", counts.Pending)
	}
}

func TestActivityCounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, s, "usr-1", "a@example.com", "alice")
	mustCreateUser(t, s, "usr-2", "b@example.com", "bob")

	now := time.Now()
	due := now.Add(time.Hour)

	onTime := makeTestTask("task-1", "usr-1")
	onTime.Status = domain.TaskStatusCompleted
	onTime.DueDate = &due
	onTime.CompletedAt = &now
	mustCreateTask(t, s, onTime)

	lateAt := now.Add(2 * time.Hour)
	late := makeTestTask("task-2", "usr-1")
	late.Status = domain.TaskStatusCompleted
	late.DueDate = &due
	late.CompletedAt = &lateAt
	mustCreateTask(t, s, late)

	mustCreateTask(t, s, makeTestTask("task-3", "usr-1"))

	// usr-1 collaborates on bob's task, invited by bob.
	bobTask := makeTestTask("task-4", "usr-2")
	mustCreateTask(t, s, bobTask)
	err := s.AddCollaborator(ctx, &domain.TaskCollaborator{
		TaskID:      "task-4",
		UserID:      "usr-1",
		InvitedByID: "usr-2",
		CreatedAt:   now,
	})
	if err != nil {
		t.Fatalf("AddCollaborator: %v", err)
	}

	c, err := s.ActivityCounts(ctx, "usr-1")
	if err != nil {
		t.Fatalf("ActivityCounts: %v", err)
	}
	if c.TasksCreated != 3 {
		t.Errorf("TasksCreated: got %d, want 3", c.TasksCreated)
	}
	if c.TasksCompleted != 2 {
		t.Errorf("TasksCompleted: got %d, want 2", c.TasksCompleted)
	}
	if c.OnTimeCompletions != 1 {
		t.Errorf("OnTimeCompletions: got %d, want 1", c.OnTimeCompletions)
	}
	if c.Collaborations != 1 {
		t.Errorf("Collaborations: got %d, want 1", c.Collaborations)
	}
	if c.InvitedByOthers != 1 {
		t.Errorf("InvitedByOthers: got %d, want 1", c.InvitedByOthers)
	}
}

func TestAddCollaborator_Duplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, s, "usr-1", "a@example.com", "alice")
	mustCreateUser(t, s, "usr-2", "b@example.com", "bob")
	mustCreateTask(t, s, makeTestTask("task-1", "usr-1"))

	collab := &domain.TaskCollaborator{
		TaskID:      "task-1",
		UserID:      "usr-2",
		InvitedByID: "usr-1",
		CreatedAt:   time.Now(),
	}
	if err := s.AddCollaborator(ctx, collab); err != nil {
		t.Fatalf("AddCollaborator: %v", err)
	}
	if err := s.AddCollaborator(ctx, collab); !errors.Is(err, store.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	ids, err := s.ListCollaboratorIDs(ctx, "task-1")
	if err != nil {
		t.Fatalf("ListCollaboratorIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != "usr-2" {
		t.Errorf("collaborators: got %v", ids)
	}
}

func TestApplyTaskCompletion(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, s, "usr-1", "a@example.com", "alice")
	mustCreateUser(t, s, "usr-2", "b@example.com", "bob")
	task := mustCreateTask(t, s, makeTestTask("task-1", "usr-1"))

	badge := &domain.Badge{
		Entity: domain.Entity{ID: "badge-1", CreatedAt: time.Now(), UpdatedAt: time.Now()},
		Name:   "Task Master",
	}
	if err := s.CreateBadge(ctx, badge); err != nil {
		t.Fatalf("CreateBadge: %v", err)
	}

	now := time.Now()
	task.Complete(now)
	lastActive := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	completion := &store.TaskCompletion{
		Task: task,
		XPAwards: map[string]int{
			"usr-1": 22,
			"usr-2": 5,
		},
		Streak: &domain.UserStreak{
			UserID:         "usr-1",
			CurrentStreak:  3,
			HighestStreak:  5,
			LastActiveDate: &lastActive,
			UpdatedAt:      now,
		},
		BadgeAwards: []domain.UserBadge{
			{UserID: "usr-1", BadgeID: "badge-1", AwardedAt: now},
		},
	}
	if err := s.ApplyTaskCompletion(ctx, completion); err != nil {
		t.Fatalf("ApplyTaskCompletion: %v", err)
	}

	got, err := s.GetTask(ctx, "task-1")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != domain.TaskStatusCompleted {
		t.Errorf("Status: got %q", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt: expected non-nil")
	}

	alice, err := s.GetUser(ctx, "usr-1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if alice.XP != 22 {
		t.Errorf("alice XP: got %d, want 22", alice.XP)
	}
	bob, err := s.GetUser(ctx, "usr-2")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if bob.XP != 5 {
		t.Errorf("bob XP: got %d, want 5", bob.XP)
	}

	streak, err := s.GetStreak(ctx, "usr-1")
	if err != nil {
		t.Fatalf("GetStreak: %v", err)
	}
	if streak.CurrentStreak != 3 || streak.HighestStreak != 5 {
		t.Errorf("streak: got %d/%d, want 3/5", streak.CurrentStreak, streak.HighestStreak)
	}
	if streak.LastActiveDate == nil {
		t.Fatal("LastActiveDate: expected non-nil")
	}

	has, err := s.HasBadge(ctx, "usr-1", "badge-1")
	if err != nil {
		t.Fatalf("HasBadge: %v", err)
	}
	if !has {
		t.Error("expected badge awarded")
	}

	// Re-applying the badge must not error; awards are at most once.
	if err := s.ApplyTaskCompletion(ctx, completion); err != nil {
		t.Fatalf("second ApplyTaskCompletion: %v", err)
	}
}

func TestApplyTaskCompletion_MissingTaskRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, s, "usr-1", "a@example.com", "alice")

	now := time.Now()
	ghost := makeTestTask("ghost", "usr-1")
	ghost.Complete(now)

	completion := &store.TaskCompletion{
		Task:     ghost,
		XPAwards: map[string]int{"usr-1": 100},
	}
	if err := s.ApplyTaskCompletion(ctx, completion); !errors.Is(err, store.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}

	// XP must not have been applied.
	user, err := s.GetUser(ctx, "usr-1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.XP != 0 {
		t.Errorf("XP: got %d, want 0", user.XP)
	}
}

func TestListCompletedWorkroomTasks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, s, "usr-1", "a@example.com", "alice")
	mustCreateWorkroom(t, s, "room-1", "Sprint", "usr-1")

	now := time.Now()
	done := makeTestTask("task-1", "usr-1")
	done.WorkroomID = "room-1"
	done.Status = domain.TaskStatusCompleted
	done.CompletedAt = &now
	mustCreateTask(t, s, done)

	pending := makeTestTask("task-2", "usr-1")
	pending.WorkroomID = "room-1"
	mustCreateTask(t, s, pending)

	tasks, err := s.ListCompletedWorkroomTasks(ctx, "room-1", "usr-1")
	if err != nil {
		t.Fatalf("ListCompletedWorkroomTasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "task-1" {
		t.Fatalf("expected only task-1, got %v", tasks)
	}
}
