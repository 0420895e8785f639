package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/workroomapp/workroom-server/internal/domain"
	domainerrors "github.com/workroomapp/workroom-server/internal/errors"
	"github.com/workroomapp/workroom-server/internal/id"
	"github.com/workroomapp/workroom-server/internal/scoring"
	"github.com/workroomapp/workroom-server/internal/store"
)

// collaboratorXP is the flat award each collaborator earns when a shared
// task completes.
const collaboratorXP = 5

// TaskService manages tasks, collaborators, and the completion flow that
// feeds the gamification engine.
type TaskService struct {
	store        store.Store
	gamification *GamificationService
	logger       *slog.Logger

	// userLocks serializes completions per creator so concurrent
	// completions can't both read the same streak row.
	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewTaskService creates a new task service.
func NewTaskService(store store.Store, gamification *GamificationService, logger *slog.Logger) *TaskService {
	return &TaskService{
		store:        store,
		gamification: gamification,
		logger:       logger,
		userLocks:    make(map[string]*sync.Mutex),
	}
}

func (s *TaskService) lockUser(userID string) func() {
	s.mu.Lock()
	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// CreateTaskRequest contains the fields for creating a task.
type CreateTaskRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Category    string     `json:"category" validate:"max=50"`
	WorkroomID  string     `json:"workroom_id"`
	DueDate     *time.Time `json:"due_date"`
}

// UpdateTaskRequest contains the optional fields for patching a task.
// Nil fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	Category    *string    `json:"category" validate:"omitempty,max=50"`
	Status      *string    `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS COMPLETED OVERDUE"`
	DueDate     *time.Time `json:"due_date"`
}

// AddCollaboratorRequest invites a user onto a task.
type AddCollaboratorRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// CreateTask creates a task owned by userID.
func (s *TaskService) CreateTask(ctx context.Context, userID string, req CreateTaskRequest) (*domain.Task, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	if req.WorkroomID != "" {
		member, err := s.store.IsMember(ctx, userID, req.WorkroomID)
		if err != nil {
			return nil, fmt.Errorf("check membership: %w", err)
		}
		if !member {
			return nil, domainerrors.Forbidden("not a member of this workroom")
		}
	}

	taskID, err := id.Generate(id.PrefixTask)
	if err != nil {
		return nil, fmt.Errorf("generate task ID: %w", err)
	}

	task := &domain.Task{
		Entity:      domain.Entity{ID: taskID},
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Status:      domain.TaskStatusPending,
		CreatedByID: userID,
		WorkroomID:  req.WorkroomID,
		DueDate:     req.DueDate,
	}
	task.InitTimestamps()

	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	return task, nil
}

// GetTask returns a task visible to userID: its creator, a collaborator,
// or a member of its workroom.
func (s *TaskService) GetTask(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, mapTaskErr(err)
	}

	ok, err := s.canView(ctx, userID, task)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domainerrors.Forbidden("no access to this task")
	}
	return task, nil
}

// ListTasks returns every task created by userID.
func (s *TaskService) ListTasks(ctx context.Context, userID string) ([]*domain.Task, error) {
	tasks, err := s.store.ListTasksByCreator(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask patches a task. A status change to COMPLETED routes through
// the transactional completion flow; everything else is a plain update
// only the creator may perform.
func (s *TaskService) UpdateTask(ctx context.Context, userID, taskID string, req UpdateTaskRequest) (*domain.Task, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	if req.Status != nil && domain.TaskStatus(*req.Status) == domain.TaskStatusCompleted {
		if req.Title != nil || req.Description != nil || req.Category != nil || req.DueDate != nil {
			return nil, domainerrors.Validation("completion cannot be combined with other field changes")
		}
		return s.CompleteTask(ctx, userID, taskID)
	}

	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, mapTaskErr(err)
	}
	if task.CreatedByID != userID {
		return nil, domainerrors.Forbidden("only the creator can modify a task")
	}
	if task.IsCompleted() {
		return nil, domainerrors.Conflict("task is already completed")
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Category != nil {
		task.Category = *req.Category
	}
	if req.Status != nil {
		task.Status = domain.TaskStatus(*req.Status)
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	task.Touch()

	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, mapTaskErr(err)
	}
	return task, nil
}

// DeleteTask removes a task. Creator only.
func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID string) error {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return mapTaskErr(err)
	}
	if task.CreatedByID != userID {
		return domainerrors.Forbidden("only the creator can delete a task")
	}
	if err := s.store.DeleteTask(ctx, taskID); err != nil {
		return mapTaskErr(err)
	}
	return nil
}

// AddCollaborator invites a user onto a task. The inviter must be the
// creator or an existing collaborator; workroom tasks only accept members
// of that workroom.
func (s *TaskService) AddCollaborator(ctx context.Context, inviterID, taskID string, req AddCollaboratorRequest) error {
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}

	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return mapTaskErr(err)
	}
	if task.IsCompleted() {
		return domainerrors.Conflict("task is already completed")
	}

	if inviterID != task.CreatedByID {
		collaborator, err := s.isCollaborator(ctx, taskID, inviterID)
		if err != nil {
			return err
		}
		if !collaborator {
			return domainerrors.Forbidden("only the creator or a collaborator can invite")
		}
	}

	if req.UserID == task.CreatedByID {
		return domainerrors.Validation("the creator is already on the task")
	}

	if _, err := s.store.GetUser(ctx, req.UserID); err != nil {
		return mapUserErr(err)
	}

	if task.WorkroomID != "" {
		member, err := s.store.IsMember(ctx, req.UserID, task.WorkroomID)
		if err != nil {
			return fmt.Errorf("check membership: %w", err)
		}
		if !member {
			return domainerrors.Forbidden("user is not a member of the task's workroom")
		}
	}

	collab := &domain.TaskCollaborator{
		TaskID:      taskID,
		UserID:      req.UserID,
		InvitedByID: inviterID,
		CreatedAt:   time.Now(),
	}
	if err := s.store.AddCollaborator(ctx, collab); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domainerrors.AlreadyExists("user is already a collaborator")
		}
		return fmt.Errorf("add collaborator: %w", err)
	}
	return nil
}

// CompleteTask transitions a task to COMPLETED and applies every
// gamification consequence atomically: creator XP for the task, flat XP
// for each collaborator, the end-of-day bonus, the creator's streak, and
// any badges earned. Either all of it lands or none of it does.
func (s *TaskService) CompleteTask(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, mapTaskErr(err)
	}
	if task.IsCompleted() {
		return nil, domainerrors.Conflict("task is already completed")
	}

	allowed := userID == task.CreatedByID
	if !allowed {
		allowed, err = s.isCollaborator(ctx, taskID, userID)
		if err != nil {
			return nil, err
		}
	}
	if !allowed {
		return nil, domainerrors.Forbidden("only the creator or a collaborator can complete a task")
	}

	unlock := s.lockUser(task.CreatedByID)
	defer unlock()

	now := time.Now()
	task.Complete(now)

	completion, err := s.planCompletion(ctx, task, now)
	if err != nil {
		return nil, err
	}

	if err := s.store.ApplyTaskCompletion(ctx, completion); err != nil {
		return nil, fmt.Errorf("apply completion: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Task completed",
			"task_id", task.ID,
			"user_id", userID,
			"points", completion.XPAwards[task.CreatedByID])
	}

	return task, nil
}

// planCompletion computes the full consequence set for a completion.
// Pure reads; nothing is persisted here.
func (s *TaskService) planCompletion(ctx context.Context, task *domain.Task, now time.Time) (*store.TaskCompletion, error) {
	creatorID := task.CreatedByID

	awards := map[string]int{
		creatorID: scoring.TaskPoints(task.DueDate, task.CompletedAt),
	}

	collaborators, err := s.store.ListCollaboratorIDs(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}
	for _, collabID := range collaborators {
		if collabID != creatorID {
			awards[collabID] += collaboratorXP
		}
	}

	bonus, err := s.dailyBonus(ctx, task, now)
	if err != nil {
		return nil, err
	}
	awards[creatorID] += bonus

	prevStreak, err := s.store.GetStreak(ctx, creatorID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get streak: %w", err)
	}
	streak := nextStreak(prevStreak, creatorID, now)

	badges, err := s.gamification.PlanBadgeAwards(ctx, creatorID, now)
	if err != nil {
		return nil, err
	}

	return &store.TaskCompletion{
		Task:        task,
		XPAwards:    awards,
		Streak:      streak,
		BadgeAwards: badges,
	}, nil
}

// dailyBonus returns the creator's end-of-day bonus: when completing this
// task leaves no incomplete tasks created today, the bonus is 2 XP per
// task created today and completed, plus 10. The counts come from the
// store, which hasn't seen this completion yet, so the task adjusts its
// own bucket when it was created today.
func (s *TaskService) dailyBonus(ctx context.Context, task *domain.Task, now time.Time) (int, error) {
	counts, err := s.store.CountTasksCreatedOn(ctx, task.CreatedByID, now)
	if err != nil {
		return 0, fmt.Errorf("count today's tasks: %w", err)
	}

	if sameUTCDay(task.CreatedAt, now) {
		counts.Pending--
		counts.Completed++
	}

	if counts.Pending > 0 {
		return 0, nil
	}
	return 2*counts.Completed + 10, nil
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func (s *TaskService) isCollaborator(ctx context.Context, taskID, userID string) (bool, error) {
	ids, err := s.store.ListCollaboratorIDs(ctx, taskID)
	if err != nil {
		return false, fmt.Errorf("list collaborators: %w", err)
	}
	for _, collabID := range ids {
		if collabID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *TaskService) canView(ctx context.Context, userID string, task *domain.Task) (bool, error) {
	if task.CreatedByID == userID {
		return true, nil
	}
	if collaborator, err := s.isCollaborator(ctx, task.ID, userID); err != nil || collaborator {
		return collaborator, err
	}
	if task.WorkroomID != "" {
		member, err := s.store.IsMember(ctx, userID, task.WorkroomID)
		if err != nil {
			return false, fmt.Errorf("check membership: %w", err)
		}
		return member, nil
	}
	return false, nil
}

// mapTaskErr translates the store's task sentinel into a domain error.
func mapTaskErr(err error) error {
	if errors.Is(err, store.ErrTaskNotFound) {
		return domainerrors.NotFound("task not found")
	}
	return err
}
