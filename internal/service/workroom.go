package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/workroomapp/workroom-server/internal/domain"
	domainerrors "github.com/workroomapp/workroom-server/internal/errors"
	"github.com/workroomapp/workroom-server/internal/id"
	"github.com/workroomapp/workroom-server/internal/store"
	"github.com/workroomapp/workroom-server/internal/validation"
)

// WorkroomService manages workrooms and their membership.
type WorkroomService struct {
	store     store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewWorkroomService creates a new workroom service.
func NewWorkroomService(store store.Store, logger *slog.Logger) *WorkroomService {
	return &WorkroomService{store: store, validator: validation.New(), logger: logger}
}

// CreateWorkroomRequest contains the fields for creating a workroom.
type CreateWorkroomRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

// UpdateWorkroomRequest contains the optional fields for patching a workroom.
type UpdateWorkroomRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// AddMemberRequest invites a user into a workroom.
type AddMemberRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// CreateWorkroom creates a workroom and enrolls its creator as the first
// member.
func (s *WorkroomService) CreateWorkroom(ctx context.Context, userID string, req CreateWorkroomRequest) (*domain.Workroom, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	roomID, err := id.Generate(id.PrefixWorkroom)
	if err != nil {
		return nil, fmt.Errorf("generate workroom ID: %w", err)
	}

	room := &domain.Workroom{
		Entity:      domain.Entity{ID: roomID},
		Name:        req.Name,
		Description: req.Description,
		CreatedByID: userID,
	}
	room.InitTimestamps()

	if err := s.store.CreateWorkroom(ctx, room); err != nil {
		return nil, fmt.Errorf("create workroom: %w", err)
	}

	if err := s.store.AddMember(ctx, roomID, userID); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
		return nil, fmt.Errorf("add creator as member: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Workroom created", "workroom_id", roomID, "user_id", userID)
	}

	return room, nil
}

// GetWorkroom returns a workroom. Members only.
func (s *WorkroomService) GetWorkroom(ctx context.Context, userID, workroomID string) (*domain.Workroom, error) {
	room, err := s.store.GetWorkroom(ctx, workroomID)
	if err != nil {
		return nil, mapWorkroomErr(err)
	}

	if err := s.requireMember(ctx, userID, workroomID); err != nil {
		return nil, err
	}
	return room, nil
}

// ListWorkrooms returns every workroom the user belongs to.
func (s *WorkroomService) ListWorkrooms(ctx context.Context, userID string) ([]*domain.Workroom, error) {
	rooms, err := s.store.ListWorkroomsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list workrooms: %w", err)
	}
	return rooms, nil
}

// UpdateWorkroom patches a workroom. Creator only.
func (s *WorkroomService) UpdateWorkroom(ctx context.Context, userID, workroomID string, req UpdateWorkroomRequest) (*domain.Workroom, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	room, err := s.store.GetWorkroom(ctx, workroomID)
	if err != nil {
		return nil, mapWorkroomErr(err)
	}
	if room.CreatedByID != userID {
		return nil, domainerrors.Forbidden("only the creator can modify a workroom")
	}

	if req.Name != nil {
		room.Name = *req.Name
	}
	if req.Description != nil {
		room.Description = *req.Description
	}
	room.Touch()

	if err := s.store.UpdateWorkroom(ctx, room); err != nil {
		return nil, mapWorkroomErr(err)
	}
	return room, nil
}

// DeleteWorkroom removes a workroom. Creator only.
func (s *WorkroomService) DeleteWorkroom(ctx context.Context, userID, workroomID string) error {
	room, err := s.store.GetWorkroom(ctx, workroomID)
	if err != nil {
		return mapWorkroomErr(err)
	}
	if room.CreatedByID != userID {
		return domainerrors.Forbidden("only the creator can delete a workroom")
	}
	if err := s.store.DeleteWorkroom(ctx, workroomID); err != nil {
		return mapWorkroomErr(err)
	}
	return nil
}

// AddMember enrolls a user in a workroom. The inviter must already be a
// member.
func (s *WorkroomService) AddMember(ctx context.Context, inviterID, workroomID string, req AddMemberRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	if _, err := s.store.GetWorkroom(ctx, workroomID); err != nil {
		return mapWorkroomErr(err)
	}

	if err := s.requireMember(ctx, inviterID, workroomID); err != nil {
		return err
	}

	if _, err := s.store.GetUser(ctx, req.UserID); err != nil {
		return mapUserErr(err)
	}

	if err := s.store.AddMember(ctx, workroomID, req.UserID); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domainerrors.AlreadyExists("user is already a member")
		}
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// ListMembers returns a workroom's members. Members only.
func (s *WorkroomService) ListMembers(ctx context.Context, userID, workroomID string) ([]*domain.User, error) {
	if _, err := s.store.GetWorkroom(ctx, workroomID); err != nil {
		return nil, mapWorkroomErr(err)
	}

	if err := s.requireMember(ctx, userID, workroomID); err != nil {
		return nil, err
	}

	members, err := s.store.ListMembers(ctx, workroomID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// IsMember reports whether a user belongs to a workroom.
func (s *WorkroomService) IsMember(ctx context.Context, userID, workroomID string) (bool, error) {
	member, err := s.store.IsMember(ctx, userID, workroomID)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return member, nil
}

func (s *WorkroomService) requireMember(ctx context.Context, userID, workroomID string) error {
	member, err := s.store.IsMember(ctx, userID, workroomID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return domainerrors.Forbidden("not a member of this workroom")
	}
	return nil
}

// mapWorkroomErr translates the store's workroom sentinel into a domain error.
func mapWorkroomErr(err error) error {
	if errors.Is(err, store.ErrWorkroomNotFound) {
		return domainerrors.NotFound("workroom not found")
	}
	return err
}
