package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	domainerrors "github.com/workroomapp/workroom-server/internal/errors"
	"github.com/workroomapp/workroom-server/internal/http/response"
	"github.com/workroomapp/workroom-server/internal/service"
)

// handleCreateWorkroom creates a workroom with the creator as first member.
func (s *Server) handleCreateWorkroom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req service.CreateWorkroomRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	workroom, err := s.workroomService.CreateWorkroom(ctx, getUserID(ctx), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, workroom, s.logger)
}

// handleListWorkrooms returns the workrooms the user belongs to.
func (s *Server) handleListWorkrooms(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	workrooms, err := s.workroomService.ListWorkrooms(ctx, getUserID(ctx))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, workrooms, s.logger)
}

// handleGetWorkroom returns one workroom. Members only.
func (s *Server) handleGetWorkroom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	workroom, err := s.workroomService.GetWorkroom(ctx, getUserID(ctx), id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, workroom, s.logger)
}

// handleUpdateWorkroom applies a partial update. Creator only.
func (s *Server) handleUpdateWorkroom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req service.UpdateWorkroomRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	workroom, err := s.workroomService.UpdateWorkroom(ctx, getUserID(ctx), id, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, workroom, s.logger)
}

// handleDeleteWorkroom removes a workroom. Creator only.
func (s *Server) handleDeleteWorkroom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := s.workroomService.DeleteWorkroom(ctx, getUserID(ctx), id); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleAddMember enrolls another user into the workroom.
func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req service.AddMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	if err := s.workroomService.AddMember(ctx, getUserID(ctx), id, req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, map[string]string{"message": "member added"}, s.logger)
}

// handleListMembers returns the workroom's members. Members only.
func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	members, err := s.workroomService.ListMembers(ctx, getUserID(ctx), id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	for i, member := range members {
		members[i] = sanitizeUser(member)
	}
	response.Success(w, members, s.logger)
}

// handleGetLeaderboard recomputes and returns the workroom standings.
// Members only.
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	member, err := s.workroomService.IsMember(ctx, getUserID(ctx), id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if !member {
		response.HandleError(w, domainerrors.Forbidden("not a member of this workroom"), s.logger)
		return
	}

	entries, err := s.leaderboardService.GetLeaderboard(ctx, id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, entries, s.logger)
}
