package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/workroomapp/workroom-server/internal/http/response"
	"github.com/workroomapp/workroom-server/internal/service"
)

// handleCreateTask creates a task owned by the authenticated user.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req service.CreateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	task, err := s.taskService.CreateTask(ctx, getUserID(ctx), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, task, s.logger)
}

// handleListTasks returns the tasks created by the authenticated user.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tasks, err := s.taskService.ListTasks(ctx, getUserID(ctx))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, tasks, s.logger)
}

// handleGetTask returns a single task the user may view.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	task, err := s.taskService.GetTask(ctx, getUserID(ctx), id)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, task, s.logger)
}

// handleUpdateTask applies a partial update. Setting status to COMPLETED
// runs the full completion flow with XP, streak, and badge side effects.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req service.UpdateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	task, err := s.taskService.UpdateTask(ctx, getUserID(ctx), id, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, task, s.logger)
}

// handleDeleteTask removes a task. Creator only.
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := s.taskService.DeleteTask(ctx, getUserID(ctx), id); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleAddCollaborator invites another workroom member onto the task.
func (s *Server) handleAddCollaborator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req service.AddCollaboratorRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	if err := s.taskService.AddCollaborator(ctx, getUserID(ctx), id, req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, map[string]string{"message": "collaborator added"}, s.logger)
}
