package api

import (
	"net/http"

	"github.com/workroomapp/workroom-server/internal/http/response"
)

// handleGetCurrentUser returns the authenticated user's account.
func (s *Server) handleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := s.authService.GetUser(ctx, getClaims(ctx))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, sanitizeUser(user), s.logger)
}

// handleGetLevels returns the user's category levels, recomputed from
// current activity counts.
func (s *Server) handleGetLevels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	levels, err := s.gamificationService.GetLevels(ctx, getUserID(ctx))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, levels, s.logger)
}

// handleGetStreak returns the user's daily completion streak.
func (s *Server) handleGetStreak(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	streak, err := s.gamificationService.GetStreak(ctx, getUserID(ctx))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, streak, s.logger)
}

// handleGetBadges returns the badges the user has earned.
func (s *Server) handleGetBadges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	badges, err := s.gamificationService.GetBadges(ctx, getUserID(ctx))
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, badges, s.logger)
}
