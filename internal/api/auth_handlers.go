package api

import (
	"net/http"

	"github.com/workroomapp/workroom-server/internal/http/response"
	"github.com/workroomapp/workroom-server/internal/service"
)

// refreshRequest carries the opaque refresh token for refresh and logout.
type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// handleRegister creates a new user account and opens its first session.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	result, err := s.authService.Register(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	result.User = sanitizeUser(result.User)
	response.Created(w, result, s.logger)
}

// handleLogin authenticates a user and returns fresh tokens.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	result, err := s.authService.Login(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	result.User = sanitizeUser(result.User)
	response.Success(w, result, s.logger)
}

// handleRefresh rotates the session's tokens.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil || req.RefreshToken == "" {
		response.BadRequest(w, "Refresh token is required", s.logger)
		return
	}

	result, err := s.authService.RefreshTokens(r.Context(), req.RefreshToken)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	result.User = sanitizeUser(result.User)
	response.Success(w, result, s.logger)
}

// handleLogout revokes the access token and deletes the session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims := getClaims(r.Context())
	if claims == nil {
		response.Unauthorized(w, "Authentication required", s.logger)
		return
	}

	// The refresh token is optional; without it only the access token
	// is revoked and the session expires on its own.
	var req refreshRequest
	_ = decodeJSON(r, &req)

	if err := s.authService.Logout(r.Context(), claims, req.RefreshToken); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]string{"message": "logged out"}, s.logger)
}
