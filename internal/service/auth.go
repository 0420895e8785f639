package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/workroomapp/workroom-server/internal/auth"
	"github.com/workroomapp/workroom-server/internal/blocklist"
	"github.com/workroomapp/workroom-server/internal/domain"
	domainerrors "github.com/workroomapp/workroom-server/internal/errors"
	"github.com/workroomapp/workroom-server/internal/id"
	"github.com/workroomapp/workroom-server/internal/store"
)

// AuthService handles registration, login, and token verification.
// Session lifecycle is delegated to SessionService; revoked access tokens
// live in the blocklist until they would have expired anyway.
type AuthService struct {
	store          store.Store
	tokenService   *auth.TokenService
	sessionService *SessionService
	blocklist      *blocklist.Blocklist
	logger         *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	store store.Store,
	tokenService *auth.TokenService,
	sessionService *SessionService,
	blocklist *blocklist.Blocklist,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:          store,
		tokenService:   tokenService,
		sessionService: sessionService,
		blocklist:      blocklist,
		logger:         logger,
	}
}

// RegisterRequest contains the fields needed to create an account.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required,min=3,max=30"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"max=50"`
	LastName  string `json:"last_name" validate:"max=50"`
}

// LoginRequest contains login credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned on successful register, login, or refresh.
type AuthResponse struct {
	User    *domain.User     `json:"user"`
	Session *SessionResponse `json:"session"`
}

// Register creates a new user account and opens its first session.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		Entity: domain.Entity{
			ID:        userID,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: passwordHash,
		Role:         domain.RoleMember,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("username already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	session, err := s.sessionService.CreateSession(ctx, user)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("User registered", "user_id", user.ID, "username", user.Username)
	}

	return &AuthResponse{User: user, Session: session}, nil
}

// Login authenticates a user by email and password.
// Unknown emails and wrong passwords return the same error so the
// response doesn't reveal which emails have accounts.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	session, err := s.sessionService.CreateSession(ctx, user)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{User: user, Session: session}, nil
}

// RefreshTokens exchanges a refresh token for a fresh token pair.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	if refreshToken == "" {
		return nil, domainerrors.Validation("refresh_token is required")
	}

	session, user, err := s.sessionService.RefreshSession(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{User: user, Session: session}, nil
}

// Logout ends the session behind a refresh token and revokes the current
// access token so it can't be replayed for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, claims *auth.AccessClaims, refreshToken string) error {
	if claims != nil {
		ttl := claims.RemainingLifetime(time.Now())
		if err := s.blocklist.Revoke(ctx, claims.TokenID, ttl); err != nil {
			return fmt.Errorf("revoke access token: %w", err)
		}
	}

	if refreshToken != "" {
		if err := s.sessionService.DeleteSessionByToken(ctx, refreshToken); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}

	if s.logger != nil && claims != nil {
		s.logger.Info("User logged out", "user_id", claims.UserID)
	}

	return nil
}

// VerifyAccessToken validates an access token and checks it against the
// revocation blocklist. Returns the claims when the token is usable.
func (s *AuthService) VerifyAccessToken(ctx context.Context, token string) (*auth.AccessClaims, error) {
	claims, err := s.tokenService.VerifyAccessToken(token)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired token").WithCause(err)
	}

	revoked, err := s.blocklist.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		return nil, fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return nil, domainerrors.Unauthorized("token has been revoked")
	}

	return claims, nil
}

// GetUser loads the account behind verified claims.
func (s *AuthService) GetUser(ctx context.Context, claims *auth.AccessClaims) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, domainerrors.Unauthorized("account no longer exists")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
