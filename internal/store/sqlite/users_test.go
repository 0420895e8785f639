package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/workroomapp/workroom-server/internal/store"
)

func TestCreateAndGetUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := makeTestUser("usr-1", "Alice@Example.com", "alice")
	user.AvatarURL = "https://cdn.example.com/a.png"
	user.XP = 42

	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := s.GetUser(ctx, "usr-1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}

	if got.Email != user.Email {
		t.Errorf("Email: got %q, want %q", got.Email, user.Email)
	}
	if got.Username != "alice" {
		t.Errorf("Username: got %q, want %q", got.Username, "alice")
	}
	if got.PasswordHash != user.PasswordHash {
		t.Errorf("PasswordHash: got %q, want %q", got.PasswordHash, user.PasswordHash)
	}
	if got.AvatarURL != user.AvatarURL {
		t.Errorf("AvatarURL: got %q, want %q", got.AvatarURL, user.AvatarURL)
	}
	if got.XP != 42 {
		t.Errorf("XP: got %d, want 42", got.XP)
	}

	// Timestamps round-trip through RFC3339Nano.
	if got.CreatedAt.Unix() != user.CreatedAt.Unix() {
		t.Errorf("CreatedAt: got %v, want %v", got.CreatedAt, user.CreatedAt)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetUser(context.Background(), "nonexistent")
	if !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetUserByEmail_CaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, s, "usr-1", "Alice@Example.com", "alice")

	got, err := s.GetUserByEmail(ctx, "alice@example.COM")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.ID != "usr-1" {
		t.Errorf("ID: got %q, want usr-1", got.ID)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, s, "usr-1", "a@example.com", "alice")

	dup := makeTestUser("usr-2", "A@Example.com", "alice2")
	err := s.CreateUser(ctx, dup)
	if !errors.Is(err, store.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, s, "usr-1", "a@example.com", "alice")

	dup := makeTestUser("usr-2", "b@example.com", "alice")
	err := s.CreateUser(ctx, dup)
	if !errors.Is(err, store.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestUpdateUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := mustCreateUser(t, s, "usr-1", "a@example.com", "alice")
	user.XP = 120
	user.FirstName = "Alicia"

	if err := s.UpdateUser(ctx, user); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	got, err := s.GetUser(ctx, "usr-1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.XP != 120 {
		t.Errorf("XP: got %d, want 120", got.XP)
	}
	if got.FirstName != "Alicia" {
		t.Errorf("FirstName: got %q, want Alicia", got.FirstName)
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	s := newTestStore(t)

	user := makeTestUser("ghost", "g@example.com", "ghost")
	err := s.UpdateUser(context.Background(), user)
	if !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetProfile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := mustCreateUser(t, s, "usr-1", "a@example.com", "alice")

	p, err := s.GetProfile(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.Username != "alice" {
		t.Errorf("Username: got %q, want alice", p.Username)
	}
	if p.FirstName != "Test" || p.LastName != "User" {
		t.Errorf("names: got %q %q", p.FirstName, p.LastName)
	}
}
