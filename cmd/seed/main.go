// Package main provides a tool to seed the database with test workroom data.
//
// It creates a handful of users, a shared workroom, and a spread of tasks,
// then completes some of them through the task service so XP, streaks,
// badges, and the leaderboard have realistic values to exercise.
//
// Usage:
//
//	DATA_PATH=~/workroom go run ./cmd/seed
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/workroomapp/workroom-server/internal/auth"
	"github.com/workroomapp/workroom-server/internal/domain"
	"github.com/workroomapp/workroom-server/internal/id"
	"github.com/workroomapp/workroom-server/internal/service"
	"github.com/workroomapp/workroom-server/internal/store/sqlite"
)

var taskCount = flag.Int("tasks", 6, "Tasks to create per user")

// seedUsers are the accounts created by the tool. All share the password
// "testpass123".
var seedUsers = []struct {
	email    string
	username string
	first    string
	last     string
}{
	{"alex@example.com", "alex", "Alex", "Rivera"},
	{"jordan@example.com", "jordan", "Jordan", "Chen"},
	{"sam@example.com", "sam", "Sam", "Taylor"},
	{"casey@example.com", "casey", "Casey", "Morgan"},
	{"riley@example.com", "riley", "Riley", "Kim"},
}

// taskTitles is recycled as needed for generated tasks.
var taskTitles = []string{
	"Write the weekly update",
	"Review open pull requests",
	"Prepare the demo",
	"Clean up the backlog",
	"Draft the launch checklist",
	"Fix the flaky integration test",
	"Update the onboarding doc",
	"Triage inbound reports",
}

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/workroom")
	}

	dbPath := filepath.Join(dataPath, "workroom.db")
	fmt.Printf("Opening database at: %s\n", dbPath)

	s, err := sqlite.Open(dbPath, nil)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	gamification := service.NewGamificationService(s, nil)
	if err := gamification.EnsureBadges(ctx); err != nil {
		log.Fatalf("Failed to seed badges: %v", err)
	}
	tasks := service.NewTaskService(s, gamification, nil)
	workrooms := service.NewWorkroomService(s, nil)
	leaderboard := service.NewLeaderboardService(s, nil)

	passwordHash, err := auth.HashPassword("testpass123")
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	// Create users, skipping any that already exist.
	users := make([]*domain.User, 0, len(seedUsers))
	for _, su := range seedUsers {
		if existing, err := s.GetUserByEmail(ctx, su.email); err == nil {
			fmt.Printf("  User %s already exists, skipping\n", su.email)
			users = append(users, existing)
			continue
		}

		user := &domain.User{
			Entity:       domain.Entity{ID: id.MustGenerate(id.PrefixUser)},
			Email:        su.email,
			Username:     su.username,
			PasswordHash: passwordHash,
			Role:         domain.RoleMember,
			FirstName:    su.first,
			LastName:     su.last,
		}
		user.InitTimestamps()

		if err := s.CreateUser(ctx, user); err != nil {
			log.Printf("  Failed to create user %s: %v", su.email, err)
			continue
		}
		fmt.Printf("  Created user: %s (%s)\n", su.username, su.email)
		users = append(users, user)
	}

	if len(users) == 0 {
		log.Fatal("No users available, nothing to seed")
	}

	// One shared workroom owned by the first user, everyone a member.
	owner := users[0]
	room, err := workrooms.CreateWorkroom(ctx, owner.ID, service.CreateWorkroomRequest{
		Name:        "Demo Workroom",
		Description: "Seeded room for local development",
	})
	if err != nil {
		log.Fatalf("Failed to create workroom: %v", err)
	}
	for _, u := range users[1:] {
		if err := workrooms.AddMember(ctx, owner.ID, room.ID, service.AddMemberRequest{UserID: u.ID}); err != nil {
			log.Printf("  Failed to add %s to workroom: %v", u.Username, err)
		}
	}
	fmt.Printf("Created workroom %s with %d members\n", room.ID, len(users))

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now()

	// A spread of tasks per user: some with due dates, roughly two thirds
	// completed through the service so gamification state accrues.
	for _, u := range users {
		completed := 0
		for n := range *taskCount {
			req := service.CreateTaskRequest{
				Title:      taskTitles[rng.Intn(len(taskTitles))],
				Category:   "general",
				WorkroomID: room.ID,
			}
			if n%2 == 0 {
				due := now.Add(time.Duration(1+rng.Intn(72)) * time.Hour)
				req.DueDate = &due
			}

			task, err := tasks.CreateTask(ctx, u.ID, req)
			if err != nil {
				log.Printf("  Failed to create task for %s: %v", u.Username, err)
				continue
			}

			if rng.Float32() < 0.66 {
				if _, err := tasks.CompleteTask(ctx, u.ID, task.ID); err != nil {
					log.Printf("  Failed to complete task %s: %v", task.ID, err)
					continue
				}
				completed++
			}
		}
		fmt.Printf("  %s: %d tasks created, %d completed\n", u.Username, *taskCount, completed)
	}

	if err := leaderboard.Recompute(ctx, room.ID); err != nil {
		log.Fatalf("Failed to recompute leaderboard: %v", err)
	}

	entries, err := s.GetLeaderboard(ctx, room.ID)
	if err != nil {
		log.Fatalf("Failed to read leaderboard: %v", err)
	}

	fmt.Println("\nLeaderboard:")
	for _, e := range entries {
		fmt.Printf("  #%d %-10s score=%d teamwork=%d\n", e.Rank, e.Username, e.Score, e.TeamworkScore)
	}

	fmt.Println("\nSeeding complete!")
}
