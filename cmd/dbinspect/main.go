// Package main provides a read-only inspection tool for the workroom
// database and token blocklist.
//
// Usage:
//
//	DATA_PATH=~/workroom go run ./cmd/dbinspect
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	_ "modernc.org/sqlite"
)

func main() {
	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/workroom")
	}

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	inspectSQLite(filepath.Join(dataPath, "workroom.db"))
	inspectBlocklist(filepath.Join(dataPath, "blocklist"))
}

// inspectSQLite prints row counts per table and the top users by XP.
func inspectSQLite(path string) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	tables := []string{
		"users", "sessions", "tasks", "task_collaborators",
		"workrooms", "workroom_members", "live_sessions",
		"user_levels", "user_streaks", "badges", "user_badges", "leaderboards",
	}

	fmt.Printf("SQLite: %s\n", path)
	for _, table := range tables {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			fmt.Printf("  %-24s (error: %v)\n", table, err)
			continue
		}
		fmt.Printf("  %-24s %d\n", table, count)
	}

	rows, err := db.Query("SELECT username, xp FROM users ORDER BY xp DESC LIMIT 5")
	if err != nil {
		log.Printf("Failed to query top users: %v", err)
		return
	}
	defer rows.Close()

	fmt.Println("\nTop users by XP:")
	for rows.Next() {
		var username string
		var xp int
		if err := rows.Scan(&username, &xp); err != nil {
			log.Printf("  scan error: %v", err)
			continue
		}
		fmt.Printf("  %-16s %d XP\n", username, xp)
	}
	if err := rows.Err(); err != nil {
		log.Printf("Failed to iterate users: %v", err)
	}
	fmt.Println()
}

// inspectBlocklist prints the revoked token IDs still held in badger,
// with their remaining TTLs.
func inspectBlocklist(path string) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		fmt.Printf("Blocklist: not available (%v)\n", err)
		return
	}
	defer db.Close()

	fmt.Printf("Blocklist: %s\n", path)

	revoked := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			revoked++
			if revoked <= 10 {
				remaining := time.Until(time.Unix(int64(item.ExpiresAt()), 0)).Round(time.Second)
				fmt.Printf("  %s (expires in %s)\n", item.Key(), remaining)
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating blocklist: %v", err)
	}

	if revoked > 10 {
		fmt.Printf("  ... and %d more\n", revoked-10)
	}
	fmt.Printf("Total revoked tokens: %d\n", revoked)
}
