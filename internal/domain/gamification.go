package domain

import "time"

// LevelCategory is an axis along which a user accrues level points.
type LevelCategory string

const (
	// CategoryLeader rewards creating and driving tasks.
	CategoryLeader LevelCategory = "Leader"
	// CategoryWorkaholic rewards completing tasks, especially on time.
	CategoryWorkaholic LevelCategory = "Workaholic"
	// CategoryTeamPlayer rewards collaborating on other people's tasks.
	CategoryTeamPlayer LevelCategory = "Team Player"
	// CategorySlacker penalizes a low completion ratio.
	CategorySlacker LevelCategory = "Slacker"
)

// LevelCategories lists every category in a stable order.
func LevelCategories() []LevelCategory {
	return []LevelCategory{CategoryLeader, CategoryWorkaholic, CategoryTeamPlayer, CategorySlacker}
}

// LevelTier is derived from level points and never set independently.
type LevelTier string

const (
	// TierBeginner covers points below 50.
	TierBeginner LevelTier = "Beginner"
	// TierIntermediate covers points 50 to 149.
	TierIntermediate LevelTier = "Intermediate"
	// TierAdvanced covers points 150 to 299.
	TierAdvanced LevelTier = "Advanced"
	// TierExpert covers points 300 and above.
	TierExpert LevelTier = "Expert"
)

// UserLevel holds the accumulated points for one (user, category) pair.
// Tier is always recomputed from Points on update.
type UserLevel struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Category  LevelCategory `json:"category"`
	Tier      LevelTier     `json:"tier"`
	Points    int           `json:"points"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// UserStreak tracks consecutive-day activity for one user.
// Invariant: HighestStreak >= CurrentStreak after every update.
type UserStreak struct {
	UserID         string     `json:"user_id"`
	CurrentStreak  int        `json:"current_streak"`
	HighestStreak  int        `json:"highest_streak"`
	LastActiveDate *time.Time `json:"last_active_date,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Badge is a one-time achievement a user can earn.
type Badge struct {
	Entity
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IconURL     string `json:"icon_url,omitempty"`
}

// UserBadge links a user to a badge they earned.
// Awarded at most once per (user, badge) pair.
type UserBadge struct {
	UserID    string    `json:"user_id"`
	BadgeID   string    `json:"badge_id"`
	AwardedAt time.Time `json:"awarded_at"`
}

// LeaderboardEntry is one fully derived row of a workroom's leaderboard.
// Rows are recomputed wholesale, never incrementally patched.
type LeaderboardEntry struct {
	ID            string    `json:"id"`
	WorkroomID    string    `json:"workroom_id"`
	UserID        string    `json:"user_id"`
	Username      string    `json:"username"`
	Score         int       `json:"score"`
	TeamworkScore int       `json:"teamwork_score"`
	Rank          int       `json:"rank"`
	UpdatedAt     time.Time `json:"updated_at"`
}
