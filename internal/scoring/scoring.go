// Package scoring computes task points, level tiers, and category points.
// Everything here is pure arithmetic over validated inputs; callers own the
// queries and the persistence.
package scoring

import (
	"time"

	"github.com/workroomapp/workroom-server/internal/domain"
)

// BasePoints is the full value of a task completed on time.
const BasePoints = 10

// lateness deduction tiers, checked in order.
var latenessTiers = []struct {
	within    time.Duration
	deduction int
}{
	{time.Hour, 1},
	{6 * time.Hour, 2},
	{12 * time.Hour, 3},
	{24 * time.Hour, 4},
	{48 * time.Hour, 6},
}

// TaskPoints returns the points earned for a task given its due date and
// completion time. A task with a due date that was never completed earns
// nothing; a task without a due date earns full points whenever it finishes.
// Completions more than two days late earn nothing. Result is always in [0, 10].
func TaskPoints(dueDate, completedAt *time.Time) int {
	if dueDate == nil {
		return BasePoints
	}
	if completedAt == nil {
		return 0
	}

	late := completedAt.Sub(*dueDate)
	if late <= 0 {
		return BasePoints
	}

	for _, tier := range latenessTiers {
		if late <= tier.within {
			return max(0, BasePoints-tier.deduction)
		}
	}
	return 0
}

// TierForPoints derives the level tier from accumulated points.
// Tier is a pure function of points and is never stored independently.
func TierForPoints(points int) domain.LevelTier {
	switch {
	case points < 50:
		return domain.TierBeginner
	case points < 150:
		return domain.TierIntermediate
	case points < 300:
		return domain.TierAdvanced
	default:
		return domain.TierExpert
	}
}

// ActivityCounts are the per-user aggregates category points derive from.
// The caller supplies counts already scoped and validated.
type ActivityCounts struct {
	TasksCreated      int
	TasksCompleted    int
	OnTimeCompletions int
	Collaborations    int
	InvitedByOthers   int
}

// LeaderPoints rewards task creation: 5 points per created task.
func LeaderPoints(c ActivityCounts) int {
	return 5 * c.TasksCreated
}

// WorkaholicPoints rewards completion: 3 points per completed task plus a
// 2-point bonus for each completion that beat its due date.
func WorkaholicPoints(c ActivityCounts) int {
	return 3*c.TasksCompleted + 2*c.OnTimeCompletions
}

// TeamPlayerPoints rewards collaboration: 5 points per collaboration plus
// 3 points for each collaboration someone else invited the user into.
func TeamPlayerPoints(c ActivityCounts) int {
	return 5*c.Collaborations + 3*c.InvitedByOthers
}

// SlackerPoints penalizes a completion ratio under 20%. Users who created
// nothing are not penalized.
func SlackerPoints(c ActivityCounts) int {
	if c.TasksCreated > 0 && float64(c.TasksCompleted)/float64(c.TasksCreated) < 0.2 {
		return -5
	}
	return 0
}

// CategoryPoints returns the points for one category given the counts.
func CategoryPoints(category domain.LevelCategory, c ActivityCounts) int {
	switch category {
	case domain.CategoryLeader:
		return LeaderPoints(c)
	case domain.CategoryWorkaholic:
		return WorkaholicPoints(c)
	case domain.CategoryTeamPlayer:
		return TeamPlayerPoints(c)
	case domain.CategorySlacker:
		return SlackerPoints(c)
	default:
		return 0
	}
}
