package progress

import (
	"sort"
	"time"

	"github.com/momentum-app/momentum/internal/models"
)

// DefaultBaseExperience is used for tasks created without an explicit
// experience value.
const DefaultBaseExperience = 50

const (
	latePenaltyPercent = 25
	minimumPercent     = 10
	levelUnit          = 100
)

// Experience returns the experience earned for completing a task and
// whether the late penalty applied. Completing on or before the due
// moment earns the full base; completing later costs a quarter of it,
// floored at a tenth of the base.
func Experience(base int, dueAt, completedAt time.Time) (int, bool) {
	if base <= 0 {
		base = DefaultBaseExperience
	}
	if !completedAt.After(dueAt) {
		return base, false
	}

	earned := base * (100 - latePenaltyPercent) / 100
	if floor := base * minimumPercent / 100; earned < floor {
		earned = floor
	}
	if earned < 1 {
		earned = 1
	}
	return earned, true
}

// Stats summarizes a user's completion history.
type Stats struct {
	Completions     int
	TotalExperience int
	CurrentStreak   int
	LongestStreak   int
	Level           int
	NextLevelAt     int
}

// ComputeStats derives totals, level, and streaks from a user's completion
// logs. Streaks count consecutive calendar days with at least one
// completion, compared in now's location; the current streak survives
// when today has no completion yet.
func ComputeStats(logs []models.CompletionLog, now time.Time) Stats {
	stats := Stats{Completions: len(logs)}
	loc := now.Location()

	days := make(map[time.Time]struct{})
	for _, log := range logs {
		stats.TotalExperience += log.Experience
		days[midnight(log.CompletedAt.In(loc))] = struct{}{}
	}

	stats.Level, stats.NextLevelAt = level(stats.TotalExperience)

	today := midnight(now)
	start := today
	if _, ok := days[start]; !ok {
		start = start.AddDate(0, 0, -1)
	}
	for {
		if _, ok := days[start]; !ok {
			break
		}
		stats.CurrentStreak++
		start = start.AddDate(0, 0, -1)
	}

	ordered := make([]time.Time, 0, len(days))
	for day := range days {
		ordered = append(ordered, day)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	run := 0
	for i, day := range ordered {
		if i > 0 && ordered[i-1].AddDate(0, 0, 1).Equal(day) {
			run++
		} else {
			run = 1
		}
		if run > stats.LongestStreak {
			stats.LongestStreak = run
		}
	}

	return stats
}

// level returns the level reached for a total and the total required for
// the next one. Level n requires levelUnit*n^2 experience.
func level(total int) (int, int) {
	lvl := 0
	for levelUnit*(lvl+1)*(lvl+1) <= total {
		lvl++
	}
	return lvl, levelUnit * (lvl + 1) * (lvl + 1)
}

func midnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
