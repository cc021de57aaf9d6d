package progress_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/momentum-app/momentum/internal/domain/progress"
	"github.com/momentum-app/momentum/internal/models"
)

var testNow = time.Date(2025, time.March, 15, 18, 0, 0, 0, time.UTC)

func TestExperienceOnTime(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	dueAt := testNow
	earned, penalized := progress.Experience(80, dueAt, dueAt.Add(-time.Hour))
	assert.Equal(80, earned)
	assert.False(penalized)

	// Completing exactly at the due moment still earns the full base.
	earned, penalized = progress.Experience(80, dueAt, dueAt)
	assert.Equal(80, earned)
	assert.False(penalized)
}

func TestExperienceLatePenalty(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	dueAt := testNow
	earned, penalized := progress.Experience(80, dueAt, dueAt.Add(time.Minute))
	assert.Equal(60, earned)
	assert.True(penalized)
}

func TestExperienceNeverBelowOne(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	dueAt := testNow
	earned, penalized := progress.Experience(1, dueAt, dueAt.Add(time.Hour))
	assert.Equal(1, earned)
	assert.True(penalized)
}

func TestExperienceZeroBaseUsesDefault(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	dueAt := testNow
	earned, penalized := progress.Experience(0, dueAt, dueAt.Add(-time.Hour))
	assert.Equal(progress.DefaultBaseExperience, earned)
	assert.False(penalized)
}

func logOn(day time.Time, experience int) models.CompletionLog {
	return models.CompletionLog{
		CompletedAt: day,
		Experience:  experience,
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	stats := progress.ComputeStats(nil, testNow)
	assert.Equal(0, stats.Completions)
	assert.Equal(0, stats.TotalExperience)
	assert.Equal(0, stats.CurrentStreak)
	assert.Equal(0, stats.LongestStreak)
	assert.Equal(0, stats.Level)
	assert.Equal(100, stats.NextLevelAt)
}

func TestComputeStatsTotalsAndLevel(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	logs := []models.CompletionLog{
		logOn(testNow.AddDate(0, 0, -1), 250),
		logOn(testNow.AddDate(0, 0, -2), 200),
	}

	stats := progress.ComputeStats(logs, testNow)
	assert.Equal(2, stats.Completions)
	assert.Equal(450, stats.TotalExperience)
	assert.Equal(2, stats.Level)
	assert.Equal(900, stats.NextLevelAt)
}

func TestComputeStatsCurrentStreakSurvivesToday(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	// No completion today yet; three consecutive prior days still count
	// as a live streak.
	logs := []models.CompletionLog{
		logOn(testNow.AddDate(0, 0, -1), 50),
		logOn(testNow.AddDate(0, 0, -2), 50),
		logOn(testNow.AddDate(0, 0, -3), 50),
	}

	stats := progress.ComputeStats(logs, testNow)
	assert.Equal(3, stats.CurrentStreak)
	assert.Equal(3, stats.LongestStreak)
}

func TestComputeStatsBrokenStreak(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	logs := []models.CompletionLog{
		logOn(testNow, 50),
		logOn(testNow.AddDate(0, 0, -3), 50),
		logOn(testNow.AddDate(0, 0, -4), 50),
		logOn(testNow.AddDate(0, 0, -5), 50),
	}

	stats := progress.ComputeStats(logs, testNow)
	assert.Equal(1, stats.CurrentStreak)
	assert.Equal(3, stats.LongestStreak)
}

func TestComputeStatsMultipleCompletionsSameDay(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	logs := []models.CompletionLog{
		logOn(testNow.Add(-time.Hour), 50),
		logOn(testNow.Add(-2*time.Hour), 50),
		logOn(testNow.AddDate(0, 0, -1), 50),
	}

	stats := progress.ComputeStats(logs, testNow)
	assert.Equal(3, stats.Completions)
	assert.Equal(2, stats.CurrentStreak)
	assert.Equal(2, stats.LongestStreak)
}

func TestComputeStatsUsesViewerLocation(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	// 23:30 UTC and 00:30 UTC the next day are the same calendar day in
	// UTC-2, so they form a one-day streak, not two.
	viewerZone := time.FixedZone("UTC-2", -2*60*60)
	logs := []models.CompletionLog{
		logOn(time.Date(2025, time.March, 14, 23, 30, 0, 0, time.UTC), 50),
		logOn(time.Date(2025, time.March, 15, 0, 30, 0, 0, time.UTC), 50),
	}

	stats := progress.ComputeStats(logs, time.Date(2025, time.March, 15, 10, 0, 0, 0, viewerZone))
	assert.Equal(1, stats.CurrentStreak)
	assert.Equal(1, stats.LongestStreak)
}
