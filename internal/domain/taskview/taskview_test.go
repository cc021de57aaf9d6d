package taskview_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/momentum-app/momentum/internal/domain/taskview"
	"github.com/momentum-app/momentum/internal/models"
)

var testNow = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

func newTask(id, title string, dueAt time.Time) models.Task {
	return models.Task{
		ID:        id,
		ProjectID: "project",
		Title:     title,
		DueAt:     dueAt,
	}
}

func TestClassifyCompletedWinsOverArchived(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	task := newTask("t1", "write report", testNow.Add(24*time.Hour))
	status := &models.TaskStatus{TaskID: "t1", State: models.StatusArchived}
	completion := &models.CompletionLog{TaskID: "t1", CompletedAt: testNow}

	category := taskview.Classify(task, status, completion, testNow)
	assert.Equal(taskview.CategoryCompleted, category)
}

func TestClassifyArchived(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	task := newTask("t1", "write report", testNow.Add(24*time.Hour))
	status := &models.TaskStatus{TaskID: "t1", State: models.StatusArchived}

	category := taskview.Classify(task, status, nil, testNow)
	assert.Equal(taskview.CategoryArchived, category)
}

func TestClassifyUpcomingOnLaterDay(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	task := newTask("t1", "write report", testNow.AddDate(0, 0, 1))
	category := taskview.Classify(task, nil, nil, testNow)
	assert.Equal(taskview.CategoryUpcoming, category)
}

func TestClassifyDueLaterTodayIsActive(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	task := newTask("t1", "write report", testNow.Add(4*time.Hour))
	category := taskview.Classify(task, nil, nil, testNow)
	assert.Equal(taskview.CategoryActive, category)
}

func TestClassifyOverdueStaysActive(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	task := newTask("t1", "write report", testNow.AddDate(0, 0, -3))
	category := taskview.Classify(task, nil, nil, testNow)
	assert.Equal(taskview.CategoryActive, category)
}

func TestClassifyComparesCalendarDaysAcrossZones(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	// 23:00 UTC today is already tomorrow in UTC+2, so a viewer in that
	// zone sees the task as upcoming.
	viewerZone := time.FixedZone("UTC+2", 2*60*60)
	now := time.Date(2025, time.March, 15, 23, 30, 0, 0, time.UTC)
	task := newTask("t1", "write report", time.Date(2025, time.March, 16, 1, 0, 0, 0, viewerZone))

	assert.Equal(taskview.CategoryActive, taskview.Classify(task, nil, nil, now.In(viewerZone)))

	task = newTask("t1", "write report", time.Date(2025, time.March, 17, 1, 0, 0, 0, viewerZone))
	assert.Equal(taskview.CategoryUpcoming, taskview.Classify(task, nil, nil, now.In(viewerZone)))
}

func TestBuildCategorizesAndSorts(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	tasks := []models.Task{
		newTask("t3", "ship release", testNow.AddDate(0, 0, 2)),
		newTask("t1", "write report", testNow.Add(-time.Hour)),
		newTask("t2", "review docs", testNow.Add(-time.Hour)),
		newTask("t4", "old chore", testNow.AddDate(0, 0, -5)),
	}
	statuses := map[string]models.TaskStatus{
		"t4": {TaskID: "t4", State: models.StatusArchived},
	}
	completions := map[string]models.CompletionLog{
		"t2": {TaskID: "t2", CompletedAt: testNow},
	}

	view := taskview.Build(tasks, statuses, completions, testNow)

	assert.Len(view.Active, 1)
	assert.Equal("t1", view.Active[0].Task.ID)
	assert.Len(view.Upcoming, 1)
	assert.Equal("t3", view.Upcoming[0].Task.ID)
	assert.Len(view.Completed, 1)
	assert.Equal("t2", view.Completed[0].Task.ID)
	assert.Len(view.Archived, 1)
	assert.Equal("t4", view.Archived[0].Task.ID)
}

func TestBuildSortsByDueDateThenTitle(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	due := testNow.Add(-time.Hour)
	tasks := []models.Task{
		newTask("t1", "zebra", due),
		newTask("t2", "apple", due),
		newTask("t3", "mango", due.Add(-time.Minute)),
	}

	view := taskview.Build(tasks, nil, nil, testNow)

	assert.Len(view.Active, 3)
	assert.Equal("t3", view.Active[0].Task.ID)
	assert.Equal("t2", view.Active[1].Task.ID)
	assert.Equal("t1", view.Active[2].Task.ID)
}

func TestBuildGroupsHabitSeries(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	habit := func(id string, due time.Time) models.Task {
		task := newTask(id, "morning run", due)
		task.Habit = true
		task.RecurPattern = models.RecurrenceDaily
		task.RecurInterval = 1
		return task
	}

	tasks := []models.Task{
		habit("h1", testNow.AddDate(0, 0, -1)),
		habit("h2", testNow),
		habit("h3", testNow.AddDate(0, 0, 1)),
		newTask("t1", "one off", testNow),
	}
	completions := map[string]models.CompletionLog{
		"h1": {TaskID: "h1", CompletedAt: testNow},
	}

	view := taskview.Build(tasks, nil, completions, testNow)

	assert.Len(view.Series, 1)
	series := view.Series[0]
	assert.Equal("morning run", series.Title)
	assert.Equal(models.RecurrenceDaily, series.Pattern)
	assert.Equal(1, series.Interval)
	assert.Len(series.Items, 3)
	assert.Equal(1, series.Completed)

	// Instances stay in due-date order inside the series.
	assert.Equal("h1", series.Items[0].Task.ID)
	assert.Equal("h3", series.Items[2].Task.ID)
}

func TestNextDueDaily(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	from := time.Date(2025, time.March, 15, 9, 0, 0, 0, time.UTC)
	assert.Equal(from.AddDate(0, 0, 1), taskview.NextDue(models.RecurrenceDaily, 1, from))
	assert.Equal(from.AddDate(0, 0, 3), taskview.NextDue(models.RecurrenceDaily, 3, from))
}

func TestNextDueWeekly(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	from := time.Date(2025, time.March, 15, 9, 0, 0, 0, time.UTC)
	assert.Equal(from.AddDate(0, 0, 14), taskview.NextDue(models.RecurrenceWeekly, 2, from))
}

func TestNextDueMonthlyClampsShortMonths(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	from := time.Date(2025, time.January, 31, 9, 0, 0, 0, time.UTC)
	next := taskview.NextDue(models.RecurrenceMonthly, 1, from)
	assert.Equal(time.Date(2025, time.February, 28, 9, 0, 0, 0, time.UTC), next)

	next = taskview.NextDue(models.RecurrenceMonthly, 1, next)
	assert.Equal(time.Date(2025, time.March, 28, 9, 0, 0, 0, time.UTC), next)
}

func TestNextDueZeroIntervalDefaultsToOne(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	from := time.Date(2025, time.March, 15, 9, 0, 0, 0, time.UTC)
	assert.Equal(from.AddDate(0, 0, 1), taskview.NextDue(models.RecurrenceDaily, 0, from))
}

func TestSeriesKeyDistinguishesPatternAndInterval(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	daily := models.Task{Title: "run", RecurPattern: models.RecurrenceDaily, RecurInterval: 1}
	weekly := models.Task{Title: "run", RecurPattern: models.RecurrenceWeekly, RecurInterval: 1}
	every2 := models.Task{Title: "run", RecurPattern: models.RecurrenceDaily, RecurInterval: 2}

	assert.NotEqual(taskview.SeriesKey(daily), taskview.SeriesKey(weekly))
	assert.NotEqual(taskview.SeriesKey(daily), taskview.SeriesKey(every2))
	assert.Equal(taskview.SeriesKey(daily), taskview.SeriesKey(daily))
}
