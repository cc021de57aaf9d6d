package taskview

import (
	"fmt"
	"sort"
	"time"

	"github.com/momentum-app/momentum/internal/models"
)

type Category string

const (
	CategoryActive    Category = "active"
	CategoryUpcoming  Category = "upcoming"
	CategoryCompleted Category = "completed"
	CategoryArchived  Category = "archived"
)

// Item is a task joined with the requesting user's status and completion
// rows, tagged with its derived category.
type Item struct {
	Task       models.Task
	Status     *models.TaskStatus
	Completion *models.CompletionLog
	Category   Category
}

// Series groups habit task instances sharing title, recurrence pattern
// and interval. Instances are ordered by due date.
type Series struct {
	Key       string
	Title     string
	Pattern   string
	Interval  int
	Items     []Item
	Completed int
}

// View is the categorized projection of a user's tasks within a project.
type View struct {
	Active    []Item
	Upcoming  []Item
	Completed []Item
	Archived  []Item
	Series    []Series
}

// Classify derives the category of a single task for one user. A completion
// log wins over everything; an archived status row wins over date logic;
// otherwise the task is upcoming when due on a later local day and active
// otherwise. Overdue tasks stay active so they keep accruing the penalty.
func Classify(task models.Task, status *models.TaskStatus, completion *models.CompletionLog, now time.Time) Category {
	if completion != nil {
		return CategoryCompleted
	}
	if status != nil && status.State == models.StatusArchived {
		return CategoryArchived
	}
	if laterDay(task.DueAt, now) {
		return CategoryUpcoming
	}
	return CategoryActive
}

// Build projects already-fetched rows into a View. The statuses and
// completions maps are keyed by task id and hold the requesting user's rows.
func Build(tasks []models.Task, statuses map[string]models.TaskStatus, completions map[string]models.CompletionLog, now time.Time) *View {
	view := &View{}

	items := make([]Item, 0, len(tasks))
	for _, task := range tasks {
		item := Item{Task: task}
		if status, ok := statuses[task.ID]; ok {
			s := status
			item.Status = &s
		}
		if completion, ok := completions[task.ID]; ok {
			c := completion
			item.Completion = &c
		}
		item.Category = Classify(task, item.Status, item.Completion, now)
		items = append(items, item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Task.DueAt.Equal(items[j].Task.DueAt) {
			return items[i].Task.DueAt.Before(items[j].Task.DueAt)
		}
		return items[i].Task.Title < items[j].Task.Title
	})

	for _, item := range items {
		switch item.Category {
		case CategoryCompleted:
			view.Completed = append(view.Completed, item)
		case CategoryArchived:
			view.Archived = append(view.Archived, item)
		case CategoryUpcoming:
			view.Upcoming = append(view.Upcoming, item)
		default:
			view.Active = append(view.Active, item)
		}
	}

	view.Series = buildSeries(items)
	return view
}

// SeriesKey derives the grouping key habit instances share.
func SeriesKey(t models.Task) string {
	return fmt.Sprintf("%s|%s|%d", t.Title, t.RecurPattern, t.RecurInterval)
}

func buildSeries(items []Item) []Series {
	byKey := make(map[string]*Series)
	var order []string

	for _, item := range items {
		if !item.Task.Habit {
			continue
		}
		key := SeriesKey(item.Task)
		series, ok := byKey[key]
		if !ok {
			series = &Series{
				Key:      key,
				Title:    item.Task.Title,
				Pattern:  item.Task.RecurPattern,
				Interval: item.Task.RecurInterval,
			}
			byKey[key] = series
			order = append(order, key)
		}
		series.Items = append(series.Items, item)
		if item.Completion != nil {
			series.Completed++
		}
	}

	result := make([]Series, 0, len(order))
	for _, key := range order {
		result = append(result, *byKey[key])
	}
	return result
}

// NextDue advances a habit due date by one recurrence step. Monthly steps
// clamp the day of month, so an instance due January 31 lands on the last
// day of short months.
func NextDue(pattern string, interval int, from time.Time) time.Time {
	if interval < 1 {
		interval = 1
	}
	switch pattern {
	case models.RecurrenceDaily:
		return from.AddDate(0, 0, interval)
	case models.RecurrenceWeekly:
		return from.AddDate(0, 0, 7*interval)
	case models.RecurrenceMonthly:
		return addMonthsClamped(from, interval)
	}
	return from
}

func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	first = first.AddDate(0, months, 0)
	if last := daysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// laterDay reports whether t falls on a later calendar day than now,
// compared in now's location.
func laterDay(t, now time.Time) bool {
	t = t.In(now.Location())
	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	if ty != ny {
		return ty > ny
	}
	if tm != nm {
		return tm > nm
	}
	return td > nd
}
