package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/momentum-app/momentum/internal/domain/progress"
	"github.com/momentum-app/momentum/internal/domain/taskview"
	"github.com/momentum-app/momentum/internal/models"
)

func validParams() CreateTaskParams {
	return CreateTaskParams{
		ProjectID: "p1",
		CreatorID: "u1",
		Title:     "write report",
		DueAt:     time.Date(2025, time.March, 20, 17, 0, 0, 0, time.UTC),
	}
}

func TestValidateCreateTask(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)
	assert.NoError(validateCreateTask(validParams()))
}

func TestValidateCreateTaskTitleRequired(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	params := validParams()
	params.Title = "   "
	assert.ErrorIs(validateCreateTask(params), ErrTitleRequired)
}

func TestValidateCreateTaskTitleTooLong(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	params := validParams()
	params.Title = strings.Repeat("x", maxTitleLength+1)
	assert.ErrorIs(validateCreateTask(params), ErrTitleTooLong)

	// Length is measured in runes, not bytes.
	params.Title = strings.Repeat("я", maxTitleLength)
	assert.NoError(validateCreateTask(params))
}

func TestValidateCreateTaskDescriptionTooLong(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	params := validParams()
	params.Description = strings.Repeat("x", maxDescriptionLength+1)
	assert.ErrorIs(validateCreateTask(params), ErrDescriptionTooLong)
}

func TestValidateCreateTaskDueDateRequired(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	params := validParams()
	params.DueAt = time.Time{}
	assert.ErrorIs(validateCreateTask(params), ErrDueDateRequired)
}

func TestValidateCreateTaskHabitNeedsRecurrence(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	params := validParams()
	params.Habit = true
	assert.ErrorIs(validateCreateTask(params), ErrRecurrenceRequired)

	params.RecurPattern = "yearly"
	assert.ErrorIs(validateCreateTask(params), ErrInvalidRecurrence)

	params.RecurPattern = models.RecurrenceWeekly
	assert.NoError(validateCreateTask(params))
}

func TestValidateCreateTaskIgnoresRecurrenceForOneOff(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	params := validParams()
	params.RecurPattern = "yearly"
	assert.NoError(validateCreateTask(params))
}

func TestMaterializeTasksOneOff(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	params := validParams()
	params.Title = "  ship release  "
	params.BaseExperience = 0

	tasks, err := materializeTasks(params, now)
	assert.NoError(err)
	assert.Len(tasks, 1)
	assert.Equal("ship release", tasks[0].Title)
	assert.Equal(params.DueAt, tasks[0].DueAt)
	assert.Equal(progress.DefaultBaseExperience, tasks[0].BaseExperience)
	assert.False(tasks[0].Habit)
	assert.Empty(tasks[0].RecurPattern)
	assert.Zero(tasks[0].RecurInterval)
}

func TestMaterializeTasksHabitHorizon(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	params := validParams()
	params.Habit = true
	params.RecurPattern = models.RecurrenceDaily
	params.RecurInterval = 2
	params.BaseExperience = 80

	tasks, err := materializeTasks(params, now)
	assert.NoError(err)
	assert.Len(tasks, habitInstances)

	key := taskview.SeriesKey(*tasks[0])
	ids := make(map[string]struct{}, len(tasks))
	for i, task := range tasks {
		ids[task.ID] = struct{}{}
		assert.Equal(params.DueAt.AddDate(0, 0, 2*i), task.DueAt)
		assert.Equal(80, task.BaseExperience)
		assert.True(task.Habit)
		assert.Equal(key, taskview.SeriesKey(*task))
	}
	assert.Len(ids, habitInstances)
}

func TestMaterializeTasksMonthlyStepping(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	params := validParams()
	params.Habit = true
	params.RecurPattern = models.RecurrenceMonthly
	params.RecurInterval = 1
	params.DueAt = time.Date(2025, time.January, 31, 8, 0, 0, 0, time.UTC)

	tasks, err := materializeTasks(params, time.Now())
	assert.NoError(err)
	assert.Len(tasks, habitInstances)

	// Clamped to the short month, not rolled over into March.
	assert.Equal(time.Date(2025, time.February, 28, 8, 0, 0, 0, time.UTC), tasks[1].DueAt)
	assert.Equal(time.Date(2025, time.March, 28, 8, 0, 0, 0, time.UTC), tasks[2].DueAt)
}

type scriptedRow struct {
	scan func(dest ...any) error
}

func (r scriptedRow) Scan(dest ...any) error { return r.scan(dest...) }

// scriptedStore plays back one row per QueryRow call and hands out a
// prepared transaction on Begin.
type scriptedStore struct {
	rows  []scriptedRow
	tx    pgx.Tx
	begun int
}

func (s *scriptedStore) QueryRow(context.Context, string, ...any) pgx.Row {
	row := s.rows[0]
	s.rows = s.rows[1:]
	return row
}

func (s *scriptedStore) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query")
}

func (s *scriptedStore) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("unexpected exec")
}

func (s *scriptedStore) Begin(context.Context) (pgx.Tx, error) {
	s.begun++
	if s.tx == nil {
		return nil, errors.New("unexpected transaction")
	}
	return s.tx, nil
}

// conflictTx reports zero affected rows for every Exec, the shape a
// lost ON CONFLICT DO NOTHING insert produces.
type conflictTx struct {
	rollbacks int
}

func (t *conflictTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("unexpected nested transaction")
}

func (t *conflictTx) Commit(context.Context) error { return errors.New("unexpected commit") }

func (t *conflictTx) Rollback(context.Context) error {
	t.rollbacks++
	return nil
}

func (t *conflictTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("unexpected copy")
}

func (t *conflictTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }

func (t *conflictTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *conflictTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("unexpected prepare")
}

func (t *conflictTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("INSERT 0 0"), nil
}

func (t *conflictTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query")
}

func (t *conflictTx) QueryRow(context.Context, string, ...any) pgx.Row {
	return scriptedRow{scan: func(...any) error { return errors.New("unexpected query") }}
}

func (t *conflictTx) Conn() *pgx.Conn { return nil }

func taskRow(task *models.Task) scriptedRow {
	return scriptedRow{scan: func(dest ...any) error {
		*dest[0].(*string) = task.ProjectID
		*dest[1].(*string) = task.CreatorID
		*dest[2].(*string) = task.Title
		*dest[3].(*string) = task.Description
		*dest[4].(*time.Time) = task.DueAt
		*dest[5].(*bool) = task.Habit
		*dest[6].(*string) = task.RecurPattern
		*dest[7].(*int) = task.RecurInterval
		*dest[8].(*int) = task.BaseExperience
		*dest[9].(*time.Time) = task.CreatedAt
		*dest[10].(*time.Time) = task.UpdatedAt
		return nil
	}}
}

func roleRow(role string) scriptedRow {
	return scriptedRow{scan: func(dest ...any) error {
		*dest[0].(*string) = role
		return nil
	}}
}

func completionRow(log *models.CompletionLog) scriptedRow {
	return scriptedRow{scan: func(dest ...any) error {
		*dest[0].(*string) = log.ID
		*dest[1].(*time.Time) = log.CompletedAt
		*dest[2].(*int) = log.Experience
		*dest[3].(*bool) = log.Penalized
		*dest[4].(*time.Time) = log.CreatedAt
		return nil
	}}
}

func noRowsRow() scriptedRow {
	return scriptedRow{scan: func(...any) error { return pgx.ErrNoRows }}
}

func TestCompleteTaskIdempotent(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	completedAt := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	store := &scriptedStore{rows: []scriptedRow{
		taskRow(&models.Task{Title: "daily standup", DueAt: completedAt, BaseExperience: 50}),
		roleRow(models.RoleParticipant),
		completionRow(&models.CompletionLog{
			ID:          "log-1",
			CompletedAt: completedAt,
			Experience:  50,
			CreatedAt:   completedAt,
		}),
	}}
	svc := &taskServiceImpl{logger: zerolog.Nop(), pgPool: store}

	log, err := svc.CompleteTask(context.Background(), "t1", "u1")
	assert.NoError(err)
	assert.Equal("log-1", log.ID)
	assert.Equal(completedAt, log.CompletedAt)
	assert.Equal(50, log.Experience)
	assert.False(log.Penalized)
	assert.Zero(store.begun, "a second completion must not write")
}

func TestCompleteTaskConcurrentLoserReturnsWinnerLog(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	wonAt := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	tx := &conflictTx{}
	store := &scriptedStore{
		rows: []scriptedRow{
			taskRow(&models.Task{Title: "daily standup", DueAt: wonAt, BaseExperience: 50}),
			roleRow(models.RoleParticipant),
			noRowsRow(),
			completionRow(&models.CompletionLog{
				ID:          "log-w",
				CompletedAt: wonAt,
				Experience:  50,
				CreatedAt:   wonAt,
			}),
		},
		tx: tx,
	}
	svc := &taskServiceImpl{logger: zerolog.Nop(), pgPool: store}

	log, err := svc.CompleteTask(context.Background(), "t1", "u1")
	assert.NoError(err)
	assert.Equal("log-w", log.ID)
	assert.Equal(1, store.begun)
	assert.GreaterOrEqual(tx.rollbacks, 1)
}

func TestCompleteTaskConcurrentLoserWinnerVanished(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	dueAt := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	store := &scriptedStore{
		rows: []scriptedRow{
			taskRow(&models.Task{Title: "daily standup", DueAt: dueAt, BaseExperience: 50}),
			roleRow(models.RoleParticipant),
			noRowsRow(),
			noRowsRow(),
		},
		tx: &conflictTx{},
	}
	svc := &taskServiceImpl{logger: zerolog.Nop(), pgPool: store}

	_, err := svc.CompleteTask(context.Background(), "t1", "u1")
	assert.ErrorIs(err, ErrTaskNotFound)
}
