package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/momentum-app/momentum/internal/domain/progress"
	"github.com/momentum-app/momentum/internal/domain/taskview"
	"github.com/momentum-app/momentum/internal/events"
	"github.com/momentum-app/momentum/internal/models"
)

const (
	maxTitleLength       = 120
	maxDescriptionLength = 2000

	// habitInstances is how many instances a habit task materializes
	// at creation.
	habitInstances = 7
)

// taskStore is the slice of *pgxpool.Pool the task service touches,
// narrowed so tests can script the rows it reads.
type taskStore interface {
	querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

type taskServiceImpl struct {
	logger        zerolog.Logger
	pgPool        taskStore
	hub           *events.Hub
	notifications NotificationService
}

func NewTaskService(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
	hub *events.Hub,
	notifications NotificationService,
) TaskService {
	return &taskServiceImpl{
		logger:        logger,
		pgPool:        pgPool,
		hub:           hub,
		notifications: notifications,
	}
}

// validateCreateTask checks the task creation input. Recurrence fields
// are only meaningful for habit tasks and are ignored otherwise.
func validateCreateTask(params CreateTaskParams) error {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return ErrTitleTooLong
	}
	if utf8.RuneCountInString(params.Description) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if params.DueAt.IsZero() {
		return ErrDueDateRequired
	}
	if params.Habit {
		if params.RecurPattern == "" {
			return ErrRecurrenceRequired
		}
		if !models.ValidRecurrence(params.RecurPattern) {
			return ErrInvalidRecurrence
		}
	}
	return nil
}

// materializeTasks builds the rows a creation request stores. A one-off
// task yields a single row; a habit task yields habitInstances rows with
// due dates stepped by the recurrence rule. Every row shares the title,
// pattern and interval so the instances group into one series.
func materializeTasks(params CreateTaskParams, now time.Time) ([]*models.Task, error) {
	base := params.BaseExperience
	if base <= 0 {
		base = progress.DefaultBaseExperience
	}

	interval := params.RecurInterval
	if interval < 1 {
		interval = 1
	}

	instances := 1
	if params.Habit {
		instances = habitInstances
	}

	dueAt := params.DueAt
	tasks := make([]*models.Task, 0, instances)
	for i := 0; i < instances; i++ {
		taskUUID, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}

		task := &models.Task{
			ID:             taskUUID.String(),
			ProjectID:      params.ProjectID,
			CreatorID:      params.CreatorID,
			Title:          strings.TrimSpace(params.Title),
			Description:    strings.TrimSpace(params.Description),
			DueAt:          dueAt,
			Habit:          params.Habit,
			BaseExperience: base,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if params.Habit {
			task.RecurPattern = params.RecurPattern
			task.RecurInterval = interval
			dueAt = taskview.NextDue(task.RecurPattern, task.RecurInterval, dueAt)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (s *taskServiceImpl) CreateTask(ctx context.Context, params CreateTaskParams) ([]*models.Task, error) {
	err := validateCreateTask(params)
	if err != nil {
		return nil, err
	}

	_, err = memberRole(ctx, s.pgPool, params.ProjectID, params.CreatorID)
	if err != nil {
		return nil, err
	}

	members, err := activeMemberIDs(ctx, s.pgPool, params.ProjectID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("project_id", params.ProjectID).
			Msg("failed to select project members")
		return nil, err
	}

	tasks, err := materializeTasks(params, time.Now())
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate task uuid")
		return nil, err
	}

	tx, err := s.pgPool.Begin(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to begin transaction")
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const insertTaskQuery = `
INSERT INTO tasks (id,
                   project_id,
                   creator_id,
                   title,
                   description,
                   due_at,
                   habit,
                   recur_pattern,
                   recur_interval,
                   base_experience,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`
	const insertStatusQuery = `
INSERT INTO task_statuses (id,
                           task_id,
                           user_id,
                           state,
                           recovered,
                           created_at,
                           updated_at)
VALUES ($1, $2, $3, $4, FALSE, $5, $6)
`
	for _, task := range tasks {
		_, err = tx.Exec(
			ctx,
			insertTaskQuery,
			task.ID,
			task.ProjectID,
			task.CreatorID,
			task.Title,
			task.Description,
			task.DueAt,
			task.Habit,
			task.RecurPattern,
			task.RecurInterval,
			task.BaseExperience,
			task.CreatedAt,
			task.UpdatedAt,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to insert task")
			return nil, err
		}

		for _, memberID := range members {
			statusUUID, err := uuid.NewV7()
			if err != nil {
				s.logger.Error().
					Err(err).
					Msg("failed to generate status uuid")
				return nil, err
			}

			_, err = tx.Exec(
				ctx,
				insertStatusQuery,
				statusUUID.String(),
				task.ID,
				memberID,
				models.StatusActive,
				task.CreatedAt,
				task.CreatedAt,
			)
			if err != nil {
				s.logger.Error().
					Err(err).
					Msg("failed to insert task status")
				return nil, err
			}
		}
	}

	err = tx.Commit(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to commit transaction")
		return nil, err
	}
	s.logger.Debug().
		Str("project_id", params.ProjectID).
		Int("instances", len(tasks)).
		Int("members", len(members)).
		Msg("inserted tasks with status fan-out")

	for _, memberID := range members {
		if memberID == params.CreatorID {
			continue
		}
		_, err = s.notifications.Notify(ctx, memberID, models.NotificationTaskAssigned, map[string]any{
			"task_id":    tasks[0].ID,
			"project_id": params.ProjectID,
			"title":      tasks[0].Title,
		})
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("user_id", memberID).
				Msg("failed to notify assigned member")
		}
	}

	s.hub.Publish(members, events.Event{
		Entity:    events.EntityTask,
		Action:    events.ActionCreated,
		EntityID:  tasks[0].ID,
		ProjectID: params.ProjectID,
		ActorID:   params.CreatorID,
	})

	s.logger.Info().
		Str("project_id", params.ProjectID).
		Int("instances", len(tasks)).
		Msg("created task")
	return tasks, nil
}

func (s *taskServiceImpl) GetProjectTasks(ctx context.Context, projectID, userID string) (*taskview.View, error) {
	_, err := memberRole(ctx, s.pgPool, projectID, userID)
	if err != nil {
		return nil, err
	}

	const selectTasksQuery = `
SELECT id,
       creator_id,
       title,
       description,
       due_at,
       habit,
       recur_pattern,
       recur_interval,
       base_experience,
       created_at,
       updated_at
FROM tasks
WHERE project_id = $1
ORDER BY due_at, created_at
`
	rows, err := s.pgPool.Query(ctx, selectTasksQuery, projectID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("project_id", projectID).
			Msg("failed to select tasks")
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task := models.Task{ProjectID: projectID}
		err = rows.Scan(
			&task.ID,
			&task.CreatorID,
			&task.Title,
			&task.Description,
			&task.DueAt,
			&task.Habit,
			&task.RecurPattern,
			&task.RecurInterval,
			&task.BaseExperience,
			&task.CreatedAt,
			&task.UpdatedAt,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan task")
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err = rows.Err(); err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}

	statuses, err := s.selectUserStatuses(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}

	completions, err := s.selectUserCompletions(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("project_id", projectID).
		Str("user_id", userID).
		Int("tasks", len(tasks)).
		Msg("selected project tasks")

	return taskview.Build(tasks, statuses, completions, time.Now()), nil
}

func (s *taskServiceImpl) UpdateTask(ctx context.Context, params UpdateTaskParams) (*models.Task, error) {
	task, err := s.getTask(ctx, params.TaskID)
	if err != nil {
		return nil, err
	}

	role, err := memberRole(ctx, s.pgPool, task.ProjectID, params.UserID)
	if err != nil {
		return nil, err
	}
	if role == models.RoleParticipant && task.CreatorID != params.UserID {
		return nil, ErrPermissionDenied
	}

	if params.Title != nil {
		title := strings.TrimSpace(*params.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		if utf8.RuneCountInString(title) > maxTitleLength {
			return nil, ErrTitleTooLong
		}
		task.Title = title
	}
	if params.Description != nil {
		if utf8.RuneCountInString(*params.Description) > maxDescriptionLength {
			return nil, ErrDescriptionTooLong
		}
		task.Description = strings.TrimSpace(*params.Description)
	}
	if params.DueAt != nil {
		task.DueAt = *params.DueAt
	}
	task.UpdatedAt = time.Now()

	const updateTaskQuery = `
UPDATE tasks
SET title = $1,
    description = $2,
    due_at = $3,
    updated_at = $4
WHERE id = $5
`
	_, err = s.pgPool.Exec(
		ctx,
		updateTaskQuery,
		task.Title,
		task.Description,
		task.DueAt,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", task.ID).
			Msg("failed to update task")
		return nil, err
	}

	s.publishToMembers(ctx, task.ProjectID, params.UserID, events.Event{
		Entity:   events.EntityTask,
		Action:   events.ActionUpdated,
		EntityID: task.ID,
	})

	s.logger.Info().
		Str("task_id", task.ID).
		Msg("updated task")
	return task, nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, taskID, userID string) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}

	role, err := memberRole(ctx, s.pgPool, task.ProjectID, userID)
	if err != nil {
		return err
	}
	if role == models.RoleParticipant && task.CreatorID != userID {
		return ErrPermissionDenied
	}

	const deleteTaskQuery = `
DELETE FROM tasks
WHERE id = $1
`
	tag, err := s.pgPool.Exec(ctx, deleteTaskQuery, taskID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to delete task")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}

	s.publishToMembers(ctx, task.ProjectID, userID, events.Event{
		Entity:   events.EntityTask,
		Action:   events.ActionDeleted,
		EntityID: taskID,
	})

	s.logger.Info().
		Str("task_id", taskID).
		Msg("deleted task")
	return nil
}

func (s *taskServiceImpl) CompleteTask(ctx context.Context, taskID, userID string) (*models.CompletionLog, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	_, err = memberRole(ctx, s.pgPool, task.ProjectID, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.getCompletion(ctx, taskID, userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to select completion log")
		return nil, err
	}
	if existing != nil {
		s.logger.Debug().
			Str("task_id", taskID).
			Str("user_id", userID).
			Msg("task already completed")
		return existing, nil
	}

	now := time.Now()
	earned, penalized := progress.Experience(task.BaseExperience, task.DueAt, now)

	logUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate completion uuid")
		return nil, err
	}

	log := &models.CompletionLog{
		ID:          logUUID.String(),
		TaskID:      taskID,
		UserID:      userID,
		CompletedAt: now,
		Experience:  earned,
		Penalized:   penalized,
		CreatedAt:   now,
	}

	tx, err := s.pgPool.Begin(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to begin transaction")
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The unique constraint resolves a concurrent double-complete; the
	// loser keeps the winner's log.
	const insertLogQuery = `
INSERT INTO completion_logs (id,
                             task_id,
                             user_id,
                             completed_at,
                             experience,
                             penalized,
                             created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (task_id, user_id) DO NOTHING
`
	tag, err := tx.Exec(
		ctx,
		insertLogQuery,
		log.ID,
		log.TaskID,
		log.UserID,
		log.CompletedAt,
		log.Experience,
		log.Penalized,
		log.CreatedAt,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to insert completion log")
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		_ = tx.Rollback(ctx)
		winner, err := s.getCompletion(ctx, taskID, userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Winner's row vanished before the re-read, which means
				// the task was deleted underneath us.
				return nil, ErrTaskNotFound
			}
			s.logger.Error().
				Err(err).
				Str("task_id", taskID).
				Msg("failed to select winning completion log")
			return nil, err
		}
		return winner, nil
	}

	// Members who joined after fan-out have no status row yet.
	const upsertStatusQuery = `
INSERT INTO task_statuses (id, task_id, user_id, state, recovered, created_at, updated_at)
VALUES ($1, $2, $3, 'active', $4, $5, $5)
ON CONFLICT (task_id, user_id)
DO UPDATE SET state = 'active', recovered = $4, archived_at = NULL, updated_at = $5
`
	statusUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate status uuid")
		return nil, err
	}
	_, err = tx.Exec(
		ctx,
		upsertStatusQuery,
		statusUUID.String(),
		taskID,
		userID,
		penalized,
		now,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to upsert task status")
		return nil, err
	}

	err = tx.Commit(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to commit transaction")
		return nil, err
	}

	members, err := activeMemberIDs(ctx, s.pgPool, task.ProjectID)
	if err == nil {
		for _, memberID := range members {
			if memberID == userID {
				continue
			}
			_, notifyErr := s.notifications.Notify(ctx, memberID, models.NotificationTaskCompleted, map[string]any{
				"task_id":    taskID,
				"project_id": task.ProjectID,
				"title":      task.Title,
				"user_id":    userID,
			})
			if notifyErr != nil {
				s.logger.Warn().
					Err(notifyErr).
					Str("user_id", memberID).
					Msg("failed to notify member of completion")
			}
		}

		s.hub.Publish(members, events.Event{
			Entity:    events.EntityCompletion,
			Action:    events.ActionCompleted,
			EntityID:  log.ID,
			ProjectID: task.ProjectID,
			ActorID:   userID,
		})
	}

	s.logger.Info().
		Str("task_id", taskID).
		Str("user_id", userID).
		Int("experience", earned).
		Bool("penalized", penalized).
		Msg("completed task")
	return log, nil
}

func (s *taskServiceImpl) UncompleteTask(ctx context.Context, taskID, userID string) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}

	const deleteLogQuery = `
DELETE FROM completion_logs
WHERE task_id = $1 AND user_id = $2
`
	tag, err := s.pgPool.Exec(ctx, deleteLogQuery, taskID, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to delete completion log")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}

	const resetStatusQuery = `
UPDATE task_statuses
SET recovered = FALSE,
    updated_at = $1
WHERE task_id = $2 AND user_id = $3
`
	_, err = s.pgPool.Exec(ctx, resetStatusQuery, time.Now(), taskID, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to reset task status")
		return err
	}

	s.publishToMembers(ctx, task.ProjectID, userID, events.Event{
		Entity:   events.EntityCompletion,
		Action:   events.ActionDeleted,
		EntityID: taskID,
	})

	s.logger.Info().
		Str("task_id", taskID).
		Str("user_id", userID).
		Msg("uncompleted task")
	return nil
}

func (s *taskServiceImpl) SetTaskArchived(ctx context.Context, taskID, userID string, archived bool) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}

	_, err = memberRole(ctx, s.pgPool, task.ProjectID, userID)
	if err != nil {
		return err
	}

	state := models.StatusActive
	var archivedAt *time.Time
	now := time.Now()
	if archived {
		state = models.StatusArchived
		archivedAt = &now
	}

	statusUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate status uuid")
		return err
	}

	const upsertStatusQuery = `
INSERT INTO task_statuses (id, task_id, user_id, state, recovered, archived_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, FALSE, $5, $6, $6)
ON CONFLICT (task_id, user_id)
DO UPDATE SET state = $4, archived_at = $5, updated_at = $6
`
	_, err = s.pgPool.Exec(
		ctx,
		upsertStatusQuery,
		statusUUID.String(),
		taskID,
		userID,
		state,
		archivedAt,
		now,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to upsert task status")
		return err
	}

	s.hub.Publish([]string{userID}, events.Event{
		Entity:    events.EntityTaskStatus,
		Action:    events.ActionArchived,
		EntityID:  taskID,
		ProjectID: task.ProjectID,
		ActorID:   userID,
	})

	s.logger.Info().
		Str("task_id", taskID).
		Str("user_id", userID).
		Bool("archived", archived).
		Msg("set task archived state")
	return nil
}

func (s *taskServiceImpl) getTask(ctx context.Context, taskID string) (*models.Task, error) {
	task := &models.Task{
		ID: taskID,
	}

	const selectTaskQuery = `
SELECT project_id,
       creator_id,
       title,
       description,
       due_at,
       habit,
       recur_pattern,
       recur_interval,
       base_experience,
       created_at,
       updated_at
FROM tasks
WHERE id = $1
`
	err := s.pgPool.QueryRow(
		ctx,
		selectTaskQuery,
		task.ID,
	).Scan(
		&task.ProjectID,
		&task.CreatorID,
		&task.Title,
		&task.Description,
		&task.DueAt,
		&task.Habit,
		&task.RecurPattern,
		&task.RecurInterval,
		&task.BaseExperience,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Str("task_id", task.ID).
				Msg("task not found")
			return nil, ErrTaskNotFound
		}

		s.logger.Error().
			Err(err).
			Str("task_id", task.ID).
			Msg("failed to select task")
		return nil, err
	}
	return task, nil
}

func (s *taskServiceImpl) getCompletion(ctx context.Context, taskID, userID string) (*models.CompletionLog, error) {
	log := &models.CompletionLog{
		TaskID: taskID,
		UserID: userID,
	}

	const selectLogQuery = `
SELECT id,
       completed_at,
       experience,
       penalized,
       created_at
FROM completion_logs
WHERE task_id = $1 AND user_id = $2
`
	err := s.pgPool.QueryRow(
		ctx,
		selectLogQuery,
		taskID,
		userID,
	).Scan(
		&log.ID,
		&log.CompletedAt,
		&log.Experience,
		&log.Penalized,
		&log.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return log, nil
}

func (s *taskServiceImpl) selectUserStatuses(ctx context.Context, projectID, userID string) (map[string]models.TaskStatus, error) {
	const selectStatusesQuery = `
SELECT s.id,
       s.task_id,
       s.state,
       s.recovered,
       s.archived_at,
       s.created_at,
       s.updated_at
FROM task_statuses s
JOIN tasks t ON t.id = s.task_id
WHERE t.project_id = $1 AND
      s.user_id = $2
`
	rows, err := s.pgPool.Query(ctx, selectStatusesQuery, projectID, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select task statuses")
		return nil, err
	}
	defer rows.Close()

	statuses := make(map[string]models.TaskStatus)
	for rows.Next() {
		status := models.TaskStatus{UserID: userID}
		err = rows.Scan(
			&status.ID,
			&status.TaskID,
			&status.State,
			&status.Recovered,
			&status.ArchivedAt,
			&status.CreatedAt,
			&status.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		statuses[status.TaskID] = status
	}
	return statuses, rows.Err()
}

func (s *taskServiceImpl) selectUserCompletions(ctx context.Context, projectID, userID string) (map[string]models.CompletionLog, error) {
	const selectCompletionsQuery = `
SELECT l.id,
       l.task_id,
       l.completed_at,
       l.experience,
       l.penalized,
       l.created_at
FROM completion_logs l
JOIN tasks t ON t.id = l.task_id
WHERE t.project_id = $1 AND
      l.user_id = $2
`
	rows, err := s.pgPool.Query(ctx, selectCompletionsQuery, projectID, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to select completion logs")
		return nil, err
	}
	defer rows.Close()

	completions := make(map[string]models.CompletionLog)
	for rows.Next() {
		log := models.CompletionLog{UserID: userID}
		err = rows.Scan(
			&log.ID,
			&log.TaskID,
			&log.CompletedAt,
			&log.Experience,
			&log.Penalized,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		completions[log.TaskID] = log
	}
	return completions, rows.Err()
}

// publishToMembers fans an event out to the task's project members.
func (s *taskServiceImpl) publishToMembers(ctx context.Context, projectID, actorID string, event events.Event) {
	audience, err := activeMemberIDs(ctx, s.pgPool, projectID)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("project_id", projectID).
			Msg("failed to select change feed audience")
		return
	}
	event.ProjectID = projectID
	event.ActorID = actorID
	s.hub.Publish(audience, event)
}
