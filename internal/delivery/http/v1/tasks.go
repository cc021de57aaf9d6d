package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/momentum-app/momentum/internal/domain/taskview"
	"github.com/momentum-app/momentum/internal/models"
	"github.com/momentum-app/momentum/internal/services"
)

type taskResponse struct {
	ID             string    `json:"id"`
	ProjectID      string    `json:"project_id"`
	CreatorID      string    `json:"creator_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	DueAt          time.Time `json:"due_at"`
	Habit          bool      `json:"habit"`
	RecurPattern   string    `json:"recur_pattern,omitempty"`
	RecurInterval  int       `json:"recur_interval,omitempty"`
	BaseExperience int       `json:"base_experience"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func newTaskResponse(t *models.Task) taskResponse {
	return taskResponse{
		ID:             t.ID,
		ProjectID:      t.ProjectID,
		CreatorID:      t.CreatorID,
		Title:          t.Title,
		Description:    t.Description,
		DueAt:          t.DueAt,
		Habit:          t.Habit,
		RecurPattern:   t.RecurPattern,
		RecurInterval:  t.RecurInterval,
		BaseExperience: t.BaseExperience,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

type taskStatusResponse struct {
	State      string     `json:"state"`
	Recovered  bool       `json:"recovered"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

type completionResponse struct {
	TaskID      string    `json:"task_id"`
	CompletedAt time.Time `json:"completed_at"`
	Experience  int       `json:"experience"`
	Penalized   bool      `json:"penalized"`
}

type taskItemResponse struct {
	taskResponse
	Category   string              `json:"category"`
	Status     *taskStatusResponse `json:"status,omitempty"`
	Completion *completionResponse `json:"completion,omitempty"`
}

func newTaskItemResponse(item taskview.Item) taskItemResponse {
	resp := taskItemResponse{
		taskResponse: newTaskResponse(&item.Task),
		Category:     string(item.Category),
	}
	if item.Status != nil {
		resp.Status = &taskStatusResponse{
			State:      item.Status.State,
			Recovered:  item.Status.Recovered,
			ArchivedAt: item.Status.ArchivedAt,
		}
	}
	if item.Completion != nil {
		resp.Completion = &completionResponse{
			TaskID:      item.Completion.TaskID,
			CompletedAt: item.Completion.CompletedAt,
			Experience:  item.Completion.Experience,
			Penalized:   item.Completion.Penalized,
		}
	}
	return resp
}

func newTaskItemResponses(items []taskview.Item) []taskItemResponse {
	resp := make([]taskItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, newTaskItemResponse(item))
	}
	return resp
}

type taskSeriesResponse struct {
	Key       string             `json:"key"`
	Title     string             `json:"title"`
	Pattern   string             `json:"pattern"`
	Interval  int                `json:"interval"`
	Completed int                `json:"completed"`
	Items     []taskItemResponse `json:"items"`
}

type createTaskRequest struct {
	Title          string    `json:"title" binding:"required"`
	Description    string    `json:"description"`
	DueAt          time.Time `json:"due_at" binding:"required"`
	Habit          bool      `json:"habit"`
	RecurPattern   string    `json:"recur_pattern" binding:"omitempty,oneof=daily weekly monthly"`
	RecurInterval  int       `json:"recur_interval" binding:"omitempty,min=1,max=365"`
	BaseExperience int       `json:"base_experience" binding:"omitempty,min=1,max=1000"`
}

func (h *handlerImpl) HandleCreateTask(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req createTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind request body")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	tasks, err := h.tasks.CreateTask(c, services.CreateTaskParams{
		ProjectID:      c.Param("id"),
		CreatorID:      userID,
		Title:          req.Title,
		Description:    req.Description,
		DueAt:          req.DueAt,
		Habit:          req.Habit,
		RecurPattern:   req.RecurPattern,
		RecurInterval:  req.RecurInterval,
		BaseExperience: req.BaseExperience,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to create task")
		abortServiceError(c, err)
		return
	}

	resp := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		resp = append(resp, newTaskResponse(t))
	}

	c.JSON(http.StatusCreated, gin.H{"tasks": resp})
}

func (h *handlerImpl) HandleGetProjectTasks(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	view, err := h.tasks.GetProjectTasks(c, c.Param("id"), userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to fetch project tasks")
		abortServiceError(c, err)
		return
	}

	series := make([]taskSeriesResponse, 0, len(view.Series))
	for _, s := range view.Series {
		series = append(series, taskSeriesResponse{
			Key:       s.Key,
			Title:     s.Title,
			Pattern:   s.Pattern,
			Interval:  s.Interval,
			Completed: s.Completed,
			Items:     newTaskItemResponses(s.Items),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"active":    newTaskItemResponses(view.Active),
		"upcoming":  newTaskItemResponses(view.Upcoming),
		"completed": newTaskItemResponses(view.Completed),
		"archived":  newTaskItemResponses(view.Archived),
		"series":    series,
	})
}

type updateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueAt       *time.Time `json:"due_at"`
}

func (h *handlerImpl) HandleUpdateTask(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind request body")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	task, err := h.tasks.UpdateTask(c, services.UpdateTaskParams{
		TaskID:      c.Param("id"),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		DueAt:       req.DueAt,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to update task")
		abortServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *handlerImpl) HandleDeleteTask(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	err := h.tasks.DeleteTask(c, c.Param("id"), userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to delete task")
		abortServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handlerImpl) HandleCompleteTask(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	log, err := h.tasks.CompleteTask(c, c.Param("id"), userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to complete task")
		abortServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, completionResponse{
		TaskID:      log.TaskID,
		CompletedAt: log.CompletedAt,
		Experience:  log.Experience,
		Penalized:   log.Penalized,
	})
}

func (h *handlerImpl) HandleUncompleteTask(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	err := h.tasks.UncompleteTask(c, c.Param("id"), userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to uncomplete task")
		abortServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handlerImpl) HandleArchiveTask(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	err := h.tasks.SetTaskArchived(c, c.Param("id"), userID, true)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to archive task")
		abortServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handlerImpl) HandleRestoreTask(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	err := h.tasks.SetTaskArchived(c, c.Param("id"), userID, false)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to restore task")
		abortServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
