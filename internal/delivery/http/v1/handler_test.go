package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/momentum-app/momentum/internal/domain/taskview"
	"github.com/momentum-app/momentum/internal/events"
	"github.com/momentum-app/momentum/internal/models"
	"github.com/momentum-app/momentum/internal/services"
)

const testUserID = "00000000-0000-0000-0000-000000000001"

type mockTaskService struct {
	CreateTaskFunc      func(ctx context.Context, params services.CreateTaskParams) ([]*models.Task, error)
	GetProjectTasksFunc func(ctx context.Context, projectID, userID string) (*taskview.View, error)
	UpdateTaskFunc      func(ctx context.Context, params services.UpdateTaskParams) (*models.Task, error)
	DeleteTaskFunc      func(ctx context.Context, taskID, userID string) error
	CompleteTaskFunc    func(ctx context.Context, taskID, userID string) (*models.CompletionLog, error)
	UncompleteTaskFunc  func(ctx context.Context, taskID, userID string) error
	SetTaskArchivedFunc func(ctx context.Context, taskID, userID string, archived bool) error
}

func (m *mockTaskService) CreateTask(ctx context.Context, params services.CreateTaskParams) ([]*models.Task, error) {
	return m.CreateTaskFunc(ctx, params)
}

func (m *mockTaskService) GetProjectTasks(ctx context.Context, projectID, userID string) (*taskview.View, error) {
	return m.GetProjectTasksFunc(ctx, projectID, userID)
}

func (m *mockTaskService) UpdateTask(ctx context.Context, params services.UpdateTaskParams) (*models.Task, error) {
	return m.UpdateTaskFunc(ctx, params)
}

func (m *mockTaskService) DeleteTask(ctx context.Context, taskID, userID string) error {
	return m.DeleteTaskFunc(ctx, taskID, userID)
}

func (m *mockTaskService) CompleteTask(ctx context.Context, taskID, userID string) (*models.CompletionLog, error) {
	return m.CompleteTaskFunc(ctx, taskID, userID)
}

func (m *mockTaskService) UncompleteTask(ctx context.Context, taskID, userID string) error {
	return m.UncompleteTaskFunc(ctx, taskID, userID)
}

func (m *mockTaskService) SetTaskArchived(ctx context.Context, taskID, userID string, archived bool) error {
	return m.SetTaskArchivedFunc(ctx, taskID, userID, archived)
}

type mockFriendService struct {
	SendRequestFunc      func(ctx context.Context, requesterID, email string) (*models.Friendship, error)
	RespondToRequestFunc func(ctx context.Context, requestID, userID string, accept bool) error
	ListFriendsFunc      func(ctx context.Context, userID string) ([]*services.FriendInfo, error)
	ListRequestsFunc     func(ctx context.Context, userID string) ([]*services.FriendRequestInfo, error)
	RemoveFriendFunc     func(ctx context.Context, userID, friendID string) error
	GetFriendProfileFunc func(ctx context.Context, userID, friendID string) (*services.FriendProfile, error)
}

func (m *mockFriendService) SendRequest(ctx context.Context, requesterID, email string) (*models.Friendship, error) {
	return m.SendRequestFunc(ctx, requesterID, email)
}

func (m *mockFriendService) RespondToRequest(ctx context.Context, requestID, userID string, accept bool) error {
	return m.RespondToRequestFunc(ctx, requestID, userID, accept)
}

func (m *mockFriendService) ListFriends(ctx context.Context, userID string) ([]*services.FriendInfo, error) {
	return m.ListFriendsFunc(ctx, userID)
}

func (m *mockFriendService) ListRequests(ctx context.Context, userID string) ([]*services.FriendRequestInfo, error) {
	return m.ListRequestsFunc(ctx, userID)
}

func (m *mockFriendService) RemoveFriend(ctx context.Context, userID, friendID string) error {
	return m.RemoveFriendFunc(ctx, userID, friendID)
}

func (m *mockFriendService) GetFriendProfile(ctx context.Context, userID, friendID string) (*services.FriendProfile, error) {
	return m.GetFriendProfileFunc(ctx, userID, friendID)
}

type mockProjectService struct {
	CreateProjectFunc       func(ctx context.Context, params services.CreateProjectParams) (*models.Project, error)
	GetProjectsByUserIDFunc func(ctx context.Context, userID string) ([]*services.ProjectSummary, error)
	GetProjectDetailFunc    func(ctx context.Context, projectID, userID string) (*services.ProjectDetail, error)
	UpdateProjectFunc       func(ctx context.Context, params services.UpdateProjectParams) (*models.Project, error)
	ArchiveProjectFunc      func(ctx context.Context, projectID, userID string) error
	DeleteProjectFunc       func(ctx context.Context, projectID, userID string) error
	InviteMemberFunc        func(ctx context.Context, params services.InviteMemberParams) (*models.ProjectMember, error)
	RespondToInviteFunc     func(ctx context.Context, inviteID, userID string, accept bool) error
	RemoveMemberFunc        func(ctx context.Context, projectID, actorID, memberID string) error
	LeaveFunc               func(ctx context.Context, projectID, userID string) error
}

func (m *mockProjectService) CreateProject(ctx context.Context, params services.CreateProjectParams) (*models.Project, error) {
	return m.CreateProjectFunc(ctx, params)
}

func (m *mockProjectService) GetProjectsByUserID(ctx context.Context, userID string) ([]*services.ProjectSummary, error) {
	return m.GetProjectsByUserIDFunc(ctx, userID)
}

func (m *mockProjectService) GetProjectDetail(ctx context.Context, projectID, userID string) (*services.ProjectDetail, error) {
	return m.GetProjectDetailFunc(ctx, projectID, userID)
}

func (m *mockProjectService) UpdateProject(ctx context.Context, params services.UpdateProjectParams) (*models.Project, error) {
	return m.UpdateProjectFunc(ctx, params)
}

func (m *mockProjectService) ArchiveProject(ctx context.Context, projectID, userID string) error {
	return m.ArchiveProjectFunc(ctx, projectID, userID)
}

func (m *mockProjectService) DeleteProject(ctx context.Context, projectID, userID string) error {
	return m.DeleteProjectFunc(ctx, projectID, userID)
}

func (m *mockProjectService) InviteMember(ctx context.Context, params services.InviteMemberParams) (*models.ProjectMember, error) {
	return m.InviteMemberFunc(ctx, params)
}

func (m *mockProjectService) RespondToInvite(ctx context.Context, inviteID, userID string, accept bool) error {
	return m.RespondToInviteFunc(ctx, inviteID, userID, accept)
}

func (m *mockProjectService) RemoveMember(ctx context.Context, projectID, actorID, memberID string) error {
	return m.RemoveMemberFunc(ctx, projectID, actorID, memberID)
}

func (m *mockProjectService) Leave(ctx context.Context, projectID, userID string) error {
	return m.LeaveFunc(ctx, projectID, userID)
}

func newTestRouter(h *handlerImpl) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(userIDCtxKey, testUserID)
	})

	router.POST("/tasks/:id/complete", h.HandleCompleteTask)
	router.DELETE("/tasks/:id", h.HandleDeleteTask)
	router.GET("/projects/:id/tasks", h.HandleGetProjectTasks)
	router.POST("/friends/requests", h.HandleSendFriendRequest)
	router.POST("/projects/:id/invites", h.HandleInviteMember)
	return router
}

func newTestHandler() *handlerImpl {
	return &handlerImpl{
		logger: zerolog.Nop(),
		hub:    events.NewHub(zerolog.Nop()),
	}
}

func TestHandleCompleteTask(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	completedAt := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)
	h := newTestHandler()
	h.tasks = &mockTaskService{
		CompleteTaskFunc: func(_ context.Context, taskID, userID string) (*models.CompletionLog, error) {
			assert.Equal("t1", taskID)
			assert.Equal(testUserID, userID)
			return &models.CompletionLog{
				TaskID:      taskID,
				UserID:      userID,
				CompletedAt: completedAt,
				Experience:  50,
			}, nil
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tasks/t1/complete", nil)
	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(http.StatusOK, rec.Code)

	var resp completionResponse
	assert.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal("t1", resp.TaskID)
	assert.Equal(50, resp.Experience)
	assert.False(resp.Penalized)
}

func TestHandleCompleteTaskNotFound(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	h := newTestHandler()
	h.tasks = &mockTaskService{
		CompleteTaskFunc: func(_ context.Context, _, _ string) (*models.CompletionLog, error) {
			return nil, services.ErrTaskNotFound
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tasks/missing/complete", nil)
	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(http.StatusNotFound, rec.Code)
}

func TestHandleDeleteTaskForbidden(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	h := newTestHandler()
	h.tasks = &mockTaskService{
		DeleteTaskFunc: func(_ context.Context, _, _ string) error {
			return services.ErrPermissionDenied
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/tasks/t1", nil)
	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(http.StatusForbidden, rec.Code)
}

func TestHandleGetProjectTasks(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	h := newTestHandler()
	h.tasks = &mockTaskService{
		GetProjectTasksFunc: func(_ context.Context, projectID, userID string) (*taskview.View, error) {
			assert.Equal("p1", projectID)
			assert.Equal(testUserID, userID)
			return &taskview.View{
				Active: []taskview.Item{{
					Task:     models.Task{ID: "t1", ProjectID: projectID, Title: "write report"},
					Category: taskview.CategoryActive,
				}},
			}, nil
		},
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/projects/p1/tasks", nil)
	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(http.StatusOK, rec.Code)

	var resp struct {
		Active   []taskItemResponse `json:"active"`
		Upcoming []taskItemResponse `json:"upcoming"`
	}
	assert.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(resp.Active, 1)
	assert.Equal("t1", resp.Active[0].ID)
	assert.Equal("active", resp.Active[0].Category)
	assert.Empty(resp.Upcoming)
}

func TestHandleSendFriendRequest(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	h := newTestHandler()
	h.friends = &mockFriendService{
		SendRequestFunc: func(_ context.Context, requesterID, email string) (*models.Friendship, error) {
			assert.Equal(testUserID, requesterID)
			assert.Equal("friend@example.com", email)
			return &models.Friendship{ID: "f1", Status: models.FriendshipPending}, nil
		},
	}

	body, _ := json.Marshal(gin.H{"email": "friend@example.com"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/friends/requests", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(http.StatusCreated, rec.Code)
	assert.JSONEq(`{"request_id":"f1"}`, rec.Body.String())
}

func TestHandleSendFriendRequestConflict(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	h := newTestHandler()
	h.friends = &mockFriendService{
		SendRequestFunc: func(_ context.Context, _, _ string) (*models.Friendship, error) {
			return nil, services.ErrFriendRequestExists
		},
	}

	body, _ := json.Marshal(gin.H{"email": "friend@example.com"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/friends/requests", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(http.StatusConflict, rec.Code)
}

func TestHandleSendFriendRequestBadBody(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	h := newTestHandler()
	h.friends = &mockFriendService{}

	body := []byte(`{"email":"not-an-email"}`)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/friends/requests", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(http.StatusBadRequest, rec.Code)
}

func TestMissingAuthContextReturnsUnauthorized(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	h := newTestHandler()
	h.tasks = &mockTaskService{}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/tasks/:id/complete", h.HandleCompleteTask)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tasks/t1/complete", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(http.StatusUnauthorized, rec.Code)
}

func TestHandleInviteMemberDefaultsRole(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	friendID := "00000000-0000-0000-0000-000000000002"
	h := newTestHandler()
	h.projects = &mockProjectService{
		InviteMemberFunc: func(_ context.Context, params services.InviteMemberParams) (*models.ProjectMember, error) {
			assert.Equal("p1", params.ProjectID)
			assert.Equal(testUserID, params.ActorID)
			assert.Equal(friendID, params.FriendID)
			assert.Empty(params.Role, "omitted role reaches the service empty")
			return &models.ProjectMember{
				ID:     "m1",
				UserID: params.FriendID,
				Role:   models.RoleParticipant,
				State:  models.MemberInvited,
			}, nil
		},
	}

	body, _ := json.Marshal(gin.H{"friend_id": friendID})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/projects/p1/invites", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(http.StatusCreated, rec.Code)

	var resp struct {
		InviteID string `json:"invite_id"`
		Role     string `json:"role"`
		State    string `json:"state"`
	}
	assert.NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal("m1", resp.InviteID)
	assert.Equal(models.RoleParticipant, resp.Role)
	assert.Equal(models.MemberInvited, resp.State)
}

func TestHandleInviteMemberRejectsOwnerRole(t *testing.T) {
	t.Parallel()

	assert := assert.New(t)

	h := newTestHandler()
	h.projects = &mockProjectService{}

	body, _ := json.Marshal(gin.H{
		"friend_id": "00000000-0000-0000-0000-000000000002",
		"role":      "owner",
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/projects/p1/invites", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	newTestRouter(h).ServeHTTP(rec, req)

	assert.Equal(http.StatusBadRequest, rec.Code)
}
