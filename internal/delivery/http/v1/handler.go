package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/momentum-app/momentum/internal/events"
	"github.com/momentum-app/momentum/internal/services"
)

type Handler interface {
	HandleLogin(c *gin.Context)
	HandleRefresh(c *gin.Context)
	HandleRegister(c *gin.Context)
	HandleLogout(c *gin.Context)
	HandleMe(c *gin.Context)
	HandleAuthMiddleware(c *gin.Context)

	HandleCreateProject(c *gin.Context)
	HandleGetProjects(c *gin.Context)
	HandleGetProject(c *gin.Context)
	HandleUpdateProject(c *gin.Context)
	HandleArchiveProject(c *gin.Context)
	HandleDeleteProject(c *gin.Context)
	HandleInviteMember(c *gin.Context)
	HandleRespondToInvite(c *gin.Context)
	HandleRemoveMember(c *gin.Context)
	HandleLeaveProject(c *gin.Context)

	HandleCreateTask(c *gin.Context)
	HandleGetProjectTasks(c *gin.Context)
	HandleUpdateTask(c *gin.Context)
	HandleDeleteTask(c *gin.Context)
	HandleCompleteTask(c *gin.Context)
	HandleUncompleteTask(c *gin.Context)
	HandleArchiveTask(c *gin.Context)
	HandleRestoreTask(c *gin.Context)

	HandleGetFriends(c *gin.Context)
	HandleGetFriendRequests(c *gin.Context)
	HandleSendFriendRequest(c *gin.Context)
	HandleRespondToFriendRequest(c *gin.Context)
	HandleRemoveFriend(c *gin.Context)
	HandleGetFriendProfile(c *gin.Context)

	HandleGetNotifications(c *gin.Context)
	HandleMarkNotificationRead(c *gin.Context)
	HandleMarkAllNotificationsRead(c *gin.Context)
	HandleDeleteNotification(c *gin.Context)

	HandleUpdateProfile(c *gin.Context)
	HandleGetStats(c *gin.Context)

	HandleEvents(c *gin.Context)
}

type handlerImpl struct {
	logger        zerolog.Logger
	hub           *events.Hub
	auth          services.AuthService
	sessions      services.SessionService
	users         services.UserService
	projects      services.ProjectService
	tasks         services.TaskService
	friends       services.FriendService
	notifications services.NotificationService
}

func New(
	logger zerolog.Logger,
	hub *events.Hub,
	authService services.AuthService,
	sessionService services.SessionService,
	userService services.UserService,
	projectService services.ProjectService,
	taskService services.TaskService,
	friendService services.FriendService,
	notificationService services.NotificationService,
) Handler {
	return &handlerImpl{
		logger:        logger,
		hub:           hub,
		auth:          authService,
		sessions:      sessionService,
		users:         userService,
		projects:      projectService,
		tasks:         taskService,
		friends:       friendService,
		notifications: notificationService,
	}
}
