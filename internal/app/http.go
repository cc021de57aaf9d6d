package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/momentum-app/momentum/internal/config"
	v1 "github.com/momentum-app/momentum/internal/delivery/http/v1"
	"github.com/momentum-app/momentum/internal/events"
	"github.com/momentum-app/momentum/internal/services"
)

func MustListenAndServeHTTP() {
	cfg := config.Global()
	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	httpCfg := cfg.HTTP

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	registerRoutes(router)

	server := &http.Server{
		Addr:    net.JoinHostPort(httpCfg.Host, httpCfg.Port),
		Handler: router,
	}

	go func() {
		globalLogger.Info().
			Str("host", httpCfg.Host).
			Str("port", httpCfg.Port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			globalLogger.Error().
				Err(err).
				Msg("failed to listen and serve http")
			panic(err)
		}
	}()

	// Wait for the interrupt signal to gracefully
	// shut down the server with a timeout of 5 seconds.
	quit := make(chan os.Signal, 1)
	// kill (no params) by default sends syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	// kill -9 is syscall.SIGKILL but can't be caught, so don't need to add it
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	globalLogger.Info().
		Msg("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), httpCfg.ShutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to shutdown http server")
		panic(err)
	}
	globalLogger.Info().Msg("shut down http server")
}

func registerRoutes(router gin.IRouter) {
	jwtCfg := config.Global().JWT

	hub := events.NewHub(globalLogger)

	notificationService := services.NewNotificationService(globalLogger, globalPostgresPool, hub)
	authService := services.NewAuthService(
		globalLogger,
		globalPostgresPool,
		jwtCfg.Issuer,
		[]byte(jwtCfg.SigningKey),
		jwtCfg.AccessTokenTTL,
		jwtCfg.RefreshTokenTTL,
	)
	sessionService := services.NewSessionService(globalLogger, globalPostgresPool)
	userService := services.NewUserService(globalLogger, globalPostgresPool)
	projectService := services.NewProjectService(globalLogger, globalPostgresPool, hub, notificationService)
	taskService := services.NewTaskService(globalLogger, globalPostgresPool, hub, notificationService)
	friendService := services.NewFriendService(globalLogger, globalPostgresPool, hub, notificationService)

	v1Handler := v1.New(
		globalLogger,
		hub,
		authService,
		sessionService,
		userService,
		projectService,
		taskService,
		friendService,
		notificationService,
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router = router.Group("/api/v1")

	authRouter := router.Group("/auth")
	authRouter.POST("/login", v1Handler.HandleLogin)
	authRouter.POST("/refresh", v1Handler.HandleRefresh)
	authRouter.POST("/register", v1Handler.HandleRegister)
	authRouter.POST("/logout", v1Handler.HandleAuthMiddleware, v1Handler.HandleLogout)
	authRouter.GET("/me", v1Handler.HandleAuthMiddleware, v1Handler.HandleMe)

	authorized := router.Group("", v1Handler.HandleAuthMiddleware)

	projectRouter := authorized.Group("/projects")
	projectRouter.GET("", v1Handler.HandleGetProjects)
	projectRouter.POST("", v1Handler.HandleCreateProject)
	projectRouter.GET("/:id", v1Handler.HandleGetProject)
	projectRouter.PATCH("/:id", v1Handler.HandleUpdateProject)
	projectRouter.DELETE("/:id", v1Handler.HandleDeleteProject)
	projectRouter.POST("/:id/archive", v1Handler.HandleArchiveProject)
	projectRouter.GET("/:id/tasks", v1Handler.HandleGetProjectTasks)
	projectRouter.POST("/:id/tasks", v1Handler.HandleCreateTask)
	projectRouter.POST("/:id/invites", v1Handler.HandleInviteMember)
	projectRouter.DELETE("/:id/members/:userID", v1Handler.HandleRemoveMember)
	projectRouter.POST("/:id/leave", v1Handler.HandleLeaveProject)

	authorized.POST("/invites/:id/respond", v1Handler.HandleRespondToInvite)

	taskRouter := authorized.Group("/tasks")
	taskRouter.PATCH("/:id", v1Handler.HandleUpdateTask)
	taskRouter.DELETE("/:id", v1Handler.HandleDeleteTask)
	taskRouter.POST("/:id/complete", v1Handler.HandleCompleteTask)
	taskRouter.POST("/:id/uncomplete", v1Handler.HandleUncompleteTask)
	taskRouter.POST("/:id/archive", v1Handler.HandleArchiveTask)
	taskRouter.POST("/:id/restore", v1Handler.HandleRestoreTask)

	friendRouter := authorized.Group("/friends")
	friendRouter.GET("", v1Handler.HandleGetFriends)
	friendRouter.GET("/requests", v1Handler.HandleGetFriendRequests)
	friendRouter.POST("/requests", v1Handler.HandleSendFriendRequest)
	friendRouter.POST("/requests/:id/respond", v1Handler.HandleRespondToFriendRequest)
	friendRouter.DELETE("/:userID", v1Handler.HandleRemoveFriend)
	friendRouter.GET("/:userID/profile", v1Handler.HandleGetFriendProfile)

	notificationRouter := authorized.Group("/notifications")
	notificationRouter.GET("", v1Handler.HandleGetNotifications)
	notificationRouter.POST("/:id/read", v1Handler.HandleMarkNotificationRead)
	notificationRouter.POST("/read-all", v1Handler.HandleMarkAllNotificationsRead)
	notificationRouter.DELETE("/:id", v1Handler.HandleDeleteNotification)

	profileRouter := authorized.Group("/profile")
	profileRouter.PATCH("", v1Handler.HandleUpdateProfile)
	profileRouter.GET("/stats", v1Handler.HandleGetStats)

	authorized.GET("/events", v1Handler.HandleEvents)
}
