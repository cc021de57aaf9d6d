package services

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/momentum-app/momentum/internal/domain/progress"
	"github.com/momentum-app/momentum/internal/domain/taskview"
	"github.com/momentum-app/momentum/internal/models"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrUserPasswordMismatch = errors.New("user password mismatch")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionExpired       = errors.New("session expired")

	ErrProjectNotFound  = errors.New("project not found")
	ErrNotProjectMember = errors.New("not a project member")
	ErrPermissionDenied = errors.New("permission denied")
	ErrAlreadyMember    = errors.New("already a project member")
	ErrInviteNotFound   = errors.New("invite not found")
	ErrOwnerCannotLeave = errors.New("owner cannot leave the project")

	ErrTaskNotFound = errors.New("task not found")

	ErrFriendshipNotFound  = errors.New("friendship not found")
	ErrFriendRequestExists = errors.New("friend request already exists")
	ErrSelfFriendRequest   = errors.New("cannot befriend yourself")
	ErrNotFriends          = errors.New("users are not friends")

	ErrNotificationNotFound = errors.New("notification not found")
)

// Task creation validation errors.
var (
	ErrTitleRequired      = errors.New("title is required")
	ErrTitleTooLong       = errors.New("title must be at most 120 characters")
	ErrDescriptionTooLong = errors.New("description must be at most 2000 characters")
	ErrDueDateRequired    = errors.New("due date is required")
	ErrRecurrenceRequired = errors.New("recurrence pattern is required for habit tasks")
	ErrInvalidRecurrence  = errors.New("invalid recurrence pattern")
)

type AuthService interface {
	// Login authenticates the user by email and password.
	//
	// It deletes all sessions with the same user ID, creates
	// a new session and generates a fresh JWT token pair.
	//
	// It returns ErrUserNotFound if the user with the given
	// email doesn't exist or ErrUserPasswordMismatch if the
	// given password doesn't match the user's password.
	Login(ctx context.Context, params LoginParams) (*LoginResult, error)

	// Refresh rotates the session with the given refresh token.
	//
	// It returns ErrSessionNotFound if the session with the
	// given refresh token doesn't exist or ErrSessionExpired
	// if the session is expired.
	Refresh(ctx context.Context, params RefreshParams) (*LoginResult, error)

	// Register creates a user with the given email, password and
	// display name, then logs the fresh user in.
	//
	// It returns ErrUserAlreadyExists if the user
	// with the given email already exists.
	Register(ctx context.Context, params RegisterParams) (*LoginResult, error)

	// Logout invalidates all sessions with the given user ID.
	Logout(ctx context.Context, userID string) error

	// ParseJWTToken parses the given JWT token and returns the registered
	// claims or jwt.ErrTokenExpired if the token is expired.
	ParseJWTToken(token string) (*jwt.RegisteredClaims, error)
}

type SessionService interface {
	GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error)
}

type UserService interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	UpdateProfile(ctx context.Context, params UpdateProfileParams) (*models.User, error)

	// GetStats derives experience, level and streak statistics from the
	// user's completion history.
	GetStats(ctx context.Context, userID string) (*progress.Stats, error)
}

type ProjectService interface {
	// CreateProject persists a project and registers the creator as its
	// single owner member.
	CreateProject(ctx context.Context, params CreateProjectParams) (*models.Project, error)

	GetProjectsByUserID(ctx context.Context, userID string) ([]*ProjectSummary, error)
	GetProjectDetail(ctx context.Context, projectID, userID string) (*ProjectDetail, error)
	UpdateProject(ctx context.Context, params UpdateProjectParams) (*models.Project, error)

	// ArchiveProject soft-deletes; owner or manager only.
	ArchiveProject(ctx context.Context, projectID, userID string) error

	// DeleteProject hard-deletes the project and cascades to its tasks,
	// statuses, logs and memberships; owner only.
	DeleteProject(ctx context.Context, projectID, userID string) error

	// InviteMember invites one of the actor's friends into the project
	// and notifies them. Owner or manager only.
	InviteMember(ctx context.Context, params InviteMemberParams) (*models.ProjectMember, error)

	// RespondToInvite accepts or declines a pending invite addressed to
	// userID. Accepting activates the membership; declining removes it.
	RespondToInvite(ctx context.Context, inviteID, userID string, accept bool) error

	RemoveMember(ctx context.Context, projectID, actorID, memberID string) error
	Leave(ctx context.Context, projectID, userID string) error
}

type TaskService interface {
	// CreateTask validates the input, persists the task and fans a status
	// row out to every active project member. Habit tasks materialize a
	// run of recurring instances; all created instances are returned.
	CreateTask(ctx context.Context, params CreateTaskParams) ([]*models.Task, error)

	// GetProjectTasks returns the requesting user's categorized view of
	// the project's tasks.
	GetProjectTasks(ctx context.Context, projectID, userID string) (*taskview.View, error)

	UpdateTask(ctx context.Context, params UpdateTaskParams) (*models.Task, error)

	// DeleteTask removes a task for everyone; owner, manager or the
	// task's creator only.
	DeleteTask(ctx context.Context, taskID, userID string) error

	// CompleteTask records a completion for the user, awarding experience
	// with a late penalty where due. It is idempotent: a second call
	// returns the existing log unchanged.
	CompleteTask(ctx context.Context, taskID, userID string) (*models.CompletionLog, error)

	// UncompleteTask removes the user's completion log and resets the
	// recovered flag.
	UncompleteTask(ctx context.Context, taskID, userID string) error

	// SetTaskArchived archives or restores the task for this user only.
	SetTaskArchived(ctx context.Context, taskID, userID string, archived bool) error
}

type FriendService interface {
	// SendRequest sends a friend request to the user with the given
	// email. It returns ErrFriendRequestExists when a pending or accepted
	// row already exists in either direction.
	SendRequest(ctx context.Context, requesterID, email string) (*models.Friendship, error)

	// RespondToRequest accepts or declines a pending request addressed
	// to userID.
	RespondToRequest(ctx context.Context, requestID, userID string, accept bool) error

	ListFriends(ctx context.Context, userID string) ([]*FriendInfo, error)
	ListRequests(ctx context.Context, userID string) ([]*FriendRequestInfo, error)
	RemoveFriend(ctx context.Context, userID, friendID string) error

	// GetFriendProfile returns a friend's public profile with progress
	// stats; friends only.
	GetFriendProfile(ctx context.Context, userID, friendID string) (*FriendProfile, error)
}

type NotificationService interface {
	Notify(ctx context.Context, userID, kind string, payload any) (*models.Notification, error)
	List(ctx context.Context, userID string, unreadOnly bool) ([]*models.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, notificationID, userID string) error
}

type LoginParams struct {
	Email       string
	Password    string
	Fingerprint string
}

type RegisterParams struct {
	Email       string
	Password    string
	DisplayName string
	Fingerprint string
}

type LoginResult struct {
	UserID                string
	SessionID             string
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

type RefreshParams struct {
	RefreshToken string
	Fingerprint  string
}

type UpdateProfileParams struct {
	UserID      string
	DisplayName *string
}

type CreateProjectParams struct {
	OwnerID     string
	Name        string
	Description string
}

type UpdateProjectParams struct {
	ProjectID   string
	UserID      string
	Name        *string
	Description *string
}

type InviteMemberParams struct {
	ProjectID string
	ActorID   string
	FriendID  string
	Role      string
}

type CreateTaskParams struct {
	ProjectID      string
	CreatorID      string
	Title          string
	Description    string
	DueAt          time.Time
	Habit          bool
	RecurPattern   string
	RecurInterval  int
	BaseExperience int
}

type UpdateTaskParams struct {
	TaskID      string
	UserID      string
	Title       *string
	Description *string
	DueAt       *time.Time
}

type ProjectSummary struct {
	Project models.Project
	Role    string
	Members int
}

type MemberInfo struct {
	UserID      string
	DisplayName string
	Role        string
	State       string
}

type ProjectDetail struct {
	Project models.Project
	Members []MemberInfo
}

type FriendInfo struct {
	UserID      string
	DisplayName string
	Email       string
	Since       time.Time
}

type FriendRequestInfo struct {
	RequestID   string
	RequesterID string
	DisplayName string
	Email       string
	CreatedAt   time.Time
}

type FriendProfile struct {
	UserID      string
	DisplayName string
	JoinedAt    time.Time
	Stats       progress.Stats
}
