package models

import "time"

const (
	NotificationFriendRequest  = "friend_request"
	NotificationFriendAccepted = "friend_accepted"
	NotificationProjectInvite  = "project_invite"
	NotificationTaskAssigned   = "task_assigned"
	NotificationTaskCompleted  = "task_completed"
)

type Notification struct {
	ID        string
	UserID    string
	Kind      string
	Payload   string
	Read      bool
	CreatedAt time.Time
}
