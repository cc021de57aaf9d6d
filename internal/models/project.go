package models

import "time"

const (
	RoleOwner       = "owner"
	RoleManager     = "manager"
	RoleParticipant = "participant"
)

const (
	MemberInvited = "invited"
	MemberActive  = "active"
)

type Project struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	Archived    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProjectMember links a user to a project. An invited member has not
// accepted yet and does not receive task fan-out.
type ProjectMember struct {
	ID        string
	ProjectID string
	UserID    string
	Role      string
	State     string
	InvitedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func ValidRole(role string) bool {
	return role == RoleOwner || role == RoleManager || role == RoleParticipant
}
