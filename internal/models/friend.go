package models

import "time"

const (
	FriendshipPending  = "pending"
	FriendshipAccepted = "accepted"
)

// Friendship is a directed request row; once accepted it counts for both
// directions. At most one row exists for any unordered user pair.
type Friendship struct {
	ID          string
	RequesterID string
	AddresseeID string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Other returns the friend's id from the perspective of userID.
func (f *Friendship) Other(userID string) string {
	if f.RequesterID == userID {
		return f.AddresseeID
	}
	return f.RequesterID
}
