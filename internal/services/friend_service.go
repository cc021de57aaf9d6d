package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/momentum-app/momentum/internal/domain/progress"
	"github.com/momentum-app/momentum/internal/events"
	"github.com/momentum-app/momentum/internal/models"
)

type friendServiceImpl struct {
	logger        zerolog.Logger
	pgPool        *pgxpool.Pool
	hub           *events.Hub
	notifications NotificationService
}

func NewFriendService(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
	hub *events.Hub,
	notifications NotificationService,
) FriendService {
	return &friendServiceImpl{
		logger:        logger,
		pgPool:        pgPool,
		hub:           hub,
		notifications: notifications,
	}
}

// areFriends reports whether an accepted friendship row exists between
// the two users in either direction.
func areFriends(ctx context.Context, q querier, userID, otherID string) (bool, error) {
	const selectFriendshipQuery = `
SELECT COUNT(*)
FROM friendships
WHERE status = 'accepted' AND
      ((requester_id = $1 AND addressee_id = $2) OR
       (requester_id = $2 AND addressee_id = $1))
`
	var count int
	err := q.QueryRow(ctx, selectFriendshipQuery, userID, otherID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *friendServiceImpl) SendRequest(ctx context.Context, requesterID, email string) (*models.Friendship, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var addresseeID string
	const selectUserByEmailQuery = `
SELECT id
FROM users
WHERE email = $1
`
	err := s.pgPool.QueryRow(ctx, selectUserByEmailQuery, email).Scan(&addresseeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Str("email", email).
				Msg("user not found")
			return nil, ErrUserNotFound
		}

		s.logger.Error().
			Err(err).
			Msg("failed to select user by email")
		return nil, err
	}

	if addresseeID == requesterID {
		return nil, ErrSelfFriendRequest
	}

	const selectExistingQuery = `
SELECT COUNT(*)
FROM friendships
WHERE (requester_id = $1 AND addressee_id = $2) OR
      (requester_id = $2 AND addressee_id = $1)
`
	var existing int
	err = s.pgPool.QueryRow(ctx, selectExistingQuery, requesterID, addresseeID).Scan(&existing)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to check existing friendship")
		return nil, err
	}
	if existing > 0 {
		return nil, ErrFriendRequestExists
	}

	friendshipUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate friendship uuid")
		return nil, err
	}

	now := time.Now()
	friendship := models.Friendship{
		ID:          friendshipUUID.String(),
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      models.FriendshipPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	const insertFriendshipQuery = `
INSERT INTO friendships (id,
                         requester_id,
                         addressee_id,
                         status,
                         created_at,
                         updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
`
	_, err = s.pgPool.Exec(
		ctx,
		insertFriendshipQuery,
		friendship.ID,
		friendship.RequesterID,
		friendship.AddresseeID,
		friendship.Status,
		friendship.CreatedAt,
		friendship.UpdatedAt,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to insert friendship")
		return nil, err
	}

	_, err = s.notifications.Notify(ctx, addresseeID, models.NotificationFriendRequest, map[string]any{
		"request_id":   friendship.ID,
		"requester_id": requesterID,
	})
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("user_id", addresseeID).
			Msg("failed to notify addressee")
	}

	s.hub.Publish([]string{requesterID, addresseeID}, events.Event{
		Entity:   events.EntityFriendship,
		Action:   events.ActionCreated,
		EntityID: friendship.ID,
		ActorID:  requesterID,
	})

	s.logger.Info().
		Str("friendship_id", friendship.ID).
		Str("requester_id", requesterID).
		Msg("sent friend request")
	return &friendship, nil
}

func (s *friendServiceImpl) RespondToRequest(ctx context.Context, requestID, userID string, accept bool) error {
	friendship := models.Friendship{
		ID:          requestID,
		AddresseeID: userID,
	}

	const selectRequestQuery = `
SELECT requester_id
FROM friendships
WHERE id = $1 AND
      addressee_id = $2 AND
      status = 'pending'
`
	err := s.pgPool.QueryRow(
		ctx,
		selectRequestQuery,
		friendship.ID,
		friendship.AddresseeID,
	).Scan(&friendship.RequesterID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Str("request_id", requestID).
				Msg("friend request not found")
			return ErrFriendshipNotFound
		}

		s.logger.Error().
			Err(err).
			Msg("failed to select friend request")
		return err
	}

	if accept {
		const acceptRequestQuery = `
UPDATE friendships
SET status = 'accepted',
    updated_at = $1
WHERE id = $2
`
		_, err = s.pgPool.Exec(ctx, acceptRequestQuery, time.Now(), friendship.ID)
	} else {
		const declineRequestQuery = `
DELETE FROM friendships
WHERE id = $1
`
		_, err = s.pgPool.Exec(ctx, declineRequestQuery, friendship.ID)
	}
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("request_id", friendship.ID).
			Msg("failed to respond to friend request")
		return err
	}

	if accept {
		_, err = s.notifications.Notify(ctx, friendship.RequesterID, models.NotificationFriendAccepted, map[string]any{
			"friendship_id": friendship.ID,
			"user_id":       userID,
		})
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("user_id", friendship.RequesterID).
				Msg("failed to notify requester")
		}
	}

	action := events.ActionDeleted
	if accept {
		action = events.ActionUpdated
	}
	s.hub.Publish([]string{friendship.RequesterID, friendship.AddresseeID}, events.Event{
		Entity:   events.EntityFriendship,
		Action:   action,
		EntityID: friendship.ID,
		ActorID:  userID,
	})

	s.logger.Info().
		Str("request_id", friendship.ID).
		Bool("accepted", accept).
		Msg("responded to friend request")
	return nil
}

func (s *friendServiceImpl) ListFriends(ctx context.Context, userID string) ([]*FriendInfo, error) {
	const selectFriendsQuery = `
SELECT u.id,
       u.display_name,
       u.email,
       f.updated_at
FROM friendships f
JOIN users u ON u.id = CASE WHEN f.requester_id = $1 THEN f.addressee_id ELSE f.requester_id END
WHERE f.status = 'accepted' AND
      (f.requester_id = $1 OR f.addressee_id = $1)
ORDER BY u.display_name
`
	rows, err := s.pgPool.Query(ctx, selectFriendsQuery, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to select friends")
		return nil, err
	}
	defer rows.Close()

	var friends []*FriendInfo
	for rows.Next() {
		friend := &FriendInfo{}
		err = rows.Scan(
			&friend.UserID,
			&friend.DisplayName,
			&friend.Email,
			&friend.Since,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan friend")
			return nil, err
		}
		friends = append(friends, friend)
	}

	err = rows.Err()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}
	s.logger.Debug().
		Str("user_id", userID).
		Int("count", len(friends)).
		Msg("selected friends")

	return friends, nil
}

func (s *friendServiceImpl) ListRequests(ctx context.Context, userID string) ([]*FriendRequestInfo, error) {
	const selectRequestsQuery = `
SELECT f.id,
       f.requester_id,
       u.display_name,
       u.email,
       f.created_at
FROM friendships f
JOIN users u ON u.id = f.requester_id
WHERE f.addressee_id = $1 AND
      f.status = 'pending'
ORDER BY f.created_at DESC
`
	rows, err := s.pgPool.Query(ctx, selectRequestsQuery, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to select friend requests")
		return nil, err
	}
	defer rows.Close()

	var requests []*FriendRequestInfo
	for rows.Next() {
		request := &FriendRequestInfo{}
		err = rows.Scan(
			&request.RequestID,
			&request.RequesterID,
			&request.DisplayName,
			&request.Email,
			&request.CreatedAt,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan friend request")
			return nil, err
		}
		requests = append(requests, request)
	}

	return requests, rows.Err()
}

func (s *friendServiceImpl) RemoveFriend(ctx context.Context, userID, friendID string) error {
	const deleteFriendshipQuery = `
DELETE FROM friendships
WHERE status = 'accepted' AND
      ((requester_id = $1 AND addressee_id = $2) OR
       (requester_id = $2 AND addressee_id = $1))
`
	tag, err := s.pgPool.Exec(ctx, deleteFriendshipQuery, userID, friendID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Str("friend_id", friendID).
			Msg("failed to delete friendship")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFriendshipNotFound
	}

	s.hub.Publish([]string{userID, friendID}, events.Event{
		Entity:   events.EntityFriendship,
		Action:   events.ActionDeleted,
		EntityID: friendID,
		ActorID:  userID,
	})

	s.logger.Info().
		Str("user_id", userID).
		Str("friend_id", friendID).
		Msg("removed friend")
	return nil
}

func (s *friendServiceImpl) GetFriendProfile(ctx context.Context, userID, friendID string) (*FriendProfile, error) {
	friends, err := areFriends(ctx, s.pgPool, userID, friendID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to check friendship")
		return nil, err
	}
	if !friends {
		return nil, ErrNotFriends
	}

	profile := &FriendProfile{
		UserID: friendID,
	}

	const selectUserQuery = `
SELECT display_name,
       created_at
FROM users
WHERE id = $1
`
	err = s.pgPool.QueryRow(
		ctx,
		selectUserQuery,
		friendID,
	).Scan(
		&profile.DisplayName,
		&profile.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		s.logger.Error().
			Err(err).
			Str("user_id", friendID).
			Msg("failed to select user")
		return nil, err
	}

	logs, err := selectCompletionLogsByUser(ctx, s.pgPool, friendID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", friendID).
			Msg("failed to select completion logs")
		return nil, err
	}
	profile.Stats = progress.ComputeStats(logs, time.Now())

	s.logger.Debug().
		Str("user_id", userID).
		Str("friend_id", friendID).
		Msg("selected friend profile")
	return profile, nil
}
