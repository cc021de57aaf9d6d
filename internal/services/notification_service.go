package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/momentum-app/momentum/internal/events"
	"github.com/momentum-app/momentum/internal/models"
)

type notificationServiceImpl struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
	hub    *events.Hub
}

func NewNotificationService(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
	hub *events.Hub,
) NotificationService {
	return &notificationServiceImpl{
		logger: logger,
		pgPool: pgPool,
		hub:    hub,
	}
}

func (s *notificationServiceImpl) Notify(ctx context.Context, userID, kind string, payload any) (*models.Notification, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("kind", kind).
			Msg("failed to marshal notification payload")
		return nil, err
	}

	notificationUUID, err := uuid.NewV7()
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("failed to generate notification uuid")
		return nil, err
	}

	notification := models.Notification{
		ID:        notificationUUID.String(),
		UserID:    userID,
		Kind:      kind,
		Payload:   string(encoded),
		CreatedAt: time.Now(),
	}

	const insertNotificationQuery = `
INSERT INTO notifications (id,
                           user_id,
                           kind,
                           payload,
                           read,
                           created_at)
VALUES ($1, $2, $3, $4, FALSE, $5)
`
	_, err = s.pgPool.Exec(
		ctx,
		insertNotificationQuery,
		notification.ID,
		notification.UserID,
		notification.Kind,
		notification.Payload,
		notification.CreatedAt,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("kind", kind).
			Msg("failed to insert notification")
		return nil, err
	}

	s.hub.Publish([]string{userID}, events.Event{
		Entity:   events.EntityNotification,
		Action:   events.ActionCreated,
		EntityID: notification.ID,
	})

	s.logger.Debug().
		Str("notification_id", notification.ID).
		Str("user_id", userID).
		Str("kind", kind).
		Msg("created notification")
	return &notification, nil
}

func (s *notificationServiceImpl) List(ctx context.Context, userID string, unreadOnly bool) ([]*models.Notification, error) {
	const selectNotificationsQuery = `
SELECT id,
       kind,
       payload,
       read,
       created_at
FROM notifications
WHERE user_id = $1 AND
      (NOT $2 OR NOT read)
ORDER BY created_at DESC
`
	rows, err := s.pgPool.Query(ctx, selectNotificationsQuery, userID, unreadOnly)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to select notifications")
		return nil, err
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		notification := &models.Notification{UserID: userID}
		err = rows.Scan(
			&notification.ID,
			&notification.Kind,
			&notification.Payload,
			&notification.Read,
			&notification.CreatedAt,
		)
		if err != nil {
			s.logger.Error().
				Err(err).
				Msg("failed to scan notification")
			return nil, err
		}
		notifications = append(notifications, notification)
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
		Int("count", len(notifications)).
		Msg("selected notifications")

	return notifications, nil
}

func (s *notificationServiceImpl) MarkRead(ctx context.Context, notificationID, userID string) error {
	const markReadQuery = `
UPDATE notifications
SET read = TRUE
WHERE id = $1 AND user_id = $2
`
	tag, err := s.pgPool.Exec(ctx, markReadQuery, notificationID, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("notification_id", notificationID).
			Msg("failed to mark notification read")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *notificationServiceImpl) MarkAllRead(ctx context.Context, userID string) error {
	const markAllReadQuery = `
UPDATE notifications
SET read = TRUE
WHERE user_id = $1 AND NOT read
`
	tag, err := s.pgPool.Exec(ctx, markAllReadQuery, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to mark notifications read")
		return err
	}
	s.logger.Debug().
		Str("user_id", userID).
		Int64("affected", tag.RowsAffected()).
		Msg("marked notifications read")
	return nil
}

func (s *notificationServiceImpl) Delete(ctx context.Context, notificationID, userID string) error {
	const deleteNotificationQuery = `
DELETE FROM notifications
WHERE id = $1 AND user_id = $2
`
	tag, err := s.pgPool.Exec(ctx, deleteNotificationQuery, notificationID, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("notification_id", notificationID).
			Msg("failed to delete notification")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
