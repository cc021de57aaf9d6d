package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/momentum-app/momentum/internal/domain/progress"
	"github.com/momentum-app/momentum/internal/models"
)

type userServiceImpl struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewUserService(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
) UserService {
	return &userServiceImpl{
		logger: logger,
		pgPool: pgPool,
	}
}

func (s *userServiceImpl) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	user := &models.User{
		ID: userID,
	}

	const selectUserByIDQuery = `
SELECT email,
       display_name,
       created_at,
       updated_at
FROM users
WHERE id = $1
`
	err := s.pgPool.QueryRow(
		ctx,
		selectUserByIDQuery,
		user.ID,
	).Scan(
		&user.Email,
		&user.DisplayName,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error().
				Str("user_id", user.ID).
				Msg("user not found")
			return nil, ErrUserNotFound
		}

		s.logger.Error().
			Err(err).
			Str("user_id", user.ID).
			Msg("failed to select user by id")
		return nil, err
	}
	s.logger.Debug().
		Str("user_id", user.ID).
		Msg("selected user by id")

	return user, nil
}

func (s *userServiceImpl) UpdateProfile(ctx context.Context, params UpdateProfileParams) (*models.User, error) {
	user, err := s.GetUserByID(ctx, params.UserID)
	if err != nil {
		return nil, err
	}

	if params.DisplayName == nil || strings.TrimSpace(*params.DisplayName) == "" {
		return user, nil
	}
	user.DisplayName = strings.TrimSpace(*params.DisplayName)
	user.UpdatedAt = time.Now()

	const updateUserQuery = `
UPDATE users
SET display_name = $1,
    updated_at = $2
WHERE id = $3
`
	_, err = s.pgPool.Exec(
		ctx,
		updateUserQuery,
		user.DisplayName,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", user.ID).
			Msg("failed to update user")
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Msg("updated profile")
	return user, nil
}

func (s *userServiceImpl) GetStats(ctx context.Context, userID string) (*progress.Stats, error) {
	logs, err := selectCompletionLogsByUser(ctx, s.pgPool, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to select completion logs")
		return nil, err
	}
	s.logger.Debug().
		Str("user_id", userID).
		Int("count", len(logs)).
		Msg("selected completion logs")

	stats := progress.ComputeStats(logs, time.Now())
	return &stats, nil
}

// selectCompletionLogsByUser loads the user's full completion history,
// shared by profile stats and friend profiles.
func selectCompletionLogsByUser(ctx context.Context, q querier, userID string) ([]models.CompletionLog, error) {
	const selectLogsQuery = `
SELECT id,
       task_id,
       completed_at,
       experience,
       penalized,
       created_at
FROM completion_logs
WHERE user_id = $1
ORDER BY completed_at
`
	rows, err := q.Query(ctx, selectLogsQuery, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.CompletionLog
	for rows.Next() {
		log := models.CompletionLog{UserID: userID}
		err = rows.Scan(
			&log.ID,
			&log.TaskID,
			&log.CompletedAt,
			&log.Experience,
			&log.Penalized,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
