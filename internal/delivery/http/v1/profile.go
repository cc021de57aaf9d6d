package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/momentum-app/momentum/internal/domain/progress"
	"github.com/momentum-app/momentum/internal/services"
)

type updateProfileRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,min=1,max=64"`
}

func (h *handlerImpl) HandleUpdateProfile(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req updateProfileRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind request body")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	user, err := h.users.UpdateProfile(c, services.UpdateProfileParams{
		UserID:      userID,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to update profile")
		abortServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, userResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
	})
}

type statsResponse struct {
	Completions     int `json:"completions"`
	TotalExperience int `json:"total_experience"`
	CurrentStreak   int `json:"current_streak"`
	LongestStreak   int `json:"longest_streak"`
	Level           int `json:"level"`
	NextLevelAt     int `json:"next_level_at"`
}

func newStatsResponse(s *progress.Stats) statsResponse {
	return statsResponse{
		Completions:     s.Completions,
		TotalExperience: s.TotalExperience,
		CurrentStreak:   s.CurrentStreak,
		LongestStreak:   s.LongestStreak,
		Level:           s.Level,
		NextLevelAt:     s.NextLevelAt,
	}
}

func (h *handlerImpl) HandleGetStats(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.users.GetStats(c, userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to fetch stats")
		abortServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newStatsResponse(stats))
}
