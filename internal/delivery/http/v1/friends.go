package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type friendResponse struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Since       time.Time `json:"since"`
}

func (h *handlerImpl) HandleGetFriends(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	friends, err := h.friends.ListFriends(c, userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to fetch friends")
		abortServiceError(c, err)
		return
	}

	resp := make([]friendResponse, 0, len(friends))
	for _, f := range friends {
		resp = append(resp, friendResponse{
			UserID:      f.UserID,
			DisplayName: f.DisplayName,
			Email:       f.Email,
			Since:       f.Since,
		})
	}

	c.JSON(http.StatusOK, gin.H{"friends": resp})
}

type friendRequestResponse struct {
	RequestID   string    `json:"request_id"`
	RequesterID string    `json:"requester_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *handlerImpl) HandleGetFriendRequests(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	requests, err := h.friends.ListRequests(c, userID)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to fetch friend requests")
		abortServiceError(c, err)
		return
	}

	resp := make([]friendRequestResponse, 0, len(requests))
	for _, r := range requests {
		resp = append(resp, friendRequestResponse{
			RequestID:   r.RequestID,
			RequesterID: r.RequesterID,
			DisplayName: r.DisplayName,
			Email:       r.Email,
			CreatedAt:   r.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"requests": resp})
}

type sendFriendRequestRequest struct {
	Email string `json:"email" binding:"required,email,max=255"`
}

func (h *handlerImpl) HandleSendFriendRequest(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req sendFriendRequestRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind request body")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	friendship, err := h.friends.SendRequest(c, userID, req.Email)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to send friend request")
		abortServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"request_id": friendship.ID})
}

type respondToFriendRequestRequest struct {
	Accept bool `json:"accept"`
}

func (h *handlerImpl) HandleRespondToFriendRequest(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req respondToFriendRequestRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind request body")
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
		return
	}

	err = h.friends.RespondToRequest(c, c.Param("id"), userID, req.Accept)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to respond to friend request")
		abortServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handlerImpl) HandleRemoveFriend(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	err := h.friends.RemoveFriend(c, userID, c.Param("userID"))
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to remove friend")
		abortServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *handlerImpl) HandleGetFriendProfile(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	profile, err := h.friends.GetFriendProfile(c, userID, c.Param("userID"))
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to fetch friend profile")
		abortServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      profile.UserID,
		"display_name": profile.DisplayName,
		"joined_at":    profile.JoinedAt,
		"stats":        newStatsResponse(&profile.Stats),
	})
}
