package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/momentum-app/momentum/internal/services"
)

var (
	errInvalidRequestBody      = errors.New("invalid request body")
	errMandatoryCookieNotFound = errors.New("mandatory cookie not found")
)

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, gin.H{"error": err.Message})
}

func newStatusTextError(status int) apiError {
	return newAPIError(status, http.StatusText(status))
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

func newUnauthorizedError(message string) apiError {
	return newAPIError(http.StatusUnauthorized, message)
}

func newForbiddenError(message string) apiError {
	return newAPIError(http.StatusForbidden, message)
}

func newNotFoundError(message string) apiError {
	return newAPIError(http.StatusNotFound, message)
}

func newConflictError(message string) apiError {
	return newAPIError(http.StatusConflict, message)
}

// abortServiceError maps service sentinel errors onto HTTP statuses.
// Unknown errors become an opaque 500.
func abortServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrInviteNotFound),
		errors.Is(err, services.ErrFriendshipNotFound),
		errors.Is(err, services.ErrNotificationNotFound):
		abort(c, newNotFoundError(err.Error()))
	case errors.Is(err, services.ErrNotProjectMember),
		errors.Is(err, services.ErrPermissionDenied),
		errors.Is(err, services.ErrOwnerCannotLeave),
		errors.Is(err, services.ErrNotFriends):
		abort(c, newForbiddenError(err.Error()))
	case errors.Is(err, services.ErrAlreadyMember),
		errors.Is(err, services.ErrFriendRequestExists),
		errors.Is(err, services.ErrUserAlreadyExists):
		abort(c, newConflictError(err.Error()))
	case errors.Is(err, services.ErrUserPasswordMismatch),
		errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrSessionExpired):
		abort(c, newUnauthorizedError(err.Error()))
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleTooLong),
		errors.Is(err, services.ErrDescriptionTooLong),
		errors.Is(err, services.ErrDueDateRequired),
		errors.Is(err, services.ErrRecurrenceRequired),
		errors.Is(err, services.ErrInvalidRecurrence),
		errors.Is(err, services.ErrSelfFriendRequest):
		abort(c, newBadRequestError(err.Error()))
	default:
		abort(c, newStatusTextError(http.StatusInternalServerError))
	}
}
