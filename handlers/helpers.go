package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"trivialive/middleware"
	"trivialive/services"

	"github.com/gin-gonic/gin"
)

// statusForError maps service sentinel errors onto HTTP statuses. Unknown
// errors are treated as internal.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrGameNotFound),
		errors.Is(err, services.ErrQuestionNotFound),
		errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrNotYourGame),
		errors.Is(err, services.ErrNotJoined):
		return http.StatusForbidden
	case errors.Is(err, services.ErrEmailConflict),
		errors.Is(err, services.ErrAnotherQuestionLive):
		return http.StatusConflict
	case errors.Is(err, services.ErrOptionCount),
		errors.Is(err, services.ErrOptionOutOfRange),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrScoreNotPositive),
		errors.Is(err, services.ErrBadMultiplier):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrGameEnded),
		errors.Is(err, services.ErrGameNotLive),
		errors.Is(err, services.ErrQuestionNotLive),
		errors.Is(err, services.ErrQuestionNotClosed),
		errors.Is(err, services.ErrGameAlreadyDeleted),
		errors.Is(err, services.ErrAlreadyRevealed),
		errors.Is(err, services.ErrGameNotDraft),
		errors.Is(err, services.ErrGameCannotEnd),
		errors.Is(err, services.ErrQuestionNotDraft),
		errors.Is(err, services.ErrQuestionCantClose):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func currentUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(middleware.ContextUserID)
	if !exists {
		return 0, false
	}
	userID, ok := value.(uint)
	return userID, ok
}

// currentViewer returns the caller's identity, or nil for anonymous callers.
func currentViewer(c *gin.Context) *services.Viewer {
	userID, ok := currentUserID(c)
	if !ok {
		return nil
	}
	role, _ := c.Get(middleware.ContextRole)
	roleStr, _ := role.(string)
	return &services.Viewer{UserID: userID, Role: roleStr}
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}
