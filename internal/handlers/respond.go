package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yungbote/courselive-backend/internal/pkg/errors"
)

// abortWithError maps the service error taxonomy onto HTTP statuses. Guard
// violations and disallowed retries are conflicts: the request was well
// formed but the current state refuses it.
func abortWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotAuthorized):
		status = http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrGuardViolation), errors.Is(err, apperrors.ErrRetryNotAllowed):
		status = http.StatusConflict
	case errors.Is(err, apperrors.ErrPersistenceFailure):
		status = http.StatusBadGateway
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
