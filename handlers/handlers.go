package handlers

import (
	"errors"
	"net/http"

	"carelink/models"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Error string `json:"error"`
}

var (
	// Predefined errors
	OKResponse       = Response{}
	NopeResponse     = Response{"nope"}
	DBError1Response = Response{"DB Error 1"}
	DBError2Response = Response{"DB Error 2"}
)

// LifecycleError maps the models error taxonomy to an HTTP response. Each
// class gets its own status so clients can offer the right remedy (e.g.
// "ask the organization to resend" on an expired invitation).
func LifecycleError(c *gin.Context, err error) {
	var invalid *models.InvalidTransitionError
	switch {
	case errors.Is(err, models.ErrInvitationNotFound),
		errors.Is(err, models.ErrConnectionNotFound):
		c.JSON(http.StatusNotFound, Response{err.Error()})
	case errors.Is(err, models.ErrInvitationExpired):
		c.JSON(http.StatusGone, Response{err.Error()})
	case errors.Is(err, models.ErrAlreadyResponded),
		errors.Is(err, models.ErrDuplicateInvitation):
		c.JSON(http.StatusConflict, Response{err.Error()})
	case errors.As(err, &invalid):
		c.JSON(http.StatusUnprocessableEntity, Response{err.Error()})
	case errors.Is(err, models.ErrNoProviderAccount),
		errors.Is(err, models.ErrUnknownAction):
		c.JSON(http.StatusBadRequest, Response{err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, Response{"something went wrong"})
	}
}
