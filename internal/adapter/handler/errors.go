package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/leondli/tagserver/internal/infrastructure/middleware"
	apperrors "github.com/leondli/tagserver/pkg/errors"
	"github.com/leondli/tagserver/pkg/response"
)

// errorStyle selects the body shape used for validation failures
type errorStyle int

const (
	// styleError writes {"error": ...}
	styleError errorStyle = iota
	// styleStatus writes {"status": "fail", "message": ...}
	styleStatus
)

// handleError converts a use case error into a response. Conflicts are
// reported as 400 to keep the registration contract clients already rely on.
func handleError(c *gin.Context, err error, style errorStyle, exposeErrors bool) {
	appErr := apperrors.GetAppError(err)

	switch {
	case appErr != nil && apperrors.IsNotFound(appErr):
		response.NotFound(c, appErr.Message)
	case appErr != nil && (apperrors.IsValidation(appErr) || apperrors.IsAlreadyExists(appErr)):
		if style == styleStatus {
			response.Fail(c, http.StatusBadRequest, appErr.Message)
			return
		}
		response.BadRequest(c, appErr.Message)
	default:
		log.Error().
			Err(err).
			Str("request_id", middleware.GetRequestID(c)).
			Str("path", c.Request.URL.Path).
			Msg("Request failed")
		response.InternalError(c, internalMessage(err, exposeErrors))
	}
}

func internalMessage(err error, expose bool) string {
	if !expose {
		return "Internal server error"
	}
	return "Internal server error: " + err.Error()
}
