package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"flatfinder/internal/middleware"
	"flatfinder/internal/repository"
	"flatfinder/internal/service"
)

var notFound = map[error]string{
	repository.ErrUserNotFound:     "User not found",
	repository.ErrFlatNotFound:     "Flat not found",
	repository.ErrMessageNotFound:  "Message not found",
	repository.ErrPhotoNotFound:    "Photo not found",
	repository.ErrFavoriteNotFound: "Favorite not found",
}

// respondError is the single place service and store errors become HTTP
// answers. Unknown errors are logged and hidden behind a generic 500.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		body := gin.H{"message": verr.Message}
		if len(verr.Fields) > 0 {
			body["errors"] = verr.Fields
		}
		c.JSON(http.StatusBadRequest, body)
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		message(c, http.StatusBadRequest, "Invalid email or password")
		return
	case errors.Is(err, repository.ErrEmailTaken):
		message(c, http.StatusBadRequest, "Email already exists.")
		return
	case errors.Is(err, repository.ErrFavoriteExists):
		message(c, http.StatusBadRequest, "Flat already added to favorites")
		return
	case errors.Is(err, service.ErrForbidden):
		message(c, http.StatusForbidden, "Forbidden")
		return
	case errors.Is(err, service.ErrPhotoTooLarge):
		message(c, http.StatusRequestEntityTooLarge, "Photo is too large.")
		return
	}

	for target, text := range notFound {
		if errors.Is(err, target) {
			message(c, http.StatusNotFound, text)
			return
		}
	}

	h.log.Error().
		Err(err).
		Str("request_id", middleware.RequestIDFrom(c)).
		Str("method", c.Request.Method).
		Str("route", c.FullPath()).
		Msg("request failed")
	message(c, http.StatusInternalServerError, "Server error.")
}

func badBody(c *gin.Context, text string) {
	message(c, http.StatusBadRequest, text)
}
