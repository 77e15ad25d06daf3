package middleware

import (
	"errors"
	"net/http"

	"xupload/internal/services"
	"xupload/internal/transport/httpdto"
	xupload_errors "xupload/pkg/errors"
	"xupload/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler renders the last error attached with c.Error when the handler
// did not write a response itself.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := services.HTTPStatus(err)
		if l != nil {
			l.Error(c.Request.Context(), "request error", zap.Int("status", status), zap.Error(err))
		}
		if c.Writer.Written() {
			return
		}

		message := err.Error()
		switch {
		case errors.Is(err, xupload_errors.ErrMissingFile):
			message = "Could not upload file"
		case status == http.StatusInternalServerError:
			message = "internal server error"
		}
		c.JSON(status, httpdto.NewErrorResponse(message, errorCode(status)))
	}
}

func errorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "INVALID_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	case http.StatusRequestEntityTooLarge:
		return "TOO_LARGE"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	default:
		return "INTERNAL_ERROR"
	}
}
