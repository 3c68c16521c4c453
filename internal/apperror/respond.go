package apperror

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Response is the JSON error body returned by every API endpoint.
type Response struct {
	Error     string       `json:"error"`
	Details   []FieldError `json:"details,omitempty"`
	Timestamp string       `json:"timestamp,omitempty"`
}

// Status maps an error onto its HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrQuotaExceeded):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Respond writes err as JSON and aborts the gin chain. Unclassified errors
// never leak their message.
func Respond(c *gin.Context, err error) {
	status := Status(err)

	var appErr *AppError
	if !errors.As(err, &appErr) {
		c.AbortWithStatusJSON(status, Response{Error: "Internal server error"})
		return
	}

	body := Response{Error: appErr.Message, Details: appErr.Details}
	if errors.Is(err, ErrUpstream) {
		body.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	c.AbortWithStatusJSON(status, body)
}
