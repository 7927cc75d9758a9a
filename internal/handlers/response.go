package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	domerr "github.com/rizzlab/rizzlab-backend/internal/pkg/errors"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// statusForError maps the service error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domerr.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domerr.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, domerr.ErrStateConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
