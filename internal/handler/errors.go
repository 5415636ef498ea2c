package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/examroom-backend/internal/response"
	"github.com/stemsi/examroom-backend/internal/service"
)

type errMapping struct {
	err    error
	status int
	code   response.ErrCode
}

var serviceErrors = []errMapping{
	{service.ErrNotAttemptOwner, http.StatusForbidden, response.ErrForbidden},
	{service.ErrNotExamOwner, http.StatusForbidden, response.ErrNotExamOwner},

	{service.ErrExamNotFound, http.StatusNotFound, response.ErrExamNotFound},
	{service.ErrAttemptNotFound, http.StatusNotFound, response.ErrAttemptNotFound},
	{service.ErrQuestionNotFound, http.StatusNotFound, response.ErrQuestionNotFound},
	{service.ErrUserNotFound, http.StatusNotFound, response.ErrNotFound},

	{service.ErrAttemptAlreadyStarted, http.StatusConflict, response.ErrAttemptAlreadyStarted},
	{service.ErrAttemptCompleted, http.StatusConflict, response.ErrAttemptCompleted},
	{service.ErrLateCodeTaken, http.StatusConflict, response.ErrLateCodeTaken},
	{service.ErrEmailTaken, http.StatusConflict, response.ErrEmailTaken},

	{service.ErrExamNotOpen, http.StatusForbidden, response.ErrExamNotOpen},
	{service.ErrExamClosed, http.StatusForbidden, response.ErrExamClosed},
	{service.ErrInvalidLateCode, http.StatusForbidden, response.ErrInvalidLateCode},

	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
}

// classify maps a service error onto an HTTP status and error code.
// Unknown errors become a 500.
func classify(err error) (int, response.ErrCode) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// failService writes the error response for err. Internal errors are
// logged with the request logger and their detail is not exposed.
func failService(c *gin.Context, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Request failed")
	}
	response.Fail(c, status, code)
}
