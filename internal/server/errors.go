package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MarcoPoloResearchLab/anisensei/internal/anime"
	"github.com/MarcoPoloResearchLab/anisensei/internal/assistant"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	messageAnimeNotFound = "Anime not found"
	messageImageNotFound = "Image not found"
	messageConflict      = "Anime was modified by another request"
	messageTooLarge      = "Request body too large"
	messageInvalidInput  = "Invalid request"
	messageMissingChat   = "Message is required"
)

// requestError reports a body that could not be decoded into record fields.
type requestError struct {
	code string
	err  error
}

func (e *requestError) Error() string {
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *requestError) Unwrap() error {
	return e.err
}

func (e *requestError) Code() string {
	return e.code
}

func newFieldError(field, message string) error {
	return &requestError{
		code: "request.invalid_" + field,
		err:  &anime.ValidationError{Field: field, Message: message},
	}
}

type codedError interface {
	Code() string
}

// respondError maps a service failure onto a status and a short message. Detail
// beyond the message and code is only logged.
func (h *httpHandler) respondError(c *gin.Context, err error, notFoundMessage, failureMessage string) {
	status, message := classifyError(err, notFoundMessage, failureMessage)
	body := gin.H{"error": message}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(requestIDContextKey)),
			zap.Error(err))
		c.JSON(status, body)
		return
	}

	var coded codedError
	if errors.As(err, &coded) {
		body["code"] = coded.Code()
	}
	c.JSON(status, body)
}

func classifyError(err error, notFoundMessage, failureMessage string) (int, string) {
	var maxBytesErr *http.MaxBytesError
	var validationErr *anime.ValidationError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, messageTooLarge
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, validationErr.Message
	case errors.Is(err, anime.ErrValidation):
		return http.StatusBadRequest, messageInvalidInput
	case errors.Is(err, anime.ErrNotFound):
		return http.StatusNotFound, notFoundMessage
	case errors.Is(err, anime.ErrConflict):
		return http.StatusConflict, messageConflict
	case errors.Is(err, assistant.ErrEmptyQuery):
		return http.StatusBadRequest, messageMissingChat
	default:
		return http.StatusInternalServerError, failureMessage
	}
}
