package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// statusClientClosed is the nginx convention for a request the client abandoned.
const statusClientClosed = 499

type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Error: &apiError{Code: code, Message: message}})
}

func failErr(c *gin.Context, err error) {
	status, code := statusFor(err)
	fail(c, status, code, err.Error())
}

// statusFor maps a service error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidChunkConfig):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "unsupported_format"
	case errors.Is(err, domain.ErrExtractionFailed):
		return http.StatusUnprocessableEntity, "extraction_failed"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, domain.ErrLLMUnavailable),
		errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrVectorIndexUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, domain.ErrPersistenceFailed):
		return http.StatusInternalServerError, "persistence_failed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return statusClientClosed, "cancelled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
