package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"deckhand/internal/domain"
)

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

// writeError maps domain errors onto HTTP status codes. Unknown errors are
// reported as 500 without leaking internals beyond the error message.
func writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrContainerNotFound), errors.Is(err, domain.ErrStackNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrContainerNotRunning):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrRuntimeUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrTimeout):
		status = http.StatusGatewayTimeout
	}
	return c.JSON(status, errorResponse{
		Error:     err.Error(),
		Retryable: domain.Retryable(err),
	})
}
