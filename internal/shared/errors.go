package shared

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
)

// APIError is serialized as-is by echo's default error handler, producing
// {"error": "...", "details": ...}.
type APIError struct {
	Message string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func NewAPIError(message string) *APIError {
	return &APIError{Message: message}
}

func (e *APIError) WithDetails(details any) *APIError {
	e.Details = details
	return e
}

func (e *APIError) ToHTTP(status int) *echo.HTTPError {
	return echo.NewHTTPError(status, e)
}

func BadRequest(message string) *echo.HTTPError {
	return NewAPIError(message).ToHTTP(http.StatusBadRequest)
}

func NotFound(message string) *echo.HTTPError {
	return NewAPIError(message).ToHTTP(http.StatusNotFound)
}

func InternalError(message string, details any) *echo.HTTPError {
	return NewAPIError(message).WithDetails(details).ToHTTP(http.StatusInternalServerError)
}
