package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	middlewarepkg "github.com/octobees/gluten-finder/api/internal/middleware"
)

// APIResponse describes the standard envelope returned by the API.
// RequestID echoes X-Request-ID so a client can quote it when reporting a bad discovery.
type APIResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// Success sends a successful response using the shared envelope format.
func Success(c echo.Context, status int, message string, data any) error {
	if status == 0 {
		status = http.StatusOK
	}
	return c.JSON(status, APIResponse{
		Status:    "success",
		Message:   message,
		RequestID: middlewarepkg.RequestIDFromContext(c),
		Data:      data,
	})
}

// Error sends an error response using the shared envelope format.
func Error(c echo.Context, status int, message string) error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, APIResponse{
		Status:    "error",
		Message:   message,
		RequestID: middlewarepkg.RequestIDFromContext(c),
	})
}
