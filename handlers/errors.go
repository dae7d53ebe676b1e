package handlers

import (
	"errors"
	"log"
	"net/http"

	"court_flow_app_go/services"

	"github.com/labstack/echo/v4"
)

// errorStatus maps workflow error kinds to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrIncompleteClosure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrAlreadyExists),
		errors.Is(err, services.ErrDocumentAlreadySealed),
		errors.Is(err, services.ErrPersistenceConflict),
		errors.Is(err, services.ErrContentMismatch):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// errorCode is the machine readable kind sent alongside the message
func errorCode(err error) string {
	var te *services.TransitionError
	switch {
	case errors.As(err, &te):
		return "invalid_transition"
	case errors.Is(err, services.ErrValidation):
		return "validation"
	case errors.Is(err, services.ErrIncompleteClosure):
		return "incomplete_closure"
	case errors.Is(err, services.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, services.ErrNotFound):
		return "not_found"
	case errors.Is(err, services.ErrInvalidTransition):
		return "invalid_state"
	case errors.Is(err, services.ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, services.ErrDocumentAlreadySealed):
		return "already_sealed"
	case errors.Is(err, services.ErrPersistenceConflict):
		return "conflict"
	case errors.Is(err, services.ErrContentMismatch):
		return "content_mismatch"
	}
	return "internal"
}

// respondError writes the JSON error body for a workflow failure. Internal
// errors are logged and their detail withheld.
func respondError(c echo.Context, err error) error {
	status := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", c.Request().Method, c.Path(), err)
		message = "Internal server error"
	}
	body := map[string]interface{}{
		"error":   errorCode(err),
		"message": message,
	}
	if services.IsRetryable(err) {
		body["retryable"] = true
	}
	return c.JSON(status, body)
}
