package app

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"checkmark/api/internal/authpw"
	"checkmark/api/internal/gitrepo"
	"checkmark/api/internal/store"
	"checkmark/api/internal/uploads"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func errNotAuthenticated() *DomainError {
	return domainError(http.StatusUnauthorized, "NOT_AUTHENTICATED", "Not authenticated", nil)
}

func errForbidden() *DomainError {
	return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
}

func errNotFound(what string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", what+" not found", nil)
}

func errValidation(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, nil)
}

// mapError turns any error returned by the service into the status and body
// fields sent to the client. Unknown errors become a generic 500 so that file
// paths and I/O details never leave the process.
func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	switch {
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil
	case errors.Is(err, authpw.ErrAlreadySetup):
		return http.StatusConflict, "ALREADY_SETUP", "Setup has already been completed", nil
	case errors.Is(err, store.ErrNotFound), errors.Is(err, uploads.ErrNotFound), errors.Is(err, gitrepo.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "CONFLICT", cleanMessage(err, store.ErrConflict), nil
	case errors.Is(err, uploads.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "TOO_LARGE", "Upload too large", nil
	case errors.Is(err, store.ErrValidation):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", cleanMessage(err, store.ErrValidation), nil
	case errors.Is(err, uploads.ErrInvalidName), errors.Is(err, uploads.ErrUnsupported):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

// cleanMessage drops the sentinel prefix ("validation failed: ") from a
// wrapped error so the client sees only the specific reason.
func cleanMessage(err, sentinel error) string {
	message := err.Error()
	if idx := strings.LastIndex(message, sentinel.Error()+": "); idx >= 0 {
		message = message[idx+len(sentinel.Error())+2:]
	}
	return message
}

func isNotFound(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Status == http.StatusNotFound
}
