// Package errors defines the structured application error used across the
// backend. Callers branch on the error Type, never on message text.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ValidationError             ErrorType = "VALIDATION_ERROR"
	NotFoundError               ErrorType = "NOT_FOUND"
	RoleInvalidError            ErrorType = "ROLE_INVALID"
	LocationNotInitializedError ErrorType = "LOCATION_NOT_INITIALIZED"
	TrackingDisabledError       ErrorType = "TRACKING_DISABLED"
	SubscriptionNotFoundError   ErrorType = "SUBSCRIPTION_NOT_FOUND"
	LocationHistoryEmptyError   ErrorType = "LOCATION_HISTORY_EMPTY"
	DatabaseError               ErrorType = "DATABASE_ERROR"
	ServerError                 ErrorType = "SERVER_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Raw        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Raw
}

// New creates a new AppError
func New(errType ErrorType, message string, detail string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     detail,
		HTTPStatus: getHTTPStatus(errType),
	}
}

// Wrap wraps a raw error with AppError context
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     err.Error(),
		HTTPStatus: getHTTPStatus(errType),
		Raw:        err,
	}
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errType
	}
	return false
}

// Helper constructors for the error taxonomy

func NotFound(entity string, id interface{}) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    fmt.Sprintf("%s not found", entity),
		Detail:     fmt.Sprintf("ID: %v", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func ValidationFailed(message string, detail string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Message:    message,
		Detail:     detail,
		HTTPStatus: http.StatusBadRequest,
	}
}

func RoleInvalid(userID string, required string) *AppError {
	return &AppError{
		Type:       RoleInvalidError,
		Message:    fmt.Sprintf("user does not have the %s role", required),
		Detail:     fmt.Sprintf("User ID: %s", userID),
		HTTPStatus: http.StatusForbidden,
	}
}

func LocationNotInitialized(professionalID string) *AppError {
	return &AppError{
		Type:       LocationNotInitializedError,
		Message:    "no location record exists for this professional yet",
		Detail:     fmt.Sprintf("Professional ID: %s", professionalID),
		HTTPStatus: http.StatusBadRequest,
	}
}

func TrackingDisabled(professionalID string) *AppError {
	return &AppError{
		Type:       TrackingDisabledError,
		Message:    "professional has location tracking disabled",
		Detail:     fmt.Sprintf("Professional ID: %s", professionalID),
		HTTPStatus: http.StatusForbidden,
	}
}

func SubscriptionNotFound(subscriberID, professionalID string) *AppError {
	return &AppError{
		Type:       SubscriptionNotFoundError,
		Message:    "subscription not found",
		Detail:     fmt.Sprintf("Subscriber %s is not subscribed to professional %s", subscriberID, professionalID),
		HTTPStatus: http.StatusNotFound,
	}
}

func LocationHistoryEmpty(professionalID string) *AppError {
	return &AppError{
		Type:       LocationHistoryEmptyError,
		Message:    "no location history recorded",
		Detail:     fmt.Sprintf("Professional ID: %s", professionalID),
		HTTPStatus: http.StatusNotFound,
	}
}

// NewDatabaseError returns a sanitized error for persistence-layer faults.
// The raw error is preserved for logging but never rendered to clients.
func NewDatabaseError(err error) *AppError {
	return &AppError{
		Type:       DatabaseError,
		Message:    "Database operation failed",
		Detail:     "Please try again later",
		HTTPStatus: http.StatusInternalServerError,
		Raw:        err,
	}
}

func InternalServerError(message string) *AppError {
	return &AppError{
		Type:       ServerError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

func getHTTPStatus(errType ErrorType) int {
	switch errType {
	case ValidationError, LocationNotInitializedError:
		return http.StatusBadRequest
	case NotFoundError, SubscriptionNotFoundError, LocationHistoryEmptyError:
		return http.StatusNotFound
	case RoleInvalidError, TrackingDisabledError:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
