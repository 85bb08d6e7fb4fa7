// Package apperror defines the closed set of error kinds the application
// returns across layers.
//
// Every component returns an *AppError that wraps exactly one of the
// sentinel values below. The HTTP layer picks a status code with errors.Is
// and shows AppError.Message to the client, so Message must always be safe
// for end users to read.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation error")
	ErrAuth       = errors.New("unauthorized")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrInternal   = errors.New("internal error")

	// Upstream (recipe API) failures. Each maps to its own status code so the
	// client can tell "try again later" from "slow down" from "timed out".
	ErrUpstream            = errors.New("upstream error")
	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUpstreamAuth        = errors.New("upstream rejected credentials")
	ErrRateLimited         = errors.New("rate limited")
)

type AppError struct {
	Err     error  // one of the sentinels above
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

// NotFoundMessage is NotFound with a caller-chosen message.
func NotFoundMessage(message string) *AppError {
	return &AppError{Err: ErrNotFound, Message: message}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: message,
	}
}

// Unauthorized is used for bad credentials and for missing, expired or
// invalid tokens.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrAuth,
		Message: message,
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Internal wraps an unexpected failure. The message is shown to clients, the
// cause is kept for logs only.
func Internal(message string, cause error) *AppError {
	if cause == nil {
		cause = ErrInternal
	} else {
		cause = fmt.Errorf("%w: %w", ErrInternal, cause)
	}
	return &AppError{Err: cause, Message: message}
}

// Upstream builds an error for a failed call to the recipe API. kind must be
// one of the ErrUpstream* sentinels or ErrRateLimited.
func Upstream(kind error, message string) *AppError {
	return &AppError{Err: kind, Message: message}
}
