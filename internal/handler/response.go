package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from the API has the same shape:
//   {"error": "Recipe title is required.", "code": "validation_error"}
//
// "error" is the human-readable message the frontend shows as is.
// "code" is the machine-readable kind the frontend can switch on.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/recipebox/internal/apperror"
)

const (
	msgInternal    = "Something went wrong on our end. Please try again later."
	msgInvalidJSON = "Invalid JSON body."

	// maxBodyBytes caps request bodies. The largest legitimate body is a
	// recipe with long instructions, far below this.
	maxBodyBytes = 1 << 20
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error  string `json:"error"`            // Human-readable message
	Code   string `json:"code"`             // Machine-readable kind (e.g., "not_found")
	Field  string `json:"field,omitempty"`  // Offending input field, validation errors only
	Detail string `json:"detail,omitempty"` // Internal cause, development mode only
}

// MessageResponse is the body of endpoints that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status code must be set BEFORE writing the body.
// Once Encode writes, the headers are sent and later changes are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent, we can only log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// decodeJSON reads the request body into dst.
//
// An empty body decodes to dst's zero value, so a POST with no body gets
// the usual "fields are required" message instead of a JSON error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("", "Request body is too large.")
		}
		return apperror.ValidationFailed("", msgInvalidJSON)
	}
	return nil
}

// errorWriter maps domain errors to HTTP responses.
//
// ERROR MAPPING:
// This is where domain errors (from the service layer) get translated to
// HTTP. The service layer returns apperror.ErrValidation,
// apperror.ErrNotFound, etc. and knows nothing about status codes.
//
// errors.Is() walks the whole chain, so an AppError wrapped again with
// fmt.Errorf("...: %w") still maps to the right status.
type errorWriter struct {
	logger      *slog.Logger
	development bool
}

func newErrorWriter(logger *slog.Logger, development bool) errorWriter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return errorWriter{logger: logger, development: development}
}

// statusFor returns the HTTP status and machine code for an error kind.
// The switch covers every sentinel in apperror. The specific upstream
// kinds come before the generic ErrUpstream.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrAuth):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrUpstreamTimeout):
		return http.StatusRequestTimeout, "upstream_timeout"
	case errors.Is(err, apperror.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, apperror.ErrUpstreamAuth):
		return http.StatusUnauthorized, "upstream_auth"
	case errors.Is(err, apperror.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, "upstream_unavailable"
	case errors.Is(err, apperror.ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// write sends err to the client.
//
// NEVER expose internal error details in production: a raw error may
// contain SQL, file paths or hostnames. Only AppError.Message is shown,
// plus the cause as "detail" when running in development mode.
func (e errorWriter) write(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		e.logger.Error("unhandled error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		resp := ErrorResponse{Error: msgInternal, Code: "internal_error"}
		if e.development {
			resp.Detail = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	resp := ErrorResponse{Error: appErr.Message, Code: code}
	if status == http.StatusBadRequest {
		resp.Field = appErr.Field
	}
	if status == http.StatusInternalServerError && e.development && appErr.Err != nil {
		resp.Detail = appErr.Err.Error()
	}
	writeJSON(w, status, resp)
}

// HandleNotFound answers requests that match no route.
func HandleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Endpoint not found"})
}

// HandleMethodNotAllowed answers a known path called with the wrong method.
func HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
}
