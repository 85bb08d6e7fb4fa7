// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services accept plain Go values and return domain errors
// (*apperror.AppError), never HTTP status codes. The handler package is
// the only place that knows how an error kind becomes a status.
//
// DEPENDENCY INJECTION:
// Every service takes repository interfaces, not *sqlstore.Store, so the
// tests in this package run against small in-memory fakes.
package service

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/recipebox/internal/apperror"
)

// validate is shared by all services. *validator.Validate caches struct
// metadata and is safe for concurrent use, so one instance is enough.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name ("readyIn", not "ReadyIn") so the
	// Field of a ValidationFailed error matches what the client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// rule maps one failed validation (field + tag) to the message the client
// sees. An empty tag matches any tag on that field.
type rule struct {
	field   string
	tag     string
	message string
}

// validateInput runs the struct tags on in and turns the first failure
// into a ValidationFailed error.
//
// Rules are checked in order, not in struct-field order: the first rule
// that matches ANY failure wins. That lets "all fields are required" take
// priority over "email is malformed", the same order a person filling in
// the form would want to hear about them.
func validateInput(in any, rules []rule) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperror.ValidationFailed("", "Invalid input.")
	}

	for _, r := range rules {
		for _, fe := range fieldErrs {
			if (r.field == "" || fe.Field() == r.field) && (r.tag == "" || fe.Tag() == r.tag) {
				field := r.field
				if field == "" {
					field = fe.Field()
				}
				return apperror.ValidationFailed(field, r.message)
			}
		}
	}

	fe := fieldErrs[0]
	return apperror.ValidationFailed(fe.Field(), "Invalid value for "+fe.Field()+".")
}

// storeError passes through errors that already carry a kind the client
// should see (not found, conflict, ...). Anything else is a failure the
// client can't act on: it is logged with its cause and replaced by an
// internal error carrying message.
func storeError(logger *slog.Logger, err error, message string) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	logger.Error(message, slog.String("error", err.Error()))
	return apperror.Internal(message, err)
}
