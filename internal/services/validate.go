package services

import (
	"errors"
	"fmt"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/apperr"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/repositories"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateStruct runs the struct's validate tags and reports failures as
// InvalidInput keyed by field name.
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperr.Wrap(apperr.InvalidInput, err, "Invalid request")
	}
	errorMessages := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return apperr.Invalid(errorMessages)
}

// storeError classifies a repository error.
func storeError(err error, format string, args ...interface{}) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return apperr.Wrap(apperr.NotFound, err, format, args...)
	case errors.Is(err, repositories.ErrInsufficientStock):
		return apperr.Wrap(apperr.InsufficientStock, err, format, args...)
	case errors.Is(err, repositories.ErrDuplicate), errors.Is(err, repositories.ErrStaleWrite):
		return apperr.Wrap(apperr.Conflict, err, format, args...)
	default:
		return apperr.Wrap(apperr.Internal, err, format, args...)
	}
}
