package services

import (
	"errors"

	"neurema-cms/internal/database"
)

// Custom errors
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type BadRequestError struct{ Message string }

func (e *BadRequestError) Error() string { return e.Message }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

// storeError translates store failures into service errors. Anything it does
// not recognize is returned unchanged.
func storeError(d database.Dialect, err error, notFound, conflict string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrNotFound):
		return &NotFoundError{Message: notFound}
	case d.IsUniqueViolation(err):
		return &ConflictError{Message: conflict}
	default:
		return err
	}
}
