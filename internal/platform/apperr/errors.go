// Package apperr holds the error types shared by every domain package and the
// mapping from those errors to HTTP responses.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or missing input. It is always returned
// before any state is mutated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports an unknown or unreachable resource id.
type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
}

// ForbiddenError reports an actor whose role may not perform an operation.
type ForbiddenError struct {
	Role     string
	Required []string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("role %q may not perform this operation", e.Role)
}

func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

func NotFound(resource string, id any) error {
	return &NotFoundError{Resource: resource, ID: id}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
