package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest = errors.New("invalid plan request")
	ErrUnitMismatch   = errors.New("unit mismatch")
	ErrUnknownUnit    = errors.New("unknown unit")
	ErrRecipeNotFound = errors.New("recipe not found")
	ErrPlanNotFound   = errors.New("plan not found")
)

// ValidationError names the request field that failed validation.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
