package compliance

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrNotFound          = errors.New("not found")
)

// ValidationError reports malformed or out-of-range input. It is always
// correctable by the caller.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field string, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError is returned when an action is not present in a
// family's transition table for the current state, or its guard fails.
type InvalidTransitionError struct {
	Family string `json:"family"`
	From   string `json:"from"`
	Action string `json:"action"`
	Reason string `json:"reason"`
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("%s: action %q not allowed from state %q", e.Family, e.Action, e.From)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

type NotFoundError struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NewNotFound(kind string, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}
