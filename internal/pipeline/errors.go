package pipeline

import (
	"errors"

	"github.com/rotisserie/eris"
)

// Category classifies pipeline failures for the caller's error translation.
type Category string

const (
	// CategoryCallerInput marks requests rejected before any work starts:
	// question too short, unknown template.
	CategoryCallerInput Category = "caller_input"
	// CategoryExtraction marks fatal model-call failures: timeout, quota,
	// unparseable output.
	CategoryExtraction Category = "extraction"
)

// Error is a categorized pipeline failure.
type Error struct {
	Category Category
	err      error
}

func (e *Error) Error() string { return e.err.Error() }

func (e *Error) Unwrap() error { return e.err }

func callerInputError(format string, args ...any) error {
	return &Error{Category: CategoryCallerInput, err: eris.Errorf(format, args...)}
}

func extractionError(err error) error {
	return &Error{Category: CategoryExtraction, err: eris.Wrap(err, "pipeline: extraction")}
}

// IsCallerInput reports whether err is a caller-input rejection.
func IsCallerInput(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Category == CategoryCallerInput
}

// IsExtraction reports whether err is a fatal extraction failure.
func IsExtraction(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Category == CategoryExtraction
}
