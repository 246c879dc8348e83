package generate

import (
	"errors"
	"fmt"
)

// ErrCodeGeneration identifies failed unit generation.
const ErrCodeGeneration = "GENERATION"

// GenerationError reports a database whose unit could not be generated. It
// is recorded as an outcome and never aborts sibling units.
type GenerationError struct {
	Database string
	// State is the state the unit was in when it failed.
	State State
	Err   error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %s (%s): %v", ErrCodeGeneration, e.Database, e.State, e.Err)
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsGenerationError returns true if err is, or wraps, a GenerationError.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
