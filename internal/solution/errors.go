package solution

import (
	"errors"
	"fmt"
)

// Error codes for manifest failures.
const (
	ErrCodeDuplicateUnit = "DUPLICATE_UNIT"
	ErrCodeInvalidUnit   = "INVALID_UNIT"
	ErrCodeParse         = "SOLUTION_PARSE"
)

// DuplicateUnitError is returned when a unit name is registered twice
// (names compare case-insensitively). Given the naming rules this indicates a
// programming error and callers treat it as fatal.
type DuplicateUnitError struct {
	Name     string
	Existing string
}

// Error implements the error interface.
func (e *DuplicateUnitError) Error() string {
	if e.Existing != "" && e.Existing != e.Name {
		return fmt.Sprintf("%s: unit %q collides with registered unit %q", ErrCodeDuplicateUnit, e.Name, e.Existing)
	}
	return fmt.Sprintf("%s: unit %q is already registered", ErrCodeDuplicateUnit, e.Name)
}

// IsDuplicateUnitError returns true if err is, or wraps, a DuplicateUnitError.
func IsDuplicateUnitError(err error) bool {
	var de *DuplicateUnitError
	return errors.As(err, &de)
}

// InvalidUnitError reports a registration with missing or malformed fields.
type InvalidUnitError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *InvalidUnitError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrCodeInvalidUnit, e.Field, e.Message)
}

// ParseError reports a solution document that could not be read back.
type ParseError struct {
	Line    int
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: line %d: %s", ErrCodeParse, e.Line, e.Message)
}
