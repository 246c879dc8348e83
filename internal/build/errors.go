package build

import (
	"errors"
	"fmt"
)

// Error codes for build failures.
const (
	ErrCodeCompile = "COMPILE"
	ErrCodePackage = "PACKAGE"
)

// CompileError reports a unit that failed to compile. Packaging is skipped
// for that unit; siblings continue.
type CompileError struct {
	Unit string
	Err  error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCodeCompile, e.Unit, e.Err)
}

// Unwrap returns the underlying error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// IsCompileError returns true if err is, or wraps, a CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// PackageError reports a compiled unit whose package could not be produced.
type PackageError struct {
	Unit string
	Err  error
}

// Error implements the error interface.
func (e *PackageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrCodePackage, e.Unit, e.Err)
}

// Unwrap returns the underlying error.
func (e *PackageError) Unwrap() error {
	return e.Err
}

// IsPackageError returns true if err is, or wraps, a PackageError.
func IsPackageError(err error) bool {
	var pe *PackageError
	return errors.As(err, &pe)
}
