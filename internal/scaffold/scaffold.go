// Package scaffold defines the contract with the external schema
// introspection engine: given a database-scoped connection and the options
// bundle, produce a set of named text artifacts plus one entry point.
package scaffold

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/roach88/ezdbgen/internal/project"
)

// ErrCodeEngine identifies scaffolding engine failures.
const ErrCodeEngine = "ENGINE"

// Artifact is one generated source file. Path is relative to the unit's
// models directory and uses forward slashes.
type Artifact struct {
	Path    string
	Content string
}

// Result is everything the engine produced for one database.
type Result struct {
	Artifacts []Artifact
	// EntryPoint is the data-context source file.
	EntryPoint Artifact
}

// Request asks the engine to scaffold one database.
type Request struct {
	Database string
	// Connection is the database-scoped connection string.
	Connection string
	// Dialect is the inventory dialect name ("sqlserver", "mysql", "postgres").
	Dialect string
	Options project.ScaffoldOptions
}

// Engine produces artifacts for one database. Implementations must be safe
// for concurrent use: the orchestrator may scaffold several databases at once.
type Engine interface {
	Scaffold(ctx context.Context, req Request) (Result, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, req Request) (Result, error)

// Scaffold calls f.
func (f EngineFunc) Scaffold(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// EngineError reports a failed scaffolding call.
type EngineError struct {
	Database string
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", ErrCodeEngine, e.Database, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", ErrCodeEngine, e.Database, e.Message)
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// IsEngineError returns true if err is, or wraps, an EngineError.
func IsEngineError(err error) bool {
	var ee *EngineError
	return errors.As(err, &ee)
}

// Validate checks that every artifact path is relative, stays inside the
// models directory and is unique, and that the entry point is present.
func (r Result) Validate() error {
	if r.EntryPoint.Path == "" {
		return fmt.Errorf("no entry point artifact")
	}
	seen := make(map[string]bool, len(r.Artifacts)+1)
	for _, a := range append([]Artifact{r.EntryPoint}, r.Artifacts...) {
		clean, err := CleanPath(a.Path)
		if err != nil {
			return err
		}
		key := strings.ToLower(clean)
		if seen[key] {
			return fmt.Errorf("artifact %q produced twice", a.Path)
		}
		seen[key] = true
	}
	return nil
}

// CleanPath normalises an artifact path and rejects absolute or escaping
// paths.
func CleanPath(p string) (string, error) {
	p = strings.ReplaceAll(p, `\`, "/")
	if p == "" || strings.HasPrefix(p, "/") || (len(p) > 1 && p[1] == ':') {
		return "", fmt.Errorf("artifact path %q is not relative", p)
	}
	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("artifact path %q escapes the models directory", p)
	}
	return p, nil
}
