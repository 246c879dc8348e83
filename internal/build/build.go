// Package build compiles and packages every unit registered in a solution
// manifest. A compile failure skips that unit's packaging; no failure stops
// the other units.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/ezdbgen/internal/report"
	"github.com/roach88/ezdbgen/internal/solution"
)

// SkippedAPIPackage is the package-stage diagnostic of API units, which are
// compiled but never packaged.
const SkippedAPIPackage = "skipped: api unit"

// Toolchain compiles and packages one unit. Implementations must be safe for
// concurrent use when the orchestrator runs more than one worker.
type Toolchain interface {
	Compile(ctx context.Context, u solution.Unit) error
	Package(ctx context.Context, u solution.Unit) error
}

// Orchestrator runs the toolchain over a manifest.
type Orchestrator struct {
	toolchain Toolchain
	workers   int
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers bounds the number of units built at once. Values below 1 mean 1.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an Orchestrator.
func New(tc Toolchain, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		toolchain: tc,
		workers:   1,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Build compiles and packages every unit of m. The outcomes come back in
// manifest order: the compile outcome of a unit, then its package outcome
// when it compiled. Each outcome is also appended to the unit's notes.
//
// Once ctx is done no further unit is started; those units get a failed
// compile outcome carrying the context error.
func (o *Orchestrator) Build(ctx context.Context, m *solution.Manifest) []report.Outcome {
	units := m.Units()
	results := make([][]report.Outcome, len(units))

	var eg errgroup.Group
	eg.SetLimit(o.workers)
	for i, u := range units {
		eg.Go(func() error {
			results[i] = o.buildUnit(ctx, u)
			return nil
		})
	}
	_ = eg.Wait()

	var outcomes []report.Outcome
	for i, u := range units {
		for _, out := range results[i] {
			if err := m.Annotate(u.Name, out.Note()); err != nil {
				o.logger.Warn("could not annotate unit", "unit", u.Name, "error", err)
			}
			outcomes = append(outcomes, out)
		}
	}
	return outcomes
}

func (o *Orchestrator) buildUnit(ctx context.Context, u solution.Unit) []report.Outcome {
	log := o.logger.With("unit", u.Name)

	if err := ctx.Err(); err != nil {
		return []report.Outcome{report.Failed(u.Name, u.Database, report.StageCompile,
			&CompileError{Unit: u.Name, Err: fmt.Errorf("not started: %w", err)})}
	}

	start := time.Now()
	log.Info("compiling unit")
	if err := o.toolchain.Compile(ctx, u); err != nil {
		out := report.Failed(u.Name, u.Database, report.StageCompile, &CompileError{Unit: u.Name, Err: err})
		out.Duration = time.Since(start)
		log.Error("compile failed", "error", err)
		return []report.Outcome{out}
	}
	compiled := report.Succeeded(u.Name, u.Database, report.StageCompile)
	compiled.Duration = time.Since(start)

	if u.Kind == solution.KindAPI {
		skipped := report.Succeeded(u.Name, u.Database, report.StagePackage)
		skipped.Diagnostic = SkippedAPIPackage
		return []report.Outcome{compiled, skipped}
	}

	start = time.Now()
	log.Info("packaging unit")
	if err := o.toolchain.Package(ctx, u); err != nil {
		out := report.Failed(u.Name, u.Database, report.StagePackage, &PackageError{Unit: u.Name, Err: err})
		out.Duration = time.Since(start)
		log.Error("package failed", "error", err)
		return []report.Outcome{compiled, out}
	}
	packaged := report.Succeeded(u.Name, u.Database, report.StagePackage)
	packaged.Duration = time.Since(start)
	return []report.Outcome{compiled, packaged}
}
