// Package generate drives one unit of work per selected database: prepare
// the unit directory, ask the scaffolding engine for artifacts, write them
// and register the unit in the solution manifest.
//
// Units run on a bounded worker pool. Registration happens after the pool
// drains, in the order the databases were given, so the manifest order is
// reproducible whatever order the work finished in.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/ezdbgen/internal/naming"
	"github.com/roach88/ezdbgen/internal/project"
	"github.com/roach88/ezdbgen/internal/report"
	"github.com/roach88/ezdbgen/internal/scaffold"
	"github.com/roach88/ezdbgen/internal/solution"
)

// ObjectFilter returns the quoted table names to scaffold for a database, or
// nil to scaffold every table.
type ObjectFilter func(ctx context.Context, database string) ([]string, error)

// Options configures an Orchestrator.
type Options struct {
	// SolutionDir is the directory holding the solution document; unit
	// directories are created below it.
	SolutionDir string
	// SolutionFile, when set, is updated on disk after every registration.
	SolutionFile string
	Prefix       string
	Version      string
	// Dialect selects the data-access provider and engine provider token.
	Dialect string
	// Connection returns the database-scoped connection string.
	Connection func(database string) string
	// ServerConnection is written to the API unit's settings.
	ServerConnection string
	CodeGeneration   project.CodeGeneration
	Workers          int
	GenerateAPI      bool
	Objects          ObjectFilter
	// UnitIDs returns the identifier a unit was given by an earlier run, or
	// "" to have the manifest generate one.
	UnitIDs func(name string) string
}

// UnitWork tracks one database through the generation states.
type UnitWork struct {
	Database string
	// Name is the unit name derived from the prefix and database.
	Name string
	// Path is the project path relative to the solution directory.
	Path  string
	State State
	// History lists every state entered after StateSelected.
	History []State
	Err     error
	// Unit is set once the unit is registered.
	Unit      solution.Unit
	Artifacts int
	Duration  time.Duration
}

// Result is the outcome of a generation run.
type Result struct {
	// Units holds one entry per input database, in input order.
	Units []*UnitWork
	// API is the API unit's work, when one was requested.
	API      *UnitWork
	Outcomes []report.Outcome
}

// Registered returns the library units that reached StateDone, in order.
func (r Result) Registered() []*UnitWork {
	var out []*UnitWork
	for _, w := range r.Units {
		if w.State == StateDone {
			out = append(out, w)
		}
	}
	return out
}

// Orchestrator generates units into a shared manifest.
type Orchestrator struct {
	opts     Options
	engine   scaffold.Engine
	manifest *solution.Manifest
	fs       afs.Service
	provider project.Provider
	logger   *slog.Logger
}

// New creates an Orchestrator writing into manifest.
func New(engine scaffold.Engine, manifest *solution.Manifest, opts Options, logger *slog.Logger) (*Orchestrator, error) {
	if engine == nil {
		return nil, fmt.Errorf("generate: engine is required")
	}
	if manifest == nil {
		return nil, fmt.Errorf("generate: manifest is required")
	}
	if opts.SolutionDir == "" {
		return nil, fmt.Errorf("generate: solution directory is required")
	}
	if opts.Prefix == "" {
		return nil, fmt.Errorf("generate: assembly prefix is required")
	}
	if opts.Connection == nil {
		opts.Connection = func(string) string { return opts.ServerConnection }
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	provider, err := project.ProviderFor(opts.Dialect)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		opts:     opts,
		engine:   engine,
		manifest: manifest,
		fs:       afs.New(),
		provider: provider,
		logger:   logger,
	}, nil
}

// Run generates one unit per database. Per-unit failures are recorded in the
// result; the returned error is reserved for failures that invalidate the
// whole run (a duplicate unit name or an unwritable solution file).
//
// Once ctx is done no new unit is started; databases not yet started are
// reported as failed with the context error. Units already registered stay
// registered.
func (o *Orchestrator) Run(ctx context.Context, databases []string) (Result, error) {
	res := Result{Units: make([]*UnitWork, len(databases))}
	for i, db := range databases {
		rel := naming.UnitPath(o.opts.Prefix, db)
		res.Units[i] = &UnitWork{
			Database: db,
			Name:     naming.UnitName(o.opts.Prefix, db),
			Path:     rel,
			State:    StateSelected,
		}
	}

	var eg errgroup.Group
	eg.SetLimit(o.opts.Workers)
	for _, w := range res.Units {
		if err := ctx.Err(); err != nil {
			w.fail(fmt.Errorf("not started: %w", err))
			continue
		}
		eg.Go(func() error {
			// The pool may hand out a slot after ctx is done.
			if err := ctx.Err(); err != nil {
				w.fail(fmt.Errorf("not started: %w", err))
				return nil
			}
			o.generate(ctx, w)
			return nil
		})
	}
	_ = eg.Wait()

	for _, w := range res.Units {
		if w.State != StateArtifactsWritten {
			continue
		}
		if err := o.register(w, solution.KindLibrary); err != nil {
			return res, err
		}
	}

	if o.opts.GenerateAPI {
		if registered := res.Registered(); len(registered) > 0 && ctx.Err() == nil {
			api, err := o.generateAPI(ctx, registered)
			res.API = api
			if err != nil {
				return res, err
			}
		}
	}

	for _, w := range res.Units {
		res.Outcomes = append(res.Outcomes, outcome(w))
	}
	if res.API != nil {
		res.Outcomes = append(res.Outcomes, outcome(res.API))
	}
	return res, nil
}

// generate walks w from StateSelected to StateArtifactsWritten.
func (o *Orchestrator) generate(ctx context.Context, w *UnitWork) {
	start := time.Now()
	defer func() { w.Duration = time.Since(start) }()

	dir := o.unitDir(w.Path)
	log := o.logger.With("database", w.Database, "unit", w.Name)
	log.Info("generating unit")

	if err := o.prepare(ctx, dir, path.Base(w.Path), project.LibraryProject(project.Library{
		Name:     w.Name,
		Version:  o.opts.Version,
		Provider: o.provider,
	})); err != nil {
		o.abandon(ctx, w, dir, err)
		return
	}
	if err := w.advance(); err != nil {
		o.abandon(ctx, w, dir, err)
		return
	}

	req, err := o.request(ctx, w.Database)
	if err != nil {
		o.abandon(ctx, w, dir, err)
		return
	}
	if err := w.advance(); err != nil {
		o.abandon(ctx, w, dir, err)
		return
	}
	result, err := o.engine.Scaffold(ctx, req)
	if err != nil {
		o.abandon(ctx, w, dir, err)
		return
	}
	if err := result.Validate(); err != nil {
		o.abandon(ctx, w, dir, err)
		return
	}

	modelsDir := filepath.Join(dir, project.ModelsDir)
	for _, a := range append([]scaffold.Artifact{result.EntryPoint}, result.Artifacts...) {
		if err := o.write(ctx, modelsDir, a.Path, a.Content); err != nil {
			o.abandon(ctx, w, dir, err)
			return
		}
	}
	w.Artifacts = len(result.Artifacts) + 1
	if err := w.advance(); err != nil {
		o.abandon(ctx, w, dir, err)
		return
	}
	log.Info("artifacts written", "artifacts", w.Artifacts)
}

// request builds the engine request for one database.
func (o *Orchestrator) request(ctx context.Context, database string) (scaffold.Request, error) {
	opts := project.NewScaffoldOptions(
		o.opts.CodeGeneration,
		naming.ContextName(database),
		naming.ModelNamespace(o.opts.Prefix, database),
	)
	if o.opts.Objects != nil {
		tables, err := o.opts.Objects(ctx, database)
		if err != nil {
			return scaffold.Request{}, fmt.Errorf("select objects: %w", err)
		}
		if tables != nil {
			opts = opts.WithTables(tables)
		}
	}
	return scaffold.Request{
		Database:   database,
		Connection: o.opts.Connection(database),
		Dialect:    o.opts.Dialect,
		Options:    opts,
	}, nil
}

// register adds w to the manifest and, when configured, to the solution file.
func (o *Orchestrator) register(w *UnitWork, kind solution.Kind) error {
	var id string
	if o.opts.UnitIDs != nil {
		id = o.opts.UnitIDs(w.Name)
	}
	u, err := o.manifest.Register(solution.Registration{
		ID:       id,
		Name:     w.Name,
		Path:     w.Path,
		Kind:     kind,
		Database: w.Database,
	})
	if err != nil {
		return fmt.Errorf("register %s: %w", w.Name, err)
	}
	w.Unit = u
	if err := w.advance(); err != nil {
		return err
	}
	if o.opts.SolutionFile != "" {
		if err := solution.InsertFile(o.opts.SolutionFile, o.manifest.Config(), u); err != nil {
			return fmt.Errorf("register %s: %w", w.Name, err)
		}
	}
	o.logger.Info("unit registered", "unit", u.Name, "id", u.ID, "path", u.Path)
	return w.advance()
}

// prepare removes any previous unit directory and writes the project file.
func (o *Orchestrator) prepare(ctx context.Context, dir, projectFile, content string) error {
	if ok, _ := o.fs.Exists(ctx, dir); ok {
		if err := o.fs.Delete(ctx, dir); err != nil {
			return fmt.Errorf("clear %s: %w", dir, err)
		}
	}
	return o.write(ctx, dir, projectFile, content)
}

func (o *Orchestrator) write(ctx context.Context, dir, rel, content string) error {
	clean, err := scaffold.CleanPath(rel)
	if err != nil {
		return err
	}
	target := filepath.Join(dir, filepath.FromSlash(clean))
	if err := o.fs.Upload(ctx, target, file.DefaultFileOsMode, strings.NewReader(content)); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return nil
}

// abandon fails w and removes its half-written directory so a later run can
// regenerate it cleanly.
func (o *Orchestrator) abandon(ctx context.Context, w *UnitWork, dir string, err error) {
	w.fail(err)
	o.logger.Error("unit generation failed", "database", w.Database, "unit", w.Name, "error", w.Err)
	if ok, _ := o.fs.Exists(context.WithoutCancel(ctx), dir); ok {
		if derr := o.fs.Delete(context.WithoutCancel(ctx), dir); derr != nil {
			o.logger.Warn("could not remove unit directory", "dir", dir, "error", derr)
		}
	}
}

func (o *Orchestrator) unitDir(relPath string) string {
	return filepath.Join(o.opts.SolutionDir, filepath.FromSlash(path.Dir(relPath)))
}

func outcome(w *UnitWork) report.Outcome {
	var o report.Outcome
	if w.State == StateDone {
		o = report.Succeeded(w.Name, w.Database, report.StageGeneration)
		o.Diagnostic = fmt.Sprintf("%d artifacts", w.Artifacts)
	} else {
		o = report.Failed(w.Name, w.Database, report.StageGeneration, w.Err)
	}
	o.Duration = w.Duration
	return o
}
