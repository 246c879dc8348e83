// Package pipeline wires one ezdbgen run end to end: compile the masks,
// check connectivity, fetch and filter the inventory, generate a unit per
// selected database, build every registered unit, then record and report
// the outcomes.
//
// Mask and inventory failures abort the run before any unit is generated.
// Per-unit failures become outcomes and never stop sibling units.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/roach88/ezdbgen/internal/build"
	"github.com/roach88/ezdbgen/internal/generate"
	"github.com/roach88/ezdbgen/internal/inventory"
	"github.com/roach88/ezdbgen/internal/mask"
	"github.com/roach88/ezdbgen/internal/project"
	"github.com/roach88/ezdbgen/internal/report"
	"github.com/roach88/ezdbgen/internal/scaffold"
	"github.com/roach88/ezdbgen/internal/solution"
	"github.com/roach88/ezdbgen/internal/store"
)

// Inventory is the live view of the server. *inventory.Source implements it.
type Inventory interface {
	Ping(ctx context.Context) error
	Databases(ctx context.Context) ([]string, error)
	Tables(ctx context.Context, database string) ([]mask.Candidate, error)
}

// History records runs. *store.Store implements it.
type History interface {
	BeginRun(ctx context.Context, r store.Run) error
	FinishRun(ctx context.Context, id string, status store.RunStatus, finished time.Time) error
	WriteOutcomes(ctx context.Context, runID string, outcomes []report.Outcome) error
	UnitIDs(ctx context.Context, server string) (func(name string) string, error)
	SaveUnitIDs(ctx context.Context, server string, units []solution.Unit) error
}

// IDGenerator produces run identifiers.
type IDGenerator interface {
	Generate() string
}

// Options configures a run.
type Options struct {
	// Server is the sanitized server name; it names the solution document
	// and scopes stored unit identifiers.
	Server  string
	Dialect inventory.Dialect
	// ServerConnection is the server-level connection string.
	ServerConnection string
	// Connection returns the database-scoped connection string.
	Connection     func(database string) string
	Masks          []string
	SolutionDir    string
	Prefix         string
	Version        string
	GenerateAPI    bool
	Build          bool
	Workers        int
	CodeGeneration project.CodeGeneration
}

// SolutionFile is the path of the run's solution document.
func (o Options) SolutionFile() string {
	return filepath.Join(o.SolutionDir, o.Server+".sln")
}

// Pipeline runs generation against one server.
type Pipeline struct {
	opts      Options
	inventory Inventory
	engine    scaffold.Engine
	toolchain build.Toolchain
	history   History
	ids       IDGenerator
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithHistory records every run in h.
func WithHistory(h History) Option {
	return func(p *Pipeline) { p.history = h }
}

// WithIDGenerator replaces the UUIDv7 run-id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(p *Pipeline) {
		if g != nil {
			p.ids = g
		}
	}
}

// WithClock replaces time.Now for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a Pipeline. toolchain may be nil when opts.Build is false.
func New(opts Options, inv Inventory, engine scaffold.Engine, toolchain build.Toolchain, options ...Option) (*Pipeline, error) {
	if inv == nil || engine == nil {
		return nil, fmt.Errorf("pipeline: inventory and engine are required")
	}
	if opts.Build && toolchain == nil {
		return nil, fmt.Errorf("pipeline: toolchain is required when building")
	}
	if opts.Server == "" {
		return nil, fmt.Errorf("pipeline: server name is required")
	}
	p := &Pipeline{
		opts:      opts,
		inventory: inv,
		engine:    engine,
		toolchain: toolchain,
		ids:       store.UUIDv7Generator{},
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, o := range options {
		o(p)
	}
	return p, nil
}

// Run performs a full run. The returned error is non-nil only when the run
// was aborted (bad mask, unreachable server, unwritable solution or a
// duplicate unit); unit failures are reported through the report. A history
// that cannot record the run is logged and the run proceeds unrecorded.
func (p *Pipeline) Run(ctx context.Context) (*report.Report, error) {
	rep := &report.Report{
		RunID:   p.ids.Generate(),
		Server:  p.opts.Server,
		Started: p.now(),
	}
	log := p.logger.With("run", rep.RunID)
	log.Info("run started", "server", p.opts.Server, "masks", p.opts.Masks)

	history := p.history
	if history != nil {
		if err := history.BeginRun(ctx, store.Run{
			ID:      rep.RunID,
			Server:  p.opts.Server,
			Dialect: string(p.opts.Dialect),
			Masks:   p.opts.Masks,
			Started: rep.Started,
		}); err != nil {
			log.Warn("history unavailable, run is not recorded", "error", err)
			history = nil
		}
	}

	if err := p.run(ctx, rep, history); err != nil {
		rep.Finished = p.now()
		log.Error("run aborted", "error", err)
		p.finish(ctx, history, rep, store.RunAborted)
		return rep, err
	}

	rep.Finished = p.now()
	status := store.RunSucceeded
	if !rep.Succeeded() {
		status = store.RunFailed
	}
	p.finish(ctx, history, rep, status)
	log.Info("run finished", "status", status, "outcomes", len(rep.Outcomes), "failures", len(rep.Failures()))
	return rep, nil
}

func (p *Pipeline) run(ctx context.Context, rep *report.Report, history History) error {
	plan, err := p.Plan(ctx)
	if err != nil {
		return err
	}
	if len(plan.Databases) == 0 {
		p.logger.Warn("no database selected", "rejected", len(plan.Selection.Rejected))
	}

	manifest := solution.New(solution.DefaultConfig())
	if err := manifest.Save(p.opts.SolutionFile()); err != nil {
		return err
	}

	var unitIDs func(string) string
	if history != nil {
		if unitIDs, err = history.UnitIDs(ctx, p.opts.Server); err != nil {
			p.logger.Warn("could not load unit identifiers, generating new ones", "error", err)
			unitIDs = nil
		}
	}

	gen, err := generate.New(p.engine, manifest, generate.Options{
		SolutionDir:      p.opts.SolutionDir,
		SolutionFile:     p.opts.SolutionFile(),
		Prefix:           p.opts.Prefix,
		Version:          p.opts.Version,
		Dialect:          string(p.opts.Dialect),
		Connection:       p.opts.Connection,
		ServerConnection: p.opts.ServerConnection,
		CodeGeneration:   p.opts.CodeGeneration,
		Workers:          p.opts.Workers,
		GenerateAPI:      p.opts.GenerateAPI,
		Objects:          plan.ObjectFilter(),
		UnitIDs:          unitIDs,
	}, p.logger)
	if err != nil {
		return err
	}
	res, err := gen.Run(ctx, plan.Databases)
	rep.Add(res.Outcomes...)
	if err != nil {
		return err
	}

	if p.opts.Build && manifest.Len() > 0 {
		b := build.New(p.toolchain, build.WithWorkers(p.opts.Workers), build.WithLogger(p.logger))
		rep.Add(b.Build(ctx, manifest)...)
	}

	if history != nil {
		if err := history.SaveUnitIDs(ctx, p.opts.Server, manifest.Units()); err != nil {
			p.logger.Warn("could not save unit identifiers", "error", err)
		}
	}
	return nil
}

// finish stores the outcomes and final status. History failures are logged
// and never change the run's result.
func (p *Pipeline) finish(ctx context.Context, history History, rep *report.Report, status store.RunStatus) {
	if history == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := history.WriteOutcomes(ctx, rep.RunID, rep.Outcomes); err != nil {
		p.logger.Warn("could not record outcomes", "run", rep.RunID, "error", err)
	}
	if err := history.FinishRun(ctx, rep.RunID, status, rep.Finished); err != nil {
		p.logger.Warn("could not finish run", "run", rep.RunID, "error", err)
	}
}
