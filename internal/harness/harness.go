package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/ezdbgen/internal/inventory"
	"github.com/roach88/ezdbgen/internal/mask"
	"github.com/roach88/ezdbgen/internal/pipeline"
	"github.com/roach88/ezdbgen/internal/project"
	"github.com/roach88/ezdbgen/internal/report"
	"github.com/roach88/ezdbgen/internal/solution"
	"github.com/roach88/ezdbgen/internal/store"
	"github.com/roach88/ezdbgen/internal/testutil"
)

// RunID is the fixed identifier of every scenario run.
const RunID = "scenario-run"

// Harness holds the scripted collaborators of one scenario.
type Harness struct {
	scenario  *Scenario
	dir       string
	inventory *testutil.FakeInventory
	engine    *testutil.FakeEngine
	toolchain *testutil.FakeToolchain
	clock     *testutil.DeterministicClock
	logger    *slog.Logger
}

// Run executes a scenario in dir and evaluates its assertions.
//
// Each scenario writes its solution under dir/src and records its history in
// a fresh dir/history.db. The returned error reports harness setup failures;
// an aborted run is a result, not an error.
func Run(ctx context.Context, scenario *Scenario, dir string) (*Result, error) {
	if scenario == nil {
		return nil, fmt.Errorf("scenario is required")
	}
	scenario.applyDefaults()

	h, err := newHarness(scenario, dir)
	if err != nil {
		return nil, err
	}
	return h.run(ctx)
}

func newHarness(scenario *Scenario, dir string) (*Harness, error) {
	inv := testutil.NewFakeInventory(scenario.Server.Databases...)
	for db, tables := range scenario.Server.Tables {
		candidates := make([]mask.Candidate, 0, len(tables))
		for _, t := range tables {
			schema, table, ok := splitTable(t)
			if !ok {
				return nil, fmt.Errorf("server.tables[%s]: %q is not schema.table", db, t)
			}
			candidates = append(candidates, mask.Candidate{Database: db, Schema: schema, Table: table})
		}
		inv.WithTables(db, candidates...)
	}
	if msg := scenario.Server.Unreachable; msg != "" {
		inv.FailPing(errors.New(msg))
	}

	engine := testutil.NewFakeEngine()
	for db, msg := range scenario.Failures.Generation {
		engine.Fail(db, errors.New(msg))
	}

	toolchain := testutil.NewFakeToolchain()
	for unit, msg := range scenario.Failures.Compile {
		toolchain.FailCompile(unit, errors.New(msg))
	}
	for unit, msg := range scenario.Failures.Package {
		toolchain.FailPackage(unit, errors.New(msg))
	}

	return &Harness{
		scenario:  scenario,
		dir:       dir,
		inventory: inv,
		engine:    engine,
		toolchain: toolchain,
		clock:     testutil.NewDeterministicClock(testutil.DefaultBase, time.Second),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

func (h *Harness) options() pipeline.Options {
	s := h.scenario
	server := s.Server.Name
	return pipeline.Options{
		Server:           server,
		Dialect:          inventory.SQLServer,
		ServerConnection: "Server=" + server + ";Integrated Security=True;",
		Connection: func(db string) string {
			return "Server=" + server + ";Database=" + db + ";Integrated Security=True;"
		},
		Masks:          s.Masks,
		SolutionDir:    filepath.Join(h.dir, "src"),
		Prefix:         s.Options.Prefix,
		Version:        "1.0.0",
		GenerateAPI:    s.Options.GenerateAPI,
		Build:          *s.Options.Build,
		Workers:        s.Options.Workers,
		CodeGeneration: project.DefaultCodeGeneration(),
	}
}

func (h *Harness) run(ctx context.Context) (*Result, error) {
	st, err := store.Open(filepath.Join(h.dir, "history.db"))
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer st.Close()

	opts := h.options()
	p, err := pipeline.New(opts, h.inventory, h.engine, h.toolchain,
		pipeline.WithHistory(st),
		pipeline.WithIDGenerator(testutil.NewFixedIDGenerator(RunID)),
		pipeline.WithClock(h.clock.Now),
		pipeline.WithLogger(h.logger),
	)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	rep, runErr := p.Run(ctx)
	if runErr != nil {
		result.Aborted = runErr.Error()
	}
	if rep != nil {
		result.Outcomes = rep.Outcomes
		for _, o := range rep.ByStage(report.StageGeneration) {
			if o.Database != "" {
				result.Selected = append(result.Selected, o.Database)
			}
		}
	}

	m, err := solution.Load(opts.SolutionFile())
	switch {
	case err == nil:
		result.Units = m.Units()
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	run, err := st.ReadRun(ctx, RunID)
	if err != nil {
		return nil, fmt.Errorf("read run: %w", err)
	}
	result.Status = run.Status

	EvaluateAssertions(result, h.scenario.Assertions)
	return result, nil
}
