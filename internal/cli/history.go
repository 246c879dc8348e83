package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ezdbgen/internal/config"
	"github.com/roach88/ezdbgen/internal/report"
	"github.com/roach88/ezdbgen/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	RunID    string
	Limit    int
	Prune    int
}

// PruneResult reports a history prune.
type PruneResult struct {
	Pruned int64 `json:"pruned"`
	Kept   int   `json:"kept"`
}

// String renders the result for text output.
func (r PruneResult) String() string {
	return fmt.Sprintf("Pruned %d run(s); kept the %d most recent.", r.Pruned, r.Kept)
}

// RunDetail is one recorded run with its outcomes.
type RunDetail struct {
	Run      store.Run        `json:"run"`
	Outcomes []report.Outcome `json:"outcomes"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs or show the outcomes of one run",
		Long: `List the runs recorded in the run history database, newest first, or
print the per-unit outcomes of a single run.

Example:
  ezdbgen history
  ezdbgen history --limit 5 --db ./output/ezdbgen.db
  ezdbgen history --run 0190f5d2-7c1e-7a43-9d52-4f0c6b2e8a11 --format json
  ezdbgen history --prune 50`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "run history database (default from configuration)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the outcomes of this run")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of runs to list")
	cmd.Flags().IntVar(&opts.Prune, "prune", 0, "delete all but this many most recent finished runs")
	cmd.MarkFlagsMutuallyExclusive("run", "prune")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	path := opts.Database
	if path == "" {
		cfg, err := config.Load(opts.Config)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeConfig, err)
		}
		path = cfg.HistoryPath()
	}
	formatter.VerboseLog("Reading history from %s", path)

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Errorf("history database not found: %s", path))
		}
		return formatter.fail(ExitCommandError, ErrCodeHistory, err)
	}

	st, err := store.Open(path)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeHistory, err)
	}
	defer st.Close()

	if cmd.Flags().Changed("prune") {
		n, err := st.PruneRuns(ctx, opts.Prune)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeHistory, err)
		}
		return formatter.Success(PruneResult{Pruned: n, Kept: opts.Prune})
	}

	if opts.RunID != "" {
		run, err := st.ReadRun(ctx, opts.RunID)
		if errors.Is(err, sql.ErrNoRows) {
			return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Errorf("run not found: %s", opts.RunID))
		}
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeHistory, err)
		}
		rep, err := st.ReadReport(ctx, opts.RunID)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeHistory, err)
		}
		if opts.Format == "json" {
			return formatter.Success(RunDetail{Run: run, Outcomes: rep.Outcomes})
		}
		writeRunHeader(formatter.Writer, run)
		if len(rep.Outcomes) == 0 {
			fmt.Fprintln(formatter.Writer, "No outcomes recorded.")
			return nil
		}
		return rep.WriteText(formatter.Writer)
	}

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeHistory, err)
	}
	if opts.Format == "json" {
		if runs == nil {
			runs = []store.Run{}
		}
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	return writeRuns(formatter.Writer, runs)
}

func writeRunHeader(w io.Writer, r store.Run) {
	fmt.Fprintf(w, "Run:     %s\n", r.ID)
	fmt.Fprintf(w, "Server:  %s (%s)\n", r.Server, r.Dialect)
	fmt.Fprintf(w, "Masks:   %s\n", strings.Join(r.Masks, ","))
	fmt.Fprintf(w, "Started: %s\n", r.Started.Format(time.RFC3339))
	fmt.Fprintf(w, "Status:  %s\n\n", r.Status)
}

func writeRuns(w io.Writer, runs []store.Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSERVER\tSTARTED\tDURATION\tSTATUS")
	for _, r := range runs {
		duration := "-"
		if !r.Finished.IsZero() {
			duration = r.Finished.Sub(r.Started).Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Server, r.Started.Format(time.RFC3339), duration, r.Status)
	}
	return tw.Flush()
}
