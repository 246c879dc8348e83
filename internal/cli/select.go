package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/ezdbgen/internal/config"
	"github.com/roach88/ezdbgen/internal/logging"
	"github.com/roach88/ezdbgen/internal/pipeline"
	"github.com/roach88/ezdbgen/internal/scaffold"
)

// SelectOptions holds flags for the select command.
type SelectOptions struct {
	*RootOptions
	SourceFlags

	// Inventory overrides the live server (for testing).
	Inventory pipeline.Inventory
}

// SelectResult is the dry-run selection for one server.
type SelectResult struct {
	Server   string              `json:"server"`
	Selected []string            `json:"selected"`
	Objects  map[string][]string `json:"objects,omitempty"`
	Rejected []SelectRejection   `json:"rejected,omitempty"`
}

// SelectRejection is one database left out of the selection.
type SelectRejection struct {
	Database string `json:"database"`
	Reason   string `json:"reason"`
	Mask     string `json:"mask,omitempty"`
}

// NewSelectCommand creates the select command.
func NewSelectCommand(rootOpts *RootOptions) *cobra.Command {
	return newSelectCommand(&SelectOptions{RootOptions: rootOpts})
}

func newSelectCommand(opts *SelectOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Show which databases the masks select, without generating",
		Long: `Connect to the server, evaluate the masks against its databases and
print the selection. Nothing is generated or written.

A mask has the form database.schema.table. Missing trailing parts default
to '*'. A '*' matches any run of characters and matching ignores case.
Masks starting with '-' exclude; an exclusion always wins over an
inclusion. When only exclusions are given nothing is selected. The system
databases master, tempdb, model and msdb are never selected.

Mask examples:
  'dbname.*.*'            every object of dbname
  'dbname.dbo.*'          every object of the dbo schema of dbname
  'dbname.dbo.table1'     only table1
  'dbname.dbo.customer*'  tables whose name starts with customer
  '-dbname.dbo.system*'   exclude tables whose name starts with system

Example:
  ezdbgen select -c db01 -m 'Sales*,-SalesArchive'
  ezdbgen select -c db01 -m 'Sales.dbo.customer*' --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelect(opts, cmd)
		},
	}

	opts.SourceFlags.register(cmd)

	return cmd
}

func runSelect(opts *SelectOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts.RootOptions, func(c *config.Config) { opts.SourceFlags.apply(cmd, c) })
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeConfig, err)
	}
	logger, _, err := logging.New(logging.Options{Verbose: opts.Verbose, Stderr: cmd.ErrOrStderr()})
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeConfig, err)
	}

	tgt, err := resolveTarget(cfg, logger)
	if err != nil {
		return formatter.fail(ExitCommandError, errorCode(err), err)
	}
	pOpts, err := pipelineOptions(cfg, tgt)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err)
	}
	pOpts.Build = false

	var inv pipeline.Inventory = tgt.source
	if opts.Inventory != nil {
		inv = opts.Inventory
	}
	// The engine is never invoked by Plan.
	p, err := pipeline.New(pOpts, inv, scaffold.NewCommandEngine(cfg.Engine.Command), nil,
		pipeline.WithLogger(logger),
	)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err)
	}

	plan, err := p.Plan(cmd.Context())
	if err != nil {
		return formatter.fail(ExitCommandError, errorCode(err), err)
	}

	result := SelectResult{
		Server:   pOpts.Server,
		Selected: plan.Databases,
		Objects:  plan.Objects,
	}
	if result.Selected == nil {
		result.Selected = []string{}
	}
	if len(result.Objects) == 0 {
		result.Objects = nil
	}
	for _, r := range plan.Selection.Rejected {
		result.Rejected = append(result.Rejected, SelectRejection{
			Database: r.Candidate.Database,
			Reason:   string(r.Reason),
			Mask:     r.Mask,
		})
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return writeSelection(formatter.Writer, result, opts.Verbose)
}

func writeSelection(w io.Writer, r SelectResult, verbose bool) error {
	if len(r.Selected) == 0 {
		fmt.Fprintf(w, "No database selected on %s.\n", r.Server)
	} else {
		fmt.Fprintf(w, "Selected on %s:\n", r.Server)
		for _, db := range r.Selected {
			tables := r.Objects[db]
			if len(tables) == 0 {
				fmt.Fprintf(w, "  %s\n", db)
				continue
			}
			fmt.Fprintf(w, "  %s (%d tables)\n", db, len(tables))
			if verbose {
				sorted := append([]string(nil), tables...)
				sort.Strings(sorted)
				for _, t := range sorted {
					fmt.Fprintf(w, "    %s\n", t)
				}
			}
		}
	}
	if len(r.Rejected) == 0 {
		return nil
	}

	fmt.Fprintln(w, "\nRejected:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, rej := range r.Rejected {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", rej.Database, rej.Reason, rej.Mask)
	}
	return tw.Flush()
}
