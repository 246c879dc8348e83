package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/ezdbgen/internal/build"
	"github.com/roach88/ezdbgen/internal/config"
	"github.com/roach88/ezdbgen/internal/logging"
	"github.com/roach88/ezdbgen/internal/pipeline"
	"github.com/roach88/ezdbgen/internal/report"
	"github.com/roach88/ezdbgen/internal/scaffold"
	"github.com/roach88/ezdbgen/internal/store"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	SourceFlags
	Output      string
	Prefix      string
	Version     string
	GenerateAPI bool
	Workers     int
	NoBuild     bool
	Engine      string
	Dotnet      string
	NoLogFile   bool
	History     string

	// The fields below override the live collaborators (for testing).
	// Nil means the configured implementation.
	Inventory  pipeline.Inventory
	Scaffolder scaffold.Engine
	Toolchain  build.Toolchain
	RunIDs     pipeline.IDGenerator
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	return newGenerateCommand(&GenerateOptions{RootOptions: rootOpts})
}

func newGenerateCommand(opts *GenerateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate, build and package data-access libraries",
		Long: `Generate one data-access library per selected database, register each
in <output>/src/<server>.sln, then compile and package every unit.

Units that fail are reported and never stop their siblings. The exit code
is 1 when any unit failed and 2 when the run was aborted (malformed mask,
unreachable server, invalid configuration).

Example:
  ezdbgen generate -c 'Server=db01;Integrated Security=True;' -m 'Sales.*.*,HR.*.*'
  ezdbgen generate -c db01 -m 'Sales.dbo.customer*' --generate-api --workers 4
  ezdbgen generate --dialect postgres -c 'postgres://u:p@pg01/postgres' --no-build`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, cmd)
		},
	}

	opts.SourceFlags.register(cmd)
	f := cmd.Flags()
	f.StringVarP(&opts.Output, "output-path", "o", config.DefaultOutput, "output directory")
	f.StringVarP(&opts.Prefix, "assembly-prefix", "p", config.DefaultPrefix, "assembly and namespace prefix")
	f.StringVar(&opts.Version, "package-version", config.DefaultVersion, "package version")
	f.BoolVar(&opts.GenerateAPI, "generate-api", false, "also generate a web API unit referencing every library")
	f.IntVarP(&opts.Workers, "workers", "w", config.DefaultWorkers, "units processed concurrently")
	f.BoolVar(&opts.NoBuild, "no-build", false, "skip the compile and package stages")
	f.StringVar(&opts.Engine, "engine", config.DefaultEngine, "scaffolding command")
	f.StringVar(&opts.Dotnet, "dotnet", config.DefaultDotnet, "dotnet executable")
	f.BoolVar(&opts.NoLogFile, "no-log-file", false, "do not write the daily log file")
	f.StringVar(&opts.History, "history", "", "run history database (default <output>/ezdbgen.db)")

	return cmd
}

func (o *GenerateOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	o.SourceFlags.apply(cmd, cfg)
	f := cmd.Flags()
	if f.Changed("output-path") {
		cfg.Output = o.Output
	}
	if f.Changed("assembly-prefix") {
		cfg.Prefix = o.Prefix
	}
	if f.Changed("package-version") {
		cfg.Version = o.Version
	}
	if f.Changed("generate-api") {
		cfg.GenerateAPI = o.GenerateAPI
	}
	if f.Changed("workers") {
		cfg.Workers = o.Workers
	}
	if f.Changed("no-build") {
		cfg.Build = !o.NoBuild
	}
	if f.Changed("engine") {
		cfg.Engine.Command = o.Engine
	}
	if f.Changed("dotnet") {
		cfg.Dotnet = o.Dotnet
	}
	if f.Changed("no-log-file") {
		cfg.LogFile = !o.NoLogFile
	}
	if f.Changed("history") {
		cfg.History = o.History
	}
}

func runGenerate(opts *GenerateOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts.RootOptions, func(c *config.Config) { opts.apply(cmd, c) })
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeConfig, err)
	}

	logOpts := logging.Options{Verbose: opts.Verbose, Stderr: cmd.ErrOrStderr()}
	if cfg.LogFile {
		logOpts.Dir = cfg.LogDir()
	}
	logger, closeLog, err := logging.Setup(logOpts)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeConfig, err)
	}
	defer func() {
		if closeErr := closeLog(); closeErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error closing log file: %v\n", closeErr)
		}
	}()

	tgt, err := resolveTarget(cfg, logger)
	if err != nil {
		return formatter.fail(ExitCommandError, errorCode(err), err)
	}
	pOpts, err := pipelineOptions(cfg, tgt)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err)
	}

	pipelineOpts := []pipeline.Option{
		pipeline.WithIDGenerator(opts.RunIDs),
		pipeline.WithLogger(logger),
	}
	if st, err := openHistory(cfg.HistoryPath()); err != nil {
		logger.Warn("history unavailable, run is not recorded", "path", cfg.HistoryPath(), "error", err)
	} else {
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing history", "error", closeErr)
			}
		}()
		pipelineOpts = append(pipelineOpts, pipeline.WithHistory(st))
	}

	var inv pipeline.Inventory = tgt.source
	if opts.Inventory != nil {
		inv = opts.Inventory
	}
	var engine scaffold.Engine = scaffold.NewCommandEngine(cfg.Engine.Command,
		scaffold.WithArgs(cfg.Engine.Args...),
		scaffold.WithLogger(logger),
	)
	if opts.Scaffolder != nil {
		engine = opts.Scaffolder
	}
	var toolchain build.Toolchain
	if cfg.Build {
		outputDir := filepath.Dir(pOpts.SolutionDir)
		toolchain = build.NewDotnetToolchain(pOpts.SolutionDir, outputDir,
			build.WithDotnet(cfg.Dotnet),
			build.WithToolchainLogger(logger),
		)
		if opts.Toolchain != nil {
			toolchain = opts.Toolchain
		}
	}

	p, err := pipeline.New(pOpts, inv, engine, toolchain, pipelineOpts...)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err)
	}

	// Setup signal handling for graceful shutdown
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, cancelling run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	formatter.VerboseLog("Server %s, solution %s", pOpts.Server, pOpts.SolutionFile())

	rep, err := p.Run(ctx)
	if err != nil {
		return formatter.fail(ExitCommandError, errorCode(err), err)
	}

	if err := writeReport(formatter, rep); err != nil {
		return WrapExitError(ExitCommandError, "failed to write report", err)
	}
	if failures := rep.Failures(); len(failures) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: %d of %d outcomes failed", ErrCodeUnitFailures, len(failures), len(rep.Outcomes)))
	}
	return nil
}

func openHistory(path string) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return store.Open(path)
}

func writeReport(formatter *OutputFormatter, rep *report.Report) error {
	if formatter.Format == "json" {
		return formatter.Success(rep)
	}
	if len(rep.Outcomes) == 0 {
		_, err := fmt.Fprintln(formatter.Writer, "No database selected.")
		return err
	}
	return rep.WriteText(formatter.Writer)
}
