package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// Version is set at link time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	// Config is the configuration file; empty means ./ezdbgen.yaml when present.
	Config string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ezdbgen CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "ezdbgen",
		Version: Version,
		Short:   "ezdbgen - data-access libraries from live databases",
		Long: `Generate one EF Core data-access library per database of a server,
register every library in a solution, then compile and package them.

Databases are chosen with masks of the form database.schema.table; a
leading '-' excludes. Run 'ezdbgen select --help' for mask examples.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "configuration file (default ./ezdbgen.yaml when present)")

	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewSelectCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewBundleCommand(opts))
	cmd.AddCommand(NewUnbundleCommand(opts))

	return cmd
}
