package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/ezdbgen/internal/bundle"
	"github.com/roach88/ezdbgen/internal/logging"
)

// stdio names standard input or output in place of a bundle file.
const stdio = "-"

// BundleResult reports a pack or unpack.
type BundleResult struct {
	Bundle string   `json:"bundle"`
	Dir    string   `json:"dir"`
	Files  int      `json:"files"`
	Paths  []string `json:"paths,omitempty"`
}

func (r BundleResult) String() string {
	return fmt.Sprintf("%d file(s) between %s and %s", r.Files, r.Dir, r.Bundle)
}

// NewBundleCommand creates the bundle command.
func NewBundleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle <dir> <file>",
		Short: "Pack a generated unit directory into one text file",
		Long: `Concatenate the project, source, config and JSON files below <dir> into
a single text bundle, each between start and end markers carrying its
relative path. bin/ and obj/ are skipped. Use '-' as <file> to write to
standard output.

Example:
  ezdbgen bundle ./output/src/DAL/Sales sales.txt
  ezdbgen bundle ./output/src - | less`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBundle(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

// NewUnbundleCommand creates the unbundle command.
func NewUnbundleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unbundle <file> <dir>",
		Short: "Restore the files of a bundle below a directory",
		Long: `Read a bundle written by 'ezdbgen bundle' and write every file it holds
below <dir>, creating directories as needed. Text outside file blocks is
ignored. Use '-' as <file> to read standard input.

Example:
  ezdbgen unbundle sales.txt ./restored`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnbundle(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runBundle(opts *RootOptions, dir, file string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, fmt.Errorf("directory not found: %s", dir))
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err)
	}

	logger, _, err := logging.New(logging.Options{Verbose: opts.Verbose, Stderr: cmd.ErrOrStderr()})
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err)
	}

	var w io.Writer
	if file == stdio {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(file)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeBundle, err)
		}
		defer f.Close()
		w = f
	}

	n, err := bundle.New(logger).Pack(cmd.Context(), absDir, w)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeBundle, err)
	}

	if file == stdio {
		formatter.VerboseLog("Bundled %d file(s) from %s", n, dir)
		return nil
	}
	return formatter.Success(BundleResult{Bundle: file, Dir: dir, Files: n})
}

func runUnbundle(opts *RootOptions, file, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	logger, _, err := logging.New(logging.Options{Verbose: opts.Verbose, Stderr: cmd.ErrOrStderr()})
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeGeneric, err)
	}

	var r io.Reader
	if file == stdio {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(file)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeNotFound, err)
		}
		defer f.Close()
		r = f
	}

	paths, err := bundle.New(logger).Unpack(cmd.Context(), r, absDir)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeBundle, err)
	}
	for _, p := range paths {
		formatter.VerboseLog("wrote %s", p)
	}

	result := BundleResult{Bundle: file, Dir: dir, Files: len(paths)}
	if opts.Format == "json" {
		result.Paths = paths
	}
	return formatter.Success(result)
}
