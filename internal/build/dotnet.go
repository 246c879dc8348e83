package build

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/roach88/ezdbgen/internal/process"
	"github.com/roach88/ezdbgen/internal/solution"
)

// Default toolchain settings.
const (
	DefaultDotnet        = "dotnet"
	DefaultConfiguration = "Release"
	ArtifactsDir         = "artifacts"
)

// DotnetToolchain builds units with the dotnet CLI.
//
// Thread-safety: DotnetToolchain holds no mutable state; concurrency is
// bounded by the underlying runner.
type DotnetToolchain struct {
	dotnet        string
	solutionDir   string
	outputDir     string
	configuration string
	runner        process.Runner
	logger        *slog.Logger
}

// DotnetOption configures a DotnetToolchain.
type DotnetOption func(*DotnetToolchain)

// WithDotnet sets the dotnet executable.
func WithDotnet(path string) DotnetOption {
	return func(d *DotnetToolchain) {
		if path != "" {
			d.dotnet = path
		}
	}
}

// WithConfiguration sets the build configuration (default Release).
func WithConfiguration(c string) DotnetOption {
	return func(d *DotnetToolchain) {
		if c != "" {
			d.configuration = c
		}
	}
}

// WithRunner replaces the process runner.
func WithRunner(r process.Runner) DotnetOption {
	return func(d *DotnetToolchain) {
		if r != nil {
			d.runner = r
		}
	}
}

// WithToolchainLogger sets the logger.
func WithToolchainLogger(l *slog.Logger) DotnetOption {
	return func(d *DotnetToolchain) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDotnetToolchain creates a toolchain for units below solutionDir. Packages
// are written to <outputDir>/artifacts.
func NewDotnetToolchain(solutionDir, outputDir string, opts ...DotnetOption) *DotnetToolchain {
	d := &DotnetToolchain{
		dotnet:        DefaultDotnet,
		solutionDir:   solutionDir,
		outputDir:     outputDir,
		configuration: DefaultConfiguration,
		runner:        process.Exec{},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Compile runs "dotnet build <project> -c <configuration>".
func (d *DotnetToolchain) Compile(ctx context.Context, u solution.Unit) error {
	return d.run(ctx, "build", d.projectPath(u), "-c", d.configuration)
}

// Package runs "dotnet pack <project> -c <configuration> -o <output>/artifacts".
func (d *DotnetToolchain) Package(ctx context.Context, u solution.Unit) error {
	return d.run(ctx, "pack", d.projectPath(u), "-c", d.configuration, "-o", d.ArtifactsPath())
}

// ArtifactsPath is where packages are written.
func (d *DotnetToolchain) ArtifactsPath() string {
	return filepath.Join(d.outputDir, ArtifactsDir)
}

func (d *DotnetToolchain) projectPath(u solution.Unit) string {
	return filepath.Join(d.solutionDir, filepath.FromSlash(u.Path))
}

func (d *DotnetToolchain) run(ctx context.Context, verb string, args ...string) error {
	args = append([]string{verb}, args...)
	d.logger.Debug("running toolchain", "command", process.CommandLine(d.dotnet, args...))
	out, err := d.runner.Run(ctx, d.solutionDir, d.dotnet, args...)
	if err != nil {
		return err
	}
	if len(out) > 0 {
		d.logger.Debug("toolchain output", "verb", verb, "output", process.LastLines(string(out), 5))
	}
	return nil
}
