package scaffold

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"

	"github.com/roach88/ezdbgen/internal/process"
	"github.com/roach88/ezdbgen/internal/project"
)

// DefaultCommand is the scaffolding executable run by CommandEngine.
const DefaultCommand = "efcpt"

// providerTokens maps dialects to the engine's provider argument.
var providerTokens = map[string]string{
	"":          "mssql",
	"sqlserver": "mssql",
	"mysql":     "mysql",
	"postgres":  "postgres",
}

// CommandEngine runs an efcpt-style command line tool in a scratch directory:
//
//	<command> "<connection>" <provider> -i efcpt-config.json [extra args]
//
// and collects every .cs file it wrote below the options' output path.
type CommandEngine struct {
	command string
	args    []string
	workDir string
	runner  process.Runner
	fs      afs.Service
	logger  *slog.Logger
}

// CommandOption configures a CommandEngine.
type CommandOption func(*CommandEngine)

// WithArgs appends extra arguments to every invocation.
func WithArgs(args ...string) CommandOption {
	return func(e *CommandEngine) { e.args = append(e.args, args...) }
}

// WithWorkDir sets the parent directory for scratch directories.
func WithWorkDir(dir string) CommandOption {
	return func(e *CommandEngine) { e.workDir = dir }
}

// WithRunner replaces the process runner.
func WithRunner(r process.Runner) CommandOption {
	return func(e *CommandEngine) { e.runner = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) CommandOption {
	return func(e *CommandEngine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewCommandEngine creates an engine running command ("" means efcpt).
func NewCommandEngine(command string, opts ...CommandOption) *CommandEngine {
	if command == "" {
		command = DefaultCommand
	}
	e := &CommandEngine{
		command: command,
		runner:  process.Exec{},
		fs:      afs.New(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Scaffold implements Engine.
func (e *CommandEngine) Scaffold(ctx context.Context, req Request) (Result, error) {
	provider, ok := providerTokens[req.Dialect]
	if !ok {
		return Result{}, &EngineError{Database: req.Database, Message: fmt.Sprintf("unsupported dialect %q", req.Dialect)}
	}

	dir, err := os.MkdirTemp(e.workDir, "ezdbgen-scaffold-")
	if err != nil {
		return Result{}, &EngineError{Database: req.Database, Message: "create scratch directory", Err: err}
	}
	defer os.RemoveAll(dir)

	bundle, err := req.Options.Render()
	if err != nil {
		return Result{}, &EngineError{Database: req.Database, Message: "render options", Err: err}
	}
	if err := e.fs.Upload(ctx, filepath.Join(dir, project.OptionsFileName), file.DefaultFileOsMode, strings.NewReader(bundle)); err != nil {
		return Result{}, &EngineError{Database: req.Database, Message: "write options", Err: err}
	}

	args := append([]string{req.Connection, provider, "-i", project.OptionsFileName}, e.args...)
	e.logger.Debug("running scaffolding engine", "database", req.Database, "command", e.command, "dir", dir)
	if _, err := e.runner.Run(ctx, dir, e.command, args...); err != nil {
		return Result{}, &EngineError{Database: req.Database, Message: "engine command failed", Err: err}
	}

	outDir := req.Options.FileLayout.OutputPath
	if outDir == "" {
		outDir = project.ModelsDir
	}
	artifacts, err := e.collect(ctx, filepath.Join(dir, filepath.FromSlash(outDir)))
	if err != nil {
		return Result{}, &EngineError{Database: req.Database, Message: "collect artifacts", Err: err}
	}
	return SplitEntryPoint(req.Database, artifacts, req.Options.Names.DbContextName+".cs")
}

// collect reads every .cs file below root, sorted by path.
func (e *CommandEngine) collect(ctx context.Context, root string) ([]Artifact, error) {
	objects, err := e.fs.List(ctx, root, option.NewRecursive(true))
	if err != nil {
		return nil, err
	}
	rootPath := strings.TrimSuffix(url.Path(root), "/")
	var out []Artifact
	for _, object := range objects {
		if object.IsDir() || !strings.EqualFold(path.Ext(object.Name()), ".cs") {
			continue
		}
		rel := strings.TrimPrefix(url.Path(object.URL()), rootPath+"/")
		data, err := e.fs.Download(ctx, object)
		if err != nil {
			return nil, err
		}
		out = append(out, Artifact{Path: rel, Content: string(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// SplitEntryPoint moves the artifact named entry (case-insensitive, at any
// depth) out of artifacts and into Result.EntryPoint.
func SplitEntryPoint(database string, artifacts []Artifact, entry string) (Result, error) {
	var res Result
	found := false
	for _, a := range artifacts {
		if !found && strings.EqualFold(path.Base(a.Path), entry) {
			res.EntryPoint = a
			found = true
			continue
		}
		res.Artifacts = append(res.Artifacts, a)
	}
	if !found {
		return Result{}, &EngineError{Database: database, Message: fmt.Sprintf("entry point %s not produced", entry)}
	}
	if err := res.Validate(); err != nil {
		return Result{}, &EngineError{Database: database, Message: "invalid artifacts", Err: err}
	}
	return res, nil
}
