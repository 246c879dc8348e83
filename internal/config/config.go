// Package config loads ezdbgen settings from an optional YAML file. The file
// is validated against an embedded CUE schema before it is decoded over the
// defaults; command-line flags are applied on top by the CLI.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/ezdbgen/internal/inventory"
	"github.com/roach88/ezdbgen/internal/project"
)

//go:embed schema.cue
var schemaCUE string

// DefaultFileName is the configuration file looked up in the working
// directory when no path is given.
const DefaultFileName = "ezdbgen.yaml"

// Defaults.
const (
	DefaultOutput  = "output"
	DefaultPrefix  = "Noctusoft.EzDbEF"
	DefaultVersion = "1.0.0"
	DefaultDotnet  = "dotnet"
	DefaultEngine  = "efcpt"
	DefaultWorkers = 1
	// HistoryFileName is the run-history database created under the output
	// directory when History is empty.
	HistoryFileName = "ezdbgen.db"
)

// Error codes for configuration failures.
const (
	ErrCodeConfigRead    = "CONFIG_READ"
	ErrCodeConfigInvalid = "CONFIG_INVALID"
)

// ConfigError reports an unreadable or invalid configuration.
type ConfigError struct {
	Code    string
	Path    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "config"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Code, loc, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, loc, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError returns true if err is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Duration is a time.Duration written as a Go duration string ("5s").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Engine configures the external scaffolding command.
type Engine struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
}

// Config enumerates every ezdbgen option.
type Config struct {
	// Connection is a connection string or a bare server name.
	Connection  string   `yaml:"connection"`
	Dialect     string   `yaml:"dialect"`
	Masks       []string `yaml:"masks,omitempty"`
	Output      string   `yaml:"output"`
	Prefix      string   `yaml:"prefix"`
	Version     string   `yaml:"version"`
	GenerateAPI bool     `yaml:"generate-api"`
	// Build runs the compile and package stages after generation.
	Build          bool     `yaml:"build"`
	Workers        int      `yaml:"workers"`
	ConnectTimeout Duration `yaml:"connect-timeout"`
	QueryTimeout   Duration `yaml:"query-timeout"`
	Dotnet         string   `yaml:"dotnet"`
	Engine         Engine   `yaml:"engine"`
	// LogFile enables the daily log file under <output>/logs.
	LogFile bool `yaml:"log-file"`
	// History is the run-history database path; empty means
	// <output>/ezdbgen.db.
	History        string                 `yaml:"history"`
	CodeGeneration project.CodeGeneration `yaml:"code-generation"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Dialect:        string(inventory.SQLServer),
		Output:         DefaultOutput,
		Prefix:         DefaultPrefix,
		Version:        DefaultVersion,
		Build:          true,
		Workers:        DefaultWorkers,
		ConnectTimeout: Duration(inventory.DefaultConnectTimeout),
		QueryTimeout:   Duration(inventory.DefaultQueryTimeout),
		Dotnet:         DefaultDotnet,
		Engine:         Engine{Command: DefaultEngine},
		LogFile:        true,
		CodeGeneration: project.DefaultCodeGeneration(),
	}
}

// Load reads the configuration at path over the defaults. An empty path
// looks for DefaultFileName in the working directory and returns the
// defaults when it does not exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, &ConfigError{Code: ErrCodeConfigRead, Path: path, Message: "cannot read file", Err: err}
	}
	cfg, err := Parse(data)
	if err != nil {
		var ce *ConfigError
		if errors.As(err, &ce) {
			ce.Path = path
		}
		return Config{}, err
	}
	return cfg, nil
}

// Parse validates YAML data against the schema and decodes it over the
// defaults.
func Parse(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, &ConfigError{Code: ErrCodeConfigInvalid, Message: "malformed YAML", Err: err}
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if err := validate(raw); err != nil {
		return Config{}, err
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, &ConfigError{Code: ErrCodeConfigInvalid, Message: "cannot decode", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate unifies the decoded document with the #Config definition.
func validate(raw map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return &ConfigError{Code: ErrCodeConfigInvalid, Message: "schema does not compile", Err: err}
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return &ConfigError{Code: ErrCodeConfigInvalid, Message: "cannot encode document", Err: err}
	}
	if err := def.Unify(doc).Validate(cue.Concrete(true)); err != nil {
		return &ConfigError{Code: ErrCodeConfigInvalid, Message: "schema violation", Err: err}
	}
	return nil
}

// Validate checks cross-field constraints the schema cannot express and
// that also apply after flags are overlaid.
func (c Config) Validate() error {
	if _, err := inventory.ParseDialect(c.Dialect); err != nil {
		return &ConfigError{Code: ErrCodeConfigInvalid, Message: "dialect", Err: err}
	}
	if strings.TrimSpace(c.Output) == "" {
		return &ConfigError{Code: ErrCodeConfigInvalid, Message: "output must not be empty"}
	}
	if strings.TrimSpace(c.Prefix) == "" {
		return &ConfigError{Code: ErrCodeConfigInvalid, Message: "prefix must not be empty"}
	}
	if c.Workers < 1 {
		return &ConfigError{Code: ErrCodeConfigInvalid, Message: fmt.Sprintf("workers must be at least 1, got %d", c.Workers)}
	}
	if c.ConnectTimeout <= 0 || c.QueryTimeout <= 0 {
		return &ConfigError{Code: ErrCodeConfigInvalid, Message: "timeouts must be positive"}
	}
	return nil
}

// HistoryPath returns the run-history database path.
func (c Config) HistoryPath() string {
	if c.History != "" {
		return c.History
	}
	return filepath.Join(c.Output, HistoryFileName)
}

// SolutionDir is the directory holding the solution document and units.
func (c Config) SolutionDir() string {
	return filepath.Join(c.Output, "src")
}

// LogDir is the directory of the daily log files.
func (c Config) LogDir() string {
	return filepath.Join(c.Output, "logs")
}
