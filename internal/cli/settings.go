package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ezdbgen/internal/config"
	"github.com/roach88/ezdbgen/internal/inventory"
	"github.com/roach88/ezdbgen/internal/naming"
	"github.com/roach88/ezdbgen/internal/pipeline"
)

// SourceFlags are the server and selection flags shared by generate and
// select. A flag overrides the configuration file only when it was set.
type SourceFlags struct {
	Connection     string
	Dialect        string
	Masks          []string
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
}

func (s *SourceFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&s.Connection, "connection-string", "c", "", "connection string or bare server name")
	f.StringVar(&s.Dialect, "dialect", string(inventory.SQLServer), "database dialect (sqlserver|mysql|postgres)")
	f.StringSliceVarP(&s.Masks, "db-masks", "m", nil, "database masks, comma separated or repeated (e.g. 'Sales.*.*,-Sales.dbo.tmp*')")
	f.DurationVar(&s.ConnectTimeout, "connect-timeout", inventory.DefaultConnectTimeout, "connectivity check timeout")
	f.DurationVar(&s.QueryTimeout, "query-timeout", inventory.DefaultQueryTimeout, "inventory query timeout")
}

func (s *SourceFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("connection-string") {
		cfg.Connection = s.Connection
	}
	if f.Changed("dialect") {
		cfg.Dialect = s.Dialect
	}
	if f.Changed("db-masks") {
		cfg.Masks = trimMasks(s.Masks)
	}
	if f.Changed("connect-timeout") {
		cfg.ConnectTimeout = config.Duration(s.ConnectTimeout)
	}
	if f.Changed("query-timeout") {
		cfg.QueryTimeout = config.Duration(s.QueryTimeout)
	}
}

// loadConfig reads the configuration file named by --config and overlays
// the changed flags through overlay.
func loadConfig(rootOpts *RootOptions, overlay func(*config.Config)) (config.Config, error) {
	cfg, err := config.Load(rootOpts.Config)
	if err != nil {
		return config.Config{}, err
	}
	overlay(&cfg)
	if strings.TrimSpace(cfg.Connection) == "" {
		return config.Config{}, &config.ConfigError{
			Code:    config.ErrCodeConfigInvalid,
			Message: "a connection string is required (--connection-string or connection:)",
		}
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// target is the resolved server a command works against.
type target struct {
	identity inventory.Identity
	server   string
	source   *inventory.Source
}

func resolveTarget(cfg config.Config, logger *slog.Logger) (target, error) {
	dialect, err := inventory.ParseDialect(cfg.Dialect)
	if err != nil {
		return target{}, &config.ConfigError{Code: config.ErrCodeConfigInvalid, Message: "dialect", Err: err}
	}
	id, err := inventory.ParseIdentity(dialect, cfg.Connection)
	if err != nil {
		return target{}, &config.ConfigError{Code: config.ErrCodeConfigInvalid, Message: "connection string", Err: err}
	}
	server, err := naming.ServerName(id.DataSource())
	if err != nil {
		return target{}, err
	}
	src := inventory.NewSource(id,
		inventory.WithConnectTimeout(cfg.ConnectTimeout.Std()),
		inventory.WithQueryTimeout(cfg.QueryTimeout.Std()),
		inventory.WithLogger(logger),
	)
	return target{identity: id, server: server, source: src}, nil
}

// pipelineOptions translates cfg into a run description for t.
func pipelineOptions(cfg config.Config, t target) (pipeline.Options, error) {
	solutionDir, err := filepath.Abs(cfg.SolutionDir())
	if err != nil {
		return pipeline.Options{}, fmt.Errorf("resolve output path: %w", err)
	}
	id := t.identity
	return pipeline.Options{
		Server:           t.server,
		Dialect:          id.Dialect(),
		ServerConnection: id.String(),
		Connection: func(database string) string {
			return id.ForDatabase(database).String()
		},
		Masks:          cfg.Masks,
		SolutionDir:    solutionDir,
		Prefix:         cfg.Prefix,
		Version:        cfg.Version,
		GenerateAPI:    cfg.GenerateAPI,
		Build:          cfg.Build,
		Workers:        cfg.Workers,
		CodeGeneration: cfg.CodeGeneration,
	}, nil
}

// trimMasks drops the blanks around each comma-separated mask and any empty
// entry left by a trailing comma.
func trimMasks(masks []string) []string {
	out := make([]string, 0, len(masks))
	for _, m := range masks {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
