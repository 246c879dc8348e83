package inventory

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/roach88/ezdbgen/internal/mask"
)

// Default timeouts.
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultQueryTimeout   = 30 * time.Second
)

// Opener opens a database handle for a driver and connection string.
type Opener func(driver, dsn string) (*sql.DB, error)

// Source fetches the live inventory of one server.
//
// Thread-safety: a Source holds no mutable state and is safe for concurrent
// use; every call opens and closes its own handle.
type Source struct {
	identity       Identity
	open           Opener
	connectTimeout time.Duration
	queryTimeout   time.Duration
	logger         *slog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithOpener replaces sql.Open, mainly for tests.
func WithOpener(o Opener) Option {
	return func(s *Source) { s.open = o }
}

// WithConnectTimeout bounds the connectivity check.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

// WithQueryTimeout bounds inventory queries.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.queryTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSource creates a Source for identity.
func NewSource(identity Identity, opts ...Option) *Source {
	s := &Source{
		identity:       identity,
		open:           sql.Open,
		connectTimeout: DefaultConnectTimeout,
		queryTimeout:   DefaultQueryTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Identity returns the server identity.
func (s *Source) Identity() Identity {
	return s.identity
}

// Ping checks that the server answers within the connect timeout.
func (s *Source) Ping(ctx context.Context) error {
	db, err := s.connect(ctx, s.identity)
	if err != nil {
		return err
	}
	return db.Close()
}

// Databases lists the server's user databases in the server's name order.
// Reserved system databases may still be present; selection removes them.
func (s *Source) Databases(ctx context.Context) ([]string, error) {
	db, err := s.connect(ctx, s.identity)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(qctx, s.identity.Dialect().DatabasesQuery())
	if err != nil {
		return nil, s.fail("list databases", err)
	}
	defer rows.Close()

	var names []string
	seen := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, s.fail("list databases", err)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("list databases", err)
	}
	s.logger.Debug("inventory fetched", "databases", len(names), "server", s.identity.DataSource())
	return names, nil
}

// Tables lists the base tables of one database as three-part candidates.
func (s *Source) Tables(ctx context.Context, database string) ([]mask.Candidate, error) {
	d := s.identity.Dialect()
	target := s.identity.ForDatabase(database)
	var args []any
	if d == MySQL {
		target = s.identity
		args = append(args, database)
	}

	db, err := s.connect(ctx, target)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(qctx, d.TablesQuery(), args...)
	if err != nil {
		return nil, s.fail("list tables of "+database, err)
	}
	defer rows.Close()

	var out []mask.Candidate
	for rows.Next() {
		var schema, table string
		if err := rows.Scan(&schema, &table); err != nil {
			return nil, s.fail("list tables of "+database, err)
		}
		out = append(out, mask.Candidate{Database: database, Schema: schema, Table: table})
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("list tables of "+database, err)
	}
	return out, nil
}

// connect opens a handle for id and pings it under the connect timeout. The
// ping runs in its own goroutine so a driver that ignores the context still
// cannot block past the timeout.
func (s *Source) connect(ctx context.Context, id Identity) (*sql.DB, error) {
	db, err := s.open(id.Dialect().DriverName(), id.String())
	if err != nil {
		return nil, &ConnectivityError{Target: id.Redacted(), Op: "open", Err: err}
	}

	pctx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- db.PingContext(pctx) }()

	select {
	case err := <-done:
		if err == nil {
			return db, nil
		}
		db.Close()
		if ctx.Err() == nil && pctx.Err() == context.DeadlineExceeded {
			return nil, &ConnectivityTimeoutError{Target: id.DataSource(), Timeout: s.connectTimeout}
		}
		return nil, &ConnectivityError{Target: id.Redacted(), Op: "connect", Err: err}
	case <-pctx.Done():
		go db.Close()
		if ctx.Err() != nil {
			return nil, &ConnectivityError{Target: id.Redacted(), Op: "connect", Err: ctx.Err()}
		}
		return nil, &ConnectivityTimeoutError{Target: id.DataSource(), Timeout: s.connectTimeout}
	}
}

func (s *Source) fail(op string, err error) error {
	return &ConnectivityError{Target: s.identity.Redacted(), Op: op, Err: err}
}
