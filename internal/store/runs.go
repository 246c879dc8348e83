package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/ezdbgen/internal/report"
)

// RunStatus is the lifecycle status of a stored run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
	// RunAborted marks a run stopped by a fatal error before every unit was
	// reported.
	RunAborted RunStatus = "aborted"
)

// Run is one generation run.
type Run struct {
	ID      string    `json:"id"`
	Server  string    `json:"server"`
	Dialect string    `json:"dialect"`
	Masks   []string  `json:"masks"`
	Started time.Time `json:"started"`
	// Finished is zero while the run is still running.
	Finished time.Time `json:"finished"`
	Status   RunStatus `json:"status"`
}

// UUIDv7Generator generates time-sortable run identifiers.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// BeginRun records the start of a run with status running.
func (s *Store) BeginRun(ctx context.Context, r Run) error {
	if r.ID == "" {
		return fmt.Errorf("begin run: id is required")
	}
	masks := r.Masks
	if masks == nil {
		masks = []string{}
	}
	masksJSON, err := json.Marshal(masks)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, server, dialect, masks, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		r.Server,
		r.Dialect,
		string(masksJSON),
		formatTime(r.Started),
		string(RunRunning),
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// FinishRun sets the final status and finish time of a run.
// Returns sql.ErrNoRows if the run does not exist.
func (s *Store) FinishRun(ctx context.Context, id string, status RunStatus, finished time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, finished_at = ? WHERE id = ?
	`, string(status), formatTime(finished), id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// WriteOutcomes appends outcomes to a run, numbering them after any already
// stored. All outcomes are written in one transaction.
func (s *Store) WriteOutcomes(ctx context.Context, runID string, outcomes []report.Outcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write outcomes: %w", err)
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM outcomes WHERE run_id = ?`, runID,
	).Scan(&next); err != nil {
		return fmt.Errorf("write outcomes: %w", err)
	}

	for _, o := range outcomes {
		next++
		_, err := tx.ExecContext(ctx, `
			INSERT INTO outcomes (run_id, seq, unit, database, stage, success, diagnostic, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			runID,
			next,
			o.Unit,
			o.Database,
			string(o.Stage),
			boolToInt(o.Success),
			o.Diagnostic,
			o.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("write outcome %d of run %s: %w", next, runID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write outcomes: %w", err)
	}
	return nil
}

// ReadRun returns one run.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, server, dialect, masks, started_at, finished_at, status
		FROM runs WHERE id = ?
	`, id)
	return scanRun(row)
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less returns every run.
//
// Returns an empty slice (not nil) if no runs exist.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, server, dialect, masks, started_at, finished_at, status
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY ASC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadOutcomes returns a run's outcomes in the order they were written.
//
// Returns an empty slice (not nil) if the run has no outcomes.
func (s *Store) ReadOutcomes(ctx context.Context, runID string) ([]report.Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT unit, database, stage, success, diagnostic, duration_ms
		FROM outcomes
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []report.Outcome{}
	for rows.Next() {
		var (
			o          report.Outcome
			stage      string
			success    int
			durationMS int64
		)
		if err := rows.Scan(&o.Unit, &o.Database, &stage, &success, &o.Diagnostic, &durationMS); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Stage, err = report.ParseStage(stage)
		if err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Success = success != 0
		o.Duration = time.Duration(durationMS) * time.Millisecond
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomes, nil
}

// ReadReport rebuilds the report of a stored run.
// Returns sql.ErrNoRows if the run does not exist.
func (s *Store) ReadReport(ctx context.Context, runID string) (report.Report, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return report.Report{}, err
	}
	outcomes, err := s.ReadOutcomes(ctx, runID)
	if err != nil {
		return report.Report{}, err
	}
	return report.Report{
		RunID:    run.ID,
		Server:   run.Server,
		Started:  run.Started,
		Finished: run.Finished,
		Outcomes: outcomes,
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r         Run
		masksJSON string
		started   string
		finished  sql.NullString
		status    string
	)
	if err := row.Scan(&r.ID, &r.Server, &r.Dialect, &masksJSON, &started, &finished, &status); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(masksJSON), &r.Masks); err != nil {
		return Run{}, fmt.Errorf("scan run %s masks: %w", r.ID, err)
	}
	var err error
	if r.Started, err = parseTime(started); err != nil {
		return Run{}, fmt.Errorf("scan run %s: %w", r.ID, err)
	}
	if finished.Valid {
		if r.Finished, err = parseTime(finished.String); err != nil {
			return Run{}, fmt.Errorf("scan run %s: %w", r.ID, err)
		}
	}
	r.Status = RunStatus(status)
	return r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
