// Package store provides SQLite-backed run history for ezdbgen.
//
// The store records:
//   - Runs: one row per generation run (server, dialect, masks, status)
//   - Outcomes: every per-unit stage outcome of a run, in report order
//   - Unit identifiers: the GUID each unit was first given on a server, so
//     regenerated solutions keep stable project identifiers
//
// Schema changes are numbered migrations tracked in PRAGMA user_version.
//
// # Ordering
//
// Outcomes are keyed by (run_id, seq) and always read back ORDER BY seq, so
// a stored report lists units exactly as the run reported them. Runs are
// listed newest first by started_at, then id.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout: Wait for locks up to DefaultBusyTimeout (WithBusyTimeout)
//   - foreign_keys=ON: Enforce referential integrity
package store
