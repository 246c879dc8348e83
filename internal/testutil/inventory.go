package testutil

import (
	"context"
	"sync"

	"github.com/roach88/ezdbgen/internal/mask"
)

// FakeInventory serves a fixed server inventory and records every call as
// "ping", "databases" or "tables:<db>".
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeInventory struct {
	mu        sync.Mutex
	pingErr   error
	databases []string
	tables    map[string][]mask.Candidate
	calls     []string
}

// NewFakeInventory creates an inventory listing databases in order.
func NewFakeInventory(databases ...string) *FakeInventory {
	return &FakeInventory{
		databases: databases,
		tables:    make(map[string][]mask.Candidate),
	}
}

// FailPing makes Ping return err.
func (f *FakeInventory) FailPing(err error) *FakeInventory {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pingErr = err
	return f
}

// WithTables sets the tables listed for database.
func (f *FakeInventory) WithTables(database string, tables ...mask.Candidate) *FakeInventory {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[database] = tables
	return f
}

// Calls returns the recorded calls in order.
func (f *FakeInventory) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeInventory) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

// Ping returns the scripted error, if any.
func (f *FakeInventory) Ping(context.Context) error {
	f.record("ping")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

// Databases returns the configured database names.
func (f *FakeInventory) Databases(context.Context) ([]string, error) {
	f.record("databases")
	return append([]string(nil), f.databases...), nil
}

// Tables returns the configured tables of database.
func (f *FakeInventory) Tables(_ context.Context, database string) ([]mask.Candidate, error) {
	f.record("tables:" + database)
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mask.Candidate(nil), f.tables[database]...), nil
}
