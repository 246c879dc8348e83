package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/ezdbgen/internal/scaffold"
)

// FakeEngine is a scripted scaffolding engine. By default every database
// yields its context file plus one entity; Fail and Delay script individual
// databases.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeEngine struct {
	mu       sync.Mutex
	failures map[string]error
	delays   map[string]time.Duration
	extra    map[string][]scaffold.Artifact
	requests []scaffold.Request

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

// NewFakeEngine creates an engine that succeeds for every database.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		failures: make(map[string]error),
		delays:   make(map[string]time.Duration),
		extra:    make(map[string][]scaffold.Artifact),
	}
}

// Fail makes the engine return err for database.
func (e *FakeEngine) Fail(database string, err error) *FakeEngine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[database] = err
	return e
}

// Delay makes the engine wait d (or until ctx is done) for database.
func (e *FakeEngine) Delay(database string, d time.Duration) *FakeEngine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.delays[database] = d
	return e
}

// WithArtifacts adds artifacts to database's result.
func (e *FakeEngine) WithArtifacts(database string, artifacts ...scaffold.Artifact) *FakeEngine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.extra[database] = append(e.extra[database], artifacts...)
	return e
}

// Scaffold implements scaffold.Engine.
func (e *FakeEngine) Scaffold(ctx context.Context, req scaffold.Request) (scaffold.Result, error) {
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		m := e.maxInFlight.Load()
		if n <= m || e.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	e.mu.Lock()
	e.requests = append(e.requests, req)
	failure := e.failures[req.Database]
	delay := e.delays[req.Database]
	extra := append([]scaffold.Artifact(nil), e.extra[req.Database]...)
	e.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return scaffold.Result{}, ctx.Err()
		}
	}
	if failure != nil {
		return scaffold.Result{}, &scaffold.EngineError{Database: req.Database, Message: "scaffold failed", Err: failure}
	}

	ctxName := req.Options.Names.DbContextName
	ns := req.Options.Names.ModelNamespace
	return scaffold.Result{
		EntryPoint: scaffold.Artifact{
			Path:    ctxName + ".cs",
			Content: fmt.Sprintf("namespace %s;\n\npublic partial class %s : DbContext\n{\n}\n", ns, ctxName),
		},
		Artifacts: append([]scaffold.Artifact{{
			Path:    "Entity.cs",
			Content: fmt.Sprintf("namespace %s;\n\npublic partial class Entity\n{\n}\n", ns),
		}}, extra...),
	}, nil
}

// Requests returns the received requests sorted by database name.
func (e *FakeEngine) Requests() []scaffold.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := append([]scaffold.Request(nil), e.requests...)
	sort.Slice(out, func(i, j int) bool { return out[i].Database < out[j].Database })
	return out
}

// MaxConcurrent returns the highest number of overlapping Scaffold calls.
func (e *FakeEngine) MaxConcurrent() int {
	return int(e.maxInFlight.Load())
}
