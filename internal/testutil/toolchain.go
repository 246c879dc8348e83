package testutil

import (
	"context"
	"sync"

	"github.com/roach88/ezdbgen/internal/solution"
)

// FakeToolchain records compile and package calls and fails the units it is
// told to.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FakeToolchain struct {
	mu            sync.Mutex
	compileErrors map[string]error
	packageErrors map[string]error
	compiled      []string
	packaged      []string
}

// NewFakeToolchain creates a toolchain that succeeds for every unit.
func NewFakeToolchain() *FakeToolchain {
	return &FakeToolchain{
		compileErrors: make(map[string]error),
		packageErrors: make(map[string]error),
	}
}

// FailCompile makes Compile return err for the named unit.
func (f *FakeToolchain) FailCompile(unit string, err error) *FakeToolchain {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compileErrors[unit] = err
	return f
}

// FailPackage makes Package return err for the named unit.
func (f *FakeToolchain) FailPackage(unit string, err error) *FakeToolchain {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.packageErrors[unit] = err
	return f
}

// Compile records the call.
func (f *FakeToolchain) Compile(_ context.Context, u solution.Unit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compiled = append(f.compiled, u.Name)
	return f.compileErrors[u.Name]
}

// Package records the call.
func (f *FakeToolchain) Package(_ context.Context, u solution.Unit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.packaged = append(f.packaged, u.Name)
	return f.packageErrors[u.Name]
}

// Compiled returns the compiled unit names in call order.
func (f *FakeToolchain) Compiled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.compiled...)
}

// Packaged returns the packaged unit names in call order.
func (f *FakeToolchain) Packaged() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.packaged...)
}
