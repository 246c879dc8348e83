package generate

import "fmt"

// State is the lifecycle state of one database's unit of work.
type State string

const (
	StateSelected           State = "selected"
	StateDirectoryPrepared  State = "directory-prepared"
	StateArtifactsRequested State = "artifacts-requested"
	StateArtifactsWritten   State = "artifacts-written"
	StateUnitRegistered     State = "unit-registered"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// next is the single forward step from each non-terminal state.
var next = map[State]State{
	StateSelected:           StateDirectoryPrepared,
	StateDirectoryPrepared:  StateArtifactsRequested,
	StateArtifactsRequested: StateArtifactsWritten,
	StateArtifactsWritten:   StateUnitRegistered,
	StateUnitRegistered:     StateDone,
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// isAllowedTransition permits the forward step and failing from any
// non-terminal state.
func isAllowedTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	return next[from] == to
}

// Transition moves w from the expected state to the target state.
func (w *UnitWork) Transition(from, to State) error {
	if w.State != from {
		return fmt.Errorf("invalid transition for %q: expected %s, got %s", w.Database, from, w.State)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for %q: %s -> %s", w.Database, from, to)
	}
	w.State = to
	w.History = append(w.History, to)
	return nil
}

// advance performs the forward step from the current state.
func (w *UnitWork) advance() error {
	return w.Transition(w.State, next[w.State])
}

// fail moves w to StateFailed, recording err wrapped in a GenerationError
// that names the state the work failed in.
func (w *UnitWork) fail(err error) {
	if w.State.Terminal() {
		return
	}
	w.Err = &GenerationError{Database: w.Database, State: w.State, Err: err}
	_ = w.Transition(w.State, StateFailed)
}
