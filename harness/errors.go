package harness

import (
	"errors"
	"fmt"

	"github.com/weiihann/fkbench/store"
)

// ErrNoTrials is returned when an aggregate is requested over zero trials.
var ErrNoTrials = errors.New("trial count must be positive")

// ErrVerification is wrapped by PhaseError when a post-phase count check
// does not match the expected store state.
var ErrVerification = errors.New("verification failed")

// PhaseError locates a failure within a trial.
type PhaseError struct {
	Variant store.Variant
	Entry   Entry
	Phase   Phase
	Err     error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s %s: phase %s: %v", e.Variant, e.Entry, e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
