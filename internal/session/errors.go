package session

import (
	"errors"
	"fmt"

	"github.com/slotseeker/slotseeker/internal/portal"
)

// ErrPortalExhausted means the portal showed its retry-exhausted marker:
// there is no inventory anywhere right now, for any patient. The sweep
// short-circuits on it rather than burning a session per patient.
//
// Detection matches the portal's trailing "Try Again" action, which is
// inherently portal-specific; if the portal reworks its failure screen this
// signal is the first thing to break.
var ErrPortalExhausted = errors.New("session: portal reports no appointments available")

// ErrNoSlot means the search completed but nothing claimable matched the
// patient's regions and weekdays. The searched regions belong in the
// negative-result cache.
var ErrNoSlot = errors.New("session: no matching slot")

// StepTimeoutError is a bounded wait that elapsed without the portal
// rendering the next screen. The attempt is abandoned and retried on a
// later sweep.
type StepTimeoutError struct {
	Step State
}

func (e *StepTimeoutError) Error() string {
	return fmt.Sprintf("session: timed out waiting for portal at %s", e.Step)
}

// RejectionError is an explicit negative outcome from the portal or from
// policy (missing confirmation number, dry-run stop, no acceptable time).
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string {
	return "session: rejected: " + e.Reason
}

// Classify maps an attempt error onto the failure taxonomy, for metrics and
// sweep accounting.
func Classify(err error) string {
	var timeout *StepTimeoutError
	var rejection *RejectionError
	switch {
	case err == nil:
		return "confirmed"
	case errors.Is(err, ErrPortalExhausted):
		return "exhausted"
	case errors.Is(err, ErrNoSlot):
		return "no_slot"
	case errors.As(err, &timeout), errors.Is(err, portal.ErrWaitTimeout):
		return "timeout"
	case errors.As(err, &rejection):
		return "rejected"
	default:
		return "failure"
	}
}
