package assoc

import (
	"fmt"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/espnow.go/pkg/framework"
)

// RetryMode selects what happens after a failed association.
type RetryMode int

// Retry modes
const (
	// RetryManual never re-associates on its own.
	RetryManual RetryMode = iota
	// RetryAuto requests a new association while the state is Failed.
	RetryAuto
)

// String implements fmt.Stringer.
func (m RetryMode) String() string {
	if m == RetryAuto {
		return "auto"
	}
	return "manual"
}

// ParseRetryMode parses "manual" or "auto".
func ParseRetryMode(s string) (RetryMode, error) {
	switch s {
	case "", "manual":
		return RetryManual, nil
	case "auto":
		return RetryAuto, nil
	}
	return RetryManual, fmt.Errorf("unknown retry mode %q", s)
}

// RetryPolicy configures re-association after failures.
type RetryPolicy struct {
	Mode     RetryMode
	Interval time.Duration
	// MaxAttempts limits consecutive retries, 0 means unlimited.
	MaxAttempts int
}

// Retrier is a Task re-requesting association while the state is Failed.
type Retrier struct {
	Supervisor *Supervisor
	Policy     RetryPolicy

	attempts int
}

// NewRetrier creates a Retrier.
func NewRetrier(s *Supervisor, policy RetryPolicy) *Retrier {
	return &Retrier{Supervisor: s, Policy: policy}
}

// Name implements Named.
func (r *Retrier) Name() string {
	return "assoc-retrier"
}

// Attempts returns the number of consecutive retries issued.
func (r *Retrier) Attempts() int {
	return r.attempts
}

// Tick implements Task.
func (r *Retrier) Tick(tc fx.TickContext) error {
	state := r.Supervisor.State()
	switch state.Phase {
	case Connected:
		r.attempts = 0
		return nil
	case Failed:
	default:
		return nil
	}
	if r.Policy.Mode != RetryAuto {
		return nil
	}
	if r.Policy.MaxAttempts > 0 && r.attempts >= r.Policy.MaxAttempts {
		return nil
	}
	r.attempts++
	glog.Infof("association retry %d after %s", r.attempts, state)
	return r.Supervisor.RequestAssociation()
}
