package agent

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// Orchestration-level failure reasons carried by terminal states.
const (
	ReasonOracleUnavailable = "oracle_unavailable"
	ReasonCancelled         = "cancelled"
	ReasonEscalationAbort   = "escalation_abort"
	ReasonTransitionLimit   = "transition_limit"
)

// ErrOracleUnavailable marks an unreachable or unparsable reasoning gateway
// response. Oracle implementations wrap it so the orchestrator can tell a
// gateway fault apart from task-logic failure.
var ErrOracleUnavailable = errors.New("oracle unavailable")

// RunError is the terminal error of a failed run.
type RunError struct {
	Reason string
	Err    error
}

func (e *RunError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("run failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("run failed (%s)", e.Reason)
}

func (e *RunError) Unwrap() error { return e.Err }

// PhaseError wraps an error with the phase and transition it occurred in.
type PhaseError struct {
	Err        error
	Phase      Phase
	Transition int
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("[phase=%s transition=%d] %v", e.Phase, e.Transition, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// RetryPolicy defines bounded backoff for reasoning gateway calls.
type RetryPolicy struct {
	MaxRetries   int           // consecutive gateway failures tolerated before abort
	InitialDelay time.Duration // delay before the first retry
	MaxDelay     time.Duration // delay cap
	Multiplier   float64       // exponential backoff multiplier
	Jitter       bool          // add random jitter to delays
}

// DefaultRetryPolicy returns the default gateway backoff policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// extractRetryAfter pulls a server-suggested delay in seconds out of an
// error message ("... retry after 7 ..."). Zero when none is present.
func extractRetryAfter(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	idx := strings.Index(s, "retry after ")
	if idx < 0 {
		return 0
	}
	var seconds int
	if _, serr := fmt.Sscanf(s[idx:], "retry after %d", &seconds); serr != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// backoffDelay computes the delay for a retry attempt (0-based).
func (p RetryPolicy) backoffDelay(attempt int) time.Duration {
	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt))
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	if p.Jitter {
		delay += rand.Float64() * 0.2 * delay // 0-20% jitter
	}
	return time.Duration(delay)
}
