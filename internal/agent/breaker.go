package agent

// Decision is the breaker's verdict on a classified failure.
type Decision string

const (
	DecisionRetry    Decision = "retry"
	DecisionAcquire  Decision = "acquire_capability"
	DecisionEscalate Decision = "escalate"
)

// BreakerConfig holds the escalation thresholds. These are configuration,
// not hardwired constants: the state machine consults the breaker and never
// branches on failure classes itself.
type BreakerConfig struct {
	MaxConsecutiveFailures int // transient/rate_limited retries allowed before escalation
	UnknownRetryLimit      int // retries allowed for unknown-class failures
	MaxAcquisitionsPerName int // acquisition attempts per distinct capability per run
}

// DefaultBreakerConfig returns the default escalation thresholds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxConsecutiveFailures: 3,
		UnknownRetryLimit:      1,
		MaxAcquisitionsPerName: 1,
	}
}

// BreakerView is the slice of run state the breaker reads. Keeping it a
// plain value keeps Decide a pure function.
type BreakerView struct {
	Consecutive         int // consecutive failures including the latest one
	TotalByClass        map[FailureClass]int
	AcquisitionAttempts int // prior acquisition attempts for the failing capability
}

// Decide routes a classified failure to retry, capability acquisition, or
// escalation. It is the sole authority for that choice.
func (cfg BreakerConfig) Decide(view BreakerView, f ClassifiedFailure) Decision {
	switch f.Class {
	case FailMissingCapability:
		// Bounded to MaxAcquisitionsPerName attempts per distinct
		// capability; a repeat failure for the same name escalates.
		if view.AcquisitionAttempts < cfg.MaxAcquisitionsPerName {
			return DecisionAcquire
		}
		return DecisionEscalate

	case FailAuth:
		// Credentials cannot self-correct.
		return DecisionEscalate

	case FailTransient, FailRateLimited:
		if view.Consecutive <= cfg.MaxConsecutiveFailures {
			return DecisionRetry
		}
		return DecisionEscalate

	default: // FailUnknown and anything unmapped
		if view.TotalByClass[FailUnknown] <= cfg.UnknownRetryLimit {
			return DecisionRetry
		}
		return DecisionEscalate
	}
}
