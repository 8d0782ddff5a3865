// agent/hook_logger.go
package agent

import (
	"context"
	"log"
	"time"
)

// LoggerHook logs orchestrator activity through the standard logger.
type LoggerHook struct{ L *log.Logger }

// DefaultHooks returns the default hook set (logger only).
func DefaultHooks() Hooks {
	return Hooks{LoggerHook{L: log.Default()}}
}

func (h LoggerHook) OnPhaseChange(_ context.Context, st *RunState, from, to Phase) {
	h.L.Printf("run=%s transition=%d %s -> %s", st.ID, st.Transitions, from, to)
}
func (h LoggerHook) OnProposal(_ context.Context, st *RunState, p Proposal) {
	if p.Action != nil {
		h.L.Printf("proposal: %s args=%v", p.Action.Name, p.Action.Args)
		return
	}
	h.L.Printf("proposal: final report status=%s", p.Report.Status)
}
func (h LoggerHook) OnExecute(_ context.Context, _ *RunState, a Action, out Outcome) {
	if out.Success {
		preview := out.Output
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}
		h.L.Printf("exec %s ok: %s", a.Name, preview)
	} else {
		h.L.Printf("exec %s failed: %s", a.Name, out.RawError)
	}
}
func (h LoggerHook) OnClassified(_ context.Context, st *RunState, f ClassifiedFailure) {
	h.L.Printf("classified %s as %s (retryable=%v, consecutive=%d)",
		f.Action, f.Class, f.Retryable, st.Consecutive)
}
func (h LoggerHook) OnBreakerDecision(_ context.Context, _ *RunState, f ClassifiedFailure, d Decision) {
	h.L.Printf("breaker: %s/%s -> %s", f.Action, f.Class, d)
}
func (h LoggerHook) OnPrune(_ context.Context, _ *RunState, before, after int) {
	h.L.Printf("history pruned: %d -> %d entries", before, after)
}
func (h LoggerHook) OnAcquisition(_ context.Context, _ *RunState, name string, err error) {
	if err != nil {
		h.L.Printf("acquisition of %s failed: %v", name, err)
	} else {
		h.L.Printf("acquired capability %s", name)
	}
}
func (h LoggerHook) OnEscalate(_ context.Context, st *RunState, s EscalationSummary) {
	h.L.Printf("escalating run=%s: %d failures, classes=%v", st.ID, len(st.FailureLog), s.FailureClasses)
}
func (h LoggerHook) OnResume(_ context.Context, st *RunState, r Resumption) {
	if r.Abort {
		h.L.Printf("run=%s aborted at escalation", st.ID)
	} else {
		h.L.Printf("run=%s resumed with corrected state", st.ID)
	}
}
func (h LoggerHook) OnRetryAttempt(_ context.Context, _ *RunState, attempt, maxAttempts int, delay time.Duration, err error) {
	h.L.Printf("gateway retry attempt=%d/%d delay=%v error=%v", attempt, maxAttempts, delay, err)
}
func (h LoggerHook) OnDone(_ context.Context, st *RunState) {
	h.L.Printf("run=%s done: transitions=%d failures=%d", st.ID, st.Transitions, len(st.FailureLog))
}
