package agent

import (
	"context"
	"time"
)

// Hook observes orchestrator execution. All methods are notifications; they
// must not mutate run state.
type Hook interface {
	OnPhaseChange(ctx context.Context, st *RunState, from, to Phase)
	OnProposal(ctx context.Context, st *RunState, p Proposal)
	OnExecute(ctx context.Context, st *RunState, a Action, out Outcome)
	OnClassified(ctx context.Context, st *RunState, f ClassifiedFailure)
	OnBreakerDecision(ctx context.Context, st *RunState, f ClassifiedFailure, d Decision)
	OnPrune(ctx context.Context, st *RunState, before, after int)
	OnAcquisition(ctx context.Context, st *RunState, name string, err error)
	OnEscalate(ctx context.Context, st *RunState, s EscalationSummary)
	OnResume(ctx context.Context, st *RunState, r Resumption)
	OnRetryAttempt(ctx context.Context, st *RunState, attempt, maxAttempts int, delay time.Duration, err error)
	OnDone(ctx context.Context, st *RunState)
}

// Hooks fans notifications out to every registered hook.
type Hooks []Hook

func (hs Hooks) OnPhaseChange(ctx context.Context, st *RunState, from, to Phase) {
	for _, h := range hs {
		h.OnPhaseChange(ctx, st, from, to)
	}
}
func (hs Hooks) OnProposal(ctx context.Context, st *RunState, p Proposal) {
	for _, h := range hs {
		h.OnProposal(ctx, st, p)
	}
}
func (hs Hooks) OnExecute(ctx context.Context, st *RunState, a Action, out Outcome) {
	for _, h := range hs {
		h.OnExecute(ctx, st, a, out)
	}
}
func (hs Hooks) OnClassified(ctx context.Context, st *RunState, f ClassifiedFailure) {
	for _, h := range hs {
		h.OnClassified(ctx, st, f)
	}
}
func (hs Hooks) OnBreakerDecision(ctx context.Context, st *RunState, f ClassifiedFailure, d Decision) {
	for _, h := range hs {
		h.OnBreakerDecision(ctx, st, f, d)
	}
}
func (hs Hooks) OnPrune(ctx context.Context, st *RunState, before, after int) {
	for _, h := range hs {
		h.OnPrune(ctx, st, before, after)
	}
}
func (hs Hooks) OnAcquisition(ctx context.Context, st *RunState, name string, err error) {
	for _, h := range hs {
		h.OnAcquisition(ctx, st, name, err)
	}
}
func (hs Hooks) OnEscalate(ctx context.Context, st *RunState, s EscalationSummary) {
	for _, h := range hs {
		h.OnEscalate(ctx, st, s)
	}
}
func (hs Hooks) OnResume(ctx context.Context, st *RunState, r Resumption) {
	for _, h := range hs {
		h.OnResume(ctx, st, r)
	}
}
func (hs Hooks) OnRetryAttempt(ctx context.Context, st *RunState, attempt, maxAttempts int, delay time.Duration, err error) {
	for _, h := range hs {
		h.OnRetryAttempt(ctx, st, attempt, maxAttempts, delay, err)
	}
}
func (hs Hooks) OnDone(ctx context.Context, st *RunState) {
	for _, h := range hs {
		h.OnDone(ctx, st)
	}
}
