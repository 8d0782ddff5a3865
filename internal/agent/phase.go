// Package agent implements the task-orchestration state machine: phases,
// failure classification, the circuit breaker, bounded history, and the
// orchestrator that drives a run to a terminal state.
package agent

// Phase represents the current state of a run's state machine.
type Phase string

const (
	PhasePlanning   Phase = "planning"
	PhaseExecuting  Phase = "executing"
	PhaseEvaluating Phase = "evaluating"
	PhaseCorrecting Phase = "correcting"
	PhaseAcquiring  Phase = "acquiring_capability"
	PhaseEscalating Phase = "escalating"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// Terminal reports whether no further transitions are possible from p.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}
