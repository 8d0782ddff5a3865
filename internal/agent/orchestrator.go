package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ChamsBouzaiene/otto/internal/capability"
)

// Config holds the orchestrator knobs. Thresholds live here so policy can be
// tuned without touching the state machine.
type Config struct {
	Breaker        BreakerConfig
	History        HistoryConfig
	Gateway        RetryPolicy   // backoff for reasoning gateway calls
	ExecTimeout    time.Duration // per-action execution bound
	MaxTransitions int           // hard bound on phase transitions per run
	ViewTail       int           // history entries included in gateway views
	SummaryTail    int           // history entries included in escalation summaries

	// EscalationCapability is the capability name that, when proposed,
	// suspends the run directly (the agent asking for help is not a failure).
	EscalationCapability string
	// DangerousCapabilities require approval before execution.
	DangerousCapabilities []string
}

// DefaultConfig returns sensible orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		Breaker:              DefaultBreakerConfig(),
		History:              DefaultHistoryConfig(),
		Gateway:              DefaultRetryPolicy(),
		ExecTimeout:          defaultExecTimeout,
		MaxTransitions:       200,
		ViewTail:             20,
		SummaryTail:          8,
		EscalationCapability: "request_human_assistance",
		DangerousCapabilities: []string{
			"write_file", "execute_script", "run_shell_command",
		},
	}
}

// RunState is the complete mutable record of one task execution. It has a
// single owner: the orchestrator driving the run. One run is strictly
// sequential, so no locking is needed here; concurrent runs each own an
// independent RunState.
type RunState struct {
	ID           string
	Goal         string
	Plan         string
	History      *History
	Pending      *Action // non-nil iff Phase == PhaseExecuting
	FailureLog   []ClassifiedFailure
	Consecutive  int
	TotalByClass map[FailureClass]int
	Phase        Phase
	Transitions  int
	Report       *Report
	FailReason   string

	AttemptsSinceEscalation int

	// bookkeeping for evaluation and anti-repetition
	lastAction     *Action
	lastOutcome    Outcome
	lastFailure    *ClassifiedFailure
	rejectedRepeat bool
	acquisitions   map[string]int
	failErr        error
}

// NewRunState creates the state for a fresh run.
func NewRunState(goal string, cfg Config) *RunState {
	return &RunState{
		ID:           uuid.NewString(),
		Goal:         goal,
		History:      NewHistory(cfg.History, goal),
		TotalByClass: make(map[FailureClass]int),
		Phase:        PhasePlanning,
		acquisitions: make(map[string]int),
	}
}

// Planner is an optional oracle extension producing an initial plan. The
// orchestrator degrades to planless operation when the oracle does not
// implement it or planning fails.
type Planner interface {
	Plan(ctx context.Context, goal string) (string, error)
}

// Orchestrator composes the registry, gateway, executor, classifier, context
// manager and breaker into the run state machine. The machine itself is
// mechanical: every routing decision on a failure belongs to the breaker.
type Orchestrator struct {
	oracle    Oracle
	registry  *capability.Registry
	executor  *Executor
	acquirer  Acquirer
	approver  Approver
	escalator Escalator
	hooks     Hooks
	cfg       Config
}

// NewOrchestrator wires an orchestrator. acquirer, approver and escalator
// may be nil: a nil acquirer escalates missing capabilities, a nil approver
// approves everything, a nil escalator turns escalation into abort.
func NewOrchestrator(oracle Oracle, reg *capability.Registry, acquirer Acquirer, approver Approver, escalator Escalator, hooks Hooks, cfg Config) *Orchestrator {
	if cfg.MaxTransitions <= 0 {
		cfg = DefaultConfig()
	}
	return &Orchestrator{
		oracle:    oracle,
		registry:  reg,
		executor:  NewExecutor(reg, cfg.ExecTimeout),
		acquirer:  acquirer,
		approver:  approver,
		escalator: escalator,
		hooks:     hooks,
		cfg:       cfg,
	}
}

// Run drives one goal to a terminal state. The returned RunState is always
// non-nil; the error is non-nil iff the run ended in PhaseFailed.
func (o *Orchestrator) Run(ctx context.Context, goal string) (*RunState, error) {
	st := NewRunState(goal, o.cfg)

	if planner, ok := o.oracle.(Planner); ok {
		if plan, err := planner.Plan(ctx, goal); err == nil {
			st.Plan = plan
		}
	}

	for !st.Phase.Terminal() {
		// Cancellation is honored at every phase boundary, never mid-step.
		if ctx.Err() != nil {
			o.fail(ctx, st, ReasonCancelled, ctx.Err())
			break
		}
		if st.Transitions >= o.cfg.MaxTransitions {
			o.fail(ctx, st, ReasonTransitionLimit,
				fmt.Errorf("no terminal state after %d transitions", st.Transitions))
			break
		}

		switch st.Phase {
		case PhasePlanning:
			o.stepPlanning(ctx, st)
		case PhaseExecuting:
			o.stepExecuting(ctx, st)
		case PhaseEvaluating:
			o.stepEvaluating(ctx, st)
		case PhaseCorrecting:
			o.stepCorrecting(ctx, st)
		case PhaseAcquiring:
			o.stepAcquiring(ctx, st)
		case PhaseEscalating:
			o.stepEscalating(ctx, st)
		}
	}

	if st.Phase == PhaseFailed {
		return st, &RunError{Reason: st.FailReason, Err: st.failErr}
	}
	o.hooks.OnDone(ctx, st)
	return st, nil
}

func (o *Orchestrator) transition(ctx context.Context, st *RunState, to Phase) {
	from := st.Phase
	st.Phase = to
	st.Transitions++
	o.hooks.OnPhaseChange(ctx, st, from, to)
}

func (o *Orchestrator) fail(ctx context.Context, st *RunState, reason string, err error) {
	st.FailReason = reason
	if err != nil {
		st.failErr = &PhaseError{Err: err, Phase: st.Phase, Transition: st.Transitions}
		if st.FailReason != ReasonCancelled {
			st.History.Append(HistoryEntry{Kind: EntryNote, Content: fmt.Sprintf("terminal failure: %v", err)})
		}
	}
	o.transition(ctx, st, PhaseFailed)
}

// stepPlanning asks the gateway for the next action or a final report.
func (o *Orchestrator) stepPlanning(ctx context.Context, st *RunState) {
	prop, err := o.propose(ctx, st)
	if err != nil {
		o.fail(ctx, st, ReasonOracleUnavailable, err)
		return
	}
	o.hooks.OnProposal(ctx, st, prop)

	if prop.Report != nil {
		st.Report = prop.Report
		o.transition(ctx, st, PhaseDone)
		return
	}

	action := *prop.Action
	if action.ID == "" {
		action.ID = uuid.NewString()
	}

	// The agent asking for help suspends the run directly.
	if o.cfg.EscalationCapability != "" && action.Name == o.cfg.EscalationCapability {
		if req, ok := action.Args["request"].(string); ok && req != "" {
			st.History.Append(HistoryEntry{Kind: EntryNote, Content: "assistance requested: " + req})
		}
		o.transition(ctx, st, PhaseEscalating)
		return
	}

	// Anti-repetition: the same failing action must not be proposed twice
	// in direct succession. Reject and re-request once, then escalate.
	if st.lastFailure != nil && action.Name == st.lastFailure.Action && sameArgs(action.Args, st.lastAction) {
		if !st.rejectedRepeat {
			st.rejectedRepeat = true
			st.History.Append(HistoryEntry{
				Kind:    EntryNote,
				Content: fmt.Sprintf("rejected repeated proposal of failing action %s; a different approach is required", action.Name),
			})
			o.transition(ctx, st, PhasePlanning)
			return
		}
		o.transition(ctx, st, PhaseEscalating)
		return
	}
	st.rejectedRepeat = false

	st.Pending = &action
	o.transition(ctx, st, PhaseExecuting)
}

// propose calls the gateway with bounded backoff. Exhausting the policy is a
// terminal gateway abort, distinct from task-logic failure.
func (o *Orchestrator) propose(ctx context.Context, st *RunState) (Proposal, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		prop, err := o.oracle.Propose(ctx, o.view(st))
		if err == nil {
			if verr := prop.Validate(); verr != nil {
				err = fmt.Errorf("%w: %v", ErrOracleUnavailable, verr)
			} else {
				return prop, nil
			}
		}
		lastErr = err

		if attempt >= o.cfg.Gateway.MaxRetries {
			return Proposal{}, fmt.Errorf("%w: %v", ErrOracleUnavailable, lastErr)
		}

		delay := o.cfg.Gateway.backoffDelay(attempt)
		if ra := extractRetryAfter(err); ra > 0 {
			if ra > o.cfg.Gateway.MaxDelay {
				ra = o.cfg.Gateway.MaxDelay
			}
			delay = ra
		}
		o.hooks.OnRetryAttempt(ctx, st, attempt+1, o.cfg.Gateway.MaxRetries, delay, err)
		select {
		case <-ctx.Done():
			return Proposal{}, fmt.Errorf("%w: %v", ErrOracleUnavailable, ctx.Err())
		case <-time.After(delay):
		}
	}
}

// view builds the redacted state slice the oracle is allowed to read.
func (o *Orchestrator) view(st *RunState) View {
	failures := st.FailureLog
	if len(failures) > 5 {
		failures = failures[len(failures)-5:]
	}
	lines := make([]string, 0, len(failures))
	for _, f := range failures {
		lines = append(lines, fmt.Sprintf("%s: %s", f.Action, f.Class))
	}
	return View{
		Goal:         st.Goal,
		Plan:         st.Plan,
		History:      st.History.Tail(o.cfg.ViewTail),
		Capabilities: o.registry.List(),
		Failures:     lines,
	}
}

// stepExecuting applies the pending action.
func (o *Orchestrator) stepExecuting(ctx context.Context, st *RunState) {
	action := *st.Pending

	if o.approver != nil && o.isDangerous(action.Name) {
		ok, msg := o.approver.Approve(action)
		if !ok {
			if msg == "" {
				msg = fmt.Sprintf("permission to run %s was denied; choose a different approach", action.Name)
			}
			st.History.Append(HistoryEntry{Kind: EntryNote, Content: msg})
			st.Pending = nil
			o.transition(ctx, st, PhasePlanning)
			return
		}
	}

	out := o.executor.Execute(ctx, action)
	o.hooks.OnExecute(ctx, st, action, out)

	st.Pending = nil
	st.lastAction = &action
	st.lastOutcome = out

	if out.Success {
		st.History.Append(HistoryEntry{Kind: EntryAction, Action: action.Name, Content: out.Output})
		st.Consecutive = 0
		st.AttemptsSinceEscalation = 0
		st.lastFailure = nil
		st.rejectedRepeat = false
		o.pruneHistory(ctx, st)
		o.transition(ctx, st, PhasePlanning)
		return
	}

	o.transition(ctx, st, PhaseEvaluating)
}

// stepEvaluating classifies the failure, updates counters and consults the
// breaker for the route out.
func (o *Orchestrator) stepEvaluating(ctx context.Context, st *RunState) {
	f := Classify(st.lastAction.Name, st.lastOutcome.RawError)
	o.hooks.OnClassified(ctx, st, f)

	st.FailureLog = append(st.FailureLog, f)
	st.Consecutive++
	st.TotalByClass[f.Class]++
	st.AttemptsSinceEscalation++
	st.lastFailure = &f
	st.History.Append(HistoryEntry{Kind: EntryFailure, Action: f.Action, Content: fmt.Sprintf("%s: %s", f.Class, f.RawError)})
	o.pruneHistory(ctx, st)

	decision := o.cfg.Breaker.Decide(BreakerView{
		Consecutive:         st.Consecutive,
		TotalByClass:        st.TotalByClass,
		AcquisitionAttempts: st.acquisitions[f.Action],
	}, f)
	o.hooks.OnBreakerDecision(ctx, st, f, decision)

	switch decision {
	case DecisionRetry:
		o.transition(ctx, st, PhaseCorrecting)
	case DecisionAcquire:
		o.transition(ctx, st, PhaseAcquiring)
	default:
		o.transition(ctx, st, PhaseEscalating)
	}
}

// stepCorrecting re-enters planning with the failure already appended to
// history, so the next proposal is informed by it.
func (o *Orchestrator) stepCorrecting(ctx context.Context, st *RunState) {
	if planner, ok := o.oracle.(Planner); ok && st.Plan != "" {
		if plan, err := planner.Plan(ctx, st.Goal); err == nil && plan != "" {
			st.Plan = plan
		}
	}
	o.transition(ctx, st, PhasePlanning)
}

// stepAcquiring runs the capability acquisition sub-flow.
func (o *Orchestrator) stepAcquiring(ctx context.Context, st *RunState) {
	name := st.lastFailure.Action
	st.acquisitions[name]++

	if o.acquirer == nil {
		o.hooks.OnAcquisition(ctx, st, name, capability.ErrAcquisitionFailed)
		o.transition(ctx, st, PhaseEscalating)
		return
	}

	err := o.acquirer.Acquire(ctx, name, st.lastFailure.RawError)
	o.hooks.OnAcquisition(ctx, st, name, err)
	if err != nil {
		st.History.Append(HistoryEntry{Kind: EntryNote, Content: fmt.Sprintf("capability acquisition failed: %v", err)})
		o.transition(ctx, st, PhaseEscalating)
		return
	}

	st.History.Append(HistoryEntry{Kind: EntryNote, Content: fmt.Sprintf("acquired new capability for %s", name)})
	// Retrying the same action with the new capability is legitimate, so it
	// must not trip the repetition check.
	st.lastFailure = nil
	st.rejectedRepeat = false
	o.transition(ctx, st, PhasePlanning)
}

// stepEscalating suspends the run and applies the typed resumption.
func (o *Orchestrator) stepEscalating(ctx context.Context, st *RunState) {
	summary := o.summarize(st)
	o.hooks.OnEscalate(ctx, st, summary)

	if o.escalator == nil {
		o.fail(ctx, st, ReasonEscalationAbort, fmt.Errorf("no escalation handler configured"))
		return
	}

	resumption, err := o.escalator.Escalate(ctx, summary)
	if err != nil {
		o.fail(ctx, st, ReasonEscalationAbort, err)
		return
	}
	o.hooks.OnResume(ctx, st, resumption)

	if resumption.Abort {
		o.fail(ctx, st, ReasonEscalationAbort, nil)
		return
	}

	if resumption.Guidance != "" {
		st.History.Append(HistoryEntry{Kind: EntryNote, Content: "operator guidance: " + resumption.Guidance})
	}
	if resumption.Plan != "" {
		st.Plan = resumption.Plan
	}
	st.AttemptsSinceEscalation = 0
	st.Consecutive = 0
	st.lastFailure = nil
	st.rejectedRepeat = false
	o.transition(ctx, st, PhasePlanning)
}

func (o *Orchestrator) summarize(st *RunState) EscalationSummary {
	seen := make(map[FailureClass]bool)
	var classes []FailureClass
	for _, f := range st.FailureLog {
		if !seen[f.Class] {
			seen[f.Class] = true
			classes = append(classes, f.Class)
		}
	}
	return EscalationSummary{
		RunID:          st.ID,
		Goal:           st.Goal,
		Plan:           st.Plan,
		RecentActions:  st.History.Tail(o.cfg.SummaryTail),
		FailureClasses: classes,
		LastFailure:    st.lastFailure,
	}
}

func (o *Orchestrator) pruneHistory(ctx context.Context, st *RunState) {
	before := st.History.Len()
	if st.History.Prune() {
		o.hooks.OnPrune(ctx, st, before, st.History.Len())
	}
}

func (o *Orchestrator) isDangerous(name string) bool {
	for _, d := range o.cfg.DangerousCapabilities {
		if d == name {
			return true
		}
	}
	return false
}

// sameArgs reports whether the proposed arguments match the last failing
// action's arguments. Shallow comparison is enough for the anti-repetition
// check: a changed nested value still changes the rendered string.
func sameArgs(args map[string]any, last *Action) bool {
	if last == nil {
		return true
	}
	if len(args) != len(last.Args) {
		return false
	}
	for k, v := range args {
		if fmt.Sprint(last.Args[k]) != fmt.Sprint(v) {
			return false
		}
	}
	return true
}
