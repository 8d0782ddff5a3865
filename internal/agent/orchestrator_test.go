package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ChamsBouzaiene/otto/internal/capability"
)

// scriptedOracle serves proposals from a queue. Once the queue runs dry it
// keeps replaying the last step, which lets tests model a stubborn gateway.
type scriptedOracle struct {
	steps []func(view View) (Proposal, error)
	calls int
	views []View
}

func (s *scriptedOracle) Propose(ctx context.Context, view View) (Proposal, error) {
	s.views = append(s.views, view)
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++
	return s.steps[i](view)
}

func proposeAction(name string, args map[string]any) func(View) (Proposal, error) {
	return func(View) (Proposal, error) {
		return Proposal{Action: &Action{Name: name, Args: args}}, nil
	}
}

func proposeReport(message string) func(View) (Proposal, error) {
	return func(View) (Proposal, error) {
		return Proposal{Report: &Report{Status: ReportSuccess, Message: message}}, nil
	}
}

type scriptedEscalator struct {
	resumptions []Resumption
	summaries   []EscalationSummary
}

func (e *scriptedEscalator) Escalate(ctx context.Context, s EscalationSummary) (Resumption, error) {
	e.summaries = append(e.summaries, s)
	i := len(e.summaries) - 1
	if i >= len(e.resumptions) {
		return Resumption{Abort: true}, nil
	}
	return e.resumptions[i], nil
}

type recordingAcquirer struct {
	registry *capability.Registry
	handler  capability.HandlerFunc
	fail     error
	acquired []string
}

func (a *recordingAcquirer) Acquire(ctx context.Context, name, reason string) error {
	a.acquired = append(a.acquired, name)
	if a.fail != nil {
		return a.fail
	}
	a.registry.Register(capability.Record{
		Name:    name,
		Handler: a.handler,
		Origin:  capability.OriginGenerated,
	})
	return nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Gateway = RetryPolicy{MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	cfg.ExecTimeout = time.Second
	cfg.MaxTransitions = 100
	return cfg
}

func historyContains(st *RunState, substr string) bool {
	for _, e := range st.History.Entries() {
		if strings.Contains(e.Content, substr) {
			return true
		}
	}
	return false
}

func TestRunHappyPath(t *testing.T) {
	reg := testRegistry(capability.Record{
		Name: "greet",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "hello " + args["who"].(string), nil
		},
	})
	oracle := &scriptedOracle{steps: []func(View) (Proposal, error){
		proposeAction("greet", map[string]any{"who": "world"}),
		proposeReport("greeted the world"),
	}}

	o := NewOrchestrator(oracle, reg, nil, nil, nil, nil, testConfig())
	st, err := o.Run(context.Background(), "greet the world")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if st.Phase != PhaseDone {
		t.Errorf("Phase = %s, want %s", st.Phase, PhaseDone)
	}
	if st.Report == nil || st.Report.Message != "greeted the world" {
		t.Errorf("Report = %+v", st.Report)
	}
	if len(st.FailureLog) != 0 {
		t.Errorf("FailureLog has %d entries on a clean run", len(st.FailureLog))
	}
	if st.Pending != nil {
		t.Error("Pending action survived into a terminal state")
	}
	if !historyContains(st, "hello world") {
		t.Error("action output missing from history")
	}
	// The view presented to the oracle carries the capability list.
	if len(oracle.views) == 0 || len(oracle.views[0].Capabilities) != 1 {
		t.Errorf("oracle view capabilities = %v", oracle.views[0].Capabilities)
	}
}

func TestRunTransientRetriesThenEscalates(t *testing.T) {
	attempt := 0
	reg := testRegistry(capability.Record{
		Name: "flaky",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "", errors.New("connection refused")
		},
	})
	// Vary the arguments per proposal so each retry is a distinct action and
	// the escalation is forced by the breaker threshold alone.
	oracle := &scriptedOracle{steps: []func(View) (Proposal, error){
		func(View) (Proposal, error) {
			attempt++
			return Proposal{Action: &Action{Name: "flaky", Args: map[string]any{"attempt": attempt}}}, nil
		},
	}}
	esc := &scriptedEscalator{} // aborts

	o := NewOrchestrator(oracle, reg, nil, nil, esc, nil, testConfig())
	st, err := o.Run(context.Background(), "fetch the data")

	if st.Phase != PhaseFailed {
		t.Fatalf("Phase = %s, want %s", st.Phase, PhaseFailed)
	}
	var runErr *RunError
	if !errors.As(err, &runErr) || runErr.Reason != ReasonEscalationAbort {
		t.Fatalf("err = %v, want escalation_abort", err)
	}
	if len(st.FailureLog) != 4 {
		t.Errorf("executed %d attempts, want 4 (threshold 3 plus the escalating one)", len(st.FailureLog))
	}
	if len(esc.summaries) != 1 {
		t.Fatalf("escalator called %d times, want 1", len(esc.summaries))
	}
	s := esc.summaries[0]
	if s.LastFailure == nil || s.LastFailure.Class != FailTransient {
		t.Errorf("escalation summary last failure = %+v", s.LastFailure)
	}
	if len(s.FailureClasses) != 1 || s.FailureClasses[0] != FailTransient {
		t.Errorf("escalation summary classes = %v", s.FailureClasses)
	}
}

func TestRunAuthEscalatesImmediately(t *testing.T) {
	calls := 0
	reg := testRegistry(capability.Record{
		Name: "push",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			calls++
			return "", errors.New("401 unauthorized")
		},
	})
	oracle := &scriptedOracle{steps: []func(View) (Proposal, error){
		proposeAction("push", map[string]any{"target": "origin"}),
		proposeReport("done after operator fixed credentials"),
	}}
	esc := &scriptedEscalator{resumptions: []Resumption{{Guidance: "credentials rotated, continue"}}}

	o := NewOrchestrator(oracle, reg, nil, nil, esc, nil, testConfig())
	st, err := o.Run(context.Background(), "push the branch")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if calls != 1 {
		t.Errorf("auth failure executed %d times, want 1 (no retry)", calls)
	}
	if len(esc.summaries) != 1 {
		t.Fatalf("escalator called %d times, want 1", len(esc.summaries))
	}
	if st.Phase != PhaseDone {
		t.Errorf("Phase = %s, want %s", st.Phase, PhaseDone)
	}
	if !historyContains(st, "credentials rotated") {
		t.Error("operator guidance missing from history")
	}
	if st.Consecutive != 0 {
		t.Errorf("Consecutive = %d after resumption and success", st.Consecutive)
	}
}

func TestRunMissingCapabilityAcquires(t *testing.T) {
	reg := testRegistry() // empty: the proposed capability does not exist
	acq := &recordingAcquirer{
		registry: reg,
		handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "converted", nil
		},
	}
	oracle := &scriptedOracle{steps: []func(View) (Proposal, error){
		proposeAction("convert_pdf", map[string]any{"path": "report.pdf"}),
		proposeAction("convert_pdf", map[string]any{"path": "report.pdf"}),
		proposeReport("converted the file"),
	}}

	o := NewOrchestrator(oracle, reg, acq, nil, nil, nil, testConfig())
	st, err := o.Run(context.Background(), "convert the report")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(acq.acquired) != 1 || acq.acquired[0] != "convert_pdf" {
		t.Fatalf("acquired = %v, want one convert_pdf acquisition", acq.acquired)
	}
	if st.Phase != PhaseDone {
		t.Errorf("Phase = %s, want %s", st.Phase, PhaseDone)
	}
	if _, err := reg.Resolve("convert_pdf"); err != nil {
		t.Error("acquired capability not registered")
	}
	// The view after acquisition advertises the new capability.
	last := oracle.views[len(oracle.views)-1]
	found := false
	for _, name := range last.Capabilities {
		if name == "convert_pdf" {
			found = true
		}
	}
	if !found {
		t.Errorf("post-acquisition view capabilities = %v", last.Capabilities)
	}
}

func TestRunAcquisitionFailureEscalates(t *testing.T) {
	reg := testRegistry()
	acq := &recordingAcquirer{registry: reg, fail: capability.ErrAcquisitionFailed}
	oracle := &scriptedOracle{steps: []func(View) (Proposal, error){
		proposeAction("convert_pdf", map[string]any{"path": "report.pdf"}),
	}}
	esc := &scriptedEscalator{} // aborts

	o := NewOrchestrator(oracle, reg, acq, nil, esc, nil, testConfig())
	st, err := o.Run(context.Background(), "convert the report")

	var runErr *RunError
	if !errors.As(err, &runErr) || runErr.Reason != ReasonEscalationAbort {
		t.Fatalf("err = %v, want escalation_abort", err)
	}
	if len(esc.summaries) != 1 {
		t.Errorf("escalator called %d times, want 1", len(esc.summaries))
	}
	if !historyContains(st, "acquisition failed") {
		t.Error("acquisition failure missing from history")
	}
}

func TestRunSecondMissingCapabilityFailureEscalates(t *testing.T) {
	reg := testRegistry()
	// Acquisition succeeds but the generated capability still reports the
	// operation as unsupported, reclassifying as missing_capability.
	acq := &recordingAcquirer{
		registry: reg,
		handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "", errors.New("operation not supported")
		},
	}
	oracle := &scriptedOracle{steps: []func(View) (Proposal, error){
		proposeAction("convert_pdf", map[string]any{"path": "a.pdf"}),
	}}
	esc := &scriptedEscalator{}

	o := NewOrchestrator(oracle, reg, acq, nil, esc, nil, testConfig())
	_, err := o.Run(context.Background(), "convert")

	var runErr *RunError
	if !errors.As(err, &runErr) || runErr.Reason != ReasonEscalationAbort {
		t.Fatalf("err = %v, want escalation_abort", err)
	}
	if len(acq.acquired) != 1 {
		t.Errorf("acquisition attempted %d times for the same name, want 1", len(acq.acquired))
	}
}

func TestRunCancellation(t *testing.T) {
	reg := testRegistry()
	oracle := &scriptedOracle{steps: []func(View) (Proposal, error){
		proposeReport("never reached"),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOrchestrator(oracle, reg, nil, nil, nil, nil, testConfig())
	st, err := o.Run(ctx, "anything")

	if st.Phase != PhaseFailed {
		t.Errorf("Phase = %s, want %s", st.Phase, PhaseFailed)
	}
	if st.FailReason != ReasonCancelled {
		t.Errorf("FailReason = %s, want %s", st.FailReason, ReasonCancelled)
	}
	var runErr *RunError
	if !errors.As(err, &runErr) || runErr.Reason != ReasonCancelled {
		t.Errorf("err = %v, want cancelled", err)
	}
	if oracle.calls != 0 {
		t.Errorf("oracle consulted %d times after cancellation", oracle.calls)
	}
}

func TestRunOracleUnavailable(t *testing.T) {
	reg := testRegistry()
	oracle := &scriptedOracle{steps: []func(View) (Proposal, error){
		func(View) (Proposal, error) {
			return Proposal{}, fmt.Errorf("%w: connect: connection refused", ErrOracleUnavailable)
		},
	}}

	o := NewOrchestrator(oracle, reg, nil, nil, nil, nil, testConfig())
	st, err := o.Run(context.Background(), "anything")

	var runErr *RunError
	if !errors.As(err, &runErr) || runErr.Reason != ReasonOracleUnavailable {
		t.Fatalf("err = %v, want oracle_unavailable", err)
	}
	if !errors.Is(err, ErrOracleUnavailable) {
		t.Errorf("err = %v, want it to wrap ErrOracleUnavailable", err)
	}
	var phaseErr *PhaseError
	if !errors.As(err, &phaseErr) || phaseErr.Phase != PhasePlanning {
		t.Errorf("err = %v, want a planning-phase error", err)
	}
	if st.Phase != PhaseFailed {
		t.Errorf("Phase = %s, want %s", st.Phase, PhaseFailed)
	}
	// MaxRetries 1 means the initial call plus one retry.
	if oracle.calls != 2 {
		t.Errorf("oracle called %d times, want 2", oracle.calls)
	}
}

func TestRunMalformedProposalRetriesThenAborts(t *testing.T) {
	reg := testRegistry()
	oracle := &scriptedOracle{steps: []func(View) (Proposal, error){
		func(View) (Proposal, error) { return Proposal{}, nil }, // neither action nor report
	}}

	o := NewOrchestrator(oracle, reg, nil, nil, nil, nil, testConfig())
	_, err := o.Run(context.Background(), "anything")

	var runErr *RunError
	if !errors.As(err, &runErr) || runErr.Reason != ReasonOracleUnavailable {
		t.Fatalf("err = %v, want oracle_unavailable", err)
	}
}

func TestRunAntiRepetitionForcesTermination(t *testing.T) {
	reg := testRegistry(capability.Record{
		Name: "stuck",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "", errors.New("segmentation violation")
		},
	})
	// The gateway stubbornly proposes the identical failing action forever.
	oracle := &scriptedOracle{steps: []func(View) (Proposal, error){
		proposeAction("stuck", map[string]any{"input": "x"}),
	}}

	o := NewOrchestrator(oracle, reg, nil, nil, nil, nil, testConfig())
	st, err := o.Run(context.Background(), "do the impossible")

	if st.Phase != PhaseFailed {
		t.Fatalf("Phase = %s, want %s", st.Phase, PhaseFailed)
	}
	var runErr *RunError
	if !errors.As(err, &runErr) || runErr.Reason != ReasonEscalationAbort {
		t.Fatalf("err = %v, want escalation_abort (escalation with no handler)", err)
	}
	if st.FailReason == ReasonTransitionLimit {
		t.Error("run only terminated via the transition limit; repetition rule did not fire")
	}
	if !historyContains(st, "rejected repeated proposal") {
		t.Error("rejection note missing from history")
	}
	if st.Transitions >= o.cfg.MaxTransitions {
		t.Errorf("took %d transitions, repetition rule should bound this far lower", st.Transitions)
	}
}

func TestRunTransitionLimit(t *testing.T) {
	reg := testRegistry(capability.Record{
		Name: "step",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "ok", nil
		},
	})
	n := 0
	oracle := &scriptedOracle{steps: []func(View) (Proposal, error){
		func(View) (Proposal, error) {
			n++
			return Proposal{Action: &Action{Name: "step", Args: map[string]any{"n": n}}}, nil
		},
	}}

	cfg := testConfig()
	cfg.MaxTransitions = 10
	o := NewOrchestrator(oracle, reg, nil, nil, nil, nil, cfg)
	st, err := o.Run(context.Background(), "never finish")

	var runErr *RunError
	if !errors.As(err, &runErr) || runErr.Reason != ReasonTransitionLimit {
		t.Fatalf("err = %v, want transition_limit", err)
	}
	if st.Phase != PhaseFailed {
		t.Errorf("Phase = %s, want %s", st.Phase, PhaseFailed)
	}
}

func TestRunEscalationCapabilitySuspendsDirectly(t *testing.T) {
	reg := testRegistry()
	oracle := &scriptedOracle{steps: []func(View) (Proposal, error){
		proposeAction("request_human_assistance", map[string]any{"request": "need the database password"}),
		proposeReport("finished with operator help"),
	}}
	esc := &scriptedEscalator{resumptions: []Resumption{{Guidance: "password is in the vault"}}}

	o := NewOrchestrator(oracle, reg, nil, nil, esc, nil, testConfig())
	st, err := o.Run(context.Background(), "deploy the service")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(esc.summaries) != 1 {
		t.Fatalf("escalator called %d times, want 1", len(esc.summaries))
	}
	if len(st.FailureLog) != 0 {
		t.Error("asking for help was recorded as a failure")
	}
	if !historyContains(st, "need the database password") {
		t.Error("assistance request missing from history")
	}
	if st.Phase != PhaseDone {
		t.Errorf("Phase = %s, want %s", st.Phase, PhaseDone)
	}
}

type denyApprover struct{ denied []string }

func (d *denyApprover) Approve(a Action) (bool, string) {
	d.denied = append(d.denied, a.Name)
	return false, "the operator denied permission to run " + a.Name
}

func TestRunApprovalDenialReturnsToPlanning(t *testing.T) {
	executed := false
	reg := testRegistry(capability.Record{
		Name: "write_file",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			executed = true
			return "written", nil
		},
	})
	oracle := &scriptedOracle{steps: []func(View) (Proposal, error){
		proposeAction("write_file", map[string]any{"path": "a.txt", "content": "hi"}),
		proposeReport("stopped after denial"),
	}}
	approver := &denyApprover{}

	o := NewOrchestrator(oracle, reg, nil, approver, nil, nil, testConfig())
	st, err := o.Run(context.Background(), "write the file")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if executed {
		t.Error("denied capability still executed")
	}
	if len(approver.denied) != 1 {
		t.Errorf("approver consulted %d times, want 1", len(approver.denied))
	}
	if !historyContains(st, "denied permission") {
		t.Error("denial note missing from history")
	}
	if len(st.FailureLog) != 0 {
		t.Error("denial was recorded as a failure")
	}
}

func TestRunConsecutiveResetOnSuccess(t *testing.T) {
	fail := true
	reg := testRegistry(capability.Record{
		Name: "sometimes",
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			if fail {
				fail = false
				return "", errors.New("timeout")
			}
			return "ok", nil
		},
	})
	n := 0
	oracle := &scriptedOracle{steps: []func(View) (Proposal, error){
		func(View) (Proposal, error) {
			n++
			if n <= 2 {
				return Proposal{Action: &Action{Name: "sometimes", Args: map[string]any{"n": n}}}, nil
			}
			return Proposal{Report: &Report{Status: ReportSuccess, Message: "recovered"}}, nil
		},
	}}

	o := NewOrchestrator(oracle, reg, nil, nil, nil, nil, testConfig())
	st, err := o.Run(context.Background(), "flaky then fine")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if st.Consecutive != 0 {
		t.Errorf("Consecutive = %d after a success, want 0", st.Consecutive)
	}
	if len(st.FailureLog) != 1 {
		t.Errorf("FailureLog has %d entries, want 1 (log is never reset)", len(st.FailureLog))
	}
	if st.TotalByClass[FailTransient] != 1 {
		t.Errorf("TotalByClass[transient] = %d, want 1", st.TotalByClass[FailTransient])
	}
}
