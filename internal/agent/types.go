package agent

import (
	"context"
	"fmt"
)

// EntryKind tags a history entry so pruning and view building can tell
// raw action results apart from synthesized summaries.
type EntryKind string

const (
	EntryGoal    EntryKind = "goal"
	EntryAction  EntryKind = "action"
	EntryFailure EntryKind = "failure"
	EntrySummary EntryKind = "summary"
	EntryNote    EntryKind = "note"
)

// HistoryEntry is one {action taken, result summary} record in the run history.
type HistoryEntry struct {
	Kind    EntryKind
	Action  string // capability name for action/failure entries, empty otherwise
	Content string
}

// Validate checks if the HistoryEntry is well formed.
func (e HistoryEntry) Validate() error {
	switch e.Kind {
	case EntryGoal, EntryAction, EntryFailure, EntrySummary, EntryNote:
		// Valid kinds
	default:
		return fmt.Errorf("invalid history entry kind: %s", e.Kind)
	}
	if (e.Kind == EntryAction || e.Kind == EntryFailure) && e.Action == "" {
		return fmt.Errorf("%s entries must name the capability", e.Kind)
	}
	return nil
}

// Action is an immutable action descriptor: one capability invocation the
// oracle proposed. ID is assigned by the orchestrator when the proposal is
// accepted.
type Action struct {
	ID   string
	Name string
	Args map[string]any
}

// Outcome is the result shape of one Execution Step. Faults never cross the
// executor boundary as errors; they are folded into a failed Outcome.
type Outcome struct {
	Success  bool
	Output   string
	RawError string
}

// FailureClass is the taxonomy a raw failure is reduced to. All policy
// downstream of the classifier consumes only this class, never raw text.
type FailureClass string

const (
	FailTransient         FailureClass = "transient"
	FailAuth              FailureClass = "auth"
	FailRateLimited       FailureClass = "rate_limited"
	FailMissingCapability FailureClass = "missing_capability"
	FailUnknown           FailureClass = "unknown"
)

// ClassifiedFailure is immutable once produced by Classify.
type ClassifiedFailure struct {
	Action    string
	RawError  string
	Class     FailureClass
	Retryable bool
}

// Report statuses.
const (
	ReportSuccess = "success"
	ReportFailure = "failure"
)

// Report is the terminal report the oracle returns instead of an action.
type Report struct {
	Status  string // ReportSuccess or ReportFailure
	Message string
}

// Proposal is exactly one of an action or a final report.
type Proposal struct {
	Action *Action
	Report *Report
}

// Validate enforces the one-of shape of a gateway response.
func (p Proposal) Validate() error {
	if (p.Action == nil) == (p.Report == nil) {
		return fmt.Errorf("proposal must carry exactly one of action or report")
	}
	return nil
}

// View is the redacted read-only slice of run state sent to the oracle.
type View struct {
	Goal         string
	Plan         string
	History      []HistoryEntry
	Capabilities []string
	Failures     []string // recent failure summary lines ("name: class")
}

// Oracle is the reasoning gateway: a stateless proposal client. Any concrete
// backend (local model, remote API) sits behind this one contract.
type Oracle interface {
	Propose(ctx context.Context, view View) (Proposal, error)
}

// Acquirer drives the capability acquisition sub-flow when the classifier
// signals a missing capability. Implemented by capability.Flow.
type Acquirer interface {
	Acquire(ctx context.Context, name, reason string) error
}

// Approver gates dangerous capabilities before execution. A nil approver
// approves everything.
type Approver interface {
	Approve(a Action) (bool, string)
}

// Resumption is the typed payload that resumes a suspended run: either an
// abort instruction or corrected state (guidance and an optional new plan).
type Resumption struct {
	Abort    bool
	Guidance string
	Plan     string
}

// Escalator receives the suspension summary and produces a resumption.
// Each run escalates through its own handler call, so concurrent runs can
// suspend independently.
type Escalator interface {
	Escalate(ctx context.Context, s EscalationSummary) (Resumption, error)
}
