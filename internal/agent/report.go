package agent

import (
	"fmt"
	"strings"
)

// EscalationSummary is the structured summary emitted when a run suspends
// awaiting external input.
type EscalationSummary struct {
	RunID          string
	Goal           string
	Plan           string
	RecentActions  []HistoryEntry
	FailureClasses []FailureClass
	LastFailure    *ClassifiedFailure
}

// String renders a human-readable version of the summary.
func (s EscalationSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s needs assistance.\n\nGoal: %s\n", s.RunID, s.Goal)
	if s.Plan != "" {
		fmt.Fprintf(&b, "\nPlan:\n%s\n", s.Plan)
	}
	if len(s.RecentActions) > 0 {
		b.WriteString("\nRecent actions:\n")
		for _, e := range s.RecentActions {
			if e.Kind == EntryGoal {
				continue
			}
			fmt.Fprintf(&b, "- [%s] %s %s\n", e.Kind, e.Action, firstLine(e.Content))
		}
	}
	if len(s.FailureClasses) > 0 {
		classes := make([]string, len(s.FailureClasses))
		for i, c := range s.FailureClasses {
			classes[i] = string(c)
		}
		fmt.Fprintf(&b, "\nFailure classes seen: %s\n", strings.Join(classes, ", "))
	}
	if s.LastFailure != nil {
		fmt.Fprintf(&b, "Last failure: %s (%s): %s\n",
			s.LastFailure.Action, s.LastFailure.Class, firstLine(s.LastFailure.RawError))
	}
	return b.String()
}

// RenderFinalReport produces the markdown report for a finished run.
func RenderFinalReport(st *RunState) string {
	var b strings.Builder
	b.WriteString("# Agent Final Report\n\n")
	fmt.Fprintf(&b, "## Goal\n> %s\n\n", st.Goal)

	b.WriteString("## Executed Steps\n")
	steps := 0
	for _, e := range st.History.Entries() {
		if e.Kind != EntryAction {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", e.Action, firstLine(e.Content))
		steps++
	}
	if steps == 0 {
		b.WriteString("No steps were executed.\n")
	}

	b.WriteString("\n## Outcome\n")
	switch {
	case st.Report != nil:
		fmt.Fprintf(&b, "%s\n", st.Report.Message)
	case st.FailReason != "":
		fmt.Fprintf(&b, "Run failed: %s\n", st.FailReason)
	default:
		b.WriteString("No final answer was produced.\n")
	}

	if len(st.FailureLog) > 0 {
		b.WriteString("\n## Failures\n")
		for _, f := range st.FailureLog {
			fmt.Fprintf(&b, "- %s (%s): %s\n", f.Action, f.Class, firstLine(f.RawError))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
