package oracle

import (
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/otto/internal/agent"
)

// parseProposal reduces a provider reply to exactly one proposal: the first
// tool call wins; otherwise non-empty text becomes the final report. An
// empty reply is a gateway fault, not a task decision.
func parseProposal(resp ChatResponse) (agent.Proposal, error) {
	if len(resp.ToolCalls) > 0 {
		tc := resp.ToolCalls[0]
		if tc.Name == "" {
			return agent.Proposal{}, fmt.Errorf("%w: tool call without a name", agent.ErrOracleUnavailable)
		}
		args := tc.Args
		if args == nil {
			args = make(map[string]any)
		}
		return agent.Proposal{Action: &agent.Action{
			ID:   tc.ID,
			Name: tc.Name,
			Args: args,
		}}, nil
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return agent.Proposal{}, fmt.Errorf("%w: empty response", agent.ErrOracleUnavailable)
	}
	return agent.Proposal{Report: &agent.Report{
		Status:  agent.ReportSuccess,
		Message: text,
	}}, nil
}
