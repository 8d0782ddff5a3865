package actions

import (
	"context"

	"github.com/ChamsBouzaiene/otto/internal/capability"
)

// newRequestHumanAssistance registers the escalation entry point. The
// orchestrator intercepts this capability before execution and suspends the
// run, so the handler only fires if the capability is invoked outside a run.
func newRequestHumanAssistance() capability.Record {
	return builtin(
		"request_human_assistance",
		"Asks a human operator for help when no other capability can make progress. Describe exactly what you need.",
		`{"type":"object","properties":{"request":{"type":"string","description":"What you need from the operator"}},"required":["request"]}`,
		func(ctx context.Context, args map[string]any) (string, error) {
			return "assistance request recorded", nil
		},
	)
}
