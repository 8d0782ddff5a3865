package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/otto/internal/agent"
	"github.com/ChamsBouzaiene/otto/internal/capability"
	"github.com/ChamsBouzaiene/otto/internal/memory"
)

const defaultMaxOutputTokens = 4096

// Gateway adapts a provider Client to the orchestrator's proposal contract.
// It owns prompt construction and response parsing; the orchestrator never
// sees provider messages, only proposals.
type Gateway struct {
	client   Client
	registry *capability.Registry
	memory   *memory.Client // optional, enriches views with recalled context
	opts     ChatOptions
}

// NewGateway wires a gateway over a provider client. mem may be nil.
func NewGateway(client Client, reg *capability.Registry, mem *memory.Client) *Gateway {
	return &Gateway{
		client:   client,
		registry: reg,
		memory:   mem,
		opts:     ChatOptions{MaxOutputTokens: defaultMaxOutputTokens, Temperature: 0.1},
	}
}

const proposeSystemPrompt = `You are an autonomous task execution agent.
You are given a goal, an optional plan, the history of actions taken so far,
and a set of callable tools. Decide the single next step.

Rules:
- To act, call exactly one tool.
- When the goal is fully achieved, reply with plain text: a final report for
  the user, no tool call.
- Never repeat an action that just failed with identical arguments; change
  the arguments or pick a different tool.
- If you are stuck and no tool can make progress, call
  request_human_assistance with a clear description of what you need.`

// Propose implements agent.Oracle.
func (g *Gateway) Propose(ctx context.Context, view agent.View) (agent.Proposal, error) {
	user := g.renderView(ctx, view)
	resp, err := g.client.Chat(ctx, []ChatMessage{
		{Role: RoleSystem, Content: proposeSystemPrompt},
		{Role: RoleUser, Content: user},
	}, g.toolSchemas(), g.opts)
	if err != nil {
		return agent.Proposal{}, fmt.Errorf("%w: %v", agent.ErrOracleUnavailable, err)
	}
	return parseProposal(resp)
}

const planSystemPrompt = `You are a planning assistant for an autonomous agent.
Produce a short numbered plan (3-7 steps) for achieving the goal with the
available tools. Reply with the plan only, no preamble.`

// Plan implements agent.Planner. A failed planning call is not fatal to a
// run, so callers treat errors as "no plan".
func (g *Gateway) Plan(ctx context.Context, goal string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n\nAvailable tools:\n", goal)
	for _, s := range g.registry.Summaries() {
		fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Description)
	}
	resp, err := g.client.Chat(ctx, []ChatMessage{
		{Role: RoleSystem, Content: planSystemPrompt},
		{Role: RoleUser, Content: b.String()},
	}, nil, g.opts)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func (g *Gateway) renderView(ctx context.Context, view agent.View) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n", view.Goal)
	if view.Plan != "" {
		fmt.Fprintf(&b, "\nPlan:\n%s\n", view.Plan)
	}

	if g.memory != nil {
		if recalled, err := g.memory.Query(ctx, view.Goal); err == nil && len(recalled) > 0 {
			b.WriteString("\nRecalled context:\n")
			for _, r := range recalled {
				fmt.Fprintf(&b, "- %s\n", r.Content)
			}
		}
	}

	if len(view.History) > 0 {
		b.WriteString("\nHistory:\n")
		for _, e := range view.History {
			switch e.Kind {
			case agent.EntryGoal:
				continue
			case agent.EntryAction:
				fmt.Fprintf(&b, "- ran %s: %s\n", e.Action, e.Content)
			case agent.EntryFailure:
				fmt.Fprintf(&b, "- FAILED %s: %s\n", e.Action, e.Content)
			default:
				fmt.Fprintf(&b, "- %s\n", e.Content)
			}
		}
	}

	if len(view.Failures) > 0 {
		b.WriteString("\nRecent failures (action: class):\n")
		for _, f := range view.Failures {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	b.WriteString("\nDecide the next step.")
	return b.String()
}

func (g *Gateway) toolSchemas() []ToolSchema {
	summaries := g.registry.Summaries()
	tools := make([]ToolSchema, 0, len(summaries))
	for _, s := range summaries {
		schema := s.SchemaJSON
		if schema == "" {
			schema = `{"type":"object","properties":{}}`
		}
		tools = append(tools, ToolSchema{
			Name:        s.Name,
			Description: s.Description,
			JSONSchema:  schema,
		})
	}
	return tools
}
