package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/otto/internal/capability"
	"github.com/ChamsBouzaiene/otto/internal/memory"
)

func newRetrieveFromMemory(mem *memory.Client) capability.Record {
	return builtin(
		"retrieve_from_memory",
		"Retrieves previously stored context relevant to a query.",
		`{"type":"object","properties":{"query":{"type":"string","description":"What to look up"}},"required":["query"]}`,
		func(ctx context.Context, args map[string]any) (string, error) {
			query, ok := args["query"].(string)
			if !ok || strings.TrimSpace(query) == "" {
				return "", fmt.Errorf("query must be a non-empty string")
			}

			recalled, err := mem.Query(ctx, query)
			if err != nil {
				return "", fmt.Errorf("memory query failed: %w", err)
			}
			if len(recalled) == 0 {
				return "nothing relevant found in memory", nil
			}

			var b strings.Builder
			for _, r := range recalled {
				fmt.Fprintf(&b, "- %s\n", r.Content)
			}
			return b.String(), nil
		},
	)
}

func newAddToMemory(mem *memory.Client) capability.Record {
	return builtin(
		"add_to_memory",
		"Stores a fact or observation for later recall.",
		`{"type":"object","properties":{"text":{"type":"string","description":"The text to remember"}},"required":["text"]}`,
		func(ctx context.Context, args map[string]any) (string, error) {
			text, ok := args["text"].(string)
			if !ok || strings.TrimSpace(text) == "" {
				return "", fmt.Errorf("text must be a non-empty string")
			}
			if err := mem.Add(ctx, text); err != nil {
				return "", fmt.Errorf("memory add failed: %w", err)
			}
			return "stored", nil
		},
	)
}
