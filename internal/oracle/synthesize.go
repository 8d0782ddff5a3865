package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/otto/internal/capability"
)

const synthesizeSystemPrompt = `You are a capability synthesizer for an
autonomous agent. Given the name of a missing capability and the failure
that revealed it, produce a small self-contained script implementing it.

The script receives its arguments as a single JSON object in argv[1] and
must print its result to stdout. Exit non-zero on failure.

Reply with a single JSON object, no markdown fences, with exactly these
keys:
{
  "name": "capability_name",
  "description": "one line describing what it does",
  "schema": {"type": "object", "properties": {...}, "required": [...]},
  "language": "python" or "bash",
  "code": "the full script source"
}`

// Synthesize implements capability.Synthesizer.
func (g *Gateway) Synthesize(ctx context.Context, req capability.SynthesisRequest) (capability.Synthesis, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Missing capability: %s\n", req.Name)
	fmt.Fprintf(&b, "Failure that revealed it: %s\n", req.Reason)
	if req.Discovery != "" {
		fmt.Fprintf(&b, "\nResearch notes:\n%s\n", req.Discovery)
	}

	resp, err := g.client.Chat(ctx, []ChatMessage{
		{Role: RoleSystem, Content: synthesizeSystemPrompt},
		{Role: RoleUser, Content: b.String()},
	}, nil, g.opts)
	if err != nil {
		return capability.Synthesis{}, err
	}
	return parseSynthesis(resp.Text)
}

// parseSynthesis extracts the synthesis JSON from a model reply, tolerating
// markdown fences and surrounding prose.
func parseSynthesis(text string) (capability.Synthesis, error) {
	raw := extractJSONObject(text)
	if raw == "" {
		return capability.Synthesis{}, fmt.Errorf("no JSON object in synthesis response")
	}

	var payload struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Schema      json.RawMessage `json:"schema"`
		Language    string          `json:"language"`
		Code        string          `json:"code"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return capability.Synthesis{}, fmt.Errorf("malformed synthesis JSON: %w", err)
	}
	if payload.Code == "" {
		return capability.Synthesis{}, fmt.Errorf("synthesis produced no code")
	}
	if payload.Language == "" {
		payload.Language = "python"
	}

	return capability.Synthesis{
		Name:        payload.Name,
		Description: payload.Description,
		SchemaJSON:  string(payload.Schema),
		Language:    payload.Language,
		Code:        payload.Code,
	}, nil
}

// extractJSONObject returns the first balanced top-level JSON object in s,
// skipping braces inside string literals.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
