package oracle

import (
	"errors"
	"testing"

	"github.com/ChamsBouzaiene/otto/internal/agent"
)

func TestParseProposalToolCall(t *testing.T) {
	resp := ChatResponse{
		Text: "I'll fetch that for you.",
		ToolCalls: []ToolCall{
			{ID: "call_1", Name: "search_the_web", Args: map[string]any{"query": "go generics"}},
			{ID: "call_2", Name: "read_file", Args: map[string]any{"path": "a.txt"}},
		},
	}

	prop, err := parseProposal(resp)
	if err != nil {
		t.Fatalf("parseProposal failed: %v", err)
	}
	if err := prop.Validate(); err != nil {
		t.Fatalf("proposal invalid: %v", err)
	}
	// The first tool call wins; accompanying text is not a report.
	if prop.Action == nil || prop.Action.Name != "search_the_web" {
		t.Errorf("Action = %+v", prop.Action)
	}
	if prop.Report != nil {
		t.Error("tool-call response also produced a report")
	}
	if prop.Action.Args["query"] != "go generics" {
		t.Errorf("Args = %v", prop.Action.Args)
	}
}

func TestParseProposalReport(t *testing.T) {
	prop, err := parseProposal(ChatResponse{Text: "  The task is complete.\n"})
	if err != nil {
		t.Fatalf("parseProposal failed: %v", err)
	}
	if prop.Report == nil || prop.Report.Message != "The task is complete." {
		t.Errorf("Report = %+v", prop.Report)
	}
	if prop.Report.Status != agent.ReportSuccess {
		t.Errorf("Status = %q", prop.Report.Status)
	}
}

func TestParseProposalMalformed(t *testing.T) {
	tests := []struct {
		name string
		resp ChatResponse
	}{
		{"empty response", ChatResponse{}},
		{"whitespace only", ChatResponse{Text: "  \n "}},
		{"nameless tool call", ChatResponse{ToolCalls: []ToolCall{{ID: "call_1"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseProposal(tt.resp)
			if !errors.Is(err, agent.ErrOracleUnavailable) {
				t.Errorf("err = %v, want ErrOracleUnavailable", err)
			}
		})
	}
}

func TestParseProposalNilArgs(t *testing.T) {
	prop, err := parseProposal(ChatResponse{ToolCalls: []ToolCall{{ID: "c", Name: "x"}}})
	if err != nil {
		t.Fatalf("parseProposal failed: %v", err)
	}
	if prop.Action.Args == nil {
		t.Error("Args not defaulted to an empty map")
	}
}

func TestParseSynthesis(t *testing.T) {
	text := "Here is the capability:\n```json\n" +
		`{"name":"convert_pdf","description":"converts pdfs","schema":{"type":"object"},"language":"python","code":"print('hi')"}` +
		"\n```\nLet me know if you need changes."

	syn, err := parseSynthesis(text)
	if err != nil {
		t.Fatalf("parseSynthesis failed: %v", err)
	}
	if syn.Name != "convert_pdf" || syn.Language != "python" {
		t.Errorf("synthesis = %+v", syn)
	}
	if syn.SchemaJSON != `{"type":"object"}` {
		t.Errorf("SchemaJSON = %q", syn.SchemaJSON)
	}
	if syn.Code != "print('hi')" {
		t.Errorf("Code = %q", syn.Code)
	}
}

func TestParseSynthesisDefaultsLanguage(t *testing.T) {
	syn, err := parseSynthesis(`{"name":"x","code":"pass"}`)
	if err != nil {
		t.Fatalf("parseSynthesis failed: %v", err)
	}
	if syn.Language != "python" {
		t.Errorf("Language = %q, want python default", syn.Language)
	}
}

func TestParseSynthesisErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no json", "I cannot produce that capability."},
		{"empty code", `{"name":"x","code":""}`},
		{"broken json", `{"name": "x", "code": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseSynthesis(tt.text); err == nil {
				t.Error("parseSynthesis accepted malformed input")
			}
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"surrounded by prose", `sure: {"a":{"b":2}} done`, `{"a":{"b":2}}`},
		{"braces inside strings", `{"code":"if x { }"}`, `{"code":"if x { }"}`},
		{"escaped quotes", `{"code":"say \"hi\" {"}`, `{"code":"say \"hi\" {"}`},
		{"unbalanced", `{"a": 1`, ""},
		{"no object", "plain text", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSONObject(tt.in); got != tt.want {
				t.Errorf("extractJSONObject(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
