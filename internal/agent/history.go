package agent

import (
	"fmt"
	"strings"
)

// HistoryConfig bounds the run history.
type HistoryConfig struct {
	MaxEntries int // prune when history grows past this
	RetainTail int // most recent raw entries kept verbatim through pruning
}

// DefaultHistoryConfig returns the default history bounds.
func DefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		MaxEntries: 40,
		RetainTail: 10,
	}
}

// History is the bounded, ordered record of actions and results for one run.
// It is append-only except for Prune, which collapses an old prefix into one
// synthesized summary entry. The goal entry at index 0 survives every prune.
type History struct {
	cfg     HistoryConfig
	entries []HistoryEntry
}

// NewHistory creates a history seeded with the goal entry.
func NewHistory(cfg HistoryConfig, goal string) *History {
	if cfg.MaxEntries <= 0 {
		cfg = DefaultHistoryConfig()
	}
	if cfg.RetainTail >= cfg.MaxEntries {
		cfg.RetainTail = cfg.MaxEntries / 2
	}
	return &History{
		cfg:     cfg,
		entries: []HistoryEntry{{Kind: EntryGoal, Content: goal}},
	}
}

// Append adds an entry to the history.
func (h *History) Append(e HistoryEntry) { h.entries = append(h.entries, e) }

// Len returns the current number of entries.
func (h *History) Len() int { return len(h.entries) }

// Entries returns a copy of the history in order.
func (h *History) Entries() []HistoryEntry {
	return append([]HistoryEntry(nil), h.entries...)
}

// Tail returns up to n of the most recent entries.
func (h *History) Tail(n int) []HistoryEntry {
	if n <= 0 || n >= len(h.entries) {
		return h.Entries()
	}
	return append([]HistoryEntry(nil), h.entries[len(h.entries)-n:]...)
}

// Goal returns the immutable goal entry content.
func (h *History) Goal() string { return h.entries[0].Content }

// Prune collapses the oldest entries beyond the retained tail into one
// synthesized summary entry once the history exceeds MaxEntries. The goal
// entry and the tail are preserved verbatim, the result is strictly shorter,
// and the synthesis is deterministic given the same history and config.
func (h *History) Prune() bool {
	if len(h.entries) <= h.cfg.MaxEntries {
		return false
	}

	// Everything between the goal and the retained tail gets collapsed.
	tailStart := len(h.entries) - h.cfg.RetainTail
	if tailStart <= 1 {
		return false
	}
	old := h.entries[1:tailStart]

	summary := synthesizeSummary(old)
	pruned := make([]HistoryEntry, 0, 2+h.cfg.RetainTail)
	pruned = append(pruned, h.entries[0], summary)
	pruned = append(pruned, h.entries[tailStart:]...)
	h.entries = pruned
	return true
}

// synthesizeSummary reduces a span of entries to one summary entry without
// calling the oracle, so pruning stays deterministic and reproducible.
func synthesizeSummary(old []HistoryEntry) HistoryEntry {
	var b strings.Builder
	fmt.Fprintf(&b, "[summary of %d earlier entries]", len(old))
	for _, e := range old {
		line := firstLine(e.Content)
		switch e.Kind {
		case EntrySummary:
			// Fold a previous summary in whole so nothing is lost twice.
			fmt.Fprintf(&b, "\n%s", e.Content)
		case EntryAction:
			fmt.Fprintf(&b, "\nok %s: %s", e.Action, line)
		case EntryFailure:
			fmt.Fprintf(&b, "\nfail %s: %s", e.Action, line)
		default:
			fmt.Fprintf(&b, "\nnote: %s", line)
		}
	}
	return HistoryEntry{Kind: EntrySummary, Content: b.String()}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	const maxLine = 160
	if len(s) > maxLine {
		s = s[:maxLine] + "..."
	}
	return s
}
