package host

import (
	"fmt"
	"strings"

	"github.com/cellpilot/cellpilot/core/protocol"
)

// History tracks which part of the host's execution history has already
// been folded into the conversation. The cursor advances after each
// completed turn so the next prompt carries only what the agent has not
// seen.
type History struct {
	session  Session
	lastLine int
}

// NewHistory creates a History over the given session with the cursor at
// the start of the host history.
func NewHistory(session Session) *History {
	return &History{session: session}
}

// ResetCursor rewinds so the whole history counts as unseen.
func (h *History) ResetCursor() {
	h.lastLine = 0
}

// Advance moves the cursor to the latest executed entry.
func (h *History) Advance() {
	entries, err := h.session.HistoryRange(1, 0)
	if err != nil || len(entries) == 0 {
		return
	}
	h.lastLine = entries[len(entries)-1].Line
}

// FormatCell renders one history entry as tagged input/output blocks.
func FormatCell(entry protocol.HistoryEntry) string {
	var parts []string
	parts = append(parts,
		fmt.Sprintf("<cell-in-%d>", entry.Line),
		strings.TrimSpace(entry.Input),
		fmt.Sprintf("</cell-in-%d>", entry.Line),
	)
	if entry.HasOutput {
		parts = append(parts,
			fmt.Sprintf("<cell-out-%d>", entry.Line),
			entry.Output,
			fmt.Sprintf("</cell-out-%d>", entry.Line),
		)
	}
	return strings.Join(parts, "\n")
}

// driver invocations of the pilot itself are not useful agent context.
func isDriverCommand(input string) bool {
	trimmed := strings.TrimSpace(input)
	return strings.HasPrefix(trimmed, "%cc") || strings.HasPrefix(trimmed, "%%cc")
}

// OutputSince formats all executions after the fold-in cursor. Returns the
// empty string when nothing new happened.
func (h *History) OutputSince() string {
	entries, err := h.session.HistoryRange(h.lastLine+1, 0)
	if err != nil || len(entries) == 0 {
		return ""
	}

	var cells []string
	for _, entry := range entries {
		if entry.Input == "" || isDriverCommand(entry.Input) {
			continue
		}
		cells = append(cells, FormatCell(entry))
	}
	if len(cells) == 0 {
		return ""
	}
	return "\nRecent host cell executions (Note: Only return values are captured, printed text is not shown):\n" +
		strings.Join(cells, "\n") + "\n"
}

// LastCells formats a bounded window of prior executions for the opening
// prompt of a new conversation: n = -1 loads everything, 0 loads nothing,
// n > 0 loads the last n entries.
func (h *History) LastCells(n int) string {
	if n == 0 {
		return ""
	}

	start := 1
	if n > 0 {
		start = -n
	}
	entries, err := h.session.HistoryRange(start, 0)
	if err != nil || len(entries) == 0 {
		return ""
	}

	cells := []string{"Last executed cells from this session:"}
	for _, entry := range entries {
		if entry.Input == "" || isDriverCommand(entry.Input) {
			continue
		}
		cells = append(cells, FormatCell(entry))
	}
	if len(cells) == 1 {
		return ""
	}
	return strings.Join(cells, "\n\n")
}
