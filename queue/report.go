package queue

import (
	"fmt"
	"strings"

	"github.com/cellpilot/cellpilot/core/protocol"
)

// ReportHeader opens every continuation report.
const ReportHeader = "Previous code execution results for requested code cells:"

// Report enumerates the batch's records for the next prompt: what ran,
// what failed, and what the user skipped. history supplies recent host
// entries so successful cells can carry their output; pass nil when
// outputs are unavailable.
func Report(records []CellRecord, history []protocol.HistoryEntry) string {
	entries := make([]string, 0, len(records))
	for i, rec := range records {
		var prefix string
		if rec.InvocationID != "" {
			prefix = fmt.Sprintf("Tool use %s: ", rec.InvocationID)
		} else {
			prefix = fmt.Sprintf("Code cell %d: ", i+1)
		}
		entries = append(entries, prefix+describeRecord(rec, history))
	}
	return ReportHeader + "\n" + strings.Join(entries, "\n\n")
}

func describeRecord(rec CellRecord, history []protocol.HistoryEntry) string {
	if !rec.Executed {
		return "Not executed by user"
	}
	if rec.HadException {
		if rec.Error != nil {
			return fmt.Sprintf("Executed but encountered %s: %s", rec.Error.Kind, rec.Error.Message)
		}
		return "Executed but encountered an error"
	}
	if output, ok := lookupOutput(rec, history); ok {
		return "Executed successfully with output:\n" + output
	}
	return "Executed successfully (no output)"
}

// lookupOutput finds the host output of an executed record by matching the
// record's code (marked or original) against recent history entries.
func lookupOutput(rec CellRecord, history []protocol.HistoryEntry) (string, bool) {
	marked := strings.TrimSpace(rec.Code)
	original := strings.TrimSpace(rec.OriginalCode)
	for _, entry := range history {
		input := strings.TrimSpace(entry.Input)
		if input != marked && input != original {
			continue
		}
		if entry.HasOutput {
			return entry.Output, true
		}
		return "", false
	}
	return "", false
}
