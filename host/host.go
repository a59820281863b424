// Package host defines the boundary to the interactive session that
// actually executes code: staging input units, reading execution history,
// and reading namespace variables. Everything above this boundary treats
// the session as read-only except for StageCell.
package host

import "github.com/cellpilot/cellpilot/core/protocol"

// Session is the accessor the pilot uses to reach the interactive host.
// Implementations wrap a concrete kernel or REPL; the pilot never touches
// host internals directly.
type Session interface {
	// StageCell places code as the next editable input unit. When replace
	// is true the current unit is overwritten instead of a new one being
	// inserted below.
	StageCell(code string, replace bool) error

	// HistoryRange returns executed entries in order. A negative start
	// selects the last -start entries; a positive start selects entries
	// from that line onward. stop <= 0 means "through the latest entry".
	HistoryRange(start, stop int) ([]protocol.HistoryEntry, error)

	// Variables returns the current user-defined namespace.
	Variables() map[string]any
}

// filtered names never shown to the agent, alongside underscore-prefixed
// internals.
var filteredNames = map[string]bool{
	"In":   true,
	"Out":  true,
	"exit": true,
	"quit": true,
}

// UserVariables filters a raw namespace down to user-defined entries.
func UserVariables(ns map[string]any) map[string]any {
	out := make(map[string]any, len(ns))
	for name, value := range ns {
		if len(name) > 0 && name[0] == '_' {
			continue
		}
		if filteredNames[name] {
			continue
		}
		out[name] = value
	}
	return out
}
