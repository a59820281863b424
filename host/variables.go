package host

import (
	"fmt"
	"sort"
	"strings"
)

const reprMax = 100

// TruncatedRepr renders a value for the agent, capped at max characters
// with a "..." suffix. A max too small to hold the suffix uses the
// package default.
func TruncatedRepr(value any, max int) string {
	if max <= len("...") {
		max = reprMax
	}
	r := fmt.Sprintf("%#v", value)
	if len(r) > max {
		return r[:max-3] + "..."
	}
	return r
}

func typeName(value any) string {
	if value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}

// Tracker reports changes in the host namespace between turns. It keeps a
// snapshot of truncated representations and diffs against it on each call,
// so the agent only sees what moved.
type Tracker struct {
	session Session
	prev    map[string]string
}

// NewTracker creates a Tracker over the given session.
func NewTracker(session Session) *Tracker {
	return &Tracker{session: session, prev: map[string]string{}}
}

// Reset forgets the previous snapshot so the next Changes call reports the
// full namespace as new.
func (t *Tracker) Reset() {
	t.prev = map[string]string{}
}

// Changes returns a formatted description of variables added, modified, or
// removed since the last call, and advances the snapshot.
func (t *Tracker) Changes() string {
	vars := UserVariables(t.session.Variables())

	if len(vars) == 0 && len(t.prev) == 0 {
		return "The host session has no user-defined variables."
	}

	var added, modified, removed []string
	current := make(map[string]string, len(vars))
	for name, value := range vars {
		repr := TruncatedRepr(value, reprMax)
		current[name] = repr
		prev, existed := t.prev[name]
		if !existed {
			added = append(added, name)
		} else if prev != repr {
			modified = append(modified, name)
		}
	}
	for name := range t.prev {
		if _, exists := vars[name]; !exists {
			removed = append(removed, name)
		}
	}

	t.prev = current

	sort.Strings(added)
	sort.Strings(modified)
	sort.Strings(removed)

	var lines []string
	if len(added) > 0 {
		lines = append(lines, "New variables:")
		for _, name := range added {
			lines = append(lines, fmt.Sprintf("  + %s: %s = %s", name, typeName(vars[name]), current[name]))
		}
	}
	if len(modified) > 0 {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, "Modified variables:")
		for _, name := range modified {
			lines = append(lines, fmt.Sprintf("  ~ %s: %s = %s", name, typeName(vars[name]), current[name]))
		}
	}
	if len(removed) > 0 {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, "Removed variables:")
		for _, name := range removed {
			lines = append(lines, "  - "+name)
		}
	}

	if len(lines) == 0 {
		return "No variable changes detected since last interaction."
	}
	return "Variable changes in host session:\n" + strings.Join(lines, "\n")
}
