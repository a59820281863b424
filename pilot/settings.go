package pilot

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/cellpilot/cellpilot/display"
)

const settingsRelPath = ".claude/settings.local.json"

// defaultPermissions is the tool allowlist written into a fresh settings
// file.
var defaultPermissions = map[string]any{
	"permissions": map[string]any{
		"allow": []string{"Bash", "Glob", "Grep", "Read", "Edit", "Write", "WebSearch", "WebFetch"},
	},
}

// EnsureSettings creates the local settings file under dir if it does not
// exist yet. Reports whether the file was created.
func EnsureSettings(dir string) (bool, error) {
	path := filepath.Join(dir, filepath.FromSlash(settingsRelPath))
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}

	data, err := json.MarshalIndent(defaultPermissions, "", "  ")
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// SecurityNotice surfaces the capability warning shown at load time.
// created reports whether EnsureSettings just wrote the settings file.
func SecurityNotice(sink display.Sink, created bool) {
	lines := []string{
		"WARNING: the agent has permissions for Bash, Read, Write, Edit, WebSearch, WebFetch",
		"",
		"The agent can execute shell commands, read/write/edit files, and access the web.",
		"Only use in trusted environments.",
		"",
	}
	if created {
		lines = append(lines, "Created "+settingsRelPath+" with default permissions.")
	}
	lines = append(lines, "Consider removing "+settingsRelPath+" when done.")
	sink.Status(display.KindWarning, strings.Join(lines, "\n"))
}
