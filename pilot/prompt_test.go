package pilot_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cellpilot/cellpilot/pilot"
)

func TestSystemPrompt(t *testing.T) {
	tests := []struct {
		name     string
		terminal bool
		want     []string
		notWant  []string
	}{
		{
			name:     "terminal",
			terminal: true,
			want: []string{
				"shared interactive session",
				"You can only call create_python_cell once",
			},
			notWant: []string{"notebook session"},
		},
		{
			name:     "notebook",
			terminal: false,
			want: []string{
				"notebook session",
				"You can make at most 3 calls per turn",
				"list_variables",
				"inspect_variable",
			},
			notWant: []string{"shared interactive session"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pilot.SystemPrompt(tt.terminal, 3)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("SystemPrompt() missing %q", want)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(got, notWant) {
					t.Errorf("SystemPrompt() must not contain %q", notWant)
				}
			}
		})
	}
}

func TestImportedFilesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(path, []byte("remember the milk"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	got := pilot.ImportedFilesContent([]string{path, filepath.Join(dir, "missing.txt")})

	if !strings.Contains(got, "Files imported by the user for your reference") {
		t.Errorf("content missing header:\n%s", got)
	}
	if !strings.Contains(got, "notes.md:") || !strings.Contains(got, "remember the milk") {
		t.Errorf("content missing file block:\n%s", got)
	}
	if strings.Contains(got, "missing.txt") {
		t.Errorf("content references unreadable file:\n%s", got)
	}
}

func TestImportedFilesContent_Empty(t *testing.T) {
	if got := pilot.ImportedFilesContent(nil); got != "" {
		t.Errorf("ImportedFilesContent(nil) = %q, want empty", got)
	}
	if got := pilot.ImportedFilesContent([]string{"/does/not/exist"}); got != "" {
		t.Errorf("ImportedFilesContent(missing) = %q, want empty", got)
	}
}
