package pilot

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"unicode/utf8"

	"github.com/cellpilot/cellpilot/display"
)

// Configuration setters take effect on the next query. When a
// conversation is already in progress the change only applies after the
// user starts a new one, and each setter says so.

func (p *Pilot) pickupMessage() string {
	if p.state.NewConversation() {
		return "Will apply to the next query."
	}
	return "Start a new conversation for this setting to apply."
}

// SetMaxCells changes the per-turn cell cap.
func (p *Pilot) SetMaxCells(n int) {
	if n < 1 {
		p.sink.Status(display.KindError, "Max cells must be at least 1")
		return
	}
	p.mu.Lock()
	old := p.cfg.MaxCells
	p.cfg.MaxCells = n
	p.mu.Unlock()
	p.sink.Status(display.KindInfo,
		fmt.Sprintf("Set max cells from %d to %d. %s", old, n, p.pickupMessage()))
}

// SetModel changes the model serving the conversation.
func (p *Pilot) SetModel(name string) {
	if name == "" {
		p.sink.Status(display.KindError, "Model name must not be empty")
		return
	}
	p.mu.Lock()
	p.cfg.Model = name
	p.mu.Unlock()
	p.sink.Status(display.KindSuccess, fmt.Sprintf("Set model to %s. %s", name, p.pickupMessage()))
}

// SetCellsToLoad bounds the history window loaded into new conversations:
// -1 all, 0 none, n the last n.
func (p *Pilot) SetCellsToLoad(n int) {
	if n < -1 {
		p.sink.Status(display.KindError, "Number of cells must be -1 (all), 0 (none), or positive")
		return
	}
	p.mu.Lock()
	p.cfg.CellsToLoad = n
	p.cellsToLoadUserSet = true
	p.mu.Unlock()

	switch {
	case n == 0:
		p.sink.Status(display.KindSuccess, "Disabled loading recent cells when starting new conversations")
	case n == -1:
		p.sink.Status(display.KindSuccess, "Will load all available cells when starting new conversations")
	default:
		p.sink.Status(display.KindSuccess,
			fmt.Sprintf("Will load up to %d recent cell(s) when starting new conversations", n))
	}
}

// AddImportedFile adds a readable text file to the opening-prompt imports.
func (p *Pilot) AddImportedFile(path string) {
	resolved, err := filepath.Abs(path)
	if err != nil {
		p.sink.Status(display.KindError, "Import failed: "+err.Error())
		return
	}

	if !isReadableText(resolved) {
		p.sink.Status(display.KindError,
			fmt.Sprintf("Import failed: %s does not exist or is not a plaintext file.", filepath.Base(resolved)))
		return
	}

	p.mu.Lock()
	already := slices.Contains(p.cfg.ImportedFiles, resolved)
	if !already {
		p.cfg.ImportedFiles = append(p.cfg.ImportedFiles, resolved)
	}
	p.mu.Unlock()

	if already {
		p.sink.Status(display.KindInfo, fmt.Sprintf("%s is already in the import list.", resolved))
		return
	}
	p.sink.Status(display.KindSuccess,
		fmt.Sprintf("Added %s to import list. %s", filepath.Base(resolved), p.pickupMessage()))
}

// AddDirectory adds an existing directory to the agent's accessible set.
func (p *Pilot) AddDirectory(path string) {
	resolved, err := filepath.Abs(path)
	if err != nil {
		p.sink.Status(display.KindError, "Could not resolve directory: "+err.Error())
		return
	}

	info, err := os.Stat(resolved)
	if err != nil {
		p.sink.Status(display.KindError, "Directory not found: "+resolved)
		return
	}
	if !info.IsDir() {
		p.sink.Status(display.KindError, "Path is not a directory: "+resolved)
		return
	}

	p.mu.Lock()
	already := slices.Contains(p.cfg.AddedDirectories, resolved)
	if !already {
		p.cfg.AddedDirectories = append(p.cfg.AddedDirectories, resolved)
	}
	p.mu.Unlock()

	if already {
		p.sink.Status(display.KindInfo, fmt.Sprintf("%s is already in the accessible directories list.", resolved))
		return
	}
	p.sink.Status(display.KindSuccess,
		fmt.Sprintf("Added %s to accessible directories. %s", resolved, p.pickupMessage()))
}

// SetMCPConfigFile points the pilot at a .mcp.json server config file.
func (p *Pilot) SetMCPConfigFile(path string) {
	resolved, err := filepath.Abs(path)
	if err != nil {
		p.sink.Status(display.KindError, "Could not resolve path: "+err.Error())
		return
	}
	p.mu.Lock()
	p.cfg.MCPConfigFile = resolved
	p.mu.Unlock()
	p.sink.Status(display.KindSuccess,
		fmt.Sprintf("Set MCP config file to %s. %s", resolved, p.pickupMessage()))
}

// SetCleanup toggles replacing prompt units with staged cells in place.
func (p *Pilot) SetCleanup(enabled bool) {
	p.mu.Lock()
	p.cfg.Cleanup = enabled
	p.mu.Unlock()

	maybeNot := ""
	if !enabled {
		maybeNot = "not "
	}
	p.sink.Status(display.KindInfo,
		fmt.Sprintf("Persistent preference set. For the rest of this session, prompt cells will %sbe cleaned up after executing.", maybeNot))
}

// isReadableText checks that a file exists and its head decodes as UTF-8.
func isReadableText(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, 1024)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return false
	}
	head := buf[:n]
	// A full read may split the final rune; allow up to three trailing
	// continuation bytes before judging.
	for trim := 0; trim <= 3 && trim < len(head); trim++ {
		if utf8.Valid(head[:len(head)-trim]) {
			return true
		}
	}
	return len(head) == 0
}
