package pilot

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cellpilot/cellpilot/queue"
	"github.com/cellpilot/cellpilot/tools"
)

const (
	defaultModel    = "sonnet"
	defaultEndpoint = "http://127.0.0.1:8315"
)

// Config holds initialization parameters for the pilot.
type Config struct {
	// MaxCells caps how many cells the agent may create per turn.
	MaxCells int `json:"max_cells,omitempty"`

	// Model names the model serving the conversation.
	Model string `json:"model,omitempty"`

	// CellsToLoad bounds the prior-history window folded into the first
	// prompt of a new conversation: -1 loads everything, 0 nothing, n the
	// last n cells.
	CellsToLoad int `json:"cells_to_load,omitempty"`

	// ImportedFiles are read and prepended to the opening prompt.
	ImportedFiles []string `json:"imported_files,omitempty"`

	// AddedDirectories extend the agent's accessible directories.
	AddedDirectories []string `json:"added_directories,omitempty"`

	// MCPConfigFile points at a .mcp.json file with extra server configs.
	MCPConfigFile string `json:"mcp_config_file,omitempty"`

	// AllowedTools is the capability allowlist sent with each query.
	AllowedTools []string `json:"allowed_tools,omitempty"`

	// Cleanup makes staged cells replace the prompting unit in place.
	Cleanup bool `json:"cleanup,omitempty"`

	// Endpoint is the base URL of the agent runtime.
	Endpoint string `json:"endpoint,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxCells: queue.DefaultMaxCells,
		Model:    defaultModel,
		// -1 so the first conversation of a session sees all prior cells.
		CellsToLoad: -1,
		AllowedTools: []string{
			"Bash", "LS", "Grep", "Read", "Edit", "MultiEdit",
			"Write", "WebSearch", "WebFetch", tools.CellToolName,
		},
		Endpoint: defaultEndpoint,
	}
}

// Merge applies non-zero values from source into c. CellsToLoad's zero
// value is indistinguishable from "unset" here; disabling history loading
// goes through SetCellsToLoad instead.
func (c *Config) Merge(source *Config) {
	if source.MaxCells > 0 {
		c.MaxCells = source.MaxCells
	}
	if source.Model != "" {
		c.Model = source.Model
	}
	if source.CellsToLoad != 0 {
		c.CellsToLoad = source.CellsToLoad
	}
	if len(source.ImportedFiles) > 0 {
		c.ImportedFiles = source.ImportedFiles
	}
	if len(source.AddedDirectories) > 0 {
		c.AddedDirectories = source.AddedDirectories
	}
	if source.MCPConfigFile != "" {
		c.MCPConfigFile = source.MCPConfigFile
	}
	if len(source.AllowedTools) > 0 {
		c.AllowedTools = source.AllowedTools
	}
	if source.Cleanup {
		c.Cleanup = source.Cleanup
	}
	if source.Endpoint != "" {
		c.Endpoint = source.Endpoint
	}
}

// LoadConfig reads a JSON config file, merges it with defaults, and
// returns the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
