package tools

import (
	"context"
	"fmt"

	"github.com/cellpilot/cellpilot/core/protocol"
)

// CellToolName is the tool the agent calls to propose an executable cell.
const CellToolName = "create_python_cell"

// CellCreator enqueues an agent-proposed cell and returns the message to
// report back. The turn controller implements this over the active batch.
type CellCreator interface {
	CreateCell(code, description, invocationID string) (string, error)
}

// RegisterCellTool registers the cell-creation tool against the given
// creator. The invocation id is threaded through from the event stream by
// the dispatcher via the reserved "invocation_id" argument key.
func RegisterCellTool(r *Registry, creator CellCreator) error {
	def := protocol.Tool{
		Name:        CellToolName,
		Description: "Create a cell with Python code in the host environment",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"code":        map[string]any{"type": "string"},
				"description": map[string]any{"type": "string"},
			},
			"required": []string{"code"},
		},
	}

	return r.Register(def, func(ctx context.Context, args map[string]any) (Result, error) {
		code, _ := args["code"].(string)
		description, _ := args["description"].(string)
		invocationID, _ := args["invocation_id"].(string)

		if code == "" {
			return Result{Content: "No code provided", IsError: true}, nil
		}

		message, err := creator.CreateCell(code, description, invocationID)
		if err != nil {
			return Result{Content: fmt.Sprintf("Error creating cell: %v", err), IsError: true}, nil
		}
		return Result{Content: message}, nil
	})
}
