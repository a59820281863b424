package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cellpilot/cellpilot/core/protocol"
	"github.com/cellpilot/cellpilot/host"
)

const inspectReprMax = 10_000

// RegisterInspectionTools registers list_variables and inspect_variable
// against the given host session, so the agent can examine kernel state
// without creating code cells.
func RegisterInspectionTools(r *Registry, session host.Session) error {
	listDef := protocol.Tool{
		Name:        "list_variables",
		Description: "List all user-defined variables in the host session with their types and values",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
	}
	if err := r.Register(listDef, func(ctx context.Context, args map[string]any) (Result, error) {
		return listVariables(session), nil
	}); err != nil {
		return err
	}

	inspectDef := protocol.Tool{
		Name:        "inspect_variable",
		Description: "Get detailed information about a specific variable in the host session",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string"},
			},
			"required": []string{"name"},
		},
	}
	return r.Register(inspectDef, func(ctx context.Context, args map[string]any) (Result, error) {
		name, _ := args["name"].(string)
		if name == "" {
			return Result{Content: "Parameter 'name' is required", IsError: true}, nil
		}
		return inspectVariable(session, name), nil
	})
}

func listVariables(session host.Session) Result {
	vars := host.UserVariables(session.Variables())
	if len(vars) == 0 {
		return Result{Content: "No user-defined variables in the session."}
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names)+1)
	lines = append(lines, fmt.Sprintf("%d variable(s):", len(names)))
	for _, name := range names {
		value := vars[name]
		lines = append(lines, fmt.Sprintf("  %s: %T = %s", name, value, host.TruncatedRepr(value, 0)))
	}
	return Result{Content: strings.Join(lines, "\n")}
}

func inspectVariable(session host.Session, name string) Result {
	value, ok := session.Variables()[name]
	if !ok {
		return Result{Content: fmt.Sprintf("Variable %q not found in session namespace", name), IsError: true}
	}

	lines := []string{
		"Name: " + name,
		fmt.Sprintf("Type: %T", value),
		"Value: " + host.TruncatedRepr(value, inspectReprMax),
	}

	switch v := value.(type) {
	case map[string]any:
		lines = append(lines, fmt.Sprintf("Details:\n  length: %d", len(v)))
	case []any:
		lines = append(lines, fmt.Sprintf("Details:\n  length: %d", len(v)))
	case string:
		lines = append(lines, fmt.Sprintf("Details:\n  length: %d", len(v)))
	}

	return Result{Content: strings.Join(lines, "\n")}
}
