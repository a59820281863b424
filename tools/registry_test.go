package tools_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cellpilot/cellpilot/core/protocol"
	"github.com/cellpilot/cellpilot/tools"
)

func testTool(name string) protocol.Tool {
	return protocol.Tool{
		Name:        name,
		Description: "test tool: " + name,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"input": map[string]any{"type": "string"},
			},
		},
	}
}

func echoHandler(_ context.Context, args map[string]any) (tools.Result, error) {
	input, _ := args["input"].(string)
	return tools.Result{Content: input}, nil
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name    string
		tool    protocol.Tool
		wantErr error
	}{
		{
			name: "valid tool",
			tool: testTool("register_valid"),
		},
		{
			name:    "empty name",
			tool:    protocol.Tool{Name: ""},
			wantErr: tools.ErrEmptyName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tools.NewRegistry()
			err := r.Register(tt.tool, echoHandler)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Errorf("Register() unexpected error: %v", err)
			}
		})
	}
}

func TestRegister_Duplicate(t *testing.T) {
	r := tools.NewRegistry()
	tool := testTool("register_duplicate")

	if err := r.Register(tool, echoHandler); err != nil {
		t.Fatalf("first Register() failed: %v", err)
	}

	err := r.Register(tool, echoHandler)
	if !errors.Is(err, tools.ErrAlreadyExists) {
		t.Errorf("second Register() error = %v, want %v", err, tools.ErrAlreadyExists)
	}
}

func TestExecute(t *testing.T) {
	r := tools.NewRegistry()
	if err := r.Register(testTool("echo"), echoHandler); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	result, err := r.Execute(context.Background(), "echo", map[string]any{"input": "hi"})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}
	if result.Content != "hi" || result.IsError {
		t.Errorf("Execute() result = %+v", result)
	}
}

func TestExecute_NotFound(t *testing.T) {
	r := tools.NewRegistry()

	_, err := r.Execute(context.Background(), "missing", nil)
	if !errors.Is(err, tools.ErrNotFound) {
		t.Errorf("Execute() error = %v, want %v", err, tools.ErrNotFound)
	}
}

func TestExecute_HandlerErrorBecomesResult(t *testing.T) {
	r := tools.NewRegistry()
	err := r.Register(testTool("fails"), func(_ context.Context, _ map[string]any) (tools.Result, error) {
		return tools.Result{}, errors.New("handler exploded")
	})
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	result, err := r.Execute(context.Background(), "fails", nil)
	if err != nil {
		t.Fatalf("Execute() propagated handler error: %v", err)
	}
	if !result.IsError || !strings.Contains(result.Content, "handler exploded") {
		t.Errorf("Execute() result = %+v, want error result", result)
	}
}

func TestList(t *testing.T) {
	r := tools.NewRegistry()
	for _, name := range []string{"alpha", "beta"} {
		if err := r.Register(testTool(name), echoHandler); err != nil {
			t.Fatalf("Register(%s) failed: %v", name, err)
		}
	}

	if got := len(r.List()); got != 2 {
		t.Errorf("len(List()) = %d, want 2", got)
	}
	if !r.Has("alpha") || r.Has("gamma") {
		t.Error("Has() reported wrong membership")
	}
}
