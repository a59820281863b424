package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cellpilot/cellpilot/core/protocol"
)

// QueryRequest is the outbound payload of one query: prompt content plus
// the per-turn options the agent runtime needs.
type QueryRequest struct {
	Prompt               protocol.Prompt `json:"prompt"`
	Model                string          `json:"model,omitempty"`
	AllowedTools         []string        `json:"allowed_tools,omitempty"`
	SystemPromptAppend   string          `json:"system_prompt_append,omitempty"`
	AddDirs              []string        `json:"add_dirs,omitempty"`
	MCPServers           map[string]any  `json:"mcp_servers,omitempty"`
	Resume               string          `json:"resume,omitempty"`
	ContinueConversation bool            `json:"continue_conversation,omitempty"`
}

// ToolUse is the wire form of a tool invocation.
type ToolUse struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// AgentMessage is one element of the inbound stream. Type selects which
// fields are populated; unrecognized types decode fine and map to
// protocol.Unknown.
type AgentMessage struct {
	Type         string         `json:"type"`
	Model        string         `json:"model,omitempty"`
	Text         string         `json:"text,omitempty"`
	Thinking     string         `json:"thinking,omitempty"`
	Tool         *ToolUse       `json:"tool,omitempty"`
	ToolResultID string         `json:"tool_result_id,omitempty"`
	SessionID    string         `json:"session_id,omitempty"`
	DurationMs   int64          `json:"duration_ms,omitempty"`
	TotalCostUSD *float64       `json:"total_cost_usd,omitempty"`
	Usage        map[string]any `json:"usage,omitempty"`
	NumTurns     int            `json:"num_turns,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// ToolResponse carries a local tool result back to the agent runtime.
type ToolResponse struct {
	InvocationID string `json:"invocation_id"`
	Content      string `json:"content"`
	IsError      bool   `json:"is_error,omitempty"`
}

// ToolResponseAck is the unary reply to a ToolResponse.
type ToolResponseAck struct {
	OK bool `json:"ok"`
}

// toEvent maps a wire message onto the closed event union. This is the
// single place unknown wire kinds are turned into protocol.Unknown.
func toEvent(msg *AgentMessage) protocol.Event {
	switch msg.Type {
	case "model":
		return protocol.ModelSelected{Name: msg.Model}
	case "text":
		return protocol.TextDelta{Text: msg.Text}
	case "thinking":
		return protocol.ThinkingDelta{Text: msg.Thinking}
	case "tool_use":
		if msg.Tool == nil {
			return protocol.Unknown{Kind: msg.Type}
		}
		return protocol.ToolRequested{ID: msg.Tool.ID, Name: msg.Tool.Name, Input: msg.Tool.Input}
	case "tool_result":
		return protocol.ToolResolved{ID: msg.ToolResultID}
	case "result":
		return protocol.TurnCompleted{
			SessionID:  msg.SessionID,
			DurationMs: msg.DurationMs,
			CostUSD:    msg.TotalCostUSD,
			Usage:      msg.Usage,
			NumTurns:   msg.NumTurns,
		}
	case "error":
		return protocol.Failed{Err: errors.New(msg.Error)}
	default:
		return protocol.Unknown{Kind: msg.Type}
	}
}

// jsonCodec lets connect speak the agent runtime's JSON wire format
// without a generated schema.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(message any) ([]byte, error) {
	return json.Marshal(message)
}

func (jsonCodec) Unmarshal(data []byte, message any) error {
	if err := json.Unmarshal(data, message); err != nil {
		return fmt.Errorf("decoding agent message: %w", err)
	}
	return nil
}
