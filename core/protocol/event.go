// Package protocol defines the canonical types exchanged between the
// streaming conversation client, the cell queue orchestrator, and the
// display sink: conversation events, prompt content, tool definitions,
// and host execution results.
package protocol

// Event is one element of a conversation stream. It is a closed union:
// the concrete types below are the only implementations, so consumers can
// switch over them exhaustively. Wire messages of kinds this version does
// not recognize decode to Unknown and are filtered out by the client
// before delivery; they never terminate a stream.
//
// Exactly one of TurnCompleted, Failed, or Interrupted ends a stream; no
// events follow it.
type Event interface {
	event()
}

// ModelSelected reports the model serving the conversation. Emitted at
// most once, before any content events.
type ModelSelected struct {
	Name string
}

// TextDelta carries a fragment of assistant prose.
type TextDelta struct {
	Text string
}

// ThinkingDelta carries a fragment of assistant reasoning. Rendered only
// in verbose mode but always delivered.
type ThinkingDelta struct {
	Text string
}

// ToolRequested reports that the agent invoked a tool. ID correlates the
// later ToolResolved event and, for locally handled tools, the response
// sent back through the client.
type ToolRequested struct {
	ID    string
	Name  string
	Input map[string]any
}

// ToolResolved reports that the tool invocation identified by ID produced
// a result on the agent side.
type ToolResolved struct {
	ID string
}

// TurnCompleted terminates a stream after a successful turn. SessionID is
// the resume token for continuing the conversation on a later query.
type TurnCompleted struct {
	SessionID  string
	DurationMs int64
	CostUSD    *float64
	Usage      map[string]any
	NumTurns   int
}

// Failed terminates a stream after an error. Err carries the cause;
// client.IsTransient distinguishes connection loss from fatal failures.
type Failed struct {
	Err error
}

// Interrupted terminates a stream cut short by a user interrupt. It is a
// normal termination, not an error.
type Interrupted struct{}

// Unknown stands in for a wire message kind this protocol version does not
// recognize. The client filters these out; they are exported only so the
// decode step has an explicit variant instead of an exception path.
type Unknown struct {
	Kind string
}

func (ModelSelected) event() {}
func (TextDelta) event()     {}
func (ThinkingDelta) event() {}
func (ToolRequested) event() {}
func (ToolResolved) event()  {}
func (TurnCompleted) event() {}
func (Failed) event()        {}
func (Interrupted) event()   {}
func (Unknown) event()       {}
