// Package display defines the sink that renders conversation output.
//
// Producers (the turn controller and queue orchestrator) call Sink methods
// from whatever goroutine they run on; implementations serialize rendering
// through a single consumer, so callers never need their own locking and
// relative event order is preserved exactly as produced.
package display

// Kind classifies a status message.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Result summarizes a completed turn.
type Result struct {
	DurationMs int64
	CostUSD    *float64
	Usage      map[string]any
	NumTurns   int
}

// Sink consumes ordered display events for one conversation. Methods must
// be safe for concurrent use and must render in call order.
type Sink interface {
	// Status shows a one-line human-readable notice.
	Status(kind Kind, message string)
	// ModelSelected reports the model serving the conversation.
	ModelSelected(name string)
	// Text appends assistant prose.
	Text(text string)
	// Thinking appends assistant reasoning (verbose only).
	Thinking(text string)
	// ToolCall reports a tool invocation in progress.
	ToolCall(id, name string, input map[string]any)
	// ToolDone marks a previously reported tool invocation as resolved.
	ToolDone(id string)
	// SessionID reports the resume token assigned to the conversation.
	SessionID(id string)
	// TurnResult shows the end-of-turn summary.
	TurnResult(result Result)
	// Interrupted notes that the user interrupted the turn.
	Interrupted()
	// Close flushes pending output and stops the consumer.
	Close() error
}

// Discard is a Sink that drops everything. Useful for tests and headless
// operation.
type Discard struct{}

func (Discard) Status(kind Kind, message string)               {}
func (Discard) ModelSelected(name string)                      {}
func (Discard) Text(text string)                               {}
func (Discard) Thinking(text string)                           {}
func (Discard) ToolCall(id, name string, input map[string]any) {}
func (Discard) ToolDone(id string)                             {}
func (Discard) SessionID(id string)                            {}
func (Discard) TurnResult(result Result)                       {}
func (Discard) Interrupted()                                   {}
func (Discard) Close() error                                   { return nil }
