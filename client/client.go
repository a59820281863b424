// Package client manages the streaming conversation with the agent
// runtime. Each query opens its own connection; the client carries only
// the resume token between turns, so a lost connection never poisons the
// next query.
package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cellpilot/cellpilot/core/protocol"
	"github.com/cellpilot/cellpilot/observability"
)

// Observability event types emitted by the client.
const (
	EventQueryStarted   observability.EventType = "client.query.started"
	EventQueryEnded     observability.EventType = "client.query.ended"
	EventInterrupted    observability.EventType = "client.interrupted"
	EventUnknownMessage observability.EventType = "client.message.unknown"
)

// Options configure one query.
type Options struct {
	Model              string
	AllowedTools       []string
	SystemPromptAppend string
	AddDirs            []string
	MCPServers         map[string]any

	// NewConversation starts a fresh agent session instead of resuming
	// the one the client is tracking.
	NewConversation bool
}

// Client issues queries against the agent runtime and tracks the session
// across turns. At most one query may be in flight at a time.
type Client struct {
	transport Transport
	observer  observability.Observer

	mu        sync.Mutex
	sessionID string
	cancel    context.CancelFunc
	active    bool

	interrupted atomic.Bool
}

// Option customizes a Client.
type Option func(*Client)

// WithObserver sets the observer for client lifecycle events.
func WithObserver(observer observability.Observer) Option {
	return func(c *Client) {
		if observer != nil {
			c.observer = observer
		}
	}
}

// New creates a Client over the given transport.
func New(transport Transport, opts ...Option) *Client {
	c := &Client{
		transport: transport,
		observer:  observability.NoOpObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query sends a prompt and returns the event stream for the turn. The
// stream delivers exactly one terminal event (TurnCompleted, Failed, or
// Interrupted) and then closes. Returns ErrQueryInFlight if a previous
// stream has not finished.
func (c *Client) Query(ctx context.Context, prompt protocol.Prompt, opts Options) (*Stream, error) {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return nil, ErrQueryInFlight
	}
	if opts.NewConversation {
		c.sessionID = ""
	}

	req := &QueryRequest{
		Prompt:             prompt,
		Model:              opts.Model,
		AllowedTools:       opts.AllowedTools,
		SystemPromptAppend: opts.SystemPromptAppend,
		AddDirs:            opts.AddDirs,
		MCPServers:         opts.MCPServers,
	}
	if c.sessionID != "" {
		req.Resume = c.sessionID
		req.ContinueConversation = true
	}

	qctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.active = true
	c.interrupted.Store(false)
	c.mu.Unlock()

	ms, err := c.transport.Open(qctx, req)
	if err != nil {
		cancel()
		c.finish()
		return nil, err
	}

	c.emit(ctx, EventQueryStarted, observability.LevelVerbose, map[string]any{
		"resume": req.Resume != "",
	})

	stream := &Stream{events: make(chan protocol.Event, 64)}
	go c.pump(ms, stream)
	return stream, nil
}

// pump drains the wire stream into the event channel, filtering unknown
// message kinds and guaranteeing a single terminal event.
func (c *Client) pump(ms MessageStream, stream *Stream) {
	defer func() {
		close(stream.events)
		_ = ms.Close()
		c.finish()
		c.emit(context.Background(), EventQueryEnded, observability.LevelVerbose, nil)
	}()

	for ms.Receive() {
		event := toEvent(ms.Msg())
		switch ev := event.(type) {
		case protocol.Unknown:
			c.emit(context.Background(), EventUnknownMessage, observability.LevelVerbose, map[string]any{
				"kind": ev.Kind,
			})
			continue
		case protocol.TurnCompleted:
			if ev.SessionID != "" {
				c.mu.Lock()
				c.sessionID = ev.SessionID
				c.mu.Unlock()
			}
			stream.events <- ev
			return
		case protocol.Failed:
			stream.events <- ev
			return
		default:
			stream.events <- event
		}
	}

	if c.interrupted.Load() {
		stream.events <- protocol.Interrupted{}
		return
	}
	if err := ms.Err(); err != nil {
		stream.events <- protocol.Failed{Err: err}
		return
	}
	// Stream ended without a result message. Treat it like a dropped
	// connection so the caller retries on a fresh one.
	stream.events <- protocol.Failed{Err: ErrConnectionLost}
}

func (c *Client) finish() {
	c.mu.Lock()
	c.active = false
	c.cancel = nil
	c.mu.Unlock()
}

// Interrupt cancels the in-flight query, if any. Safe to call from a
// signal handler context: it touches no I/O and is idempotent. The
// stream terminates with an Interrupted event.
func (c *Client) Interrupt() {
	c.interrupted.Store(true)

	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		c.emit(context.Background(), EventInterrupted, observability.LevelInfo, nil)
	}
}

func (c *Client) emit(ctx context.Context, t observability.EventType, level observability.Level, data map[string]any) {
	c.observer.OnEvent(ctx, observability.Event{
		Type:      t,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "client",
		Data:      data,
	})
}

// RespondTool delivers a local tool result back to the agent runtime.
func (c *Client) RespondTool(ctx context.Context, invocationID, content string, isError bool) error {
	return c.transport.Respond(ctx, &ToolResponse{
		InvocationID: invocationID,
		Content:      content,
		IsError:      isError,
	})
}

// SessionID returns the resume token of the tracked agent session, or
// empty if no turn has completed yet.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// ResetSession drops the tracked session so the next query starts a new
// conversation.
func (c *Client) ResetSession() {
	c.mu.Lock()
	c.sessionID = ""
	c.mu.Unlock()
}

// Stream is the event sequence of one turn. Events closes after the
// terminal event is delivered.
type Stream struct {
	events chan protocol.Event
}

// Events returns the receive channel of turn events.
func (s *Stream) Events() <-chan protocol.Event {
	return s.events
}
