// Package pilot implements the turn controller: it composes prompts from
// host context, drives the streaming conversation, routes tool
// invocations to the queue, and reconciles user executions reported by
// the host hooks.
package pilot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cellpilot/cellpilot/client"
	"github.com/cellpilot/cellpilot/core/protocol"
	"github.com/cellpilot/cellpilot/display"
	"github.com/cellpilot/cellpilot/host"
	"github.com/cellpilot/cellpilot/observability"
	"github.com/cellpilot/cellpilot/queue"
	"github.com/cellpilot/cellpilot/session"
	"github.com/cellpilot/cellpilot/tools"
)

// Observability event types emitted by the pilot.
const (
	EventTurnStarted     observability.EventType = "pilot.turn.started"
	EventTurnCompleted   observability.EventType = "pilot.turn.completed"
	EventTurnFailed      observability.EventType = "pilot.turn.failed"
	EventTurnInterrupted observability.EventType = "pilot.turn.interrupted"
	EventToolDispatched  observability.EventType = "pilot.tool.dispatched"
)

// Sentinel errors for the pilot.
var (
	// ErrTurnInFlight rejects a turn command while a stream is active.
	ErrTurnInFlight = errors.New("a turn is already in flight")

	// ErrEmptyPrompt rejects a new conversation without a prompt.
	ErrEmptyPrompt = errors.New("a prompt must be provided to start the conversation")
)

const continuationFallbackPrompt = "Please continue with the task."

const queuedExecutionNotice = "Not executing this prompt because multiple cell executions were queued (e.g. Run All), " +
	"so re-running the agent might be unintentional. Pass the allow-queued override to run anyway."

// RunOptions modify a single turn command.
type RunOptions struct {
	// Verbose renders thinking deltas and detailed tool information.
	Verbose bool

	// AllowQueuedExecution overrides the queued-execution guard.
	AllowQueuedExecution bool
}

// Pilot is the turn controller. One Pilot serves one host session; at
// most one turn runs at a time.
type Pilot struct {
	client    *client.Client
	host      host.Session
	sink      display.Sink
	observer  observability.Observer
	state     *session.State
	registry  *tools.Registry
	tracker   *host.Tracker
	history   *host.History
	watcher   *host.Watcher
	collector *host.Collector

	terminal bool

	mu                 sync.Mutex // guards cfg and cellsToLoadUserSet
	cfg                Config
	cellsToLoadUserSet bool

	turnActive atomic.Bool
}

// Option customizes a Pilot.
type Option func(*Pilot)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(p *Pilot) { p.cfg = cfg }
}

// WithSink sets the display sink.
func WithSink(sink display.Sink) Option {
	return func(p *Pilot) {
		if sink != nil {
			p.sink = sink
		}
	}
}

// WithObserver sets the observer for pilot lifecycle events.
func WithObserver(observer observability.Observer) Option {
	return func(p *Pilot) {
		if observer != nil {
			p.observer = observer
		}
	}
}

// WithTerminalHost marks the host as a single-pending-input REPL rather
// than a notebook. Affects the system prompt and cell policy.
func WithTerminalHost(terminal bool) Option {
	return func(p *Pilot) { p.terminal = terminal }
}

// New creates a Pilot over the given conversation client and host
// session, registering the cell-creation and inspection tools.
func New(conversation *client.Client, hostSession host.Session, opts ...Option) (*Pilot, error) {
	p := &Pilot{
		client:    conversation,
		host:      hostSession,
		sink:      display.Discard{},
		observer:  observability.NoOpObserver{},
		state:     session.NewState(),
		registry:  tools.NewRegistry(),
		tracker:   host.NewTracker(hostSession),
		history:   host.NewHistory(hostSession),
		watcher:   host.NewWatcher(),
		collector: host.NewCollector(),
		cfg:       DefaultConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := tools.RegisterCellTool(p.registry, p); err != nil {
		return nil, err
	}
	if err := tools.RegisterInspectionTools(p.registry, hostSession); err != nil {
		return nil, err
	}
	return p, nil
}

// State exposes the conversation state for host-boundary glue.
func (p *Pilot) State() *session.State { return p.state }

// Run executes one turn. If a batch from a previous turn exists, the call
// routes to the continuation path: execution results are folded into the
// prompt and the batch is cleared.
func (p *Pilot) Run(ctx context.Context, prompt string, opts RunOptions) error {
	// A rejected command must not leave the one-shot replace flag armed
	// for a later Run.
	if p.watcher.ProbablyQueued() && !opts.AllowQueuedExecution {
		p.state.ConsumeReplaceNext()
		p.sink.Status(display.KindWarning, queuedExecutionNotice)
		return nil
	}

	if !p.turnActive.CompareAndSwap(false, true) {
		p.state.ConsumeReplaceNext()
		return ErrTurnInFlight
	}
	defer p.turnActive.Store(false)

	if batch := p.state.Batch(); batch != nil && batch.Len() > 0 {
		return p.continueTurn(ctx, prompt, opts)
	}
	return p.executePrompt(ctx, prompt, "", opts)
}

// RunNew starts a fresh conversation: history cursor, variable snapshot,
// resume token, and any leftover batch are all reset first.
func (p *Pilot) RunNew(ctx context.Context, prompt string, opts RunOptions) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}
	if !p.turnActive.CompareAndSwap(false, true) {
		return ErrTurnInFlight
	}
	defer p.turnActive.Store(false)

	p.history.ResetCursor()
	p.tracker.Reset()

	p.mu.Lock()
	if !p.cellsToLoadUserSet {
		// A deliberate fresh start defaults to loading no prior cells.
		p.cfg.CellsToLoad = 0
	}
	p.mu.Unlock()

	if batch := p.state.Batch(); batch != nil {
		if pending := batch.Pending(); pending > 0 {
			p.sink.Status(display.KindWarning,
				fmt.Sprintf("Clearing %d unexecuted cell(s) from the previous request", pending))
		}
	}
	p.state.ClearBatch()
	p.client.ResetSession()
	p.state.SetNewConversation(true)

	return p.executePrompt(ctx, prompt, "", opts)
}

// RunReplacingCell runs a turn whose first staged cell replaces the
// current input unit instead of inserting below it.
func (p *Pilot) RunReplacingCell(ctx context.Context, prompt string, opts RunOptions) error {
	p.state.SetReplaceNext(true)
	return p.Run(ctx, prompt, opts)
}

// Interrupt cancels the in-flight turn, if any. Safe to call from a
// signal handler: it never touches the display sink on this path.
func (p *Pilot) Interrupt() {
	p.client.Interrupt()
}

// continueTurn folds the previous batch's execution results into a new
// prompt. Caller holds the turn guard.
func (p *Pilot) continueTurn(ctx context.Context, prompt string, opts RunOptions) error {
	batch := p.state.Batch()
	records := batch.Records()

	if opts.Verbose {
		executed := batch.Len() - batch.Pending()
		p.sink.Status(display.KindInfo,
			fmt.Sprintf("Cell execution summary: %d of %d cells executed", executed, batch.Len()))
	}

	// Recent history supplies outputs for executed cells. A short tail is
	// enough; queued cells ran after the prompt that produced them.
	entries, err := p.host.HistoryRange(-10, 0)
	if err != nil {
		entries = nil
	}
	report := queue.Report(records, entries)

	p.state.ClearBatch()

	if strings.TrimSpace(prompt) == "" {
		prompt = continuationFallbackPrompt
	}
	p.sink.Status(display.KindSuccess, "Continuing the conversation with execution results...")

	return p.executePrompt(ctx, prompt, report, opts)
}

// executePrompt implements the core turn: context gathering, prompt
// composition, streaming, and post-stream staging. Caller holds the turn
// guard.
func (p *Pilot) executePrompt(ctx context.Context, request, previousExecution string, opts RunOptions) error {
	p.mu.Lock()
	cfg := p.cfg
	p.mu.Unlock()

	newConversation := p.state.NewConversation()
	p.emit(ctx, EventTurnStarted, observability.LevelInfo, map[string]any{
		"new_conversation": newConversation,
		"continuation":     previousExecution != "",
	})

	varChanges := p.tracker.Changes()

	var shellOutput string
	if !newConversation {
		shellOutput = p.history.OutputSince()
	}

	var openers []string
	if newConversation {
		if imported := ImportedFilesContent(cfg.ImportedFiles); imported != "" {
			openers = append(openers, imported)
		}
		if cfg.CellsToLoad != 0 {
			if last := p.history.LastCells(cfg.CellsToLoad); last != "" {
				openers = append(openers, last)
			}
		}
	}

	text := enhancedPrompt(request, varChanges, previousExecution, shellOutput, openers)

	images := p.collector.Drain()
	var prompt protocol.Prompt
	if len(images) > 0 {
		p.sink.Status(display.KindInfo, host.Summary(images))
		parts := make([]protocol.ContentPart, 0, len(images)+1)
		for _, img := range images {
			parts = append(parts, protocol.ImagePart{MediaType: img.MediaType, Data: img.Data})
		}
		parts = append(parts, protocol.TextPart{Text: text})
		prompt = protocol.Parts(parts...)
	} else {
		prompt = protocol.Text(text)
	}

	stream, err := p.client.Query(ctx, prompt, client.Options{
		Model:              cfg.Model,
		AllowedTools:       cfg.AllowedTools,
		SystemPromptAppend: SystemPrompt(p.terminal, cfg.MaxCells),
		AddDirs:            cfg.AddedDirectories,
		MCPServers:         p.mcpServers(cfg.MCPConfigFile),
		NewConversation:    newConversation,
	})
	if err != nil {
		return p.reportFailure(ctx, err)
	}

	interrupted := false
	var failure error
	for event := range stream.Events() {
		switch e := event.(type) {
		case protocol.ModelSelected:
			p.sink.ModelSelected(e.Name)
		case protocol.TextDelta:
			p.sink.Text(e.Text)
		case protocol.ThinkingDelta:
			if opts.Verbose {
				p.sink.Thinking(e.Text)
			}
		case protocol.ToolRequested:
			p.sink.ToolCall(e.ID, e.Name, e.Input)
			p.dispatchTool(ctx, e)
		case protocol.ToolResolved:
			p.sink.ToolDone(e.ID)
		case protocol.TurnCompleted:
			p.history.Advance()
			if e.SessionID != "" {
				p.sink.SessionID(e.SessionID)
			}
			p.sink.TurnResult(display.Result{
				DurationMs: e.DurationMs,
				CostUSD:    e.CostUSD,
				Usage:      e.Usage,
				NumTurns:   e.NumTurns,
			})
		case protocol.Failed:
			failure = e.Err
		case protocol.Interrupted:
			interrupted = true
			p.sink.Interrupted()
		}
	}

	if failure != nil {
		return p.reportFailure(ctx, failure)
	}

	// Stream is done, normally or via interrupt: offer the first queued
	// cell and clear the one-shot flags.
	replace := p.state.ConsumeReplaceNext() || cfg.Cleanup
	if batch := p.state.Batch(); batch != nil {
		batch.Seal()
		p.newOrchestrator(batch).StageFirst(replace)
	}
	p.state.SetNewConversation(false)

	if interrupted {
		p.emit(ctx, EventTurnInterrupted, observability.LevelInfo, nil)
	} else {
		p.emit(ctx, EventTurnCompleted, observability.LevelInfo, map[string]any{
			"session_id": p.client.SessionID(),
		})
	}
	return nil
}

// dispatchTool executes a locally registered tool and sends its result
// back through the response channel. Tools handled remotely by the agent
// runtime pass through untouched.
func (p *Pilot) dispatchTool(ctx context.Context, e protocol.ToolRequested) {
	if !p.registry.Has(e.Name) {
		return
	}

	args := make(map[string]any, len(e.Input)+1)
	for k, v := range e.Input {
		args[k] = v
	}
	args["invocation_id"] = e.ID

	result, err := p.registry.Execute(ctx, e.Name, args)
	if err != nil {
		result = tools.Result{Content: err.Error(), IsError: true}
	}

	p.emit(ctx, EventToolDispatched, observability.LevelVerbose, map[string]any{
		"tool":     e.Name,
		"is_error": result.IsError,
	})

	if err := p.client.RespondTool(ctx, e.ID, result.Content, result.IsError); err != nil {
		p.sink.Status(display.KindWarning, "Could not deliver tool result: "+err.Error())
	}
}

// reportFailure surfaces a turn failure without touching queue or
// conversation state, so the next turn starts from last known-good.
func (p *Pilot) reportFailure(ctx context.Context, err error) error {
	if client.IsTransient(err) {
		p.sink.Status(display.KindWarning, client.ConnectionLostNotice)
	} else {
		p.sink.Status(display.KindError, "Turn failed: "+err.Error())
	}
	p.emit(ctx, EventTurnFailed, observability.LevelError, map[string]any{
		"error":     err.Error(),
		"transient": client.IsTransient(err),
	})
	return err
}

// CreateCell implements tools.CellCreator: it lazily opens a batch for
// the turn and delegates to the queue orchestrator.
func (p *Pilot) CreateCell(code, description, invocationID string) (string, error) {
	batch := p.state.Batch()
	if batch == nil {
		p.mu.Lock()
		maxCells := p.cfg.MaxCells
		p.mu.Unlock()
		batch = p.state.BeginBatch(maxCells)
	}
	return p.newOrchestrator(batch).CreateCell(code, description, invocationID)
}

// PreExecution is the host's pre-run hook.
func (p *Pilot) PreExecution() {
	p.watcher.PreRun()
}

// PostExecution is the host's post-run hook: it feeds the timing watcher
// and reconciles the execution against the active queue.
func (p *Pilot) PostExecution(res protocol.ExecutionResult) {
	p.watcher.PostRun(true)

	batch := p.state.Batch()
	if batch == nil {
		return
	}
	p.newOrchestrator(batch).ObserveExecution(res)
}

// CaptureImage buffers a display image for the next prompt.
func (p *Pilot) CaptureImage(img host.Image) {
	p.collector.Add(img)
}

func (p *Pilot) newOrchestrator(batch *queue.Batch) *queue.Orchestrator {
	return queue.NewOrchestrator(batch, p.host, p.sink, p.observer)
}

// mcpServers loads additional MCP server configs from the configured
// file, if any. Parse errors warn and yield no servers.
func (p *Pilot) mcpServers(configFile string) map[string]any {
	if configFile == "" {
		return nil
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		p.sink.Status(display.KindWarning,
			fmt.Sprintf("Error loading MCP config file %s: %v", configFile, err))
		return nil
	}

	var parsed struct {
		MCPServers map[string]any `json:"mcpServers"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		p.sink.Status(display.KindWarning,
			fmt.Sprintf("Error parsing MCP config file %s: %v", configFile, err))
		return nil
	}
	return parsed.MCPServers
}

func (p *Pilot) emit(ctx context.Context, t observability.EventType, level observability.Level, data map[string]any) {
	p.observer.OnEvent(ctx, observability.Event{
		Type:      t,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "pilot",
		Data:      data,
	})
}
