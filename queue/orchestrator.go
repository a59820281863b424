package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cellpilot/cellpilot/core/protocol"
	"github.com/cellpilot/cellpilot/display"
	"github.com/cellpilot/cellpilot/observability"
)

// Observability event types emitted by the orchestrator.
const (
	EventCellCreated   observability.EventType = "queue.cell.created"
	EventCellRejected  observability.EventType = "queue.cell.rejected"
	EventCellExecuted  observability.EventType = "queue.cell.executed"
	EventOutOfOrder    observability.EventType = "queue.cell.out_of_order"
	EventBatchComplete observability.EventType = "queue.batch.complete"
)

// Stager stages the next executable unit with the host session.
type Stager interface {
	StageCell(code string, replace bool) error
}

// Orchestrator drives one batch through its lifecycle: it accepts cell
// proposals from the agent's tool invocations, offers the earliest
// unexecuted cell to the host, and reconciles host-reported executions
// against the queue. All user-visible notices about queue state originate
// here.
type Orchestrator struct {
	batch    *Batch
	stager   Stager
	sink     display.Sink
	observer observability.Observer
}

// NewOrchestrator creates an Orchestrator for the given batch. A nil sink
// or observer is replaced by a discard implementation.
func NewOrchestrator(batch *Batch, stager Stager, sink display.Sink, observer observability.Observer) *Orchestrator {
	if sink == nil {
		sink = display.Discard{}
	}
	if observer == nil {
		observer = observability.NoOpObserver{}
	}
	return &Orchestrator{batch: batch, stager: stager, sink: sink, observer: observer}
}

// Batch returns the batch under orchestration.
func (o *Orchestrator) Batch() *Batch { return o.batch }

// CreateCell enqueues an agent-proposed cell and returns the message to
// send back through the tool channel. Exceeding the per-turn cap returns
// an error whose text is the agent-facing explanation; the event stream
// continues either way.
func (o *Orchestrator) CreateCell(code, description, invocationID string) (string, error) {
	rec, err := o.batch.Append(code, description, invocationID)
	if err != nil {
		o.emit(EventCellRejected, observability.LevelWarning, map[string]any{
			"batch_id":  o.batch.ID(),
			"max_cells": o.batch.MaxCells(),
		})
		return "", fmt.Errorf(
			"maximum number of cells (%d) reached for this turn; wait for the user to provide additional input before creating more cells: %w",
			o.batch.MaxCells(), err)
	}

	o.emit(EventCellCreated, observability.LevelVerbose, map[string]any{
		"batch_id":  rec.BatchID,
		"marker_id": rec.MarkerID,
		"position":  o.batch.Len(),
	})
	return "Code cell created. Waiting for the user to review and execute it.", nil
}

// StageFirst offers the earliest unexecuted cell to the host, if any.
// Called once the agent stream ends; replace carries the one-shot
// replace-current-cell flag.
func (o *Orchestrator) StageFirst(replace bool) {
	rec, ok := o.batch.FirstPending()
	if !ok || o.stager == nil {
		return
	}
	if err := o.stager.StageCell(rec.Code, replace); err != nil {
		o.sink.Status(display.KindWarning, "Could not stage the next cell: "+err.Error())
	}
}

// ObserveExecution reconciles one host-reported execution against the
// queue. Ordinary user code that matches no record is a no-op.
func (o *Orchestrator) ObserveExecution(res protocol.ExecutionResult) {
	b := o.batch
	b.mu.Lock()

	expected := -1
	for i, rec := range b.records {
		if !rec.Executed {
			expected = i
			break
		}
	}
	if expected < 0 {
		b.mu.Unlock()
		return
	}

	if strings.HasPrefix(res.Input, b.records[expected].Marker) {
		var execErr *ExecError
		if !res.Success {
			execErr = &ExecError{Kind: res.ErrorKind, Message: res.ErrorMessage}
		}
		b.markExecuted(expected, res.Success, execErr)
		markerID := b.records[expected].MarkerID
		remaining := b.pendingLocked()
		b.mu.Unlock()

		o.emit(EventCellExecuted, observability.LevelInfo, map[string]any{
			"marker_id": markerID,
			"success":   res.Success,
			"remaining": remaining,
		})

		if remaining == 0 {
			o.completeBatch()
			return
		}
		if res.Success {
			o.stageNext()
			return
		}
		o.sink.Status(display.KindWarning, fmt.Sprintf(
			"Execution failed. %d cell(s) remaining in queue.\nContinue to fold the error into context, or start a new conversation to reset.",
			remaining))
		return
	}

	// Not the expected cell: a different queued cell, or plain user code.
	matched, ok := b.match(res.Input)
	expectedID := b.records[expected].MarkerID
	var matchedID string
	if ok {
		matchedID = b.records[matched].MarkerID
	}
	b.mu.Unlock()

	if !ok {
		return
	}

	o.emit(EventOutOfOrder, observability.LevelWarning, map[string]any{
		"executed_marker": matchedID,
		"expected_marker": expectedID,
	})
	o.sink.Status(display.KindWarning, fmt.Sprintf(
		"Agent cell [%s] executed out of order. Expected agent cell [%s] to run next.\nRun the expected cell to continue the automatic queue, or continue to report results.",
		matchedID, expectedID))
}

// stageNext offers the next unexecuted cell and names it to the user.
func (o *Orchestrator) stageNext() {
	rec, ok := o.batch.FirstPending()
	if !ok {
		return
	}
	if o.stager != nil {
		if err := o.stager.StageCell(rec.Code, false); err != nil {
			o.sink.Status(display.KindWarning, "Could not stage the next cell: "+err.Error())
			return
		}
	}
	o.sink.Status(display.KindInfo, fmt.Sprintf("Next cell ready (agent cell [%s])", rec.MarkerID))
}

func (o *Orchestrator) completeBatch() {
	hadErrors := o.batch.HadErrors()
	o.emit(EventBatchComplete, observability.LevelInfo, map[string]any{
		"batch_id":   o.batch.ID(),
		"cells":      o.batch.Len(),
		"had_errors": hadErrors,
	})
	if hadErrors {
		o.sink.Status(display.KindWarning, "All generated cells processed (some with errors)")
		return
	}
	o.sink.Status(display.KindSuccess, "All generated cells have been processed successfully")
}

func (o *Orchestrator) emit(t observability.EventType, level observability.Level, data map[string]any) {
	o.observer.OnEvent(context.Background(), observability.Event{
		Type:      t,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "queue",
		Data:      data,
	})
}
