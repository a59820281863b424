// Package queue implements the cell-approval queue: the batch of code
// cells the agent proposes during one turn, and the orchestrator that
// reconciles the user's manual executions against it.
package queue

import (
	"errors"
	"strings"
	"sync"
)

// DefaultMaxCells caps cell creations per turn. Three allows multi-step
// exploration without letting the agent flood the notebook.
const DefaultMaxCells = 3

// ErrBatchFull is returned by Append when the batch has reached its
// per-turn creation cap. It is a recoverable condition reported back to
// the agent, not a fault.
var ErrBatchFull = errors.New("cell batch is full")

// Phase is the lifecycle state of a batch.
type Phase string

const (
	// PhaseCollecting: records append in arrival order while the agent
	// stream is open. Persists past stream end until Seal.
	PhaseCollecting Phase = "collecting"
	// PhaseDraining: the stream ended; the user executes cells one by one.
	PhaseDraining Phase = "draining"
	// PhaseComplete: every record has been executed.
	PhaseComplete Phase = "complete"
)

// ExecError captures the host-reported failure of one cell execution.
type ExecError struct {
	Kind    string
	Message string
}

// CellRecord is one agent-proposed executable unit. Code carries the
// approval marker as its first line; OriginalCode is the agent's code as
// proposed.
type CellRecord struct {
	Code         string
	OriginalCode string
	Description  string
	InvocationID string
	BatchID      string
	MarkerID     string
	Marker       string
	Executed     bool
	HadException bool
	Error        *ExecError
}

// Marker builds the approval-marker comment line for a proposed cell.
func Marker(description string) string {
	if description == "" {
		return "# [CC]"
	}
	return "# [CC] " + description
}

// Batch is the ordered set of cell proposals from one turn, keyed by a
// batch identifier unique for the process lifetime. Safe for concurrent
// use: the client's stream goroutine appends while the host thread
// reconciles.
type Batch struct {
	mu       sync.Mutex
	id       string
	maxCells int
	records  []*CellRecord
	sealed   bool
}

// NewBatch creates an empty batch. maxCells <= 0 selects DefaultMaxCells.
func NewBatch(id string, maxCells int) *Batch {
	if maxCells <= 0 {
		maxCells = DefaultMaxCells
	}
	return &Batch{id: id, maxCells: maxCells}
}

// ID returns the batch identifier.
func (b *Batch) ID() string { return b.id }

// MaxCells returns the per-turn creation cap.
func (b *Batch) MaxCells() int { return b.maxCells }

// Append adds a cell proposal in arrival order. The marker id is the tool
// invocation id when present, else the batch id; marker ids are unique per
// process lifetime because both are freshly generated UUIDs (reconciliation
// relies on this). Returns ErrBatchFull when the cap is reached; the
// rejected proposal is not enqueued.
func (b *Batch) Append(code, description, invocationID string) (CellRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.records) >= b.maxCells {
		return CellRecord{}, ErrBatchFull
	}

	markerID := invocationID
	if markerID == "" {
		markerID = b.id
	}
	marker := Marker(description)
	rec := &CellRecord{
		Code:         marker + "\n" + code,
		OriginalCode: code,
		Description:  description,
		InvocationID: invocationID,
		BatchID:      b.id,
		MarkerID:     markerID,
		Marker:       marker,
	}
	b.records = append(b.records, rec)
	return *rec, nil
}

// Seal marks the end of the collection window (the agent stream ended).
func (b *Batch) Seal() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sealed = true
}

// Phase reports the batch's lifecycle state.
func (b *Batch) Phase() Phase {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pendingLocked() == 0 && len(b.records) > 0 {
		return PhaseComplete
	}
	if b.sealed {
		return PhaseDraining
	}
	return PhaseCollecting
}

// Len returns the number of enqueued records.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// Pending returns the number of unexecuted records.
func (b *Batch) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pendingLocked()
}

func (b *Batch) pendingLocked() int {
	n := 0
	for _, rec := range b.records {
		if !rec.Executed {
			n++
		}
	}
	return n
}

// FirstPending returns a copy of the earliest unexecuted record. Strict
// insertion order: this is always the record offered to the host next.
func (b *Batch) FirstPending() (CellRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range b.records {
		if !rec.Executed {
			return *rec, true
		}
	}
	return CellRecord{}, false
}

// Records returns copies of all records in insertion order.
func (b *Batch) Records() []CellRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]CellRecord, len(b.records))
	for i, rec := range b.records {
		out[i] = *rec
	}
	return out
}

// HadErrors reports whether any executed record raised an exception.
func (b *Batch) HadErrors() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range b.records {
		if rec.HadException {
			return true
		}
	}
	return false
}

// match finds the queued record whose marker is an exact prefix of the
// executed input. Marker matching is literal, never fuzzy.
func (b *Batch) match(input string) (int, bool) {
	for i, rec := range b.records {
		if rec.Marker != "" && strings.HasPrefix(input, rec.Marker) {
			return i, true
		}
	}
	return 0, false
}

// markExecuted records the outcome of executing the record at index i.
func (b *Batch) markExecuted(i int, success bool, execErr *ExecError) {
	b.records[i].Executed = true
	b.records[i].HadException = !success
	if !success && execErr != nil {
		b.records[i].Error = execErr
	}
}
