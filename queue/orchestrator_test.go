package queue_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/cellpilot/cellpilot/core/protocol"
	"github.com/cellpilot/cellpilot/display"
	"github.com/cellpilot/cellpilot/queue"
)

// recordingSink captures status notices for assertions.
type recordingSink struct {
	display.Discard

	mu       sync.Mutex
	statuses []statusCall
}

type statusCall struct {
	kind    display.Kind
	message string
}

func (s *recordingSink) Status(kind display.Kind, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, statusCall{kind: kind, message: message})
}

func (s *recordingSink) last() (statusCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statuses) == 0 {
		return statusCall{}, false
	}
	return s.statuses[len(s.statuses)-1], true
}

// recordingStager captures staged code.
type recordingStager struct {
	staged  []string
	replace []bool
}

func (s *recordingStager) StageCell(code string, replace bool) error {
	s.staged = append(s.staged, code)
	s.replace = append(s.replace, replace)
	return nil
}

func newTestOrchestrator(maxCells int) (*queue.Orchestrator, *recordingStager, *recordingSink) {
	stager := &recordingStager{}
	sink := &recordingSink{}
	batch := queue.NewBatch("batch-test", maxCells)
	return queue.NewOrchestrator(batch, stager, sink, nil), stager, sink
}

func success(code string) protocol.ExecutionResult {
	return protocol.ExecutionResult{Input: code, Success: true}
}

func TestCreateCell(t *testing.T) {
	orch, _, _ := newTestOrchestrator(3)

	msg, err := orch.CreateCell("x = 1", "assign x", "tool-1")
	if err != nil {
		t.Fatalf("CreateCell() failed: %v", err)
	}
	if msg != "Code cell created. Waiting for the user to review and execute it." {
		t.Errorf("CreateCell() message = %q", msg)
	}
	if orch.Batch().Len() != 1 {
		t.Errorf("batch length = %d, want 1", orch.Batch().Len())
	}
}

func TestCreateCell_CapRejection(t *testing.T) {
	orch, _, _ := newTestOrchestrator(1)

	if _, err := orch.CreateCell("a", "", "t1"); err != nil {
		t.Fatalf("first CreateCell() failed: %v", err)
	}

	_, err := orch.CreateCell("b", "", "t2")
	if err == nil {
		t.Fatal("CreateCell() beyond cap succeeded, want error")
	}
	if !strings.Contains(err.Error(), "maximum number of cells (1) reached") {
		t.Errorf("cap error = %q, want mention of the cap", err)
	}
	if orch.Batch().Len() != 1 {
		t.Errorf("batch length after rejection = %d, want 1", orch.Batch().Len())
	}
}

func TestObserveExecution_OutOfOrder(t *testing.T) {
	orch, _, sink := newTestOrchestrator(3)

	var codes []string
	for _, c := range []struct{ code, id string }{
		{"a = 1", "tool-a"}, {"b = 2", "tool-b"}, {"c = 3", "tool-c"},
	} {
		if _, err := orch.CreateCell(c.code, c.code, c.id); err != nil {
			t.Fatalf("CreateCell(%s) failed: %v", c.id, err)
		}
	}
	for _, rec := range orch.Batch().Records() {
		codes = append(codes, rec.Code)
	}
	orch.Batch().Seal()

	// Execute B without executing A first.
	orch.ObserveExecution(success(codes[1]))

	for i, rec := range orch.Batch().Records() {
		if rec.Executed {
			t.Errorf("record %d marked executed after out-of-order run", i)
		}
	}
	last, ok := sink.last()
	if !ok {
		t.Fatal("no status emitted for out-of-order execution")
	}
	if last.kind != display.KindWarning {
		t.Errorf("status kind = %v, want warning", last.kind)
	}
	if !strings.Contains(last.message, "[tool-b] executed out of order") ||
		!strings.Contains(last.message, "[tool-a]") {
		t.Errorf("out-of-order warning = %q, want both marker ids", last.message)
	}
}

func TestObserveExecution_SingleCellComplete(t *testing.T) {
	orch, stager, sink := newTestOrchestrator(3)

	if _, err := orch.CreateCell("a = 1", "", "tool-a"); err != nil {
		t.Fatalf("CreateCell() failed: %v", err)
	}
	rec, _ := orch.Batch().FirstPending()
	orch.Batch().Seal()

	orch.ObserveExecution(success(rec.Code))

	if got := orch.Batch().Phase(); got != queue.PhaseComplete {
		t.Errorf("Phase() = %v, want %v", got, queue.PhaseComplete)
	}
	last, ok := sink.last()
	if !ok {
		t.Fatal("no completion status emitted")
	}
	if last.kind != display.KindSuccess {
		t.Errorf("completion status kind = %v, want success", last.kind)
	}
	if last.message != "All generated cells have been processed successfully" {
		t.Errorf("completion message = %q", last.message)
	}
	if len(stager.staged) != 0 {
		t.Errorf("stager called %d times after completion, want 0", len(stager.staged))
	}
}

func TestObserveExecution_SuccessAdvances(t *testing.T) {
	orch, stager, sink := newTestOrchestrator(3)

	if _, err := orch.CreateCell("a = 1", "", "tool-a"); err != nil {
		t.Fatalf("CreateCell() failed: %v", err)
	}
	if _, err := orch.CreateCell("b = 2", "", "tool-b"); err != nil {
		t.Fatalf("CreateCell() failed: %v", err)
	}
	records := orch.Batch().Records()
	orch.Batch().Seal()

	orch.ObserveExecution(success(records[0].Code))

	if len(stager.staged) != 1 {
		t.Fatalf("stager called %d times, want 1", len(stager.staged))
	}
	if stager.staged[0] != records[1].Code {
		t.Errorf("staged code = %q, want second record's code", stager.staged[0])
	}
	last, _ := sink.last()
	if !strings.Contains(last.message, "Next cell ready (agent cell [tool-b])") {
		t.Errorf("advance notice = %q", last.message)
	}
}

func TestObserveExecution_FailureDoesNotAdvance(t *testing.T) {
	orch, stager, sink := newTestOrchestrator(3)

	if _, err := orch.CreateCell("a = 1", "", "tool-a"); err != nil {
		t.Fatalf("CreateCell() failed: %v", err)
	}
	if _, err := orch.CreateCell("b = 2", "", "tool-b"); err != nil {
		t.Fatalf("CreateCell() failed: %v", err)
	}
	records := orch.Batch().Records()
	orch.Batch().Seal()

	orch.ObserveExecution(protocol.ExecutionResult{
		Input:        records[0].Code,
		Success:      false,
		ErrorKind:    "ValueError",
		ErrorMessage: "boom",
	})

	if len(stager.staged) != 0 {
		t.Errorf("stager called %d times after failure, want 0", len(stager.staged))
	}

	got := orch.Batch().Records()
	if !got[0].Executed || !got[0].HadException {
		t.Errorf("failed record state = executed %v, hadException %v", got[0].Executed, got[0].HadException)
	}
	if got[0].Error == nil || got[0].Error.Kind != "ValueError" || got[0].Error.Message != "boom" {
		t.Errorf("captured error = %+v, want ValueError/boom", got[0].Error)
	}
	if got[1].Executed {
		t.Error("second record marked executed after first failed")
	}

	last, ok := sink.last()
	if !ok {
		t.Fatal("no failure status emitted")
	}
	if last.kind != display.KindWarning {
		t.Errorf("failure status kind = %v, want warning", last.kind)
	}
	if !strings.Contains(last.message, "1 cell(s) remaining in queue") {
		t.Errorf("failure warning = %q, want remaining count", last.message)
	}
}

func TestObserveExecution_UserCodeIsNoOp(t *testing.T) {
	orch, stager, sink := newTestOrchestrator(3)

	if _, err := orch.CreateCell("a = 1", "", "tool-a"); err != nil {
		t.Fatalf("CreateCell() failed: %v", err)
	}
	orch.Batch().Seal()

	orch.ObserveExecution(success("print('hello')"))

	if len(stager.staged) != 0 {
		t.Errorf("stager called for plain user code")
	}
	if _, ok := sink.last(); ok {
		t.Error("status emitted for plain user code")
	}
	if rec, _ := orch.Batch().FirstPending(); rec.MarkerID != "tool-a" {
		t.Errorf("pending record changed, MarkerID = %q", rec.MarkerID)
	}
}

func TestStageFirst(t *testing.T) {
	orch, stager, _ := newTestOrchestrator(3)

	if _, err := orch.CreateCell("a = 1", "", "tool-a"); err != nil {
		t.Fatalf("CreateCell() failed: %v", err)
	}
	orch.Batch().Seal()

	orch.StageFirst(true)

	if len(stager.staged) != 1 {
		t.Fatalf("stager called %d times, want 1", len(stager.staged))
	}
	if !stager.replace[0] {
		t.Error("replace flag not forwarded to stager")
	}
}
