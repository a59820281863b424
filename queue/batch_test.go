package queue_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cellpilot/cellpilot/queue"
)

func TestMarker(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        string
	}{
		{name: "empty description", description: "", want: "# [CC]"},
		{name: "with description", description: "Load CSV and preview", want: "# [CC] Load CSV and preview"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := queue.Marker(tt.description); got != tt.want {
				t.Errorf("Marker(%q) = %q, want %q", tt.description, got, tt.want)
			}
		})
	}
}

func TestBatchAppend_Order(t *testing.T) {
	b := queue.NewBatch("batch-1", 3)

	for i := 0; i < 3; i++ {
		code := fmt.Sprintf("x = %d", i)
		if _, err := b.Append(code, "", fmt.Sprintf("tool-%d", i)); err != nil {
			t.Fatalf("Append(%d) failed: %v", i, err)
		}
	}

	records := b.Records()
	if len(records) != 3 {
		t.Fatalf("len(Records()) = %d, want 3", len(records))
	}
	for i, rec := range records {
		wantOriginal := fmt.Sprintf("x = %d", i)
		if rec.OriginalCode != wantOriginal {
			t.Errorf("record %d OriginalCode = %q, want %q", i, rec.OriginalCode, wantOriginal)
		}
		wantCode := "# [CC]\n" + wantOriginal
		if rec.Code != wantCode {
			t.Errorf("record %d Code = %q, want %q", i, rec.Code, wantCode)
		}
		wantMarkerID := fmt.Sprintf("tool-%d", i)
		if rec.MarkerID != wantMarkerID {
			t.Errorf("record %d MarkerID = %q, want %q", i, rec.MarkerID, wantMarkerID)
		}
	}
}

func TestBatchAppend_MarkerIDFallsBackToBatchID(t *testing.T) {
	b := queue.NewBatch("batch-7", 3)

	rec, err := b.Append("y = 1", "", "")
	if err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	if rec.MarkerID != "batch-7" {
		t.Errorf("MarkerID = %q, want %q", rec.MarkerID, "batch-7")
	}
}

func TestBatchAppend_Cap(t *testing.T) {
	b := queue.NewBatch("batch-2", 2)

	if _, err := b.Append("a", "", "t1"); err != nil {
		t.Fatalf("first Append() failed: %v", err)
	}
	if _, err := b.Append("b", "", "t2"); err != nil {
		t.Fatalf("second Append() failed: %v", err)
	}

	_, err := b.Append("c", "", "t3")
	if !errors.Is(err, queue.ErrBatchFull) {
		t.Fatalf("third Append() error = %v, want %v", err, queue.ErrBatchFull)
	}
	if b.Len() != 2 {
		t.Errorf("Len() after rejected append = %d, want 2", b.Len())
	}
}

func TestBatchPhase(t *testing.T) {
	b := queue.NewBatch("batch-3", 3)
	if got := b.Phase(); got != queue.PhaseCollecting {
		t.Errorf("empty batch Phase() = %v, want %v", got, queue.PhaseCollecting)
	}

	if _, err := b.Append("a", "", "t1"); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	b.Seal()
	if got := b.Phase(); got != queue.PhaseDraining {
		t.Errorf("sealed batch Phase() = %v, want %v", got, queue.PhaseDraining)
	}
}

func TestBatchFirstPending(t *testing.T) {
	b := queue.NewBatch("batch-4", 3)
	if _, ok := b.FirstPending(); ok {
		t.Error("FirstPending() on empty batch reported a record")
	}

	if _, err := b.Append("a", "first", "t1"); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}
	if _, err := b.Append("b", "second", "t2"); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	rec, ok := b.FirstPending()
	if !ok {
		t.Fatal("FirstPending() found nothing")
	}
	if rec.MarkerID != "t1" {
		t.Errorf("FirstPending().MarkerID = %q, want %q", rec.MarkerID, "t1")
	}
}
