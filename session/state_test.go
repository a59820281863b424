package session_test

import (
	"testing"

	"github.com/cellpilot/cellpilot/session"
)

func TestState_NewConversationFlag(t *testing.T) {
	s := session.NewState()
	if !s.NewConversation() {
		t.Error("fresh state is not a new conversation")
	}

	s.SetNewConversation(false)
	if s.NewConversation() {
		t.Error("flag not cleared")
	}
}

func TestState_ConsumeReplaceNext(t *testing.T) {
	s := session.NewState()
	if s.ConsumeReplaceNext() {
		t.Error("replace flag set on fresh state")
	}

	s.SetReplaceNext(true)
	if !s.ConsumeReplaceNext() {
		t.Error("armed replace flag not returned")
	}
	if s.ConsumeReplaceNext() {
		t.Error("replace flag not cleared after consume")
	}
}

func TestState_BatchLifecycle(t *testing.T) {
	s := session.NewState()
	if s.Batch() != nil {
		t.Error("fresh state has a batch")
	}

	first := s.BeginBatch(3)
	if first == nil || s.Batch() != first {
		t.Fatal("BeginBatch() did not install the batch")
	}
	if first.ID() == "" {
		t.Error("batch id is empty")
	}

	second := s.BeginBatch(3)
	if second.ID() == first.ID() {
		t.Error("successive batches share an id")
	}

	s.ClearBatch()
	if s.Batch() != nil {
		t.Error("ClearBatch() left a batch installed")
	}
}
