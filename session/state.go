// Package session holds conversation-level state that outlives a single
// turn: the new-conversation flag, the one-shot replace-cell flag, and
// the active cell batch. State is passed by reference between the turn
// controller and the host boundary, never stashed in host namespaces or
// package globals.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/cellpilot/cellpilot/queue"
)

// State is the single-writer conversation record. Only the turn
// controller mutates it; the accessors are safe to call from hooks on
// other goroutines.
type State struct {
	mu              sync.Mutex
	newConversation bool
	replaceNext     bool
	batch           *queue.Batch
}

// NewState creates the state for a fresh conversation.
func NewState() *State {
	return &State{newConversation: true}
}

// NewConversation reports whether the next turn opens a conversation.
func (s *State) NewConversation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newConversation
}

// SetNewConversation toggles the new-conversation flag.
func (s *State) SetNewConversation(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newConversation = v
}

// SetReplaceNext arms the one-shot flag that makes the next staged cell
// replace the current unit instead of inserting below it.
func (s *State) SetReplaceNext(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceNext = v
}

// ConsumeReplaceNext returns the replace flag and clears it.
func (s *State) ConsumeReplaceNext() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.replaceNext
	s.replaceNext = false
	return v
}

// Batch returns the active cell batch, or nil when none exists.
func (s *State) Batch() *queue.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batch
}

// BeginBatch creates and installs a fresh batch with a process-unique
// identifier. Any previous batch is discarded.
func (s *State) BeginBatch(maxCells int) *queue.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batch = queue.NewBatch(uuid.NewString(), maxCells)
	return s.batch
}

// ClearBatch drops the active batch.
func (s *State) ClearBatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batch = nil
}
