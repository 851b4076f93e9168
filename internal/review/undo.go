package review

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/force-pipeline/internal/model"
)

// ActionKind labels the reviewer action an UndoAction can reverse.
type ActionKind string

const (
	ActionSend     ActionKind = "send"
	ActionSkip     ActionKind = "skip"
	ActionMarkWon  ActionKind = "mark_won"
	ActionMarkLost ActionKind = "mark_lost"
)

// UndoAction is a time-bounded snapshot of an opportunity taken just
// before a reviewer action. Owned exclusively by the current session;
// destroyed on expiry or consumption.
type UndoAction struct {
	ID            string
	Kind          ActionKind
	OpportunityID string
	Snapshot      model.Opportunity
	ExpiresAt     time.Time
}

// undoStore holds at most one restorable action: a stack of depth one.
// Pushing a new action discards the previous one, so performing a
// second action before undoing the first makes the first final.
// Expired entries are pruned lazily on access and by a one-shot timer
// per action.
type undoStore struct {
	mu      sync.Mutex
	current *UndoAction
	timer   *time.Timer
	now     func() time.Time
}

func newUndoStore(now func() time.Time) *undoStore {
	return &undoStore{now: now}
}

// push records a new undoable action, superseding any previous one and
// scheduling its one-shot expiry.
func (s *undoStore) push(kind ActionKind, snapshot model.Opportunity, window time.Duration) *UndoAction {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropLocked()

	a := &UndoAction{
		ID:            uuid.New().String(),
		Kind:          kind,
		OpportunityID: snapshot.ID,
		Snapshot:      snapshot.Clone(),
		ExpiresAt:     s.now().Add(window),
	}
	s.current = a
	id := a.ID
	s.timer = time.AfterFunc(window, func() { s.expire(id) })
	return a
}

// pop consumes the current action if one exists and is unexpired.
func (s *undoStore) pop() (*UndoAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, false
	}
	if !s.now().Before(s.current.ExpiresAt) {
		// Lazy prune: the timer callback may not have fired yet.
		s.dropLocked()
		return nil, false
	}
	a := s.current
	s.dropLocked()
	return a, true
}

// clear discards the current action, if any. Used when a
// non-undoable action supersedes the buffer.
func (s *undoStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked()
}

func (s *undoStore) expire(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.ID == id {
		s.dropLocked()
	}
}

func (s *undoStore) dropLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.current = nil
}
