// Package review drives one reviewer's pass over a prioritized
// opportunity queue: navigation, status transitions, a time-bounded
// undo buffer and session progress accounting.
package review

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/force-pipeline/internal/model"
	"github.com/sells-group/force-pipeline/internal/store"
)

// Sentinel outcomes the UI surfaces directly.
var (
	ErrNothingToUndo = eris.New("review: nothing to undo")
	ErrNoCurrent     = eris.New("review: no opportunity selected")
	ErrNotReady      = eris.New("review: opportunity is not in ready state")
	ErrReasonNeeded  = eris.New("review: dismiss requires a reason")
)

// DismissReason is the reviewer's stated reason for dismissing.
type DismissReason string

const (
	ReasonNotRelevant   DismissReason = "not_relevant"
	ReasonWrongForce    DismissReason = "wrong_force"
	ReasonMisclassified DismissReason = "misclassified"
	ReasonDuplicate     DismissReason = "duplicate"
	ReasonOther         DismissReason = "other"
)

// isClassificationError reports whether the reason indicates the
// upstream classifier got this one wrong, which triggers feedback
// propagation.
func (r DismissReason) isClassificationError() bool {
	return r == ReasonWrongForce || r == ReasonMisclassified
}

// WriteState tracks the fate of the persistence write behind an
// optimistic in-memory transition.
type WriteState string

const (
	WritePending   WriteState = "pending"
	WriteCommitted WriteState = "committed"
	WriteFailed    WriteState = "failed"
)

// Updater is the slice of the record store the session writes through.
type Updater interface {
	UpdateOpportunity(ctx context.Context, id string, fields store.UpdateFields) (*model.Opportunity, error)
}

// Notification is a dismissable UI notice referencing the undo action
// it offers to reverse.
type Notification struct {
	Message      string
	UndoActionID string
	ExpiresAt    time.Time
}

// Notifier receives session notifications. Implementations must not
// block; the session calls it synchronously.
type Notifier interface {
	Notify(n Notification)
}

// Composer opens an external composition surface for an outreach send.
type Composer interface {
	OpenDraft(o model.Opportunity) error
}

// FeedbackSink propagates classification-error dismissals upstream.
type FeedbackSink interface {
	ReportMisclassification(ctx context.Context, o model.Opportunity, reason string) error
}

// Session is a single-reviewer, single-threaded state machine over an
// in-memory snapshot of the opportunity set. All transitions are
// synchronous; the only background activity is the undo-expiry timer.
type Session struct {
	queue       []model.Opportunity
	filter      Filter
	cursor      int
	undo        *undoStore
	undoWindow  time.Duration
	progress    Progress
	writeStates map[string]WriteState

	updater  Updater
	notifier Notifier
	composer Composer
	feedback FeedbackSink
	now      func() time.Time
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithUndoWindow overrides the default 30-second undo window.
func WithUndoWindow(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.undoWindow = d
		}
	}
}

// WithNotifier installs a notification receiver.
func WithNotifier(n Notifier) SessionOption {
	return func(s *Session) { s.notifier = n }
}

// WithComposer installs the external composition surface opened on send.
func WithComposer(c Composer) SessionOption {
	return func(s *Session) { s.composer = c }
}

// WithFeedback installs the classification-feedback sink.
func WithFeedback(f FeedbackSink) SessionOption {
	return func(s *Session) { s.feedback = f }
}

// WithFilter sets the initial queue filter (default: ready).
func WithFilter(f Filter) SessionOption {
	return func(s *Session) { s.filter = f }
}

// WithClock overrides the timestamp source; used by tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession snapshots the working set, orders it for review and
// positions the cursor on the first visible opportunity.
func NewSession(opps []model.Opportunity, updater Updater, opts ...SessionOption) *Session {
	queue := make([]model.Opportunity, len(opps))
	for i, o := range opps {
		queue[i] = o.Clone()
	}
	sortQueue(queue)

	s := &Session{
		queue:       queue,
		filter:      FilterReady,
		undoWindow:  30 * time.Second,
		writeStates: make(map[string]WriteState),
		updater:     updater,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.undo = newUndoStore(s.now)
	s.progress.TotalCount = len(queue)
	return s
}

// visible returns indexes into the queue matching the current filter.
func (s *Session) visible() []int {
	var idx []int
	for i, o := range s.queue {
		if s.filter.matches(o) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Current returns the opportunity under the cursor, or nil when the
// filtered queue is empty.
func (s *Session) Current() *model.Opportunity {
	vis := s.visible()
	if len(vis) == 0 {
		return nil
	}
	if s.cursor >= len(vis) {
		s.cursor = len(vis) - 1
	}
	o := s.queue[vis[s.cursor]].Clone()
	return &o
}

// SelectNext moves the cursor forward within the filtered queue,
// stopping at the end. Navigation never changes opportunity state.
func (s *Session) SelectNext() {
	if vis := s.visible(); s.cursor < len(vis)-1 {
		s.cursor++
	}
}

// SelectPrevious moves the cursor back, stopping at the start.
func (s *Session) SelectPrevious() {
	if s.cursor > 0 {
		s.cursor--
	}
}

// SetFilter switches the queue view and resets the cursor.
func (s *Session) SetFilter(f Filter) {
	s.filter = f
	s.cursor = 0
}

// Progress returns a copy of the session accounting.
func (s *Session) Progress() Progress {
	return s.progress
}

// WriteState reports the persistence fate of the last transition for
// an opportunity. Unknown IDs report committed (never touched).
func (s *Session) WriteState(opportunityID string) WriteState {
	if st, ok := s.writeStates[opportunityID]; ok {
		return st
	}
	return WriteCommitted
}

// Send transitions the current opportunity ready → sent, opens the
// composition surface and arms the undo buffer.
func (s *Session) Send(ctx context.Context) error {
	cur := s.Current()
	if cur == nil {
		return ErrNoCurrent
	}
	if cur.Status != model.StatusReady {
		return eris.Wrapf(ErrNotReady, "review: send %s (status %s)", cur.ID, cur.Status)
	}

	if s.composer != nil {
		if err := s.composer.OpenDraft(*cur); err != nil {
			return eris.Wrapf(err, "review: open draft for %s", cur.ID)
		}
	}
	return s.transition(ctx, ActionSend, *cur, model.StatusSent, true)
}

// Skip transitions the current opportunity to skipped.
func (s *Session) Skip(ctx context.Context) error {
	cur := s.Current()
	if cur == nil {
		return ErrNoCurrent
	}
	return s.transition(ctx, ActionSkip, *cur, model.StatusSkipped, true)
}

// MarkWon transitions the current opportunity to won. Terminal, but
// still undoable within the window.
func (s *Session) MarkWon(ctx context.Context) error {
	cur := s.Current()
	if cur == nil {
		return ErrNoCurrent
	}
	return s.transition(ctx, ActionMarkWon, *cur, model.StatusWon, true)
}

// MarkLost transitions the current opportunity to lost.
func (s *Session) MarkLost(ctx context.Context) error {
	cur := s.Current()
	if cur == nil {
		return ErrNoCurrent
	}
	return s.transition(ctx, ActionMarkLost, *cur, model.StatusLost, true)
}

// Dismiss transitions the current opportunity to dismissed with a
// required reason. Not undoable: a classification-error reason has
// already propagated feedback upstream by the time undo could run, so
// the buffer is cleared instead. Feedback failure is logged, not
// fatal — the dismissal itself stands.
func (s *Session) Dismiss(ctx context.Context, reason DismissReason) error {
	cur := s.Current()
	if cur == nil {
		return ErrNoCurrent
	}
	if reason == "" {
		return ErrReasonNeeded
	}

	if err := s.transition(ctx, "", *cur, model.StatusDismissed, false); err != nil {
		return err
	}

	if reason.isClassificationError() && s.feedback != nil {
		if err := s.feedback.ReportMisclassification(ctx, *cur, string(reason)); err != nil {
			zap.L().Warn("review: feedback propagation failed",
				zap.String("opportunity_id", cur.ID),
				zap.String("reason", string(reason)),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Undo restores the most recent undoable action if its window has not
// expired, moves the cursor to the restored opportunity and consumes
// the action. With nothing restorable it returns ErrNothingToUndo —
// a user-visible outcome, not a silent no-op.
func (s *Session) Undo(ctx context.Context) error {
	a, ok := s.undo.pop()
	if !ok {
		return ErrNothingToUndo
	}

	snap := a.Snapshot
	fields := store.UpdateFields{
		Status:                &snap.Status,
		PriorityTier:          &snap.PriorityTier,
		PriorityScore:         &snap.PriorityScore,
		SignalIDs:             &snap.SignalIDs,
		IsCompetitorIntercept: &snap.IsCompetitorIntercept,
		Notes:                 &snap.Notes,
	}

	s.writeStates[snap.ID] = WritePending
	if _, err := s.updater.UpdateOpportunity(ctx, snap.ID, fields); err != nil {
		s.writeStates[snap.ID] = WriteFailed
		return eris.Wrapf(err, "review: undo %s write", snap.ID)
	}
	s.writeStates[snap.ID] = WriteCommitted

	for i := range s.queue {
		if s.queue[i].ID == snap.ID {
			s.queue[i] = snap.Clone()
			break
		}
	}
	for vi, qi := range s.visible() {
		if s.queue[qi].ID == snap.ID {
			s.cursor = vi
			break
		}
	}

	zap.L().Info("review: undid action",
		zap.String("kind", string(a.Kind)),
		zap.String("opportunity_id", snap.ID),
	)
	return nil
}

// transition applies the optimistic in-memory change, issues the
// persistence write and arms (or clears) the undo buffer. The
// in-memory state stays advanced on write failure; the caller may
// re-issue the same transition, which is idempotent by target status.
func (s *Session) transition(ctx context.Context, kind ActionKind, cur model.Opportunity, target model.Status, undoable bool) error {
	now := s.now()

	for i := range s.queue {
		if s.queue[i].ID == cur.ID {
			s.queue[i].Status = target
			break
		}
	}
	s.progress.record(now)

	if undoable {
		a := s.undo.push(kind, cur, s.undoWindow)
		if s.notifier != nil {
			s.notifier.Notify(Notification{
				Message:      string(kind) + ": " + cur.ID,
				UndoActionID: a.ID,
				ExpiresAt:    a.ExpiresAt,
			})
		}
	} else {
		// A non-undoable action still supersedes the buffer: only the
		// most recent action is ever restorable.
		s.undo.clear()
	}

	s.writeStates[cur.ID] = WritePending
	if _, err := s.updater.UpdateOpportunity(ctx, cur.ID, store.UpdateFields{Status: &target}); err != nil {
		s.writeStates[cur.ID] = WriteFailed
		return eris.Wrapf(err, "review: %s write for %s", target, cur.ID)
	}
	s.writeStates[cur.ID] = WriteCommitted
	return nil
}
