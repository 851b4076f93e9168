package model

import "time"

// Status represents the lifecycle state of an opportunity.
type Status string

const (
	StatusNew       Status = "new"
	StatusReady     Status = "ready"
	StatusSent      Status = "sent"
	StatusReplied   Status = "replied"
	StatusWon       Status = "won"
	StatusLost      Status = "lost"
	StatusDormant   Status = "dormant"
	StatusSkipped   Status = "skipped"
	StatusDismissed Status = "dismissed"
)

// IsTerminal reports whether the status is a soft-archival end state.
// Terminal opportunities are never hard-deleted and are excluded from
// merge candidate sets and review queues.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusWon, StatusLost, StatusDormant:
		return true
	}
	return false
}

// PriorityTier buckets opportunities for review ordering.
type PriorityTier string

const (
	TierHot    PriorityTier = "hot"
	TierHigh   PriorityTier = "high"
	TierMedium PriorityTier = "medium"
	TierLow    PriorityTier = "low"
)

// Rank returns the sort rank of a tier; lower sorts first.
// Unknown tiers rank below low so bad data surfaces at the bottom
// of the queue instead of disappearing.
func (t PriorityTier) Rank() int {
	switch t {
	case TierHot:
		return 0
	case TierHigh:
		return 1
	case TierMedium:
		return 2
	case TierLow:
		return 3
	default:
		return 4
	}
}

// Opportunity is a trackable sales engagement against one police force,
// aggregating the signals that motivated it.
type Opportunity struct {
	ID                    string       `json:"id"`
	ForceID               string       `json:"force_id"`
	Status                Status       `json:"status"`
	PriorityTier          PriorityTier `json:"priority_tier"`
	PriorityScore         float64      `json:"priority_score"`
	SignalIDs             []string     `json:"signal_ids"`
	IsCompetitorIntercept bool         `json:"is_competitor_intercept"`
	Notes                 string       `json:"notes,omitempty"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// Clone returns a deep copy. Used for undo snapshots so a later mutation
// of the live record cannot corrupt the saved state.
func (o Opportunity) Clone() Opportunity {
	c := o
	c.SignalIDs = append([]string(nil), o.SignalIDs...)
	return c
}
