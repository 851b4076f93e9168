package model

import "time"

// MergeResult records the outcome of deduplicating one force's
// opportunity group.
type MergeResult struct {
	ForceID         string    `json:"force_id"`
	KeeperID        string    `json:"keeper_id"`
	DuplicateIDs    []string  `json:"duplicate_ids"`
	SkippedIDs      []string  `json:"skipped_ids,omitempty"`
	SignalsAdded    int       `json:"signals_added"`
	SignalsTotal    int       `json:"signals_total"`
	InterceptRaised bool      `json:"intercept_raised"`
	MergedAt        time.Time `json:"merged_at"`
}
