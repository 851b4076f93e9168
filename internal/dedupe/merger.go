// Package dedupe collapses duplicate open opportunities for the same
// force into a single keeper record.
package dedupe

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/force-pipeline/internal/model"
	"github.com/sells-group/force-pipeline/internal/store"
)

// Updater is the slice of the record store the merger writes through.
type Updater interface {
	GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error)
	UpdateOpportunity(ctx context.Context, id string, fields store.UpdateFields) (*model.Opportunity, error)
}

// Merger runs the batch deduplication pass.
//
// Precondition: one run at a time against a given record set. A
// concurrent run could observe a group mid-merge and double-archive;
// the conflict check below downgrades that to a skipped duplicate, but
// the job is designed for run-to-completion operation, not concurrent
// invocation.
type Merger struct {
	updater Updater
	limiter *rate.Limiter
	now     func() time.Time
}

// Option configures a Merger.
type Option func(*Merger)

// WithRateLimit throttles record-store writes to rps per second.
// External record APIs rate-limit; the archive fan-out can burst.
func WithRateLimit(rps float64) Option {
	return func(m *Merger) {
		if rps > 0 {
			m.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithClock overrides the timestamp source; used by tests.
func WithClock(now func() time.Time) Option {
	return func(m *Merger) { m.now = now }
}

// New creates a Merger writing through the given updater.
func New(updater Updater, opts ...Option) *Merger {
	m := &Merger{updater: updater, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run merges duplicate open opportunities grouped by force. The input
// is the current open set; terminal records are ignored, which is what
// makes re-running after a partial failure safe. Writes go keeper
// first, then duplicates, each as an independent update. A duplicate
// found already dormant at write time is skipped with a warning. No
// record is ever deleted.
func (m *Merger) Run(ctx context.Context, open []model.Opportunity) ([]model.MergeResult, error) {
	groups := groupByForce(open)

	var results []model.MergeResult
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		result, err := m.mergeGroup(ctx, group)
		if result != nil {
			results = append(results, *result)
		}
		if err != nil {
			return results, err
		}
	}

	zap.L().Info("dedupe: run complete", zap.Int("groups_merged", len(results)))
	return results, nil
}

// groupByForce partitions opportunities by force, preserving input
// order within each group and the order groups are first seen.
func groupByForce(open []model.Opportunity) [][]model.Opportunity {
	index := make(map[string]int)
	var groups [][]model.Opportunity
	for _, o := range open {
		if o.Status.IsTerminal() {
			continue
		}
		i, ok := index[o.ForceID]
		if !ok {
			i = len(groups)
			index[o.ForceID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], o)
	}
	return groups
}

func (m *Merger) mergeGroup(ctx context.Context, group []model.Opportunity) (*model.MergeResult, error) {
	// Oldest wins: the earliest-created opportunity reflects the most
	// established relationship. Stable sort keeps fetch order for ties.
	sort.SliceStable(group, func(i, j int) bool {
		return group[i].CreatedAt.Before(group[j].CreatedAt)
	})
	keeper := group[0]
	duplicates := group[1:]
	now := m.now()

	signals, added := unionSignals(keeper, duplicates)
	intercept := keeper.IsCompetitorIntercept
	for _, d := range duplicates {
		intercept = intercept || d.IsCompetitorIntercept
	}

	result := &model.MergeResult{
		ForceID:         keeper.ForceID,
		KeeperID:        keeper.ID,
		SignalsAdded:    added,
		SignalsTotal:    len(signals),
		InterceptRaised: intercept && !keeper.IsCompetitorIntercept,
		MergedAt:        now,
	}

	// Keeper first. If this write fails nothing has been archived yet
	// and the whole group can simply be re-merged.
	keeperNotes := appendNote(keeper.Notes, fmt.Sprintf(
		"Merged %d duplicate(s), %d signal(s) absorbed [%s]",
		len(duplicates), added, now.Format(time.RFC3339)))
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if _, err := m.updater.UpdateOpportunity(ctx, keeper.ID, store.UpdateFields{
		SignalIDs:             &signals,
		IsCompetitorIntercept: &intercept,
		Notes:                 &keeperNotes,
	}); err != nil {
		return nil, eris.Wrapf(err, "dedupe: update keeper %s", keeper.ID)
	}

	for _, d := range duplicates {
		current, err := m.updater.GetOpportunity(ctx, d.ID)
		if err != nil {
			return result, eris.Wrapf(err, "dedupe: refetch duplicate %s", d.ID)
		}
		if current.Status == model.StatusDormant {
			// Already archived, most likely by an overlapping run.
			zap.L().Warn("dedupe: duplicate already archived, skipping",
				zap.String("opportunity_id", d.ID),
				zap.String("keeper_id", keeper.ID),
			)
			result.SkippedIDs = append(result.SkippedIDs, d.ID)
			continue
		}

		dormant := model.StatusDormant
		notes := appendNote(current.Notes, fmt.Sprintf(
			"Archived as duplicate of %s [%s]", keeper.ID, now.Format(time.RFC3339)))
		if err := m.wait(ctx); err != nil {
			return result, err
		}
		if _, err := m.updater.UpdateOpportunity(ctx, d.ID, store.UpdateFields{
			Status: &dormant,
			Notes:  &notes,
		}); err != nil {
			// Keeper is already correct; the un-archived remainder is
			// picked up by the next run.
			return result, eris.Wrapf(err, "dedupe: archive duplicate %s", d.ID)
		}
		result.DuplicateIDs = append(result.DuplicateIDs, d.ID)
	}

	zap.L().Info("dedupe: merged group",
		zap.String("force_id", keeper.ForceID),
		zap.String("keeper_id", keeper.ID),
		zap.Int("duplicates", len(result.DuplicateIDs)),
		zap.Int("signals_added", added),
	)
	return result, nil
}

// unionSignals returns the keeper's signal list followed by signals
// newly introduced by duplicates, deduplicated by id, order of first
// encounter preserved.
func unionSignals(keeper model.Opportunity, duplicates []model.Opportunity) ([]string, int) {
	seen := make(map[string]bool, len(keeper.SignalIDs))
	union := make([]string, 0, len(keeper.SignalIDs))
	for _, id := range keeper.SignalIDs {
		if !seen[id] {
			seen[id] = true
			union = append(union, id)
		}
	}
	added := 0
	for _, d := range duplicates {
		for _, id := range d.SignalIDs {
			if !seen[id] {
				seen[id] = true
				union = append(union, id)
				added++
			}
		}
	}
	return union, added
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}

func (m *Merger) wait(ctx context.Context) error {
	if m.limiter == nil {
		return nil
	}
	return eris.Wrap(m.limiter.Wait(ctx), "dedupe: rate limit")
}
