package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusIsTerminal(t *testing.T) {
	t.Parallel()
	for _, s := range []Status{StatusWon, StatusLost, StatusDormant} {
		assert.True(t, s.IsTerminal(), "status %s", s)
	}
	for _, s := range []Status{StatusNew, StatusReady, StatusSent, StatusReplied, StatusSkipped, StatusDismissed} {
		assert.False(t, s.IsTerminal(), "status %s", s)
	}
}

func TestPriorityTierRank(t *testing.T) {
	t.Parallel()
	assert.Less(t, TierHot.Rank(), TierHigh.Rank())
	assert.Less(t, TierHigh.Rank(), TierMedium.Rank())
	assert.Less(t, TierMedium.Rank(), TierLow.Rank())
	assert.Greater(t, PriorityTier("garbage").Rank(), TierLow.Rank())
}

func TestCloneIsolatesSignalIDs(t *testing.T) {
	t.Parallel()
	o := Opportunity{ID: "opp-1", SignalIDs: []string{"a", "b"}}
	c := o.Clone()
	c.SignalIDs[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, o.SignalIDs)
}
