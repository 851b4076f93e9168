package decay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/force-pipeline/internal/config"
	"github.com/sells-group/force-pipeline/internal/model"
)

func contactAt(t *testing.T, now time.Time, daysAgo int) *time.Time {
	t.Helper()
	ts := now.AddDate(0, 0, -daysAgo)
	return &ts
}

func TestClassify_PipelineLadder(t *testing.T) {
	t.Parallel()
	c := New()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		days int
		want model.DecayStatus
	}{
		{0, model.DecayActive},
		{7, model.DecayActive},
		{8, model.DecayWarming},
		{14, model.DecayWarming},
		{15, model.DecayAtRisk},
		{29, model.DecayAtRisk},
		{30, model.DecayCold},
		{365, model.DecayCold},
	}
	for _, tc := range cases {
		status, days := c.Classify(contactAt(t, now, tc.days), false, now)
		assert.Equal(t, tc.want, status, "days=%d", tc.days)
		assert.Equal(t, tc.days, days)
	}
}

func TestClassify_ClientLadder(t *testing.T) {
	t.Parallel()
	c := New()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		days int
		want model.DecayStatus
	}{
		{30, model.DecayActive},
		{31, model.DecayWarming},
		{60, model.DecayWarming},
		{61, model.DecayAtRisk},
		{89, model.DecayAtRisk},
		{90, model.DecayCold},
	}
	for _, tc := range cases {
		status, _ := c.Classify(contactAt(t, now, tc.days), true, now)
		assert.Equal(t, tc.want, status, "days=%d", tc.days)
	}
}

func TestClassify_NoLastContact(t *testing.T) {
	t.Parallel()
	c := New()
	now := time.Now().UTC()

	status, days := c.Classify(nil, false, now)
	assert.Equal(t, model.DecayCold, status)
	assert.Equal(t, -1, days)

	status, _ = c.Classify(nil, true, now)
	assert.Equal(t, model.DecayCold, status)
}

func TestClassify_FutureContactClampsToZero(t *testing.T) {
	t.Parallel()
	c := New()
	now := time.Now().UTC()
	future := now.Add(6 * time.Hour)

	status, days := c.Classify(&future, false, now)
	assert.Equal(t, model.DecayActive, status)
	assert.Equal(t, 0, days)
}

func TestFromConfig_Overrides(t *testing.T) {
	t.Parallel()
	c := FromConfig(config.DecayConfig{
		PipelineWarmingDays: 3,
		PipelineAtRiskDays:  6,
		PipelineColdDays:    10,
	})
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	status, _ := c.Classify(contactAt(t, now, 4), false, now)
	assert.Equal(t, model.DecayWarming, status)

	// Client ladder keeps defaults when unset.
	status, _ = c.Classify(contactAt(t, now, 45), true, now)
	assert.Equal(t, model.DecayWarming, status)
}

func TestBuildReport(t *testing.T) {
	t.Parallel()
	c := New()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	contacts := []model.Contact{
		{ID: "c1", AlertType: model.AlertDealContact, LastContactAt: contactAt(t, now, 2)},
		{ID: "c2", AlertType: model.AlertDealContact, LastContactAt: contactAt(t, now, 20)},
		{ID: "c3", AlertType: model.AlertClientCheckin, IsClosedWon: true, LastContactAt: contactAt(t, now, 95)},
		{ID: "c4", AlertType: model.AlertOrganisation},
	}

	r := c.BuildReport(contacts, now)
	assert.Len(t, r.Alerts, 4)
	assert.Equal(t, 1, r.ByStatus[model.DecayActive])
	assert.Equal(t, 1, r.ByStatus[model.DecayAtRisk])
	assert.Equal(t, 2, r.ByStatus[model.DecayCold])
	assert.Equal(t, 1, r.BySection[model.AlertClientCheckin][model.DecayCold])
	assert.Equal(t, 1, r.BySection[model.AlertOrganisation][model.DecayCold])
}

func TestClassify_Idempotent(t *testing.T) {
	t.Parallel()
	c := New()
	now := time.Now().UTC()
	last := contactAt(t, now, 12)

	s1, d1 := c.Classify(last, false, now)
	s2, d2 := c.Classify(last, false, now)
	assert.Equal(t, s1, s2)
	assert.Equal(t, d1, d2)
}
