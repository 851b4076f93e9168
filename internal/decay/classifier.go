// Package decay classifies relationship staleness against tiered
// day thresholds.
package decay

import (
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/force-pipeline/internal/config"
	"github.com/sells-group/force-pipeline/internal/model"
)

// Thresholds holds one ladder of day boundaries. Bands are
// inclusive-lower, exclusive-upper; the cold band is unbounded above.
type Thresholds struct {
	WarmingDays int
	AtRiskDays  int
	ColdDays    int
}

// Classifier computes decay status from last-contact timestamps.
// Stateless and safe for concurrent use.
type Classifier struct {
	pipeline Thresholds // active deals
	client   Thresholds // closed-won check-in cadence
}

// New builds a classifier with the default ladders: 8/15/30 days for
// active pipeline, 31/61/90 for closed-won clients.
func New() *Classifier {
	return &Classifier{
		pipeline: Thresholds{WarmingDays: 8, AtRiskDays: 15, ColdDays: 30},
		client:   Thresholds{WarmingDays: 31, AtRiskDays: 61, ColdDays: 90},
	}
}

// FromConfig builds a classifier from configured thresholds, falling
// back to defaults for any unset value.
func FromConfig(cfg config.DecayConfig) *Classifier {
	c := New()
	if cfg.PipelineWarmingDays > 0 {
		c.pipeline.WarmingDays = cfg.PipelineWarmingDays
	}
	if cfg.PipelineAtRiskDays > 0 {
		c.pipeline.AtRiskDays = cfg.PipelineAtRiskDays
	}
	if cfg.PipelineColdDays > 0 {
		c.pipeline.ColdDays = cfg.PipelineColdDays
	}
	if cfg.ClientWarmingDays > 0 {
		c.client.WarmingDays = cfg.ClientWarmingDays
	}
	if cfg.ClientAtRiskDays > 0 {
		c.client.AtRiskDays = cfg.ClientAtRiskDays
	}
	if cfg.ClientColdDays > 0 {
		c.client.ColdDays = cfg.ClientColdDays
	}
	return c
}

// Classify returns the decay status and whole days elapsed since
// lastContact as of now. A nil lastContact classifies as cold with
// DaysSinceContact -1: a contact we have never reached must stay
// visible, not be silently omitted.
func (c *Classifier) Classify(lastContact *time.Time, isClosedWon bool, now time.Time) (model.DecayStatus, int) {
	if lastContact == nil {
		return model.DecayCold, -1
	}

	days := int(now.Sub(*lastContact).Hours() / 24)
	if days < 0 {
		days = 0
	}

	ladder := c.pipeline
	if isClosedWon {
		ladder = c.client
	}

	switch {
	case days < ladder.WarmingDays:
		return model.DecayActive, days
	case days < ladder.AtRiskDays:
		return model.DecayWarming, days
	case days < ladder.ColdDays:
		return model.DecayAtRisk, days
	default:
		return model.DecayCold, days
	}
}

// Alert classifies a contact and wraps the result as a derived
// DecayAlert record.
func (c *Classifier) Alert(contact model.Contact, now time.Time) model.DecayAlert {
	status, days := c.Classify(contact.LastContactAt, contact.IsClosedWon, now)
	return model.DecayAlert{
		ID:               uuid.New().String(),
		AlertType:        contact.AlertType,
		ContactID:        contact.ID,
		IsClosedWon:      contact.IsClosedWon,
		Status:           status,
		DaysSinceContact: days,
		CalculatedAt:     now,
	}
}
