package decay

import (
	"time"

	"github.com/sells-group/force-pipeline/internal/model"
)

// Report aggregates classified alerts for one query pass. Derived data:
// rebuilt on every call, never persisted.
type Report struct {
	Alerts      []model.DecayAlert                            `json:"alerts"`
	ByStatus    map[model.DecayStatus]int                     `json:"by_status"`
	BySection   map[model.AlertType]map[model.DecayStatus]int `json:"by_section"`
	GeneratedAt time.Time                                     `json:"generated_at"`
}

// BuildReport classifies every contact and reduces the results into
// counts by status and by section.
func (c *Classifier) BuildReport(contacts []model.Contact, now time.Time) *Report {
	r := &Report{
		Alerts:      make([]model.DecayAlert, 0, len(contacts)),
		ByStatus:    make(map[model.DecayStatus]int),
		BySection:   make(map[model.AlertType]map[model.DecayStatus]int),
		GeneratedAt: now,
	}

	for _, ct := range contacts {
		alert := c.Alert(ct, now)
		r.Alerts = append(r.Alerts, alert)
		r.ByStatus[alert.Status]++

		section := r.BySection[alert.AlertType]
		if section == nil {
			section = make(map[model.DecayStatus]int)
			r.BySection[alert.AlertType] = section
		}
		section[alert.Status]++
	}

	return r
}
