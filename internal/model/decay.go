package model

import "time"

// AlertType identifies which relationship section a decay alert belongs to.
type AlertType string

const (
	AlertDealContact   AlertType = "deal_contact"
	AlertClientCheckin AlertType = "client_checkin"
	AlertOrganisation  AlertType = "organisation"
)

// DecayStatus is the staleness tier of a contact relationship.
type DecayStatus string

const (
	DecayActive  DecayStatus = "active"
	DecayWarming DecayStatus = "warming"
	DecayAtRisk  DecayStatus = "at_risk"
	DecayCold    DecayStatus = "cold"
)

// DecayAlert is a derived record: recomputed from last-contact timestamps
// on every query, never a source of truth.
//
// DaysSinceContact is -1 when the contact has no recorded last-contact
// date; such contacts classify as cold so they stay visible.
type DecayAlert struct {
	ID               string      `json:"id"`
	AlertType        AlertType   `json:"alert_type"`
	ContactID        string      `json:"contact_id"`
	IsClosedWon      bool        `json:"is_closed_won"`
	Status           DecayStatus `json:"status"`
	DaysSinceContact int         `json:"days_since_contact"`
	CalculatedAt     time.Time   `json:"calculated_at"`
}

// Contact is the minimal contact projection the decay classifier consumes.
type Contact struct {
	ID            string     `json:"id"`
	ForceID       string     `json:"force_id"`
	Name          string     `json:"name"`
	Email         string     `json:"email,omitempty"`
	AlertType     AlertType  `json:"alert_type"`
	IsClosedWon   bool       `json:"is_closed_won"`
	LastContactAt *time.Time `json:"last_contact_at,omitempty"`
}
