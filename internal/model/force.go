package model

import "time"

// Force is a canonical police force. Reference data: created and updated
// by the import process, never mutated by the pipeline core.
type Force struct {
	ID            string   `json:"id" yaml:"id"`
	CanonicalName string   `json:"canonical_name" yaml:"canonical_name"`
	Aliases       []string `json:"aliases" yaml:"aliases"`
	EmailDomains  []string `json:"email_domains,omitempty" yaml:"email_domains,omitempty"`
}

// Signal is a discrete piece of evidence (news item, job posting, tender
// notice) suggesting an engagement opportunity with a force.
type Signal struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Source     string    `json:"source"`
	Title      string    `json:"title"`
	DetectedAt time.Time `json:"detected_at"`
}
