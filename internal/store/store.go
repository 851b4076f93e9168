// Package store persists the opportunity record set behind a driver
// interface. The pipeline core only ever sees this interface; which
// engine backs it is a deployment concern.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/force-pipeline/internal/config"
	"github.com/sells-group/force-pipeline/internal/model"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = eris.New("store: not found")

// UpdateFields is a partial opportunity update. Nil fields are left
// unchanged.
type UpdateFields struct {
	Status                *model.Status
	PriorityTier          *model.PriorityTier
	PriorityScore         *float64
	SignalIDs             *[]string
	IsCompetitorIntercept *bool
	Notes                 *string
}

// Store defines the persistence interface for the pipeline.
type Store interface {
	// Forces (reference data, owned by the import process)
	UpsertForce(ctx context.Context, f model.Force) error
	ListForces(ctx context.Context) ([]model.Force, error)

	// Signals
	CreateSignal(ctx context.Context, s model.Signal) error

	// Opportunities
	CreateOpportunity(ctx context.Context, o *model.Opportunity) error
	GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error)
	ListOpenOpportunities(ctx context.Context, forceID string) ([]model.Opportunity, error)
	UpdateOpportunity(ctx context.Context, id string, fields UpdateFields) (*model.Opportunity, error)

	// Contacts
	UpsertContact(ctx context.Context, c model.Contact) error
	ListContactsWithLastContact(ctx context.Context) ([]model.Contact, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open constructs a store for the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// apply merges partial fields onto an opportunity record.
func (f UpdateFields) apply(o *model.Opportunity) {
	if f.Status != nil {
		o.Status = *f.Status
	}
	if f.PriorityTier != nil {
		o.PriorityTier = *f.PriorityTier
	}
	if f.PriorityScore != nil {
		o.PriorityScore = *f.PriorityScore
	}
	if f.SignalIDs != nil {
		o.SignalIDs = append([]string(nil), (*f.SignalIDs)...)
	}
	if f.IsCompetitorIntercept != nil {
		o.IsCompetitorIntercept = *f.IsCompetitorIntercept
	}
	if f.Notes != nil {
		o.Notes = *f.Notes
	}
}
