package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/force-pipeline/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies
// it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using a pgx connection pool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS forces (
	id             TEXT PRIMARY KEY,
	canonical_name TEXT NOT NULL,
	aliases        JSONB NOT NULL DEFAULT '[]',
	email_domains  JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS signals (
	id          TEXT PRIMARY KEY,
	type        TEXT NOT NULL,
	source      TEXT NOT NULL,
	title       TEXT NOT NULL,
	detected_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS opportunities (
	id                      TEXT PRIMARY KEY,
	force_id                TEXT NOT NULL REFERENCES forces(id),
	status                  TEXT NOT NULL DEFAULT 'new',
	priority_tier           TEXT NOT NULL DEFAULT 'medium',
	priority_score          DOUBLE PRECISION NOT NULL DEFAULT 0,
	signal_ids              JSONB NOT NULL DEFAULT '[]',
	is_competitor_intercept BOOLEAN NOT NULL DEFAULT false,
	notes                   TEXT NOT NULL DEFAULT '',
	created_at              TIMESTAMPTZ NOT NULL,
	updated_at              TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS contacts (
	id              TEXT PRIMARY KEY,
	force_id        TEXT NOT NULL,
	name            TEXT NOT NULL,
	email           TEXT NOT NULL DEFAULT '',
	alert_type      TEXT NOT NULL,
	is_closed_won   BOOLEAN NOT NULL DEFAULT false,
	last_contact_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_opportunities_force_id ON opportunities(force_id);
CREATE INDEX IF NOT EXISTS idx_opportunities_status ON opportunities(status);
CREATE INDEX IF NOT EXISTS idx_contacts_force_id ON contacts(force_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertForce(ctx context.Context, f model.Force) error {
	aliases, err := json.Marshal(f.Aliases)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal aliases")
	}
	domains, err := json.Marshal(f.EmailDomains)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal email domains")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO forces (id, canonical_name, aliases, email_domains) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET canonical_name = EXCLUDED.canonical_name,
		 aliases = EXCLUDED.aliases, email_domains = EXCLUDED.email_domains`,
		f.ID, f.CanonicalName, aliases, domains,
	)
	return eris.Wrapf(err, "postgres: upsert force %s", f.ID)
}

func (s *PostgresStore) ListForces(ctx context.Context) ([]model.Force, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, canonical_name, aliases, email_domains FROM forces ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list forces")
	}
	defer rows.Close()

	var forces []model.Force
	for rows.Next() {
		var f model.Force
		var aliases, domains []byte
		if err := rows.Scan(&f.ID, &f.CanonicalName, &aliases, &domains); err != nil {
			return nil, eris.Wrap(err, "postgres: scan force")
		}
		if err := json.Unmarshal(aliases, &f.Aliases); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal aliases for %s", f.ID)
		}
		if err := json.Unmarshal(domains, &f.EmailDomains); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal email domains for %s", f.ID)
		}
		forces = append(forces, f)
	}
	return forces, eris.Wrap(rows.Err(), "postgres: iterate forces")
}

func (s *PostgresStore) CreateSignal(ctx context.Context, sig model.Signal) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO signals (id, type, source, title, detected_at) VALUES ($1, $2, $3, $4, $5)`,
		sig.ID, sig.Type, sig.Source, sig.Title, sig.DetectedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: insert signal %s", sig.ID)
}

func (s *PostgresStore) CreateOpportunity(ctx context.Context, o *model.Opportunity) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	if o.Status == "" {
		o.Status = model.StatusNew
	}

	signalIDs, err := json.Marshal(o.SignalIDs)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal signal ids")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO opportunities
		 (id, force_id, status, priority_tier, priority_score, signal_ids, is_competitor_intercept, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.ForceID, string(o.Status), string(o.PriorityTier), o.PriorityScore,
		signalIDs, o.IsCompetitorIntercept, o.Notes, o.CreatedAt, o.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert opportunity %s", o.ID)
}

const selectOpportunity = `SELECT id, force_id, status, priority_tier, priority_score, signal_ids,
       is_competitor_intercept, notes, created_at, updated_at
FROM opportunities`

func (s *PostgresStore) GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error) {
	row := s.pool.QueryRow(ctx, selectOpportunity+` WHERE id = $1`, id)

	o, err := scanPgOpportunity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: opportunity %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get opportunity %s", id)
	}
	return o, nil
}

func (s *PostgresStore) ListOpenOpportunities(ctx context.Context, forceID string) ([]model.Opportunity, error) {
	query := selectOpportunity + ` WHERE status NOT IN ('won', 'lost', 'dormant')`
	args := []any{}
	if forceID != "" {
		query += ` AND force_id = $1`
		args = append(args, forceID)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list open opportunities")
	}
	defer rows.Close()

	var opps []model.Opportunity
	for rows.Next() {
		o, err := scanPgOpportunity(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan opportunity")
		}
		opps = append(opps, *o)
	}
	return opps, eris.Wrap(rows.Err(), "postgres: iterate opportunities")
}

func (s *PostgresStore) UpdateOpportunity(ctx context.Context, id string, fields UpdateFields) (*model.Opportunity, error) {
	o, err := s.GetOpportunity(ctx, id)
	if err != nil {
		return nil, err
	}
	fields.apply(o)
	o.UpdatedAt = time.Now().UTC()

	signalIDs, err := json.Marshal(o.SignalIDs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal signal ids")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE opportunities SET status = $1, priority_tier = $2, priority_score = $3,
		        signal_ids = $4, is_competitor_intercept = $5, notes = $6, updated_at = $7
		 WHERE id = $8`,
		string(o.Status), string(o.PriorityTier), o.PriorityScore, signalIDs,
		o.IsCompetitorIntercept, o.Notes, o.UpdatedAt, id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update opportunity %s", id)
	}
	if tag.RowsAffected() == 0 {
		return nil, eris.Wrapf(ErrNotFound, "postgres: opportunity %s", id)
	}
	return o, nil
}

func (s *PostgresStore) UpsertContact(ctx context.Context, c model.Contact) error {
	var last *time.Time
	if c.LastContactAt != nil {
		t := c.LastContactAt.UTC()
		last = &t
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO contacts (id, force_id, name, email, alert_type, is_closed_won, last_contact_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET force_id = EXCLUDED.force_id, name = EXCLUDED.name,
		 email = EXCLUDED.email, alert_type = EXCLUDED.alert_type,
		 is_closed_won = EXCLUDED.is_closed_won, last_contact_at = EXCLUDED.last_contact_at`,
		c.ID, c.ForceID, c.Name, c.Email, string(c.AlertType), c.IsClosedWon, last,
	)
	return eris.Wrapf(err, "postgres: upsert contact %s", c.ID)
}

func (s *PostgresStore) ListContactsWithLastContact(ctx context.Context) ([]model.Contact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, force_id, name, email, alert_type, is_closed_won, last_contact_at
		 FROM contacts ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		var c model.Contact
		var alertType string
		var last *time.Time
		if err := rows.Scan(&c.ID, &c.ForceID, &c.Name, &c.Email, &alertType, &c.IsClosedWon, &last); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		c.AlertType = model.AlertType(alertType)
		c.LastContactAt = last
		contacts = append(contacts, c)
	}
	return contacts, eris.Wrap(rows.Err(), "postgres: iterate contacts")
}

func scanPgOpportunity(row pgx.Row) (*model.Opportunity, error) {
	var o model.Opportunity
	var status, tier string
	var signalIDs []byte
	if err := row.Scan(&o.ID, &o.ForceID, &status, &tier, &o.PriorityScore,
		&signalIDs, &o.IsCompetitorIntercept, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = model.Status(status)
	o.PriorityTier = model.PriorityTier(tier)
	if err := json.Unmarshal(signalIDs, &o.SignalIDs); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal signal ids for %s", o.ID)
	}
	return &o, nil
}
