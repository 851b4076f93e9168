package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/force-pipeline/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS forces (
	id             TEXT PRIMARY KEY,
	canonical_name TEXT NOT NULL,
	aliases        TEXT NOT NULL DEFAULT '[]',
	email_domains  TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS signals (
	id          TEXT PRIMARY KEY,
	type        TEXT NOT NULL,
	source      TEXT NOT NULL,
	title       TEXT NOT NULL,
	detected_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS opportunities (
	id                      TEXT PRIMARY KEY,
	force_id                TEXT NOT NULL REFERENCES forces(id),
	status                  TEXT NOT NULL DEFAULT 'new',
	priority_tier           TEXT NOT NULL DEFAULT 'medium',
	priority_score          REAL NOT NULL DEFAULT 0,
	signal_ids              TEXT NOT NULL DEFAULT '[]',
	is_competitor_intercept INTEGER NOT NULL DEFAULT 0,
	notes                   TEXT NOT NULL DEFAULT '',
	created_at              DATETIME NOT NULL,
	updated_at              DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS contacts (
	id              TEXT PRIMARY KEY,
	force_id        TEXT NOT NULL,
	name            TEXT NOT NULL,
	email           TEXT NOT NULL DEFAULT '',
	alert_type      TEXT NOT NULL,
	is_closed_won   INTEGER NOT NULL DEFAULT 0,
	last_contact_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_opportunities_force_id ON opportunities(force_id);
CREATE INDEX IF NOT EXISTS idx_opportunities_status ON opportunities(status);
CREATE INDEX IF NOT EXISTS idx_contacts_force_id ON contacts(force_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertForce(ctx context.Context, f model.Force) error {
	aliases, err := json.Marshal(f.Aliases)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal aliases")
	}
	domains, err := json.Marshal(f.EmailDomains)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal email domains")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO forces (id, canonical_name, aliases, email_domains) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET canonical_name = excluded.canonical_name,
		 aliases = excluded.aliases, email_domains = excluded.email_domains`,
		f.ID, f.CanonicalName, string(aliases), string(domains),
	)
	return eris.Wrapf(err, "sqlite: upsert force %s", f.ID)
}

func (s *SQLiteStore) ListForces(ctx context.Context) ([]model.Force, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, canonical_name, aliases, email_domains FROM forces ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list forces")
	}
	defer rows.Close()

	var forces []model.Force
	for rows.Next() {
		var f model.Force
		var aliases, domains string
		if err := rows.Scan(&f.ID, &f.CanonicalName, &aliases, &domains); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan force")
		}
		if err := json.Unmarshal([]byte(aliases), &f.Aliases); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal aliases for %s", f.ID)
		}
		if err := json.Unmarshal([]byte(domains), &f.EmailDomains); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal email domains for %s", f.ID)
		}
		forces = append(forces, f)
	}
	return forces, eris.Wrap(rows.Err(), "sqlite: iterate forces")
}

func (s *SQLiteStore) CreateSignal(ctx context.Context, sig model.Signal) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO signals (id, type, source, title, detected_at) VALUES (?, ?, ?, ?, ?)`,
		sig.ID, sig.Type, sig.Source, sig.Title, sig.DetectedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert signal %s", sig.ID)
}

func (s *SQLiteStore) CreateOpportunity(ctx context.Context, o *model.Opportunity) error {
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
		return eris.Wrap(err, "sqlite: marshal signal ids")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO opportunities
		 (id, force_id, status, priority_tier, priority_score, signal_ids, is_competitor_intercept, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.ForceID, string(o.Status), string(o.PriorityTier), o.PriorityScore,
		string(signalIDs), boolToInt(o.IsCompetitorIntercept), o.Notes, o.CreatedAt, o.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert opportunity %s", o.ID)
}

func (s *SQLiteStore) GetOpportunity(ctx context.Context, id string) (*model.Opportunity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, force_id, status, priority_tier, priority_score, signal_ids,
		        is_competitor_intercept, notes, created_at, updated_at
		 FROM opportunities WHERE id = ?`, id)

	o, err := scanOpportunity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: opportunity %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get opportunity %s", id)
	}
	return o, nil
}

func (s *SQLiteStore) ListOpenOpportunities(ctx context.Context, forceID string) ([]model.Opportunity, error) {
	query := `SELECT id, force_id, status, priority_tier, priority_score, signal_ids,
	                 is_competitor_intercept, notes, created_at, updated_at
	          FROM opportunities
	          WHERE status NOT IN ('won', 'lost', 'dormant')`
	args := []any{}
	if forceID != "" {
		query += ` AND force_id = ?`
		args = append(args, forceID)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list open opportunities")
	}
	defer rows.Close()

	var opps []model.Opportunity
	for rows.Next() {
		o, err := scanOpportunity(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan opportunity")
		}
		opps = append(opps, *o)
	}
	return opps, eris.Wrap(rows.Err(), "sqlite: iterate opportunities")
}

func (s *SQLiteStore) UpdateOpportunity(ctx context.Context, id string, fields UpdateFields) (*model.Opportunity, error) {
	o, err := s.GetOpportunity(ctx, id)
	if err != nil {
		return nil, err
	}
	fields.apply(o)
	o.UpdatedAt = time.Now().UTC()

	signalIDs, err := json.Marshal(o.SignalIDs)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal signal ids")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE opportunities SET status = ?, priority_tier = ?, priority_score = ?,
		        signal_ids = ?, is_competitor_intercept = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		string(o.Status), string(o.PriorityTier), o.PriorityScore, string(signalIDs),
		boolToInt(o.IsCompetitorIntercept), o.Notes, o.UpdatedAt, id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update opportunity %s", id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: opportunity %s", id)
	}
	return o, nil
}

func (s *SQLiteStore) UpsertContact(ctx context.Context, c model.Contact) error {
	var last any
	if c.LastContactAt != nil {
		last = c.LastContactAt.UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (id, force_id, name, email, alert_type, is_closed_won, last_contact_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET force_id = excluded.force_id, name = excluded.name,
		 email = excluded.email, alert_type = excluded.alert_type,
		 is_closed_won = excluded.is_closed_won, last_contact_at = excluded.last_contact_at`,
		c.ID, c.ForceID, c.Name, c.Email, string(c.AlertType), boolToInt(c.IsClosedWon), last,
	)
	return eris.Wrapf(err, "sqlite: upsert contact %s", c.ID)
}

func (s *SQLiteStore) ListContactsWithLastContact(ctx context.Context) ([]model.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, force_id, name, email, alert_type, is_closed_won, last_contact_at
		 FROM contacts ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		var c model.Contact
		var alertType string
		var closedWon int
		var last sql.NullTime
		if err := rows.Scan(&c.ID, &c.ForceID, &c.Name, &c.Email, &alertType, &closedWon, &last); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact")
		}
		c.AlertType = model.AlertType(alertType)
		c.IsClosedWon = closedWon != 0
		if last.Valid {
			t := last.Time.UTC()
			c.LastContactAt = &t
		}
		contacts = append(contacts, c)
	}
	return contacts, eris.Wrap(rows.Err(), "sqlite: iterate contacts")
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanOpportunity(row scanner) (*model.Opportunity, error) {
	var o model.Opportunity
	var status, tier, signalIDs string
	var intercept int
	if err := row.Scan(&o.ID, &o.ForceID, &status, &tier, &o.PriorityScore,
		&signalIDs, &intercept, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = model.Status(status)
	o.PriorityTier = model.PriorityTier(tier)
	o.IsCompetitorIntercept = intercept != 0
	if err := json.Unmarshal([]byte(signalIDs), &o.SignalIDs); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal signal ids for %s", o.ID)
	}
	return &o, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
