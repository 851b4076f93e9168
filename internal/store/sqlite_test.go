package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/force-pipeline/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedForce(t *testing.T, st *SQLiteStore, id string) {
	t.Helper()
	require.NoError(t, st.UpsertForce(context.Background(), model.Force{
		ID:            id,
		CanonicalName: "Force " + id,
		Aliases:       []string{id + " police"},
	}))
}

func TestSQLite_Opportunity_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	seedForce(t, st, "met")

	o := &model.Opportunity{
		ForceID:       "met",
		PriorityTier:  model.TierHot,
		PriorityScore: 82.5,
		SignalIDs:     []string{"sig-1", "sig-2"},
	}
	require.NoError(t, st.CreateOpportunity(ctx, o))
	require.NotEmpty(t, o.ID)
	assert.Equal(t, model.StatusNew, o.Status)

	got, err := st.GetOpportunity(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "met", got.ForceID)
	assert.Equal(t, model.TierHot, got.PriorityTier)
	assert.Equal(t, []string{"sig-1", "sig-2"}, got.SignalIDs)
	assert.False(t, got.IsCompetitorIntercept)
}

func TestSQLite_Opportunity_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetOpportunity(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_Opportunity_PartialUpdate(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	seedForce(t, st, "met")

	o := &model.Opportunity{ForceID: "met", Status: model.StatusReady, PriorityTier: model.TierHigh}
	require.NoError(t, st.CreateOpportunity(ctx, o))

	sent := model.StatusSent
	updated, err := st.UpdateOpportunity(ctx, o.ID, UpdateFields{Status: &sent})
	require.NoError(t, err)
	assert.Equal(t, model.StatusSent, updated.Status)
	// Untouched fields survive.
	assert.Equal(t, model.TierHigh, updated.PriorityTier)

	intercept := true
	notes := "merged from duplicate"
	updated, err = st.UpdateOpportunity(ctx, o.ID, UpdateFields{
		IsCompetitorIntercept: &intercept,
		Notes:                 &notes,
	})
	require.NoError(t, err)
	assert.True(t, updated.IsCompetitorIntercept)
	assert.Equal(t, notes, updated.Notes)
	assert.Equal(t, model.StatusSent, updated.Status)
}

func TestSQLite_ListOpenOpportunities_ExcludesTerminal(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	seedForce(t, st, "met")
	seedForce(t, st, "gmp")

	mk := func(forceID string, status model.Status) string {
		o := &model.Opportunity{ForceID: forceID, Status: status}
		require.NoError(t, st.CreateOpportunity(ctx, o))
		return o.ID
	}
	openID := mk("met", model.StatusReady)
	mk("met", model.StatusDormant)
	mk("met", model.StatusWon)
	mk("met", model.StatusLost)
	otherID := mk("gmp", model.StatusSent)

	opps, err := st.ListOpenOpportunities(ctx, "")
	require.NoError(t, err)
	require.Len(t, opps, 2)

	opps, err = st.ListOpenOpportunities(ctx, "met")
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, openID, opps[0].ID)
	assert.NotEqual(t, otherID, opps[0].ID)
}

func TestSQLite_ListOpenOpportunities_OrderedByCreation(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	seedForce(t, st, "met")

	base := time.Now().UTC().Add(-time.Hour)
	var ids []string
	for i := 0; i < 3; i++ {
		o := &model.Opportunity{ForceID: "met", Status: model.StatusReady, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, st.CreateOpportunity(ctx, o))
		ids = append(ids, o.ID)
	}

	opps, err := st.ListOpenOpportunities(ctx, "met")
	require.NoError(t, err)
	require.Len(t, opps, 3)
	for i, o := range opps {
		assert.Equal(t, ids[i], o.ID)
	}
}

func TestSQLite_Forces_UpsertAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	f := model.Force{ID: "met", CanonicalName: "Metropolitan Police Service",
		Aliases: []string{"met police"}, EmailDomains: []string{"met.police.uk"}}
	require.NoError(t, st.UpsertForce(ctx, f))

	// Second upsert overwrites.
	f.CanonicalName = "Metropolitan Police"
	require.NoError(t, st.UpsertForce(ctx, f))

	forces, err := st.ListForces(ctx)
	require.NoError(t, err)
	require.Len(t, forces, 1)
	assert.Equal(t, "Metropolitan Police", forces[0].CanonicalName)
	assert.Equal(t, []string{"met.police.uk"}, forces[0].EmailDomains)
}

func TestSQLite_Contacts_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	last := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, st.UpsertContact(ctx, model.Contact{
		ID: "c1", ForceID: "met", Name: "DCI Example", Email: "x@met.police.uk",
		AlertType: model.AlertDealContact, LastContactAt: &last,
	}))
	require.NoError(t, st.UpsertContact(ctx, model.Contact{
		ID: "c2", ForceID: "gmp", Name: "Never Contacted",
		AlertType: model.AlertOrganisation, IsClosedWon: true,
	}))

	contacts, err := st.ListContactsWithLastContact(ctx)
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	require.NotNil(t, contacts[0].LastContactAt)
	assert.True(t, contacts[0].LastContactAt.Equal(last))
	assert.Nil(t, contacts[1].LastContactAt)
	assert.True(t, contacts[1].IsClosedWon)
}

func TestSQLite_CreateSignal(t *testing.T) {
	st := newTestSQLiteStore(t)
	err := st.CreateSignal(context.Background(), model.Signal{
		ID: "sig-1", Type: "job_posting", Source: "indeed",
		Title: "Digital Forensics Lead", DetectedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	// Duplicate id violates the primary key.
	err = st.CreateSignal(context.Background(), model.Signal{ID: "sig-1", DetectedAt: time.Now().UTC()})
	assert.Error(t, err)
}
