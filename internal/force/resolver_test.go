package force

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/force-pipeline/internal/model"
)

func TestResolveMention(t *testing.T) {
	t.Parallel()
	r := NewResolver(DefaultTable())

	t.Run("substring match is case-insensitive", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "met", r.ResolveMention("Met Police HR Team"))
		assert.Equal(t, "met", r.ResolveMention("CONTACT AT METROPOLITAN POLICE"))
		assert.Equal(t, "gmp", r.ResolveMention("Greater Manchester Police procurement"))
	})

	t.Run("no match returns empty", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, r.ResolveMention("Random Company Ltd"))
		assert.Empty(t, r.ResolveMention(""))
	})

	t.Run("first alias in table order wins", func(t *testing.T) {
		t.Parallel()
		tbl := &Table{Forces: []model.Force{
			{ID: "a", CanonicalName: "Force A", Aliases: []string{"shire police"}},
			{ID: "b", CanonicalName: "Force B", Aliases: []string{"northshire police"}},
		}}
		// "shire police" is declared first and matches as a substring,
		// even though "northshire police" is the more specific alias.
		got := NewResolver(tbl).ResolveMention("Northshire Police HQ")
		assert.Equal(t, "a", got)
	})
}

func TestResolveEmail(t *testing.T) {
	t.Parallel()
	r := NewResolver(DefaultTable())

	t.Run("exact domain", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "met", r.ResolveEmail("jane.doe@met.police.uk"))
	})

	t.Run("subdomain falls back to containment", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, "met", r.ResolveEmail("ops@cid.met.police.uk"))
	})

	t.Run("exact match preferred over containment", func(t *testing.T) {
		t.Parallel()
		tbl := &Table{Forces: []model.Force{
			{ID: "broad", CanonicalName: "Broad", EmailDomains: []string{"police.uk"}},
			{ID: "kent", CanonicalName: "Kent Police", EmailDomains: []string{"kent.police.uk"}},
		}}
		got := NewResolver(tbl).ResolveEmail("x@kent.police.uk")
		assert.Equal(t, "kent", got)
	})

	t.Run("unresolved and malformed", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, r.ResolveEmail("someone@acme.example.com"))
		assert.Empty(t, r.ResolveEmail("not-an-email"))
		assert.Empty(t, r.ResolveEmail("trailing@"))
	})
}

func TestLoadTable(t *testing.T) {
	t.Parallel()

	t.Run("valid file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "forces.yaml")
		data := `forces:
  - id: met
    canonical_name: Metropolitan Police Service
    aliases: ["met police"]
    email_domains: ["met.police.uk"]
`
		require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

		tbl, err := LoadTable(path)
		require.NoError(t, err)
		require.Len(t, tbl.Forces, 1)
		assert.Equal(t, "met", NewResolver(tbl).ResolveMention("the met police called"))
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadTable(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("empty table", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "empty.yaml")
		require.NoError(t, os.WriteFile(path, []byte("forces: []\n"), 0o600))
		_, err := LoadTable(path)
		assert.Error(t, err)
	})
}
