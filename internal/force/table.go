// Package force resolves free-text organisation mentions and email
// addresses to canonical police forces.
package force

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/force-pipeline/internal/model"
)

// Table is the alias mapping reference data. Entry order is significant:
// mention resolution returns the first matching alias in declaration
// order, so more specific forces must be listed before generic ones.
type Table struct {
	Forces []model.Force `yaml:"forces"`
}

// LoadTable reads a force alias table from a YAML file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "force: read table %s", path)
	}

	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, eris.Wrapf(err, "force: parse table %s", path)
	}
	if len(t.Forces) == 0 {
		return nil, eris.New("force: table has no forces")
	}

	return &t, nil
}

// DefaultTable returns the compiled-in UK force table, used when no
// override file is configured.
func DefaultTable() *Table {
	return &Table{Forces: []model.Force{
		{
			ID:            "met",
			CanonicalName: "Metropolitan Police Service",
			Aliases:       []string{"met police", "metropolitan police", "the met", "scotland yard"},
			EmailDomains:  []string{"met.police.uk"},
		},
		{
			ID:            "col",
			CanonicalName: "City of London Police",
			Aliases:       []string{"city of london police"},
			EmailDomains:  []string{"cityoflondon.police.uk"},
		},
		{
			ID:            "gmp",
			CanonicalName: "Greater Manchester Police",
			Aliases:       []string{"greater manchester police", "gmp"},
			EmailDomains:  []string{"gmp.police.uk"},
		},
		{
			ID:            "wmp",
			CanonicalName: "West Midlands Police",
			Aliases:       []string{"west midlands police", "wmp"},
			EmailDomains:  []string{"westmidlands.police.uk"},
		},
		{
			ID:            "wyp",
			CanonicalName: "West Yorkshire Police",
			Aliases:       []string{"west yorkshire police"},
			EmailDomains:  []string{"westyorkshire.police.uk"},
		},
		{
			ID:            "tvp",
			CanonicalName: "Thames Valley Police",
			Aliases:       []string{"thames valley police", "thames valley"},
			EmailDomains:  []string{"thamesvalley.police.uk"},
		},
		{
			ID:            "merseyside",
			CanonicalName: "Merseyside Police",
			Aliases:       []string{"merseyside police"},
			EmailDomains:  []string{"merseyside.police.uk"},
		},
		{
			ID:            "kent",
			CanonicalName: "Kent Police",
			Aliases:       []string{"kent police"},
			EmailDomains:  []string{"kent.police.uk"},
		},
		{
			ID:            "essex",
			CanonicalName: "Essex Police",
			Aliases:       []string{"essex police"},
			EmailDomains:  []string{"essex.police.uk"},
		},
		{
			ID:            "sussex",
			CanonicalName: "Sussex Police",
			Aliases:       []string{"sussex police"},
			EmailDomains:  []string{"sussex.police.uk"},
		},
		{
			ID:            "hampshire",
			CanonicalName: "Hampshire and Isle of Wight Constabulary",
			Aliases:       []string{"hampshire constabulary", "hampshire police"},
			EmailDomains:  []string{"hampshire.police.uk"},
		},
		{
			ID:            "btp",
			CanonicalName: "British Transport Police",
			Aliases:       []string{"british transport police", "btp"},
			EmailDomains:  []string{"btp.police.uk"},
		},
		{
			ID:            "scotland",
			CanonicalName: "Police Scotland",
			Aliases:       []string{"police scotland"},
			EmailDomains:  []string{"scotland.police.uk"},
		},
		{
			ID:            "psni",
			CanonicalName: "Police Service of Northern Ireland",
			Aliases:       []string{"psni", "police service of northern ireland"},
			EmailDomains:  []string{"psni.police.uk"},
		},
	}}
}
