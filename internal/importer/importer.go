// Package importer loads admin-maintained reference data (forces and
// contacts) from spreadsheet workbooks into the record store. This is
// the only process that writes force reference data.
package importer

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/force-pipeline/internal/model"
	"github.com/sells-group/force-pipeline/internal/store"
)

// Result summarizes one import run.
type Result struct {
	Forces   int
	Contacts int
}

// Run imports the "forces" and "contacts" sheets of a workbook.
// Either sheet may be absent. Rows are upserted, so re-importing the
// same workbook is safe.
func Run(ctx context.Context, st store.Store, path string) (*Result, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: open workbook %s", path)
	}

	res := &Result{}

	if sheet, ok := f.Sheet["forces"]; ok {
		n, err := importForces(ctx, st, sheet)
		if err != nil {
			return res, err
		}
		res.Forces = n
	}
	if sheet, ok := f.Sheet["contacts"]; ok {
		n, err := importContacts(ctx, st, sheet)
		if err != nil {
			return res, err
		}
		res.Contacts = n
	}

	zap.L().Info("importer: workbook imported",
		zap.String("path", path),
		zap.Int("forces", res.Forces),
		zap.Int("contacts", res.Contacts),
	)
	return res, nil
}

// importForces reads rows of: id, canonical name, aliases (semicolon
// separated), email domains (semicolon separated). Row 0 is a header.
func importForces(ctx context.Context, st store.Store, sheet *xlsx.Sheet) (int, error) {
	count := 0
	for i, row := range sheet.Rows {
		if i == 0 {
			continue
		}
		cells := rowToStrings(row)
		if len(cells) < 2 || cells[0] == "" {
			continue
		}

		force := model.Force{
			ID:            strings.TrimSpace(cells[0]),
			CanonicalName: strings.TrimSpace(cells[1]),
		}
		if len(cells) > 2 {
			force.Aliases = splitList(cells[2])
		}
		if len(cells) > 3 {
			force.EmailDomains = splitList(cells[3])
		}

		if err := st.UpsertForce(ctx, force); err != nil {
			return count, eris.Wrapf(err, "importer: row %d", i+1)
		}
		count++
	}
	return count, nil
}

// importContacts reads rows of: id, force id, name, email, alert type,
// closed-won flag, last contact date (2006-01-02, blank = never).
func importContacts(ctx context.Context, st store.Store, sheet *xlsx.Sheet) (int, error) {
	count := 0
	for i, row := range sheet.Rows {
		if i == 0 {
			continue
		}
		cells := rowToStrings(row)
		if len(cells) < 5 || cells[0] == "" {
			continue
		}

		contact := model.Contact{
			ID:        strings.TrimSpace(cells[0]),
			ForceID:   strings.TrimSpace(cells[1]),
			Name:      strings.TrimSpace(cells[2]),
			Email:     strings.TrimSpace(cells[3]),
			AlertType: model.AlertType(strings.TrimSpace(cells[4])),
		}
		if len(cells) > 5 {
			v := strings.ToLower(strings.TrimSpace(cells[5]))
			contact.IsClosedWon = v == "true" || v == "yes" || v == "1"
		}
		if len(cells) > 6 && strings.TrimSpace(cells[6]) != "" {
			t, err := time.Parse("2006-01-02", strings.TrimSpace(cells[6]))
			if err != nil {
				return count, eris.Wrapf(err, "importer: row %d last contact date", i+1)
			}
			contact.LastContactAt = &t
		}

		if err := st.UpsertContact(ctx, contact); err != nil {
			return count, eris.Wrapf(err, "importer: row %d", i+1)
		}
		count++
	}
	return count, nil
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
