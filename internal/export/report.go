package export

import (
	"context"
	"fmt"
	"strings"

	"huette/internal/models"
	"huette/internal/occupancy"
)

var dayColumns = []string{
	"Datum",
	"HRS Sonder", "HRS Lager", "HRS Betten", "HRS DZ",
	"Lokal Sonder", "Lokal Lager", "Lokal Betten", "Lokal DZ",
	"Belegt", "Frei", "Kontingent", "Kontingent neu", "Änderungen", "Ziel", "Prognose",
}

var reservationColumns = []string{
	"ID", "Code", "Quelle", "Gast", "Anreise", "Abreise", "Nächte",
	"Sonder", "Lager", "Betten", "DZ", "Storniert", "Eingecheckt",
}

// TableSource provides raw tables for the dump.
type TableSource interface {
	GetTableNames(ctx context.Context) ([]string, error)
	GetTableData(ctx context.Context, tableName string) ([]map[string]any, []string, error)
}

// WriteReport fills w with a "Belegung" sheet (one row per day) and a
// "Reservierungen" sheet with the contributing reservations.
func WriteReport(w Writer, rep occupancy.Report) error {
	if err := w.AddSheet("Belegung"); err != nil {
		return err
	}
	if err := w.WriteHeader(dayColumns); err != nil {
		return err
	}

	for _, d := range rep.Days {
		hrs, local := d.Occupancy.HRS, d.Occupancy.Local
		p := d.Proposal
		row := []any{
			models.FormatDate(d.Day),
			hrs.Sonder, hrs.Lager, hrs.Betten, hrs.DZ,
			local.Sonder, local.Lager, local.Betten, local.DZ,
			d.Occupancy.Total().Total(),
			d.Free.Total,
			p.OldQuota.Total(),
			p.NewQuota.Total(),
			strings.Join(p.Changes, ", "),
			p.Target,
			p.ProjectedOccupancy(),
		}
		if err := w.WriteRow(row); err != nil {
			return fmt.Errorf("write day %s: %w", models.FormatDate(d.Day), err)
		}
	}

	if err := w.AddSheet("Reservierungen"); err != nil {
		return err
	}
	if err := w.WriteHeader(reservationColumns); err != nil {
		return err
	}
	for _, r := range rep.Rows {
		checkedIn := ""
		if r.CheckedInAt != nil {
			checkedIn = r.CheckedInAt.Format("2006-01-02 15:04")
		}
		row := []any{
			r.ID, r.Code, string(r.Source), r.GuestName,
			models.FormatDate(r.Arrival), models.FormatDate(r.Departure), r.Nights(),
			r.Beds.Sonder, r.Beds.Lager, r.Beds.Betten, r.Beds.DZ,
			r.Cancelled, checkedIn,
		}
		if err := w.WriteRow(row); err != nil {
			return fmt.Errorf("write reservation %d: %w", r.ID, err)
		}
	}
	return nil
}

// WriteTables dumps every table of src into its own sheet.
func WriteTables(ctx context.Context, w Writer, src TableSource) error {
	tables, err := src.GetTableNames(ctx)
	if err != nil {
		return fmt.Errorf("get table names: %w", err)
	}

	for _, name := range tables {
		data, columns, err := src.GetTableData(ctx, name)
		if err != nil {
			return fmt.Errorf("read table %s: %w", name, err)
		}
		if err := w.AddSheet(name); err != nil {
			return err
		}
		if err := w.WriteHeader(columns); err != nil {
			return err
		}
		for _, row := range data {
			values := make([]any, len(columns))
			for i, col := range columns {
				values[i] = row[col]
			}
			if err := w.WriteRow(values); err != nil {
				return fmt.Errorf("write %s row: %w", name, err)
			}
		}
	}
	return nil
}
