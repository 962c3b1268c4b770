package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"huette/internal/models"
)

// UpsertDailySummary stores the HRS snapshot for s.Day, replacing the
// category rows of an earlier snapshot of the same day.
func (db *DB) UpsertDailySummary(ctx context.Context, s *models.DailySummary) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	day := models.FormatDate(s.Day)
	now := time.Now()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO daily_summaries (day, hrs_id, total_guests, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			hrs_id = excluded.hrs_id,
			total_guests = excluded.total_guests,
			updated_at = excluded.updated_at`,
		day, s.HRSID, s.TotalGuests, now,
	); err != nil {
		return fmt.Errorf("upsert summary %s: %w", day, err)
	}

	var summaryID int64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM daily_summaries WHERE day = ?`, day).Scan(&summaryID); err != nil {
		return fmt.Errorf("get summary id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM daily_summary_categories WHERE summary_id = ?`, summaryID); err != nil {
		return fmt.Errorf("clear summary categories: %w", err)
	}

	// Duplicate type codes in one snapshot are summed.
	for _, c := range s.Categories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO daily_summary_categories (summary_id, type_code, assigned, free)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(summary_id, type_code) DO UPDATE SET
				assigned = assigned + excluded.assigned,
				free = free + excluded.free`,
			summaryID, c.TypeCode, c.Assigned, c.Free,
		); err != nil {
			return fmt.Errorf("insert summary category %s: %w", c.TypeCode, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.UpdatedAt = now
	return nil
}

// SummariesInRange returns the snapshots for days in [start, end], ordered by day.
func (db *DB) SummariesInRange(ctx context.Context, start, end time.Time) ([]models.DailySummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT s.id, s.day, s.hrs_id, s.total_guests, s.updated_at,
		       c.type_code, c.assigned, c.free
		FROM daily_summaries s
		LEFT JOIN daily_summary_categories c ON c.summary_id = s.id
		WHERE s.day >= ? AND s.day <= ?
		ORDER BY s.day, c.type_code`,
		models.FormatDate(start), models.FormatDate(end),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out    []models.DailySummary
		lastID int64 = -1
	)
	for rows.Next() {
		var (
			id                int64
			day               string
			s                 models.DailySummary
			updatedAt         sql.NullTime
			typeCode          sql.NullString
			assigned, freeCnt sql.NullInt64
		)
		if err := rows.Scan(&id, &day, &s.HRSID, &s.TotalGuests, &updatedAt, &typeCode, &assigned, &freeCnt); err != nil {
			return nil, err
		}

		if id != lastID {
			if s.Day, err = models.ParseDate(day); err != nil {
				return nil, fmt.Errorf("summary %d day: %w", id, err)
			}
			s.UpdatedAt = updatedAt.Time
			out = append(out, s)
			lastID = id
		}
		if typeCode.Valid {
			cur := &out[len(out)-1]
			cur.Categories = append(cur.Categories, models.SummaryCategory{
				TypeCode: typeCode.String,
				Assigned: int(assigned.Int64),
				Free:     int(freeCnt.Int64),
			})
		}
	}
	return out, rows.Err()
}
