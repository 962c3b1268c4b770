package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"huette/internal/models"
)

// QuotasOverlapping returns the quotas whose inclusive window intersects
// [start, end], with their categories.
func (db *DB) QuotasOverlapping(ctx context.Context, start, end time.Time) ([]models.Quota, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT q.id, q.hrs_id, q.title, q.mode, q.date_from, q.date_to,
		       c.type_code, c.capacity
		FROM quotas q
		LEFT JOIN quota_categories c ON c.quota_id = q.id
		WHERE q.date_from <= ? AND q.date_to >= ?
		ORDER BY q.date_from, q.id, c.type_code`,
		models.FormatDate(end), models.FormatDate(start),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out    []models.Quota
		lastID int64 = -1
	)
	for rows.Next() {
		var (
			q        models.Quota
			mode     string
			from, to string
			typeCode sql.NullString
			capacity sql.NullInt64
		)
		if err := rows.Scan(&q.ID, &q.HRSID, &q.Title, &mode, &from, &to, &typeCode, &capacity); err != nil {
			return nil, err
		}

		if q.ID != lastID {
			q.Mode = models.QuotaMode(mode)
			if q.DateFrom, err = models.ParseDate(from); err != nil {
				return nil, fmt.Errorf("quota %d date_from: %w", q.ID, err)
			}
			if q.DateTo, err = models.ParseDate(to); err != nil {
				return nil, fmt.Errorf("quota %d date_to: %w", q.ID, err)
			}
			out = append(out, q)
			lastID = q.ID
		}
		if typeCode.Valid {
			cur := &out[len(out)-1]
			cur.Categories = append(cur.Categories, models.QuotaCategory{
				TypeCode: typeCode.String,
				Capacity: int(capacity.Int64),
			})
		}
	}
	return out, rows.Err()
}

// GetQuota returns a quota by local id.
func (db *DB) GetQuota(ctx context.Context, id int64) (*models.Quota, error) {
	var from, to string
	var (
		q    models.Quota
		mode string
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, hrs_id, title, mode, date_from, date_to FROM quotas WHERE id = ?`, id,
	).Scan(&q.ID, &q.HRSID, &q.Title, &mode, &from, &to)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	q.Mode = models.QuotaMode(mode)
	if q.DateFrom, err = models.ParseDate(from); err != nil {
		return nil, err
	}
	if q.DateTo, err = models.ParseDate(to); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT type_code, capacity FROM quota_categories WHERE quota_id = ? ORDER BY type_code`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c models.QuotaCategory
		if err := rows.Scan(&c.TypeCode, &c.Capacity); err != nil {
			return nil, err
		}
		q.Categories = append(q.Categories, c)
	}
	return &q, rows.Err()
}

// CreateQuota inserts a locally entered quota.
func (db *DB) CreateQuota(ctx context.Context, q *models.Quota) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertQuota(ctx, tx, q); err != nil {
		return err
	}
	return tx.Commit()
}

// UpsertQuota inserts or replaces a quota imported from HRS, keyed by its HRS id.
func (db *DB) UpsertQuota(ctx context.Context, q *models.Quota) (created bool, err error) {
	if q.HRSID == 0 {
		return false, fmt.Errorf("hrs quota without hrs id")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM quotas WHERE hrs_id = ?`, q.HRSID).Scan(&existingID)
	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE quotas SET title = ?, mode = ?, date_from = ?, date_to = ?, updated_at = ?
			WHERE id = ?`,
			q.Title, string(q.Mode), models.FormatDate(q.DateFrom), models.FormatDate(q.DateTo),
			time.Now(), existingID,
		)
		if err != nil {
			return false, fmt.Errorf("update quota %d: %w", q.HRSID, err)
		}
		q.ID = existingID
		if err := writeQuotaCategories(ctx, tx, q); err != nil {
			return false, err
		}
	case errors.Is(err, sql.ErrNoRows):
		if err := insertQuota(ctx, tx, q); err != nil {
			return false, err
		}
		created = true
	default:
		return false, fmt.Errorf("check existing: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

// DeleteQuota removes a quota and its categories.
func (db *DB) DeleteQuota(ctx context.Context, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM quota_categories WHERE quota_id = ?`, id); err != nil {
		return fmt.Errorf("delete quota categories: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM quotas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete quota: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return err
	}
	return tx.Commit()
}

func insertQuota(ctx context.Context, tx *sql.Tx, q *models.Quota) error {
	now := time.Now()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO quotas (hrs_id, title, mode, date_from, date_to, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		q.HRSID, q.Title, string(q.Mode), models.FormatDate(q.DateFrom), models.FormatDate(q.DateTo), now, now,
	)
	if err != nil {
		return fmt.Errorf("insert quota: %w", err)
	}
	if q.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("get last id: %w", err)
	}
	return writeQuotaCategories(ctx, tx, q)
}

func writeQuotaCategories(ctx context.Context, tx *sql.Tx, q *models.Quota) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM quota_categories WHERE quota_id = ?`, q.ID); err != nil {
		return fmt.Errorf("clear quota categories: %w", err)
	}
	for _, c := range q.Categories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO quota_categories (quota_id, type_code, capacity) VALUES (?, ?, ?)
			ON CONFLICT(quota_id, type_code) DO UPDATE SET capacity = capacity + excluded.capacity`,
			q.ID, c.TypeCode, c.Capacity,
		); err != nil {
			return fmt.Errorf("insert quota category %s: %w", c.TypeCode, err)
		}
	}
	return nil
}
