package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"huette/internal/models"
)

// RecordImportRun appends run to the import log.
func (db *DB) RecordImportRun(ctx context.Context, run *models.ImportRun) error {
	result, err := db.ExecContext(ctx, `
		INSERT INTO import_runs (started_at, finished_at, range_from, range_to, status, summaries, quotas, reservations, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt, run.FinishedAt, models.FormatDate(run.From), models.FormatDate(run.To),
		run.Status, run.Summaries, run.Quotas, run.Reservations, run.Error,
	)
	if err != nil {
		return fmt.Errorf("insert import run: %w", err)
	}
	run.ID, err = result.LastInsertId()
	return err
}

// LastImportRun returns the most recent import, or nil if there was none.
func (db *DB) LastImportRun(ctx context.Context) (*models.ImportRun, error) {
	var (
		run      models.ImportRun
		from, to string
		errText  sql.NullString
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, range_from, range_to, status, summaries, quotas, reservations, error
		FROM import_runs ORDER BY started_at DESC, id DESC LIMIT 1`,
	).Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &from, &to, &run.Status,
		&run.Summaries, &run.Quotas, &run.Reservations, &errText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if run.From, err = models.ParseDate(from); err != nil {
		return nil, err
	}
	if run.To, err = models.ParseDate(to); err != nil {
		return nil, err
	}
	run.Error = errText.String
	return &run, nil
}
