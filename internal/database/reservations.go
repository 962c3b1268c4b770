package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"huette/internal/models"

	"github.com/google/uuid"
)

const reservationColumns = `id, hrs_id, code, guest_name, email, phone, arrival, departure,
	sonder, lager, betten, dz, cancelled, source, comment,
	checked_in_at, checked_out_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var (
		r                     models.Reservation
		email, phone, comment sql.NullString
		arrival, departure    string
		source                string
		checkedIn, checkedOut sql.NullTime
		createdAt, updatedAt  sql.NullTime
	)
	err := row.Scan(
		&r.ID, &r.HRSID, &r.Code, &r.GuestName, &email, &phone, &arrival, &departure,
		&r.Beds.Sonder, &r.Beds.Lager, &r.Beds.Betten, &r.Beds.DZ, &r.Cancelled, &source, &comment,
		&checkedIn, &checkedOut, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if r.Arrival, err = models.ParseDate(arrival); err != nil {
		return nil, fmt.Errorf("reservation %d arrival: %w", r.ID, err)
	}
	if r.Departure, err = models.ParseDate(departure); err != nil {
		return nil, fmt.Errorf("reservation %d departure: %w", r.ID, err)
	}
	r.Email = email.String
	r.Phone = phone.String
	r.Comment = comment.String
	r.Source = models.Source(source)
	if checkedIn.Valid {
		t := checkedIn.Time
		r.CheckedInAt = &t
	}
	if checkedOut.Valid {
		t := checkedOut.Time
		r.CheckedOutAt = &t
	}
	r.CreatedAt = createdAt.Time
	r.UpdatedAt = updatedAt.Time
	return &r, nil
}

func (db *DB) queryReservations(ctx context.Context, query string, args ...any) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ReservationsInRange returns every reservation whose stay overlaps the
// inclusive day range [start, end]. Cancelled reservations are included.
func (db *DB) ReservationsInRange(ctx context.Context, start, end time.Time) ([]models.Reservation, error) {
	return db.queryReservations(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE arrival <= ? AND departure > ?
		ORDER BY arrival, id`,
		models.FormatDate(end), models.FormatDate(start),
	)
}

// ReservationsTouching returns the non-cancelled reservations arriving,
// staying or departing on day.
func (db *DB) ReservationsTouching(ctx context.Context, day time.Time) ([]models.Reservation, error) {
	d := models.FormatDate(day)
	return db.queryReservations(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE arrival <= ? AND departure >= ? AND cancelled = 0
		ORDER BY arrival, guest_name, id`,
		d, d,
	)
}

// GetReservation returns a reservation by id.
func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	r, err := scanReservation(db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// GetReservationByCode returns a reservation by its booking code.
func (db *DB) GetReservationByCode(ctx context.Context, code string) (*models.Reservation, error) {
	r, err := scanReservation(db.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE code = ?`, strings.TrimSpace(code)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return r, err
}

// CreateReservation inserts r and fills in its id, code and timestamps.
func (db *DB) CreateReservation(ctx context.Context, r *models.Reservation) error {
	if r.Code == "" {
		r.Code = uuid.NewString()
	}
	if r.Source == "" {
		r.Source = models.SourceLocal
	}
	now := time.Now()
	r.CreatedAt, r.UpdatedAt = now, now

	result, err := db.ExecContext(ctx, `
		INSERT INTO reservations (
			hrs_id, code, guest_name, email, phone, arrival, departure,
			sonder, lager, betten, dz, cancelled, source, comment, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.HRSID, r.Code, r.GuestName, r.Email, r.Phone,
		models.FormatDate(r.Arrival), models.FormatDate(r.Departure),
		r.Beds.Sonder, r.Beds.Lager, r.Beds.Betten, r.Beds.DZ,
		r.Cancelled, string(r.Source), r.Comment, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}

	r.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last id: %w", err)
	}
	return nil
}

// UpdateReservation stores the editable fields of r.
func (db *DB) UpdateReservation(ctx context.Context, r *models.Reservation) error {
	r.UpdatedAt = time.Now()
	result, err := db.ExecContext(ctx, `
		UPDATE reservations
		SET guest_name = ?, email = ?, phone = ?, arrival = ?, departure = ?,
		    sonder = ?, lager = ?, betten = ?, dz = ?, comment = ?, updated_at = ?
		WHERE id = ?`,
		r.GuestName, r.Email, r.Phone,
		models.FormatDate(r.Arrival), models.FormatDate(r.Departure),
		r.Beds.Sonder, r.Beds.Lager, r.Beds.Betten, r.Beds.DZ,
		r.Comment, r.UpdatedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	return expectOneRow(result)
}

// CancelReservation marks a reservation cancelled.
func (db *DB) CancelReservation(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `
		UPDATE reservations SET cancelled = 1, updated_at = ?
		WHERE id = ? AND cancelled = 0`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("cancel reservation: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		if _, getErr := db.GetReservation(ctx, id); getErr != nil {
			return getErr
		}
		return ErrCancelled
	}
	return nil
}

// DeleteReservation physically removes a reservation. Admin action only.
func (db *DB) DeleteReservation(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	return expectOneRow(result)
}

// CheckIn records the arrival of the guests. The guarded UPDATE makes
// concurrent check-ins of the same row safe without versioning.
func (db *DB) CheckIn(ctx context.Context, id int64, at time.Time) error {
	result, err := db.ExecContext(ctx, `
		UPDATE reservations SET checked_in_at = ?, updated_at = ?
		WHERE id = ? AND cancelled = 0 AND checked_in_at IS NULL`,
		at, at, id,
	)
	if err != nil {
		return fmt.Errorf("check in: %w", err)
	}
	if err := expectOneRow(result); err == nil {
		return nil
	}

	r, err := db.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if r.Cancelled {
		return ErrCancelled
	}
	return ErrAlreadyCheckedIn
}

// CheckOut records the departure of the guests.
func (db *DB) CheckOut(ctx context.Context, id int64, at time.Time) error {
	result, err := db.ExecContext(ctx, `
		UPDATE reservations SET checked_out_at = ?, updated_at = ?
		WHERE id = ? AND checked_in_at IS NOT NULL AND checked_out_at IS NULL`,
		at, at, id,
	)
	if err != nil {
		return fmt.Errorf("check out: %w", err)
	}
	if err := expectOneRow(result); err == nil {
		return nil
	}

	r, err := db.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if !r.IsCheckedIn() {
		return ErrNotCheckedIn
	}
	return ErrAlreadyCheckedOut
}

// BulkCheckIn checks in all given reservations in one transaction and
// returns how many were updated. Cancelled, unknown and already checked-in
// reservations are skipped.
func (db *DB) BulkCheckIn(ctx context.Context, ids []int64, at time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE reservations SET checked_in_at = ?, updated_at = ?
		WHERE id = ? AND cancelled = 0 AND checked_in_at IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	updated := 0
	for _, id := range ids {
		result, err := stmt.ExecContext(ctx, at, at, id)
		if err != nil {
			return 0, fmt.Errorf("check in %d: %w", id, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		updated += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

// UpsertHRSReservation inserts or refreshes a reservation imported from HRS,
// keyed by its HRS id. Check-in state and the booking code are kept.
func (db *DB) UpsertHRSReservation(ctx context.Context, r *models.Reservation) (created bool, err error) {
	if r.HRSID == 0 {
		return false, fmt.Errorf("hrs reservation without hrs id")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	var existingID int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM reservations WHERE hrs_id = ?`, r.HRSID).Scan(&existingID)
	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE reservations
			SET guest_name = ?, email = ?, phone = ?, arrival = ?, departure = ?,
			    sonder = ?, lager = ?, betten = ?, dz = ?, cancelled = ?, comment = ?, updated_at = ?
			WHERE id = ?`,
			r.GuestName, r.Email, r.Phone,
			models.FormatDate(r.Arrival), models.FormatDate(r.Departure),
			r.Beds.Sonder, r.Beds.Lager, r.Beds.Betten, r.Beds.DZ,
			r.Cancelled, r.Comment, now, existingID,
		)
		if err != nil {
			return false, fmt.Errorf("update hrs reservation %d: %w", r.HRSID, err)
		}
		r.ID = existingID
	case errors.Is(err, sql.ErrNoRows):
		if r.Code == "" {
			r.Code = uuid.NewString()
		}
		result, err := tx.ExecContext(ctx, `
			INSERT INTO reservations (
				hrs_id, code, guest_name, email, phone, arrival, departure,
				sonder, lager, betten, dz, cancelled, source, comment, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.HRSID, r.Code, r.GuestName, r.Email, r.Phone,
			models.FormatDate(r.Arrival), models.FormatDate(r.Departure),
			r.Beds.Sonder, r.Beds.Lager, r.Beds.Betten, r.Beds.DZ,
			r.Cancelled, string(models.SourceHRS), r.Comment, now, now,
		)
		if err != nil {
			return false, fmt.Errorf("insert hrs reservation %d: %w", r.HRSID, err)
		}
		if r.ID, err = result.LastInsertId(); err != nil {
			return false, fmt.Errorf("get last id: %w", err)
		}
		created = true
	default:
		return false, fmt.Errorf("check existing: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	r.Source = models.SourceHRS
	return created, nil
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
