package database

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"huette/internal/config"
	"huette/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(filepath.Join(t.TempDir(), "huette.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func day(s string) time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newReservation(name, arrival, departure string, beds models.Beds) *models.Reservation {
	return &models.Reservation{
		GuestName: name,
		Arrival:   day(arrival),
		Departure: day(departure),
		Beds:      beds,
	}
}

func TestReservations_CreateAndRange(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := newReservation("Huber", "2025-07-01", "2025-07-03", models.Beds{Lager: 2})
	b := newReservation("Maier", "2025-07-03", "2025-07-04", models.Beds{DZ: 2})
	c := newReservation("Gruber", "2025-06-20", "2025-06-22", models.Beds{Betten: 1})
	for _, r := range []*models.Reservation{a, b, c} {
		require.NoError(t, db.CreateReservation(ctx, r))
	}

	assert.NotZero(t, a.ID)
	assert.NotEmpty(t, a.Code)
	assert.Equal(t, models.SourceLocal, a.Source)

	got, err := db.ReservationsInRange(ctx, day("2025-07-02"), day("2025-07-03"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Huber", got[0].GuestName)
	assert.Equal(t, "Maier", got[1].GuestName)
	assert.Equal(t, day("2025-07-01"), got[0].Arrival)
	assert.Equal(t, 2, got[0].Beds.Lager)

	// departure day is not part of the stay
	got, err = db.ReservationsInRange(ctx, day("2025-06-22"), day("2025-06-30"))
	require.NoError(t, err)
	assert.Empty(t, got)

	touching, err := db.ReservationsTouching(ctx, day("2025-07-03"))
	require.NoError(t, err)
	assert.Len(t, touching, 2)

	byCode, err := db.GetReservationByCode(ctx, b.Code)
	require.NoError(t, err)
	assert.Equal(t, b.ID, byCode.ID)
}

func TestReservations_UpdateCancelDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r := newReservation("Huber", "2025-07-01", "2025-07-03", models.Beds{Lager: 2})
	require.NoError(t, db.CreateReservation(ctx, r))

	r.GuestName = "Huber-Moser"
	r.Phone = "+43 1234"
	r.Beds = models.Beds{Lager: 1, Sonder: 1}
	require.NoError(t, db.UpdateReservation(ctx, r))

	stored, err := db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Huber-Moser", stored.GuestName)
	assert.Equal(t, "+43 1234", stored.Phone)
	assert.Equal(t, models.Beds{Lager: 1, Sonder: 1}, stored.Beds)

	require.NoError(t, db.CancelReservation(ctx, r.ID))
	assert.ErrorIs(t, db.CancelReservation(ctx, r.ID), ErrCancelled)
	assert.ErrorIs(t, db.CancelReservation(ctx, 999), ErrNotFound)

	// cancelled rows stay visible in range queries
	got, err := db.ReservationsInRange(ctx, day("2025-07-01"), day("2025-07-01"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Cancelled)

	require.NoError(t, db.DeleteReservation(ctx, r.ID))
	_, err = db.GetReservation(ctx, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteReservation(ctx, r.ID), ErrNotFound)
}

func TestReservations_CheckInOut(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 15, 0, 0, 0, time.UTC)

	r := newReservation("Huber", "2025-07-01", "2025-07-03", models.Beds{Lager: 2})
	require.NoError(t, db.CreateReservation(ctx, r))

	assert.ErrorIs(t, db.CheckOut(ctx, r.ID, now), ErrNotCheckedIn)
	require.NoError(t, db.CheckIn(ctx, r.ID, now))
	assert.ErrorIs(t, db.CheckIn(ctx, r.ID, now), ErrAlreadyCheckedIn)
	require.NoError(t, db.CheckOut(ctx, r.ID, now.Add(48*time.Hour)))
	assert.ErrorIs(t, db.CheckOut(ctx, r.ID, now), ErrAlreadyCheckedOut)

	stored, err := db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CheckedInAt)
	assert.True(t, stored.CheckedInAt.Equal(now))
	assert.True(t, stored.IsCheckedOut())

	cancelled := newReservation("Maier", "2025-07-01", "2025-07-02", models.Beds{DZ: 2})
	require.NoError(t, db.CreateReservation(ctx, cancelled))
	require.NoError(t, db.CancelReservation(ctx, cancelled.ID))
	assert.ErrorIs(t, db.CheckIn(ctx, cancelled.ID, now), ErrCancelled)
	assert.ErrorIs(t, db.CheckIn(ctx, 4242, now), ErrNotFound)
}

func TestReservations_BulkCheckIn(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now()

	var ids []int64
	for _, name := range []string{"A", "B", "C"} {
		r := newReservation(name, "2025-07-01", "2025-07-02", models.Beds{Lager: 1})
		require.NoError(t, db.CreateReservation(ctx, r))
		ids = append(ids, r.ID)
	}
	require.NoError(t, db.CheckIn(ctx, ids[0], now))
	require.NoError(t, db.CancelReservation(ctx, ids[1]))

	n, err := db.BulkCheckIn(ctx, append(ids, 999), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = db.BulkCheckIn(ctx, nil, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReservations_UpsertHRS(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	r := newReservation("Alpenverein Sektion", "2025-08-01", "2025-08-03", models.Beds{Lager: 8})
	r.HRSID = 5001
	created, err := db.UpsertHRSReservation(ctx, r)
	require.NoError(t, err)
	assert.True(t, created)
	code := r.Code
	require.NoError(t, db.CheckIn(ctx, r.ID, time.Now()))

	again := newReservation("Alpenverein Sektion", "2025-08-01", "2025-08-04", models.Beds{Lager: 6})
	again.HRSID = 5001
	created, err = db.UpsertHRSReservation(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, r.ID, again.ID)

	stored, err := db.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, code, stored.Code)
	assert.Equal(t, models.SourceHRS, stored.Source)
	assert.Equal(t, 6, stored.Beds.Lager)
	assert.Equal(t, day("2025-08-04"), stored.Departure)
	assert.True(t, stored.IsCheckedIn())

	_, err = db.UpsertHRSReservation(ctx, newReservation("x", "2025-08-01", "2025-08-02", models.Beds{Lager: 1}))
	assert.Error(t, err)
}

func TestDailySummaries(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	s := &models.DailySummary{
		Day:         day("2025-08-01"),
		HRSID:       77,
		TotalGuests: 40,
		Categories: []models.SummaryCategory{
			{TypeCode: "ML", Assigned: 20, Free: 5},
			{TypeCode: "ML", Assigned: 2, Free: -1},
			{TypeCode: "MBZ", Assigned: 10, Free: 2},
		},
	}
	require.NoError(t, db.UpsertDailySummary(ctx, s))
	require.NoError(t, db.UpsertDailySummary(ctx, &models.DailySummary{Day: day("2025-08-02"), TotalGuests: 3}))

	got, err := db.SummariesInRange(ctx, day("2025-08-01"), day("2025-08-31"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 40, got[0].TotalGuests)
	assert.Equal(t, []models.SummaryCategory{
		{TypeCode: "MBZ", Assigned: 10, Free: 2},
		{TypeCode: "ML", Assigned: 22, Free: 4},
	}, got[0].Categories)
	assert.Empty(t, got[1].Categories)

	// a newer snapshot replaces the categories
	s.Categories = []models.SummaryCategory{{TypeCode: "SK", Free: 1}}
	require.NoError(t, db.UpsertDailySummary(ctx, s))
	got, err = db.SummariesInRange(ctx, day("2025-08-01"), day("2025-08-01"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []models.SummaryCategory{{TypeCode: "SK", Free: 1}}, got[0].Categories)
}

func TestQuotas(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	local := &models.Quota{
		Title:      "Sommer",
		Mode:       models.QuotaServiced,
		DateFrom:   day("2025-07-01"),
		DateTo:     day("2025-07-31"),
		Categories: models.QuotaCategoriesFromBeds(models.Beds{Lager: 30, Betten: 10}),
	}
	require.NoError(t, db.CreateQuota(ctx, local))
	assert.NotZero(t, local.ID)

	imported := &models.Quota{
		HRSID:      900,
		Title:      "August",
		Mode:       models.QuotaServiced,
		DateFrom:   day("2025-07-31"),
		DateTo:     day("2025-08-31"),
		Categories: []models.QuotaCategory{{TypeCode: "ML", Capacity: 20}},
	}
	created, err := db.UpsertQuota(ctx, imported)
	require.NoError(t, err)
	assert.True(t, created)

	imported.Title = "August neu"
	imported.Categories = []models.QuotaCategory{{TypeCode: "ML", Capacity: 25}, {TypeCode: "SK", Capacity: 2}}
	created, err = db.UpsertQuota(ctx, imported)
	require.NoError(t, err)
	assert.False(t, created)

	// window end is inclusive
	got, err := db.QuotasOverlapping(ctx, day("2025-07-31"), day("2025-07-31"))
	require.NoError(t, err)
	require.Len(t, got, 2)

	got, err = db.QuotasOverlapping(ctx, day("2025-08-15"), day("2025-09-15"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "August neu", got[0].Title)
	assert.Equal(t, models.Beds{Lager: 25, Sonder: 2}, got[0].Allocation())

	q, err := db.GetQuota(ctx, local.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Beds{Lager: 30, Betten: 10}, q.Allocation())

	require.NoError(t, db.DeleteQuota(ctx, local.ID))
	_, err = db.GetQuota(ctx, local.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteQuota(ctx, local.ID), ErrNotFound)
}

func TestImportRuns(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	last, err := db.LastImportRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	started := time.Now().Add(-time.Minute)
	for _, status := range []string{models.ImportOK, models.ImportPartial} {
		run := &models.ImportRun{
			StartedAt:  started,
			FinishedAt: started.Add(time.Second),
			From:       day("2025-07-01"),
			To:         day("2025-09-30"),
			Status:     status,
			Summaries:  3,
		}
		require.NoError(t, db.RecordImportRun(ctx, run))
		started = started.Add(time.Second)
	}

	last, err = db.LastImportRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, models.ImportPartial, last.Status)
	assert.Equal(t, day("2025-09-30"), last.To)
}

func TestGetTableData(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.CreateReservation(ctx, newReservation("Huber", "2025-07-01", "2025-07-02", models.Beds{Lager: 1})))

	names, err := db.GetTableNames(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "reservations")

	rows, columns, err := db.GetTableData(ctx, "reservations")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Contains(t, columns, "guest_name")
	assert.Equal(t, "Huber", rows[0]["guest_name"])

	_, _, err = db.GetTableData(ctx, "sqlite_master; DROP TABLE reservations")
	assert.Error(t, err)
}

func TestBackupService(t *testing.T) {
	db := newTestDB(t)
	logger := zerolog.New(io.Discard)
	dir := t.TempDir()

	svc := NewBackupService(db, config.BackupConfig{Enabled: true, StoragePath: dir, RetentionDays: 7}, &logger)
	path, err := svc.PerformBackup(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, path)

	old := filepath.Join(dir, backupPrefix+"20000101_000000.db")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o600))
	past := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(old, past, past))

	assert.Equal(t, 1, svc.CleanupOldBackups())
	assert.NoFileExists(t, old)
	assert.FileExists(t, path)
}

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return &DB{DB: sqlDB}, mock
}

func TestCheckIn_ExecError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`UPDATE reservations SET checked_in_at`).
		WillReturnError(errors.New("disk I/O error"))

	err := db.CheckIn(context.Background(), 1, time.Now())
	assert.ErrorContains(t, err, "disk I/O error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkCheckIn_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`UPDATE reservations SET checked_in_at`)
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnError(errors.New("locked"))
	mock.ExpectRollback()

	n, err := db.BulkCheckIn(context.Background(), []int64{1, 2}, time.Now())
	assert.Error(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSummariesInRange_QueryError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`FROM daily_summaries`).
		WithArgs("2025-08-01", "2025-08-02").
		WillReturnError(errors.New("no such table"))

	_, err := db.SummariesInRange(context.Background(), day("2025-08-01"), day("2025-08-02"))
	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewDB_ReopenKeepsSchemaAndData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huette.db")
	ctx := context.Background()

	db, err := NewDB(path, nil)
	require.NoError(t, err)
	r := newReservation("Huber", "2025-07-01", "2025-07-02", models.Beds{Lager: 1})
	r.Phone = "+43 512 000"
	require.NoError(t, db.CreateReservation(ctx, r))
	require.NoError(t, db.Close())

	reopened, err := NewDB(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.GetReservation(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "+43 512 000", got.Phone)
	assert.Nil(t, got.CheckedOutAt)

	_, columns, err := reopened.GetTableData(ctx, "reservations")
	require.NoError(t, err)
	assert.Contains(t, columns, "phone")
	assert.Contains(t, columns, "checked_out_at")
}
