package hrs

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"huette/internal/events"
	"huette/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFeed struct {
	mock.Mock
}

func (m *mockFeed) DailySummaries(ctx context.Context, hutID int, from, to time.Time) ([]models.DailySummary, error) {
	args := m.Called(ctx, hutID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.DailySummary), args.Error(1)
}

func (m *mockFeed) Quotas(ctx context.Context, hutID int, from, to time.Time) ([]models.Quota, error) {
	args := m.Called(ctx, hutID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Quota), args.Error(1)
}

func (m *mockFeed) Reservations(ctx context.Context, hutID int, from, to time.Time) ([]models.Reservation, error) {
	args := m.Called(ctx, hutID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reservation), args.Error(1)
}

type fakeStore struct {
	summaries    []models.DailySummary
	quotas       []models.Quota
	reservations []models.Reservation
	runs         []models.ImportRun
	failQuota    bool
}

func (s *fakeStore) UpsertDailySummary(_ context.Context, d *models.DailySummary) error {
	s.summaries = append(s.summaries, *d)
	return nil
}

func (s *fakeStore) UpsertQuota(_ context.Context, q *models.Quota) (bool, error) {
	if s.failQuota {
		return false, errors.New("constraint failed")
	}
	s.quotas = append(s.quotas, *q)
	return true, nil
}

func (s *fakeStore) UpsertHRSReservation(_ context.Context, r *models.Reservation) (bool, error) {
	s.reservations = append(s.reservations, *r)
	return true, nil
}

func (s *fakeStore) RecordImportRun(_ context.Context, run *models.ImportRun) error {
	s.runs = append(s.runs, *run)
	return nil
}

func newImporter(feed Feed, store Store, publisher Publisher) *Importer {
	logger := zerolog.New(io.Discard)
	return NewImporter(feed, store, publisher, 42, 90, &logger)
}

func TestImporter_RunOK(t *testing.T) {
	feed := new(mockFeed)
	store := &fakeStore{}
	bus := events.NewEventBus()

	var published *models.ImportRun
	bus.Subscribe(events.ImportCompleted, func(e events.Event) error {
		published = &models.ImportRun{}
		return e.Decode(published)
	})

	from, to := day("2025-08-01"), day("2025-08-31")
	feed.On("DailySummaries", mock.Anything, 42, from, to).Return([]models.DailySummary{{Day: from}}, nil)
	feed.On("Quotas", mock.Anything, 42, from, to).Return([]models.Quota{{HRSID: 9, Title: "Sommer"}}, nil)
	feed.On("Reservations", mock.Anything, 42, from, to).Return([]models.Reservation{{HRSID: 1}, {HRSID: 2}}, nil)

	run, err := newImporter(feed, store, bus).Run(context.Background(), from, to)
	require.NoError(t, err)

	assert.Equal(t, models.ImportOK, run.Status)
	assert.Equal(t, 1, run.Summaries)
	assert.Equal(t, 1, run.Quotas)
	assert.Equal(t, 2, run.Reservations)
	assert.Empty(t, run.Error)
	require.Len(t, store.runs, 1)
	require.NotNil(t, published)
	assert.Equal(t, models.ImportOK, published.Status)
	feed.AssertExpectations(t)
}

func TestImporter_RunPartial(t *testing.T) {
	feed := new(mockFeed)
	store := &fakeStore{failQuota: true}

	from, to := day("2025-08-01"), day("2025-08-02")
	feed.On("DailySummaries", mock.Anything, 42, from, to).Return(nil, errors.New("timeout"))
	feed.On("Quotas", mock.Anything, 42, from, to).Return([]models.Quota{{HRSID: 9}}, nil)
	feed.On("Reservations", mock.Anything, 42, from, to).Return([]models.Reservation{{HRSID: 1}}, nil)

	run, err := newImporter(feed, store, nil).Run(context.Background(), from, to)
	require.NoError(t, err)

	assert.Equal(t, models.ImportPartial, run.Status)
	assert.Zero(t, run.Quotas)
	assert.Equal(t, 1, run.Reservations)
	assert.Contains(t, run.Error, "summaries: timeout")
	assert.Contains(t, run.Error, "constraint failed")
}

func TestImporter_RunFailed(t *testing.T) {
	feed := new(mockFeed)
	store := &fakeStore{}

	from, to := day("2025-08-01"), day("2025-08-02")
	down := errors.New("connection refused")
	feed.On("DailySummaries", mock.Anything, 42, from, to).Return(nil, down)
	feed.On("Quotas", mock.Anything, 42, from, to).Return(nil, down)
	feed.On("Reservations", mock.Anything, 42, from, to).Return(nil, down)

	run, err := newImporter(feed, store, nil).Run(context.Background(), from, to)
	require.Error(t, err)
	require.NotNil(t, run)
	assert.Equal(t, models.ImportFailed, run.Status)
	require.Len(t, store.runs, 1)
	assert.Equal(t, models.ImportFailed, store.runs[0].Status)
}

func TestImporter_RunWindowAndRegister(t *testing.T) {
	feed := new(mockFeed)
	im := newImporter(feed, &fakeStore{}, nil)
	im.now = func() time.Time { return time.Date(2025, 8, 1, 10, 30, 0, 0, time.UTC) }

	from, to := day("2025-08-01"), day("2025-10-30")
	feed.On("DailySummaries", mock.Anything, 42, from, to).Return([]models.DailySummary{}, nil)
	feed.On("Quotas", mock.Anything, 42, from, to).Return([]models.Quota{}, nil)
	feed.On("Reservations", mock.Anything, 42, from, to).Return([]models.Reservation{}, nil)

	run, err := im.RunWindow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, to, run.To)

	c := cron.New()
	assert.NoError(t, im.Register(c, "0 */2 * * *"))
	assert.Len(t, c.Entries(), 1)
	assert.Error(t, im.Register(c, "not a schedule"))
}

func TestImporter_RejectsConcurrentRuns(t *testing.T) {
	im := newImporter(new(mockFeed), &fakeStore{}, nil)
	im.running.Lock()
	defer im.running.Unlock()

	_, err := im.Run(context.Background(), day("2025-08-01"), day("2025-08-02"))
	assert.ErrorIs(t, err, ErrImportRunning)
}
