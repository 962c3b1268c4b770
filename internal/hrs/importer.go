package hrs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"huette/internal/events"
	"huette/internal/metrics"
	"huette/internal/models"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrImportRunning is returned when an import is started while another one runs.
var ErrImportRunning = errors.New("import already running")

// Feed is the HRS data source.
type Feed interface {
	DailySummaries(ctx context.Context, hutID int, from, to time.Time) ([]models.DailySummary, error)
	Quotas(ctx context.Context, hutID int, from, to time.Time) ([]models.Quota, error)
	Reservations(ctx context.Context, hutID int, from, to time.Time) ([]models.Reservation, error)
}

// Store persists imported data.
type Store interface {
	UpsertDailySummary(ctx context.Context, s *models.DailySummary) error
	UpsertQuota(ctx context.Context, q *models.Quota) (bool, error)
	UpsertHRSReservation(ctx context.Context, r *models.Reservation) (bool, error)
	RecordImportRun(ctx context.Context, run *models.ImportRun) error
}

// Publisher receives the import.completed event.
type Publisher interface {
	Publish(event events.Event)
}

// Importer copies the HRS feeds into local storage.
type Importer struct {
	feed       Feed
	store      Store
	publisher  Publisher
	hutID      int
	windowDays int
	logger     *zerolog.Logger

	running sync.Mutex
	now     func() time.Time
}

func NewImporter(feed Feed, store Store, publisher Publisher, hutID, windowDays int, logger *zerolog.Logger) *Importer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Importer{
		feed:       feed,
		store:      store,
		publisher:  publisher,
		hutID:      hutID,
		windowDays: windowDays,
		logger:     logger,
		now:        time.Now,
	}
}

// Run imports [from, to]. The run fails only when every feed fails; any
// other error makes it partial. The returned run is recorded either way.
func (im *Importer) Run(ctx context.Context, from, to time.Time) (*models.ImportRun, error) {
	if !im.running.TryLock() {
		return nil, ErrImportRunning
	}
	defer im.running.Unlock()

	run := &models.ImportRun{
		StartedAt: im.now(),
		From:      models.DateOnly(from),
		To:        models.DateOnly(to),
	}
	log := im.logger.With().Str("from", models.FormatDate(from)).Str("to", models.FormatDate(to)).Logger()
	log.Info().Msg("HRS import started")

	var (
		problems    []string
		feedsFailed int
	)
	fail := func(feed string, err error) {
		feedsFailed++
		problems = append(problems, fmt.Sprintf("%s: %v", feed, err))
		log.Error().Err(err).Str("feed", feed).Msg("HRS feed failed")
	}

	if summaries, err := im.feed.DailySummaries(ctx, im.hutID, from, to); err != nil {
		fail("summaries", err)
	} else {
		for i := range summaries {
			if err := im.store.UpsertDailySummary(ctx, &summaries[i]); err != nil {
				problems = append(problems, err.Error())
				log.Warn().Err(err).Msg("Failed to store summary")
				continue
			}
			run.Summaries++
		}
	}

	if quotas, err := im.feed.Quotas(ctx, im.hutID, from, to); err != nil {
		fail("quotas", err)
	} else {
		for i := range quotas {
			if _, err := im.store.UpsertQuota(ctx, &quotas[i]); err != nil {
				problems = append(problems, err.Error())
				log.Warn().Err(err).Int64("hrs_id", quotas[i].HRSID).Msg("Failed to store quota")
				continue
			}
			run.Quotas++
		}
	}

	if reservations, err := im.feed.Reservations(ctx, im.hutID, from, to); err != nil {
		fail("reservations", err)
	} else {
		for i := range reservations {
			if _, err := im.store.UpsertHRSReservation(ctx, &reservations[i]); err != nil {
				problems = append(problems, err.Error())
				log.Warn().Err(err).Int64("hrs_id", reservations[i].HRSID).Msg("Failed to store reservation")
				continue
			}
			run.Reservations++
		}
	}

	switch {
	case feedsFailed == 3:
		run.Status = models.ImportFailed
	case len(problems) > 0:
		run.Status = models.ImportPartial
	default:
		run.Status = models.ImportOK
	}
	run.Error = strings.Join(problems, "; ")
	run.FinishedAt = im.now()

	if err := im.store.RecordImportRun(ctx, run); err != nil {
		log.Error().Err(err).Msg("Failed to record import run")
	}
	metrics.ObserveImport(run.Status, run.FinishedAt.Sub(run.StartedAt).Seconds())

	if im.publisher != nil {
		if ev, err := events.NewEvent(events.ImportCompleted, run); err == nil {
			im.publisher.Publish(ev)
		}
	}

	log.Info().
		Str("status", run.Status).
		Int("summaries", run.Summaries).
		Int("quotas", run.Quotas).
		Int("reservations", run.Reservations).
		Msg("HRS import finished")

	if run.Status == models.ImportFailed {
		return run, fmt.Errorf("hrs import failed: %s", run.Error)
	}
	return run, nil
}

// RunWindow imports today through today plus the configured window.
func (im *Importer) RunWindow(ctx context.Context) (*models.ImportRun, error) {
	from := models.DateOnly(im.now())
	return im.Run(ctx, from, from.AddDate(0, 0, im.windowDays))
}

// Register schedules RunWindow on c.
func (im *Importer) Register(c *cron.Cron, schedule string) error {
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := im.RunWindow(ctx); err != nil && !errors.Is(err, ErrImportRunning) {
			im.logger.Error().Err(err).Msg("Scheduled HRS import failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule import %q: %w", schedule, err)
	}
	im.logger.Info().Str("schedule", schedule).Msg("HRS import scheduled")
	return nil
}
