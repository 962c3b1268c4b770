package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"huette/internal/models"
	"huette/internal/occupancy"

	"github.com/rs/zerolog"
)

// ErrInvalidRange is returned when end lies before start or the range is too long.
var ErrInvalidRange = errors.New("invalid date range")

// ReportStore is the storage read by ReportService.
type ReportStore interface {
	ReservationsInRange(ctx context.Context, start, end time.Time) ([]models.Reservation, error)
	ReservationsTouching(ctx context.Context, day time.Time) ([]models.Reservation, error)
	SummariesInRange(ctx context.Context, start, end time.Time) ([]models.DailySummary, error)
	QuotasOverlapping(ctx context.Context, start, end time.Time) ([]models.Quota, error)
	LastImportRun(ctx context.Context) (*models.ImportRun, error)
}

// CompareRow is one day of the quota comparison.
type CompareRow struct {
	Datum              string      `json:"datum"`
	OldQuotas          models.Beds `json:"old_quotas"`
	NewQuotas          models.Beds `json:"new_quotas"`
	Changes            []string    `json:"changes"`
	Occupancy          int         `json:"occupancy"`
	Target             int         `json:"target"`
	ProjectedOccupancy int         `json:"projected_occupancy"`
}

// Dashboard summarizes one day at the front desk.
type Dashboard struct {
	Day             time.Time
	Arrivals        []models.Reservation
	Departures      []models.Reservation
	InHouse         models.Beds
	CheckedIn       int
	PendingCheckIns []models.Reservation
	Free            occupancy.FreeCapacity
	Quota           *models.Quota
	LastImport      *models.ImportRun
}

// ReportService loads the data of a date range and runs the occupancy computations.
type ReportService struct {
	store    ReportStore
	reporter *occupancy.Reporter
	free     *occupancy.FreeResolver
	maxDays  int
	logger   *zerolog.Logger
}

func NewReportService(store ReportStore, maxDays int, logger *zerolog.Logger) *ReportService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &ReportService{
		store:    store,
		reporter: occupancy.NewReporter(logger),
		free:     occupancy.NewFreeResolver(logger),
		maxDays:  maxDays,
		logger:   logger,
	}
}

func (s *ReportService) checkRange(start, end time.Time) error {
	start, end = models.DateOnly(start), models.DateOnly(end)
	if end.Before(start) {
		return ErrInvalidRange
	}
	if s.maxDays > 0 && len(models.EachDay(start, end)) > s.maxDays {
		return fmt.Errorf("%w: more than %d days", ErrInvalidRange, s.maxDays)
	}
	return nil
}

// Report builds the full per-day report of [start, end].
func (s *ReportService) Report(ctx context.Context, start, end time.Time, target int) (occupancy.Report, error) {
	if err := s.checkRange(start, end); err != nil {
		return occupancy.Report{}, err
	}

	reservations, err := s.store.ReservationsInRange(ctx, start, end)
	if err != nil {
		return occupancy.Report{}, fmt.Errorf("load reservations: %w", err)
	}
	summaries, err := s.store.SummariesInRange(ctx, start, end)
	if err != nil {
		return occupancy.Report{}, fmt.Errorf("load summaries: %w", err)
	}
	quotas, err := s.store.QuotasOverlapping(ctx, start, end)
	if err != nil {
		return occupancy.Report{}, fmt.Errorf("load quotas: %w", err)
	}

	return s.reporter.Build(occupancy.ReportInput{
		Start:        start,
		End:          end,
		Target:       target,
		Reservations: reservations,
		Summaries:    summaries,
		Quotas:       quotas,
	}), nil
}

// Occupancy aggregates the reservations of [start, end].
func (s *ReportService) Occupancy(ctx context.Context, start, end time.Time) (occupancy.Occupancy, error) {
	if err := s.checkRange(start, end); err != nil {
		return occupancy.Occupancy{}, err
	}
	reservations, err := s.store.ReservationsInRange(ctx, start, end)
	if err != nil {
		return occupancy.Occupancy{}, fmt.Errorf("load reservations: %w", err)
	}
	return occupancy.Aggregate(reservations, start, end), nil
}

// Free resolves the free capacity of every day of [start, end].
func (s *ReportService) Free(ctx context.Context, start, end time.Time) ([]occupancy.FreeCapacity, error) {
	if err := s.checkRange(start, end); err != nil {
		return nil, err
	}
	summaries, err := s.store.SummariesInRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load summaries: %w", err)
	}
	return s.free.ResolveRange(summaries, start, end), nil
}

// Compare lists, per day, the current quota against the proposed one.
func (s *ReportService) Compare(ctx context.Context, start, end time.Time, target int) ([]CompareRow, error) {
	rep, err := s.Report(ctx, start, end, target)
	if err != nil {
		return nil, err
	}

	rows := make([]CompareRow, 0, len(rep.Days))
	for _, d := range rep.Days {
		p := d.Proposal
		changes := p.Changes
		if changes == nil {
			changes = []string{}
		}
		rows = append(rows, CompareRow{
			Datum:              models.FormatDate(d.Day),
			OldQuotas:          p.OldQuota,
			NewQuotas:          p.NewQuota,
			Changes:            changes,
			Occupancy:          p.Occupied.Total(),
			Target:             p.Target,
			ProjectedOccupancy: p.ProjectedOccupancy(),
		})
	}
	return rows, nil
}

// Dashboard collects the arrivals, departures and check-in state of day.
func (s *ReportService) Dashboard(ctx context.Context, day time.Time) (*Dashboard, error) {
	day = models.DateOnly(day)

	touching, err := s.store.ReservationsTouching(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	summaries, err := s.store.SummariesInRange(ctx, day, day)
	if err != nil {
		return nil, fmt.Errorf("load summaries: %w", err)
	}
	quotas, err := s.store.QuotasOverlapping(ctx, day, day)
	if err != nil {
		return nil, fmt.Errorf("load quotas: %w", err)
	}
	last, err := s.store.LastImportRun(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to load last import run")
	}

	d := &Dashboard{
		Day:        day,
		Quota:      occupancy.ResolveQuota(quotas, day),
		LastImport: last,
	}
	for i := range touching {
		r := touching[i]
		if r.Cancelled {
			continue
		}
		if models.DateOnly(r.Arrival).Equal(day) {
			d.Arrivals = append(d.Arrivals, r)
			if !r.IsCheckedIn() {
				d.PendingCheckIns = append(d.PendingCheckIns, r)
			}
		}
		if models.DateOnly(r.Departure).Equal(day) {
			d.Departures = append(d.Departures, r)
		}
		if r.CoversDay(day) {
			d.InHouse = d.InHouse.Add(r.Beds)
			if r.IsCheckedIn() && !r.IsCheckedOut() {
				d.CheckedIn += r.Beds.Total()
			}
		}
	}

	var summary *models.DailySummary
	if len(summaries) > 0 {
		summary = &summaries[0]
	}
	d.Free = s.free.Resolve(day, summary)
	return d, nil
}

// LastImport returns the most recent HRS import, nil if none ran yet.
func (s *ReportService) LastImport(ctx context.Context) (*models.ImportRun, error) {
	return s.store.LastImportRun(ctx)
}
