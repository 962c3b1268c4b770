package service

import (
	"context"
	"fmt"
	"time"

	"huette/internal/models"
	"huette/internal/occupancy"

	"github.com/rs/zerolog"
)

// QuotaStore is the storage used by QuotaService.
type QuotaStore interface {
	QuotasOverlapping(ctx context.Context, start, end time.Time) ([]models.Quota, error)
	CreateQuota(ctx context.Context, q *models.Quota) error
	DeleteQuota(ctx context.Context, id int64) error
}

// DayQuota is the quota in force on one day, nil when none applies.
type DayQuota struct {
	Day   time.Time
	Quota *models.Quota
}

// QuotaService manages locally entered quotas.
type QuotaService struct {
	store  QuotaStore
	logger *zerolog.Logger
}

func NewQuotaService(store QuotaStore, logger *zerolog.Logger) *QuotaService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &QuotaService{store: store, logger: logger}
}

// PerDay resolves the winning quota of every day of [start, end].
func (s *QuotaService) PerDay(ctx context.Context, start, end time.Time) ([]DayQuota, error) {
	quotas, err := s.store.QuotasOverlapping(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load quotas: %w", err)
	}

	winners := occupancy.ResolveQuotas(quotas, start, end)
	days := models.EachDay(start, end)
	out := make([]DayQuota, 0, len(days))
	for _, d := range days {
		out = append(out, DayQuota{Day: d, Quota: winners[models.FormatDate(d)]})
	}
	return out, nil
}

// Create validates and stores a local quota.
func (s *QuotaService) Create(ctx context.Context, q *models.Quota) error {
	if q.Mode == "" {
		q.Mode = models.QuotaServiced
	}
	q.DateFrom, q.DateTo = models.DateOnly(q.DateFrom), models.DateOnly(q.DateTo)
	if err := q.Validate(); err != nil {
		return err
	}
	q.ID, q.HRSID = 0, 0

	if err := s.store.CreateQuota(ctx, q); err != nil {
		return fmt.Errorf("create quota: %w", err)
	}
	s.logger.Info().Int64("quota_id", q.ID).Str("title", q.Title).Msg("Quota created")
	return nil
}

func (s *QuotaService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteQuota(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("quota_id", id).Msg("Quota deleted")
	return nil
}
