package occupancy

import (
	"time"

	"huette/internal/metrics"
	"huette/internal/models"

	"github.com/rs/zerolog"
)

// FreeCapacity is the number of places still available on a day.
type FreeCapacity struct {
	Day   time.Time
	Total int
	Beds  models.Beds
	// Categorized is false when no per-category snapshot existed and the
	// figures are the conservative zero fallback.
	Categorized bool
}

// FreeResolver derives free capacity from HRS daily summaries.
type FreeResolver struct {
	logger *zerolog.Logger
}

func NewFreeResolver(logger *zerolog.Logger) *FreeResolver {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "free_capacity").Logger()
	return &FreeResolver{logger: &l}
}

// Resolve returns the free places of day according to summary.
//
// Negative feed values are clamped to zero per category. Without a
// categorized snapshot the result is all zero: there is no baseline to
// subtract occupancy from.
func (r *FreeResolver) Resolve(day time.Time, summary *models.DailySummary) FreeCapacity {
	out := FreeCapacity{Day: models.DateOnly(day)}
	if summary == nil {
		return out
	}

	var raw models.Beds
	mapped := false
	for _, sc := range summary.Categories {
		c, ok := models.CategoryForCode(sc.TypeCode)
		if !ok {
			continue
		}
		raw.Set(c, raw.Get(c)+sc.Free)
		mapped = true
	}
	if !mapped {
		return out
	}

	for _, c := range models.Categories {
		n := raw.Get(c)
		if n < 0 {
			r.logger.Warn().
				Str("day", models.FormatDate(out.Day)).
				Str("category", c.String()).
				Int("free", n).
				Msg("negative free capacity in HRS summary, clamped to 0")
			metrics.IncCapacityClamped(c.Key())
			n = 0
		}
		out.Beds.Set(c, n)
	}
	out.Total = out.Beds.Total()
	out.Categorized = true
	return out
}

// ResolveRange resolves free capacity for every day of [start, end].
// Days without a summary fall back to zero.
func (r *FreeResolver) ResolveRange(summaries []models.DailySummary, start, end time.Time) []FreeCapacity {
	byDay := make(map[string]*models.DailySummary, len(summaries))
	for i := range summaries {
		byDay[models.FormatDate(summaries[i].Day)] = &summaries[i]
	}

	days := models.EachDay(start, end)
	out := make([]FreeCapacity, 0, len(days))
	for _, d := range days {
		out = append(out, r.Resolve(d, byDay[models.FormatDate(d)]))
	}
	return out
}
