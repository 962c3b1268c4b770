package occupancy

import (
	"time"

	"huette/internal/models"

	"github.com/rs/zerolog"
)

// ReportInput is everything one report needs, already loaded for the range.
type ReportInput struct {
	Start, End   time.Time
	Target       int
	Reservations []models.Reservation
	Summaries    []models.DailySummary
	Quotas       []models.Quota
}

// DayReport combines all figures of one day.
type DayReport struct {
	Day       time.Time
	Occupancy DayAggregate
	Free      FreeCapacity
	Quota     *models.Quota
	Proposal  Proposal
}

// Report is the per-day dashboard of a date range.
type Report struct {
	Start, End time.Time
	Target     int
	Days       []DayReport
	Rows       []models.Reservation
}

// Reporter assembles reports.
type Reporter struct {
	free *FreeResolver
}

func NewReporter(logger *zerolog.Logger) *Reporter {
	return &Reporter{free: NewFreeResolver(logger)}
}

// Build runs aggregation, free-capacity and quota resolution and the
// optimizer for every day of the input range.
func (r *Reporter) Build(in ReportInput) Report {
	start, end := models.DateOnly(in.Start), models.DateOnly(in.End)
	rep := Report{Start: start, End: end, Target: in.Target}

	occ := Aggregate(in.Reservations, start, end)
	free := r.free.ResolveRange(in.Summaries, start, end)
	rep.Rows = occ.Rows
	rep.Days = make([]DayReport, 0, len(occ.Days))

	for i, agg := range occ.Days {
		dr := DayReport{
			Day:       agg.Day,
			Occupancy: agg,
			Free:      free[i],
			Quota:     ResolveQuota(in.Quotas, agg.Day),
		}
		var allocation models.Beds
		if dr.Quota != nil {
			allocation = dr.Quota.Allocation()
		}
		dr.Proposal = Optimize(agg.Total(), allocation, in.Target)
		rep.Days = append(rep.Days, dr)
	}
	return rep
}
