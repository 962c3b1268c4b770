// Package occupancy turns reservations, HRS capacity snapshots and quotas
// into per-day occupancy figures, free capacity and quota proposals.
// Everything here is pure in-memory computation over already fetched rows.
package occupancy

import (
	"time"

	"huette/internal/models"
)

// DayAggregate is the confirmed occupancy of one night, split by source.
type DayAggregate struct {
	Day   time.Time
	HRS   models.Beds
	Local models.Beds
}

// Total returns the occupancy of both sources.
func (d DayAggregate) Total() models.Beds {
	return d.HRS.Add(d.Local)
}

// BySource returns the occupancy of one source.
func (d DayAggregate) BySource(s models.Source) models.Beds {
	if s == models.SourceHRS {
		return d.HRS
	}
	return d.Local
}

// Occupancy is the result of Aggregate.
type Occupancy struct {
	Days []DayAggregate
	// Rows are the reservations that contributed to at least one day.
	Rows []models.Reservation

	index map[string]int
}

// Day looks up the aggregate of a single day.
func (o Occupancy) Day(day time.Time) (DayAggregate, bool) {
	i, ok := o.index[models.FormatDate(day)]
	if !ok {
		return DayAggregate{Day: models.DateOnly(day)}, false
	}
	return o.Days[i], true
}

// Aggregate sums the beds of every non-cancelled reservation over each day of
// [start, end] it covers (arrival <= day < departure).
func Aggregate(reservations []models.Reservation, start, end time.Time) Occupancy {
	days := models.EachDay(start, end)
	if len(days) == 0 {
		return Occupancy{}
	}

	out := Occupancy{
		Days:  make([]DayAggregate, len(days)),
		index: make(map[string]int, len(days)),
	}
	for i, d := range days {
		out.Days[i] = DayAggregate{Day: d}
		out.index[models.FormatDate(d)] = i
	}

	first, last := days[0], days[len(days)-1]
	for i := range reservations {
		r := &reservations[i]
		if r.Cancelled {
			continue
		}

		from := models.DateOnly(r.Arrival)
		if from.Before(first) {
			from = first
		}
		contributed := false
		for d := from; !d.After(last) && r.CoversDay(d); d = d.AddDate(0, 0, 1) {
			agg := &out.Days[out.index[models.FormatDate(d)]]
			if r.Source == models.SourceHRS {
				agg.HRS = agg.HRS.Add(r.Beds)
			} else {
				agg.Local = agg.Local.Add(r.Beds)
			}
			contributed = true
		}
		if contributed {
			out.Rows = append(out.Rows, *r)
		}
	}
	return out
}
