package occupancy

import (
	"time"

	"huette/internal/models"
)

// ResolveQuota picks the single quota that applies to day, or nil.
//
// A quota matches when date_from <= day <= date_to. Among matches the winner
// is the one starting on day itself, then the one with the latest date_from,
// then the one with the highest HRS id. The local id breaks any remaining tie
// so the result never depends on input order.
func ResolveQuota(quotas []models.Quota, day time.Time) *models.Quota {
	day = models.DateOnly(day)

	var best *models.Quota
	for i := range quotas {
		q := &quotas[i]
		if !q.Covers(day) {
			continue
		}
		if best == nil || outranks(q, best, day) {
			best = q
		}
	}
	if best == nil {
		return nil
	}
	winner := *best
	return &winner
}

func outranks(a, b *models.Quota, day time.Time) bool {
	aFrom, bFrom := models.DateOnly(a.DateFrom), models.DateOnly(b.DateFrom)

	aStarts, bStarts := aFrom.Equal(day), bFrom.Equal(day)
	if aStarts != bStarts {
		return aStarts
	}
	if !aFrom.Equal(bFrom) {
		return aFrom.After(bFrom)
	}
	if a.HRSID != b.HRSID {
		return a.HRSID > b.HRSID
	}
	return a.ID > b.ID
}

// ResolveQuotas resolves the winning quota of every day in [start, end],
// keyed by YYYY-MM-DD. Days without a match are absent.
func ResolveQuotas(quotas []models.Quota, start, end time.Time) map[string]*models.Quota {
	out := make(map[string]*models.Quota)
	for _, d := range models.EachDay(start, end) {
		if q := ResolveQuota(quotas, d); q != nil {
			out[models.FormatDate(d)] = q
		}
	}
	return out
}
