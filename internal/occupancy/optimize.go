package occupancy

import (
	"fmt"

	"huette/internal/models"
)

// Proposal is an advisory quota allocation that would bring
// occupancy + free quota to the requested target. It is never persisted.
type Proposal struct {
	Target     int
	Occupied   models.Beds
	OldQuota   models.Beds
	NewQuota   models.Beds
	OldFree    models.Beds
	NewFree    models.Beds
	Adjustment int
	// Changes lists "<Category>: <signed delta>" for every changed category.
	Changes []string
}

// ProjectedOccupancy is occupancy plus the free places of the new allocation.
func (p Proposal) ProjectedOccupancy() int {
	return p.Occupied.Total() + p.NewFree.Total()
}

// FreeUnderQuota is max(0, quota - occupied) per category.
func FreeUnderQuota(quota, occupied models.Beds) models.Beds {
	var free models.Beds
	for _, c := range models.Categories {
		free.Set(c, clampZero(quota.Get(c)-occupied.Get(c)))
	}
	return free
}

// Optimize computes the quota allocation that reaches target.
//
// The whole adjustment goes to Lager when Lager has an allocation. Otherwise
// it is split evenly over the non-zero categories among Sonder, Betten and DZ.
// Every category is clamped at zero on its own; an amount lost to clamping is
// not moved to the remaining categories.
func Optimize(occupied, quota models.Beds, target int) Proposal {
	p := Proposal{
		Target:   target,
		Occupied: occupied,
		OldQuota: quota,
		OldFree:  FreeUnderQuota(quota, occupied),
	}

	required := target - occupied.Total()
	p.Adjustment = required - p.OldFree.Total()

	next := quota
	if quota.Lager != 0 {
		next.Lager = clampZero(quota.Lager + p.Adjustment)
	} else {
		spread(&next, p.Adjustment)
	}

	p.NewQuota = next
	p.NewFree = FreeUnderQuota(next, occupied)
	for _, c := range models.Categories {
		if delta := next.Get(c) - quota.Get(c); delta != 0 {
			p.Changes = append(p.Changes, fmt.Sprintf("%s: %+d", c, delta))
		}
	}
	return p
}

// spread divides adjustment over the non-zero of Sonder, Betten and DZ.
// The remainder of the integer split goes one unit at a time to the
// categories in that order.
func spread(b *models.Beds, adjustment int) {
	var targets []models.Category
	for _, c := range []models.Category{models.Sonder, models.Betten, models.DZ} {
		if b.Get(c) != 0 {
			targets = append(targets, c)
		}
	}
	if len(targets) == 0 || adjustment == 0 {
		return
	}

	share := adjustment / len(targets)
	rem := adjustment % len(targets)
	for i, c := range targets {
		delta := share
		switch {
		case rem > 0 && i < rem:
			delta++
		case rem < 0 && i < -rem:
			delta--
		}
		b.Set(c, clampZero(b.Get(c)+delta))
	}
}

func clampZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
