package occupancy

import (
	"testing"

	"huette/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeResolver_Categorized(t *testing.T) {
	r := NewFreeResolver(nil)
	summary := &models.DailySummary{
		Day:         d("2025-08-01"),
		TotalGuests: 90,
		Categories: []models.SummaryCategory{
			{TypeCode: "SK", Free: 1},
			{TypeCode: "ML", Free: 5},
			{TypeCode: "MBZ", Free: -3},
			{TypeCode: "2BZ", Free: 2},
			{TypeCode: "WR", Free: 100},
		},
	}

	got := r.Resolve(d("2025-08-01"), summary)

	assert.True(t, got.Categorized)
	assert.Equal(t, models.Beds{Sonder: 1, Lager: 5, Betten: 0, DZ: 2}, got.Beds)
	assert.Equal(t, got.Beds.Total(), got.Total)
	assert.Equal(t, 8, got.Total)
}

func TestFreeResolver_Fallback(t *testing.T) {
	r := NewFreeResolver(nil)

	t.Run("no snapshot", func(t *testing.T) {
		got := r.Resolve(d("2025-08-01"), nil)
		assert.False(t, got.Categorized)
		assert.Zero(t, got.Total)
		assert.True(t, got.Beds.IsZero())
	})

	t.Run("guest total only", func(t *testing.T) {
		got := r.Resolve(d("2025-08-01"), &models.DailySummary{Day: d("2025-08-01"), TotalGuests: 40})
		assert.False(t, got.Categorized)
		assert.Zero(t, got.Total)
	})

	t.Run("only unmapped codes", func(t *testing.T) {
		got := r.Resolve(d("2025-08-01"), &models.DailySummary{
			Categories: []models.SummaryCategory{{TypeCode: "WR", Free: 12}},
		})
		assert.False(t, got.Categorized)
		assert.Zero(t, got.Total)
	})
}

func TestFreeResolver_ResolveRange(t *testing.T) {
	r := NewFreeResolver(nil)
	summaries := []models.DailySummary{
		{Day: d("2025-08-02"), Categories: []models.SummaryCategory{{TypeCode: "ML", Free: 4}, {TypeCode: "2BZ", Free: 2}}},
	}

	got := r.ResolveRange(summaries, d("2025-08-01"), d("2025-08-03"))
	require.Len(t, got, 3)

	for _, fc := range got {
		if fc.Categorized {
			assert.Equal(t, fc.Beds.Sonder+fc.Beds.Lager+fc.Beds.Betten+fc.Beds.DZ, fc.Total)
		} else {
			assert.Zero(t, fc.Total)
		}
	}
	assert.False(t, got[0].Categorized)
	assert.True(t, got[1].Categorized)
	assert.Equal(t, 6, got[1].Total)
	assert.False(t, got[2].Categorized)
}
