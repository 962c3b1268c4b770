package models

import (
	"errors"
	"strings"
	"time"
)

// SummaryCategory is one category row of an HRS daily summary.
type SummaryCategory struct {
	TypeCode string `json:"type_code"`
	Assigned int    `json:"assigned"`
	Free     int    `json:"free"`
}

// DailySummary is the capacity snapshot HRS reports for one day.
// Categories may be empty when the feed only carried the guest total.
type DailySummary struct {
	Day         time.Time         `json:"day"`
	HRSID       int64             `json:"hrs_id"`
	TotalGuests int               `json:"total_guests"`
	Categories  []SummaryCategory `json:"categories"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// QuotaMode is the operating mode of a quota window.
type QuotaMode string

const (
	QuotaServiced   QuotaMode = "SERVICED"
	QuotaUnserviced QuotaMode = "UNSERVICED"
	QuotaClosed     QuotaMode = "CLOSED"
)

var (
	ErrQuotaWindow = errors.New("date_to must not be before date_from")
	ErrQuotaMode   = errors.New("unknown quota mode")
	ErrQuotaTitle  = errors.New("quota title is required")
)

// ValidQuotaMode reports whether m is a known mode.
func ValidQuotaMode(m QuotaMode) bool {
	switch m {
	case QuotaServiced, QuotaUnserviced, QuotaClosed:
		return true
	}
	return false
}

// QuotaCategory is the capacity of one HRS category type inside a quota.
type QuotaCategory struct {
	TypeCode string `json:"type_code"`
	Capacity int    `json:"capacity"`
}

// Quota bounds the beds that may be sold per category in [DateFrom, DateTo].
// Unlike reservations both ends of the window are inclusive.
type Quota struct {
	ID         int64           `json:"id"`
	HRSID      int64           `json:"hrs_id"`
	Title      string          `json:"title"`
	Mode       QuotaMode       `json:"mode"`
	DateFrom   time.Time       `json:"date_from"`
	DateTo     time.Time       `json:"date_to"`
	Categories []QuotaCategory `json:"categories"`
}

// Covers reports whether day lies inside the quota window.
func (q *Quota) Covers(day time.Time) bool {
	d := DateOnly(day)
	return !d.Before(DateOnly(q.DateFrom)) && !d.After(DateOnly(q.DateTo))
}

// Allocation rebuilds the per-category beds from the HRS type codes.
func (q *Quota) Allocation() Beds {
	var b Beds
	for _, qc := range q.Categories {
		c, ok := CategoryForCode(qc.TypeCode)
		if !ok {
			continue
		}
		b.Set(c, b.Get(c)+qc.Capacity)
	}
	return b
}

// Validate checks a locally entered quota.
func (q *Quota) Validate() error {
	if strings.TrimSpace(q.Title) == "" {
		return ErrQuotaTitle
	}
	if q.DateFrom.IsZero() || q.DateTo.IsZero() || DateOnly(q.DateTo).Before(DateOnly(q.DateFrom)) {
		return ErrQuotaWindow
	}
	if !ValidQuotaMode(q.Mode) {
		return ErrQuotaMode
	}
	return nil
}

// QuotaCategoriesFromBeds expresses an allocation as HRS category rows.
func QuotaCategoriesFromBeds(b Beds) []QuotaCategory {
	out := make([]QuotaCategory, 0, len(Categories))
	for _, c := range Categories {
		out = append(out, QuotaCategory{TypeCode: CodeForCategory(c), Capacity: b.Get(c)})
	}
	return out
}

// ImportRun records the outcome of one HRS import.
type ImportRun struct {
	ID           int64     `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	From         time.Time `json:"from"`
	To           time.Time `json:"to"`
	Status       string    `json:"status"` // ok, partial, failed
	Summaries    int       `json:"summaries"`
	Quotas       int       `json:"quotas"`
	Reservations int       `json:"reservations"`
	Error        string    `json:"error,omitempty"`
}

const (
	ImportOK      = "ok"
	ImportPartial = "partial"
	ImportFailed  = "failed"
)
