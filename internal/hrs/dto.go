package hrs

import (
	"fmt"
	"strings"

	"huette/internal/models"
)

// Wire types of the HRS hut API. They are converted to models right after
// decoding; nothing outside this package sees them.

type summaryCategoryDTO struct {
	CategoryType   string `json:"categoryType"`
	AssignedGuests int    `json:"assignedGuests"`
	FreePlaces     int    `json:"freePlaces"`
}

type summaryDTO struct {
	ID          int64                `json:"id"`
	Day         string               `json:"day"`
	TotalGuests int                  `json:"totalGuests"`
	Categories  []summaryCategoryDTO `json:"categories"`
}

type summariesResponse struct {
	Summaries []summaryDTO `json:"summaries"`
}

type quotaCategoryDTO struct {
	CategoryType string `json:"categoryType"`
	Capacity     int    `json:"capacity"`
}

type quotaDTO struct {
	ID         int64              `json:"id"`
	Title      string             `json:"title"`
	Mode       string             `json:"mode"`
	DateFrom   string             `json:"dateFrom"`
	DateTo     string             `json:"dateTo"`
	Categories []quotaCategoryDTO `json:"categories"`
}

type quotasResponse struct {
	Quotas []quotaDTO `json:"quotas"`
}

type reservationCategoryDTO struct {
	CategoryType string `json:"categoryType"`
	Guests       int    `json:"guests"`
}

type reservationDTO struct {
	ID         int64                    `json:"id"`
	GuestName  string                   `json:"guestName"`
	Email      string                   `json:"email"`
	Phone      string                   `json:"phone"`
	Arrival    string                   `json:"arrival"`
	Departure  string                   `json:"departure"`
	Status     string                   `json:"status"`
	Comment    string                   `json:"comment"`
	Categories []reservationCategoryDTO `json:"categories"`
}

type reservationsResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}

func (d summaryDTO) toModel() (models.DailySummary, error) {
	day, err := models.ParseDate(d.Day)
	if err != nil {
		return models.DailySummary{}, fmt.Errorf("summary %d: %w", d.ID, err)
	}
	s := models.DailySummary{Day: day, HRSID: d.ID, TotalGuests: d.TotalGuests}
	for _, c := range d.Categories {
		s.Categories = append(s.Categories, models.SummaryCategory{
			TypeCode: strings.ToUpper(strings.TrimSpace(c.CategoryType)),
			Assigned: c.AssignedGuests,
			Free:     c.FreePlaces,
		})
	}
	return s, nil
}

func (d quotaDTO) toModel() (models.Quota, error) {
	from, err := models.ParseDate(d.DateFrom)
	if err != nil {
		return models.Quota{}, fmt.Errorf("quota %d: %w", d.ID, err)
	}
	to, err := models.ParseDate(d.DateTo)
	if err != nil {
		return models.Quota{}, fmt.Errorf("quota %d: %w", d.ID, err)
	}
	mode := models.QuotaMode(strings.ToUpper(d.Mode))
	if !models.ValidQuotaMode(mode) {
		mode = models.QuotaServiced
	}
	title := d.Title
	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("HRS %d", d.ID)
	}

	q := models.Quota{HRSID: d.ID, Title: title, Mode: mode, DateFrom: from, DateTo: to}
	if err := q.Validate(); err != nil {
		return models.Quota{}, fmt.Errorf("quota %d: %w", d.ID, err)
	}
	for _, c := range d.Categories {
		q.Categories = append(q.Categories, models.QuotaCategory{
			TypeCode: strings.ToUpper(strings.TrimSpace(c.CategoryType)),
			Capacity: c.Capacity,
		})
	}
	return q, nil
}

func (d reservationDTO) toModel() (models.Reservation, error) {
	arrival, err := models.ParseDate(d.Arrival)
	if err != nil {
		return models.Reservation{}, fmt.Errorf("reservation %d: %w", d.ID, err)
	}
	departure, err := models.ParseDate(d.Departure)
	if err != nil {
		return models.Reservation{}, fmt.Errorf("reservation %d: %w", d.ID, err)
	}

	r := models.Reservation{
		HRSID:     d.ID,
		GuestName: d.GuestName,
		Email:     d.Email,
		Phone:     d.Phone,
		Arrival:   arrival,
		Departure: departure,
		Comment:   d.Comment,
		Source:    models.SourceHRS,
		Cancelled: strings.EqualFold(d.Status, "CANCELLED") || strings.EqualFold(d.Status, "CANCELED"),
	}
	// Unknown category codes are ignored.
	for _, c := range d.Categories {
		if cat, ok := models.CategoryForCode(c.CategoryType); ok {
			r.Beds.Set(cat, r.Beds.Get(cat)+c.Guests)
		}
	}
	if r.GuestName == "" {
		r.GuestName = fmt.Sprintf("HRS %d", d.ID)
	}
	if err := r.Validate(); err != nil {
		return models.Reservation{}, fmt.Errorf("reservation %d: %w", d.ID, err)
	}
	return r, nil
}
