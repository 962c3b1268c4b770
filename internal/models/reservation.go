package models

import (
	"errors"
	"strings"
	"time"
)

// Source tells where a reservation was entered.
type Source string

const (
	SourceHRS   Source = "hrs"
	SourceLocal Source = "local"
)

var (
	ErrInvalidStay = errors.New("departure must not be before arrival")
	ErrInvalidBeds = errors.New("bed counts must not be negative")
	ErrGuestName   = errors.New("guest name is required")
	ErrMissingStay = errors.New("arrival and departure are required")
)

// Reservation is a booking of beds for a stay [Arrival, Departure).
type Reservation struct {
	ID           int64      `json:"id"`
	HRSID        int64      `json:"hrs_id,omitempty"`
	Code         string     `json:"code"` // printed as barcode, used for check-in
	GuestName    string     `json:"guest_name"`
	Email        string     `json:"email,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Arrival      time.Time  `json:"arrival"`
	Departure    time.Time  `json:"departure"`
	Beds         Beds       `json:"beds"`
	Cancelled    bool       `json:"cancelled"`
	Source       Source     `json:"source"`
	Comment      string     `json:"comment,omitempty"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
	CheckedOutAt *time.Time `json:"checked_out_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CoversDay reports whether the guest stays the night of day.
// Half-open: the departure day itself is not covered.
func (r *Reservation) CoversDay(day time.Time) bool {
	d := DateOnly(day)
	return !d.Before(DateOnly(r.Arrival)) && d.Before(DateOnly(r.Departure))
}

// Nights returns the number of nights of the stay.
func (r *Reservation) Nights() int {
	n := int(DateOnly(r.Departure).Sub(DateOnly(r.Arrival)).Hours() / 24)
	if n < 0 {
		return 0
	}
	return n
}

func (r *Reservation) IsCheckedIn() bool {
	return r.CheckedInAt != nil
}

func (r *Reservation) IsCheckedOut() bool {
	return r.CheckedOutAt != nil
}

// Validate checks the fields a caller may set.
func (r *Reservation) Validate() error {
	if strings.TrimSpace(r.GuestName) == "" {
		return ErrGuestName
	}
	if r.Arrival.IsZero() || r.Departure.IsZero() {
		return ErrMissingStay
	}
	if DateOnly(r.Departure).Before(DateOnly(r.Arrival)) {
		return ErrInvalidStay
	}
	if r.Beds.HasNegative() {
		return ErrInvalidBeds
	}
	return nil
}
