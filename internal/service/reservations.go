package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"huette/internal/events"
	"huette/internal/models"

	"github.com/rs/zerolog"
)

// ErrNoIDs is returned by BulkCheckIn when nothing was selected.
var ErrNoIDs = errors.New("no reservation ids given")

// ReservationStore is the storage used by ReservationService.
type ReservationStore interface {
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	GetReservationByCode(ctx context.Context, code string) (*models.Reservation, error)
	ReservationsInRange(ctx context.Context, start, end time.Time) ([]models.Reservation, error)
	CreateReservation(ctx context.Context, r *models.Reservation) error
	UpdateReservation(ctx context.Context, r *models.Reservation) error
	CancelReservation(ctx context.Context, id int64) error
	DeleteReservation(ctx context.Context, id int64) error
	CheckIn(ctx context.Context, id int64, at time.Time) error
	CheckOut(ctx context.Context, id int64, at time.Time) error
	BulkCheckIn(ctx context.Context, ids []int64, at time.Time) (int, error)
}

// EventPublisher receives domain events.
type EventPublisher interface {
	Publish(event events.Event)
}

// ReservationEvent is the payload of reservation.* events.
type ReservationEvent struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	GuestName string `json:"guest_name"`
	Arrival   string `json:"arrival"`
	Departure string `json:"departure"`
	Beds      int    `json:"beds"`
	Source    string `json:"source"`
}

// ReservationService validates and applies reservation changes.
type ReservationService struct {
	store  ReservationStore
	bus    EventPublisher
	logger *zerolog.Logger
	now    func() time.Time
}

func NewReservationService(store ReservationStore, bus EventPublisher, logger *zerolog.Logger) *ReservationService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &ReservationService{store: store, bus: bus, logger: logger, now: time.Now}
}

func (s *ReservationService) List(ctx context.Context, start, end time.Time) ([]models.Reservation, error) {
	return s.store.ReservationsInRange(ctx, start, end)
}

func (s *ReservationService) Get(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.store.GetReservation(ctx, id)
}

// Create stores a locally entered reservation.
func (s *ReservationService) Create(ctx context.Context, r *models.Reservation) error {
	normalize(r)
	if err := r.Validate(); err != nil {
		return err
	}
	r.ID = 0
	r.HRSID = 0
	r.Source = models.SourceLocal
	r.Cancelled = false
	r.CheckedInAt, r.CheckedOutAt = nil, nil

	if err := s.store.CreateReservation(ctx, r); err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}

	s.logger.Info().Int64("reservation_id", r.ID).Str("guest", r.GuestName).Msg("Reservation created")
	s.publish(events.ReservationCreated, r)
	return nil
}

// Update replaces the editable fields of reservation id with those of in.
func (s *ReservationService) Update(ctx context.Context, id int64, in *models.Reservation) (*models.Reservation, error) {
	current, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	normalize(in)
	current.GuestName = in.GuestName
	current.Email = in.Email
	current.Phone = in.Phone
	current.Arrival = in.Arrival
	current.Departure = in.Departure
	current.Beds = in.Beds
	current.Comment = in.Comment
	if err := current.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.UpdateReservation(ctx, current); err != nil {
		return nil, fmt.Errorf("update reservation %d: %w", id, err)
	}
	s.publish(events.ReservationUpdated, current)
	return current, nil
}

func (s *ReservationService) Cancel(ctx context.Context, id int64) (*models.Reservation, error) {
	if err := s.store.CancelReservation(ctx, id); err != nil {
		return nil, err
	}
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("reservation_id", id).Msg("Reservation cancelled")
	s.publish(events.ReservationCancelled, r)
	return r, nil
}

// Delete removes a reservation permanently. Cancelling is the normal path.
func (s *ReservationService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteReservation(ctx, id); err != nil {
		return err
	}
	s.logger.Warn().Int64("reservation_id", id).Msg("Reservation deleted")
	return nil
}

func (s *ReservationService) CheckIn(ctx context.Context, id int64) (*models.Reservation, error) {
	if err := s.store.CheckIn(ctx, id, s.now()); err != nil {
		return nil, err
	}
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(events.ReservationCheckedIn, r)
	return r, nil
}

// CheckInByCode checks in the reservation with the given booking code.
func (s *ReservationService) CheckInByCode(ctx context.Context, code string) (*models.Reservation, error) {
	r, err := s.store.GetReservationByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.CheckIn(ctx, r.ID)
}

func (s *ReservationService) CheckOut(ctx context.Context, id int64) (*models.Reservation, error) {
	if err := s.store.CheckOut(ctx, id, s.now()); err != nil {
		return nil, err
	}
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(events.ReservationCheckedOut, r)
	return r, nil
}

// BulkCheckIn checks in all ids that are still open and returns the count.
func (s *ReservationService) BulkCheckIn(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, ErrNoIDs
	}
	n, err := s.store.BulkCheckIn(ctx, ids, s.now())
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int("requested", len(ids)).Int("checked_in", n).Msg("Bulk check-in")
	if s.bus != nil && n > 0 {
		if ev, err := events.NewEvent(events.ReservationCheckedIn, map[string]any{"ids": ids, "count": n}); err == nil {
			s.bus.Publish(ev)
		}
	}
	return n, nil
}

func (s *ReservationService) publish(eventType string, r *models.Reservation) {
	if s.bus == nil {
		return
	}
	ev, err := events.NewEvent(eventType, ReservationEvent{
		ID:        r.ID,
		Code:      r.Code,
		GuestName: r.GuestName,
		Arrival:   models.FormatDate(r.Arrival),
		Departure: models.FormatDate(r.Departure),
		Beds:      r.Beds.Total(),
		Source:    string(r.Source),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("Failed to encode event")
		return
	}
	s.bus.Publish(ev)
}

func normalize(r *models.Reservation) {
	r.GuestName = strings.TrimSpace(r.GuestName)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Arrival = models.DateOnly(r.Arrival)
	r.Departure = models.DateOnly(r.Departure)
}
