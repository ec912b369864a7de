package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"parkdesk/internal/domain"
	"parkdesk/internal/events"
	"parkdesk/internal/metrics"
	"parkdesk/internal/models"
	"parkdesk/internal/pricing"

	"github.com/rs/zerolog"
)

type BookingService struct {
	repo     domain.BookingRepository
	locker   domain.SlotLocker
	rates    *pricing.RateTable
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

// NewBookingService wires the booking lifecycle. locker and eventBus may be nil.
func NewBookingService(repo domain.BookingRepository, locker domain.SlotLocker, rates *pricing.RateTable, eventBus domain.EventPublisher, logger *zerolog.Logger) *BookingService {
	if rates == nil {
		rates = pricing.NewRateTable(nil)
	}
	return &BookingService{
		repo:     repo,
		locker:   locker,
		rates:    rates,
		eventBus: eventBus,
		logger:   logger,
		now:      time.Now,
	}
}

type CreateBookingRequest struct {
	CustomerID      int64
	VehicleID       int64
	SlotID          int64
	Duration        string
	Remarks         string
	ExpectedArrival *time.Time
	ActingUserID    int64
}

func (r CreateBookingRequest) validate() error {
	switch {
	case r.CustomerID <= 0:
		return invalidf("customer id must be positive")
	case r.VehicleID <= 0:
		return invalidf("vehicle id must be positive")
	case r.SlotID <= 0:
		return invalidf("slot id must be positive")
	}
	if _, err := models.ParseDuration(r.Duration); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// CreateBooking prices the booking from the vehicle's category and reserves
// the slot. The per-slot lock only narrows the race; the conditional update
// in the store decides.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	if err := req.validate(); err != nil {
		metrics.IncBooking("create", "invalid")
		return nil, err
	}

	vehicle, err := s.repo.GetVehicle(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}
	quote, err := s.rates.Quote(req.Duration, vehicle.CategoryName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	b := models.NewBooking(req.CustomerID, req.VehicleID, req.SlotID, strings.TrimSpace(req.Duration), req.Remarks, s.now())
	b.ExpectedArrival = req.ExpectedArrival
	b.TotalHours = quote.Hours
	b.TotalAmount = quote.Amount
	if req.ActingUserID > 0 {
		b.UserID = req.ActingUserID
	}

	if s.locker != nil {
		token, ok, err := s.locker.Acquire(ctx, req.SlotID, models.SlotLockTTL*time.Second)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Int64("slot_id", req.SlotID).Msg("slot lock unavailable, relying on store guard")
		case !ok:
			metrics.IncBooking("create", "busy")
			return nil, fmt.Errorf("slot %d: %w", req.SlotID, ErrSlotBusy)
		default:
			defer func() {
				if err := s.locker.Release(context.WithoutCancel(ctx), req.SlotID, token); err != nil {
					s.logger.Warn().Err(err).Int64("slot_id", req.SlotID).Msg("slot lock release failed")
				}
			}()
		}
	}

	if _, err := s.repo.ReserveSlot(ctx, b); err != nil {
		metrics.IncBooking("create", "error")
		return nil, err
	}
	metrics.IncBooking("create", "ok")

	s.logger.Info().
		Int64("booking_id", b.ID).
		Str("reference", b.Reference).
		Int64("slot_id", b.SlotID).
		Str("amount", b.TotalAmount.String()).
		Msg("booking created")
	s.publishEvent(events.EventBookingCreated, b, b.UserID)
	return b, nil
}

// Approve re-prices the booking and opens its payment.
func (s *BookingService) Approve(ctx context.Context, id, actingUserID int64) (*models.Booking, *models.Payment, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	vehicle, err := s.repo.GetVehicle(ctx, b.VehicleID)
	if err != nil {
		return nil, nil, err
	}

	quote, err := s.rates.Quote(b.Duration, vehicle.CategoryName)
	if err != nil {
		// rows written before labels were validated
		s.logger.Warn().Err(err).Int64("booking_id", id).Str("duration", b.Duration).Msg("approving with zero-hour quote")
		quote = s.rates.QuoteOrZero(b.Duration, vehicle.CategoryName)
	}

	b, p, err := s.repo.ApproveBooking(ctx, id, quote.Amount, actingUserID)
	if err != nil {
		metrics.IncBooking("approve", "error")
		return nil, nil, err
	}
	metrics.IncBooking("approve", "ok")
	s.publishEvent(events.EventBookingApproved, b, actingUserID)
	return b, p, nil
}

func (s *BookingService) Reject(ctx context.Context, id, actingUserID int64) (*models.Booking, error) {
	return s.transition(ctx, id, models.BookingRejected, actingUserID, events.EventBookingRejected)
}

func (s *BookingService) Cancel(ctx context.Context, id, actingUserID int64) (*models.Booking, error) {
	return s.transition(ctx, id, models.BookingCancelled, actingUserID, events.EventBookingCancelled)
}

func (s *BookingService) Complete(ctx context.Context, id, actingUserID int64) (*models.Booking, error) {
	return s.transition(ctx, id, models.BookingCompleted, actingUserID, events.EventBookingCompleted)
}

func (s *BookingService) transition(ctx context.Context, id int64, to models.BookingStatus, actingUserID int64, eventType string) (*models.Booking, error) {
	action := strings.ToLower(to.String())
	b, err := s.repo.UpdateBookingStatus(ctx, id, to, actingUserID)
	if err != nil {
		metrics.IncBooking(action, "error")
		return nil, err
	}
	metrics.IncBooking(action, "ok")
	s.publishEvent(eventType, b, actingUserID)
	return b, nil
}

func (s *BookingService) MarkArrival(ctx context.Context, id int64, at time.Time) (*models.Booking, error) {
	if at.IsZero() {
		at = s.now()
	}
	return s.repo.MarkArrival(ctx, id, at)
}

func (s *BookingService) MarkDeparture(ctx context.Context, id int64, at time.Time) (*models.Booking, error) {
	if at.IsZero() {
		at = s.now()
	}
	return s.repo.MarkDeparture(ctx, id, at)
}

func (s *BookingService) Get(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *BookingService) GetByReference(ctx context.Context, ref string) (*models.Booking, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, invalidf("reference is required")
	}
	return s.repo.GetBookingByReference(ctx, ref)
}

func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, invalidf("unknown booking status %d", int(*filter.Status))
	}
	return s.repo.ListBookings(ctx, filter)
}

func (s *BookingService) ListOverdue(ctx context.Context) ([]*models.Booking, error) {
	return s.repo.OverdueBookings(ctx, s.now())
}

// ListActive returns bookings whose customer has arrived and not yet left.
func (s *BookingService) ListActive(ctx context.Context) ([]*models.Booking, error) {
	approved := models.BookingApproved
	all, err := s.repo.ListBookings(ctx, models.BookingFilter{Status: &approved, Limit: -1})
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, b := range all {
		if b.IsActive() {
			active = append(active, b)
		}
	}
	return active, nil
}

// Quote prices a duration for a vehicle category without booking anything.
func (s *BookingService) Quote(label, category string) (pricing.Quote, error) {
	q, err := s.rates.Quote(label, category)
	if err != nil {
		return q, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return q, nil
}

func (s *BookingService) publishEvent(eventType string, b *models.Booking, actorID int64) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEvent{
		BookingID:  b.ID,
		Reference:  b.Reference,
		CustomerID: b.CustomerID,
		SlotID:     b.SlotID,
		Status:     b.Status.String(),
		Duration:   b.Duration,
		Amount:     int64(b.TotalAmount),
		ActorID:    actorID,
		At:         s.now(),
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", b.ID).Msg("publish event error")
	}
}
