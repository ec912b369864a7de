package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"parkdesk/internal/export"
	"parkdesk/internal/logging"
	"parkdesk/internal/models"
	"parkdesk/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type createBookingRequest struct {
	CustomerID      int64      `json:"customer_id" validate:"required,gt=0"`
	VehicleID       int64      `json:"vehicle_id" validate:"required,gt=0"`
	SlotID          int64      `json:"slot_id" validate:"required,gt=0"`
	Duration        string     `json:"duration" validate:"required"`
	Remarks         string     `json:"remarks" validate:"max=500"`
	ExpectedArrival *time.Time `json:"expected_arrival"`
}

type stampRequest struct {
	At time.Time `json:"at"`
}

type createSlotRequest struct {
	SlotNumber string `json:"slot_number" validate:"required,max=32"`
	SlotType   string `json:"slot_type" validate:"max=32"`
	Zone       string `json:"zone" validate:"max=32"`
}

type maintenanceRequest struct {
	On bool `json:"on"`
}

type payRequest struct {
	Amount models.Cents `json:"amount"`
	PaidBy string       `json:"paid_by" validate:"required,max=100"`
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", service.ErrValidation, r.PathValue("id"))
	}
	return id, nil
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := s.decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}

	b, err := s.svc.Bookings.CreateBooking(r.Context(), service.CreateBookingRequest{
		CustomerID:      req.CustomerID,
		VehicleID:       req.VehicleID,
		SlotID:          req.SlotID,
		Duration:        req.Duration,
		Remarks:         req.Remarks,
		ExpectedArrival: req.ExpectedArrival,
		ActingUserID:    actingUserID(r),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	filter, err := bookingFilterFromQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	bookings, err := s.svc.Bookings.List(r.Context(), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": nonNil(bookings)})
}

func (s *HTTPServer) handleOverdueBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.svc.Bookings.ListOverdue(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": nonNil(bookings)})
}

func (s *HTTPServer) handleActiveBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := s.svc.Bookings.ListActive(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": nonNil(bookings)})
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	b, err := s.svc.Bookings.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *HTTPServer) handleBookingPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.svc.Payments.GetByBooking(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *HTTPServer) handleApproveBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	b, p, err := s.svc.Bookings.Approve(r.Context(), id, actingUserID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": b, "payment": p})
}

type transitionFunc func(ctx context.Context, id, actingUserID int64) (*models.Booking, error)

func (s *HTTPServer) handleTransition(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		b, err := fn(r.Context(), id, actingUserID(r))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

type stampFunc func(ctx context.Context, id int64, at time.Time) (*models.Booking, error)

// handleStamp records arrival or departure; a missing "at" means now.
func (s *HTTPServer) handleStamp(fn stampFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		var req stampRequest
		if err := s.decode(r, &req, true); err != nil {
			s.fail(w, r, err)
			return
		}
		b, err := fn(r.Context(), id, req.At)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func (s *HTTPServer) handleListSlots(w http.ResponseWriter, r *http.Request) {
	var status *models.SlotStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		st, err := parseSlotStatus(raw)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		status = &st
	}
	slots, err := s.svc.Slots.List(r.Context(), status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": nonNil(slots)})
}

func (s *HTTPServer) handleCreateSlot(w http.ResponseWriter, r *http.Request) {
	var req createSlotRequest
	if err := s.decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	slot, err := s.svc.Slots.Create(r.Context(), &models.ParkingSlot{
		SlotNumber: req.SlotNumber,
		SlotType:   req.SlotType,
		Zone:       req.Zone,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, slot)
}

func (s *HTTPServer) handleGetSlot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	slot, err := s.svc.Slots.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (s *HTTPServer) handleReleaseSlot(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	slot, err := s.svc.Slots.Release(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (s *HTTPServer) handleSlotMaintenance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req maintenanceRequest
	if err := s.decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.Slots.SetMaintenance(r.Context(), id, req.On); err != nil {
		s.fail(w, r, err)
		return
	}
	slot, err := s.svc.Slots.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (s *HTTPServer) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.svc.Payments.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *HTTPServer) handlePay(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req payRequest
	if err := s.decode(r, &req, false); err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.svc.Payments.Pay(r.Context(), id, req.Amount, req.PaidBy)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *HTTPServer) handleCancelPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	p, err := s.svc.Payments.Cancel(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *HTTPServer) handleQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := q.Get("category")
	if category == "" {
		category = models.CategoryCar
	}
	quote, err := s.svc.Bookings.Quote(q.Get("duration"), category)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *HTTPServer) handlePaymentsReport(w http.ResponseWriter, r *http.Request) {
	from, to, err := periodFromQuery(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	bookings, err := s.svc.Bookings.List(r.Context(), models.BookingFilter{From: from, To: to, Limit: -1})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	payments, err := s.svc.Payments.List(r.Context(), models.PaymentFilter{From: from, To: to})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="payments_%s.xlsx"`, time.Now().Format("20060102")))
	if err := export.WritePaymentsReport(w, bookings, payments); err != nil {
		logging.FromContext(r.Context(), s.logger).Error().Err(err).Msg("payments report failed")
	}
}

func bookingFilterFromQuery(r *http.Request) (models.BookingFilter, error) {
	q := r.URL.Query()
	var f models.BookingFilter

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		st, err := parseBookingStatus(raw)
		if err != nil {
			return f, err
		}
		f.Status = &st
	}

	ints := []struct {
		name string
		dst  *int64
	}{{"customer_id", &f.CustomerID}, {"slot_id", &f.SlotID}}
	for _, p := range ints {
		if raw := q.Get(p.name); raw != "" {
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return f, fmt.Errorf("%w: invalid %s", service.ErrValidation, p.name)
			}
			*p.dst = n
		}
	}

	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &f.Limit}, {"offset", &f.Offset}} {
		if raw := q.Get(p.name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				return f, fmt.Errorf("%w: invalid %s", service.ErrValidation, p.name)
			}
			*p.dst = n
		}
	}

	var err error
	f.From, f.To, err = periodFromQuery(r)
	return f, err
}

// periodFromQuery reads optional from/to as RFC 3339 or YYYY-MM-DD.
func periodFromQuery(r *http.Request) (from, to time.Time, err error) {
	parse := func(name string) (time.Time, error) {
		raw := strings.TrimSpace(r.URL.Query().Get(name))
		if raw == "" {
			return time.Time{}, nil
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t, nil
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: invalid %s; expected YYYY-MM-DD", service.ErrValidation, name)
		}
		return t, nil
	}
	if from, err = parse("from"); err != nil {
		return
	}
	to, err = parse("to")
	return
}

func parseBookingStatus(raw string) (models.BookingStatus, error) {
	for st := models.BookingPending; st <= models.BookingCancelled; st++ {
		if strings.EqualFold(raw, st.String()) || raw == strconv.Itoa(int(st)) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown booking status %q", service.ErrValidation, raw)
}

func parseSlotStatus(raw string) (models.SlotStatus, error) {
	for st := models.SlotAvailable; st <= models.SlotMaintenance; st++ {
		if strings.EqualFold(raw, st.String()) || raw == strconv.Itoa(int(st)) {
			return st, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown slot status %q", service.ErrValidation, raw)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
