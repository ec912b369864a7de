package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"parkdesk/internal/config"
	"parkdesk/internal/database"
	"parkdesk/internal/logging"
	"parkdesk/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Services are the application services the HTTP API drives.
type Services struct {
	Bookings *service.BookingService
	Payments *service.PaymentService
	Slots    *service.SlotService
	Vehicles *service.VehicleService
	Users    *service.UserService
}

// HTTPServer exposes the booking, slot and payment lifecycle as a JSON API.
type HTTPServer struct {
	cfg      config.APIConfig
	svc      Services
	logger   *zerolog.Logger
	validate *validator.Validate
	auth     *HTTPAuth
	server   *http.Server
}

func NewHTTPServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		svc:      svc,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		auth:     NewHTTPAuth(cfg),
	}

	mux := http.NewServeMux()
	srv.routes(mux)

	handler := requestID(loggingMiddleware(logger, srv.auth.Wrap(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, instrument(pattern, h))
	}

	handle("GET /healthz", s.handleHealthz)

	handle("POST /api/v1/bookings", s.handleCreateBooking)
	handle("GET /api/v1/bookings", s.handleListBookings)
	handle("GET /api/v1/bookings/overdue", s.handleOverdueBookings)
	handle("GET /api/v1/bookings/active", s.handleActiveBookings)
	handle("GET /api/v1/bookings/{id}", s.handleGetBooking)
	handle("GET /api/v1/bookings/{id}/payment", s.handleBookingPayment)
	handle("POST /api/v1/bookings/{id}/approve", s.handleApproveBooking)
	handle("POST /api/v1/bookings/{id}/reject", s.handleTransition(s.svc.Bookings.Reject))
	handle("POST /api/v1/bookings/{id}/cancel", s.handleTransition(s.svc.Bookings.Cancel))
	handle("POST /api/v1/bookings/{id}/complete", s.handleTransition(s.svc.Bookings.Complete))
	handle("POST /api/v1/bookings/{id}/arrive", s.handleStamp(s.svc.Bookings.MarkArrival))
	handle("POST /api/v1/bookings/{id}/depart", s.handleStamp(s.svc.Bookings.MarkDeparture))

	handle("GET /api/v1/slots", s.handleListSlots)
	handle("POST /api/v1/slots", s.handleCreateSlot)
	handle("GET /api/v1/slots/{id}", s.handleGetSlot)
	handle("POST /api/v1/slots/{id}/release", s.handleReleaseSlot)
	handle("POST /api/v1/slots/{id}/maintenance", s.handleSlotMaintenance)

	handle("GET /api/v1/payments/{id}", s.handleGetPayment)
	handle("POST /api/v1/payments/{id}/pay", s.handlePay)
	handle("POST /api/v1/payments/{id}/cancel", s.handleCancelPayment)

	handle("GET /api/v1/categories", s.handleListCategories)
	handle("POST /api/v1/owners", s.handleCreateOwner)
	handle("GET /api/v1/owners/{id}", s.handleGetOwner)
	handle("GET /api/v1/owners/{id}/vehicles", s.handleOwnerVehicles)
	handle("POST /api/v1/vehicles", s.handleCreateVehicle)
	handle("GET /api/v1/vehicles", s.handleFindVehicle)
	handle("GET /api/v1/vehicles/{id}", s.handleGetVehicle)

	handle("POST /api/v1/users", s.handleRegisterUser)
	handle("GET /api/v1/users/{id}", s.handleGetUser)
	handle("POST /api/v1/users/{id}/deactivate", s.handleDeactivateUser)
	handle("POST /api/v1/login", s.handleLogin)

	handle("GET /api/v1/quote", s.handleQuote)
	handle("GET /api/v1/reports/payments.xlsx", s.handlePaymentsReport)
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a JSON body into dst and runs struct validation. An empty
// body is accepted when allowEmpty is set.
func (s *HTTPServer) decode(r *http.Request, dst any, allowEmpty bool) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return fmt.Errorf("%w: invalid JSON body", service.ErrValidation)
		}
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", service.ErrValidation, describe(verrs))
		}
		return fmt.Errorf("%w: %w", service.ErrValidation, err)
	}
	return nil
}

func describe(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// statusFor maps the error taxonomy onto HTTP codes.
func statusFor(err error) int {
	switch {
	case service.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrSlotUnavailable),
		errors.Is(err, database.ErrInvalidTransition),
		errors.Is(err, database.ErrAlreadyArrived),
		errors.Is(err, database.ErrNotActive),
		errors.Is(err, database.ErrDuplicate),
		errors.Is(err, service.ErrSlotBusy),
		errors.Is(err, service.ErrPaymentAlreadyCompleted),
		errors.Is(err, service.ErrPaymentNotReady):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInactiveUser):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Storage errors are logged and
// replaced with a generic message.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		logging.FromContext(r.Context(), s.logger).Error().Err(err).
			Str("path", r.URL.Path).
			Msg("request failed")
		msg = "internal error"
	}
	writeError(w, code, msg)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
