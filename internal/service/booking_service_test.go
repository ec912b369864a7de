package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"parkdesk/internal/database"
	"parkdesk/internal/domain"
	"parkdesk/internal/events"
	"parkdesk/internal/models"
	"parkdesk/internal/pricing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newBookingService(repo *mockBookingRepo, locker *mockLocker, bus *events.EventBus) *BookingService {
	logger := zerolog.Nop()
	var l domain.SlotLocker
	if locker != nil {
		l = locker
	}
	s := NewBookingService(repo, l, pricing.NewRateTable(nil), bus, &logger)
	s.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestCreateBooking_QuotesFromCategory(t *testing.T) {
	repo := new(mockBookingRepo)
	locker := new(mockLocker)
	bus := events.NewEventBus(nil)

	var got []events.BookingEvent
	bus.Subscribe(events.EventBookingCreated, func(e *events.Event) error {
		var be events.BookingEvent
		require.NoError(t, e.Decode(&be))
		got = append(got, be)
		return nil
	})

	repo.On("GetVehicle", mock.Anything, int64(10)).Return(&models.Vehicle{ID: 10, CategoryName: "truck"}, nil)
	locker.On("Acquire", mock.Anything, int64(3), 10*time.Second).Return("tok", true, nil)
	locker.On("Release", mock.Anything, int64(3), "tok").Return(nil)
	repo.On("ReserveSlot", mock.Anything, mock.MatchedBy(func(b *models.Booking) bool {
		return b.SlotID == 3 && b.Status == models.BookingPending && b.TotalAmount == 1600
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Booking).ID = 42
	}).Return(int64(42), nil)

	b, err := newBookingService(repo, locker, bus).CreateBooking(context.Background(), CreateBookingRequest{
		CustomerID: 5, VehicleID: 10, SlotID: 3, Duration: " 2 hours ",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), b.ID)
	assert.Equal(t, "2 hours", b.Duration)
	assert.Equal(t, 2.0, b.TotalHours)
	assert.Equal(t, models.Cents(1600), b.TotalAmount)
	assert.Equal(t, int64(5), b.UserID)

	require.Len(t, got, 1)
	assert.Equal(t, int64(42), got[0].BookingID)
	assert.Equal(t, "PENDING", got[0].Status)
	repo.AssertExpectations(t)
	locker.AssertExpectations(t)
}

func TestCreateBooking_Validation(t *testing.T) {
	repo := new(mockBookingRepo)
	s := newBookingService(repo, nil, nil)

	cases := []CreateBookingRequest{
		{CustomerID: 0, VehicleID: 1, SlotID: 1, Duration: "1 hour"},
		{CustomerID: 1, VehicleID: 0, SlotID: 1, Duration: "1 hour"},
		{CustomerID: 1, VehicleID: 1, SlotID: 0, Duration: "1 hour"},
		{CustomerID: 1, VehicleID: 1, SlotID: 1, Duration: "forever"},
	}
	for _, req := range cases {
		_, err := s.CreateBooking(context.Background(), req)
		assert.ErrorIs(t, err, ErrValidation)
		assert.True(t, IsValidation(err))
	}
	repo.AssertNotCalled(t, "ReserveSlot", mock.Anything, mock.Anything)
}

func TestCreateBooking_LockBusy(t *testing.T) {
	repo := new(mockBookingRepo)
	locker := new(mockLocker)
	repo.On("GetVehicle", mock.Anything, int64(1)).Return(&models.Vehicle{ID: 1, CategoryName: "car"}, nil)
	locker.On("Acquire", mock.Anything, int64(2), mock.Anything).Return("", false, nil)

	_, err := newBookingService(repo, locker, nil).CreateBooking(context.Background(), CreateBookingRequest{
		CustomerID: 1, VehicleID: 1, SlotID: 2, Duration: "1 hour",
	})
	assert.ErrorIs(t, err, ErrSlotBusy)
	repo.AssertNotCalled(t, "ReserveSlot", mock.Anything, mock.Anything)
}

func TestCreateBooking_LockErrorFallsBackToStore(t *testing.T) {
	repo := new(mockBookingRepo)
	locker := new(mockLocker)
	repo.On("GetVehicle", mock.Anything, int64(1)).Return(&models.Vehicle{ID: 1, CategoryName: "car"}, nil)
	locker.On("Acquire", mock.Anything, int64(2), mock.Anything).Return("", false, errors.New("redis down"))
	repo.On("ReserveSlot", mock.Anything, mock.Anything).Return(int64(0), database.ErrSlotUnavailable)

	_, err := newBookingService(repo, locker, nil).CreateBooking(context.Background(), CreateBookingRequest{
		CustomerID: 1, VehicleID: 1, SlotID: 2, Duration: "1 hour",
	})
	assert.ErrorIs(t, err, database.ErrSlotUnavailable)
	locker.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
}

func TestApprove_UsesQuote(t *testing.T) {
	repo := new(mockBookingRepo)
	booking := &models.Booking{ID: 7, VehicleID: 1, Duration: "3 hours", Status: models.BookingPending}
	repo.On("GetBooking", mock.Anything, int64(7)).Return(booking, nil)
	repo.On("GetVehicle", mock.Anything, int64(1)).Return(&models.Vehicle{ID: 1, CategoryName: "car"}, nil)
	approved := &models.Booking{ID: 7, Status: models.BookingApproved, TotalAmount: 1500}
	payment := &models.Payment{ID: 1, BookingID: 7, DueAmount: 1500, Status: models.PaymentApprovedUnpaid}
	repo.On("ApproveBooking", mock.Anything, int64(7), models.Cents(1500), int64(9)).Return(approved, payment, nil)

	b, p, err := newBookingService(repo, nil, nil).Approve(context.Background(), 7, 9)
	require.NoError(t, err)
	assert.Equal(t, models.BookingApproved, b.Status)
	assert.Equal(t, models.Cents(1500), p.DueAmount)
}

func TestApprove_LegacyLabelPricesAtZero(t *testing.T) {
	repo := new(mockBookingRepo)
	repo.On("GetBooking", mock.Anything, int64(7)).Return(&models.Booking{ID: 7, VehicleID: 1, Duration: "a while"}, nil)
	repo.On("GetVehicle", mock.Anything, int64(1)).Return(&models.Vehicle{ID: 1, CategoryName: "car"}, nil)
	repo.On("ApproveBooking", mock.Anything, int64(7), models.Cents(0), int64(9)).
		Return(&models.Booking{ID: 7, Status: models.BookingApproved}, &models.Payment{ID: 1, BookingID: 7}, nil)

	_, _, err := newBookingService(repo, nil, nil).Approve(context.Background(), 7, 9)
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestTransitions_PublishEvents(t *testing.T) {
	repo := new(mockBookingRepo)
	bus := events.NewEventBus(nil)
	seen := map[string]int{}
	for _, et := range []string{events.EventBookingRejected, events.EventBookingCancelled, events.EventBookingCompleted} {
		et := et
		bus.Subscribe(et, func(*events.Event) error { seen[et]++; return nil })
	}

	repo.On("UpdateBookingStatus", mock.Anything, int64(1), models.BookingRejected, int64(2)).
		Return(&models.Booking{ID: 1, Status: models.BookingRejected}, nil)
	repo.On("UpdateBookingStatus", mock.Anything, int64(1), models.BookingCancelled, int64(2)).
		Return(&models.Booking{ID: 1, Status: models.BookingCancelled}, nil)
	repo.On("UpdateBookingStatus", mock.Anything, int64(1), models.BookingCompleted, int64(2)).
		Return(nil, database.ErrInvalidTransition)

	s := newBookingService(repo, nil, bus)
	ctx := context.Background()

	_, err := s.Reject(ctx, 1, 2)
	require.NoError(t, err)
	_, err = s.Cancel(ctx, 1, 2)
	require.NoError(t, err)
	_, err = s.Complete(ctx, 1, 2)
	assert.ErrorIs(t, err, database.ErrInvalidTransition)

	assert.Equal(t, 1, seen[events.EventBookingRejected])
	assert.Equal(t, 1, seen[events.EventBookingCancelled])
	assert.Zero(t, seen[events.EventBookingCompleted])
}

func TestMarkArrival_DefaultsToNow(t *testing.T) {
	repo := new(mockBookingRepo)
	s := newBookingService(repo, nil, nil)
	repo.On("MarkArrival", mock.Anything, int64(4), s.now()).Return(&models.Booking{ID: 4}, nil)

	_, err := s.MarkArrival(context.Background(), 4, time.Time{})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestListActive(t *testing.T) {
	repo := new(mockBookingRepo)
	arrived := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	approved := models.BookingApproved
	repo.On("ListBookings", mock.Anything, models.BookingFilter{Status: &approved, Limit: -1}).Return([]*models.Booking{
		{ID: 1, Status: models.BookingApproved, ActualArrival: &arrived},
		{ID: 2, Status: models.BookingApproved},
		{ID: 3, Status: models.BookingApproved, ActualArrival: &arrived, Departure: &arrived},
	}, nil)

	active, err := newBookingService(repo, nil, nil).ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, int64(1), active[0].ID)
}

func TestList_RejectsUnknownStatus(t *testing.T) {
	bad := models.BookingStatus(99)
	_, err := newBookingService(new(mockBookingRepo), nil, nil).List(context.Background(), models.BookingFilter{Status: &bad})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestQuote(t *testing.T) {
	s := newBookingService(new(mockBookingRepo), nil, nil)

	q, err := s.Quote("1 day", "motorcycle")
	require.NoError(t, err)
	assert.Equal(t, models.Cents(7200), q.Amount)

	_, err = s.Quote("", "car")
	assert.True(t, IsValidation(err))
}
