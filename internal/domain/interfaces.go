package domain

import (
	"context"
	"time"

	"parkdesk/internal/models"
)

type BookingRepository interface {
	ReserveSlot(ctx context.Context, booking *models.Booking) (int64, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookingByReference(ctx context.Context, ref string) (*models.Booking, error)
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, to models.BookingStatus, actingUserID int64) (*models.Booking, error)
	ApproveBooking(ctx context.Context, id int64, due models.Cents, actingUserID int64) (*models.Booking, *models.Payment, error)
	MarkArrival(ctx context.Context, id int64, at time.Time) (*models.Booking, error)
	MarkDeparture(ctx context.Context, id int64, at time.Time) (*models.Booking, error)
	OverdueBookings(ctx context.Context, now time.Time) ([]*models.Booking, error)
	GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error)
}

type PaymentRepository interface {
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	GetPaymentByBooking(ctx context.Context, bookingID int64) (*models.Payment, error)
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error)
	ApplyPayment(ctx context.Context, id int64, amount models.Cents, paidBy string) (*models.Payment, error)
	CancelPayment(ctx context.Context, id int64) (*models.Payment, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
}

type SlotRepository interface {
	CreateSlot(ctx context.Context, slot *models.ParkingSlot) (int64, error)
	GetSlot(ctx context.Context, id int64) (*models.ParkingSlot, error)
	ListSlots(ctx context.Context, status *models.SlotStatus) ([]*models.ParkingSlot, error)
	UpdateSlot(ctx context.Context, slot *models.ParkingSlot) error
	SetSlotMaintenance(ctx context.Context, id int64, on bool) error
	ReleaseSlot(ctx context.Context, id int64) error
	DeleteSlot(ctx context.Context, id int64) error
}

type VehicleRepository interface {
	GetCategoryByName(ctx context.Context, name string) (*models.VehicleCategory, error)
	ListCategories(ctx context.Context) ([]*models.VehicleCategory, error)
	CreateOwner(ctx context.Context, owner *models.VehicleOwner) (int64, error)
	GetOwner(ctx context.Context, id int64) (*models.VehicleOwner, error)
	ListOwners(ctx context.Context) ([]*models.VehicleOwner, error)
	UpdateOwner(ctx context.Context, owner *models.VehicleOwner) error
	DeleteOwner(ctx context.Context, id int64) error
	CreateVehicle(ctx context.Context, v *models.Vehicle) (int64, error)
	GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error)
	GetVehicleByPlate(ctx context.Context, plate string) (*models.Vehicle, error)
	ListVehiclesByOwner(ctx context.Context, ownerID int64) ([]*models.Vehicle, error)
	UpdateVehicle(ctx context.Context, v *models.Vehicle) error
	DeleteVehicle(ctx context.Context, id int64) error
}

type UserRepository interface {
	CreateUserGroup(ctx context.Context, g *models.UserGroup) (int64, error)
	GetUserGroup(ctx context.Context, id int64) (*models.UserGroup, error)
	ListUserGroups(ctx context.Context) ([]*models.UserGroup, error)
	CreateUser(ctx context.Context, u *models.User) (int64, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	DeactivateUser(ctx context.Context, id int64) error
}

// SlotLocker serializes reservation attempts per slot.
type SlotLocker interface {
	// Acquire returns ok=false when another holder owns the lock.
	Acquire(ctx context.Context, slotID int64, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, slotID int64, token string) error
}

// Notifier delivers a completed-payment notice to one outbound channel.
type Notifier interface {
	Name() string
	NotifyPayment(ctx context.Context, notice models.PaymentNotice) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload any) error
}

// NotifyQueue accepts notices for asynchronous delivery.
type NotifyQueue interface {
	EnqueuePaymentNotice(ctx context.Context, notice models.PaymentNotice) error
}
