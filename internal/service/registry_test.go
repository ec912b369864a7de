package service

import (
	"context"
	"testing"

	"parkdesk/internal/database"
	"parkdesk/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.EnsureCategories(context.Background(), models.CategoryCar, models.CategoryTruck))
	return db
}

func TestSlotService(t *testing.T) {
	db := newTestDB(t)
	logger := zerolog.Nop()
	s := NewSlotService(db, &logger)
	ctx := context.Background()

	_, err := s.Create(ctx, &models.ParkingSlot{SlotNumber: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	slot, err := s.Create(ctx, &models.ParkingSlot{SlotNumber: " A-1 ", SlotType: "standard", Zone: "north"})
	require.NoError(t, err)
	assert.Equal(t, "A-1", slot.SlotNumber)
	assert.Equal(t, models.SlotAvailable, slot.Status)

	require.NoError(t, s.SetMaintenance(ctx, slot.ID, true))
	maint := models.SlotMaintenance
	list, err := s.List(ctx, &maint)
	require.NoError(t, err)
	require.Len(t, list, 1)

	bad := models.SlotStatus(42)
	_, err = s.List(ctx, &bad)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.Release(ctx, slot.ID)
	assert.ErrorIs(t, err, database.ErrSlotUnavailable)

	require.NoError(t, s.SetMaintenance(ctx, slot.ID, false))
	require.NoError(t, s.Delete(ctx, slot.ID))
	_, err = s.Get(ctx, slot.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestVehicleService(t *testing.T) {
	db := newTestDB(t)
	logger := zerolog.Nop()
	s := NewVehicleService(db, &logger)
	ctx := context.Background()

	_, err := s.RegisterOwner(ctx, &models.VehicleOwner{FullName: ""})
	assert.ErrorIs(t, err, ErrValidation)

	owner, err := s.RegisterOwner(ctx, &models.VehicleOwner{FullName: "Jane Roe", Phone: "555"})
	require.NoError(t, err)

	_, err = s.RegisterVehicle(ctx, RegisterVehicleRequest{PlateNumber: "ab 123", Category: "spaceship", OwnerID: owner.ID})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.RegisterVehicle(ctx, RegisterVehicleRequest{PlateNumber: "ab 123", Category: "car", OwnerID: 999})
	assert.ErrorIs(t, err, database.ErrNotFound)

	v, err := s.RegisterVehicle(ctx, RegisterVehicleRequest{PlateNumber: "ab 123", Category: "Truck", OwnerID: owner.ID, Make: "Volvo"})
	require.NoError(t, err)
	assert.Equal(t, "AB123", v.PlateNumber)
	assert.Equal(t, "truck", v.CategoryName)

	found, err := s.FindByPlate(ctx, "AB 123")
	require.NoError(t, err)
	assert.Equal(t, v.ID, found.ID)
	assert.Equal(t, "truck", found.CategoryName)

	list, err := s.ListByOwner(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	cats, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 2)
}

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	db := newTestDB(t)
	logger := zerolog.Nop()
	s := NewUserService(db, &logger)
	s.cost = bcrypt.MinCost
	ctx := context.Background()

	group, err := s.CreateGroup(ctx, &models.UserGroup{Name: "attendants", ManageBookings: true})
	require.NoError(t, err)

	_, err = s.Register(ctx, RegisterUserRequest{GroupID: group.ID, Username: "amy", FullName: "Amy", Password: "short"})
	assert.ErrorIs(t, err, ErrValidation)

	u, err := s.Register(ctx, RegisterUserRequest{GroupID: group.ID, Username: " amy ", FullName: "Amy Pond", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "amy", u.Username)
	assert.NotEqual(t, "correct-horse", u.PasswordHash)

	got, err := s.Authenticate(ctx, "amy", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Authenticate(ctx, "amy", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Authenticate(ctx, "nobody", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	perms, err := s.Permissions(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, perms.ManageBookings)
	assert.False(t, perms.ManageUsers)

	require.NoError(t, s.ChangePassword(ctx, u.ID, "correct-horse", "battery-staple"))
	_, err = s.Authenticate(ctx, "amy", "battery-staple")
	require.NoError(t, err)
	assert.ErrorIs(t, s.ChangePassword(ctx, u.ID, "correct-horse", "whatever-else"), ErrInvalidCredentials)

	require.NoError(t, s.Deactivate(ctx, u.ID))
	_, err = s.Authenticate(ctx, "amy", "battery-staple")
	assert.ErrorIs(t, err, ErrInactiveUser)
}
