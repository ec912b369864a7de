package service

import (
	"context"
	"strings"

	"parkdesk/internal/domain"
	"parkdesk/internal/models"

	"github.com/rs/zerolog"
)

type VehicleService struct {
	repo   domain.VehicleRepository
	logger *zerolog.Logger
}

func NewVehicleService(repo domain.VehicleRepository, logger *zerolog.Logger) *VehicleService {
	return &VehicleService{repo: repo, logger: logger}
}

func (s *VehicleService) RegisterOwner(ctx context.Context, o *models.VehicleOwner) (*models.VehicleOwner, error) {
	o.FullName = strings.TrimSpace(o.FullName)
	if o.FullName == "" {
		return nil, invalidf("owner name is required")
	}
	if _, err := s.repo.CreateOwner(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *VehicleService) GetOwner(ctx context.Context, id int64) (*models.VehicleOwner, error) {
	return s.repo.GetOwner(ctx, id)
}

func (s *VehicleService) ListOwners(ctx context.Context) ([]*models.VehicleOwner, error) {
	return s.repo.ListOwners(ctx)
}

func (s *VehicleService) UpdateOwner(ctx context.Context, o *models.VehicleOwner) error {
	if strings.TrimSpace(o.FullName) == "" {
		return invalidf("owner name is required")
	}
	return s.repo.UpdateOwner(ctx, o)
}

func (s *VehicleService) DeleteOwner(ctx context.Context, id int64) error {
	return s.repo.DeleteOwner(ctx, id)
}

type RegisterVehicleRequest struct {
	PlateNumber string
	Category    string
	OwnerID     int64
	Make        string
	Model       string
	Color       string
}

// RegisterVehicle resolves the category by name and stores the vehicle.
func (s *VehicleService) RegisterVehicle(ctx context.Context, req RegisterVehicleRequest) (*models.Vehicle, error) {
	if strings.TrimSpace(req.PlateNumber) == "" {
		return nil, invalidf("plate number is required")
	}
	if req.OwnerID <= 0 {
		return nil, invalidf("owner id must be positive")
	}
	cat, err := s.repo.GetCategoryByName(ctx, req.Category)
	if err != nil {
		return nil, invalidf("unknown vehicle category %q", req.Category)
	}
	if _, err := s.repo.GetOwner(ctx, req.OwnerID); err != nil {
		return nil, err
	}

	v := &models.Vehicle{
		PlateNumber:  req.PlateNumber,
		CategoryID:   cat.ID,
		OwnerID:      req.OwnerID,
		Make:         req.Make,
		Model:        req.Model,
		Color:        req.Color,
		CategoryName: cat.Name,
	}
	if _, err := s.repo.CreateVehicle(ctx, v); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("vehicle_id", v.ID).Str("plate", v.PlateNumber).Msg("vehicle registered")
	return v, nil
}

func (s *VehicleService) GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	return s.repo.GetVehicle(ctx, id)
}

func (s *VehicleService) FindByPlate(ctx context.Context, plate string) (*models.Vehicle, error) {
	return s.repo.GetVehicleByPlate(ctx, plate)
}

func (s *VehicleService) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Vehicle, error) {
	return s.repo.ListVehiclesByOwner(ctx, ownerID)
}

func (s *VehicleService) UpdateVehicle(ctx context.Context, v *models.Vehicle) error {
	if strings.TrimSpace(v.PlateNumber) == "" {
		return invalidf("plate number is required")
	}
	return s.repo.UpdateVehicle(ctx, v)
}

func (s *VehicleService) DeleteVehicle(ctx context.Context, id int64) error {
	return s.repo.DeleteVehicle(ctx, id)
}

func (s *VehicleService) Categories(ctx context.Context) ([]*models.VehicleCategory, error) {
	return s.repo.ListCategories(ctx)
}
