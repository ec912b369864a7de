package service

import (
	"context"
	"strings"

	"parkdesk/internal/domain"
	"parkdesk/internal/models"

	"github.com/rs/zerolog"
)

type SlotService struct {
	repo   domain.SlotRepository
	logger *zerolog.Logger
}

func NewSlotService(repo domain.SlotRepository, logger *zerolog.Logger) *SlotService {
	return &SlotService{repo: repo, logger: logger}
}

func (s *SlotService) Create(ctx context.Context, slot *models.ParkingSlot) (*models.ParkingSlot, error) {
	slot.SlotNumber = strings.TrimSpace(slot.SlotNumber)
	if slot.SlotNumber == "" {
		return nil, invalidf("slot number is required")
	}
	if _, err := s.repo.CreateSlot(ctx, slot); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("slot_id", slot.ID).Str("number", slot.SlotNumber).Msg("slot created")
	return slot, nil
}

func (s *SlotService) Get(ctx context.Context, id int64) (*models.ParkingSlot, error) {
	return s.repo.GetSlot(ctx, id)
}

func (s *SlotService) List(ctx context.Context, status *models.SlotStatus) ([]*models.ParkingSlot, error) {
	if status != nil && !status.Valid() {
		return nil, invalidf("unknown slot status %d", int(*status))
	}
	return s.repo.ListSlots(ctx, status)
}

func (s *SlotService) Update(ctx context.Context, slot *models.ParkingSlot) error {
	if strings.TrimSpace(slot.SlotNumber) == "" {
		return invalidf("slot number is required")
	}
	return s.repo.UpdateSlot(ctx, slot)
}

func (s *SlotService) SetMaintenance(ctx context.Context, id int64, on bool) error {
	if err := s.repo.SetSlotMaintenance(ctx, id, on); err != nil {
		return err
	}
	s.logger.Info().Int64("slot_id", id).Bool("maintenance", on).Msg("slot maintenance changed")
	return nil
}

// Release frees a reserved or occupied slot. It is never called implicitly by
// booking transitions.
func (s *SlotService) Release(ctx context.Context, id int64) (*models.ParkingSlot, error) {
	if err := s.repo.ReleaseSlot(ctx, id); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("slot_id", id).Msg("slot released")
	return s.repo.GetSlot(ctx, id)
}

func (s *SlotService) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteSlot(ctx, id)
}
