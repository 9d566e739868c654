package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/terralotes/terralotes-api/internal/models"
	"github.com/terralotes/terralotes-api/internal/repository"
)

// LotService manages the lot inventory: creation, renaming, metadata edits,
// manual blocking and deletion, all guarded against active reservations.
type LotService struct {
	repo     repository.LotRepository
	mapRepo  repository.MapRepository
	auditSvc *AuditService
}

func NewLotService(repo repository.LotRepository, mapRepo repository.MapRepository, auditSvc *AuditService) *LotService {
	return &LotService{repo: repo, mapRepo: mapRepo, auditSvc: auditSvc}
}

func (s *LotService) FindByID(ctx context.Context, id uint) (*models.Lot, error) {
	lot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, &NotFoundError{Resource: "lote"}
		}
		return nil, err
	}
	return lot, nil
}

func (s *LotService) FindByMap(ctx context.Context, mapID uint) ([]models.Lot, error) {
	return s.repo.FindByMap(ctx, mapID)
}

func (s *LotService) List(ctx context.Context, mapID uint, query *repository.ListQuery) ([]models.Lot, int64, error) {
	return s.repo.List(ctx, mapID, query)
}

func (s *LotService) Create(ctx context.Context, actor *models.User, lot *models.Lot) error {
	if strings.TrimSpace(lot.Number) == "" {
		return NewValidationError("number", "el número de lote es requerido")
	}
	if lot.SizeM2 <= 0 {
		return NewValidationError("size_m2", "el tamaño debe ser mayor que 0")
	}
	if lot.Price <= 0 {
		return NewValidationError("price", "el precio debe ser mayor que 0")
	}
	if _, err := s.mapRepo.FindByID(ctx, lot.MapID); err != nil {
		if repository.IsNotFound(err) {
			return &NotFoundError{Resource: "mapa"}
		}
		return err
	}
	if lot.Status == "" {
		lot.Status = models.LotStatusAvailable
	}

	if err := s.repo.Create(ctx, lot); err != nil {
		return translateDuplicate(err)
	}

	s.auditSvc.Log(ctx, actor.ID, "CREATE", "Lot", lot.ID,
		fmt.Sprintf("Lote %s creado en mapa %d", lot.Number, lot.MapID), "", "")
	return nil
}

func (s *LotService) Update(ctx context.Context, actor *models.User, lot *models.Lot) error {
	existing, err := s.FindByID(ctx, lot.ID)
	if err != nil {
		return err
	}

	// Identity and lifecycle fields do not move through plain updates
	lot.MapID = existing.MapID
	lot.Number = existing.Number
	lot.Status = existing.Status
	lot.ReservationID = existing.ReservationID

	if lot.SizeM2 <= 0 {
		lot.SizeM2 = existing.SizeM2
	}
	if lot.Price <= 0 {
		lot.Price = existing.Price
	}
	if lot.BlockID == nil {
		lot.BlockID = existing.BlockID
	}
	if lot.Description == nil {
		lot.Description = existing.Description
	}
	if lot.Features == nil {
		lot.Features = existing.Features
	}
	if lot.Area == nil {
		lot.Area = existing.Area
	}

	if err := s.repo.Update(ctx, lot); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actor.ID, "UPDATE", "Lot", lot.ID,
		fmt.Sprintf("Lote %s actualizado", lot.Number), "", "")
	return nil
}

// Rename changes a lot's number. The number must stay unique within its map.
func (s *LotService) Rename(ctx context.Context, actor *models.User, id uint, newNumber string) (*models.Lot, error) {
	if strings.TrimSpace(newNumber) == "" {
		return nil, NewValidationError("number", "el número de lote es requerido")
	}

	lot, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Rename(ctx, id, newNumber); err != nil {
		return nil, translateDuplicate(err)
	}

	s.auditSvc.Log(ctx, actor.ID, "RENAME", "Lot", id,
		fmt.Sprintf("Lote %s renombrado a %s", lot.Number, newNumber), "", "")

	lot.Number = newNumber
	return lot, nil
}

// SetBlocked toggles a lot between available and blocked. Only available
// lots can be blocked; reserved or sold lots are already off the market.
func (s *LotService) SetBlocked(ctx context.Context, actor *models.User, id uint, blocked bool) (*models.Lot, error) {
	lot, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from, to := models.LotStatusAvailable, models.LotStatusBlocked
	action := "BLOCK"
	if !blocked {
		from, to = models.LotStatusBlocked, models.LotStatusAvailable
		action = "UNBLOCK"
	}

	ok, err := s.repo.SetStatus(ctx, id, from, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &StateError{
			Message:      fmt.Sprintf("el lote %s no puede cambiar a %s", lot.Number, to),
			CurrentState: lot.Status,
		}
	}

	s.auditSvc.Log(ctx, actor.ID, action, "Lot", id,
		fmt.Sprintf("Lote %s marcado como %s", lot.Number, to), "", "")

	lot.Status = to
	return lot, nil
}

// Delete removes a lot from the inventory. Reserved or sold lots cannot be
// deleted while their reservation is active.
func (s *LotService) Delete(ctx context.Context, actor *models.User, id uint) error {
	lot, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if lot.Status == models.LotStatusReserved || lot.Status == models.LotStatusSold {
		return &StateError{
			Message:      fmt.Sprintf("el lote %s tiene una reserva activa", lot.Number),
			CurrentState: lot.Status,
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actor.ID, "DELETE", "Lot", id,
		fmt.Sprintf("Lote %s eliminado", lot.Number), "", "")
	return nil
}

// GetStats returns the per-map lot counts by status
func (s *LotService) GetStats(ctx context.Context, mapID uint) (*models.LotStats, error) {
	return s.repo.CountByStatus(ctx, mapID)
}

func translateDuplicate(err error) error {
	var dup *repository.DuplicateNumberError
	if errors.As(err, &dup) {
		return &ConflictError{
			Message: fmt.Sprintf("el número %s ya existe en el mapa", dup.Number),
		}
	}
	if repository.IsNotFound(err) {
		return &NotFoundError{Resource: "lote"}
	}
	return err
}
