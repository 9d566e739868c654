package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
	"github.com/terralotes/terralotes-api/internal/models"
	"github.com/terralotes/terralotes-api/internal/repository"
)

// MapService manages property maps and the raster image behind the lot editor
type MapService struct {
	repo     repository.MapRepository
	imageSvc *ImageService
	auditSvc *AuditService
}

func NewMapService(repo repository.MapRepository, imageSvc *ImageService, auditSvc *AuditService) *MapService {
	return &MapService{repo: repo, imageSvc: imageSvc, auditSvc: auditSvc}
}

func (s *MapService) FindByID(ctx context.Context, id uint) (*models.PropertyMap, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, &NotFoundError{Resource: "mapa"}
		}
		return nil, err
	}
	return m, nil
}

func (s *MapService) List(ctx context.Context, query *repository.ListQuery) ([]models.PropertyMap, int64, error) {
	return s.repo.List(ctx, query)
}

func (s *MapService) Create(ctx context.Context, actor *models.User, m *models.PropertyMap) error {
	if strings.TrimSpace(m.Name) == "" {
		return NewValidationError("name", "el nombre del mapa es requerido")
	}
	if m.GUID == "" {
		m.GUID = uuid.New().String()
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actor.ID, "CREATE", "Map", m.ID,
		fmt.Sprintf("Mapa %s creado", m.Name), "", "")
	return nil
}

func (s *MapService) Update(ctx context.Context, actor *models.User, m *models.PropertyMap) error {
	existing, err := s.FindByID(ctx, m.ID)
	if err != nil {
		return err
	}

	if strings.TrimSpace(m.Name) == "" {
		m.Name = existing.Name
	}
	m.GUID = existing.GUID
	if m.ImagePath == nil {
		m.ImagePath = existing.ImagePath
		m.ThumbPath = existing.ThumbPath
		m.Width = existing.Width
		m.Height = existing.Height
	}

	if err := s.repo.Update(ctx, m); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actor.ID, "UPDATE", "Map", m.ID,
		fmt.Sprintf("Mapa %s actualizado", m.Name), "", "")
	return nil
}

// AttachImage stores the uploaded raster and binds it to the map
func (s *MapService) AttachImage(ctx context.Context, actor *models.User, id uint, file multipart.File, header *multipart.FileHeader) (*models.PropertyMap, error) {
	m, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	originalPath, thumbPath, width, height, err := s.imageSvc.ProcessAndSaveMapImage(file, header)
	if err != nil {
		return nil, err
	}

	m.ImagePath = &originalPath
	m.ThumbPath = &thumbPath
	m.Width = width
	m.Height = height

	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actor.ID, "UPLOAD_IMAGE", "Map", m.ID,
		fmt.Sprintf("Imagen cargada para mapa %s (%dx%d)", m.Name, width, height), "", "")
	return m, nil
}

// Delete removes a map. Refused while any of its lots holds an active
// reservation.
func (s *MapService) Delete(ctx context.Context, actor *models.User, id uint) error {
	m, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}

	active, err := s.repo.CountActiveLots(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return &StateError{
			Message: fmt.Sprintf("el mapa %s tiene %d lote(s) con reservas activas", m.Name, active),
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actor.ID, "DELETE", "Map", id,
		fmt.Sprintf("Mapa %s eliminado", m.Name), "", "")
	return nil
}

// BlockService manages the named groupings of lots within a map
type BlockService struct {
	repo     repository.BlockRepository
	mapRepo  repository.MapRepository
	auditSvc *AuditService
}

func NewBlockService(repo repository.BlockRepository, mapRepo repository.MapRepository, auditSvc *AuditService) *BlockService {
	return &BlockService{repo: repo, mapRepo: mapRepo, auditSvc: auditSvc}
}

func (s *BlockService) FindByID(ctx context.Context, id uint) (*models.Block, error) {
	block, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, &NotFoundError{Resource: "bloque"}
		}
		return nil, err
	}
	return block, nil
}

func (s *BlockService) FindByMap(ctx context.Context, mapID uint) ([]models.Block, error) {
	return s.repo.FindByMap(ctx, mapID)
}

func (s *BlockService) Create(ctx context.Context, actor *models.User, block *models.Block) error {
	if strings.TrimSpace(block.Name) == "" {
		return NewValidationError("name", "el nombre del bloque es requerido")
	}
	if _, err := s.mapRepo.FindByID(ctx, block.MapID); err != nil {
		if repository.IsNotFound(err) {
			return &NotFoundError{Resource: "mapa"}
		}
		return err
	}

	if err := s.repo.Create(ctx, block); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actor.ID, "CREATE", "Block", block.ID,
		fmt.Sprintf("Bloque %s creado en mapa %d", block.Name, block.MapID), "", "")
	return nil
}

func (s *BlockService) Update(ctx context.Context, actor *models.User, block *models.Block) error {
	existing, err := s.FindByID(ctx, block.ID)
	if err != nil {
		return err
	}
	block.MapID = existing.MapID
	if strings.TrimSpace(block.Name) == "" {
		block.Name = existing.Name
	}

	if err := s.repo.Update(ctx, block); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actor.ID, "UPDATE", "Block", block.ID,
		fmt.Sprintf("Bloque %s actualizado", block.Name), "", "")
	return nil
}

// Delete removes a block. Refused while any of its lots holds an active
// reservation; the refusal names the lots so the operator can resolve them.
func (s *BlockService) Delete(ctx context.Context, actor *models.User, id uint) error {
	block, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}

	active, err := s.repo.ActiveLots(ctx, id)
	if err != nil {
		return err
	}
	if len(active) > 0 {
		numbers := make([]string, len(active))
		for i, lot := range active {
			numbers[i] = lot.Number
		}
		return &StateError{
			Message: fmt.Sprintf("el bloque %s tiene reservas activas en los lotes: %s",
				block.Name, strings.Join(numbers, ", ")),
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.auditSvc.Log(ctx, actor.ID, "DELETE", "Block", id,
		fmt.Sprintf("Bloque %s eliminado", block.Name), "", "")
	return nil
}
