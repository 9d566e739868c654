package repository

import (
	"context"

	"github.com/terralotes/terralotes-api/internal/models"
	"gorm.io/gorm"
)

// MapRepository defines the interface for map data access
type MapRepository interface {
	FindByID(ctx context.Context, id uint) (*models.PropertyMap, error)
	Create(ctx context.Context, m *models.PropertyMap) error
	Update(ctx context.Context, m *models.PropertyMap) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, query *ListQuery) ([]models.PropertyMap, int64, error)
	CountActiveLots(ctx context.Context, mapID uint) (int64, error)
}

type mapRepository struct {
	db *gorm.DB
}

// NewMapRepository creates a new map repository
func NewMapRepository(db *gorm.DB) MapRepository {
	return &mapRepository{db: db}
}

func (r *mapRepository) FindByID(ctx context.Context, id uint) (*models.PropertyMap, error) {
	var m models.PropertyMap
	err := r.db.WithContext(ctx).Preload("Blocks").Preload("Lots").First(&m, id).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mapRepository) Create(ctx context.Context, m *models.PropertyMap) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *mapRepository) Update(ctx context.Context, m *models.PropertyMap) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *mapRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.PropertyMap{}, id).Error
}

func (r *mapRepository) List(ctx context.Context, query *ListQuery) ([]models.PropertyMap, int64, error) {
	var maps []models.PropertyMap
	var total int64

	db := r.db.WithContext(ctx).Model(&models.PropertyMap{})

	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Where("name ILIKE ? OR description ILIKE ? OR guid ILIKE ?", search, search, search)
	}

	db.Count(&total)

	if query.SortBy != "" {
		order := query.SortBy
		if query.SortDir == "desc" {
			order += " DESC"
		}
		db = db.Order(order)
	} else {
		db = db.Order("created_at DESC")
	}

	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.Preload("Lots").Find(&maps).Error
	return maps, total, err
}

// CountActiveLots counts lots in the map that are reserved or sold. Map
// deletion is refused while this is non-zero.
func (r *mapRepository) CountActiveLots(ctx context.Context, mapID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Lot{}).
		Where("map_id = ? AND status IN ?", mapID,
			[]string{models.LotStatusReserved, models.LotStatusSold}).
		Count(&count).Error
	return count, err
}

// BlockRepository defines the interface for block data access
type BlockRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Block, error)
	FindByMap(ctx context.Context, mapID uint) ([]models.Block, error)
	Create(ctx context.Context, block *models.Block) error
	Update(ctx context.Context, block *models.Block) error
	Delete(ctx context.Context, id uint) error
	ActiveLots(ctx context.Context, blockID uint) ([]models.Lot, error)
}

type blockRepository struct {
	db *gorm.DB
}

// NewBlockRepository creates a new block repository
func NewBlockRepository(db *gorm.DB) BlockRepository {
	return &blockRepository{db: db}
}

func (r *blockRepository) FindByID(ctx context.Context, id uint) (*models.Block, error) {
	var block models.Block
	err := r.db.WithContext(ctx).Preload("Lots").First(&block, id).Error
	if err != nil {
		return nil, err
	}
	return &block, nil
}

func (r *blockRepository) FindByMap(ctx context.Context, mapID uint) ([]models.Block, error) {
	var blocks []models.Block
	err := r.db.WithContext(ctx).
		Where("map_id = ?", mapID).
		Order("name ASC").
		Find(&blocks).Error
	return blocks, err
}

func (r *blockRepository) Create(ctx context.Context, block *models.Block) error {
	return r.db.WithContext(ctx).Create(block).Error
}

func (r *blockRepository) Update(ctx context.Context, block *models.Block) error {
	return r.db.WithContext(ctx).Save(block).Error
}

func (r *blockRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Block{}, id).Error
}

// ActiveLots returns the block's lots that are reserved or sold, so callers
// can name them when refusing a deletion.
func (r *blockRepository) ActiveLots(ctx context.Context, blockID uint) ([]models.Lot, error) {
	var lots []models.Lot
	err := r.db.WithContext(ctx).
		Where("block_id = ? AND status IN ?", blockID,
			[]string{models.LotStatusReserved, models.LotStatusSold}).
		Find(&lots).Error
	return lots, err
}
