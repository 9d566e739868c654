package repository

import (
	"context"
	"errors"

	"github.com/terralotes/terralotes-api/internal/models"
	"gorm.io/gorm"
)

// LotRepository defines the interface for lot data access
type LotRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Lot, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.Lot, error)
	FindByMap(ctx context.Context, mapID uint) ([]models.Lot, error)
	Create(ctx context.Context, lot *models.Lot) error
	Update(ctx context.Context, lot *models.Lot) error
	Rename(ctx context.Context, id uint, newNumber string) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, mapID uint, query *ListQuery) ([]models.Lot, int64, error)
	SetStatus(ctx context.Context, id uint, from, to string) (bool, error)
	CountByStatus(ctx context.Context, mapID uint) (*models.LotStats, error)
}

type lotRepository struct {
	db *gorm.DB
}

// NewLotRepository creates a new lot repository
func NewLotRepository(db *gorm.DB) LotRepository {
	return &lotRepository{db: db}
}

func (r *lotRepository) FindByID(ctx context.Context, id uint) (*models.Lot, error) {
	var lot models.Lot
	err := r.db.WithContext(ctx).Preload("Map").Preload("Block").First(&lot, id).Error
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

func (r *lotRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.Lot, error) {
	var lots []models.Lot
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&lots).Error
	return lots, err
}

func (r *lotRepository) FindByMap(ctx context.Context, mapID uint) ([]models.Lot, error) {
	var lots []models.Lot
	err := r.db.WithContext(ctx).
		Where("map_id = ?", mapID).
		Order("number ASC").
		Find(&lots).Error
	return lots, err
}

// Create inserts a lot after re-validating map-scoped number uniqueness.
func (r *lotRepository) Create(ctx context.Context, lot *models.Lot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := numberTaken(tx, lot.MapID, lot.Number, 0)
		if err != nil {
			return err
		}
		if taken {
			return &DuplicateNumberError{MapID: lot.MapID, Number: lot.Number}
		}
		return tx.Create(lot).Error
	})
}

func (r *lotRepository) Update(ctx context.Context, lot *models.Lot) error {
	return r.db.WithContext(ctx).Save(lot).Error
}

// Rename changes a lot number, re-validating uniqueness within the lot's map
// in the same transaction as the write.
func (r *lotRepository) Rename(ctx context.Context, id uint, newNumber string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lot models.Lot
		if err := tx.First(&lot, id).Error; err != nil {
			return err
		}
		taken, err := numberTaken(tx, lot.MapID, newNumber, lot.ID)
		if err != nil {
			return err
		}
		if taken {
			return &DuplicateNumberError{MapID: lot.MapID, Number: newNumber}
		}
		return tx.Model(&models.Lot{}).Where("id = ?", id).Update("number", newNumber).Error
	})
}

func (r *lotRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Lot{}, id).Error
}

func (r *lotRepository) List(ctx context.Context, mapID uint, query *ListQuery) ([]models.Lot, int64, error) {
	var lots []models.Lot
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Lot{}).Where("map_id = ?", mapID)

	if blockID := query.Filters["block_id"]; blockID != "" {
		db = db.Where("block_id = ?", blockID)
	}
	if status := query.Filters["status"]; status != "" {
		db = db.Where("lots.status = ?", status)
	}
	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Where("number ILIKE ? OR description ILIKE ? OR features ILIKE ?", search, search, search)
	}

	db.Count(&total)

	if query.SortBy != "" {
		order := query.SortBy
		if query.SortDir == "desc" {
			order += " DESC"
		}
		db = db.Order(order)
	} else {
		db = db.Order("number ASC")
	}

	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.Preload("Map").Preload("Block").Find(&lots).Error
	return lots, total, err
}

// SetStatus performs a single-lot compare-and-set. Used for the BLOCKED
// toggle, which is independent of the reservation flow.
func (r *lotRepository) SetStatus(ctx context.Context, id uint, from, to string) (bool, error) {
	var swapped bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := casLotStatus(tx, id, from, to)
		if err != nil {
			return err
		}
		swapped = ok
		return nil
	})
	return swapped, err
}

func (r *lotRepository) CountByStatus(ctx context.Context, mapID uint) (*models.LotStats, error) {
	stats := &models.LotStats{}

	rows, err := r.db.WithContext(ctx).
		Model(&models.Lot{}).
		Select("status, count(*) as count").
		Where("map_id = ?", mapID).
		Group("status").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		switch status {
		case models.LotStatusAvailable:
			stats.Available = count
		case models.LotStatusReserved:
			stats.Reserved = count
		case models.LotStatusSold:
			stats.Sold = count
		case models.LotStatusBlocked:
			stats.Blocked = count
		}
	}

	return stats, rows.Err()
}

// numberTaken reports whether another lot in the map already uses the number.
// excludeID skips the lot being renamed.
func numberTaken(tx *gorm.DB, mapID uint, number string, excludeID uint) (bool, error) {
	var count int64
	db := tx.Model(&models.Lot{}).Where("map_id = ? AND number = ?", mapID, number)
	if excludeID > 0 {
		db = db.Where("id <> ?", excludeID)
	}
	if err := db.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// IsNotFound reports whether err is the storage-level missing record error.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
