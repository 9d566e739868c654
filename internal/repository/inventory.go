package repository

import (
	"github.com/terralotes/terralotes-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Inventory CAS primitives. These helpers are the only code that writes
// lot.status for the reservation lifecycle; both the lot repository and the
// reservation repository run them inside their own transactions so a batch
// either commits whole or not at all.

// reserveLots locks the given lots, verifies every one of them is AVAILABLE,
// and flips the whole batch to RESERVED tagged with the reservation id.
// If any lot is missing the transaction fails with gorm.ErrRecordNotFound;
// if any lot is not available it fails with *LotConflictError listing the
// offending ids. Callers must run it inside a transaction.
func reserveLots(tx *gorm.DB, lotIDs []uint, reservationID uint) error {
	var lots []models.Lot
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", lotIDs).
		Find(&lots).Error; err != nil {
		return err
	}
	if len(lots) != len(lotIDs) {
		return gorm.ErrRecordNotFound
	}

	var conflicting []uint
	for _, lot := range lots {
		if lot.Status != models.LotStatusAvailable {
			conflicting = append(conflicting, lot.ID)
		}
	}
	if len(conflicting) > 0 {
		return &LotConflictError{LotIDs: conflicting}
	}

	res := tx.Model(&models.Lot{}).
		Where("id IN ? AND status = ?", lotIDs, models.LotStatusAvailable).
		Updates(map[string]interface{}{
			"status":         models.LotStatusReserved,
			"reservation_id": reservationID,
		})
	if res.Error != nil {
		return res.Error
	}
	// The rows are locked, so a shortfall here means a bug, not a race.
	if res.RowsAffected != int64(len(lotIDs)) {
		return ErrStaleTransition
	}
	return nil
}

// transitionLots moves every lot held by reservationID from one status to
// another as a single conditional update. When the target status is
// AVAILABLE the reservation tag is cleared. If fewer than expected rows
// match, the lot set was altered outside the reservation flow and the
// caller's transaction must roll back (ErrStaleTransition).
func transitionLots(tx *gorm.DB, reservationID uint, from, to string, expected int) error {
	updates := map[string]interface{}{"status": to}
	if to == models.LotStatusAvailable {
		updates["reservation_id"] = nil
	}

	res := tx.Model(&models.Lot{}).
		Where("reservation_id = ? AND status = ?", reservationID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != int64(expected) {
		return ErrStaleTransition
	}
	return nil
}

// casLotStatus performs a single-lot compare-and-set, used for the
// administrative BLOCKED toggle. Returns false when the lot was not in the
// expected source status.
func casLotStatus(tx *gorm.DB, lotID uint, from, to string) (bool, error) {
	res := tx.Model(&models.Lot{}).
		Where("id = ? AND status = ?", lotID, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
