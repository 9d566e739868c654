package repository

import (
	"context"
	"strings"

	"github.com/terralotes/terralotes-api/internal/models"
	"gorm.io/gorm"
)

// ReservationRepository defines the interface for reservation data access.
// CreateWithLots and UpdateStatusWithLots each run as one transaction so the
// reservation status and its lots' statuses can never be observed apart.
type ReservationRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Reservation, error)
	FindByIDWithDetails(ctx context.Context, id uint) (*models.Reservation, error)
	CreateWithLots(ctx context.Context, reservation *models.Reservation) error
	Update(ctx context.Context, reservation *models.Reservation) error
	UpdateStatusWithLots(ctx context.Context, reservation *models.Reservation, lotFrom, lotTo string) error
	List(ctx context.Context, query *ReservationQuery) ([]models.Reservation, int64, error)
	FindStalePending(ctx context.Context, olderThanHours int) ([]models.Reservation, error)
	GetStats(ctx context.Context) (*models.ReservationStats, error)
}

// ReservationQuery extends ListQuery with reservation-specific filters
type ReservationQuery struct {
	*ListQuery
	SellerID uint
	IsAdmin  bool
	Status   string
	LotID    uint
	MapID    uint
}

type reservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db *gorm.DB) ReservationRepository {
	return &reservationRepository{db: db}
}

func (r *reservationRepository) FindByID(ctx context.Context, id uint) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).Preload("Lots").First(&reservation, id).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *reservationRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.Reservation, error) {
	var reservation models.Reservation
	err := r.db.WithContext(ctx).
		Joins("Seller").
		Preload("Lots", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Preload("Lots.Lot").
		First(&reservation, id).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// CreateWithLots persists the reservation, its per-lot terms, and the batch
// lot admission in a single transaction. On a lot conflict everything rolls
// back and *LotConflictError names the unavailable lots; no partial state is
// ever visible.
func (r *reservationRepository) CreateWithLots(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines := reservation.Lots
		reservation.Lots = nil
		if err := tx.Create(reservation).Error; err != nil {
			return err
		}

		lotIDs := make([]uint, 0, len(lines))
		for i := range lines {
			lines[i].ReservationID = reservation.ID
			lotIDs = append(lotIDs, lines[i].LotID)
		}

		if err := reserveLots(tx, lotIDs, reservation.ID); err != nil {
			return err
		}

		if err := tx.Create(&lines).Error; err != nil {
			return err
		}
		reservation.Lots = lines
		return nil
	})
}

func (r *reservationRepository) Update(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Omit("Lots").Save(reservation).Error
}

// UpdateStatusWithLots saves the reservation and moves every held lot from
// lotFrom to lotTo in the same transaction. A short batch (a lot altered
// outside the reservation flow) rolls the whole operation back with
// ErrStaleTransition.
func (r *reservationRepository) UpdateStatusWithLots(ctx context.Context, reservation *models.Reservation, lotFrom, lotTo string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := transitionLots(tx, reservation.ID, lotFrom, lotTo, len(reservation.Lots)); err != nil {
			return err
		}
		return tx.Omit("Lots").Save(reservation).Error
	})
}

func (r *reservationRepository) List(ctx context.Context, query *ReservationQuery) ([]models.Reservation, int64, error) {
	var reservations []models.Reservation
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Reservation{})

	// Non-admin callers only see reservations they created
	if !query.IsAdmin && query.SellerID > 0 {
		db = db.Where("seller_id = ?", query.SellerID)
	}

	if query.Filters != nil {
		if val, ok := query.Filters["status_in"]; ok && val != "" {
			statuses := strings.Split(val, ",")
			for i, s := range statuses {
				statuses[i] = strings.TrimSpace(s)
			}
			db = db.Where("reservations.status IN ?", statuses)
		}
	}
	if (query.Filters == nil || query.Filters["status_in"] == "") && query.Status != "" {
		db = db.Where("reservations.status = ?", query.Status)
	}

	if query.LotID > 0 {
		db = db.Joins("JOIN reservation_lots rl ON rl.reservation_id = reservations.id").
			Where("rl.lot_id = ?", query.LotID)
	}
	if query.MapID > 0 {
		db = db.Joins("JOIN reservation_lots rlm ON rlm.reservation_id = reservations.id").
			Joins("JOIN lots ON lots.id = rlm.lot_id").
			Where("lots.map_id = ?", query.MapID)
	}

	if query.Search != "" {
		search := "%" + query.Search + "%"
		db = db.Where("customer_name ILIKE ? OR customer_email ILIKE ? OR customer_tax_id ILIKE ? OR guid ILIKE ?",
			search, search, search, search)
	}

	countDB := db.Session(&gorm.Session{})
	if err := countDB.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Display convention shared by all clients: pending first, then most
	// recently created.
	pendingFirst := "(CASE WHEN reservations.status = '" + models.ReservationStatusPending + "' THEN 0 ELSE 1 END) ASC"
	db = db.Order(pendingFirst).Order("reservations.id DESC")

	if query.PerPage > 0 {
		db = db.Offset((query.Page - 1) * query.PerPage).Limit(query.PerPage)
	}

	err := db.
		Select("reservations.*").
		Preload("Seller").
		Preload("Lots").
		Preload("Lots.Lot").
		Find(&reservations).Error

	return reservations, total, err
}

// FindStalePending returns pending reservations older than the given number
// of hours. Used by the scheduled sweep.
func (r *reservationRepository) FindStalePending(ctx context.Context, olderThanHours int) ([]models.Reservation, error) {
	var reservations []models.Reservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < NOW() - make_interval(hours => ?)",
			models.ReservationStatusPending, olderThanHours).
		Preload("Lots").
		Find(&reservations).Error
	return reservations, err
}

func (r *reservationRepository) GetStats(ctx context.Context) (*models.ReservationStats, error) {
	stats := &models.ReservationStats{}

	rows, err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Select("status, count(*) as count").
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
		stats.Total += count
		switch status {
		case models.ReservationStatusPending:
			stats.Pending = count
		case models.ReservationStatusCompleted:
			stats.Completed = count
		case models.ReservationStatusCancelled:
			stats.Cancelled = count
		}
	}

	return stats, rows.Err()
}
