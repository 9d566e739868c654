package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/terralotes/terralotes-api/internal/models"
	"github.com/terralotes/terralotes-api/internal/repository"
)

type lotServiceMockRepo struct {
	repository.LotRepository
	mockFindByID  func(ctx context.Context, id uint) (*models.Lot, error)
	mockCreate    func(ctx context.Context, lot *models.Lot) error
	mockRename    func(ctx context.Context, id uint, number string) error
	mockSetStatus func(ctx context.Context, id uint, from, to string) (bool, error)
	mockDelete    func(ctx context.Context, id uint) error
	mockUpdate    func(ctx context.Context, lot *models.Lot) error
}

func (m *lotServiceMockRepo) FindByID(ctx context.Context, id uint) (*models.Lot, error) {
	return m.mockFindByID(ctx, id)
}

func (m *lotServiceMockRepo) Create(ctx context.Context, lot *models.Lot) error {
	return m.mockCreate(ctx, lot)
}

func (m *lotServiceMockRepo) Rename(ctx context.Context, id uint, number string) error {
	return m.mockRename(ctx, id, number)
}

func (m *lotServiceMockRepo) SetStatus(ctx context.Context, id uint, from, to string) (bool, error) {
	return m.mockSetStatus(ctx, id, from, to)
}

func (m *lotServiceMockRepo) Delete(ctx context.Context, id uint) error {
	return m.mockDelete(ctx, id)
}

func (m *lotServiceMockRepo) Update(ctx context.Context, lot *models.Lot) error {
	return m.mockUpdate(ctx, lot)
}

type lotServiceMockMapRepo struct {
	repository.MapRepository
	mockFindByID func(ctx context.Context, id uint) (*models.PropertyMap, error)
}

func (m *lotServiceMockMapRepo) FindByID(ctx context.Context, id uint) (*models.PropertyMap, error) {
	return m.mockFindByID(ctx, id)
}

func TestLotService_Create_ValidatesFields(t *testing.T) {
	service := NewLotService(&lotServiceMockRepo{}, &lotServiceMockMapRepo{}, nil)
	actor := adminUser()

	tests := []struct {
		name string
		lot  models.Lot
	}{
		{"empty number", models.Lot{Number: "  ", SizeM2: 200, Price: 100000, MapID: 1}},
		{"zero size", models.Lot{Number: "A-01", SizeM2: 0, Price: 100000, MapID: 1}},
		{"zero price", models.Lot{Number: "A-01", SizeM2: 200, Price: 0, MapID: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.Create(context.Background(), actor, &tt.lot)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestLotService_Create_DuplicateNumberIsConflict(t *testing.T) {
	repo := &lotServiceMockRepo{
		mockCreate: func(ctx context.Context, lot *models.Lot) error {
			return &repository.DuplicateNumberError{MapID: lot.MapID, Number: lot.Number}
		},
	}
	mapRepo := &lotServiceMockMapRepo{
		mockFindByID: func(ctx context.Context, id uint) (*models.PropertyMap, error) {
			return &models.PropertyMap{ID: id}, nil
		},
	}
	service := NewLotService(repo, mapRepo, nil)

	err := service.Create(context.Background(), adminUser(),
		&models.Lot{Number: "A-01", SizeM2: 200, Price: 100000, MapID: 1})

	assert.True(t, IsConflict(err))
}

func TestLotService_Create_DefaultsToAvailable(t *testing.T) {
	var created *models.Lot
	repo := &lotServiceMockRepo{
		mockCreate: func(ctx context.Context, lot *models.Lot) error {
			created = lot
			return nil
		},
	}
	mapRepo := &lotServiceMockMapRepo{
		mockFindByID: func(ctx context.Context, id uint) (*models.PropertyMap, error) {
			return &models.PropertyMap{ID: id}, nil
		},
	}
	service := NewLotService(repo, mapRepo, nil)

	err := service.Create(context.Background(), adminUser(),
		&models.Lot{Number: "A-01", SizeM2: 200, Price: 100000, MapID: 1})

	assert.NoError(t, err)
	assert.Equal(t, models.LotStatusAvailable, created.Status)
}

func TestLotService_Rename_DuplicateIsConflict(t *testing.T) {
	repo := &lotServiceMockRepo{
		mockFindByID: func(ctx context.Context, id uint) (*models.Lot, error) {
			return &models.Lot{ID: id, Number: "A-01", MapID: 1}, nil
		},
		mockRename: func(ctx context.Context, id uint, number string) error {
			return &repository.DuplicateNumberError{MapID: 1, Number: number}
		},
	}
	service := NewLotService(repo, &lotServiceMockMapRepo{}, nil)

	_, err := service.Rename(context.Background(), adminUser(), 3, "A-02")

	assert.True(t, IsConflict(err))
}

func TestLotService_SetBlocked_RejectedByGuard(t *testing.T) {
	repo := &lotServiceMockRepo{
		mockFindByID: func(ctx context.Context, id uint) (*models.Lot, error) {
			return &models.Lot{ID: id, Number: "A-01", Status: models.LotStatusReserved}, nil
		},
		mockSetStatus: func(ctx context.Context, id uint, from, to string) (bool, error) {
			// Guarded update matched no row: the lot was not available
			return false, nil
		},
	}
	service := NewLotService(repo, &lotServiceMockMapRepo{}, nil)

	_, err := service.SetBlocked(context.Background(), adminUser(), 3, true)

	assert.True(t, IsState(err))
}

func TestLotService_SetBlocked_RoundTrip(t *testing.T) {
	status := models.LotStatusAvailable
	repo := &lotServiceMockRepo{
		mockFindByID: func(ctx context.Context, id uint) (*models.Lot, error) {
			return &models.Lot{ID: id, Number: "A-01", Status: status}, nil
		},
		mockSetStatus: func(ctx context.Context, id uint, from, to string) (bool, error) {
			if from != status {
				return false, nil
			}
			status = to
			return true, nil
		},
	}
	service := NewLotService(repo, &lotServiceMockMapRepo{}, nil)

	lot, err := service.SetBlocked(context.Background(), adminUser(), 3, true)
	assert.NoError(t, err)
	assert.Equal(t, models.LotStatusBlocked, lot.Status)

	lot, err = service.SetBlocked(context.Background(), adminUser(), 3, false)
	assert.NoError(t, err)
	assert.Equal(t, models.LotStatusAvailable, lot.Status)
}

func TestLotService_Delete_ActiveReservationIsStateError(t *testing.T) {
	for _, status := range []string{models.LotStatusReserved, models.LotStatusSold} {
		t.Run(status, func(t *testing.T) {
			repo := &lotServiceMockRepo{
				mockFindByID: func(ctx context.Context, id uint) (*models.Lot, error) {
					return &models.Lot{ID: id, Number: "A-01", Status: status}, nil
				},
			}
			service := NewLotService(repo, &lotServiceMockMapRepo{}, nil)

			err := service.Delete(context.Background(), adminUser(), 3)

			assert.True(t, IsState(err))
		})
	}
}

func TestLotService_Update_PreservesIdentityFields(t *testing.T) {
	reservationID := uint(9)
	var updated *models.Lot
	repo := &lotServiceMockRepo{
		mockFindByID: func(ctx context.Context, id uint) (*models.Lot, error) {
			return &models.Lot{
				ID: id, Number: "A-01", MapID: 1,
				Status:        models.LotStatusReserved,
				ReservationID: &reservationID,
				SizeM2:        200, Price: 100000,
			}, nil
		},
		mockUpdate: func(ctx context.Context, lot *models.Lot) error {
			updated = lot
			return nil
		},
	}
	service := NewLotService(repo, &lotServiceMockMapRepo{}, nil)

	err := service.Update(context.Background(), adminUser(), &models.Lot{
		ID: 3, Number: "HACKED", MapID: 99, Status: models.LotStatusAvailable,
		SizeM2: 250, Price: 120000,
	})

	assert.NoError(t, err)
	assert.Equal(t, "A-01", updated.Number)
	assert.Equal(t, uint(1), updated.MapID)
	assert.Equal(t, models.LotStatusReserved, updated.Status)
	assert.Equal(t, &reservationID, updated.ReservationID)
	assert.Equal(t, 250.0, updated.SizeM2)
	assert.Equal(t, 120000.0, updated.Price)
}
