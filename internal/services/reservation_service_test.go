package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/terralotes/terralotes-api/internal/jobs"
	"github.com/terralotes/terralotes-api/internal/models"
	"github.com/terralotes/terralotes-api/internal/repository"
	"gorm.io/gorm"
)

// Mock ReservationRepository
type mockReservationRepo struct {
	repository.ReservationRepository
	mockFindByIDWithDetails  func(ctx context.Context, id uint) (*models.Reservation, error)
	mockCreateWithLots       func(ctx context.Context, reservation *models.Reservation) error
	mockUpdate               func(ctx context.Context, reservation *models.Reservation) error
	mockUpdateStatusWithLots func(ctx context.Context, reservation *models.Reservation, lotFrom, lotTo string) error
}

func (m *mockReservationRepo) FindByIDWithDetails(ctx context.Context, id uint) (*models.Reservation, error) {
	return m.mockFindByIDWithDetails(ctx, id)
}

func (m *mockReservationRepo) CreateWithLots(ctx context.Context, reservation *models.Reservation) error {
	return m.mockCreateWithLots(ctx, reservation)
}

func (m *mockReservationRepo) Update(ctx context.Context, reservation *models.Reservation) error {
	if m.mockUpdate != nil {
		return m.mockUpdate(ctx, reservation)
	}
	return nil
}

func (m *mockReservationRepo) UpdateStatusWithLots(ctx context.Context, reservation *models.Reservation, lotFrom, lotTo string) error {
	if m.mockUpdateStatusWithLots != nil {
		return m.mockUpdateStatusWithLots(ctx, reservation, lotFrom, lotTo)
	}
	return nil
}

// Mock LotRepository
type mockLotRepo struct {
	repository.LotRepository
	mockFindByIDs func(ctx context.Context, ids []uint) ([]models.Lot, error)
}

func (m *mockLotRepo) FindByIDs(ctx context.Context, ids []uint) ([]models.Lot, error) {
	return m.mockFindByIDs(ctx, ids)
}

// Mock NotificationRepository
type mockNotificationRepo struct {
	repository.NotificationRepository
}

func (m *mockNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	return nil
}

// Mock UserRepository
type mockUserRepo struct {
	repository.UserRepository
}

func (m *mockUserRepo) FindAdmins(ctx context.Context) ([]models.User, error) {
	return nil, nil
}

func newTestReservationService(resRepo *mockReservationRepo, lotRepo *mockLotRepo) *ReservationService {
	worker := jobs.NewWorker(0) // EnqueueAsync spawns its own goroutines
	notifSvc := NewNotificationService(&mockNotificationRepo{}, &mockUserRepo{})
	return NewReservationService(resRepo, lotRepo, &mockUserRepo{}, notifSvc, nil, nil, worker)
}

func sellerUser() *models.User {
	return &models.User{ID: 7, Role: models.RoleSeller, FullName: "Laura Mejía", Email: "laura@example.com"}
}

func adminUser() *models.User {
	return &models.User{ID: 1, Role: models.RoleAdmin, FullName: "Admin"}
}

func TestReservationService_Create_EmptyLotSet(t *testing.T) {
	service := newTestReservationService(&mockReservationRepo{}, &mockLotRepo{})

	_, err := service.Create(context.Background(), sellerUser(), nil,
		CustomerInfo{Name: "Juan Pérez"},
		ReservationTerms{PaymentMethod: models.PaymentMethodCash})

	assert.True(t, IsValidation(err))
}

func TestReservationService_Create_DuplicateLotIDs(t *testing.T) {
	service := newTestReservationService(&mockReservationRepo{}, &mockLotRepo{})

	_, err := service.Create(context.Background(), sellerUser(), []uint{3, 5, 3},
		CustomerInfo{Name: "Juan Pérez"},
		ReservationTerms{PaymentMethod: models.PaymentMethodCash})

	assert.True(t, IsValidation(err))
}

func TestReservationService_Create_ConflictNamesLots(t *testing.T) {
	lotRepo := &mockLotRepo{
		mockFindByIDs: func(ctx context.Context, ids []uint) ([]models.Lot, error) {
			return []models.Lot{
				{ID: 3, Price: 100000, SizeM2: 200, Status: models.LotStatusAvailable},
				{ID: 5, Price: 150000, SizeM2: 250, Status: models.LotStatusReserved},
			}, nil
		},
	}
	resRepo := &mockReservationRepo{
		mockCreateWithLots: func(ctx context.Context, reservation *models.Reservation) error {
			return &repository.LotConflictError{LotIDs: []uint{5}}
		},
	}
	service := newTestReservationService(resRepo, lotRepo)

	_, err := service.Create(context.Background(), sellerUser(), []uint{3, 5},
		CustomerInfo{Name: "Juan Pérez"},
		ReservationTerms{PaymentMethod: models.PaymentMethodFinancing})

	assert.True(t, IsConflict(err))
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.Equal(t, []uint{5}, conflict.LotIDs)
}

func TestReservationService_Create_BindsSellerAndPricing(t *testing.T) {
	lotRepo := &mockLotRepo{
		mockFindByIDs: func(ctx context.Context, ids []uint) ([]models.Lot, error) {
			return []models.Lot{
				{ID: 3, Price: 100000, SizeM2: 200, Status: models.LotStatusAvailable},
				{ID: 5, Price: 150000, SizeM2: 250, Status: models.LotStatusAvailable},
			}, nil
		},
	}
	var created *models.Reservation
	resRepo := &mockReservationRepo{
		mockCreateWithLots: func(ctx context.Context, reservation *models.Reservation) error {
			created = reservation
			reservation.ID = 42
			return nil
		},
	}
	service := newTestReservationService(resRepo, lotRepo)

	seller := sellerUser()
	reservation, err := service.Create(context.Background(), seller, []uint{3, 5},
		CustomerInfo{Name: "Juan Pérez", Phone: "9999-0000"},
		ReservationTerms{
			PaymentMethod: models.PaymentMethodCash,
			PerLot: map[uint]PricingTerms{
				3: {AgreedPrice: floatPtr(95000), FirstPayment: floatPtr(10000), Installments: intPtr(12)},
			},
		})

	assert.NoError(t, err)
	assert.NotNil(t, created)
	assert.Equal(t, seller.ID, reservation.SellerID)
	assert.Equal(t, models.ReservationStatusPending, reservation.Status)
	assert.Len(t, reservation.Lots, 2)

	// Negotiated price wins where given, base price elsewhere
	assert.Equal(t, 95000.0, reservation.Lots[0].AgreedPrice)
	assert.Equal(t, 150000.0, reservation.Lots[1].AgreedPrice)

	// Cash is lump-sum: partial-payment fields are dropped even if sent
	assert.Nil(t, reservation.Lots[0].FirstPayment)
	assert.Nil(t, reservation.Lots[0].Installments)
}

func TestReservationService_Create_SellerRoleRequired(t *testing.T) {
	service := newTestReservationService(&mockReservationRepo{}, &mockLotRepo{})

	ghost := &models.User{ID: 2, Role: "viewer"}
	_, err := service.Create(context.Background(), ghost, []uint{3},
		CustomerInfo{Name: "Juan Pérez"},
		ReservationTerms{PaymentMethod: models.PaymentMethodCash})

	assert.True(t, IsPermission(err))
}

func TestReservationService_Approve_MovesLotsToSold(t *testing.T) {
	var gotFrom, gotTo string
	resRepo := &mockReservationRepo{
		mockFindByIDWithDetails: func(ctx context.Context, id uint) (*models.Reservation, error) {
			return &models.Reservation{ID: id, SellerID: 7, Status: models.ReservationStatusPending}, nil
		},
		mockUpdateStatusWithLots: func(ctx context.Context, reservation *models.Reservation, lotFrom, lotTo string) error {
			gotFrom, gotTo = lotFrom, lotTo
			return nil
		},
	}
	service := newTestReservationService(resRepo, &mockLotRepo{})

	reservation, err := service.Approve(context.Background(), adminUser(), 42, "CT-2026-001")

	assert.NoError(t, err)
	assert.Equal(t, models.ReservationStatusCompleted, reservation.Status)
	assert.Equal(t, models.LotStatusReserved, gotFrom)
	assert.Equal(t, models.LotStatusSold, gotTo)
	assert.NotNil(t, reservation.ApprovedAt)
	assert.Equal(t, "CT-2026-001", *reservation.ContractNumber)
}

func TestReservationService_Approve_NonPendingIsStateError(t *testing.T) {
	resRepo := &mockReservationRepo{
		mockFindByIDWithDetails: func(ctx context.Context, id uint) (*models.Reservation, error) {
			return &models.Reservation{ID: id, Status: models.ReservationStatusCompleted}, nil
		},
	}
	service := newTestReservationService(resRepo, &mockLotRepo{})

	_, err := service.Approve(context.Background(), adminUser(), 42, "")

	assert.True(t, IsState(err))
}

func TestReservationService_Approve_SellerDenied(t *testing.T) {
	resRepo := &mockReservationRepo{
		mockFindByIDWithDetails: func(ctx context.Context, id uint) (*models.Reservation, error) {
			return &models.Reservation{ID: id, SellerID: 7, Status: models.ReservationStatusPending}, nil
		},
	}
	service := newTestReservationService(resRepo, &mockLotRepo{})

	_, err := service.Approve(context.Background(), sellerUser(), 42, "")

	assert.True(t, IsPermission(err))
}

func TestReservationService_Reject_AlreadyCancelledTouchesNoLot(t *testing.T) {
	lotsTouched := false
	resRepo := &mockReservationRepo{
		mockFindByIDWithDetails: func(ctx context.Context, id uint) (*models.Reservation, error) {
			return &models.Reservation{ID: id, Status: models.ReservationStatusCancelled}, nil
		},
		mockUpdateStatusWithLots: func(ctx context.Context, reservation *models.Reservation, lotFrom, lotTo string) error {
			lotsTouched = true
			return nil
		},
	}
	service := newTestReservationService(resRepo, &mockLotRepo{})

	_, err := service.Reject(context.Background(), adminUser(), 42, "tarde")

	assert.True(t, IsState(err))
	assert.False(t, lotsTouched, "re-applied rejection must not alter lots")
}

func TestReservationService_CancelSale_ReleasesSoldLots(t *testing.T) {
	var gotFrom, gotTo string
	resRepo := &mockReservationRepo{
		mockFindByIDWithDetails: func(ctx context.Context, id uint) (*models.Reservation, error) {
			return &models.Reservation{ID: id, SellerID: 7, Status: models.ReservationStatusCompleted}, nil
		},
		mockUpdateStatusWithLots: func(ctx context.Context, reservation *models.Reservation, lotFrom, lotTo string) error {
			gotFrom, gotTo = lotFrom, lotTo
			return nil
		},
	}
	service := newTestReservationService(resRepo, &mockLotRepo{})

	reservation, err := service.CancelSale(context.Background(), adminUser(), 42, "cliente desistió")

	assert.NoError(t, err)
	assert.Equal(t, models.ReservationStatusCancelled, reservation.Status)
	assert.Equal(t, models.LotStatusSold, gotFrom)
	assert.Equal(t, models.LotStatusAvailable, gotTo)
	assert.NotNil(t, reservation.CancelledAt)
}

func TestReservationService_CancelSale_PendingIsStateError(t *testing.T) {
	resRepo := &mockReservationRepo{
		mockFindByIDWithDetails: func(ctx context.Context, id uint) (*models.Reservation, error) {
			return &models.Reservation{ID: id, Status: models.ReservationStatusPending}, nil
		},
	}
	service := newTestReservationService(resRepo, &mockLotRepo{})

	_, err := service.CancelSale(context.Background(), adminUser(), 42, "")

	assert.True(t, IsState(err))
}

func TestReservationService_Edit_SellerOnNonPendingIsStateError(t *testing.T) {
	resRepo := &mockReservationRepo{
		mockFindByIDWithDetails: func(ctx context.Context, id uint) (*models.Reservation, error) {
			return &models.Reservation{ID: id, SellerID: 7, Status: models.ReservationStatusCompleted}, nil
		},
	}
	service := newTestReservationService(resRepo, &mockLotRepo{})

	_, err := service.Edit(context.Background(), sellerUser(), 42, nil,
		ReservationTerms{PaymentMethod: models.PaymentMethodTransfer})

	assert.True(t, IsState(err))
}

func TestReservationService_Edit_RerunsPricingUnderNewTerms(t *testing.T) {
	resRepo := &mockReservationRepo{
		mockFindByIDWithDetails: func(ctx context.Context, id uint) (*models.Reservation, error) {
			first := 10000.0
			installments := 24
			return &models.Reservation{
				ID:            id,
				SellerID:      7,
				Status:        models.ReservationStatusPending,
				PaymentMethod: models.PaymentMethodFinancing,
				Lots: []models.ReservationLot{
					{
						LotID:        3,
						AgreedPrice:  95000,
						FirstPayment: &first,
						Installments: &installments,
						Lot:          models.Lot{ID: 3, Price: 100000, SizeM2: 200},
					},
				},
			}, nil
		},
	}
	service := newTestReservationService(resRepo, &mockLotRepo{})

	// Switching to a lump-sum method wipes the partial-payment fields
	reservation, err := service.Edit(context.Background(), sellerUser(), 42, nil,
		ReservationTerms{PaymentMethod: models.PaymentMethodCash})

	assert.NoError(t, err)
	assert.Equal(t, models.PaymentMethodCash, reservation.PaymentMethod)
	assert.Equal(t, 95000.0, reservation.Lots[0].AgreedPrice)
	assert.Nil(t, reservation.Lots[0].FirstPayment)
	assert.Nil(t, reservation.Lots[0].Installments)
}

func TestReservationService_Edit_CustomerOnlyKeepsFinancingTerms(t *testing.T) {
	resRepo := &mockReservationRepo{
		mockFindByIDWithDetails: func(ctx context.Context, id uint) (*models.Reservation, error) {
			first := 20000.0
			installments := 12
			return &models.Reservation{
				ID:            id,
				SellerID:      7,
				Status:        models.ReservationStatusPending,
				PaymentMethod: models.PaymentMethodFinancing,
				CustomerName:  "Juan Pérez",
				Lots: []models.ReservationLot{
					{
						LotID:        3,
						AgreedPrice:  95000,
						FirstPayment: &first,
						Installments: &installments,
						Lot:          models.Lot{ID: 3, Price: 100000, SizeM2: 200},
					},
				},
			}, nil
		},
	}
	service := newTestReservationService(resRepo, &mockLotRepo{})

	// Correcting the customer contact must not touch the negotiated terms
	reservation, err := service.Edit(context.Background(), sellerUser(), 42,
		&CustomerInfo{Name: "Juana Pérez", Email: "juana@example.com"},
		ReservationTerms{})

	assert.NoError(t, err)
	assert.Equal(t, "Juana Pérez", reservation.CustomerName)
	assert.Equal(t, models.PaymentMethodFinancing, reservation.PaymentMethod)
	assert.Equal(t, 95000.0, reservation.Lots[0].AgreedPrice)
	if assert.NotNil(t, reservation.Lots[0].FirstPayment) {
		assert.Equal(t, 20000.0, *reservation.Lots[0].FirstPayment)
	}
	if assert.NotNil(t, reservation.Lots[0].Installments) {
		assert.Equal(t, 12, *reservation.Lots[0].Installments)
	}
}

func TestReservationService_FindByID_ForeignSellerReadsAsMissing(t *testing.T) {
	resRepo := &mockReservationRepo{
		mockFindByIDWithDetails: func(ctx context.Context, id uint) (*models.Reservation, error) {
			return &models.Reservation{ID: id, SellerID: 99, Status: models.ReservationStatusPending}, nil
		},
	}
	service := newTestReservationService(resRepo, &mockLotRepo{})

	_, err := service.FindByID(context.Background(), sellerUser(), 42)

	assert.True(t, IsNotFound(err))
}

func TestReservationService_FindByID_MissingReservation(t *testing.T) {
	resRepo := &mockReservationRepo{
		mockFindByIDWithDetails: func(ctx context.Context, id uint) (*models.Reservation, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	service := newTestReservationService(resRepo, &mockLotRepo{})

	_, err := service.FindByID(context.Background(), adminUser(), 404)

	assert.True(t, IsNotFound(err))
}
