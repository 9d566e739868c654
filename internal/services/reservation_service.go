package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/terralotes/terralotes-api/internal/jobs"
	"github.com/terralotes/terralotes-api/internal/models"
	"github.com/terralotes/terralotes-api/internal/repository"
	"github.com/terralotes/terralotes-api/internal/statemachine"
)

// ReservationTerms carries the commercial inputs for a reservation. Terms
// apply per lot; PerLot overrides the negotiated price for specific lots.
type ReservationTerms struct {
	PaymentMethod string
	Message       *string
	PerLot        map[uint]PricingTerms
}

// ReservationService coordinates the reservation lifecycle: atomic multi-lot
// holds against the inventory, status transitions via the state machine, and
// the notifications and audit trail around them.
type ReservationService struct {
	repo            repository.ReservationRepository
	lotRepo         repository.LotRepository
	userRepo        repository.UserRepository
	notificationSvc *NotificationService
	emailSvc        *EmailService
	auditSvc        *AuditService
	worker          *jobs.Worker
}

func NewReservationService(
	repo repository.ReservationRepository,
	lotRepo repository.LotRepository,
	userRepo repository.UserRepository,
	notificationSvc *NotificationService,
	emailSvc *EmailService,
	auditSvc *AuditService,
	worker *jobs.Worker,
) *ReservationService {
	return &ReservationService{
		repo:            repo,
		lotRepo:         lotRepo,
		userRepo:        userRepo,
		notificationSvc: notificationSvc,
		emailSvc:        emailSvc,
		auditSvc:        auditSvc,
		worker:          worker,
	}
}

// FindByID gets a reservation visible to the caller. Sellers only see their
// own reservations; anything else reads as missing.
func (s *ReservationService) FindByID(ctx context.Context, caller *models.User, id uint) (*models.Reservation, error) {
	reservation, err := s.repo.FindByIDWithDetails(ctx, id)
	if err != nil {
		return nil, s.translateLookup(err)
	}
	if err := CanOnReservation(caller, OpReadReservation, reservation); err != nil {
		return nil, err
	}
	return reservation, nil
}

func (s *ReservationService) List(ctx context.Context, caller *models.User, query *repository.ReservationQuery) ([]models.Reservation, int64, error) {
	query.IsAdmin = caller.HasAdminAccess()
	if !query.IsAdmin {
		query.SellerID = caller.ID
	}
	return s.repo.List(ctx, query)
}

func (s *ReservationService) GetStats(ctx context.Context) (*models.ReservationStats, error) {
	return s.repo.GetStats(ctx)
}

// Create places an atomic hold over the given lots and persists the
// reservation as pending, bound to the calling seller. On lot contention the
// whole batch fails with a ConflictError naming the unavailable lots; no
// partial holds survive.
func (s *ReservationService) Create(ctx context.Context, caller *models.User, lotIDs []uint, customer CustomerInfo, terms ReservationTerms) (*models.Reservation, error) {
	if !Can(caller.Role, OpCreateReservation) {
		return nil, &PermissionError{Operation: OpCreateReservation}
	}
	if len(lotIDs) == 0 {
		return nil, NewValidationError("lot_ids", "debe seleccionar al menos un lote")
	}
	if seen := duplicated(lotIDs); seen != 0 {
		return nil, NewValidationError("lot_ids", fmt.Sprintf("lote %d repetido en la solicitud", seen))
	}
	if strings.TrimSpace(customer.Name) == "" {
		return nil, NewValidationError("customer_name", "el nombre del cliente es requerido")
	}
	if !models.IsValidPaymentMethod(terms.PaymentMethod) {
		return nil, NewValidationError("payment_method", "método de pago inválido")
	}
	for _, lt := range terms.PerLot {
		lt.PaymentMethod = terms.PaymentMethod
		if err := ValidatePricingTerms(lt); err != nil {
			return nil, err
		}
	}

	// Load lots up front for the pricing snapshot. Availability is *not*
	// decided here; the transactional reserve below is the only arbiter.
	lots, err := s.lotRepo.FindByIDs(ctx, lotIDs)
	if err != nil {
		return nil, err
	}
	if len(lots) != len(lotIDs) {
		return nil, &NotFoundError{Resource: "lote"}
	}

	reservation := &models.Reservation{
		GUID:          uuid.New().String(),
		SellerID:      caller.ID,
		Status:        models.ReservationStatusPending,
		PaymentMethod: terms.PaymentMethod,
		Message:       terms.Message,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		CustomerPhone: customer.Phone,
		CustomerTaxID: customer.TaxID,
		SellerName:    caller.FullName,
		SellerEmail:   caller.Email,
		SellerPhone:   caller.Phone,
		SellerTaxID:   caller.TaxID,
	}

	for i := range lots {
		lot := &lots[i]
		lt := terms.PerLot[lot.ID]
		lt.PaymentMethod = terms.PaymentMethod
		snapshot := ComputePricing(lot, lt)
		reservation.Lots = append(reservation.Lots, models.ReservationLot{
			LotID:        lot.ID,
			AgreedPrice:  snapshot.AgreedPrice,
			FirstPayment: snapshot.FirstPayment,
			Installments: snapshot.Installments,
		})
	}

	if err := s.repo.CreateWithLots(ctx, reservation); err != nil {
		return nil, s.translateReserve(err)
	}

	// Notify admins asynchronously
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.notificationSvc.NotifyAdmins(ctx,
			"Nueva reserva",
			fmt.Sprintf("%s registró una reserva de %d lote(s) para %s", caller.FullName, len(lotIDs), customer.Name),
			models.NotificationTypeReservationCreated)
	})
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.emailSvc.SendReservationCreated(ctx, reservation)
	})

	s.auditSvc.Log(ctx, caller.ID, "CREATE", "Reservation", reservation.ID,
		fmt.Sprintf("Reserva creada para %s con %d lote(s)", customer.Name, len(lotIDs)), "", "")

	return reservation, nil
}

// Approve confirms a pending reservation as a sale, moving all its lots from
// reserved to sold in one unit.
func (s *ReservationService) Approve(ctx context.Context, caller *models.User, id uint, contractNumber string) (*models.Reservation, error) {
	reservation, err := s.lookupFor(ctx, caller, OpApproveReservation, id)
	if err != nil {
		return nil, err
	}

	fsm := statemachine.NewReservationFSM(reservation)
	if err := fsm.Approve(ctx); err != nil {
		return nil, &StateError{Message: "la reserva no puede ser aprobada", CurrentState: fsm.Current()}
	}

	now := time.Now()
	reservation.ApprovedAt = &now
	if contractNumber != "" {
		reservation.ContractNumber = &contractNumber
	}

	if err := s.repo.UpdateStatusWithLots(ctx, reservation, models.LotStatusReserved, models.LotStatusSold); err != nil {
		return nil, s.translateTransition(err, reservation)
	}

	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.notificationSvc.NotifyUser(ctx, reservation.SellerID,
			"Venta confirmada",
			fmt.Sprintf("La reserva #%d fue aprobada", reservation.ID),
			models.NotificationTypeReservationApproved)
	})
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.emailSvc.SendReservationApproved(ctx, reservation)
	})

	s.auditSvc.Log(ctx, caller.ID, "APPROVE", "Reservation", reservation.ID,
		fmt.Sprintf("Reserva aprobada. Cliente: %s", reservation.CustomerName), "", "")

	return reservation, nil
}

// Reject cancels a pending reservation and releases its lots back to
// available. Rejecting an already-cancelled reservation is a StateError and
// touches no lot.
func (s *ReservationService) Reject(ctx context.Context, caller *models.User, id uint, reason string) (*models.Reservation, error) {
	reservation, err := s.lookupFor(ctx, caller, OpRejectReservation, id)
	if err != nil {
		return nil, err
	}

	fsm := statemachine.NewReservationFSM(reservation)
	if err := fsm.Reject(ctx); err != nil {
		return nil, &StateError{Message: "la reserva no puede ser rechazada", CurrentState: fsm.Current()}
	}

	now := time.Now()
	reservation.CancelledAt = &now
	if reason != "" {
		reservation.Message = &reason
	}

	if err := s.repo.UpdateStatusWithLots(ctx, reservation, models.LotStatusReserved, models.LotStatusAvailable); err != nil {
		return nil, s.translateTransition(err, reservation)
	}

	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.notificationSvc.NotifyUser(ctx, reservation.SellerID,
			"Reserva rechazada",
			fmt.Sprintf("La reserva #%d fue rechazada: %s", reservation.ID, reason),
			models.NotificationTypeReservationRejected)
	})
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.emailSvc.SendReservationRejected(ctx, reservation, reason)
	})

	s.auditSvc.Log(ctx, caller.ID, "REJECT", "Reservation", reservation.ID,
		fmt.Sprintf("Reserva rechazada. Razón: %s", reason), "", "")

	return reservation, nil
}

// CancelSale undoes a completed sale, releasing the sold lots back to
// available as one unit.
func (s *ReservationService) CancelSale(ctx context.Context, caller *models.User, id uint, reason string) (*models.Reservation, error) {
	reservation, err := s.lookupFor(ctx, caller, OpCancelSale, id)
	if err != nil {
		return nil, err
	}

	fsm := statemachine.NewReservationFSM(reservation)
	if err := fsm.CancelSale(ctx); err != nil {
		return nil, &StateError{Message: "la venta no puede ser anulada", CurrentState: fsm.Current()}
	}

	now := time.Now()
	reservation.CancelledAt = &now
	if reason != "" {
		reservation.Message = &reason
	}

	if err := s.repo.UpdateStatusWithLots(ctx, reservation, models.LotStatusSold, models.LotStatusAvailable); err != nil {
		return nil, s.translateTransition(err, reservation)
	}

	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.notificationSvc.NotifyUser(ctx, reservation.SellerID,
			"Venta anulada",
			fmt.Sprintf("La venta de la reserva #%d fue anulada", reservation.ID),
			models.NotificationTypeSaleCancelled)
	})
	s.worker.EnqueueAsync(func(ctx context.Context) error {
		return s.emailSvc.SendSaleCancelled(ctx, reservation, reason)
	})

	s.auditSvc.Log(ctx, caller.ID, "CANCEL_SALE", "Reservation", reservation.ID,
		fmt.Sprintf("Venta anulada. Razón: %s", reason), "", "")

	return reservation, nil
}

// Edit re-negotiates the commercial terms of a reservation. The lot set is
// immutable; only prices, payment method, message and customer contact move.
// Sellers may edit their own pending reservations; admins edit regardless of
// status.
func (s *ReservationService) Edit(ctx context.Context, caller *models.User, id uint, customer *CustomerInfo, terms ReservationTerms) (*models.Reservation, error) {
	reservation, err := s.repo.FindByIDWithDetails(ctx, id)
	if err != nil {
		return nil, s.translateLookup(err)
	}
	if err := CanOnReservation(caller, OpEditReservation, reservation); err != nil {
		return nil, err
	}

	if terms.PaymentMethod != "" {
		if !models.IsValidPaymentMethod(terms.PaymentMethod) {
			return nil, NewValidationError("payment_method", "método de pago inválido")
		}
		reservation.PaymentMethod = terms.PaymentMethod
	}
	if terms.Message != nil {
		reservation.Message = terms.Message
	}
	if customer != nil {
		if strings.TrimSpace(customer.Name) == "" {
			return nil, NewValidationError("customer_name", "el nombre del cliente es requerido")
		}
		reservation.CustomerName = customer.Name
		reservation.CustomerEmail = customer.Email
		reservation.CustomerPhone = customer.Phone
		reservation.CustomerTaxID = customer.TaxID
	}

	// Recompute the monetary snapshot per line under the new terms
	for i := range reservation.Lots {
		line := &reservation.Lots[i]
		lt := terms.PerLot[line.LotID]
		lt.PaymentMethod = reservation.PaymentMethod
		if err := ValidatePricingTerms(lt); err != nil {
			return nil, err
		}
		if lt.AgreedPrice == nil {
			price := line.AgreedPrice
			lt.AgreedPrice = &price
		}
		// Lines the edit does not touch keep their recorded terms
		if lt.FirstPayment == nil {
			lt.FirstPayment = line.FirstPayment
		}
		if lt.Installments == nil {
			lt.Installments = line.Installments
		}
		snapshot := ComputePricing(&line.Lot, lt)
		line.AgreedPrice = snapshot.AgreedPrice
		line.FirstPayment = snapshot.FirstPayment
		line.Installments = snapshot.Installments
	}

	if err := s.repo.Update(ctx, reservation); err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, caller.ID, "EDIT", "Reservation", reservation.ID,
		"Términos de la reserva actualizados", "", "")

	return reservation, nil
}

// ReleaseStaleReservations rejects pending reservations older than the
// configured TTL, freeing their lots. Run periodically by the worker.
func (s *ReservationService) ReleaseStaleReservations(ctx context.Context, olderThanHours int) error {
	stale, err := s.repo.FindStalePending(ctx, olderThanHours)
	if err != nil {
		return err
	}

	system := &models.User{ID: 0, Role: models.RoleAdmin, FullName: "Sistema"}
	for i := range stale {
		reservation := &stale[i]
		if _, err := s.Reject(ctx, system, reservation.ID, "Reserva expirada por falta de confirmación"); err != nil {
			continue
		}
		s.worker.EnqueueAsync(func(ctx context.Context) error {
			return s.notificationSvc.NotifyUser(ctx, reservation.SellerID,
				"Reserva expirada",
				fmt.Sprintf("La reserva #%d expiró y sus lotes fueron liberados", reservation.ID),
				models.NotificationTypeReservationExpired)
		})
	}

	return nil
}

// CustomerInfo is the customer contact block captured at reservation time
type CustomerInfo struct {
	Name  string
	Email string
	Phone string
	TaxID string
}

// lookupFor loads a reservation with details and runs the capability check
// for the given operation
func (s *ReservationService) lookupFor(ctx context.Context, caller *models.User, operation string, id uint) (*models.Reservation, error) {
	reservation, err := s.repo.FindByIDWithDetails(ctx, id)
	if err != nil {
		return nil, s.translateLookup(err)
	}
	if err := CanOnReservation(caller, operation, reservation); err != nil {
		return nil, err
	}
	return reservation, nil
}

func (s *ReservationService) translateLookup(err error) error {
	if repository.IsNotFound(err) {
		return &NotFoundError{Resource: "reserva"}
	}
	return err
}

// translateReserve maps storage-level reservation failures to the business
// error taxonomy
func (s *ReservationService) translateReserve(err error) error {
	var conflict *repository.LotConflictError
	if errors.As(err, &conflict) {
		return &ConflictError{Message: "lotes no disponibles", LotIDs: conflict.LotIDs}
	}
	if errors.Is(err, repository.ErrStaleTransition) {
		return &ConflictError{Message: "los lotes fueron tomados por otra reserva"}
	}
	if repository.IsNotFound(err) {
		return &NotFoundError{Resource: "lote"}
	}
	return err
}

func (s *ReservationService) translateTransition(err error, reservation *models.Reservation) error {
	if errors.Is(err, repository.ErrStaleTransition) {
		return &StateError{
			Message:      "los lotes de la reserva cambiaron de estado",
			CurrentState: reservation.Status,
		}
	}
	return err
}

func duplicated(ids []uint) uint {
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return id
		}
		seen[id] = true
	}
	return 0
}
