package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/terralotes/terralotes-api/internal/models"
)

// ReservationFSM wraps a reservation with its state machine
type ReservationFSM struct {
	reservation *models.Reservation
	fsm         *fsm.FSM
}

// NewReservationFSM creates a new reservation state machine
func NewReservationFSM(reservation *models.Reservation) *ReservationFSM {
	rfsm := &ReservationFSM{
		reservation: reservation,
	}

	rfsm.fsm = fsm.NewFSM(
		reservation.Status,
		fsm.Events{
			// pending → completed (sale confirmed)
			{Name: "approve", Src: []string{models.ReservationStatusPending}, Dst: models.ReservationStatusCompleted},

			// pending → cancelled
			{Name: "reject", Src: []string{models.ReservationStatusPending}, Dst: models.ReservationStatusCancelled},

			// completed → cancelled (sale undone)
			{Name: "cancel_sale", Src: []string{models.ReservationStatusCompleted}, Dst: models.ReservationStatusCancelled},
		},
		fsm.Callbacks{},
	)

	return rfsm
}

// Approve transitions reservation to completed state
func (r *ReservationFSM) Approve(ctx context.Context) error {
	if !r.reservation.MayApprove() {
		return fmt.Errorf("reservation cannot be approved in current state: %s", r.reservation.Status)
	}

	if err := r.fsm.Event(ctx, "approve"); err != nil {
		return fmt.Errorf("failed to approve reservation: %w", err)
	}

	r.reservation.Status = r.fsm.Current()
	return nil
}

// Reject transitions reservation to cancelled state
func (r *ReservationFSM) Reject(ctx context.Context) error {
	if !r.reservation.MayReject() {
		return fmt.Errorf("reservation cannot be rejected in current state: %s", r.reservation.Status)
	}

	if err := r.fsm.Event(ctx, "reject"); err != nil {
		return fmt.Errorf("failed to reject reservation: %w", err)
	}

	r.reservation.Status = r.fsm.Current()
	return nil
}

// CancelSale transitions a completed reservation back to cancelled
func (r *ReservationFSM) CancelSale(ctx context.Context) error {
	if !r.reservation.MayCancelSale() {
		return fmt.Errorf("sale cannot be cancelled in current state: %s", r.reservation.Status)
	}

	if err := r.fsm.Event(ctx, "cancel_sale"); err != nil {
		return fmt.Errorf("failed to cancel sale: %w", err)
	}

	r.reservation.Status = r.fsm.Current()
	return nil
}

// Current returns the current state
func (r *ReservationFSM) Current() string {
	return r.fsm.Current()
}

// Can checks if a transition is possible
func (r *ReservationFSM) Can(event string) bool {
	return r.fsm.Can(event)
}
