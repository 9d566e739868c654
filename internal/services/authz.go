package services

import (
	"github.com/terralotes/terralotes-api/internal/models"
)

// Operation names used by the capability table
const (
	OpCreateReservation  = "create_reservation"
	OpEditReservation    = "edit_reservation"
	OpApproveReservation = "approve_reservation"
	OpRejectReservation  = "reject_reservation"
	OpCancelSale         = "cancel_sale"
	OpReadReservation    = "read_reservation"
	OpManageInventory    = "manage_inventory"
)

// capabilities maps role to the operations that role may perform. Ownership
// and lifecycle-state restrictions on top of this table are enforced by
// CanOnReservation.
var capabilities = map[string]map[string]bool{
	models.RoleAdmin: {
		OpCreateReservation:  true,
		OpEditReservation:    true,
		OpApproveReservation: true,
		OpRejectReservation:  true,
		OpCancelSale:         true,
		OpReadReservation:    true,
		OpManageInventory:    true,
	},
	models.RoleDev: {
		OpCreateReservation:  true,
		OpEditReservation:    true,
		OpApproveReservation: true,
		OpRejectReservation:  true,
		OpCancelSale:         true,
		OpReadReservation:    true,
		OpManageInventory:    true,
	},
	models.RoleSeller: {
		OpCreateReservation: true,
		OpEditReservation:   true,
		OpReadReservation:   true,
	},
}

// Can reports whether the role holds the capability for an operation,
// before any ownership check
func Can(role, operation string) bool {
	ops, ok := capabilities[role]
	if !ok {
		return false
	}
	return ops[operation]
}

// CanOnReservation checks the capability table plus the ownership and
// lifecycle rules for a specific reservation. Sellers only act on their own
// reservations, and may edit them only while pending. A nil error means
// the operation is allowed.
//
// For resources the caller has no visibility into, the denial is a
// NotFoundError rather than a PermissionError, so existence is not leaked.
func CanOnReservation(user *models.User, operation string, reservation *models.Reservation) error {
	if !Can(user.Role, operation) {
		return &PermissionError{Operation: operation}
	}
	if user.HasAdminAccess() {
		return nil
	}

	// Seller path: invisible resources read as missing
	if reservation.SellerID != user.ID {
		return &NotFoundError{Resource: "reserva"}
	}

	if operation == OpEditReservation && reservation.Status != models.ReservationStatusPending {
		return &StateError{
			Message:      "solo se pueden editar reservas pendientes",
			CurrentState: reservation.Status,
		}
	}

	return nil
}
