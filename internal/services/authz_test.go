package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/terralotes/terralotes-api/internal/models"
)

func TestCan(t *testing.T) {
	tests := []struct {
		role      string
		operation string
		want      bool
	}{
		{models.RoleAdmin, OpApproveReservation, true},
		{models.RoleAdmin, OpManageInventory, true},
		{models.RoleDev, OpApproveReservation, true},
		{models.RoleDev, OpCancelSale, true},
		{models.RoleSeller, OpCreateReservation, true},
		{models.RoleSeller, OpEditReservation, true},
		{models.RoleSeller, OpApproveReservation, false},
		{models.RoleSeller, OpRejectReservation, false},
		{models.RoleSeller, OpCancelSale, false},
		{models.RoleSeller, OpManageInventory, false},
		{"ghost", OpReadReservation, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Can(tt.role, tt.operation), "%s/%s", tt.role, tt.operation)
	}
}

func TestCanOnReservation_SellerApproveDenied(t *testing.T) {
	seller := &models.User{ID: 5, Role: models.RoleSeller}
	reservation := &models.Reservation{ID: 1, SellerID: 5, Status: models.ReservationStatusPending}

	err := CanOnReservation(seller, OpApproveReservation, reservation)
	assert.True(t, IsPermission(err))
}

func TestCanOnReservation_ForeignReservationReadsAsMissing(t *testing.T) {
	seller := &models.User{ID: 5, Role: models.RoleSeller}
	foreign := &models.Reservation{ID: 1, SellerID: 9, Status: models.ReservationStatusPending}

	err := CanOnReservation(seller, OpReadReservation, foreign)
	assert.True(t, IsNotFound(err), "denial must not leak existence")
	assert.False(t, IsPermission(err))
}

func TestCanOnReservation_SellerEditsOwnPendingOnly(t *testing.T) {
	seller := &models.User{ID: 5, Role: models.RoleSeller}

	pending := &models.Reservation{ID: 1, SellerID: 5, Status: models.ReservationStatusPending}
	assert.NoError(t, CanOnReservation(seller, OpEditReservation, pending))

	completed := &models.Reservation{ID: 2, SellerID: 5, Status: models.ReservationStatusCompleted}
	err := CanOnReservation(seller, OpEditReservation, completed)
	assert.True(t, IsState(err))
}

func TestCanOnReservation_AdminBypassesOwnership(t *testing.T) {
	admin := &models.User{ID: 1, Role: models.RoleAdmin}
	dev := &models.User{ID: 2, Role: models.RoleDev}
	foreign := &models.Reservation{ID: 1, SellerID: 9, Status: models.ReservationStatusCompleted}

	assert.NoError(t, CanOnReservation(admin, OpEditReservation, foreign))
	assert.NoError(t, CanOnReservation(dev, OpCancelSale, foreign))
}
