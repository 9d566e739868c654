package statemachine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/terralotes/terralotes-api/internal/models"
)

func TestReservationFSM_ApprovePending(t *testing.T) {
	reservation := &models.Reservation{Status: models.ReservationStatusPending}
	machine := NewReservationFSM(reservation)

	err := machine.Approve(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, models.ReservationStatusCompleted, reservation.Status)
	assert.Equal(t, models.ReservationStatusCompleted, machine.Current())
}

func TestReservationFSM_RejectPending(t *testing.T) {
	reservation := &models.Reservation{Status: models.ReservationStatusPending}
	machine := NewReservationFSM(reservation)

	err := machine.Reject(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, models.ReservationStatusCancelled, reservation.Status)
}

func TestReservationFSM_CancelCompletedSale(t *testing.T) {
	reservation := &models.Reservation{Status: models.ReservationStatusCompleted}
	machine := NewReservationFSM(reservation)

	err := machine.CancelSale(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, models.ReservationStatusCancelled, reservation.Status)
}

func TestReservationFSM_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from string
		fire func(*ReservationFSM) error
	}{
		{"approve completed", models.ReservationStatusCompleted, func(m *ReservationFSM) error { return m.Approve(context.Background()) }},
		{"approve cancelled", models.ReservationStatusCancelled, func(m *ReservationFSM) error { return m.Approve(context.Background()) }},
		{"reject completed", models.ReservationStatusCompleted, func(m *ReservationFSM) error { return m.Reject(context.Background()) }},
		{"reject cancelled", models.ReservationStatusCancelled, func(m *ReservationFSM) error { return m.Reject(context.Background()) }},
		{"cancel sale on pending", models.ReservationStatusPending, func(m *ReservationFSM) error { return m.CancelSale(context.Background()) }},
		{"cancel sale on cancelled", models.ReservationStatusCancelled, func(m *ReservationFSM) error { return m.CancelSale(context.Background()) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reservation := &models.Reservation{Status: tt.from}
			machine := NewReservationFSM(reservation)

			err := tt.fire(machine)

			assert.Error(t, err)
			assert.Equal(t, tt.from, reservation.Status, "failed transition must not move the state")
		})
	}
}

func TestReservationFSM_Can(t *testing.T) {
	pending := NewReservationFSM(&models.Reservation{Status: models.ReservationStatusPending})
	assert.True(t, pending.Can("approve"))
	assert.True(t, pending.Can("reject"))
	assert.False(t, pending.Can("cancel_sale"))

	completed := NewReservationFSM(&models.Reservation{Status: models.ReservationStatusCompleted})
	assert.False(t, completed.Can("approve"))
	assert.True(t, completed.Can("cancel_sale"))

	cancelled := NewReservationFSM(&models.Reservation{Status: models.ReservationStatusCancelled})
	assert.False(t, cancelled.Can("approve"))
	assert.False(t, cancelled.Can("reject"))
	assert.False(t, cancelled.Can("cancel_sale"))
}
