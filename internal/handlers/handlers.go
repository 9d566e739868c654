package handlers

import (
	"github.com/terralotes/terralotes-api/internal/services"
	"github.com/terralotes/terralotes-api/internal/storage"
)

// Handlers holds all handler instances
type Handlers struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	User         *UserHandler
	Map          *MapHandler
	Block        *BlockHandler
	Lot          *LotHandler
	Reservation  *ReservationHandler
	Notification *NotificationHandler
	Audit        *AuditHandler
	Job          *JobHandler
}

// NewHandlers creates all handler instances
func NewHandlers(svcs *services.Services, storage *storage.LocalStorage) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(),
		Auth:         NewAuthHandler(svcs.Auth),
		User:         NewUserHandler(svcs.User),
		Map:          NewMapHandler(svcs.Map),
		Block:        NewBlockHandler(svcs.Block),
		Lot:          NewLotHandler(svcs.Lot, svcs.Export, svcs.Report),
		Reservation:  NewReservationHandler(svcs.Reservation, svcs.User, svcs.Report, storage),
		Notification: NewNotificationHandler(svcs.Notification),
		Audit:        NewAuditHandler(svcs.Audit),
		Job:          NewJobHandler(svcs.Job),
	}
}
