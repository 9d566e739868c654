package services

import (
	"github.com/terralotes/terralotes-api/internal/config"
	"github.com/terralotes/terralotes-api/internal/jobs"
	"github.com/terralotes/terralotes-api/internal/repository"
	"gorm.io/gorm"
)

// Services holds all service instances
type Services struct {
	Auth         *AuthService
	User         *UserService
	Map          *MapService
	Block        *BlockService
	Lot          *LotService
	Reservation  *ReservationService
	Notification *NotificationService
	Report       *ReportService
	Export       *ExportService
	Audit        *AuditService
	Email        *EmailService
	Job          *JobService
}

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, cfg *config.Config, db *gorm.DB) *Services {
	notificationSvc := NewNotificationService(repos.Notification, repos.User)
	emailSvc := NewEmailService(cfg)
	auditSvc := NewAuditService(db)
	imageSvc := NewImageService(cfg.StoragePath + "/uploads")

	return &Services{
		Auth:         NewAuthService(repos.User, repos.RefreshToken, cfg),
		User:         NewUserService(repos.User, worker, emailSvc, notificationSvc, auditSvc),
		Map:          NewMapService(repos.Map, imageSvc, auditSvc),
		Block:        NewBlockService(repos.Block, repos.Map, auditSvc),
		Lot:          NewLotService(repos.Lot, repos.Map, auditSvc),
		Reservation:  NewReservationService(repos.Reservation, repos.Lot, repos.User, notificationSvc, emailSvc, auditSvc, worker),
		Notification: notificationSvc,
		Report:       NewReportService(repos.Lot, repos.Map, repos.Reservation),
		Export:       NewExportService(repos.Lot, repos.Block, repos.Map),
		Audit:        auditSvc,
		Email:        emailSvc,
		Job:          NewJobService(worker),
	}
}
