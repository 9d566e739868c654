package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v2"
	"github.com/terralotes/terralotes-api/internal/config"
	"github.com/terralotes/terralotes-api/internal/models"
	"github.com/terralotes/terralotes-api/pkg/logger"
)

//go:embed templates/email/*.html
var emailTemplates embed.FS

type EmailService struct {
	config       *config.Config
	resendClient *resend.Client
}

func NewEmailService(cfg *config.Config) *EmailService {
	client := resend.NewClient(cfg.ResendAPIKey)
	return &EmailService{
		config:       cfg,
		resendClient: client,
	}
}

// disabled reports whether outbound mail should be skipped entirely. A
// service built without an API key still works; delivery is just logged.
func (s *EmailService) disabled() bool {
	return s == nil || s.config == nil || s.config.ResendAPIKey == ""
}

func (s *EmailService) SendAccountCreated(ctx context.Context, user *models.User) error {
	if s.disabled() {
		logger.Info(fmt.Sprintf("📧 [Email Skipped] To: %s | Subject: Bienvenido", user.Email))
		return nil
	}
	data := struct {
		Name   string
		AppURL string
	}{
		Name:   user.FullName,
		AppURL: s.config.AppURL,
	}

	body, err := s.renderTemplate("account_created.html", data)
	if err != nil {
		return err
	}

	return s.send(user.Email, "¡Bienvenido a Terralotes!", body)
}

// reservationEmailData is the shared payload for reservation lifecycle emails
type reservationEmailData struct {
	Name          string
	CustomerName  string
	ReservationID uint
	LotNumbers    []string
	Total         string
	PaymentMethod string
	Reason        string
	AppURL        string
}

func (s *EmailService) reservationData(reservation *models.Reservation, reason string) reservationEmailData {
	var numbers []string
	var total float64
	for _, rl := range reservation.Lots {
		numbers = append(numbers, rl.Lot.Number)
		total += rl.AgreedPrice
	}

	return reservationEmailData{
		Name:          reservation.SellerName,
		CustomerName:  reservation.CustomerName,
		ReservationID: reservation.ID,
		LotNumbers:    numbers,
		Total:         fmt.Sprintf("L%.2f", total),
		PaymentMethod: reservation.PaymentMethod,
		Reason:        reason,
		AppURL:        s.config.AppURL,
	}
}

func (s *EmailService) SendReservationCreated(ctx context.Context, reservation *models.Reservation) error {
	if s.disabled() {
		logger.Info(fmt.Sprintf("📧 [Email Skipped] To: %s | Subject: Reserva Registrada", reservation.SellerEmail))
		return nil
	}
	body, err := s.renderTemplate("reservation_created.html", s.reservationData(reservation, ""))
	if err != nil {
		return err
	}
	return s.send(reservation.SellerEmail, "Reserva Registrada", body)
}

func (s *EmailService) SendReservationApproved(ctx context.Context, reservation *models.Reservation) error {
	if s.disabled() {
		logger.Info(fmt.Sprintf("📧 [Email Skipped] To: %s | Subject: Venta Confirmada", reservation.SellerEmail))
		return nil
	}
	body, err := s.renderTemplate("reservation_approved.html", s.reservationData(reservation, ""))
	if err != nil {
		return err
	}
	return s.send(reservation.SellerEmail, "Venta Confirmada", body)
}

func (s *EmailService) SendReservationRejected(ctx context.Context, reservation *models.Reservation, reason string) error {
	if s.disabled() {
		logger.Info(fmt.Sprintf("📧 [Email Skipped] To: %s | Subject: Reserva Rechazada", reservation.SellerEmail))
		return nil
	}
	body, err := s.renderTemplate("reservation_rejected.html", s.reservationData(reservation, reason))
	if err != nil {
		return err
	}
	return s.send(reservation.SellerEmail, "Reserva Rechazada", body)
}

func (s *EmailService) SendSaleCancelled(ctx context.Context, reservation *models.Reservation, reason string) error {
	if s.disabled() {
		logger.Info(fmt.Sprintf("📧 [Email Skipped] To: %s | Subject: Venta Anulada", reservation.SellerEmail))
		return nil
	}
	body, err := s.renderTemplate("sale_cancelled.html", s.reservationData(reservation, reason))
	if err != nil {
		return err
	}
	return s.send(reservation.SellerEmail, "Venta Anulada", body)
}

func (s *EmailService) send(to, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    s.config.FromEmail,
		To:      []string{to},
		Subject: subject,
		Html:    body,
	}
	_, err := s.resendClient.Emails.Send(params)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to send email to %s: %v", to, err))
		return err
	}

	logger.Info(fmt.Sprintf("📧 [Email Sent] To: %s | Subject: %s", to, subject))
	return nil
}

func (s *EmailService) renderTemplate(name string, data interface{}) (string, error) {
	tmpl, err := template.ParseFS(emailTemplates, "templates/email/"+name)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}
