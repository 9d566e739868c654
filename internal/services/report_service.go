package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/jung-kurt/gofpdf"
	"github.com/terralotes/terralotes-api/internal/models"
	"github.com/terralotes/terralotes-api/internal/repository"
)

// ReportService renders printable documents: the lot inventory sheet and the
// reservation agreement handed to the customer.
type ReportService struct {
	lotRepo         repository.LotRepository
	mapRepo         repository.MapRepository
	reservationRepo repository.ReservationRepository
}

func NewReportService(
	lotRepo repository.LotRepository,
	mapRepo repository.MapRepository,
	reservationRepo repository.ReservationRepository,
) *ReportService {
	return &ReportService{
		lotRepo:         lotRepo,
		mapRepo:         mapRepo,
		reservationRepo: reservationRepo,
	}
}

var statusLabels = map[string]string{
	models.LotStatusAvailable: "Disponible",
	models.LotStatusReserved:  "Reservado",
	models.LotStatusSold:      "Vendido",
	models.LotStatusBlocked:   "Bloqueado",
}

// GenerateInventoryPDF renders the map's lot inventory as a printable table
func (s *ReportService) GenerateInventoryPDF(ctx context.Context, mapID uint) (*bytes.Buffer, error) {
	m, err := s.mapRepo.FindByID(ctx, mapID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, &NotFoundError{Resource: "mapa"}
		}
		return nil, err
	}

	lots, err := s.lotRepo.FindByMap(ctx, mapID)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Inventario de Lotes")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(40, 8, fmt.Sprintf("Mapa: %s", m.Name))
	pdf.Ln(6)
	pdf.Cell(40, 8, fmt.Sprintf("Generado: %s", time.Now().Format("02/01/2006 15:04")))
	pdf.Ln(12)

	// Table header
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(224, 224, 224)
	pdf.CellFormat(25, 8, "Numero", "1", 0, "L", true, 0, "")
	pdf.CellFormat(35, 8, "Bloque", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Estado", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Tamano (m2)", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 8, "Precio", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 8, "Precio/m2", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, lot := range lots {
		blockName := ""
		if lot.Block != nil {
			blockName = lot.Block.Name
		}
		status := lot.Status
		if label, ok := statusLabels[status]; ok {
			status = label
		}
		pdf.CellFormat(25, 7, lot.Number, "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 7, blockName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, status, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%.2f", lot.SizeM2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, fmt.Sprintf("L%.2f", lot.Price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, fmt.Sprintf("L%.2f", lot.PricePerM2()), "1", 1, "R", false, 0, "")
	}

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// GenerateReservationAgreementPDF renders the reservation agreement document
// from its HTML template
func (s *ReportService) GenerateReservationAgreementPDF(ctx context.Context, reservationID uint) (*bytes.Buffer, error) {
	reservation, err := s.reservationRepo.FindByIDWithDetails(ctx, reservationID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, &NotFoundError{Resource: "reserva"}
		}
		return nil, err
	}

	months := []string{"", "Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio", "Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre"}
	formatDate := func(t time.Time) string {
		return fmt.Sprintf("%d de %s del %d", t.Day(), months[t.Month()], t.Year())
	}

	type LotLine struct {
		Number       string
		SizeM2       string
		AgreedPrice  string
		FirstPayment string
		Installments string
	}

	var lines []LotLine
	total := 0.0
	for _, rl := range reservation.Lots {
		total += rl.AgreedPrice
		line := LotLine{
			Number:      rl.Lot.Number,
			SizeM2:      fmt.Sprintf("%.2f", rl.Lot.SizeM2),
			AgreedPrice: fmt.Sprintf("L%.2f", rl.AgreedPrice),
		}
		if rl.FirstPayment != nil {
			line.FirstPayment = fmt.Sprintf("L%.2f", *rl.FirstPayment)
		}
		if rl.Installments != nil {
			line.Installments = fmt.Sprintf("%d cuotas", *rl.Installments)
		}
		lines = append(lines, line)
	}

	contractNumber := "____________"
	if reservation.ContractNumber != nil {
		contractNumber = *reservation.ContractNumber
	}

	paymentMethods := map[string]string{
		models.PaymentMethodCash:      "Efectivo",
		models.PaymentMethodTransfer:  "Transferencia",
		models.PaymentMethodCheck:     "Cheque",
		models.PaymentMethodFinancing: "Financiamiento",
	}
	method := reservation.PaymentMethod
	if label, ok := paymentMethods[method]; ok {
		method = label
	}

	data := map[string]interface{}{
		"ReservationID":  reservation.ID,
		"ContractNumber": contractNumber,
		"CustomerName":   reservation.CustomerName,
		"CustomerTaxID":  reservation.CustomerTaxID,
		"CustomerPhone":  reservation.CustomerPhone,
		"SellerName":     reservation.SellerName,
		"SellerTaxID":    reservation.SellerTaxID,
		"PaymentMethod":  method,
		"Lots":           lines,
		"Total":          fmt.Sprintf("L%.2f", total),
		"ReservedAt":     formatDate(reservation.CreatedAt),
		"Date":           formatDate(time.Now()),
	}

	return s.generatePDF("reservation_agreement.html", data)
}

// generatePDF renders an HTML template through wkhtmltopdf
func (s *ReportService) generatePDF(templateName string, data interface{}) (*bytes.Buffer, error) {
	// Path relative to project root, with a package-relative fallback for tests
	tmplPath := fmt.Sprintf("internal/services/templates/reports/%s", templateName)
	if _, err := os.Stat(tmplPath); os.IsNotExist(err) {
		tmplPath = fmt.Sprintf("templates/reports/%s", templateName)
	}

	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s (path: %s): %w", templateName, tmplPath, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create pdf generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.Grayscale.Set(false)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader(buf.Bytes()))
	page.EnableLocalFileAccess.Set(true)
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create pdf: %w", err)
	}

	return pdfg.Buffer(), nil
}
