package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/terralotes/terralotes-api/internal/middleware"
	"github.com/terralotes/terralotes-api/internal/models"
	"github.com/terralotes/terralotes-api/internal/repository"
	"github.com/terralotes/terralotes-api/internal/services"
	"github.com/terralotes/terralotes-api/internal/storage"
	"github.com/terralotes/terralotes-api/pkg/logger"
)

type ReservationHandler struct {
	reservationService *services.ReservationService
	userService        *services.UserService
	reportService      *services.ReportService
	storage            *storage.LocalStorage
}

func NewReservationHandler(
	reservationService *services.ReservationService,
	userService *services.UserService,
	reportService *services.ReportService,
	storage *storage.LocalStorage,
) *ReservationHandler {
	return &ReservationHandler{
		reservationService: reservationService,
		userService:        userService,
		reportService:      reportService,
		storage:            storage,
	}
}

// currentUser loads the full authenticated user. Reservation operations
// snapshot seller contact data, so claims alone are not enough.
func (h *ReservationHandler) currentUser(c *gin.Context) (*models.User, bool) {
	user, err := h.userService.FindByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Sesión inválida"})
		return nil, false
	}
	return user, true
}

// @Summary List Reservations
// @Description Get a paginated list of reservations. Sellers see only their own; pending first.
// @Tags Reservations
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search by customer or lot number"
// @Param status query string false "Filter by status"
// @Param map_id query int false "Filter by map"
// @Param lot_id query int false "Filter by lot"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /reservations [get]
func (h *ReservationHandler) Index(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	query := &repository.ReservationQuery{ListQuery: repository.NewListQuery()}
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Search = c.Query("search_term")
	query.Status = c.Query("status")
	if mapID, err := strconv.ParseUint(c.Query("map_id"), 10, 32); err == nil {
		query.MapID = uint(mapID)
	}
	if lotID, err := strconv.ParseUint(c.Query("lot_id"), 10, 32); err == nil {
		query.LotID = uint(lotID)
	}

	reservations, total, err := h.reservationService.List(c.Request.Context(), user, query)
	if err != nil {
		respondError(c, err)
		return
	}

	var responses []models.ReservationResponse
	for _, r := range reservations {
		responses = append(responses, r.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"reservations": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// @Summary Reservation Stats
// @Description Get reservation counts by status
// @Tags Reservations
// @Produce json
// @Success 200 {object} models.ReservationStats
// @Security BearerAuth
// @Router /reservations/stats [get]
func (h *ReservationHandler) GetStats(c *gin.Context) {
	stats, err := h.reservationService.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary Get Reservation
// @Description Get a reservation by ID. Sellers can only see their own.
// @Tags Reservations
// @Produce json
// @Param reservation_id path int true "Reservation ID"
// @Success 200 {object} models.ReservationResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /reservations/{reservation_id} [get]
func (h *ReservationHandler) Show(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	id, _ := strconv.ParseUint(c.Param("reservation_id"), 10, 32)
	reservation, err := h.reservationService.FindByID(c.Request.Context(), user, uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reservation": reservation.ToResponse()})
}

type ReservationLotTerms struct {
	LotID        uint     `json:"lot_id" binding:"required"`
	AgreedPrice  *float64 `json:"agreed_price"`
	FirstPayment *float64 `json:"first_payment"`
	Installments *int     `json:"installments"`
}

type CreateReservationRequest struct {
	LotIDs        []uint                `json:"lot_ids" binding:"required"`
	PaymentMethod string                `json:"payment_method" binding:"required"`
	Message       *string               `json:"message"`
	CustomerName  string                `json:"customer_name" binding:"required"`
	CustomerEmail string                `json:"customer_email"`
	CustomerPhone string                `json:"customer_phone"`
	CustomerTaxID string                `json:"customer_tax_id"`
	Lots          []ReservationLotTerms `json:"lots"`
}

func (r *CreateReservationRequest) terms() services.ReservationTerms {
	terms := services.ReservationTerms{
		PaymentMethod: r.PaymentMethod,
		Message:       r.Message,
		PerLot:        make(map[uint]services.PricingTerms, len(r.Lots)),
	}
	for _, lt := range r.Lots {
		terms.PerLot[lt.LotID] = services.PricingTerms{
			AgreedPrice:   lt.AgreedPrice,
			PaymentMethod: r.PaymentMethod,
			FirstPayment:  lt.FirstPayment,
			Installments:  lt.Installments,
		}
	}
	return terms
}

// @Summary Create Reservation
// @Description Reserve one or more lots atomically for a customer
// @Tags Reservations
// @Accept json
// @Produce json
// @Param request body CreateReservationRequest true "Reservation Data"
// @Success 201 {object} models.ReservationResponse
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Security BearerAuth
// @Router /reservations [post]
func (h *ReservationHandler) Create(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req CreateReservationRequest
	if err := BindNestedOrFlat(c, "reservation", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customer := services.CustomerInfo{
		Name:  req.CustomerName,
		Email: req.CustomerEmail,
		Phone: req.CustomerPhone,
		TaxID: req.CustomerTaxID,
	}

	reservation, err := h.reservationService.Create(c.Request.Context(), user, req.LotIDs, customer, req.terms())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"reservation": reservation.ToResponse()})
}

type EditReservationRequest struct {
	PaymentMethod string                `json:"payment_method"`
	Message       *string               `json:"message"`
	CustomerName  string                `json:"customer_name"`
	CustomerEmail string                `json:"customer_email"`
	CustomerPhone string                `json:"customer_phone"`
	CustomerTaxID string                `json:"customer_tax_id"`
	Lots          []ReservationLotTerms `json:"lots"`
}

// @Summary Edit Reservation
// @Description Update commercial terms of a reservation. The lot set never changes.
// @Tags Reservations
// @Accept json
// @Produce json
// @Param reservation_id path int true "Reservation ID"
// @Param request body EditReservationRequest true "Updated Terms"
// @Success 200 {object} models.ReservationResponse
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /reservations/{reservation_id} [put]
func (h *ReservationHandler) Edit(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	id, _ := strconv.ParseUint(c.Param("reservation_id"), 10, 32)

	var req EditReservationRequest
	if err := BindNestedOrFlat(c, "reservation", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	terms := services.ReservationTerms{
		PaymentMethod: req.PaymentMethod,
		Message:       req.Message,
		PerLot:        make(map[uint]services.PricingTerms, len(req.Lots)),
	}
	for _, lt := range req.Lots {
		terms.PerLot[lt.LotID] = services.PricingTerms{
			AgreedPrice:  lt.AgreedPrice,
			FirstPayment: lt.FirstPayment,
			Installments: lt.Installments,
		}
	}

	var customer *services.CustomerInfo
	if req.CustomerName != "" {
		customer = &services.CustomerInfo{
			Name:  req.CustomerName,
			Email: req.CustomerEmail,
			Phone: req.CustomerPhone,
			TaxID: req.CustomerTaxID,
		}
	}

	reservation, err := h.reservationService.Edit(c.Request.Context(), user, uint(id), customer, terms)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reservation": reservation.ToResponse()})
}

type ApproveReservationRequest struct {
	ContractNumber string `json:"contract_number"`
}

// @Summary Approve Reservation
// @Description Confirm a pending reservation as a sale
// @Tags Reservations
// @Accept json
// @Produce json
// @Param reservation_id path int true "Reservation ID"
// @Param request body ApproveReservationRequest false "Contract Number"
// @Success 200 {object} models.ReservationResponse
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /reservations/{reservation_id}/approve [post]
func (h *ReservationHandler) Approve(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	id, _ := strconv.ParseUint(c.Param("reservation_id"), 10, 32)

	var req ApproveReservationRequest
	c.ShouldBindJSON(&req)

	reservation, err := h.reservationService.Approve(c.Request.Context(), user, uint(id), req.ContractNumber)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reservation": reservation.ToResponse()})
}

type RejectReservationRequest struct {
	Reason string `json:"reason"`
}

// @Summary Reject Reservation
// @Description Reject a pending reservation and release its lots
// @Tags Reservations
// @Accept json
// @Produce json
// @Param reservation_id path int true "Reservation ID"
// @Param request body RejectReservationRequest false "Rejection Reason"
// @Success 200 {object} models.ReservationResponse
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /reservations/{reservation_id}/reject [post]
func (h *ReservationHandler) Reject(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	id, _ := strconv.ParseUint(c.Param("reservation_id"), 10, 32)

	var req RejectReservationRequest
	c.ShouldBindJSON(&req)

	reservation, err := h.reservationService.Reject(c.Request.Context(), user, uint(id), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reservation": reservation.ToResponse()})
}

// @Summary Cancel Sale
// @Description Undo a completed sale and release its lots
// @Tags Reservations
// @Accept json
// @Produce json
// @Param reservation_id path int true "Reservation ID"
// @Param request body RejectReservationRequest false "Cancellation Reason"
// @Success 200 {object} models.ReservationResponse
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /reservations/{reservation_id}/cancel_sale [post]
func (h *ReservationHandler) CancelSale(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	id, _ := strconv.ParseUint(c.Param("reservation_id"), 10, 32)

	var req RejectReservationRequest
	c.ShouldBindJSON(&req)

	reservation, err := h.reservationService.CancelSale(c.Request.Context(), user, uint(id), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reservation": reservation.ToResponse()})
}

// @Summary Reservation Agreement PDF
// @Description Generate the printable reservation agreement
// @Tags Reservations
// @Produce application/pdf
// @Param reservation_id path int true "Reservation ID"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /reservations/{reservation_id}/agreement [get]
func (h *ReservationHandler) Agreement(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	id, _ := strconv.ParseUint(c.Param("reservation_id"), 10, 32)

	// Visibility check runs before generating anything
	reservation, err := h.reservationService.FindByID(c.Request.Context(), user, uint(id))
	if err != nil {
		respondError(c, err)
		return
	}

	buf, err := h.reportService.GenerateReservationAgreementPDF(c.Request.Context(), reservation.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	// Keep a copy on disk; failures here never block the download
	if h.storage != nil {
		filename := fmt.Sprintf("acuerdo_reserva_%d.pdf", reservation.ID)
		if _, err := h.storage.UploadFromBytes(buf.Bytes(), filename, "agreements"); err != nil {
			logger.Error("Failed to archive agreement PDF", "reservation_id", reservation.ID, "error", err)
		}
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=acuerdo_reserva_%d.pdf", reservation.ID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
