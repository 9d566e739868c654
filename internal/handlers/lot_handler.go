package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/terralotes/terralotes-api/internal/models"
	"github.com/terralotes/terralotes-api/internal/repository"
	"github.com/terralotes/terralotes-api/internal/services"
)

type LotHandler struct {
	lotService    *services.LotService
	exportService *services.ExportService
	reportService *services.ReportService
}

func NewLotHandler(lotService *services.LotService, exportService *services.ExportService, reportService *services.ReportService) *LotHandler {
	return &LotHandler{
		lotService:    lotService,
		exportService: exportService,
		reportService: reportService,
	}
}

// @Summary List Lots
// @Description Get a paginated list of lots for a map
// @Tags Lots
// @Produce json
// @Param map_id path int true "Map ID"
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search by lot number"
// @Param status query string false "Filter by status"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /maps/{map_id}/lots [get]
func (h *LotHandler) Index(c *gin.Context) {
	mapID, _ := strconv.ParseUint(c.Param("map_id"), 10, 32)

	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Search = c.Query("search_term")
	query.Filters["status"] = c.Query("status")
	query.Filters["block_id"] = c.Query("block_id")

	lots, total, err := h.lotService.List(c.Request.Context(), uint(mapID), query)
	if err != nil {
		respondError(c, err)
		return
	}

	var responses []models.LotResponse
	for _, lot := range lots {
		responses = append(responses, lot.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"lots": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// @Summary Get Lot
// @Description Get a lot by ID
// @Tags Lots
// @Produce json
// @Param map_id path int true "Map ID"
// @Param lot_id path int true "Lot ID"
// @Success 200 {object} models.LotResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /maps/{map_id}/lots/{lot_id} [get]
func (h *LotHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("lot_id"), 10, 32)
	lot, err := h.lotService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lot": lot.ToResponse()})
}

type LotRequest struct {
	Number      string  `json:"number"`
	BlockID     *uint   `json:"block_id"`
	SizeM2      float64 `json:"size_m2"`
	Price       float64 `json:"price"`
	Description *string `json:"description"`
	Features    *string `json:"features"`
	Area        *string `json:"area"`
}

// @Summary Create Lot
// @Description Create a lot inside a map
// @Tags Lots
// @Accept json
// @Produce json
// @Param map_id path int true "Map ID"
// @Param request body LotRequest true "Lot Data"
// @Success 201 {object} models.LotResponse
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /maps/{map_id}/lots [post]
func (h *LotHandler) Create(c *gin.Context) {
	mapID, _ := strconv.ParseUint(c.Param("map_id"), 10, 32)

	var req LotRequest
	if err := BindNestedOrFlat(c, "lot", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lot := &models.Lot{
		MapID:       uint(mapID),
		BlockID:     req.BlockID,
		Number:      req.Number,
		SizeM2:      req.SizeM2,
		Price:       req.Price,
		Description: req.Description,
		Features:    req.Features,
		Area:        req.Area,
	}

	if err := h.lotService.Create(c.Request.Context(), actorFromClaims(c), lot); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"lot": lot.ToResponse()})
}

// @Summary Update Lot
// @Description Update a lot's commercial fields. Number, status and map are immutable here.
// @Tags Lots
// @Accept json
// @Produce json
// @Param map_id path int true "Map ID"
// @Param lot_id path int true "Lot ID"
// @Param request body LotRequest true "Lot Data"
// @Success 200 {object} models.LotResponse
// @Security BearerAuth
// @Router /maps/{map_id}/lots/{lot_id} [put]
func (h *LotHandler) Update(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("lot_id"), 10, 32)

	var req LotRequest
	if err := BindNestedOrFlat(c, "lot", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lot := &models.Lot{
		ID:          uint(id),
		BlockID:     req.BlockID,
		SizeM2:      req.SizeM2,
		Price:       req.Price,
		Description: req.Description,
		Features:    req.Features,
		Area:        req.Area,
	}

	if err := h.lotService.Update(c.Request.Context(), actorFromClaims(c), lot); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"lot": lot.ToResponse()})
}

type RenameLotRequest struct {
	Number string `json:"number" binding:"required"`
}

// @Summary Rename Lot
// @Description Change a lot's number, keeping it unique within the map
// @Tags Lots
// @Accept json
// @Produce json
// @Param map_id path int true "Map ID"
// @Param lot_id path int true "Lot ID"
// @Param request body RenameLotRequest true "New Number"
// @Success 200 {object} models.LotResponse
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /maps/{map_id}/lots/{lot_id}/rename [patch]
func (h *LotHandler) Rename(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("lot_id"), 10, 32)

	var req RenameLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El nuevo número es requerido"})
		return
	}

	lot, err := h.lotService.Rename(c.Request.Context(), actorFromClaims(c), uint(id), req.Number)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"lot": lot.ToResponse()})
}

type SetBlockedRequest struct {
	Blocked *bool `json:"blocked" binding:"required"`
}

// @Summary Block or Unblock Lot
// @Description Manually take an available lot off the market, or put a blocked one back
// @Tags Lots
// @Accept json
// @Produce json
// @Param map_id path int true "Map ID"
// @Param lot_id path int true "Lot ID"
// @Param request body SetBlockedRequest true "Blocked Flag"
// @Success 200 {object} models.LotResponse
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /maps/{map_id}/lots/{lot_id}/set_blocked [patch]
func (h *LotHandler) SetBlocked(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("lot_id"), 10, 32)

	var req SetBlockedRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Blocked == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El campo blocked es requerido"})
		return
	}

	lot, err := h.lotService.SetBlocked(c.Request.Context(), actorFromClaims(c), uint(id), *req.Blocked)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"lot": lot.ToResponse()})
}

// @Summary Delete Lot
// @Description Delete a lot with no active reservation
// @Tags Lots
// @Produce json
// @Param map_id path int true "Map ID"
// @Param lot_id path int true "Lot ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /maps/{map_id}/lots/{lot_id} [delete]
func (h *LotHandler) Delete(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("lot_id"), 10, 32)
	if err := h.lotService.Delete(c.Request.Context(), actorFromClaims(c), uint(id)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Lote eliminado exitosamente"})
}

// @Summary Lot Stats
// @Description Get lot counts by status for a map
// @Tags Lots
// @Produce json
// @Param map_id path int true "Map ID"
// @Success 200 {object} models.LotStats
// @Security BearerAuth
// @Router /maps/{map_id}/lots/stats [get]
func (h *LotHandler) GetStats(c *gin.Context) {
	mapID, _ := strconv.ParseUint(c.Param("map_id"), 10, 32)
	stats, err := h.lotService.GetStats(c.Request.Context(), uint(mapID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary Export Lots
// @Description Download the lot inventory of a map as XLSX or CSV
// @Tags Lots
// @Produce application/octet-stream
// @Param map_id path int true "Map ID"
// @Param format query string false "Export format: xlsx or csv" default(xlsx)
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /maps/{map_id}/lots/export [get]
func (h *LotHandler) Export(c *gin.Context) {
	mapID, _ := strconv.ParseUint(c.Param("map_id"), 10, 32)

	var data []byte
	var filename string
	var err error
	var contentType string

	switch c.DefaultQuery("format", "xlsx") {
	case "csv":
		data, filename, err = h.exportService.ExportLotsCSV(c.Request.Context(), uint(mapID))
		contentType = "text/csv"
	default:
		data, filename, err = h.exportService.ExportLotsXLSX(c.Request.Context(), uint(mapID))
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, contentType, data)
}

// @Summary Import Lots
// @Description Bulk create lots for a map from an XLSX file
// @Tags Lots
// @Accept multipart/form-data
// @Produce json
// @Param map_id path int true "Map ID"
// @Param file formData file true "XLSX file"
// @Success 200 {object} services.ImportResult
// @Security BearerAuth
// @Router /maps/{map_id}/lots/import [post]
func (h *LotHandler) Import(c *gin.Context) {
	mapID, _ := strconv.ParseUint(c.Param("map_id"), 10, 32)

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El archivo es requerido"})
		return
	}
	defer file.Close()

	result, err := h.exportService.ImportLotsXLSX(c.Request.Context(), uint(mapID), file)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// @Summary Inventory PDF
// @Description Download the lot inventory of a map as a PDF table
// @Tags Lots
// @Produce application/pdf
// @Param map_id path int true "Map ID"
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /maps/{map_id}/lots/inventory_pdf [get]
func (h *LotHandler) InventoryPDF(c *gin.Context) {
	mapID, _ := strconv.ParseUint(c.Param("map_id"), 10, 32)

	buf, err := h.reportService.GenerateInventoryPDF(c.Request.Context(), uint(mapID))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=inventario.pdf")
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
