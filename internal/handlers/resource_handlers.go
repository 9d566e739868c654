package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/terralotes/terralotes-api/internal/middleware"
	"github.com/terralotes/terralotes-api/internal/models"
	"github.com/terralotes/terralotes-api/internal/repository"
	"github.com/terralotes/terralotes-api/internal/services"
	"github.com/terralotes/terralotes-api/internal/storage"
)

// actorFromClaims builds the acting user from the JWT claims. Enough for
// capability checks and audit attribution without a database round trip.
func actorFromClaims(c *gin.Context) *models.User {
	return &models.User{
		ID:   middleware.GetUserID(c),
		Role: middleware.GetUserRole(c),
	}
}

type MapHandler struct {
	mapService *services.MapService
}

func NewMapHandler(mapService *services.MapService) *MapHandler {
	return &MapHandler{mapService: mapService}
}

// @Summary List Maps
// @Description Get a paginated list of maps with lot availability counts
// @Tags Maps
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param search_term query string false "Search term"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /maps [get]
func (h *MapHandler) Index(c *gin.Context) {
	query := repository.NewListQuery()
	query.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	query.PerPage, _ = strconv.Atoi(c.DefaultQuery("per_page", "20"))
	query.Search = c.Query("search_term")

	maps, total, err := h.mapService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	var responses []models.MapResponse
	for _, m := range maps {
		responses = append(responses, m.ToResponse())
	}

	c.JSON(http.StatusOK, gin.H{
		"maps": responses,
		"pagination": gin.H{
			"page":        query.Page,
			"per_page":    query.PerPage,
			"total":       total,
			"total_pages": (total + int64(query.PerPage) - 1) / int64(query.PerPage),
		},
	})
}

// @Summary Get Map
// @Description Get a map with its blocks and lots
// @Tags Maps
// @Produce json
// @Param map_id path int true "Map ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /maps/{map_id} [get]
func (h *MapHandler) Show(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("map_id"), 10, 32)
	m, err := h.mapService.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"map": m})
}

type MapRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// @Summary Create Map
// @Description Create a new map
// @Tags Maps
// @Accept json
// @Produce json
// @Param request body MapRequest true "Map Data"
// @Success 201 {object} map[string]interface{}
// @Security BearerAuth
// @Router /maps [post]
func (h *MapHandler) Create(c *gin.Context) {
	var req MapRequest
	if err := BindNestedOrFlat(c, "map", &req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El nombre del mapa es requerido"})
		return
	}

	m := &models.PropertyMap{Name: req.Name, Description: req.Description}
	if err := h.mapService.Create(c.Request.Context(), actorFromClaims(c), m); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"map": m.ToResponse()})
}

// @Summary Update Map
// @Description Update map name and description
// @Tags Maps
// @Accept json
// @Produce json
// @Param map_id path int true "Map ID"
// @Param request body MapRequest true "Map Data"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /maps/{map_id} [put]
func (h *MapHandler) Update(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("map_id"), 10, 32)

	var req MapRequest
	if err := BindNestedOrFlat(c, "map", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m := &models.PropertyMap{ID: uint(id), Name: req.Name, Description: req.Description}
	if err := h.mapService.Update(c.Request.Context(), actorFromClaims(c), m); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"map": m.ToResponse()})
}

// @Summary Upload Map Image
// @Description Attach the rendered drawing to a map
// @Tags Maps
// @Accept multipart/form-data
// @Produce json
// @Param map_id path int true "Map ID"
// @Param image formData file true "Map image (JPG or PNG)"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /maps/{map_id}/image [post]
func (h *MapHandler) UploadImage(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("map_id"), 10, 32)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "La imagen es requerida"})
		return
	}
	defer file.Close()

	if !storage.IsValidContentType(header.Header.Get("Content-Type")) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Tipo de archivo no permitido"})
		return
	}
	if header.Size > storage.MaxFileSize() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "El archivo excede el tamaño máximo de 10MB"})
		return
	}

	m, err := h.mapService.AttachImage(c.Request.Context(), actorFromClaims(c), uint(id), file, header)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"map": m.ToResponse()})
}

// @Summary Delete Map
// @Description Delete a map without active reservations
// @Tags Maps
// @Produce json
// @Param map_id path int true "Map ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /maps/{map_id} [delete]
func (h *MapHandler) Delete(c *gin.Context) {
	id, _ := strconv.ParseUint(c.Param("map_id"), 10, 32)
	if err := h.mapService.Delete(c.Request.Context(), actorFromClaims(c), uint(id)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Mapa eliminado exitosamente"})
}

type BlockHandler struct {
	blockService *services.BlockService
}

func NewBlockHandler(blockService *services.BlockService) *BlockHandler {
	return &BlockHandler{blockService: blockService}
}

// @Summary List Blocks
// @Description Get the blocks of a map
// @Tags Blocks
// @Produce json
// @Param map_id path int true "Map ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /maps/{map_id}/blocks [get]
func (h *BlockHandler) Index(c *gin.Context) {
	mapID, _ := strconv.ParseUint(c.Param("map_id"), 10, 32)
	blocks, err := h.blockService.FindByMap(c.Request.Context(), uint(mapID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocks": blocks})
}

type BlockRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// @Summary Create Block
// @Description Create a block inside a map
// @Tags Blocks
// @Accept json
// @Produce json
// @Param map_id path int true "Map ID"
// @Param request body BlockRequest true "Block Data"
// @Success 201 {object} map[string]interface{}
// @Security BearerAuth
// @Router /maps/{map_id}/blocks [post]
func (h *BlockHandler) Create(c *gin.Context) {
	mapID, _ := strconv.ParseUint(c.Param("map_id"), 10, 32)

	var req BlockRequest
	if err := BindNestedOrFlat(c, "block", &req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "El nombre del bloque es requerido"})
		return
	}

	block := &models.Block{MapID: uint(mapID), Name: req.Name, Description: req.Description}
	if err := h.blockService.Create(c.Request.Context(), actorFromClaims(c), block); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"block": block})
}

// @Summary Update Block
// @Description Update block name and description
// @Tags Blocks
// @Accept json
// @Produce json
// @Param map_id path int true "Map ID"
// @Param block_id path int true "Block ID"
// @Param request body BlockRequest true "Block Data"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /maps/{map_id}/blocks/{block_id} [put]
func (h *BlockHandler) Update(c *gin.Context) {
	blockID, _ := strconv.ParseUint(c.Param("block_id"), 10, 32)

	var req BlockRequest
	if err := BindNestedOrFlat(c, "block", &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	block := &models.Block{ID: uint(blockID), Name: req.Name, Description: req.Description}
	if err := h.blockService.Update(c.Request.Context(), actorFromClaims(c), block); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"block": block})
}

// @Summary Delete Block
// @Description Delete a block without lots holding active reservations
// @Tags Blocks
// @Produce json
// @Param map_id path int true "Map ID"
// @Param block_id path int true "Block ID"
// @Success 200 {object} map[string]string
// @Security BearerAuth
// @Router /maps/{map_id}/blocks/{block_id} [delete]
func (h *BlockHandler) Delete(c *gin.Context) {
	blockID, _ := strconv.ParseUint(c.Param("block_id"), 10, 32)
	if err := h.blockService.Delete(c.Request.Context(), actorFromClaims(c), uint(blockID)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bloque eliminado exitosamente"})
}
