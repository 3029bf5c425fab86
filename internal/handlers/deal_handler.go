package handlers

import (
	"net/http"
	"strconv"

	"pulsecrm/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DealHandler exposes pipelines and deal CRUD including stage movement.
type DealHandler struct {
	deals  *services.DealService
	logger *logrus.Logger
}

func NewDealHandler(deals *services.DealService, logger *logrus.Logger) *DealHandler {
	return &DealHandler{deals: deals, logger: logger}
}

// CreatePipeline creates a pipeline with ordered stages.
// @Summary Create pipeline
// @Tags deals
// @Accept json
// @Produce json
// @Param pipeline body services.PipelineRequest true "pipeline"
// @Success 201 {object} models.Pipeline
// @Failure 400 {object} ErrorResponse
// @Router /api/pipelines [post]
func (h *DealHandler) CreatePipeline(c *gin.Context) {
	var req services.PipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	pipeline, err := h.deals.CreatePipeline(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to create pipeline",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, pipeline)
}

// ListPipelines lists pipelines with their stages.
// @Summary List pipelines
// @Tags deals
// @Produce json
// @Success 200 {array} models.Pipeline
// @Router /api/pipelines [get]
func (h *DealHandler) ListPipelines(c *gin.Context) {
	pipelines, err := h.deals.ListPipelines(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.logger.Errorf("Failed to list pipelines: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list pipelines",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, pipelines)
}

// CreateDeal creates a deal.
// @Summary Create deal
// @Tags deals
// @Accept json
// @Produce json
// @Param deal body services.DealRequest true "deal"
// @Success 201 {object} models.Deal
// @Failure 400 {object} ErrorResponse
// @Router /api/deals [post]
func (h *DealHandler) CreateDeal(c *gin.Context) {
	var req services.DealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	deal, err := h.deals.Create(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to create deal",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, deal)
}

// GetDeal returns one deal.
// @Summary Get deal
// @Tags deals
// @Produce json
// @Param id path int true "deal ID"
// @Success 200 {object} models.Deal
// @Failure 404 {object} ErrorResponse
// @Router /api/deals/{id} [get]
func (h *DealHandler) GetDeal(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid deal ID",
			Message: "ID must be a valid number",
		})
		return
	}

	deal, err := h.deals.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Deal not found",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, deal)
}

// ListDeals lists the caller's deals.
// @Summary List deals
// @Tags deals
// @Produce json
// @Param page query int false "page" default(1)
// @Param page_size query int false "page size" default(50)
// @Success 200 {object} PaginatedResponse
// @Router /api/deals [get]
func (h *DealHandler) ListDeals(c *gin.Context) {
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 50)

	deals, total, err := h.deals.List(c.Request.Context(), currentUserID(c), page, pageSize)
	if err != nil {
		h.logger.Errorf("Failed to list deals: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list deals",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:     deals,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// UpdateDeal updates a deal.
// @Summary Update deal
// @Tags deals
// @Accept json
// @Produce json
// @Param id path int true "deal ID"
// @Param deal body services.DealRequest true "deal"
// @Success 200 {object} models.Deal
// @Failure 400 {object} ErrorResponse
// @Router /api/deals/{id} [put]
func (h *DealHandler) UpdateDeal(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid deal ID",
			Message: "ID must be a valid number",
		})
		return
	}

	var req services.DealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	deal, err := h.deals.Update(c.Request.Context(), currentUserID(c), id, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to update deal",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, deal)
}

// DeleteDeal removes a deal.
// @Summary Delete deal
// @Tags deals
// @Produce json
// @Param id path int true "deal ID"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/deals/{id} [delete]
func (h *DealHandler) DeleteDeal(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid deal ID",
			Message: "ID must be a valid number",
		})
		return
	}

	if err := h.deals.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to delete deal",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Deal deleted"})
}

// MoveDealStage moves a deal to another stage.
// @Summary Move deal to stage
// @Tags deals
// @Accept json
// @Produce json
// @Param id path int true "deal ID"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/deals/{id}/stage [patch]
func (h *DealHandler) MoveDealStage(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid deal ID",
			Message: "ID must be a valid number",
		})
		return
	}

	var req struct {
		StageID uint `json:"stage_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	if err := h.deals.MoveToStage(c.Request.Context(), currentUserID(c), id, req.StageID); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to move deal",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Deal moved to stage " + strconv.FormatUint(uint64(req.StageID), 10),
	})
}

// RegisterDealRoutes mounts the pipeline and deal APIs on the given group.
func RegisterDealRoutes(rg *gin.RouterGroup, h *DealHandler) {
	pipelines := rg.Group("/pipelines")
	{
		pipelines.POST("", h.CreatePipeline)
		pipelines.GET("", h.ListPipelines)
	}
	deals := rg.Group("/deals")
	{
		deals.POST("", h.CreateDeal)
		deals.GET("", h.ListDeals)
		deals.GET("/:id", h.GetDeal)
		deals.PUT("/:id", h.UpdateDeal)
		deals.DELETE("/:id", h.DeleteDeal)
		deals.PATCH("/:id/stage", h.MoveDealStage)
	}
}
