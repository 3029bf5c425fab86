package handlers

import (
	"net/http"
	"strings"

	"pulsecrm/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AutomationHandler exposes the automation definition and monitoring API.
type AutomationHandler struct {
	automations *services.AutomationService
	logger      *logrus.Logger
}

func NewAutomationHandler(automations *services.AutomationService, logger *logrus.Logger) *AutomationHandler {
	return &AutomationHandler{automations: automations, logger: logger}
}

// CreateAutomation creates an automation definition.
// @Summary Create automation
// @Tags automations
// @Accept json
// @Produce json
// @Param automation body services.AutomationRequest true "automation definition"
// @Success 201 {object} models.Automation
// @Failure 400 {object} ErrorResponse
// @Router /api/automations [post]
func (h *AutomationHandler) CreateAutomation(c *gin.Context) {
	var req services.AutomationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	automation, err := h.automations.Create(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to create automation",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, automation)
}

// ListAutomations lists the caller's automations.
// @Summary List automations
// @Tags automations
// @Produce json
// @Success 200 {array} models.Automation
// @Router /api/automations [get]
func (h *AutomationHandler) ListAutomations(c *gin.Context) {
	automations, err := h.automations.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.logger.Errorf("Failed to list automations: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list automations",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, automations)
}

// GetAutomation returns a single automation.
// @Summary Get automation
// @Tags automations
// @Produce json
// @Param id path int true "automation ID"
// @Success 200 {object} models.Automation
// @Failure 404 {object} ErrorResponse
// @Router /api/automations/{id} [get]
func (h *AutomationHandler) GetAutomation(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid automation ID",
			Message: "ID must be a valid number",
		})
		return
	}

	automation, err := h.automations.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Automation not found",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, automation)
}

// UpdateAutomation replaces an automation definition.
// @Summary Update automation
// @Tags automations
// @Accept json
// @Produce json
// @Param id path int true "automation ID"
// @Param automation body services.AutomationRequest true "automation definition"
// @Success 200 {object} models.Automation
// @Failure 400 {object} ErrorResponse
// @Router /api/automations/{id} [put]
func (h *AutomationHandler) UpdateAutomation(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid automation ID",
			Message: "ID must be a valid number",
		})
		return
	}

	var req services.AutomationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	automation, err := h.automations.Update(c.Request.Context(), currentUserID(c), id, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to update automation",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, automation)
}

// SetAutomationActive toggles an automation on or off.
// @Summary Activate or deactivate automation
// @Tags automations
// @Accept json
// @Produce json
// @Param id path int true "automation ID"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/automations/{id}/active [patch]
func (h *AutomationHandler) SetAutomationActive(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid automation ID",
			Message: "ID must be a valid number",
		})
		return
	}

	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	automation, err := h.automations.SetActive(c.Request.Context(), currentUserID(c), id, *req.Active)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to update automation state",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, automation)
}

// DeleteAutomation removes an automation definition.
// @Summary Delete automation
// @Tags automations
// @Produce json
// @Param id path int true "automation ID"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/automations/{id} [delete]
func (h *AutomationHandler) DeleteAutomation(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid automation ID",
			Message: "ID must be a valid number",
		})
		return
	}

	if err := h.automations.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		status := http.StatusBadRequest
		if strings.Contains(err.Error(), "enrollment") {
			status = http.StatusConflict
		}
		c.JSON(status, ErrorResponse{
			Error:   "Failed to delete automation",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Automation deleted"})
}

// ListEnrollments lists enrollments of one automation.
// @Summary List automation enrollments
// @Tags automations
// @Produce json
// @Param id path int true "automation ID"
// @Param status query string false "filter by status"
// @Success 200 {object} PaginatedResponse
// @Router /api/automations/{id}/enrollments [get]
func (h *AutomationHandler) ListEnrollments(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid automation ID",
			Message: "ID must be a valid number",
		})
		return
	}

	req := services.EnrollmentListRequest{
		AutomationID: id,
		Status:       c.Query("status"),
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "page_size", 50),
	}

	enrollments, total, err := h.automations.ListEnrollments(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to list enrollments",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:     enrollments,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
}

// ListLogs lists execution logs, optionally scoped to one automation.
// @Summary List automation execution logs
// @Tags automations
// @Produce json
// @Param automation_id query int false "filter by automation"
// @Param status query string false "filter by status"
// @Success 200 {object} PaginatedResponse
// @Router /api/automation-logs [get]
func (h *AutomationHandler) ListLogs(c *gin.Context) {
	req := services.LogListRequest{
		AutomationID: uint(queryInt(c, "automation_id", 0)),
		Status:       c.Query("status"),
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "page_size", 50),
	}

	logs, total, err := h.automations.ListLogs(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list logs",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:     logs,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
}

// ListAvailableFields lists the fields usable in conditions and actions.
// @Summary List available automation fields
// @Tags automations
// @Produce json
// @Param resource query string false "contact or deal" default(contact)
// @Success 200 {array} services.FieldDescriptor
// @Router /api/automations/fields [get]
func (h *AutomationHandler) ListAvailableFields(c *gin.Context) {
	resource := c.DefaultQuery("resource", services.EntityContact)

	fields, err := h.automations.AvailableFields(c.Request.Context(), currentUserID(c), resource)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to list fields",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, fields)
}

// RegisterAutomationRoutes mounts the automation API on the given group.
func RegisterAutomationRoutes(rg *gin.RouterGroup, h *AutomationHandler) {
	automations := rg.Group("/automations")
	{
		automations.POST("", h.CreateAutomation)
		automations.GET("", h.ListAutomations)
		automations.GET("/fields", h.ListAvailableFields)
		automations.GET("/:id", h.GetAutomation)
		automations.PUT("/:id", h.UpdateAutomation)
		automations.PATCH("/:id/active", h.SetAutomationActive)
		automations.DELETE("/:id", h.DeleteAutomation)
		automations.GET("/:id/enrollments", h.ListEnrollments)
	}
	rg.GET("/automation-logs", h.ListLogs)
}
