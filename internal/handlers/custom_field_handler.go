package handlers

import (
	"net/http"

	"pulsecrm/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CustomFieldHandler manages custom field definitions.
type CustomFieldHandler struct {
	fields *services.CustomFieldService
	logger *logrus.Logger
}

func NewCustomFieldHandler(fields *services.CustomFieldService, logger *logrus.Logger) *CustomFieldHandler {
	return &CustomFieldHandler{fields: fields, logger: logger}
}

// CreateCustomField defines a new custom field.
// @Summary Create custom field
// @Tags custom-fields
// @Accept json
// @Produce json
// @Param field body services.CustomFieldCreateRequest true "field definition"
// @Success 201 {object} models.CustomField
// @Failure 400 {object} ErrorResponse
// @Router /api/custom-fields [post]
func (h *CustomFieldHandler) CreateCustomField(c *gin.Context) {
	var req services.CustomFieldCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	field, err := h.fields.Create(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to create custom field",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, field)
}

// ListCustomFields lists field definitions for a resource.
// @Summary List custom fields
// @Tags custom-fields
// @Produce json
// @Param resource query string false "contact or deal" default(contact)
// @Param active query bool false "only active definitions"
// @Success 200 {array} models.CustomField
// @Router /api/custom-fields [get]
func (h *CustomFieldHandler) ListCustomFields(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	fields, err := h.fields.List(c.Request.Context(), currentUserID(c), c.Query("resource"), activeOnly)
	if err != nil {
		h.logger.Errorf("Failed to list custom fields: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list custom fields",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, fields)
}

// UpdateCustomField updates a field definition.
// @Summary Update custom field
// @Tags custom-fields
// @Accept json
// @Produce json
// @Param id path int true "field ID"
// @Param field body services.CustomFieldUpdateRequest true "changes"
// @Success 200 {object} models.CustomField
// @Failure 400 {object} ErrorResponse
// @Router /api/custom-fields/{id} [put]
func (h *CustomFieldHandler) UpdateCustomField(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid field ID",
			Message: "ID must be a valid number",
		})
		return
	}

	var req services.CustomFieldUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	field, err := h.fields.Update(c.Request.Context(), currentUserID(c), id, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to update custom field",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, field)
}

// DeleteCustomField removes a field definition.
// @Summary Delete custom field
// @Tags custom-fields
// @Produce json
// @Param id path int true "field ID"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/custom-fields/{id} [delete]
func (h *CustomFieldHandler) DeleteCustomField(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid field ID",
			Message: "ID must be a valid number",
		})
		return
	}

	if err := h.fields.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to delete custom field",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Custom field deleted"})
}

// RegisterCustomFieldRoutes mounts the custom field API on the given group.
func RegisterCustomFieldRoutes(rg *gin.RouterGroup, h *CustomFieldHandler) {
	fields := rg.Group("/custom-fields")
	{
		fields.POST("", h.CreateCustomField)
		fields.GET("", h.ListCustomFields)
		fields.PUT("/:id", h.UpdateCustomField)
		fields.DELETE("/:id", h.DeleteCustomField)
	}
}
