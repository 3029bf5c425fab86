package handlers

import (
	"net/http"

	"pulsecrm/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ContactHandler exposes contact CRUD plus tag management.
type ContactHandler struct {
	contacts *services.ContactService
	logger   *logrus.Logger
}

func NewContactHandler(contacts *services.ContactService, logger *logrus.Logger) *ContactHandler {
	return &ContactHandler{contacts: contacts, logger: logger}
}

// CreateContact creates a contact.
// @Summary Create contact
// @Tags contacts
// @Accept json
// @Produce json
// @Param contact body services.ContactRequest true "contact"
// @Success 201 {object} models.Contact
// @Failure 400 {object} ErrorResponse
// @Router /api/contacts [post]
func (h *ContactHandler) CreateContact(c *gin.Context) {
	var req services.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	contact, err := h.contacts.Create(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to create contact",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, contact)
}

// GetContact returns one contact.
// @Summary Get contact
// @Tags contacts
// @Produce json
// @Param id path int true "contact ID"
// @Success 200 {object} models.Contact
// @Failure 404 {object} ErrorResponse
// @Router /api/contacts/{id} [get]
func (h *ContactHandler) GetContact(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid contact ID",
			Message: "ID must be a valid number",
		})
		return
	}

	contact, err := h.contacts.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "Contact not found",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, contact)
}

// ListContacts lists the caller's contacts.
// @Summary List contacts
// @Tags contacts
// @Produce json
// @Param page query int false "page" default(1)
// @Param page_size query int false "page size" default(50)
// @Success 200 {object} PaginatedResponse
// @Router /api/contacts [get]
func (h *ContactHandler) ListContacts(c *gin.Context) {
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 50)

	contacts, total, err := h.contacts.List(c.Request.Context(), currentUserID(c), page, pageSize)
	if err != nil {
		h.logger.Errorf("Failed to list contacts: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to list contacts",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{
		Data:     contacts,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// UpdateContact updates a contact.
// @Summary Update contact
// @Tags contacts
// @Accept json
// @Produce json
// @Param id path int true "contact ID"
// @Param contact body services.ContactRequest true "contact"
// @Success 200 {object} models.Contact
// @Failure 400 {object} ErrorResponse
// @Router /api/contacts/{id} [put]
func (h *ContactHandler) UpdateContact(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid contact ID",
			Message: "ID must be a valid number",
		})
		return
	}

	var req services.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	contact, err := h.contacts.Update(c.Request.Context(), currentUserID(c), id, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to update contact",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, contact)
}

// DeleteContact removes a contact.
// @Summary Delete contact
// @Tags contacts
// @Produce json
// @Param id path int true "contact ID"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/contacts/{id} [delete]
func (h *ContactHandler) DeleteContact(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid contact ID",
			Message: "ID must be a valid number",
		})
		return
	}

	if err := h.contacts.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to delete contact",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Contact deleted"})
}

// AddTag adds one tag to a contact.
// @Summary Add contact tag
// @Tags contacts
// @Accept json
// @Produce json
// @Param id path int true "contact ID"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/contacts/{id}/tags [post]
func (h *ContactHandler) AddTag(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid contact ID",
			Message: "ID must be a valid number",
		})
		return
	}

	var req struct {
		Tag string `json:"tag" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request body",
			Message: err.Error(),
		})
		return
	}

	if err := h.contacts.AddTag(c.Request.Context(), currentUserID(c), id, req.Tag); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to add tag",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Tag added"})
}

// RemoveTag removes one tag from a contact.
// @Summary Remove contact tag
// @Tags contacts
// @Produce json
// @Param id path int true "contact ID"
// @Param tag path string true "tag"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/contacts/{id}/tags/{tag} [delete]
func (h *ContactHandler) RemoveTag(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid contact ID",
			Message: "ID must be a valid number",
		})
		return
	}

	if err := h.contacts.RemoveTag(c.Request.Context(), currentUserID(c), id, c.Param("tag")); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Failed to remove tag",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Tag removed"})
}

// RegisterContactRoutes mounts the contact API on the given group.
func RegisterContactRoutes(rg *gin.RouterGroup, h *ContactHandler) {
	contacts := rg.Group("/contacts")
	{
		contacts.POST("", h.CreateContact)
		contacts.GET("", h.ListContacts)
		contacts.GET("/:id", h.GetContact)
		contacts.PUT("/:id", h.UpdateContact)
		contacts.DELETE("/:id", h.DeleteContact)
		contacts.POST("/:id/tags", h.AddTag)
		contacts.DELETE("/:id/tags/:tag", h.RemoveTag)
	}
}
