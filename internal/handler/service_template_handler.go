package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trushine/fieldops-api/internal/service"
	appErrors "github.com/trushine/fieldops-api/pkg/errors"
	"github.com/trushine/fieldops-api/pkg/response"
)

// ServiceTemplateHandler manages the service catalog endpoints.
type ServiceTemplateHandler struct {
	service *service.ServiceTemplateService
}

// NewServiceTemplateHandler constructs handler.
func NewServiceTemplateHandler(svc *service.ServiceTemplateService) *ServiceTemplateHandler {
	return &ServiceTemplateHandler{service: svc}
}

// List godoc
// @Summary List service templates
// @Tags ServiceTemplates
// @Produce json
// @Param active query bool false "Only active templates"
// @Success 200 {object} response.Envelope
// @Router /service-templates [get]
func (h *ServiceTemplateHandler) List(c *gin.Context) {
	activeOnly := c.DefaultQuery("active", "false") == "true"
	templates, err := h.service.List(c.Request.Context(), activeOnly)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates, nil)
}

// Get godoc
// @Summary Get service template
// @Tags ServiceTemplates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /service-templates/{id} [get]
func (h *ServiceTemplateHandler) Get(c *gin.Context) {
	tmpl, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tmpl, nil)
}

// Create godoc
// @Summary Create service template
// @Tags ServiceTemplates
// @Accept json
// @Produce json
// @Param payload body service.CreateServiceTemplateRequest true "Template payload"
// @Success 201 {object} response.Envelope
// @Router /service-templates [post]
func (h *ServiceTemplateHandler) Create(c *gin.Context) {
	var req service.CreateServiceTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil && req.CreatedBy == nil {
		req.CreatedBy = &claims.UserID
	}

	tmpl, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tmpl)
}

// Update godoc
// @Summary Update service template
// @Tags ServiceTemplates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param payload body service.UpdateServiceTemplateRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Router /service-templates/{id} [put]
func (h *ServiceTemplateHandler) Update(c *gin.Context) {
	var req service.UpdateServiceTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	tmpl, err := h.service.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tmpl, nil)
}

// Delete godoc
// @Summary Deactivate service template
// @Tags ServiceTemplates
// @Param id path string true "Template ID"
// @Success 204 {object} response.Envelope
// @Router /service-templates/{id} [delete]
func (h *ServiceTemplateHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
