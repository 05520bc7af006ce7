package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trushine/fieldops-api/internal/service"
	"github.com/trushine/fieldops-api/pkg/response"
)

// SlotHandler answers slot reservation queries.
type SlotHandler struct {
	service *service.SlotService
}

// NewSlotHandler constructs handler.
func NewSlotHandler(svc *service.SlotService) *SlotHandler {
	return &SlotHandler{service: svc}
}

// Info godoc
// @Summary Slot reservation state for a job
// @Description Derive the job's slot window and report whether an external appointment already covers it
// @Tags Slots
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /jobs/{id}/slot-info [get]
func (h *SlotHandler) Info(c *gin.Context) {
	info, err := h.service.Info(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info, nil)
}
