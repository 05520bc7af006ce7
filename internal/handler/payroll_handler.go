package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trushine/fieldops-api/internal/service"
	appErrors "github.com/trushine/fieldops-api/pkg/errors"
	"github.com/trushine/fieldops-api/pkg/response"
)

// PayrollHandler exposes payout queries.
type PayrollHandler struct {
	service *service.PayrollService
}

// NewPayrollHandler constructs handler.
func NewPayrollHandler(svc *service.PayrollService) *PayrollHandler {
	return &PayrollHandler{service: svc}
}

// Payouts godoc
// @Summary List payouts for an employee in a date range
// @Tags Payroll
// @Produce json
// @Param employeeId query string true "Employee ID"
// @Param from query string true "Range start (RFC3339)"
// @Param to query string true "Range end (RFC3339)"
// @Success 200 {object} response.Envelope
// @Router /payroll/payouts [get]
func (h *PayrollHandler) Payouts(c *gin.Context) {
	employeeID := c.Query("employeeId")
	if employeeID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "employeeId is required"))
		return
	}
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be RFC3339"))
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be RFC3339"))
		return
	}

	payouts, err := h.service.EmployeePayouts(c.Request.Context(), employeeID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payouts, nil)
}

// Rates godoc
// @Summary List the project collaboration rate matrix
// @Tags Payroll
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payroll/rates [get]
func (h *PayrollHandler) Rates(c *gin.Context) {
	rates, err := h.service.CollaborationRates(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rates, nil)
}
