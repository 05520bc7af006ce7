package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trushine/fieldops-api/internal/service"
	"github.com/trushine/fieldops-api/pkg/response"
)

// InvoiceHandler serves invoice documents for jobs.
type InvoiceHandler struct {
	invoices *service.InvoiceService
	jobs     *service.JobService
}

// NewInvoiceHandler constructs handler.
func NewInvoiceHandler(invoices *service.InvoiceService, jobs *service.JobService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, jobs: jobs}
}

// DownloadPDF godoc
// @Summary Download a job's invoice as PDF
// @Tags Invoices
// @Produce application/pdf
// @Param id path string true "Job ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /jobs/{id}/invoice/pdf [get]
func (h *InvoiceHandler) DownloadPDF(c *gin.Context) {
	job, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	number := service.InvoiceNumber(job)
	pdf, err := h.invoices.RenderPDF(job, number)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", number))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// SignedLink godoc
// @Summary Mint a shareable download link for an archived invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /jobs/{id}/invoice-link [get]
func (h *InvoiceHandler) SignedLink(c *gin.Context) {
	token, expiresAt, err := h.invoices.SignedDownload(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{
		"token":      token,
		"url":        fmt.Sprintf("/invoices/download?token=%s", token),
		"expires_at": expiresAt.UTC(),
	}, nil)
}

// DownloadArchived godoc
// @Summary Download an archived invoice by signed token
// @Tags Invoices
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /invoices/download [get]
func (h *InvoiceHandler) DownloadArchived(c *gin.Context) {
	path, err := h.invoices.ResolveDownload(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Type", "application/pdf")
	c.File(path)
}
