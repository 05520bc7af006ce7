package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trushine/fieldops-api/internal/models"
	"github.com/trushine/fieldops-api/internal/service"
	appErrors "github.com/trushine/fieldops-api/pkg/errors"
	"github.com/trushine/fieldops-api/pkg/response"
)

// JobHandler manages job endpoints.
type JobHandler struct {
	service *service.JobService
}

// NewJobHandler constructs handler.
func NewJobHandler(svc *service.JobService) *JobHandler {
	return &JobHandler{service: svc}
}

// Create godoc
// @Summary Create job
// @Description Create a one-time or recurring job; recurring jobs get their occurrence schedule generated
// @Tags Jobs
// @Accept json
// @Produce json
// @Param payload body service.CreateJobRequest true "Job payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /jobs [post]
func (h *JobHandler) Create(c *gin.Context) {
	var req service.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	job, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, job)
}

// CreateSeries godoc
// @Summary Create job series
// @Description Expand a recurring job into one job per occurrence sharing a series id
// @Tags Jobs
// @Accept json
// @Produce json
// @Param payload body service.CreateJobRequest true "Recurring job payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /jobs/series [post]
func (h *JobHandler) CreateSeries(c *gin.Context) {
	var req service.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	jobs, err := h.service.CreateSeries(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, jobs)
}

// List godoc
// @Summary List jobs
// @Tags Jobs
// @Produce json
// @Param status query string false "Filter by status"
// @Param jobType query string false "Filter by job type"
// @Param assignedUser query string false "Filter by assigned user"
// @Param seriesId query string false "Filter by series"
// @Param locationId query string false "Filter by location"
// @Param search query string false "Search customer fields"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /jobs [get]
func (h *JobHandler) List(c *gin.Context) {
	filter := listFilterFromRequest(c)

	jobs, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, pagination)
}

// listFilterFromRequest builds the job filter from query parameters.
// Non-admin callers are always scoped to their own assignments, whatever
// the assignedUser parameter says.
func listFilterFromRequest(c *gin.Context) models.JobFilter {
	var filter models.JobFilter
	if status := c.Query("status"); status != "" {
		s := models.JobStatus(status)
		filter.Status = &s
	}
	if jobType := c.Query("jobType"); jobType != "" {
		jt := models.JobType(jobType)
		filter.JobType = &jt
	}
	filter.AssignedUser = c.Query("assignedUser")
	filter.SeriesID = c.Query("seriesId")
	filter.LocationID = c.Query("locationId")
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	if claims := claimsFromContext(c); claims != nil && !claims.IsAdmin() {
		filter.AssignedUser = claims.UserID
	}
	return filter
}

// Get godoc
// @Summary Get job
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /jobs/{id} [get]
func (h *JobHandler) Get(c *gin.Context) {
	// gin's tree cannot hold both /jobs/mine and /jobs/:id, so the
	// literal segment is dispatched here.
	if c.Param("id") == "mine" {
		h.Mine(c)
		return
	}
	job, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Mine godoc
// @Summary List jobs assigned to the caller
// @Tags Jobs
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /jobs/mine [get]
func (h *JobHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.JobFilter{AssignedUser: claims.UserID}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	jobs, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, pagination)
}

// Update godoc
// @Summary Update job
// @Description Apply a partial update; schedule changes rebuild the occurrence set
// @Tags Jobs
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param payload body service.UpdateJobRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /jobs/{id} [put]
func (h *JobHandler) Update(c *gin.Context) {
	var req service.UpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	job, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// UpdateStatus godoc
// @Summary Update job status
// @Description Transition a job's status; completed is final
// @Tags Jobs
// @Accept json
// @Produce json
// @Param id path string true "Job ID"
// @Param payload body object true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /jobs/{id}/status [patch]
func (h *JobHandler) UpdateStatus(c *gin.Context) {
	var payload struct {
		Status models.JobStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "status required"))
		return
	}

	job, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), payload.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Delete godoc
// @Summary Delete job
// @Description Delete a job along with its occurrences, items, assignments and external bookings
// @Tags Jobs
// @Param id path string true "Job ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /jobs/{id} [delete]
func (h *JobHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Occurrences godoc
// @Summary List job occurrences
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /jobs/{id}/occurrences [get]
func (h *JobHandler) Occurrences(c *gin.Context) {
	occurrences, err := h.service.Occurrences(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occurrences, nil)
}

// Series godoc
// @Summary List series members
// @Tags Jobs
// @Produce json
// @Param id path string true "Series ID"
// @Success 200 {object} response.Envelope
// @Router /series/{id} [get]
func (h *JobHandler) Series(c *gin.Context) {
	jobs, err := h.service.Series(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, nil)
}

// Calendar godoc
// @Summary List scheduled visits in a date range
// @Tags Jobs
// @Produce json
// @Param start query string true "Range start (RFC3339)"
// @Param end query string true "Range end (RFC3339)"
// @Success 200 {object} response.Envelope
// @Router /occurrences [get]
func (h *JobHandler) Calendar(c *gin.Context) {
	from, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "start must be RFC3339"))
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "end must be RFC3339"))
		return
	}

	events, err := h.service.CalendarRange(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// LocationRollups godoc
// @Summary Aggregate job activity per customer address
// @Tags Jobs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /locations/jobs [get]
func (h *JobHandler) LocationRollups(c *gin.Context) {
	rollups, err := h.service.LocationRollups(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rollups, nil)
}

// LocationDetail godoc
// @Summary Job history for a customer address
// @Tags Jobs
// @Produce json
// @Param address query string true "Address fragment"
// @Success 200 {object} response.Envelope
// @Router /locations/jobs/detail [get]
func (h *JobHandler) LocationDetail(c *gin.Context) {
	jobs, err := h.service.JobsAtAddress(c.Request.Context(), c.Query("address"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, jobs, nil)
}
