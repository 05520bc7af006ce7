package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/trushine/fieldops-api/internal/models"
	"github.com/trushine/fieldops-api/internal/schedule"
	appErrors "github.com/trushine/fieldops-api/pkg/errors"
)

type jobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, job *models.Job) error
	BeginTx(ctx context.Context) (*sqlx.Tx, error)
	FindByID(ctx context.Context, id string) (*models.Job, error)
	List(ctx context.Context, filter models.JobFilter) ([]models.Job, int, error)
	ListBySeries(ctx context.Context, seriesID string) ([]models.Job, error)
	Update(ctx context.Context, job *models.Job) error
	UpdateStatus(ctx context.Context, id string, status models.JobStatus) error
	ReplaceItems(ctx context.Context, jobID string, items []models.JobServiceItem) error
	ReplaceAssignments(ctx context.Context, jobID string, assignments []models.JobAssignment) error
	Delete(ctx context.Context, id string) error
	ListByAddress(ctx context.Context, address string) ([]models.Job, error)
	LocationRollups(ctx context.Context) ([]models.LocationRollup, error)
}

type occurrenceRepository interface {
	ListByJob(ctx context.Context, jobID string) ([]models.JobOccurrence, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error)
	ReplaceForJob(ctx context.Context, jobID string, occurrences []models.JobOccurrence) error
	InsertForJobWithTx(ctx context.Context, tx *sqlx.Tx, jobID string, occurrences []models.JobOccurrence) error
}

// JobListener is notified after job lifecycle events commit. Implementations
// must tolerate being called more than once for the same job.
type JobListener interface {
	JobUpserted(ctx context.Context, job *models.Job)
	JobDeleted(ctx context.Context, job *models.Job)
	JobCompleted(ctx context.Context, job *models.Job)
}

// JobItemRequest is one service line on a job payload.
type JobItemRequest struct {
	ServiceID     *string `json:"service_id"`
	ServiceName   *string `json:"service_name"`
	CustomName    *string `json:"custom_name"`
	Price         float64 `json:"price" validate:"gte=0"`
	DurationHours float64 `json:"duration_hours" validate:"gte=0"`
}

// JobAssignmentRequest assigns one technician.
type JobAssignmentRequest struct {
	UserID    string  `json:"user_id" validate:"required"`
	UserEmail *string `json:"user_email"`
	UserName  *string `json:"user_name"`
	GHLUserID *string `json:"ghl_user_id"`
	Role      *string `json:"role"`
}

// CreateJobRequest describes the payload for creating a job.
type CreateJobRequest struct {
	Title           *string                `json:"title"`
	Description     *string                `json:"description"`
	Priority        models.JobPriority     `json:"priority" validate:"omitempty,oneof=low medium high"`
	ScheduledAt     *time.Time             `json:"scheduled_at"`
	DurationHours   float64                `json:"duration_hours" validate:"gte=0"`
	CustomerName    *string                `json:"customer_name"`
	CustomerPhone   *string                `json:"customer_phone"`
	CustomerEmail   *string                `json:"customer_email"`
	CustomerAddress *string                `json:"customer_address"`
	GHLContactID    *string                `json:"ghl_contact_id"`
	LocationID      *string                `json:"location_id"`
	QuotedBy        *string                `json:"quoted_by"`
	JobType         models.JobType         `json:"job_type" validate:"required,oneof=one_time recurring"`
	RepeatEvery     *int                   `json:"repeat_every"`
	RepeatUnit      *models.RepeatUnit     `json:"repeat_unit"`
	Occurrences     *int                   `json:"occurrences"`
	DayOfWeek       *int                   `json:"day_of_week"`
	Notes           *string                `json:"notes"`
	Items           []JobItemRequest       `json:"items" validate:"dive"`
	Assignments     []JobAssignmentRequest `json:"assignments" validate:"dive"`
}

// UpdateJobRequest describes the payload for updating a job. Items and
// assignments, when present, replace the existing sets.
type UpdateJobRequest struct {
	Title           *string                 `json:"title"`
	Description     *string                 `json:"description"`
	Priority        *models.JobPriority     `json:"priority" validate:"omitempty,oneof=low medium high"`
	ScheduledAt     *time.Time              `json:"scheduled_at"`
	DurationHours   *float64                `json:"duration_hours" validate:"omitempty,gte=0"`
	CustomerName    *string                 `json:"customer_name"`
	CustomerPhone   *string                 `json:"customer_phone"`
	CustomerEmail   *string                 `json:"customer_email"`
	CustomerAddress *string                 `json:"customer_address"`
	LocationID      *string                 `json:"location_id"`
	QuotedBy        *string                 `json:"quoted_by"`
	JobType         *models.JobType         `json:"job_type" validate:"omitempty,oneof=one_time recurring"`
	RepeatEvery     *int                    `json:"repeat_every"`
	RepeatUnit      *models.RepeatUnit      `json:"repeat_unit"`
	Occurrences     *int                    `json:"occurrences"`
	DayOfWeek       *int                    `json:"day_of_week"`
	Notes           *string                 `json:"notes"`
	Items           *[]JobItemRequest       `json:"items" validate:"omitempty,dive"`
	Assignments     *[]JobAssignmentRequest `json:"assignments" validate:"omitempty,dive"`
}

// JobService coordinates job CRUD, recurrence and lifecycle transitions.
type JobService struct {
	repo        jobRepository
	occurrences occurrenceRepository
	validator   *validator.Validate
	logger      *zap.Logger
	listeners   []JobListener
	metrics     *MetricsService
}

// NewJobService instantiates JobService.
func NewJobService(repo jobRepository, occurrences occurrenceRepository, validate *validator.Validate, logger *zap.Logger) *JobService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobService{repo: repo, occurrences: occurrences, validator: validate, logger: logger}
}

// AddListener registers a lifecycle listener. Not safe to call after the
// service starts handling requests.
func (s *JobService) AddListener(l JobListener) {
	if l != nil {
		s.listeners = append(s.listeners, l)
	}
}

// SetMetrics attaches the Prometheus recorder. A nil recorder is a no-op.
func (s *JobService) SetMetrics(m *MetricsService) {
	s.metrics = m
}

// Create validates and stores a new job. Recurring jobs get their occurrence
// schedule generated and persisted in the same call.
func (s *JobService) Create(ctx context.Context, req CreateJobRequest) (*models.Job, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid job payload")
	}

	job := s.buildJob(req)

	occurrences, err := s.generatedOccurrences(job)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create job")
	}
	if err := s.occurrences.ReplaceForJob(ctx, job.ID, occurrences); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store occurrences")
	}

	s.metrics.RecordJobCreated()
	s.notifyUpserted(ctx, job)
	return job, nil
}

// CreateSeries expands a recurring request into one job per occurrence, all
// sharing a series id, committed atomically.
func (s *JobService) CreateSeries(ctx context.Context, req CreateJobRequest) ([]models.Job, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid job payload")
	}
	if req.JobType != models.JobTypeRecurring {
		return nil, appErrors.Clone(appErrors.ErrInvalidRule, "series creation requires a recurring job")
	}

	template := s.buildJob(req)
	occurrences, err := s.generatedOccurrences(template)
	if err != nil {
		return nil, err
	}

	seriesID := uuid.NewString()
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start series creation")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	jobs := make([]models.Job, 0, len(occurrences))
	for _, occ := range occurrences {
		member := *template
		member.ID = ""
		member.ScheduledAt = timeValue(occ.ScheduledAt)
		member.SeriesID = &seriesID
		seq := occ.Sequence
		member.SeriesSequence = &seq
		member.Items = cloneItems(template.Items)
		member.Assignments = cloneAssignments(template.Assignments)

		if err = s.repo.CreateWithTx(ctx, tx, &member); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create series member")
		}
		jobs = append(jobs, member)
	}

	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit series")
	}

	for i := range jobs {
		s.metrics.RecordJobCreated()
		s.notifyUpserted(ctx, &jobs[i])
	}
	return jobs, nil
}

// Get loads one job.
func (s *JobService) Get(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load job")
	}
	return job, nil
}

// List returns jobs matching the filter plus pagination metadata.
func (s *JobService) List(ctx context.Context, filter models.JobFilter) ([]models.Job, *models.Pagination, error) {
	jobs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list jobs")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return jobs, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Occurrences returns the stored occurrence schedule of a job.
func (s *JobService) Occurrences(ctx context.Context, jobID string) ([]models.JobOccurrence, error) {
	if _, err := s.Get(ctx, jobID); err != nil {
		return nil, err
	}
	occurrences, err := s.occurrences.ListByJob(ctx, jobID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list occurrences")
	}
	return occurrences, nil
}

// Update applies a partial update. Any change to the recurrence fields or
// the anchor time rebuilds the occurrence schedule.
func (s *JobService) Update(ctx context.Context, id string, req UpdateJobRequest) (*models.Job, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid job payload")
	}

	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	scheduleChanged := s.applyUpdate(job, req)

	if req.Items != nil {
		job.Items = buildItems(*req.Items)
		job.TotalPrice, job.DurationHours = rollupItems(job.Items, job.TotalPrice, job.DurationHours)
	}

	var occurrences []models.JobOccurrence
	if scheduleChanged {
		occurrences, err = s.generatedOccurrences(job)
		if err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update job")
	}
	if req.Items != nil {
		if err := s.repo.ReplaceItems(ctx, job.ID, job.Items); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace items")
		}
	}
	if req.Assignments != nil {
		job.Assignments = buildAssignments(*req.Assignments)
		if err := s.repo.ReplaceAssignments(ctx, job.ID, job.Assignments); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace assignments")
		}
	}
	if scheduleChanged {
		if err := s.occurrences.ReplaceForJob(ctx, job.ID, occurrences); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rebuild occurrences")
		}
	}

	s.notifyUpserted(ctx, job)
	return job, nil
}

// UpdateStatus transitions a job. Completed jobs are frozen: any further
// transition fails, which also stops completion side effects from firing
// twice.
func (s *JobService) UpdateStatus(ctx context.Context, id string, status models.JobStatus) (*models.Job, error) {
	if !validStatus(status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown job status")
	}

	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status == models.JobStatusCompleted {
		return nil, appErrors.ErrJobCompleted
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}
	job.Status = status

	if status == models.JobStatusCompleted {
		s.metrics.RecordJobCompleted()
		for _, l := range s.listeners {
			l.JobCompleted(ctx, job)
		}
	}
	return job, nil
}

// Delete removes a job and notifies listeners so external bookings get
// cleaned up.
func (s *JobService) Delete(ctx context.Context, id string) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete job")
	}
	for _, l := range s.listeners {
		l.JobDeleted(ctx, job)
	}
	return nil
}

// CalendarRange returns every scheduled visit within [from, to) as flattened
// occurrence rows, so recurring jobs contribute one event per visit.
func (s *JobService) CalendarRange(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	if !to.After(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "range end must come after start")
	}
	events, err := s.occurrences.ListBetween(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar range")
	}
	return events, nil
}

// Series returns all members of a series ordered by sequence.
func (s *JobService) Series(ctx context.Context, seriesID string) ([]models.Job, error) {
	jobs, err := s.repo.ListBySeries(ctx, seriesID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load series")
	}
	return jobs, nil
}

// LocationRollups aggregates job activity per customer address.
func (s *JobService) LocationRollups(ctx context.Context) ([]models.LocationRollup, error) {
	rollups, err := s.repo.LocationRollups(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate locations")
	}
	return rollups, nil
}

// JobsAtAddress returns the job history for a customer address fragment.
func (s *JobService) JobsAtAddress(ctx context.Context, address string) ([]models.Job, error) {
	if address == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "address is required")
	}
	jobs, err := s.repo.ListByAddress(ctx, address)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list jobs by address")
	}
	return jobs, nil
}

func (s *JobService) buildJob(req CreateJobRequest) *models.Job {
	priority := req.Priority
	if priority == "" {
		priority = models.JobPriorityMedium
	}

	job := &models.Job{
		Title:           req.Title,
		Description:     req.Description,
		Priority:        priority,
		DurationHours:   req.DurationHours,
		ScheduledAt:     req.ScheduledAt,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		CustomerAddress: req.CustomerAddress,
		GHLContactID:    req.GHLContactID,
		LocationID:      req.LocationID,
		QuotedBy:        req.QuotedBy,
		JobType:         req.JobType,
		RepeatEvery:     req.RepeatEvery,
		RepeatUnit:      req.RepeatUnit,
		Occurrences:     req.Occurrences,
		DayOfWeek:       req.DayOfWeek,
		Notes:           req.Notes,
		Status:          models.JobStatusPending,
		Items:           buildItems(req.Items),
		Assignments:     buildAssignments(req.Assignments),
	}
	job.TotalPrice, job.DurationHours = rollupItems(job.Items, 0, req.DurationHours)
	return job
}

// generatedOccurrences returns the occurrence schedule for a job, empty
// for jobs with no anchor yet. One-time jobs get a single sequence-1 row
// so the calendar feed covers them too.
func (s *JobService) generatedOccurrences(job *models.Job) ([]models.JobOccurrence, error) {
	if job.ScheduledAt == nil {
		return nil, nil
	}
	if job.JobType != models.JobTypeRecurring {
		return []models.JobOccurrence{{JobID: job.ID, ScheduledAt: *job.ScheduledAt, Sequence: 1}}, nil
	}
	if job.RepeatEvery == nil || job.RepeatUnit == nil || job.Occurrences == nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidRule, "recurring jobs require repeat_every, repeat_unit and occurrences")
	}

	rule := schedule.Rule{
		Start:       *job.ScheduledAt,
		RepeatEvery: *job.RepeatEvery,
		Unit:        *job.RepeatUnit,
		Occurrences: *job.Occurrences,
		DayOfWeek:   job.DayOfWeek,
	}
	generated, err := schedule.Generate(rule)
	if err != nil {
		return nil, err
	}
	return schedule.ToJobOccurrences(job.ID, generated), nil
}

func (s *JobService) applyUpdate(job *models.Job, req UpdateJobRequest) bool {
	scheduleChanged := false

	if req.Title != nil {
		job.Title = req.Title
	}
	if req.Description != nil {
		job.Description = req.Description
	}
	if req.Priority != nil {
		job.Priority = *req.Priority
	}
	if req.ScheduledAt != nil {
		job.ScheduledAt = req.ScheduledAt
		scheduleChanged = true
	}
	if req.DurationHours != nil {
		job.DurationHours = *req.DurationHours
	}
	if req.CustomerName != nil {
		job.CustomerName = req.CustomerName
	}
	if req.CustomerPhone != nil {
		job.CustomerPhone = req.CustomerPhone
	}
	if req.CustomerEmail != nil {
		job.CustomerEmail = req.CustomerEmail
	}
	if req.CustomerAddress != nil {
		job.CustomerAddress = req.CustomerAddress
	}
	if req.LocationID != nil {
		job.LocationID = req.LocationID
	}
	if req.QuotedBy != nil {
		job.QuotedBy = req.QuotedBy
	}
	if req.JobType != nil {
		job.JobType = *req.JobType
		scheduleChanged = true
	}
	if req.RepeatEvery != nil {
		job.RepeatEvery = req.RepeatEvery
		scheduleChanged = true
	}
	if req.RepeatUnit != nil {
		job.RepeatUnit = req.RepeatUnit
		scheduleChanged = true
	}
	if req.Occurrences != nil {
		job.Occurrences = req.Occurrences
		scheduleChanged = true
	}
	if req.DayOfWeek != nil {
		job.DayOfWeek = req.DayOfWeek
		scheduleChanged = true
	}
	if req.Notes != nil {
		job.Notes = req.Notes
	}
	return scheduleChanged
}

func (s *JobService) notifyUpserted(ctx context.Context, job *models.Job) {
	for _, l := range s.listeners {
		l.JobUpserted(ctx, job)
	}
}

func buildItems(reqs []JobItemRequest) []models.JobServiceItem {
	items := make([]models.JobServiceItem, 0, len(reqs))
	for _, r := range reqs {
		items = append(items, models.JobServiceItem{
			ServiceID:     r.ServiceID,
			ServiceName:   r.ServiceName,
			CustomName:    r.CustomName,
			Price:         r.Price,
			DurationHours: r.DurationHours,
		})
	}
	return items
}

func buildAssignments(reqs []JobAssignmentRequest) []models.JobAssignment {
	assignments := make([]models.JobAssignment, 0, len(reqs))
	for _, r := range reqs {
		assignments = append(assignments, models.JobAssignment{
			UserID:    r.UserID,
			UserEmail: r.UserEmail,
			UserName:  r.UserName,
			GHLUserID: r.GHLUserID,
			Role:      r.Role,
		})
	}
	return assignments
}

// rollupItems sums item prices into the job total and item durations into
// the job duration. Explicit values win when no items carry them.
func rollupItems(items []models.JobServiceItem, fallbackPrice, fallbackDuration float64) (price, duration float64) {
	for _, item := range items {
		price += item.Price
		duration += item.DurationHours
	}
	if price == 0 {
		price = fallbackPrice
	}
	if duration == 0 {
		duration = fallbackDuration
	}
	return price, duration
}

func cloneItems(items []models.JobServiceItem) []models.JobServiceItem {
	out := make([]models.JobServiceItem, len(items))
	for i, item := range items {
		item.ID = ""
		item.JobID = ""
		out[i] = item
	}
	return out
}

func cloneAssignments(assignments []models.JobAssignment) []models.JobAssignment {
	out := make([]models.JobAssignment, len(assignments))
	for i, a := range assignments {
		a.ID = ""
		a.JobID = ""
		out[i] = a
	}
	return out
}

func validStatus(status models.JobStatus) bool {
	switch status {
	case models.JobStatusPending, models.JobStatusConfirmed, models.JobStatusServiceDue,
		models.JobStatusOnTheWay, models.JobStatusInProgress, models.JobStatusCompleted,
		models.JobStatusCancelled:
		return true
	}
	return false
}

func timeValue(t time.Time) *time.Time {
	return &t
}
