package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trushine/fieldops-api/internal/ghl"
	"github.com/trushine/fieldops-api/internal/models"
	"github.com/trushine/fieldops-api/internal/schedule"
	"github.com/trushine/fieldops-api/pkg/jobs"
)

type ghlAppointmentAPI interface {
	CreateAppointment(ctx context.Context, token string, req ghl.AppointmentRequest) (*ghl.Appointment, error)
	DeleteAppointment(ctx context.Context, token, appointmentID string) error
}

type calendarFinder interface {
	FindByName(ctx context.Context, name string) (*models.GHLCalendar, error)
}

type appointmentMirror interface {
	FindMatchingSlot(ctx context.Context, startUTC, endUTC time.Time, calendarName, locationID, assignedUserID string) (*models.AppointmentDetail, error)
	Upsert(ctx context.Context, appt *models.Appointment) error
	DeleteByGHLAppointmentID(ctx context.Context, ghlAppointmentID string) error
}

type assigneeResolver interface {
	UnreservedAssignees(ctx context.Context, job *models.Job) []string
}

const (
	taskSyncJob   = "sync.job"
	taskDeleteJob = "sync.delete"
)

type syncPayload struct {
	Job *models.Job
}

// SyncService keeps the external GHL calendar in step with local jobs. Jobs
// flow through a background queue so API hiccups never block request
// handling; the reconciler guarantees that replays do not double-book.
type SyncService struct {
	api          ghlAppointmentAPI
	accounts     accountResolver
	calendars    calendarFinder
	appointments appointmentMirror
	slots        assigneeResolver
	calendarName string
	enabled      bool
	queue        *jobs.Queue
	logger       *zap.Logger
	metrics      *MetricsService
}

// SyncServiceConfig wires the sync service dependencies.
type SyncServiceConfig struct {
	API          ghlAppointmentAPI
	Accounts     accountResolver
	Calendars    calendarFinder
	Appointments appointmentMirror
	Slots        assigneeResolver
	CalendarName string
	Enabled      bool
	QueueConfig  jobs.QueueConfig
	Logger       *zap.Logger
}

// SetMetrics attaches the Prometheus recorder. A nil recorder is a no-op.
func (s *SyncService) SetMetrics(m *MetricsService) {
	s.metrics = m
}

// NewSyncService constructs a SyncService and its backing queue. Call Start
// before enqueueing work.
func NewSyncService(cfg SyncServiceConfig) *SyncService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.CalendarName == "" {
		cfg.CalendarName = schedule.DefaultCalendarName
	}
	s := &SyncService{
		api:          cfg.API,
		accounts:     cfg.Accounts,
		calendars:    cfg.Calendars,
		appointments: cfg.Appointments,
		slots:        cfg.Slots,
		calendarName: cfg.CalendarName,
		enabled:      cfg.Enabled,
		logger:       cfg.Logger,
	}
	cfg.QueueConfig.Logger = cfg.Logger
	s.queue = jobs.NewQueue("ghl-sync", s.handleTask, cfg.QueueConfig)
	return s
}

// Start begins background processing.
func (s *SyncService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the worker pool.
func (s *SyncService) Stop() {
	s.queue.Stop()
}

// JobUpserted queues appointment creation for any assignee without a booked
// slot.
func (s *SyncService) JobUpserted(ctx context.Context, job *models.Job) {
	if !s.enabled || job == nil {
		return
	}
	s.enqueue(taskSyncJob, job)
}

// JobDeleted queues removal of the job's external appointments.
func (s *SyncService) JobDeleted(ctx context.Context, job *models.Job) {
	if !s.enabled || job == nil {
		return
	}
	s.enqueue(taskDeleteJob, job)
}

// JobCompleted is part of JobListener; completion has no calendar effect.
func (s *SyncService) JobCompleted(ctx context.Context, job *models.Job) {}

func (s *SyncService) enqueue(taskType string, job *models.Job) {
	snapshot := *job
	err := s.queue.Enqueue(jobs.Task{
		ID:      uuid.NewString(),
		Type:    taskType,
		Payload: syncPayload{Job: &snapshot},
	})
	if err != nil {
		s.logger.Sugar().Warnw("failed to enqueue sync task", "type", taskType, "job_id", job.ID, "error", err)
	}
}

func (s *SyncService) handleTask(ctx context.Context, task jobs.Task) error {
	payload, ok := task.Payload.(syncPayload)
	if !ok || payload.Job == nil {
		s.logger.Sugar().Errorw("sync task carries no job", "task_id", task.ID)
		return nil
	}

	switch task.Type {
	case taskSyncJob:
		err := s.SyncJob(ctx, payload.Job)
		s.metrics.RecordSyncAttempt(err != nil)
		return err
	case taskDeleteJob:
		return s.RemoveJobAppointments(ctx, payload.Job)
	default:
		s.logger.Sugar().Errorw("unknown sync task type", "type", task.Type)
		return nil
	}
}

// SyncJob books an appointment for every assignee whose slot is still free.
// Safe to run repeatedly for the same job.
func (s *SyncService) SyncJob(ctx context.Context, job *models.Job) error {
	locationID := s.locationFor(ctx, job)
	tz := s.accounts.Timezone(ctx, locationID)

	window, err := schedule.DeriveWindow(job.ScheduledAt, job.DurationHours, tz, locationID)
	if err != nil {
		if errors.Is(err, schedule.ErrIndeterminateWindow) {
			s.logger.Sugar().Infow("job has no derivable slot window, skipping sync", "job_id", job.ID)
			return nil
		}
		return err
	}

	cred, err := s.accounts.CredentialForLocation(ctx, locationID)
	if err != nil {
		return err
	}
	cal, err := s.calendars.FindByName(ctx, s.calendarName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("calendar %q is not mirrored locally", s.calendarName)
		}
		return fmt.Errorf("resolve calendar: %w", err)
	}

	loc, locErr := time.LoadLocation(tz)
	if locErr != nil {
		loc = time.UTC
	}

	unreserved := s.slots.UnreservedAssignees(ctx, job)
	for _, ghlUserID := range unreserved {
		req := ghl.AppointmentRequest{
			CalendarID:     cal.GHLCalendarID,
			LocationID:     locationID,
			AssignedUserID: ghlUserID,
			Title:          s.titleFor(job),
			StartTime:      window.StartUTC.In(loc).Format(time.RFC3339),
			EndTime:        window.EndUTC.In(loc).Format(time.RFC3339),
			IgnoreFreeSlot: true,
		}
		if job.GHLContactID != nil {
			req.ContactID = *job.GHLContactID
		}
		if job.CustomerAddress != nil {
			req.Address = *job.CustomerAddress
		}

		created, err := s.api.CreateAppointment(ctx, cred.AccessToken, req)
		if err != nil {
			return fmt.Errorf("create appointment for %s: %w", ghlUserID, err)
		}

		mirror := s.mirrorOf(created, cal, window, ghlUserID, job)
		if err := s.appointments.Upsert(ctx, mirror); err != nil {
			// The booking exists upstream; the next GHL pull will restore
			// the mirror row.
			s.logger.Sugar().Warnw("failed to mirror created appointment",
				"job_id", job.ID, "ghl_appointment_id", created.ID, "error", err)
		}
		s.logger.Sugar().Infow("appointment booked",
			"job_id", job.ID, "assignee", ghlUserID, "ghl_appointment_id", created.ID)
	}
	return nil
}

// RemoveJobAppointments deletes the external appointments that match the
// job's slot window.
func (s *SyncService) RemoveJobAppointments(ctx context.Context, job *models.Job) error {
	locationID := s.locationFor(ctx, job)
	tz := s.accounts.Timezone(ctx, locationID)

	window, err := schedule.DeriveWindow(job.ScheduledAt, job.DurationHours, tz, locationID)
	if err != nil {
		if errors.Is(err, schedule.ErrIndeterminateWindow) {
			return nil
		}
		return err
	}

	cred, err := s.accounts.CredentialForLocation(ctx, locationID)
	if err != nil {
		return err
	}

	for _, a := range job.Assignments {
		if a.GHLUserID == nil || *a.GHLUserID == "" {
			continue
		}
		detail, err := s.appointments.FindMatchingSlot(ctx, window.StartUTC, window.EndUTC, s.calendarName, locationID, *a.GHLUserID)
		if err != nil {
			s.logger.Sugar().Warnw("slot lookup failed during delete", "job_id", job.ID, "error", err)
			continue
		}
		if detail == nil || detail.GHLAppointmentID == "" {
			continue
		}

		if err := s.api.DeleteAppointment(ctx, cred.AccessToken, detail.GHLAppointmentID); err != nil && !ghl.IsNotFound(err) {
			return fmt.Errorf("delete appointment %s: %w", detail.GHLAppointmentID, err)
		}
		if err := s.appointments.DeleteByGHLAppointmentID(ctx, detail.GHLAppointmentID); err != nil {
			s.logger.Sugar().Warnw("failed to drop mirrored appointment",
				"ghl_appointment_id", detail.GHLAppointmentID, "error", err)
		}
	}
	return nil
}

func (s *SyncService) locationFor(ctx context.Context, job *models.Job) string {
	if job.LocationID != nil && *job.LocationID != "" {
		return *job.LocationID
	}
	if cred, err := s.accounts.CredentialForLocation(ctx, ""); err == nil && cred.LocationID != nil {
		return *cred.LocationID
	}
	return ""
}

func (s *SyncService) titleFor(job *models.Job) string {
	if job.Title != nil && *job.Title != "" {
		return *job.Title
	}
	if job.CustomerName != nil && *job.CustomerName != "" {
		return *job.CustomerName + " - Service Visit"
	}
	return "Service Visit"
}

func (s *SyncService) mirrorOf(created *ghl.Appointment, cal *models.GHLCalendar, window schedule.Window, ghlUserID string, job *models.Job) *models.Appointment {
	status := models.AppointmentStatusConfirmed
	mirror := &models.Appointment{
		GHLAppointmentID:  &created.ID,
		StartTime:         &window.StartUTC,
		EndTime:           &window.EndUTC,
		AppointmentStatus: &status,
		CalendarID:        &cal.GHLCalendarID,
		CalendarName:      &cal.Name,
		AssignedUserID:    &ghlUserID,
		GHLContactID:      job.GHLContactID,
		Address:           job.CustomerAddress,
	}
	if created.LocationID != "" {
		mirror.LocationID = &created.LocationID
	} else if job.LocationID != nil {
		mirror.LocationID = job.LocationID
	}
	title := s.titleFor(job)
	mirror.Title = &title
	return mirror
}
