package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/trushine/fieldops-api/internal/models"
	"github.com/trushine/fieldops-api/internal/schedule"
)

type jobLoader interface {
	Get(ctx context.Context, id string) (*models.Job, error)
}

type accountResolver interface {
	CredentialForLocation(ctx context.Context, locationID string) (*models.GHLCredential, error)
	Timezone(ctx context.Context, locationID string) string
}

// SlotInfo reports whether a job's schedule already has a matching external
// appointment.
type SlotInfo struct {
	JobID         string                    `json:"job_id"`
	ScheduledAt   *time.Time                `json:"scheduled_at,omitempty"`
	DurationHours float64                   `json:"duration_hours"`
	Timezone      string                    `json:"timezone"`
	LocationID    string                    `json:"location_id,omitempty"`
	WindowStart   *time.Time                `json:"window_start_utc,omitempty"`
	WindowEnd     *time.Time                `json:"window_end_utc,omitempty"`
	State         schedule.ReservationState `json:"state"`
	Appointment   *models.AppointmentDetail `json:"appointment,omitempty"`
}

const defaultLookupTimeout = 3 * time.Second

// SlotService answers slot reservation queries for jobs.
type SlotService struct {
	jobs          jobLoader
	accounts      accountResolver
	reconciler    *schedule.Reconciler
	lookupTimeout time.Duration
	logger        *zap.Logger
}

// NewSlotService constructs a SlotService. Appointment lookups run under
// lookupTimeout so a slow store cannot stall request handling or sync.
func NewSlotService(jobs jobLoader, accounts accountResolver, reconciler *schedule.Reconciler, lookupTimeout time.Duration, logger *zap.Logger) *SlotService {
	if lookupTimeout <= 0 {
		lookupTimeout = defaultLookupTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{jobs: jobs, accounts: accounts, reconciler: reconciler, lookupTimeout: lookupTimeout, logger: logger}
}

// Info resolves the job's slot window and scans the job's assignees for a
// booked appointment.
func (s *SlotService) Info(ctx context.Context, jobID string) (*SlotInfo, error) {
	job, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	query := s.queryForJob(ctx, job)
	info := &SlotInfo{
		JobID:         job.ID,
		ScheduledAt:   job.ScheduledAt,
		DurationHours: job.DurationHours,
		Timezone:      query.Timezone,
		LocationID:    query.LocationID,
	}

	if window, err := schedule.DeriveWindow(query.ScheduledAt, query.DurationHours, query.Timezone, query.LocationID); err == nil {
		info.WindowStart = &window.StartUTC
		info.WindowEnd = &window.EndUTC
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()
	result := s.reconciler.FindReservedSlot(lookupCtx, query)
	info.State = result.State
	info.Appointment = result.Appointment
	return info, nil
}

// UnreservedAssignees returns the assignees of a job that do not have a
// matching external appointment yet.
func (s *SlotService) UnreservedAssignees(ctx context.Context, job *models.Job) []string {
	query := s.queryForJob(ctx, job)
	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()
	return s.reconciler.CandidatesWithoutReservedSlot(lookupCtx, query)
}

func (s *SlotService) queryForJob(ctx context.Context, job *models.Job) schedule.SlotQuery {
	locationID := ""
	if job.LocationID != nil {
		locationID = *job.LocationID
	}
	if locationID == "" {
		if cred, err := s.accounts.CredentialForLocation(ctx, ""); err == nil && cred.LocationID != nil {
			locationID = *cred.LocationID
		}
	}

	candidates := make([]string, 0, len(job.Assignments))
	for _, a := range job.Assignments {
		if a.GHLUserID != nil && *a.GHLUserID != "" {
			candidates = append(candidates, *a.GHLUserID)
		}
	}

	return schedule.SlotQuery{
		ScheduledAt:   job.ScheduledAt,
		DurationHours: job.DurationHours,
		Timezone:      s.accounts.Timezone(ctx, locationID),
		LocationID:    locationID,
		Candidates:    candidates,
	}
}
