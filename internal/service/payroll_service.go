package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/trushine/fieldops-api/internal/models"
	"github.com/trushine/fieldops-api/pkg/config"
	appErrors "github.com/trushine/fieldops-api/pkg/errors"
)

type payrollRepository interface {
	FindProfileByUserID(ctx context.Context, userID string) (*models.EmployeeProfile, error)
	FindCollaborationRate(ctx context.Context, employeeID string, memberCount int) (*models.CollaborationRate, error)
	PayoutExists(ctx context.Context, employeeID, jobID string, payoutType models.PayoutType) (bool, error)
	CreatePayout(ctx context.Context, payout *models.Payout) error
	ListPayoutsByEmployee(ctx context.Context, employeeID string, from, to time.Time) ([]models.Payout, error)
	ListCollaborationRates(ctx context.Context) ([]models.CollaborationRate, error)
	GetSettings(ctx context.Context) (*models.PayrollSettings, error)
}

type contactStats interface {
	CountCompletedJobs(ctx context.Context, contactID string) (int, error)
}

// Default bonus percentages used when no settings row exists yet.
const (
	defaultFirstTimeBonusPercent = 15.0
	defaultQuotedByBonusPercent  = 2.0
)

// PayrollService records payouts when jobs complete. Hourly employees earn
// their rate over the job duration; project employees earn a percentage of
// the job value scaled by team size. Bonuses layer on top: one for a
// customer's first completed service, one for the employee who quoted the
// job.
type PayrollService struct {
	repo     payrollRepository
	contacts contactStats
	cfg      config.PayrollConfig
	logger   *zap.Logger
}

// NewPayrollService constructs a PayrollService.
func NewPayrollService(repo payrollRepository, contacts contactStats, cfg config.PayrollConfig, logger *zap.Logger) *PayrollService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayrollService{repo: repo, contacts: contacts, cfg: cfg, logger: logger}
}

// JobUpserted is part of JobListener; payroll only reacts to completion.
func (s *PayrollService) JobUpserted(ctx context.Context, job *models.Job) {}

// JobDeleted is part of JobListener; recorded payouts survive job deletion.
func (s *PayrollService) JobDeleted(ctx context.Context, job *models.Job) {}

// JobCompleted records payouts for the completed job. Failures are logged,
// not propagated.
func (s *PayrollService) JobCompleted(ctx context.Context, job *models.Job) {
	if !s.cfg.Enabled {
		return
	}
	if err := s.RecordPayouts(ctx, job); err != nil {
		s.logger.Sugar().Errorw("payout recording failed", "job_id", job.ID, "error", err)
	}
}

// RecordPayouts creates the base and bonus payouts for a completed job. The
// duplicate check per employee and payout type makes replays harmless.
func (s *PayrollService) RecordPayouts(ctx context.Context, job *models.Job) error {
	settings := s.settings(ctx)
	teamSize := len(job.Assignments)
	firstVisit := s.isFirstCompletedVisit(ctx, job)

	for _, assignment := range job.Assignments {
		profile, err := s.repo.FindProfileByUserID(ctx, assignment.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				s.logger.Sugar().Infow("assignee has no employee profile, skipping payout",
					"job_id", job.ID, "user_id", assignment.UserID)
				continue
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load employee profile")
		}

		if err := s.recordBasePayout(ctx, job, profile, teamSize); err != nil {
			return err
		}
		if firstVisit {
			bonus := job.TotalPrice * settings.FirstTimeBonusPercent / 100
			if err := s.recordBonus(ctx, job, profile, models.PayoutTypeBonusFirstTime, bonus, settings.FirstTimeBonusPercent); err != nil {
				return err
			}
		}
	}

	if job.QuotedBy != nil && *job.QuotedBy != "" {
		if err := s.recordQuotedByBonus(ctx, job, *job.QuotedBy, settings); err != nil {
			return err
		}
	}
	return nil
}

func (s *PayrollService) recordBasePayout(ctx context.Context, job *models.Job, profile *models.EmployeeProfile, teamSize int) error {
	switch profile.PayScaleType {
	case models.PayScaleHourly:
		if profile.HourlyRate == nil || *profile.HourlyRate <= 0 {
			s.logger.Sugar().Warnw("hourly employee has no rate, skipping payout",
				"job_id", job.ID, "employee_id", profile.ID)
			return nil
		}
		amount := roundCents(*profile.HourlyRate * job.DurationHours)
		return s.createOnce(ctx, &models.Payout{
			EmployeeID:   profile.ID,
			PayoutType:   models.PayoutTypeHourly,
			Amount:       amount,
			JobID:        &job.ID,
			ProjectTitle: job.Title,
		})

	case models.PayScaleProject:
		rate, err := s.repo.FindCollaborationRate(ctx, profile.ID, teamSize)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				s.logger.Sugar().Warnw("no collaboration rate for team size, skipping payout",
					"job_id", job.ID, "employee_id", profile.ID, "team_size", teamSize)
				return nil
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load collaboration rate")
		}

		amount := roundCents(job.TotalPrice * rate.Percentage / 100)
		return s.createOnce(ctx, &models.Payout{
			EmployeeID:     profile.ID,
			PayoutType:     models.PayoutTypeProject,
			Amount:         amount,
			JobID:          &job.ID,
			ProjectValue:   &job.TotalPrice,
			RatePercentage: &rate.Percentage,
			ProjectTitle:   job.Title,
		})
	}

	s.logger.Sugar().Warnw("unknown pay scale type", "employee_id", profile.ID, "type", profile.PayScaleType)
	return nil
}

func (s *PayrollService) recordQuotedByBonus(ctx context.Context, job *models.Job, quotedByUserID string, settings models.PayrollSettings) error {
	profile, err := s.repo.FindProfileByUserID(ctx, quotedByUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quoting employee")
	}
	bonus := job.TotalPrice * settings.QuotedByBonusPercent / 100
	return s.recordBonus(ctx, job, profile, models.PayoutTypeBonusQuotedBy, bonus, settings.QuotedByBonusPercent)
}

func (s *PayrollService) recordBonus(ctx context.Context, job *models.Job, profile *models.EmployeeProfile, payoutType models.PayoutType, amount, percentage float64) error {
	amount = roundCents(amount)
	if amount <= 0 {
		return nil
	}
	return s.createOnce(ctx, &models.Payout{
		EmployeeID:     profile.ID,
		PayoutType:     payoutType,
		Amount:         amount,
		JobID:          &job.ID,
		ProjectValue:   &job.TotalPrice,
		RatePercentage: &percentage,
		ProjectTitle:   job.Title,
	})
}

// createOnce records a payout unless the same employee, job and type already
// have one.
func (s *PayrollService) createOnce(ctx context.Context, payout *models.Payout) error {
	if payout.JobID != nil {
		exists, err := s.repo.PayoutExists(ctx, payout.EmployeeID, *payout.JobID, payout.PayoutType)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing payout")
		}
		if exists {
			s.logger.Sugar().Infow("payout already recorded, skipping",
				"employee_id", payout.EmployeeID, "job_id", *payout.JobID, "type", payout.PayoutType)
			return nil
		}
	}
	if err := s.repo.CreatePayout(ctx, payout); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payout")
	}
	return nil
}

// EmployeePayouts lists an employee's payouts within [from, to).
func (s *PayrollService) EmployeePayouts(ctx context.Context, employeeID string, from, to time.Time) ([]models.Payout, error) {
	payouts, err := s.repo.ListPayoutsByEmployee(ctx, employeeID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payouts")
	}
	return payouts, nil
}

// CollaborationRates returns the project payout rate matrix.
func (s *PayrollService) CollaborationRates(ctx context.Context) ([]models.CollaborationRate, error) {
	rates, err := s.repo.ListCollaborationRates(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list collaboration rates")
	}
	return rates, nil
}

func (s *PayrollService) settings(ctx context.Context) models.PayrollSettings {
	stored, err := s.repo.GetSettings(ctx)
	if err == nil {
		return *stored
	}
	if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Sugar().Warnw("failed to load payroll settings, using defaults", "error", err)
	}
	return models.PayrollSettings{
		FirstTimeBonusPercent: defaultFirstTimeBonusPercent,
		QuotedByBonusPercent:  defaultQuotedByBonusPercent,
	}
}

// isFirstCompletedVisit reports whether the job is the contact's first
// completed service. The job itself is already completed when this runs, so
// a count of one means first visit.
func (s *PayrollService) isFirstCompletedVisit(ctx context.Context, job *models.Job) bool {
	if job.GHLContactID == nil || *job.GHLContactID == "" {
		return false
	}
	count, err := s.contacts.CountCompletedJobs(ctx, *job.GHLContactID)
	if err != nil {
		s.logger.Sugar().Warnw("failed to count completed jobs for contact",
			"contact_id", *job.GHLContactID, "error", err)
		return false
	}
	return count <= 1
}

// roundCents quantizes a dollar amount to two decimal places.
func roundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
