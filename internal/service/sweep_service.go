package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/trushine/fieldops-api/internal/models"
)

type sweepJobRepository interface {
	ListByStatusScheduledBefore(ctx context.Context, status models.JobStatus, cutoff time.Time) ([]models.Job, error)
	UpdateStatus(ctx context.Context, id string, status models.JobStatus) error
}

// SweepService moves confirmed jobs whose scheduled time has arrived into
// the service_due status. It is meant to run on a short cron interval.
type SweepService struct {
	repo   sweepJobRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewSweepService constructs a SweepService.
func NewSweepService(repo sweepJobRepository, logger *zap.Logger) *SweepService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepService{repo: repo, logger: logger, now: time.Now}
}

// Run performs one sweep pass and returns how many jobs were transitioned.
// A job that fails to update is logged and left for the next pass.
func (s *SweepService) Run(ctx context.Context) (int, error) {
	cutoff := s.now().UTC()
	due, err := s.repo.ListByStatusScheduledBefore(ctx, models.JobStatusConfirmed, cutoff)
	if err != nil {
		return 0, err
	}

	transitioned := 0
	for i := range due {
		job := &due[i]
		if err := s.repo.UpdateStatus(ctx, job.ID, models.JobStatusServiceDue); err != nil {
			s.logger.Sugar().Errorw("status sweep update failed", "job_id", job.ID, "error", err)
			continue
		}
		transitioned++
	}
	if transitioned > 0 {
		s.logger.Sugar().Infow("status sweep complete", "transitioned", transitioned, "cutoff", cutoff)
	}
	return transitioned, nil
}
