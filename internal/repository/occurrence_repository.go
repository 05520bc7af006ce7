package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trushine/fieldops-api/internal/models"
)

// OccurrenceRepository persists the generated occurrence dates of recurring
// jobs.
type OccurrenceRepository struct {
	db *sqlx.DB
}

// NewOccurrenceRepository creates a new occurrence repository.
func NewOccurrenceRepository(db *sqlx.DB) *OccurrenceRepository {
	return &OccurrenceRepository{db: db}
}

// ListByJob returns a job's occurrences ordered by sequence.
func (r *OccurrenceRepository) ListByJob(ctx context.Context, jobID string) ([]models.JobOccurrence, error) {
	const query = `SELECT id, job_id, scheduled_at, sequence, created_at FROM job_occurrences WHERE job_id = $1 ORDER BY sequence ASC`
	var occurrences []models.JobOccurrence
	if err := r.db.SelectContext(ctx, &occurrences, query, jobID); err != nil {
		return nil, fmt.Errorf("list job occurrences: %w", err)
	}
	return occurrences, nil
}

// ReplaceForJob atomically swaps a job's occurrence set for a newly generated
// one. The old rows are always removed, so a job switched to one-time ends up
// with none.
func (r *OccurrenceRepository) ReplaceForJob(ctx context.Context, jobID string, occurrences []models.JobOccurrence) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace occurrences: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM job_occurrences WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("delete job occurrences: %w", err)
	}
	if err = r.insertOccurrences(ctx, tx, jobID, occurrences); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace occurrences: %w", err)
	}
	return nil
}

// InsertForJobWithTx inserts occurrences using an existing transaction.
func (r *OccurrenceRepository) InsertForJobWithTx(ctx context.Context, tx *sqlx.Tx, jobID string, occurrences []models.JobOccurrence) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	return r.insertOccurrences(ctx, tx, jobID, occurrences)
}

func (r *OccurrenceRepository) insertOccurrences(ctx context.Context, exec sqlx.ExtContext, jobID string, occurrences []models.JobOccurrence) error {
	now := time.Now().UTC()
	for i := range occurrences {
		occ := occurrences[i]
		if occ.ID == "" {
			occ.ID = uuid.NewString()
		}
		occ.JobID = jobID
		if occ.CreatedAt.IsZero() {
			occ.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, exec, `INSERT INTO job_occurrences (id, job_id, scheduled_at, sequence, created_at) VALUES (:id, :job_id, :scheduled_at, :sequence, :created_at)`, &occ); err != nil {
			return fmt.Errorf("insert job occurrence: %w", err)
		}
		occurrences[i] = occ
	}
	return nil
}

// ListBetween returns flattened occurrences joined with their jobs for a
// [from, to) range, cancelled jobs excluded.
func (r *OccurrenceRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	const query = `SELECT o.job_id, j.title, j.customer_name, j.status, j.job_type, o.scheduled_at, o.sequence, j.duration_hours FROM job_occurrences o JOIN jobs j ON j.id = o.job_id WHERE o.scheduled_at >= $1 AND o.scheduled_at < $2 AND j.status != $3 ORDER BY o.scheduled_at ASC, o.sequence ASC`
	var events []models.CalendarEvent
	if err := r.db.SelectContext(ctx, &events, query, from, to, models.JobStatusCancelled); err != nil {
		return nil, fmt.Errorf("list occurrences in range: %w", err)
	}
	return events, nil
}
