package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trushine/fieldops-api/internal/models"
)

const jobColumns = `id, title, description, priority, duration_hours, scheduled_at, total_price, customer_name, customer_phone, customer_email, customer_address, ghl_contact_id, location_id, quoted_by, created_by, created_by_email, job_type, repeat_every, repeat_unit, occurrences, day_of_week, series_id, series_sequence, status, notes, created_at, updated_at`

const jobInsert = `INSERT INTO jobs (id, title, description, priority, duration_hours, scheduled_at, total_price, customer_name, customer_phone, customer_email, customer_address, ghl_contact_id, location_id, quoted_by, created_by, created_by_email, job_type, repeat_every, repeat_unit, occurrences, day_of_week, series_id, series_sequence, status, notes, created_at, updated_at) VALUES (:id, :title, :description, :priority, :duration_hours, :scheduled_at, :total_price, :customer_name, :customer_phone, :customer_email, :customer_address, :ghl_contact_id, :location_id, :quoted_by, :created_by, :created_by_email, :job_type, :repeat_every, :repeat_unit, :occurrences, :day_of_week, :series_id, :series_sequence, :status, :notes, :created_at, :updated_at)`

// JobRepository provides persistence for jobs, their service items and
// technician assignments.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository creates a new job repository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create stores a job together with its items and assignments in one
// transaction.
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create job: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.insertJob(ctx, tx, job); err != nil {
		return err
	}
	if err = r.insertItems(ctx, tx, job.ID, job.Items); err != nil {
		return err
	}
	if err = r.insertAssignments(ctx, tx, job.ID, job.Assignments); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create job: %w", err)
	}
	return nil
}

// CreateWithTx stores a job using an existing transaction. Used when a whole
// series is created atomically.
func (r *JobRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, job *models.Job) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	if err := r.insertJob(ctx, tx, job); err != nil {
		return err
	}
	if err := r.insertItems(ctx, tx, job.ID, job.Items); err != nil {
		return err
	}
	return r.insertAssignments(ctx, tx, job.ID, job.Assignments)
}

// BeginTx opens a transaction for multi-job writes.
func (r *JobRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin job tx: %w", err)
	}
	return tx, nil
}

func (r *JobRepository) insertJob(ctx context.Context, exec sqlx.ExtContext, job *models.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	if _, err := sqlx.NamedExecContext(ctx, exec, jobInsert, job); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (r *JobRepository) insertItems(ctx context.Context, exec sqlx.ExtContext, jobID string, items []models.JobServiceItem) error {
	now := time.Now().UTC()
	for i := range items {
		item := items[i]
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		item.JobID = jobID
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, exec, `INSERT INTO job_service_items (id, job_id, service_id, service_name, custom_name, price, duration_hours, created_at) VALUES (:id, :job_id, :service_id, :service_name, :custom_name, :price, :duration_hours, :created_at)`, &item); err != nil {
			return fmt.Errorf("insert job service item: %w", err)
		}
		items[i] = item
	}
	return nil
}

func (r *JobRepository) insertAssignments(ctx context.Context, exec sqlx.ExtContext, jobID string, assignments []models.JobAssignment) error {
	now := time.Now().UTC()
	for i := range assignments {
		a := assignments[i]
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		a.JobID = jobID
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, exec, `INSERT INTO job_assignments (id, job_id, user_id, user_email, user_name, ghl_user_id, role, created_at) VALUES (:id, :job_id, :user_id, :user_email, :user_name, :ghl_user_id, :role, :created_at)`, &a); err != nil {
			return fmt.Errorf("insert job assignment: %w", err)
		}
		assignments[i] = a
	}
	return nil
}

// FindByID loads a job with its items and assignments.
func (r *JobRepository) FindByID(ctx context.Context, id string) (*models.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE id = $1 LIMIT 1`, jobColumns)
	var job models.Job
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	if err := r.attachDetails(ctx, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) attachDetails(ctx context.Context, job *models.Job) error {
	const itemsQuery = `SELECT id, job_id, service_id, service_name, custom_name, price, duration_hours, created_at FROM job_service_items WHERE job_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &job.Items, itemsQuery, job.ID); err != nil {
		return fmt.Errorf("load job service items: %w", err)
	}
	const assignQuery = `SELECT id, job_id, user_id, user_email, user_name, ghl_user_id, role, created_at FROM job_assignments WHERE job_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &job.Assignments, assignQuery, job.ID); err != nil {
		return fmt.Errorf("load job assignments: %w", err)
	}
	return nil
}

// List returns jobs matching the filter with a total count. Items and
// assignments are attached to each result.
func (r *JobRepository) List(ctx context.Context, filter models.JobFilter) ([]models.Job, int, error) {
	base := "FROM jobs WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.JobType != nil {
		conditions = append(conditions, fmt.Sprintf("job_type = $%d", len(args)+1))
		args = append(args, *filter.JobType)
	}
	if filter.SeriesID != "" {
		conditions = append(conditions, fmt.Sprintf("series_id = $%d", len(args)+1))
		args = append(args, filter.SeriesID)
	}
	if filter.LocationID != "" {
		conditions = append(conditions, fmt.Sprintf("location_id = $%d", len(args)+1))
		args = append(args, filter.LocationID)
	}
	if filter.AssignedUser != "" {
		conditions = append(conditions, fmt.Sprintf("id IN (SELECT job_id FROM job_assignments WHERE user_id = $%d)", len(args)+1))
		args = append(args, filter.AssignedUser)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(customer_name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"scheduled_at": true,
		"created_at":   true,
		"total_price":  true,
		"status":       true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "scheduled_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s NULLS LAST LIMIT %d OFFSET %d", jobColumns, base, sortBy, order, size, offset)
	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	for i := range jobs {
		if err := r.attachDetails(ctx, &jobs[i]); err != nil {
			return nil, 0, err
		}
	}
	return jobs, total, nil
}

// ListBySeries returns all jobs of a series ordered by sequence.
func (r *JobRepository) ListBySeries(ctx context.Context, seriesID string) ([]models.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE series_id = $1 ORDER BY series_sequence ASC`, jobColumns)
	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, query, seriesID); err != nil {
		return nil, fmt.Errorf("list jobs by series: %w", err)
	}
	return jobs, nil
}

// ListByStatusScheduledBefore returns jobs in the given status whose
// scheduled time is at or before the cutoff. Used by the status sweep.
func (r *JobRepository) ListByStatusScheduledBefore(ctx context.Context, status models.JobStatus, cutoff time.Time) ([]models.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE status = $1 AND scheduled_at IS NOT NULL AND scheduled_at <= $2 ORDER BY scheduled_at ASC`, jobColumns)
	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, query, status, cutoff); err != nil {
		return nil, fmt.Errorf("list jobs by status before cutoff: %w", err)
	}
	return jobs, nil
}

// Update modifies a job's mutable fields.
func (r *JobRepository) Update(ctx context.Context, job *models.Job) error {
	job.UpdatedAt = time.Now().UTC()
	const query = `UPDATE jobs SET title = :title, description = :description, priority = :priority, duration_hours = :duration_hours, scheduled_at = :scheduled_at, total_price = :total_price, customer_name = :customer_name, customer_phone = :customer_phone, customer_email = :customer_email, customer_address = :customer_address, ghl_contact_id = :ghl_contact_id, location_id = :location_id, quoted_by = :quoted_by, job_type = :job_type, repeat_every = :repeat_every, repeat_unit = :repeat_unit, occurrences = :occurrences, day_of_week = :day_of_week, status = :status, notes = :notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// UpdateStatus transitions a job to a new status.
func (r *JobRepository) UpdateStatus(ctx context.Context, id string, status models.JobStatus) error {
	const query = `UPDATE jobs SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}

// ReplaceItems swaps a job's service items inside a transaction.
func (r *JobRepository) ReplaceItems(ctx context.Context, jobID string, items []models.JobServiceItem) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace items: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM job_service_items WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("delete job service items: %w", err)
	}
	if err = r.insertItems(ctx, tx, jobID, items); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace items: %w", err)
	}
	return nil
}

// ReplaceAssignments swaps a job's technician assignments inside a
// transaction.
func (r *JobRepository) ReplaceAssignments(ctx context.Context, jobID string, assignments []models.JobAssignment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace assignments: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM job_assignments WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("delete job assignments: %w", err)
	}
	if err = r.insertAssignments(ctx, tx, jobID, assignments); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace assignments: %w", err)
	}
	return nil
}

// Delete removes a job and its dependent rows.
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete job: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM job_occurrences WHERE job_id = $1`, id); err != nil {
		return fmt.Errorf("delete job occurrences: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM job_service_items WHERE job_id = $1`, id); err != nil {
		return fmt.Errorf("delete job service items: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM job_assignments WHERE job_id = $1`, id); err != nil {
		return fmt.Errorf("delete job assignments: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete job: %w", err)
	}
	return nil
}

// ListByAddress returns jobs whose customer address contains the given
// fragment, newest first.
func (r *JobRepository) ListByAddress(ctx context.Context, address string) ([]models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE customer_address ILIKE '%' || $1 || '%' ORDER BY scheduled_at DESC NULLS LAST`
	var jobs []models.Job
	if err := r.db.SelectContext(ctx, &jobs, query, address); err != nil {
		return nil, fmt.Errorf("list jobs by address: %w", err)
	}
	for i := range jobs {
		if err := r.attachDetails(ctx, &jobs[i]); err != nil {
			return nil, err
		}
	}
	return jobs, nil
}

// LocationRollups aggregates job activity per customer address: counts by
// status, revenue, the next upcoming visit, and the distinct service names
// ever booked there.
func (r *JobRepository) LocationRollups(ctx context.Context) ([]models.LocationRollup, error) {
	const query = `SELECT j.customer_address, COUNT(*) AS job_count, COUNT(*) FILTER (WHERE j.status = 'pending') AS pending_jobs, COUNT(*) FILTER (WHERE j.status = 'completed') AS completed_jobs, COUNT(*) FILTER (WHERE j.status = 'cancelled') AS cancelled_jobs, COALESCE(SUM(j.total_price), 0) AS total_revenue, MIN(j.scheduled_at) FILTER (WHERE j.scheduled_at >= NOW() AND j.status NOT IN ('completed', 'cancelled')) AS next_scheduled_at, COALESCE(ARRAY(SELECT DISTINCT i.service_name FROM job_service_items i JOIN jobs j2 ON j2.id = i.job_id WHERE j2.customer_address = j.customer_address AND i.service_name IS NOT NULL ORDER BY i.service_name), '{}') AS service_names FROM jobs j WHERE j.customer_address IS NOT NULL GROUP BY j.customer_address ORDER BY j.customer_address ASC`
	var rollups []models.LocationRollup
	if err := r.db.SelectContext(ctx, &rollups, query); err != nil {
		return nil, fmt.Errorf("aggregate location rollups: %w", err)
	}
	return rollups, nil
}
