package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trushine/fieldops-api/internal/models"
)

// PayrollRepository persists employee profiles, collaboration rates, payouts
// and the payroll settings row.
type PayrollRepository struct {
	db *sqlx.DB
}

// NewPayrollRepository creates a new payroll repository.
func NewPayrollRepository(db *sqlx.DB) *PayrollRepository {
	return &PayrollRepository{db: db}
}

// FindProfileByUserID returns the employee profile linked to a user.
func (r *PayrollRepository) FindProfileByUserID(ctx context.Context, userID string) (*models.EmployeeProfile, error) {
	const query = `SELECT id, user_id, phone, department, position, timezone, pay_scale_type, hourly_rate, status, created_at, updated_at FROM employee_profiles WHERE user_id = $1 LIMIT 1`
	var profile models.EmployeeProfile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find employee profile: %w", err)
	}
	return &profile, nil
}

// FindCollaborationRate returns the project percentage for an employee at a
// given team size.
func (r *PayrollRepository) FindCollaborationRate(ctx context.Context, employeeID string, memberCount int) (*models.CollaborationRate, error) {
	const query = `SELECT id, employee_id, member_count, percentage, created_at, updated_at FROM collaboration_rates WHERE employee_id = $1 AND member_count = $2 LIMIT 1`
	var rate models.CollaborationRate
	if err := r.db.GetContext(ctx, &rate, query, employeeID, memberCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find collaboration rate: %w", err)
	}
	return &rate, nil
}

// ListCollaborationRates returns the full project rate matrix, ordered by
// employee and team size.
func (r *PayrollRepository) ListCollaborationRates(ctx context.Context) ([]models.CollaborationRate, error) {
	const query = `SELECT id, employee_id, member_count, percentage, created_at, updated_at FROM collaboration_rates ORDER BY employee_id ASC, member_count ASC`
	var rates []models.CollaborationRate
	if err := r.db.SelectContext(ctx, &rates, query); err != nil {
		return nil, fmt.Errorf("list collaboration rates: %w", err)
	}
	return rates, nil
}

// PayoutExists reports whether a payout of the given type was already
// recorded for an employee and job. Guards against double payment when a job
// is completed twice.
func (r *PayrollRepository) PayoutExists(ctx context.Context, employeeID, jobID string, payoutType models.PayoutType) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM payouts WHERE employee_id = $1 AND job_id = $2 AND payout_type = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, employeeID, jobID, payoutType); err != nil {
		return false, fmt.Errorf("check payout exists: %w", err)
	}
	return exists, nil
}

// CreatePayout records a payout.
func (r *PayrollRepository) CreatePayout(ctx context.Context, payout *models.Payout) error {
	if payout.ID == "" {
		payout.ID = uuid.NewString()
	}
	if payout.CreatedAt.IsZero() {
		payout.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO payouts (id, employee_id, payout_type, amount, job_id, project_value, rate_percentage, project_title, notes, created_at) VALUES (:id, :employee_id, :payout_type, :amount, :job_id, :project_value, :rate_percentage, :project_title, :notes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payout); err != nil {
		return fmt.Errorf("create payout: %w", err)
	}
	return nil
}

// ListPayoutsByEmployee returns an employee's payouts within [from, to).
func (r *PayrollRepository) ListPayoutsByEmployee(ctx context.Context, employeeID string, from, to time.Time) ([]models.Payout, error) {
	const query = `SELECT id, employee_id, payout_type, amount, job_id, project_value, rate_percentage, project_title, notes, created_at FROM payouts WHERE employee_id = $1 AND created_at >= $2 AND created_at < $3 ORDER BY created_at DESC`
	var payouts []models.Payout
	if err := r.db.SelectContext(ctx, &payouts, query, employeeID, from, to); err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}
	return payouts, nil
}

// GetSettings returns the single payroll settings row.
func (r *PayrollRepository) GetSettings(ctx context.Context) (*models.PayrollSettings, error) {
	const query = `SELECT id, first_time_bonus_percentage, quoted_by_bonus_percentage, updated_at FROM payroll_settings ORDER BY updated_at DESC LIMIT 1`
	var settings models.PayrollSettings
	if err := r.db.GetContext(ctx, &settings, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get payroll settings: %w", err)
	}
	return &settings, nil
}
