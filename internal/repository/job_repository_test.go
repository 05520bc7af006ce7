package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trushine/fieldops-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func jobRows(now time.Time, id string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "description", "priority", "duration_hours", "scheduled_at", "total_price", "customer_name", "customer_phone", "customer_email", "customer_address", "ghl_contact_id", "location_id", "quoted_by", "created_by", "created_by_email", "job_type", "repeat_every", "repeat_unit", "occurrences", "day_of_week", "series_id", "series_sequence", "status", "notes", "created_at", "updated_at"}).
		AddRow(id, "Window cleaning", nil, string(models.JobPriorityMedium), 2.0, now, 250.0, "Jane Doe", nil, nil, nil, "contact-1", "loc-1", nil, nil, nil, string(models.JobTypeOneTime), nil, nil, nil, nil, nil, nil, string(models.JobStatusConfirmed), nil, now, now)
}

func TestJobFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewJobRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + jobColumns + ` FROM jobs WHERE id = $1 LIMIT 1`)).
		WithArgs("job-1").
		WillReturnRows(jobRows(now, "job-1"))

	itemRows := sqlmock.NewRows([]string{"id", "job_id", "service_id", "service_name", "custom_name", "price", "duration_hours", "created_at"}).
		AddRow("item-1", "job-1", nil, "Exterior windows", nil, 250.0, 2.0, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, job_id, service_id, service_name, custom_name, price, duration_hours, created_at FROM job_service_items WHERE job_id = $1 ORDER BY created_at ASC`)).
		WithArgs("job-1").
		WillReturnRows(itemRows)

	assignRows := sqlmock.NewRows([]string{"id", "job_id", "user_id", "user_email", "user_name", "ghl_user_id", "role", "created_at"}).
		AddRow("assign-1", "job-1", "user-1", "tech@example.com", "Tech One", "ghl-1", nil, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, job_id, user_id, user_email, user_name, ghl_user_id, role, created_at FROM job_assignments WHERE job_id = $1 ORDER BY created_at ASC`)).
		WithArgs("job-1").
		WillReturnRows(assignRows)

	job, err := repo.FindByID(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	require.Len(t, job.Items, 1)
	assert.Equal(t, 250.0, job.Items[0].Price)
	require.Len(t, job.Assignments, 1)
	assert.Equal(t, "user-1", job.Assignments[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobCreateRunsInTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewJobRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO jobs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO job_service_items").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO job_assignments").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	job := &models.Job{
		JobType:  models.JobTypeOneTime,
		Priority: models.JobPriorityMedium,
		Status:   models.JobStatusPending,
		Items: []models.JobServiceItem{
			{ServiceName: strPtr("Exterior windows"), Price: 250, DurationHours: 2},
		},
		Assignments: []models.JobAssignment{
			{UserID: "user-1"},
		},
	}
	err := repo.Create(context.Background(), job)
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, job.ID, job.Items[0].JobID)
	assert.Equal(t, job.ID, job.Assignments[0].JobID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobUpdateStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewJobRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE jobs SET status = $2, updated_at = $3 WHERE id = $1`)).
		WithArgs("job-1", models.JobStatusServiceDue, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "job-1", models.JobStatusServiceDue)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobListByStatusScheduledBefore(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewJobRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+jobColumns+` FROM jobs WHERE status = $1 AND scheduled_at IS NOT NULL AND scheduled_at <= $2 ORDER BY scheduled_at ASC`)).
		WithArgs(models.JobStatusConfirmed, now).
		WillReturnRows(jobRows(now, "job-1"))

	jobs, err := repo.ListByStatusScheduledBefore(context.Background(), models.JobStatusConfirmed, now)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobStatusConfirmed, jobs[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobDeleteRemovesDependents(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewJobRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM job_occurrences WHERE job_id = $1`)).
		WithArgs("job-1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM job_service_items WHERE job_id = $1`)).
		WithArgs("job-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM job_assignments WHERE job_id = $1`)).
		WithArgs("job-1").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM jobs WHERE id = $1`)).
		WithArgs("job-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "job-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJobLocationRollups(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewJobRepository(db)

	next := time.Date(2026, 9, 14, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"customer_address", "job_count", "pending_jobs", "completed_jobs", "cancelled_jobs", "total_revenue", "next_scheduled_at", "service_names"}).
		AddRow("12 Oak St, Houston TX", 12, 3, 8, 1, 3200.0, next, "{Window Cleaning,Gutter Cleaning}").
		AddRow("77 Pine Ave, Katy TX", 3, 2, 1, 0, 450.0, nil, "{Window Cleaning}")
	mock.ExpectQuery("SELECT j.customer_address, COUNT").WillReturnRows(rows)

	rollups, err := repo.LocationRollups(context.Background())
	require.NoError(t, err)
	require.Len(t, rollups, 2)
	assert.Equal(t, 8, rollups[0].CompletedJobs)
	require.NotNil(t, rollups[0].NextScheduledAt)
	assert.Equal(t, next, *rollups[0].NextScheduledAt)
	assert.Equal(t, []string{"Window Cleaning", "Gutter Cleaning"}, []string(rollups[0].ServiceNames))
	assert.Equal(t, 450.0, rollups[1].TotalRevenue)
	assert.Nil(t, rollups[1].NextScheduledAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func strPtr(s string) *string {
	return &s
}
