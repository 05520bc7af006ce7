package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trushine/fieldops-api/internal/models"
)

func TestReplaceForJobSwapsRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOccurrenceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM job_occurrences WHERE job_id = $1`)).
		WithArgs("job-1").WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("INSERT INTO job_occurrences").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO job_occurrences").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	occurrences := []models.JobOccurrence{
		{ScheduledAt: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), Sequence: 1},
		{ScheduledAt: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC), Sequence: 2},
	}
	err := repo.ReplaceForJob(context.Background(), "job-1", occurrences)
	require.NoError(t, err)
	assert.Equal(t, "job-1", occurrences[0].JobID)
	assert.NotEmpty(t, occurrences[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceForJobEmptySetClearsRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOccurrenceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM job_occurrences WHERE job_id = $1`)).
		WithArgs("job-1").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := repo.ReplaceForJob(context.Background(), "job-1", nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByJobOrdersBySequence(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOccurrenceRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "job_id", "scheduled_at", "sequence", "created_at"}).
		AddRow("occ-1", "job-1", now, 1, now).
		AddRow("occ-2", "job-1", now.AddDate(0, 1, 0), 2, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, job_id, scheduled_at, sequence, created_at FROM job_occurrences WHERE job_id = $1 ORDER BY sequence ASC`)).
		WithArgs("job-1").
		WillReturnRows(rows)

	occurrences, err := repo.ListByJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Len(t, occurrences, 2)
	assert.Equal(t, 1, occurrences[0].Sequence)
	assert.Equal(t, 2, occurrences[1].Sequence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBetweenJoinsJobs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewOccurrenceRepository(db)

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	rows := sqlmock.NewRows([]string{"job_id", "title", "customer_name", "status", "job_type", "scheduled_at", "sequence", "duration_hours"}).
		AddRow("job-1", "Storefront wash", "Acme Retail", "confirmed", "recurring", from.AddDate(0, 0, 3), 2, 2.0).
		AddRow("job-2", nil, nil, "pending", "one_time", from.AddDate(0, 0, 10), 1, 1.5)
	mock.ExpectQuery("SELECT o.job_id, j.title").
		WithArgs(from, to, models.JobStatusCancelled).
		WillReturnRows(rows)

	events, err := repo.ListBetween(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "job-1", events[0].JobID)
	assert.Equal(t, 2, events[0].Sequence)
	assert.Nil(t, events[1].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}
