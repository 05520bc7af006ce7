package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trushine/fieldops-api/internal/models"
	appErrors "github.com/trushine/fieldops-api/pkg/errors"
)

type mockJobRepo struct {
	db            *sqlx.DB
	jobs          map[string]*models.Job
	statusUpdates map[string]models.JobStatus
	deleted       []string
	itemsReplaced bool
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{jobs: make(map[string]*models.Job), statusUpdates: make(map[string]models.JobStatus)}
}

func (m *mockJobRepo) store(job *models.Job) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	clone := *job
	m.jobs[job.ID] = &clone
}

func (m *mockJobRepo) Create(ctx context.Context, job *models.Job) error {
	m.store(job)
	return nil
}

func (m *mockJobRepo) CreateWithTx(ctx context.Context, tx *sqlx.Tx, job *models.Job) error {
	m.store(job)
	return nil
}

func (m *mockJobRepo) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return m.db.BeginTxx(ctx, nil)
}

func (m *mockJobRepo) FindByID(ctx context.Context, id string) (*models.Job, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *job
	return &clone, nil
}

func (m *mockJobRepo) List(ctx context.Context, filter models.JobFilter) ([]models.Job, int, error) {
	out := make([]models.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		out = append(out, *job)
	}
	return out, len(out), nil
}

func (m *mockJobRepo) ListBySeries(ctx context.Context, seriesID string) ([]models.Job, error) {
	var out []models.Job
	for _, job := range m.jobs {
		if job.SeriesID != nil && *job.SeriesID == seriesID {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *mockJobRepo) Update(ctx context.Context, job *models.Job) error {
	m.store(job)
	return nil
}

func (m *mockJobRepo) UpdateStatus(ctx context.Context, id string, status models.JobStatus) error {
	m.statusUpdates[id] = status
	if job, ok := m.jobs[id]; ok {
		job.Status = status
	}
	return nil
}

func (m *mockJobRepo) ReplaceItems(ctx context.Context, jobID string, items []models.JobServiceItem) error {
	m.itemsReplaced = true
	return nil
}

func (m *mockJobRepo) ReplaceAssignments(ctx context.Context, jobID string, assignments []models.JobAssignment) error {
	return nil
}

func (m *mockJobRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.jobs, id)
	return nil
}

func (m *mockJobRepo) ListByAddress(ctx context.Context, address string) ([]models.Job, error) {
	var out []models.Job
	for _, job := range m.jobs {
		if job.CustomerAddress != nil && strings.Contains(*job.CustomerAddress, address) {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (m *mockJobRepo) LocationRollups(ctx context.Context) ([]models.LocationRollup, error) {
	return []models.LocationRollup{{CustomerAddress: "12 Oak St, Houston TX", JobCount: 2}}, nil
}

type mockOccurrenceRepo struct {
	byJob map[string][]models.JobOccurrence
}

func newMockOccurrenceRepo() *mockOccurrenceRepo {
	return &mockOccurrenceRepo{byJob: make(map[string][]models.JobOccurrence)}
}

func (m *mockOccurrenceRepo) ListByJob(ctx context.Context, jobID string) ([]models.JobOccurrence, error) {
	return m.byJob[jobID], nil
}

func (m *mockOccurrenceRepo) ListBetween(ctx context.Context, from, to time.Time) ([]models.CalendarEvent, error) {
	var out []models.CalendarEvent
	for jobID, occs := range m.byJob {
		for _, occ := range occs {
			if !occ.ScheduledAt.Before(from) && occ.ScheduledAt.Before(to) {
				out = append(out, models.CalendarEvent{JobID: jobID, ScheduledAt: occ.ScheduledAt, Sequence: occ.Sequence})
			}
		}
	}
	return out, nil
}

func (m *mockOccurrenceRepo) ReplaceForJob(ctx context.Context, jobID string, occurrences []models.JobOccurrence) error {
	m.byJob[jobID] = occurrences
	return nil
}

func (m *mockOccurrenceRepo) InsertForJobWithTx(ctx context.Context, tx *sqlx.Tx, jobID string, occurrences []models.JobOccurrence) error {
	m.byJob[jobID] = occurrences
	return nil
}

type recordingListener struct {
	upserted  []string
	deleted   []string
	completed []string
}

func (l *recordingListener) JobUpserted(ctx context.Context, job *models.Job) {
	l.upserted = append(l.upserted, job.ID)
}

func (l *recordingListener) JobDeleted(ctx context.Context, job *models.Job) {
	l.deleted = append(l.deleted, job.ID)
}

func (l *recordingListener) JobCompleted(ctx context.Context, job *models.Job) {
	l.completed = append(l.completed, job.ID)
}

func newJobService(t *testing.T, repo *mockJobRepo) (*JobService, *mockOccurrenceRepo) {
	t.Helper()
	occurrences := newMockOccurrenceRepo()
	return NewJobService(repo, occurrences, nil, nil), occurrences
}

func recurringRequest(start time.Time) CreateJobRequest {
	every := 1
	unit := models.RepeatUnitMonth
	count := 3
	return CreateJobRequest{
		ScheduledAt:   &start,
		DurationHours: 2,
		JobType:       models.JobTypeRecurring,
		RepeatEvery:   &every,
		RepeatUnit:    &unit,
		Occurrences:   &count,
	}
}

func TestJobCreateOneTime(t *testing.T) {
	repo := newMockJobRepo()
	svc, occurrences := newJobService(t, repo)
	listener := &recordingListener{}
	svc.AddListener(listener)

	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	job, err := svc.Create(context.Background(), CreateJobRequest{
		ScheduledAt:   &start,
		DurationHours: 1.5,
		JobType:       models.JobTypeOneTime,
		Items: []JobItemRequest{
			{Price: 200, DurationHours: 1.5},
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, 200.0, job.TotalPrice)
	require.Len(t, occurrences.byJob[job.ID], 1)
	assert.Equal(t, 1, occurrences.byJob[job.ID][0].Sequence)
	assert.Equal(t, []string{job.ID}, listener.upserted)
}

func TestJobCreateRecurringGeneratesOccurrences(t *testing.T) {
	repo := newMockJobRepo()
	svc, occurrences := newJobService(t, repo)

	start := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)
	job, err := svc.Create(context.Background(), recurringRequest(start))
	require.NoError(t, err)

	stored := occurrences.byJob[job.ID]
	require.Len(t, stored, 3)
	assert.Equal(t, start, stored[0].ScheduledAt)
	// January 31 clamps to the end of February and stays clamped.
	assert.Equal(t, time.Date(2026, 2, 28, 10, 0, 0, 0, time.UTC), stored[1].ScheduledAt)
	assert.Equal(t, time.Date(2026, 3, 28, 10, 0, 0, 0, time.UTC), stored[2].ScheduledAt)
}

func TestJobCreateRecurringMissingRule(t *testing.T) {
	repo := newMockJobRepo()
	svc, _ := newJobService(t, repo)

	start := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)
	req := recurringRequest(start)
	req.RepeatUnit = nil

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRule.Code, appErrors.FromError(err).Code)
}

func TestJobCreateSeries(t *testing.T) {
	rawDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	db := sqlx.NewDb(rawDB, "sqlmock")
	defer db.Close()

	repo := newMockJobRepo()
	repo.db = db
	svc, _ := newJobService(t, repo)
	listener := &recordingListener{}
	svc.AddListener(listener)

	mock.ExpectBegin()
	mock.ExpectCommit()

	start := time.Date(2026, 4, 15, 8, 0, 0, 0, time.UTC)
	jobs, err := svc.CreateSeries(context.Background(), recurringRequest(start))
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	seriesID := jobs[0].SeriesID
	require.NotNil(t, seriesID)
	for i, member := range jobs {
		require.NotNil(t, member.SeriesID)
		assert.Equal(t, *seriesID, *member.SeriesID)
		require.NotNil(t, member.SeriesSequence)
		assert.Equal(t, i+1, *member.SeriesSequence)
		require.NotNil(t, member.ScheduledAt)
		assert.Equal(t, start.AddDate(0, i, 0), *member.ScheduledAt)
	}
	assert.Len(t, listener.upserted, 3)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobCreateSeriesRejectsOneTime(t *testing.T) {
	repo := newMockJobRepo()
	svc, _ := newJobService(t, repo)

	start := time.Date(2026, 4, 15, 8, 0, 0, 0, time.UTC)
	_, err := svc.CreateSeries(context.Background(), CreateJobRequest{
		ScheduledAt: &start,
		JobType:     models.JobTypeOneTime,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRule.Code, appErrors.FromError(err).Code)
}

func TestJobUpdateRebuildsOccurrencesOnScheduleChange(t *testing.T) {
	repo := newMockJobRepo()
	svc, occurrences := newJobService(t, repo)

	start := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)
	job, err := svc.Create(context.Background(), recurringRequest(start))
	require.NoError(t, err)
	require.Len(t, occurrences.byJob[job.ID], 3)

	count := 5
	_, err = svc.Update(context.Background(), job.ID, UpdateJobRequest{Occurrences: &count})
	require.NoError(t, err)
	assert.Len(t, occurrences.byJob[job.ID], 5)
}

func TestJobUpdateStatusCompletedIsFinal(t *testing.T) {
	repo := newMockJobRepo()
	svc, _ := newJobService(t, repo)
	listener := &recordingListener{}
	svc.AddListener(listener)

	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	job, err := svc.Create(context.Background(), CreateJobRequest{
		ScheduledAt: &start,
		JobType:     models.JobTypeOneTime,
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), job.ID, models.JobStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, []string{job.ID}, listener.completed)

	_, err = svc.UpdateStatus(context.Background(), job.ID, models.JobStatusPending)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrJobCompleted.Code, appErrors.FromError(err).Code)
}

func TestJobUpdateStatusRejectsUnknownStatus(t *testing.T) {
	repo := newMockJobRepo()
	svc, _ := newJobService(t, repo)

	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	job, err := svc.Create(context.Background(), CreateJobRequest{ScheduledAt: &start, JobType: models.JobTypeOneTime})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), job.ID, models.JobStatus("paused"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestJobDeleteNotifiesListeners(t *testing.T) {
	repo := newMockJobRepo()
	svc, _ := newJobService(t, repo)
	listener := &recordingListener{}
	svc.AddListener(listener)

	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	job, err := svc.Create(context.Background(), CreateJobRequest{ScheduledAt: &start, JobType: models.JobTypeOneTime})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), job.ID))
	assert.Equal(t, []string{job.ID}, repo.deleted)
	assert.Equal(t, []string{job.ID}, listener.deleted)
}

func TestJobGetNotFound(t *testing.T) {
	repo := newMockJobRepo()
	svc, _ := newJobService(t, repo)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestJobsAtAddressRequiresAddress(t *testing.T) {
	repo := newMockJobRepo()
	svc, _ := newJobService(t, repo)

	_, err := svc.JobsAtAddress(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestJobsAtAddressMatchesFragment(t *testing.T) {
	repo := newMockJobRepo()
	svc, _ := newJobService(t, repo)

	address := "123 Main St, Houston TX"
	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	job, err := svc.Create(context.Background(), CreateJobRequest{
		ScheduledAt:   &start,
		DurationHours: 1,
		JobType:       models.JobTypeOneTime,
	})
	require.NoError(t, err)
	job.CustomerAddress = &address
	repo.jobs[job.ID] = job

	jobs, err := svc.JobsAtAddress(context.Background(), "Main St")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, job.ID, jobs[0].ID)
}

func TestJobQuotedBySetOnCreateAndUpdate(t *testing.T) {
	repo := newMockJobRepo()
	svc, _ := newJobService(t, repo)

	start := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	quoter := "user-7"
	job, err := svc.Create(context.Background(), CreateJobRequest{
		ScheduledAt: &start,
		JobType:     models.JobTypeOneTime,
		QuotedBy:    &quoter,
	})
	require.NoError(t, err)
	require.NotNil(t, job.QuotedBy)
	assert.Equal(t, "user-7", *job.QuotedBy)

	other := "user-8"
	updated, err := svc.Update(context.Background(), job.ID, UpdateJobRequest{QuotedBy: &other})
	require.NoError(t, err)
	require.NotNil(t, updated.QuotedBy)
	assert.Equal(t, "user-8", *updated.QuotedBy)
}

func TestJobCalendarRangeFlattensOccurrences(t *testing.T) {
	repo := newMockJobRepo()
	svc, occurrences := newJobService(t, repo)

	start := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)
	job, err := svc.Create(context.Background(), recurringRequest(start))
	require.NoError(t, err)
	require.Len(t, occurrences.byJob[job.ID], 3)

	events, err := svc.CalendarRange(context.Background(), start, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, job.ID, ev.JobID)
	}
}

func TestJobCalendarRangeValidatesBounds(t *testing.T) {
	repo := newMockJobRepo()
	svc, _ := newJobService(t, repo)

	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.CalendarRange(context.Background(), from, from.Add(-time.Hour))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
