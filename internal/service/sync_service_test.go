package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trushine/fieldops-api/internal/ghl"
	"github.com/trushine/fieldops-api/internal/models"
	"github.com/trushine/fieldops-api/internal/schedule"
)

type mockGHLAppointments struct {
	created    []ghl.AppointmentRequest
	deletedIDs []string
	createErr  error
	deleteErr  error
}

func (m *mockGHLAppointments) CreateAppointment(ctx context.Context, token string, req ghl.AppointmentRequest) (*ghl.Appointment, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, req)
	return &ghl.Appointment{ID: "ghl-appt-1", LocationID: req.LocationID}, nil
}

func (m *mockGHLAppointments) DeleteAppointment(ctx context.Context, token, appointmentID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedIDs = append(m.deletedIDs, appointmentID)
	return nil
}

type mockAccounts struct {
	credential *models.GHLCredential
	timezone   string
}

func (m *mockAccounts) CredentialForLocation(ctx context.Context, locationID string) (*models.GHLCredential, error) {
	if m.credential == nil {
		return nil, sql.ErrNoRows
	}
	return m.credential, nil
}

func (m *mockAccounts) Timezone(ctx context.Context, locationID string) string {
	if m.timezone == "" {
		return schedule.DefaultTimezone
	}
	return m.timezone
}

type mockCalendars struct {
	calendar *models.GHLCalendar
}

func (m *mockCalendars) FindByName(ctx context.Context, name string) (*models.GHLCalendar, error) {
	if m.calendar == nil {
		return nil, sql.ErrNoRows
	}
	return m.calendar, nil
}

type mockAppointmentMirror struct {
	slots      map[string]*models.AppointmentDetail
	upserted   []*models.Appointment
	deletedIDs []string
}

func (m *mockAppointmentMirror) FindMatchingSlot(ctx context.Context, startUTC, endUTC time.Time, calendarName, locationID, assignedUserID string) (*models.AppointmentDetail, error) {
	return m.slots[assignedUserID], nil
}

func (m *mockAppointmentMirror) Upsert(ctx context.Context, appt *models.Appointment) error {
	m.upserted = append(m.upserted, appt)
	return nil
}

func (m *mockAppointmentMirror) DeleteByGHLAppointmentID(ctx context.Context, ghlAppointmentID string) error {
	m.deletedIDs = append(m.deletedIDs, ghlAppointmentID)
	return nil
}

type mockAssignees struct {
	unreserved []string
}

func (m *mockAssignees) UnreservedAssignees(ctx context.Context, job *models.Job) []string {
	return m.unreserved
}

func syncFixtures() (*mockGHLAppointments, *mockAccounts, *mockCalendars, *mockAppointmentMirror, *mockAssignees) {
	loc := "loc-1"
	api := &mockGHLAppointments{}
	accounts := &mockAccounts{credential: &models.GHLCredential{AccessToken: "token-1", LocationID: &loc}}
	calendars := &mockCalendars{calendar: &models.GHLCalendar{GHLCalendarID: "cal-1", Name: schedule.DefaultCalendarName}}
	mirror := &mockAppointmentMirror{slots: make(map[string]*models.AppointmentDetail)}
	assignees := &mockAssignees{}
	return api, accounts, calendars, mirror, assignees
}

func newSyncService(api *mockGHLAppointments, accounts *mockAccounts, calendars *mockCalendars, mirror *mockAppointmentMirror, assignees *mockAssignees) *SyncService {
	return NewSyncService(SyncServiceConfig{
		API:          api,
		Accounts:     accounts,
		Calendars:    calendars,
		Appointments: mirror,
		Slots:        assignees,
		Enabled:      true,
	})
}

func syncableJob() *models.Job {
	loc := "loc-1"
	scheduled := time.Date(2026, 7, 8, 9, 0, 0, 0, time.UTC)
	contact := "contact-1"
	ghlUser := "ghl-user-1"
	return &models.Job{
		ID:            "job-1",
		ScheduledAt:   &scheduled,
		DurationHours: 2,
		LocationID:    &loc,
		GHLContactID:  &contact,
		Assignments:   []models.JobAssignment{{UserID: "user-1", GHLUserID: &ghlUser}},
	}
}

func TestSyncJobBooksUnreservedAssignees(t *testing.T) {
	api, accounts, calendars, mirror, assignees := syncFixtures()
	assignees.unreserved = []string{"ghl-user-1"}
	svc := newSyncService(api, accounts, calendars, mirror, assignees)

	require.NoError(t, svc.SyncJob(context.Background(), syncableJob()))

	require.Len(t, api.created, 1)
	req := api.created[0]
	assert.Equal(t, "cal-1", req.CalendarID)
	assert.Equal(t, "loc-1", req.LocationID)
	assert.Equal(t, "ghl-user-1", req.AssignedUserID)
	assert.Equal(t, "contact-1", req.ContactID)
	assert.True(t, req.IgnoreFreeSlot)

	// 09:00 clock-face in Chicago, formatted in the account timezone.
	assert.Equal(t, "2026-07-08T09:00:00-05:00", req.StartTime)
	assert.Equal(t, "2026-07-08T11:00:00-05:00", req.EndTime)

	require.Len(t, mirror.upserted, 1)
	stored := mirror.upserted[0]
	require.NotNil(t, stored.GHLAppointmentID)
	assert.Equal(t, "ghl-appt-1", *stored.GHLAppointmentID)
	require.NotNil(t, stored.StartTime)
	assert.Equal(t, time.Date(2026, 7, 8, 14, 0, 0, 0, time.UTC), stored.StartTime.UTC())
}

func TestSyncJobNoUnreservedAssigneesIsNoop(t *testing.T) {
	api, accounts, calendars, mirror, assignees := syncFixtures()
	svc := newSyncService(api, accounts, calendars, mirror, assignees)

	require.NoError(t, svc.SyncJob(context.Background(), syncableJob()))
	assert.Empty(t, api.created)
	assert.Empty(t, mirror.upserted)
}

func TestSyncJobSkipsIndeterminateWindow(t *testing.T) {
	api, accounts, calendars, mirror, assignees := syncFixtures()
	assignees.unreserved = []string{"ghl-user-1"}
	svc := newSyncService(api, accounts, calendars, mirror, assignees)

	job := syncableJob()
	job.ScheduledAt = nil
	require.NoError(t, svc.SyncJob(context.Background(), job))
	assert.Empty(t, api.created)
}

func TestSyncJobFailsWhenCalendarUnmirrored(t *testing.T) {
	api, accounts, calendars, mirror, assignees := syncFixtures()
	calendars.calendar = nil
	assignees.unreserved = []string{"ghl-user-1"}
	svc := newSyncService(api, accounts, calendars, mirror, assignees)

	err := svc.SyncJob(context.Background(), syncableJob())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not mirrored locally")
}

func TestRemoveJobAppointments(t *testing.T) {
	api, accounts, calendars, mirror, assignees := syncFixtures()
	mirror.slots["ghl-user-1"] = &models.AppointmentDetail{ID: "appt-1", GHLAppointmentID: "ghl-appt-9"}
	svc := newSyncService(api, accounts, calendars, mirror, assignees)

	require.NoError(t, svc.RemoveJobAppointments(context.Background(), syncableJob()))
	assert.Equal(t, []string{"ghl-appt-9"}, api.deletedIDs)
	assert.Equal(t, []string{"ghl-appt-9"}, mirror.deletedIDs)
}

func TestRemoveJobAppointmentsToleratesMissingUpstream(t *testing.T) {
	api, accounts, calendars, mirror, assignees := syncFixtures()
	mirror.slots["ghl-user-1"] = &models.AppointmentDetail{ID: "appt-1", GHLAppointmentID: "ghl-appt-9"}
	api.deleteErr = &ghl.APIError{Status: 404, Method: "DELETE", Path: "/calendars/events/ghl-appt-9"}
	svc := newSyncService(api, accounts, calendars, mirror, assignees)

	require.NoError(t, svc.RemoveJobAppointments(context.Background(), syncableJob()))
	assert.Equal(t, []string{"ghl-appt-9"}, mirror.deletedIDs)
}

func TestSyncListenerDisabled(t *testing.T) {
	api, accounts, calendars, mirror, assignees := syncFixtures()
	assignees.unreserved = []string{"ghl-user-1"}
	svc := NewSyncService(SyncServiceConfig{
		API: api, Accounts: accounts, Calendars: calendars, Appointments: mirror, Slots: assignees,
		Enabled: false,
	})
	svc.Start(context.Background())
	defer svc.Stop()

	svc.JobUpserted(context.Background(), syncableJob())
	assert.Empty(t, api.created)
}
