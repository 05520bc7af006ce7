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

func TestFindMatchingSlotReturnsDetail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	start := time.Date(2024, 7, 10, 14, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	now := time.Now()

	apptRows := sqlmock.NewRows([]string{"id", "ghl_appointment_id", "title", "start_time", "end_time", "appointment_status", "calendar_id", "calendar_name", "location_id", "assigned_user_id", "ghl_contact_id", "notes", "address", "created_at", "updated_at"}).
		AddRow("appt-1", "ghl-appt-1", "Recurring wash", start, end, string(models.AppointmentStatusConfirmed), "cal-1", "Reccuring Service Calendar", "loc-1", "ghl-user-1", "contact-1", nil, "123 Main St", now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+appointmentColumns+` FROM appointments WHERE calendar_name = $1 AND location_id = $2 AND assigned_user_id = $3 AND start_time = $4 AND end_time = $5`)).
		WithArgs("Reccuring Service Calendar", "loc-1", "ghl-user-1", start, end).
		WillReturnRows(apptRows)

	userRows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "ghl_user_id", "active", "last_login", "created_at", "updated_at"}).
		AddRow("user-1", "tech@example.com", "hash", "Tech One", string(models.RoleTechnician), "ghl-user-1", true, now, now, now)
	mock.ExpectQuery("SELECT id, email, password_hash").WithArgs("ghl-user-1").WillReturnRows(userRows)

	contactRows := sqlmock.NewRows([]string{"id", "contact_id", "first_name", "last_name", "phone", "email", "company_name", "location_id", "date_added"}).
		AddRow("c-1", "contact-1", "Jane", "Doe", nil, "jane@example.com", nil, "loc-1", now)
	mock.ExpectQuery("SELECT id, contact_id").WithArgs("contact-1").WillReturnRows(contactRows)

	detail, err := repo.FindMatchingSlot(context.Background(), start, end, "Reccuring Service Calendar", "loc-1", "ghl-user-1")
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, "appt-1", detail.ID)
	assert.Equal(t, "ghl-appt-1", detail.GHLAppointmentID)
	require.NotNil(t, detail.AssignedUser)
	assert.Equal(t, "Tech One", detail.AssignedUser.Name)
	require.NotNil(t, detail.Contact)
	assert.Equal(t, "Jane Doe", detail.Contact.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindMatchingSlotEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	start := time.Date(2024, 7, 10, 14, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	mock.ExpectQuery("SELECT .+ FROM appointments").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	detail, err := repo.FindMatchingSlot(context.Background(), start, end, "Reccuring Service Calendar", "loc-1", "ghl-user-1")
	require.NoError(t, err)
	assert.Nil(t, detail)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindMatchingSlotMissingUserRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	start := time.Date(2024, 7, 10, 14, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	now := time.Now()

	apptRows := sqlmock.NewRows([]string{"id", "ghl_appointment_id", "title", "start_time", "end_time", "appointment_status", "calendar_id", "calendar_name", "location_id", "assigned_user_id", "ghl_contact_id", "notes", "address", "created_at", "updated_at"}).
		AddRow("appt-1", "ghl-appt-1", nil, start, end, nil, nil, nil, "loc-1", "ghl-user-9", nil, nil, nil, now, now)
	mock.ExpectQuery("SELECT .+ FROM appointments").WillReturnRows(apptRows)
	mock.ExpectQuery("SELECT id, email, password_hash").
		WithArgs("ghl-user-9").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	detail, err := repo.FindMatchingSlot(context.Background(), start, end, "Reccuring Service Calendar", "loc-1", "ghl-user-9")
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Nil(t, detail.AssignedUser)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentUpsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectExec("INSERT INTO appointments").WillReturnResult(sqlmock.NewResult(1, 1))

	ghlID := "ghl-appt-1"
	appt := &models.Appointment{GHLAppointmentID: &ghlID}
	err := repo.Upsert(context.Background(), appt)
	require.NoError(t, err)
	assert.NotEmpty(t, appt.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
