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

const appointmentColumns = `id, ghl_appointment_id, title, start_time, end_time, appointment_status, calendar_id, calendar_name, location_id, assigned_user_id, ghl_contact_id, notes, address, created_at, updated_at`

// AppointmentRepository reads and syncs calendar appointments mirrored from
// GHL.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository creates a new appointment repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// FindMatchingSlot returns the appointment occupying the given UTC window on
// the named calendar for one assignee, or nil when the slot is free.
// Cancelled and invalid appointments never count as occupying a slot.
func (r *AppointmentRepository) FindMatchingSlot(ctx context.Context, startUTC, endUTC time.Time, calendarName, locationID, assignedUserID string) (*models.AppointmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE calendar_name = $1 AND location_id = $2 AND assigned_user_id = $3 AND start_time = $4 AND end_time = $5 AND (appointment_status IS NULL OR appointment_status NOT IN ('cancelled', 'invalid')) ORDER BY updated_at DESC LIMIT 1`, appointmentColumns)

	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, calendarName, locationID, assignedUserID, startUTC, endUTC); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find matching slot: %w", err)
	}
	return r.buildDetail(ctx, &appt)
}

func (r *AppointmentRepository) buildDetail(ctx context.Context, appt *models.Appointment) (*models.AppointmentDetail, error) {
	detail := &models.AppointmentDetail{
		ID:        appt.ID,
		StartTime: appt.StartTime,
		EndTime:   appt.EndTime,
	}
	if appt.GHLAppointmentID != nil {
		detail.GHLAppointmentID = *appt.GHLAppointmentID
	}
	if appt.Title != nil {
		detail.Title = *appt.Title
	}
	if appt.AppointmentStatus != nil {
		detail.AppointmentStatus = string(*appt.AppointmentStatus)
	}
	if appt.CalendarID != nil {
		detail.CalendarID = *appt.CalendarID
	}
	if appt.CalendarName != nil {
		detail.CalendarName = *appt.CalendarName
	}
	if appt.Notes != nil {
		detail.Notes = *appt.Notes
	}
	if appt.Address != nil {
		detail.Address = *appt.Address
	}

	// The assigned user and contact are looked up best-effort; a missing row
	// leaves the summary nil rather than failing the whole slot check.
	if appt.AssignedUserID != nil && *appt.AssignedUserID != "" {
		var user models.User
		const userQuery = `SELECT id, email, password_hash, full_name, role, ghl_user_id, active, last_login, created_at, updated_at FROM users WHERE ghl_user_id = $1 LIMIT 1`
		switch err := r.db.GetContext(ctx, &user, userQuery, *appt.AssignedUserID); err {
		case nil:
			detail.AssignedUser = &models.AppointmentUserSummary{ID: user.ID, Name: user.FullName, Email: user.Email}
		case sql.ErrNoRows:
		default:
			return nil, fmt.Errorf("load appointment user: %w", err)
		}
	}
	if appt.GHLContactID != nil && *appt.GHLContactID != "" {
		var contact models.Contact
		const contactQuery = `SELECT id, contact_id, first_name, last_name, phone, email, company_name, location_id, date_added FROM contacts WHERE contact_id = $1 LIMIT 1`
		switch err := r.db.GetContext(ctx, &contact, contactQuery, *appt.GHLContactID); err {
		case nil:
			summary := &models.AppointmentContactSummary{ID: contact.ContactID, Name: contact.FullName()}
			if contact.Email != nil {
				summary.Email = *contact.Email
			}
			detail.Contact = summary
		case sql.ErrNoRows:
		default:
			return nil, fmt.Errorf("load appointment contact: %w", err)
		}
	}
	return detail, nil
}

// FindByGHLAppointmentID loads an appointment by its external id.
func (r *AppointmentRepository) FindByGHLAppointmentID(ctx context.Context, ghlAppointmentID string) (*models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE ghl_appointment_id = $1 LIMIT 1`, appointmentColumns)
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, ghlAppointmentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find appointment by ghl id: %w", err)
	}
	return &appt, nil
}

// Upsert inserts or refreshes the local mirror of a GHL appointment, keyed on
// the external id.
func (r *AppointmentRepository) Upsert(ctx context.Context, appt *models.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	appt.UpdatedAt = now

	const query = `INSERT INTO appointments (id, ghl_appointment_id, title, start_time, end_time, appointment_status, calendar_id, calendar_name, location_id, assigned_user_id, ghl_contact_id, notes, address, created_at, updated_at) VALUES (:id, :ghl_appointment_id, :title, :start_time, :end_time, :appointment_status, :calendar_id, :calendar_name, :location_id, :assigned_user_id, :ghl_contact_id, :notes, :address, :created_at, :updated_at) ON CONFLICT (ghl_appointment_id) DO UPDATE SET title = EXCLUDED.title, start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time, appointment_status = EXCLUDED.appointment_status, calendar_id = EXCLUDED.calendar_id, calendar_name = EXCLUDED.calendar_name, location_id = EXCLUDED.location_id, assigned_user_id = EXCLUDED.assigned_user_id, ghl_contact_id = EXCLUDED.ghl_contact_id, notes = EXCLUDED.notes, address = EXCLUDED.address, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, appt); err != nil {
		return fmt.Errorf("upsert appointment: %w", err)
	}
	return nil
}

// DeleteByGHLAppointmentID removes the local mirror of a deleted GHL
// appointment.
func (r *AppointmentRepository) DeleteByGHLAppointmentID(ctx context.Context, ghlAppointmentID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE ghl_appointment_id = $1`, ghlAppointmentID); err != nil {
		return fmt.Errorf("delete appointment by ghl id: %w", err)
	}
	return nil
}
