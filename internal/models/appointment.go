package models

import "time"

// AppointmentStatus mirrors the GHL appointment status values.
type AppointmentStatus string

const (
	AppointmentStatusNew       AppointmentStatus = "new"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusShowed    AppointmentStatus = "showed"
	AppointmentStatusNoShow    AppointmentStatus = "noshow"
	AppointmentStatusInvalid   AppointmentStatus = "invalid"
)

// Appointment is a calendar appointment synced from GHL. The sync layer owns
// writes; everything in this codebase reads it.
type Appointment struct {
	ID                string             `db:"id" json:"id"`
	GHLAppointmentID  *string            `db:"ghl_appointment_id" json:"ghl_appointment_id,omitempty"`
	Title             *string            `db:"title" json:"title,omitempty"`
	StartTime         *time.Time         `db:"start_time" json:"start_time,omitempty"`
	EndTime           *time.Time         `db:"end_time" json:"end_time,omitempty"`
	AppointmentStatus *AppointmentStatus `db:"appointment_status" json:"appointment_status,omitempty"`
	CalendarID        *string            `db:"calendar_id" json:"calendar_id,omitempty"`
	CalendarName      *string            `db:"calendar_name" json:"calendar_name,omitempty"`
	LocationID        *string            `db:"location_id" json:"location_id,omitempty"`
	AssignedUserID    *string            `db:"assigned_user_id" json:"assigned_user_id,omitempty"`
	GHLContactID      *string            `db:"ghl_contact_id" json:"ghl_contact_id,omitempty"`
	Notes             *string            `db:"notes" json:"notes,omitempty"`
	Address           *string            `db:"address" json:"address,omitempty"`
	CreatedAt         time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `db:"updated_at" json:"updated_at"`
}

// AppointmentUserSummary compacts the assigned user for slot info responses.
type AppointmentUserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AppointmentContactSummary compacts the contact for slot info responses.
type AppointmentContactSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AppointmentDetail is the snapshot returned when a slot is already reserved.
type AppointmentDetail struct {
	ID                string                     `json:"id"`
	GHLAppointmentID  string                     `json:"ghl_appointment_id,omitempty"`
	Title             string                     `json:"title,omitempty"`
	StartTime         *time.Time                 `json:"start_time,omitempty"`
	EndTime           *time.Time                 `json:"end_time,omitempty"`
	AppointmentStatus string                     `json:"appointment_status,omitempty"`
	CalendarID        string                     `json:"calendar_id,omitempty"`
	CalendarName      string                     `json:"calendar_name,omitempty"`
	AssignedUser      *AppointmentUserSummary    `json:"assigned_user,omitempty"`
	Contact           *AppointmentContactSummary `json:"contact,omitempty"`
	Notes             string                     `json:"notes,omitempty"`
	Address           string                     `json:"address,omitempty"`
}
