package ghl

import (
	"context"
	"net/http"
	"time"
)

// AppointmentRequest is the payload for creating or updating a calendar
// appointment. Times are RFC 3339 strings in the location's timezone, as the
// GHL calendar API expects.
type AppointmentRequest struct {
	CalendarID        string `json:"calendarId"`
	LocationID        string `json:"locationId"`
	ContactID         string `json:"contactId,omitempty"`
	AssignedUserID    string `json:"assignedUserId,omitempty"`
	Title             string `json:"title,omitempty"`
	StartTime         string `json:"startTime"`
	EndTime           string `json:"endTime"`
	Address           string `json:"address,omitempty"`
	AppointmentStatus string `json:"appointmentStatus,omitempty"`
	IgnoreFreeSlot    bool   `json:"ignoreFreeSlotValidation"`
	ToNotify          bool   `json:"toNotify"`
}

// Appointment is the GHL representation of a calendar appointment.
type Appointment struct {
	ID                string `json:"id"`
	CalendarID        string `json:"calendarId"`
	LocationID        string `json:"locationId"`
	ContactID         string `json:"contactId"`
	AssignedUserID    string `json:"assignedUserId"`
	Title             string `json:"title"`
	StartTime         string `json:"startTime"`
	EndTime           string `json:"endTime"`
	Address           string `json:"address"`
	AppointmentStatus string `json:"appointmentStatus"`
}

// StartAt parses the appointment start time.
func (a *Appointment) StartAt() (time.Time, error) {
	return time.Parse(time.RFC3339, a.StartTime)
}

// CreateAppointment books an appointment on a calendar.
func (c *Client) CreateAppointment(ctx context.Context, token string, req AppointmentRequest) (*Appointment, error) {
	var resp Appointment
	if err := c.do(ctx, http.MethodPost, "/calendars/events/appointments", token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateAppointment modifies an existing appointment.
func (c *Client) UpdateAppointment(ctx context.Context, token, appointmentID string, req AppointmentRequest) (*Appointment, error) {
	var resp Appointment
	if err := c.do(ctx, http.MethodPut, "/calendars/events/appointments/"+appointmentID, token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteAppointment removes an appointment from the calendar.
func (c *Client) DeleteAppointment(ctx context.Context, token, appointmentID string) error {
	return c.do(ctx, http.MethodDelete, "/calendars/events/"+appointmentID, token, nil, nil)
}

// GetAppointment fetches one appointment by id.
func (c *Client) GetAppointment(ctx context.Context, token, appointmentID string) (*Appointment, error) {
	var resp struct {
		Appointment Appointment `json:"appointment"`
	}
	if err := c.do(ctx, http.MethodGet, "/calendars/events/appointments/"+appointmentID, token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Appointment, nil
}
