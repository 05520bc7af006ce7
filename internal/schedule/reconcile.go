package schedule

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/trushine/fieldops-api/internal/models"
)

// AppointmentLookup is the read-only collaborator answering "does an
// appointment already occupy this exact slot for this assignee". A nil
// result with a nil error means no match.
type AppointmentLookup interface {
	FindMatchingSlot(ctx context.Context, startUTC, endUTC time.Time, calendarName, locationID, assignedUserID string) (*models.AppointmentDetail, error)
}

// ReservationState tags the outcome of a slot reconciliation.
type ReservationState string

const (
	// SlotReserved means an external appointment already covers the slot.
	SlotReserved ReservationState = "reserved"
	// SlotNotReserved means no candidate has a matching appointment.
	SlotNotReserved ReservationState = "not_reserved"
	// SlotIndeterminate means the window could not be derived from job data.
	SlotIndeterminate ReservationState = "indeterminate"
)

// Result is the outcome of FindReservedSlot. Appointment is set only when
// State is SlotReserved.
type Result struct {
	State       ReservationState
	Appointment *models.AppointmentDetail
}

// SlotQuery bundles the inputs for a reconciliation run. Candidates are
// scanned in order; the order is the job's assignment-creation order.
type SlotQuery struct {
	ScheduledAt   *time.Time
	DurationHours float64
	Timezone      string
	LocationID    string
	Candidates    []string
}

// Reconciler decides whether an external calendar already holds a matching
// appointment for a job's slot. It holds no mutable state and may be shared
// across goroutines.
type Reconciler struct {
	lookup       AppointmentLookup
	calendarName string
	logger       *zap.Logger
}

// NewReconciler builds a reconciler. An empty calendarName falls back to
// DefaultCalendarName.
func NewReconciler(lookup AppointmentLookup, calendarName string, logger *zap.Logger) *Reconciler {
	if calendarName == "" {
		calendarName = DefaultCalendarName
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{lookup: lookup, calendarName: calendarName, logger: logger}
}

// FindReservedSlot scans candidates in order and returns the first matching
// appointment. Lookup failures count as no-match for that candidate so one
// slow or broken query cannot abort the whole scan.
func (r *Reconciler) FindReservedSlot(ctx context.Context, q SlotQuery) Result {
	window, err := DeriveWindow(q.ScheduledAt, q.DurationHours, q.Timezone, q.LocationID)
	if err != nil {
		if !errors.Is(err, ErrIndeterminateWindow) {
			r.logger.Sugar().Warnw("slot window derivation failed", "error", err)
		}
		return Result{State: SlotIndeterminate}
	}

	for _, candidate := range q.Candidates {
		if candidate == "" {
			continue
		}
		detail, err := r.lookup.FindMatchingSlot(ctx, window.StartUTC, window.EndUTC, r.calendarName, window.LocationID, candidate)
		if err != nil {
			r.logger.Sugar().Warnw("appointment lookup failed, treating as no match",
				"assignee", candidate, "error", err)
			continue
		}
		if detail != nil {
			return Result{State: SlotReserved, Appointment: detail}
		}
	}
	return Result{State: SlotNotReserved}
}

// CandidatesWithoutReservedSlot returns the assignees that still need an
// external appointment created. When the window is indeterminate every
// candidate is returned: creating a possibly duplicate booking beats
// silently skipping a needed one.
func (r *Reconciler) CandidatesWithoutReservedSlot(ctx context.Context, q SlotQuery) []string {
	all := make([]string, 0, len(q.Candidates))
	for _, candidate := range q.Candidates {
		if candidate != "" {
			all = append(all, candidate)
		}
	}

	window, err := DeriveWindow(q.ScheduledAt, q.DurationHours, q.Timezone, q.LocationID)
	if err != nil {
		return all
	}

	without := make([]string, 0, len(all))
	for _, candidate := range all {
		detail, err := r.lookup.FindMatchingSlot(ctx, window.StartUTC, window.EndUTC, r.calendarName, window.LocationID, candidate)
		if err != nil {
			r.logger.Sugar().Warnw("appointment lookup failed, assuming unreserved",
				"assignee", candidate, "error", err)
			without = append(without, candidate)
			continue
		}
		if detail == nil {
			without = append(without, candidate)
		}
	}
	return without
}
