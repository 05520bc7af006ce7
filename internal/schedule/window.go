package schedule

import (
	"errors"
	"time"
)

// DefaultTimezone is used whenever an account's timezone is missing or does
// not resolve to a valid IANA zone.
const DefaultTimezone = "America/Chicago"

// DefaultCalendarName is the external calendar that recurring service
// appointments are booked against. Treated as an opaque matching constant;
// the spelling matches the calendar as it exists in GHL.
const DefaultCalendarName = "Reccuring Service Calendar"

// ErrIndeterminateWindow reports that a slot window cannot be derived from
// the available job data. It is an expected runtime condition, not a fault:
// callers on write paths treat it as "assume nothing is reserved", read paths
// surface it as unknown.
var ErrIndeterminateWindow = errors.New("slot window indeterminate")

// Window is the UTC interval a job occupies on the external calendar.
type Window struct {
	StartUTC   time.Time
	EndUTC     time.Time
	LocationID string
}

// DeriveWindow computes the UTC slot window for a scheduled job.
//
// scheduledAt is reinterpreted as local wall-clock time in tz: any offset the
// stored value carries is discarded and the clock-face reading is localized.
// This mirrors how the upstream system stored schedule times without timezone
// tagging; the clock face, not the absolute instant, is authoritative.
// Changing this would change which external appointments match, so it stays.
func DeriveWindow(scheduledAt *time.Time, durationHours float64, tz string, locationID string) (Window, error) {
	if scheduledAt == nil || durationHours <= 0 || locationID == "" {
		return Window{}, ErrIndeterminateWindow
	}

	loc, err := time.LoadLocation(tz)
	if err != nil || tz == "" {
		loc, _ = time.LoadLocation(DefaultTimezone)
	}

	t := *scheduledAt
	localStart := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
	localEnd := localStart.Add(time.Duration(durationHours * float64(time.Hour)))

	return Window{
		StartUTC:   localStart.UTC(),
		EndUTC:     localEnd.UTC(),
		LocationID: locationID,
	}, nil
}
