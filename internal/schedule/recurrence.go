// Package schedule holds the recurrence and slot-reconciliation core used by
// the job tracker. Everything here is pure: identical inputs always yield
// identical outputs, with no clock or store access, so the package is safe to
// call concurrently without coordination.
package schedule

import (
	"time"

	"github.com/trushine/fieldops-api/internal/models"
	appErrors "github.com/trushine/fieldops-api/pkg/errors"
)

// Rule describes a recurring schedule anchored at a start instant. Start is
// naive wall-clock time: it reads as local time in the owning account's
// timezone and carries no offset semantics of its own.
type Rule struct {
	Start       time.Time
	RepeatEvery int
	Unit        models.RepeatUnit
	Occurrences int
	// DayOfWeek uses Monday=0 .. Sunday=6. Required for weekly rules,
	// forbidden for every other unit.
	DayOfWeek *int
}

// Occurrence is one generated datetime with its 1-based position in the series.
type Occurrence struct {
	ScheduledAt time.Time
	Sequence    int
}

func monthsPerUnit(unit models.RepeatUnit) (int, bool) {
	switch unit {
	case models.RepeatUnitMonth:
		return 1, true
	case models.RepeatUnitQuarter:
		return 3, true
	case models.RepeatUnitSemiAnnual:
		return 6, true
	case models.RepeatUnitYear:
		return 12, true
	}
	return 0, false
}

// Validate checks rule invariants without generating anything.
func (r Rule) Validate() error {
	if r.Occurrences < 1 {
		return appErrors.Clone(appErrors.ErrInvalidRule, "occurrences must be at least 1")
	}
	if r.RepeatEvery < 1 {
		return appErrors.Clone(appErrors.ErrInvalidRule, "repeat_every must be at least 1")
	}
	switch r.Unit {
	case models.RepeatUnitDay, models.RepeatUnitWeek, models.RepeatUnitMonth,
		models.RepeatUnitQuarter, models.RepeatUnitSemiAnnual, models.RepeatUnitYear:
	default:
		return appErrors.Clone(appErrors.ErrInvalidRule, "unknown repeat_unit")
	}
	if r.Unit == models.RepeatUnitWeek {
		if r.DayOfWeek == nil {
			return appErrors.Clone(appErrors.ErrInvalidRule, "day_of_week is required for weekly rules")
		}
		if *r.DayOfWeek < 0 || *r.DayOfWeek > 6 {
			return appErrors.Clone(appErrors.ErrInvalidRule, "day_of_week must be between 0 and 6")
		}
	} else if r.DayOfWeek != nil {
		return appErrors.Clone(appErrors.ErrInvalidRule, "day_of_week only applies to weekly rules")
	}
	return nil
}

// Generate expands the rule into its full occurrence series, sequence 1..N
// with non-decreasing datetimes.
//
// The first occurrence is the rule start, except for weekly rules where it is
// pulled forward (never backward) to the requested weekday. Later occurrences
// step by the repeat interval; month-family units use calendar-month
// arithmetic with the day clamped to the target month's length, so Jan 31
// plus one month lands on Feb 28/29 rather than rolling into March.
func Generate(rule Rule) ([]Occurrence, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	result := make([]Occurrence, 0, rule.Occurrences)
	current := rule.Start
	for i := 0; i < rule.Occurrences; i++ {
		if i == 0 {
			if rule.Unit == models.RepeatUnitWeek {
				current = nextWeekdayOnOrAfter(current, *rule.DayOfWeek)
			}
		} else {
			switch rule.Unit {
			case models.RepeatUnitDay:
				current = current.AddDate(0, 0, rule.RepeatEvery)
			case models.RepeatUnitWeek:
				current = current.AddDate(0, 0, 7*rule.RepeatEvery)
				// 7*N days preserves the weekday, but re-anchoring
				// unconditionally guards against drift.
				current = nextWeekdayOnOrAfter(current, *rule.DayOfWeek)
			default:
				months, _ := monthsPerUnit(rule.Unit)
				current = addMonthsClamped(current, rule.RepeatEvery*months)
			}
		}
		result = append(result, Occurrence{ScheduledAt: current, Sequence: i + 1})
	}
	return result, nil
}

// nextWeekdayOnOrAfter moves t forward to the next instance of dow
// (Monday=0 .. Sunday=6), adding zero days when t already falls on it.
func nextWeekdayOnOrAfter(t time.Time, dow int) time.Time {
	// time.Weekday counts Sunday=0; the rule encoding counts Monday=0.
	weekday := (int(t.Weekday()) + 6) % 7
	delta := (dow - weekday + 7) % 7
	if delta == 0 {
		return t
	}
	return t.AddDate(0, 0, delta)
}

// addMonthsClamped adds calendar months keeping the wall-clock time, clamping
// the day-of-month to the target month's length instead of letting time.Date
// normalize an overflow into the following month.
func addMonthsClamped(t time.Time, months int) time.Time {
	zeroBased := int(t.Month()) - 1 + months
	year := t.Year() + zeroBased/12
	month := time.Month(zeroBased%12 + 1)

	day := t.Day()
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day zero of the next month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ToJobOccurrences converts generated occurrences into persistable records
// for the given job.
func ToJobOccurrences(jobID string, occurrences []Occurrence) []models.JobOccurrence {
	out := make([]models.JobOccurrence, 0, len(occurrences))
	for _, occ := range occurrences {
		out = append(out, models.JobOccurrence{
			JobID:       jobID,
			ScheduledAt: occ.ScheduledAt,
			Sequence:    occ.Sequence,
		})
	}
	return out
}
