package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestDeriveWindowChicagoDST(t *testing.T) {
	// July: America/Chicago is CDT (UTC-5).
	scheduled := time.Date(2024, 7, 10, 9, 0, 0, 0, time.UTC)
	window, err := DeriveWindow(timePtr(scheduled), 2, "America/Chicago", "loc-1")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 7, 10, 14, 0, 0, 0, time.UTC), window.StartUTC)
	assert.Equal(t, time.Date(2024, 7, 10, 16, 0, 0, 0, time.UTC), window.EndUTC)
	assert.Equal(t, "loc-1", window.LocationID)
}

func TestDeriveWindowChicagoStandardTime(t *testing.T) {
	// January: America/Chicago is CST (UTC-6).
	scheduled := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	window, err := DeriveWindow(timePtr(scheduled), 1.5, "America/Chicago", "loc-1")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC), window.StartUTC)
	assert.Equal(t, time.Date(2024, 1, 10, 16, 30, 0, 0, time.UTC), window.EndUTC)
}

func TestDeriveWindowDiscardsStoredOffset(t *testing.T) {
	// The clock face is authoritative: 09:00 stored with any offset still
	// means 09:00 local in the account timezone.
	eastern, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	scheduled := time.Date(2024, 7, 10, 9, 0, 0, 0, eastern)

	window, err := DeriveWindow(timePtr(scheduled), 1, "America/Chicago", "loc-1")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 7, 10, 14, 0, 0, 0, time.UTC), window.StartUTC)
}

func TestDeriveWindowFallsBackToDefaultTimezone(t *testing.T) {
	scheduled := time.Date(2024, 7, 10, 9, 0, 0, 0, time.UTC)

	fromBad, err := DeriveWindow(timePtr(scheduled), 1, "Not/AZone", "loc-1")
	require.NoError(t, err)
	fromEmpty, err := DeriveWindow(timePtr(scheduled), 1, "", "loc-1")
	require.NoError(t, err)
	fromDefault, err := DeriveWindow(timePtr(scheduled), 1, DefaultTimezone, "loc-1")
	require.NoError(t, err)

	assert.Equal(t, fromDefault, fromBad)
	assert.Equal(t, fromDefault, fromEmpty)
}

func TestDeriveWindowIndeterminate(t *testing.T) {
	scheduled := time.Date(2024, 7, 10, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name        string
		scheduledAt *time.Time
		duration    float64
		locationID  string
	}{
		{"nil scheduled_at", nil, 2, "loc-1"},
		{"zero duration", timePtr(scheduled), 0, "loc-1"},
		{"negative duration", timePtr(scheduled), -1, "loc-1"},
		{"empty location", timePtr(scheduled), 2, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DeriveWindow(tc.scheduledAt, tc.duration, "America/Chicago", tc.locationID)
			assert.ErrorIs(t, err, ErrIndeterminateWindow)
		})
	}
}

func TestDeriveWindowIsDeterministic(t *testing.T) {
	scheduled := time.Date(2024, 11, 3, 1, 30, 0, 0, time.UTC)
	first, err := DeriveWindow(timePtr(scheduled), 3, "America/Chicago", "loc-1")
	require.NoError(t, err)
	second, err := DeriveWindow(timePtr(scheduled), 3, "America/Chicago", "loc-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
