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

// CalendarRepository mirrors GHL calendars locally.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository creates a new calendar repository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// FindByName returns the calendar with the given display name.
func (r *CalendarRepository) FindByName(ctx context.Context, name string) (*models.GHLCalendar, error) {
	const query = `SELECT id, ghl_calendar_id, name, description, calendar_type, created_at, updated_at FROM ghl_calendars WHERE name = $1 LIMIT 1`
	var cal models.GHLCalendar
	if err := r.db.GetContext(ctx, &cal, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find calendar by name: %w", err)
	}
	return &cal, nil
}

// Upsert inserts or refreshes a mirrored calendar, keyed on the GHL id.
func (r *CalendarRepository) Upsert(ctx context.Context, cal *models.GHLCalendar) error {
	if cal.ID == "" {
		cal.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if cal.CreatedAt.IsZero() {
		cal.CreatedAt = now
	}
	cal.UpdatedAt = now

	const query = `INSERT INTO ghl_calendars (id, ghl_calendar_id, name, description, calendar_type, created_at, updated_at) VALUES (:id, :ghl_calendar_id, :name, :description, :calendar_type, :created_at, :updated_at) ON CONFLICT (ghl_calendar_id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description, calendar_type = EXCLUDED.calendar_type, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, cal); err != nil {
		return fmt.Errorf("upsert calendar: %w", err)
	}
	return nil
}
