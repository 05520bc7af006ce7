package models

import (
	"time"

	"github.com/lib/pq"
)

// JobType distinguishes one-off work from recurring series.
type JobType string

const (
	JobTypeOneTime   JobType = "one_time"
	JobTypeRecurring JobType = "recurring"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusConfirmed  JobStatus = "confirmed"
	JobStatusServiceDue JobStatus = "service_due"
	JobStatusOnTheWay   JobStatus = "on_the_way"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// JobPriority orders jobs for dispatch.
type JobPriority string

const (
	JobPriorityLow    JobPriority = "low"
	JobPriorityMedium JobPriority = "medium"
	JobPriorityHigh   JobPriority = "high"
)

// RepeatUnit is the calendar unit of a recurrence rule.
type RepeatUnit string

const (
	RepeatUnitDay        RepeatUnit = "day"
	RepeatUnitWeek       RepeatUnit = "week"
	RepeatUnitMonth      RepeatUnit = "month"
	RepeatUnitQuarter    RepeatUnit = "quarter"
	RepeatUnitSemiAnnual RepeatUnit = "semi_annual"
	RepeatUnitYear       RepeatUnit = "year"
)

// ServiceTemplate is a user-defined service used when creating jobs directly.
type ServiceTemplate struct {
	ID                   string    `db:"id" json:"id"`
	Name                 string    `db:"name" json:"name"`
	Description          *string   `db:"description" json:"description,omitempty"`
	DefaultDurationHours float64   `db:"default_duration_hours" json:"default_duration_hours"`
	DefaultPrice         float64   `db:"default_price" json:"default_price"`
	IsActive             bool      `db:"is_active" json:"is_active"`
	CreatedBy            *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// Job is a unit of scheduled field work, created from a quote or directly.
type Job struct {
	ID            string      `db:"id" json:"id"`
	Title         *string     `db:"title" json:"title,omitempty"`
	Description   *string     `db:"description" json:"description,omitempty"`
	Priority      JobPriority `db:"priority" json:"priority"`
	DurationHours float64     `db:"duration_hours" json:"duration_hours"`
	ScheduledAt   *time.Time  `db:"scheduled_at" json:"scheduled_at,omitempty"`
	TotalPrice    float64     `db:"total_price" json:"total_price"`

	CustomerName    *string `db:"customer_name" json:"customer_name,omitempty"`
	CustomerPhone   *string `db:"customer_phone" json:"customer_phone,omitempty"`
	CustomerEmail   *string `db:"customer_email" json:"customer_email,omitempty"`
	CustomerAddress *string `db:"customer_address" json:"customer_address,omitempty"`
	GHLContactID    *string `db:"ghl_contact_id" json:"ghl_contact_id,omitempty"`
	LocationID      *string `db:"location_id" json:"location_id,omitempty"`

	QuotedBy       *string `db:"quoted_by" json:"quoted_by,omitempty"`
	CreatedBy      *string `db:"created_by" json:"created_by,omitempty"`
	CreatedByEmail *string `db:"created_by_email" json:"created_by_email,omitempty"`

	JobType     JobType     `db:"job_type" json:"job_type"`
	RepeatEvery *int        `db:"repeat_every" json:"repeat_every,omitempty"`
	RepeatUnit  *RepeatUnit `db:"repeat_unit" json:"repeat_unit,omitempty"`
	Occurrences *int        `db:"occurrences" json:"occurrences,omitempty"`
	DayOfWeek   *int        `db:"day_of_week" json:"day_of_week,omitempty"`

	SeriesID       *string `db:"series_id" json:"series_id,omitempty"`
	SeriesSequence *int    `db:"series_sequence" json:"series_sequence,omitempty"`

	Status JobStatus `db:"status" json:"status"`
	Notes  *string   `db:"notes" json:"notes,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	Items       []JobServiceItem `db:"-" json:"items,omitempty"`
	Assignments []JobAssignment  `db:"-" json:"assignments,omitempty"`
}

// JobServiceItem is one service line on a job.
type JobServiceItem struct {
	ID            string    `db:"id" json:"id"`
	JobID         string    `db:"job_id" json:"job_id"`
	ServiceID     *string   `db:"service_id" json:"service_id,omitempty"`
	ServiceName   *string   `db:"service_name" json:"service_name,omitempty"`
	CustomName    *string   `db:"custom_name" json:"custom_name,omitempty"`
	Price         float64   `db:"price" json:"price"`
	DurationHours float64   `db:"duration_hours" json:"duration_hours"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// JobAssignment links a technician to a job.
type JobAssignment struct {
	ID        string    `db:"id" json:"id"`
	JobID     string    `db:"job_id" json:"job_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	UserEmail *string   `db:"user_email" json:"user_email,omitempty"`
	UserName  *string   `db:"user_name" json:"user_name,omitempty"`
	GHLUserID *string   `db:"ghl_user_id" json:"ghl_user_id,omitempty"`
	Role      *string   `db:"role" json:"role,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// JobOccurrence is one concrete generated datetime of a job's schedule.
type JobOccurrence struct {
	ID          string    `db:"id" json:"id"`
	JobID       string    `db:"job_id" json:"job_id"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at"`
	Sequence    int       `db:"sequence" json:"sequence"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CalendarEvent is one flattened occurrence joined with its job, for
// range-based calendar views.
type CalendarEvent struct {
	JobID         string    `db:"job_id" json:"job_id"`
	Title         *string   `db:"title" json:"title,omitempty"`
	CustomerName  *string   `db:"customer_name" json:"customer_name,omitempty"`
	Status        JobStatus `db:"status" json:"status"`
	JobType       JobType   `db:"job_type" json:"job_type"`
	ScheduledAt   time.Time `db:"scheduled_at" json:"scheduled_at"`
	Sequence      int       `db:"sequence" json:"sequence"`
	DurationHours float64   `db:"duration_hours" json:"duration_hours"`
}

// LocationRollup aggregates job activity for one customer address.
type LocationRollup struct {
	CustomerAddress string         `db:"customer_address" json:"customer_address"`
	JobCount        int            `db:"job_count" json:"job_count"`
	PendingJobs     int            `db:"pending_jobs" json:"pending_jobs"`
	CompletedJobs   int            `db:"completed_jobs" json:"completed_jobs"`
	CancelledJobs   int            `db:"cancelled_jobs" json:"cancelled_jobs"`
	TotalRevenue    float64        `db:"total_revenue" json:"total_revenue"`
	NextScheduledAt *time.Time     `db:"next_scheduled_at" json:"next_scheduled_at,omitempty"`
	ServiceNames    pq.StringArray `db:"service_names" json:"service_names"`
}

// JobFilter captures job list filtering.
type JobFilter struct {
	Status       *JobStatus
	JobType      *JobType
	AssignedUser string
	SeriesID     string
	LocationID   string
	Search       string
	SortBy       string
	SortOrder    string
	Page         int
	PageSize     int
}
