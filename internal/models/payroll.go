package models

import "time"

// PayScaleType determines how an employee is paid.
type PayScaleType string

const (
	PayScaleHourly  PayScaleType = "hourly"
	PayScaleProject PayScaleType = "project"
)

// EmployeeProfile extends a User with payroll settings.
type EmployeeProfile struct {
	ID           string       `db:"id" json:"id"`
	UserID       string       `db:"user_id" json:"user_id"`
	Phone        *string      `db:"phone" json:"phone,omitempty"`
	Department   string       `db:"department" json:"department"`
	Position     string       `db:"position" json:"position"`
	Timezone     string       `db:"timezone" json:"timezone"`
	PayScaleType PayScaleType `db:"pay_scale_type" json:"pay_scale_type"`
	HourlyRate   *float64     `db:"hourly_rate" json:"hourly_rate,omitempty"`
	Status       string       `db:"status" json:"status"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// CollaborationRate is the project percentage for an employee at a team size.
type CollaborationRate struct {
	ID          string    `db:"id" json:"id"`
	EmployeeID  string    `db:"employee_id" json:"employee_id"`
	MemberCount int       `db:"member_count" json:"member_count"`
	Percentage  float64   `db:"percentage" json:"percentage"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// PayoutType classifies payouts.
type PayoutType string

const (
	PayoutTypeHourly         PayoutType = "hourly"
	PayoutTypeProject        PayoutType = "project"
	PayoutTypeBonusFirstTime PayoutType = "bonus_first_time"
	PayoutTypeBonusQuotedBy  PayoutType = "bonus_quoted_by"
)

// Payout is a single amount owed to an employee.
type Payout struct {
	ID             string     `db:"id" json:"id"`
	EmployeeID     string     `db:"employee_id" json:"employee_id"`
	PayoutType     PayoutType `db:"payout_type" json:"payout_type"`
	Amount         float64    `db:"amount" json:"amount"`
	JobID          *string    `db:"job_id" json:"job_id,omitempty"`
	ProjectValue   *float64   `db:"project_value" json:"project_value,omitempty"`
	RatePercentage *float64   `db:"rate_percentage" json:"rate_percentage,omitempty"`
	ProjectTitle   *string    `db:"project_title" json:"project_title,omitempty"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// PayrollSettings holds the bonus percentages. One row only.
type PayrollSettings struct {
	ID                    string    `db:"id" json:"id"`
	FirstTimeBonusPercent float64   `db:"first_time_bonus_percentage" json:"first_time_bonus_percentage"`
	QuotedByBonusPercent  float64   `db:"quoted_by_bonus_percentage" json:"quoted_by_bonus_percentage"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}
