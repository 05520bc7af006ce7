package models

import "time"

// GHLCredential stores the OAuth credentials and settings for one GHL location.
type GHLCredential struct {
	ID           string    `db:"id" json:"id"`
	GHLUserID    string    `db:"ghl_user_id" json:"ghl_user_id"`
	AccessToken  string    `db:"access_token" json:"-"`
	RefreshToken string    `db:"refresh_token" json:"-"`
	ExpiresIn    int       `db:"expires_in" json:"expires_in"`
	CompanyID    *string   `db:"company_id" json:"company_id,omitempty"`
	LocationID   *string   `db:"location_id" json:"location_id,omitempty"`
	Timezone     *string   `db:"timezone" json:"timezone,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Contact mirrors a GHL contact synced into the local store.
type Contact struct {
	ID          string     `db:"id" json:"id"`
	ContactID   string     `db:"contact_id" json:"contact_id"`
	FirstName   *string    `db:"first_name" json:"first_name,omitempty"`
	LastName    *string    `db:"last_name" json:"last_name,omitempty"`
	Phone       *string    `db:"phone" json:"phone,omitempty"`
	Email       *string    `db:"email" json:"email,omitempty"`
	CompanyName *string    `db:"company_name" json:"company_name,omitempty"`
	LocationID  string     `db:"location_id" json:"location_id"`
	DateAdded   *time.Time `db:"date_added" json:"date_added,omitempty"`
}

// FullName joins first and last names, tolerating missing parts.
func (c *Contact) FullName() string {
	first, last := "", ""
	if c.FirstName != nil {
		first = *c.FirstName
	}
	if c.LastName != nil {
		last = *c.LastName
	}
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

// GHLCalendar mirrors a GHL calendar record.
type GHLCalendar struct {
	ID            string    `db:"id" json:"id"`
	GHLCalendarID string    `db:"ghl_calendar_id" json:"ghl_calendar_id"`
	Name          string    `db:"name" json:"name"`
	Description   *string   `db:"description" json:"description,omitempty"`
	CalendarType  *string   `db:"calendar_type" json:"calendar_type,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
