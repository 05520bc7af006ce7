package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trushine/fieldops-api/internal/models"
)

const contactColumns = `id, contact_id, first_name, last_name, phone, email, company_name, location_id, date_added`

// ContactRepository mirrors GHL contacts locally.
type ContactRepository struct {
	db *sqlx.DB
}

// NewContactRepository creates a new contact repository.
func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// FindByContactID returns a contact by its GHL contact id.
func (r *ContactRepository) FindByContactID(ctx context.Context, contactID string) (*models.Contact, error) {
	query := fmt.Sprintf(`SELECT %s FROM contacts WHERE contact_id = $1 LIMIT 1`, contactColumns)
	var contact models.Contact
	if err := r.db.GetContext(ctx, &contact, query, contactID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find contact by id: %w", err)
	}
	return &contact, nil
}

// Search returns contacts matching a name, email or phone fragment.
func (r *ContactRepository) Search(ctx context.Context, term string, limit int) ([]models.Contact, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM contacts WHERE LOWER(first_name) LIKE $1 OR LOWER(last_name) LIKE $1 OR LOWER(email) LIKE $1 OR phone LIKE $1 ORDER BY first_name ASC LIMIT %d`, contactColumns, limit)
	var contacts []models.Contact
	pattern := "%" + term + "%"
	if err := r.db.SelectContext(ctx, &contacts, query, pattern); err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	return contacts, nil
}

// Upsert inserts or refreshes a mirrored contact, keyed on the GHL contact id.
func (r *ContactRepository) Upsert(ctx context.Context, contact *models.Contact) error {
	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}
	const query = `INSERT INTO contacts (id, contact_id, first_name, last_name, phone, email, company_name, location_id, date_added) VALUES (:id, :contact_id, :first_name, :last_name, :phone, :email, :company_name, :location_id, :date_added) ON CONFLICT (contact_id) DO UPDATE SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name, phone = EXCLUDED.phone, email = EXCLUDED.email, company_name = EXCLUDED.company_name, location_id = EXCLUDED.location_id, date_added = EXCLUDED.date_added`
	if _, err := r.db.NamedExecContext(ctx, query, contact); err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}
	return nil
}

// CountCompletedJobs returns how many completed jobs exist for a contact.
// A first service visit is detected by a count of one at completion time.
func (r *ContactRepository) CountCompletedJobs(ctx context.Context, contactID string) (int, error) {
	const query = `SELECT COUNT(*) FROM jobs WHERE ghl_contact_id = $1 AND status = 'completed'`
	var count int
	if err := r.db.GetContext(ctx, &count, query, contactID); err != nil {
		return 0, fmt.Errorf("count completed jobs for contact: %w", err)
	}
	return count, nil
}
