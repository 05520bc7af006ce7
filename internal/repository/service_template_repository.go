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

const serviceTemplateColumns = `id, name, description, default_duration_hours, default_price, is_active, created_by, created_at, updated_at`

// ServiceTemplateRepository persists reusable service definitions.
type ServiceTemplateRepository struct {
	db *sqlx.DB
}

// NewServiceTemplateRepository creates a new service template repository.
func NewServiceTemplateRepository(db *sqlx.DB) *ServiceTemplateRepository {
	return &ServiceTemplateRepository{db: db}
}

// List returns service templates, optionally only active ones.
func (r *ServiceTemplateRepository) List(ctx context.Context, activeOnly bool) ([]models.ServiceTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM service_templates`, serviceTemplateColumns)
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name ASC`

	var templates []models.ServiceTemplate
	if err := r.db.SelectContext(ctx, &templates, query); err != nil {
		return nil, fmt.Errorf("list service templates: %w", err)
	}
	return templates, nil
}

// FindByID loads a service template by id.
func (r *ServiceTemplateRepository) FindByID(ctx context.Context, id string) (*models.ServiceTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM service_templates WHERE id = $1 LIMIT 1`, serviceTemplateColumns)
	var tmpl models.ServiceTemplate
	if err := r.db.GetContext(ctx, &tmpl, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find service template by id: %w", err)
	}
	return &tmpl, nil
}

// Create stores a new service template.
func (r *ServiceTemplateRepository) Create(ctx context.Context, tmpl *models.ServiceTemplate) error {
	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tmpl.CreatedAt.IsZero() {
		tmpl.CreatedAt = now
	}
	tmpl.UpdatedAt = now

	const query = `INSERT INTO service_templates (id, name, description, default_duration_hours, default_price, is_active, created_by, created_at, updated_at) VALUES (:id, :name, :description, :default_duration_hours, :default_price, :is_active, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, tmpl); err != nil {
		return fmt.Errorf("create service template: %w", err)
	}
	return nil
}

// Update modifies a service template.
func (r *ServiceTemplateRepository) Update(ctx context.Context, tmpl *models.ServiceTemplate) error {
	tmpl.UpdatedAt = time.Now().UTC()
	const query = `UPDATE service_templates SET name = :name, description = :description, default_duration_hours = :default_duration_hours, default_price = :default_price, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, tmpl); err != nil {
		return fmt.Errorf("update service template: %w", err)
	}
	return nil
}

// Delete deactivates a service template, keeping historical job items intact.
func (r *ServiceTemplateRepository) Delete(ctx context.Context, id string) error {
	const query = `UPDATE service_templates SET is_active = FALSE, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("delete service template: %w", err)
	}
	return nil
}
