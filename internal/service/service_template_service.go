package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/trushine/fieldops-api/internal/models"
	appErrors "github.com/trushine/fieldops-api/pkg/errors"
)

type serviceTemplateRepository interface {
	List(ctx context.Context, activeOnly bool) ([]models.ServiceTemplate, error)
	FindByID(ctx context.Context, id string) (*models.ServiceTemplate, error)
	Create(ctx context.Context, tmpl *models.ServiceTemplate) error
	Update(ctx context.Context, tmpl *models.ServiceTemplate) error
	Delete(ctx context.Context, id string) error
}

// CreateServiceTemplateRequest creates a reusable service definition.
type CreateServiceTemplateRequest struct {
	Name                 string  `json:"name" validate:"required,min=2,max=120"`
	Description          *string `json:"description,omitempty"`
	DefaultDurationHours float64 `json:"default_duration_hours" validate:"required,gt=0"`
	DefaultPrice         float64 `json:"default_price" validate:"gte=0"`
	CreatedBy            *string `json:"created_by,omitempty"`
}

// UpdateServiceTemplateRequest partially updates a service template.
type UpdateServiceTemplateRequest struct {
	Name                 *string  `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Description          *string  `json:"description,omitempty"`
	DefaultDurationHours *float64 `json:"default_duration_hours,omitempty" validate:"omitempty,gt=0"`
	DefaultPrice         *float64 `json:"default_price,omitempty" validate:"omitempty,gte=0"`
	IsActive             *bool    `json:"is_active,omitempty"`
}

// ServiceTemplateService manages the catalog of offered services.
type ServiceTemplateService struct {
	repo      serviceTemplateRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewServiceTemplateService constructs a ServiceTemplateService.
func NewServiceTemplateService(repo serviceTemplateRepository, v *validator.Validate, logger *zap.Logger) *ServiceTemplateService {
	if v == nil {
		v = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ServiceTemplateService{repo: repo, validator: v, logger: logger}
}

// List returns templates, optionally only active ones.
func (s *ServiceTemplateService) List(ctx context.Context, activeOnly bool) ([]models.ServiceTemplate, error) {
	templates, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list service templates")
	}
	return templates, nil
}

// Get returns a template by id.
func (s *ServiceTemplateService) Get(ctx context.Context, id string) (*models.ServiceTemplate, error) {
	tmpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "service template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load service template")
	}
	return tmpl, nil
}

// Create validates and stores a new template.
func (s *ServiceTemplateService) Create(ctx context.Context, req *CreateServiceTemplateRequest) (*models.ServiceTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid service template")
	}
	tmpl := &models.ServiceTemplate{
		Name:                 req.Name,
		Description:          req.Description,
		DefaultDurationHours: req.DefaultDurationHours,
		DefaultPrice:         req.DefaultPrice,
		IsActive:             true,
		CreatedBy:            req.CreatedBy,
	}
	if err := s.repo.Create(ctx, tmpl); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create service template")
	}
	s.logger.Sugar().Infow("service template created", "template_id", tmpl.ID, "name", tmpl.Name)
	return tmpl, nil
}

// Update applies the non-nil fields of req to the template.
func (s *ServiceTemplateService) Update(ctx context.Context, id string, req *UpdateServiceTemplateRequest) (*models.ServiceTemplate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid service template update")
	}
	tmpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		tmpl.Name = *req.Name
	}
	if req.Description != nil {
		tmpl.Description = req.Description
	}
	if req.DefaultDurationHours != nil {
		tmpl.DefaultDurationHours = *req.DefaultDurationHours
	}
	if req.DefaultPrice != nil {
		tmpl.DefaultPrice = *req.DefaultPrice
	}
	if req.IsActive != nil {
		tmpl.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, tmpl); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update service template")
	}
	return tmpl, nil
}

// Delete deactivates a template. Jobs created from it are untouched.
func (s *ServiceTemplateService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete service template")
	}
	return nil
}
