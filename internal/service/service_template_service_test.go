package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trushine/fieldops-api/internal/models"
	appErrors "github.com/trushine/fieldops-api/pkg/errors"
)

type mockTemplateRepo struct {
	templates map[string]*models.ServiceTemplate
	deleted   []string
}

func newMockTemplateRepo() *mockTemplateRepo {
	return &mockTemplateRepo{templates: make(map[string]*models.ServiceTemplate)}
}

func (m *mockTemplateRepo) List(ctx context.Context, activeOnly bool) ([]models.ServiceTemplate, error) {
	out := make([]models.ServiceTemplate, 0, len(m.templates))
	for _, tmpl := range m.templates {
		if activeOnly && !tmpl.IsActive {
			continue
		}
		out = append(out, *tmpl)
	}
	return out, nil
}

func (m *mockTemplateRepo) FindByID(ctx context.Context, id string) (*models.ServiceTemplate, error) {
	tmpl, ok := m.templates[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *tmpl
	return &copied, nil
}

func (m *mockTemplateRepo) Create(ctx context.Context, tmpl *models.ServiceTemplate) error {
	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
	}
	m.templates[tmpl.ID] = tmpl
	return nil
}

func (m *mockTemplateRepo) Update(ctx context.Context, tmpl *models.ServiceTemplate) error {
	m.templates[tmpl.ID] = tmpl
	return nil
}

func (m *mockTemplateRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	if tmpl, ok := m.templates[id]; ok {
		tmpl.IsActive = false
	}
	return nil
}

func TestServiceTemplateCreateDefaultsActive(t *testing.T) {
	repo := newMockTemplateRepo()
	svc := NewServiceTemplateService(repo, nil, nil)

	tmpl, err := svc.Create(context.Background(), &CreateServiceTemplateRequest{
		Name:                 "Window Cleaning",
		DefaultDurationHours: 2,
		DefaultPrice:         150,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tmpl.ID)
	assert.True(t, tmpl.IsActive)
}

func TestServiceTemplateCreateValidation(t *testing.T) {
	svc := NewServiceTemplateService(newMockTemplateRepo(), nil, nil)

	_, err := svc.Create(context.Background(), &CreateServiceTemplateRequest{Name: "X"})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestServiceTemplateUpdateMergesFields(t *testing.T) {
	repo := newMockTemplateRepo()
	svc := NewServiceTemplateService(repo, nil, nil)

	tmpl, err := svc.Create(context.Background(), &CreateServiceTemplateRequest{
		Name:                 "Gutter Cleaning",
		DefaultDurationHours: 3,
		DefaultPrice:         200,
	})
	require.NoError(t, err)

	price := 250.0
	updated, err := svc.Update(context.Background(), tmpl.ID, &UpdateServiceTemplateRequest{DefaultPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, 250.0, updated.DefaultPrice)
	assert.Equal(t, "Gutter Cleaning", updated.Name)
	assert.Equal(t, 3.0, updated.DefaultDurationHours)
}

func TestServiceTemplateDeleteDeactivates(t *testing.T) {
	repo := newMockTemplateRepo()
	svc := NewServiceTemplateService(repo, nil, nil)

	tmpl, err := svc.Create(context.Background(), &CreateServiceTemplateRequest{
		Name:                 "Pressure Washing",
		DefaultDurationHours: 4,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), tmpl.ID))
	assert.Equal(t, []string{tmpl.ID}, repo.deleted)

	active, err := svc.List(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestServiceTemplateGetNotFound(t *testing.T) {
	svc := NewServiceTemplateService(newMockTemplateRepo(), nil, nil)

	_, err := svc.Get(context.Background(), "missing")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
