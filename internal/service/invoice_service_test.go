package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trushine/fieldops-api/internal/ghl"
	"github.com/trushine/fieldops-api/internal/models"
	"github.com/trushine/fieldops-api/pkg/config"
	appErrors "github.com/trushine/fieldops-api/pkg/errors"
	"github.com/trushine/fieldops-api/pkg/storage"
)

type mockInvoiceAPI struct {
	products        []ghl.Product
	createdProducts []ghl.ProductCreateRequest
	createdPrices   []ghl.PriceCreateRequest
	invoices        []ghl.InvoiceCreateRequest
	sent            []string
}

func (m *mockInvoiceAPI) ListProducts(ctx context.Context, token, locationID, search string) ([]ghl.Product, error) {
	var out []ghl.Product
	for _, p := range m.products {
		if search == "" || p.Name == search {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockInvoiceAPI) CreateProduct(ctx context.Context, token string, req ghl.ProductCreateRequest) (*ghl.Product, error) {
	m.createdProducts = append(m.createdProducts, req)
	product := ghl.Product{ID: "prod-new", Name: req.Name}
	m.products = append(m.products, product)
	return &product, nil
}

func (m *mockInvoiceAPI) CreatePrice(ctx context.Context, token, productID string, req ghl.PriceCreateRequest) (*ghl.ProductPrice, error) {
	m.createdPrices = append(m.createdPrices, req)
	return &ghl.ProductPrice{ID: "price-new", Amount: req.Amount}, nil
}

func (m *mockInvoiceAPI) CreateInvoice(ctx context.Context, token string, req ghl.InvoiceCreateRequest) (*ghl.Invoice, error) {
	m.invoices = append(m.invoices, req)
	return &ghl.Invoice{ID: "inv-1", Total: 250}, nil
}

func (m *mockInvoiceAPI) SendInvoice(ctx context.Context, token, invoiceID string, req ghl.InvoiceSendRequest) error {
	m.sent = append(m.sent, invoiceID)
	return nil
}

func invoiceableJob() *models.Job {
	loc := "loc-1"
	contact := "contact-1"
	customer := "Jane Doe"
	serviceName := "Window Cleaning"
	return &models.Job{
		ID:           "job-1",
		LocationID:   &loc,
		GHLContactID: &contact,
		CustomerName: &customer,
		TotalPrice:   250,
		Items: []models.JobServiceItem{
			{ServiceName: &serviceName, Price: 250, DurationHours: 2},
		},
	}
}

func newInvoiceService(api *mockInvoiceAPI, cfg config.InvoicesConfig) *InvoiceService {
	loc := "loc-1"
	accounts := &mockAccounts{credential: &models.GHLCredential{AccessToken: "token-1", LocationID: &loc}}
	return NewInvoiceService(api, accounts, cfg, nil)
}

func TestInvoiceCreateForJobReusesExistingProduct(t *testing.T) {
	api := &mockInvoiceAPI{products: []ghl.Product{{ID: "prod-1", Name: "Window Cleaning", PriceID: "price-1"}}}
	svc := newInvoiceService(api, config.InvoicesConfig{Enabled: true, BusinessName: "TruShine Window Cleaning"})

	invoice, err := svc.CreateForJob(context.Background(), invoiceableJob())
	require.NoError(t, err)
	assert.Equal(t, "inv-1", invoice.ID)

	assert.Empty(t, api.createdProducts)
	require.Len(t, api.invoices, 1)
	req := api.invoices[0]
	assert.Equal(t, "loc-1", req.AltID)
	assert.Equal(t, "location", req.AltType)
	assert.Equal(t, "TruShine Window Cleaning", req.BusinessDetails.Name)
	require.Len(t, req.Items, 1)
	assert.Equal(t, "prod-1", req.Items[0].ProductID)
	assert.Equal(t, 250.0, req.Items[0].Amount)
	assert.Equal(t, []string{"inv-1"}, api.sent)
}

func TestInvoiceCreateForJobCreatesMissingProduct(t *testing.T) {
	api := &mockInvoiceAPI{}
	svc := newInvoiceService(api, config.InvoicesConfig{Enabled: true})

	_, err := svc.CreateForJob(context.Background(), invoiceableJob())
	require.NoError(t, err)

	require.Len(t, api.createdProducts, 1)
	assert.Equal(t, "Window Cleaning", api.createdProducts[0].Name)
	assert.Equal(t, "SERVICE", api.createdProducts[0].ProductType)
	require.Len(t, api.createdPrices, 1)
	assert.Equal(t, 250.0, api.createdPrices[0].Amount)
	assert.Equal(t, "one_time", api.createdPrices[0].Type)
}

func TestInvoiceAppliesExclusiveTax(t *testing.T) {
	api := &mockInvoiceAPI{products: []ghl.Product{{ID: "prod-1", Name: "Window Cleaning", PriceID: "price-1"}}}
	svc := newInvoiceService(api, config.InvoicesConfig{Enabled: true, TaxRate: 8.25})

	_, err := svc.CreateForJob(context.Background(), invoiceableJob())
	require.NoError(t, err)

	require.Len(t, api.invoices, 1)
	taxes := api.invoices[0].Items[0].Taxes
	require.Len(t, taxes, 1)
	assert.Equal(t, "Sales Tax", taxes[0].Name)
	assert.Equal(t, 8.25, taxes[0].Rate)
	assert.Equal(t, "exclusive", taxes[0].CalcType)
}

func TestInvoiceRequiresContactAndItems(t *testing.T) {
	api := &mockInvoiceAPI{}
	svc := newInvoiceService(api, config.InvoicesConfig{Enabled: true})

	job := invoiceableJob()
	job.GHLContactID = nil
	_, err := svc.CreateForJob(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	job = invoiceableJob()
	job.Items = nil
	_, err = svc.CreateForJob(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestInvoiceDisabledCompletionHook(t *testing.T) {
	api := &mockInvoiceAPI{}
	svc := newInvoiceService(api, config.InvoicesConfig{Enabled: false})

	svc.JobCompleted(context.Background(), invoiceableJob())
	assert.Empty(t, api.invoices)
}

func TestInvoiceRenderPDF(t *testing.T) {
	api := &mockInvoiceAPI{}
	svc := newInvoiceService(api, config.InvoicesConfig{BusinessName: "TruShine Window Cleaning"})

	pdf, err := svc.RenderPDF(invoiceableJob(), "INV-0001")
	require.NoError(t, err)
	assert.True(t, len(pdf) > 0)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestInvoiceCompletionArchivesPDF(t *testing.T) {
	api := &mockInvoiceAPI{products: []ghl.Product{{ID: "prod-1", Name: "Window Cleaning", PriceID: "price-1"}}}
	svc := newInvoiceService(api, config.InvoicesConfig{Enabled: true, BusinessName: "TruShine Window Cleaning"})

	archive, err := storage.NewArchive(t.TempDir())
	require.NoError(t, err)
	svc.SetArchive(archive, storage.NewSigner("secret", time.Hour))

	svc.JobCompleted(context.Background(), invoiceableJob())

	token, expiresAt, err := svc.SignedDownload("job-1")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	path, err := svc.ResolveDownload(token)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestInvoiceSignedDownloadMissingArchiveFile(t *testing.T) {
	api := &mockInvoiceAPI{}
	svc := newInvoiceService(api, config.InvoicesConfig{Enabled: true})

	archive, err := storage.NewArchive(t.TempDir())
	require.NoError(t, err)
	svc.SetArchive(archive, storage.NewSigner("secret", time.Hour))

	_, _, err = svc.SignedDownload("job-unknown")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestInvoiceResolveDownloadRejectsBadToken(t *testing.T) {
	api := &mockInvoiceAPI{}
	svc := newInvoiceService(api, config.InvoicesConfig{Enabled: true})

	archive, err := storage.NewArchive(t.TempDir())
	require.NoError(t, err)
	svc.SetArchive(archive, storage.NewSigner("secret", time.Hour))

	_, err = svc.ResolveDownload("not.a.real.token")
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}
