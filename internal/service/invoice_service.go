package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/trushine/fieldops-api/internal/ghl"
	"github.com/trushine/fieldops-api/internal/models"
	"github.com/trushine/fieldops-api/pkg/config"
	appErrors "github.com/trushine/fieldops-api/pkg/errors"
	"github.com/trushine/fieldops-api/pkg/export"
	"github.com/trushine/fieldops-api/pkg/storage"
)

type ghlInvoiceAPI interface {
	ListProducts(ctx context.Context, token, locationID, search string) ([]ghl.Product, error)
	CreateProduct(ctx context.Context, token string, req ghl.ProductCreateRequest) (*ghl.Product, error)
	CreatePrice(ctx context.Context, token, productID string, req ghl.PriceCreateRequest) (*ghl.ProductPrice, error)
	CreateInvoice(ctx context.Context, token string, req ghl.InvoiceCreateRequest) (*ghl.Invoice, error)
	SendInvoice(ctx context.Context, token, invoiceID string, req ghl.InvoiceSendRequest) error
}

// InvoiceService raises a GHL invoice when a job completes. Line items map to
// catalog products, created on first use, with an exclusive sales tax applied
// per line.
type InvoiceService struct {
	api      ghlInvoiceAPI
	accounts accountResolver
	exporter *export.InvoicePDFExporter
	archive  *storage.Archive
	signer   *storage.Signer
	cfg      config.InvoicesConfig
	logger   *zap.Logger
}

// NewInvoiceService constructs an InvoiceService.
func NewInvoiceService(api ghlInvoiceAPI, accounts accountResolver, cfg config.InvoicesConfig, logger *zap.Logger) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		api:      api,
		accounts: accounts,
		exporter: export.NewInvoicePDFExporter(),
		cfg:      cfg,
		logger:   logger,
	}
}

// SetArchive enables on-disk PDF archiving and signed download links.
// Without it, invoices are only rendered on demand.
func (s *InvoiceService) SetArchive(archive *storage.Archive, signer *storage.Signer) {
	s.archive = archive
	s.signer = signer
}

// JobUpserted is part of JobListener; invoicing only reacts to completion.
func (s *InvoiceService) JobUpserted(ctx context.Context, job *models.Job) {}

// JobDeleted is part of JobListener; nothing to undo before completion.
func (s *InvoiceService) JobDeleted(ctx context.Context, job *models.Job) {}

// JobCompleted raises the invoice. Failures are logged, not propagated: a
// billing hiccup must not roll back the completed status.
func (s *InvoiceService) JobCompleted(ctx context.Context, job *models.Job) {
	if !s.cfg.Enabled {
		return
	}
	if _, err := s.CreateForJob(ctx, job); err != nil {
		s.logger.Sugar().Errorw("invoice creation failed", "job_id", job.ID, "error", err)
		return
	}
	s.archivePDF(job)
}

// archivePDF stores a rendered copy of the invoice for signed downloads.
func (s *InvoiceService) archivePDF(job *models.Job) {
	if s.archive == nil {
		return
	}
	data, err := s.RenderPDF(job, InvoiceNumber(job))
	if err != nil {
		s.logger.Sugar().Warnw("invoice archive render failed", "job_id", job.ID, "error", err)
		return
	}
	if _, err := s.archive.Save(archivePath(job.ID), data); err != nil {
		s.logger.Sugar().Warnw("invoice archive write failed", "job_id", job.ID, "error", err)
	}
}

// SignedDownload mints a shareable download token for a job's archived
// invoice. The file must already exist in the archive.
func (s *InvoiceService) SignedDownload(jobID string) (string, time.Time, error) {
	if s.archive == nil || s.signer == nil {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "invoice archive is not enabled")
	}
	relPath := archivePath(jobID)
	if _, err := s.archive.Resolve(relPath); err != nil {
		return "", time.Time{}, appErrors.Clone(appErrors.ErrNotFound, "no archived invoice for job")
	}
	token, expiresAt, err := s.signer.Sign(jobID, relPath)
	if err != nil {
		return "", time.Time{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sign download token")
	}
	return token, expiresAt, nil
}

// ResolveDownload validates a download token and returns the absolute
// path of the archived file it references.
func (s *InvoiceService) ResolveDownload(token string) (string, error) {
	if s.archive == nil || s.signer == nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, "invoice archive is not enabled")
	}
	_, relPath, err := s.signer.Verify(token)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid download token")
	}
	path, err := s.archive.Resolve(relPath)
	if err != nil {
		return "", appErrors.Clone(appErrors.ErrNotFound, "archived invoice no longer available")
	}
	return path, nil
}

// CleanupArchive prunes archived invoices past the retention window.
func (s *InvoiceService) CleanupArchive() {
	if s.archive == nil || s.cfg.ArchiveRetention <= 0 {
		return
	}
	deleted, err := s.archive.CleanupOlderThan(s.cfg.ArchiveRetention)
	if err != nil {
		s.logger.Sugar().Warnw("invoice archive cleanup failed", "error", err)
		return
	}
	if len(deleted) > 0 {
		s.logger.Sugar().Infow("invoice archive pruned", "deleted", len(deleted))
	}
}

// InvoiceNumber derives the human-facing invoice number from a job ID.
func InvoiceNumber(job *models.Job) string {
	id := job.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return "INV-" + id
}

func archivePath(jobID string) string {
	return jobID + ".pdf"
}

// CreateForJob builds and sends the invoice for a completed job.
func (s *InvoiceService) CreateForJob(ctx context.Context, job *models.Job) (*ghl.Invoice, error) {
	if job.GHLContactID == nil || *job.GHLContactID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "job has no contact to invoice")
	}
	if len(job.Items) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "job has no billable items")
	}

	locationID := ""
	if job.LocationID != nil {
		locationID = *job.LocationID
	}
	cred, err := s.accounts.CredentialForLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if locationID == "" && cred.LocationID != nil {
		locationID = *cred.LocationID
	}

	items := make([]ghl.InvoiceItem, 0, len(job.Items))
	for _, item := range job.Items {
		name := itemName(item)
		product, err := s.ensureProduct(ctx, cred.AccessToken, locationID, name, item.Price)
		if err != nil {
			return nil, err
		}

		line := ghl.InvoiceItem{
			Name:      name,
			ProductID: product.ID,
			PriceID:   product.PriceID,
			Currency:  "USD",
			Amount:    item.Price,
			Qty:       1,
		}
		if s.cfg.TaxRate > 0 {
			line.Taxes = []ghl.InvoiceTax{{
				Name:     "Sales Tax",
				Rate:     s.cfg.TaxRate,
				CalcType: "exclusive",
			}}
		}
		items = append(items, line)
	}

	now := time.Now().UTC()
	req := ghl.InvoiceCreateRequest{
		AltID:   locationID,
		AltType: "location",
		Name:    invoiceName(job),
		BusinessDetails: ghl.InvoiceBusiness{
			Name:    s.cfg.BusinessName,
			LogoURL: s.cfg.LogoURL,
		},
		Currency:  "USD",
		Items:     items,
		Contact:   contactDetails(job),
		IssueDate: now.Format("2006-01-02"),
		DueDate:   now.Format("2006-01-02"),
		LiveMode:  true,
	}

	invoice, err := s.api.CreateInvoice(ctx, cred.AccessToken, req)
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	send := ghl.InvoiceSendRequest{
		AltID:      locationID,
		AltType:    "location",
		ActionType: "sms_and_email",
		LiveMode:   true,
	}
	if err := s.api.SendInvoice(ctx, cred.AccessToken, invoice.ID, send); err != nil {
		s.logger.Sugar().Warnw("invoice created but sending failed",
			"job_id", job.ID, "invoice_id", invoice.ID, "error", err)
	}

	s.logger.Sugar().Infow("invoice raised", "job_id", job.ID, "invoice_id", invoice.ID, "total", invoice.Total)
	return invoice, nil
}

// RenderPDF produces a printable PDF for a job's invoice lines.
func (s *InvoiceService) RenderPDF(job *models.Job, invoiceNumber string) ([]byte, error) {
	if len(job.Items) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "job has no billable items")
	}

	doc := export.InvoiceDocument{
		Number:       invoiceNumber,
		BusinessName: s.cfg.BusinessName,
		IssueDate:    time.Now().UTC().Format("2006-01-02"),
		TaxRate:      s.cfg.TaxRate,
	}
	if job.CustomerName != nil {
		doc.CustomerName = *job.CustomerName
	}
	if job.CustomerEmail != nil {
		doc.CustomerEmail = *job.CustomerEmail
	}
	if job.CustomerAddress != nil {
		doc.CustomerAddress = *job.CustomerAddress
	}
	for _, item := range job.Items {
		doc.Lines = append(doc.Lines, export.InvoiceLine{
			Name:     itemName(item),
			Quantity: 1,
			Price:    item.Price,
		})
	}
	return s.exporter.Render(doc)
}

// ensureProduct returns the catalog product matching the service name,
// creating product and price on first use.
func (s *InvoiceService) ensureProduct(ctx context.Context, token, locationID, name string, price float64) (*ghl.Product, error) {
	products, err := s.api.ListProducts(ctx, token, locationID, name)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	for i := range products {
		if products[i].Name == name {
			return &products[i], nil
		}
	}

	product, err := s.api.CreateProduct(ctx, token, ghl.ProductCreateRequest{
		Name:        name,
		LocationID:  locationID,
		ProductType: "SERVICE",
	})
	if err != nil {
		return nil, fmt.Errorf("create product %q: %w", name, err)
	}

	priceEntry, err := s.api.CreatePrice(ctx, token, product.ID, ghl.PriceCreateRequest{
		Name:       name,
		Type:       "one_time",
		Currency:   "USD",
		Amount:     price,
		LocationID: locationID,
	})
	if err != nil {
		return nil, fmt.Errorf("create price for %q: %w", name, err)
	}
	product.PriceID = priceEntry.ID
	return product, nil
}

func itemName(item models.JobServiceItem) string {
	switch {
	case item.CustomName != nil && *item.CustomName != "":
		return *item.CustomName
	case item.ServiceName != nil && *item.ServiceName != "":
		return *item.ServiceName
	default:
		return "Service"
	}
}

func invoiceName(job *models.Job) string {
	if job.CustomerName != nil && *job.CustomerName != "" {
		return *job.CustomerName + " - " + time.Now().UTC().Format("Jan 2006")
	}
	return "Service Invoice"
}

func contactDetails(job *models.Job) ghl.InvoiceContact {
	contact := ghl.InvoiceContact{}
	if job.GHLContactID != nil {
		contact.ID = *job.GHLContactID
	}
	if job.CustomerName != nil {
		contact.Name = *job.CustomerName
	}
	if job.CustomerEmail != nil {
		contact.Email = *job.CustomerEmail
	}
	if job.CustomerPhone != nil {
		contact.PhoneNo = *job.CustomerPhone
	}
	if job.CustomerAddress != nil {
		contact.Address = *job.CustomerAddress
	}
	return contact
}
