package ghl

import (
	"context"
	"net/http"
)

// InvoiceBusiness identifies the issuing business on an invoice.
type InvoiceBusiness struct {
	Name    string `json:"name"`
	LogoURL string `json:"logoUrl,omitempty"`
}

// InvoiceContact identifies the billed customer.
type InvoiceContact struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	PhoneNo     string `json:"phoneNo,omitempty"`
	Address     string `json:"address,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
}

// InvoiceTax is an exclusive percentage tax applied to an item.
type InvoiceTax struct {
	Name       string  `json:"name"`
	Rate       float64 `json:"rate"`
	CalcType   string  `json:"calculation"`
	TaxDetails string  `json:"description,omitempty"`
}

// InvoiceItem is one billable line.
type InvoiceItem struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	ProductID   string       `json:"productId,omitempty"`
	PriceID     string       `json:"priceId,omitempty"`
	Currency    string       `json:"currency"`
	Amount      float64      `json:"amount"`
	Qty         int          `json:"qty"`
	Taxes       []InvoiceTax `json:"taxes,omitempty"`
}

// InvoiceCreateRequest creates a draft invoice.
type InvoiceCreateRequest struct {
	AltID           string          `json:"altId"`
	AltType         string          `json:"altType"`
	Name            string          `json:"name"`
	BusinessDetails InvoiceBusiness `json:"businessDetails"`
	Currency        string          `json:"currency"`
	Items           []InvoiceItem   `json:"items"`
	Contact         InvoiceContact  `json:"contactDetails"`
	IssueDate       string          `json:"issueDate"`
	DueDate         string          `json:"dueDate"`
	LiveMode        bool            `json:"liveMode"`
}

// Invoice is the GHL invoice record.
type Invoice struct {
	ID            string  `json:"_id"`
	Name          string  `json:"name"`
	Status        string  `json:"status"`
	Total         float64 `json:"total"`
	InvoiceNumber string  `json:"invoiceNumber"`
}

// CreateInvoice creates a draft invoice for a location (altId/altType
// "location").
func (c *Client) CreateInvoice(ctx context.Context, token string, req InvoiceCreateRequest) (*Invoice, error) {
	var resp Invoice
	if err := c.do(ctx, http.MethodPost, "/invoices/", token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// InvoiceSendRequest delivers a created invoice to the customer.
type InvoiceSendRequest struct {
	AltID        string `json:"altId"`
	AltType      string `json:"altType"`
	UserID       string `json:"userId"`
	ActionType   string `json:"action"`
	LiveMode     bool   `json:"liveMode"`
	SentFrom     string `json:"sentFrom,omitempty"`
	SentFromName string `json:"sentFromName,omitempty"`
}

// SendInvoice emails an invoice to its contact.
func (c *Client) SendInvoice(ctx context.Context, token, invoiceID string, req InvoiceSendRequest) error {
	return c.do(ctx, http.MethodPost, "/invoices/"+invoiceID+"/send", token, req, nil)
}
