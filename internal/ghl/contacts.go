package ghl

import (
	"context"
	"net/http"
)

// Contact is the GHL representation of a contact.
type Contact struct {
	ID          string `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	CompanyName string `json:"companyName"`
	Address1    string `json:"address1"`
	LocationID  string `json:"locationId"`
	DateAdded   string `json:"dateAdded"`
}

// GetContact fetches a contact by id.
func (c *Client) GetContact(ctx context.Context, token, contactID string) (*Contact, error) {
	var resp struct {
		Contact Contact `json:"contact"`
	}
	if err := c.do(ctx, http.MethodGet, "/contacts/"+contactID, token, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Contact, nil
}

// ContactUpsertRequest creates or updates a contact keyed by email or phone.
type ContactUpsertRequest struct {
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Address1   string `json:"address1,omitempty"`
	LocationID string `json:"locationId"`
}

// UpsertContact creates or refreshes a contact in GHL.
func (c *Client) UpsertContact(ctx context.Context, token string, req ContactUpsertRequest) (*Contact, error) {
	var resp struct {
		Contact Contact `json:"contact"`
	}
	if err := c.do(ctx, http.MethodPost, "/contacts/upsert", token, req, &resp); err != nil {
		return nil, err
	}
	return &resp.Contact, nil
}
