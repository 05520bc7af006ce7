package ghl

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Product is a GHL catalog product with its default price.
type Product struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	ProductType string  `json:"productType"`
	PriceID     string  `json:"priceId,omitempty"`
	Price       float64 `json:"price,omitempty"`
}

// ProductPrice is one price entry attached to a product.
type ProductPrice struct {
	ID       string  `json:"_id"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Type     string  `json:"type"`
}

// ListProducts returns products for a location, optionally filtered by name.
func (c *Client) ListProducts(ctx context.Context, token, locationID, search string) ([]Product, error) {
	path := fmt.Sprintf("/products/?locationId=%s", url.QueryEscape(locationID))
	if search != "" {
		path += "&search=" + url.QueryEscape(search)
	}
	var resp struct {
		Products []Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, path, token, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// ProductCreateRequest creates a catalog product.
type ProductCreateRequest struct {
	Name        string `json:"name"`
	LocationID  string `json:"locationId"`
	ProductType string `json:"productType"`
	Description string `json:"description,omitempty"`
}

// CreateProduct adds a product to the location's catalog.
func (c *Client) CreateProduct(ctx context.Context, token string, req ProductCreateRequest) (*Product, error) {
	var resp Product
	if err := c.do(ctx, http.MethodPost, "/products/", token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PriceCreateRequest attaches a one-time price to a product.
type PriceCreateRequest struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Currency   string  `json:"currency"`
	Amount     float64 `json:"amount"`
	LocationID string  `json:"locationId"`
}

// CreatePrice adds a price entry to a product.
func (c *Client) CreatePrice(ctx context.Context, token, productID string, req PriceCreateRequest) (*ProductPrice, error) {
	var resp ProductPrice
	if err := c.do(ctx, http.MethodPost, "/products/"+productID+"/price", token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
