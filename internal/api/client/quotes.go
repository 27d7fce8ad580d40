package client

import (
	"context"

	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

// QuoteRequest describes the device to price.
type QuoteRequest struct {
	Model          string           `json:"model"`
	Storage        string           `json:"storage"`
	Rank           domain.Rank      `json:"rank"`
	Condition      domain.Condition `json:"condition"`
	GuaranteePrice int              `json:"guarantee_price,omitempty"`
	BasePrice      *int             `json:"base_price,omitempty"`
}

// QuoteLine is one itemized deduction.
type QuoteLine struct {
	Type   string `json:"type"`
	Amount int    `json:"amount"`
	Gap    bool   `json:"gap,omitempty"`
}

// Quote is an itemized price.
type Quote struct {
	BasePrice        int         `json:"base_price"`
	Lines            []QuoteLine `json:"lines"`
	Deduction        int         `json:"deduction"`
	RawPrice         int         `json:"raw_price"`
	FinalPrice       int         `json:"final_price"`
	GuaranteeApplied bool        `json:"guarantee_applied"`
}

// QuoteBuyback prices a device for purchase.
func (c *Client) QuoteBuyback(ctx context.Context, q QuoteRequest) (*Quote, error) {
	return c.quote(ctx, "/api/v1/quotes/buyback", q)
}

// QuoteResale prices a device for resale.
func (c *Client) QuoteResale(ctx context.Context, q QuoteRequest) (*Quote, error) {
	return c.quote(ctx, "/api/v1/quotes/resale", q)
}

func (c *Client) quote(ctx context.Context, path string, q QuoteRequest) (*Quote, error) {
	var out Quote
	if err := c.post(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
