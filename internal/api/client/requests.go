package client

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

// ListParams filters a request listing.
type ListParams struct {
	Statuses      []string
	RequestNumber string
	Limit         int
	Offset        int
	OrderBy       string
}

func (p *ListParams) encode() string {
	v := url.Values{}
	if len(p.Statuses) > 0 {
		v.Set("status", strings.Join(p.Statuses, ","))
	}
	if p.RequestNumber != "" {
		v.Set("request_number", p.RequestNumber)
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		v.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.OrderBy != "" {
		v.Set("order_by", p.OrderBy)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// RequestPage is one page of a request listing.
type RequestPage struct {
	Requests []domain.MailBuybackRequest `json:"requests"`
	Total    int                         `json:"total"`
	Limit    int                         `json:"limit"`
	Offset   int                         `json:"offset"`
}

// ItemEdit sets one tracked field of one item to its assessed value.
type ItemEdit struct {
	ItemID string `json:"item_id"`
	Field  string `json:"field"`
	Value  string `json:"value"`
}

// AssessmentRequest is the body of a final assessment.
type AssessmentRequest struct {
	ItemChanges []ItemEdit     `json:"item_changes,omitempty"`
	Photos      []domain.Photo `json:"photos,omitempty"`
	FinalPrice  *int           `json:"final_price,omitempty"`
}

// Preview is the priced result of candidate assessment edits.
type Preview struct {
	ItemChanges   []domain.ItemChange      `json:"item_changes"`
	Results       []domain.ItemPriceResult `json:"results"`
	ComputedPrice int                      `json:"computed_price"`
}

// CompletedItem is one inventory record created by a payout.
type CompletedItem struct {
	ItemID           string  `json:"item_id"`
	InventoryID      string  `json:"inventory_id"`
	ManagementNumber *string `json:"management_number,omitempty"`
	BuybackItemID    string  `json:"buyback_item_id"`
	Cost             int     `json:"cost"`
}

// Completion reports the records created by a payout.
type Completion struct {
	RequestID        string          `json:"request_id"`
	RequestNumber    string          `json:"request_number"`
	CustomerID       string          `json:"customer_id"`
	BuybackID        string          `json:"buyback_id"`
	InventoryID      string          `json:"inventory_id"`
	ManagementNumber *string         `json:"management_number,omitempty"`
	Items            []CompletedItem `json:"items"`
	Retired          bool            `json:"retired"`
	Warnings         []string        `json:"warnings,omitempty"`
}

// NewItem is one device in an intake submission.
type NewItem struct {
	Model          string           `json:"model"`
	Storage        string           `json:"storage"`
	Color          string           `json:"color,omitempty"`
	IMEI           string           `json:"imei,omitempty"`
	Rank           domain.Rank      `json:"rank"`
	Condition      domain.Condition `json:"condition"`
	GuaranteePrice int              `json:"guarantee_price,omitempty"`
	BasePrice      *int             `json:"base_price,omitempty"`
}

// NewRequest is an intake submission.
type NewRequest struct {
	Customer         domain.CustomerInfo `json:"customer"`
	Items            []NewItem           `json:"items"`
	AgreementDocPath string              `json:"agreement_doc_path,omitempty"`
}

// CreateRequest submits a new mail-in request.
func (c *Client) CreateRequest(ctx context.Context, in *NewRequest) (*domain.MailBuybackRequest, error) {
	var r domain.MailBuybackRequest
	if err := c.post(ctx, "/api/v1/requests", in, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRequests returns a page of requests.
func (c *Client) ListRequests(ctx context.Context, p ListParams) (*RequestPage, error) {
	var page RequestPage
	if err := c.get(ctx, "/api/v1/requests"+p.encode(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetRequest returns one request.
func (c *Client) GetRequest(ctx context.Context, id string) (*domain.MailBuybackRequest, error) {
	var r domain.MailBuybackRequest
	if err := c.get(ctx, requestPath(id, ""), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// MarkKitSent records that the shipping kit went out.
func (c *Client) MarkKitSent(ctx context.Context, id string) (*domain.MailBuybackRequest, error) {
	return c.action(ctx, id, "/kit-sent", nil)
}

// SubmitAssessment saves the final assessment.
func (c *Client) SubmitAssessment(
	ctx context.Context,
	id string,
	a AssessmentRequest,
) (*domain.MailBuybackRequest, error) {
	return c.action(ctx, id, "/assessment", a)
}

// PreviewAssessment prices edits without saving them.
func (c *Client) PreviewAssessment(ctx context.Context, id string, edits []ItemEdit) (*Preview, error) {
	var p Preview
	body := map[string]any{"item_changes": edits}
	if err := c.post(ctx, requestPath(id, "/assessment/preview"), body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// RecordDecision applies the customer's decision. bank is required to
// approve and ignored on reject.
func (c *Client) RecordDecision(
	ctx context.Context,
	id string,
	decision domain.Decision,
	bank *domain.BankInfo,
) (*domain.MailBuybackRequest, error) {
	body := struct {
		Decision domain.Decision  `json:"decision"`
		Bank     *domain.BankInfo `json:"bank,omitempty"`
	}{decision, bank}
	return c.action(ctx, id, "/decision", body)
}

// CompletePayout marks the request paid and creates the durable records.
func (c *Client) CompletePayout(ctx context.Context, id string) (*Completion, error) {
	var out Completion
	if err := c.post(ctx, requestPath(id, "/complete-payout"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RetryRetirement removes a paid request left behind by a completion.
func (c *Client) RetryRetirement(ctx context.Context, id string) error {
	return c.post(ctx, requestPath(id, "/retire"), nil, nil)
}

// CompleteReturn records that the device went back to the customer.
func (c *Client) CompleteReturn(ctx context.Context, id string) (*domain.MailBuybackRequest, error) {
	return c.action(ctx, id, "/complete-return", nil)
}

func (c *Client) action(ctx context.Context, id, suffix string, body any) (*domain.MailBuybackRequest, error) {
	var r domain.MailBuybackRequest
	if err := c.post(ctx, requestPath(id, suffix), body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func requestPath(id, suffix string) string {
	return "/api/v1/requests/" + url.PathEscape(id) + suffix
}
