package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/donaldgifford/mailin-buyback/internal/metrics"
	"github.com/donaldgifford/mailin-buyback/pkg/pricing"
	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

// NewItem is one device as declared by the customer at intake.
type NewItem struct {
	Model          string           `json:"model"`
	Storage        string           `json:"storage"`
	Color          string           `json:"color,omitempty"`
	IMEI           string           `json:"imei,omitempty"`
	Rank           domain.Rank      `json:"rank"`
	Condition      domain.Condition `json:"condition"`
	GuaranteePrice int              `json:"guarantee_price,omitempty"`
	// BasePrice overrides the table lookup when set.
	BasePrice *int `json:"base_price,omitempty"`
}

// NewRequest is an intake submission.
type NewRequest struct {
	Customer         domain.CustomerInfo `json:"customer"`
	Items            []NewItem           `json:"items"`
	AgreementDocPath string              `json:"agreement_doc_path,omitempty"`
}

func (n *NewRequest) validate() error {
	if strings.TrimSpace(n.Customer.Name) == "" {
		return &ValidationError{Field: "customer.name", Reason: "is required"}
	}
	if strings.TrimSpace(n.Customer.Email) == "" && strings.TrimSpace(n.Customer.Phone) == "" {
		return &ValidationError{Field: "customer", Reason: "email or phone is required"}
	}
	if len(n.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "at least one item is required"}
	}

	for i, it := range n.Items {
		if err := it.validate(i); err != nil {
			return err
		}
	}
	return nil
}

func (it NewItem) validate(idx int) error {
	if strings.TrimSpace(it.Model) == "" || strings.TrimSpace(it.Storage) == "" {
		return &ValidationError{
			Field:  fmt.Sprintf("items[%d]", idx),
			Reason: "model and storage are required",
		}
	}
	if !it.Rank.Valid() {
		return &ValidationError{
			Field:  fmt.Sprintf("items[%d].rank", idx),
			Reason: fmt.Sprintf("unknown rank %q", it.Rank),
		}
	}
	if err := it.Condition.Validate(); err != nil {
		return err
	}
	if it.GuaranteePrice < 0 {
		return &ValidationError{
			Field:  fmt.Sprintf("items[%d].guarantee_price", idx),
			Reason: "must not be negative",
		}
	}
	if it.BasePrice != nil && *it.BasePrice < 0 {
		return &ValidationError{
			Field:  fmt.Sprintf("items[%d].base_price", idx),
			Reason: "must not be negative",
		}
	}
	return nil
}

// Intake creates a pending request with a preliminary estimate per device.
func (eng *Engine) Intake(ctx context.Context, in NewRequest) (r *domain.MailBuybackRequest, err error) {
	ctx, span := eng.startSpan(ctx, "Intake", "")
	defer func() { endSpan(span, err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}

	tables, err := eng.priceTables(ctx)
	if err != nil {
		return nil, err
	}

	now := eng.now()
	r = &domain.MailBuybackRequest{
		RequestNumber:    requestNumber(now),
		Customer:         in.Customer,
		Items:            make([]domain.RequestItem, 0, len(in.Items)),
		Status:           domain.StatusPending,
		AgreementDocPath: in.AgreementDocPath,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	for i, it := range in.Items {
		base, err := basePriceFor(tables, it, i)
		if err != nil {
			return nil, err
		}

		res := pricing.BuybackPrice(it.Condition, base, it.GuaranteePrice, tables.Buyback(), it.Model, it.Storage)
		eng.logGaps(pricing.Breakdown(it.Condition, tables.Buyback(), it.Model, it.Storage), it.Model, it.Storage)

		r.Items = append(r.Items, domain.RequestItem{
			ID:             uuid.NewString(),
			Model:          it.Model,
			Storage:        it.Storage,
			Color:          it.Color,
			IMEI:           it.IMEI,
			Rank:           it.Rank,
			Condition:      it.Condition,
			BasePrice:      base,
			GuaranteePrice: it.GuaranteePrice,
			EstimatedPrice: res.FinalPrice,
		})
		r.TotalEstimatedPrice += res.FinalPrice
	}

	if err := eng.store.CreateRequest(ctx, r); err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	metrics.RequestsCreatedTotal.Inc()
	eng.log.Info("request created",
		"request_id", r.ID,
		"request_number", r.RequestNumber,
		"items", len(r.Items),
		"total_estimated_price", r.TotalEstimatedPrice,
	)
	return r, nil
}

// basePriceFor resolves an item's base price. Unlike deduction gaps, a
// missing row is an input error: intake cannot quote without a base price.
func basePriceFor(tables *pricing.Tables, it NewItem, idx int) (int, error) {
	if it.BasePrice != nil {
		return *it.BasePrice, nil
	}
	if p, ok := tables.BasePrice(it.Model, it.Storage, it.Rank); ok {
		return p, nil
	}
	return 0, &ValidationError{
		Field: fmt.Sprintf("items[%d].base_price", idx),
		Reason: fmt.Sprintf("no base price for %s %s %s; supply one",
			it.Model, it.Storage, it.Rank),
	}
}

// requestNumber returns a human-facing number like MB-20260301-3FA9C2.
func requestNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "MB-" + at.UTC().Format("20060102") + "-" + suffix
}
