package handlers

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/mailin-buyback/internal/engine"
	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

// QuotesHandler prices single devices without creating a request.
type QuotesHandler struct {
	engine *engine.Engine
}

// NewQuotesHandler creates a new QuotesHandler.
func NewQuotesHandler(eng *engine.Engine) *QuotesHandler {
	return &QuotesHandler{engine: eng}
}

// QuoteRequestInput describes the device to price.
type QuoteRequestInput struct {
	Body struct {
		Model          string        `json:"model"`
		Storage        string        `json:"storage"`
		Rank           string        `json:"rank"                      enum:"超美品,美品,良品,並品,リペア品"`
		Condition      ConditionBody `json:"condition"`
		GuaranteePrice int           `json:"guarantee_price,omitempty" doc:"Ignored for resale quotes" minimum:"0"`
		BasePrice      *int          `json:"base_price,omitempty"      doc:"Overrides the price table lookup" minimum:"0"`
	}
}

func (in *QuoteRequestInput) toQuoteInput() engine.QuoteInput {
	return engine.QuoteInput{
		Model:          in.Body.Model,
		Storage:        in.Body.Storage,
		Rank:           domain.Rank(in.Body.Rank),
		Condition:      in.Body.Condition.toDomain(),
		GuaranteePrice: in.Body.GuaranteePrice,
		BasePrice:      in.Body.BasePrice,
	}
}

// QuoteOutput is an itemized price.
type QuoteOutput struct {
	Body *engine.Quote
}

// Buyback prices a device the way intake and assessment do.
func (h *QuotesHandler) Buyback(ctx context.Context, input *QuoteRequestInput) (*QuoteOutput, error) {
	q, err := h.engine.QuoteBuyback(ctx, input.toQuoteInput())
	if err != nil {
		return nil, apiError(err)
	}
	return &QuoteOutput{Body: q}, nil
}

// Resale prices a device for resale listing.
func (h *QuotesHandler) Resale(ctx context.Context, input *QuoteRequestInput) (*QuoteOutput, error) {
	q, err := h.engine.QuoteResale(ctx, input.toQuoteInput())
	if err != nil {
		return nil, apiError(err)
	}
	return &QuoteOutput{Body: q}, nil
}

// RegisterQuoteRoutes registers the quote endpoints.
func RegisterQuoteRoutes(api huma.API, h *QuotesHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "quote-buyback",
		Method:      http.MethodPost,
		Path:        "/api/v1/quotes/buyback",
		Summary:     "Quote a buyback price",
		Tags:        []string{"quotes"},
		Errors:      []int{http.StatusUnprocessableEntity},
	}, h.Buyback)

	huma.Register(api, huma.Operation{
		OperationID: "quote-resale",
		Method:      http.MethodPost,
		Path:        "/api/v1/quotes/resale",
		Summary:     "Quote a resale price",
		Tags:        []string{"quotes"},
		Errors:      []int{http.StatusUnprocessableEntity},
	}, h.Resale)
}
