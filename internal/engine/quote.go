package engine

import (
	"context"

	"github.com/donaldgifford/mailin-buyback/pkg/pricing"
	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

// QuoteInput describes a device to price without creating a request.
type QuoteInput struct {
	Model          string           `json:"model"`
	Storage        string           `json:"storage"`
	Rank           domain.Rank      `json:"rank"`
	Condition      domain.Condition `json:"condition"`
	GuaranteePrice int              `json:"guarantee_price,omitempty"`
	BasePrice      *int             `json:"base_price,omitempty"`
}

// Quote is a priced device with its deduction breakdown.
type Quote struct {
	BasePrice        int            `json:"base_price"`
	Lines            []pricing.Line `json:"lines"`
	Deduction        int            `json:"deduction"`
	RawPrice         int            `json:"raw_price"`
	FinalPrice       int            `json:"final_price"`
	GuaranteeApplied bool           `json:"guarantee_applied"`
}

func (in QuoteInput) item() NewItem {
	return NewItem{
		Model:          in.Model,
		Storage:        in.Storage,
		Rank:           in.Rank,
		Condition:      in.Condition,
		GuaranteePrice: in.GuaranteePrice,
		BasePrice:      in.BasePrice,
	}
}

func (eng *Engine) quoteSetup(ctx context.Context, in QuoteInput) (*pricing.Tables, int, error) {
	if err := in.item().validate(0); err != nil {
		return nil, 0, err
	}

	tables, err := eng.priceTables(ctx)
	if err != nil {
		return nil, 0, err
	}
	base, err := basePriceFor(tables, in.item(), 0)
	if err != nil {
		return nil, 0, err
	}
	return tables, base, nil
}

// QuoteBuyback prices a device for buyback, applying the guarantee floor.
func (eng *Engine) QuoteBuyback(ctx context.Context, in QuoteInput) (*Quote, error) {
	tables, base, err := eng.quoteSetup(ctx, in)
	if err != nil {
		return nil, err
	}

	lines := pricing.Breakdown(in.Condition, tables.Buyback(), in.Model, in.Storage)
	eng.logGaps(lines, in.Model, in.Storage)
	res := pricing.BuybackPrice(in.Condition, base, in.GuaranteePrice, tables.Buyback(), in.Model, in.Storage)

	return &Quote{
		BasePrice:        base,
		Lines:            lines,
		Deduction:        res.Deduction,
		RawPrice:         res.RawPrice,
		FinalPrice:       res.FinalPrice,
		GuaranteeApplied: res.GuaranteeApplied,
	}, nil
}

// QuoteResale prices a device for resale. Guarantees never apply.
func (eng *Engine) QuoteResale(ctx context.Context, in QuoteInput) (*Quote, error) {
	tables, base, err := eng.quoteSetup(ctx, in)
	if err != nil {
		return nil, err
	}

	lines := pricing.ResaleBreakdown(in.Condition, base, tables.Resale(), in.Model, in.Storage, eng.resaleRule)
	eng.logGaps(lines, in.Model, in.Storage)

	deduction := 0
	for _, l := range lines {
		deduction += l.Amount
	}
	price := max(base-deduction, 0)

	return &Quote{
		BasePrice:  base,
		Lines:      lines,
		Deduction:  deduction,
		RawPrice:   price,
		FinalPrice: price,
	}, nil
}
