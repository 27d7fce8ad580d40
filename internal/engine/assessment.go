package engine

import (
	"context"
	"fmt"

	"github.com/donaldgifford/mailin-buyback/pkg/pricing"
	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

// Assessment is the priced outcome of a set of item changes.
type Assessment struct {
	ItemChanges   []domain.ItemChange      `json:"item_changes"`
	Results       []domain.ItemPriceResult `json:"results"`
	ComputedPrice int                      `json:"computed_price"`
}

type changeKey struct {
	itemID string
	field  domain.ChangeField
}

// normalizeChanges seeds one row per tracked field of every item and overlays
// the submitted edits. Before values always come from the stored request;
// only rows submitted with HasChanged set take their After value.
func normalizeChanges(r *domain.MailBuybackRequest, edits []domain.ItemChange) ([]domain.ItemChange, error) {
	rows := make([]domain.ItemChange, 0, len(r.Items)*len(domain.TrackedFields))
	index := make(map[changeKey]int, cap(rows))
	for i := range r.Items {
		for _, row := range pricing.SeedChanges(&r.Items[i]) {
			index[changeKey{row.ItemID, row.Field}] = len(rows)
			rows = append(rows, row)
		}
	}

	seen := make(map[changeKey]bool, len(edits))
	for _, e := range edits {
		k := changeKey{e.ItemID, e.Field}
		idx, ok := index[k]
		if !ok {
			return nil, &ValidationError{
				Field:  "item_changes",
				Reason: fmt.Sprintf("no tracked field %q on item %q", e.Field, e.ItemID),
			}
		}
		if seen[k] {
			return nil, &ValidationError{
				Field:  "item_changes",
				Reason: fmt.Sprintf("duplicate change for field %q on item %q", e.Field, e.ItemID),
			}
		}
		seen[k] = true

		if !e.HasChanged {
			continue
		}
		if err := pricing.SetAfter(&rows[idx], e.After.Value); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func rowsFor(changes []domain.ItemChange, itemID string) []domain.ItemChange {
	var out []domain.ItemChange
	for _, c := range changes {
		if c.ItemID == itemID {
			out = append(out, c)
		}
	}
	return out
}

// assess prices every item of r under the given edits. It is pure apart from
// logging and may be called any number of times.
func (eng *Engine) assess(
	r *domain.MailBuybackRequest,
	edits []domain.ItemChange,
	tables *pricing.Tables,
) (*Assessment, error) {
	changes, err := normalizeChanges(r, edits)
	if err != nil {
		return nil, err
	}

	a := &Assessment{
		ItemChanges: changes,
		Results:     make([]domain.ItemPriceResult, 0, len(r.Items)),
	}

	for i := range r.Items {
		item := &r.Items[i]
		rows := rowsFor(changes, item.ID)

		base, err := eng.effectiveBasePrice(item, rows, tables)
		if err != nil {
			return nil, err
		}

		res, err := pricing.Recompute(
			rows, base, item.GuaranteePrice, item.EstimatedPrice,
			tables.Buyback(), item.Model, item.Storage, item.Condition,
		)
		if err != nil {
			return nil, err
		}

		eng.logGaps(res.Lines, item.Model, item.Storage)

		a.Results = append(a.Results, domain.ItemPriceResult{
			ItemID:      item.ID,
			BasePrice:   base,
			PriceResult: res.PriceResult,
		})
		a.ComputedPrice += res.FinalPrice
	}

	return a, nil
}

// effectiveBasePrice returns the base price for the item's effective rank.
// A regraded item with no table row keeps its stored base price.
func (eng *Engine) effectiveBasePrice(
	item *domain.RequestItem,
	rows []domain.ItemChange,
	tables *pricing.Tables,
) (int, error) {
	rank, err := pricing.EffectiveRank(rows, item.Rank)
	if err != nil {
		return 0, err
	}
	if rank == item.Rank {
		return item.BasePrice, nil
	}

	if p, ok := tables.BasePrice(item.Model, item.Storage, rank); ok {
		return p, nil
	}
	eng.log.Debug("base price lookup gap, keeping stored base price",
		"item_id", item.ID,
		"model", item.Model,
		"storage", item.Storage,
		"rank", rank,
	)
	return item.BasePrice, nil
}

// PreviewAssessment prices the given edits without writing anything.
func (eng *Engine) PreviewAssessment(
	ctx context.Context,
	id string,
	edits []domain.ItemChange,
) (a *Assessment, err error) {
	ctx, span := eng.startSpan(ctx, "PreviewAssessment", id)
	defer func() { endSpan(span, err) }()

	r, err := eng.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	tables, err := eng.priceTables(ctx)
	if err != nil {
		return nil, err
	}

	return eng.assess(r, edits, tables)
}
