package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/mailin-buyback/internal/engine"
	"github.com/donaldgifford/mailin-buyback/internal/store"
)

// apiError maps engine and store errors onto HTTP problem responses:
// guard violations are 409, validation failures 422, missing requests 404
// and completion failures 500 with the already-written record IDs attached.
func apiError(err error) error {
	var (
		gv *engine.GuardViolation
		ve *engine.ValidationError
		pe *engine.PersistenceError
	)

	switch {
	case errors.As(err, &gv):
		detail := &huma.ErrorDetail{Location: "status", Message: "required " + string(gv.Expected)}
		if gv.Actual != "" {
			detail.Value = gv.Actual
		}
		return huma.Error409Conflict(gv.Error(), detail)
	case errors.As(err, &ve):
		return huma.Error422UnprocessableEntity(ve.Error(), &huma.ErrorDetail{
			Location: "body." + ve.Field,
			Message:  ve.Reason,
		})
	case errors.Is(err, store.ErrNotFound):
		return huma.Error404NotFound("request not found")
	case errors.As(err, &pe):
		return huma.Error500InternalServerError(pe.Error(), partialDetails(pe.Partial)...)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return huma.Error503ServiceUnavailable("request canceled: " + err.Error())
	default:
		return huma.Error500InternalServerError("internal error: " + err.Error())
	}
}

// partialDetails lists records a failed completion left behind.
func partialDetails(p engine.Partial) []error {
	const msg = "written before failure"

	var out []error
	if p.CustomerID != "" {
		out = append(out, &huma.ErrorDetail{Location: "partial.customer_id", Message: msg, Value: p.CustomerID})
	}
	if p.BuybackID != "" {
		out = append(out, &huma.ErrorDetail{Location: "partial.buyback_id", Message: msg, Value: p.BuybackID})
	}
	for _, id := range p.InventoryIDs {
		out = append(out, &huma.ErrorDetail{Location: "partial.inventory_ids", Message: msg, Value: id})
	}
	for _, id := range p.BuybackItemIDs {
		out = append(out, &huma.ErrorDetail{Location: "partial.buyback_item_ids", Message: msg, Value: id})
	}
	return out
}
