package engine

import (
	"context"
	"strings"

	"github.com/donaldgifford/mailin-buyback/internal/metrics"
	"github.com/donaldgifford/mailin-buyback/internal/notify"
	"github.com/donaldgifford/mailin-buyback/internal/store"
	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

// MarkKitSent records that the shipping kit was sent to the customer.
func (eng *Engine) MarkKitSent(ctx context.Context, id string) (r *domain.MailBuybackRequest, err error) {
	ctx, span := eng.startSpan(ctx, "MarkKitSent", id)
	defer func() { endSpan(span, err) }()

	r, err = eng.load(ctx, id, ActionMarkKitSent, domain.StatusPending)
	if err != nil {
		return nil, err
	}

	now := eng.now()
	next := domain.StatusKitSent
	if err := eng.transition(ctx, r, ActionMarkKitSent, &store.RequestPatch{
		Status:    &next,
		KitSentAt: &now,
	}); err != nil {
		return nil, err
	}

	eng.notify(ctx, notify.ActionKitSent, r)
	return r, nil
}

// AssessmentInput is the staff-entered final assessment.
type AssessmentInput struct {
	ItemChanges []domain.ItemChange
	Photos      []domain.Photo
	// FinalPrice overrides the computed total when set.
	FinalPrice *int
}

// SubmitAssessment records the final assessment and its price.
func (eng *Engine) SubmitAssessment(
	ctx context.Context,
	id string,
	in AssessmentInput,
) (r *domain.MailBuybackRequest, err error) {
	ctx, span := eng.startSpan(ctx, "SubmitAssessment", id)
	defer func() { endSpan(span, err) }()

	r, err = eng.load(ctx, id, ActionSubmitAssessment, domain.StatusKitSent)
	if err != nil {
		return nil, err
	}

	if in.FinalPrice != nil && *in.FinalPrice < 0 {
		return nil, &ValidationError{Field: "final_price", Reason: "must not be negative"}
	}
	photos := make([]domain.Photo, 0, len(in.Photos))
	for _, p := range in.Photos {
		if strings.TrimSpace(p.Path) == "" {
			return nil, &ValidationError{Field: "photos", Reason: "photo path is required"}
		}
		photos = append(photos, p)
	}

	tables, err := eng.priceTables(ctx)
	if err != nil {
		return nil, err
	}

	a, err := eng.assess(r, in.ItemChanges, tables)
	if err != nil {
		return nil, err
	}

	final := a.ComputedPrice
	if in.FinalPrice != nil {
		final = *in.FinalPrice
	}

	now := eng.now()
	next := domain.StatusAssessed
	if err := eng.transition(ctx, r, ActionSubmitAssessment, &store.RequestPatch{
		Status:     &next,
		FinalPrice: &final,
		AssessmentDetails: &domain.AssessmentDetails{
			ItemChanges:   a.ItemChanges,
			Photos:        photos,
			Results:       a.Results,
			ComputedPrice: a.ComputedPrice,
		},
		AssessedAt: &now,
	}); err != nil {
		return nil, err
	}

	if final != r.TotalEstimatedPrice {
		metrics.AssessmentPriceChangedTotal.Inc()
	}
	for _, res := range a.Results {
		if res.GuaranteeApplied {
			metrics.GuaranteeAppliedTotal.Inc()
		}
	}

	eng.notify(ctx, notify.ActionAssessed, r)
	return r, nil
}

// RecordCustomerDecision applies the customer's response to the assessment.
// Approval requires complete bank transfer details; rejection ignores bank.
func (eng *Engine) RecordCustomerDecision(
	ctx context.Context,
	id string,
	decision domain.Decision,
	bank *domain.BankInfo,
) (r *domain.MailBuybackRequest, err error) {
	ctx, span := eng.startSpan(ctx, "RecordCustomerDecision", id)
	defer func() { endSpan(span, err) }()

	var action string
	switch decision {
	case domain.DecisionApprove:
		action = ActionApprove
	case domain.DecisionReject:
		action = ActionReject
	default:
		return nil, &ValidationError{Field: "decision", Reason: "must be approve or reject"}
	}

	r, err = eng.load(ctx, id, action, domain.StatusAssessed)
	if err != nil {
		return nil, err
	}

	now := eng.now()
	patch := &store.RequestPatch{}
	event := notify.ActionRejected

	if decision == domain.DecisionApprove {
		if err := bank.Validate(); err != nil {
			return nil, err
		}
		next := domain.StatusWaitingPayment
		b := *bank
		patch.Status = &next
		patch.Bank = &b
		patch.ApprovedAt = &now
		event = notify.ActionApproved
	} else {
		next := domain.StatusReturnRequested
		patch.Status = &next
		patch.RejectedAt = &now
	}

	if err := eng.transition(ctx, r, action, patch); err != nil {
		return nil, err
	}

	eng.notify(ctx, event, r)
	return r, nil
}

// CompleteReturn records that the device was sent back to the customer. The
// request is kept until the retention sweep removes it.
func (eng *Engine) CompleteReturn(ctx context.Context, id string) (r *domain.MailBuybackRequest, err error) {
	ctx, span := eng.startSpan(ctx, "CompleteReturn", id)
	defer func() { endSpan(span, err) }()

	r, err = eng.load(ctx, id, ActionCompleteReturn, domain.StatusReturnRequested)
	if err != nil {
		return nil, err
	}

	now := eng.now()
	next := domain.StatusReturned
	if err := eng.transition(ctx, r, ActionCompleteReturn, &store.RequestPatch{
		Status:     &next,
		ReturnedAt: &now,
	}); err != nil {
		return nil, err
	}

	eng.notify(ctx, notify.ActionReturned, r)
	return r, nil
}
