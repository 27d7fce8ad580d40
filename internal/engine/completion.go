package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/donaldgifford/mailin-buyback/internal/metrics"
	"github.com/donaldgifford/mailin-buyback/internal/notify"
	"github.com/donaldgifford/mailin-buyback/internal/store"
	"github.com/donaldgifford/mailin-buyback/pkg/pricing"
	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

// CompletedItem is the inventory materialized for one device.
type CompletedItem struct {
	ItemID           string  `json:"item_id"`
	InventoryID      string  `json:"inventory_id"`
	ManagementNumber *string `json:"management_number,omitempty"`
	BuybackItemID    string  `json:"buyback_item_id"`
	Cost             int     `json:"cost"`
}

// Completion is the result of a successful payout completion.
type Completion struct {
	RequestID     string `json:"request_id"`
	RequestNumber string `json:"request_number"`
	CustomerID    string `json:"customer_id"`
	BuybackID     string `json:"buyback_id"`
	// InventoryID and ManagementNumber describe the first device.
	InventoryID      string          `json:"inventory_id"`
	ManagementNumber *string         `json:"management_number,omitempty"`
	Items            []CompletedItem `json:"items"`
	// Warnings holds non-fatal step failures. A retirement warning leaves the
	// request in the paid status for RetryRetirement.
	Warnings []*PersistenceError `json:"-"`
}

// Warning joins the non-fatal step failures, or returns nil.
func (c *Completion) Warning() error {
	errs := make([]error, len(c.Warnings))
	for i, w := range c.Warnings {
		errs[i] = w
	}
	return errors.Join(errs...)
}

// Retired reports whether the source request was deleted.
func (c *Completion) Retired() bool {
	for _, w := range c.Warnings {
		if w.Step == StepRetireRequest {
			return false
		}
	}
	return true
}

// itemPlan is the resolved final state of one device.
type itemPlan struct {
	item      *domain.RequestItem
	condition domain.Condition
	rank      domain.Rank
	cost      int
}

// CompletePayout claims a waiting_payment request by moving it to paid, then
// materializes the customer, purchase, and inventory records and deletes the
// request. A fatal failure puts the request back to waiting_payment with the
// records already written saved in its Registration, and returns a
// *PersistenceError naming them. Calling CompletePayout again resumes from
// that Registration without writing any record twice.
func (eng *Engine) CompletePayout(ctx context.Context, id string) (c *Completion, err error) {
	ctx, span := eng.startSpan(ctx, "CompletePayout", id)
	defer func() { endSpan(span, err) }()

	start := time.Now()
	defer func() {
		metrics.CompletionDuration.Observe(time.Since(start).Seconds())
	}()

	r, err := eng.load(ctx, id, ActionCompletePayout, domain.StatusWaitingPayment)
	if err != nil {
		return nil, err
	}

	plans, err := planItems(r)
	if err != nil {
		return nil, err
	}

	now := eng.now()
	paid := domain.StatusPaid
	if err := eng.transition(ctx, r, ActionCompletePayout, &store.RequestPatch{
		Status: &paid,
		PaidAt: &now,
	}); err != nil {
		return nil, err
	}

	reg := resumeRegistration(r)
	c, err = eng.complete(ctx, r, plans, reg)
	if err != nil {
		eng.releaseClaim(ctx, r, reg)
		return nil, err
	}

	metrics.CompletionsTotal.Inc()
	eng.log.Info("payout completed",
		"request_id", r.ID,
		"request_number", r.RequestNumber,
		"buyback_id", c.BuybackID,
		"inventory_id", c.InventoryID,
		"warnings", len(c.Warnings),
	)

	eng.notify(ctx, notify.ActionPaid, r)
	return c, nil
}

// resumeRegistration copies the progress saved by an earlier failed
// completion, or starts an empty one.
func resumeRegistration(r *domain.MailBuybackRequest) *domain.Registration {
	if r.Registration == nil {
		return &domain.Registration{}
	}
	reg := *r.Registration
	reg.Items = slices.Clone(r.Registration.Items)
	reg.Complete = false
	return &reg
}

// releaseClaim puts a request whose completion failed back to
// waiting_payment, saving reg so the next attempt resumes instead of
// duplicating records. paid_at keeps the time of the failed attempt.
func (eng *Engine) releaseClaim(ctx context.Context, r *domain.MailBuybackRequest, reg *domain.Registration) {
	back := domain.StatusWaitingPayment
	if err := eng.store.UpdateRequest(ctx, r.ID, domain.StatusPaid, &store.RequestPatch{
		Status:       &back,
		Registration: reg,
	}); err != nil {
		eng.log.Error("releasing completion claim failed; request left in paid",
			"request_id", r.ID,
			"error", err,
		)
		return
	}
	metrics.TransitionsTotal.WithLabelValues(string(domain.StatusPaid), string(back)).Inc()
}

// planItems resolves each device's final condition, rank, and cost before
// any write takes place.
func planItems(r *domain.MailBuybackRequest) ([]itemPlan, error) {
	if len(r.Items) == 0 {
		return nil, &ValidationError{Field: "items", Reason: "request has no items"}
	}

	prices := make([]int, len(r.Items))
	computed := 0
	plans := make([]itemPlan, len(r.Items))

	for i := range r.Items {
		item := &r.Items[i]
		changes := r.ItemChangesFor(item.ID)

		cond, err := pricing.EffectiveCondition(changes, item.Condition)
		if err != nil {
			return nil, err
		}
		rank, err := pricing.EffectiveRank(changes, item.Rank)
		if err != nil {
			return nil, err
		}

		prices[i] = itemFinalPrice(r, item)
		computed += prices[i]
		plans[i] = itemPlan{item: item, condition: cond, rank: rank}
	}

	total := computed
	if r.FinalPrice != nil {
		total = *r.FinalPrice
	}
	for i, cost := range allocate(total, prices) {
		plans[i].cost = cost
	}
	return plans, nil
}

// itemFinalPrice returns the assessed price of an item, or its preliminary
// estimate when no assessment result exists.
func itemFinalPrice(r *domain.MailBuybackRequest, item *domain.RequestItem) int {
	if r.AssessmentDetails != nil {
		for _, res := range r.AssessmentDetails.Results {
			if res.ItemID == item.ID {
				return res.FinalPrice
			}
		}
	}
	return item.EstimatedPrice
}

// allocate splits total across items in proportion to weights. The last item
// absorbs the rounding remainder so the shares always sum to total. Zero
// weights split evenly.
func allocate(total int, weights []int) []int {
	out := make([]int, len(weights))
	if len(weights) == 0 {
		return out
	}

	sum := 0
	for _, w := range weights {
		sum += w
	}

	assigned := 0
	for i := range len(weights) - 1 {
		if sum > 0 {
			out[i] = int(int64(total) * int64(weights[i]) / int64(sum))
		} else {
			out[i] = total / len(weights)
		}
		assigned += out[i]
	}
	out[len(out)-1] = total - assigned
	return out
}

// complete runs the completion write sequence for a claimed request. Steps
// whose records reg already names are skipped. reg is updated as each record
// is written.
func (eng *Engine) complete(
	ctx context.Context,
	r *domain.MailBuybackRequest,
	plans []itemPlan,
	reg *domain.Registration,
) (*Completion, error) {
	fail := func(step CompletionStep, err error) error {
		metrics.CompletionFailuresTotal.WithLabelValues(step.String()).Inc()
		partial := partialOf(reg)
		eng.log.Error("completion failed",
			"request_id", r.ID,
			"step", step.String(),
			"customer_id", partial.CustomerID,
			"buyback_id", partial.BuybackID,
			"inventory_ids", partial.InventoryIDs,
			"error", err,
		)
		return &PersistenceError{Step: step, Fatal: true, Err: err, Partial: partial}
	}

	// Step 1.
	if reg.CustomerID == "" {
		customer := &domain.Customer{CustomerInfo: r.Customer}
		if err := eng.store.CreateCustomer(ctx, customer); err != nil {
			return nil, fail(StepCreateCustomer, err)
		}
		reg.CustomerID = customer.ID
	}

	// Step 2. The header carries a copy of the first device for single-item
	// reports.
	if reg.BuybackID == "" {
		first := plans[0]
		total := 0
		for _, p := range plans {
			total += p.cost
		}
		buyback := &domain.Buyback{
			CustomerID:       reg.CustomerID,
			RequestNumber:    r.RequestNumber,
			TotalPrice:       total,
			PaymentMethod:    domain.PaymentBankTransfer,
			Model:            first.item.Model,
			Storage:          first.item.Storage,
			Rank:             first.rank,
			IMEI:             first.item.IMEI,
			Condition:        first.condition,
			AgreementDocPath: r.AgreementDocPath,
		}
		if err := eng.store.CreateBuyback(ctx, buyback); err != nil {
			return nil, fail(StepCreateBuyback, err)
		}
		reg.BuybackID = buyback.ID
	}

	c := &Completion{
		RequestID:     r.ID,
		RequestNumber: r.RequestNumber,
		CustomerID:    reg.CustomerID,
		BuybackID:     reg.BuybackID,
		Items:         make([]CompletedItem, 0, len(plans)),
	}

	// Steps 3 and 4, per device.
	for _, p := range plans {
		ri, _ := reg.ItemFor(p.item.ID)
		ri.ItemID = p.item.ID
		mgmt := domain.ManagementNumberFromIMEI(p.item.IMEI)

		if ri.InventoryID == "" {
			inv := &domain.InventoryItem{
				Model:            p.item.Model,
				Storage:          p.item.Storage,
				Color:            p.item.Color,
				Rank:             p.rank,
				IMEI:             p.item.IMEI,
				ManagementNumber: mgmt,
				Condition:        p.condition,
				Status:           domain.InventorySellable,
				Cost:             p.cost,
				BuybackID:        reg.BuybackID,
			}
			if err := eng.store.CreateInventoryItem(ctx, inv); err != nil {
				return nil, fail(StepCreateInventory, err)
			}
			ri.InventoryID = inv.ID
			setRegisteredItem(reg, ri)
		}

		if ri.BuybackItemID == "" {
			line := &domain.BuybackItem{
				BuybackID:    reg.BuybackID,
				InventoryID:  ri.InventoryID,
				BuybackPrice: p.cost,
			}
			if err := eng.store.CreateBuybackItem(ctx, line); err != nil {
				return nil, fail(StepCreateBuybackItem, err)
			}
			ri.BuybackItemID = line.ID
			setRegisteredItem(reg, ri)
		}

		c.Items = append(c.Items, CompletedItem{
			ItemID:           p.item.ID,
			InventoryID:      ri.InventoryID,
			ManagementNumber: mgmt,
			BuybackItemID:    ri.BuybackItemID,
			Cost:             p.cost,
		})
	}
	c.InventoryID = c.Items[0].InventoryID
	c.ManagementNumber = c.Items[0].ManagementNumber

	// Every record exists. Mark the request so RetryRetirement can tell a
	// finished completion from one still writing.
	reg.Complete = true
	marked := true
	if err := eng.store.UpdateRequest(ctx, r.ID, domain.StatusPaid, &store.RequestPatch{
		Registration: reg,
	}); err != nil {
		marked = false
		eng.log.Warn("recording completed registration failed",
			"request_id", r.ID,
			"error", err,
		)
	}

	// Step 5.
	if err := eng.store.SetBuybackInventory(ctx, reg.BuybackID, c.InventoryID); err != nil {
		c.Warnings = append(c.Warnings, eng.warn(r, StepLinkInventory, err, partialOf(reg)))
	}

	// Step 6. A failed delete is left for RetryRetirement.
	if err := eng.store.DeleteRequest(ctx, r.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		if !marked {
			err = fmt.Errorf("%w (registration not recorded; RetryRetirement will refuse)", err)
		}
		c.Warnings = append(c.Warnings, eng.warn(r, StepRetireRequest, err, partialOf(reg)))
	}

	return c, nil
}

// setRegisteredItem stores ri in reg, replacing the entry for the same item.
func setRegisteredItem(reg *domain.Registration, ri domain.RegisteredItem) {
	for i := range reg.Items {
		if reg.Items[i].ItemID == ri.ItemID {
			reg.Items[i] = ri
			return
		}
	}
	reg.Items = append(reg.Items, ri)
}

// partialOf lists the records reg names.
func partialOf(reg *domain.Registration) Partial {
	p := Partial{CustomerID: reg.CustomerID, BuybackID: reg.BuybackID}
	for _, it := range reg.Items {
		if it.InventoryID != "" {
			p.InventoryIDs = append(p.InventoryIDs, it.InventoryID)
		}
		if it.BuybackItemID != "" {
			p.BuybackItemIDs = append(p.BuybackItemIDs, it.BuybackItemID)
		}
	}
	return p
}

func (eng *Engine) warn(
	r *domain.MailBuybackRequest,
	step CompletionStep,
	err error,
	partial Partial,
) *PersistenceError {
	metrics.CompletionWarningsTotal.WithLabelValues(step.String()).Inc()
	eng.log.Warn("completion step failed (non-fatal)",
		"request_id", r.ID,
		"step", step.String(),
		"error", err,
	)
	return &PersistenceError{Step: step, Err: err, Partial: partial}
}

// RetryRetirement deletes a request left in paid by a completion whose final
// delete failed. It creates no records and is idempotent: a request that is
// already gone counts as retired. A paid request whose completion has not
// recorded its registration is still being written by another caller and is
// refused with a *GuardViolation.
func (eng *Engine) RetryRetirement(ctx context.Context, id string) (err error) {
	ctx, span := eng.startSpan(ctx, "RetryRetirement", id)
	defer func() { endSpan(span, err) }()

	r, err := eng.load(ctx, id, ActionRetireRequest, domain.StatusPaid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if r.Registration == nil || !r.Registration.Complete {
		return eng.guardViolationReason(id, ActionRetireRequest, domain.StatusPaid, r.Status,
			"payout completion has not finished")
	}

	if err := eng.store.DeleteRequest(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("retiring request: %w", err)
	}

	eng.log.Info("request retired", "request_id", id, "buyback_id", r.Registration.BuybackID)
	return nil
}
