package engine

import (
	"errors"
	"fmt"

	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

// ValidationError reports malformed input. It is always returned before any
// write takes place.
type ValidationError = domain.ValidationError

// GuardViolation is returned when an action is attempted from a status other
// than its required source. The stored request is left unchanged.
type GuardViolation struct {
	RequestID string
	Action    string
	Expected  domain.Status
	// Actual is empty when the request disappeared between load and write.
	Actual domain.Status
	// Reason, when set, explains a refusal from the expected status.
	Reason string
}

func (e *GuardViolation) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("request %s: cannot %s: %s", e.RequestID, e.Action, e.Reason)
	}
	if e.Actual == "" {
		return fmt.Sprintf("request %s: cannot %s: request no longer exists", e.RequestID, e.Action)
	}
	return fmt.Sprintf("request %s: cannot %s from status %s (requires %s)",
		e.RequestID, e.Action, e.Actual, e.Expected)
}

// CompletionStep identifies one write of the payout completion sequence.
type CompletionStep int

// Completion steps, in execution order.
const (
	StepCreateCustomer CompletionStep = iota + 1
	StepCreateBuyback
	StepCreateInventory
	StepCreateBuybackItem
	StepLinkInventory
	StepRetireRequest
)

func (s CompletionStep) String() string {
	switch s {
	case StepCreateCustomer:
		return "create_customer"
	case StepCreateBuyback:
		return "create_buyback"
	case StepCreateInventory:
		return "create_inventory"
	case StepCreateBuybackItem:
		return "create_buyback_item"
	case StepLinkInventory:
		return "link_inventory"
	case StepRetireRequest:
		return "retire_request"
	default:
		return fmt.Sprintf("step_%d", int(s))
	}
}

// Partial lists the records a completion had already written when it
// stopped. Nothing in it is rolled back.
type Partial struct {
	CustomerID     string   `json:"customer_id,omitempty"`
	BuybackID      string   `json:"buyback_id,omitempty"`
	InventoryIDs   []string `json:"inventory_ids,omitempty"`
	BuybackItemIDs []string `json:"buyback_item_ids,omitempty"`
}

// Empty reports whether no record was written.
func (p Partial) Empty() bool {
	return p.CustomerID == "" && p.BuybackID == "" &&
		len(p.InventoryIDs) == 0 && len(p.BuybackItemIDs) == 0
}

// PersistenceError reports a failed completion write. Fatal errors (steps
// 1-4) abort the sequence; non-fatal ones are attached to a successful
// Completion as warnings.
type PersistenceError struct {
	Step    CompletionStep
	Fatal   bool
	Err     error
	Partial Partial
}

func (e *PersistenceError) Error() string {
	kind := "warning"
	if e.Fatal {
		kind = "failed"
	}
	return fmt.Sprintf("completion step %d (%s) %s: %v", int(e.Step), e.Step, kind, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsGuardViolation reports whether err is or wraps a *GuardViolation.
func IsGuardViolation(err error) bool {
	var gv *GuardViolation
	return errors.As(err, &gv)
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
