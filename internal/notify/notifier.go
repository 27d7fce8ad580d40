// Package notify defines the customer notification interface and its
// delivery backends. Notifications are best-effort: callers log and count
// failures but never roll back the transition that triggered them.
package notify

import (
	"context"
	"errors"
	"time"

	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

// Action names the transition a notification announces.
type Action string

// Notification actions.
const (
	ActionKitSent  Action = "kit_sent"
	ActionAssessed Action = "assessed"
	ActionApproved Action = "approved"
	ActionRejected Action = "rejected"
	ActionPaid     Action = "paid"
	ActionReturned Action = "returned"
)

// Event is the payload delivered to every backend.
type Event struct {
	Action        Action        `json:"action"`
	RequestID     string        `json:"request_id"`
	RequestNumber string        `json:"request_number"`
	Status        domain.Status `json:"status"`
	CustomerName  string        `json:"customer_name"`
	CustomerEmail string        `json:"customer_email"`
	// Price is the amount relevant to the action: the assessed price for
	// assessed/approved/rejected and the payout for paid.
	Price      *int      `json:"price,omitempty"`
	ItemCount  int       `json:"item_count"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent builds an Event from the request state after a transition.
func NewEvent(action Action, r *domain.MailBuybackRequest, at time.Time) *Event {
	return &Event{
		Action:        action,
		RequestID:     r.ID,
		RequestNumber: r.RequestNumber,
		Status:        r.Status,
		CustomerName:  r.Customer.Name,
		CustomerEmail: r.Customer.Email,
		Price:         r.FinalPrice,
		ItemCount:     len(r.Items),
		OccurredAt:    at,
	}
}

// Notifier delivers lifecycle notifications.
type Notifier interface {
	Notify(ctx context.Context, event *Event) error
}

// Multi fans an event out to several backends. Every backend is attempted;
// the returned error joins the individual failures.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, event *Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
