// Package store defines the datastore abstraction for the mail-in buyback
// service. The engine depends only on the Store interface; PostgresStore is
// the production implementation and MemoryStore backs local runs and tests.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/donaldgifford/mailin-buyback/pkg/pricing"
	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrStatusConflict is returned when a guarded update finds the request in a
// status other than the expected one.
var ErrStatusConflict = errors.New("status conflict")

// StatusConflictError carries the status observed by a failed guarded update.
type StatusConflictError struct {
	ID       string
	Expected domain.Status
	Actual   domain.Status
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("request %s: expected status %s, found %s", e.ID, e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrStatusConflict) match.
func (e *StatusConflictError) Is(target error) bool {
	return target == ErrStatusConflict
}

// RequestStore persists mail-in buyback requests, one document per request.
type RequestStore interface {
	CreateRequest(ctx context.Context, r *domain.MailBuybackRequest) error
	GetRequest(ctx context.Context, id string) (*domain.MailBuybackRequest, error)
	ListRequests(ctx context.Context, q *RequestQuery) ([]domain.MailBuybackRequest, int, error)
	// UpdateRequest applies patch only if the stored status equals expected.
	// Otherwise it returns a *StatusConflictError and changes nothing.
	UpdateRequest(ctx context.Context, id string, expected domain.Status, patch *RequestPatch) error
	DeleteRequest(ctx context.Context, id string) error
	ListReturnedBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
}

// Registrar creates the durable records materialized by payout completion.
type Registrar interface {
	CreateCustomer(ctx context.Context, c *domain.Customer) error
	CreateBuyback(ctx context.Context, b *domain.Buyback) error
	CreateInventoryItem(ctx context.Context, i *domain.InventoryItem) error
	CreateBuybackItem(ctx context.Context, i *domain.BuybackItem) error
	SetBuybackInventory(ctx context.Context, buybackID, inventoryID string) error
}

// PriceSource supplies a read-only snapshot of the pricing tables.
type PriceSource interface {
	LoadPriceTables(ctx context.Context) (*pricing.Tables, error)
}

// Store defines all data access operations for the service.
type Store interface {
	RequestStore
	Registrar
	PriceSource

	Ping(ctx context.Context) error
}
