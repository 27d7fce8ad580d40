package store

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/donaldgifford/mailin-buyback/pkg/pricing"
	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

// MemoryStore is a thread-safe, in-memory Store. It backs local runs and
// engine tests. Values are deep-copied on the way in and out so callers never
// share state with the store.
type MemoryStore struct {
	mu sync.RWMutex

	requests  map[string]domain.MailBuybackRequest
	customers []domain.Customer
	buybacks  map[string]domain.Buyback
	inventory []domain.InventoryItem
	lines     []domain.BuybackItem
	tables    *pricing.Tables

	now func() time.Time
}

// NewMemoryStore creates an empty MemoryStore priced by tables. A nil tables
// prices every lookup as a gap.
func NewMemoryStore(tables *pricing.Tables) *MemoryStore {
	return &MemoryStore{
		requests: make(map[string]domain.MailBuybackRequest),
		buybacks: make(map[string]domain.Buyback),
		tables:   tables,
		now:      time.Now,
	}
}

// SetPriceTables swaps the pricing snapshot.
func (s *MemoryStore) SetPriceTables(t *pricing.Tables) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = t
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// CreateRequest implements RequestStore.
func (s *MemoryStore) CreateRequest(_ context.Context, r *domain.MailBuybackRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.requests {
		if existing.RequestNumber == r.RequestNumber {
			return fmt.Errorf("request number %s already exists", r.RequestNumber)
		}
	}

	now := s.now()
	r.ID = uuid.NewString()
	r.CreatedAt = now
	r.UpdatedAt = now

	stored, err := clone(*r)
	if err != nil {
		return err
	}
	s.requests[r.ID] = stored
	return nil
}

// GetRequest implements RequestStore.
func (s *MemoryStore) GetRequest(_ context.Context, id string) (*domain.MailBuybackRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("request %s: %w", id, ErrNotFound)
	}
	out, err := clone(r)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRequests implements RequestStore.
func (s *MemoryStore) ListRequests(
	_ context.Context,
	q *RequestQuery,
) ([]domain.MailBuybackRequest, int, error) {
	if q == nil {
		q = &RequestQuery{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.MailBuybackRequest
	for _, r := range s.requests {
		if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, r.Status) {
			continue
		}
		if q.RequestNumber != nil && r.RequestNumber != *q.RequestNumber {
			continue
		}
		matched = append(matched, r)
	}

	slices.SortFunc(matched, func(a, b domain.MailBuybackRequest) int {
		if q.OrderBy == orderByUpdated {
			return b.UpdatedAt.Compare(a.UpdatedAt)
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.RequestNumber, a.RequestNumber)
	})

	total := len(matched)
	start := min(max(q.Offset, 0), total)
	end := min(start+q.limit(), total)

	out := make([]domain.MailBuybackRequest, 0, end-start)
	for _, r := range matched[start:end] {
		c, err := clone(r)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, nil
}

// UpdateRequest implements RequestStore. The status check and write happen
// under one lock, matching the single-statement guard of PostgresStore.
func (s *MemoryStore) UpdateRequest(
	_ context.Context,
	id string,
	expected domain.Status,
	patch *RequestPatch,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return fmt.Errorf("request %s: %w", id, ErrNotFound)
	}
	if r.Status != expected {
		return &StatusConflictError{ID: id, Expected: expected, Actual: r.Status}
	}

	if patch.empty() {
		return errEmptyPatch
	}
	patched, err := clone(*patch)
	if err != nil {
		return err
	}
	patched.Apply(&r)
	r.UpdatedAt = s.now()
	s.requests[id] = r
	return nil
}

// DeleteRequest implements RequestStore.
func (s *MemoryStore) DeleteRequest(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[id]; !ok {
		return fmt.Errorf("request %s: %w", id, ErrNotFound)
	}
	delete(s.requests, id)
	return nil
}

// ListReturnedBefore implements RequestStore.
func (s *MemoryStore) ListReturnedBefore(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.MailBuybackRequest
	for _, r := range s.requests {
		if r.Status == domain.StatusReturned && r.ReturnedAt != nil && r.ReturnedAt.Before(cutoff) {
			matched = append(matched, r)
		}
	}
	slices.SortFunc(matched, func(a, b domain.MailBuybackRequest) int {
		return a.ReturnedAt.Compare(*b.ReturnedAt)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	ids := make([]string, len(matched))
	for i, r := range matched {
		ids[i] = r.ID
	}
	return ids, nil
}

// CreateCustomer implements Registrar.
func (s *MemoryStore) CreateCustomer(_ context.Context, c *domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.NewString()
	c.CreatedAt = s.now()
	s.customers = append(s.customers, *c)
	return nil
}

// CreateBuyback implements Registrar.
func (s *MemoryStore) CreateBuyback(_ context.Context, b *domain.Buyback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = uuid.NewString()
	b.BoughtAt = s.now()
	s.buybacks[b.ID] = *b
	return nil
}

// CreateInventoryItem implements Registrar.
func (s *MemoryStore) CreateInventoryItem(_ context.Context, i *domain.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buybacks[i.BuybackID]; !ok {
		return fmt.Errorf("buyback %s: %w", i.BuybackID, ErrNotFound)
	}
	i.ID = uuid.NewString()
	i.CreatedAt = s.now()
	s.inventory = append(s.inventory, *i)
	return nil
}

// CreateBuybackItem implements Registrar.
func (s *MemoryStore) CreateBuybackItem(_ context.Context, i *domain.BuybackItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i.ID = uuid.NewString()
	s.lines = append(s.lines, *i)
	return nil
}

// SetBuybackInventory implements Registrar.
func (s *MemoryStore) SetBuybackInventory(_ context.Context, buybackID, inventoryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buybacks[buybackID]
	if !ok {
		return fmt.Errorf("buyback %s: %w", buybackID, ErrNotFound)
	}
	b.InventoryID = &inventoryID
	s.buybacks[buybackID] = b
	return nil
}

// LoadPriceTables implements PriceSource.
func (s *MemoryStore) LoadPriceTables(context.Context) (*pricing.Tables, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tables, nil
}

// Customers returns every customer record in creation order.
func (s *MemoryStore) Customers() []domain.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.customers)
}

// Buybacks returns every purchase header ordered by request number.
func (s *MemoryStore) Buybacks() []domain.Buyback {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Buyback, 0, len(s.buybacks))
	for _, b := range s.buybacks {
		out = append(out, b)
	}
	slices.SortFunc(out, func(a, b domain.Buyback) int {
		return cmp.Compare(a.RequestNumber, b.RequestNumber)
	})
	return out
}

// InventoryItems returns every inventory record in creation order.
func (s *MemoryStore) InventoryItems() []domain.InventoryItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.inventory)
}

// BuybackItems returns every purchase line in creation order.
func (s *MemoryStore) BuybackItems() []domain.BuybackItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lines)
}

// clone deep-copies v through its JSON form.
func clone[T any](v T) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("copying %T: %w", v, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("copying %T: %w", v, err)
	}
	return out, nil
}
