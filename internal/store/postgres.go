package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/donaldgifford/mailin-buyback/pkg/pricing"
	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

const defaultPoolSize = 10

// PostgresStore implements Store using pgxpool (connection-pooled PostgreSQL).
//
// Methods require a live Postgres and are covered by integration tests.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*pgxpool.Config)

// WithPoolSize sets the maximum number of pooled connections.
func WithPoolSize(n int) PostgresOption {
	return func(cfg *pgxpool.Config) {
		if n > 0 {
			cfg.MaxConns = int32(n) //nolint:gosec // bounded by config validation
		}
	}
}

// NewPostgresStore creates a new PostgresStore with connection pooling.
func NewPostgresStore(ctx context.Context, connString string, opts ...PostgresOption) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	cfg.MaxConns = defaultPoolSize
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close gracefully shuts down the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping verifies the database connection is alive.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies pending SQL schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, s.pool)
}

// CreateRequest inserts a new request and fills in its generated fields.
func (s *PostgresStore) CreateRequest(ctx context.Context, r *domain.MailBuybackRequest) error {
	customerJSON, err := json.Marshal(r.Customer)
	if err != nil {
		return fmt.Errorf("marshaling customer: %w", err)
	}
	itemsJSON, err := json.Marshal(r.Items)
	if err != nil {
		return fmt.Errorf("marshaling items: %w", err)
	}

	args := pgx.NamedArgs{
		"request_number":        r.RequestNumber,
		"customer":              customerJSON,
		"items":                 itemsJSON,
		"total_estimated_price": r.TotalEstimatedPrice,
		"status":                string(r.Status),
		"agreement_doc_path":    r.AgreementDocPath,
	}

	if err := s.pool.QueryRow(ctx, queryCreateRequest, args).Scan(
		&r.ID, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return fmt.Errorf("inserting request: %w", err)
	}
	return nil
}

// GetRequest retrieves a request by ID.
func (s *PostgresStore) GetRequest(ctx context.Context, id string) (*domain.MailBuybackRequest, error) {
	if !validID(id) {
		return nil, fmt.Errorf("request %s: %w", id, ErrNotFound)
	}

	r := &domain.MailBuybackRequest{}
	if err := scanRequest(s.pool.QueryRow(ctx, queryGetRequest, id), r); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("request %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting request: %w", err)
	}
	return r, nil
}

// ListRequests queries requests with optional filters, returning results and total count.
func (s *PostgresStore) ListRequests(
	ctx context.Context,
	q *RequestQuery,
) ([]domain.MailBuybackRequest, int, error) {
	if q == nil {
		q = &RequestQuery{}
	}
	dataSQL, countSQL, args := q.ToSQL()

	var total int
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting requests: %w", err)
	}

	rows, err := s.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying requests: %w", err)
	}
	defer rows.Close()

	var requests []domain.MailBuybackRequest
	for rows.Next() {
		var r domain.MailBuybackRequest
		if err := scanRequest(rows, &r); err != nil {
			return nil, 0, fmt.Errorf("scanning request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating requests: %w", err)
	}

	return requests, total, nil
}

// UpdateRequest applies patch with an optimistic status precondition.
func (s *PostgresStore) UpdateRequest(
	ctx context.Context,
	id string,
	expected domain.Status,
	patch *RequestPatch,
) error {
	if !validID(id) {
		return fmt.Errorf("request %s: %w", id, ErrNotFound)
	}

	query, args, err := patch.ToSQL(id, expected)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating request: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var actual string
	if err := s.pool.QueryRow(ctx, queryGetRequestStatus, id).Scan(&actual); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("request %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("reading request status: %w", err)
	}

	return &StatusConflictError{ID: id, Expected: expected, Actual: domain.Status(actual)}
}

// DeleteRequest removes a request. Deleting a missing request returns ErrNotFound.
func (s *PostgresStore) DeleteRequest(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("request %s: %w", id, ErrNotFound)
	}

	tag, err := s.pool.Exec(ctx, queryDeleteRequest, id)
	if err != nil {
		return fmt.Errorf("deleting request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("request %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListReturnedBefore returns IDs of returned requests whose return completed
// before cutoff.
func (s *PostgresStore) ListReturnedBefore(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, queryListReturnedBefore, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("querying returned requests: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collecting returned requests: %w", err)
	}
	return ids, nil
}

// CreateCustomer inserts a customer record.
func (s *PostgresStore) CreateCustomer(ctx context.Context, c *domain.Customer) error {
	args := pgx.NamedArgs{
		"name":             c.Name,
		"name_kana":        c.NameKana,
		"email":            c.Email,
		"phone":            c.Phone,
		"postal_code":      c.PostalCode,
		"address":          c.Address,
		"birthday":         c.Birthday,
		"occupation":       c.Occupation,
		"id_document_path": c.IDDocumentPath,
	}
	if err := s.pool.QueryRow(ctx, queryCreateCustomer, args).Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("inserting customer: %w", err)
	}
	return nil
}

// CreateBuyback inserts a purchase header.
func (s *PostgresStore) CreateBuyback(ctx context.Context, b *domain.Buyback) error {
	args := conditionArgs(b.Condition)
	args["customer_id"] = b.CustomerID
	args["request_number"] = b.RequestNumber
	args["total_price"] = b.TotalPrice
	args["payment_method"] = b.PaymentMethod
	args["model"] = b.Model
	args["storage"] = b.Storage
	args["rank"] = string(b.Rank)
	args["imei"] = b.IMEI
	args["agreement_doc_path"] = b.AgreementDocPath

	if err := s.pool.QueryRow(ctx, queryCreateBuyback, args).Scan(&b.ID, &b.BoughtAt); err != nil {
		return fmt.Errorf("inserting buyback: %w", err)
	}
	return nil
}

// CreateInventoryItem inserts an inventory record.
func (s *PostgresStore) CreateInventoryItem(ctx context.Context, i *domain.InventoryItem) error {
	args := conditionArgs(i.Condition)
	args["model"] = i.Model
	args["storage"] = i.Storage
	args["color"] = i.Color
	args["rank"] = string(i.Rank)
	args["imei"] = i.IMEI
	args["management_number"] = i.ManagementNumber
	args["status"] = string(i.Status)
	args["cost"] = i.Cost
	args["buyback_id"] = i.BuybackID

	if err := s.pool.QueryRow(ctx, queryCreateInventoryItem, args).Scan(&i.ID, &i.CreatedAt); err != nil {
		return fmt.Errorf("inserting inventory item: %w", err)
	}
	return nil
}

// CreateBuybackItem inserts a purchase line item.
func (s *PostgresStore) CreateBuybackItem(ctx context.Context, i *domain.BuybackItem) error {
	args := pgx.NamedArgs{
		"buyback_id":    i.BuybackID,
		"inventory_id":  i.InventoryID,
		"buyback_price": i.BuybackPrice,
		"sale_price":    i.SalePrice,
		"profit":        i.Profit,
		"margin_rate":   i.MarginRate,
	}
	if err := s.pool.QueryRow(ctx, queryCreateBuybackItem, args).Scan(&i.ID); err != nil {
		return fmt.Errorf("inserting buyback item: %w", err)
	}
	return nil
}

// SetBuybackInventory back-references the inventory record from its header.
func (s *PostgresStore) SetBuybackInventory(ctx context.Context, buybackID, inventoryID string) error {
	tag, err := s.pool.Exec(ctx, querySetBuybackInventory, buybackID, inventoryID)
	if err != nil {
		return fmt.Errorf("updating buyback inventory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("buyback %s: %w", buybackID, ErrNotFound)
	}
	return nil
}

// LoadPriceTables reads a snapshot of all pricing tables.
func (s *PostgresStore) LoadPriceTables(ctx context.Context) (*pricing.Tables, error) {
	set := &pricing.TableSet{}

	rows, err := s.pool.Query(ctx, queryListBasePrices)
	if err != nil {
		return nil, fmt.Errorf("querying base prices: %w", err)
	}
	set.BasePrices, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (pricing.BasePrice, error) {
		var b pricing.BasePrice
		err := row.Scan(&b.Model, &b.Storage, &b.Rank, &b.Price)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning base prices: %w", err)
	}

	if set.BuybackDeductions, err = s.queryRules(ctx, queryListBuybackDeductions); err != nil {
		return nil, fmt.Errorf("loading buyback deductions: %w", err)
	}
	if set.ResaleDeductions, err = s.queryRules(ctx, queryListResaleDeductions); err != nil {
		return nil, fmt.Errorf("loading resale deductions: %w", err)
	}

	return set.Build()
}

func (s *PostgresStore) queryRules(ctx context.Context, query string) ([]pricing.DeductionRule, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (pricing.DeductionRule, error) {
		var r pricing.DeductionRule
		err := row.Scan(&r.Model, &r.Storage, &r.Type, &r.Amount)
		return r, err
	})
}

// ReplacePriceTables swaps every pricing table for the given rows in one
// transaction. It is used by the pricing import command.
func (s *PostgresStore) ReplacePriceTables(ctx context.Context, set *pricing.TableSet) error {
	if _, err := set.Build(); err != nil {
		return fmt.Errorf("validating price tables: %w", err)
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, q := range []string{queryDeleteBasePrices, queryDeleteBuybackDeductions, queryDeleteResaleDeductions} {
			if _, err := tx.Exec(ctx, q); err != nil {
				return fmt.Errorf("clearing price tables: %w", err)
			}
		}

		batch := &pgx.Batch{}
		for _, b := range set.BasePrices {
			batch.Queue(queryInsertBasePrice, b.Model, b.Storage, string(b.Rank), b.Price)
		}
		for _, r := range set.BuybackDeductions {
			batch.Queue(queryInsertBuybackDeduction, r.Model, r.Storage, string(r.Type), r.Amount)
		}
		for _, r := range set.ResaleDeductions {
			batch.Queue(queryInsertResaleDeduction, r.Model, r.Storage, string(r.Type), r.Amount)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting price tables: %w", err)
		}
		return nil
	})
}

// validID reports whether id can name a row. Request ids are UUIDs, and a
// malformed id would otherwise surface as a Postgres cast error.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

func conditionArgs(c domain.Condition) pgx.NamedArgs {
	return pgx.NamedArgs{
		"battery_percent":  c.BatteryPercent,
		"is_service_state": c.IsServiceState,
		"nw_status":        string(c.NWStatus),
		"camera_stain":     string(c.CameraStain),
		"camera_broken":    c.CameraBroken,
		"repair_history":   c.RepairHistory,
	}
}

// scannable is satisfied by pgx.Row and pgx.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanRequest(row scannable, r *domain.MailBuybackRequest) error {
	var (
		customerJSON, itemsJSON, detailsJSON, bankJSON, regJSON []byte
		status                                                  string
	)

	if err := row.Scan(
		&r.ID, &r.RequestNumber, &customerJSON, &itemsJSON, &r.TotalEstimatedPrice,
		&r.FinalPrice, &detailsJSON, &bankJSON, &status, &r.AgreementDocPath, &regJSON,
		&r.CreatedAt, &r.UpdatedAt, &r.KitSentAt, &r.AssessedAt, &r.ApprovedAt,
		&r.RejectedAt, &r.PaidAt, &r.ReturnedAt,
	); err != nil {
		return err
	}

	st, err := domain.ParseStatus(status)
	if err != nil {
		return err
	}
	r.Status = st

	if err := json.Unmarshal(customerJSON, &r.Customer); err != nil {
		return fmt.Errorf("unmarshaling customer: %w", err)
	}
	if err := json.Unmarshal(itemsJSON, &r.Items); err != nil {
		return fmt.Errorf("unmarshaling items: %w", err)
	}
	if len(detailsJSON) > 0 {
		r.AssessmentDetails = &domain.AssessmentDetails{}
		if err := json.Unmarshal(detailsJSON, r.AssessmentDetails); err != nil {
			return fmt.Errorf("unmarshaling assessment details: %w", err)
		}
	}
	if len(bankJSON) > 0 {
		r.Bank = &domain.BankInfo{}
		if err := json.Unmarshal(bankJSON, r.Bank); err != nil {
			return fmt.Errorf("unmarshaling bank info: %w", err)
		}
	}
	if len(regJSON) > 0 {
		r.Registration = &domain.Registration{}
		if err := json.Unmarshal(regJSON, r.Registration); err != nil {
			return fmt.Errorf("unmarshaling registration: %w", err)
		}
	}
	return nil
}
