//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/donaldgifford/mailin-buyback/internal/store"
	"github.com/donaldgifford/mailin-buyback/pkg/pricing"
	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

var _ store.Store = (*store.PostgresStore)(nil)

func setupPostgres(t *testing.T) *store.PostgresStore {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("mbb_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := store.NewPostgresStore(ctx, connStr, store.WithPoolSize(4))
	require.NoError(t, err)

	t.Cleanup(func() {
		s.Close()
	})

	require.NoError(t, s.Migrate(ctx))
	// Migrations are idempotent.
	require.NoError(t, s.Migrate(ctx))

	return s
}

func TestPostgresStore_Ping(t *testing.T) {
	s := setupPostgres(t)
	require.NoError(t, s.Ping(context.Background()))
}

func TestPostgresStore_RequestLifecycle(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	r := newRequest("MB-20260301-AAAAAA", domain.StatusPending)
	require.NoError(t, s.CreateRequest(ctx, r))
	require.NotEmpty(t, r.ID)

	got, err := s.GetRequest(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.RequestNumber, got.RequestNumber)
	assert.Equal(t, domain.StatusPending, got.Status)
	require.Len(t, got.Items, 1)
	assert.Equal(t, domain.RankExcel, got.Items[0].Rank)
	assert.Equal(t, 88, got.Items[0].Condition.BatteryPercent)
	assert.Nil(t, got.AssessmentDetails)
	assert.Nil(t, got.Bank)

	kitSent := domain.StatusKitSent
	now := time.Now().Truncate(time.Microsecond)
	require.NoError(t, s.UpdateRequest(ctx, r.ID, domain.StatusPending, &store.RequestPatch{
		Status:    &kitSent,
		KitSentAt: &now,
	}))

	err = s.UpdateRequest(ctx, r.ID, domain.StatusPending, &store.RequestPatch{Status: &kitSent})
	var conflict *store.StatusConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, domain.StatusKitSent, conflict.Actual)

	assessed := domain.StatusAssessed
	price := 51000
	details := &domain.AssessmentDetails{
		ItemChanges: []domain.ItemChange{{
			ItemID: "item-1",
			Field:  domain.FieldBatteryPercent,
			Label:  domain.FieldBatteryPercent.Label(),
			Before: domain.FieldValue{Value: "88", Display: "88%"},
			After:  domain.FieldValue{Value: "75", Display: "75%"},

			HasChanged: true,
		}},
		Photos:        []domain.Photo{{Path: "photos/1.jpg"}},
		ComputedPrice: 51000,
	}
	require.NoError(t, s.UpdateRequest(ctx, r.ID, domain.StatusKitSent, &store.RequestPatch{
		Status:            &assessed,
		FinalPrice:        &price,
		AssessmentDetails: details,
		AssessedAt:        &now,
	}))

	got, err = s.GetRequest(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAssessed, got.Status)
	require.NotNil(t, got.FinalPrice)
	assert.Equal(t, 51000, *got.FinalPrice)
	require.NotNil(t, got.AssessmentDetails)
	assert.Equal(t, details.ItemChanges, got.AssessmentDetails.ItemChanges)
	require.NotNil(t, got.KitSentAt)
	assert.True(t, now.Equal(*got.KitSentAt))

	list, total, err := s.ListRequests(ctx, &store.RequestQuery{
		Statuses: []domain.Status{domain.StatusAssessed},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Registration)

	reg := &domain.Registration{
		CustomerID: "c-1",
		BuybackID:  "b-1",
		Items:      []domain.RegisteredItem{{ItemID: "item-1", InventoryID: "i-1"}},
	}
	require.NoError(t, s.UpdateRequest(ctx, r.ID, domain.StatusAssessed, &store.RequestPatch{
		Registration: reg,
	}))
	got, err = s.GetRequest(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, reg, got.Registration)

	require.NoError(t, s.DeleteRequest(ctx, r.ID))
	_, err = s.GetRequest(ctx, r.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, s.UpdateRequest(ctx, r.ID, domain.StatusAssessed, &store.RequestPatch{Status: &assessed}),
		store.ErrNotFound)
}

func TestPostgresStore_ListReturnedBefore(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	r := newRequest("MB-20260301-BBBBBB", domain.StatusReturnRequested)
	require.NoError(t, s.CreateRequest(ctx, r))

	returned := domain.StatusReturned
	at := time.Now().Add(-45 * 24 * time.Hour)
	require.NoError(t, s.UpdateRequest(ctx, r.ID, domain.StatusReturnRequested, &store.RequestPatch{
		Status:     &returned,
		ReturnedAt: &at,
	}))

	ids, err := s.ListReturnedBefore(ctx, time.Now().Add(-30*24*time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{r.ID}, ids)
}

func TestPostgresStore_Registration(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	c := &domain.Customer{CustomerInfo: domain.CustomerInfo{Name: "山田太郎", Email: "taro@example.com"}}
	require.NoError(t, s.CreateCustomer(ctx, c))

	cond := domain.Condition{BatteryPercent: 75, NWStatus: domain.NWOK, CameraStain: domain.StainMinor}
	b := &domain.Buyback{
		CustomerID:    c.ID,
		RequestNumber: "MB-20260301-CCCCCC",
		TotalPrice:    51000,
		PaymentMethod: domain.PaymentBankTransfer,
		Model:         "iPhone 13",
		Storage:       "128GB",
		Rank:          domain.RankExcel,
		IMEI:          "356789012345678",
		Condition:     cond,
	}
	require.NoError(t, s.CreateBuyback(ctx, b))

	inv := &domain.InventoryItem{
		Model:            "iPhone 13",
		Storage:          "128GB",
		Rank:             domain.RankExcel,
		IMEI:             b.IMEI,
		ManagementNumber: domain.ManagementNumberFromIMEI(b.IMEI),
		Condition:        cond,
		Status:           domain.InventorySellable,
		Cost:             51000,
		BuybackID:        b.ID,
	}
	require.NoError(t, s.CreateInventoryItem(ctx, inv))
	require.NoError(t, s.CreateBuybackItem(ctx, &domain.BuybackItem{
		BuybackID: b.ID, InventoryID: inv.ID, BuybackPrice: 51000,
	}))
	require.NoError(t, s.SetBuybackInventory(ctx, b.ID, inv.ID))
	require.ErrorIs(t, s.SetBuybackInventory(ctx, "00000000-0000-0000-0000-000000000000", inv.ID),
		store.ErrNotFound)
}

func TestPostgresStore_PriceTables(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	set := &pricing.TableSet{
		BasePrices: []pricing.BasePrice{
			{Model: "iPhone 13", Storage: "128GB", Rank: domain.RankExcel, Price: 60000},
		},
		BuybackDeductions: []pricing.DeductionRule{
			{Model: "iPhone 13", Storage: "128GB", Type: pricing.DeductBattery79, Amount: 9000},
		},
		ResaleDeductions: []pricing.DeductionRule{
			{Model: "iPhone 13", Storage: "128GB", Type: pricing.ResaleNWCross, Amount: 15000},
		},
	}
	require.NoError(t, s.ReplacePriceTables(ctx, set))

	tables, err := s.LoadPriceTables(ctx)
	require.NoError(t, err)

	base, ok := tables.BasePrice("iPhone 13", "128GB", domain.RankExcel)
	require.True(t, ok)
	assert.Equal(t, 60000, base)

	amount, ok := tables.Buyback().Deduction("iPhone 13", "128GB", pricing.DeductBattery79)
	require.True(t, ok)
	assert.Equal(t, 9000, amount)

	amount, ok = tables.Resale().Deduction("iPhone 13", "128GB", pricing.ResaleNWCross)
	require.True(t, ok)
	assert.Equal(t, 15000, amount)

	// Replacing drops rows not in the new set.
	require.NoError(t, s.ReplacePriceTables(ctx, &pricing.TableSet{}))
	tables, err = s.LoadPriceTables(ctx)
	require.NoError(t, err)
	_, ok = tables.BasePrice("iPhone 13", "128GB", domain.RankExcel)
	assert.False(t, ok)
}
