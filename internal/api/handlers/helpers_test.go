package handlers_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/mailin-buyback/internal/api/handlers"
	"github.com/donaldgifford/mailin-buyback/internal/engine"
	"github.com/donaldgifford/mailin-buyback/internal/notify"
	"github.com/donaldgifford/mailin-buyback/internal/store"
	"github.com/donaldgifford/mailin-buyback/pkg/pricing"
	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

func newTestAPI(t *testing.T) (humatest.TestAPI, *store.MemoryStore) {
	t.Helper()

	tables, err := pricing.LoadTablesFile("testdata/prices.yaml")
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ms := store.NewMemoryStore(tables)
	eng := engine.NewEngine(ms, notify.NewNoOpNotifier(log), engine.WithLogger(log))

	_, api := humatest.New(t)
	rh := handlers.NewRequestsHandler(eng)
	handlers.RegisterRequestRoutes(api, rh)
	handlers.RegisterActionRoutes(api, rh)
	handlers.RegisterQuoteRoutes(api, handlers.NewQuotesHandler(eng))

	return api, ms
}

// intakeBody is one iPhone 13 128GB 美品 at 85% battery, network triangle,
// minor camera stain: 60000 - (1500 + 5000 + 1000) = 52500.
func intakeBody() map[string]any {
	return map[string]any{
		"customer": map[string]any{
			"name":    "山田 太郎",
			"email":   "taro@example.com",
			"address": "東京都渋谷区神宮前1-1-1",
		},
		"items": []map[string]any{{
			"model":   "iPhone 13",
			"storage": "128GB",
			"imei":    "356789012345678",
			"rank":    "美品",
			"condition": map[string]any{
				"battery_percent": 85,
				"nw_status":       "triangle",
				"camera_stain":    "minor",
			},
		}},
	}
}

func bankBody() map[string]any {
	return map[string]any{
		"bank_name":      "みずほ銀行",
		"branch_name":    "渋谷支店",
		"account_type":   "普通",
		"account_number": "1234567",
		"account_holder": "ヤマダ タロウ",
	}
}

func decode[T any](t *testing.T, body io.Reader) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(body).Decode(&v))
	return v
}

func createRequest(t *testing.T, api humatest.TestAPI) *domain.MailBuybackRequest {
	t.Helper()
	resp := api.Post("/api/v1/requests", intakeBody())
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	r := decode[domain.MailBuybackRequest](t, resp.Body)
	return &r
}

// approve walks a new request to waiting_payment. The assessment lowers the
// battery to 75%, bringing the price to 51000.
func approve(t *testing.T, api humatest.TestAPI) *domain.MailBuybackRequest {
	t.Helper()
	r := createRequest(t, api)
	base := "/api/v1/requests/" + r.ID

	resp := api.Post(base + "/kit-sent")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = api.Post(base+"/assessment", map[string]any{
		"item_changes": []map[string]any{
			{"item_id": r.Items[0].ID, "field": "battery_percent", "value": "75"},
		},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = api.Post(base+"/decision", map[string]any{"decision": "approve", "bank": bankBody()})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	out := decode[domain.MailBuybackRequest](t, resp.Body)
	return &out
}
