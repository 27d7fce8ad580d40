package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

func TestActions_PayoutLifecycle(t *testing.T) {
	t.Parallel()

	api, ms := newTestAPI(t)
	r := approve(t, api)
	require.Equal(t, domain.StatusWaitingPayment, r.Status)
	require.NotNil(t, r.FinalPrice)
	assert.Equal(t, 51000, *r.FinalPrice)

	resp := api.Post("/api/v1/requests/" + r.ID + "/complete-payout")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	type completion struct {
		RequestID        string  `json:"request_id"`
		CustomerID       string  `json:"customer_id"`
		BuybackID        string  `json:"buyback_id"`
		ManagementNumber *string `json:"management_number"`
		Retired          bool    `json:"retired"`
		Warnings         []string
		Items            []struct {
			Cost int `json:"cost"`
		} `json:"items"`
	}
	c := decode[completion](t, resp.Body)
	assert.Equal(t, r.ID, c.RequestID)
	assert.NotEmpty(t, c.CustomerID)
	assert.NotEmpty(t, c.BuybackID)
	require.NotNil(t, c.ManagementNumber)
	assert.Equal(t, "5678", *c.ManagementNumber)
	assert.True(t, c.Retired)
	assert.Empty(t, c.Warnings)
	require.Len(t, c.Items, 1)
	assert.Equal(t, 51000, c.Items[0].Cost)

	assert.Len(t, ms.Customers(), 1)
	assert.Len(t, ms.InventoryItems(), 1)

	// The paid request is retired, and a second completion finds nothing.
	assert.Equal(t, http.StatusNotFound, api.Get("/api/v1/requests/"+r.ID).Code)
	assert.Equal(t, http.StatusNotFound, api.Post("/api/v1/requests/"+r.ID+"/complete-payout").Code)

	// Retiring an already removed request is a no-op.
	resp = api.Post("/api/v1/requests/" + r.ID + "/retire")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "retired")
}

func TestActions_ReturnLifecycle(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI(t)
	r := createRequest(t, api)
	base := "/api/v1/requests/" + r.ID

	require.Equal(t, http.StatusOK, api.Post(base+"/kit-sent").Code)
	require.Equal(t, http.StatusOK, api.Post(base+"/assessment", map[string]any{}).Code)

	resp := api.Post(base+"/decision", map[string]any{"decision": "reject"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, domain.StatusReturnRequested, decode[domain.MailBuybackRequest](t, resp.Body).Status)

	resp = api.Post(base + "/complete-return")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	got := decode[domain.MailBuybackRequest](t, resp.Body)
	assert.Equal(t, domain.StatusReturned, got.Status)
	assert.NotNil(t, got.ReturnedAt)
}

func TestActions_GuardViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		action string
		body   any
	}{
		{name: "assess pending", action: "/assessment", body: map[string]any{}},
		{name: "decide pending", action: "/decision", body: map[string]any{"decision": "reject"}},
		{name: "pay pending", action: "/complete-payout"},
		{name: "return pending", action: "/complete-return"},
		{name: "retire pending", action: "/retire"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			api, _ := newTestAPI(t)
			r := createRequest(t, api)

			args := []any{}
			if tt.body != nil {
				args = append(args, tt.body)
			}
			resp := api.Post("/api/v1/requests/"+r.ID+tt.action, args...)
			assert.Equal(t, http.StatusConflict, resp.Code, resp.Body.String())
			assert.Contains(t, resp.Body.String(), "pending")

			// Unchanged.
			got := decode[domain.MailBuybackRequest](t, api.Get("/api/v1/requests/"+r.ID).Body)
			assert.Equal(t, domain.StatusPending, got.Status)
		})
	}
}

func TestActions_KitSentTwice(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI(t)
	r := createRequest(t, api)

	require.Equal(t, http.StatusOK, api.Post("/api/v1/requests/"+r.ID+"/kit-sent").Code)
	assert.Equal(t, http.StatusConflict, api.Post("/api/v1/requests/"+r.ID+"/kit-sent").Code)
}

func TestActions_ApproveRequiresBank(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI(t)
	r := createRequest(t, api)
	base := "/api/v1/requests/" + r.ID
	require.Equal(t, http.StatusOK, api.Post(base+"/kit-sent").Code)
	require.Equal(t, http.StatusOK, api.Post(base+"/assessment", map[string]any{}).Code)

	resp := api.Post(base+"/decision", map[string]any{"decision": "approve"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, resp.Body.String(), "bank_info")
}

func TestActions_AssessmentOverrideAndValidation(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI(t)
	r := createRequest(t, api)
	base := "/api/v1/requests/" + r.ID
	require.Equal(t, http.StatusOK, api.Post(base+"/kit-sent").Code)

	resp := api.Post(base+"/assessment", map[string]any{
		"item_changes": []map[string]any{
			{"item_id": "nope", "field": "rank", "value": "良品"},
		},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Contains(t, resp.Body.String(), "item_changes")

	resp = api.Post(base+"/assessment", map[string]any{
		"final_price": 50000,
		"photos":      []map[string]any{{"path": "photos/front.jpg"}},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	got := decode[domain.MailBuybackRequest](t, resp.Body)
	require.NotNil(t, got.FinalPrice)
	assert.Equal(t, 50000, *got.FinalPrice)
	require.NotNil(t, got.AssessmentDetails)
	assert.Equal(t, 52500, got.AssessmentDetails.ComputedPrice)
}

func TestActions_Preview(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI(t)
	r := createRequest(t, api)

	resp := api.Post("/api/v1/requests/"+r.ID+"/assessment/preview", map[string]any{
		"item_changes": []map[string]any{
			{"item_id": r.Items[0].ID, "field": "battery_percent", "value": "75"},
		},
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Body.String(), `"computed_price":51000`)

	// Nothing was written.
	got := decode[domain.MailBuybackRequest](t, api.Get("/api/v1/requests/"+r.ID).Body)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Nil(t, got.AssessmentDetails)

	assert.Equal(t, http.StatusNotFound,
		api.Post("/api/v1/requests/missing/assessment/preview", map[string]any{}).Code)
}
