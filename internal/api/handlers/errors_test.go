package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/mailin-buyback/internal/engine"
	"github.com/donaldgifford/mailin-buyback/internal/store"
	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

func TestAPIError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{
			name: "guard violation",
			err: &engine.GuardViolation{
				RequestID: "r1", Action: "complete payout",
				Expected: domain.StatusWaitingPayment, Actual: domain.StatusPaid,
			},
			wantStatus: http.StatusConflict,
			wantDetail: "from status paid",
		},
		{
			name:       "wrapped validation",
			err:        fmt.Errorf("intake: %w", &engine.ValidationError{Field: "items", Reason: "at least one item is required"}),
			wantStatus: http.StatusUnprocessableEntity,
			wantDetail: "invalid items",
		},
		{
			name:       "not found",
			err:        fmt.Errorf("loading: %w", store.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantDetail: "request not found",
		},
		{
			name:       "persistence",
			err:        &engine.PersistenceError{Step: engine.StepCreateBuyback, Fatal: true, Err: errors.New("disk full")},
			wantStatus: http.StatusInternalServerError,
			wantDetail: "create_buyback",
		},
		{
			name:       "canceled",
			err:        context.Canceled,
			wantStatus: http.StatusServiceUnavailable,
			wantDetail: "canceled",
		},
		{
			name:       "unknown",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var model *huma.ErrorModel
			require.ErrorAs(t, apiError(tt.err), &model)
			assert.Equal(t, tt.wantStatus, model.GetStatus())
			assert.Contains(t, model.Detail, tt.wantDetail)
		})
	}
}

func TestAPIError_PartialRecords(t *testing.T) {
	t.Parallel()

	err := apiError(&engine.PersistenceError{
		Step:  engine.StepCreateBuybackItem,
		Fatal: true,
		Err:   errors.New("constraint violation"),
		Partial: engine.Partial{
			CustomerID:   "c1",
			BuybackID:    "b1",
			InventoryIDs: []string{"i1", "i2"},
		},
	})

	var model *huma.ErrorModel
	require.ErrorAs(t, err, &model)
	require.Len(t, model.Errors, 4)
	assert.Equal(t, "partial.customer_id", model.Errors[0].Location)
	assert.Equal(t, "c1", model.Errors[0].Value)
	assert.Equal(t, "partial.inventory_ids", model.Errors[3].Location)
	assert.Equal(t, "i2", model.Errors[3].Value)
}
