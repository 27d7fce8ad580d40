package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

func ptr[T any](v T) *T { return &v }

func TestRequestQuery_ToSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		query         RequestQuery
		wantCountSQL  string
		wantArgs      []any
		wantDataHas   []string // substrings that must appear in dataSQL
		wantDataNotIn []string // substrings that must NOT appear
	}{
		{
			name:  "empty query uses defaults",
			query: RequestQuery{},
			wantDataHas: []string{
				"FROM mail_buyback_requests",
				"ORDER BY created_at DESC",
				"LIMIT 50",
				"OFFSET 0",
			},
			wantDataNotIn: []string{"WHERE"},
			wantCountSQL:  "SELECT COUNT(*) FROM mail_buyback_requests",
		},
		{
			name: "single status filter",
			query: RequestQuery{
				Statuses: []domain.Status{domain.StatusAssessed},
			},
			wantDataHas:  []string{"WHERE status IN ($1)"},
			wantCountSQL: "SELECT COUNT(*) FROM mail_buyback_requests WHERE status IN ($1)",
			wantArgs:     []any{"assessed"},
		},
		{
			name: "status and request number filters share numbering",
			query: RequestQuery{
				Statuses:      []domain.Status{domain.StatusPending, domain.StatusKitSent},
				RequestNumber: ptr("MB-20260101-ABCDEF"),
			},
			wantDataHas: []string{
				"status IN ($1, $2)",
				"request_number = $3",
				" AND ",
			},
			wantCountSQL: "SELECT COUNT(*) FROM mail_buyback_requests WHERE status IN ($1, $2) AND request_number = $3",
			wantArgs:     []any{"pending", "kit_sent", "MB-20260101-ABCDEF"},
		},
		{
			name:        "order by updated_at",
			query:       RequestQuery{OrderBy: "updated_at"},
			wantDataHas: []string{"ORDER BY updated_at DESC"},
		},
		{
			name:          "invalid order by falls back to default",
			query:         RequestQuery{OrderBy: "DROP TABLE mail_buyback_requests; --"},
			wantDataHas:   []string{"ORDER BY created_at DESC"},
			wantDataNotIn: []string{"DROP TABLE"},
		},
		{
			name:        "custom limit and offset",
			query:       RequestQuery{Limit: 25, Offset: 100},
			wantDataHas: []string{"LIMIT 25", "OFFSET 100"},
		},
		{
			name:        "limit exceeding max is capped",
			query:       RequestQuery{Limit: 1000},
			wantDataHas: []string{"LIMIT 500"},
		},
		{
			name:        "negative offset defaults to 0",
			query:       RequestQuery{Offset: -5},
			wantDataHas: []string{"OFFSET 0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q := tt.query
			dataSQL, countSQL, args := q.ToSQL()

			for _, s := range tt.wantDataHas {
				assert.Contains(t, dataSQL, s, "dataSQL should contain %q", s)
			}
			for _, s := range tt.wantDataNotIn {
				assert.NotContains(t, dataSQL, s, "dataSQL should not contain %q", s)
			}
			if tt.wantCountSQL != "" {
				assert.Equal(t, tt.wantCountSQL, countSQL)
			}
			if tt.wantArgs != nil {
				assert.Equal(t, tt.wantArgs, args)
			} else {
				assert.Empty(t, args)
			}
		})
	}
}

func TestRequestPatch_ToSQL(t *testing.T) {
	t.Parallel()

	t.Run("status and timestamp guarded by id and expected status", func(t *testing.T) {
		t.Parallel()

		at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		p := &RequestPatch{
			Status:    ptr(domain.StatusKitSent),
			KitSentAt: &at,
		}

		query, args, err := p.ToSQL("req-1", domain.StatusPending)
		require.NoError(t, err)

		assert.Equal(t,
			"UPDATE mail_buyback_requests SET status = $1, kit_sent_at = $2, updated_at = now() WHERE id = $3 AND status = $4",
			query,
		)
		assert.Equal(t, []any{"kit_sent", at, "req-1", "pending"}, args)
	})

	t.Run("json columns are marshaled", func(t *testing.T) {
		t.Parallel()

		p := &RequestPatch{
			Bank: &domain.BankInfo{BankName: "みずほ"},
		}
		query, args, err := p.ToSQL("req-1", domain.StatusAssessed)
		require.NoError(t, err)

		assert.Contains(t, query, "bank = $1")
		require.Len(t, args, 3)
		assert.Contains(t, string(args[0].([]byte)), `"bank_name":"みずほ"`)
	})

	t.Run("registration is marshaled", func(t *testing.T) {
		t.Parallel()

		p := &RequestPatch{
			Registration: &domain.Registration{CustomerID: "c-1", Complete: true},
		}
		query, args, err := p.ToSQL("req-1", domain.StatusPaid)
		require.NoError(t, err)

		assert.Equal(t,
			"UPDATE mail_buyback_requests SET registration = $1, updated_at = now() WHERE id = $2 AND status = $3",
			query,
		)
		require.Len(t, args, 3)
		assert.JSONEq(t, `{"customer_id":"c-1","complete":true}`, string(args[0].([]byte)))
	})

	t.Run("empty patch is rejected", func(t *testing.T) {
		t.Parallel()

		_, _, err := (&RequestPatch{}).ToSQL("req-1", domain.StatusPending)
		require.Error(t, err)
	})
}

func TestRequestPatch_Apply(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	price := 42000
	p := &RequestPatch{
		Status:     ptr(domain.StatusAssessed),
		FinalPrice: &price,
		AssessedAt: &at,
	}

	r := &domain.MailBuybackRequest{Status: domain.StatusKitSent}
	p.Apply(r)

	assert.Equal(t, domain.StatusAssessed, r.Status)
	require.NotNil(t, r.FinalPrice)
	assert.Equal(t, 42000, *r.FinalPrice)
	require.NotNil(t, r.AssessedAt)
	assert.True(t, at.Equal(*r.AssessedAt))
	assert.Nil(t, r.KitSentAt)

	// The request must not alias the patch.
	price = 1
	assert.Equal(t, 42000, *r.FinalPrice)

	reg := &domain.Registration{Items: []domain.RegisteredItem{{ItemID: "item-1", InventoryID: "i-1"}}}
	(&RequestPatch{Registration: reg}).Apply(r)
	reg.Items[0].InventoryID = "changed"
	require.NotNil(t, r.Registration)
	assert.Equal(t, "i-1", r.Registration.Items[0].InventoryID)
}
