package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiclient "github.com/donaldgifford/mailin-buyback/internal/api/client"
	"github.com/donaldgifford/mailin-buyback/internal/api/handlers"
	"github.com/donaldgifford/mailin-buyback/internal/engine"
	"github.com/donaldgifford/mailin-buyback/internal/notify"
	"github.com/donaldgifford/mailin-buyback/internal/store"
	"github.com/donaldgifford/mailin-buyback/pkg/pricing"
	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

// newTestServer serves the real API over an in-memory store.
func newTestServer(t *testing.T) string {
	t.Helper()

	tables, err := pricing.LoadTablesFile("testdata/prices.yaml")
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.NewEngine(store.NewMemoryStore(tables), notify.NewNoOpNotifier(log), engine.WithLogger(log))

	e := echo.New()
	api := humaecho.New(e, huma.DefaultConfig("test", "0"))
	rh := handlers.NewRequestsHandler(eng)
	handlers.RegisterRequestRoutes(api, rh)
	handlers.RegisterActionRoutes(api, rh)
	handlers.RegisterQuoteRoutes(api, handlers.NewQuotesHandler(eng))

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv.URL
}

// run executes a fresh command tree. Tests using it are not parallel since
// viper and the config flag are process-wide.
func run(t *testing.T, server string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--server", server}, args...))

	err := root.Execute()
	return out.String(), err
}

func createFromFile(t *testing.T, server string) *domain.MailBuybackRequest {
	t.Helper()

	out, err := run(t, server, "requests", "create", "--file", "testdata/intake.yaml", "--output", "json")
	require.NoError(t, err)

	var r domain.MailBuybackRequest
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	require.Len(t, r.Items, 1)
	return &r
}

func TestRequests_PayoutLifecycle(t *testing.T) {
	server := newTestServer(t)

	out, err := run(t, server, "requests", "create", "-f", "testdata/intake.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "Created request MB-")
	assert.Contains(t, out, "¥52,500")

	r := createFromFile(t, server)
	assert.Equal(t, 52500, r.TotalEstimatedPrice)

	out, err = run(t, server, "requests", "list", "--status", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, r.RequestNumber)
	assert.Contains(t, out, "Showing 2 of 2")

	out, err = run(t, server, "requests", "kit-sent", r.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "is now kit_sent")

	edit := r.Items[0].ID + ":battery_percent=75"

	out, err = run(t, server, "requests", "preview", r.ID, edit)
	require.NoError(t, err)
	assert.Contains(t, out, "¥51,000")

	out, err = run(t, server, "requests", "assess", r.ID, edit, "--photo", "photos/front.jpg")
	require.NoError(t, err)
	assert.Contains(t, out, "is now assessed")

	out, err = run(t, server, "requests", "get", r.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Final:")
	assert.Contains(t, out, "¥51,000")
	assert.Contains(t, out, "battery_percent")

	out, err = run(t, server, "requests", "decide", r.ID, "approve", "--bank-file", "testdata/bank.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "is now waiting_payment")

	out, err = run(t, server, "requests", "complete", r.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Retired:")
	assert.Contains(t, out, "true")
	assert.Contains(t, out, "¥51,000")

	_, err = run(t, server, "requests", "get", r.ID)
	require.Error(t, err)
	assert.True(t, apiclient.IsNotFound(err))

	out, err = run(t, server, "requests", "retire", r.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "retired")
}

func TestRequests_ReturnLifecycle(t *testing.T) {
	server := newTestServer(t)
	r := createFromFile(t, server)

	_, err := run(t, server, "requests", "kit-sent", r.ID)
	require.NoError(t, err)
	_, err = run(t, server, "requests", "assess", r.ID)
	require.NoError(t, err)

	out, err := run(t, server, "requests", "decide", r.ID, "reject")
	require.NoError(t, err)
	assert.Contains(t, out, "is now return_requested")

	out, err = run(t, server, "requests", "complete-return", r.ID, "--output", "json")
	require.NoError(t, err)

	var got domain.MailBuybackRequest
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, domain.StatusReturned, got.Status)
	assert.NotNil(t, got.ReturnedAt)
}

func TestRequests_Errors(t *testing.T) {
	server := newTestServer(t)
	r := createFromFile(t, server)

	tests := []struct {
		name    string
		args    []string
		wantErr string
		check   func(error) bool
	}{
		{
			name:  "transition out of order",
			args:  []string{"requests", "complete", r.ID},
			check: apiclient.IsConflict,
		},
		{
			name:    "approve without bank",
			args:    []string{"requests", "decide", r.ID, "approve"},
			wantErr: "HTTP",
		},
		{
			name:    "unknown decision",
			args:    []string{"requests", "decide", r.ID, "maybe"},
			wantErr: "decision must be approve or reject",
		},
		{
			name:    "malformed edit",
			args:    []string{"requests", "preview", r.ID, "battery_percent=75"},
			wantErr: "expected ITEM_ID:FIELD=VALUE",
		},
		{
			name:    "create without file",
			args:    []string{"requests", "create"},
			wantErr: "--file is required",
		},
		{
			name:    "missing file",
			args:    []string{"requests", "create", "-f", "testdata/nope.yaml"},
			wantErr: "reading testdata/nope.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, server, tt.args...)
			require.Error(t, err)
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
			if tt.check != nil {
				assert.True(t, tt.check(err), err.Error())
			}
		})
	}
}

func TestQuote(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "buyback",
			args: []string{
				"quote", "buyback", "--model", "iPhone 13", "--storage", "128GB",
				"--rank", "美品", "--battery", "85", "--nw", "triangle", "--stain", "minor",
			},
			want: "¥52,500",
		},
		{
			name: "buyback guarantee",
			args: []string{
				"quote", "buyback", "--model", "iPhone 13", "--storage", "128GB",
				"--rank", "美品", "--battery", "85", "--nw", "triangle", "--stain", "minor",
				"--guarantee", "55000",
			},
			want: "(guarantee)",
		},
		{
			name: "resale",
			args: []string{
				"quote", "resale", "--model", "iPhone 13", "--storage", "128GB",
				"--rank", "美品", "--battery", "85", "--nw", "triangle", "--stain", "minor",
			},
			want: "¥57,500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, server, tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestQuote_RequiresModel(t *testing.T) {
	_, err := run(t, "http://127.0.0.1:0", "quote", "buyback", "--storage", "128GB")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model")
}

func TestParseEdits(t *testing.T) {
	t.Parallel()

	edits, err := parseEdits([]string{"item-1:battery_percent=75", "item-2:rank=並品", "item-1:imei="})
	require.NoError(t, err)
	assert.Equal(t, []apiclient.ItemEdit{
		{ItemID: "item-1", Field: "battery_percent", Value: "75"},
		{ItemID: "item-2", Field: "rank", Value: "並品"},
		{ItemID: "item-1", Field: "imei", Value: ""},
	}, edits)

	for _, bad := range []string{"no-equals", ":rank=x", "item-1=75", "item-1:=75"} {
		_, err := parseEdits([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestReadDocument_Stdin(t *testing.T) {
	t.Parallel()

	var bank domain.BankInfo
	err := readDocument("-", bytes.NewBufferString(`{"bank_name":"Mizuho","account_number":"7654321"}`), &bank)
	require.NoError(t, err)
	assert.Equal(t, "Mizuho", bank.BankName)
	assert.Equal(t, "7654321", bank.AccountNumber)
}

func TestYen(t *testing.T) {
	t.Parallel()

	tests := map[int]string{
		0:        "¥0",
		500:      "¥500",
		1000:     "¥1,000",
		52500:    "¥52,500",
		1234567:  "¥1,234,567",
		-1500:    "-¥1,500",
		-1000000: "-¥1,000,000",
	}
	for in, want := range tests {
		assert.Equal(t, want, yen(in))
	}
}
