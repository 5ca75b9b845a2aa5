package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fincli/internal/core"
	"fincli/internal/gateway"
	"fincli/internal/session"
)

func newTestClient(t *testing.T, handler http.Handler, cfg Config) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	sess := session.New(nil)
	require.NoError(t, sess.SetPair(context.Background(), session.Credentials{Access: "a1", Refresh: "r1"}))
	gw, err := gateway.New(gateway.Config{BaseURL: ts.URL}, sess)
	require.NoError(t, err)
	return New(gw, cfg)
}

func TestListAcceptsBothShapes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("include_inactive"))
		_, _ = w.Write([]byte(`[{"id":"1","name":"Wallet","type":"CASH","current_balance":"10.50"}]`))
	})
	mux.HandleFunc("/categories/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":1,"next":null,"previous":null,"results":[{"id":"c1","name":"Food","type":"EXPENSE"}]}`))
	})
	c := newTestClient(t, mux, Config{})

	accounts, err := c.Accounts.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, int64(1050), accounts[0].CurrentBalance.Cents)

	categories, err := c.Categories.List(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Food", categories[0].Name)
}

func TestTransactionsListPaginated(t *testing.T) {
	ts := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "EXPENSE", q.Get("type"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Empty(t, q.Get("search"))
		_, _ = w.Write([]byte(`{"count":21,"next":"http://x/?page=3","previous":"http://x/?page=1","results":[{"id":"t1","description":"Lunch","amount":12.5,"type":"EXPENSE"}]}`))
	})
	c := newTestClient(t, ts, Config{})

	page, err := c.Transactions.List(context.Background(), core.TransactionFilter{Type: core.TypeExpense}, 2)
	require.NoError(t, err)
	assert.Equal(t, 21, page.Count)
	require.Len(t, page.Results, 1)
	assert.Equal(t, int64(1250), page.Results[0].Amount.Cents)
}

func TestCacheServesListsUntilMutation(t *testing.T) {
	var gets atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/accounts/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			gets.Add(1)
			_, _ = w.Write([]byte(`[]`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/transactions/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"t1"}`))
	})
	c := newTestClient(t, mux, Config{CacheTTL: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.Accounts.List(ctx, false)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, gets.Load())

	require.NoError(t, c.Accounts.Delete(ctx, "a1"))
	_, err := c.Accounts.List(ctx, false)
	require.NoError(t, err)
	assert.EqualValues(t, 2, gets.Load())

	// New transactions change balances
	_, err = c.Transactions.Create(ctx, core.TransactionInput{
		Description: "Coffee",
		Amount:      core.Money{Cents: 250},
		Type:        core.TypeExpense,
		Date:        "2026-10-01",
		Account:     "a1",
	})
	require.NoError(t, err)
	_, err = c.Accounts.List(ctx, false)
	require.NoError(t, err)
	assert.EqualValues(t, 3, gets.Load())

	c.Invalidate()
	assert.Zero(t, c.Cache().Size())
}

func TestCreateValidatesBeforeSending(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}), Config{})

	_, err := c.Transactions.Create(context.Background(), core.TransactionInput{Description: "x"})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	assert.Zero(t, calls.Load())
}

func TestExport(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reports/r1/export/", r.URL.Path)
		assert.Equal(t, "csv", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = w.Write([]byte("category,total\nFood,10.00\n"))
	}), Config{})

	data, ct, err := c.Reports.Export(context.Background(), "r1", FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", ct)
	assert.Contains(t, string(data), "Food,10.00")

	_, _, err = c.Reports.Export(context.Background(), "r1", "xlsx")
	assert.Error(t, err)
}

func TestGenerateDropsDatesForFixedPeriods(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, decodeBody(r, &body))
		assert.Equal(t, "month", body["period"])
		assert.NotContains(t, body, "start_date")
		_, _ = w.Write([]byte(`{"id":"r1","data":{"summary":{"total_income":"100.00","total_expense":40,"balance":"60.00","transactions_count":3}}}`))
	}), Config{})

	rep, err := c.Reports.Generate(context.Background(), core.ReportRequest{Period: core.PeriodMonth, StartDate: "2026-01-01"})
	require.NoError(t, err)
	assert.Equal(t, "r1", rep.ID)
	assert.Equal(t, int64(6000), rep.Data.Summary.Balance.Cents)
}

// scriptedDoer answers GETs with an empty list and everything else with
// 204, unless err is set.
type scriptedDoer struct {
	gets  int
	onGet func()
	err   error
}

func (d *scriptedDoer) Do(_ context.Context, req *gateway.Request) (*gateway.Response, error) {
	if d.err != nil {
		return nil, d.err
	}
	if req.Method != http.MethodGet {
		return &gateway.Response{StatusCode: http.StatusNoContent}, nil
	}
	d.gets++
	if hook := d.onGet; hook != nil {
		d.onGet = nil
		hook()
	}
	return &gateway.Response{StatusCode: http.StatusOK, Body: []byte(`[]`)}, nil
}

func TestCacheSkipsListFetchedAcrossMutation(t *testing.T) {
	doer := &scriptedDoer{}
	c := New(doer, Config{CacheTTL: time.Minute})
	ctx := context.Background()

	// The delete lands while the list is in flight
	doer.onGet = func() { require.NoError(t, c.Accounts.Delete(ctx, "a1")) }
	_, err := c.Accounts.List(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, c.Cache().Size())

	_, err = c.Accounts.List(ctx, false)
	require.NoError(t, err)
	_, err = c.Accounts.List(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, doer.gets)
}

func TestSessionExpiryPurgesCache(t *testing.T) {
	doer := &scriptedDoer{}
	c := New(doer, Config{CacheTTL: time.Minute})
	ctx := context.Background()

	_, err := c.Categories.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Cache().Size())

	doer.err = &gateway.RefreshError{Err: &gateway.HTTPError{Method: http.MethodPost, Path: gateway.RefreshPath, StatusCode: http.StatusUnauthorized}}
	_, err = c.Transactions.Dashboard(ctx)
	require.ErrorIs(t, err, gateway.ErrSessionExpired)
	assert.Zero(t, c.Cache().Size())
}
