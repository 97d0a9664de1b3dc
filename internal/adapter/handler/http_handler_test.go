package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/inventory-ledger/internal/adapter/storage"
	"github.com/rl1809/inventory-ledger/internal/core/service"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	conn, err := storage.NewConnectionManager(storage.DriverSQLite,
		"file:"+filepath.Join(t.TempDir(), "http.db")+"?_txlock=immediate")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, storage.EnsureSchema(context.Background(), conn))

	svc := service.NewItemService(storage.NewItemStore(conn, nil), storage.NewAnalyticsProjector(conn), nil, nil)
	srv := httptest.NewServer(NewHTTPHandler(svc, nil).Router())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHTTP_CreateGetListFlow(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/items", `{"name":"Widget","price":"10.00","stock_quantity":5}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	var created map[string]int64
	decode(t, resp, &created)
	assert.Equal(t, int64(1), created["id"])

	do(t, http.MethodPost, srv.URL+"/api/items", `{"name":"Gadget","price":"30","stock_quantity":1}`)

	resp = do(t, http.MethodGet, srv.URL+"/api/items/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var item ItemHTTPResponse
	decode(t, resp, &item)
	assert.Equal(t, "Widget", item.Name)
	assert.Nil(t, item.ModifiedAt)

	resp = do(t, http.MethodGet, srv.URL+"/api/items", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var items []ItemHTTPResponse
	decode(t, resp, &items)
	require.Len(t, items, 2)
	assert.Equal(t, "Gadget", items[0].Name)
	assert.Equal(t, "Above Average", items[0].PriceCategory)

	resp = do(t, http.MethodGet, srv.URL+"/api/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats map[string]any
	decode(t, resp, &stats)
	assert.Equal(t, float64(2), stats["total_items"])
	assert.Equal(t, "20", stats["average_price"])
}

func TestHTTP_ErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/items", `{"name":"","price":"1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/items", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/items/42", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodPut, srv.URL+"/api/items/999", `{"name":"x","price":"1","stock_quantity":1}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body ErrorHTTPResponse
	decode(t, resp, &body)
	assert.Equal(t, "not found", body.Kind)

	resp = do(t, http.MethodDelete, srv.URL+"/api/items/999", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/analytics/price-range?min=5&max=1", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/analytics/low-stock?threshold=abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTP_StockHistoryAndAnalytics(t *testing.T) {
	srv := newTestServer(t)

	do(t, http.MethodPost, srv.URL+"/api/items", `{"name":"Nut","price":"2","stock_quantity":3}`)
	do(t, http.MethodPost, srv.URL+"/api/items", `{"name":"Bolt","price":"8","stock_quantity":40}`)

	resp := do(t, http.MethodPut, srv.URL+"/api/items/1/stock", `{"quantity":1}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodPut, srv.URL+"/api/items/1/stock", `{"quantity":-1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/items/1/history", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []HistoryHTTPResponse
	decode(t, resp, &history)
	require.Len(t, history, 2)
	assert.Equal(t, "UPDATE", history[1].Action)
	assert.Equal(t, 1, *history[1].NewStock)

	resp = do(t, http.MethodGet, srv.URL+"/api/analytics/low-stock?threshold=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var low []ItemHTTPResponse
	decode(t, resp, &low)
	require.Len(t, low, 1)
	assert.Equal(t, "Critical", low[0].StockStatus)

	resp = do(t, http.MethodGet, srv.URL+"/api/analytics/price-range?min=0&max=100", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ranked []ItemHTTPResponse
	decode(t, resp, &ranked)
	require.Len(t, ranked, 2)
	assert.Equal(t, "Budget", ranked[0].PriceSegment)
	assert.Equal(t, "Premium", ranked[1].PriceSegment)

	resp = do(t, http.MethodDelete, srv.URL+"/api/items/1", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
