package order_api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ms-restaurant/internal/database"
	"ms-restaurant/internal/logger"
	"ms-restaurant/internal/models"
	"ms-restaurant/internal/order"
	"ms-restaurant/internal/order/db"
	"ms-restaurant/internal/order/order_api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	router http.Handler
	bun    *bun.DB
}

func newTestAPI(t *testing.T) *testAPI {
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, database.CreateSchema(context.Background(), bunDB))
	t.Cleanup(func() { bunDB.Close() })

	store := db.New(bunDB)
	svc := order.NewOrderService(store, order.NewTransactor(store), nil, nil, nil, logger.NewNop())

	r := chi.NewRouter()
	order_api.NewHandler(svc, logger.NewNop()).RegisterRoutes(r)
	return &testAPI{router: r, bun: bunDB}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (a *testAPI) seed(t *testing.T) (guestID, menuItemID string) {
	ctx := context.Background()
	guest := &models.Guest{ID: uuid.NewString(), GuestName: "Tuan", JoinedAt: time.Now().UTC()}
	item := &models.MenuItem{ID: uuid.NewString(), Name: "Banh mi", Price: 25000, Available: true}
	_, err := a.bun.NewInsert().Model(guest).Exec(ctx)
	require.NoError(t, err)
	_, err = a.bun.NewInsert().Model(item).Exec(ctx)
	require.NoError(t, err)
	return guest.ID, item.ID
}

func TestCreateOrder_AndLifecycle(t *testing.T) {
	api := newTestAPI(t)
	guestID, itemID := api.seed(t)

	rec, env := api.do(t, http.MethodPost, "/orders", map[string]interface{}{
		"guestId": guestID,
		"items":   []map[string]interface{}{{"menuItemId": itemID, "quantity": 3}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, env.Success)

	var created models.Order
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, int64(75000), created.TotalPrice)
	assert.Equal(t, models.OrderStatusPending, created.Status)

	rec, _ = api.do(t, http.MethodPatch, "/orders/"+created.ID+"/status", map[string]string{"status": "pending"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = api.do(t, http.MethodPost, "/orders/"+created.ID+"/cancel", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = api.do(t, http.MethodPatch, "/orders/"+created.ID+"/status", map[string]string{"status": "preparing"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Cannot update order with status: cancelled", env.Error)

	rec, _ = api.do(t, http.MethodDelete, "/orders/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = api.do(t, http.MethodGet, "/orders/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateOrder_ValidationFailure(t *testing.T) {
	api := newTestAPI(t)

	rec, env := api.do(t, http.MethodPost, "/orders", map[string]interface{}{
		"guestId": "nope",
		"items":   []map[string]interface{}{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Validation failed", env.Message)

	rec, _ = api.do(t, http.MethodPost, "/orders", map[string]interface{}{"unknown": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetOrder_BadID(t *testing.T) {
	api := newTestAPI(t)

	rec, env := api.do(t, http.MethodGet, "/orders/123", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid order ID format", env.Error)
}

func TestListOrdersAndStats(t *testing.T) {
	api := newTestAPI(t)
	guestID, itemID := api.seed(t)

	for i := 0; i < 2; i++ {
		rec, _ := api.do(t, http.MethodPost, "/orders", map[string]interface{}{
			"guestId": guestID,
			"items":   []map[string]interface{}{{"menuItemId": itemID, "quantity": 1}},
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, env := api.do(t, http.MethodGet, "/orders?page=1&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page models.OrderPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Orders, 1)

	rec, _ = api.do(t, http.MethodGet, "/orders?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = api.do(t, http.MethodGet, "/orders/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.OrderStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(2), stats.Pending)

	rec, env = api.do(t, http.MethodGet, "/orders/guest/"+guestID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var byGuest []models.Order
	require.NoError(t, json.Unmarshal(env.Data, &byGuest))
	assert.Len(t, byGuest, 2)
}

func TestListOrdersInPeriod_RequiresDates(t *testing.T) {
	api := newTestAPI(t)

	rec, env := api.do(t, http.MethodGet, "/orders/period?startDate=2026-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Start and end dates are required", env.Error)

	rec, _ = api.do(t, http.MethodGet, "/orders/period?startDate=2026-01-02&endDate=2026-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = api.do(t, http.MethodGet, "/orders/period?startDate=2026-01-01&endDate=2026-01-01", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMarkPaid_RequiresFlag(t *testing.T) {
	api := newTestAPI(t)
	guestID, itemID := api.seed(t)

	_, env := api.do(t, http.MethodPost, "/orders", map[string]interface{}{
		"guestId": guestID,
		"items":   []map[string]interface{}{{"menuItemId": itemID, "quantity": 1}},
	})
	var created models.Order
	require.NoError(t, json.Unmarshal(env.Data, &created))

	rec, _ := api.do(t, http.MethodPatch, "/orders/"+created.ID+"/paid", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = api.do(t, http.MethodPatch, "/orders/"+created.ID+"/paid", map[string]interface{}{"isPaid": true})
	require.Equal(t, http.StatusOK, rec.Code)
	var paid models.Order
	require.NoError(t, json.Unmarshal(env.Data, &paid))
	assert.True(t, paid.IsPaid)
}
