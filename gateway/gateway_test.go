package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/example/orderdesk/pkg/analytics"
	"github.com/example/orderdesk/pkg/board"
	"github.com/example/orderdesk/pkg/cart"
	"github.com/example/orderdesk/pkg/catalog"
	"github.com/example/orderdesk/pkg/chat"
	"github.com/example/orderdesk/pkg/client"
	"github.com/example/orderdesk/pkg/config"
	"github.com/example/orderdesk/pkg/models"
	"github.com/example/orderdesk/pkg/refresh"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeService struct {
	mu          sync.Mutex
	err         error
	statusCalls []models.OrderStatus
	orders      []models.Order
	chatErr     error
}

func (f *fakeService) ListMenu(context.Context) ([]models.MenuItem, error) { return nil, nil }

func (f *fakeService) ListCategories(context.Context) ([]models.Category, error) { return nil, nil }

func (f *fakeService) CreateMenuItem(_ context.Context, in models.MenuItemInput) (models.MenuItem, error) {
	if f.err != nil {
		return models.MenuItem{}, f.err
	}
	return models.MenuItem{ID: 50, Name: in.Name, Category: in.Category, Price: in.Price}, nil
}

func (f *fakeService) DeleteMenuItem(context.Context, int64) error { return f.err }

func (f *fakeService) CreateCategory(_ context.Context, c models.Category) (models.Category, error) {
	return c, f.err
}

func (f *fakeService) ListOrders(context.Context) ([]models.Order, error) { return nil, nil }

func (f *fakeService) CreateOrder(_ context.Context, customerRef string, lines []models.OrderLine) (models.Order, error) {
	if f.err != nil {
		return models.Order{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o := models.Order{ID: 77, CustomerRef: customerRef, Status: models.StatusPending}
	f.orders = append(f.orders, o)
	return o, nil
}

func (f *fakeService) UpdateOrderStatus(_ context.Context, id int64, status models.OrderStatus) (models.Order, error) {
	if f.err != nil {
		return models.Order{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, status)
	return models.Order{ID: id, Status: status}, nil
}

func (f *fakeService) DeleteOrder(context.Context, int64) error { return f.err }

func (f *fakeService) SendChat(_ context.Context, _, text string) (string, error) {
	if f.chatErr != nil {
		return "", f.chatErr
	}
	return "You said: " + text, nil
}

type countingRefresher struct {
	n atomic.Int32
}

func (r *countingRefresher) Trigger() { r.n.Add(1) }

type staticStats []refresh.Stats

func (s staticStats) Stats() []refresh.Stats { return s }

type testEnv struct {
	svc      *fakeService
	gw       *Gateway
	catalog  *catalog.Store
	board    *board.Store
	catalogR *countingRefresher
	ordersR  *countingRefresher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)
	cfg, err := config.Load("")
	require.NoError(t, err)

	svc := &fakeService{}
	cat := catalog.NewStore(svc, nil, logger)
	brd := board.NewStore(svc, nil, logger)
	an := analytics.NewStore(nil, logger)
	an.Bind(brd, cat)

	correlator := chat.NewCorrelator(actor.NewActorSystem(), svc, logger, chat.WithTimeout(time.Second))
	t.Cleanup(correlator.Close)

	cat.Replace(catalog.NewCatalog([]models.MenuItem{
		{ID: 3, Name: "Burger", Category: "Mains", Price: decimal.RequireFromString("4.50")},
		{ID: 4, Name: "Green Salad", Category: "Salads", Price: decimal.RequireFromString("6.00"), Description: "seasonal leaves"},
	}, []models.Category{{Name: "Mains", ImageURL: "https://cdn.example.com/mains.png"}, {Name: "Salads"}}))

	brd.Replace([]models.Order{
		{ID: 7, CustomerRef: "Ann", Status: models.StatusCancelled},
		{ID: 8, CustomerRef: "Bob", Status: models.StatusPending},
	})

	env := &testEnv{
		svc:      svc,
		catalog:  cat,
		board:    brd,
		catalogR: &countingRefresher{},
		ordersR:  &countingRefresher{},
	}
	env.gw = NewGateway(cfg, Deps{
		Catalog:        cat,
		Board:          brd,
		Analytics:      an,
		Carts:          cart.NewSessions(),
		Chat:           correlator,
		Stats:          staticStats{{Name: "orders"}},
		CatalogRefresh: env.catalogR,
		OrdersRefresh:  env.ordersR,
	}, logger)
	env.gw.SetupRoutes()
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.gw.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestListMenuFiltersAndResolvesImages(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/menu?q=LEAVES", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "Green Salad", item["item"])
	assert.Contains(t, item["image_url"], "unsplash")

	w = env.do(t, http.MethodGet, "/api/v1/menu", nil, nil)
	items = decode(t, w)["items"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "https://cdn.example.com/mains.png", items[0].(map[string]any)["image_url"])
}

func TestCorrelationHeader(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/menu", nil, map[string]string{client.HeaderCorrelationID: "abc"})
	assert.Equal(t, "abc", w.Header().Get(client.HeaderCorrelationID))

	w = env.do(t, http.MethodGet, "/api/v1/menu", nil, nil)
	assert.NotEmpty(t, w.Header().Get(client.HeaderCorrelationID))
}

func TestCreateMenuItem(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/menu", map[string]any{"item": "", "category": "Mains", "price": "3"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "name", decode(t, w)["field"])
	assert.Zero(t, env.catalogR.n.Load())

	w = env.do(t, http.MethodPost, "/api/v1/menu", map[string]any{"item": "Cheeseburger", "category": "Mains", "price": 5.25}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(50), decode(t, w)["id"])
	assert.EqualValues(t, 1, env.catalogR.n.Load())

	env.svc.err = &models.ServiceError{Op: "create menu item", StatusCode: 500, Message: "db down"}
	w = env.do(t, http.MethodPost, "/api/v1/menu", map[string]any{"item": "Wrap", "category": "Mains", "price": 5}, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, float64(500), decode(t, w)["service_status"])
}

func TestUpdateOrderStatus(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/api/v1/orders/8/status", map[string]string{"order_status": "preparing"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []models.OrderStatus{models.StatusPreparing}, env.svc.statusCalls)
	assert.EqualValues(t, 1, env.ordersR.n.Load())

	o, _ := env.board.Order(8)
	assert.Equal(t, models.StatusPending, o.Status, "board waits for refresh")

	w = env.do(t, http.MethodPut, "/api/v1/orders/8/status", map[string]string{"order_status": "lost"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/api/v1/orders/abc/status", map[string]string{"order_status": "Ready"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.svc.err = &models.ServiceError{Op: "update order status", StatusCode: 404, Message: "Order not found"}
	w = env.do(t, http.MethodPut, "/api/v1/orders/99/status", map[string]string{"order_status": "Ready"}, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.EqualValues(t, 1, env.ordersR.n.Load())
}

func TestOrderTransitions(t *testing.T) {
	env := newTestEnv(t)

	body := decode(t, env.do(t, http.MethodGet, "/api/v1/orders/7/transitions", nil, nil))
	assert.Equal(t, true, body["terminal"])
	assert.Empty(t, body["next_statuses"])

	body = decode(t, env.do(t, http.MethodGet, "/api/v1/orders/8/transitions", nil, nil))
	assert.Equal(t, []any{"Preparing", "Cancelled"}, body["next_statuses"])

	w := env.do(t, http.MethodGet, "/api/v1/orders/1000/transitions", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)

	body := decode(t, env.do(t, http.MethodGet, "/api/v1/search?q=cancel", nil, nil))
	orders := body["orders"].([]any)
	require.Len(t, orders, 1)
	assert.Equal(t, float64(7), orders[0].(map[string]any)["id"])
	assert.Empty(t, body["menu"])
}

func TestCartFlow(t *testing.T) {
	env := newTestEnv(t)
	session := map[string]string{HeaderSessionID: "s-1"}

	w := env.do(t, http.MethodGet, "/api/v1/cart", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.do(t, http.MethodPost, "/api/v1/cart/items/3", nil, session)
	body := decode(t, env.do(t, http.MethodPost, "/api/v1/cart/items/3", nil, session))
	assert.Equal(t, "9.00", body["total"])

	body = decode(t, env.do(t, http.MethodPost, "/api/v1/cart/items/3", nil, session))
	assert.Equal(t, "13.50", body["total"])

	body = decode(t, env.do(t, http.MethodDelete, "/api/v1/cart/items/3", nil, session))
	assert.Equal(t, "9.00", body["total"])

	w = env.do(t, http.MethodPost, "/api/v1/cart/items/404", nil, session)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/cart/checkout", map[string]string{"user_details": " "}, session)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/cart/checkout", map[string]string{"user_details": "Table 2"}, session)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "9.00", decode(t, w)["estimated_total"])
	assert.EqualValues(t, 1, env.ordersR.n.Load())

	body = decode(t, env.do(t, http.MethodGet, "/api/v1/cart", nil, session))
	assert.Empty(t, body["lines"])
	assert.Equal(t, "0.00", body["total"])

	w = env.do(t, http.MethodPost, "/api/v1/cart/checkout", map[string]string{"user_details": "Table 2"}, session)
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty cart")
}

func TestAnalyticsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	body := decode(t, env.do(t, http.MethodGet, "/api/v1/analytics", nil, nil))
	assert.Equal(t, float64(2), body["total_orders"])
	assert.Equal(t, map[string]any{
		"Pending":   float64(1),
		"Preparing": float64(0),
		"Ready":     float64(0),
		"Completed": float64(0),
		"Cancelled": float64(1),
	}, body["status_counts"])
	assert.NotContains(t, body, "remote")
}

func TestChatEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/chat/sessions", nil, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	id := body["session_id"].(string)
	require.NotEmpty(t, id)
	require.Len(t, body["turns"], 1)

	body = decode(t, env.do(t, http.MethodPost, "/api/v1/chat/sessions/"+id+"/messages", map[string]string{"message": "hi"}, nil))
	assert.Equal(t, "You said: hi", body["reply"])

	w = env.do(t, http.MethodPost, "/api/v1/chat/sessions/"+id+"/messages", map[string]string{"message": ""}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.svc.chatErr = errors.New("connection reset")
	w = env.do(t, http.MethodPost, "/api/v1/chat/sessions/"+id+"/messages", map[string]string{"message": "still there?"}, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	body = decode(t, env.do(t, http.MethodGet, "/api/v1/chat/sessions/"+id, nil, nil))
	turns := body["turns"].([]any)
	require.Len(t, turns, 5)
	assert.Equal(t, chat.FailureResponse, turns[4].(map[string]any)["text"])

	w = env.do(t, http.MethodGet, "/api/v1/chat/sessions/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/chat/sessions/"+id, nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	env.gw.deps.Stats = staticStats{{Name: "orders", ConsecutiveFailures: 5, LastError: errors.New("timeout")}}
	w = env.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "degraded", decode(t, w)["status"])
}
