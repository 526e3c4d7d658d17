package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/orderflow-api/internal/application/dto"
	"github.com/jhoicas/orderflow-api/internal/application/inventory"
	"github.com/jhoicas/orderflow-api/internal/application/notification"
	"github.com/jhoicas/orderflow-api/internal/application/order"
	"github.com/jhoicas/orderflow-api/internal/application/ports"
	apphttp "github.com/jhoicas/orderflow-api/internal/interfaces/http"
	"github.com/jhoicas/orderflow-api/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixture: ledger, saga y notificador sobre los adaptadores en memoria
// ──────────────────────────────────────────────────────────────────────────────

const otherUserID = "00000000-0000-0000-0000-000000000009"

type allowUsers struct{}

func (allowUsers) VerifyUser(_ context.Context, userID string) (bool, error) {
	return userID != "", nil
}

type catalogMap map[string]*ports.ProductInfo

func (c catalogMap) GetProduct(_ context.Context, id string) (*ports.ProductInfo, error) {
	return c[id], nil
}

var testCatalog = catalogMap{
	"P1": {ID: "P1", Name: "Café", Price: decimal.RequireFromString("19.99")},
	"P2": {ID: "P2", Name: "Azúcar", Price: decimal.RequireFromString("0.10")},
}

type testServer struct {
	app      *fiber.App
	ledger   *inventory.Ledger
	notifier *notification.LowStockNotifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewLedgerStore()
	notifier := notification.NewLowStockNotifier(
		memory.NewNotificationRepository(),
		notification.NewLogSender(zerolog.Nop()),
		"", "inventory-admin", 16, zerolog.Nop(),
	)
	ledger := inventory.NewLedger(store, store.Inventory(), store.History(), testCatalog, notifier, zerolog.Nop())
	orders := memory.NewOrderRepository()
	saga := order.NewSaga(allowUsers{}, testCatalog, order.NewLocalStock(ledger), orders,
		memory.NewIdempotencyGuard(), order.SagaConfig{}, zerolog.Nop())

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Ledger:    ledger,
		Saga:      saga,
		Orders:    order.NewService(orders),
		Notifier:  notifier,
		JWTSecret: testJWTSecret,
	})
	return &testServer{app: app, ledger: ledger, notifier: notifier}
}

func (s *testServer) do(t *testing.T, method, path, auth string, body any, headers ...string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (s *testServer) seed(t *testing.T, productID string, available, threshold int) {
	t.Helper()
	_, err := s.ledger.Create(context.Background(), productID, available, threshold)
	require.NoError(t, err)
}

var shipping = dto.AddressDTO{Line1: "Calle 10 # 5-20", City: "Bogotá", State: "Cundinamarca", PostalCode: "110111", Country: "CO"}

// ──────────────────────────────────────────────────────────────────────────────
// Health
// ──────────────────────────────────────────────────────────────────────────────

func TestHealth_Publico(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Inventory
// ──────────────────────────────────────────────────────────────────────────────

func TestInventoryCreate_SoloAdmin(t *testing.T) {
	s := newTestServer(t)
	body := dto.CreateInventoryRequest{ProductID: "P1", AvailableQuantity: 10, ReorderThreshold: 2}

	resp := s.do(t, http.MethodPost, "/api/inventory", bearer(t, testUserID, "customer"), body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/inventory", bearer(t, testUserID, "admin"), body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode[dto.InventoryResponse](t, resp)
	assert.Equal(t, 10, out.AvailableQuantity)
	assert.Equal(t, 0, out.ReservedQuantity)
	assert.False(t, out.LowStock)
}

func TestInventoryCreate_DuplicadoOProductoDesconocidoEs400(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "P1", 10, 2)
	admin := bearer(t, testUserID, "admin")

	resp := s.do(t, http.MethodPost, "/api/inventory", admin, dto.CreateInventoryRequest{ProductID: "P1", AvailableQuantity: 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/inventory", admin, dto.CreateInventoryRequest{ProductID: "P9", AvailableQuantity: 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "UNKNOWN_PRODUCT", decode[dto.ErrorResponse](t, resp).Code)
}

func TestInventoryReserve_RespuestaYErrores(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "P1", 10, 2)
	auth := bearer(t, testUserID, "customer")

	resp := s.do(t, http.MethodPost, "/api/inventory/reserve", auth, dto.StockRequest{ProductID: "P1", Quantity: 7, OrderID: "O1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[dto.ReserveResponse](t, resp)
	assert.True(t, out.Reserved)
	assert.Equal(t, 3, out.AvailableQuantity)
	assert.Equal(t, 7, out.ReservedQuantity)

	resp = s.do(t, http.MethodPost, "/api/inventory/reserve", auth, dto.StockRequest{ProductID: "P1", Quantity: 4, OrderID: "O2"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", decode[dto.ErrorResponse](t, resp).Code)

	resp = s.do(t, http.MethodPost, "/api/inventory/reserve", auth, dto.StockRequest{ProductID: "P9", Quantity: 1, OrderID: "O3"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInventoryRelease_DevuelveAlDisponible(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "P1", 10, 2)
	auth := bearer(t, testUserID, "customer")

	s.do(t, http.MethodPost, "/api/inventory/reserve", auth, dto.StockRequest{ProductID: "P1", Quantity: 4, OrderID: "O1"})
	resp := s.do(t, http.MethodPost, "/api/inventory/release", auth, dto.StockRequest{ProductID: "P1", Quantity: 4, OrderID: "O1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[dto.ReleaseResponse](t, resp)
	assert.Equal(t, 10, out.AvailableQuantity)
	assert.Equal(t, 0, out.ReservedQuantity)
}

func TestInventoryCheck(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "P1", 5, 0)
	auth := bearer(t, testUserID, "customer")

	resp := s.do(t, http.MethodGet, "/api/inventory/check?product_id=P1&quantity=5", auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[dto.AvailabilityResponse](t, resp)
	assert.True(t, out.Available)
	assert.Equal(t, 5, out.CurrentQuantity)

	resp = s.do(t, http.MethodGet, "/api/inventory/check?product_id=P1&quantity=6", auth, nil)
	assert.False(t, decode[dto.AvailabilityResponse](t, resp).Available)

	resp = s.do(t, http.MethodGet, "/api/inventory/check?product_id=P1&quantity=0", auth, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInventoryGet_Desconocido404(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodGet, "/api/inventory/P9", bearer(t, testUserID, "customer"), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInventoryUpdateYAdjust_RegistranHistorial(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "P1", 10, 2)
	admin := bearer(t, testUserID, "admin")

	qty := 15
	resp := s.do(t, http.MethodPatch, "/api/inventory/P1", admin, dto.UpdateInventoryRequest{AvailableQuantity: &qty})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 15, decode[dto.InventoryResponse](t, resp).AvailableQuantity)

	resp = s.do(t, http.MethodPost, "/api/inventory/P1/adjust", admin, dto.AdjustInventoryRequest{Delta: -5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 10, decode[dto.InventoryResponse](t, resp).AvailableQuantity)

	resp = s.do(t, http.MethodPost, "/api/inventory/P1/adjust", admin, dto.AdjustInventoryRequest{Delta: -50})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/inventory/P1/history", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	hist := decode[dto.HistoryListResponse](t, resp)
	require.Len(t, hist.Items, 3)
	assert.Equal(t, "adjust", hist.Items[0].ChangeType)
	assert.Equal(t, "update", hist.Items[1].ChangeType)
	assert.Equal(t, "add", hist.Items[2].ChangeType)
	for _, e := range hist.Items {
		assert.Equal(t, e.PreviousQuantity+e.QuantityChange, e.NewQuantity)
	}
}

func TestInventoryUpdate_CustomerBloqueado(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "P1", 10, 2)
	qty := 1
	resp := s.do(t, http.MethodPatch, "/api/inventory/P1", bearer(t, testUserID, "customer"), dto.UpdateInventoryRequest{AvailableQuantity: &qty})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestInventoryList_LowStockOnly(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "P1", 10, 2)
	s.seed(t, "P2", 1, 5)

	resp := s.do(t, http.MethodGet, "/api/inventory?low_stock_only=true", bearer(t, testUserID, "customer"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[dto.InventoryListResponse](t, resp)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "P2", out.Items[0].ProductID)
	assert.Equal(t, dto.DefaultLimit, out.Page.Limit)
}

// ──────────────────────────────────────────────────────────────────────────────
// Orders
// ──────────────────────────────────────────────────────────────────────────────

func orderBody(items ...dto.OrderItemRequest) dto.CreateOrderRequest {
	return dto.CreateOrderRequest{Items: items, ShippingAddress: shipping}
}

func TestOrderCreate_ExitoYReintentoIdempotente(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "P1", 10, 0)
	auth := bearer(t, testUserID, "customer")
	body := orderBody(dto.OrderItemRequest{ProductID: "P1", Quantity: 3, Price: decimal.RequireFromString("19.99")})

	resp := s.do(t, http.MethodPost, "/api/orders", auth, body, apphttp.HeaderIdempotencyKey, "attempt-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := decode[dto.OrderResponse](t, resp)
	assert.Equal(t, "pending", first.Status)
	assert.Equal(t, testUserID, first.UserID)
	assert.True(t, decimal.RequireFromString("59.97").Equal(first.TotalPrice))

	resp = s.do(t, http.MethodPost, "/api/orders", auth, body, apphttp.HeaderIdempotencyKey, "attempt-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, first.ID, decode[dto.OrderResponse](t, resp).ID)

	rec, err := s.ledger.Get(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.ReservedQuantity, "el reintento no debe reservar dos veces")

	resp = s.do(t, http.MethodGet, "/api/orders/"+first.ID, auth, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, first.ID, decode[dto.OrderResponse](t, resp).ID)
}

func TestOrderCreate_StockInsuficienteEs409ConLineas(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "P1", 1, 0)
	s.seed(t, "P2", 100, 0)
	body := orderBody(
		dto.OrderItemRequest{ProductID: "P2", Quantity: 1, Price: decimal.RequireFromString("0.10")},
		dto.OrderItemRequest{ProductID: "P1", Quantity: 2, Price: decimal.RequireFromString("19.99")},
	)

	resp := s.do(t, http.MethodPost, "/api/orders", bearer(t, testUserID, "customer"), body)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	out := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "insufficient_stock", out.Code)
	require.Len(t, out.Lines, 1)
	assert.Equal(t, 1, out.Lines[0].Index)
	assert.Equal(t, "P1", out.Lines[0].ProductID)

	rec, err := s.ledger.Get(context.Background(), "P2")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.ReservedQuantity)
}

func TestOrderCreate_PrecioDistintoEs400(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "P1", 10, 0)
	body := orderBody(dto.OrderItemRequest{ProductID: "P1", Quantity: 1, Price: decimal.RequireFromString("18.00")})

	resp := s.do(t, http.MethodPost, "/api/orders", bearer(t, testUserID, "customer"), body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "product_invalid", decode[dto.ErrorResponse](t, resp).Code)
}

func TestOrderCreate_CustomerNoOrdenaPorOtro(t *testing.T) {
	s := newTestServer(t)
	body := orderBody(dto.OrderItemRequest{ProductID: "P1", Quantity: 1, Price: decimal.RequireFromString("19.99")})
	body.UserID = otherUserID

	resp := s.do(t, http.MethodPost, "/api/orders", bearer(t, testUserID, "customer"), body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestOrderGet_MalFormadoODeOtroUsuarioEs404(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "P1", 10, 0)
	body := orderBody(dto.OrderItemRequest{ProductID: "P1", Quantity: 1, Price: decimal.RequireFromString("19.99")})
	resp := s.do(t, http.MethodPost, "/api/orders", bearer(t, otherUserID, "customer"), body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[dto.OrderResponse](t, resp)

	auth := bearer(t, testUserID, "customer")
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/orders/no-es-uuid", auth, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/orders/"+created.ID, auth, nil).StatusCode)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/orders/"+created.ID, bearer(t, testUserID, "admin"), nil).StatusCode)
}

func TestOrderList_CustomerSoloVeLasSuyas(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, "P1", 10, 0)
	body := orderBody(dto.OrderItemRequest{ProductID: "P1", Quantity: 1, Price: decimal.RequireFromString("19.99")})
	s.do(t, http.MethodPost, "/api/orders", bearer(t, testUserID, "customer"), body)
	s.do(t, http.MethodPost, "/api/orders", bearer(t, otherUserID, "customer"), body)

	resp := s.do(t, http.MethodGet, "/api/orders?user_id="+otherUserID, bearer(t, testUserID, "customer"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[dto.OrderListResponse](t, resp)
	require.Len(t, out.Items, 1)
	assert.Equal(t, testUserID, out.Items[0].UserID)

	today := time.Now().UTC().Format(time.DateOnly)
	resp = s.do(t, http.MethodGet, "/api/orders?status=pending&start_date="+today+"&end_date="+today, bearer(t, testUserID, "admin"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[dto.OrderListResponse](t, resp).Items, 2)

	resp = s.do(t, http.MethodGet, "/api/orders?status=shipped", bearer(t, testUserID, "admin"), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/orders?start_date=ayer", bearer(t, testUserID, "admin"), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Notifications
// ──────────────────────────────────────────────────────────────────────────────

func TestNotifications_StockBajoQuedaAuditado(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.notifier.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	s.seed(t, "P1", 10, 2)
	_, err := s.ledger.Reserve(context.Background(), "P1", 9, "O1")
	require.NoError(t, err)

	admin := bearer(t, testUserID, "admin")
	require.Eventually(t, func() bool {
		resp := s.do(t, http.MethodGet, "/api/notifications", admin, nil)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		out := decode[dto.NotificationListResponse](t, resp)
		return len(out.Items) == 1 && out.Items[0].Status == "sent"
	}, 2*time.Second, 20*time.Millisecond)

	resp := s.do(t, http.MethodGet, "/api/notifications", bearer(t, testUserID, "customer"), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
