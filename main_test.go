package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/config"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/database"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/events"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/metrics"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/models"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/repositories"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testPaymentSecret = "test_payment_secret"

// MockPublisher is a mock implementation of events.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, env events.Envelope) error {
	args := m.Called(ctx, env)
	return args.Error(0)
}

type marketplace struct {
	app   *fiber.App
	store repositories.Store
	pub   *MockPublisher
}

func newMarketplace(t *testing.T) *marketplace {
	t.Helper()
	v := viper.New()
	config.Defaults(v)
	v.Set("JWT_SECRET", "test_jwt_secret")
	v.Set("PAYMENT_SECRET", testPaymentSecret)
	v.Set("DEFAULT_COMMISSION_RATE", "0.1")
	cfg, err := config.FromViper(v)
	require.NoError(t, err)

	db, err := database.Open(database.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	store := repositories.NewGORMStore(db)

	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	app := NewApp(cfg, Deps{Store: store, Publisher: pub, Metrics: metrics.New()})
	return &marketplace{app: app, store: store, pub: pub}
}

func (m *marketplace) call(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := m.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp.StatusCode, decoded
}

// signup registers and logs in a user, returning its session token.
func (m *marketplace) signup(t *testing.T, username string, role models.Role) string {
	t.Helper()
	status, body := m.call(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
		"role":     string(role),
	})
	require.Equal(t, http.StatusCreated, status, "body: %v", body)
	return m.login(t, username)
}

func (m *marketplace) login(t *testing.T, username string) string {
	t.Helper()
	status, body := m.call(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, status, "body: %v", body)
	return body["token"].(string)
}

// admin creates an admin account directly, since admins cannot sign up.
func (m *marketplace) admin(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, m.store.Users().Create(context.Background(), &models.User{
		Username: "root", Email: "root@example.com", Password: string(hash), Role: models.RoleAdmin,
	}))
	return m.login(t, "root")
}

// openStore registers, approves and stocks a seller. It returns the seller
// token, the seller ID and the product IDs.
func (m *marketplace) openStore(t *testing.T, adminToken, username, rate string, prices ...string) (string, string, []string) {
	t.Helper()
	token := m.signup(t, username, models.RoleSeller)
	status, body := m.call(t, http.MethodPost, "/api/v1/sellers", token, map[string]string{"store_name": username + " store"})
	require.Equal(t, http.StatusCreated, status, "body: %v", body)
	sellerID := body["id"].(string)

	status, body = m.call(t, http.MethodPatch, "/api/v1/sellers/"+sellerID+"/review", adminToken, map[string]interface{}{
		"approved": true, "commission_rate": rate,
	})
	require.Equal(t, http.StatusOK, status, "body: %v", body)

	var ids []string
	for i, price := range prices {
		status, body = m.call(t, http.MethodPost, "/api/v1/products", token, map[string]interface{}{
			"name": username + " item " + string(rune('A'+i)), "price": price, "stock": 5,
		})
		require.Equal(t, http.StatusCreated, status, "body: %v", body)
		ids = append(ids, body["id"].(string))
	}
	return token, sellerID, ids
}

func cart(lines ...interface{}) map[string]interface{} {
	items := make([]map[string]interface{}, 0, len(lines)/2)
	for i := 0; i+1 < len(lines); i += 2 {
		items = append(items, map[string]interface{}{"product_id": lines[i], "quantity": lines[i+1]})
	}
	return map[string]interface{}{
		"items": items,
		"shipping_address": map[string]string{
			"full_name": "Kenji Sato", "line1": "1 Dojo Lane", "city": "Pune",
			"state": "MH", "postal_code": "411001", "country": "IN", "phone": "+919800000000",
		},
		"payment_method": "card",
	}
}

func money(t *testing.T, v interface{}) decimal.Decimal {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "expected a decimal string, got %T", v)
	return decimal.RequireFromString(s)
}

func TestHealthAndMetrics(t *testing.T) {
	m := newMarketplace(t)

	status, body := m.call(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := m.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status, body = m.call(t, http.MethodGet, "/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, body["message"])
}

func TestMarketplaceFlow(t *testing.T) {
	m := newMarketplace(t)
	adminToken := m.admin(t)

	senseiToken, senseiID, senseiProducts := m.openStore(t, adminToken, "sensei", "0.2", "40.00", "10.00")
	_, roninID, roninProducts := m.openStore(t, adminToken, "ronin", "0.05", "100.00")
	customerToken := m.signup(t, "kenji", models.RoleStudent)

	// One cart spanning two sellers becomes two orders.
	status, body := m.call(t, http.MethodPost, "/api/v1/orders", customerToken,
		cart(roninProducts[0], 1, senseiProducts[0], 2, senseiProducts[1], 3))
	require.Equal(t, http.StatusCreated, status, "body: %v", body)
	orders := body["orders"].([]interface{})
	require.Len(t, orders, 2)

	ronin := orders[0].(map[string]interface{})
	sensei := orders[1].(map[string]interface{})
	assert.Equal(t, roninID, ronin["seller_id"])
	assert.Equal(t, senseiID, sensei["seller_id"])
	assert.True(t, decimal.RequireFromString("100").Equal(money(t, ronin["total_amount"])))
	assert.True(t, decimal.RequireFromString("5").Equal(money(t, ronin["commission_amount"])))
	assert.True(t, decimal.RequireFromString("110").Equal(money(t, sensei["total_amount"])))
	assert.True(t, decimal.RequireFromString("22").Equal(money(t, sensei["commission_amount"])))
	m.pub.AssertNumberOfCalls(t, "Publish", 2)

	// Overselling leaves every product untouched.
	status, body = m.call(t, http.MethodPost, "/api/v1/orders", customerToken,
		cart(senseiProducts[1], 1, roninProducts[0], 5))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "insufficient_stock", body["kind"])
	p, err := m.store.Products().GetByID(context.Background(), senseiProducts[1])
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stock)

	// The customer sees both orders, each seller only its own.
	status, _ = m.call(t, http.MethodGet, "/api/v1/orders", customerToken, nil)
	assert.Equal(t, http.StatusOK, status)
	mine, err := m.store.Orders().List(context.Background(), repositories.OrderFilter{SellerID: senseiID})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	senseiOrderID := sensei["id"].(string)
	roninOrderID := ronin["id"].(string)

	// Fulfilment is the seller's job.
	status, _ = m.call(t, http.MethodPatch, "/api/v1/orders/"+senseiOrderID+"/status", customerToken, map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = m.call(t, http.MethodPatch, "/api/v1/orders/"+roninOrderID+"/status", senseiToken, map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusForbidden, status)
	status, body = m.call(t, http.MethodPatch, "/api/v1/orders/"+senseiOrderID+"/status", senseiToken, map[string]string{"status": "teleported"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_input", body["kind"])

	// A seller edit carrying a stock value read before the sale is refused.
	status, body = m.call(t, http.MethodPut, "/api/v1/products/"+senseiProducts[1], senseiToken, map[string]interface{}{
		"name": "Belt", "price": "10.00", "stock": 5, "expected_stock": 5,
	})
	assert.Equal(t, http.StatusConflict, status, "body: %v", body)
	status, body = m.call(t, http.MethodPut, "/api/v1/products/"+senseiProducts[1], senseiToken, map[string]interface{}{
		"name": "Belt", "price": "10.00",
	})
	require.Equal(t, http.StatusOK, status, "body: %v", body)
	p, err = m.store.Products().GetByID(context.Background(), senseiProducts[1])
	require.NoError(t, err)
	assert.Equal(t, "Belt", p.Name)
	assert.Equal(t, 2, p.Stock)

	// Payment confirms every order of the checkout.
	gatewayID, _ := ronin["gateway_order_id"].(string)
	require.NotEmpty(t, gatewayID)
	assert.Equal(t, gatewayID, sensei["gateway_order_id"])
	payment := map[string]interface{}{
		"gateway_order_id": gatewayID,
		"payment_id":       "pay_gw_1",
		"signature":        services.SignPayment(testPaymentSecret, gatewayID, "pay_gw_1"),
		"order_ids":        []string{roninOrderID, senseiOrderID},
	}
	tampered := map[string]interface{}{}
	for k, v := range payment {
		tampered[k] = v
	}
	tampered["signature"] = strings.Repeat("0", 64)
	status, _ = m.call(t, http.MethodPost, "/api/v1/payments/verify", customerToken, tampered)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = m.call(t, http.MethodPost, "/api/v1/payments/verify", customerToken, payment)
	require.Equal(t, http.StatusOK, status, "body: %v", body)
	for _, raw := range body["orders"].([]interface{}) {
		o := raw.(map[string]interface{})
		assert.Equal(t, "paid", o["payment_status"])
		assert.Equal(t, "confirmed", o["status"])
	}

	// The same callback cannot settle the orders again.
	status, body = m.call(t, http.MethodPost, "/api/v1/payments/verify", customerToken, payment)
	assert.Equal(t, http.StatusConflict, status, "body: %v", body)

	status, body = m.call(t, http.MethodPatch, "/api/v1/orders/"+senseiOrderID+"/status", senseiToken,
		map[string]string{"status": "shipped", "tracking_number": "TRK-1"})
	require.Equal(t, http.StatusOK, status, "body: %v", body)
	updated := body["order"].(map[string]interface{})
	assert.Equal(t, "shipped", updated["status"])
	assert.Equal(t, "TRK-1", updated["tracking_number"])
	assert.Equal(t, "paid", updated["payment_status"])

	status, body = m.call(t, http.MethodGet, "/api/v1/orders/"+senseiOrderID, customerToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "shipped", body["status"])
	assert.True(t, decimal.RequireFromString("110").Equal(money(t, body["total_amount"])))
}

func TestOrderEventHandler(t *testing.T) {
	handler := orderEventHandler(zap.NewNop())

	env, err := events.New(events.TypeOrderCreated, "test", "order-1", events.OrderCreatedPayload{OrderID: "order-1", SellerID: "seller-1"})
	require.NoError(t, err)
	body, err := json.Marshal(env)
	require.NoError(t, err)
	assert.NoError(t, handler(amqp.Delivery{Body: body}))

	unknown, err := events.New("order.teleported", "test", "order-1", struct{}{})
	require.NoError(t, err)
	body, err = json.Marshal(unknown)
	require.NoError(t, err)
	assert.NoError(t, handler(amqp.Delivery{Body: body}))

	assert.Error(t, handler(amqp.Delivery{Body: []byte("not json")}))
}

func TestSeedDemoData(t *testing.T) {
	store := repositories.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, seedDemoData(ctx, store, zap.NewNop()))
	products, err := store.Products().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 3)

	// A second run leaves a populated database alone.
	require.NoError(t, seedDemoData(ctx, store, zap.NewNop()))
	products, err = store.Products().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 3)
}
