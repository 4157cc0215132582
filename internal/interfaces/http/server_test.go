package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/catalog"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/payment"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/infrastructure/database/postgres"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/interfaces/http/routes"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/pkg/logger"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeProvider struct {
	event *payment.Event
}

func (p *fakeProvider) CreateSession(_ context.Context, req *payment.SessionRequest) (*payment.Session, error) {
	return &payment.Session{ID: "cs_test_1", URL: "https://pay.test/cs_test_1"}, nil
}

func (p *fakeProvider) ParseWebhook(_ []byte, signature string) (*payment.Event, error) {
	if signature != "valid" {
		return nil, payment.ErrInvalidSignature
	}
	return p.event, nil
}

type envelope struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t        *testing.T
	handler  http.Handler
	db       *gorm.DB
	deps     *routes.Dependencies
	provider *fakeProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := testutil.NewDB(t, postgres.Models()...)
	require.NoError(t, postgres.NewMigration(db).SeedInitialData())
	rdb, _ := testutil.NewRedis(t)

	cfg := testutil.Config()
	cfg.Server.MaxBodyBytes = 1 << 20
	cfg.Server.RequestTimeout = 10 * time.Second
	cfg.Security.CORSAllowedOrigins = []string{"http://localhost:5173"}
	log := logger.Discard()

	provider := &fakeProvider{}
	deps := routes.NewDependencies(db, rdb, cfg, log, provider)
	server := NewServer(cfg, db, rdb, deps, log)

	return &testServer{t: t, handler: server.Handler(), db: db, deps: deps, provider: provider}
}

func (s *testServer) do(method, path string, body interface{}, token string, headers ...string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, ok := body.([]byte)
		if !ok {
			var err error
			raw, err = json.Marshal(body)
			require.NoError(s.t, err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	var env envelope
	if json.Valid(w.Body.Bytes()) {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

type authData struct {
	User struct {
		ID      uint   `json:"id"`
		Email   string `json:"email"`
		IsAdmin bool   `json:"is_admin"`
	} `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (s *testServer) register(email string) authData {
	s.t.Helper()
	w, env := s.do(http.MethodPost, "/api/v1/auth/register", gin.H{
		"email":            email,
		"password":         "sunshine123",
		"confirm_password": "sunshine123",
		"first_name":       "Sam",
		"last_name":        "Grower",
	}, "")
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())

	var data authData
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	return data
}

func (s *testServer) login(email, password string) authData {
	s.t.Helper()
	w, env := s.do(http.MethodPost, "/api/v1/auth/login", gin.H{"email": email, "password": password}, "")
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	var data authData
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	return data
}

func TestHealthAndReadiness(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w, _ = s.do(http.MethodGet, "/ready", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"uptime"`)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	registered := s.register("sam@example.com")
	assert.Equal(t, "sam@example.com", registered.User.Email)
	assert.NotEmpty(t, registered.AccessToken)

	w, env := s.do(http.MethodPost, "/api/v1/auth/register", gin.H{
		"email":            "SAM@example.com",
		"password":         "sunshine123",
		"confirm_password": "sunshine123",
		"first_name":       "Sam",
		"last_name":        "Again",
	}, "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NotEmpty(t, env.Error)

	w, _ = s.do(http.MethodPost, "/api/v1/auth/login", gin.H{"email": "sam@example.com", "password": "wrong-pass1"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/auth/login", gin.H{"email": "not-an-email"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	session := s.login("sam@example.com", "sunshine123")

	w, _ = s.do(http.MethodGet, "/api/v1/auth/profile", nil, session.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sam@example.com")

	w, env = s.do(http.MethodPost, "/api/v1/auth/refresh", gin.H{"refresh_token": session.RefreshToken}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var refreshed authData
	require.NoError(t, json.Unmarshal(env.Data, &refreshed))
	assert.NotEmpty(t, refreshed.AccessToken)

	w, _ = s.do(http.MethodPost, "/api/v1/auth/logout", nil, refreshed.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/auth/profile", nil, refreshed.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPublicCatalogAndForms(t *testing.T) {
	s := newTestServer(t)

	hidden := catalog.Product{Name: "Retired Beets", Category: catalog.CategoryProduce, Price: 300}
	require.NoError(t, s.db.Create(&hidden).Error)

	w, env := s.do(http.MethodGet, "/api/v1/catalog/products?available=false", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var products []catalog.Product
	require.NoError(t, json.Unmarshal(env.Data, &products))
	assert.NotEmpty(t, products)
	for _, p := range products {
		assert.True(t, p.IsAvailable, p.Name)
	}

	w, _ = s.do(http.MethodGet, fmt.Sprintf("/api/v1/catalog/products/%d", hidden.ID), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/catalog/products/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(http.MethodGet, "/api/v1/catalog/box-sizes", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var sizes []catalog.BoxSize
	require.NoError(t, json.Unmarshal(env.Data, &sizes))
	assert.Len(t, sizes, 3)

	w, _ = s.do(http.MethodGet, "/api/v1/zip-codes/32501/check", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"served":true`)

	w, _ = s.do(http.MethodGet, "/api/v1/zip-codes/99999/check", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"served":false`)

	w, _ = s.do(http.MethodGet, "/api/v1/zip-codes/12ab/check", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/fish-alerts", gin.H{"name": "Pat"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodPost, "/api/v1/fish-alerts", gin.H{"name": "Pat", "email": "pat@example.com"}, "")
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestBagRequiresAuthAndTracksAddons(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(http.MethodGet, "/api/v1/bag", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	shopper := s.register("shopper@example.com")

	w, env := s.do(http.MethodGet, "/api/v1/bag", nil, shopper.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view struct {
		Bag struct {
			ID      uint   `json:"id"`
			BoxSize string `json:"box_size"`
		} `json:"bag"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.NotZero(t, view.Bag.ID)
	assert.Equal(t, "medium", view.Bag.BoxSize)

	var honey catalog.Product
	require.NoError(t, s.db.Where("name = ?", "Wildflower Honey").First(&honey).Error)

	path := fmt.Sprintf("/api/v1/bag/%d/items/%d", view.Bag.ID, honey.ID)
	w, _ = s.do(http.MethodPut, path, gin.H{"quantity": 2}, shopper.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"applied":true`)
	assert.Contains(t, w.Body.String(), `"name":"Wildflower Honey"`)

	other := s.register("other@example.com")
	w, _ = s.do(http.MethodPut, path, gin.H{"quantity": 1}, other.AccessToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscriptionWithoutRow(t *testing.T) {
	s := newTestServer(t)
	shopper := s.register("nosub@example.com")

	w, _ := s.do(http.MethodGet, "/api/v1/subscription", nil, shopper.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":null`)
	assert.Contains(t, w.Body.String(), `"subscribed":false`)

	w, _ = s.do(http.MethodPost, "/api/v1/subscription/pause", nil, shopper.AccessToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStripeWebhook(t *testing.T) {
	s := newTestServer(t)
	shopper := s.register("paid@example.com")

	w, _ := s.do(http.MethodPost, "/api/v1/webhooks/stripe", []byte(`{}`), "", "Stripe-Signature", "forged")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.provider.event = &payment.Event{
		ID:   "evt_1",
		Type: payment.EventSessionCompleted,
		Session: &payment.SessionResult{
			SessionID:     "cs_unknown_1",
			PaymentStatus: payment.PaymentStatusPaid,
			AmountTotal:   5000,
			Currency:      "usd",
			Email:         "paid@example.com",
			Metadata:      map[string]string{"user_id": fmt.Sprint(shopper.User.ID)},
		},
	}
	w, _ = s.do(http.MethodPost, "/api/v1/webhooks/stripe", []byte(`{}`), "", "Stripe-Signature", "valid")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"received":true}`, w.Body.String())

	// Replays are harmless
	w, _ = s.do(http.MethodPost, "/api/v1/webhooks/stripe", []byte(`{}`), "", "Stripe-Signature", "valid")
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(http.MethodGet, "/api/v1/orders/session/cs_unknown_1", nil, shopper.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var paid struct {
		PaymentStatus string `json:"payment_status"`
		TotalAmount   int64  `json:"total_amount"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &paid))
	assert.Equal(t, "paid", paid.PaymentStatus)
	assert.Equal(t, int64(5000), paid.TotalAmount)

	stranger := s.register("stranger@example.com")
	w, _ = s.do(http.MethodGet, "/api/v1/orders/session/cs_unknown_1", nil, stranger.AccessToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)

	shopper := s.register("shopper@example.com")
	w, _ := s.do(http.MethodGet, "/api/v1/admin/dashboard", nil, shopper.AccessToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	created, err := s.deps.Users.EnsureAdmin(context.Background(), "admin@farmbox.local", "admin12345")
	require.NoError(t, err)
	require.True(t, created)
	admin := s.login("admin@farmbox.local", "admin12345")
	require.True(t, admin.User.IsAdmin)

	w, _ = s.do(http.MethodGet, "/api/v1/admin/dashboard", nil, admin.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"display"`)

	w, _ = s.do(http.MethodGet, "/api/v1/admin/dashboard?week=2024-01-16", nil, admin.AccessToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := s.do(http.MethodPost, "/api/v1/admin/products", gin.H{
		"name":     "Duck Eggs",
		"category": "protein",
		"price":    900,
		"unit":     "half dozen",
	}, admin.AccessToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var product catalog.Product
	require.NoError(t, json.Unmarshal(env.Data, &product))
	assert.Equal(t, int64(900), product.Price)

	w, _ = s.do(http.MethodPost, "/api/v1/admin/products", gin.H{
		"name":     "Mystery",
		"category": "snacks",
		"price":    100,
	}, admin.AccessToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodGet, "/api/v1/admin/zip-codes/export", nil, admin.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), "32501")

	w, _ = s.do(http.MethodGet, "/api/v1/admin/packing-list/export?week=2024-01-15", nil, admin.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "packing_list_2024-01-15.csv")
}
