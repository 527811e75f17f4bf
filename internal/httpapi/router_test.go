package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"order-service/internal/apperror"
	"order-service/internal/logger"
	"order-service/internal/metrics"
	"order-service/internal/order"
	"order-service/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, input order.CreateOrderInput) (*order.Order, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context) ([]*order.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrderService) ListOrdersByUser(ctx context.Context, userID int64, opts order.ListOptions) (*order.Page, error) {
	args := m.Called(ctx, userID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Page), args.Error(1)
}

func (m *MockOrderService) ListOrdersByStatus(ctx context.Context, status order.OrderStatus) ([]*order.Order, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, id int64, status order.OrderStatus) (*order.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) CancelOrder(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

func newTestRouter(svc order.Service) http.Handler {
	return NewRouter(Config{
		Orders:     svc,
		Metrics:    metrics.New(prometheus.NewRegistry()),
		JWTSecret:  "test-secret",
		CORSOrigin: "*",
	})
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func sampleOrder() *order.Order {
	return &order.Order{
		ID:              42,
		UserID:          1,
		Status:          order.StatusPending,
		TotalAmount:     decimal.RequireFromString("45.48"),
		ShippingAddress: "A",
		BillingAddress:  "A",
		Items: []order.OrderItem{{
			ID: 1, OrderID: 42, ProductID: 10, ProductName: "Widget", Quantity: 2,
			UnitPrice:  decimal.RequireFromString("19.99"),
			TotalPrice: decimal.RequireFromString("39.98"),
		}},
	}
}

func TestCreateOrder(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("CreateOrder", mock.Anything, order.CreateOrderInput{
			UserID:          1,
			ShippingAddress: "A",
			Items:           []order.LineItemInput{{ProductID: 10, Quantity: 2}},
		}).Return(sampleOrder(), nil)

		w, env := do(t, newTestRouter(svc), http.MethodPost, "/api/orders",
			`{"userId":1,"shippingAddress":"A","orderItems":[{"productId":10,"quantity":2}]}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, env.Success)
		assert.Equal(t, "Order created successfully", env.Message)
		assert.NotEmpty(t, env.Timestamp)

		var res order.OrderResponse
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.Equal(t, int64(42), res.ID)
		assert.Equal(t, "45.48", res.TotalAmount)
		assert.Equal(t, "39.98", res.OrderItems[0].TotalPrice)
	})

	t.Run("UserFromToken", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": float64(5),
			"exp":     time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		svc := new(MockOrderService)
		svc.On("CreateOrder", mock.Anything, mock.MatchedBy(func(in order.CreateOrderInput) bool {
			return in.UserID == 5
		})).Return(sampleOrder(), nil)

		req := httptest.NewRequest(http.MethodPost, "/api/orders",
			strings.NewReader(`{"shippingAddress":"A","orderItems":[{"productId":10,"quantity":2}]}`))
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		newTestRouter(svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		svc := new(MockOrderService)

		w, env := do(t, newTestRouter(svc), http.MethodPost, "/api/orders", `{"userId":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, env.Success)
		svc.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	})

	t.Run("RejectedByCatalog", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("CreateOrder", mock.Anything, mock.Anything).
			Return(nil, apperror.BadRequest(order.ErrProductUnavailable, "Product with ID %d is not available", 10))

		w, env := do(t, newTestRouter(svc), http.MethodPost, "/api/orders",
			`{"userId":1,"shippingAddress":"A","orderItems":[{"productId":10,"quantity":2}]}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Product with ID 10 is not available", env.Message)
		assert.Contains(t, w.Body.String(), `"data":null`)
	})

	t.Run("InternalHidesCause", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("CreateOrder", mock.Anything, mock.Anything).
			Return(nil, errors.New("pq: relation \"orders\" does not exist"))

		w, env := do(t, newTestRouter(svc), http.MethodPost, "/api/orders",
			`{"userId":1,"shippingAddress":"A","orderItems":[{"productId":10,"quantity":2}]}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "internal server error", env.Message)
	})
}

func TestAccessLogRecordsCaller(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	restore := logger.Replace(zap.New(core))
	defer restore()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": float64(77),
		"role":    "admin",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	svc := new(MockOrderService)
	svc.On("GetOrder", mock.Anything, int64(42)).Return(sampleOrder(), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/42", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(77), fields["user_id"])
	assert.Equal(t, "admin", fields["role"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
}

func TestGetOrder(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("GetOrder", mock.Anything, int64(42)).Return(sampleOrder(), nil)

		w, env := do(t, newTestRouter(svc), http.MethodGet, "/api/orders/42", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Order retrieved successfully", env.Message)
	})

	t.Run("NotFound", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("GetOrder", mock.Anything, int64(9)).
			Return(nil, apperror.NotFound(order.ErrOrderNotFound, "Order not found with id : '%d'", 9))

		w, env := do(t, newTestRouter(svc), http.MethodGet, "/api/orders/9", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Order not found with id : '9'", env.Message)
	})

	t.Run("BadID", func(t *testing.T) {
		svc := new(MockOrderService)

		w, _ := do(t, newTestRouter(svc), http.MethodGet, "/api/orders/abc", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
	})
}

func TestListOrders(t *testing.T) {
	svc := new(MockOrderService)
	svc.On("ListOrders", mock.Anything).Return([]*order.Order{sampleOrder()}, nil)

	w, env := do(t, newTestRouter(svc), http.MethodGet, "/api/orders", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var res []order.OrderResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Len(t, res, 1)
}

func TestListOrdersByUser(t *testing.T) {
	t.Run("PassesQuery", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("ListOrdersByUser", mock.Anything, int64(1), order.ListOptions{
			Page: 2, Size: 5, SortBy: "totalAmount", SortDir: "asc",
		}).Return(&order.Page{Orders: []*order.Order{sampleOrder()}, Page: 2, Size: 5, TotalElements: 11}, nil)

		w, env := do(t, newTestRouter(svc), http.MethodGet,
			"/api/orders/user/1?page=2&size=5&sortBy=totalAmount&sortDir=asc", "")

		assert.Equal(t, http.StatusOK, w.Code)
		var page order.PageResponse
		require.NoError(t, json.Unmarshal(env.Data, &page))
		assert.Equal(t, 3, page.TotalPages)
		assert.True(t, page.Last)
	})

	t.Run("Defaults", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("ListOrdersByUser", mock.Anything, int64(1), order.ListOptions{Page: 0, Size: 10}).
			Return(&order.Page{Size: 10}, nil)

		w, _ := do(t, newTestRouter(svc), http.MethodGet, "/api/orders/user/1", "")

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("BadPage", func(t *testing.T) {
		svc := new(MockOrderService)

		w, _ := do(t, newTestRouter(svc), http.MethodGet, "/api/orders/user/1?page=x", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListOrdersByStatus(t *testing.T) {
	svc := new(MockOrderService)
	svc.On("ListOrdersByStatus", mock.Anything, order.StatusShipped).Return([]*order.Order{}, nil)

	w, _ := do(t, newTestRouter(svc), http.MethodGet, "/api/orders/status/shipped", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := do(t, newTestRouter(svc), http.MethodGet, "/api/orders/status/LOST", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid order status: LOST", env.Message)
}

func TestUpdateStatus(t *testing.T) {
	for _, method := range []string{http.MethodPatch, http.MethodPut} {
		t.Run(method, func(t *testing.T) {
			updated := sampleOrder()
			updated.Status = order.StatusConfirmed

			svc := new(MockOrderService)
			svc.On("UpdateStatus", mock.Anything, int64(42), order.StatusConfirmed).Return(updated, nil)

			w, env := do(t, newTestRouter(svc), method, "/api/orders/42/status?status=CONFIRMED", "")

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "Order status updated successfully", env.Message)
			assert.Contains(t, string(env.Data), `"status":"CONFIRMED"`)
		})
	}

	t.Run("MissingStatus", func(t *testing.T) {
		svc := new(MockOrderService)

		w, _ := do(t, newTestRouter(svc), http.MethodPatch, "/api/orders/42/status", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("IllegalTransition", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("UpdateStatus", mock.Anything, int64(42), order.StatusPending).
			Return(nil, apperror.BadRequest(order.ErrInvalidStatusTransition, "Cannot change order status from DELIVERED to PENDING"))

		w, env := do(t, newTestRouter(svc), http.MethodPut, "/api/orders/42/status?status=PENDING", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Cannot change order status from DELIVERED to PENDING", env.Message)
	})
}

func TestCancelOrder(t *testing.T) {
	t.Run("Cancelled", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("CancelOrder", mock.Anything, int64(42)).Return(nil)

		w, env := do(t, newTestRouter(svc), http.MethodPatch, "/api/orders/42/cancel", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Order cancelled successfully", env.Message)
	})

	t.Run("Rejected", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("CancelOrder", mock.Anything, int64(42)).
			Return(apperror.BadRequest(order.ErrInvalidStatusTransition, "Cannot cancel order with status: SHIPPED"))

		w, env := do(t, newTestRouter(svc), http.MethodPatch, "/api/orders/42/cancel", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Cannot cancel order with status: SHIPPED", env.Message)
	})
}

func TestInfrastructureRoutes(t *testing.T) {
	t.Run("Health", func(t *testing.T) {
		w, env := do(t, newTestRouter(new(MockOrderService)), http.MethodGet, "/health", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK", env.Message)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("HealthDown", func(t *testing.T) {
		h := NewRouter(Config{
			Orders: new(MockOrderService),
			Health: func(ctx context.Context) error { return errors.New("db down") },
		})

		w, env := do(t, h, http.MethodGet, "/health", "")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "DOWN", env.Message)
	})

	t.Run("Metrics", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		w := httptest.NewRecorder()
		newTestRouter(new(MockOrderService)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		w, env := do(t, newTestRouter(new(MockOrderService)), http.MethodGet, "/nope", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.False(t, env.Success)
	})

	t.Run("Preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
		w := httptest.NewRecorder()
		newTestRouter(new(MockOrderService)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("InvalidTokenRejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		w := httptest.NewRecorder()
		newTestRouter(new(MockOrderService)).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestWriteError_UnclassifiedIsInternal(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("boom"))

	var env utils.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", env.Message)
}
