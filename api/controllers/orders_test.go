package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/easyshop/storefront-backend/api/middleware"
	"github.com/easyshop/storefront-backend/api/responses"
	internalorders "github.com/easyshop/storefront-backend/internal/orders"
	"github.com/easyshop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/easyshop/storefront-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

type stubCheckoutService struct {
	checkout func(ctx context.Context, userID int64) (*models.Order, error)
}

func (s *stubCheckoutService) Checkout(ctx context.Context, userID int64) (*models.Order, error) {
	return s.checkout(ctx, userID)
}

type stubOrdersService struct {
	get  func(ctx context.Context, userID, orderID int64) (*models.Order, error)
	list func(ctx context.Context, userID int64) ([]models.Order, error)
}

func (s *stubOrdersService) GetOrder(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	return s.get(ctx, userID, orderID)
}

func (s *stubOrdersService) ListOrders(ctx context.Context, userID int64) ([]models.Order, error) {
	return s.list(ctx, userID)
}

func authedRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	return req.WithContext(middleware.WithUser(req.Context(), 7, "alice", models.RoleUser))
}

func decodeErrorCode(t *testing.T, body *httptest.ResponseRecorder) string {
	t.Helper()

	var envelope responses.ErrorEnvelope
	if err := json.NewDecoder(body.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error.Code
}

func TestCheckoutReturnsCreatedOrder(t *testing.T) {
	svc := &stubCheckoutService{
		checkout: func(ctx context.Context, userID int64) (*models.Order, error) {
			if userID != 7 {
				t.Fatalf("unexpected user id %d", userID)
			}
			return &models.Order{
				ID:             31,
				UserID:         userID,
				Date:           time.Now().UTC(),
				ShippingAmount: decimal.RequireFromString("5.99"),
				TotalAmount:    decimal.RequireFromString("30.99"),
			}, nil
		},
	}

	resp := httptest.NewRecorder()
	Checkout(svc, nil)(resp, authedRequest(http.MethodPost, "/api/orders"))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	var envelope responses.SuccessEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode success envelope: %v", err)
	}
	order := envelope.Data.(map[string]any)
	if order["id"].(float64) != 31 {
		t.Fatalf("unexpected order payload %v", envelope.Data)
	}
}

func TestCheckoutRequiresAuthenticatedUser(t *testing.T) {
	svc := &stubCheckoutService{
		checkout: func(ctx context.Context, userID int64) (*models.Order, error) {
			t.Fatal("service must not be called without a user")
			return nil, nil
		},
	}

	resp := httptest.NewRecorder()
	Checkout(svc, nil)(resp, httptest.NewRequest(http.MethodPost, "/api/orders", nil))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCheckoutMapsEmptyCartTo400(t *testing.T) {
	svc := &stubCheckoutService{
		checkout: func(ctx context.Context, userID int64) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		},
	}

	resp := httptest.NewRecorder()
	Checkout(svc, nil)(resp, authedRequest(http.MethodPost, "/api/orders"))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if code := decodeErrorCode(t, resp); code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestCheckoutMapsCartChangedTo409(t *testing.T) {
	svc := &stubCheckoutService{
		checkout: func(ctx context.Context, userID int64) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart changed during checkout, please retry")
		},
	}

	resp := httptest.NewRecorder()
	Checkout(svc, nil)(resp, authedRequest(http.MethodPost, "/api/orders"))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if code := decodeErrorCode(t, resp); code != string(pkgerrors.CodeConflict) {
		t.Fatalf("unexpected code %s", code)
	}
}

func TestGetOrderMapsNotFound(t *testing.T) {
	svc := &stubOrdersService{
		get: func(ctx context.Context, userID, orderID int64) (*models.Order, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		},
	}

	router := chi.NewRouter()
	router.Get("/api/orders/{orderID}", GetOrder(svc, nil))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/orders/99"))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestGetOrderRejectsBadID(t *testing.T) {
	svc := &stubOrdersService{
		get: func(ctx context.Context, userID, orderID int64) (*models.Order, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	router := chi.NewRouter()
	router.Get("/api/orders/{orderID}", GetOrder(svc, nil))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, authedRequest(http.MethodGet, "/api/orders/abc"))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListOrdersReturnsHistory(t *testing.T) {
	svc := &stubOrdersService{
		list: func(ctx context.Context, userID int64) ([]models.Order, error) {
			return []models.Order{{ID: 2, UserID: userID}, {ID: 1, UserID: userID}}, nil
		},
	}

	resp := httptest.NewRecorder()
	ListOrders(svc, nil)(resp, authedRequest(http.MethodGet, "/api/orders"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope responses.SuccessEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode success envelope: %v", err)
	}
	if history := envelope.Data.([]any); len(history) != 2 {
		t.Fatalf("expected 2 orders got %d", len(history))
	}
}

var _ internalorders.Service = (*stubOrdersService)(nil)
