package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/easyshop/storefront-backend/internal/auth"
	"github.com/easyshop/storefront-backend/internal/cart"
	"github.com/easyshop/storefront-backend/internal/catalog"
	"github.com/easyshop/storefront-backend/internal/orders"
	"github.com/easyshop/storefront-backend/internal/profiles"
	pkgAuth "github.com/easyshop/storefront-backend/pkg/auth"
	"github.com/easyshop/storefront-backend/pkg/config"
	"github.com/easyshop/storefront-backend/pkg/db/models"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*auth.UserSummary, error) {
	return nil, fmt.Errorf("not implemented")
}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

type stubCatalogService struct{ catalog.Service }

func (stubCatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return []models.Category{}, nil
}

type stubCartService struct{ cart.Service }

func (stubCartService) GetCart(ctx context.Context, userID int64) (*cart.Cart, error) {
	return &cart.Cart{UserID: userID}, nil
}

type stubCheckoutService struct{}

func (stubCheckoutService) Checkout(ctx context.Context, userID int64) (*models.Order, error) {
	return &models.Order{ID: 1, UserID: userID}, nil
}

type stubOrdersService struct{ orders.Service }

type stubProfilesService struct{ profiles.Service }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "easyshop", ExpirationMinutes: 10},
	}
}

func testRouter() http.Handler {
	return NewRouter(testConfig(), nil, stubPinger{}, stubPinger{}, Services{
		Auth:     stubAuthService{},
		Catalog:  stubCatalogService{},
		Profiles: stubProfilesService{},
		Cart:     stubCartService{},
		Checkout: stubCheckoutService{},
		Orders:   stubOrdersService{},
	})
}

func TestHealthLiveIsPublic(t *testing.T) {
	resp := httptest.NewRecorder()
	testRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestHealthReadyFailsWhenStoreDown(t *testing.T) {
	router := NewRouter(testConfig(), nil, stubPinger{err: fmt.Errorf("down")}, stubPinger{}, Services{
		Auth:     stubAuthService{},
		Catalog:  stubCatalogService{},
		Profiles: stubProfilesService{},
		Cart:     stubCartService{},
		Checkout: stubCheckoutService{},
		Orders:   stubOrdersService{},
	})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestCatalogIsPublic(t *testing.T) {
	resp := httptest.NewRecorder()
	testRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCartRequiresAuth(t *testing.T) {
	resp := httptest.NewRecorder()
	testRouter().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCheckoutWithValidToken(t *testing.T) {
	cfg := testConfig()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   7,
		Username: "alice",
		Role:     models.RoleUser,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	testRouter().ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
}

func TestCategoryMutationRequiresAdmin(t *testing.T) {
	cfg := testConfig()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   7,
		Username: "alice",
		Role:     models.RoleUser,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/categories/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	testRouter().ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}
