package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/easyshop/storefront-backend/api/controllers"
	"github.com/easyshop/storefront-backend/api/middleware"
	"github.com/easyshop/storefront-backend/internal/auth"
	"github.com/easyshop/storefront-backend/internal/cart"
	"github.com/easyshop/storefront-backend/internal/catalog"
	checkoutsvc "github.com/easyshop/storefront-backend/internal/checkout"
	"github.com/easyshop/storefront-backend/internal/orders"
	"github.com/easyshop/storefront-backend/internal/profiles"
	"github.com/easyshop/storefront-backend/pkg/config"
	"github.com/easyshop/storefront-backend/pkg/db/models"
	"github.com/easyshop/storefront-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles everything the router exposes over HTTP.
type Services struct {
	Auth     auth.Service
	Catalog  catalog.Service
	Profiles profiles.Service
	Cart     cart.Service
	Checkout checkoutsvc.Service
	Orders   orders.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP pinger,
	redisP pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(svcs.Auth, logg))
		r.Post("/login", controllers.AuthLogin(svcs.Auth, logg))
	})

	// Catalog browsing is public; category management is admin-only.
	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", controllers.ListCategories(svcs.Catalog, logg))
		r.Get("/{categoryID}", controllers.GetCategory(svcs.Catalog, logg))
		r.Get("/{categoryID}/products", controllers.CategoryProducts(svcs.Catalog, logg))

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.Auth(cfg.JWT, logg),
				middleware.RequireRole(models.RoleAdmin, logg),
			)
			r.Post("/", controllers.CreateCategory(svcs.Catalog, logg))
			r.Put("/{categoryID}", controllers.UpdateCategory(svcs.Catalog, logg))
			r.Delete("/{categoryID}", controllers.DeleteCategory(svcs.Catalog, logg))
		})
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(svcs.Catalog, logg))
		r.Get("/{productID}", controllers.GetProduct(svcs.Catalog, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/api/profile", func(r chi.Router) {
			r.Get("/", controllers.GetProfile(svcs.Profiles, logg))
			r.Put("/", controllers.UpdateProfile(svcs.Profiles, logg))
		})

		r.Route("/api/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(svcs.Cart, logg))
			r.Delete("/", controllers.ClearCart(svcs.Cart, logg))
			r.Post("/products/{productID}", controllers.AddToCart(svcs.Cart, logg))
			r.Put("/products/{productID}", controllers.UpdateCartItem(svcs.Cart, logg))
		})

		r.Route("/api/orders", func(r chi.Router) {
			r.Post("/", controllers.Checkout(svcs.Checkout, logg))
			r.Get("/", controllers.ListOrders(svcs.Orders, logg))
			r.Get("/{orderID}", controllers.GetOrder(svcs.Orders, logg))
		})
	})

	return r
}
