package main

import (
	"context"
	"net/http"
	"os"

	"github.com/easyshop/storefront-backend/api/routes"
	"github.com/easyshop/storefront-backend/internal/auth"
	"github.com/easyshop/storefront-backend/internal/cart"
	"github.com/easyshop/storefront-backend/internal/catalog"
	"github.com/easyshop/storefront-backend/internal/checkout"
	"github.com/easyshop/storefront-backend/internal/orders"
	"github.com/easyshop/storefront-backend/internal/profiles"
	"github.com/easyshop/storefront-backend/internal/users"
	"github.com/easyshop/storefront-backend/pkg/config"
	"github.com/easyshop/storefront-backend/pkg/db"
	"github.com/easyshop/storefront-backend/pkg/logger"
	"github.com/easyshop/storefront-backend/pkg/migrate"
	"github.com/easyshop/storefront-backend/pkg/redis"
	"github.com/joho/godotenv"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	svcs, err := buildServices(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, svcs),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Services, error) {
	conn := dbClient.DB()

	userRepo := users.NewRepository(conn)
	profileRepo := profiles.NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{
		DB:             dbClient,
		UserRepo:       userRepo,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Services{}, err
	}

	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		return routes.Services{}, err
	}

	profilesService, err := profiles.NewService(profileRepo)
	if err != nil {
		return routes.Services{}, err
	}

	cartService, err := cart.NewService(cartRepo, catalogRepo, logg)
	if err != nil {
		return routes.Services{}, err
	}

	ordersService, err := orders.NewService(orderRepo)
	if err != nil {
		return routes.Services{}, err
	}

	locks, err := checkout.NewUserLocks(redisClient, redisClient.CheckoutLockKey, cfg.Checkout.LockTTL)
	if err != nil {
		return routes.Services{}, err
	}
	shipping, err := cfg.Checkout.Shipping()
	if err != nil {
		return routes.Services{}, err
	}
	checkoutService, err := checkout.NewService(
		userRepo,
		profileRepo,
		cartService,
		cartRepo,
		orderRepo,
		dbClient,
		locks,
		shipping,
		logg,
	)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:     authService,
		Catalog:  catalogService,
		Profiles: profilesService,
		Cart:     cartService,
		Checkout: checkoutService,
		Orders:   ordersService,
	}, nil
}
