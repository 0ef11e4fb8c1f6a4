package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loomline/storefront-backend/api"
	"github.com/loomline/storefront-backend/api/routes"
	"github.com/loomline/storefront-backend/internal/analytics"
	"github.com/loomline/storefront-backend/internal/auth"
	"github.com/loomline/storefront-backend/internal/cart"
	"github.com/loomline/storefront-backend/internal/categories"
	"github.com/loomline/storefront-backend/internal/checkout"
	"github.com/loomline/storefront-backend/internal/orders"
	"github.com/loomline/storefront-backend/internal/products"
	"github.com/loomline/storefront-backend/internal/uploads"
	"github.com/loomline/storefront-backend/internal/users"
	squarewebhook "github.com/loomline/storefront-backend/internal/webhooks/square"
	"github.com/loomline/storefront-backend/pkg/auth/session"
	"github.com/loomline/storefront-backend/pkg/bigquery"
	"github.com/loomline/storefront-backend/pkg/config"
	"github.com/loomline/storefront-backend/pkg/db"
	"github.com/loomline/storefront-backend/pkg/logger"
	"github.com/loomline/storefront-backend/pkg/metrics"
	"github.com/loomline/storefront-backend/pkg/migrate"
	"github.com/loomline/storefront-backend/pkg/outbox"
	"github.com/loomline/storefront-backend/pkg/redis"
	"github.com/loomline/storefront-backend/pkg/square"
	"github.com/loomline/storefront-backend/pkg/storage"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.Session)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	gdb := dbClient.DB()
	productsRepo := products.NewRepository(gdb)
	categoriesRepo := categories.NewRepository(gdb)
	cartRepo := cart.NewRepository(gdb)
	ordersRepo := orders.NewRepository(gdb)
	usersRepo := users.NewRepository(gdb)
	uploadsRepo := uploads.NewRepository(gdb)

	outboxService := outbox.NewService(outbox.NewRepository(gdb), logg)

	storageDriver, err := storage.New(ctx, cfg.Uploads, cfg.MinIO, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap upload storage", err)
		os.Exit(1)
	}

	uploadsService, err := uploads.NewService(uploadsRepo, storageDriver, cfg.Uploads, logg)
	if err != nil {
		logg.Error(ctx, "failed to create uploads service", err)
		os.Exit(1)
	}

	productsService, err := products.NewService(productsRepo, dbClient, categoriesRepo, uploadsRepo)
	if err != nil {
		logg.Error(ctx, "failed to create products service", err)
		os.Exit(1)
	}

	categoriesService, err := categories.NewService(categoriesRepo, productsRepo, dbClient)
	if err != nil {
		logg.Error(ctx, "failed to create categories service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cartRepo, productsRepo, dbClient)
	if err != nil {
		logg.Error(ctx, "failed to create cart service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(dbClient, cartRepo, productsRepo, ordersRepo, outboxService, redisClient)
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	var squareClient *square.Client
	if cfg.Square.AccessToken != "" {
		squareClient, err = square.NewClient(ctx, cfg.Square, logg)
		if err != nil {
			logg.Error(ctx, "failed to create square client", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(ctx, "square access token not set, card payments disabled")
	}

	var ordersService orders.Service
	if squareClient != nil {
		ordersService, err = orders.NewService(ordersRepo, productsRepo, dbClient, outboxService, squareClient)
	} else {
		ordersService, err = orders.NewService(ordersRepo, productsRepo, dbClient, outboxService, nil)
	}
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(usersRepo)
	if err != nil {
		logg.Error(ctx, "failed to create users service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		Limiter:        redisClient,
		PasswordConfig: cfg.Password,
		JWTConfig:      cfg.JWT,
		RateLimits:     cfg.AuthRateLimit,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	var analyticsService analytics.Service
	if cfg.GCP.ProjectID != "" {
		bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
		if err != nil {
			logg.Error(ctx, "failed to create bigquery client", err)
			os.Exit(1)
		}
		defer func() {
			if err := bqClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing bigquery client", err)
			}
		}()
		analyticsService, err = analytics.NewService(bqClient, cfg.GCP.ProjectID, cfg.BigQuery.Dataset, cfg.BigQuery.OrderFactsTable)
		if err != nil {
			logg.Error(ctx, "failed to create analytics service", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(ctx, "gcp project not set, sales reports disabled")
	}

	webhookService, err := squarewebhook.NewService(ordersService, logg)
	if err != nil {
		logg.Error(ctx, "failed to create square webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := squarewebhook.NewIdempotencyGuard(redisClient, cfg.Orders.IdempotencyTTL, "square-webhook")
	if err != nil {
		logg.Error(ctx, "failed to create square webhook guard", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)

	handler := routes.NewRouter(routes.RouterParams{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		HTTPMetrics: httpMetrics,
		Gatherer:    registry,

		Sessions: sessionManager,
		UserRepo: usersRepo,

		Products:   productsService,
		Categories: categoriesService,
		Cart:       cartService,
		Checkout:   checkoutService,
		Orders:     ordersService,
		Users:      usersService,
		Auth:       authService,
		Uploads:    uploadsService,
		Analytics:  analyticsService,

		SquareClient:       squareClient,
		SquareWebhook:      webhookService,
		SquareWebhookGuard: webhookGuard,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(runCtx, "starting api server")

	if err := api.NewServer(addr, handler, logg).Run(runCtx); err != nil {
		logg.Error(runCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
