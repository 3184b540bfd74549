package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/helpnet/helpnet-backend/api/routes"
	"github.com/helpnet/helpnet-backend/internal/catalog"
	"github.com/helpnet/helpnet-backend/internal/deliveries"
	"github.com/helpnet/helpnet-backend/internal/notifications"
	"github.com/helpnet/helpnet-backend/internal/orders"
	"github.com/helpnet/helpnet-backend/internal/paymentmethods"
	"github.com/helpnet/helpnet-backend/internal/routing"
	"github.com/helpnet/helpnet-backend/internal/settlement"
	"github.com/helpnet/helpnet-backend/pkg/config"
	"github.com/helpnet/helpnet-backend/pkg/db"
	"github.com/helpnet/helpnet-backend/pkg/logger"
	"github.com/helpnet/helpnet-backend/pkg/metrics"
	"github.com/helpnet/helpnet-backend/pkg/migrate"
	"github.com/helpnet/helpnet-backend/pkg/outbox"
	"github.com/helpnet/helpnet-backend/pkg/redis"
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	catalogRepo := catalog.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	methodsRepo := paymentmethods.NewRepository(dbClient.DB())
	settlementRepo := settlement.NewRepository(dbClient.DB())
	routingRepo := routing.NewRepository(dbClient.DB())
	deliveriesRepo := deliveries.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	catalogService, err := catalog.NewService(catalogRepo, redisClient, cfg.Checkout.CatalogCacheTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}
	inventory := orders.NewInventory(catalogRepo, catalogService)

	methodsService, err := paymentmethods.NewService(methodsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment methods service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(
		ordersRepo,
		catalogRepo,
		methodsRepo,
		dbClient,
		outboxService,
		inventory,
		notificationsRepo,
		cfg.Checkout.PaymentWindow,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	routingService, err := routing.NewService(routingRepo, outboxService, notificationsRepo, cfg.Checkout.DeliveryLead, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create routing service", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(
		settlementRepo,
		dbClient,
		outboxService,
		routingService,
		inventory,
		notificationsRepo,
		metrics.NewSettlementMetrics(prometheus.DefaultRegisterer),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	deliveriesService, err := deliveries.NewService(deliveriesRepo, dbClient, outboxService, notificationsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create deliveries service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notificationsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			Catalog:        catalogService,
			PaymentMethods: methodsService,
			Orders:         ordersService,
			Settlement:     settlementService,
			Deliveries:     deliveriesService,
			Notifications:  notificationsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
