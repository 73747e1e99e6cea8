package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tmarchant/vesper/internal"
	"github.com/tmarchant/vesper/internal/cart"
	"github.com/tmarchant/vesper/internal/checkout"
	"github.com/tmarchant/vesper/internal/events"
	"github.com/tmarchant/vesper/internal/handler"
	"github.com/tmarchant/vesper/internal/middleware"
	"github.com/tmarchant/vesper/internal/order"
	"github.com/tmarchant/vesper/internal/payment"
	"github.com/tmarchant/vesper/internal/postgres"
	"github.com/tmarchant/vesper/internal/pricing"
	"github.com/tmarchant/vesper/internal/router"
	"github.com/tmarchant/vesper/internal/telemetry"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	pool, err := postgres.NewPool(ctx, cfg.DatabaseUrl)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Event publisher: NATS when configured, otherwise events are skipped
	var pub events.Publisher
	if cfg.NatsURL != "" {
		logger.Info("Connecting to NATS...", "url", cfg.NatsURL)
		natsPub, err := events.NewNatsPublisher(cfg.NatsURL, "vesper")
		if err != nil {
			return fmt.Errorf("nats connection failed: %w", err)
		}
		defer natsPub.Close()
		pub = natsPub
	} else {
		logger.Warn("NATS_URL not set, order events will not be published")
	}

	// Metrics
	businessMetrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	httpMetrics := middleware.NewMetrics(prometheus.DefaultRegisterer, "vesper")

	// Pricing and catalog
	engine := pricing.NewEngine(pricing.DefaultRegions(), cfg.Currency)
	catalogStore := postgres.NewCatalog(pool)

	// Carts: one store per shopper, persisted in memory for now. The
	// persistence seam is where a Redis or Postgres backend plugs in.
	carts := cart.NewManager(engine, func(key string) cart.Persistence {
		return cart.NewMemoryPersistence()
	})
	validator := cart.NewValidator(catalogStore)

	// Orders
	orderStore := postgres.NewOrderStore(pool)
	lifecycle := order.NewLifecycle(orderStore, pub, logger).WithMetrics(businessMetrics)
	assembler := order.NewAssembler(engine)

	// Payment
	logger.Info("Initializing Stripe payment provider...")
	provider := payment.NewStripeProvider(cfg.Stripe.SecretKey)
	coordinator := payment.NewCoordinator(provider, orderStore, pub, logger)

	// Checkout
	checkoutService := checkout.NewService(checkout.Deps{
		Validator:   validator,
		Assembler:   assembler,
		Orders:      orderStore,
		Lifecycle:   lifecycle,
		Coordinator: coordinator,
		Sessions:    checkout.NewMemorySessionStore(),
		Metrics:     businessMetrics,
		Logger:      logger,
		Policy:      checkout.Policy{BlockOnWarnings: cfg.Checkout.BlockOnWarnings},
	})

	// Router
	r := router.New(
		middleware.RequestID,
		middleware.WithRequestLogger(logger),
		httpMetrics.Middleware,
	)

	h := handler.New(carts, catalogStore, validator, checkoutService, orderStore, lifecycle, logger)
	h.Routes(r)

	// Metrics endpoint (protect via firewall in production)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		httpMetrics.Handler().ServeHTTP(w, req)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("Starting server", "address", addr, "env", cfg.Env)

	if err := http.ListenAndServe(addr, r); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
