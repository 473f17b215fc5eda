package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/posterlane/api/internal/catalog"
	"github.com/posterlane/api/internal/handlers"
	"github.com/posterlane/api/internal/platform/config"
	"github.com/posterlane/api/internal/platform/observability"
	"github.com/posterlane/api/internal/repositories/httpapi"
	"github.com/posterlane/api/internal/repositories/sqlite"
	"github.com/posterlane/api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("invalid configuration", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	if dir := filepath.Dir(cfg.Storage.CartDBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Fatal("failed to create cart db directory", zap.String("dir", dir), zap.Error(err))
		}
	}
	cartDB, err := sqlite.Open(cfg.Storage.CartDBPath)
	if err != nil {
		logger.Fatal("failed to open cart db", zap.String("path", cfg.Storage.CartDBPath), zap.Error(err))
	}
	defer func() {
		if err := cartDB.Close(); err != nil {
			logger.Warn("cart db close error", zap.Error(err))
		}
	}()

	upstream, err := httpapi.NewClient(cfg.Upstream.BaseURL,
		httpapi.WithHTTPClient(&http.Client{Timeout: cfg.Upstream.Timeout}),
		httpapi.WithLogger(logger.Named("upstream")),
	)
	if err != nil {
		logger.Fatal("failed to initialise upstream client", zap.Error(err))
	}

	rulesStore, err := services.NewDiscountRulesStore(services.DiscountRulesStoreDeps{
		Client: upstream,
		Logger: observability.ServiceLogFunc(logger.Named("discounts")),
	})
	if err != nil {
		logger.Fatal("failed to initialise discount rules store", zap.Error(err))
	}
	// The engine quotes without discounts until the first successful load, so
	// a briefly unreachable authority must not block startup.
	loadCtx, cancelLoad := context.WithTimeout(ctx, cfg.Upstream.Timeout)
	if err := rulesStore.Load(loadCtx); err != nil {
		logger.Warn("initial discount rule load failed", zap.Error(err))
	}
	cancelLoad()

	policy, err := services.LoadOrderPolicy(cfg.Policy.File)
	if err != nil {
		logger.Fatal("failed to load order policy", zap.String("file", cfg.Policy.File), zap.Error(err))
	}

	pricingEngine, err := services.NewPricingEngine(services.PricingEngineDeps{
		Rules:  rulesStore,
		Logger: observability.ServiceLogFunc(logger.Named("pricing")),
	})
	if err != nil {
		logger.Fatal("failed to initialise pricing engine", zap.Error(err))
	}

	cartStore, err := services.NewCartStore(ctx, services.CartStoreDeps{
		Repository: cartDB,
		Catalog:    catalog.Default(),
		Clock:      time.Now,
		Logger:     observability.ServiceLogFunc(logger.Named("cart")),
	})
	if err != nil {
		logger.Fatal("failed to initialise cart store", zap.Error(err))
	}

	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Cart:      cartStore,
		Pricer:    pricingEngine,
		Policy:    policy,
		Submitter: upstream,
		Clock:     time.Now,
		Logger:    observability.ServiceLogFunc(logger.Named("checkout")),
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}

	healthHandlers := handlers.NewHealthHandlers(map[string]handlers.ReadinessCheck{
		"cart_db": func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, 1500*time.Millisecond)
			defer cancel()
			return cartDB.Ping(pingCtx)
		},
	})

	httpLogger := logger.Named("http")
	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(httpLogger),
			observability.TraceMiddleware(),
			observability.RecoveryMiddleware(httpLogger),
			observability.RequestLoggerMiddleware(),
		),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithCartRoutes(handlers.NewCartHandlers(cartStore, pricingEngine, policy).Routes),
		handlers.WithCheckoutRoutes(handlers.NewCheckoutHandlers(checkoutService, cartStore).Routes),
		handlers.WithDiscountRoutes(handlers.NewDiscountHandlers(rulesStore).Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := httpLogger.With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("posterlane api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
