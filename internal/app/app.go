// Package app wires configuration, stores, the payment protocol, the agent,
// and the HTTP server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/shopagent/internal/agent"
	"github.com/xenking/shopagent/internal/domain/auth"
	"github.com/xenking/shopagent/internal/domain/cart"
	"github.com/xenking/shopagent/internal/domain/checkout"
	"github.com/xenking/shopagent/internal/domain/order"
	"github.com/xenking/shopagent/internal/domain/payment"
	"github.com/xenking/shopagent/internal/domain/pricing"
	"github.com/xenking/shopagent/internal/domain/product"
	"github.com/xenking/shopagent/internal/domain/profile"
	"github.com/xenking/shopagent/internal/handler"
	"github.com/xenking/shopagent/internal/llm"
	"github.com/xenking/shopagent/internal/memstore"
	"github.com/xenking/shopagent/internal/repository"
	"github.com/xenking/shopagent/internal/stripe"
	"github.com/xenking/shopagent/pkg/health"
	"github.com/xenking/shopagent/pkg/httpmiddleware"
)

// stores bundles every persistence dependency behind domain interfaces so
// the rest of the wiring does not care whether PostgreSQL or memory backs it.
type stores struct {
	products  product.Repository
	carts     cart.Repository
	profiles  profile.Repository
	orders    order.Repository
	customers payment.CustomerStore
	previews  checkout.PreviewStore
	apikeys   auth.Repository
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, _ *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	healthSvc := health.New()

	st, cleanup, err := buildStores(ctx, cfg, healthSvc)
	if err != nil {
		return err
	}
	defer cleanup()

	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// External clients.
	completions := llm.NewClient(llm.ClientConfig{
		BaseURL:   cfg.LLM.BaseURL,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
	})
	gateway := stripe.NewClient(stripe.ClientConfig{
		BaseURL: cfg.Payment.BaseURL,
		APIKey:  cfg.Payment.APIKey,
	})

	// Domain services.
	protocol := payment.NewProtocol(gateway, st.customers)
	finalizer := checkout.NewFinalizer(
		st.carts, st.profiles, st.orders, protocol, st.previews,
		pricing.Strategies{}, lg.Named("checkout"),
	)
	executor := agent.NewExecutor(st.products, st.carts, finalizer, lg.Named("tools"))
	orchestrator := agent.NewOrchestrator(completions, executor, lg.Named("agent"))

	// HTTP surface.
	h := handler.NewHandler(orchestrator, protocol, lg.Named("http"))

	apiMux := http.NewServeMux()
	h.Register(apiMux)
	authenticated := httpmiddleware.Wrap(apiMux,
		handler.APIKeyAuth(st.apikeys, []byte(cfg.APIKeyPepper)),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/api/", authenticated)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", "X-API-Key"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// buildStores returns PostgreSQL-backed stores when a database URL is
// configured, in-memory stores otherwise. The cleanup closes the pool.
func buildStores(ctx context.Context, cfg *Config, healthSvc *health.Health) (*stores, func(), error) {
	if cfg.DatabaseURL == "" {
		zctx.From(ctx).Warn("No database configured, using in-memory stores")

		apikeys := memstore.NewAPIKeyStore()
		apikeys.Add(auth.APIKeyInfo{
			ID:      "dev",
			KeyHash: auth.HashKey([]byte(cfg.APIKeyPepper), cfg.DevAPIKey),
			Name:    "Development key",
		})

		return &stores{
			products:  memstore.NewProductRepository(demoCatalog()),
			carts:     memstore.NewCartRepository(),
			profiles:  memstore.NewProfileRepository(),
			orders:    memstore.NewOrderRepository(),
			customers: memstore.NewCustomerStore(),
			previews:  memstore.NewPreviewStore(),
			apikeys:   apikeys,
		}, func() {}, nil
	}

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "create db pool")
	}

	if err := repository.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, errors.Wrap(err, "run migrations")
	}

	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})

	return &stores{
		products:  repository.NewProductRepository(pool),
		carts:     repository.NewCartRepository(pool),
		profiles:  repository.NewProfileRepository(pool),
		orders:    repository.NewOrderRepository(pool),
		customers: repository.NewCustomerRepository(pool),
		previews:  repository.NewPreviewRepository(pool),
		apikeys:   repository.NewAPIKeyRepository(pool),
	}, pool.Close, nil
}

// demoCatalog is the catalog served in memory-store mode.
func demoCatalog() []product.Product {
	return []product.Product{
		{ID: "wbl-001", Name: "Stainless Water Bottle", Description: "Insulated 750ml bottle", Price: decimal.RequireFromString("24.00"), Category: "outdoors"},
		{ID: "mug-002", Name: "Ceramic Mug", Description: "350ml matte ceramic mug", Price: decimal.RequireFromString("12.50"), Category: "kitchen"},
		{ID: "tsh-003", Name: "Organic Cotton T-Shirt", Description: "Unisex crew neck, navy", Price: decimal.RequireFromString("19.90"), Category: "apparel"},
		{ID: "bkp-004", Name: "Daypack Backpack", Description: "20L water-resistant daypack", Price: decimal.RequireFromString("54.00"), Category: "outdoors"},
		{ID: "nbk-005", Name: "Dotted Notebook", Description: "A5 dotted notebook, 180 pages", Price: decimal.RequireFromString("9.75"), Category: "stationery"},
	}
}
