package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-pricing/internal/domain/discount"
	"github.com/xenking/kart-pricing/internal/domain/order"
	"github.com/xenking/kart-pricing/internal/domain/pricing"
	"github.com/xenking/kart-pricing/internal/handler"
	"github.com/xenking/kart-pricing/pkg/health"
	"github.com/xenking/kart-pricing/pkg/httpmiddleware"
)

const serviceName = "kart-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	st, err := openStores(ctx, lg, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// Health check service.
	healthSvc := health.New()
	for name, check := range st.checks {
		healthSvc.AddReadinessCheck(name, 5*time.Second, check)
	}
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	routes, err := newRoutes(cfg, st, m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return err
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           routes.handler(ctx, cfg, healthSvc, m.TracerProvider(), m.MeterProvider()),
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

// routes holds the API handlers built on top of the stores.
type routes struct {
	api      *handler.Handler
	security *handler.SecurityHandler
}

func newRoutes(cfg *Config, st *stores, tp trace.TracerProvider, mp metric.MeterProvider) (*routes, error) {
	pricingService, err := pricing.NewService(st.products, st.rules, st.carts, mp)
	if err != nil {
		return nil, errors.Wrap(err, "create pricing service")
	}
	orderService := order.NewService(pricingService, st.orders, tp)

	return &routes{
		api: handler.NewHandler(
			handler.HandlerConfig{ImageBaseURL: cfg.ImageBaseURL},
			st.products,
			pricingService,
			orderService,
			discount.NewAdmin(st.rules),
		),
		security: handler.NewSecurityHandler(st.apikeys, []byte(cfg.APIKeyPepper)),
	}, nil
}

// handler wraps the router with the outer middleware stack. Recovery is
// outermost so it also covers the other middlewares.
func (rt *routes) handler(
	ctx context.Context,
	cfg *Config,
	healthSvc *health.Health,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) http.Handler {
	return httpmiddleware.Wrap(rt.router(healthSvc),
		httpmiddleware.Recovery(),
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORS.Origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "api_key"},
			ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
			Skip:   httpmiddleware.SkipPaths("/livez", "/readyz"),
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.Instrument(serviceName, tp, mp),
	)
}

// router serves the health probes and the API on one chi router.
func (rt *routes) router(healthSvc *health.Health) http.Handler {
	r := chi.NewRouter()
	r.Use(httpmiddleware.LogRequests())
	r.Get("/livez", healthSvc.LiveEndpoint)
	r.Get("/readyz", healthSvc.ReadyEndpoint)
	rt.api.Mount(r, rt.security)
	return r
}
