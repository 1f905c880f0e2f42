package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"go-stay-portal/internal/config"
	"go-stay-portal/internal/database"
	"go-stay-portal/internal/event"
	"go-stay-portal/internal/handler"
	"go-stay-portal/internal/logger"
	"go-stay-portal/internal/middleware"
	"go-stay-portal/internal/payment"
	"go-stay-portal/internal/pricing"
	"go-stay-portal/internal/repository"
	"go-stay-portal/internal/router"
	"go-stay-portal/internal/service"
	"go-stay-portal/internal/storage"
	"go-stay-portal/internal/transport"
	"go-stay-portal/internal/websocket"
)

// sessionRetention bounds how long a persisted session and its cookie live
// without a visit. The token expiry usually ends it sooner.
const sessionRetention = 30 * 24 * time.Hour

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.SetDefault(logger.New(os.Stdout, cfg.LogFormat, cfg.LogLevel))
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	a := &App{}
	ctx, cancel := context.WithCancel(context.Background())
	a.cleanupFuncs = append(a.cleanupFuncs, cancel)

	kv, err := a.openSessionBackend(ctx, cfg)
	if err != nil {
		a.cleanup()
		return nil, err
	}

	upstream, err := transport.New(transport.Options{
		BaseURL:    cfg.UpstreamBaseURL,
		HTTPClient: &http.Client{Timeout: cfg.UpstreamTimeout},
		MaxRetries: cfg.UpstreamMaxRetries,
		BaseDelay:  cfg.UpstreamRetryBaseDelay,
		MaxDelay:   cfg.UpstreamRetryMaxDelay,
		RPS:        cfg.UpstreamRPS,
	})
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("failed to initialize upstream client: %w", err)
	}
	authorize := func(tokens transport.TokenSource) service.Upstream { return upstream.WithTokens(tokens) }

	bus := event.NewBus()
	if cfg.NATSURL != "" {
		bridge, err := event.ConnectNATS(cfg.NATSURL, cfg.NATSSubjectPrefix, slog.Default())
		if err != nil {
			a.cleanup()
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		go bridge.Run(ctx, bus)
		a.cleanupFuncs = append(a.cleanupFuncs, bridge.Close)
		slog.Info("forwarding booking events to NATS", "prefix", cfg.NATSSubjectPrefix)
	}

	hub := websocket.NewHub(bus, cfg.CORSOrigins)
	go hub.Run(ctx)

	rules := pricing.Rules{TaxRate: cfg.TaxRate, ServiceFee: cfg.ServiceFee}

	catalog := service.NewCatalogService(upstream, rules, cfg.ListingsPollInterval, bus)
	catalog.Start()
	a.cleanupFuncs = append(a.cleanupFuncs, catalog.Stop)

	dashboard := service.NewDashboardService(authorize, catalog, bus, service.DashboardIntervals{
		Stats:         cfg.DashboardPollInterval,
		Notifications: cfg.NotificationsPollInterval,
		Listings:      cfg.ListingsPollInterval,
	})
	a.cleanupFuncs = append(a.cleanupFuncs, dashboard.Stop)

	bookings := service.NewBookingService(catalog, newPaymentRouter(cfg), bus, service.BookingOptions{
		RequireGuestFields: cfg.RequireGuestFields,
		Rules:              rules,
		Currency:           cfg.PaymentCurrency,
	})

	tracker := service.NewIdleTracker(cfg.SessionIdleTTL, dashboard.Forget, bookings.Forget)
	go tracker.StartSweepTicker(ctx, cfg.SessionIdleTTL/4)

	authService := service.NewAuthService(upstream, bus, tracker.Forget)

	sessions := middleware.NewSessionMiddleware(kv, middleware.SessionOptions{
		CookieName: cfg.SessionCookieName,
		Secure:     cfg.CookieSecure,
		MaxAge:     sessionRetention,
		Touch:      tracker.Touch,
	})

	appRouter := router.New(cfg, sessions, router.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Hotel:     handler.NewHotelHandler(catalog),
		Dashboard: handler.NewDashboardHandler(dashboard),
		Booking:   handler.NewBookingHandler(bookings),
		LiveFeed:  handler.NewLiveFeedHandler(hub),
		Docs:      handler.NewDocsHandler(os.Getenv("OPENAPI_SPEC_PATH")),
	})

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return a, nil
}

func (a *App) openSessionBackend(ctx context.Context, cfg *config.Config) (storage.KV, error) {
	switch cfg.SessionBackend {
	case config.SessionBackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
		store, err := storage.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite session store: %w", err)
		}
		a.cleanupFuncs = append(a.cleanupFuncs, func() { _ = store.Close() })
		slog.Info("session backend ready", "backend", cfg.SessionBackend, "path", cfg.SQLitePath)
		return store, nil

	case config.SessionBackendPostgres:
		slog.Info("connecting to PostgreSQL")
		db, err := database.New(ctx, database.Options{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.cleanupFuncs = append(a.cleanupFuncs, db.Close)

		if err := db.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}

		repo := repository.NewKVRepository(db.Pool, sessionRetention)
		go startExpiryTicker(ctx, repo)
		slog.Info("session backend ready", "backend", cfg.SessionBackend)
		return repo, nil

	case config.SessionBackendRedis:
		store, err := storage.OpenRedis(ctx, cfg.RedisURL, sessionRetention)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.cleanupFuncs = append(a.cleanupFuncs, func() { _ = store.Close() })
		slog.Info("session backend ready", "backend", cfg.SessionBackend)
		return store, nil

	default:
		slog.Warn("sessions are kept in memory and lost on restart")
		return storage.NewMemory(), nil
	}
}

// newPaymentRouter charges cards through Stripe when a key is configured and
// through the simulator otherwise.
func newPaymentRouter(cfg *config.Config) *payment.Router {
	var card payment.Processor = payment.NewSimulated(cfg.SimulatedPaymentDelay)
	if cfg.StripeSecretKey != "" {
		card = payment.NewStripe(cfg.StripeSecretKey)
	} else {
		slog.Warn("STRIPE_SECRET_KEY not set, card payments are simulated")
	}

	return payment.NewRouter().
		Handle(payment.MethodCard, card).
		Handle(payment.MethodBank, payment.NewBankTransfer(payment.BankAccount{
			BankName:      cfg.BankName,
			AccountName:   cfg.BankAccountName,
			AccountNumber: cfg.BankAccountNumber,
		}))
}

// startExpiryTicker removes expired session rows every hour until ctx is
// cancelled.
func startExpiryTicker(ctx context.Context, repo *repository.KVRepository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.CleanExpired(ctx)
			if err != nil {
				slog.Warn("session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expired sessions removed", "count", n)
			}
		}
	}
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cleanup()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	a.cleanup()
	slog.Info("server stopped")
	return nil
}

// cleanup runs in reverse order of registration.
func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
}
