package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/matheusmosca/bookverse/internal/auth"
	"github.com/matheusmosca/bookverse/internal/cart"
	"github.com/matheusmosca/bookverse/internal/catalog"
	"github.com/matheusmosca/bookverse/internal/cleanup"
	"github.com/matheusmosca/bookverse/internal/config"
	"github.com/matheusmosca/bookverse/internal/coupon"
	"github.com/matheusmosca/bookverse/internal/httpapi"
	"github.com/matheusmosca/bookverse/internal/inventory"
	"github.com/matheusmosca/bookverse/internal/notification"
	"github.com/matheusmosca/bookverse/internal/orders"
	"github.com/matheusmosca/bookverse/internal/session"
	"github.com/matheusmosca/bookverse/internal/storage"
	"github.com/matheusmosca/bookverse/internal/storage/memory"
	"github.com/matheusmosca/bookverse/internal/storage/postgres"
	"github.com/matheusmosca/bookverse/internal/telemetry"
	"github.com/matheusmosca/bookverse/internal/users"
)

// repositories agrupa as implementações escolhidas por STORAGE
type repositories struct {
	txm       storage.TxManager
	books     catalog.Repository
	users     users.Repository
	coupons   coupon.Repository
	inventory inventory.Repository
	orders    orders.Repository
	reports   orders.ReportRepository
	close     func()
}

func main() {
	cfg := config.Load()
	telemetry.InitLogger(os.Stdout, cfg.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("❌ bookverse stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	// Initialize OpenTelemetry
	providers, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Enabled:     cfg.TelemetryEnabled,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			slog.Error("error shutting down telemetry", "error", err)
		}
	}()
	tracer := providers.Tracer(cfg.ServiceName)
	meter := providers.Meter(cfg.ServiceName)

	// Initialize storage
	repos, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.close()

	sessions, closeSessions, err := openSessions(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	// Initialize dependencies
	userService := users.NewService(repos.users)
	if _, err := userService.EnsureAdmin(ctx, cfg.AdminUsername); err != nil {
		return fmt.Errorf("failed to ensure admin user: %w", err)
	}

	catalogService := catalog.NewService(repos.books, tracer, cfg.LowStockThreshold)
	evaluator := coupon.NewEvaluator(repos.coupons, time.Now)
	ledger := inventory.NewLedger(repos.txm, repos.books, repos.inventory, tracer,
		telemetry.MustCounter(meter, "inventory_transactions_total", "Inventory ledger rows written"))

	var forwarder notification.Forwarder
	if cfg.NotificationWebhookURL != "" {
		webhook := notification.NewWebhookForwarder(cfg.NotificationWebhookURL, cfg.NotificationWebhookTimeout)
		defer webhook.Wait()
		forwarder = webhook
	}
	center := notification.NewCenter(userService, forwarder).WithIdleTimeout(cfg.SessionTTL)

	metrics, err := orders.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("failed to register order metrics: %w", err)
	}
	workflow := orders.NewWorkflow(repos.txm, repos.orders, repos.books, evaluator, ledger, center, tracer, metrics)
	reporter := orders.NewReporter(repos.reports, repos.orders, repos.books, tracer)

	sweeper, err := cleanup.NewSweeper(repos.txm, repos.orders, tracer, meter, cfg.OrderCleanupCutoff)
	if err != nil {
		return fmt.Errorf("failed to create order sweeper: %w", err)
	}
	scheduler, err := cleanup.NewScheduler(sweeper, cfg.OrderCleanupSchedule)
	if err != nil {
		return err
	}

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	middleware := auth.NewMiddleware(sessions, userService, cfg.SessionTTL)
	router := httpapi.NewRouter(cfg.ServiceName, middleware, httpapi.Handlers{
		Auth:          auth.NewHandler(middleware, center.Drop),
		Catalog:       catalog.NewHandler(catalogService),
		Cart:          httpapi.NewCartHandler(cart.NewService(catalogService, evaluator)),
		Coupons:       coupon.NewHandler(coupon.NewService(repos.coupons)),
		Orders:        orders.NewHandler(workflow),
		Reports:       orders.NewReportHandler(reporter),
		Inventory:     inventory.NewHandler(ledger),
		Notifications: notification.NewHandler(center),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("🚀 bookverse listening", "port", cfg.Port, "storage", cfg.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("🛑 shutting down")
		if err := scheduler.Stop(shutdownCtx); err != nil {
			slog.Error("cleanup scheduler did not stop in time", "error", err)
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func openStorage(ctx context.Context, cfg config.Config) (*repositories, error) {
	if cfg.Storage == config.StorageMemory {
		slog.Warn("ℹ️ using in-memory storage, data is lost on restart")
		store := memory.New()
		return &repositories{
			txm:       store,
			books:     store,
			users:     store,
			coupons:   store,
			inventory: store,
			orders:    store,
			reports:   store,
			close:     func() {},
		}, nil
	}

	pool, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, cfg.Database.DSN()); err != nil {
		pool.Close()
		return nil, err
	}
	orderRepo := orders.NewPostgresRepository(pool)
	return &repositories{
		txm:       postgres.NewDB(pool),
		books:     catalog.NewPostgresRepository(pool),
		users:     users.NewPostgresRepository(pool),
		coupons:   coupon.NewPostgresRepository(pool),
		inventory: inventory.NewPostgresRepository(pool),
		orders:    orderRepo,
		reports:   orderRepo,
		close:     pool.Close,
	}, nil
}

// openSessions usa Redis quando REDIS_ADDR está definido
func openSessions(ctx context.Context, cfg config.Config) (session.Store, func(), error) {
	if cfg.RedisAddr == "" {
		return session.NewMemoryStore(cfg.SessionTTL), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("✅ connected to redis", "addr", cfg.RedisAddr)
	return session.NewRedisStore(client, cfg.ServiceName, cfg.SessionTTL), func() { client.Close() }, nil
}
