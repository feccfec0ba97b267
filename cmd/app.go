package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/frahmantamala/gym-storefront/internal"
	auditpkg "github.com/frahmantamala/gym-storefront/internal/audit"
	auditPostgres "github.com/frahmantamala/gym-storefront/internal/audit/postgres"
	"github.com/frahmantamala/gym-storefront/internal/checkout"
	checkoutPostgres "github.com/frahmantamala/gym-storefront/internal/checkout/postgres"
	"github.com/frahmantamala/gym-storefront/internal/core/events"
	"github.com/frahmantamala/gym-storefront/internal/idempotency"
	ledgerpkg "github.com/frahmantamala/gym-storefront/internal/ledger"
	ledgerPostgres "github.com/frahmantamala/gym-storefront/internal/ledger/postgres"
	membershippkg "github.com/frahmantamala/gym-storefront/internal/membership"
	membershipPostgres "github.com/frahmantamala/gym-storefront/internal/membership/postgres"
	"github.com/frahmantamala/gym-storefront/internal/paymentgateway"
	gatewayPostgres "github.com/frahmantamala/gym-storefront/internal/paymentgateway/postgres"
	"github.com/frahmantamala/gym-storefront/internal/ratelimit"
	sessionpkg "github.com/frahmantamala/gym-storefront/internal/session"
	sessionPostgres "github.com/frahmantamala/gym-storefront/internal/session/postgres"
	"github.com/frahmantamala/gym-storefront/pkg/logger"
)

// App holds everything the commands share.
type App struct {
	Config   *internal.Config
	SQL      *sqlx.DB
	DB       *gorm.DB
	Redis    *redis.Client
	Registry *prometheus.Registry
	Bus      *events.EventBus
	Logger   *slog.Logger

	Gateway      *paymentgateway.Client
	Settings     *gatewayPostgres.SettingsRepository
	Sessions     *sessionpkg.Service
	Ledger       *ledgerpkg.Service
	Memberships  *membershippkg.Service
	Orchestrator *checkout.Orchestrator
}

func newApp(ctx context.Context) (*App, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	sqlDB, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	app := &App{
		Config:   cfg,
		SQL:      sqlDB,
		DB:       gormDB,
		Registry: prometheus.NewRegistry(),
		Bus:      events.NewEventBus(lg),
		Logger:   lg,
	}
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		app.Redis = redis.NewClient(opts)
		if err := app.Redis.Ping(ctx).Err(); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
	}

	app.wire()
	return app, nil
}

func (a *App) wire() {
	cfg := a.Config
	gw := cfg.Gateway

	var limiter ratelimit.Limiter
	var store idempotency.Store
	if a.Redis != nil {
		prefix := cfg.Redis.KeyPrefix
		limiter = ratelimit.NewRedisFixedWindow(a.Redis, prefix+":gateway:ratelimit", gw.RateLimitMax, gw.RateLimitWindow)
		store = idempotency.NewRedisStore(a.Redis, prefix+":gateway:idempotency")
	} else {
		limiter = ratelimit.NewFixedWindow(gw.RateLimitMax, gw.RateLimitWindow)
		store = idempotency.NewMemoryStore()
	}
	idem := idempotency.NewCache(store, gw.IdempotencyTTL, a.Logger).
		WithCallTimeout(gw.RequestTimeout * time.Duration(gw.MaxAttempts+1))

	a.Settings = gatewayPostgres.NewSettingsRepository(a.DB, gw.GatewayID)
	a.Gateway = paymentgateway.NewClient(paymentgateway.Config{
		SandboxURL:         gw.SandboxURL,
		ProductionURL:      gw.ProductionURL,
		SettingsTTL:        gw.SettingsTTL,
		RequestTimeout:     gw.RequestTimeout,
		MaxAttempts:        gw.MaxAttempts,
		BackoffBase:        gw.BackoffBase,
		BreakerMaxFailures: gw.BreakerMaxFailures,
		BreakerOpenTimeout: gw.BreakerOpenTimeout,
	}, a.Settings, limiter, idem, a.Logger, paymentgateway.WithMetrics(paymentgateway.NewMetrics(a.Registry)))

	executor := auditpkg.NewExecutor(auditPostgres.NewAuditRepository(a.DB), a.Gateway, gw.GatewayID, a.Logger)

	a.Sessions = sessionpkg.NewService(sessionPostgres.NewSessionRepository(a.DB), cfg.Checkout.SessionTTL, a.Logger)
	a.Ledger = ledgerpkg.NewService(ledgerPostgres.NewLedgerRepository(a.DB), nil, a.Logger)
	a.Memberships = membershippkg.NewService(membershipPostgres.NewMembershipRepository(a.DB), a.Logger)

	a.Orchestrator = checkout.NewOrchestrator(checkout.Dependencies{
		GatewayID:   gw.GatewayID,
		Gateway:     executor,
		Settings:    a.Gateway,
		Repository:  checkoutPostgres.NewCheckoutRepository(a.DB),
		Sessions:    a.Sessions,
		Ledger:      a.Ledger,
		Memberships: a.Memberships,
		Publisher:   a.Bus,
		Metrics:     checkout.NewMetrics(a.Registry),
	}, a.Logger)

	subscribeHandlers(a.Bus, a.Logger)
}

func (a *App) Close() {
	if a.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.Bus.Drain(ctx); err != nil {
			a.Logger.Warn("event handlers still running at shutdown", "error", err)
		}
		cancel()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("redis close error", "error", err)
		}
	}
	if err := a.SQL.Close(); err != nil {
		a.Logger.Error("database close error", "error", err)
	}
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
