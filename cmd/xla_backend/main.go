package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"golang.org/x/oauth2"

	"github.com/flockpay/xero_adapter_app/internal/adapters/payhawk"
	"github.com/flockpay/xero_adapter_app/internal/adapters/xero"
	"github.com/flockpay/xero_adapter_app/internal/apperrors"
	portsrepo "github.com/flockpay/xero_adapter_app/internal/core/ports/repositories"
	"github.com/flockpay/xero_adapter_app/internal/core/services"
	"github.com/flockpay/xero_adapter_app/internal/handlers"
	"github.com/flockpay/xero_adapter_app/internal/middleware"
	"github.com/flockpay/xero_adapter_app/internal/platform/config"
	"github.com/flockpay/xero_adapter_app/internal/repositories/database/pgsql"
	"github.com/flockpay/xero_adapter_app/pkg/database"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbPool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.ClosePgxPool(dbPool)
	logger.Info("Database connection pool established.")

	if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
		os.Exit(1)
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.Default())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Webhook deliveries are bursty on bulk exports; the limit leaves headroom
	// over the source platform's documented delivery rate.
	rateLimiter := limiter.New(memory.NewStore(), limiter.Rate{
		Period: time.Minute,
		Limit:  300,
	})

	repos := pgsql.NewRepositoryProvider(dbPool)

	auth := xero.NewAuth(xero.AuthConfig{
		ClientID:     cfg.XeroClientID,
		ClientSecret: cfg.XeroClientSecret,
		RedirectURL:  cfg.XeroRedirectURL,
	}, xero.WithTokenSaver(newTokenSaver(repos.AccountRepo, cfg.AccountID, logger)))
	restoreSinkConnection(context.Background(), repos.AccountRepo, auth, cfg.AccountID, logger)
	sink := xero.NewClient(auth)
	source := payhawk.NewClient(cfg.PayhawkAPIURL, cfg.AccountID, cfg.PayhawkAPIKey)

	container := services.NewServiceContainer(services.ContainerDeps{
		AccountID:     cfg.AccountID,
		PortalBaseURL: cfg.PortalBaseURL,
		Source:        source,
		Sink:          sink,
		Feeds:         sink,
		SinkAuth:      auth,
		Repos:         &repos,
	})

	handlers.RegisterRoutes(r, cfg, container, rateLimiter)

	logger.Info("Server starting", slog.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Server failed to run", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newTokenSaver persists the OAuth binding whenever it changes, so a restart
// can resume without a fresh consent round-trip. A nil token clears the row.
func newTokenSaver(accounts portsrepo.AccountRecordRepository, accountID string, logger *slog.Logger) func(token *oauth2.Token, tenantID string) {
	return func(token *oauth2.Token, _ string) {
		var serialized *string
		if token != nil {
			raw, err := json.Marshal(token)
			if err != nil {
				logger.Error("Failed to serialize oauth token", slog.String("error", err.Error()))
				return
			}
			s := string(raw)
			serialized = &s
		}
		err := accounts.UpdateOAuthToken(context.Background(), accountID, serialized)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Failed to persist oauth token", slog.String("error", err.Error()))
		}
	}
}

// restoreSinkConnection reseeds the OAuth binding a previous process persisted.
func restoreSinkConnection(ctx context.Context, accounts portsrepo.AccountRecordRepository, auth *xero.Auth, accountID string, logger *slog.Logger) {
	account, err := accounts.FindByID(ctx, accountID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return
	}
	if err != nil {
		logger.Warn("Failed to load account for connection restore", slog.String("error", err.Error()))
		return
	}
	if account.TenantID == nil || account.OAuthToken == nil {
		return
	}

	var token oauth2.Token
	if err := json.Unmarshal([]byte(*account.OAuthToken), &token); err != nil {
		logger.Warn("Failed to decode persisted oauth token", slog.String("error", err.Error()))
		return
	}
	auth.SetConnection(&token, *account.TenantID)
	logger.Info("Sink connection restored", slog.String("tenant_id", *account.TenantID))
}

// runMigrations applies all pending up migrations over a temporary
// database/sql connection compatible with the pgx pool.
func runMigrations(databaseURL string, logger *slog.Logger) error {
	logger.Info("Running database migrations...")

	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		logger.Error("Failed to open database connection for migrations", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		logger.Error("Failed to ping database for migrations", slog.String("error", err.Error()))
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		logger.Error("Could not create postgres driver instance for migrations", slog.String("error", err.Error()))
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		logger.Error("Could not create migrate instance", slog.String("error", err.Error()))
		return err
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
		return err
	}

	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		logger.Error("Migration source error", slog.String("error", sourceErr.Error()))
		return sourceErr
	}
	if dbErr != nil {
		logger.Error("Migration database error", slog.String("error", dbErr.Error()))
		return dbErr
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}
