package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bosun-marine/bosun-engine/pkg/audit"
	"github.com/bosun-marine/bosun-engine/pkg/auth"
	"github.com/bosun-marine/bosun-engine/pkg/catalog"
	"github.com/bosun-marine/bosun-engine/pkg/config"
	"github.com/bosun-marine/bosun-engine/pkg/database"
	"github.com/bosun-marine/bosun-engine/pkg/handlers"
	"github.com/bosun-marine/bosun-engine/pkg/lenses"
	"github.com/bosun-marine/bosun-engine/pkg/logging"
	"github.com/bosun-marine/bosun-engine/pkg/mcp"
	mcpauth "github.com/bosun-marine/bosun-engine/pkg/mcp/auth"
	"github.com/bosun-marine/bosun-engine/pkg/mcp/tools"
	"github.com/bosun-marine/bosun-engine/pkg/middleware"
	"github.com/bosun-marine/bosun-engine/pkg/repositories"
	"github.com/bosun-marine/bosun-engine/pkg/services"
	"github.com/bosun-marine/bosun-engine/pkg/statemachine"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.Bool("redis", cfg.Redis.Host != ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Engine stopped", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "dev" {
		logConfig := zap.NewDevelopmentConfig()
		return logConfig.Build()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.MigrationsPath != "" {
		err = database.RunMigrationsFromPath(db.StdDB(), cfg.Database.MigrationsPath, logger)
	} else {
		err = database.RunMigrations(db.StdDB(), logger)
	}
	if err != nil {
		return err
	}

	// Idempotent replay is optional; without Redis every retry runs the pipeline.
	var idempotencyRepo repositories.IdempotencyRepository
	if cfg.Redis.Host != "" {
		redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		idempotencyRepo = repositories.NewIdempotencyRepository(redisClient)
	}

	actionCatalog := catalog.MustDefault()
	machines := statemachine.MustDefault()

	lensRegistry, err := lenses.Discover(ctx, repositories.NewSchemaRepository(db))
	if err != nil {
		return err
	}
	if err := lensRegistry.Validate(actionCatalog); err != nil {
		return err
	}

	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
		Audience:           cfg.Auth.Audience,
	})
	if err != nil {
		return err
	}
	defer jwksClient.Close()

	authService := auth.NewAuthService(jwksClient, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)
	mcpAuthMiddleware := mcpauth.NewMiddleware(authService, logger)
	tenantMiddleware := database.WithTenantContext(db, logger)
	tenantScope := database.NewTenantScopeProvider(db)
	txRunner := database.NewTxRunner()

	entityRepo := repositories.NewEntityRepository()
	actionHandlers := services.NewActionHandlers(services.ActionRepositories{
		Entities:     entityRepo,
		WorkOrders:   repositories.NewWorkOrderRepository(),
		Inventory:    repositories.NewInventoryRepository(),
		Certificates: repositories.NewCertificateRepository(),
		Attachments:  repositories.NewAttachmentRepository(),
	}, logger)

	ownership := services.NewOwnershipValidator(entityRepo, logger)
	ledger := services.NewAuditLedger(repositories.NewAuditRepository(), txRunner, cfg.Engine.AuditRetries, logger)
	suggestions := services.NewSuggestionService(actionCatalog, lensRegistry, machines, logger)

	dispatcher, err := services.NewDispatcher(services.DispatcherDeps{
		Catalog:   actionCatalog,
		Machines:  machines,
		Handlers:  actionHandlers.Map(),
		Ownership: ownership,
		Signature: services.NewSignatureVerifier(cfg.Engine.SignatureMaxAge, cfg.Engine.SignatureClockSkew),
		Ledger:    ledger,
		Tx:        txRunner,
		Replay:    services.NewReplayCache(idempotencyRepo, cfg.Engine.IdempotencyTTL, logger),
		Security:  audit.NewSecurityAuditor(logger),
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewActionsHandler(dispatcher, actionCatalog, logger).RegisterRoutes(mux, authMiddleware, tenantMiddleware)
	handlers.NewSuggestHandler(ownership, suggestions, logger).RegisterRoutes(mux, authMiddleware, tenantMiddleware)
	handlers.NewCapabilitiesHandler(lensRegistry, logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewAuditHandler(ledger, logger).RegisterRoutes(mux, authMiddleware, tenantMiddleware)

	mcpServer := mcp.NewServer("bosun-engine", cfg.Version, logger, mcp.NewToolCallLogger(logger).Hooks())
	tools.RegisterHealthTool(mcpServer.MCP(), cfg.Version, db)
	tools.RegisterActionTools(mcpServer.MCP(), &tools.ActionToolDeps{
		Dispatcher:  dispatcher,
		Catalog:     actionCatalog,
		Ownership:   ownership,
		Suggestions: suggestions,
		TenantScope: tenantScope,
		Logger:      logger,
	})
	handlers.NewMCPHandler(mcpServer, logger).RegisterRoutes(mux, mcpAuthMiddleware)

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:      middleware.RequestLogger(logger)(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting bosun-engine", zap.String("addr", srv.Addr), zap.String("version", cfg.Version))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
