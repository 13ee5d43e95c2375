package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"go.uber.org/zap"

	"github.com/coursekit/warehouse-engine/pkg/adapters/datasource"
	_ "github.com/coursekit/warehouse-engine/pkg/adapters/datasource/mssql"
	_ "github.com/coursekit/warehouse-engine/pkg/adapters/datasource/postgres"
	"github.com/coursekit/warehouse-engine/pkg/config"
	"github.com/coursekit/warehouse-engine/pkg/database"
	"github.com/coursekit/warehouse-engine/pkg/delivery"
	"github.com/coursekit/warehouse-engine/pkg/handlers"
	"github.com/coursekit/warehouse-engine/pkg/middleware"
	"github.com/coursekit/warehouse-engine/pkg/repositories"
	"github.com/coursekit/warehouse-engine/pkg/services"
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

	ctx := context.Background()

	// Engine database (queries, backends, export files).
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to engine database", zap.Error(err))
	}
	defer db.Close()

	migrationDB, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, "migrations", logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	_ = migrationDB.Close()

	// Warehouse datasource the export queries run against.
	executor, err := datasource.New(ctx, cfg.Warehouse.Type, &datasource.Config{
		Host:        cfg.Warehouse.Host,
		Port:        cfg.Warehouse.Port,
		User:        cfg.Warehouse.User,
		Password:    cfg.Warehouse.Password,
		Database:    cfg.Warehouse.Database,
		SSLMode:     cfg.Warehouse.SSLMode,
		TablePrefix: cfg.Warehouse.TablePrefix,
	})
	if err != nil {
		logger.Fatal("Failed to connect to warehouse datasource", zap.Error(err))
	}
	defer func() { _ = executor.Close() }()

	queryRepo := repositories.NewQueryRepository(db)
	backendRepo := repositories.NewBackendRepository(db)
	fileRepo := repositories.NewFileRepository(db)

	queryService := services.NewQueryService(queryRepo, fileRepo, logger)
	backendService := services.NewBackendService(backendRepo, logger)
	exportService := services.NewExportService(
		queryRepo, backendRepo, fileRepo, executor,
		delivery.NewClient(cfg.Export.DeliveryTimeout),
		services.ExportConfig{
			RowLimit:        cfg.Export.RowLimit,
			QueryTimeout:    cfg.Export.QueryTimeout,
			DeliveryTimeout: cfg.Export.DeliveryTimeout,
			WWWRoot:         cfg.WWWRoot,
		},
		logger,
	)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg.Version, cfg.Env).RegisterRoutes(mux)
	handlers.NewQueriesHandler(queryService, logger).RegisterRoutes(mux)
	handlers.NewBackendsHandler(backendService, logger).RegisterRoutes(mux)
	handlers.NewExportsHandler(exportService, nil, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting warehouse-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version),
		zap.String("warehouse_type", cfg.Warehouse.Type),
	)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
