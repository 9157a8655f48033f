package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/xwms/xwms/internal/app"
	"github.com/xwms/xwms/internal/inventory"
	"github.com/xwms/xwms/internal/masterdata"
	"github.com/xwms/xwms/internal/masterdata/items"
	"github.com/xwms/xwms/internal/masterdata/warehouses"
	"github.com/xwms/xwms/internal/observability"
	"github.com/xwms/xwms/internal/platform/cache"
	"github.com/xwms/xwms/internal/platform/db"
	"github.com/xwms/xwms/internal/reportfilter"
	"github.com/xwms/xwms/internal/reports"
	"github.com/xwms/xwms/internal/shared"
	"github.com/xwms/xwms/jobs"
	"github.com/xwms/xwms/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	registry := reportfilter.NewRegistry()
	if err := reports.RegisterFilters(registry); err != nil {
		logger.Error("register report filters", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	itemService := items.NewService(items.NewRepository(dbpool))
	warehouseService := warehouses.NewService(warehouses.NewRepository(dbpool))
	masterDataHandler := masterdata.NewHandler(logger, itemService, warehouseService)
	links := masterdata.Links{Items: itemService, Warehouses: warehouseService}

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportService := reports.NewService(registry, reports.NewRepository(dbpool), links, reportCache, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), inventory.Deps{
		Audit:       shared.NewAuditLogger(dbpool),
		Idempotency: shared.NewIdempotencyStore(dbpool),
		Warehouses:  warehouseService,
		Items:       itemService,
		Hook:        inventory.PostingHooks{reportService, jobClient, metrics},
		Logger:      logger,
	}, inventory.ServiceConfig{AllowNegativeStock: cfg.AllowNegativeStock})
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	pdfClient := report.NewClient(cfg.GotenbergURL, logger)
	reportsHandler := reports.NewHandler(logger, reportService, pdfClient)
	pdfHandler := report.NewHandler(pdfClient, logger)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		MasterDataHandler: masterDataHandler,
		InventoryHandler:  inventoryHandler,
		ReportsHandler:    reportsHandler,
		PDFHandler:        pdfHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
