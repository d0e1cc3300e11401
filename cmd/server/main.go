package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/petroflow/petroflow/internal/config"
	"github.com/petroflow/petroflow/internal/repository/mongodb"
	"github.com/petroflow/petroflow/internal/repository/sheets"
	"github.com/petroflow/petroflow/internal/scheduler"
	"github.com/petroflow/petroflow/internal/server/handlers"
	"github.com/petroflow/petroflow/internal/server/router"
	analysissvc "github.com/petroflow/petroflow/internal/service/analysis"
	batchsvc "github.com/petroflow/petroflow/internal/service/batch"
	"github.com/petroflow/petroflow/pkg/clients/webhook"
	"github.com/petroflow/petroflow/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New())
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	var exporter sheets.Exporter
	if cfg.Sheets.SpreadsheetID != "" {
		exporter, err = sheets.NewGoogleSheetExporter(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets exporter", zap.Error(err))
		}
		baseLogger.Info("spreadsheet export enabled")
	}

	var notifier webhook.Client
	if cfg.Webhook.URL != "" {
		notifier = webhook.NewClient(cfg.Webhook)
		baseLogger.Info("batch webhook notifications enabled")
	}

	analysisSvc := analysissvc.NewService(mongoRepo, cfg.Engine, baseLogger.Named("svc.analysis"))
	batchSvc := batchsvc.NewService(mongoRepo, analysisSvc, notifier, cfg.Engine.BatchWorkers, cfg.Engine.WellTimeout, baseLogger.Named("svc.batch"))

	dcaHandler := handlers.NewDCAHandler(analysisSvc, batchSvc, exporter, baseLogger.Named("handlers.dca"))
	engine := router.New(dcaHandler, baseLogger.Named("router"))

	if cfg.Scheduler.Enabled {
		sched := scheduler.NewScheduler(*cfg, mongoRepo, batchSvc, baseLogger.Named("scheduler"))
		sched.Start()
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
