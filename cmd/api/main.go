package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"activerecord/internal/config"
	"activerecord/internal/database"
	handlers "activerecord/internal/http/handler"
	"activerecord/internal/http/middleware"
	"activerecord/internal/logging"
	"activerecord/internal/model"
	"activerecord/internal/otel"
	"activerecord/internal/record"
	"activerecord/internal/repository/sqlstore"
	"activerecord/internal/service"
	"activerecord/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// @title			Document API
// @version		1.0
// @description	Document storage API built on the active-record database layer.
// @BasePath		/
func main() {
	if err := run(); err != nil {
		slog.Error("server_exit", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, time.UTC, logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing_shutdown_failed", slog.String("error", err.Error()))
		}
	}()

	uri, err := database.ResolveURL(cfg.Database)
	if err != nil {
		return err
	}
	db, err := database.New(uri, append(database.OptionsFromConfig(cfg.Database), database.WithLogger(logger))...)
	if err != nil {
		return err
	}
	defer db.Close()

	documents, err := record.Register[model.Document](db)
	if err != nil {
		return err
	}

	// Connect up front so a bad DSN fails at startup rather than on the first request.
	eng, err := db.Engine()
	if err != nil {
		return err
	}
	if cfg.Database.AutoMigrate {
		if err := db.CreateAll(ctx); err != nil {
			return err
		}
	}

	objStore, err := storage.NewMinIO(ctx, cfg.MinIO, logger)
	if err != nil {
		return err
	}
	docSvc := service.NewDocumentService(objStore, sqlstore.NewDocumentStore(documents))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(eng.DB().DB, eng.Dialect().Name()),
	)
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		DisableStartupMessage: true,
	})
	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.Logger())
	app.Use(promMiddleware.Handler())
	middleware.InitApp(app, db)

	app.Get("/metrics", adaptor.HTTPHandler(otelhttp.NewHandler(
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), "metrics",
	)))
	handlers.RegisterRoutes(app, db, docSvc)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listening", slog.String("addr", ":"+cfg.Port), slog.String("db", db.String()))
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("server_shutdown")
	return app.ShutdownWithTimeout(shutdownTimeout)
}
