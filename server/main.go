package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ctolnik/work-eye/server/activity"
	"github.com/ctolnik/work-eye/server/config"
	"github.com/ctolnik/work-eye/server/database"
	"github.com/ctolnik/work-eye/server/ingest"
	"github.com/ctolnik/work-eye/server/reporting"
	"github.com/ctolnik/work-eye/server/storage"
	"github.com/ctolnik/work-eye/zapctx"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = zapctx.WithLogger(ctx, logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	loc := cfg.Location()

	names, err := activity.LoadNameMap(cfg.Names.Path)
	if err != nil {
		return err
	}
	logger.Info("Name map loaded", zap.String("path", cfg.Names.Path), zap.Int("entries", names.Len()))

	store, err := database.New(ctx, database.Options{
		URL:              cfg.Database.Postgres.URL,
		MaxConns:         cfg.Database.Postgres.MaxConns,
		MinConns:         cfg.Database.Postgres.MinConns,
		StatementTimeout: cfg.Database.Postgres.StatementTimeout,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.AutoSyncSchema(ctx); err != nil {
		return err
	}

	opts := []ingest.Option{ingest.WithLocation(loc)}
	var screenshots screenshotSource

	if cfg.Database.ClickHouse.Enabled {
		archive, err := database.NewEventArchive(
			cfg.Database.ClickHouse.Host,
			cfg.Database.ClickHouse.Port,
			cfg.Database.ClickHouse.Database,
			cfg.Database.ClickHouse.Username,
			cfg.Database.ClickHouse.Password,
		)
		if err != nil {
			return err
		}
		defer archive.Close()

		if err := archive.AutoSyncRawEventsTable(ctx); err != nil {
			return err
		}
		opts = append(opts, ingest.WithArchive(archive))
	}

	if cfg.Storage.Enabled {
		st, err := storage.New(ctx,
			cfg.Storage.Endpoint,
			cfg.Storage.AccessKey,
			cfg.Storage.SecretKey,
			cfg.Storage.UseSSL,
			cfg.Storage.Buckets.Screenshots,
		)
		if err != nil {
			return err
		}
		opts = append(opts, ingest.WithScreenshotSink(st))
		screenshots = st
	}

	pipeline := ingest.NewPipeline(store, opts...)
	reporter := reporting.NewReporter(store, names,
		reporting.WithLocation(loc),
		reporting.WithMaxRows(cfg.Reporting.MaxRows),
	)

	h := &handlers{
		ingest:  pipeline,
		reports: reporter,
		stats:   NewStatsCache(reporter, cfg.Reporting.StatsCacheTTL),
		db:      store,

		screenshots: screenshots,
	}

	if cfg.Server.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(logger, h)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", zap.String("address", srv.Addr), zap.String("timezone", loc.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(logger *zap.Logger, h *handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), loggerMiddleware(logger))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h.register(router)
	return router
}

// newLogger builds a development logger unless the server runs in prod mode.
// When logging.file is set, output is also written to a rotated file.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.Server.Mode == "prod" {
		zcfg = zap.NewProductionConfig()
	}
	if cfg.Logging.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = level
	}

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	if cfg.Logging.File == "" {
		return logger, nil
	}

	rotated := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.Logging.File,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		rotated,
		zcfg.Level,
	)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}
