// Package server wires the transfer service together: configuration, the
// storage and metadata drivers, the HTTP surface and the background janitor,
// with signal-driven graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/driftlabs/driftfile/internal/logging"
	"github.com/driftlabs/driftfile/internal/meta"
	"github.com/driftlabs/driftfile/internal/multipart"
	"github.com/driftlabs/driftfile/internal/server/api"
	"github.com/driftlabs/driftfile/internal/server/config"
	"github.com/driftlabs/driftfile/internal/server/files"
	"github.com/driftlabs/driftfile/internal/server/janitor"
	"github.com/driftlabs/driftfile/internal/server/transfer"
	"github.com/driftlabs/driftfile/internal/storage"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	store       meta.Store
	backend     storage.Backend
	coordinator *multipart.Coordinator
	files       *files.Service
	janitor     *janitor.Janitor
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := logging.NewDefault(slog.LevelInfo)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("meta store init error: %w", err)
	}
	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}
	coordinator, err := multipart.NewCoordinator(backend, cfg.TargetPartSize, cfg.SessionWindow, logger)
	if err != nil {
		return nil, fmt.Errorf("multipart init error: %w", err)
	}

	return &App{
		config:      cfg,
		logger:      logger,
		store:       store,
		backend:     backend,
		coordinator: coordinator,
		files:       files.NewService(store, backend, cfg.SignedURLExpiry, logger),
		janitor:     janitor.New(store, backend, coordinator, cfg.JanitorInterval, cfg.JanitorBatch, logger),
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (meta.Store, error) {
	switch cfg.MetaDriver {
	case "postgres":
		return meta.Open(ctx, cfg.DatabaseDSN)
	case "memory":
		return meta.NewMemStore(), nil
	}
	return nil, fmt.Errorf("unknown meta driver %q", cfg.MetaDriver)
}

func openBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.StorageDriver {
	case "s3":
		return storage.NewS3(ctx, storage.S3Config{
			Bucket:       cfg.S3Bucket,
			Region:       cfg.S3Region,
			Endpoint:     cfg.S3Endpoint,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3PathStyle,
		})
	case "fs":
		return storage.NewFS(cfg.FSRoot)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) transferOptions() transfer.Options {
	return transfer.Options{
		BaseURL:            app.config.BaseURL,
		MaxFileSize:        app.config.MaxFileSize,
		MaxExpiry:          app.config.MaxExpiry,
		DefaultExpiry:      app.config.DefaultExpiry,
		MaxDownloads:       app.config.MaxDownloads,
		DefaultDownloads:   app.config.DefaultDownloads,
		MultipartThreshold: app.config.MultipartThreshold,
		RequireBearer:      app.config.RequireBearer,
		BearerSecret:       []byte(app.config.BearerSecret),
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(app.logger))
	api.SetupRoutes(router, app.files, app.store, app.backend, app.coordinator, app.transferOptions(), app.logger)

	srv := &http.Server{Addr: app.config.Addr, Handler: router}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			app.logger.Error(ctx, "http shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "http server listening",
		"addr", app.config.Addr, "storage", app.config.StorageDriver, "meta", app.config.MetaDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.janitor.Run(ctx)
	}()

	wg.Wait()

	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "meta store close error", "error", err)
	}
}
