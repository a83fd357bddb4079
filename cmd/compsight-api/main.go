// Package main is the entry point for the compsight-api server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/compsight/compsight-api/internal/config"
	"github.com/compsight/compsight-api/internal/crypto"
	"github.com/compsight/compsight-api/internal/database"
	"github.com/compsight/compsight-api/internal/http/handlers"
	"github.com/compsight/compsight-api/internal/http/mw"
	"github.com/compsight/compsight-api/internal/http/routes"
	"github.com/compsight/compsight-api/internal/logging"
	"github.com/compsight/compsight-api/internal/repository"
	"github.com/compsight/compsight-api/internal/service"
	"github.com/compsight/compsight-api/internal/version"
)

func main() {
	// Initialize logger with TTY detection, source paths, and format control
	logger := logging.SetDefault()

	v := version.Get()
	logger.Info("starting compsight-api",
		"version", v.Version,
		"commit", v.Commit,
		"built", v.Date,
		"go_version", v.GoVersion,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := database.Migrate(db, logger); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}

	repos := repository.NewRepositories(db, encryptor)

	services, err := service.NewServices(cfg, repos, logger)
	if err != nil {
		logger.Error("failed to initialize services", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	// S3-backed configuration loaders. Both share the configured bucket
	// under config/.
	var configLoaders []*config.S3Loader
	if cfg.StorageEnabled() {
		s3Client, err := config.NewS3Client(ctx, cfg)
		if err != nil {
			logger.Error("failed to create S3 client", "error", err)
			os.Exit(1)
		}

		policyLoader := config.NewPolicyLoader(s3Client, cfg.StorageBucket, 5*time.Minute, services.Policies, logger)
		policyLoader.Start(ctx)
		configLoaders = append(configLoaders, policyLoader)

		logFiltersLoader := mw.NewLogFiltersLoader(s3Client, cfg.StorageBucket, 5*time.Minute, logger)
		logFiltersLoader.Start(ctx)
		configLoaders = append(configLoaders, logFiltersLoader)

		logger.Info("S3 config loaders enabled",
			"bucket", cfg.StorageBucket,
			"configs", []string{"lookup_policy.json", "logfilters.json"},
		)
	}

	if cfg.CleanupEnabled {
		go services.Cleanup.RunScheduled(ctx, cfg.CleanupInterval)
	}

	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(mw.APIVersion())

	// Lookups fetch the listing page and call two upstream APIs, so the
	// request timeout has to cover the whole pipeline.
	router.Use(middleware.Timeout(120 * time.Second))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Request size limit (1MB)
	router.Use(middleware.RequestSize(1 * 1024 * 1024))

	// Rate limit by IP and a global concurrency throttle
	router.Use(httprate.LimitByIP(100, time.Minute))
	router.Use(middleware.Throttle(100))

	humaConfig := huma.DefaultConfig("Compsight API", v.Version)
	humaConfig.Info.Description = "Resale value estimation for classified listings: extracts a listing page, derives a sold-items search query with AI, and returns price statistics from completed marketplace sales."
	humaConfig.Servers = []*huma.Server{
		{URL: cfg.BaseURL, Description: "API Server"},
	}

	api := humachi.New(router, humaConfig)

	h := &handlers.Handlers{
		Lookup:   handlers.NewLookupHandler(services.Lookup),
		Settings: handlers.NewSettingsHandler(services.Settings),
		Readyz:   handlers.NewReadyzHandler(db),
	}
	routes.Register(api, h)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		<-sigChan

		logger.Info("shutting down server")

		cancel()
		for _, loader := range configLoaders {
			loader.Stop()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
	}()

	logger.Info("starting server", "port", cfg.Port, "base_url", cfg.BaseURL)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
