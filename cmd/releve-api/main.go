package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"releve/internal/backend"
	"releve/internal/cli"
	apphttp "releve/internal/http"
	"releve/internal/log"
	"releve/internal/middleware/ratelimit"
	"releve/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger(nil).Error("Configuration validation failed",
			log.FieldErrorType, log.ErrorTypeConfiguration, log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg)

	layout, err := cli.LoadLayout(cfg)
	if err != nil {
		logger.Error("Failed to load import layout", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldBackend, cfg.DataBackend, log.FieldError, err)
		os.Exit(1)
	}
	if res.Cleanup != nil {
		defer func() {
			if err := res.Cleanup(); err != nil {
				logger.Warn("Cleanup failed", log.FieldOperation, log.OpShutdown, log.FieldError, err)
			}
		}()
	}

	var publisher services.Publisher
	if res.Publisher != nil {
		publisher = res.Publisher
	}
	svc := services.NewImportService(res.Backend, publisher, layout, cfg.ImportWorkers, logger)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:            ":" + cfg.Port,
		Importer:        svc,
		Lines:           res.Backend,
		Taxonomy:        res.Backend,
		Logger:          logger,
		ImportRateLimit: ratelimit.DefaultConfig(),
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", log.FieldOperation, log.OpShutdown, log.FieldError, err)
		}
	}()

	logger.Info("Starting server",
		log.FieldOperation, log.OpStartup,
		"addr", srv.Addr,
		log.FieldLayout, layout.Name,
		log.FieldBackend, cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
