package main

import (
	"fmt"
	"os"

	"releve/internal/backend"
	"releve/internal/cli"
	"releve/internal/log"
	"releve/internal/services"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(paths []string) int {
	cli.LoadEnvFile()

	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "usage: releve FILE.csv [FILE.csv...]")
		return 2
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.SetupLogger(nil).Error("Configuration validation failed",
			log.FieldErrorType, log.ErrorTypeConfiguration, log.FieldError, err)
		return 1
	}
	logger := cli.SetupLogger(cfg)

	layout, err := cli.LoadLayout(cfg)
	if err != nil {
		logger.Error("Failed to load import layout", log.FieldError, err)
		return 1
	}

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		return 1
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldBackend, cfg.DataBackend, log.FieldError, err)
		return 1
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

	logger.Info("Starting import",
		log.FieldOperation, log.OpStartup,
		log.FieldLayout, layout.Name,
		log.FieldBackend, cfg.DataBackend,
		log.FieldWorkers, cfg.ImportWorkers)

	code := 0
	for _, path := range paths {
		if ctx.Err() != nil {
			return 1
		}
		result, err := svc.ImportFile(ctx, path)
		if err != nil {
			logger.Error("Import failed", log.FieldSource, path, log.FieldError, err)
			code = 1
			continue
		}
		for _, line := range result.Lines {
			fmt.Println(line)
		}
	}
	return code
}
