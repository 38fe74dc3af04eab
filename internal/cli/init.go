// Package cli provides the process bootstrap shared by the commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"releve/internal/config"
	"releve/internal/importer"
	"releve/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile(filenames ...string) {
	_ = godotenv.Load(filenames...)
}

// SetupLogger builds the application logger from the configuration and
// sets it as the default slog logger.
func SetupLogger(cfg *config.Config) *log.Logger {
	logCfg := log.DefaultConfig()
	logCfg.Output = os.Stderr
	if cfg != nil {
		logCfg.Level = log.ParseLevel(cfg.LogLevel)
		logCfg.Format = cfg.LogFormat
	}
	logger := log.New(logCfg)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration from the environment and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadLayout returns the custom layout from IMPORT_LAYOUT_FILE when set,
// otherwise the built-in layout named by IMPORT_LAYOUT.
func LoadLayout(cfg *config.Config) (importer.Layout, error) {
	if cfg.ImportLayoutFile != "" {
		data, err := os.ReadFile(cfg.ImportLayoutFile)
		if err != nil {
			return importer.Layout{}, fmt.Errorf("read layout file: %w", err)
		}
		return importer.LoadLayout(data)
	}
	return importer.LookupLayout(cfg.ImportLayout)
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM.
func GracefulShutdown(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown, "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
