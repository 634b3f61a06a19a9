// Package bootstrap wires configuration, logging and telemetry into a
// runnable application
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"arb_engine/internal/core"
	"arb_engine/pkg/telemetry"

	"golang.org/x/sync/errgroup"
)

// App holds the core application dependencies
type App struct {
	Cfg       *Config
	Logger    core.ILogger
	Telemetry *telemetry.Telemetry
}

// NewApp bootstraps all dependencies from the config file
func NewApp(configPath string) (*App, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	// Telemetry first so the logger's OTel bridge picks up the provider
	tel, err := telemetry.Setup("arb_engine")
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	logger, err := InitLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	return &App{
		Cfg:       cfg,
		Logger:    logger,
		Telemetry: tel,
	}, nil
}

// Runner is a component that runs until its context is canceled
type Runner interface {
	Run(ctx context.Context) error
}

// Run orchestrates the application lifecycle, including signal handling
func (a *App) Run(runners ...Runner) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	a.Logger.Info("Starting application")

	for _, runner := range runners {
		r := runner
		g.Go(func() error {
			return r.Run(ctx)
		})
	}

	err := g.Wait()

	if a.Telemetry != nil {
		if shutdownErr := a.Telemetry.Shutdown(context.Background()); shutdownErr != nil {
			a.Logger.Warn("Telemetry shutdown failed", "error", shutdownErr.Error())
		}
	}

	if err != nil && err != context.Canceled {
		a.Logger.Error("Application stopped with error", "error", err.Error())
		return err
	}

	a.Logger.Info("Application shut down gracefully")
	return nil
}
