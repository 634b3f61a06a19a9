package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"arb_engine/internal/alert"
	"arb_engine/internal/backtest"
	"arb_engine/internal/bootstrap"
	"arb_engine/internal/config"
	"arb_engine/internal/core"
	"arb_engine/internal/infrastructure/metrics"
	"arb_engine/internal/journal"
	"arb_engine/internal/mock"
	"arb_engine/internal/strategy/arbitrage"

	"github.com/shopspring/decimal"
)

var (
	// Version information (set via build flags)
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	bars := flag.Int("bars", 500, "Number of synthetic bars to replay")
	seed := flag.Int64("seed", 42, "Seed for the synthetic price series")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("arb_engine version %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	app, err := bootstrap.NewApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	cfg := app.Cfg
	logger := app.Logger

	logger.Info("Starting arb_engine",
		"version", version,
		"pair", cfg.Strategy.Pair,
		"buying_exchange", cfg.App.BuyingExchange,
		"selling_exchange", cfg.App.SellingExchange,
	)

	strat, err := arbitrage.New(strategyConfig(cfg), logger)
	if err != nil {
		logger.Error("Failed to build strategy", "error", err.Error())
		os.Exit(1)
	}
	logger.Info("Strategy configured", "rules", strat.Describe())

	tickJournal, err := journal.NewSQLiteJournal(cfg.App.JournalPath, logger)
	if err != nil {
		logger.Error("Failed to open tick journal", "error", err.Error())
		os.Exit(1)
	}
	defer tickJournal.Close()

	buying, selling := buildVenues(cfg)
	runner := backtest.NewRunner(
		strat,
		buying, selling,
		cfg.Exchanges[cfg.App.BuyingExchange].Instrument,
		cfg.Exchanges[cfg.App.SellingExchange].Instrument,
		cfg.Strategy.MarketAsset,
		cfg.Strategy.CashAsset,
		tickJournal,
		logger,
	)
	runner.FillAfterTicks = 1
	runner.Submitter().SetAlerter(buildAlerter(cfg, logger))

	runners := []bootstrap.Runner{
		&engineRunner{
			runner: runner,
			bars:   syntheticBars(*bars, *seed),
			logger: logger,
		},
	}
	if cfg.Telemetry.EnableMetrics {
		runners = append(runners, metrics.NewServer(cfg.Telemetry.MetricsPort, logger))
	}

	if err := app.Run(runners...); err != nil {
		os.Exit(1)
	}
}

// engineRunner adapts the backtest runner to the bootstrap Runner interface
type engineRunner struct {
	runner *backtest.Runner
	bars   []backtest.Bar
	logger core.ILogger
}

func (e *engineRunner) Run(ctx context.Context) error {
	result, err := e.runner.Run(ctx, e.bars)
	if err != nil {
		return err
	}
	e.logger.Info("Replay complete",
		"ticks", result.TicksProcessed,
		"suppressed", result.TicksSuppressed,
		"intents_submitted", result.IntentsSubmitted)
	e.logger.Info("Metrics remain available until shutdown, press Ctrl-C to exit")
	<-ctx.Done()
	return nil
}

func strategyConfig(cfg *config.Config) arbitrage.Config {
	return arbitrage.Config{
		Pair: cfg.Strategy.Pair,
		Buying: arbitrage.Venue{
			Name:       cfg.App.BuyingExchange,
			Instrument: cfg.Exchanges[cfg.App.BuyingExchange].Instrument,
		},
		Selling: arbitrage.Venue{
			Name:       cfg.App.SellingExchange,
			Instrument: cfg.Exchanges[cfg.App.SellingExchange].Instrument,
		},
		MarketAsset:     cfg.Strategy.MarketAsset,
		CashAsset:       cfg.Strategy.CashAsset,
		EntryRules:      thresholdRules(cfg.Strategy.EntryPoints),
		ExitRules:       thresholdRules(cfg.Strategy.ExitPoints),
		MaxPositions:    cfg.Strategy.MaxPositions,
		SlippageAllowed: decimal.NewFromFloat(cfg.Strategy.SlippageAllowed),
	}
}

func thresholdRules(points []config.PointConfig) []arbitrage.ThresholdRule {
	rules := make([]arbitrage.ThresholdRule, 0, len(points))
	for _, p := range points {
		rules = append(rules, arbitrage.ThresholdRule{
			GapThreshold: decimal.NewFromFloat(p.Gap),
			Amount:       decimal.NewFromFloat(p.Amount),
		})
	}
	return rules
}

func buildAlerter(cfg *config.Config, logger core.ILogger) *alert.AlertManager {
	am := alert.NewAlertManager(logger)
	if url := string(cfg.Alerts.SlackWebhookURL); url != "" {
		am.AddChannel(alert.NewSlackChannel(url))
	}
	if token := string(cfg.Alerts.TelegramBotToken); token != "" {
		am.AddChannel(alert.NewTelegramChannel(token, cfg.Alerts.TelegramChatID))
	}
	return am
}

func buildVenues(cfg *config.Config) (*mock.MockExchange, *mock.MockExchange) {
	buying := mock.NewMockExchange(cfg.App.BuyingExchange, cfg.Strategy.MarketAsset)
	selling := mock.NewMockExchange(cfg.App.SellingExchange, cfg.Strategy.MarketAsset)
	for _, ex := range []*mock.MockExchange{buying, selling} {
		ex.SetBalance(cfg.Strategy.CashAsset, decimal.NewFromInt(100000))
		ex.SetBalance(cfg.Strategy.MarketAsset, decimal.NewFromInt(5))
	}
	return buying, selling
}

// syntheticBars generates a random walk with occasional cross-venue
// dislocations so both entry and exit rules get exercised
func syntheticBars(n int, seed int64) []backtest.Bar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]backtest.Bar, 0, n)

	base := 100.0
	ts := time.Now().Add(-time.Duration(n) * time.Minute)
	for i := 0; i < n; i++ {
		base += (rng.Float64() - 0.5) * 2

		// Dislocation between the venues, usually small, sometimes wide
		gap := (rng.Float64() - 0.4) * 0.02
		if rng.Float64() < 0.05 {
			gap = 0.03 + rng.Float64()*0.04
		}

		bars = append(bars, backtest.Bar{
			Timestamp: ts.Add(time.Duration(i) * time.Minute),
			BuyPrice:  decimal.NewFromFloat(base),
			SellPrice: decimal.NewFromFloat(base * (1 + gap)),
		})
	}
	return bars
}
