// Package arbitrage implements the cross-exchange gap arbitrage decision logic
package arbitrage

import (
	"context"
	"fmt"
	"strings"

	"arb_engine/internal/core"
	"arb_engine/pkg/telemetry"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// Config holds the parameters for the arbitrage strategy
type Config struct {
	Pair            string
	Buying          Venue
	Selling         Venue
	MarketAsset     string
	CashAsset       string
	EntryRules      []ThresholdRule
	ExitRules       []ThresholdRule
	MaxPositions    int
	SlippageAllowed decimal.Decimal
}

// Strategy is the pure per-tick decision engine. It consumes a TickSnapshot
// of already-resolved venue data and emits either zero or two order intents.
// It performs no I/O and carries no state between ticks.
type Strategy struct {
	cfg      Config
	selector *TriggerSelector
	sizer    *OrderSizer
	logger   core.ILogger

	ticksTotal      metric.Int64Counter
	ticksSuppressed metric.Int64Counter
	intentsEmitted  metric.Int64Counter
	amountClamped   metric.Int64Counter
}

// New validates the configuration and builds the strategy
func New(cfg Config, logger core.ILogger) (*Strategy, error) {
	if cfg.Buying.Name == "" || cfg.Selling.Name == "" {
		return nil, fmt.Errorf("both venues must be named")
	}
	if cfg.Buying.Name == cfg.Selling.Name {
		return nil, fmt.Errorf("buying and selling venue must be distinct: %s", cfg.Buying.Name)
	}
	// Empty rule tables are valid: the selector then always yields no action
	for _, r := range append(append([]ThresholdRule{}, cfg.EntryRules...), cfg.ExitRules...) {
		if r.Amount.Sign() <= 0 {
			return nil, fmt.Errorf("rule amount must be positive, got %s at threshold %s", r.Amount, r.GapThreshold)
		}
	}
	if cfg.SlippageAllowed.IsNegative() || cfg.SlippageAllowed.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("slippage must be in [0, 1), got %s", cfg.SlippageAllowed)
	}
	if cfg.MaxPositions <= 0 {
		return nil, fmt.Errorf("max positions must be positive, got %d", cfg.MaxPositions)
	}

	meter := telemetry.GetMeter("arb_engine.strategy")
	ticksTotal, err := meter.Int64Counter(telemetry.MetricTicksTotal)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	ticksSuppressed, err := meter.Int64Counter(telemetry.MetricTicksSuppressedTotal)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	intentsEmitted, err := meter.Int64Counter(telemetry.MetricIntentsEmittedTotal)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}
	amountClamped, err := meter.Int64Counter(telemetry.MetricAmountClampedTotal)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter: %w", err)
	}

	return &Strategy{
		cfg:             cfg,
		selector:        NewTriggerSelector(cfg.EntryRules, cfg.ExitRules),
		sizer:           NewOrderSizer(cfg.Buying, cfg.Selling, cfg.MarketAsset, cfg.CashAsset, cfg.SlippageAllowed, logger),
		logger:          logger.WithField("component", "arbitrage_strategy"),
		ticksTotal:      ticksTotal,
		ticksSuppressed: ticksSuppressed,
		intentsEmitted:  intentsEmitted,
		amountClamped:   amountClamped,
	}, nil
}

// OnTick evaluates one decision tick. It returns either zero or two intents
// of equal magnitude and opposite sign. Per-tick failures are absorbed and
// logged; the run continues on the next tick.
func (s *Strategy) OnTick(ctx context.Context, snap core.TickSnapshot) []core.OrderIntent {
	s.ticksTotal.Add(ctx, 1)

	metrics := telemetry.GetGlobalMetrics()
	for _, venue := range []string{s.cfg.Buying.Name, s.cfg.Selling.Name} {
		metrics.SetOpenOrders(venue, int64(snap.OpenOrders[venue]))
	}

	// An unresolved order on either venue suppresses the whole tick
	if snap.OpenOrders[s.cfg.Buying.Name] > 0 || snap.OpenOrders[s.cfg.Selling.Name] > 0 {
		s.ticksSuppressed.Add(ctx, 1)
		s.logger.Info("Open orders pending, tick suppressed",
			"buying_open", snap.OpenOrders[s.cfg.Buying.Name],
			"selling_open", snap.OpenOrders[s.cfg.Selling.Name])
		return nil
	}

	gap, err := ComputeGap(snap.BuyQuote.Price, snap.SellQuote.Price)
	if err != nil {
		s.logger.Warn("Skipping tick", "error", err.Error(), "buy_price", snap.BuyQuote.Price)
		return nil
	}
	gapFloat, _ := gap.Float64()
	metrics.SetGap(s.cfg.Pair, gapFloat)

	action, amount := s.selector.Select(gap)
	if action == ActionNone {
		s.logger.Debug("No trigger fired", "gap", gap)
		return nil
	}

	intents, clamped, err := s.sizer.Size(action, amount, snap.BuyQuote.Price, snap.SellQuote.Price, snap.Balances)
	if clamped {
		s.amountClamped.Add(ctx, 1)
	}
	if err != nil {
		s.logger.Warn("Trade aborted", "action", action.String(), "gap", gap, "error", err.Error())
		return nil
	}
	if len(intents) == 0 {
		return nil
	}

	s.intentsEmitted.Add(ctx, int64(len(intents)))
	s.logger.Info("Trade triggered",
		"action", action.String(),
		"gap", gap,
		"amount", intents[0].Quantity(),
		"buy_limit", intents[0].LimitPrice,
		"sell_limit", intents[1].LimitPrice)
	return intents
}

// Describe returns a human-readable summary of the configured rules
func (s *Strategy) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pair %s: buy on %s (%s), sell on %s (%s)\n",
		s.cfg.Pair,
		s.cfg.Buying.Name, s.cfg.Buying.Instrument,
		s.cfg.Selling.Name, s.cfg.Selling.Instrument)
	fmt.Fprintf(&b, "slippage %s, max positions %d\n", s.cfg.SlippageAllowed, s.cfg.MaxPositions)
	for _, r := range s.selector.entries {
		fmt.Fprintf(&b, "enter %s when gap > %s\n", r.Amount, r.GapThreshold)
	}
	for _, r := range s.selector.exits {
		fmt.Fprintf(&b, "exit %s when gap < %s\n", r.Amount, r.GapThreshold)
	}
	return b.String()
}
