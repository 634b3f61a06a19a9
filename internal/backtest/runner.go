// Package backtest drives the strategy over a recorded price series
package backtest

import (
	"context"
	"fmt"
	"time"

	"arb_engine/internal/core"
	"arb_engine/internal/execution"
	"arb_engine/internal/mock"
	"arb_engine/internal/strategy/arbitrage"

	"github.com/shopspring/decimal"
)

// Bar is one step of the price series: the two venue prices at an instant
type Bar struct {
	Timestamp time.Time
	BuyPrice  decimal.Decimal
	SellPrice decimal.Decimal
}

// Result summarizes a backtest run
type Result struct {
	TicksProcessed   int
	TicksSuppressed  int
	IntentsSubmitted int
}

// Runner replays bars against mock venues, assembling each TickSnapshot the
// way the live harness would: balances and open orders are read back from
// the venues before every tick.
type Runner struct {
	strategy    *arbitrage.Strategy
	buying      *mock.MockExchange
	selling     *mock.MockExchange
	buyInstr    string
	sellInstr   string
	marketAsset string
	cashAsset   string
	submitter   *execution.Submitter
	journal     core.ITickJournal
	logger      core.ILogger

	// FillAfterTicks delays simulated fills by that many ticks so resting
	// orders exercise the open-order gate. Zero fills immediately.
	FillAfterTicks int
}

// NewRunner wires a backtest over the two mock venues
func NewRunner(
	strategy *arbitrage.Strategy,
	buying, selling *mock.MockExchange,
	buyInstr, sellInstr, marketAsset, cashAsset string,
	journal core.ITickJournal,
	logger core.ILogger,
) *Runner {
	return &Runner{
		strategy:    strategy,
		buying:      buying,
		selling:     selling,
		buyInstr:    buyInstr,
		sellInstr:   sellInstr,
		marketAsset: marketAsset,
		cashAsset:   cashAsset,
		submitter:   execution.NewSubmitter([]core.IExchange{buying, selling}, logger),
		journal:     journal,
		logger:      logger.WithField("component", "backtest_runner"),
	}
}

// Submitter exposes the order submitter so callers can attach an alerter
func (r *Runner) Submitter() *execution.Submitter {
	return r.submitter
}

// Run replays the bars in order and returns the run summary
func (r *Runner) Run(ctx context.Context, bars []Bar) (*Result, error) {
	result := &Result{}
	pendingFill := 0

	for _, bar := range bars {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		r.buying.SetPrice(r.buyInstr, bar.BuyPrice)
		r.selling.SetPrice(r.sellInstr, bar.SellPrice)

		snap, err := r.snapshot(ctx, bar)
		if err != nil {
			return result, fmt.Errorf("failed to assemble snapshot: %w", err)
		}

		suppressed := snap.OpenOrders[r.buying.GetName()] > 0 || snap.OpenOrders[r.selling.GetName()] > 0
		intents := r.strategy.OnTick(ctx, snap)
		result.TicksProcessed++
		if suppressed {
			result.TicksSuppressed++
		}

		if r.journal != nil {
			r.journal.Record(r.buildRecord(bar, snap, suppressed, intents))
		}

		if len(intents) > 0 {
			if _, err := r.submitter.Submit(ctx, intents); err != nil {
				r.logger.Warn("Order submission failed", "error", err.Error())
			} else {
				result.IntentsSubmitted += len(intents)
				pendingFill = r.FillAfterTicks
			}
		}

		if pendingFill > 0 {
			pendingFill--
			continue
		}
		r.buying.FillAllOpen(r.cashAsset)
		r.selling.FillAllOpen(r.cashAsset)
	}

	return result, nil
}

// snapshot reads the per-tick inputs back from the venues
func (r *Runner) snapshot(ctx context.Context, bar Bar) (core.TickSnapshot, error) {
	snap := core.TickSnapshot{
		BuyQuote: core.Quote{
			Exchange:   r.buying.GetName(),
			Instrument: r.buyInstr,
			Price:      bar.BuyPrice,
			Timestamp:  bar.Timestamp,
		},
		SellQuote: core.Quote{
			Exchange:   r.selling.GetName(),
			Instrument: r.sellInstr,
			Price:      bar.SellPrice,
			Timestamp:  bar.Timestamp,
		},
		OpenOrders: make(map[string]int, 2),
		Balances:   make(map[string]map[string]decimal.Decimal, 2),
	}

	for _, venue := range []struct {
		ex    *mock.MockExchange
		instr string
	}{
		{r.buying, r.buyInstr},
		{r.selling, r.sellInstr},
	} {
		open, err := venue.ex.GetOpenOrders(ctx, venue.instr)
		if err != nil {
			return snap, err
		}
		snap.OpenOrders[venue.ex.GetName()] = len(open)

		balances := make(map[string]decimal.Decimal, 2)
		for _, asset := range []string{r.marketAsset, r.cashAsset} {
			bal, err := venue.ex.GetBalance(ctx, asset)
			if err != nil {
				return snap, err
			}
			balances[asset] = bal
		}
		snap.Balances[venue.ex.GetName()] = balances
	}

	return snap, nil
}

func (r *Runner) buildRecord(bar Bar, snap core.TickSnapshot, suppressed bool, intents []core.OrderIntent) *core.TickRecord {
	rec := &core.TickRecord{
		Timestamp:  bar.Timestamp,
		BuyPrice:   bar.BuyPrice,
		SellPrice:  bar.SellPrice,
		Action:     arbitrage.ActionNone.String(),
		Amount:     decimal.Zero,
		Suppressed: suppressed,
		Intents:    intents,
	}
	if gap, err := arbitrage.ComputeGap(bar.BuyPrice, bar.SellPrice); err == nil {
		rec.Gap = gap
	}
	if len(intents) > 0 {
		rec.Amount = intents[0].Quantity()
		if intents[0].Exchange == r.buying.GetName() {
			rec.Action = arbitrage.ActionEnter.String()
		} else {
			rec.Action = arbitrage.ActionExit.String()
		}
	}
	return rec
}
