package arbitrage

import (
	"fmt"

	"arb_engine/internal/core"
	apperrors "arb_engine/pkg/errors"

	"github.com/shopspring/decimal"
)

// Venue identifies one side of the arbitrage pair
type Venue struct {
	Name       string
	Instrument string
}

// OrderSizer maps a trade action to a pair of sized order intents.
// Entering buys on the buying venue and sells on the selling venue;
// exiting inverts the roles.
type OrderSizer struct {
	buying      Venue
	selling     Venue
	marketAsset string
	cashAsset   string
	slippage    decimal.Decimal
	logger      core.ILogger
}

// NewOrderSizer creates a sizer for the configured venue pair
func NewOrderSizer(buying, selling Venue, marketAsset, cashAsset string, slippage decimal.Decimal, logger core.ILogger) *OrderSizer {
	return &OrderSizer{
		buying:      buying,
		selling:     selling,
		marketAsset: marketAsset,
		cashAsset:   cashAsset,
		slippage:    slippage,
		logger:      logger.WithField("component", "order_sizer"),
	}
}

// Size resolves the venue roles for the action, clamps the amount against
// available balances and returns the two opposite-signed intents. The
// returned flag reports whether the amount was clamped by available cash.
//
// An empty sell-side inventory aborts the trade outright. Otherwise a cash
// shortfall on the buy side shrinks the amount to what the cash covers, and
// a partial inventory shortfall aborts only when the cash was sufficient.
func (s *OrderSizer) Size(
	action TradeAction,
	amount decimal.Decimal,
	buyingPrice, sellingPrice decimal.Decimal,
	balances map[string]map[string]decimal.Decimal,
) ([]core.OrderIntent, bool, error) {

	if action == ActionNone {
		return nil, false, nil
	}

	var buyVenue, sellVenue Venue
	var buyPrice, sellPrice decimal.Decimal
	switch action {
	case ActionEnter:
		buyVenue, buyPrice = s.buying, buyingPrice
		sellVenue, sellPrice = s.selling, sellingPrice
	case ActionExit:
		buyVenue, buyPrice = s.selling, sellingPrice
		sellVenue, sellPrice = s.buying, buyingPrice
	}

	cashAvail := s.balance(balances, buyVenue.Name, s.cashAsset)
	marketAvail := s.balance(balances, sellVenue.Name, s.marketAsset)

	// No inventory at all on the sell side aborts outright, before the cash
	// clamp is even considered
	if marketAvail.Sign() <= 0 {
		return nil, false, fmt.Errorf("%w: %s holds no %s",
			apperrors.ErrInsufficientInventory, sellVenue.Name, s.marketAsset)
	}

	clamped := false
	if cashAvail.LessThan(amount.Mul(buyPrice)) {
		clampedAmount := cashAvail.Div(buyPrice)
		s.logger.Warn("Clamping trade amount",
			"reason", apperrors.ErrInsufficientCash.Error(),
			"exchange", buyVenue.Name,
			"cash_available", cashAvail,
			"requested_amount", amount,
			"clamped_amount", clampedAmount)
		amount = clampedAmount
		clamped = true
	} else if marketAvail.LessThan(amount) {
		return nil, false, fmt.Errorf("%w: %s has %s %s, need %s",
			apperrors.ErrInsufficientInventory,
			sellVenue.Name, marketAvail, s.marketAsset, amount)
	}

	if amount.Sign() <= 0 {
		s.logger.Warn("Trade amount clamped to zero, skipping",
			"exchange", buyVenue.Name, "cash_available", cashAvail)
		return nil, clamped, nil
	}

	one := decimal.NewFromInt(1)
	intents := []core.OrderIntent{
		{
			Exchange:   buyVenue.Name,
			Instrument: buyVenue.Instrument,
			Amount:     amount,
			LimitPrice: buyPrice.Mul(one.Add(s.slippage)),
		},
		{
			Exchange:   sellVenue.Name,
			Instrument: sellVenue.Instrument,
			Amount:     amount.Neg(),
			LimitPrice: sellPrice.Mul(one.Sub(s.slippage)),
		},
	}
	return intents, clamped, nil
}

func (s *OrderSizer) balance(balances map[string]map[string]decimal.Decimal, exchange, asset string) decimal.Decimal {
	if venue, ok := balances[exchange]; ok {
		return venue[asset]
	}
	return decimal.Zero
}
