package arbitrage_test

import (
	"testing"

	"arb_engine/internal/strategy/arbitrage"
	apperrors "arb_engine/pkg/errors"
	"arb_engine/pkg/logging"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	buying  = arbitrage.Venue{Name: "poloniex", Instrument: "BTC_USDT"}
	selling = arbitrage.Venue{Name: "bitfinex", Instrument: "tBTCUSD"}
)

func newTestSizer(slippage float64) *arbitrage.OrderSizer {
	return arbitrage.NewOrderSizer(buying, selling, "BTC", "USDT",
		decimal.NewFromFloat(slippage), logging.GetGlobalLogger())
}

func balances(buyCash, buyMarket, sellCash, sellMarket float64) map[string]map[string]decimal.Decimal {
	return map[string]map[string]decimal.Decimal{
		"poloniex": {
			"USDT": decimal.NewFromFloat(buyCash),
			"BTC":  decimal.NewFromFloat(buyMarket),
		},
		"bitfinex": {
			"USDT": decimal.NewFromFloat(sellCash),
			"BTC":  decimal.NewFromFloat(sellMarket),
		},
	}
}

func TestOrderSizer_Enter(t *testing.T) {
	sizer := newTestSizer(0.02)

	intents, clamped, err := sizer.Size(
		arbitrage.ActionEnter,
		decimal.NewFromFloat(0.5),
		decimal.NewFromInt(100), decimal.NewFromInt(110),
		balances(1000, 0, 0, 2),
	)
	require.NoError(t, err)
	require.Len(t, intents, 2)
	assert.False(t, clamped)

	buy, sell := intents[0], intents[1]
	assert.Equal(t, "poloniex", buy.Exchange)
	assert.Equal(t, "BTC_USDT", buy.Instrument)
	assert.True(t, decimal.NewFromFloat(0.5).Equal(buy.Amount), "got %s", buy.Amount)
	assert.True(t, decimal.NewFromInt(102).Equal(buy.LimitPrice), "got %s", buy.LimitPrice)

	assert.Equal(t, "bitfinex", sell.Exchange)
	assert.Equal(t, "tBTCUSD", sell.Instrument)
	assert.True(t, decimal.NewFromFloat(-0.5).Equal(sell.Amount), "got %s", sell.Amount)
	assert.True(t, decimal.NewFromFloat(107.8).Equal(sell.LimitPrice), "got %s", sell.LimitPrice)
}

func TestOrderSizer_ExitInvertsRoles(t *testing.T) {
	sizer := newTestSizer(0.02)

	intents, clamped, err := sizer.Size(
		arbitrage.ActionExit,
		decimal.NewFromFloat(0.5),
		decimal.NewFromInt(100), decimal.NewFromInt(90),
		balances(0, 2, 1000, 0),
	)
	require.NoError(t, err)
	require.Len(t, intents, 2)
	assert.False(t, clamped)

	// Exiting buys back on the selling venue and sells on the buying venue
	buy, sell := intents[0], intents[1]
	assert.Equal(t, "bitfinex", buy.Exchange)
	assert.True(t, decimal.NewFromFloat(0.5).Equal(buy.Amount), "got %s", buy.Amount)
	assert.True(t, decimal.NewFromFloat(91.8).Equal(buy.LimitPrice), "got %s", buy.LimitPrice)

	assert.Equal(t, "poloniex", sell.Exchange)
	assert.True(t, decimal.NewFromFloat(-0.5).Equal(sell.Amount), "got %s", sell.Amount)
	assert.True(t, decimal.NewFromInt(98).Equal(sell.LimitPrice), "got %s", sell.LimitPrice)
}

func TestOrderSizer_CashShortfallClamps(t *testing.T) {
	sizer := newTestSizer(0)

	// 100 USDT at price 10 covers 10 units, not the requested 20
	intents, clamped, err := sizer.Size(
		arbitrage.ActionEnter,
		decimal.NewFromInt(20),
		decimal.NewFromInt(10), decimal.NewFromInt(11),
		balances(100, 0, 0, 50),
	)
	require.NoError(t, err)
	require.Len(t, intents, 2)
	assert.True(t, clamped)
	assert.True(t, decimal.NewFromInt(10).Equal(intents[0].Amount), "got %s", intents[0].Amount)
	assert.True(t, decimal.NewFromInt(-10).Equal(intents[1].Amount), "got %s", intents[1].Amount)
}

func TestOrderSizer_InventoryShortfallAborts(t *testing.T) {
	sizer := newTestSizer(0)

	intents, clamped, err := sizer.Size(
		arbitrage.ActionEnter,
		decimal.NewFromInt(2),
		decimal.NewFromInt(10), decimal.NewFromInt(11),
		balances(1000, 0, 0, 1),
	)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientInventory)
	assert.False(t, clamped)
	assert.Nil(t, intents)
}

func TestOrderSizer_ZeroInventoryAborts(t *testing.T) {
	sizer := newTestSizer(0)

	intents, _, err := sizer.Size(
		arbitrage.ActionEnter,
		decimal.NewFromInt(1),
		decimal.NewFromInt(10), decimal.NewFromInt(11),
		balances(1000, 0, 0, 0),
	)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientInventory)
	assert.Nil(t, intents)
}

func TestOrderSizer_CashCheckPrecedesInventory(t *testing.T) {
	sizer := newTestSizer(0)

	// Short on both sides: the cash clamp wins and the trade still goes out
	intents, clamped, err := sizer.Size(
		arbitrage.ActionEnter,
		decimal.NewFromInt(20),
		decimal.NewFromInt(10), decimal.NewFromInt(11),
		balances(100, 0, 0, 1),
	)
	require.NoError(t, err)
	require.Len(t, intents, 2)
	assert.True(t, clamped)
	assert.True(t, decimal.NewFromInt(10).Equal(intents[0].Amount), "got %s", intents[0].Amount)
}

func TestOrderSizer_ZeroCashSkips(t *testing.T) {
	sizer := newTestSizer(0)

	intents, clamped, err := sizer.Size(
		arbitrage.ActionEnter,
		decimal.NewFromInt(1),
		decimal.NewFromInt(10), decimal.NewFromInt(11),
		balances(0, 0, 0, 50),
	)
	require.NoError(t, err)
	assert.True(t, clamped)
	assert.Empty(t, intents)
}

func TestOrderSizer_ZeroInventoryAbortsEvenWhenCashIsShort(t *testing.T) {
	sizer := newTestSizer(0)

	// Short on cash AND holding no inventory: the empty sell side wins
	intents, clamped, err := sizer.Size(
		arbitrage.ActionEnter,
		decimal.NewFromInt(20),
		decimal.NewFromInt(10), decimal.NewFromInt(11),
		balances(100, 0, 0, 0),
	)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientInventory)
	assert.False(t, clamped)
	assert.Nil(t, intents)
}

func TestOrderSizer_MissingVenueBalancesTreatedAsZero(t *testing.T) {
	sizer := newTestSizer(0)

	intents, _, err := sizer.Size(
		arbitrage.ActionEnter,
		decimal.NewFromInt(1),
		decimal.NewFromInt(10), decimal.NewFromInt(11),
		map[string]map[string]decimal.Decimal{},
	)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientInventory)
	assert.Nil(t, intents)
}

func TestOrderSizer_NoneActionEmitsNothing(t *testing.T) {
	sizer := newTestSizer(0)

	intents, clamped, err := sizer.Size(
		arbitrage.ActionNone,
		decimal.NewFromInt(1),
		decimal.NewFromInt(10), decimal.NewFromInt(11),
		balances(1000, 1, 1000, 1),
	)
	require.NoError(t, err)
	assert.False(t, clamped)
	assert.Empty(t, intents)
}
