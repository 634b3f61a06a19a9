package mock

import (
	"context"
	"testing"

	"arb_engine/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlaceOrderRequest(instrument, clientID string, side core.OrderSide) *core.PlaceOrderRequest {
	return &core.PlaceOrderRequest{
		Instrument:    instrument,
		Side:          side,
		Price:         decimal.NewFromInt(100),
		Quantity:      decimal.NewFromFloat(0.5),
		ClientOrderID: clientID,
	}
}

// Verifies that a duplicate client order ID does not create a second order
func TestMockExchange_IdempotentClientOrderID(t *testing.T) {
	ex := NewMockExchange("test", "BTC")
	req := newPlaceOrderRequest("BTC_USDT", "client-123", core.OrderSideBuy)

	order1, err := ex.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	order2, err := ex.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, order1.OrderID, order2.OrderID)

	open, err := ex.GetOpenOrders(context.Background(), "BTC_USDT")
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestMockExchange_GetLatestPrice(t *testing.T) {
	ex := NewMockExchange("test", "BTC")

	_, err := ex.GetLatestPrice(context.Background(), "BTC_USDT")
	assert.Error(t, err)

	ex.SetPrice("BTC_USDT", decimal.NewFromInt(105))
	price, err := ex.GetLatestPrice(context.Background(), "BTC_USDT")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(105)))
}

func TestMockExchange_FillAdjustsBalances(t *testing.T) {
	ex := NewMockExchange("test", "BTC")
	ex.SetBalance("USDT", decimal.NewFromInt(1000))
	ex.SetBalance("BTC", decimal.NewFromInt(1))

	order, err := ex.PlaceOrder(context.Background(), newPlaceOrderRequest("BTC_USDT", "buy-1", core.OrderSideBuy))
	require.NoError(t, err)

	require.NoError(t, ex.SimulateOrderFill(order.OrderID, "USDT"))

	cash, _ := ex.GetBalance(context.Background(), "USDT")
	market, _ := ex.GetBalance(context.Background(), "BTC")
	assert.True(t, cash.Equal(decimal.NewFromInt(950)), "cash: %s", cash)
	assert.True(t, market.Equal(decimal.NewFromFloat(1.5)), "market: %s", market)

	// Filling again is rejected
	assert.Error(t, ex.SimulateOrderFill(order.OrderID, "USDT"))

	open, err := ex.GetOpenOrders(context.Background(), "BTC_USDT")
	require.NoError(t, err)
	assert.Empty(t, open)
}

func TestMockExchange_SellFill(t *testing.T) {
	ex := NewMockExchange("test", "BTC")
	ex.SetBalance("USDT", decimal.NewFromInt(1000))
	ex.SetBalance("BTC", decimal.NewFromInt(1))

	order, err := ex.PlaceOrder(context.Background(), newPlaceOrderRequest("BTC_USDT", "sell-1", core.OrderSideSell))
	require.NoError(t, err)
	require.NoError(t, ex.SimulateOrderFill(order.OrderID, "USDT"))

	cash, _ := ex.GetBalance(context.Background(), "USDT")
	market, _ := ex.GetBalance(context.Background(), "BTC")
	assert.True(t, cash.Equal(decimal.NewFromInt(1050)))
	assert.True(t, market.Equal(decimal.NewFromFloat(0.5)))
}

func TestMockExchange_FillAllOpen(t *testing.T) {
	ex := NewMockExchange("test", "BTC")
	ex.SetBalance("USDT", decimal.NewFromInt(1000))
	ex.SetBalance("BTC", decimal.NewFromInt(2))

	_, err := ex.PlaceOrder(context.Background(), newPlaceOrderRequest("BTC_USDT", "a", core.OrderSideBuy))
	require.NoError(t, err)
	_, err = ex.PlaceOrder(context.Background(), newPlaceOrderRequest("BTC_USDT", "b", core.OrderSideSell))
	require.NoError(t, err)

	ex.FillAllOpen("USDT")

	open, err := ex.GetOpenOrders(context.Background(), "BTC_USDT")
	require.NoError(t, err)
	assert.Empty(t, open)
	assert.Len(t, ex.GetOrders(), 2)
}
