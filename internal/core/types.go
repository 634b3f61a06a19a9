package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the direction of an order
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderStatus is the lifecycle state of an order on a venue
type OrderStatus string

const (
	OrderStatusNew      OrderStatus = "NEW"
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusCanceled OrderStatus = "CANCELED"
	OrderStatusRejected OrderStatus = "REJECTED"
)

// Quote is one venue's latest price for an instrument at a single tick
type Quote struct {
	Exchange   string
	Instrument string
	Price      decimal.Decimal
	Timestamp  time.Time
}

// OrderIntent is the engine's output artifact. Amount is signed:
// positive buys, negative sells.
type OrderIntent struct {
	Exchange   string
	Instrument string
	Amount     decimal.Decimal
	LimitPrice decimal.Decimal
}

// Side derives the order side from the sign of Amount
func (i OrderIntent) Side() OrderSide {
	if i.Amount.IsNegative() {
		return OrderSideSell
	}
	return OrderSideBuy
}

// Quantity returns the unsigned order size
func (i OrderIntent) Quantity() decimal.Decimal {
	return i.Amount.Abs()
}

// TickSnapshot carries the already-resolved inputs for one decision tick.
// Balances and open-order counts are read by the harness before each tick;
// the strategy itself performs no I/O.
type TickSnapshot struct {
	BuyQuote   Quote
	SellQuote  Quote
	OpenOrders map[string]int
	// Balances maps exchange name -> asset -> free balance
	Balances map[string]map[string]decimal.Decimal
}

// TickRecord is the journaled outcome of one decision tick
type TickRecord struct {
	Timestamp  time.Time
	BuyPrice   decimal.Decimal
	SellPrice  decimal.Decimal
	Gap        decimal.Decimal
	Action     string
	Amount     decimal.Decimal
	Suppressed bool
	Intents    []OrderIntent
}

// PlaceOrderRequest is a request to place a limit order on a venue
type PlaceOrderRequest struct {
	Instrument    string
	Side          OrderSide
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	ClientOrderID string
}

// Order represents an order as known by a venue
type Order struct {
	OrderID       int64
	ClientOrderID string
	Instrument    string
	Side          OrderSide
	Status        OrderStatus
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	ExecutedQty   decimal.Decimal
	UpdateTime    int64
}

// IsOpen reports whether the order is still resting on the venue
func (o *Order) IsOpen() bool {
	return o.Status == OrderStatusNew
}
