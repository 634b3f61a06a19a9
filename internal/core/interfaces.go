// Package core defines the shared types and interfaces of the arbitrage engine
package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// IExchange defines the venue surface the engine consumes
type IExchange interface {
	// Identity
	GetName() string
	GetBaseAsset() string

	// Account operations
	GetBalance(ctx context.Context, asset string) (decimal.Decimal, error)

	// Order operations
	PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*Order, error)
	GetOpenOrders(ctx context.Context, instrument string) ([]*Order, error)

	// Market data
	GetLatestPrice(ctx context.Context, instrument string) (decimal.Decimal, error)
}

// ITickJournal records decision outcomes for later inspection
type ITickJournal interface {
	Record(rec *TickRecord)
	Close() error
}

// ILogger defines the interface for logging
type ILogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	WithField(key string, value interface{}) ILogger
	WithFields(fields map[string]interface{}) ILogger
}
