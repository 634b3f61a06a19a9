// Package mock provides an in-memory IExchange double for tests and backtests
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"arb_engine/internal/core"

	"github.com/shopspring/decimal"
)

// MockExchange implements core.IExchange with settable balances and prices
type MockExchange struct {
	name      string
	baseAsset string

	mu             sync.RWMutex
	orders         map[int64]*core.Order
	orderIDCounter int64
	clientOrderMap map[string]int64
	balances       map[string]decimal.Decimal
	prices         map[string]decimal.Decimal
}

func NewMockExchange(name, baseAsset string) *MockExchange {
	return &MockExchange{
		name:           name,
		baseAsset:      baseAsset,
		orders:         make(map[int64]*core.Order),
		orderIDCounter: 1000,
		clientOrderMap: make(map[string]int64),
		balances:       make(map[string]decimal.Decimal),
		prices:         make(map[string]decimal.Decimal),
	}
}

func (m *MockExchange) GetName() string {
	return m.name
}

func (m *MockExchange) GetBaseAsset() string {
	return m.baseAsset
}

// SetBalance sets the free balance for an asset
func (m *MockExchange) SetBalance(asset string, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[asset] = amount
}

// SetPrice sets the latest price for an instrument
func (m *MockExchange) SetPrice(instrument string, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[instrument] = price
}

func (m *MockExchange) GetBalance(ctx context.Context, asset string) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[asset], nil
}

func (m *MockExchange) GetLatestPrice(ctx context.Context, instrument string) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	price, ok := m.prices[instrument]
	if !ok {
		return decimal.Zero, fmt.Errorf("no price set for %s", instrument)
	}
	return price, nil
}

// PlaceOrder places a resting limit order into the mock exchange
func (m *MockExchange) PlaceOrder(ctx context.Context, req *core.PlaceOrderRequest) (*core.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Idempotency: if client order ID already exists, return the existing order
	if req.ClientOrderID != "" {
		if existingID, exists := m.clientOrderMap[req.ClientOrderID]; exists {
			if existingOrder, ok := m.orders[existingID]; ok {
				return existingOrder, nil
			}
		}
	}

	m.orderIDCounter++
	order := &core.Order{
		OrderID:       m.orderIDCounter,
		ClientOrderID: req.ClientOrderID,
		Instrument:    req.Instrument,
		Side:          req.Side,
		Status:        core.OrderStatusNew,
		Price:         req.Price,
		Quantity:      req.Quantity,
		ExecutedQty:   decimal.Zero,
		UpdateTime:    time.Now().UnixMilli(),
	}

	m.orders[order.OrderID] = order
	if order.ClientOrderID != "" {
		m.clientOrderMap[order.ClientOrderID] = order.OrderID
	}

	return order, nil
}

func (m *MockExchange) GetOpenOrders(ctx context.Context, instrument string) ([]*core.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var orders []*core.Order
	for _, order := range m.orders {
		if order.Instrument == instrument && order.IsOpen() {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

// GetOrders returns all orders ever placed
func (m *MockExchange) GetOrders() []*core.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	orders := make([]*core.Order, 0, len(m.orders))
	for _, o := range m.orders {
		orders = append(orders, o)
	}
	return orders
}

// SimulateOrderFill fills an open order at its limit price, adjusting the
// cash and market asset balances accordingly
func (m *MockExchange) SimulateOrderFill(orderID int64, cashAsset string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, exists := m.orders[orderID]
	if !exists {
		return fmt.Errorf("order not found: %d", orderID)
	}
	if !order.IsOpen() {
		return fmt.Errorf("cannot fill order in status %s", order.Status)
	}

	order.Status = core.OrderStatusFilled
	order.ExecutedQty = order.Quantity
	order.UpdateTime = time.Now().UnixMilli()

	notional := order.Quantity.Mul(order.Price)
	if order.Side == core.OrderSideBuy {
		m.balances[m.baseAsset] = m.balances[m.baseAsset].Add(order.Quantity)
		m.balances[cashAsset] = m.balances[cashAsset].Sub(notional)
	} else {
		m.balances[m.baseAsset] = m.balances[m.baseAsset].Sub(order.Quantity)
		m.balances[cashAsset] = m.balances[cashAsset].Add(notional)
	}

	return nil
}

// FillAllOpen fills every open order on the venue
func (m *MockExchange) FillAllOpen(cashAsset string) {
	m.mu.RLock()
	var ids []int64
	for id, order := range m.orders {
		if order.IsOpen() {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.SimulateOrderFill(id, cashAsset)
	}
}
