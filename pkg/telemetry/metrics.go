package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names. Counters are created at point of use via GetMeter; the
// observable gauges live on the MetricsHolder singleton.
const (
	MetricGap                  = "arb_engine_gap"
	MetricTicksTotal           = "arb_engine_ticks_total"
	MetricTicksSuppressedTotal = "arb_engine_ticks_suppressed_total"
	MetricIntentsEmittedTotal  = "arb_engine_intents_emitted_total"
	MetricAmountClampedTotal   = "arb_engine_amount_clamped_total"
	MetricOrdersPlacedTotal    = "arb_engine_orders_placed_total"
	MetricOrdersFailedTotal    = "arb_engine_orders_failed_total"
	MetricOpenOrders           = "arb_engine_open_orders"
)

// MetricsHolder holds the observable gauge instruments and their state
type MetricsHolder struct {
	Gap        metric.Float64ObservableGauge
	OpenOrders metric.Int64ObservableGauge

	mu            sync.RWMutex
	gapMap        map[string]float64
	openOrdersMap map[string]int64
}

var (
	globalMetrics *MetricsHolder
	initOnce      sync.Once
)

// GetGlobalMetrics returns the singleton metrics holder
func GetGlobalMetrics() *MetricsHolder {
	initOnce.Do(func() {
		globalMetrics = &MetricsHolder{
			gapMap:        make(map[string]float64),
			openOrdersMap: make(map[string]int64),
		}
		// Initialization of instruments happens in InitMetrics
	})
	return globalMetrics
}

// InitMetrics initializes instruments using the meter
func (m *MetricsHolder) InitMetrics(meter metric.Meter) error {
	var err error

	m.Gap, err = meter.Float64ObservableGauge(MetricGap, metric.WithDescription("Latest relative price gap between the two venues"),
		metric.WithFloat64Callback(func(ctx context.Context, obs metric.Float64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for pair, val := range m.gapMap {
				obs.Observe(val, metric.WithAttributes(attribute.String("pair", pair)))
			}
			return nil
		}))
	if err != nil {
		return err
	}

	m.OpenOrders, err = meter.Int64ObservableGauge(MetricOpenOrders, metric.WithDescription("Open orders per venue at the last tick"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			m.mu.RLock()
			defer m.mu.RUnlock()
			for venue, val := range m.openOrdersMap {
				obs.Observe(val, metric.WithAttributes(attribute.String("exchange", venue)))
			}
			return nil
		}))
	if err != nil {
		return err
	}

	return nil
}

// Helpers to update observable state

func (m *MetricsHolder) SetGap(pair string, gap float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gapMap[pair] = gap
}

func (m *MetricsHolder) SetOpenOrders(exchange string, count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openOrdersMap[exchange] = count
}

func (m *MetricsHolder) GetGap() map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make(map[string]float64)
	for k, v := range m.gapMap {
		res[k] = v
	}
	return res
}

func (m *MetricsHolder) GetOpenOrders() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make(map[string]int64)
	for k, v := range m.openOrdersMap {
		res[k] = v
	}
	return res
}
