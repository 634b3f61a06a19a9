// Package execution turns order intents into exchange orders
package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arb_engine/internal/alert"
	"arb_engine/internal/core"
	apperrors "arb_engine/pkg/errors"
	"arb_engine/pkg/telemetry"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Submitter places order intents on their venues with rate limiting and a
// retry/circuit-breaker pipeline. Client order IDs are minted here so that
// the decision layer stays deterministic.
type Submitter struct {
	exchanges   map[string]core.IExchange
	logger      core.ILogger
	alerter     *alert.AlertManager
	rateLimiter *rate.Limiter
	pipeline    failsafe.Executor[*core.Order]

	tracer        trace.Tracer
	placedCounter metric.Int64Counter
	failedCounter metric.Int64Counter
}

// NewSubmitter creates a submitter over the given venues
func NewSubmitter(exchanges []core.IExchange, logger core.ILogger) *Submitter {
	byName := make(map[string]core.IExchange, len(exchanges))
	for _, ex := range exchanges {
		byName[ex.GetName()] = ex
	}

	retryPolicy := retrypolicy.NewBuilder[*core.Order]().
		HandleIf(func(order *core.Order, err error) bool {
			return err != nil && !isFatal(err)
		}).
		WithBackoff(100*time.Millisecond, 2*time.Second).
		WithMaxRetries(3).
		Build()

	breaker := circuitbreaker.NewBuilder[*core.Order]().
		HandleIf(func(order *core.Order, err error) bool {
			return err != nil
		}).
		WithFailureThresholdRatio(5, 10).
		WithDelay(10 * time.Second).
		Build()

	tracer := telemetry.GetTracer("order-submitter")
	meter := telemetry.GetMeter("order-submitter")

	placedCounter, _ := meter.Int64Counter(telemetry.MetricOrdersPlacedTotal,
		metric.WithDescription("Total orders placed"))
	failedCounter, _ := meter.Int64Counter(telemetry.MetricOrdersFailedTotal,
		metric.WithDescription("Total order placements that failed after retries"))

	return &Submitter{
		exchanges:   byName,
		logger:      logger.WithField("component", "order_submitter"),
		rateLimiter: rate.NewLimiter(rate.Limit(25), 30),
		pipeline:    failsafe.With[*core.Order](retryPolicy, breaker),

		tracer:        tracer,
		placedCounter: placedCounter,
		failedCounter: failedCounter,
	}
}

// SetAlerter attaches an alert manager notified on unhedged leg failures
func (s *Submitter) SetAlerter(alerter *alert.AlertManager) {
	s.alerter = alerter
}

// isFatal reports whether an order placement error must not be retried
func isFatal(err error) bool {
	return errors.Is(err, apperrors.ErrInsufficientFunds) ||
		errors.Is(err, apperrors.ErrInvalidOrderParameter) ||
		errors.Is(err, apperrors.ErrOrderRejected) ||
		errors.Is(err, apperrors.ErrDuplicateOrder)
}

// Submit places every intent on its venue in order. If a later leg fails
// after an earlier one was placed, the failure is logged as critical and
// returned; no compensation is attempted.
func (s *Submitter) Submit(ctx context.Context, intents []core.OrderIntent) ([]*core.Order, error) {
	ctx, span := s.tracer.Start(ctx, "Submit",
		trace.WithAttributes(attribute.Int("intents", len(intents))))
	defer span.End()

	var placed []*core.Order
	for _, intent := range intents {
		order, err := s.placeIntent(ctx, intent)
		if err != nil {
			span.RecordError(err)
			if len(placed) > 0 {
				s.logger.Error("Leg failed after earlier leg was placed, position may be unhedged",
					"exchange", intent.Exchange,
					"placed_legs", len(placed),
					"error", err.Error())
				if s.alerter != nil {
					s.alerter.Alert(ctx, "Unhedged position",
						"An order leg failed after an earlier leg was placed", alert.Critical,
						map[string]string{
							"exchange":    intent.Exchange,
							"instrument":  intent.Instrument,
							"placed_legs": fmt.Sprintf("%d", len(placed)),
						})
				}
			}
			return placed, err
		}
		placed = append(placed, order)
	}
	return placed, nil
}

func (s *Submitter) placeIntent(ctx context.Context, intent core.OrderIntent) (*core.Order, error) {
	ex, ok := s.exchanges[intent.Exchange]
	if !ok {
		return nil, fmt.Errorf("unknown exchange: %s", intent.Exchange)
	}

	if err := s.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	req := &core.PlaceOrderRequest{
		Instrument:    intent.Instrument,
		Side:          intent.Side(),
		Price:         intent.LimitPrice,
		Quantity:      intent.Quantity(),
		ClientOrderID: uuid.NewString(),
	}

	order, err := s.pipeline.GetWithExecution(func(exec failsafe.Execution[*core.Order]) (*core.Order, error) {
		return ex.PlaceOrder(ctx, req)
	})

	attrs := metric.WithAttributes(
		attribute.String("exchange", intent.Exchange),
		attribute.String("side", string(req.Side)),
	)
	if err != nil {
		s.failedCounter.Add(ctx, 1, attrs)
		return nil, fmt.Errorf("failed to place order on %s: %w", intent.Exchange, err)
	}
	s.placedCounter.Add(ctx, 1, attrs)

	s.logger.Info("Order placed",
		"exchange", intent.Exchange,
		"side", req.Side,
		"quantity", req.Quantity,
		"price", req.Price,
		"order_id", order.OrderID)
	return order, nil
}
