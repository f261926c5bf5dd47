package events

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"github.com/zatekoja/opticalqc/internal/domain/entities"
	"github.com/zatekoja/opticalqc/internal/domain/providers"
)

// ErrPublishCircuitOpen is returned while the breaker rejects publishes.
var ErrPublishCircuitOpen = errors.New("event publishing circuit is open")

// BreakerSettings configure the publish circuit breaker.
type BreakerSettings struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before a trial publish.
	Timeout time.Duration
}

// BreakerEventBus guards Publish on another EventBus with a circuit breaker so
// an unavailable broker does not stall every validation. Subscriptions pass
// straight through.
type BreakerEventBus struct {
	next    providers.EventBus
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerEventBus wraps next with a circuit breaker.
func NewBreakerEventBus(next providers.EventBus, settings BreakerSettings) *BreakerEventBus {
	maxFailures := settings.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "event-publish",
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})

	return &BreakerEventBus{next: next, breaker: cb}
}

// Publish publishes through the breaker.
func (b *BreakerEventBus) Publish(ctx context.Context, channel string, event *entities.ValidationEvent) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.next.Publish(ctx, channel, event)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrPublishCircuitOpen
	}
	return err
}

// Subscribe subscribes on the wrapped bus.
func (b *BreakerEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ValidationEvent, error) {
	return b.next.Subscribe(ctx, channel)
}

// Unsubscribe unsubscribes on the wrapped bus.
func (b *BreakerEventBus) Unsubscribe(ctx context.Context, channel string) error {
	return b.next.Unsubscribe(ctx, channel)
}

// Close closes the wrapped bus.
func (b *BreakerEventBus) Close() error {
	return b.next.Close()
}

// State reports the breaker state, for health checks.
func (b *BreakerEventBus) State() string {
	return b.breaker.State().String()
}
