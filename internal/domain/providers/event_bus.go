package providers

import (
	"context"

	"github.com/zatekoja/opticalqc/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to validation events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.ValidationEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.ValidationEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelOrderValidated carries every validation outcome.
	EventChannelOrderValidated = "order.validated"

	// EventChannelCompanyPrefix prefixes per-company copies of validation outcomes.
	EventChannelCompanyPrefix = "order.validated:company:"
)

// GetCompanyChannel returns the channel for a single company's validation outcomes
func GetCompanyChannel(companyID string) string {
	return EventChannelCompanyPrefix + companyID
}
