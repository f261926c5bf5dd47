package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/zatekoja/opticalqc/internal/domain/entities"
	redisclient "github.com/zatekoja/opticalqc/internal/infrastructure/clients/redis"
	"github.com/zatekoja/opticalqc/internal/infrastructure/observability"
)

const subscriberBuffer = 100

// ErrBusClosed is returned by Subscribe after Close.
var ErrBusClosed = errors.New("event bus is closed")

// topic is one Redis channel and the local subscribers reading it. A single
// PubSub connection per channel is shared by all subscribers in the process.
type topic struct {
	pubsub      *redis.PubSub
	subscribers map[chan *entities.ValidationEvent]struct{}
}

// RedisEventBus fans validation events out over Redis Pub/Sub.
type RedisEventBus struct {
	rdb    *redis.Client
	logger zerolog.Logger

	mu     sync.RWMutex
	topics map[string]*topic
	closed bool
	done   chan struct{}
}

func NewRedisEventBus(client *redisclient.Client) *RedisEventBus {
	return &RedisEventBus{
		rdb:    client.Client(),
		logger: observability.WithComponent("event_bus"),
		topics: make(map[string]*topic),
		done:   make(chan struct{}),
	}
}

// Publish sends event to every subscriber of channel in any process.
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.ValidationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode validation event: %w", err)
	}
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}

	b.logger.Debug().Str("channel", channel).Str("event_id", event.ID).Str("order_id", event.OrderID).Msg("Published validation event")
	return nil
}

// Subscribe returns a buffered channel of events. It is closed when ctx ends,
// the channel is unsubscribed or the bus is closed. A slow reader misses events
// rather than blocking other subscribers.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ValidationEvent, error) {
	sub := make(chan *entities.ValidationEvent, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBusClosed
	}
	t, ok := b.topics[channel]
	if !ok {
		t = &topic{
			pubsub:      b.rdb.Subscribe(context.Background(), channel),
			subscribers: make(map[chan *entities.ValidationEvent]struct{}),
		}
		b.topics[channel] = t
		go b.receive(channel, t.pubsub)
	}
	t.subscribers[sub] = struct{}{}
	count := len(t.subscribers)
	b.mu.Unlock()

	b.logger.Info().Str("channel", channel).Int("subscribers", count).Msg("Subscribed to channel")

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
		}
		b.leave(channel, sub)
	}()
	return sub, nil
}

// receive pumps one PubSub connection until it is closed.
func (b *RedisEventBus) receive(channel string, pubsub *redis.PubSub) {
	for msg := range pubsub.Channel() {
		b.dispatch(channel, pubsub, []byte(msg.Payload))
	}
}

// dispatch delivers payload to the subscribers of the topic that owns pubsub.
func (b *RedisEventBus) dispatch(channel string, pubsub *redis.PubSub, payload []byte) {
	var event entities.ValidationEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		b.logger.Warn().Err(err).Str("channel", channel).Msg("Dropping undecodable validation event")
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	t, ok := b.topics[channel]
	if !ok || t.pubsub != pubsub {
		return
	}
	for sub := range t.subscribers {
		select {
		case sub <- &event:
		default:
			b.logger.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("Subscriber buffer full, event dropped")
		}
	}
}

// leave removes one subscriber and releases the Redis subscription when it was
// the last.
func (b *RedisEventBus) leave(channel string, sub chan *entities.ValidationEvent) {
	b.mu.Lock()
	t, ok := b.topics[channel]
	if !ok {
		b.mu.Unlock()
		return
	}
	if _, member := t.subscribers[sub]; !member {
		b.mu.Unlock()
		return
	}
	delete(t.subscribers, sub)
	close(sub)

	var release *redis.PubSub
	if len(t.subscribers) == 0 {
		delete(b.topics, channel)
		release = t.pubsub
	}
	b.mu.Unlock()

	if release != nil {
		_ = release.Close()
		b.logger.Info().Str("channel", channel).Msg("Released channel subscription")
	}
}

// drop detaches a whole topic and closes its subscribers. The caller holds mu.
func (b *RedisEventBus) drop(channel string) *redis.PubSub {
	t, ok := b.topics[channel]
	if !ok {
		return nil
	}
	delete(b.topics, channel)
	for sub := range t.subscribers {
		close(sub)
	}
	return t.pubsub
}

// Unsubscribe ends every local subscription to channel.
func (b *RedisEventBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	pubsub := b.drop(channel)
	b.mu.Unlock()

	if pubsub == nil {
		return nil
	}
	if err := pubsub.Close(); err != nil {
		return fmt.Errorf("close subscription %s: %w", channel, err)
	}
	return nil
}

// Close ends all subscriptions. Publishing still works until the Redis client
// itself is closed.
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	var pubsubs []*redis.PubSub
	for channel := range b.topics {
		if ps := b.drop(channel); ps != nil {
			pubsubs = append(pubsubs, ps)
		}
	}
	b.mu.Unlock()

	var errs []error
	for _, ps := range pubsubs {
		errs = append(errs, ps.Close())
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close event bus: %w", err)
	}
	b.logger.Info().Msg("Event bus closed")
	return nil
}
