//go:build integration

package events_test

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/opticalqc/internal/adapters/events"
	"github.com/zatekoja/opticalqc/internal/domain/entities"
	"github.com/zatekoja/opticalqc/internal/domain/providers"
	"github.com/zatekoja/opticalqc/internal/infrastructure/clients/redis"
	"github.com/zatekoja/opticalqc/pkg/config"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	cfg := &config.RedisConfig{
		Host:     getEnv("TEST_REDIS_HOST", "localhost"),
		Port:     getEnvAsInt("TEST_REDIS_PORT", 6379),
		Password: getEnv("TEST_REDIS_PASSWORD", ""),
		DB:       getEnvAsInt("TEST_REDIS_DB", 0),
	}

	client, err := redis.NewClient(context.Background(), cfg)
	require.NoError(t, err, "Failed to create redis client")
	return client
}

func waitForValidationEvent(t *testing.T, ch <-chan *entities.ValidationEvent) *entities.ValidationEvent {
	t.Helper()
	select {
	case event, ok := <-ch:
		require.True(t, ok, "subscription closed before an event arrived")
		return event
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for validation event")
		return nil
	}
}

func TestRedisEventBusFanoutIntegration(t *testing.T) {
	if os.Getenv("TEST_REDIS_HOST") == "" {
		t.Skip("Skipping integration test: TEST_REDIS_HOST not set")
	}

	redisClient := newTestRedisClient(t)
	defer redisClient.Close()

	eventBus := events.NewRedisEventBus(redisClient)
	defer eventBus.Close()

	channel := providers.GetCompanyChannel("co-integration")
	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel1()
	defer cancel2()

	sub1, err := eventBus.Subscribe(ctx1, channel)
	require.NoError(t, err)
	sub2, err := eventBus.Subscribe(ctx2, channel)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	event := entities.NewValidationEvent(&entities.ValidationResult{
		OrderID:          "ord-redis-1",
		CompanyID:        "co-integration",
		IsValid:          true,
		RecommendedQueue: entities.QueueAutoApproved,
		AutoApproved:     true,
	}, entities.ComplexityTierSimple)

	require.NoError(t, eventBus.Publish(context.Background(), channel, event))

	received1 := waitForValidationEvent(t, sub1)
	received2 := waitForValidationEvent(t, sub2)

	assert.Equal(t, event.ID, received1.ID)
	assert.Equal(t, event.ID, received2.ID)
	assert.Equal(t, entities.QueueAutoApproved, received1.SuggestedQueue)
}

func TestBreakerEventBusIntegration_PublishesThroughRedis(t *testing.T) {
	if os.Getenv("TEST_REDIS_HOST") == "" {
		t.Skip("Skipping integration test: TEST_REDIS_HOST not set")
	}

	redisClient := newTestRedisClient(t)
	defer redisClient.Close()

	bus := events.NewBreakerEventBus(events.NewRedisEventBus(redisClient), events.BreakerSettings{})
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := bus.Subscribe(ctx, providers.EventChannelOrderValidated)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	event := entities.NewValidationEvent(&entities.ValidationResult{OrderID: "ord-redis-2", CompanyID: "co-1"}, entities.ComplexityTierModerate)
	require.NoError(t, bus.Publish(context.Background(), providers.EventChannelOrderValidated, event))

	assert.Equal(t, "ord-redis-2", waitForValidationEvent(t, sub).OrderID)
	assert.Equal(t, "closed", bus.State())
}
