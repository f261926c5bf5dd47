package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/opticalqc/internal/application/services"
	"github.com/zatekoja/opticalqc/internal/domain/entities"
	"github.com/zatekoja/opticalqc/internal/domain/providers"
)

func TestStatisticsCacheInvalidator_InvalidatesOnValidation(t *testing.T) {
	events := make(chan *entities.ValidationEvent, 2)
	bus := new(MockEventBus)
	bus.On("Subscribe", mock.Anything, providers.EventChannelOrderValidated).
		Return((<-chan *entities.ValidationEvent)(events), nil)

	invalidated := make(chan string, 2)
	inv := new(MockStatisticsInvalidator)
	inv.On("InvalidateStatistics", mock.Anything, "lab-north").
		Run(func(args mock.Arguments) { invalidated <- args.String(1) }).
		Return(errors.New("redis down")).Once()
	inv.On("InvalidateStatistics", mock.Anything, "lab-south").
		Run(func(args mock.Arguments) { invalidated <- args.String(1) }).
		Return(nil).Once()

	s := services.NewStatisticsCacheInvalidator(bus, inv)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	events <- &entities.ValidationEvent{OrderID: "o1", CompanyID: "lab-north"}
	events <- &entities.ValidationEvent{OrderID: "o2", CompanyID: "lab-south"}

	for _, want := range []string{"lab-north", "lab-south"} {
		select {
		case got := <-invalidated:
			assert.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatalf("no invalidation for %s", want)
		}
	}
	inv.AssertExpectations(t)
}

func TestStatisticsCacheInvalidator_StopsWhenChannelCloses(t *testing.T) {
	events := make(chan *entities.ValidationEvent)
	bus := new(MockEventBus)
	bus.On("Subscribe", mock.Anything, providers.EventChannelOrderValidated).
		Return((<-chan *entities.ValidationEvent)(events), nil)

	s := services.NewStatisticsCacheInvalidator(bus, new(MockStatisticsInvalidator))
	require.NoError(t, s.Start(context.Background()))

	close(events)

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestStatisticsCacheInvalidator_SubscribeFailure(t *testing.T) {
	bus := new(MockEventBus)
	bus.On("Subscribe", mock.Anything, providers.EventChannelOrderValidated).
		Return(nil, errors.New("redis down"))

	s := services.NewStatisticsCacheInvalidator(bus, new(MockStatisticsInvalidator))

	assert.Error(t, s.Start(context.Background()))
	s.Stop()
}
