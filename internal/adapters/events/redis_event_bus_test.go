package events

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/providers"
	redisclient "github.com/bondusy/spa-booking/backend/internal/infrastructure/clients/redis"
	apperrors "github.com/bondusy/spa-booking/backend/pkg/errors"
)

func newTestBus(t *testing.T) (*RedisEventBus, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redisclient.NewClientFromAddr(mr.Addr())
	bus := NewRedisEventBus(client)
	t.Cleanup(func() {
		bus.Close()
		client.Close()
	})
	return bus, mr
}

func receive(t *testing.T, ch <-chan *entities.AppointmentEvent) *entities.AppointmentEvent {
	t.Helper()
	select {
	case event, ok := <-ch:
		require.True(t, ok, "channel closed")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestRedisEventBus_PublishSubscribe(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := bus.Subscribe(ctx, providers.TopicAppointmentNotifications)
	require.NoError(t, err)
	second, err := bus.Subscribe(ctx, providers.TopicAppointmentNotifications)
	require.NoError(t, err)

	event := entities.NewStatusChangedEvent(entities.StatusChangePayload{
		AppointmentID: "appt-1",
		PatientID:     "patient-1",
		ProcedureName: "Facial Hidratante",
		NewStatus:     entities.AppointmentStatusConfirmed,
	})
	require.NoError(t, bus.Publish(ctx, providers.TopicAppointmentNotifications, event))

	for _, ch := range []<-chan *entities.AppointmentEvent{first, second} {
		got := receive(t, ch)
		assert.Equal(t, event.ID, got.ID)
		assert.Equal(t, entities.AppointmentEventStatusChanged, got.Type)
		require.NotNil(t, got.Payload)
		assert.Equal(t, "patient-1", got.Payload.PatientID)
	}
}

func TestRedisEventBus_ContextCancelClosesChannel(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := bus.Subscribe(ctx, providers.TopicAppointmentRefetch)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber channel was not closed")
	}
}

func TestRedisEventBus_PublishFailureIsExternal(t *testing.T) {
	bus, mr := newTestBus(t)
	mr.Close()

	err := bus.Publish(context.Background(), providers.TopicAppointmentRefetch, entities.NewRefreshEvent())
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
}
