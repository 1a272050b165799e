package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/providers"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/observability"
	apperrors "github.com/bondusy/spa-booking/backend/pkg/errors"
)

// RealtimeNotifier publishes appointment events and hands out subscriptions
type RealtimeNotifier struct {
	bus     providers.EventBus
	metrics *observability.Metrics
}

// NewRealtimeNotifier creates a notifier on top of an event bus. metrics may be nil.
func NewRealtimeNotifier(bus providers.EventBus, metrics *observability.Metrics) *RealtimeNotifier {
	return &RealtimeNotifier{bus: bus, metrics: metrics}
}

// Publish sends event on topic. Failures are returned as external errors.
func (n *RealtimeNotifier) Publish(ctx context.Context, topic string, event *entities.AppointmentEvent) error {
	if err := n.bus.Publish(ctx, topic, event); err != nil {
		observability.RecordPublishFailure(ctx, n.metrics, topic)
		if apperrors.IsType(err, apperrors.ErrorTypeExternal) {
			return err
		}
		return apperrors.NewExternalError(fmt.Sprintf("failed to publish %s event", event.Type), err)
	}
	return nil
}

// PublishRowChange mirrors an appointments write on appointments-changes
func (n *RealtimeNotifier) PublishRowChange(ctx context.Context, change entities.RowChangeType, appointment *entities.Appointment) error {
	return n.Publish(ctx, providers.TopicAppointmentChanges, entities.NewRowChangeEvent(change, appointment))
}

// PublishStatusChanged broadcasts appointment_status_changed on appointment-notifications
func (n *RealtimeNotifier) PublishStatusChanged(ctx context.Context, payload entities.StatusChangePayload) error {
	return n.Publish(ctx, providers.TopicAppointmentNotifications, entities.NewStatusChangedEvent(payload))
}

// PublishRefresh broadcasts refresh_appointments on appointments-refetch
func (n *RealtimeNotifier) PublishRefresh(ctx context.Context) error {
	return n.Publish(ctx, providers.TopicAppointmentRefetch, entities.NewRefreshEvent())
}

// Subscribe opens one subscription over topics. The subscription ends when
// Close is called or ctx is done.
func (n *RealtimeNotifier) Subscribe(ctx context.Context, topics ...string) (*Subscription, error) {
	if len(topics) == 0 {
		topics = providers.AllTopics()
	}
	for _, topic := range topics {
		if !providers.IsKnownTopic(topic) {
			return nil, apperrors.NewValidationError(fmt.Sprintf("unknown topic %q", topic))
		}
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		topics: topics,
		events: make(chan *entities.AppointmentEvent),
		cancel: cancel,
	}

	sources := make([]<-chan *entities.AppointmentEvent, 0, len(topics))
	for _, topic := range topics {
		ch, err := n.bus.Subscribe(subCtx, topic)
		if err != nil {
			cancel()
			return nil, err
		}
		sources = append(sources, ch)
	}

	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src <-chan *entities.AppointmentEvent) {
			defer wg.Done()
			for {
				select {
				case <-subCtx.Done():
					return
				case event, ok := <-src:
					if !ok {
						return
					}
					select {
					case sub.events <- event:
					case <-subCtx.Done():
						return
					}
				}
			}
		}(src)
	}

	go func() {
		wg.Wait()
		close(sub.events)
	}()

	return sub, nil
}

// Subscription is a live, merged stream of events from one or more topics
type Subscription struct {
	topics []string
	events chan *entities.AppointmentEvent
	cancel context.CancelFunc
	once   sync.Once
}

// Events returns the merged event stream. It is closed once the subscription ends.
func (s *Subscription) Events() <-chan *entities.AppointmentEvent {
	return s.events
}

// Topics returns the subscribed topics
func (s *Subscription) Topics() []string {
	return s.topics
}

// Close ends the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}
