package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/providers"
	redisclient "github.com/bondusy/spa-booking/backend/internal/infrastructure/clients/redis"
	apperrors "github.com/bondusy/spa-booking/backend/pkg/errors"
)

// subscriberBuffer is the per-subscriber queue depth. A full queue drops events.
const subscriberBuffer = 100

// RedisEventBus implements the EventBus interface using Redis Pub/Sub.
// One Redis subscription per topic is fanned out to local subscribers.
type RedisEventBus struct {
	client        *redisclient.Client
	subscriptions map[string]*redis.PubSub
	subscribers   map[string]map[chan *entities.AppointmentEvent]struct{}
	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
}

var _ providers.EventBus = (*RedisEventBus)(nil)

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) *RedisEventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:        client,
		subscriptions: make(map[string]*redis.PubSub),
		subscribers:   make(map[string]map[chan *entities.AppointmentEvent]struct{}),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Publish publishes an event to all subscribers of topic
func (b *RedisEventBus) Publish(ctx context.Context, topic string, event *entities.AppointmentEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return apperrors.NewInternalError("failed to marshal event", err)
	}

	if err := b.client.Client().Publish(ctx, topic, data).Err(); err != nil {
		return apperrors.NewExternalError(fmt.Sprintf("failed to publish event to %s", topic), err)
	}

	log.Debug().Str("topic", topic).Str("event_id", event.ID).Str("type", string(event.Type)).Msg("published event")
	return nil
}

// Subscribe subscribes to events on a topic until ctx is done
func (b *RedisEventBus) Subscribe(ctx context.Context, topic string) (<-chan *entities.AppointmentEvent, error) {
	b.mu.Lock()

	if _, exists := b.subscriptions[topic]; !exists {
		pubsub := b.client.Client().Subscribe(b.ctx, topic)
		// wait for the subscription to be confirmed so no publish is missed
		if _, err := pubsub.Receive(ctx); err != nil {
			_ = pubsub.Close()
			b.mu.Unlock()
			return nil, apperrors.NewExternalError(fmt.Sprintf("failed to subscribe to %s", topic), err)
		}
		b.subscriptions[topic] = pubsub
		go b.receiveMessages(topic, pubsub)
	}

	if b.subscribers[topic] == nil {
		b.subscribers[topic] = make(map[chan *entities.AppointmentEvent]struct{})
	}

	eventChan := make(chan *entities.AppointmentEvent, subscriberBuffer)
	b.subscribers[topic][eventChan] = struct{}{}
	subscriberCount := len(b.subscribers[topic])
	b.mu.Unlock()

	log.Debug().Str("topic", topic).Int("subscribers", subscriberCount).Msg("subscribed")

	go func() {
		select {
		case <-ctx.Done():
		case <-b.ctx.Done():
		}
		b.removeSubscriber(topic, eventChan)
	}()

	return eventChan, nil
}

// receiveMessages broadcasts Redis messages to local subscribers
func (b *RedisEventBus) receiveMessages(topic string, pubsub *redis.PubSub) {
	ch := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event entities.AppointmentEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn().Err(err).Str("topic", topic).Msg("failed to unmarshal event")
				continue
			}

			b.mu.RLock()
			for subscriber := range b.subscribers[topic] {
				select {
				case subscriber <- &event:
				default:
					log.Warn().Str("topic", topic).Str("event_id", event.ID).Msg("subscriber buffer full, dropping event")
				}
			}
			b.mu.RUnlock()
		}
	}
}

func (b *RedisEventBus) removeSubscriber(topic string, eventChan chan *entities.AppointmentEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subscribers, exists := b.subscribers[topic]
	if !exists {
		return
	}
	if _, ok := subscribers[eventChan]; !ok {
		return
	}

	delete(subscribers, eventChan)
	close(eventChan)

	if len(subscribers) == 0 {
		delete(b.subscribers, topic)
		if pubsub, ok := b.subscriptions[topic]; ok {
			_ = pubsub.Close()
			delete(b.subscriptions, topic)
			log.Debug().Str("topic", topic).Msg("closed subscription")
		}
	}
}

func (b *RedisEventBus) cleanupTopic(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, exists := b.subscribers[topic]; exists {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(b.subscribers, topic)
	}

	if pubsub, ok := b.subscriptions[topic]; ok {
		delete(b.subscriptions, topic)
		if err := pubsub.Close(); err != nil {
			return fmt.Errorf("failed to close subscription %s: %w", topic, err)
		}
	}

	return nil
}

// Unsubscribe drops every subscriber of a topic
func (b *RedisEventBus) Unsubscribe(ctx context.Context, topic string) error {
	return b.cleanupTopic(topic)
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.RLock()
	topics := make([]string, 0, len(b.subscriptions))
	for topic := range b.subscriptions {
		topics = append(topics, topic)
	}
	b.mu.RUnlock()

	var errs []error
	for _, topic := range topics {
		if err := b.cleanupTopic(topic); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("errors closing event bus: %w", err)
	}

	log.Info().Msg("event bus closed")
	return nil
}
