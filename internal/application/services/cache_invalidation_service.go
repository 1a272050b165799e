package services

import (
	"context"
	"time"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/providers"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/observability"
)

// StatisticsInvalidator is the cache a CacheInvalidationService keeps fresh
type StatisticsInvalidator interface {
	InvalidateCache(ctx context.Context) error
}

// CacheInvalidationService drops cached statistics whenever an appointment
// row changes, on this instance or any other publishing to the bus
type CacheInvalidationService struct {
	notifier *RealtimeNotifier
	target   StatisticsInvalidator
	sub      *Subscription
	done     chan struct{}
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(notifier *RealtimeNotifier, target StatisticsInvalidator) *CacheInvalidationService {
	return &CacheInvalidationService{
		notifier: notifier,
		target:   target,
		done:     make(chan struct{}),
	}
}

// Start subscribes to appointment changes and processes them in the background
func (s *CacheInvalidationService) Start(ctx context.Context) error {
	sub, err := s.notifier.Subscribe(ctx, providers.TopicAppointmentChanges, providers.TopicAppointmentRefetch)
	if err != nil {
		return err
	}
	s.sub = sub

	go s.processEvents(sub.Events())
	observability.GetLogger().Info().Msg("cache invalidation service started")
	return nil
}

// Stop ends the subscription and waits for the processing loop to exit
func (s *CacheInvalidationService) Stop() {
	if s.sub == nil {
		return
	}
	s.sub.Close()
	<-s.done
	observability.GetLogger().Info().Msg("cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(events <-chan *entities.AppointmentEvent) {
	defer close(s.done)
	for event := range events {
		s.handleEvent(event)
	}
}

func (s *CacheInvalidationService) handleEvent(event *entities.AppointmentEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.target.InvalidateCache(ctx); err != nil {
		observability.GetLogger().Warn().Err(err).Str("event_id", event.ID).Msg("failed to invalidate statistics cache")
		return
	}
	observability.GetLogger().Debug().Str("event_id", event.ID).Str("type", string(event.Type)).Msg("statistics cache invalidated")
}
