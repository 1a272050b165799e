package providers

import (
	"context"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, topic string, event *entities.AppointmentEvent) error

	// Subscribe subscribes to events on a topic until ctx is done
	Subscribe(ctx context.Context, topic string) (<-chan *entities.AppointmentEvent, error)

	// Unsubscribe drops every subscriber of a topic
	Unsubscribe(ctx context.Context, topic string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// Realtime topics
const (
	// TopicAppointmentChanges carries row-level change events for the appointments table
	TopicAppointmentChanges = "appointments-changes"

	// TopicAppointmentNotifications carries appointment_status_changed broadcasts
	TopicAppointmentNotifications = "appointment-notifications"

	// TopicAppointmentRefetch carries payload-less refresh_appointments broadcasts
	TopicAppointmentRefetch = "appointments-refetch"
)

// AllTopics lists every appointment topic
func AllTopics() []string {
	return []string{TopicAppointmentChanges, TopicAppointmentNotifications, TopicAppointmentRefetch}
}

// IsKnownTopic reports whether topic is one of the appointment topics
func IsKnownTopic(topic string) bool {
	for _, t := range AllTopics() {
		if t == topic {
			return true
		}
	}
	return false
}
