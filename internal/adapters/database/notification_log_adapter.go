package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/repositories"
)

// NotificationLogAdapter stores email delivery attempts in notification_log
type NotificationLogAdapter struct {
	db *sqlx.DB
}

var _ repositories.NotificationLogRepository = (*NotificationLogAdapter)(nil)

// NewNotificationLogAdapter creates a notification log adapter
func NewNotificationLogAdapter(db *sqlx.DB) *NotificationLogAdapter {
	return &NotificationLogAdapter{db: db}
}

// Create inserts a new log entry
func (a *NotificationLogAdapter) Create(ctx context.Context, record *entities.NotificationRecord) error {
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	query := `
		INSERT INTO notification_log (
			id, appointment_id, notification_type, recipient, subject,
			status, message_id, error_message, sent_at, failed_at, created_at, updated_at
		) VALUES (
			:id, :appointment_id, :notification_type, :recipient, :subject,
			:status, :message_id, :error_message, :sent_at, :failed_at, :created_at, :updated_at
		)
	`
	if _, err := a.db.NamedExecContext(ctx, query, record); err != nil {
		return classifyError(err, "failed to create notification log")
	}
	return nil
}

// Update records the outcome of a delivery attempt
func (a *NotificationLogAdapter) Update(ctx context.Context, record *entities.NotificationRecord) error {
	record.UpdatedAt = time.Now()

	query := `
		UPDATE notification_log
		SET status = :status, message_id = :message_id, error_message = :error_message,
			sent_at = :sent_at, failed_at = :failed_at, updated_at = :updated_at
		WHERE id = :id
	`
	if _, err := a.db.NamedExecContext(ctx, query, record); err != nil {
		return classifyError(err, "failed to update notification log")
	}
	return nil
}
