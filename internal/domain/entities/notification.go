package entities

import (
	"fmt"
	"time"
)

// NotificationType represents the notification purpose
type NotificationType string

const (
	NotificationBookingConfirmation NotificationType = "booking_confirmation"
	NotificationDirect              NotificationType = "direct"
)

// NotificationStatus represents the delivery status
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// EmailMessage is a transactional email handed to the provider
type EmailMessage struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTML     string `json:"html"`
	FromName string `json:"fromName,omitempty"`
}

// NotificationRecord tracks one delivery attempt
type NotificationRecord struct {
	ID               string             `json:"id" db:"id"`
	AppointmentID    *string            `json:"appointment_id,omitempty" db:"appointment_id"`
	NotificationType NotificationType   `json:"notification_type" db:"notification_type"`
	Recipient        string             `json:"recipient" db:"recipient"`
	Subject          string             `json:"subject" db:"subject"`
	Status           NotificationStatus `json:"status" db:"status"`
	MessageID        *string            `json:"message_id,omitempty" db:"message_id"`
	ErrorMessage     *string            `json:"error_message,omitempty" db:"error_message"`
	SentAt           *time.Time         `json:"sent_at,omitempty" db:"sent_at"`
	FailedAt         *time.Time         `json:"failed_at,omitempty" db:"failed_at"`
	CreatedAt        time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at" db:"updated_at"`
}

// StatusChangeMessage renders the patient-facing text for a status change
func StatusChangeMessage(status AppointmentStatus, procedureName string) string {
	switch status {
	case AppointmentStatusConfirmed:
		return fmt.Sprintf("¡Tu cita para %s ha sido confirmada!", procedureName)
	case AppointmentStatusCancelled:
		return fmt.Sprintf("Tu cita para %s ha sido cancelada.", procedureName)
	case AppointmentStatusCompleted:
		return fmt.Sprintf("Tu cita para %s ha sido marcada como completada.", procedureName)
	default:
		return fmt.Sprintf("El estado de tu cita para %s ha cambiado.", procedureName)
	}
}
