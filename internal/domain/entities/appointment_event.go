package entities

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// AppointmentEventType represents the kind of realtime appointment event
type AppointmentEventType string

const (
	// AppointmentEventRowChange mirrors an insert or update of an appointments row
	AppointmentEventRowChange AppointmentEventType = "postgres_changes"
	// AppointmentEventStatusChanged notifies a patient that an admin changed their booking
	AppointmentEventStatusChanged AppointmentEventType = "appointment_status_changed"
	// AppointmentEventRefresh asks every open view to re-query appointments
	AppointmentEventRefresh AppointmentEventType = "refresh_appointments"
)

// RowChangeType is the kind of write a row-change event reflects
type RowChangeType string

const (
	RowChangeInsert RowChangeType = "INSERT"
	RowChangeUpdate RowChangeType = "UPDATE"
)

// StatusChangePayload is the body of an appointment_status_changed broadcast
type StatusChangePayload struct {
	AppointmentID string            `json:"appointmentId"`
	PatientID     string            `json:"patientId"`
	ProcedureName string            `json:"procedureName"`
	NewStatus     AppointmentStatus `json:"newStatus"`
	Message       string            `json:"message,omitempty"`
}

// AppointmentEvent is a realtime message carried on one of the appointment topics
type AppointmentEvent struct {
	ID          string               `json:"id"`
	Type        AppointmentEventType `json:"type"`
	Timestamp   time.Time            `json:"timestamp"`
	ChangeType  RowChangeType        `json:"change_type,omitempty"`
	Appointment *Appointment         `json:"record,omitempty"`
	Payload     *StatusChangePayload `json:"payload,omitempty"`
}

// NewRowChangeEvent creates an event mirroring a write to the appointments table
func NewRowChangeEvent(change RowChangeType, appointment *Appointment) *AppointmentEvent {
	return &AppointmentEvent{
		ID:          generateEventID(),
		Type:        AppointmentEventRowChange,
		Timestamp:   time.Now(),
		ChangeType:  change,
		Appointment: appointment,
	}
}

// NewStatusChangedEvent creates a targeted status notification
func NewStatusChangedEvent(payload StatusChangePayload) *AppointmentEvent {
	return &AppointmentEvent{
		ID:        generateEventID(),
		Type:      AppointmentEventStatusChanged,
		Timestamp: time.Now(),
		Payload:   &payload,
	}
}

// NewRefreshEvent creates a payload-less "please re-fetch" broadcast
func NewRefreshEvent() *AppointmentEvent {
	return &AppointmentEvent{
		ID:        generateEventID(),
		Type:      AppointmentEventRefresh,
		Timestamp: time.Now(),
	}
}

// PatientID returns the patient the event concerns, if any
func (e *AppointmentEvent) PatientID() string {
	switch {
	case e.Payload != nil:
		return e.Payload.PatientID
	case e.Appointment != nil:
		return e.Appointment.PatientID
	default:
		return ""
	}
}

func generateEventID() string {
	return time.Now().Format("20060102150405") + "-" + randomString(8)
}

func randomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		return time.Now().Format("150405.000")
	}
	return hex.EncodeToString(bytes)[:length]
}
