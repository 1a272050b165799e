package entities

import (
	"time"
)

// Appointment represents a booked spa treatment
type Appointment struct {
	ID              string            `json:"id" db:"id"`
	PatientID       string            `json:"patient_id" db:"patient_id"`
	ProcedureID     string            `json:"procedure_id" db:"procedure_id"`
	AppointmentDate time.Time         `json:"appointment_date" db:"appointment_date"`
	Status          AppointmentStatus `json:"status" db:"status"`
	Notes           *string           `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
}

// IsActive reports whether the appointment still holds its slot
func (a *Appointment) IsActive() bool {
	return a.Status.OccupiesSlot()
}

// AppointmentDetails is an appointment joined with its procedure and patient profile
// for listings.
type AppointmentDetails struct {
	*Appointment
	ProcedureName  string   `json:"procedure_name"`
	ProcedurePrice *float64 `json:"procedure_price,omitempty"`
	PatientName    string   `json:"patient_name,omitempty"`
	PatientEmail   string   `json:"patient_email,omitempty"`
}
