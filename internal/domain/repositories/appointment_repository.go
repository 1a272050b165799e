package repositories

import (
	"context"
	"time"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
)

// AppointmentRepository defines the interface for appointment data operations
type AppointmentRepository interface {
	// Create inserts an appointment without checking slot occupancy
	Create(ctx context.Context, appointment *entities.Appointment) error

	// CreateExclusive inserts an appointment only if no pending or confirmed
	// appointment holds the same instant. A taken slot yields a conflict error.
	CreateExclusive(ctx context.Context, appointment *entities.Appointment) error

	// GetByID retrieves an appointment by ID
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)

	// ListOccupied returns the instants in [from, to) held by pending or confirmed appointments
	ListOccupied(ctx context.Context, from, to time.Time) ([]time.Time, error)

	// UpdateStatus moves an appointment from expected to next, failing with a
	// conflict if the stored status is no longer expected
	UpdateStatus(ctx context.Context, id string, expected, next entities.AppointmentStatus) (*entities.Appointment, error)

	// Reschedule cancels the original and inserts the replacement in one
	// transaction. With exclusive set, an occupied target slot is a conflict.
	Reschedule(ctx context.Context, originalID string, replacement *entities.Appointment, exclusive bool) (*entities.Appointment, error)

	// List retrieves appointments ordered by appointment date
	List(ctx context.Context, filter AppointmentFilter) ([]*entities.Appointment, error)
}

// AppointmentFilter defines filters for listing appointments
type AppointmentFilter struct {
	PatientID string
	Status    entities.AppointmentStatus
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}
