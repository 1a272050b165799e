package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/repositories"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/observability"
	apperrors "github.com/bondusy/spa-booking/backend/pkg/errors"
)

// Booking modes reported on the booking metric
const (
	BookingModeBasic     = "basic"
	BookingModeExclusive = "exclusive"
)

// BookingRequest is a patient's request for a new appointment
type BookingRequest struct {
	ProcedureID string
	Date        string
	Time        string
	Notes       string
}

// BookingResult is the outcome of a successful booking
type BookingResult struct {
	Appointment      *entities.Appointment `json:"appointment"`
	NotificationSent bool                  `json:"notification_sent"`
}

// RescheduleRequest moves an existing appointment. Empty ProcedureID and nil
// Notes keep the original's values.
type RescheduleRequest struct {
	AppointmentID string
	ProcedureID   string
	Date          string
	Time          string
	Notes         *string
}

// BookingService creates and reschedules appointments
type BookingService struct {
	appointments repositories.AppointmentRepository
	procedures   repositories.ProcedureRepository
	schedule     *entities.SlotSchedule
	notifier     *RealtimeNotifier
	confirmation ConfirmationSender
	metrics      *observability.Metrics
	exclusive    bool
	now          func() time.Time
}

// NewBookingService creates a booking service. With exclusive set, a slot
// held by a pending or confirmed appointment cannot be booked again.
func NewBookingService(
	appointments repositories.AppointmentRepository,
	procedures repositories.ProcedureRepository,
	schedule *entities.SlotSchedule,
	notifier *RealtimeNotifier,
	confirmation ConfirmationSender,
	metrics *observability.Metrics,
	exclusive bool,
) *BookingService {
	return &BookingService{
		appointments: appointments,
		procedures:   procedures,
		schedule:     schedule,
		notifier:     notifier,
		confirmation: confirmation,
		metrics:      metrics,
		exclusive:    exclusive,
		now:          time.Now,
	}
}

// WithClock replaces the time source used to reject past slots
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

func (s *BookingService) mode() string {
	if s.exclusive {
		return BookingModeExclusive
	}
	return BookingModeBasic
}

// Submit books a pending appointment for the caller. The confirmation email
// is best-effort and never undoes the booking.
func (s *BookingService) Submit(ctx context.Context, identity *entities.Identity, req BookingRequest) (*BookingResult, error) {
	ctx, span := observability.StartSpan(ctx, "BookingService.Submit")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	if identity == nil || identity.UserID == "" {
		return nil, apperrors.NewUnauthorizedError("Debes iniciar sesión para agendar una cita")
	}
	if strings.TrimSpace(req.ProcedureID) == "" || req.Date == "" || req.Time == "" {
		return nil, apperrors.NewValidationError("Por favor completa todos los campos requeridos")
	}

	at, err := s.resolveSlot(req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	procedure, err := s.activeProcedure(ctx, req.ProcedureID)
	if err != nil {
		return nil, err
	}

	appointment := &entities.Appointment{
		ID:              uuid.New().String(),
		PatientID:       identity.UserID,
		ProcedureID:     procedure.ID,
		AppointmentDate: at,
		Status:          entities.AppointmentStatusPending,
		Notes:           optionalNotes(req.Notes),
		CreatedAt:       s.now(),
	}

	if s.exclusive {
		err = s.appointments.CreateExclusive(ctx, appointment)
	} else {
		err = s.appointments.Create(ctx, appointment)
	}
	if err != nil {
		observability.RecordError(span, err)
		observability.RecordBooking(ctx, s.metrics, s.mode(), string(apperrors.TypeOf(err)))
		return nil, err
	}
	observability.RecordBooking(ctx, s.metrics, s.mode(), "created")

	logger.Info().
		Str("appointment_id", appointment.ID).
		Str("patient_id", appointment.PatientID).
		Time("appointment_date", appointment.AppointmentDate).
		Msg("appointment booked")

	if err := s.notifier.PublishRowChange(ctx, entities.RowChangeInsert, appointment); err != nil {
		logger.Warn().Err(err).Str("appointment_id", appointment.ID).Msg("failed to publish appointment insert")
	}

	result := &BookingResult{Appointment: appointment}
	if s.confirmation != nil && identity.Email != "" {
		if err := s.confirmation.SendBookingConfirmation(ctx, appointment, identity.Email, procedure.Name); err != nil {
			logger.Warn().Err(err).Str("appointment_id", appointment.ID).Msg("booking confirmation not delivered")
		} else {
			result.NotificationSent = true
		}
	}

	return result, nil
}

// Reschedule cancels an appointment and books its replacement atomically.
// It returns the replacement.
func (s *BookingService) Reschedule(ctx context.Context, identity *entities.Identity, req RescheduleRequest) (*entities.Appointment, error) {
	ctx, span := observability.StartSpan(ctx, "BookingService.Reschedule")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	if identity == nil || identity.UserID == "" {
		return nil, apperrors.NewUnauthorizedError("Debes iniciar sesión para reprogramar una cita")
	}
	if req.AppointmentID == "" || req.Date == "" || req.Time == "" {
		return nil, apperrors.NewValidationError("Por favor completa todos los campos requeridos")
	}

	original, err := s.appointments.GetByID(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if original.PatientID != identity.UserID && !identity.IsAdmin() {
		return nil, apperrors.NewForbiddenError("No puedes reprogramar esta cita")
	}
	if !original.Status.OccupiesSlot() {
		return nil, apperrors.NewConflictError(fmt.Sprintf("appointment is already %s", original.Status))
	}

	at, err := s.resolveSlot(req.Date, req.Time)
	if err != nil {
		return nil, err
	}

	procedureID := original.ProcedureID
	if req.ProcedureID != "" && req.ProcedureID != original.ProcedureID {
		procedure, err := s.activeProcedure(ctx, req.ProcedureID)
		if err != nil {
			return nil, err
		}
		procedureID = procedure.ID
	}

	notes := original.Notes
	if req.Notes != nil {
		notes = optionalNotes(*req.Notes)
	}

	replacement := &entities.Appointment{
		ID:              uuid.New().String(),
		PatientID:       original.PatientID,
		ProcedureID:     procedureID,
		AppointmentDate: at,
		Status:          entities.AppointmentStatusPending,
		Notes:           notes,
		CreatedAt:       s.now(),
	}

	created, err := s.appointments.Reschedule(ctx, original.ID, replacement, s.exclusive)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	logger.Info().
		Str("original_id", original.ID).
		Str("appointment_id", created.ID).
		Time("appointment_date", created.AppointmentDate).
		Msg("appointment rescheduled")

	cancelled := *original
	cancelled.Status = entities.AppointmentStatusCancelled
	if err := s.notifier.PublishRowChange(ctx, entities.RowChangeUpdate, &cancelled); err != nil {
		logger.Warn().Err(err).Str("appointment_id", original.ID).Msg("failed to publish appointment update")
	}
	if err := s.notifier.PublishRowChange(ctx, entities.RowChangeInsert, created); err != nil {
		logger.Warn().Err(err).Str("appointment_id", created.ID).Msg("failed to publish appointment insert")
	}
	if err := s.notifier.PublishRefresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to broadcast appointment refresh")
	}

	return created, nil
}

// resolveSlot turns a date and slot into an instant, rejecting unknown and past slots
func (s *BookingService) resolveSlot(date, slot string) (time.Time, error) {
	day, err := s.schedule.ParseDate(date)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", date))
	}
	at, err := s.schedule.At(day, slot)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(err.Error())
	}
	if !at.After(s.now()) {
		return time.Time{}, apperrors.NewValidationError("El horario seleccionado ya pasó")
	}
	return at, nil
}

func (s *BookingService) activeProcedure(ctx context.Context, id string) (*entities.Procedure, error) {
	procedure, err := s.procedures.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !procedure.IsActive {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("procedure with id %s is not available", id))
	}
	return procedure, nil
}

func optionalNotes(notes string) *string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil
	}
	return &notes
}
