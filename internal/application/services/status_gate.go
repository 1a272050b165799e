package services

import (
	"context"
	"errors"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/repositories"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/observability"
	apperrors "github.com/bondusy/spa-booking/backend/pkg/errors"
)

// fallbackProcedureName names the treatment when its row cannot be read
const fallbackProcedureName = "Procedimiento"

// StatusGate applies admin status changes to appointments
type StatusGate struct {
	appointments repositories.AppointmentRepository
	procedures   repositories.ProcedureRepository
	notifier     *RealtimeNotifier
	metrics      *observability.Metrics
}

// NewStatusGate creates a status gate
func NewStatusGate(
	appointments repositories.AppointmentRepository,
	procedures repositories.ProcedureRepository,
	notifier *RealtimeNotifier,
	metrics *observability.Metrics,
) *StatusGate {
	return &StatusGate{
		appointments: appointments,
		procedures:   procedures,
		notifier:     notifier,
		metrics:      metrics,
	}
}

// SetStatus moves an appointment to status. The write only succeeds if the
// stored status is still the one that was validated.
func (g *StatusGate) SetStatus(ctx context.Context, identity *entities.Identity, id string, status string) (*entities.Appointment, error) {
	ctx, span := observability.StartSpan(ctx, "StatusGate.SetStatus")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	if identity == nil || identity.UserID == "" {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}
	if !identity.IsAdmin() {
		return nil, apperrors.NewForbiddenError("only administrators can change appointment status")
	}

	next, err := entities.ParseAppointmentStatus(status)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	current, err := g.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := entities.ValidateTransition(current.Status, next); err != nil {
		var transitionErr *entities.TransitionError
		if errors.As(err, &transitionErr) && transitionErr.Terminal {
			return nil, apperrors.NewConflictError(err.Error())
		}
		return nil, apperrors.NewValidationError(err.Error())
	}

	updated, err := g.appointments.UpdateStatus(ctx, id, current.Status, next)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	observability.RecordStatusChange(ctx, g.metrics, string(current.Status), string(next))

	logger.Info().
		Str("appointment_id", id).
		Str("from", string(current.Status)).
		Str("to", string(next)).
		Msg("appointment status changed")

	procedureName := fallbackProcedureName
	if procedure, err := g.procedures.GetByID(ctx, updated.ProcedureID); err != nil {
		logger.Warn().Err(err).Str("procedure_id", updated.ProcedureID).Msg("failed to load procedure for status notification")
	} else {
		procedureName = procedure.Name
	}

	if err := g.notifier.PublishRowChange(ctx, entities.RowChangeUpdate, updated); err != nil {
		logger.Warn().Err(err).Str("appointment_id", id).Msg("failed to publish appointment update")
	}
	payload := entities.StatusChangePayload{
		AppointmentID: updated.ID,
		PatientID:     updated.PatientID,
		ProcedureName: procedureName,
		NewStatus:     next,
		Message:       entities.StatusChangeMessage(next, procedureName),
	}
	if err := g.notifier.PublishStatusChanged(ctx, payload); err != nil {
		logger.Warn().Err(err).Str("appointment_id", id).Msg("failed to publish status change")
	}
	if err := g.notifier.PublishRefresh(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to publish appointments refresh")
	}

	return updated, nil
}
