package services

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/bondusy/spa-booking/backend/internal/application/loaders"
	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/repositories"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/observability"
	apperrors "github.com/bondusy/spa-booking/backend/pkg/errors"
)

// AppointmentService serves appointment listings
type AppointmentService struct {
	repo          repositories.AppointmentRepository
	procedureRepo repositories.ProcedureRepository
	profileRepo   repositories.ProfileRepository
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(
	repo repositories.AppointmentRepository,
	procedureRepo repositories.ProcedureRepository,
	profileRepo repositories.ProfileRepository,
) *AppointmentService {
	return &AppointmentService{
		repo:          repo,
		procedureRepo: procedureRepo,
		profileRepo:   profileRepo,
	}
}

// List returns appointments visible to the caller joined with their procedure
// and patient. Admins see every appointment, patients only their own.
func (s *AppointmentService) List(ctx context.Context, identity *entities.Identity, filter repositories.AppointmentFilter) ([]*entities.AppointmentDetails, error) {
	if identity == nil || identity.UserID == "" {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}
	if !identity.IsAdmin() {
		filter.PatientID = identity.UserID
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.NewValidationError("unknown appointment status " + string(filter.Status))
	}

	appointments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return s.decorate(ctx, appointments), nil
}

// Get returns one appointment if the caller owns it or is an admin
func (s *AppointmentService) Get(ctx context.Context, identity *entities.Identity, id string) (*entities.AppointmentDetails, error) {
	if identity == nil || identity.UserID == "" {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}

	appointment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.PatientID != identity.UserID && !identity.IsAdmin() {
		// same answer as a missing row so ids cannot be probed
		return nil, apperrors.NewNotFoundError("appointment with id " + id + " not found")
	}

	return s.decorate(ctx, []*entities.Appointment{appointment})[0], nil
}

// decorate resolves procedures and profiles through batched loaders.
// A failed lookup leaves the joined fields empty.
func (s *AppointmentService) decorate(ctx context.Context, appointments []*entities.Appointment) []*entities.AppointmentDetails {
	l := loaders.For(ctx)
	if l == nil {
		l = loaders.NewLoaders(s.procedureRepo, s.profileRepo)
	}

	procedureThunks := make([]dataloader.Thunk[*entities.Procedure], len(appointments))
	profileThunks := make([]dataloader.Thunk[*entities.Profile], len(appointments))
	for i, a := range appointments {
		procedureThunks[i] = l.ProcedureLoader.Load(ctx, a.ProcedureID)
		profileThunks[i] = l.ProfileLoader.Load(ctx, a.PatientID)
	}

	logger := observability.LoggerFromContext(ctx)
	details := make([]*entities.AppointmentDetails, len(appointments))
	for i, a := range appointments {
		d := &entities.AppointmentDetails{Appointment: a}
		if procedure, err := procedureThunks[i](); err == nil {
			d.ProcedureName = procedure.Name
			d.ProcedurePrice = procedure.Price
		} else {
			logger.Debug().Err(err).Str("appointment_id", a.ID).Msg("procedure lookup failed")
		}
		if profile, err := profileThunks[i](); err == nil {
			d.PatientName = profile.FullName
			d.PatientEmail = profile.Email
		} else {
			logger.Debug().Err(err).Str("appointment_id", a.ID).Msg("profile lookup failed")
		}
		details[i] = d
	}
	return details
}
