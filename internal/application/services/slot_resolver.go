package services

import (
	"context"
	"time"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/repositories"
	apperrors "github.com/bondusy/spa-booking/backend/pkg/errors"
)

// SlotResolver reports which slots of a day are taken
type SlotResolver struct {
	repo     repositories.AppointmentRepository
	schedule *entities.SlotSchedule
	now      func() time.Time
}

// NewSlotResolver creates a slot resolver over the given schedule
func NewSlotResolver(repo repositories.AppointmentRepository, schedule *entities.SlotSchedule) *SlotResolver {
	return &SlotResolver{
		repo:     repo,
		schedule: schedule,
		now:      time.Now,
	}
}

// Schedule returns the slot schedule the resolver works with
func (r *SlotResolver) Schedule() *entities.SlotSchedule {
	return r.schedule
}

// OccupiedSlots returns the HH:MM slots of date held by a pending or confirmed
// appointment. A lookup failure is returned as a transient error, never as an empty set.
func (r *SlotResolver) OccupiedSlots(ctx context.Context, date time.Time) (map[string]struct{}, error) {
	from, to := r.schedule.DayWindow(date)

	instants, err := r.repo.ListOccupied(ctx, from, to)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeTransient) {
			return nil, err
		}
		return nil, apperrors.NewTransientError("failed to load booked slots", err)
	}

	occupied := make(map[string]struct{}, len(instants))
	for _, at := range instants {
		occupied[r.schedule.SlotOf(at)] = struct{}{}
	}
	return occupied, nil
}

// AvailableSlots lists every configured slot of date with its booked and past flags
func (r *SlotResolver) AvailableSlots(ctx context.Context, date time.Time) ([]entities.SlotAvailability, error) {
	occupied, err := r.OccupiedSlots(ctx, date)
	if err != nil {
		return nil, err
	}

	now := r.now()
	slots := r.schedule.Slots()
	result := make([]entities.SlotAvailability, 0, len(slots))
	for _, slot := range slots {
		start, err := r.schedule.At(date, slot)
		if err != nil {
			return nil, apperrors.NewInternalError("invalid slot schedule", err)
		}
		_, booked := occupied[slot]
		past := !start.After(now)
		result = append(result, entities.SlotAvailability{
			Time:      slot,
			Start:     start,
			Booked:    booked,
			Past:      past,
			Available: !booked && !past,
		})
	}
	return result, nil
}

// WithClock replaces the time source used to flag past slots
func (r *SlotResolver) WithClock(now func() time.Time) *SlotResolver {
	r.now = now
	return r
}
