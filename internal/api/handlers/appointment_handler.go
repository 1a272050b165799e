package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/bondusy/spa-booking/backend/internal/api/middleware"
	"github.com/bondusy/spa-booking/backend/internal/application/services"
	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/repositories"
)

// SlotService reports slot availability
type SlotService interface {
	AvailableSlots(ctx context.Context, date time.Time) ([]entities.SlotAvailability, error)
	Schedule() *entities.SlotSchedule
}

// AppointmentReader serves appointment listings
type AppointmentReader interface {
	List(ctx context.Context, identity *entities.Identity, filter repositories.AppointmentFilter) ([]*entities.AppointmentDetails, error)
	Get(ctx context.Context, identity *entities.Identity, id string) (*entities.AppointmentDetails, error)
}

// Booker creates and reschedules appointments
type Booker interface {
	Submit(ctx context.Context, identity *entities.Identity, req services.BookingRequest) (*services.BookingResult, error)
	Reschedule(ctx context.Context, identity *entities.Identity, req services.RescheduleRequest) (*entities.Appointment, error)
}

// StatusSetter moves appointments through their lifecycle
type StatusSetter interface {
	SetStatus(ctx context.Context, identity *entities.Identity, id string, status string) (*entities.Appointment, error)
}

// AppointmentHandler handles appointment requests
type AppointmentHandler struct {
	slots     SlotService
	reader    AppointmentReader
	booker    Booker
	status    StatusSetter
	validator *Validator
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(slots SlotService, reader AppointmentReader, booker Booker, status StatusSetter, validator *Validator) *AppointmentHandler {
	return &AppointmentHandler{
		slots:     slots,
		reader:    reader,
		booker:    booker,
		status:    status,
		validator: validator,
	}
}

type bookAppointmentRequest struct {
	ProcedureID string `json:"procedure_id" validate:"required"`
	Date        string `json:"date" validate:"required,date"`
	Time        string `json:"time" validate:"required,slot"`
	Notes       string `json:"notes" validate:"max=1000"`
}

type rescheduleRequest struct {
	ProcedureID string  `json:"procedure_id"`
	Date        string  `json:"date" validate:"required,date"`
	Time        string  `json:"time" validate:"required,slot"`
	Notes       *string `json:"notes" validate:"omitempty,max=1000"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// GetAvailability handles GET /api/availability?date=YYYY-MM-DD
func (h *AppointmentHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		respondWithError(w, http.StatusBadRequest, "date query parameter is required")
		return
	}

	date, err := h.slots.Schedule().ParseDate(dateStr)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid date format (use YYYY-MM-DD)")
		return
	}

	slots, err := h.slots.AvailableSlots(r.Context(), date)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	occupied := make([]string, 0)
	for _, s := range slots {
		if s.Booked {
			occupied = append(occupied, s.Time)
		}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"date":     dateStr,
		"slots":    slots,
		"occupied": occupied,
	})
}

// ListAppointments handles GET /api/appointments
func (h *AppointmentHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repositories.AppointmentFilter{
		Status: entities.AppointmentStatus(query.Get("status")),
	}

	for param, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		raw := query.Get(param)
		if raw == "" {
			continue
		}
		t, err := h.slots.Schedule().ParseDate(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid "+param+" date (use YYYY-MM-DD)")
			return
		}
		*dst = &t
	}
	if filter.To != nil {
		end := filter.To.AddDate(0, 0, 1)
		filter.To = &end
	}
	if limit, err := strconv.Atoi(query.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(query.Get("offset")); err == nil && offset > 0 {
		filter.Offset = offset
	}

	appointments, err := h.reader.List(r.Context(), middleware.IdentityFromContext(r.Context()), filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"appointments": appointments,
		"count":        len(appointments),
	})
}

// GetAppointment handles GET /api/appointments/{id}
func (h *AppointmentHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	appointment, err := h.reader.Get(r.Context(), middleware.IdentityFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, appointment)
}

// BookAppointment handles POST /api/appointments
func (h *AppointmentHandler) BookAppointment(w http.ResponseWriter, r *http.Request) {
	var req bookAppointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := h.validator.Struct(req); msg != "" {
		respondWithError(w, http.StatusBadRequest, msg)
		return
	}

	result, err := h.booker.Submit(r.Context(), middleware.IdentityFromContext(r.Context()), services.BookingRequest{
		ProcedureID: req.ProcedureID,
		Date:        req.Date,
		Time:        req.Time,
		Notes:       req.Notes,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"id":                result.Appointment.ID,
		"appointment":       result.Appointment,
		"notification_sent": result.NotificationSent,
	})
}

// RescheduleAppointment handles POST /api/appointments/{id}/reschedule
func (h *AppointmentHandler) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := h.validator.Struct(req); msg != "" {
		respondWithError(w, http.StatusBadRequest, msg)
		return
	}

	replacement, err := h.booker.Reschedule(r.Context(), middleware.IdentityFromContext(r.Context()), services.RescheduleRequest{
		AppointmentID: r.PathValue("id"),
		ProcedureID:   req.ProcedureID,
		Date:          req.Date,
		Time:          req.Time,
		Notes:         req.Notes,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, replacement)
}

// UpdateStatus handles PATCH /api/admin/appointments/{id}/status
func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := h.validator.Struct(req); msg != "" {
		respondWithError(w, http.StatusBadRequest, msg)
		return
	}

	appointment, err := h.status.SetStatus(r.Context(), middleware.IdentityFromContext(r.Context()), r.PathValue("id"), req.Status)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, appointment)
}
