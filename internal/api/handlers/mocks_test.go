package handlers_test

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/bondusy/spa-booking/backend/internal/api/middleware"
	"github.com/bondusy/spa-booking/backend/internal/application/services"
	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/repositories"
)

var (
	patient = &entities.Identity{UserID: "patient-1", Email: "ana@example.com", Role: entities.RolePatient}
	admin   = &entities.Identity{UserID: "admin-1", Email: "admin@example.com", Role: entities.RoleAdmin}
)

// as attaches identity to the request the way the auth middleware would
func as(r *http.Request, identity *entities.Identity) *http.Request {
	return r.WithContext(middleware.WithIdentity(r.Context(), identity))
}

// MockSlotService

type MockSlotService struct {
	mock.Mock
	schedule *entities.SlotSchedule
}

func (m *MockSlotService) AvailableSlots(ctx context.Context, date time.Time) ([]entities.SlotAvailability, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.SlotAvailability), args.Error(1)
}

func (m *MockSlotService) Schedule() *entities.SlotSchedule {
	return m.schedule
}

// MockAppointmentReader

type MockAppointmentReader struct {
	mock.Mock
}

func (m *MockAppointmentReader) List(ctx context.Context, identity *entities.Identity, filter repositories.AppointmentFilter) ([]*entities.AppointmentDetails, error) {
	args := m.Called(ctx, identity, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AppointmentDetails), args.Error(1)
}

func (m *MockAppointmentReader) Get(ctx context.Context, identity *entities.Identity, id string) (*entities.AppointmentDetails, error) {
	args := m.Called(ctx, identity, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AppointmentDetails), args.Error(1)
}

// MockBooker

type MockBooker struct {
	mock.Mock
}

func (m *MockBooker) Submit(ctx context.Context, identity *entities.Identity, req services.BookingRequest) (*services.BookingResult, error) {
	args := m.Called(ctx, identity, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.BookingResult), args.Error(1)
}

func (m *MockBooker) Reschedule(ctx context.Context, identity *entities.Identity, req services.RescheduleRequest) (*entities.Appointment, error) {
	args := m.Called(ctx, identity, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

// MockStatusSetter

type MockStatusSetter struct {
	mock.Mock
}

func (m *MockStatusSetter) SetStatus(ctx context.Context, identity *entities.Identity, id string, status string) (*entities.Appointment, error) {
	args := m.Called(ctx, identity, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

// MockProcedureCatalog

type MockProcedureCatalog struct {
	mock.Mock
	uploaded []byte
}

func (m *MockProcedureCatalog) List(ctx context.Context) ([]*entities.Procedure, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*entities.Procedure), args.Error(1)
}

func (m *MockProcedureCatalog) ListAll(ctx context.Context, identity *entities.Identity) ([]*entities.Procedure, error) {
	args := m.Called(ctx, identity)
	return args.Get(0).([]*entities.Procedure), args.Error(1)
}

func (m *MockProcedureCatalog) Get(ctx context.Context, id string) (*entities.ProcedureWithImages, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ProcedureWithImages), args.Error(1)
}

func (m *MockProcedureCatalog) Search(ctx context.Context, query string, limit int) ([]*entities.Procedure, error) {
	args := m.Called(ctx, query, limit)
	return args.Get(0).([]*entities.Procedure), args.Error(1)
}

func (m *MockProcedureCatalog) Create(ctx context.Context, identity *entities.Identity, input services.ProcedureInput, image *services.ImageUpload) (*entities.Procedure, error) {
	m.readImage(image)
	args := m.Called(ctx, identity, input, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Procedure), args.Error(1)
}

func (m *MockProcedureCatalog) Update(ctx context.Context, identity *entities.Identity, id string, input services.ProcedureInput, image *services.ImageUpload) (*entities.Procedure, error) {
	m.readImage(image)
	args := m.Called(ctx, identity, id, input, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Procedure), args.Error(1)
}

func (m *MockProcedureCatalog) SetActive(ctx context.Context, identity *entities.Identity, id string, active bool) error {
	args := m.Called(ctx, identity, id, active)
	return args.Error(0)
}

func (m *MockProcedureCatalog) readImage(image *services.ImageUpload) {
	if image != nil {
		m.uploaded, _ = io.ReadAll(image.Body)
	}
}

// MockCacheInvalidator

type MockCacheInvalidator struct {
	mock.Mock
}

func (m *MockCacheInvalidator) InvalidateCache(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockStatisticsService

type MockStatisticsService struct {
	mock.Mock
}

func (m *MockStatisticsService) Compute(ctx context.Context, identity *entities.Identity, period string) (*entities.Statistics, error) {
	args := m.Called(ctx, identity, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Statistics), args.Error(1)
}

func (m *MockStatisticsService) Export(ctx context.Context, identity *entities.Identity, period string) ([]byte, error) {
	args := m.Called(ctx, identity, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockDirectEmailSender

type MockDirectEmailSender struct {
	mock.Mock
}

func (m *MockDirectEmailSender) SendDirect(ctx context.Context, msg *entities.EmailMessage) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

// MockChatResponder

type MockChatResponder struct {
	mock.Mock
}

func (m *MockChatResponder) Reply(ctx context.Context, message string) (string, error) {
	args := m.Called(ctx, message)
	return args.String(0), args.Error(1)
}
