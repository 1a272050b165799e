package routes_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondusy/spa-booking/backend/internal/api/handlers"
	"github.com/bondusy/spa-booking/backend/internal/api/middleware"
	"github.com/bondusy/spa-booking/backend/internal/api/routes"
	"github.com/bondusy/spa-booking/backend/internal/application/services"
	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/repositories"
)

const secret = "router-secret"

type roles struct{}

func (roles) Resolve(ctx context.Context, userID string) (entities.Role, error) {
	if userID == "admin-1" {
		return entities.RoleAdmin, nil
	}
	return entities.RolePatient, nil
}

type catalog struct{ handlers.ProcedureCatalog }

func (catalog) List(ctx context.Context) ([]*entities.Procedure, error) {
	return []*entities.Procedure{{ID: "proc-facial", Name: "Facial Hidratante", DurationMinutes: 45, IsActive: true}}, nil
}

type reader struct{ handlers.AppointmentReader }

func (reader) List(ctx context.Context, identity *entities.Identity, filter repositories.AppointmentFilter) ([]*entities.AppointmentDetails, error) {
	return []*entities.AppointmentDetails{}, nil
}

type stats struct{ handlers.StatisticsService }

func (stats) Compute(ctx context.Context, identity *entities.Identity, period string) (*entities.Statistics, error) {
	return &entities.Statistics{Period: entities.StatsPeriod(period)}, nil
}

type slots struct{ schedule *entities.SlotSchedule }

func (s slots) AvailableSlots(ctx context.Context, date time.Time) ([]entities.SlotAvailability, error) {
	return nil, nil
}

func (s slots) Schedule() *entities.SlotSchedule { return s.schedule }

func newServer(t *testing.T, storageDir string) http.Handler {
	t.Helper()
	schedule, err := entities.NewSlotSchedule([]string{"09:00", "10:00"}, time.UTC)
	require.NoError(t, err)
	validator := handlers.NewValidator(schedule)

	router := routes.NewRouter(
		handlers.NewAppointmentHandler(slots{schedule}, reader{}, nil, nil, validator),
		handlers.NewProcedureHandler(catalog{}, validator, nil),
		handlers.NewStatisticsHandler(stats{}),
		handlers.NewFunctionsHandler(nil, services.NewChatService(nil, "")),
		handlers.NewAuthHandler(),
		middleware.NewAuthenticator(secret, "", roles{}),
		routes.Options{
			AllowedOrigins: []string{"https://spa.example.com"},
			StorageDir:     storageDir,
		},
	)
	return router.SetupRoutes()
}

func bearer(t *testing.T, subject string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + token
}

func do(h http.Handler, method, target, auth string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Origin", "https://spa.example.com")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_Access(t *testing.T) {
	h := newServer(t, "")

	tests := []struct {
		name   string
		method string
		target string
		auth   string
		want   int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"public catalog", http.MethodGet, "/api/procedures", "", http.StatusOK},
		{"availability needs a date", http.MethodGet, "/api/availability", "", http.StatusBadRequest},
		{"appointments need a session", http.MethodGet, "/api/appointments", "", http.StatusUnauthorized},
		{"patient lists appointments", http.MethodGet, "/api/appointments", bearer(t, "patient-1"), http.StatusOK},
		{"patient cannot see statistics", http.MethodGet, "/api/admin/statistics", bearer(t, "patient-1"), http.StatusForbidden},
		{"admin sees statistics", http.MethodGet, "/api/admin/statistics", bearer(t, "admin-1"), http.StatusOK},
		{"bad token", http.MethodGet, "/api/procedures", "Bearer nope", http.StatusUnauthorized},
		{"unknown method", http.MethodDelete, "/api/procedures", "", http.StatusMethodNotAllowed},
		{"session endpoint", http.MethodGet, "/api/auth/me", bearer(t, "patient-1"), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, tt.method, tt.target, tt.auth, "")
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, "https://spa.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestRouter_Functions(t *testing.T) {
	h := newServer(t, "")

	w := do(h, http.MethodPost, "/api/auth/validate-password", "", `{"password":"Spa-Relax2025"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"isValid":true,"errors":[]}`, w.Body.String())

	w = do(h, http.MethodPost, "/functions/spa-chat", "", `{"message":"hola"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code, "chat without a provider")
}

func TestRouter_Storage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "procedures"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "procedures", "a.jpg"), []byte("jpeg"), 0o644))
	h := newServer(t, dir)

	w := do(h, http.MethodGet, "/storage/v1/object/public/procedures/a.jpg", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpeg", w.Body.String())
	assert.Equal(t, "public, max-age=86400", w.Header().Get("Cache-Control"))

	w = do(h, http.MethodGet, "/storage/v1/object/public/procedures/", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
