package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bondusy/spa-booking/backend/internal/api/middleware"
	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// StatisticsService computes and exports the admin dashboard
type StatisticsService interface {
	Compute(ctx context.Context, identity *entities.Identity, period string) (*entities.Statistics, error)
	Export(ctx context.Context, identity *entities.Identity, period string) ([]byte, error)
}

// StatisticsHandler handles the admin statistics endpoints
type StatisticsHandler struct {
	service StatisticsService
	now     func() time.Time
}

// NewStatisticsHandler creates a new statistics handler
func NewStatisticsHandler(service StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{service: service, now: time.Now}
}

// GetStatistics handles GET /api/admin/statistics?period=week|month|year
func (h *StatisticsHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Compute(r.Context(), middleware.IdentityFromContext(r.Context()), periodParam(r))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

// ExportStatistics handles GET /api/admin/statistics/export?period=
func (h *StatisticsHandler) ExportStatistics(w http.ResponseWriter, r *http.Request) {
	period := periodParam(r)
	data, err := h.service.Export(r.Context(), middleware.IdentityFromContext(r.Context()), period)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	filename := fmt.Sprintf("estadisticas-%s-%s.xlsx", period, h.now().Format(entities.DateLayout))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func periodParam(r *http.Request) string {
	if period := r.URL.Query().Get("period"); period != "" {
		return period
	}
	return string(entities.StatsPeriodMonth)
}
