package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/providers"
	"github.com/bondusy/spa-booking/backend/internal/domain/repositories"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/export"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/observability"
	apperrors "github.com/bondusy/spa-booking/backend/pkg/errors"
)

const (
	statisticsCachePrefix = "statistics:"
	statisticsCacheTTL    = 60
	unknownProcedureName  = "Sin especificar"
	monthlySeriesLength   = 12
)

var spanishShortMonths = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sep", "oct", "nov", "dic"}

// StatisticsService computes the admin dashboard
type StatisticsService struct {
	appointments repositories.AppointmentRepository
	procedures   repositories.ProcedureRepository
	cache        providers.CacheProvider
	loc          *time.Location
	now          func() time.Time
}

// NewStatisticsService creates a statistics service. cache may be nil.
func NewStatisticsService(
	appointments repositories.AppointmentRepository,
	procedures repositories.ProcedureRepository,
	cache providers.CacheProvider,
	loc *time.Location,
) *StatisticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &StatisticsService{
		appointments: appointments,
		procedures:   procedures,
		cache:        cache,
		loc:          loc,
		now:          time.Now,
	}
}

// WithClock replaces the time source that anchors the series
func (s *StatisticsService) WithClock(now func() time.Time) *StatisticsService {
	s.now = now
	return s
}

// Compute returns statistics over every appointment for the given period
func (s *StatisticsService) Compute(ctx context.Context, identity *entities.Identity, period string) (*entities.Statistics, error) {
	if !identity.IsAdmin() {
		return nil, apperrors.NewForbiddenError("only administrators can view statistics")
	}
	p, err := entities.ParseStatsPeriod(period)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	today := s.now().In(s.loc)
	key := fmt.Sprintf("%s%s:%s", statisticsCachePrefix, p, today.Format(entities.DateLayout))
	if stats, ok := s.cached(ctx, key); ok {
		return stats, nil
	}

	appointments, err := s.appointments.List(ctx, repositories.AppointmentFilter{})
	if err != nil {
		return nil, err
	}
	procedures, err := s.procedureIndex(ctx, appointments)
	if err != nil {
		return nil, err
	}

	stats := aggregate(p, appointments, procedures, today, s.loc)
	s.store(ctx, key, stats)
	return stats, nil
}

// Export renders the statistics of a period as an XLSX workbook
func (s *StatisticsService) Export(ctx context.Context, identity *entities.Identity, period string) ([]byte, error) {
	stats, err := s.Compute(ctx, identity, period)
	if err != nil {
		return nil, err
	}

	data, err := writeStatisticsWorkbook(stats)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build statistics workbook", err)
	}
	return data, nil
}

// InvalidateCache drops every cached statistics snapshot
func (s *StatisticsService) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeletePattern(ctx, statisticsCachePrefix+"*")
}

func (s *StatisticsService) cached(ctx context.Context, key string) (*entities.Statistics, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("statistics cache read failed")
		}
		return nil, false
	}
	var stats entities.Statistics
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, false
	}
	return &stats, true
}

func (s *StatisticsService) store(ctx context.Context, key string, stats *entities.Statistics) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, statisticsCacheTTL); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("statistics cache write failed")
	}
}

func (s *StatisticsService) procedureIndex(ctx context.Context, appointments []*entities.Appointment) (map[string]*entities.Procedure, error) {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, a := range appointments {
		if _, ok := seen[a.ProcedureID]; !ok {
			seen[a.ProcedureID] = struct{}{}
			ids = append(ids, a.ProcedureID)
		}
	}

	procedures, err := s.procedures.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	index := make(map[string]*entities.Procedure, len(procedures))
	for _, p := range procedures {
		index[p.ID] = p
	}
	return index, nil
}

func countsTowardsRevenue(status entities.AppointmentStatus) bool {
	return status == entities.AppointmentStatusConfirmed || status == entities.AppointmentStatusCompleted
}

// aggregate builds the dashboard. Counts cover every appointment, revenue only
// confirmed and completed ones. The daily series spans period days back from
// today inclusive, the monthly series the last twelve months.
func aggregate(
	period entities.StatsPeriod,
	appointments []*entities.Appointment,
	procedures map[string]*entities.Procedure,
	today time.Time,
	loc *time.Location,
) *entities.Statistics {
	stats := &entities.Statistics{
		Period:     period,
		Procedures: []entities.ProcedureStat{},
	}

	day := func(t time.Time) string { return t.In(loc).Format(entities.DateLayout) }
	month := func(t time.Time) string { return t.In(loc).Format("2006-01") }

	daily := map[string]*entities.SeriesPoint{}
	monthly := map[string]*entities.SeriesPoint{}
	byProcedure := map[string]*entities.ProcedureStat{}

	for _, a := range appointments {
		stats.TotalAppointments++
		switch a.Status {
		case entities.AppointmentStatusPending:
			stats.Pending++
		case entities.AppointmentStatusConfirmed:
			stats.Confirmed++
		case entities.AppointmentStatusCompleted:
			stats.Completed++
		case entities.AppointmentStatusCancelled:
			stats.Cancelled++
		}

		procedure := procedures[a.ProcedureID]
		revenue := 0.0
		if countsTowardsRevenue(a.Status) {
			revenue = procedure.PriceOrZero()
			stats.TotalRevenue += revenue

			name := unknownProcedureName
			if procedure != nil {
				name = procedure.Name
			}
			ps, ok := byProcedure[name]
			if !ok {
				ps = &entities.ProcedureStat{ProcedureID: a.ProcedureID, Name: name}
				byProcedure[name] = ps
			}
			ps.Count++
			ps.Revenue += revenue
		}

		bump(daily, day(a.AppointmentDate), revenue)
		bump(monthly, month(a.AppointmentDate), revenue)
	}

	for _, ps := range byProcedure {
		stats.Procedures = append(stats.Procedures, *ps)
	}
	sort.SliceStable(stats.Procedures, func(i, j int) bool {
		if stats.Procedures[i].Count != stats.Procedures[j].Count {
			return stats.Procedures[i].Count > stats.Procedures[j].Count
		}
		return stats.Procedures[i].Name < stats.Procedures[j].Name
	})

	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -period.Days())
	stats.Daily = make([]entities.SeriesPoint, 0, period.Days()+1)
	for d := start; !d.After(today); d = d.AddDate(0, 0, 1) {
		point := entities.SeriesPoint{Label: d.Format("02/01")}
		if p, ok := daily[day(d)]; ok {
			point.Count, point.Revenue = p.Count, p.Revenue
		}
		stats.Daily = append(stats.Daily, point)
	}

	firstMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, -(monthlySeriesLength - 1), 0)
	stats.Monthly = make([]entities.SeriesPoint, 0, monthlySeriesLength)
	for i := 0; i < monthlySeriesLength; i++ {
		m := firstMonth.AddDate(0, i, 0)
		point := entities.SeriesPoint{Label: spanishShortMonths[m.Month()-1]}
		if p, ok := monthly[month(m)]; ok {
			point.Count, point.Revenue = p.Count, p.Revenue
		}
		stats.Monthly = append(stats.Monthly, point)
	}

	return stats
}

func bump(series map[string]*entities.SeriesPoint, key string, revenue float64) {
	point, ok := series[key]
	if !ok {
		point = &entities.SeriesPoint{}
		series[key] = point
	}
	point.Count++
	point.Revenue += revenue
}

func writeStatisticsWorkbook(stats *entities.Statistics) ([]byte, error) {
	w := export.NewWorkbook()
	defer w.Close()

	if err := w.AddSheet("Resumen"); err != nil {
		return nil, err
	}
	summary := [][]interface{}{
		{"Periodo", string(stats.Period)},
		{"Total de citas", stats.TotalAppointments},
		{"Pendientes", stats.Pending},
		{"Confirmadas", stats.Confirmed},
		{"Completadas", stats.Completed},
		{"Canceladas", stats.Cancelled},
		{"Ingresos totales", stats.TotalRevenue},
	}
	if err := w.WriteHeader("Métrica", "Valor"); err != nil {
		return nil, err
	}
	for _, row := range summary {
		if err := w.WriteRow(row...); err != nil {
			return nil, err
		}
	}

	if err := w.AddSheet("Procedimientos"); err != nil {
		return nil, err
	}
	if err := w.WriteHeader("Procedimiento", "Citas", "Ingresos"); err != nil {
		return nil, err
	}
	for _, p := range stats.Procedures {
		if err := w.WriteRow(p.Name, p.Count, p.Revenue); err != nil {
			return nil, err
		}
	}

	for _, series := range []struct {
		sheet  string
		label  string
		points []entities.SeriesPoint
	}{
		{"Diario", "Día", stats.Daily},
		{"Mensual", "Mes", stats.Monthly},
	} {
		if err := w.AddSheet(series.sheet); err != nil {
			return nil, err
		}
		if err := w.WriteHeader(series.label, "Citas", "Ingresos"); err != nil {
			return nil, err
		}
		for _, p := range series.points {
			if err := w.WriteRow(p.Label, p.Count, p.Revenue); err != nil {
				return nil, err
			}
		}
	}

	return w.Bytes()
}
