package routes

import (
	"net/http"
	"strings"

	"github.com/bondusy/spa-booking/backend/internal/api/handlers"
	"github.com/bondusy/spa-booking/backend/internal/api/middleware"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	appointmentHandler *handlers.AppointmentHandler
	procedureHandler   *handlers.ProcedureHandler
	statisticsHandler  *handlers.StatisticsHandler
	functionsHandler   *handlers.FunctionsHandler
	authHandler        *handlers.AuthHandler

	authenticator   *middleware.Authenticator
	cacheMiddleware *middleware.CacheMiddleware
	loaders         func(http.Handler) http.Handler
	allowedOrigins  []string
	storageDir      string
	metrics         *observability.Metrics
}

// Options carries the optional pieces of the router
type Options struct {
	CacheMiddleware *middleware.CacheMiddleware
	Loaders         func(http.Handler) http.Handler
	AllowedOrigins  []string
	// StorageDir is served under /storage/v1/object/public/ when set
	StorageDir string
	Metrics    *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	appointmentHandler *handlers.AppointmentHandler,
	procedureHandler *handlers.ProcedureHandler,
	statisticsHandler *handlers.StatisticsHandler,
	functionsHandler *handlers.FunctionsHandler,
	authHandler *handlers.AuthHandler,
	authenticator *middleware.Authenticator,
	opts Options,
) *Router {
	return &Router{
		mux:                http.NewServeMux(),
		appointmentHandler: appointmentHandler,
		procedureHandler:   procedureHandler,
		statisticsHandler:  statisticsHandler,
		functionsHandler:   functionsHandler,
		authHandler:        authHandler,
		authenticator:      authenticator,
		cacheMiddleware:    opts.CacheMiddleware,
		loaders:            opts.Loaders,
		allowedOrigins:     opts.AllowedOrigins,
		storageDir:         opts.StorageDir,
		metrics:            opts.Metrics,
	}
}

func authed(h http.HandlerFunc) http.Handler {
	return middleware.RequireAuth(h)
}

func admin(h http.HandlerFunc) http.Handler {
	return middleware.RequireAdmin(h)
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Availability and appointments
	r.mux.HandleFunc("GET /api/availability", r.appointmentHandler.GetAvailability)
	r.mux.Handle("GET /api/appointments", authed(r.appointmentHandler.ListAppointments))
	r.mux.Handle("POST /api/appointments", authed(r.appointmentHandler.BookAppointment))
	r.mux.Handle("GET /api/appointments/{id}", authed(r.appointmentHandler.GetAppointment))
	r.mux.Handle("POST /api/appointments/{id}/reschedule", authed(r.appointmentHandler.RescheduleAppointment))
	r.mux.Handle("PATCH /api/admin/appointments/{id}/status", admin(r.appointmentHandler.UpdateStatus))

	// Procedure catalog
	r.mux.HandleFunc("GET /api/procedures", r.procedureHandler.ListProcedures)
	r.mux.HandleFunc("GET /api/procedures/search", r.procedureHandler.SearchProcedures)
	r.mux.HandleFunc("GET /api/procedures/{id}", r.procedureHandler.GetProcedure)
	r.mux.Handle("GET /api/admin/procedures", admin(r.procedureHandler.ListAllProcedures))
	r.mux.Handle("POST /api/admin/procedures", admin(r.procedureHandler.CreateProcedure))
	r.mux.Handle("PUT /api/admin/procedures/{id}", admin(r.procedureHandler.UpdateProcedure))
	r.mux.Handle("PATCH /api/admin/procedures/{id}/active", admin(r.procedureHandler.SetProcedureActive))

	// Statistics
	r.mux.Handle("GET /api/admin/statistics", admin(r.statisticsHandler.GetStatistics))
	r.mux.Handle("GET /api/admin/statistics/export", admin(r.statisticsHandler.ExportStatistics))

	// Session helpers
	r.mux.HandleFunc("POST /api/auth/validate-password", r.authHandler.ValidatePassword)
	r.mux.Handle("GET /api/auth/me", authed(r.authHandler.Me))

	// Functions
	r.mux.HandleFunc("POST /functions/resend", r.functionsHandler.SendEmail)
	r.mux.HandleFunc("POST /functions/spa-chat", r.functionsHandler.Chat)

	if r.storageDir != "" {
		r.mux.Handle("GET /storage/v1/object/public/", http.StripPrefix("/storage/v1/object/public/", noListing(http.FileServer(http.Dir(r.storageDir)))))
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = middleware.RecordRoute(r.mux)
	handler = middleware.LoggingMiddleware(handler)
	if r.loaders != nil {
		handler = r.loaders(handler)
	}
	handler = r.authenticator.Middleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set even on cache HITs
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}

// NewStreamRouter builds the realtime gateway. Streams skip compression and
// response caching so events are flushed as they happen.
func NewStreamRouter(sseHandler *handlers.SSEHandler, authenticator *middleware.Authenticator, allowedOrigins []string, metrics *observability.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /api/stream/appointments", sseHandler.StreamAppointments)

	var handler http.Handler = middleware.RecordRoute(mux)
	handler = middleware.LoggingMiddleware(handler)
	handler = authenticator.Middleware(handler)
	handler = middleware.ObservabilityMiddleware(metrics)(handler)
	handler = middleware.CORSMiddleware(allowedOrigins)(handler)
	return handler
}

func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == "" || strings.HasSuffix(req.URL.Path, "/") {
			http.NotFound(w, req)
			return
		}
		next.ServeHTTP(w, req)
	})
}
