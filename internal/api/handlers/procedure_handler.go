package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bondusy/spa-booking/backend/internal/api/middleware"
	"github.com/bondusy/spa-booking/backend/internal/application/services"
	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/observability"
)

const maxImageUpload = 10 << 20

// ProcedureCatalog manages the treatment catalog
type ProcedureCatalog interface {
	List(ctx context.Context) ([]*entities.Procedure, error)
	ListAll(ctx context.Context, identity *entities.Identity) ([]*entities.Procedure, error)
	Get(ctx context.Context, id string) (*entities.ProcedureWithImages, error)
	Search(ctx context.Context, query string, limit int) ([]*entities.Procedure, error)
	Create(ctx context.Context, identity *entities.Identity, input services.ProcedureInput, image *services.ImageUpload) (*entities.Procedure, error)
	Update(ctx context.Context, identity *entities.Identity, id string, input services.ProcedureInput, image *services.ImageUpload) (*entities.Procedure, error)
	SetActive(ctx context.Context, identity *entities.Identity, id string, active bool) error
}

// CacheInvalidator drops cached responses after a catalog write
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context) error
}

// ProcedureHandler handles procedure-related requests
type ProcedureHandler struct {
	catalog   ProcedureCatalog
	validator *Validator
	cache     CacheInvalidator
}

// NewProcedureHandler creates a new procedure handler. cache may be nil.
func NewProcedureHandler(catalog ProcedureCatalog, validator *Validator, cache CacheInvalidator) *ProcedureHandler {
	return &ProcedureHandler{
		catalog:   catalog,
		validator: validator,
		cache:     cache,
	}
}

// ListProcedures handles GET /api/procedures
func (h *ProcedureHandler) ListProcedures(w http.ResponseWriter, r *http.Request) {
	procedures, err := h.catalog.List(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"procedures": procedures,
		"count":      len(procedures),
	})
}

// SearchProcedures handles GET /api/procedures/search?q=
func (h *ProcedureHandler) SearchProcedures(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	procedures, err := h.catalog.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"procedures": procedures,
		"count":      len(procedures),
	})
}

// GetProcedure handles GET /api/procedures/{id}
func (h *ProcedureHandler) GetProcedure(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "procedure ID is required")
		return
	}

	procedure, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, procedure)
}

// ListAllProcedures handles GET /api/admin/procedures
func (h *ProcedureHandler) ListAllProcedures(w http.ResponseWriter, r *http.Request) {
	procedures, err := h.catalog.ListAll(r.Context(), middleware.IdentityFromContext(r.Context()))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"procedures": procedures,
		"count":      len(procedures),
	})
}

// CreateProcedure handles POST /api/admin/procedures
func (h *ProcedureHandler) CreateProcedure(w http.ResponseWriter, r *http.Request) {
	input, image, ok := h.readProcedure(w, r)
	if !ok {
		return
	}
	defer closeImage(image)

	procedure, err := h.catalog.Create(r.Context(), middleware.IdentityFromContext(r.Context()), input, image)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	h.invalidate(r)

	respondWithJSON(w, http.StatusCreated, procedure)
}

// UpdateProcedure handles PUT /api/admin/procedures/{id}
func (h *ProcedureHandler) UpdateProcedure(w http.ResponseWriter, r *http.Request) {
	input, image, ok := h.readProcedure(w, r)
	if !ok {
		return
	}
	defer closeImage(image)

	procedure, err := h.catalog.Update(r.Context(), middleware.IdentityFromContext(r.Context()), r.PathValue("id"), input, image)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	h.invalidate(r)

	respondWithJSON(w, http.StatusOK, procedure)
}

// SetProcedureActive handles PATCH /api/admin/procedures/{id}/active
func (h *ProcedureHandler) SetProcedureActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsActive *bool `json:"is_active" validate:"required"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := h.validator.Struct(req); msg != "" {
		respondWithError(w, http.StatusBadRequest, msg)
		return
	}

	id := r.PathValue("id")
	if err := h.catalog.SetActive(r.Context(), middleware.IdentityFromContext(r.Context()), id, *req.IsActive); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	h.invalidate(r)

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"id":        id,
		"is_active": *req.IsActive,
	})
}

// readProcedure accepts either a JSON body or a multipart form with an
// optional "image" file part.
func (h *ProcedureHandler) readProcedure(w http.ResponseWriter, r *http.Request) (services.ProcedureInput, *services.ImageUpload, bool) {
	var input services.ProcedureInput

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if !decodeJSON(w, r, &input) {
			return input, nil, false
		}
		if msg := h.validator.Struct(input); msg != "" {
			respondWithError(w, http.StatusBadRequest, msg)
			return input, nil, false
		}
		return input, nil, true
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageUpload+maxJSONBody)
	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return input, nil, false
	}

	input.Name = r.FormValue("name")
	input.Description = optionalForm(r, "description")
	input.DetailedDescription = optionalForm(r, "detailed_description")
	input.Benefits = optionalForm(r, "benefits")
	input.Preparation = optionalForm(r, "preparation")
	input.VideoURL = optionalForm(r, "video_url")
	input.ImageURL = optionalForm(r, "image_url")

	if raw := r.FormValue("duration_minutes"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "duration_minutes no es válido")
			return input, nil, false
		}
		input.DurationMinutes = minutes
	}
	if raw := r.FormValue("price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "price no es válido")
			return input, nil, false
		}
		input.Price = &price
	}
	if raw := r.FormValue("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "is_active no es válido")
			return input, nil, false
		}
		input.IsActive = &active
	}

	if msg := h.validator.Struct(input); msg != "" {
		respondWithError(w, http.StatusBadRequest, msg)
		return input, nil, false
	}

	file, header, err := r.FormFile("image")
	if err == http.ErrMissingFile {
		return input, nil, true
	}
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid image upload")
		return input, nil, false
	}
	return input, &services.ImageUpload{Filename: header.Filename, Body: file}, true
}

func (h *ProcedureHandler) invalidate(r *http.Request) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InvalidateCache(r.Context()); err != nil {
		observability.LoggerFromContext(r.Context()).Warn().Err(err).Msg("failed to invalidate procedure responses")
	}
}

func closeImage(image *services.ImageUpload) {
	if image == nil {
		return
	}
	if closer, ok := image.Body.(io.Closer); ok {
		closer.Close()
	}
}

func optionalForm(r *http.Request, key string) *string {
	if _, ok := r.MultipartForm.Value[key]; !ok {
		return nil
	}
	value := r.FormValue(key)
	return &value
}
