package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/providers"
	"github.com/bondusy/spa-booking/backend/internal/domain/repositories"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/observability"
	apperrors "github.com/bondusy/spa-booking/backend/pkg/errors"
)

const defaultSearchLimit = 20

// ProcedureInput carries the editable fields of a procedure
type ProcedureInput struct {
	Name                string   `json:"name" validate:"required,max=200"`
	Description         *string  `json:"description"`
	DetailedDescription *string  `json:"detailed_description"`
	Benefits            *string  `json:"benefits"`
	Preparation         *string  `json:"preparation"`
	DurationMinutes     int      `json:"duration_minutes" validate:"required,gt=0"`
	Price               *float64 `json:"price" validate:"omitempty,gte=0"`
	VideoURL            *string  `json:"video_url"`
	ImageURL            *string  `json:"image_url"`
	IsActive            *bool    `json:"is_active"`
}

// ImageUpload is a picture attached to a procedure write
type ImageUpload struct {
	Filename string
	Body     io.Reader
}

// ProcedureService manages the treatment catalog
type ProcedureService struct {
	repo    repositories.ProcedureRepository
	search  repositories.ProcedureSearchRepository
	storage providers.ImageStorage
	now     func() time.Time
}

// NewProcedureService creates a procedure service. search may be nil, in
// which case searches fall back to the database.
func NewProcedureService(
	repo repositories.ProcedureRepository,
	search repositories.ProcedureSearchRepository,
	storage providers.ImageStorage,
) *ProcedureService {
	return &ProcedureService{
		repo:    repo,
		search:  search,
		storage: storage,
		now:     time.Now,
	}
}

// List returns the active procedures ordered by name
func (s *ProcedureService) List(ctx context.Context) ([]*entities.Procedure, error) {
	active := true
	procedures, err := s.repo.List(ctx, repositories.ProcedureFilter{IsActive: &active})
	if err != nil {
		return nil, err
	}
	return s.resolveAll(procedures), nil
}

// ListAll returns every procedure, including disabled ones
func (s *ProcedureService) ListAll(ctx context.Context, identity *entities.Identity) ([]*entities.Procedure, error) {
	if !identity.IsAdmin() {
		return nil, apperrors.NewForbiddenError("only administrators can manage procedures")
	}
	procedures, err := s.repo.List(ctx, repositories.ProcedureFilter{})
	if err != nil {
		return nil, err
	}
	return s.resolveAll(procedures), nil
}

// Get returns a procedure with its gallery
func (s *ProcedureService) Get(ctx context.Context, id string) (*entities.ProcedureWithImages, error) {
	procedure, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	images, err := s.repo.ListImages(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, img := range images {
		img.ImageURL = s.imageURL(img.ImageURL)
	}

	return &entities.ProcedureWithImages{
		Procedure: s.resolve(procedure),
		Images:    images,
	}, nil
}

// Search finds active procedures matching query. Results keep the search
// engine's relevance order.
func (s *ProcedureService) Search(ctx context.Context, query string, limit int) ([]*entities.Procedure, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(ctx)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	if s.search == nil {
		return s.searchDatabase(ctx, query, limit)
	}

	ids, err := s.search.Search(ctx, query, limit)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("query", query).Msg("search engine failed, falling back to database")
		return s.searchDatabase(ctx, query, limit)
	}

	found, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*entities.Procedure, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}

	results := make([]*entities.Procedure, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok && p.IsActive {
			results = append(results, s.resolve(p))
		}
	}
	return results, nil
}

func (s *ProcedureService) searchDatabase(ctx context.Context, query string, limit int) ([]*entities.Procedure, error) {
	active := true
	procedures, err := s.repo.List(ctx, repositories.ProcedureFilter{IsActive: &active, Query: query, Limit: limit})
	if err != nil {
		return nil, err
	}
	return s.resolveAll(procedures), nil
}

// Create adds a procedure, uploading its image first when one is attached
func (s *ProcedureService) Create(ctx context.Context, identity *entities.Identity, input ProcedureInput, image *ImageUpload) (*entities.Procedure, error) {
	if !identity.IsAdmin() {
		return nil, apperrors.NewForbiddenError("only administrators can manage procedures")
	}
	if err := validateProcedureInput(input); err != nil {
		return nil, err
	}

	procedure := &entities.Procedure{
		ID:        uuid.New().String(),
		IsActive:  true,
		CreatedAt: s.now(),
	}
	applyProcedureInput(procedure, input)

	if image != nil {
		url, err := s.uploadImage(ctx, image)
		if err != nil {
			return nil, err
		}
		procedure.ImageURL = &url
	}

	if err := s.repo.Create(ctx, procedure); err != nil {
		return nil, err
	}
	s.reindex(ctx, procedure)

	return s.resolve(procedure), nil
}

// Update replaces a procedure's editable fields. Without a new image the
// stored image is kept.
func (s *ProcedureService) Update(ctx context.Context, identity *entities.Identity, id string, input ProcedureInput, image *ImageUpload) (*entities.Procedure, error) {
	if !identity.IsAdmin() {
		return nil, apperrors.NewForbiddenError("only administrators can manage procedures")
	}
	if err := validateProcedureInput(input); err != nil {
		return nil, err
	}

	procedure, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyProcedureInput(procedure, input)

	if image != nil {
		url, err := s.uploadImage(ctx, image)
		if err != nil {
			return nil, err
		}
		procedure.ImageURL = &url
	}

	if err := s.repo.Update(ctx, procedure); err != nil {
		return nil, err
	}
	s.reindex(ctx, procedure)

	return s.resolve(procedure), nil
}

// SetActive enables or soft-disables a procedure
func (s *ProcedureService) SetActive(ctx context.Context, identity *entities.Identity, id string, active bool) error {
	if !identity.IsAdmin() {
		return apperrors.NewForbiddenError("only administrators can manage procedures")
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return err
	}

	if procedure, err := s.repo.GetByID(ctx, id); err == nil {
		s.reindex(ctx, procedure)
	}
	return nil
}

// SeedSamples inserts the sample catalog when no procedure exists yet.
// It returns how many procedures were inserted.
func (s *ProcedureService) SeedSamples(ctx context.Context) (int, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	samples := SampleProcedures()
	for _, p := range samples {
		p.ID = uuid.New().String()
		p.CreatedAt = s.now()
		if err := s.repo.Create(ctx, p); err != nil {
			return 0, fmt.Errorf("failed to seed %s: %w", p.Name, err)
		}
		s.reindex(ctx, p)
	}
	return len(samples), nil
}

// SampleProcedures is the starter catalog
func SampleProcedures() []*entities.Procedure {
	sample := func(name, description string, minutes int, price float64, image string) *entities.Procedure {
		return &entities.Procedure{
			Name:            name,
			Description:     &description,
			DurationMinutes: minutes,
			Price:           &price,
			ImageURL:        &image,
			IsActive:        true,
		}
	}
	return []*entities.Procedure{
		sample("Exfoliación Corporal", "Tratamiento de exfoliación profunda para suavizar la piel", 60, 60, "/images/procedures/body-scrub.jpg"),
		sample("Facial Hidratante", "Tratamiento facial profundo con hidratación intensiva", 45, 65, "/images/procedures/facial-hydrating.jpg"),
		sample("Tratamiento Capilar Nutritivo", "Mascarilla intensiva para cabello seco y dañado", 50, 50, "/images/procedures/hair-treatment.jpg"),
	}
}

// Reindex pushes every procedure to the search engine
func (s *ProcedureService) Reindex(ctx context.Context) (int, error) {
	if s.search == nil {
		return 0, nil
	}
	procedures, err := s.repo.List(ctx, repositories.ProcedureFilter{})
	if err != nil {
		return 0, err
	}
	for _, p := range procedures {
		if err := s.search.Index(ctx, p); err != nil {
			return 0, apperrors.NewExternalError(fmt.Sprintf("failed to index procedure %s", p.ID), err)
		}
	}
	return len(procedures), nil
}

func (s *ProcedureService) reindex(ctx context.Context, procedure *entities.Procedure) {
	if s.search == nil {
		return
	}
	if err := s.search.Index(ctx, procedure); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("procedure_id", procedure.ID).Msg("failed to index procedure")
	}
}

func (s *ProcedureService) uploadImage(ctx context.Context, image *ImageUpload) (string, error) {
	if s.storage == nil {
		return "", apperrors.NewInternalError("image storage is not configured", nil)
	}
	url, err := s.storage.Upload(ctx, s.objectName(image.Filename), image.Body)
	if err != nil {
		return "", apperrors.NewExternalError("failed to upload procedure image", err)
	}
	return url, nil
}

// objectName builds a collision-resistant "<unixms>-<random>.<ext>" name
func (s *ProcedureService) objectName(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	random := strings.ReplaceAll(uuid.New().String(), "-", "")[:11]
	return fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), random, ext)
}

func (s *ProcedureService) imageURL(path string) string {
	if s.storage == nil || path == "" {
		return path
	}
	return s.storage.PublicURL(path)
}

// resolve returns a copy of p with its image reference turned into a public URL
func (s *ProcedureService) resolve(p *entities.Procedure) *entities.Procedure {
	out := *p
	if out.ImageURL != nil {
		url := s.imageURL(*out.ImageURL)
		out.ImageURL = &url
	}
	return &out
}

func (s *ProcedureService) resolveAll(procedures []*entities.Procedure) []*entities.Procedure {
	out := make([]*entities.Procedure, len(procedures))
	for i, p := range procedures {
		out[i] = s.resolve(p)
	}
	return out
}

func validateProcedureInput(input ProcedureInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.NewValidationError("name is required")
	}
	if input.DurationMinutes <= 0 {
		return apperrors.NewValidationError("duration_minutes must be positive")
	}
	if input.Price != nil && *input.Price < 0 {
		return apperrors.NewValidationError("price must not be negative")
	}
	return nil
}

func applyProcedureInput(p *entities.Procedure, input ProcedureInput) {
	p.Name = strings.TrimSpace(input.Name)
	p.Description = input.Description
	p.DetailedDescription = input.DetailedDescription
	p.Benefits = input.Benefits
	p.Preparation = input.Preparation
	p.DurationMinutes = input.DurationMinutes
	p.Price = input.Price
	p.VideoURL = input.VideoURL
	if input.ImageURL != nil {
		p.ImageURL = input.ImageURL
	}
	if input.IsActive != nil {
		p.IsActive = *input.IsActive
	}
}
