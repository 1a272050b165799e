package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/providers"
	"github.com/bondusy/spa-booking/backend/internal/domain/repositories"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/observability"
)

// Cache TTLs (in seconds)
const (
	procedureByIDTTL   = 300
	proceduresListTTL  = 300
	procedureKeyPrefix = "procedures:"
)

func procedureCacheKey(id string) string {
	return fmt.Sprintf("procedures:id:%s", id)
}

func proceduresListCacheKey(filter repositories.ProcedureFilter) string {
	active := "all"
	if filter.IsActive != nil {
		active = fmt.Sprintf("%t", *filter.IsActive)
	}
	return fmt.Sprintf("procedures:list:%s:%d:%d", active, filter.Limit, filter.Offset)
}

// CachedProcedureAdapter wraps a ProcedureRepository with a read-through cache.
// Free-text listings bypass the cache; every write drops all procedure keys.
type CachedProcedureAdapter struct {
	repositories.ProcedureRepository
	cache providers.CacheProvider
}

// NewCachedProcedureAdapter creates a new cached procedure adapter
func NewCachedProcedureAdapter(adapter repositories.ProcedureRepository, cache providers.CacheProvider) *CachedProcedureAdapter {
	return &CachedProcedureAdapter{
		ProcedureRepository: adapter,
		cache:               cache,
	}
}

// GetByID retrieves a procedure by ID with caching
func (a *CachedProcedureAdapter) GetByID(ctx context.Context, id string) (*entities.Procedure, error) {
	key := procedureCacheKey(id)

	var cached entities.Procedure
	if a.load(ctx, key, &cached) {
		return &cached, nil
	}

	procedure, err := a.ProcedureRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	a.store(ctx, key, procedure, procedureByIDTTL)
	return procedure, nil
}

// List retrieves procedures with caching for filter-only listings
func (a *CachedProcedureAdapter) List(ctx context.Context, filter repositories.ProcedureFilter) ([]*entities.Procedure, error) {
	if filter.Query != "" {
		return a.ProcedureRepository.List(ctx, filter)
	}

	key := proceduresListCacheKey(filter)

	var cached []*entities.Procedure
	if a.load(ctx, key, &cached) {
		return cached, nil
	}

	procedures, err := a.ProcedureRepository.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	a.store(ctx, key, procedures, proceduresListTTL)
	return procedures, nil
}

// Create creates a procedure and invalidates cached listings
func (a *CachedProcedureAdapter) Create(ctx context.Context, procedure *entities.Procedure) error {
	if err := a.ProcedureRepository.Create(ctx, procedure); err != nil {
		return err
	}
	a.invalidate(ctx)
	return nil
}

// Update updates a procedure and invalidates the cache
func (a *CachedProcedureAdapter) Update(ctx context.Context, procedure *entities.Procedure) error {
	if err := a.ProcedureRepository.Update(ctx, procedure); err != nil {
		return err
	}
	a.invalidate(ctx)
	return nil
}

// SetActive toggles the soft-delete flag and invalidates the cache
func (a *CachedProcedureAdapter) SetActive(ctx context.Context, id string, active bool) error {
	if err := a.ProcedureRepository.SetActive(ctx, id, active); err != nil {
		return err
	}
	a.invalidate(ctx)
	return nil
}

func (a *CachedProcedureAdapter) load(ctx context.Context, key string, dest interface{}) bool {
	data, err := a.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("procedure cache read failed")
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("failed to unmarshal cached procedures")
		return false
	}
	return true
}

func (a *CachedProcedureAdapter) store(ctx context.Context, key string, value interface{}, ttl int) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, ttl); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("failed to cache procedures")
	}
}

func (a *CachedProcedureAdapter) invalidate(ctx context.Context) {
	if err := a.cache.DeletePattern(ctx, procedureKeyPrefix+"*"); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("failed to invalidate procedure cache")
	}
}
