package services

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/repositories"
)

const roleCacheSize = 1024

// RoleResolver answers role checks from user_roles, caching each answer for a short TTL
type RoleResolver struct {
	profiles repositories.ProfileRepository
	cache    *expirable.LRU[string, entities.Role]
}

// NewRoleResolver creates a role resolver. A non-positive ttl disables caching.
func NewRoleResolver(profiles repositories.ProfileRepository, ttl time.Duration) *RoleResolver {
	r := &RoleResolver{profiles: profiles}
	if ttl > 0 {
		r.cache = expirable.NewLRU[string, entities.Role](roleCacheSize, nil, ttl)
	}
	return r
}

// Resolve returns the role of a user: admin when granted, patient otherwise
func (r *RoleResolver) Resolve(ctx context.Context, userID string) (entities.Role, error) {
	if r.cache != nil {
		if role, ok := r.cache.Get(userID); ok {
			return role, nil
		}
	}

	isAdmin, err := r.profiles.HasRole(ctx, userID, entities.RoleAdmin)
	if err != nil {
		return "", err
	}

	role := entities.RolePatient
	if isAdmin {
		role = entities.RoleAdmin
	}
	if r.cache != nil {
		r.cache.Add(userID, role)
	}
	return role, nil
}

// Forget drops the cached role of a user
func (r *RoleResolver) Forget(userID string) {
	if r.cache != nil {
		r.cache.Remove(userID)
	}
}
