package repositories

import (
	"context"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
)

// ProfileRepository defines read access to user profiles and roles
type ProfileRepository interface {
	// GetByID retrieves a profile by user ID
	GetByID(ctx context.Context, id string) (*entities.Profile, error)

	// GetByIDs retrieves multiple profiles
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Profile, error)

	// HasRole reports whether the user was granted role
	HasRole(ctx context.Context, userID string, role entities.Role) (bool, error)
}

// NotificationLogRepository records email delivery attempts
type NotificationLogRepository interface {
	Create(ctx context.Context, record *entities.NotificationRecord) error
	Update(ctx context.Context, record *entities.NotificationRecord) error
}
