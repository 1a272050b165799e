package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/repositories"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/bondusy/spa-booking/backend/pkg/errors"
)

// ProfileAdapter reads profiles and user_roles
type ProfileAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ repositories.ProfileRepository = (*ProfileAdapter)(nil)

// NewProfileAdapter creates a new profile adapter
func NewProfileAdapter(client *postgres.Client) *ProfileAdapter {
	return &ProfileAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a profile by user ID
func (a *ProfileAdapter) GetByID(ctx context.Context, id string) (*entities.Profile, error) {
	query, _, err := a.db.From("profiles").
		Select("id", "full_name", "email", "created_at").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	profile := &entities.Profile{}
	err = a.client.DB().QueryRowContext(ctx, query).Scan(&profile.ID, &profile.FullName, &profile.Email, &profile.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("profile with id %s not found", id))
	}
	if err != nil {
		return nil, classifyError(err, "failed to get profile")
	}
	return profile, nil
}

// GetByIDs retrieves multiple profiles. Unknown IDs are skipped.
func (a *ProfileAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Profile, error) {
	if len(ids) == 0 {
		return []*entities.Profile{}, nil
	}

	query, _, err := a.db.From("profiles").
		Select("id", "full_name", "email", "created_at").
		Where(goqu.C("id").In(ids)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, classifyError(err, "failed to list profiles")
	}
	defer rows.Close()

	profiles := []*entities.Profile{}
	for rows.Next() {
		p := &entities.Profile{}
		if err := rows.Scan(&p.ID, &p.FullName, &p.Email, &p.CreatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan profile", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "failed to list profiles")
	}
	return profiles, nil
}

// HasRole reports whether the user was granted role
func (a *ProfileAdapter) HasRole(ctx context.Context, userID string, role entities.Role) (bool, error) {
	query, _, err := a.db.From("user_roles").
		Select(goqu.COUNT("*")).
		Where(goqu.Ex{"user_id": userID, "role": string(role)}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build role query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query).Scan(&count); err != nil {
		return false, classifyError(err, "failed to check role")
	}
	return count > 0, nil
}
