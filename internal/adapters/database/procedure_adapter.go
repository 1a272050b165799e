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

const (
	proceduresTable      = "procedures"
	procedureImagesTable = "procedure_images"
)

var procedureColumns = []interface{}{
	"id", "name", "description", "detailed_description", "benefits", "preparation",
	"duration_minutes", "price", "image_url", "video_url", "is_active", "created_at",
}

// ProcedureAdapter implements ProcedureRepository
type ProcedureAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ repositories.ProcedureRepository = (*ProcedureAdapter)(nil)

// NewProcedureAdapter creates a new procedure adapter
func NewProcedureAdapter(client *postgres.Client) *ProcedureAdapter {
	return &ProcedureAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func procedureRecord(p *entities.Procedure) goqu.Record {
	return goqu.Record{
		"name":                 p.Name,
		"description":          nullString(p.Description),
		"detailed_description": nullString(p.DetailedDescription),
		"benefits":             nullString(p.Benefits),
		"preparation":          nullString(p.Preparation),
		"duration_minutes":     p.DurationMinutes,
		"price":                nullFloat(p.Price),
		"image_url":            nullString(p.ImageURL),
		"video_url":            nullString(p.VideoURL),
		"is_active":            p.IsActive,
	}
}

// Create creates a new procedure
func (a *ProcedureAdapter) Create(ctx context.Context, procedure *entities.Procedure) error {
	record := procedureRecord(procedure)
	record["id"] = procedure.ID
	record["created_at"] = procedure.CreatedAt.UTC()

	query, _, err := a.db.Insert(proceduresTable).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query); err != nil {
		return classifyError(err, "failed to create procedure")
	}
	return nil
}

// GetByID retrieves a procedure by ID
func (a *ProcedureAdapter) GetByID(ctx context.Context, id string) (*entities.Procedure, error) {
	query, _, err := a.db.From(proceduresTable).
		Select(procedureColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	procedure, err := scanProcedure(a.client.DB().QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("procedure with id %s not found", id))
	}
	if err != nil {
		return nil, classifyError(err, "failed to get procedure")
	}
	return procedure, nil
}

// GetByIDs retrieves multiple procedures. Unknown IDs are skipped.
func (a *ProcedureAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Procedure, error) {
	if len(ids) == 0 {
		return []*entities.Procedure{}, nil
	}

	query, _, err := a.db.From(proceduresTable).
		Select(procedureColumns...).
		Where(goqu.C("id").In(ids)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.queryProcedures(ctx, query)
}

// Update updates a procedure
func (a *ProcedureAdapter) Update(ctx context.Context, procedure *entities.Procedure) error {
	query, _, err := a.db.Update(proceduresTable).
		Set(procedureRecord(procedure)).
		Where(goqu.Ex{"id": procedure.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	return a.execAffectingOne(ctx, query, procedure.ID, "failed to update procedure")
}

// SetActive toggles the soft-delete flag
func (a *ProcedureAdapter) SetActive(ctx context.Context, id string, active bool) error {
	query, _, err := a.db.Update(proceduresTable).
		Set(goqu.Record{"is_active": active}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	return a.execAffectingOne(ctx, query, id, "failed to update procedure")
}

func (a *ProcedureAdapter) execAffectingOne(ctx context.Context, query, id, msg string) error {
	result, err := a.client.DB().ExecContext(ctx, query)
	if err != nil {
		return classifyError(err, msg)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("procedure with id %s not found", id))
	}
	return nil
}

// List retrieves procedures ordered by name
func (a *ProcedureAdapter) List(ctx context.Context, filter repositories.ProcedureFilter) ([]*entities.Procedure, error) {
	ds := a.db.From(proceduresTable).Select(procedureColumns...)

	if filter.IsActive != nil {
		ds = ds.Where(goqu.Ex{"is_active": *filter.IsActive})
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		ds = ds.Where(goqu.Or(
			goqu.C("name").ILike(pattern),
			goqu.C("description").ILike(pattern),
			goqu.C("benefits").ILike(pattern),
		))
	}

	ds = ds.Order(goqu.C("name").Asc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, _, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	return a.queryProcedures(ctx, query)
}

// Count returns the total number of procedures
func (a *ProcedureAdapter) Count(ctx context.Context) (int, error) {
	query, _, err := a.db.From(proceduresTable).Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build count query", err)
	}

	var count int
	if err := a.client.DB().QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, classifyError(err, "failed to count procedures")
	}
	return count, nil
}

// ListImages returns a procedure's gallery ordered by position
func (a *ProcedureAdapter) ListImages(ctx context.Context, procedureID string) ([]*entities.ProcedureImage, error) {
	query, _, err := a.db.From(procedureImagesTable).
		Select("id", "procedure_id", "image_url", "position", "created_at").
		Where(goqu.Ex{"procedure_id": procedureID}).
		Order(goqu.C("position").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build images query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, classifyError(err, "failed to list procedure images")
	}
	defer rows.Close()

	images := []*entities.ProcedureImage{}
	for rows.Next() {
		img := &entities.ProcedureImage{}
		if err := rows.Scan(&img.ID, &img.ProcedureID, &img.ImageURL, &img.Position, &img.CreatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan procedure image", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "failed to list procedure images")
	}
	return images, nil
}

func (a *ProcedureAdapter) queryProcedures(ctx context.Context, query string) ([]*entities.Procedure, error) {
	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, classifyError(err, "failed to list procedures")
	}
	defer rows.Close()

	procedures := []*entities.Procedure{}
	for rows.Next() {
		procedure, err := scanProcedure(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan procedure", err)
		}
		procedures = append(procedures, procedure)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "failed to list procedures")
	}
	return procedures, nil
}

func scanProcedure(row rowScanner) (*entities.Procedure, error) {
	p := &entities.Procedure{}
	var description, detailed, benefits, preparation, imageURL, videoURL sql.NullString
	var price sql.NullFloat64

	err := row.Scan(
		&p.ID,
		&p.Name,
		&description,
		&detailed,
		&benefits,
		&preparation,
		&p.DurationMinutes,
		&price,
		&imageURL,
		&videoURL,
		&p.IsActive,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Description = stringPtr(description)
	p.DetailedDescription = stringPtr(detailed)
	p.Benefits = stringPtr(benefits)
	p.Preparation = stringPtr(preparation)
	p.ImageURL = stringPtr(imageURL)
	p.VideoURL = stringPtr(videoURL)
	if price.Valid {
		v := price.Float64
		p.Price = &v
	}
	return p, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
