package search

import (
	"context"
	"fmt"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/repositories"
	tsclient "github.com/bondusy/spa-booking/backend/internal/infrastructure/clients/typesense"
)

// TypesenseAdapter implements procedure search using Typesense
type TypesenseAdapter struct {
	client *tsclient.Client
}

var _ repositories.ProcedureSearchRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// Index upserts a procedure document
func (a *TypesenseAdapter) Index(ctx context.Context, procedure *entities.Procedure) error {
	_, err := a.client.Client().Collection(tsclient.ProceduresCollection).Documents().Upsert(ctx, procedureDocument(procedure))
	if err != nil {
		return fmt.Errorf("failed to index procedure %s: %w", procedure.ID, err)
	}
	return nil
}

// Search returns IDs of active procedures matching query
func (a *TypesenseAdapter) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}

	params := &api.SearchCollectionParams{
		Q:        pointer.String(query),
		QueryBy:  pointer.String("name,description,benefits"),
		FilterBy: pointer.String("is_active:=true"),
		PerPage:  pointer.Int(limit),
	}

	result, err := a.client.Client().Collection(tsclient.ProceduresCollection).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search procedures: %w", err)
	}

	return hitIDs(result), nil
}

func procedureDocument(p *entities.Procedure) map[string]interface{} {
	doc := map[string]interface{}{
		"id":               p.ID,
		"name":             p.Name,
		"duration_minutes": p.DurationMinutes,
		"is_active":        p.IsActive,
		"created_at":       p.CreatedAt.Unix(),
	}
	if p.Description != nil {
		doc["description"] = *p.Description
	}
	if p.Benefits != nil {
		doc["benefits"] = *p.Benefits
	}
	if p.Price != nil {
		doc["price"] = *p.Price
	}
	return doc
}

func hitIDs(result *api.SearchResult) []string {
	ids := []string{}
	if result == nil || result.Hits == nil {
		return ids
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		if id, ok := (*hit.Document)["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids
}
