package loaders

import (
	"context"
	"fmt"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/repositories"
)

type ctxKey string

const loadersKey ctxKey = "dataloaders"

// Loaders batches the lookups that decorate appointment listings
type Loaders struct {
	ProcedureLoader *dataloader.Loader[string, *entities.Procedure]
	ProfileLoader   *dataloader.Loader[string, *entities.Profile]
}

// NewLoaders creates a new instance of Loaders. Loaders cache per instance,
// so create one per request.
func NewLoaders(procedureRepo repositories.ProcedureRepository, profileRepo repositories.ProfileRepository) *Loaders {
	return &Loaders{
		ProcedureLoader: dataloader.NewBatchedLoader(
			batchByID("procedure", procedureRepo.GetByIDs, func(p *entities.Procedure) string { return p.ID }),
		),
		ProfileLoader: dataloader.NewBatchedLoader(
			batchByID("profile", profileRepo.GetByIDs, func(p *entities.Profile) string { return p.ID }),
		),
	}
}

// batchByID adapts a GetByIDs lookup to a batch function that answers keys in order
func batchByID[T any](
	kind string,
	fetch func(ctx context.Context, ids []string) ([]T, error),
	idOf func(T) string,
) dataloader.BatchFunc[string, T] {
	return func(ctx context.Context, keys []string) []*dataloader.Result[T] {
		results := make([]*dataloader.Result[T], len(keys))
		items, err := fetch(ctx, keys)

		byID := make(map[string]T, len(items))
		if err == nil {
			for _, item := range items {
				byID[idOf(item)] = item
			}
		}

		for i, key := range keys {
			if err != nil {
				results[i] = &dataloader.Result[T]{Error: err}
			} else if item, ok := byID[key]; ok {
				results[i] = &dataloader.Result[T]{Data: item}
			} else {
				results[i] = &dataloader.Result[T]{Error: fmt.Errorf("%s %s not found", kind, key)}
			}
		}
		return results
	}
}

// For returns the loaders attached to ctx, or nil
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}
