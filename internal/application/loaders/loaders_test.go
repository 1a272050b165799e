package loaders

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
)

func TestBatchByID(t *testing.T) {
	var calls atomic.Int32
	fetch := func(ctx context.Context, ids []string) ([]*entities.Profile, error) {
		calls.Add(1)
		out := []*entities.Profile{}
		for _, id := range ids {
			if id != "ghost" {
				out = append(out, &entities.Profile{ID: id, FullName: "Name " + id})
			}
		}
		return out, nil
	}

	batch := batchByID("profile", fetch, func(p *entities.Profile) string { return p.ID })
	results := batch(context.Background(), []string{"u1", "ghost", "u2"})

	require.Len(t, results, 3)
	assert.Equal(t, "Name u1", results[0].Data.FullName)
	assert.EqualError(t, results[1].Error, "profile ghost not found")
	assert.Equal(t, "Name u2", results[2].Data.FullName)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBatchByIDPropagatesError(t *testing.T) {
	boom := errors.New("db down")
	fetch := func(ctx context.Context, ids []string) ([]*entities.Procedure, error) {
		return nil, boom
	}

	results := batchByID("procedure", fetch, func(p *entities.Procedure) string { return p.ID })(context.Background(), []string{"a", "b"})

	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Error, boom)
	assert.ErrorIs(t, results[1].Error, boom)
}

func TestForWithoutLoaders(t *testing.T) {
	assert.Nil(t, For(context.Background()))

	l := &Loaders{}
	assert.Same(t, l, For(WithLoaders(context.Background(), l)))
}
