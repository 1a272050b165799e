package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bondusy/spa-booking/backend/internal/application/services"
	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
)

func TestCacheWarmingService_WarmCache(t *testing.T) {
	t.Run("loads the list and every detail", func(t *testing.T) {
		repo := new(MockProcedureRepository)
		repo.On("List", mock.Anything, activeFilter()).Return([]*entities.Procedure{{ID: "p1"}, {ID: "p2"}}, nil)
		repo.On("GetByID", mock.Anything, "p1").Return(&entities.Procedure{ID: "p1"}, nil)
		repo.On("GetByID", mock.Anything, "p2").Return(nil, errBoom)

		err := services.NewCacheWarmingService(repo).WarmCache(context.Background())
		assert.NoError(t, err)
		repo.AssertNumberOfCalls(t, "GetByID", 2)
	})

	t.Run("list failure is returned", func(t *testing.T) {
		repo := new(MockProcedureRepository)
		repo.On("List", mock.Anything, mock.Anything).Return(nil, errBoom)

		err := services.NewCacheWarmingService(repo).WarmCache(context.Background())
		assert.ErrorIs(t, err, errBoom)
	})
}
