package services_test

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bondusy/spa-booking/backend/internal/adapters/storage"
	"github.com/bondusy/spa-booking/backend/internal/application/services"
	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/repositories"
	apperrors "github.com/bondusy/spa-booking/backend/pkg/errors"
)

const publicBase = "https://cdn.example.com/storage/v1/object/public"

func newBucket(t *testing.T) *storage.LocalBucket {
	t.Helper()
	bucket, err := storage.NewLocalBucket(t.TempDir(), "procedures", publicBase)
	require.NoError(t, err)
	return bucket
}

func activeFilter() repositories.ProcedureFilter {
	active := true
	return repositories.ProcedureFilter{IsActive: &active}
}

func TestProcedureService_List(t *testing.T) {
	repo := new(MockProcedureRepository)
	repo.On("List", mock.Anything, activeFilter()).Return([]*entities.Procedure{
		{ID: "p1", Name: "Exfoliación Corporal", ImageURL: text("/images/procedures/body-scrub.jpg"), IsActive: true},
		{ID: "p2", Name: "Facial Hidratante", ImageURL: text("https://images.example.com/facial.jpg"), IsActive: true},
		{ID: "p3", Name: "Masaje", IsActive: true},
	}, nil)

	svc := services.NewProcedureService(repo, nil, newBucket(t))
	procedures, err := svc.List(context.Background())
	require.NoError(t, err)

	require.Len(t, procedures, 3)
	assert.Equal(t, publicBase+"/procedures/images/procedures/body-scrub.jpg", *procedures[0].ImageURL)
	assert.Equal(t, "https://images.example.com/facial.jpg", *procedures[1].ImageURL)
	assert.Nil(t, procedures[2].ImageURL)
}

func TestProcedureService_Get(t *testing.T) {
	repo := new(MockProcedureRepository)
	repo.On("GetByID", mock.Anything, "p1").Return(&entities.Procedure{ID: "p1", Name: "Facial Hidratante", IsActive: true}, nil)
	repo.On("ListImages", mock.Anything, "p1").Return([]*entities.ProcedureImage{
		{ID: "i1", ProcedureID: "p1", ImageURL: "gallery/a.jpg", Position: 0},
		{ID: "i2", ProcedureID: "p1", ImageURL: "http://legacy.example.com/b.jpg", Position: 1},
	}, nil)

	svc := services.NewProcedureService(repo, nil, newBucket(t))
	detail, err := svc.Get(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, "Facial Hidratante", detail.Name)
	require.Len(t, detail.Images, 2)
	assert.Equal(t, publicBase+"/procedures/gallery/a.jpg", detail.Images[0].ImageURL)
	assert.Equal(t, "http://legacy.example.com/b.jpg", detail.Images[1].ImageURL)
}

func TestProcedureService_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps search engine order and drops inactive hits", func(t *testing.T) {
		repo := new(MockProcedureRepository)
		search := new(MockProcedureSearchRepository)
		search.On("Search", mock.Anything, "facial", 20).Return([]string{"p2", "p1", "p3"}, nil)
		repo.On("GetByIDs", mock.Anything, []string{"p2", "p1", "p3"}).Return([]*entities.Procedure{
			{ID: "p1", Name: "Facial Hidratante", IsActive: true},
			{ID: "p2", Name: "Facial Antiedad", IsActive: true},
			{ID: "p3", Name: "Facial Retirado", IsActive: false},
		}, nil)

		results, err := services.NewProcedureService(repo, search, nil).Search(ctx, "facial", 0)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "p2", results[0].ID)
		assert.Equal(t, "p1", results[1].ID)
	})

	t.Run("falls back to the database without a search engine", func(t *testing.T) {
		repo := new(MockProcedureRepository)
		filter := activeFilter()
		filter.Query = "capilar"
		filter.Limit = 5
		repo.On("List", mock.Anything, filter).Return([]*entities.Procedure{{ID: "p9", Name: "Tratamiento Capilar Nutritivo", IsActive: true}}, nil)

		results, err := services.NewProcedureService(repo, nil, nil).Search(ctx, " capilar ", 5)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "p9", results[0].ID)
	})

	t.Run("falls back to the database when the engine fails", func(t *testing.T) {
		repo := new(MockProcedureRepository)
		search := new(MockProcedureSearchRepository)
		search.On("Search", mock.Anything, "masaje", 20).Return(nil, errBoom)
		filter := activeFilter()
		filter.Query = "masaje"
		filter.Limit = 20
		repo.On("List", mock.Anything, filter).Return([]*entities.Procedure{}, nil)

		results, err := services.NewProcedureService(repo, search, nil).Search(ctx, "masaje", 0)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestProcedureService_Create(t *testing.T) {
	ctx := context.Background()
	input := services.ProcedureInput{Name: " Masaje Relajante ", DurationMinutes: 60, Price: price(80)}

	t.Run("uploads the image and indexes the procedure", func(t *testing.T) {
		repo := new(MockProcedureRepository)
		search := new(MockProcedureSearchRepository)
		bucket := newBucket(t)
		repo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Procedure")).Return(nil)
		search.On("Index", mock.Anything, mock.AnythingOfType("*entities.Procedure")).Return(nil)

		created, err := services.NewProcedureService(repo, search, bucket).Create(ctx, admin, input, &services.ImageUpload{
			Filename: "Masaje.JPG",
			Body:     strings.NewReader("jpeg bytes"),
		})
		require.NoError(t, err)

		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "Masaje Relajante", created.Name)
		assert.True(t, created.IsActive)
		require.NotNil(t, created.ImageURL)
		assert.Regexp(t, regexp.MustCompile(`^`+regexp.QuoteMeta(publicBase)+`/procedures/\d{13}-[0-9a-f]{11}\.jpg$`), *created.ImageURL)

		entries, err := os.ReadDir(bucket.Dir())
		require.NoError(t, err)
		require.Len(t, entries, 1)
		content, err := os.ReadFile(filepath.Join(bucket.Dir(), entries[0].Name()))
		require.NoError(t, err)
		assert.Equal(t, "jpeg bytes", string(content))

		search.AssertExpectations(t)
	})

	t.Run("patients cannot manage the catalog", func(t *testing.T) {
		repo := new(MockProcedureRepository)

		_, err := services.NewProcedureService(repo, nil, nil).Create(ctx, patient, input, nil)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		svc := services.NewProcedureService(new(MockProcedureRepository), nil, nil)

		for _, bad := range []services.ProcedureInput{
			{DurationMinutes: 30},
			{Name: "Facial", DurationMinutes: 0},
			{Name: "Facial", DurationMinutes: 30, Price: price(-1)},
		} {
			_, err := svc.Create(ctx, admin, bad, nil)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
		}
	})

	t.Run("index failure does not fail the write", func(t *testing.T) {
		repo := new(MockProcedureRepository)
		search := new(MockProcedureSearchRepository)
		repo.On("Create", mock.Anything, mock.Anything).Return(nil)
		search.On("Index", mock.Anything, mock.Anything).Return(errBoom)

		_, err := services.NewProcedureService(repo, search, nil).Create(ctx, admin, input, nil)
		assert.NoError(t, err)
	})
}

func TestProcedureService_Update(t *testing.T) {
	repo := new(MockProcedureRepository)
	repo.On("GetByID", mock.Anything, "p1").Return(&entities.Procedure{
		ID: "p1", Name: "Facial", DurationMinutes: 30, ImageURL: text("procedures/old.jpg"), IsActive: true,
	}, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(p *entities.Procedure) bool {
		return p.Name == "Facial Hidratante" && p.DurationMinutes == 45 && *p.ImageURL == "procedures/old.jpg"
	})).Return(nil)

	updated, err := services.NewProcedureService(repo, nil, nil).Update(context.Background(), admin, "p1",
		services.ProcedureInput{Name: "Facial Hidratante", DurationMinutes: 45}, nil)
	require.NoError(t, err)
	assert.Equal(t, "procedures/old.jpg", *updated.ImageURL)
	repo.AssertExpectations(t)
}

func TestProcedureService_SetActive(t *testing.T) {
	repo := new(MockProcedureRepository)
	search := new(MockProcedureSearchRepository)
	repo.On("SetActive", mock.Anything, "p1", false).Return(nil)
	repo.On("GetByID", mock.Anything, "p1").Return(&entities.Procedure{ID: "p1", Name: "Facial", IsActive: false}, nil)
	search.On("Index", mock.Anything, mock.MatchedBy(func(p *entities.Procedure) bool { return !p.IsActive })).Return(nil)

	require.NoError(t, services.NewProcedureService(repo, search, nil).SetActive(context.Background(), admin, "p1", false))
	search.AssertExpectations(t)
}

func TestProcedureService_SeedSamples(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds an empty catalog", func(t *testing.T) {
		repo := new(MockProcedureRepository)
		repo.On("Count", mock.Anything).Return(0, nil)
		repo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Procedure")).Return(nil)

		n, err := services.NewProcedureService(repo, nil, nil).SeedSamples(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		repo.AssertNumberOfCalls(t, "Create", 3)
	})

	t.Run("leaves an existing catalog alone", func(t *testing.T) {
		repo := new(MockProcedureRepository)
		repo.On("Count", mock.Anything).Return(5, nil)

		n, err := services.NewProcedureService(repo, nil, nil).SeedSamples(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestSampleProcedures(t *testing.T) {
	samples := services.SampleProcedures()
	require.Len(t, samples, 3)
	assert.Equal(t, "Exfoliación Corporal", samples[0].Name)
	assert.Equal(t, 60, samples[0].DurationMinutes)
	assert.Equal(t, 65.0, *samples[1].Price)
	assert.Equal(t, 50, samples[2].DurationMinutes)
}
