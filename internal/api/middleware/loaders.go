package middleware

import (
	"net/http"

	"github.com/bondusy/spa-booking/backend/internal/application/loaders"
	"github.com/bondusy/spa-booking/backend/internal/domain/repositories"
)

// LoadersMiddleware gives every request its own batching loaders
func LoadersMiddleware(procedures repositories.ProcedureRepository, profiles repositories.ProfileRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := loaders.WithLoaders(r.Context(), loaders.NewLoaders(procedures, profiles))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
