package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/observability"
)

type identityKey struct{}

// RoleResolver answers which role a user holds
type RoleResolver interface {
	Resolve(ctx context.Context, userID string) (entities.Role, error)
}

// Claims are the bearer token claims the API relies on
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens and attaches the caller's identity
type Authenticator struct {
	secret []byte
	issuer string
	roles  RoleResolver
}

// NewAuthenticator creates an authenticator. An empty issuer skips the issuer check.
func NewAuthenticator(secret, issuer string, roles RoleResolver) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer, roles: roles}
}

// Parse validates a token and returns its claims
func (a *Authenticator) Parse(token string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Middleware attaches an identity when a valid token is presented. Requests
// without a token pass through anonymously; a bad token is rejected.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := a.Parse(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Sesión inválida o expirada")
			return
		}

		role := entities.RolePatient
		if a.roles != nil {
			resolved, err := a.roles.Resolve(r.Context(), claims.Subject)
			if err != nil {
				observability.LoggerFromContext(r.Context()).Error().Err(err).Str("user_id", claims.Subject).Msg("role lookup failed")
				writeError(w, http.StatusServiceUnavailable, "No se pudo verificar la sesión")
				return
			}
			role = resolved
		}

		identity := &entities.Identity{UserID: claims.Subject, Email: claims.Email, Role: role}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// RequireAuth rejects requests that carry no identity
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IdentityFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "Debes iniciar sesión")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests from anyone but administrators
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := IdentityFromContext(r.Context())
		if identity == nil {
			writeError(w, http.StatusUnauthorized, "Debes iniciar sesión")
			return
		}
		if !identity.IsAdmin() {
			writeError(w, http.StatusForbidden, "Acceso restringido a administradores")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity returns a copy of ctx carrying identity
func WithIdentity(ctx context.Context, identity *entities.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the authenticated caller, or nil
func IdentityFromContext(ctx context.Context) *entities.Identity {
	identity, _ := ctx.Value(identityKey{}).(*entities.Identity)
	return identity
}

// bearerToken reads the Authorization header. EventSource cannot set headers,
// so the access_token query parameter is accepted as well.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}
